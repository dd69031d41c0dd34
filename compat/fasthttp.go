package compat

import (
	"fmt"
	"strings"

	"github.com/lixenwraith/applog"
)

// FastHTTPAdapter routes fasthttp server messages into an applog.Logger
type FastHTTPAdapter struct {
	logger        *applog.Logger
	defaultLevel  int64
	levelDetector func(string) int64 // Detects a level from message text
}

// NewFastHTTPAdapter creates a fasthttp-compatible logger adapter
func NewFastHTTPAdapter(logger *applog.Logger, opts ...FastHTTPOption) *FastHTTPAdapter {
	adapter := &FastHTTPAdapter{
		logger:        logger,
		defaultLevel:  applog.LevelInfo,
		levelDetector: DetectLogLevel,
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// FastHTTPOption customizes the adapter
type FastHTTPOption func(*FastHTTPAdapter)

// WithDefaultLevel sets the level used when detection finds nothing
func WithDefaultLevel(level int64) FastHTTPOption {
	return func(a *FastHTTPAdapter) {
		a.defaultLevel = level
	}
}

// WithLevelDetector replaces the message-based level detection
func WithLevelDetector(detector func(string) int64) FastHTTPOption {
	return func(a *FastHTTPAdapter) {
		a.levelDetector = detector
	}
}

// Printf implements fasthttp.Logger
func (a *FastHTTPAdapter) Printf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	// Info doubles as "nothing detected"
	level := a.defaultLevel
	if a.levelDetector != nil {
		if detected := a.levelDetector(msg); detected != applog.LevelInfo {
			level = detected
		}
	}

	a.logger.Log(level, msg, sourceField("fasthttp"))
}

// DetectLogLevel guesses a level from keywords in msg
func DetectLogLevel(msg string) int64 {
	msgLower := strings.ToLower(msg)

	if strings.Contains(msgLower, "error") ||
		strings.Contains(msgLower, "failed") ||
		strings.Contains(msgLower, "fatal") ||
		strings.Contains(msgLower, "panic") {
		return applog.LevelError
	}

	if strings.Contains(msgLower, "warn") ||
		strings.Contains(msgLower, "deprecated") {
		return applog.LevelWarn
	}

	if strings.Contains(msgLower, "debug") ||
		strings.Contains(msgLower, "trace") {
		return applog.LevelDebug
	}

	return applog.LevelInfo
}

func sourceField(source string) string {
	return "source=" + source
}
