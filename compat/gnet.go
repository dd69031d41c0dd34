package compat

import (
	"fmt"
	"os"

	"github.com/panjf2000/gnet/v2/pkg/logging"

	"github.com/lixenwraith/applog"
)

var _ logging.Logger = (*GnetAdapter)(nil)

// GnetAdapter implements gnet's logging.Logger on top of an applog.Logger
type GnetAdapter struct {
	logger       *applog.Logger
	fatalHandler func(msg string)
}

// NewGnetAdapter creates a gnet-compatible logger adapter.
// Fatalf exits the process unless WithFatalHandler replaces that.
func NewGnetAdapter(logger *applog.Logger, opts ...GnetOption) *GnetAdapter {
	adapter := &GnetAdapter{
		logger: logger,
		fatalHandler: func(string) {
			os.Exit(1)
		},
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// GnetOption customizes the adapter
type GnetOption func(*GnetAdapter)

// WithFatalHandler sets what Fatalf does after the record is flushed
func WithFatalHandler(handler func(string)) GnetOption {
	return func(a *GnetAdapter) {
		a.fatalHandler = handler
	}
}

func (a *GnetAdapter) Debugf(format string, args ...any) {
	a.logger.Debug(fmt.Sprintf(format, args...), sourceField("gnet"))
}

func (a *GnetAdapter) Infof(format string, args ...any) {
	a.logger.Info(fmt.Sprintf(format, args...), sourceField("gnet"))
}

func (a *GnetAdapter) Warnf(format string, args ...any) {
	a.logger.Warn(fmt.Sprintf(format, args...), sourceField("gnet"))
}

func (a *GnetAdapter) Errorf(format string, args ...any) {
	a.logger.Error(fmt.Sprintf(format, args...), sourceField("gnet"))
}

// Fatalf logs at fatal level, syncs the file and calls the fatal handler
func (a *GnetAdapter) Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	a.logger.Fatal(msg, sourceField("gnet"))

	_ = a.logger.Flush()

	if a.fatalHandler != nil {
		a.fatalHandler(msg)
	}
}
