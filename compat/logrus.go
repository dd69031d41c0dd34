package compat

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/lixenwraith/applog"
)

// LogrusHook forwards logrus entries to an applog.Logger, so libraries that
// log through logrus end up in the application log file
type LogrusHook struct {
	logger *applog.Logger
	levels []logrus.Level
}

// NewLogrusHook creates a hook for the given levels, or for all levels when none are given
func NewLogrusHook(logger *applog.Logger, levels ...logrus.Level) *LogrusHook {
	if len(levels) == 0 {
		levels = logrus.AllLevels
	}
	return &LogrusHook{logger: logger, levels: levels}
}

// RouteLogrus attaches a hook to target and silences its own output
func RouteLogrus(target *logrus.Logger, logger *applog.Logger) *LogrusHook {
	hook := NewLogrusHook(logger)
	target.AddHook(hook)
	target.SetOutput(io.Discard)
	return hook
}

// Levels implements logrus.Hook
func (h *LogrusHook) Levels() []logrus.Level {
	return h.levels
}

// Fire implements logrus.Hook
func (h *LogrusHook) Fire(entry *logrus.Entry) error {
	args := []any{sourceField("logrus")}
	if len(entry.Data) > 0 {
		fields := make(map[string]any, len(entry.Data))
		for k, v := range entry.Data {
			// errors have no exported fields and would encode as {}
			if err, ok := v.(error); ok {
				v = err.Error()
			}
			fields[k] = v
		}
		args = append(args, fields)
	}

	h.logger.Log(LogrusLevel(entry.Level), entry.Message, args...)
	return nil
}

// LogrusLevel maps a logrus level onto the applog scale.
// Trace folds into debug; panic folds into fatal.
func LogrusLevel(level logrus.Level) int64 {
	switch level {
	case logrus.PanicLevel, logrus.FatalLevel:
		return applog.LevelFatal
	case logrus.ErrorLevel:
		return applog.LevelError
	case logrus.WarnLevel:
		return applog.LevelWarn
	case logrus.InfoLevel:
		return applog.LevelInfo
	default:
		return applog.LevelDebug
	}
}
