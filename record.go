package applog

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// log is the shared write path. It never returns an error or panics to the caller.
func (l *Logger) log(level int64, message string, args []any) {
	if level < l.level.Load() {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			l.state.DroppedLogs.Add(1)
			l.internalLog("panic while writing log record: %v\n", r)
		}
	}()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Level may have been raised while waiting for the lock
	if level < l.level.Load() {
		return
	}

	now := l.now()
	cfg := l.getConfig()

	if err := l.ensureFile(now); err != nil {
		l.state.DroppedLogs.Add(1)
		l.internalLog("log file unavailable, record dropped: %v\n", err)
		return
	}

	if l.file.Size() >= cfg.MaxSizeBytes {
		if err := l.rotate(now); err != nil {
			l.internalLog("rotation failed, continuing with active file: %v\n", err)
			if err := l.ensureFile(now); err != nil {
				l.state.DroppedLogs.Add(1)
				l.internalLog("log file unavailable after failed rotation, record dropped: %v\n", err)
				return
			}
		}
	}

	l.cleanup()

	line := l.formatter.Format(now, LevelName(level), message, args)
	if _, err := l.file.Write(line); err != nil {
		l.state.DroppedLogs.Add(1)
		l.internalLog("failed to write to '%s', record dropped: %v\n", l.file.Name(), err)
		// Reopen on the next record
		l.closeFile()
		return
	}
	l.state.TotalLogsWritten.Add(1)
	l.state.CurrentSize.Store(l.file.Size())

	if cfg.EnableConsole {
		_, _ = l.consoleWriter(cfg).Write(line)
	}
}

// consoleWriter returns the mirror target for persisted lines
func (l *Logger) consoleWriter(cfg *Config) io.Writer {
	if l.console != nil {
		return l.console
	}
	if cfg.ConsoleTarget == "stderr" {
		return os.Stderr
	}
	return os.Stdout
}

// internalLog handles writing internal logger diagnostics to stderr, if enabled.
func (l *Logger) internalLog(format string, args ...any) {
	l.state.InternalErrors.Add(1)

	cfg := l.getConfig()
	if !cfg.InternalErrorsToStderr || l.fallback == nil {
		return
	}

	// Ensure consistent "applog: " prefix
	if !strings.HasPrefix(format, errorPrefix) {
		format = errorPrefix + format
	}

	fmt.Fprintf(l.fallback, format, args...)
}
