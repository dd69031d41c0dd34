package applog

import (
	"io"
	"os"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/applog/formatter"
)

// ShutdownRegistrar accepts hooks to run when the process shuts down
type ShutdownRegistrar interface {
	OnShutdown(fn func() error)
}

// Logger is a leveled file logger with size rotation and count-based retention.
// All writes are synchronous; a record returned from Info is already in the file.
type Logger struct {
	currentConfig atomic.Value // stores *Config
	level         atomic.Int64
	activeName    atomic.Value // stores string
	state         State

	// mu serializes the write path: handle, rotation, cleanup and formatting
	mu            sync.Mutex
	storage       Storage
	customStorage bool
	file          File
	activeDate    string
	formatter     *formatter.Formatter
	registrars    []ShutdownRegistrar

	now      func() time.Time
	fallback io.Writer // Sink for internal diagnostics
	console  io.Writer // Overrides the configured console target when set
}

// NewLogger creates a new Logger instance with default settings.
// No file is touched until Init or the first record.
func NewLogger() *Logger {
	l := &Logger{
		now:      time.Now,
		fallback: os.Stderr,
	}

	cfg := DefaultConfig()
	l.currentConfig.Store(cfg)
	l.level.Store(cfg.Level)
	l.activeName.Store("")
	l.state.StartTime.Store(time.Time{})
	l.formatter = formatter.New().TimestampFormat(cfg.TimestampFormat)

	return l
}

// ApplyConfig validates and applies a configuration.
// The log directory is created if absent. A change of directory, name or
// extension closes the open handle; the next record opens the new file.
func (l *Logger) ApplyConfig(cfg *Config) error {
	if cfg == nil {
		return fmtErrorf("configuration cannot be nil")
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.applyConfig(cfg.Clone())
}

// GetConfig returns a copy of current configuration
func (l *Logger) GetConfig() *Config {
	return l.getConfig().Clone()
}

// Init prepares the log file and registers Close with each registrar.
// It is idempotent: repeated calls keep the single open handle, register a
// given registrar once, and the "logger initialized" record is written only
// after the first success. Failures are reported to stderr, never returned.
func (l *Logger) Init(reg ...ShutdownRegistrar) {
	defer func() {
		if r := recover(); r != nil {
			l.internalLog("panic during init: %v\n", r)
		}
	}()

	l.mu.Lock()
	var added []ShutdownRegistrar
	for _, r := range reg {
		if r != nil && !l.isRegistered(r) {
			l.registrars = append(l.registrars, r)
			added = append(added, r)
		}
	}

	now := l.now()
	err := l.ensureFile(now)
	first := err == nil && l.state.IsInitialized.CompareAndSwap(false, true)
	if first {
		l.state.StartTime.Store(now)
	}
	active, _ := l.activeName.Load().(string)
	cfg := l.getConfig()
	l.mu.Unlock()

	for _, r := range added {
		r.OnShutdown(l.Close)
	}

	if err != nil {
		l.internalLog("failed to initialize logger: %v\n", err)
		return
	}

	if first {
		l.Info("logger initialized", map[string]any{
			"directory": cfg.Directory,
			"file":      active,
			"level":     LevelName(l.Level()),
		})
	}
}

// SetLevel changes the minimum persisted level immediately.
// Unknown levels are reported and ignored.
func (l *Logger) SetLevel(level int64) {
	if !isKnownLevel(level) {
		l.internalLog("ignoring unknown level %d\n", level)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cfg := l.getConfig().Clone()
	cfg.Level = level
	l.currentConfig.Store(cfg)
	l.level.Store(level)
}

// Level returns the current minimum level
func (l *Logger) Level() int64 {
	return l.level.Load()
}

// Debug logs a message at debug level
func (l *Logger) Debug(message string, args ...any) {
	l.log(LevelDebug, message, args)
}

// Info logs a message at info level
func (l *Logger) Info(message string, args ...any) {
	l.log(LevelInfo, message, args)
}

// Warn logs a message at warning level
func (l *Logger) Warn(message string, args ...any) {
	l.log(LevelWarn, message, args)
}

// Error logs a message at error level
func (l *Logger) Error(message string, args ...any) {
	l.log(LevelError, message, args)
}

// Fatal logs a message at fatal level. It does not exit the process.
func (l *Logger) Fatal(message string, args ...any) {
	l.log(LevelFatal, message, args)
}

// Log writes a record at an arbitrary level, used by adapters that map foreign levels
func (l *Logger) Log(level int64, message string, args ...any) {
	l.log(level, message, args)
}

// Flush syncs the open file to stable storage
func (l *Logger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	if err := l.file.Sync(); err != nil {
		return fmtErrorf("failed to sync log file '%s': %w", l.file.Name(), err)
	}
	return nil
}

// Close syncs and closes the open file. It waits for an in-flight write;
// records logged afterwards reopen the file on demand.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}

	var finalErr error
	name := l.file.Name()
	if err := l.file.Sync(); err != nil {
		finalErr = combineErrors(finalErr, fmtErrorf("failed to sync log file '%s' during close: %w", name, err))
	}
	if err := l.file.Close(); err != nil {
		finalErr = combineErrors(finalErr, fmtErrorf("failed to close log file '%s': %w", name, err))
	}
	l.file = nil
	l.activeDate = ""
	return finalErr
}

// getConfig returns the current configuration (thread-safe)
func (l *Logger) getConfig() *Config {
	return l.currentConfig.Load().(*Config)
}

// applyConfig assumes mu is held
func (l *Logger) applyConfig(cfg *Config) error {
	oldCfg := l.getConfig()

	storage := l.storage
	if !l.customStorage && (storage == nil || oldCfg.Directory != cfg.Directory) {
		storage = NewDirStorage(cfg.Directory)
	}

	if err := storage.MkdirAll(); err != nil {
		return fmtErrorf("failed to create log directory '%s': %w", cfg.Directory, err)
	}

	if storage != l.storage || oldCfg.Name != cfg.Name || oldCfg.Extension != cfg.Extension {
		l.closeFile()
	}

	l.storage = storage
	l.currentConfig.Store(cfg)
	l.level.Store(cfg.Level)
	l.formatter = formatter.New().TimestampFormat(cfg.TimestampFormat)

	return nil
}

// getStorage returns the storage, creating the default directory storage lazily. mu is held.
func (l *Logger) getStorage() Storage {
	if l.storage == nil {
		l.storage = NewDirStorage(l.getConfig().Directory)
	}
	return l.storage
}

// isRegistered compares by identity; values of non-comparable types are never deduplicated
func (l *Logger) isRegistered(r ShutdownRegistrar) bool {
	if !reflect.TypeOf(r).Comparable() {
		return false
	}
	for _, existing := range l.registrars {
		if reflect.TypeOf(existing) == reflect.TypeOf(r) && existing == r {
			return true
		}
	}
	return false
}
