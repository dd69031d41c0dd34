package applog

// Builder provides a fluent API for building logger configurations.
// It wraps a Config instance and provides chainable methods for setting values.
type Builder struct {
	cfg     *Config
	storage Storage
	err     error // Accumulate errors for deferred handling
}

// NewBuilder creates a new configuration builder with default values.
func NewBuilder() *Builder {
	return &Builder{
		cfg: DefaultConfig(),
	}
}

// Build creates a new Logger instance with the specified configuration.
// The logger is configured but holds no open file until Init or the first write.
func (b *Builder) Build() (*Logger, error) {
	if b.err != nil {
		return nil, b.err
	}

	logger := NewLogger()
	if b.storage != nil {
		logger.storage = b.storage
		logger.customStorage = true
	}

	if err := logger.ApplyConfig(b.cfg); err != nil {
		return nil, err
	}

	return logger, nil
}

// Config replaces the whole configuration, e.g. one derived from ConfigFromProvider.
func (b *Builder) Config(cfg *Config) *Builder {
	if cfg != nil {
		b.cfg = cfg.Clone()
	}
	return b
}

// Level sets the log level.
func (b *Builder) Level(level int64) *Builder {
	b.cfg.Level = level
	return b
}

// LevelString sets the log level from a string.
func (b *Builder) LevelString(level string) *Builder {
	if b.err != nil {
		return b
	}
	levelVal, err := ParseLevel(level)
	if err != nil {
		b.err = err
		return b
	}
	b.cfg.Level = levelVal
	return b
}

// Name sets the base file name.
func (b *Builder) Name(name string) *Builder {
	b.cfg.Name = name
	return b
}

// Directory sets the log directory.
func (b *Builder) Directory(dir string) *Builder {
	b.cfg.Directory = dir
	return b
}

// Extension sets the file extension, without the dot.
func (b *Builder) Extension(ext string) *Builder {
	b.cfg.Extension = ext
	return b
}

// MaxSizeBytes sets the rotation threshold.
func (b *Builder) MaxSizeBytes(size int64) *Builder {
	b.cfg.MaxSizeBytes = size
	return b
}

// MaxSizeMB sets the rotation threshold in MiB. Convenience.
func (b *Builder) MaxSizeMB(size int64) *Builder {
	b.cfg.MaxSizeBytes = size * 1024 * 1024
	return b
}

// MaxFiles sets how many log files are retained.
func (b *Builder) MaxFiles(n int64) *Builder {
	b.cfg.MaxFiles = n
	return b
}

// EnableConsole enables mirroring of persisted lines to stdout/stderr.
func (b *Builder) EnableConsole(enable bool) *Builder {
	b.cfg.EnableConsole = enable
	return b
}

// ConsoleTarget selects "stdout" or "stderr" for mirroring.
func (b *Builder) ConsoleTarget(target string) *Builder {
	b.cfg.ConsoleTarget = target
	return b
}

// Storage substitutes the file backend, e.g. NewMemoryStorage() in tests.
// When set, Directory is ignored for file placement.
func (b *Builder) Storage(s Storage) *Builder {
	b.storage = s
	return b
}

// Example usage:
// logger, err := applog.NewBuilder().
//
//	Directory("/var/lib/app/logs").
//	LevelString("debug").
//	MaxSizeMB(5).
//	MaxFiles(5).
//	EnableConsole(true).
//	Build()
//
// if err == nil {
//
//	 logger.Init(lc)
//	 logger.Info("application starting")
//
// }
