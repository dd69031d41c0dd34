package applog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_Build(t *testing.T) {
	t.Run("successful build returns configured logger", func(t *testing.T) {
		tmpDir := t.TempDir()

		logger, err := NewBuilder().
			Directory(tmpDir).
			Name("desktop").
			Extension("txt").
			LevelString("debug").
			MaxSizeMB(10).
			MaxFiles(3).
			EnableConsole(true).
			ConsoleTarget("stderr").
			Build()

		require.NoError(t, err, "Builder.Build() should not return an error on valid config")
		require.NotNil(t, logger)
		defer logger.Close()

		cfg := logger.GetConfig()
		assert.Equal(t, tmpDir, cfg.Directory)
		assert.Equal(t, "desktop", cfg.Name)
		assert.Equal(t, "txt", cfg.Extension)
		assert.Equal(t, LevelDebug, cfg.Level)
		assert.Equal(t, LevelDebug, logger.Level())
		assert.Equal(t, int64(10*1024*1024), cfg.MaxSizeBytes)
		assert.Equal(t, int64(3), cfg.MaxFiles)
		assert.True(t, cfg.EnableConsole)
		assert.Equal(t, "stderr", cfg.ConsoleTarget)
	})

	t.Run("builder error accumulation", func(t *testing.T) {
		logger, err := NewBuilder().
			LevelString("invalid-level-string").
			Directory("/some/dir").
			Build()

		require.Error(t, err, "Build should fail with an invalid level string")
		assert.Contains(t, err.Error(), "invalid level string")
		assert.Nil(t, logger)
	})

	t.Run("validation error", func(t *testing.T) {
		logger, err := NewBuilder().
			Directory(t.TempDir()).
			MaxFiles(0).
			Build()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_files")
		assert.Nil(t, logger)
	})

	t.Run("config seeds the builder", func(t *testing.T) {
		base := DefaultConfig()
		base.Level = LevelWarn
		base.Name = "seeded"

		logger, err := NewBuilder().
			Config(base).
			Storage(NewMemoryStorage()).
			MaxSizeBytes(512).
			Build()
		require.NoError(t, err)

		cfg := logger.GetConfig()
		assert.Equal(t, LevelWarn, cfg.Level)
		assert.Equal(t, "seeded", cfg.Name)
		assert.Equal(t, int64(512), cfg.MaxSizeBytes)

		base.Name = "mutated"
		assert.Equal(t, "seeded", logger.GetConfig().Name, "seed is copied, not shared")
	})

	t.Run("custom storage receives files", func(t *testing.T) {
		storage := NewMemoryStorage()
		logger, err := NewBuilder().Storage(storage).Build()
		require.NoError(t, err)

		logger.Info("into memory")
		assert.Equal(t, []string{logger.Stats().ActiveFile}, storage.Names())
	})
}
