package applog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/applog/lifecycle"
)

// logFiles returns the matching log files in dir
func logFiles(t *testing.T, dir string) []string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, "app-*.log"))
	require.NoError(t, err)
	return files
}

func TestFullLifecycle(t *testing.T) {
	tmpDir := t.TempDir()

	logger, err := NewBuilder().
		Directory(tmpDir).
		LevelString("debug").
		MaxSizeBytes(1024).
		MaxFiles(3).
		Build()
	require.NoError(t, err)
	logger.fallback = io.Discard

	lc := lifecycle.New()
	logger.Init(lc)
	logger.Init(lc)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warning message")
	logger.Error("error message")
	logger.Info("structured", map[string]any{"user_id": 123, "action": "login", "success": true})

	require.NoError(t, logger.ApplyOverride("level=warn", "max_files=2"))
	logger.Info("filtered after override")

	for i := 0; i < 100; i++ {
		logger.Warn("filler", i, strings.Repeat("y", 40))
	}

	require.NoError(t, lc.Shutdown())
	assert.Nil(t, logger.file, "shutdown closes the handle")

	files := logFiles(t, tmpDir)
	assert.Len(t, files, 2)

	var all strings.Builder
	for _, f := range files {
		data, err := os.ReadFile(f)
		require.NoError(t, err)
		all.Write(data)
	}
	assert.NotContains(t, all.String(), "filtered after override")
	assert.Contains(t, all.String(), "[WARN] filler 99")

	stats := logger.Stats()
	assert.Greater(t, stats.Rotations, uint64(0))
	assert.Greater(t, stats.Deletions, uint64(0))
	assert.Zero(t, stats.RecordsDropped)
}

func TestConcurrentRotation(t *testing.T) {
	tmpDir := t.TempDir()
	logger, err := NewBuilder().Directory(tmpDir).MaxSizeBytes(2048).MaxFiles(4).Build()
	require.NoError(t, err)
	logger.fallback = io.Discard
	defer logger.Close()

	const writers, perWriter = 10, 100
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				logger.Info(fmt.Sprintf("writer %d", w), i)
			}
		}(w)
	}
	wg.Wait()
	require.NoError(t, logger.Close())

	files := logFiles(t, tmpDir)
	assert.LessOrEqual(t, len(files), 4)

	for _, f := range files {
		data, err := os.ReadFile(f)
		require.NoError(t, err)
		for _, line := range strings.Split(strings.TrimSuffix(string(data), "\n"), "\n") {
			assert.True(t, strings.HasPrefix(line, "["), "interleaved line %q", line)
			assert.Contains(t, line, "] [INFO] writer ")
		}
	}

	stats := logger.Stats()
	assert.Equal(t, uint64(writers*perWriter), stats.RecordsWritten)
	assert.Zero(t, stats.RecordsDropped)
	assert.Greater(t, stats.Rotations, uint64(3))
}

func TestErrorRecovery(t *testing.T) {
	tmpDir := t.TempDir()
	blocker := filepath.Join(tmpDir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	logger := NewLogger()
	logger.fallback = io.Discard

	cfg := DefaultConfig()
	cfg.Directory = filepath.Join(blocker, "logs")
	err := logger.ApplyConfig(cfg)
	require.Error(t, err, "directory under a regular file cannot be created")

	// A rejected config leaves the logger as it was
	assert.NotEqual(t, cfg.Directory, logger.GetConfig().Directory)

	cfg.Directory = filepath.Join(tmpDir, "logs")
	require.NoError(t, logger.ApplyConfig(cfg))

	logger.Info("recovered")
	require.NoError(t, logger.Close())

	files := logFiles(t, cfg.Directory)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "recovered")
}
