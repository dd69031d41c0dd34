package main

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/applog/env"
	"github.com/lixenwraith/applog/prefs"
)

// setupDirs isolates the data directory and returns (base, data)
func setupDirs(t *testing.T) (string, string) {
	t.Helper()
	base := t.TempDir()
	data := t.TempDir()
	t.Setenv(env.KeyEnv, env.Production)
	t.Setenv(env.KeyDataDir, data)
	return base, data
}

func readLogs(t *testing.T, data string) string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(data, "logs", "app-*.log"))
	require.NoError(t, err)

	var sb strings.Builder
	for _, f := range files {
		b, err := os.ReadFile(f)
		require.NoError(t, err)
		sb.Write(b)
	}
	return sb.String()
}

func TestRootCmdFlags(t *testing.T) {
	cmd := newRootCmd()
	for name, def := range map[string]string{
		"base":   ".",
		"config": "",
		"addr":   defaultAddr,
		"log":    "[]",
	} {
		f := cmd.Flags().Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, def, f.DefValue, name)
	}
}

func TestRun(t *testing.T) {
	base, data := setupDirs(t)
	require.NoError(t, os.WriteFile(filepath.Join(base, ".env"), []byte("API_URL=http://local\n"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, options{base: base, addr: "127.0.0.1:0"})
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(readLogs(t, data), "application started")
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancel")
	}

	logs := readLogs(t, data)
	assert.Contains(t, logs, "[INFO] logger initialized")
	assert.Contains(t, logs, "[INFO] environment loaded")
	assert.Contains(t, logs, "[INFO] ipc server stopped")
	assert.NotContains(t, logs, "[DEBUG]", "production runs at info level")

	_, err := os.Stat(filepath.Join(data, prefs.FileName))
	assert.NoError(t, err)
}

func TestRunFailures(t *testing.T) {
	t.Run("bad override", func(t *testing.T) {
		base, _ := setupDirs(t)
		err := run(context.Background(), options{base: base, addr: "127.0.0.1:0", logOverrides: []string{"colour=blue"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown config key")
	})

	t.Run("missing config file keeps defaults", func(t *testing.T) {
		base, _ := setupDirs(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := run(ctx, options{base: base, addr: "127.0.0.1:0", configPath: filepath.Join(base, "absent.toml")})
		assert.NoError(t, err)
	})

	t.Run("address in use", func(t *testing.T) {
		base, data := setupDirs(t)
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer ln.Close()

		err = run(context.Background(), options{base: base, addr: ln.Addr().String()})
		require.Error(t, err)
		assert.Contains(t, readLogs(t, data), "[ERROR] failed to listen")
	})
}
