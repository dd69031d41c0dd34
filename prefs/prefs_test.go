package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/applog"
)

func newTestLogger(t *testing.T) (*applog.Logger, *applog.MemoryStorage) {
	t.Helper()
	storage := applog.NewMemoryStorage()
	logger, err := applog.NewBuilder().Storage(storage).LevelString("debug").Build()
	require.NoError(t, err)
	return logger, storage
}

func allLogs(t *testing.T, storage *applog.MemoryStorage) string {
	t.Helper()
	var sb strings.Builder
	for _, name := range storage.Names() {
		data, err := storage.ReadFile(name)
		require.NoError(t, err)
		sb.Write(data)
	}
	return sb.String()
}

func TestDefaults(t *testing.T) {
	p := Defaults()

	assert.Equal(t, "system", p.Theme)
	assert.Equal(t, "zh-TW", p.Language)
	assert.Equal(t, Notifications{Enabled: true, Updates: true, Sounds: true}, p.Notifications)
	assert.True(t, p.Updates.CheckAutomatically)
	assert.False(t, p.Updates.DownloadAutomatically)
	assert.Equal(t, Window{RememberSize: true, Width: 1024, Height: 768}, p.Window)
	assert.NotNil(t, p.RecentFiles)
	assert.Empty(t, p.RecentFiles)
	assert.NotNil(t, p.CustomWorkspaces)
	assert.NoError(t, p.Validate())
}

func TestOpen(t *testing.T) {
	t.Run("creates file with defaults", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "data")
		s, err := Open(dir, nil)
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(dir, FileName))
		require.NoError(t, err)

		var onDisk map[string]any
		require.NoError(t, json.Unmarshal(data, &onDisk))
		assert.Equal(t, "system", onDisk["theme"])
		assert.Equal(t, []any{}, onDisk["recentFiles"])
		assert.Equal(t, Defaults(), s.Get())
	})

	t.Run("loads existing file over defaults", func(t *testing.T) {
		dir := t.TempDir()
		content := `{"theme":"dark","notifications":{"sounds":false},"recentFiles":["a.txt"]}`
		require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644))

		s, err := Open(dir, nil)
		require.NoError(t, err)

		p := s.Get()
		assert.Equal(t, "dark", p.Theme)
		assert.False(t, p.Notifications.Sounds)
		assert.True(t, p.Notifications.Enabled)
		assert.Equal(t, "zh-TW", p.Language)
		assert.Equal(t, []string{"a.txt"}, p.RecentFiles)
	})

	t.Run("corrupt file falls back without overwrite", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, FileName)
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
		logger, storage := newTestLogger(t)

		s, err := Open(dir, logger)
		require.NoError(t, err)
		assert.Equal(t, Defaults(), s.Get())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "{not json", string(data))
		assert.Contains(t, allLogs(t, storage), "[WARN] preferences file is invalid, using defaults")
	})

	t.Run("invalid values fall back", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(`{"theme":"purple"}`), 0644))

		s, err := Open(dir, nil)
		require.NoError(t, err)
		assert.Equal(t, "system", s.Get().Theme)
	})
}

func TestMutations(t *testing.T) {
	open := func(t *testing.T) (*Store, string) {
		dir := t.TempDir()
		s, err := Open(dir, nil)
		require.NoError(t, err)
		return s, dir
	}

	reload := func(t *testing.T, dir string) Preferences {
		s, err := Open(dir, nil)
		require.NoError(t, err)
		return s.Get()
	}

	t.Run("update persists", func(t *testing.T) {
		s, dir := open(t)
		require.NoError(t, s.Update(func(p *Preferences) {
			p.Theme = "light"
			p.RecentFiles = append(p.RecentFiles, "doc.md")
		}))

		p := reload(t, dir)
		assert.Equal(t, "light", p.Theme)
		assert.Equal(t, []string{"doc.md"}, p.RecentFiles)
	})

	t.Run("invalid update is rejected", func(t *testing.T) {
		s, dir := open(t)
		err := s.Update(func(p *Preferences) { p.Window.Width = 0 })
		require.ErrorIs(t, err, ErrInvalid)
		assert.Equal(t, 1024, s.Get().Window.Width)
		assert.Equal(t, 1024, reload(t, dir).Window.Width)
	})

	t.Run("merge overlays nested fields", func(t *testing.T) {
		s, _ := open(t)
		require.NoError(t, s.Merge([]byte(`{"window":{"width":1280},"language":"en"}`)))

		p := s.Get()
		assert.Equal(t, 1280, p.Window.Width)
		assert.Equal(t, 768, p.Window.Height)
		assert.Equal(t, "en", p.Language)
	})

	t.Run("merge replaces arrays", func(t *testing.T) {
		s, dir := open(t)
		require.NoError(t, s.Merge([]byte(`{"customWorkspaces":[{"a":1}],"recentFiles":["one","two"]}`)))
		require.NoError(t, s.Merge([]byte(`{"customWorkspaces":[{"b":2}],"recentFiles":["three"]}`)))

		p := s.Get()
		assert.Equal(t, []map[string]any{{"b": float64(2)}}, p.CustomWorkspaces)
		assert.Equal(t, []string{"three"}, p.RecentFiles)
		assert.Equal(t, p, reload(t, dir))
	})

	t.Run("merge rejects bad json and bad values", func(t *testing.T) {
		s, _ := open(t)
		assert.ErrorIs(t, s.Merge([]byte(`{`)), ErrInvalid)
		assert.ErrorIs(t, s.Merge([]byte(`{"theme":"neon"}`)), ErrInvalid)
		assert.ErrorIs(t, s.Merge([]byte(`[1]`)), ErrInvalid)
		assert.ErrorIs(t, s.Merge([]byte(`{"window":{"width":"wide"}}`)), ErrInvalid)
		assert.Equal(t, "system", s.Get().Theme)
		assert.Equal(t, 1024, s.Get().Window.Width)
	})

	t.Run("set by dotted key", func(t *testing.T) {
		s, dir := open(t)
		require.NoError(t, s.Set("notifications.enabled", false))
		assert.False(t, reload(t, dir).Notifications.Enabled)

		v, ok := s.Value("notifications.enabled")
		require.True(t, ok)
		assert.Equal(t, false, v)

		_, ok = s.Value("notifications.missing")
		assert.False(t, ok)

		assert.ErrorIs(t, s.Set("a..b", 1), ErrInvalid)
	})

	t.Run("delete restores the default at a path", func(t *testing.T) {
		s, dir := open(t)
		require.NoError(t, s.Merge([]byte(`{"theme":"dark","window":{"width":1600,"height":900},"customWorkspaces":[{"a":1}]}`)))

		require.NoError(t, s.Delete("theme"))
		require.NoError(t, s.Delete("window.width"))
		require.NoError(t, s.Delete("customWorkspaces"))

		p := reload(t, dir)
		assert.Equal(t, "system", p.Theme)
		assert.Equal(t, 1024, p.Window.Width)
		assert.Equal(t, 900, p.Window.Height)
		assert.Empty(t, p.CustomWorkspaces)

		assert.ErrorIs(t, s.Delete("window.depth"), ErrInvalid)
		assert.ErrorIs(t, s.Delete("theme.color"), ErrInvalid)
	})

	t.Run("reset restores defaults", func(t *testing.T) {
		s, dir := open(t)
		require.NoError(t, s.Merge([]byte(`{"theme":"dark"}`)))
		require.NoError(t, s.Reset())
		assert.Equal(t, Defaults(), reload(t, dir))
	})

	t.Run("get returns a copy", func(t *testing.T) {
		s, _ := open(t)
		require.NoError(t, s.Merge([]byte(`{"recentFiles":["x"]}`)))

		p := s.Get()
		p.RecentFiles[0] = "mutated"
		assert.Equal(t, []string{"x"}, s.Get().RecentFiles)
	})

	t.Run("no temp files remain", func(t *testing.T) {
		s, dir := open(t)
		require.NoError(t, s.Merge([]byte(`{"theme":"dark"}`)))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, FileName, entries[0].Name())
	})
}
