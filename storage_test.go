package applog

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirStorage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	s := NewDirStorage(dir)

	require.NoError(t, s.MkdirAll())
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0755))

	f, err := s.OpenAppend("a.log")
	require.NoError(t, err)
	_, err = f.Write([]byte("hello\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(6), f.Size())
	assert.Equal(t, "a.log", f.Name())
	require.NoError(t, f.Sync())
	require.NoError(t, f.Close())

	t.Run("reopen resumes size", func(t *testing.T) {
		f, err := s.OpenAppend("a.log")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, int64(6), f.Size())
	})

	t.Run("list skips directories", func(t *testing.T) {
		files, err := s.List()
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, "a.log", files[0].Name)
		assert.Equal(t, int64(6), files[0].Size)
	})

	t.Run("rename and stat", func(t *testing.T) {
		require.NoError(t, s.Rename("a.log", "b.log"))
		_, err := s.Stat("a.log")
		assert.True(t, errors.Is(err, fs.ErrNotExist))
		info, err := s.Stat("b.log")
		require.NoError(t, err)
		assert.Equal(t, int64(6), info.Size)
	})

	t.Run("remove missing reports not exist", func(t *testing.T) {
		require.NoError(t, s.Remove("b.log"))
		assert.True(t, errors.Is(s.Remove("b.log"), fs.ErrNotExist))
	})
}

func TestMemoryStorage(t *testing.T) {
	t.Run("modification times strictly increase", func(t *testing.T) {
		s := NewMemoryStorage()
		frozen := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		s.clock = func() time.Time { return frozen }

		a, err := s.OpenAppend("a")
		require.NoError(t, err)
		b, err := s.OpenAppend("b")
		require.NoError(t, err)
		_, err = a.Write([]byte("x"))
		require.NoError(t, err)

		ia, _ := s.Stat("a")
		ib, _ := s.Stat("b")
		assert.True(t, ia.ModTime.After(ib.ModTime))
		assert.True(t, ib.ModTime.After(frozen))
		require.NoError(t, b.Close())
	})

	t.Run("handle follows rename", func(t *testing.T) {
		s := NewMemoryStorage()
		f, err := s.OpenAppend("old")
		require.NoError(t, err)
		require.NoError(t, s.Rename("old", "new"))
		_, err = f.Write([]byte("data"))
		require.NoError(t, err)

		data, err := s.ReadFile("new")
		require.NoError(t, err)
		assert.Equal(t, "data", string(data))
		assert.Equal(t, []string{"new"}, s.Names())
	})

	t.Run("closed handle rejects writes", func(t *testing.T) {
		s := NewMemoryStorage()
		f, err := s.OpenAppend("x")
		require.NoError(t, err)
		require.NoError(t, f.Close())
		_, err = f.Write([]byte("late"))
		assert.ErrorIs(t, err, os.ErrClosed)
		assert.ErrorIs(t, f.Close(), os.ErrClosed)
	})

	t.Run("faults are sticky until cleared", func(t *testing.T) {
		s := NewMemoryStorage()
		boom := errors.New("boom")
		s.Fail(OpOpen, boom)

		_, err := s.OpenAppend("x")
		assert.ErrorIs(t, err, boom)
		_, err = s.OpenAppend("x")
		assert.ErrorIs(t, err, boom)

		s.Fail(OpOpen, nil)
		_, err = s.OpenAppend("x")
		assert.NoError(t, err)
	})

	t.Run("missing files", func(t *testing.T) {
		s := NewMemoryStorage()
		_, err := s.Stat("nope")
		assert.ErrorIs(t, err, fs.ErrNotExist)
		assert.ErrorIs(t, s.Remove("nope"), fs.ErrNotExist)
		assert.ErrorIs(t, s.Rename("nope", "other"), fs.ErrNotExist)
		_, err = s.ReadFile("nope")
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})
}
