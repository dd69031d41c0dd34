package applog

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"time"
)

// maxRotateAttempts bounds the collision counter of rotated names
const maxRotateAttempts = 1000

// fileName joins a stem and the configured extension
func fileName(stem, ext string) string {
	if ext == "" {
		return stem
	}
	return stem + "." + ext
}

// activeFileName returns "<name>-YYYY-MM-DD.<ext>" for the given UTC date
func activeFileName(cfg *Config, date string) string {
	return fileName(cfg.Name+"-"+date, cfg.Extension)
}

// isLogFile reports whether name belongs to this logger's file set: a daily
// file or a rotated file, optionally carrying a "-N" collision suffix
func isLogFile(cfg *Config, name string) bool {
	stem, ok := strings.CutPrefix(name, cfg.Name+"-")
	if !ok {
		return false
	}
	if cfg.Extension != "" {
		if stem, ok = strings.CutSuffix(stem, "."+cfg.Extension); !ok {
			return false
		}
	}

	if _, err := time.Parse(dailyLayout, stem); err == nil {
		return true
	}
	if len(stem) < len(rotatedLayout) {
		return false
	}
	if _, err := time.Parse(rotatedLayout, stem[:len(rotatedLayout)]); err != nil {
		return false
	}
	suffix := stem[len(rotatedLayout):]
	if suffix == "" {
		return true
	}
	n, ok := strings.CutPrefix(suffix, "-")
	if !ok || n == "" {
		return false
	}
	_, err := strconv.Atoi(n)
	return err == nil && !strings.ContainsAny(n, "+-")
}

// ensureFile makes sure a handle for today's file is open. mu is held.
// A handle opened on an earlier UTC date is closed first.
func (l *Logger) ensureFile(now time.Time) error {
	date := now.UTC().Format(dailyLayout)
	if l.file != nil && l.activeDate == date {
		return nil
	}

	l.closeFile()

	cfg := l.getConfig()
	storage := l.getStorage()
	if err := storage.MkdirAll(); err != nil {
		return fmtErrorf("failed to create log directory '%s': %w", cfg.Directory, err)
	}

	name := activeFileName(cfg, date)
	file, err := storage.OpenAppend(name)
	if err != nil {
		return fmtErrorf("failed to open log file '%s': %w", name, err)
	}

	l.file = file
	l.activeDate = date
	l.activeName.Store(name)
	l.state.CurrentSize.Store(file.Size())
	return nil
}

// closeFile syncs and closes the open handle, reporting failures internally. mu is held.
func (l *Logger) closeFile() {
	if l.file == nil {
		return
	}
	if err := l.file.Sync(); err != nil {
		l.internalLog("failed to sync log file '%s': %v\n", l.file.Name(), err)
	}
	if err := l.file.Close(); err != nil {
		l.internalLog("failed to close log file '%s': %v\n", l.file.Name(), err)
	}
	l.file = nil
	l.activeDate = ""
	l.state.CurrentSize.Store(0)
}

// rotate implements the rename-on-rotate strategy. mu is held and a handle is open.
// On success a fresh daily file is open. On failure the handle may be closed
// and the caller reopens the active file.
func (l *Logger) rotate(now time.Time) error {
	cfg := l.getConfig()
	active := l.file.Name()

	// Close current file before renaming
	l.closeFile()

	target, err := l.rotatedName(cfg, now)
	if err != nil {
		return err
	}

	if err := l.storage.Rename(active, target); err != nil {
		return fmtErrorf("failed to rename log file from '%s' to '%s': %w", active, target, err)
	}
	l.state.TotalRotations.Add(1)

	if err := l.ensureFile(now); err != nil {
		return fmtErrorf("failed to open log file after rotation: %w", err)
	}
	return nil
}

// rotatedName returns "<name>-YYYY-MM-DD_HH-MM-SS.<ext>", adding "-N" when taken
func (l *Logger) rotatedName(cfg *Config, now time.Time) (string, error) {
	stem := cfg.Name + "-" + now.UTC().Format(rotatedLayout)

	for n := 0; n < maxRotateAttempts; n++ {
		candidate := fileName(stem, cfg.Extension)
		if n > 0 {
			candidate = fileName(fmt.Sprintf("%s-%d", stem, n), cfg.Extension)
		}

		_, err := l.storage.Stat(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fmtErrorf("failed to check rotated name '%s': %w", candidate, err)
		}
	}

	return "", fmtErrorf("no free rotated name for '%s' after %d attempts", stem, maxRotateAttempts)
}

// sortNewestFirst orders by mtime, then name length, then name, all descending.
// Length first keeps "-10" after "-9" when second-granularity mtimes tie.
func sortNewestFirst(files []FileInfo) {
	sort.SliceStable(files, func(i, j int) bool {
		a, b := files[i], files[j]
		if !a.ModTime.Equal(b.ModTime) {
			return a.ModTime.After(b.ModTime)
		}
		if len(a.Name) != len(b.Name) {
			return len(a.Name) > len(b.Name)
		}
		return a.Name > b.Name
	})
}

// cleanup deletes the oldest matching files until at most MaxFiles remain.
// The active file always counts as kept. mu is held and a handle is open.
func (l *Logger) cleanup() {
	cfg := l.getConfig()

	entries, err := l.storage.List()
	if err != nil {
		l.internalLog("failed to list log directory '%s' for cleanup: %v\n", cfg.Directory, err)
		return
	}

	var logs []FileInfo
	for _, entry := range entries {
		if isLogFile(cfg, entry.Name) {
			logs = append(logs, entry)
		}
	}

	if int64(len(logs)) <= cfg.MaxFiles {
		return
	}

	sortNewestFirst(logs)

	active := l.file.Name()
	keep := cfg.MaxFiles - 1
	for _, log := range logs {
		if log.Name == active {
			continue
		}
		if keep > 0 {
			keep--
			continue
		}
		if err := l.storage.Remove(log.Name); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				l.internalLog("failed to remove old log file '%s': %v\n", log.Name, err)
			}
			continue
		}
		l.state.TotalDeletions.Add(1)
	}
}
