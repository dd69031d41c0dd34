package applog

import (
	"os"
	"path/filepath"
	"time"
)

// FileInfo describes a stored log file
type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// File is an open, append-only log file handle
type File interface {
	Write(p []byte) (int, error)
	Size() int64
	Sync() error
	Close() error
	Name() string
}

// Storage is the backend holding log files. Names are relative to the storage root.
// Missing files are reported with errors matching fs.ErrNotExist.
type Storage interface {
	MkdirAll() error
	OpenAppend(name string) (File, error)
	Rename(oldName, newName string) error
	Remove(name string) error
	Stat(name string) (FileInfo, error)
	List() ([]FileInfo, error)
}

// dirStorage keeps log files in a directory of the OS filesystem
type dirStorage struct {
	dir string
}

// NewDirStorage returns a Storage rooted at dir
func NewDirStorage(dir string) Storage {
	return &dirStorage{dir: dir}
}

func (s *dirStorage) path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *dirStorage) MkdirAll() error {
	return os.MkdirAll(s.dir, dirPerm)
}

func (s *dirStorage) OpenAppend(name string) (File, error) {
	f, err := os.OpenFile(s.path(name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &osFile{f: f, name: name, size: fi.Size()}, nil
}

func (s *dirStorage) Rename(oldName, newName string) error {
	return os.Rename(s.path(oldName), s.path(newName))
}

func (s *dirStorage) Remove(name string) error {
	return os.Remove(s.path(name))
}

func (s *dirStorage) Stat(name string) (FileInfo, error) {
	fi, err := os.Stat(s.path(name))
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{Name: name, Size: fi.Size(), ModTime: fi.ModTime()}, nil
}

// List returns regular files in the directory; subdirectories are skipped
func (s *dirStorage) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, errInfo := entry.Info()
		if errInfo != nil {
			// Removed between ReadDir and Info
			continue
		}
		files = append(files, FileInfo{Name: entry.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	return files, nil
}

// osFile tracks the size of an append-mode file so rotation checks need no stat call
type osFile struct {
	f    *os.File
	name string
	size int64
}

func (o *osFile) Write(p []byte) (int, error) {
	n, err := o.f.Write(p)
	o.size += int64(n)
	return n, err
}

func (o *osFile) Size() int64  { return o.size }
func (o *osFile) Sync() error  { return o.f.Sync() }
func (o *osFile) Close() error { return o.f.Close() }
func (o *osFile) Name() string { return o.name }
