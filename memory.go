package applog

import (
	"bytes"
	"io/fs"
	"os"
	"sort"
	"sync"
	"time"
)

// Storage operations accepted by MemoryStorage.Fail
const (
	OpMkdir  = "mkdir"
	OpOpen   = "open"
	OpRename = "rename"
	OpRemove = "remove"
	OpStat   = "stat"
	OpList   = "list"
	OpWrite  = "write"
)

type memNode struct {
	data    bytes.Buffer
	modTime time.Time
}

// MemoryStorage is an in-process Storage. Every create or write advances the
// modification time strictly, so ordering by mtime is deterministic.
type MemoryStorage struct {
	mu     sync.Mutex
	files  map[string]*memNode
	last   time.Time
	clock  func() time.Time
	faults map[string]error
}

// NewMemoryStorage returns an empty in-memory storage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		files:  make(map[string]*memNode),
		clock:  time.Now,
		faults: make(map[string]error),
	}
}

// Fail makes every later call of op return err. A nil err clears the fault.
func (m *MemoryStorage) Fail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.faults, op)
		return
	}
	m.faults[op] = err
}

// ReadFile returns a copy of the stored content
func (m *MemoryStorage) ReadFile(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.files[name]
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
	}
	return bytes.Clone(n.data.Bytes()), nil
}

// Names returns stored file names in lexical order
func (m *MemoryStorage) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// tick returns the next modification time, caller holds mu
func (m *MemoryStorage) tick() time.Time {
	t := m.clock()
	if !t.After(m.last) {
		t = m.last.Add(time.Nanosecond)
	}
	m.last = t
	return t
}

func (m *MemoryStorage) fault(op string) error {
	return m.faults[op]
}

func (m *MemoryStorage) MkdirAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fault(OpMkdir)
}

func (m *MemoryStorage) OpenAppend(name string) (File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault(OpOpen); err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	n, ok := m.files[name]
	if !ok {
		n = &memNode{modTime: m.tick()}
		m.files[name] = n
	}
	return &memFile{store: m, node: n, name: name}, nil
}

func (m *MemoryStorage) Rename(oldName, newName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault(OpRename); err != nil {
		return &os.LinkError{Op: "rename", Old: oldName, New: newName, Err: err}
	}
	n, ok := m.files[oldName]
	if !ok {
		return &os.LinkError{Op: "rename", Old: oldName, New: newName, Err: fs.ErrNotExist}
	}
	delete(m.files, oldName)
	m.files[newName] = n
	return nil
}

func (m *MemoryStorage) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault(OpRemove); err != nil {
		return &fs.PathError{Op: "remove", Path: name, Err: err}
	}
	if _, ok := m.files[name]; !ok {
		return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrNotExist}
	}
	delete(m.files, name)
	return nil
}

func (m *MemoryStorage) Stat(name string) (FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault(OpStat); err != nil {
		return FileInfo{}, &fs.PathError{Op: "stat", Path: name, Err: err}
	}
	n, ok := m.files[name]
	if !ok {
		return FileInfo{}, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}
	return FileInfo{Name: name, Size: int64(n.data.Len()), ModTime: n.modTime}, nil
}

func (m *MemoryStorage) List() ([]FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault(OpList); err != nil {
		return nil, err
	}
	files := make([]FileInfo, 0, len(m.files))
	for name, n := range m.files {
		files = append(files, FileInfo{Name: name, Size: int64(n.data.Len()), ModTime: n.modTime})
	}
	return files, nil
}

// memFile keeps writing to its node after a rename or remove, like an open OS file
type memFile struct {
	store  *MemoryStorage
	node   *memNode
	name   string
	closed bool
}

func (f *memFile) Write(p []byte) (int, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if f.closed {
		return 0, os.ErrClosed
	}
	if err := f.store.fault(OpWrite); err != nil {
		return 0, err
	}
	n, _ := f.node.data.Write(p)
	f.node.modTime = f.store.tick()
	return n, nil
}

func (f *memFile) Size() int64 {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return int64(f.node.data.Len())
}

func (f *memFile) Sync() error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if f.closed {
		return os.ErrClosed
	}
	return nil
}

func (f *memFile) Close() error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if f.closed {
		return os.ErrClosed
	}
	f.closed = true
	return nil
}

func (f *memFile) Name() string { return f.name }
