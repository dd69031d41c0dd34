// Package prefs persists user preferences as a JSON document.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/creasty/defaults"

	"github.com/lixenwraith/applog"
)

// FileName is the preferences document inside the data directory
const FileName = "preferences.json"

// ErrInvalid marks a rejected change: bad JSON, a bad key or an out-of-range value
var ErrInvalid = errors.New("prefs: invalid preferences")

type Notifications struct {
	Enabled bool `json:"enabled" default:"true"`
	Updates bool `json:"updates" default:"true"`
	Sounds  bool `json:"sounds" default:"true"`
}

type Updates struct {
	CheckAutomatically    bool `json:"checkAutomatically" default:"true"`
	DownloadAutomatically bool `json:"downloadAutomatically" default:"false"`
}

type Window struct {
	StartMaximized bool `json:"startMaximized" default:"false"`
	RememberSize   bool `json:"rememberSize" default:"true"`
	Width          int  `json:"width" default:"1024"`
	Height         int  `json:"height" default:"768"`
}

// Preferences is the full user preference document
type Preferences struct {
	Theme            string           `json:"theme" default:"system"` // light, dark or system
	Language         string           `json:"language" default:"zh-TW"`
	Notifications    Notifications    `json:"notifications"`
	Updates          Updates          `json:"updates"`
	Window           Window           `json:"window"`
	RecentFiles      []string         `json:"recentFiles" default:"[]"`
	CustomWorkspaces []map[string]any `json:"customWorkspaces" default:"[]"`
}

// Defaults returns the preference document of a fresh installation
func Defaults() Preferences {
	var p Preferences
	if err := defaults.Set(&p); err != nil {
		// Tags are static, a failure here is a programming error
		panic(fmt.Sprintf("prefs: invalid default tags: %v", err))
	}
	return p
}

// Validate checks value ranges
func (p Preferences) Validate() error {
	switch p.Theme {
	case "light", "dark", "system":
	default:
		return fmt.Errorf("%w: theme '%s' (use light, dark or system)", ErrInvalid, p.Theme)
	}
	if strings.TrimSpace(p.Language) == "" {
		return fmt.Errorf("%w: language cannot be empty", ErrInvalid)
	}
	if p.Window.Width <= 0 || p.Window.Height <= 0 {
		return fmt.Errorf("%w: window size must be positive: %dx%d", ErrInvalid, p.Window.Width, p.Window.Height)
	}
	return nil
}

// clone deep-copies through JSON; the document holds only JSON-compatible values
func (p Preferences) clone() Preferences {
	data, err := json.Marshal(p)
	if err != nil {
		return p
	}
	out := Defaults()
	if err := json.Unmarshal(data, &out); err != nil {
		return p
	}
	return out
}

// Store owns the preferences file. All methods are safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	path   string
	prefs  Preferences
	logger *applog.Logger
}

// Open loads preferences from dir, creating the directory when needed.
// A missing file is created with defaults. An unreadable or invalid file is
// left untouched and the store starts from defaults.
func Open(dir string, logger *applog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("prefs: failed to create directory '%s': %w", dir, err)
	}

	s := &Store{
		path:   filepath.Join(dir, FileName),
		prefs:  Defaults(),
		logger: logger,
	}

	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := s.save(s.prefs); err != nil {
			s.log(applog.LevelError, "failed to write default preferences", err)
		}
	case err != nil:
		s.log(applog.LevelWarn, "failed to read preferences, using defaults", err)
	default:
		loaded, err := decode(data)
		if err != nil {
			s.log(applog.LevelWarn, "preferences file is invalid, using defaults", s.path, err)
			break
		}
		s.prefs = loaded
		s.log(applog.LevelInfo, "preferences loaded", s.path)
	}

	return s, nil
}

// decode overlays data on the defaults, so keys absent from the file keep their default
func decode(data []byte) (Preferences, error) {
	p := Defaults()
	if err := json.Unmarshal(data, &p); err != nil {
		return Preferences{}, err
	}
	if err := p.Validate(); err != nil {
		return Preferences{}, err
	}
	return p, nil
}

// Path returns the location of the preferences file
func (s *Store) Path() string {
	return s.path
}

// Get returns a copy of the current preferences
func (s *Store) Get() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.clone()
}

// Value returns the value at a dotted JSON path, e.g. "notifications.enabled"
func (s *Store) Value(key string) (any, bool) {
	s.mu.RLock()
	data, err := json.Marshal(s.prefs)
	s.mu.RUnlock()
	if err != nil {
		return nil, false
	}

	var cur any
	if err := json.Unmarshal(data, &cur); err != nil {
		return nil, false
	}
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// Update applies fn to a copy, validates it and persists it.
// On any error the stored preferences are unchanged.
func (s *Store) Update(fn func(*Preferences)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.prefs.clone()
	fn(&next)
	return s.commit(next)
}

// Merge overlays a JSON object onto the current preferences.
// Nested objects merge field by field; arrays and scalars are replaced.
func (s *Store) Merge(data []byte) error {
	var patch map[string]any
	if err := json.Unmarshal(data, &patch); err != nil {
		return fmt.Errorf("%w: patch: %v", ErrInvalid, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := toMap(s.prefs)
	if err != nil {
		return err
	}
	next, err := fromMap(mergeMaps(cur, patch))
	if err != nil {
		return fmt.Errorf("%w: patch: %v", ErrInvalid, err)
	}
	return s.commit(next)
}

// mergeMaps writes patch into dst. Only objects on both sides recurse.
func mergeMaps(dst, patch map[string]any) map[string]any {
	for k, v := range patch {
		pv, pok := v.(map[string]any)
		dv, dok := dst[k].(map[string]any)
		if pok && dok {
			dst[k] = mergeMaps(dv, pv)
			continue
		}
		dst[k] = v
	}
	return dst
}

func toMap(p Preferences) (map[string]any, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("prefs: encode: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("prefs: decode: %w", err)
	}
	return m, nil
}

// fromMap decodes m over fresh defaults so no slice or map is shared with
// the previous document
func fromMap(m map[string]any) (Preferences, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return Preferences{}, err
	}
	p := Defaults()
	if err := json.Unmarshal(data, &p); err != nil {
		return Preferences{}, err
	}
	return p, nil
}

// Set assigns one value at a dotted JSON path
func (s *Store) Set(key string, value any) error {
	parts := strings.Split(key, ".")
	for _, p := range parts {
		if p == "" {
			return fmt.Errorf("%w: key '%s'", ErrInvalid, key)
		}
	}

	var patch any = value
	for i := len(parts) - 1; i >= 0; i-- {
		patch = map[string]any{parts[i]: patch}
	}

	data, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("%w: cannot encode value for '%s': %v", ErrInvalid, key, err)
	}
	return s.Merge(data)
}

// Delete restores the value at a dotted JSON path to its default
func (s *Store) Delete(key string) error {
	def, err := toMap(Defaults())
	if err != nil {
		return err
	}

	var cur any = def
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: key '%s'", ErrInvalid, key)
		}
		if cur, ok = m[part]; !ok {
			return fmt.Errorf("%w: key '%s'", ErrInvalid, key)
		}
	}
	return s.Set(key, cur)
}

// Reset restores and persists the defaults
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(Defaults())
}

// commit validates, saves and swaps in next. mu is held.
func (s *Store) commit(next Preferences) error {
	if err := next.Validate(); err != nil {
		return err
	}
	if err := s.save(next); err != nil {
		s.log(applog.LevelError, "failed to save preferences", err)
		return err
	}
	s.prefs = next
	s.log(applog.LevelDebug, "preferences saved", s.path)
	return nil
}

// save writes p to a temp file in the same directory and renames it into place
func (s *Store) save(p Preferences) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("prefs: encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".preferences-*.tmp")
	if err != nil {
		return fmt.Errorf("prefs: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("prefs: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("prefs: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("prefs: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("prefs: replace %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) log(level int64, message string, args ...any) {
	if s.logger != nil {
		s.logger.Log(level, message, args...)
	}
}
