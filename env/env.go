// Package env resolves the application environment from the process and
// layered dotenv files.
package env

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// KeyEnv selects the environment name; KeyNodeEnv is honoured when unset
	KeyEnv     = "APP_ENV"
	KeyNodeEnv = "NODE_ENV"
	KeyName    = "APP_NAME"
	KeyDataDir = "APP_DATA_DIR"

	Development = "development"
	Production  = "production"

	defaultAppName = "applog"
)

// Environment is a read-only view over process variables overlaid with dotenv values
type Environment struct {
	name   string
	files  []string
	vars   map[string]string
	lookup func(string) (string, bool)
}

// Load reads the dotenv files under basePath in increasing priority:
// .env, .env.<name>, .env.local, .env.<name>.local. Missing files are skipped.
// Values from files override the process environment. Parse failures are
// returned joined, and the Environment is still usable.
func Load(basePath string) (*Environment, error) {
	e := &Environment{
		vars:   make(map[string]string),
		lookup: os.LookupEnv,
	}

	e.name = Development
	if v, ok := firstSet(e.lookup, KeyEnv, KeyNodeEnv); ok {
		e.name = v
	}

	candidates := []string{
		".env",
		".env." + e.name,
		".env.local",
		".env." + e.name + ".local",
	}

	var errs []error
	for _, c := range candidates {
		path := filepath.Join(basePath, c)
		if _, err := os.Stat(path); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, fmt.Errorf("env: stat %s: %w", path, err))
			}
			continue
		}

		values, err := godotenv.Read(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("env: parse %s: %w", path, err))
			continue
		}
		for k, v := range values {
			e.vars[k] = v
		}
		e.files = append(e.files, path)
	}

	return e, errors.Join(errs...)
}

// FromMap builds an Environment over fixed values without consulting the process
func FromMap(values map[string]string) *Environment {
	e := &Environment{
		vars:   make(map[string]string, len(values)),
		lookup: func(string) (string, bool) { return "", false },
	}
	for k, v := range values {
		e.vars[k] = v
	}
	e.name = Development
	e.name = e.Name()
	return e
}

func firstSet(lookup func(string) (string, bool), keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := lookup(k); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// Lookup returns the file value, then the process value
func (e *Environment) Lookup(key string) (string, bool) {
	if v, ok := e.vars[key]; ok {
		return v, true
	}
	return e.lookup(key)
}

// Get returns the value of key, or def when unset or empty
func (e *Environment) Get(key, def string) string {
	if v, ok := e.Lookup(key); ok && v != "" {
		return v
	}
	return def
}

// Int returns the integer value of key, or def when unset or not a number
func (e *Environment) Int(key string, def int) int {
	v, ok := e.Lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

// Bool is true only for "true" in any case; unset keys yield def
func (e *Environment) Bool(key string, def bool) bool {
	v, ok := e.Lookup(key)
	if !ok {
		return def
	}
	return strings.EqualFold(strings.TrimSpace(v), "true")
}

// Name is the environment name. Loaded files may set it through either key.
func (e *Environment) Name() string {
	return e.Get(KeyEnv, e.Get(KeyNodeEnv, e.name))
}

// Files lists the dotenv files that were loaded, in load order
func (e *Environment) Files() []string {
	return append([]string(nil), e.files...)
}

func (e *Environment) IsDevelopment() bool {
	return e.Name() == Development
}

func (e *Environment) IsProduction() bool {
	return e.Name() == Production
}

// BaseStorageDirectory is where the application keeps its data:
// APP_DATA_DIR when set, otherwise <user config dir>/<APP_NAME>, falling back
// to the temp directory when no user config dir is known.
func (e *Environment) BaseStorageDirectory() string {
	if dir := e.Get(KeyDataDir, ""); dir != "" {
		return dir
	}

	name := e.Get(KeyName, defaultAppName)
	if base, err := os.UserConfigDir(); err == nil && base != "" {
		return filepath.Join(base, name)
	}
	return filepath.Join(os.TempDir(), name)
}
