package applog

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/lixenwraith/config"
)

// configPrefix is the key namespace used inside TOML files, e.g. [applog]
const configPrefix = "applog."

// Config holds all logger configuration values
type Config struct {
	// Basic settings
	Level     int64  `toml:"level"`
	Name      string `toml:"name"` // Base name for log files
	Directory string `toml:"directory"`
	Extension string `toml:"extension"`

	// Formatting
	TimestampFormat string `toml:"timestamp_format"`

	// Rotation and retention
	MaxSizeBytes int64 `toml:"max_size_bytes"` // Rotate once the active file reaches this size
	MaxFiles     int64 `toml:"max_files"`      // Files kept after cleanup, active file included

	// Console mirroring
	EnableConsole bool   `toml:"enable_console"` // Mirror every persisted line
	ConsoleTarget string `toml:"console_target"` // "stdout" or "stderr"

	// Internal error handling
	InternalErrorsToStderr bool `toml:"internal_errors_to_stderr"`
}

// defaultConfig is the single source for all configurable default values
var defaultConfig = Config{
	Level:     LevelInfo,
	Name:      "app",
	Directory: "./logs",
	Extension: "log",

	TimestampFormat: defaultTimestampFormat,

	MaxSizeBytes: defaultMaxSizeBytes,
	MaxFiles:     defaultMaxFiles,

	EnableConsole: false,
	ConsoleTarget: "stdout",

	InternalErrorsToStderr: true,
}

// DefaultConfig returns a copy of the default configuration
func DefaultConfig() *Config {
	copiedConfig := defaultConfig
	return &copiedConfig
}

// ConfigProvider supplies the environment-derived logger settings
type ConfigProvider interface {
	IsDevelopment() bool
	BaseStorageDirectory() string
}

// ConfigFromProvider derives a configuration from the host environment.
// Development selects DEBUG and console mirroring, anything else INFO without mirroring.
// Logs are placed in a "logs" subdirectory of the base storage directory.
func ConfigFromProvider(p ConfigProvider) *Config {
	cfg := DefaultConfig()
	if p == nil {
		return cfg
	}

	if p.IsDevelopment() {
		cfg.Level = LevelDebug
		cfg.EnableConsole = true
	} else {
		cfg.Level = LevelInfo
		cfg.EnableConsole = false
	}

	if base := p.BaseStorageDirectory(); base != "" {
		cfg.Directory = filepath.Join(base, "logs")
	}
	return cfg
}

// NewConfigFromFile loads configuration from a TOML file and returns a validated Config
func NewConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.LoadFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overlays values found in a TOML file onto the receiver.
// Keys absent from the file keep their current value. A missing file is not an error.
func (c *Config) LoadFile(path string) error {
	loader := config.New()

	if err := loader.RegisterStruct(configPrefix, *c); err != nil {
		return fmt.Errorf("failed to register config struct: %w", err)
	}

	if err := loader.Load(path, nil); err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	next := c.Clone()
	if err := extractConfig(loader, configPrefix, next); err != nil {
		return fmt.Errorf("failed to extract config values: %w", err)
	}

	if err := next.Validate(); err != nil {
		return err
	}

	*c = *next
	return nil
}

// NewConfigFromDefaults creates a Config with default values and applies overrides
func NewConfigFromDefaults(overrides map[string]any) (*Config, error) {
	cfg := DefaultConfig()

	if err := applyOverrides(cfg, overrides); err != nil {
		return nil, fmt.Errorf("failed to apply overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// extractConfig extracts values from lixenwraith/config into our Config struct
func extractConfig(loader *config.Config, prefix string, cfg *Config) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldValue := v.Field(i)

		tomlTag := field.Tag.Get("toml")
		if tomlTag == "" {
			continue
		}

		val, found := loader.Get(prefix + tomlTag)
		if !found {
			continue
		}

		if err := setFieldValue(fieldValue, val); err != nil {
			return fmt.Errorf("failed to set field %s: %w", field.Name, err)
		}
	}

	return nil
}

// applyOverrides applies a map of overrides to the Config struct
func applyOverrides(cfg *Config, overrides map[string]any) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()

	fieldMap := make(map[string]reflect.Value)
	for i := 0; i < t.NumField(); i++ {
		tomlTag := t.Field(i).Tag.Get("toml")
		if tomlTag != "" {
			fieldMap[tomlTag] = v.Field(i)
		}
	}

	for key, value := range overrides {
		fieldValue, exists := fieldMap[key]
		if !exists {
			return fmt.Errorf("unknown config key: %s", key)
		}

		if err := setFieldValue(fieldValue, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}

	return nil
}

// setFieldValue sets a reflect.Value with proper type conversion
func setFieldValue(field reflect.Value, value any) error {
	switch field.Kind() {
	case reflect.String:
		strVal, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		field.SetString(strVal)

	case reflect.Int64:
		switch v := value.(type) {
		case int64:
			field.SetInt(v)
		case int:
			field.SetInt(int64(v))
		case string:
			// Level may be written by name in files and override maps
			lvl, err := ParseLevel(v)
			if err != nil {
				return err
			}
			field.SetInt(lvl)
		default:
			return fmt.Errorf("expected int64, got %T", value)
		}

	case reflect.Bool:
		boolVal, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
		field.SetBool(boolVal)

	default:
		return fmt.Errorf("unsupported field type: %v", field.Kind())
	}

	return nil
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmtErrorf("log name cannot be empty")
	}

	if strings.ContainsAny(c.Name, `/\`) {
		return fmtErrorf("log name cannot contain path separators: %s", c.Name)
	}

	if strings.TrimSpace(c.Directory) == "" {
		return fmtErrorf("log directory cannot be empty")
	}

	if strings.HasPrefix(c.Extension, ".") {
		return fmtErrorf("extension should not start with dot: %s", c.Extension)
	}

	if strings.TrimSpace(c.TimestampFormat) == "" {
		return fmtErrorf("timestamp_format cannot be empty")
	}

	if c.ConsoleTarget != "stdout" && c.ConsoleTarget != "stderr" {
		return fmtErrorf("invalid console_target: '%s' (use stdout or stderr)", c.ConsoleTarget)
	}

	if !isKnownLevel(c.Level) {
		return fmtErrorf("invalid level: %d", c.Level)
	}

	if c.MaxSizeBytes <= 0 {
		return fmtErrorf("max_size_bytes must be positive: %d", c.MaxSizeBytes)
	}

	if c.MaxFiles < 1 {
		return fmtErrorf("max_files must be at least 1: %d", c.MaxFiles)
	}

	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	copiedConfig := *c
	return &copiedConfig
}
