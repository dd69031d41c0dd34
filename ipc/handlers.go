package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/lixenwraith/applog"
	"github.com/lixenwraith/applog/prefs"
)

// ExposedEnvKeys are the environment keys a renderer may read through env:get
var ExposedEnvKeys = []string{
	"APP_NAME",
	"APP_VERSION",
	"APP_DESCRIPTION",
	"API_URL",
	"DEFAULT_LOCALE",
	"DEFAULT_THEME",
	"FEATURE_EXPERIMENTAL",
}

// EnvReader is the part of env.Environment the handlers need
type EnvReader interface {
	Get(key, def string) string
}

// PreferenceStore is the part of prefs.Store the handlers need
type PreferenceStore interface {
	Get() prefs.Preferences
	Value(key string) (any, bool)
	Set(key string, value any) error
	Merge(data []byte) error
	Reset() error
}

type prefsGetRequest struct {
	Key          string `json:"key"`
	DefaultValue any    `json:"defaultValue"`
}

type prefsSetRequest struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// RegisterDefaults installs the application handlers. Window, update and
// menu channels stay whitelisted without a handler.
func RegisterDefaults(r *Router, environment EnvReader, store PreferenceStore) error {
	handlers := map[string]Handler{
		"app:hello":   handleHello,
		"app:message": r.handleMessage,
		"env:get":     r.envGet(environment),
	}
	if store != nil {
		handlers["preferences:get"] = prefsGet(store)
		handlers["preferences:set"] = prefsSet(store)
		handlers["preferences:reset"] = prefsReset(store)
	}

	var errs []error
	for ch, h := range handlers {
		errs = append(errs, r.Handle(ch, h))
	}
	return errors.Join(errs...)
}

func handleHello(context.Context, json.RawMessage) (any, error) {
	return "hello from the main process", nil
}

func (r *Router) handleMessage(_ context.Context, payload json.RawMessage) (any, error) {
	var msg string
	if err := decode(payload, &msg); err != nil {
		return nil, err
	}
	r.log(applog.LevelInfo, "message from renderer", msg)
	return fmt.Sprintf("main process received your message: %q", msg), nil
}

func (r *Router) envGet(environment EnvReader) Handler {
	return func(_ context.Context, payload json.RawMessage) (any, error) {
		var key string
		if err := decode(payload, &key); err != nil {
			return nil, err
		}
		if environment == nil || !slices.Contains(ExposedEnvKeys, key) {
			r.log(applog.LevelWarn, "rejected read of unexposed environment key", key)
			return "", nil
		}
		return environment.Get(key, ""), nil
	}
}

func prefsGet(store PreferenceStore) Handler {
	return func(_ context.Context, payload json.RawMessage) (any, error) {
		var req prefsGetRequest
		if len(payload) > 0 {
			if err := decode(payload, &req); err != nil {
				return nil, err
			}
		}
		if req.Key == "" {
			return store.Get(), nil
		}
		if v, ok := store.Value(req.Key); ok {
			return v, nil
		}
		return req.DefaultValue, nil
	}
}

// prefsSet assigns value at key, or merges value as a patch when key is empty
func prefsSet(store PreferenceStore) Handler {
	return func(_ context.Context, payload json.RawMessage) (any, error) {
		var req prefsSetRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		if len(req.Value) == 0 {
			return nil, fmt.Errorf("%w: missing value", ErrBadPayload)
		}

		var err error
		if req.Key == "" {
			err = store.Merge(req.Value)
		} else {
			var v any
			if err := json.Unmarshal(req.Value, &v); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
			}
			err = store.Set(req.Key, v)
		}
		if err != nil {
			return nil, prefsError(err)
		}
		return true, nil
	}
}

func prefsReset(store PreferenceStore) Handler {
	return func(context.Context, json.RawMessage) (any, error) {
		if err := store.Reset(); err != nil {
			return nil, prefsError(err)
		}
		return true, nil
	}
}

func prefsError(err error) error {
	if errors.Is(err, prefs.ErrInvalid) {
		return fmt.Errorf("%w: %w", ErrBadPayload, err)
	}
	return err
}

func decode(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return fmt.Errorf("%w: missing payload", ErrBadPayload)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return nil
}
