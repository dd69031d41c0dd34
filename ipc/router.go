// Package ipc carries renderer calls to main-process handlers over
// whitelisted channels.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/lixenwraith/applog"
)

var (
	ErrChannelNotAllowed = errors.New("ipc: channel not allowed")
	ErrNoHandler         = errors.New("ipc: no handler registered")
	ErrBadPayload        = errors.New("ipc: bad payload")
)

// Handler serves one channel. payload is the raw JSON argument, empty when none was sent.
type Handler func(ctx context.Context, payload json.RawMessage) (any, error)

// Router maps whitelisted channels to handlers
type Router struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   *applog.Logger
}

// NewRouter creates an empty router; logger may be nil
func NewRouter(logger *applog.Logger) *Router {
	return &Router{
		handlers: make(map[string]Handler),
		logger:   logger,
	}
}

// Handle registers h for channel, replacing any previous handler
func (r *Router) Handle(channel string, h Handler) error {
	if !IsAllowed(channel) {
		return fmt.Errorf("%w: %s", ErrChannelNotAllowed, channel)
	}
	if h == nil {
		return fmt.Errorf("ipc: nil handler for channel %s", channel)
	}

	r.mu.Lock()
	r.handlers[channel] = h
	r.mu.Unlock()
	return nil
}

// Dispatch calls the handler of channel
func (r *Router) Dispatch(ctx context.Context, channel string, payload json.RawMessage) (any, error) {
	if !IsAllowed(channel) {
		r.log(applog.LevelWarn, "rejected call on unauthorized channel", channel)
		return nil, fmt.Errorf("%w: %s", ErrChannelNotAllowed, channel)
	}

	r.mu.RLock()
	h, ok := r.handlers[channel]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoHandler, channel)
	}

	return h(ctx, payload)
}

// Channels returns the channels that have a handler, sorted
func (r *Router) Channels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.handlers))
	for ch := range r.handlers {
		out = append(out, ch)
	}
	slices.Sort(out)
	return out
}

func (r *Router) log(level int64, message string, args ...any) {
	if r.logger != nil {
		r.logger.Log(level, message, args...)
	}
}
