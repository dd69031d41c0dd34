// Package lifecycle coordinates process shutdown: hooks registered by
// components run once, newest first, when a signal arrives or Shutdown is called.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Lifecycle collects shutdown hooks. The zero value is not usable; call New.
type Lifecycle struct {
	mu       sync.Mutex
	hooks    []func() error
	shutdown bool
	done     chan struct{}
	once     sync.Once
	err      error

	notify func(c chan<- os.Signal, sig ...os.Signal)
	stop   func(c chan<- os.Signal)
}

// New creates an empty lifecycle
func New() *Lifecycle {
	return &Lifecycle{
		done:   make(chan struct{}),
		notify: signal.Notify,
		stop:   signal.Stop,
	}
}

// OnShutdown registers fn. Hooks registered after shutdown began run immediately.
func (l *Lifecycle) OnShutdown(fn func() error) {
	if fn == nil {
		return
	}

	l.mu.Lock()
	if !l.shutdown {
		l.hooks = append(l.hooks, fn)
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	_ = runHook(fn)
}

// Shutdown runs every hook once in reverse registration order and returns
// their joined errors. Later calls return the same result without rerunning.
func (l *Lifecycle) Shutdown() error {
	l.once.Do(func() {
		l.mu.Lock()
		l.shutdown = true
		hooks := l.hooks
		l.hooks = nil
		l.mu.Unlock()

		var errs []error
		for i := len(hooks) - 1; i >= 0; i-- {
			if err := runHook(hooks[i]); err != nil {
				errs = append(errs, err)
			}
		}
		l.err = errors.Join(errs...)
		close(l.done)
	})

	<-l.done
	return l.err
}

// Done is closed once all hooks have run
func (l *Lifecycle) Done() <-chan struct{} {
	return l.done
}

// Wait blocks until one of signals arrives, ctx ends, or Shutdown is called
// elsewhere, then shuts down. Without signals, SIGINT and SIGTERM are used.
func (l *Lifecycle) Wait(ctx context.Context, signals ...os.Signal) error {
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}

	sigCh := make(chan os.Signal, 1)
	l.notify(sigCh, signals...)
	defer l.stop(sigCh)

	select {
	case <-sigCh:
	case <-ctx.Done():
	case <-l.done:
	}

	return l.Shutdown()
}

// runHook converts a panicking hook into an error
func runHook(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lifecycle: shutdown hook panicked: %v", r)
		}
	}()
	return fn()
}
