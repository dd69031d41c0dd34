package lifecycle

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/applog"
)

// Lifecycle is the registrar the logger closes itself through
var _ applog.ShutdownRegistrar = (*Lifecycle)(nil)

func TestShutdownOrder(t *testing.T) {
	lc := New()
	var order []string

	lc.OnShutdown(func() error { order = append(order, "logger"); return nil })
	lc.OnShutdown(func() error { order = append(order, "server"); return nil })
	lc.OnShutdown(nil)

	require.NoError(t, lc.Shutdown())
	assert.Equal(t, []string{"server", "logger"}, order)
}

func TestShutdownOnce(t *testing.T) {
	lc := New()
	var calls atomic.Int32
	lc.OnShutdown(func() error { calls.Add(1); return nil })

	require.NoError(t, lc.Shutdown())
	require.NoError(t, lc.Shutdown())
	assert.Equal(t, int32(1), calls.Load())

	select {
	case <-lc.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestShutdownErrors(t *testing.T) {
	lc := New()
	first := errors.New("first failed")
	ranAfterPanic := false

	lc.OnShutdown(func() error { ranAfterPanic = true; return first })
	lc.OnShutdown(func() error { panic("hook exploded") })

	err := lc.Shutdown()
	require.Error(t, err)
	assert.ErrorIs(t, err, first)
	assert.Contains(t, err.Error(), "hook exploded")
	assert.True(t, ranAfterPanic)
	assert.Equal(t, err, lc.Shutdown())
}

func TestLateHookRunsImmediately(t *testing.T) {
	lc := New()
	require.NoError(t, lc.Shutdown())

	ran := false
	lc.OnShutdown(func() error { ran = true; return nil })
	assert.True(t, ran)
}

func TestWait(t *testing.T) {
	t.Run("context cancel", func(t *testing.T) {
		lc := New()
		var closed atomic.Bool
		lc.OnShutdown(func() error { closed.Store(true); return nil })

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		require.NoError(t, lc.Wait(ctx))
		assert.True(t, closed.Load())
	})

	t.Run("shutdown from elsewhere", func(t *testing.T) {
		lc := New()
		go func() {
			time.Sleep(10 * time.Millisecond)
			_ = lc.Shutdown()
		}()

		require.NoError(t, lc.Wait(context.Background()))
	})

	t.Run("signal", func(t *testing.T) {
		lc := New()
		registered := make(chan chan<- os.Signal, 1)
		var stopped atomic.Bool
		var watched []os.Signal
		lc.notify = func(c chan<- os.Signal, sig ...os.Signal) {
			watched = sig
			registered <- c
		}
		lc.stop = func(chan<- os.Signal) { stopped.Store(true) }

		go func() {
			c := <-registered
			c <- syscall.SIGTERM
		}()

		require.NoError(t, lc.Wait(context.Background()))
		assert.Equal(t, []os.Signal{os.Interrupt, syscall.SIGTERM}, watched)
		assert.True(t, stopped.Load())
	})
}
