// Package guard makes sure the kiosk leaves a usable recovery trail however
// the process ends: a snapshot on signals and panics, and no snapshot after a
// graceful close.
package guard

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// DefaultSignalTimeout bounds the work done between a signal and exit.
const DefaultSignalTimeout = 3 * time.Second

// State is the application state the guard snapshots.
type State interface {
	CurrentNumber() int
	Version() string
	SaveCurrentState() bool
	WriteSnapshot() bool
}

// Store is the persistence the guard falls back to and cleans up.
type Store interface {
	WriteMinimalSnapshot(currentNumber int, version string) error
	WriteEmergency(currentNumber int, version string) error
	RemoveSnapshot() error
}

// Stopper stops the auto-save scheduler.
type Stopper interface {
	Stop() bool
}

// Option configures a Guard.
type Option func(*Guard)

// WithExit replaces os.Exit, for tests.
func WithExit(exit func(code int)) Option {
	return func(g *Guard) { g.exit = exit }
}

// WithSignalTimeout overrides DefaultSignalTimeout.
func WithSignalTimeout(d time.Duration) Option {
	return func(g *Guard) { g.timeout = d }
}

// Guard owns the process exit paths.
type Guard struct {
	state     State
	store     Store
	scheduler Stopper
	exit      func(int)
	timeout   time.Duration

	sigCh       chan os.Signal
	installOnce sync.Once
	cleanupOnce sync.Once
	closeOnce   sync.Once
	closed      chan struct{}
}

// New creates a guard. scheduler may be nil.
func New(state State, store Store, scheduler Stopper, opts ...Option) *Guard {
	g := &Guard{
		state:     state,
		store:     store,
		scheduler: scheduler,
		exit:      os.Exit,
		timeout:   DefaultSignalTimeout,
		sigCh:     make(chan os.Signal, 1),
		closed:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Install starts intercepting termination signals until ctx is done or the
// guard is closed.
func (g *Guard) Install(ctx context.Context) {
	g.installOnce.Do(func() {
		signal.Notify(g.sigCh, terminationSignals...)
		go g.watch(ctx)
	})
}

func (g *Guard) watch(ctx context.Context) {
	defer signal.Stop(g.sigCh)
	select {
	case <-ctx.Done():
	case <-g.closed:
	case sig := <-g.sigCh:
		g.HandleSignal(sig)
	}
}

// HandleSignal writes a last snapshot and exits with 128+signal. The snapshot
// is left on disk so the next start recovers from it.
func (g *Guard) HandleSignal(sig os.Signal) {
	slog.Warn("guard: received signal, saving snapshot", "signal", sig.String())
	g.forceSnapshot()
	g.exit(exitCode(sig))
}

// forceSnapshot writes a full snapshot, falling back to a minimal one plus an
// emergency record. It returns after the timeout even if the write hangs.
func (g *Guard) forceSnapshot() {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if g.state.WriteSnapshot() {
			slog.Info("guard: snapshot written")
			return
		}
		current, version := g.state.CurrentNumber(), g.state.Version()
		if err := g.store.WriteMinimalSnapshot(current, version); err != nil {
			slog.Error("guard: minimal snapshot failed", "err", err)
		}
		if err := g.store.WriteEmergency(current, version); err != nil {
			slog.Error("guard: emergency save failed", "err", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(g.timeout):
		slog.Error("guard: snapshot did not finish before timeout", "timeout", g.timeout)
	}
}

// Cleanup removes the auto-save snapshot. It runs at most once.
func (g *Guard) Cleanup() {
	g.cleanupOnce.Do(func() {
		if err := g.store.RemoveSnapshot(); err != nil {
			slog.Error("guard: failed to remove snapshot", "err", err)
			return
		}
		slog.Info("guard: snapshot removed, clean shutdown")
	})
}

// Close is the graceful shutdown: stop the scheduler, save the full state,
// then remove the snapshot. The snapshot stays when the final save fails or
// the scheduler did not stop in time, since a late cycle may still write it.
// Close reports whether the final save succeeded.
func (g *Guard) Close() bool {
	ok := true
	g.closeOnce.Do(func() {
		close(g.closed)
		stopped := true
		if g.scheduler != nil {
			stopped = g.scheduler.Stop()
		}
		ok = g.state.SaveCurrentState()
		if !ok {
			slog.Error("guard: final save failed, keeping snapshot for recovery")
			return
		}
		if !stopped {
			slog.Warn("guard: auto-save still running, keeping snapshot")
			return
		}
		g.Cleanup()
	})
	return ok
}

// RecoverPanic is deferred in main. It snapshots the state before letting
// the panic continue.
func (g *Guard) RecoverPanic() {
	if r := recover(); r != nil {
		slog.Error("guard: unhandled panic, saving snapshot", "panic", fmt.Sprint(r))
		g.forceSnapshot()
		panic(r)
	}
}

func exitCode(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok {
		return 128 + int(s)
	}
	return 1
}
