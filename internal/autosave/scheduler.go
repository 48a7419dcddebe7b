// Package autosave runs the periodic snapshot loop that keeps autosave.json
// close to the in-memory state.
package autosave

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultStopTimeout bounds how long Stop waits for an in-flight cycle.
	DefaultStopTimeout = 2 * time.Second
	// DefaultIdleRecheck is how often a disabled interval is re-read.
	DefaultIdleRecheck = time.Second
)

// Target is the state owner the scheduler persists.
type Target interface {
	// SaveCurrentState pushes in-memory values to the canonical files.
	SaveCurrentState() bool
	// WriteSnapshot writes the auto-save snapshot.
	WriteSnapshot() bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithStopTimeout overrides DefaultStopTimeout.
func WithStopTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.stopTimeout = d }
}

// WithIdleRecheck overrides DefaultIdleRecheck.
func WithIdleRecheck(d time.Duration) Option {
	return func(s *Scheduler) { s.idleRecheck = d }
}

// Scheduler is a Stopped/Running state machine around one goroutine. The
// interval func is called before every sleep, so a settings change applies
// from the next cycle. A zero or negative interval skips cycles.
type Scheduler struct {
	target      Target
	interval    func() time.Duration
	stopTimeout time.Duration
	idleRecheck time.Duration

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}

	cycles   atomic.Int64
	failures atomic.Int64
}

// New creates a stopped scheduler.
func New(target Target, interval func() time.Duration, opts ...Option) *Scheduler {
	s := &Scheduler{
		target:      target,
		interval:    interval,
		stopTimeout: DefaultStopTimeout,
		idleRecheck: DefaultIdleRecheck,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the loop. Calling Start on a running scheduler does nothing.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(s.stop, s.done)
	slog.Info("autosave: started")
}

// Stop ends the loop and waits up to the stop timeout for an in-flight cycle.
// It reports whether the loop exited in time.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()
	if stop == nil {
		return true
	}

	close(stop)
	select {
	case <-done:
		slog.Info("autosave: stopped", "cycles", s.cycles.Load())
		return true
	case <-time.After(s.stopTimeout):
		slog.Warn("autosave: cycle still running after stop timeout", "timeout", s.stopTimeout)
		return false
	}
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

// Cycles returns the number of completed cycles.
func (s *Scheduler) Cycles() int64 { return s.cycles.Load() }

// Failures returns the number of cycles that failed or panicked.
func (s *Scheduler) Failures() int64 { return s.failures.Load() }

func (s *Scheduler) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		d := s.interval()
		wait := d
		if d <= 0 {
			wait = s.idleRecheck
		}

		timer := time.NewTimer(wait)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
		}

		if d > 0 {
			s.RunOnce()
		}
	}
}

// RunOnce performs one cycle: save current state, then write the snapshot.
// Panics are recovered and counted as failures.
func (s *Scheduler) RunOnce() (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("autosave: cycle panicked", "panic", fmt.Sprint(r))
			s.failures.Add(1)
			ok = false
		}
		s.cycles.Add(1)
	}()

	saved := s.target.SaveCurrentState()
	snap := s.target.WriteSnapshot()
	if !saved || !snap {
		slog.Warn("autosave: cycle incomplete", "state_saved", saved, "snapshot_written", snap)
		s.failures.Add(1)
		return false
	}
	slog.Debug("autosave: cycle complete", "cycle", s.cycles.Load()+1)
	return true
}
