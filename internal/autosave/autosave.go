// Package autosave coalesces frequent writes into few. A Scheduler holds a
// single pending save; scheduling again replaces it. The pending save runs
// once the debounce window has passed without a new Schedule call, and never
// sooner than the throttle interval after the previous run.
package autosave

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/joelkehle/feasibility-study/internal/logger"
)

// SaveFunc performs one write.
type SaveFunc func(ctx context.Context) error

// ErrStopped is returned by Schedule after Stop.
var ErrStopped = errors.New("autosave scheduler stopped")

// Timer is the part of *time.Timer the scheduler uses.
type Timer interface {
	Stop() bool
}

// Clock lets tests drive time by hand.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// RealClock is the wall clock.
var RealClock Clock = realClock{}

type Options struct {
	Debounce time.Duration
	Throttle time.Duration
	Clock    Clock
	// Timeout bounds a save started by the timer. Zero means no bound.
	Timeout time.Duration
}

type Scheduler struct {
	opts Options
	log  *logger.Logger

	mu      sync.Mutex
	pending SaveFunc
	timer   Timer
	lastRun time.Time
	stopped bool

	// run serializes saves so a Flush never overlaps a timer-driven save.
	run sync.Mutex
}

func New(opts Options, log *logger.Logger) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = RealClock
	}
	if opts.Debounce < 0 {
		opts.Debounce = 0
	}
	if opts.Throttle < 0 {
		opts.Throttle = 0
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{opts: opts, log: log}
}

// Schedule replaces the pending save with fn and restarts the wait.
func (s *Scheduler) Schedule(fn SaveFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	s.pending = fn
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = s.opts.Clock.AfterFunc(s.delayLocked(), s.fire)
	return nil
}

// Pending reports whether a save is waiting.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

func (s *Scheduler) delayLocked() time.Duration {
	d := s.opts.Debounce
	if !s.lastRun.IsZero() && s.opts.Throttle > 0 {
		earliest := s.lastRun.Add(s.opts.Throttle).Sub(s.opts.Clock.Now())
		if earliest > d {
			d = earliest
		}
	}
	return d
}

func (s *Scheduler) take() SaveFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn := s.pending
	s.pending = nil
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	return fn
}

func (s *Scheduler) fire() {
	s.run.Lock()
	defer s.run.Unlock()
	fn := s.take()
	if fn == nil {
		return
	}
	ctx := context.Background()
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}
	if err := s.exec(ctx, fn); err != nil {
		s.log.Warn("autosave failed", "err", err)
	}
}

func (s *Scheduler) exec(ctx context.Context, fn SaveFunc) error {
	err := fn(ctx)
	s.mu.Lock()
	s.lastRun = s.opts.Clock.Now()
	s.mu.Unlock()
	return err
}

// Flush runs the pending save now, if there is one, and returns its error.
func (s *Scheduler) Flush(ctx context.Context) error {
	s.run.Lock()
	defer s.run.Unlock()
	fn := s.take()
	if fn == nil {
		return nil
	}
	return s.exec(ctx, fn)
}

// Stop flushes and refuses further saves.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	return s.Flush(ctx)
}
