package autosave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	at      time.Time
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and fires due timers on the calling goroutine.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	rest := c.timers[:0]
	for _, t := range c.timers {
		switch {
		case t.stopped:
		case !t.at.After(c.now):
			due = append(due, t)
		default:
			rest = append(rest, t)
		}
	}
	c.timers = rest
	c.mu.Unlock()
	for _, t := range due {
		if !t.stopped {
			t.stopped = true
			t.f()
		}
	}
}

type recorder struct {
	mu   sync.Mutex
	runs []string
}

func (r *recorder) save(label string) SaveFunc {
	return func(context.Context) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.runs = append(r.runs, label)
		return nil
	}
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.runs...)
}

func TestScheduleDebouncesToLatest(t *testing.T) {
	clock := newFakeClock()
	s := New(Options{Debounce: 500 * time.Millisecond, Clock: clock}, nil)
	rec := &recorder{}

	require.NoError(t, s.Schedule(rec.save("a")))
	clock.Advance(300 * time.Millisecond)
	require.NoError(t, s.Schedule(rec.save("b")))
	clock.Advance(300 * time.Millisecond)
	assert.Empty(t, rec.got(), "window restarts on every schedule")
	assert.True(t, s.Pending())

	clock.Advance(200 * time.Millisecond)
	assert.Equal(t, []string{"b"}, rec.got())
	assert.False(t, s.Pending())
}

func TestScheduleRespectsThrottle(t *testing.T) {
	clock := newFakeClock()
	s := New(Options{Debounce: 100 * time.Millisecond, Throttle: 2 * time.Second, Clock: clock}, nil)
	rec := &recorder{}

	require.NoError(t, s.Schedule(rec.save("first")))
	clock.Advance(100 * time.Millisecond)
	require.Equal(t, []string{"first"}, rec.got())

	require.NoError(t, s.Schedule(rec.save("second")))
	clock.Advance(500 * time.Millisecond)
	assert.Equal(t, []string{"first"}, rec.got(), "second save waits out the throttle")

	clock.Advance(1500 * time.Millisecond)
	assert.Equal(t, []string{"first", "second"}, rec.got())
}

func TestFlushRunsPendingNow(t *testing.T) {
	clock := newFakeClock()
	s := New(Options{Debounce: time.Minute, Clock: clock}, nil)
	rec := &recorder{}

	require.NoError(t, s.Flush(context.Background()), "nothing pending is fine")
	require.NoError(t, s.Schedule(rec.save("x")))
	require.NoError(t, s.Flush(context.Background()))
	assert.Equal(t, []string{"x"}, rec.got())

	clock.Advance(2 * time.Minute)
	assert.Equal(t, []string{"x"}, rec.got(), "flushed save does not run again")
}

func TestFlushReturnsSaveError(t *testing.T) {
	s := New(Options{Debounce: time.Minute, Clock: newFakeClock()}, nil)
	boom := errors.New("boom")
	require.NoError(t, s.Schedule(func(context.Context) error { return boom }))
	assert.ErrorIs(t, s.Flush(context.Background()), boom)
}

func TestStopFlushesAndRejects(t *testing.T) {
	s := New(Options{Debounce: time.Minute, Clock: newFakeClock()}, nil)
	rec := &recorder{}
	require.NoError(t, s.Schedule(rec.save("last")))
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, []string{"last"}, rec.got())
	assert.ErrorIs(t, s.Schedule(rec.save("late")), ErrStopped)
}

func TestRealClockFires(t *testing.T) {
	s := New(Options{Debounce: 10 * time.Millisecond}, nil)
	done := make(chan struct{})
	require.NoError(t, s.Schedule(func(context.Context) error {
		close(done)
		return nil
	}))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("save never ran")
	}
}
