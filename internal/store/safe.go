package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joelkehle/feasibility-study/internal/logger"
)

// Safe is the typed front of a Backend. Reads never fail: an unavailable or
// unreadable record yields the fallback and a logged warning. Writes return
// their error after logging it, and every successful write is broadcast.
type Safe struct {
	backend Backend
	bc      Broadcaster
	log     *logger.Logger
	origin  string
	now     func() time.Time

	readyOnce sync.Once
	readyErr  error
}

type SafeOption func(*Safe)

// WithBroadcaster publishes every change on bc.
func WithBroadcaster(bc Broadcaster) SafeOption {
	return func(s *Safe) { s.bc = bc }
}

func WithClock(now func() time.Time) SafeOption {
	return func(s *Safe) { s.now = now }
}

func NewSafe(backend Backend, log *logger.Logger, opts ...SafeOption) *Safe {
	if log == nil {
		log = logger.Nop()
	}
	s := &Safe{backend: backend, log: log, origin: uuid.NewString(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Origin identifies this instance in published changes.
func (s *Safe) Origin() string { return s.origin }

// WhenReady checks the backend once and returns the same result afterwards.
func (s *Safe) WhenReady(ctx context.Context) error {
	s.readyOnce.Do(func() {
		if s.backend == nil {
			s.readyErr = ErrUnavailable
			return
		}
		s.readyErr = s.backend.Ping(ctx)
	})
	return s.readyErr
}

func (s *Safe) read(ctx context.Context, session, key string) ([]byte, bool) {
	if s.backend == nil {
		s.log.Warn("store not configured; using fallback", "key", key)
		return nil, false
	}
	e, ok, err := s.backend.Get(ctx, session, key)
	if err != nil {
		s.log.Warn("unable to read saved data; using fallback", "key", key, "err", err)
		return nil, false
	}
	return e.Value, ok
}

// GetString returns the stored text for key, or fallback.
func (s *Safe) GetString(ctx context.Context, session, key, fallback string) string {
	v, ok := s.read(ctx, session, key)
	if !ok {
		return fallback
	}
	return string(v)
}

// GetJSON decodes the stored value into out and reports whether it did. On a
// miss or an undecodable value out is left untouched, so a caller pre-fills
// it with the fallback.
func (s *Safe) GetJSON(ctx context.Context, session, key string, out any) bool {
	v, ok := s.read(ctx, session, key)
	if !ok || len(v) == 0 {
		return false
	}
	if !json.Valid(v) {
		s.log.Warn("saved data is not JSON; using fallback", "key", key)
		return false
	}
	if err := json.Unmarshal(v, out); err != nil {
		s.log.Warn("saved data has unexpected shape; using fallback", "key", key, "err", err)
		return false
	}
	return true
}

func (s *Safe) SetString(ctx context.Context, session, key, value string) error {
	return s.put(ctx, session, key, []byte(value))
}

func (s *Safe) SetJSON(ctx context.Context, session, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return &Error{Code: CodeEncoding, Message: "encode " + key, Err: err}
	}
	return s.put(ctx, session, key, raw)
}

func (s *Safe) Remove(ctx context.Context, session, key string) error {
	if s.backend == nil {
		return ErrUnavailable
	}
	old, err := s.backend.Delete(ctx, session, key)
	if err != nil {
		s.log.Warn("unable to remove saved data", "key", key, "err", err)
		return err
	}
	s.publish(ctx, newChange(s.origin, session, key, nil, old, true))
	return nil
}

func (s *Safe) put(ctx context.Context, session, key string, value []byte) error {
	if s.backend == nil {
		return ErrUnavailable
	}
	old, err := s.backend.Put(ctx, session, key, value, s.now())
	if err != nil {
		s.log.Warn("unable to save data", "key", key, "err", err)
		return err
	}
	s.publish(ctx, newChange(s.origin, session, key, value, old, false))
	return nil
}

func (s *Safe) publish(ctx context.Context, c Change) {
	if s.bc == nil {
		return
	}
	if err := s.bc.Publish(ctx, c); err != nil {
		s.log.Warn("change broadcast failed", "key", c.Key, "err", err)
	}
}

// Watch calls fn for every change made by another instance until ctx is
// done. Changes this instance published itself are skipped.
func (s *Safe) Watch(ctx context.Context, fn func(Change)) error {
	if s.bc == nil {
		return errors.New("no broadcaster configured")
	}
	return s.bc.Subscribe(ctx, func(c Change) {
		if c.Origin == s.origin {
			return
		}
		fn(c)
	})
}

// Subscribe calls fn for every change, including this instance's own.
func (s *Safe) Subscribe(ctx context.Context, fn func(Change)) error {
	if s.bc == nil {
		return errors.New("no broadcaster configured")
	}
	return s.bc.Subscribe(ctx, fn)
}

func (s *Safe) Close() error {
	var errs []error
	if s.bc != nil {
		errs = append(errs, s.bc.Close())
	}
	if s.backend != nil {
		errs = append(errs, s.backend.Close())
	}
	return errors.Join(errs...)
}
