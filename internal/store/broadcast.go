package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joelkehle/feasibility-study/internal/logger"
)

// Change describes one write. A nil NewValue means the key was removed; a nil
// OldValue means it did not exist before.
type Change struct {
	Origin   string  `json:"origin"`
	Session  string  `json:"session"`
	Key      string  `json:"key"`
	NewValue *string `json:"newValue"`
	OldValue *string `json:"oldValue"`
}

func newChange(origin, session, key string, newValue, oldValue []byte, removed bool) Change {
	c := Change{Origin: origin, Session: session, Key: key}
	if !removed {
		s := string(newValue)
		c.NewValue = &s
	}
	if oldValue != nil {
		s := string(oldValue)
		c.OldValue = &s
	}
	return c
}

type Broadcaster interface {
	Publish(ctx context.Context, c Change) error
	// Subscribe delivers changes to fn until ctx is done.
	Subscribe(ctx context.Context, fn func(Change)) error
	Close() error
}

// LocalBroadcaster fans changes out to subscribers in the same process.
type LocalBroadcaster struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(Change)
}

func NewLocalBroadcaster() *LocalBroadcaster {
	return &LocalBroadcaster{subs: map[int]func(Change){}}
}

func (b *LocalBroadcaster) Publish(_ context.Context, c Change) error {
	b.mu.RLock()
	fns := make([]func(Change), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(c)
	}
	return nil
}

func (b *LocalBroadcaster) Subscribe(ctx context.Context, fn func(Change)) error {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()
	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}()
	return nil
}

func (b *LocalBroadcaster) Close() error {
	b.mu.Lock()
	b.subs = map[int]func(Change){}
	b.mu.Unlock()
	return nil
}

// RedisBroadcaster publishes changes on a Redis channel so every process
// sharing a backend sees them.
type RedisBroadcaster struct {
	log     *logger.Logger
	rdb     *redis.Client
	channel string
}

func NewRedisBroadcaster(addr, channel string, log *logger.Logger) (*RedisBroadcaster, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	if strings.TrimSpace(channel) == "" {
		channel = "feasibility-answers"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisBroadcaster{log: log.With("service", "RedisBroadcaster"), rdb: rdb, channel: channel}, nil
}

func encodeChange(c Change) ([]byte, error) {
	return json.Marshal(c)
}

func decodeChange(payload string) (Change, error) {
	var c Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return Change{}, err
	}
	if c.Session == "" || c.Key == "" {
		return Change{}, fmt.Errorf("change without session or key")
	}
	return c, nil
}

func (b *RedisBroadcaster) Publish(ctx context.Context, c Change) error {
	raw, err := encodeChange(c)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *RedisBroadcaster) Subscribe(ctx context.Context, fn func(Change)) error {
	sub := b.rdb.Subscribe(ctx, b.channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				c, err := decodeChange(m.Payload)
				if err != nil {
					b.log.Warn("bad change payload", "error", err)
					continue
				}
				fn(c)
			}
		}
	}()
	return nil
}

func (b *RedisBroadcaster) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
