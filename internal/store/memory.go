package store

import (
	"context"
	"sync"
	"time"
)

type memKey struct{ session, key string }

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[memKey]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[memKey]Entry{}}
}

func (m *MemoryStore) Get(_ context.Context, session, key string) (Entry, bool, error) {
	if err := validateKey(session, key); err != nil {
		return Entry{}, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.data[memKey{session, key}]
	if !ok {
		return Entry{}, false, nil
	}
	e.Value = append([]byte(nil), e.Value...)
	return e, true, nil
}

func (m *MemoryStore) Put(_ context.Context, session, key string, value []byte, at time.Time) ([]byte, error) {
	if err := validateKey(session, key); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memKey{session, key}
	old := m.data[k].Value
	m.data[k] = Entry{Table: Route(key), Value: append([]byte(nil), value...), UpdatedAt: at}
	return old, nil
}

func (m *MemoryStore) Delete(_ context.Context, session, key string) ([]byte, error) {
	if err := validateKey(session, key); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memKey{session, key}
	old := m.data[k].Value
	delete(m.data, k)
	return old, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
