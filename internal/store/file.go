package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type fileRecord struct {
	Table     string    `json:"table"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

type fileState struct {
	Sessions map[string]map[string]fileRecord `json:"sessions"`
}

// FileStore keeps records in memory and rewrites a JSON state file after
// every change. The file is replaced atomically.
type FileStore struct {
	inner *MemoryStore
	path  string

	mu             sync.Mutex
	lastPersistErr string
}

func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{inner: NewMemoryStore(), path: path}
	if err := fs.load(); err != nil {
		return nil, fmt.Errorf("load state %s: %w", path, err)
	}
	return fs, nil
}

func (f *FileStore) Get(ctx context.Context, session, key string) (Entry, bool, error) {
	return f.inner.Get(ctx, session, key)
}

func (f *FileStore) Put(ctx context.Context, session, key string, value []byte, at time.Time) ([]byte, error) {
	old, err := f.inner.Put(ctx, session, key, value, at)
	if err != nil {
		return nil, err
	}
	if err := f.persist(); err != nil {
		return nil, unavailable("persist state", err)
	}
	return old, nil
}

func (f *FileStore) Delete(ctx context.Context, session, key string) ([]byte, error) {
	old, err := f.inner.Delete(ctx, session, key)
	if err != nil {
		return nil, err
	}
	if err := f.persist(); err != nil {
		return nil, unavailable("persist state", err)
	}
	return old, nil
}

// Ping reports the last failed write, if any.
func (f *FileStore) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lastPersistErr != "" {
		return &Error{Code: CodeUnavailable, Message: "last write failed: " + f.lastPersistErr, Transient: true}
	}
	return nil
}

func (f *FileStore) Close() error { return nil }

func (f *FileStore) snapshot() fileState {
	f.inner.mu.RLock()
	defer f.inner.mu.RUnlock()
	state := fileState{Sessions: map[string]map[string]fileRecord{}}
	for k, e := range f.inner.data {
		recs := state.Sessions[k.session]
		if recs == nil {
			recs = map[string]fileRecord{}
			state.Sessions[k.session] = recs
		}
		recs[k.key] = fileRecord{Table: e.Table, Value: string(e.Value), UpdatedAt: e.UpdatedAt}
	}
	return state
}

func (f *FileStore) persist() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	blob, err := json.MarshalIndent(f.snapshot(), "", "  ")
	if err != nil {
		f.lastPersistErr = err.Error()
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		f.lastPersistErr = err.Error()
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		f.lastPersistErr = err.Error()
		return err
	}
	if err := os.Rename(tmp, f.path); err != nil {
		f.lastPersistErr = err.Error()
		return err
	}
	f.lastPersistErr = ""
	return nil
}

func (f *FileStore) load() error {
	blob, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var state fileState
	if err := json.Unmarshal(blob, &state); err != nil {
		return err
	}
	f.inner.mu.Lock()
	defer f.inner.mu.Unlock()
	for session, recs := range state.Sessions {
		for key, r := range recs {
			f.inner.data[memKey{session, key}] = Entry{Table: Route(key), Value: []byte(r.Value), UpdatedAt: r.UpdatedAt}
		}
	}
	return nil
}
