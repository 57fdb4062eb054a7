package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestFileStore(t *testing.T, path string) *FileStore {
	t.Helper()
	f, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	return f
}

func backends(t *testing.T) map[string]Backend {
	out := map[string]Backend{
		"memory": NewMemoryStore(),
		"sqlite": newTestSQLiteStore(t),
		"file":   newTestFileStore(t, filepath.Join(t.TempDir(), "state.json")),
	}
	if dsn := os.Getenv("FEASIBILITY_TEST_DATABASE_URL"); dsn != "" {
		p, err := NewPostgresStore(context.Background(), dsn)
		if err != nil {
			t.Fatalf("new postgres store: %v", err)
		}
		t.Cleanup(func() { p.Close() })
		out["postgres"] = p
	}
	return out
}

func TestBackendContract(t *testing.T) {
	at := time.Date(2026, 2, 17, 10, 0, 0, 0, time.UTC)
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			session := fmt.Sprintf("s-%s-%d", name, time.Now().UnixNano())

			if _, ok, err := b.Get(ctx, session, KeyAnswers); err != nil || ok {
				t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
			}
			old, err := b.Put(ctx, session, KeyAnswers, []byte(`{"a":1}`), at)
			if err != nil || old != nil {
				t.Fatalf("first put: old=%q err=%v", old, err)
			}
			old, err = b.Put(ctx, session, KeyAnswers, []byte(`{"a":2}`), at.Add(time.Minute))
			if err != nil || string(old) != `{"a":1}` {
				t.Fatalf("second put: old=%q err=%v", old, err)
			}
			e, ok, err := b.Get(ctx, session, KeyAnswers)
			if err != nil || !ok {
				t.Fatalf("get: ok=%v err=%v", ok, err)
			}
			if string(e.Value) != `{"a":2}` || e.Table != TableSurveys || !e.UpdatedAt.Equal(at.Add(time.Minute)) {
				t.Fatalf("unexpected entry %+v", e)
			}

			if _, err := b.Put(ctx, "other", KeyAnswers, []byte("x"), at); err != nil {
				t.Fatalf("put other session: %v", err)
			}
			old, err = b.Delete(ctx, session, KeyAnswers)
			if err != nil || string(old) != `{"a":2}` {
				t.Fatalf("delete: old=%q err=%v", old, err)
			}
			if _, ok, _ := b.Get(ctx, session, KeyAnswers); ok {
				t.Fatal("expected key removed")
			}
			if e, ok, _ := b.Get(ctx, "other", KeyAnswers); !ok || string(e.Value) != "x" {
				t.Fatal("expected other session untouched")
			}

			var verr *Error
			if _, err := b.Put(ctx, "", "k", nil, at); !errors.As(err, &verr) || verr.Code != CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	s1, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()
	if _, err := s1.Put(ctx, "s1", "userName", []byte("Sam"), time.Now()); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := s1.Put(ctx, "s1", "customKey", []byte("v"), time.Now()); err != nil {
		t.Fatalf("put: %v", err)
	}
	s1.Close()

	s2, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	var n int
	if err := s2.db.Get(&n, "SELECT COUNT(*) FROM users WHERE session_id = 's1'"); err != nil || n != 1 {
		t.Fatalf("expected userName in users table, n=%d err=%v", n, err)
	}
	if err := s2.db.Get(&n, "SELECT COUNT(*) FROM kv WHERE key = 'customKey'"); err != nil || n != 1 {
		t.Fatalf("expected customKey in kv table, n=%d err=%v", n, err)
	}
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	at := time.Date(2026, 2, 17, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	f1 := newTestFileStore(t, path)
	if _, err := f1.Put(ctx, "s1", KeyLanguage, []byte("ar"), at); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := f1.Put(ctx, "s1", KeyAnswers, []byte(`{"projectName":"Kiosk"}`), at); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected temp file renamed away, stat err=%v", err)
	}

	f2 := newTestFileStore(t, path)
	e, ok, err := f2.Get(ctx, "s1", KeyAnswers)
	if err != nil || !ok || string(e.Value) != `{"projectName":"Kiosk"}` || e.Table != TableSurveys {
		t.Fatalf("unexpected entry %+v ok=%v err=%v", e, ok, err)
	}
	if !e.UpdatedAt.Equal(at) {
		t.Fatalf("expected updated_at %v, got %v", at, e.UpdatedAt)
	}
	if err := f2.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestFileStoreRejectsCorruptState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFileStore(path); err == nil {
		t.Fatal("expected error for corrupt state file")
	}
}

func TestRoute(t *testing.T) {
	for key, want := range map[string]string{
		KeyAnswers:          TableSurveys,
		KeySimulatedAnswers: TableSimulated,
		KeyStartForm:        TableForms,
		"userEmail":         TableUsers,
		KeyLanguage:         TableTexts,
		KeyUnifiedSchema:    TableSchemas,
		"anything-else":     TableKV,
	} {
		if got := Route(key); got != want {
			t.Fatalf("Route(%q) = %q, want %q", key, got, want)
		}
	}
}

type failingBackend struct{ MemoryStore }

func (*failingBackend) Get(context.Context, string, string) (Entry, bool, error) {
	return Entry{}, false, unavailable("read", errors.New("disk gone"))
}

func (*failingBackend) Put(context.Context, string, string, []byte, time.Time) ([]byte, error) {
	return nil, unavailable("write", errors.New("disk gone"))
}

func (*failingBackend) Ping(context.Context) error {
	return unavailable("ping", errors.New("disk gone"))
}

func TestSafeFallsBackWhenUnavailable(t *testing.T) {
	s := NewSafe(&failingBackend{}, nil)
	ctx := context.Background()

	if got := s.GetString(ctx, "s", KeyLanguage, "en"); got != "en" {
		t.Fatalf("expected fallback, got %q", got)
	}
	out := map[string]any{"default": true}
	if s.GetJSON(ctx, "s", KeyAnswers, &out) || out["default"] != true {
		t.Fatalf("expected untouched fallback, got %v", out)
	}
	err := s.SetString(ctx, "s", KeyLanguage, "fr")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	var serr *Error
	if !errors.As(err, &serr) || !serr.Transient {
		t.Fatalf("expected transient store error, got %v", err)
	}
	if err := s.WhenReady(ctx); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected not ready, got %v", err)
	}
}

func TestSafeRoundTripAndBroadcast(t *testing.T) {
	bc := NewLocalBroadcaster()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	writer := NewSafe(NewMemoryStore(), nil, WithBroadcaster(bc), WithClock(func() time.Time { return now }))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var seen []Change
	if err := bc.Subscribe(ctx, func(c Change) {
		mu.Lock()
		seen = append(seen, c)
		mu.Unlock()
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := writer.WhenReady(ctx); err != nil {
		t.Fatalf("ready: %v", err)
	}
	if err := writer.SetJSON(ctx, "s", KeyAnswers, map[string]any{"projectName": "Kiosk"}); err != nil {
		t.Fatalf("set json: %v", err)
	}
	if err := writer.SetString(ctx, "s", KeyAnswers, "not json"); err != nil {
		t.Fatalf("set string: %v", err)
	}
	var got map[string]any
	if writer.GetJSON(ctx, "s", KeyAnswers, &got) {
		t.Fatal("expected non-JSON value to fall back")
	}
	if got := writer.GetString(ctx, "s", KeyAnswers, ""); got != "not json" {
		t.Fatalf("unexpected string %q", got)
	}
	if err := writer.Remove(ctx, "s", KeyAnswers); err != nil {
		t.Fatalf("remove: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 {
		t.Fatalf("expected 3 changes, got %d", len(seen))
	}
	if seen[0].OldValue != nil || *seen[0].NewValue != `{"projectName":"Kiosk"}` {
		t.Fatalf("unexpected first change %+v", seen[0])
	}
	if *seen[1].OldValue != `{"projectName":"Kiosk"}` {
		t.Fatalf("expected old value on overwrite, got %+v", seen[1])
	}
	if seen[2].NewValue != nil || *seen[2].OldValue != "not json" || seen[2].Origin != writer.Origin() {
		t.Fatalf("unexpected removal change %+v", seen[2])
	}
}

func TestSafeWatchSkipsOwnChanges(t *testing.T) {
	bc := NewLocalBroadcaster()
	backend := NewMemoryStore()
	a := NewSafe(backend, nil, WithBroadcaster(bc))
	b := NewSafe(backend, nil, WithBroadcaster(bc))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []string
	if err := a.Watch(ctx, func(c Change) { got = append(got, c.Key) }); err != nil {
		t.Fatalf("watch: %v", err)
	}
	_ = a.SetString(ctx, "s", "mine", "1")
	_ = b.SetString(ctx, "s", "theirs", "2")
	if len(got) != 1 || got[0] != "theirs" {
		t.Fatalf("expected only foreign change, got %v", got)
	}
}

func TestChangeCodec(t *testing.T) {
	c := newChange("o", "s", KeyLanguage, []byte("fr"), nil, false)
	raw, err := encodeChange(c)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(raw) != `{"origin":"o","session":"s","key":"preferredLanguage","newValue":"fr","oldValue":null}` {
		t.Fatalf("unexpected wire form %s", raw)
	}
	back, err := decodeChange(string(raw))
	if err != nil || *back.NewValue != "fr" || back.OldValue != nil {
		t.Fatalf("decode: %+v err=%v", back, err)
	}
	if _, err := decodeChange(`{"key":""}`); err == nil {
		t.Fatal("expected error for change without key")
	}
}
