package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists records in one SQLite table per route.
type SQLiteStore struct {
	db *sqlx.DB
}

const sqliteTableSchema = `
CREATE TABLE IF NOT EXISTS %[1]s (
	session_id TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      BLOB NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (session_id, key)
);
CREATE INDEX IF NOT EXISTS %[1]s_updated_at ON %[1]s (updated_at);
`

type sqliteRow struct {
	SessionID string `db:"session_id"`
	Key       string `db:"key"`
	Value     []byte `db:"value"`
	UpdatedAt string `db:"updated_at"`
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	var schema strings.Builder
	for _, t := range Tables {
		fmt.Fprintf(&schema, sqliteTableSchema, t)
	}
	if _, err := db.Exec(schema.String()); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping sqlite", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, session, key string) (Entry, bool, error) {
	if err := validateKey(session, key); err != nil {
		return Entry{}, false, err
	}
	table := Route(key)
	var row sqliteRow
	err := s.db.GetContext(ctx, &row, "SELECT session_id, key, value, updated_at FROM "+table+" WHERE session_id = ? AND key = ?", session, key)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, unavailable("read "+key, err)
	}
	at, _ := time.Parse(time.RFC3339Nano, row.UpdatedAt)
	return Entry{Table: table, Value: row.Value, UpdatedAt: at}, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, session, key string, value []byte, at time.Time) ([]byte, error) {
	if err := validateKey(session, key); err != nil {
		return nil, err
	}
	table := Route(key)
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, unavailable("begin write", err)
	}
	defer tx.Rollback()

	old, err := selectValue(ctx, tx, table, session, key)
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = []byte{}
	}
	_, err = tx.NamedExecContext(ctx, `INSERT INTO `+table+` (session_id, key, value, updated_at)
		VALUES (:session_id, :key, :value, :updated_at)
		ON CONFLICT (session_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		sqliteRow{SessionID: session, Key: key, Value: value, UpdatedAt: at.UTC().Format(time.RFC3339Nano)})
	if err != nil {
		return nil, unavailable("write "+key, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, unavailable("commit "+key, err)
	}
	return old, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, session, key string) ([]byte, error) {
	if err := validateKey(session, key); err != nil {
		return nil, err
	}
	table := Route(key)
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, unavailable("begin delete", err)
	}
	defer tx.Rollback()

	old, err := selectValue(ctx, tx, table, session, key)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE session_id = ? AND key = ?", session, key); err != nil {
		return nil, unavailable("delete "+key, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, unavailable("commit delete "+key, err)
	}
	return old, nil
}

func selectValue(ctx context.Context, tx *sqlx.Tx, table, session, key string) ([]byte, error) {
	var old []byte
	err := tx.GetContext(ctx, &old, "SELECT value FROM "+table+" WHERE session_id = ? AND key = ?", session, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("read "+key, err)
	}
	return old, nil
}
