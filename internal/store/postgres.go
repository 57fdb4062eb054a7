package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists records in Postgres, one table per route.
type PostgresStore struct {
	pool *pgxpool.Pool
}

const postgresTableSchema = `
CREATE TABLE IF NOT EXISTS %[1]s (
	session_id TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (session_id, key)
);
`

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("DATABASE_URL is required for the postgres store")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, unavailable("connect postgres", err)
	}
	var schema strings.Builder
	for _, t := range Tables {
		fmt.Fprintf(&schema, postgresTableSchema, "feasibility_"+t)
	}
	if _, err := pool.Exec(ctx, schema.String()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func pgTable(key string) string { return "feasibility_" + Route(key) }

func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return unavailable("ping postgres", err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, session, key string) (Entry, bool, error) {
	if err := validateKey(session, key); err != nil {
		return Entry{}, false, err
	}
	var e Entry
	err := p.pool.QueryRow(ctx, "SELECT value, updated_at FROM "+pgTable(key)+" WHERE session_id = $1 AND key = $2", session, key).
		Scan(&e.Value, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, unavailable("read "+key, err)
	}
	e.Table = Route(key)
	return e, true, nil
}

func (p *PostgresStore) Put(ctx context.Context, session, key string, value []byte, at time.Time) ([]byte, error) {
	if err := validateKey(session, key); err != nil {
		return nil, err
	}
	if value == nil {
		value = []byte{}
	}
	table := pgTable(key)
	var old []byte
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		var err error
		if old, err = selectForUpdate(ctx, tx, table, session, key); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `INSERT INTO `+table+` (session_id, key, value, updated_at) VALUES ($1, $2, $3, $4)
			ON CONFLICT (session_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
			session, key, value, at.UTC())
		return err
	})
	if err != nil {
		return nil, unavailable("write "+key, err)
	}
	return old, nil
}

func (p *PostgresStore) Delete(ctx context.Context, session, key string) ([]byte, error) {
	if err := validateKey(session, key); err != nil {
		return nil, err
	}
	table := pgTable(key)
	var old []byte
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		var err error
		if old, err = selectForUpdate(ctx, tx, table, session, key); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, "DELETE FROM "+table+" WHERE session_id = $1 AND key = $2", session, key)
		return err
	})
	if err != nil {
		return nil, unavailable("delete "+key, err)
	}
	return old, nil
}

func selectForUpdate(ctx context.Context, tx pgx.Tx, table, session, key string) ([]byte, error) {
	var old []byte
	err := tx.QueryRow(ctx, "SELECT value FROM "+table+" WHERE session_id = $1 AND key = $2 FOR UPDATE", session, key).Scan(&old)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return old, err
}
