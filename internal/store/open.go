package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joelkehle/feasibility-study/internal/config"
	"github.com/joelkehle/feasibility-study/internal/logger"
)

// Open builds the configured backend and broadcaster. Without a Redis
// address changes are only broadcast inside this process.
func Open(ctx context.Context, cfg config.Config, log *logger.Logger) (*Safe, error) {
	var backend Backend
	switch cfg.Store.Driver {
	case config.StoreMemory, "":
		backend = NewMemoryStore()
	case config.StoreSQLite:
		if dir := filepath.Dir(cfg.Store.SQLitePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		s, err := NewSQLiteStore(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		backend = s
	case config.StoreFile:
		f, err := NewFileStore(cfg.Store.StatePath)
		if err != nil {
			return nil, err
		}
		backend = f
	case config.StorePostgres:
		p, err := NewPostgresStore(ctx, cfg.Store.PostgresDSN)
		if err != nil {
			return nil, err
		}
		backend = p
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	var bc Broadcaster = NewLocalBroadcaster()
	if cfg.Redis.Addr != "" {
		r, err := NewRedisBroadcaster(cfg.Redis.Addr, cfg.Redis.Channel, log)
		if err != nil {
			backend.Close()
			return nil, err
		}
		bc = r
	}
	return NewSafe(backend, log, WithBroadcaster(bc)), nil
}
