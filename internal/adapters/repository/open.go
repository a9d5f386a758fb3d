package repository

import (
	"context"
	"fmt"

	"github.com/okian/polytrack/internal/config"
)

// OpenBackend builds the backend selected by cfg.StoreBackend.
func OpenBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.StoreBackend {
	case config.BackendFile, "":
		return NewFileBackend(cfg.DataDir)
	case config.BackendSQLite:
		return NewSQLiteBackend(ctx, cfg.SQLitePath)
	case config.BackendPostgres:
		return NewPostgresBackend(ctx, cfg.PostgresURL)
	case config.BackendMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.StoreBackend)
	}
}

// Open builds the configured backend and wraps it in a Store.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Store, error) {
	backend, err := OpenBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	opts = append([]Option{WithQueueSize(cfg.WriterQueueSize)}, opts...)
	return NewStore(backend, opts...), nil
}
