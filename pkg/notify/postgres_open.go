package notify

import (
	"context"
	"log/slog"

	"github.com/colin-rod/tribe-mvp-sub000/pkg/pg"
)

// OpenPostgresStorage connects to Postgres with the given configuration,
// applies pending schema migrations and returns a storage bound to the pool.
// Close releases the pool when the storage is no longer needed.
func OpenPostgresStorage(ctx context.Context, cfg pg.Config, log *slog.Logger) (*PostgresStorage, error) {
	if log == nil {
		log = slog.Default()
	}

	pool, err := pg.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
		pool.Close()
		return nil, err
	}

	return NewPostgresStorage(pool)
}

// Close releases the underlying connection pool. Only call it on storages
// created through OpenPostgresStorage; storages wrapping a caller-owned pool
// leave pool lifecycle to the caller.
func (ps *PostgresStorage) Close() {
	ps.pool.Close()
}
