// Package backend opens the snapshot store selected by configuration.
package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/hearth/internal/config"
	"github.com/cory-johannsen/hearth/internal/storage"
	"github.com/cory-johannsen/hearth/internal/storage/postgres"
	"github.com/cory-johannsen/hearth/internal/storage/yamlstore"
)

// Backend is an opened snapshot store. Pool is set only for the postgres
// backend.
type Backend struct {
	Store storage.Store
	Pool  *pgxpool.Pool
}

// Close releases the database pool, if any.
func (b *Backend) Close() {
	if b.Pool != nil {
		b.Pool.Close()
	}
}

// Open opens the store named by cfg.Backend. It returns a nil Store for the
// "none" backend.
//
// Precondition: cfg has passed config validation.
// Postcondition: On success the caller owns the Backend and must Close it.
func Open(ctx context.Context, cfg config.PersistenceConfig, db config.DatabaseConfig, logger *zap.Logger) (*Backend, error) {
	switch cfg.Backend {
	case "none":
		return &Backend{}, nil
	case "file":
		logger.Info("using file snapshot store", zap.String("path", cfg.Path))
		return &Backend{Store: yamlstore.New(cfg.Path)}, nil
	case "postgres":
		start := time.Now()
		pool, err := postgres.Connect(ctx, db, logger)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		logger.Info("database connected",
			zap.String("host", db.Host),
			zap.Duration("elapsed", time.Since(start)),
		)
		return &Backend{Store: postgres.NewSnapshotStore(pool), Pool: pool}, nil
	default:
		return nil, fmt.Errorf("unknown persistence backend %q", cfg.Backend)
	}
}
