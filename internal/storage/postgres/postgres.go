// Package postgres persists world snapshots in PostgreSQL using pgx v5.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"go.uber.org/zap"

	"github.com/cory-johannsen/hearth/internal/config"
	"github.com/cory-johannsen/hearth/migrations"
)

// Connect opens a pool sized by cfg and pings it once. Queries are traced to
// logger at debug level.
//
// Postcondition: On success the caller owns the pool and must Close it.
func Connect(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.ConnConfig.Tracer = &tracelog.TraceLog{
		Logger:   zapTracer(logger.Named("pgx")),
		LogLevel: tracelog.LogLevelDebug,
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

func zapTracer(logger *zap.Logger) tracelog.LoggerFunc {
	return func(_ context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
		fields := make([]zap.Field, 0, len(data))
		for k, v := range data {
			fields = append(fields, zap.Any(k, v))
		}
		switch {
		case level <= tracelog.LogLevelError:
			logger.Error(msg, fields...)
		case level == tracelog.LogLevelWarn:
			logger.Warn(msg, fields...)
		case level == tracelog.LogLevelInfo:
			logger.Info(msg, fields...)
		default:
			logger.Debug(msg, fields...)
		}
	}
}

// Monitor pings the database on an interval and logs failures. It is a
// lifecycle service.
type Monitor struct {
	pool     *pgxpool.Pool
	interval time.Duration
	logger   *zap.Logger
	stop     chan struct{}
	once     sync.Once
}

// NewMonitor returns a Monitor for pool.
//
// Precondition: interval > 0.
func NewMonitor(pool *pgxpool.Pool, interval time.Duration, logger *zap.Logger) *Monitor {
	return &Monitor{pool: pool, interval: interval, logger: logger, stop: make(chan struct{})}
}

// Start pings every interval until Stop. Each ping may take at most half the
// interval.
func (m *Monitor) Start() error {
	t := time.NewTicker(m.interval)
	defer t.Stop()
	for {
		select {
		case <-m.stop:
			return nil
		case <-t.C:
			if err := m.Check(context.Background()); err != nil {
				m.logger.Warn("database health check failed", zap.Error(err))
			}
		}
	}
}

// Check pings the database once.
func (m *Monitor) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.interval/2)
	defer cancel()
	return m.pool.Ping(ctx)
}

// Stop ends Start. It is safe to call more than once.
func (m *Monitor) Stop() {
	m.once.Do(func() { close(m.stop) })
}

// Migrator returns a migrate instance reading the embedded schema files and
// targeting dsn. The caller must Close it.
func Migrator(dsn string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("opening embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating migrator: %w", err)
	}
	return m, nil
}

// MigrateUp applies every pending migration to dsn.
func MigrateUp(dsn string) error {
	m, err := Migrator(dsn)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}
