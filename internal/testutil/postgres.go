package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/hearth/internal/config"
	"github.com/cory-johannsen/hearth/internal/storage/postgres"
)

const pgImage = "postgres:16-alpine"

// StartPostgres runs a throwaway PostgreSQL container with the snapshot schema
// applied and returns settings that reach it. The container is removed when
// the test ends. Skipped under -short since it needs Docker.
func StartPostgres(t *testing.T) config.DatabaseConfig {
	t.Helper()
	if testing.Short() {
		t.Skip("needs docker")
	}
	ctx := context.Background()
	began := time.Now()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		Started: true,
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        pgImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "hearth",
				"POSTGRES_PASSWORD": "hearth",
				"POSTGRES_DB":       "hearth",
			},
			// The server restarts once after init, so wait for the second
			// ready line.
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(45 * time.Second),
		},
	})
	testcontainers.CleanupContainer(t, c)
	require.NoError(t, err, "starting %s", pgImage)

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            "hearth",
		Password:        "hearth",
		Name:            "hearth",
		SSLMode:         "disable",
		MaxConns:        4,
		MinConns:        1,
		MaxConnLifetime: time.Minute,
	}
	require.NoError(t, postgres.MigrateUp(cfg.DSN()), "applying migrations")
	t.Logf("postgres ready at %s:%d [%s]", cfg.Host, cfg.Port, time.Since(began))
	return cfg
}

// OpenPool connects to cfg and closes the pool when the test ends.
func OpenPool(t *testing.T, cfg config.DatabaseConfig) *pgxpool.Pool {
	t.Helper()
	p, err := postgres.Connect(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}
