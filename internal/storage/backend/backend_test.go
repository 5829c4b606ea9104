package backend_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/hearth/internal/config"
	"github.com/cory-johannsen/hearth/internal/storage"
	"github.com/cory-johannsen/hearth/internal/storage/backend"
	"github.com/cory-johannsen/hearth/internal/storage/postgres"
	"github.com/cory-johannsen/hearth/internal/storage/yamlstore"
	"github.com/cory-johannsen/hearth/internal/testutil"
)

func TestOpen_None(t *testing.T) {
	b, err := backend.Open(context.Background(), config.PersistenceConfig{Backend: "none"}, config.DatabaseConfig{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer b.Close()
	assert.Nil(t, b.Store)
	assert.Nil(t, b.Pool)
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.yaml")
	b, err := backend.Open(context.Background(), config.PersistenceConfig{Backend: "file", Path: path}, config.DatabaseConfig{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer b.Close()
	fs, ok := b.Store.(*yamlstore.Store)
	require.True(t, ok)
	assert.Equal(t, path, fs.Path())
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := backend.Open(context.Background(), config.PersistenceConfig{Backend: "redis"}, config.DatabaseConfig{}, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "redis")
}

func TestOpen_Postgres(t *testing.T) {
	db := testutil.StartPostgres(t)
	ctx := context.Background()
	b, err := backend.Open(ctx, config.PersistenceConfig{Backend: "postgres"}, db, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer b.Close()

	require.NotNil(t, b.Pool)
	assert.NoError(t, postgres.NewMonitor(b.Pool, 2*time.Second, zaptest.NewLogger(t)).Check(ctx))
	_, err = b.Store.Load(ctx)
	assert.ErrorIs(t, err, storage.ErrNoSnapshot)
}
