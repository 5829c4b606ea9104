package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/hearth/internal/game/authority"
	"github.com/cory-johannsen/hearth/internal/game/entity"
	"github.com/cory-johannsen/hearth/internal/storage"
	"github.com/cory-johannsen/hearth/internal/storage/postgres"
	"github.com/cory-johannsen/hearth/internal/testutil"
)

func setupStore(t *testing.T) *postgres.SnapshotStore {
	t.Helper()
	return postgres.NewSnapshotStore(testutil.OpenPool(t, testutil.StartPostgres(t)))
}

func TestSnapshotStore_EmptyDatabaseHasNoSnapshot(t *testing.T) {
	store := setupStore(t)
	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, storage.ErrNoSnapshot)
}

func TestSnapshotStore_RoundTripsWorld(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	a := testutil.StartAuthority(t, testutil.YardZone, zaptest.NewLogger(t))
	testutil.SeedYard(t, a)
	snap, err := storage.Capture(ctx, a)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, snap))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.HighWater, got.HighWater)
	require.Len(t, got.Players, 1)
	alice := got.Players[0]
	assert.Equal(t, "Alice", alice.Name)
	assert.Equal(t, "barn", alice.RoomID)
	assert.Equal(t, 7, alice.Player.Gold)
	assert.NotEmpty(t, alice.Player.PasswordHash)
	require.Len(t, alice.Player.Inventory, 1)
	require.NotNil(t, alice.Player.Equipped[entity.SlotWeapon])
	assert.Equal(t, "a rusty sword", alice.Player.Equipped[entity.SlotWeapon].Name)

	require.Len(t, got.Objects, 1)
	assert.Equal(t, "a stone statue", got.Objects[0].Name)
	assert.True(t, got.Objects[0].Heavy)
}

func TestSnapshotStore_SaveReplacesObjectsAndKeepsPlayers(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	first := authority.Snapshot{
		HighWater: 5,
		Players: []*entity.Object{{
			ID: 1, Kind: entity.KindPlayer, Name: "Bob", RoomID: "yard",
			Mobile:  &entity.Mobile{ThinkInterval: 1},
			Fighter: &entity.Fighter{Level: 1, HP: 10, MaxHP: 10},
			Player:  &entity.Player{Gold: 3},
		}},
		Objects: []*entity.Object{
			{ID: 2, Kind: entity.KindObject, Name: "a barrel", RoomID: "yard"},
			{ID: 3, Kind: entity.KindObject, Name: "a cart", RoomID: "yard"},
		},
	}
	require.NoError(t, store.Save(ctx, first))

	second := authority.Snapshot{
		HighWater: 8,
		Players: []*entity.Object{{
			ID: 6, Kind: entity.KindPlayer, Name: "Cleo", RoomID: "barn",
			Mobile:  &entity.Mobile{ThinkInterval: 1},
			Fighter: &entity.Fighter{Level: 2, HP: 4, MaxHP: 12},
			Player:  &entity.Player{},
		}},
		Objects: []*entity.Object{
			{ID: 7, Kind: entity.KindObject, Name: "a hay bale", RoomID: "barn"},
		},
	}
	require.NoError(t, store.Save(ctx, second))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.ID(8), got.HighWater)
	require.Len(t, got.Players, 2)
	assert.Equal(t, "Bob", got.Players[0].Name)
	assert.Equal(t, "Cleo", got.Players[1].Name)
	assert.Equal(t, 4, got.Players[1].Fighter.HP)
	require.Len(t, got.Objects, 1)
	assert.Equal(t, "a hay bale", got.Objects[0].Name)
}
