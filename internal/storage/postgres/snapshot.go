package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/hearth/internal/game/authority"
	"github.com/cory-johannsen/hearth/internal/game/entity"
	"github.com/cory-johannsen/hearth/internal/storage"
)

// SnapshotStore is a storage.Store keeping players and world objects as
// jsonb rows.
type SnapshotStore struct {
	db *pgxpool.Pool
}

// NewSnapshotStore creates a SnapshotStore backed by the given pool.
//
// Precondition: db must be a valid, open connection pool with the schema migrated.
func NewSnapshotStore(db *pgxpool.Pool) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Load reads the saved snapshot. A row that fails to decode fails the load;
// semantic validation is left to authority.World.Load.
//
// Postcondition: Returns storage.ErrNoSnapshot if no save has happened yet.
func (s *SnapshotStore) Load(ctx context.Context) (authority.Snapshot, error) {
	var snap authority.Snapshot
	var hw int64
	err := s.db.QueryRow(ctx, `SELECT high_water FROM world_meta WHERE id = 1`).Scan(&hw)
	if errors.Is(err, pgx.ErrNoRows) {
		return snap, storage.ErrNoSnapshot
	}
	if err != nil {
		return snap, fmt.Errorf("reading world meta: %w", err)
	}
	snap.HighWater = entity.ID(hw)

	snap.Players, err = s.loadObjects(ctx, `SELECT data FROM players ORDER BY name_key`)
	if err != nil {
		return snap, fmt.Errorf("reading players: %w", err)
	}
	snap.Objects, err = s.loadObjects(ctx, `SELECT data FROM world_objects ORDER BY id`)
	if err != nil {
		return snap, fmt.Errorf("reading world objects: %w", err)
	}
	return snap, nil
}

func (s *SnapshotStore) loadObjects(ctx context.Context, query string) ([]*entity.Object, error) {
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.Object
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var o entity.Object
		if err := json.Unmarshal(data, &o); err != nil {
			return nil, fmt.Errorf("decoding row: %w", err)
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}

// Save replaces the stored snapshot in a single transaction. Players are
// upserted by lower-cased name; the world object table is rewritten.
func (s *SnapshotStore) Save(ctx context.Context, snap authority.Snapshot) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning snapshot transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `
		INSERT INTO world_meta (id, high_water, saved_at) VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET high_water = EXCLUDED.high_water, saved_at = NOW()`,
		int64(snap.HighWater),
	); err != nil {
		return fmt.Errorf("writing world meta: %w", err)
	}

	batch := &pgx.Batch{}
	for _, p := range snap.Players {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encoding player %q: %w", p.Name, err)
		}
		batch.Queue(`
			INSERT INTO players (name_key, id, data, updated_at) VALUES ($1, $2, $3, NOW())
			ON CONFLICT (name_key) DO UPDATE SET id = EXCLUDED.id, data = EXCLUDED.data, updated_at = NOW()`,
			strings.ToLower(p.Name), int64(p.ID), data,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("writing players: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM world_objects`); err != nil {
		return fmt.Errorf("clearing world objects: %w", err)
	}
	rows := make([][]any, 0, len(snap.Objects))
	for _, o := range snap.Objects {
		data, err := json.Marshal(o)
		if err != nil {
			return fmt.Errorf("encoding object %d: %w", o.ID, err)
		}
		rows = append(rows, []any{int64(o.ID), string(o.Kind), o.RoomID, data})
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"world_objects"},
		[]string{"id", "kind", "room", "data"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("writing world objects: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}
