// Package storage persists world snapshots and runs the periodic saver.
package storage

import (
	"context"
	"errors"

	"github.com/cory-johannsen/hearth/internal/game/authority"
)

// ErrNoSnapshot is returned by Store.Load when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no snapshot saved")

// Store reads and writes whole-world snapshots.
type Store interface {
	// Load returns the most recently saved snapshot, or ErrNoSnapshot.
	Load(ctx context.Context) (authority.Snapshot, error)
	// Save replaces the stored snapshot with snap.
	Save(ctx context.Context, snap authority.Snapshot) error
}

// Runner executes an operation on the world authority.
type Runner interface {
	Do(ctx context.Context, fn func(*authority.World)) error
}

// Capture takes a snapshot of the world through r.
//
// Postcondition: Returns a deep copy that is safe to use off the authority goroutine.
func Capture(ctx context.Context, r Runner) (authority.Snapshot, error) {
	var snap authority.Snapshot
	err := r.Do(ctx, func(w *authority.World) {
		snap = w.Snapshot()
	})
	return snap, err
}
