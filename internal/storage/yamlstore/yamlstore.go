// Package yamlstore keeps the world snapshot in a single YAML file.
package yamlstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/hearth/internal/game/authority"
	"github.com/cory-johannsen/hearth/internal/storage"
)

// Store is a file-backed storage.Store.
type Store struct {
	path string
}

// New returns a Store that reads and writes path.
//
// Precondition: path must be non-empty.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the snapshot file location.
func (s *Store) Path() string { return s.path }

// Load reads the snapshot file.
//
// Postcondition: Returns storage.ErrNoSnapshot when the file does not exist.
func (s *Store) Load(_ context.Context) (authority.Snapshot, error) {
	var snap authority.Snapshot
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return snap, storage.ErrNoSnapshot
	}
	if err != nil {
		return snap, fmt.Errorf("reading snapshot %s: %w", s.path, err)
	}
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("parsing snapshot %s: %w", s.path, err)
	}
	return snap, nil
}

// Save writes snap to a temporary file beside the target and renames it into
// place, so a crash mid-write leaves the previous snapshot intact.
func (s *Store) Save(ctx context.Context, snap authority.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}
