package storage_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/hearth/internal/game/authority"
	"github.com/cory-johannsen/hearth/internal/storage"
	"github.com/cory-johannsen/hearth/internal/testutil"
)

type memStore struct {
	mu    sync.Mutex
	snaps []authority.Snapshot
	fails int
}

func (m *memStore) Load(context.Context) (authority.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.snaps) == 0 {
		return authority.Snapshot{}, storage.ErrNoSnapshot
	}
	return m.snaps[len(m.snaps)-1], nil
}

func (m *memStore) Save(_ context.Context, snap authority.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fails > 0 {
		m.fails--
		return errors.New("disk full")
	}
	m.snaps = append(m.snaps, snap)
	return nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.snaps)
}

func TestCapture_ReturnsDeepCopy(t *testing.T) {
	a := testutil.StartAuthority(t, testutil.YardZone, zaptest.NewLogger(t))
	testutil.SeedYard(t, a)

	snap, err := storage.Capture(context.Background(), a)
	require.NoError(t, err)
	require.Len(t, snap.Players, 1)
	snap.Players[0].Player.Gold = 1000
	snap.Players[0].Player.Inventory = nil

	testutil.Do(t, a, func(w *authority.World) {
		p, ok := w.Player("Alice")
		if !assert.True(t, ok) {
			return
		}
		assert.Equal(t, 7, p.Player.Gold)
		assert.Len(t, p.Player.Inventory, 1)
	})
}

func TestSaver_SavesOnInterval(t *testing.T) {
	a := testutil.StartAuthority(t, testutil.YardZone, zaptest.NewLogger(t))
	store := &memStore{}
	s := storage.NewSaver(a, store, 10*time.Millisecond, zaptest.NewLogger(t))

	done := make(chan error, 1)
	go func() { done <- s.Start() }()

	assert.Eventually(t, func() bool { return s.Saves() >= 2 }, 2*time.Second, 5*time.Millisecond)
	s.Stop()
	require.NoError(t, <-done)
	assert.Equal(t, s.Saves(), store.count())
}

func TestSaver_StopWritesFinalSnapshot(t *testing.T) {
	a := testutil.StartAuthority(t, testutil.YardZone, zaptest.NewLogger(t))
	store := &memStore{}
	s := storage.NewSaver(a, store, time.Hour, zaptest.NewLogger(t))

	done := make(chan error, 1)
	go func() { done <- s.Start() }()
	testutil.SeedYard(t, a)
	s.Stop()
	require.NoError(t, <-done)

	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Players, 1)
	assert.Equal(t, "Alice", snap.Players[0].Name)
	assert.Equal(t, "barn", snap.Players[0].RoomID)
}

func TestSaver_StartAfterStopReturnsImmediately(t *testing.T) {
	a := testutil.StartAuthority(t, testutil.YardZone, zaptest.NewLogger(t))
	store := &memStore{}
	s := storage.NewSaver(a, store, time.Millisecond, zaptest.NewLogger(t))

	s.Stop()
	assert.Equal(t, 1, store.count())
	require.NoError(t, s.Start())
	assert.Equal(t, 1, store.count())
}

func TestSaver_FailedSaveIsLoggedAndRetried(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	a := testutil.StartAuthority(t, testutil.YardZone, zaptest.NewLogger(t))
	store := &memStore{fails: 1}
	s := storage.NewSaver(a, store, 10*time.Millisecond, zap.New(core))

	done := make(chan error, 1)
	go func() { done <- s.Start() }()

	assert.Eventually(t, func() bool { return store.count() >= 1 }, 2*time.Second, 5*time.Millisecond)
	s.Stop()
	require.NoError(t, <-done)
	assert.Equal(t, 1, logs.FilterMessage("periodic save failed").Len())
}

func TestSaver_StoppedAuthorityFailsFinalSave(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	a := testutil.StartAuthority(t, testutil.YardZone, zaptest.NewLogger(t))
	a.Stop()
	<-a.Done()

	store := &memStore{}
	s := storage.NewSaver(a, store, time.Hour, zap.New(core))
	s.Stop()

	assert.Zero(t, store.count())
	entries := logs.FilterMessage("final save failed").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["error"], authority.ErrStopped.Error())
}
