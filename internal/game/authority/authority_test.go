package authority_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/hearth/internal/game/authority"
)

func TestDo_RunsOperationsInOrder(t *testing.T) {
	w, _ := newTestWorld(t, nil)
	a := runAuthority(t, w)

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		require.NoError(t, a.Do(context.Background(), func(*authority.World) { order = append(order, i) }))
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestDo_RecoversPanic(t *testing.T) {
	w, _ := newTestWorld(t, nil)
	a := runAuthority(t, w)

	err := a.Do(context.Background(), func(*authority.World) { panic("bad object") })
	require.Error(t, err)
	assert.True(t, errors.Is(err, authority.ErrPanic))
	assert.Contains(t, err.Error(), "bad object")

	ran := false
	require.NoError(t, a.Do(context.Background(), func(*authority.World) { ran = true }))
	assert.True(t, ran, "loop keeps serving after a panic")
}

func TestDo_AfterStop(t *testing.T) {
	w, _ := newTestWorld(t, nil)
	a := authority.New(w, zaptest.NewLogger(t))
	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()

	require.NoError(t, a.Do(context.Background(), func(*authority.World) {}))
	a.Stop()
	a.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
	assert.ErrorIs(t, a.Do(context.Background(), func(*authority.World) {}), authority.ErrStopped)
	assert.ErrorIs(t, a.Run(context.Background()), authority.ErrStopped)
}

func TestDo_ContextCancelledBeforeAccept(t *testing.T) {
	w, _ := newTestWorld(t, nil)
	a := authority.New(w, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, a.Do(ctx, func(*authority.World) {}), context.Canceled)
}

func TestRun_StopsWhenContextDone(t *testing.T) {
	w, _ := newTestWorld(t, nil)
	a := authority.New(w, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = a.Run(ctx) }()
	cancel()
	select {
	case <-a.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after ctx was cancelled")
	}
}
