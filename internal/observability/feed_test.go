package observability

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"
)

func TestFeed_BacklogBounded(t *testing.T) {
	f := NewFeed(3)
	for i := 0; i < 5; i++ {
		f.Publish(Event{Message: fmt.Sprintf("m%d", i)})
	}
	got := f.Backlog()
	require.Len(t, got, 3)
	assert.Equal(t, "m2", got[0].Message)
	assert.Equal(t, "m4", got[2].Message)
}

func TestFeed_Clear(t *testing.T) {
	f := NewFeed(3)
	f.Publish(Event{Message: "a"})
	f.Clear()
	assert.Empty(t, f.Backlog())
}

func TestFeed_SubscribeReplaysThenStreams(t *testing.T) {
	f := NewFeed(10)
	f.Publish(Event{Message: "old"})

	replay, ch, cancel := f.Subscribe(4)
	defer cancel()
	require.Len(t, replay, 1)
	assert.Equal(t, "old", replay[0].Message)

	f.Publish(Event{Message: "new"})
	select {
	case e := <-ch:
		assert.Equal(t, "new", e.Message)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestFeed_SlowSubscriberNeverBlocks(t *testing.T) {
	f := NewFeed(0)
	_, _, cancel := f.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			f.Publish(Event{Message: "x"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestFeed_CancelDetaches(t *testing.T) {
	f := NewFeed(0)
	_, ch, cancel := f.Subscribe(1)
	assert.Equal(t, 1, f.Subscribers())
	cancel()
	cancel()
	assert.Equal(t, 0, f.Subscribers())
	_, ok := <-ch
	assert.False(t, ok)
}

func TestFeedCore_WithFields(t *testing.T) {
	f := NewFeed(5)
	logger := zap.New(f.Core(zap.InfoLevel)).With(zap.String("session", "abc"))
	logger.Info("hello", zap.Int("n", 3))

	got := f.Backlog()
	require.Len(t, got, 1)
	assert.Equal(t, "abc", got[0].Fields["session"])
	assert.EqualValues(t, 3, got[0].Fields["n"])
}

func TestPropertyFeedBacklogNeverExceedsLimit(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.IntRange(0, 20).Draw(t, "limit")
		n := rapid.IntRange(0, 60).Draw(t, "n")
		f := NewFeed(limit)
		for i := 0; i < n; i++ {
			f.Publish(Event{Message: fmt.Sprint(i)})
		}
		got := f.Backlog()
		if len(got) > limit {
			t.Fatalf("backlog %d exceeds limit %d", len(got), limit)
		}
		if n > 0 && limit > 0 && got[len(got)-1].Message != fmt.Sprint(n-1) {
			t.Fatalf("newest event missing")
		}
	})
}
