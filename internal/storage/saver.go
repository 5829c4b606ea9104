package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Saver writes a snapshot to a Store on a fixed interval and once more when
// it is stopped.
type Saver struct {
	runner   Runner
	store    Store
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
	saves   int
}

// NewSaver creates a Saver.
//
// Precondition: runner, store and logger must be non-nil; interval must be positive.
func NewSaver(runner Runner, store Store, interval time.Duration, logger *zap.Logger) *Saver {
	return &Saver{
		runner:   runner,
		store:    store,
		interval: interval,
		logger:   logger,
	}
}

// SaveNow captures the world and writes it to the store.
func (s *Saver) SaveNow(ctx context.Context) error {
	start := time.Now()
	snap, err := Capture(ctx, s.runner)
	if err != nil {
		return fmt.Errorf("capturing snapshot: %w", err)
	}
	if err := s.store.Save(ctx, snap); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}

	s.mu.Lock()
	s.saves++
	s.mu.Unlock()

	s.logger.Info("world saved",
		zap.Int("players", len(snap.Players)),
		zap.Int("objects", len(snap.Objects)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Saves returns the number of successful saves.
func (s *Saver) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Start saves on every interval tick and blocks until Stop is called. A
// failed periodic save is logged and retried on the next tick.
func (s *Saver) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		cancel()
		return nil
	}
	if s.cancel != nil {
		s.mu.Unlock()
		cancel()
		return fmt.Errorf("saver already started")
	}
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.SaveNow(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("periodic save failed", zap.Error(err))
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// Stop ends the periodic loop and performs a final save. It must run while
// the authority is still accepting operations.
//
// Postcondition: The final save has completed or failed (and been logged).
func (s *Saver) Stop() {
	s.mu.Lock()
	s.stopped = true
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}

	ctx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := s.SaveNow(ctx); err != nil {
		s.logger.Error("final save failed", zap.Error(err))
	}
}
