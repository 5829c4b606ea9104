// Package scheduler drives autonomous objects. Every tracked object gets its
// own goroutine that sleeps until its next tick and then runs one step on the
// world authority.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/hearth/internal/game/authority"
	"github.com/cory-johannsen/hearth/internal/game/entity"
)

// Runner applies a function on the world authority. *authority.Authority
// satisfies it.
type Runner interface {
	Do(ctx context.Context, fn func(*authority.World)) error
}

// Step runs one tick against the world. It returns the delay until the next
// tick, or false to end the job.
type Step func(w *authority.World) (time.Duration, bool)

// JobKind distinguishes the jobs an object may have.
type JobKind string

const (
	JobThink  JobKind = "think"
	JobSpawn  JobKind = "spawn"
	JobAttack JobKind = "attack"
)

type jobKey struct {
	kind JobKind
	id   entity.ID
}

type job struct {
	gen    uint64
	cancel context.CancelFunc
}

// Scheduler runs one goroutine per job. Starting a job replaces any running
// job with the same kind and object.
//
// Invariant: at most one job runs per (kind, object) pair.
type Scheduler struct {
	runner Runner
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	jobs    map[jobKey]job
	nextGen uint64
	stopped bool
	wg      sync.WaitGroup
}

// New creates a Scheduler that runs steps through runner.
//
// Precondition: runner and logger must be non-nil.
func New(runner Runner, logger *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		runner: runner,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[jobKey]job),
	}
}

// SetRunner replaces the runner so the scheduler can be built before the
// authority it feeds. Jobs already running keep the runner they started with.
func (s *Scheduler) SetRunner(r Runner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runner = r
}

// Track starts the job that drives obj: a spawn job for spawners, a think job
// for mobiles. Objects with neither are ignored. Track never blocks.
func (s *Scheduler) Track(obj *entity.Object) {
	id := obj.ID
	switch {
	case obj.Spawner != nil:
		// Spawners fire immediately so a fresh world is populated at boot.
		s.Start(JobSpawn, id, 0, func(w *authority.World) (time.Duration, bool) { return w.Spawn(id) })
	case obj.Mobile != nil:
		s.Start(JobThink, id, obj.Mobile.ThinkInterval, func(w *authority.World) (time.Duration, bool) { return w.Think(id) })
	}
}

// Engage starts the auto-attack job of player id. The first round is immediate.
func (s *Scheduler) Engage(id entity.ID) {
	s.Start(JobAttack, id, 0, func(w *authority.World) (time.Duration, bool) { return w.AutoAttack(id) })
}

// Start runs step for object id after delay and then after every delay step
// returns, until step returns false or the scheduler stops.
func (s *Scheduler) Start(kind JobKind, id entity.ID, delay time.Duration, step Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	key := jobKey{kind: kind, id: id}
	if old, ok := s.jobs[key]; ok {
		old.cancel()
	}
	s.nextGen++
	ctx, cancel := context.WithCancel(s.ctx)
	j := job{gen: s.nextGen, cancel: cancel}
	s.jobs[key] = j
	s.wg.Add(1)
	go s.run(ctx, s.runner, key, j.gen, delay, step)
}

func (s *Scheduler) run(ctx context.Context, runner Runner, key jobKey, gen uint64, delay time.Duration, step Step) {
	defer s.wg.Done()
	defer s.release(key, gen)

	log := s.logger.With(zap.String("job", string(key.kind)), zap.Uint64("object_id", uint64(key.id)))
	timer := time.NewTimer(delay)
	defer timer.Stop()
	last := delay
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		// After a ctx error step may still run; its results are not read.
		var next time.Duration
		var more bool
		err := runner.Do(ctx, func(w *authority.World) { next, more = step(w) })
		switch {
		case err == nil:
		case errors.Is(err, authority.ErrStopped), ctx.Err() != nil:
			return
		default:
			log.Warn("job step failed", zap.Error(err))
			next, more = last, true
		}
		if !more {
			return
		}
		if next <= 0 {
			next = time.Second
		}
		last = next
		timer.Reset(next)
	}
}

func (s *Scheduler) release(key jobKey, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[key]; ok && j.gen == gen {
		j.cancel()
		delete(s.jobs, key)
	}
}

// Running reports whether a job of kind is running for id.
func (s *Scheduler) Running(kind JobKind, id entity.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[jobKey{kind: kind, id: id}]
	return ok
}

// Count returns the number of running jobs.
func (s *Scheduler) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Stop cancels every job and waits for their goroutines to return. Jobs
// started afterwards are ignored.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}
