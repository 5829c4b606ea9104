// Package authority owns the shared world. Every read and mutation of world
// state runs on a single goroutine, in the order requests arrive.
package authority

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrStopped is returned by Do once the authority loop has stopped.
	ErrStopped = errors.New("authority stopped")
	// ErrPanic wraps a panic recovered from a world operation.
	ErrPanic = errors.New("world operation panicked")
)

type request struct {
	fn   func(*World)
	done chan error
}

// Authority serializes access to a World.
type Authority struct {
	world  *World
	logger *zap.Logger

	reqs     chan request
	quit     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
	runOnce  sync.Once
}

// New creates an Authority for w. The loop does not run until Run is called.
//
// Precondition: w and logger must be non-nil.
func New(w *World, logger *zap.Logger) *Authority {
	return &Authority{
		world:   w,
		logger:  logger,
		reqs:    make(chan request),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// World returns the owned world for setup before Run starts. Once Run has
// been called the world must only be touched through Do.
func (a *Authority) World() *World {
	return a.world
}

// Run applies requests until Stop is called or ctx is done. Run may only be
// called once; later calls return ErrStopped immediately.
func (a *Authority) Run(ctx context.Context) error {
	started := false
	a.runOnce.Do(func() { started = true })
	if !started {
		return ErrStopped
	}
	defer close(a.stopped)
	a.logger.Info("world authority running")
	for {
		select {
		case r := <-a.reqs:
			r.done <- a.apply(r.fn)
		case <-a.quit:
			a.logger.Info("world authority stopped")
			return nil
		case <-ctx.Done():
			a.Stop()
		}
	}
}

// Stop ends the loop. Requests already accepted have completed when Run
// returns; later calls to Do fail with ErrStopped. Stop is idempotent.
func (a *Authority) Stop() {
	a.stopOnce.Do(func() { close(a.quit) })
}

// Done is closed once Run has returned.
func (a *Authority) Done() <-chan struct{} {
	return a.stopped
}

// Do runs fn on the authority goroutine and waits for it to finish.
//
// Precondition: fn must not call Do; it runs on the loop and would deadlock.
// Postcondition: Returns nil after fn completed, ErrPanic (wrapped) if fn
// panicked, ErrStopped if the loop is not running, or ctx.Err().
//
// A ctx error does not mean fn was skipped: a request accepted before ctx
// ended still runs to completion on the loop. Callers that must know the
// outcome pass a context that is not cancelled, such as
// context.WithoutCancel(ctx).
func (a *Authority) Do(ctx context.Context, fn func(*World)) error {
	r := request{fn: fn, done: make(chan error, 1)}
	select {
	case a.reqs <- r:
	case <-a.quit:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-r.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Authority) apply(fn func(*World)) (err error) {
	defer func() {
		if p := recover(); p != nil {
			a.logger.Error("world operation panicked",
				zap.Any("panic", p),
				zap.Stack("stack"),
			)
			err = fmt.Errorf("%w: %v", ErrPanic, p)
		}
	}()
	fn(a.world)
	return nil
}
