// Package server runs the process's long-lived services and tears them down
// in reverse order on a signal, an operator request or a service failure.
package server

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Service is a long-running component. Start blocks until the service stops
// or fails; Stop returns once it has terminated.
type Service interface {
	Start() error
	Stop()
}

// FuncService adapts a start/stop function pair into a Service.
type FuncService struct {
	StartFn func() error
	StopFn  func()
}

func (f *FuncService) Start() error { return f.StartFn() }
func (f *FuncService) Stop()        { f.StopFn() }

// DefaultStopWarning is how long a Stop may take before it is logged as slow.
const DefaultStopWarning = 5 * time.Second

// Lifecycle starts services in the order they were added and stops them in
// reverse.
type Lifecycle struct {
	// StopWarning overrides DefaultStopWarning when positive.
	StopWarning time.Duration

	logger   *zap.Logger
	mu       sync.Mutex
	services []named
	requests chan string
	once     sync.Once
	stopping atomic.Bool
}

type named struct {
	name string
	svc  Service
}

// NewLifecycle creates an empty Lifecycle.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{logger: logger, requests: make(chan string, 1)}
}

// Add registers svc under name. Services added after Run starts are ignored.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, named{name: name, svc: svc})
}

// Shutdown asks a running Lifecycle to stop. Only the first reason is kept
// and the call never blocks.
func (l *Lifecycle) Shutdown(reason string) {
	l.once.Do(func() { l.requests <- reason })
}

// Run starts every service and waits for SIGINT, SIGTERM, Shutdown, ctx
// cancellation or the first service failure. It then stops all services and
// returns the failure, if any. Errors a service returns while being stopped
// are logged only.
//
// Postcondition: every service's Stop has returned.
func (l *Lifecycle) Run(ctx context.Context) error {
	began := time.Now()
	ctx, unhook := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer unhook()

	l.mu.Lock()
	services := append([]named(nil), l.services...)
	l.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range services {
		g.Go(func() error { return l.serve(s) })
	}
	l.logger.Info("services started", zap.Int("count", len(services)))

	select {
	case reason := <-l.requests:
		l.logger.Info("shutdown requested", zap.String("reason", reason))
	case <-gctx.Done():
		l.logger.Info("shutting down", zap.NamedError("cause", context.Cause(gctx)))
	}

	l.stopping.Store(true)
	l.stopAll(services)
	err := g.Wait()
	l.logger.Info("shutdown complete", zap.Duration("uptime", time.Since(began)))
	return err
}

func (l *Lifecycle) serve(s named) error {
	log := l.logger.With(zap.String("service", s.name))
	log.Info("starting service")
	began := time.Now()
	err := s.svc.Start()
	if err == nil {
		return nil
	}
	if l.stopping.Load() {
		log.Warn("service returned an error while stopping", zap.Error(err))
		return nil
	}
	log.Error("service failed", zap.Error(err), zap.Duration("uptime", time.Since(began)))
	return fmt.Errorf("service %s: %w", s.name, err)
}

func (l *Lifecycle) stopAll(services []named) {
	warnAfter := DefaultStopWarning
	if l.StopWarning > 0 {
		warnAfter = l.StopWarning
	}
	for i := len(services) - 1; i >= 0; i-- {
		s := services[i]
		log := l.logger.With(zap.String("service", s.name))
		began := time.Now()
		slow := time.AfterFunc(warnAfter, func() {
			log.Warn("service slow to stop", zap.Duration("waited", time.Since(began)))
		})
		s.svc.Stop()
		slow.Stop()
		log.Info("service stopped", zap.Duration("elapsed", time.Since(began)))
	}
}
