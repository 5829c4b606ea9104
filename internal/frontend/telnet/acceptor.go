package telnet

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/hearth/internal/config"
)

// ErrRunning is returned by Start when the acceptor is already listening.
var ErrRunning = errors.New("telnet acceptor already running")

// SessionHandler runs one client's session. It must return once ctx is
// cancelled.
type SessionHandler interface {
	HandleSession(ctx context.Context, conn *Conn) error
}

// Acceptor accepts TCP clients and hands each to a SessionHandler. It can be
// stopped and started again; each start is an independent run.
type Acceptor struct {
	cfg     config.TelnetConfig
	handler SessionHandler
	logger  *zap.Logger

	mu  sync.Mutex
	cur *run
}

// run is one Start..Stop span. Stop cancels ctx, which ends every session
// the run accepted.
type run struct {
	ln     net.Listener
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAcceptor returns a stopped Acceptor.
//
// Precondition: handler and logger must be non-nil.
func NewAcceptor(cfg config.TelnetConfig, handler SessionHandler, logger *zap.Logger) *Acceptor {
	return &Acceptor{cfg: cfg, handler: handler, logger: logger}
}

// Start binds the configured address and accepts in the background. It
// returns ErrRunning if a run is active.
func (a *Acceptor) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cur != nil {
		return ErrRunning
	}
	ln, err := net.Listen("tcp", a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.cfg.Addr(), err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &run{ln: ln, cancel: cancel}
	a.cur = r

	r.wg.Add(1)
	go a.accept(ctx, r)
	a.logger.Info("telnet acceptor listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// accept loops until the listener closes. Transient errors such as running
// out of file descriptors back off up to one second.
func (a *Acceptor) accept(ctx context.Context, r *run) {
	defer r.wg.Done()
	var backoff time.Duration
	for {
		raw, err := r.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			backoff = min(max(2*backoff, 5*time.Millisecond), time.Second)
			a.logger.Error("accepting connection", zap.Error(err), zap.Duration("retry_in", backoff))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			continue
		}
		backoff = 0
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			a.serve(ctx, raw)
		}()
	}
}

func (a *Acceptor) serve(ctx context.Context, raw net.Conn) {
	log := a.logger.With(zap.String("remote_addr", raw.RemoteAddr().String()))
	began := time.Now()
	conn := NewConn(raw, a.cfg.IdleTimeout, a.cfg.WriteTimeout)
	defer conn.Close()

	if err := conn.Negotiate(); err != nil {
		log.Warn("telnet negotiation failed", zap.Error(err))
		return
	}
	err := a.handler.HandleSession(ctx, conn)
	log.Debug("connection closed", zap.Error(err), zap.Duration("duration", time.Since(began)))
}

// Stop closes the listener, cancels the sessions of the current run and
// waits for them. Stopping a stopped acceptor does nothing.
func (a *Acceptor) Stop() {
	a.mu.Lock()
	r := a.cur
	a.cur = nil
	a.mu.Unlock()
	if r == nil {
		return
	}
	r.cancel()
	_ = r.ln.Close()
	r.wg.Wait()
	a.logger.Info("telnet acceptor stopped")
}

// Addr returns the bound address, or "" while stopped.
func (a *Acceptor) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cur == nil {
		return ""
	}
	return a.cur.ln.Addr().String()
}

// IsRunning reports whether a run is active.
func (a *Acceptor) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cur != nil
}
