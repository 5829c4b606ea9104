package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/hearth/internal/config"
	"github.com/cory-johannsen/hearth/internal/frontend/telnet"
)

// OptionsFromConfig builds session options from the server and telnet sections.
func OptionsFromConfig(server config.ServerConfig, tc config.TelnetConfig) Options {
	banner := telnet.Paint(telnet.Banner, "Welcome to "+server.Name+"!")
	if motd := strings.TrimSpace(server.MOTD); motd != "" {
		banner += "\n" + motd
	}
	return Options{
		Banner:     banner,
		WrapWidth:  tc.WrapWidth,
		OutboxSize: tc.OutboxSize,
	}
}

// Manager tracks every live session. It implements telnet.SessionHandler.
// All methods are safe for concurrent use.
type Manager struct {
	runner Runner
	exec   Executor
	opts   Options
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	wg       sync.WaitGroup
}

// NewManager creates an empty Manager whose sessions use runner, exec and opts.
//
// Precondition: runner, exec and logger must be non-nil.
func NewManager(runner Runner, exec Executor, opts Options, logger *zap.Logger) *Manager {
	return &Manager{
		runner:   runner,
		exec:     exec,
		opts:     opts,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// HandleSession serves one connection until it ends.
//
// Postcondition: The session is unregistered and its player released.
func (m *Manager) HandleSession(ctx context.Context, conn *telnet.Conn) error {
	s := New(conn, m.runner, m.exec, m.opts, m.logger)
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.wg.Add(1)
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.sessions, s.ID())
		m.mu.Unlock()
		m.wg.Done()
	}()

	switch reason := s.Serve(ctx); reason {
	case ReasonTransport, ReasonOverflow:
		return fmt.Errorf("session %s: %s", s.ID(), reason)
	}
	return nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Players returns the names of the logged-in players, in no particular order.
func (m *Manager) Players() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for _, s := range m.sessions {
		if name := s.playerName(); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// CloseAll ends every live session with reason.
func (m *Manager) CloseAll(reason Reason) {
	m.mu.Lock()
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.mu.Unlock()
	for _, s := range live {
		s.Close(reason)
	}
	if len(live) > 0 {
		m.logger.Info("sessions closed", zap.Int("count", len(live)), zap.String("reason", string(reason)))
	}
}

// Wait blocks until every session goroutine has returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}
