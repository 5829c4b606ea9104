// Package session runs one connected client: its line protocol, its login
// state machine and its non-blocking outbound queue.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/hearth/internal/frontend/telnet"
	"github.com/cory-johannsen/hearth/internal/game/authority"
	"github.com/cory-johannsen/hearth/internal/game/command"
	"github.com/cory-johannsen/hearth/internal/game/entity"
)

// State is the protocol state of a session.
type State int

const (
	// StateLogin waits for a player name.
	StateLogin State = iota
	// StatePlay routes lines to the command interpreter.
	StatePlay
)

func (s State) String() string {
	if s == StatePlay {
		return "play"
	}
	return "login"
}

// Reason records why a session ended. It only affects logging.
type Reason string

const (
	ReasonQuit      Reason = "quit"
	ReasonTimeout   Reason = "timeout"
	ReasonTransport Reason = "transport"
	ReasonOverflow  Reason = "outbox full"
	ReasonShutdown  Reason = "shutdown"
)

// Runner applies a function on the world authority.
type Runner interface {
	Do(ctx context.Context, fn func(*authority.World)) error
}

// Executor runs a command line for an active player.
type Executor interface {
	Execute(ctx context.Context, id entity.ID, line string) (command.Result, error)
}

// Options are the per-session settings taken from configuration.
type Options struct {
	// Banner is sent on connect, before the name question.
	Banner string
	// WrapWidth is the terminal width used to wrap output.
	WrapWidth int
	// OutboxSize bounds the queue of unsent output.
	OutboxSize int
	// FlushTimeout bounds how long a closing session waits for queued output.
	FlushTimeout time.Duration
	// OnShutdown is called when an admin asks the server to shut down.
	OnShutdown func()
}

const namePrompt = "What is your name? "

// maxLine bounds how much unterminated input a session buffers.
const maxLine = 4096

// outMsg is one queued write. A message with ack set is a flush marker: the
// writer closes ack once everything before it has been written.
type outMsg struct {
	text string
	ack  chan struct{}
}

// Session is one connected client. It implements authority.Sink.
type Session struct {
	id     string
	conn   *telnet.Conn
	runner Runner
	exec   Executor
	opts   Options
	logger *zap.Logger

	outbox chan outMsg
	dead   chan struct{}

	mu       sync.Mutex
	reason   Reason
	state    State
	playerID entity.ID
	player   string

	filter telnet.Filter
	buf    []byte
}

// New creates a session for conn. Nothing is read or written until Serve.
//
// Precondition: conn, runner, exec and logger must be non-nil.
func New(conn *telnet.Conn, runner Runner, exec Executor, opts Options, logger *zap.Logger) *Session {
	if opts.WrapWidth <= telnet.Margin {
		opts.WrapWidth = 80
	}
	if opts.OutboxSize <= 0 {
		opts.OutboxSize = 256
	}
	if opts.FlushTimeout <= 0 {
		opts.FlushTimeout = 2 * time.Second
	}
	id := uuid.NewString()
	return &Session{
		id:     id,
		conn:   conn,
		runner: runner,
		exec:   exec,
		opts:   opts,
		logger: logger.With(zap.String("session", id), zap.String("remote_addr", conn.RemoteAddr().String())),
		outbox: make(chan outMsg, opts.OutboxSize),
		dead:   make(chan struct{}),
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// State returns the current protocol state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PlayerID returns the bound player, or 0 before login.
func (s *Session) PlayerID() entity.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerID
}

// Disconnected reports whether the session has ended or is ending.
func (s *Session) Disconnected() bool {
	select {
	case <-s.dead:
		return true
	default:
		return false
	}
}

// Send queues text for the client, word-wrapped with CRLF line endings. It
// never blocks: a full queue disconnects the session, and output to a
// disconnected session is dropped.
func (s *Session) Send(text string) {
	if s.Disconnected() {
		return
	}
	select {
	case s.outbox <- outMsg{text: telnet.Wrap(text, s.opts.WrapWidth)}:
	default:
		s.disconnect(ReasonOverflow)
	}
}

// disconnect marks the session dead with reason and closes the connection so
// a blocked read returns. The first reason wins.
func (s *Session) disconnect(reason Reason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reason != "" {
		return
	}
	s.reason = reason
	close(s.dead)
	_ = s.conn.Close()
}

func (s *Session) endReason() Reason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Close ends the session with reason.
func (s *Session) Close(reason Reason) {
	s.disconnect(reason)
}

// Serve runs the session until the client quits, times out or fails, or ctx
// is cancelled. On return the player has been released and the connection
// closed.
func (s *Session) Serve(ctx context.Context) Reason {
	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.writeLoop()
	}()
	stopWatch := make(chan struct{})
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			s.disconnect(ReasonShutdown)
		case <-stopWatch:
		}
	}()

	s.logger.Info("session started")
	s.Send(s.opts.Banner + "\n")
	s.Send(namePrompt)

	reason := s.readLoop(ctx)
	s.release()
	if reason == ReasonQuit || reason == ReasonTimeout {
		s.flush()
	}
	s.disconnect(reason)
	close(stopWatch)
	wg.Wait()

	reason = s.endReason()
	s.logger.Info("session ended",
		zap.String("reason", string(reason)),
		zap.String("player", s.playerName()),
		zap.Duration("duration", time.Since(start)),
	)
	return reason
}

func (s *Session) playerName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player
}

func (s *Session) readLoop(ctx context.Context) Reason {
	tmp := make([]byte, 1024)
	for {
		n, err := s.conn.Read(tmp)
		if n > 0 {
			if reason, done := s.Submit(ctx, tmp[:n]); done {
				return reason
			}
		}
		if err != nil {
			if r := s.endReason(); r != "" {
				return r
			}
			if telnet.IsTimeout(err) {
				s.Send("You have been idle too long. Goodbye.\n")
				return ReasonTimeout
			}
			s.logger.Debug("read failed", zap.Error(err))
			return ReasonTransport
		}
	}
}

// Submit feeds raw client bytes into the session. Telnet commands are
// removed and every CR, LF or NUL ends a line; empty lines are ignored. It
// reports true when a line ended the session.
func (s *Session) Submit(ctx context.Context, raw []byte) (Reason, bool) {
	s.buf = s.filter.Write(s.buf, raw)
	if len(s.buf) > maxLine && indexLineEnd(s.buf) < 0 {
		s.buf = s.buf[:0]
		s.Send("That line is too long.\n")
	}
	for {
		i := indexLineEnd(s.buf)
		if i < 0 {
			return "", false
		}
		line := strings.TrimSpace(string(s.buf[:i]))
		s.buf = s.buf[i+1:]
		if line == "" {
			continue
		}
		if reason, done := s.handleLine(ctx, line); done {
			return reason, true
		}
	}
}

func indexLineEnd(b []byte) int {
	for i, c := range b {
		if c == '\n' || c == '\r' || c == 0 {
			return i
		}
	}
	return -1
}

func (s *Session) handleLine(ctx context.Context, line string) (Reason, bool) {
	if s.Disconnected() {
		return s.endReason(), true
	}
	if s.State() == StateLogin {
		return s.login(ctx, line)
	}

	res, err := s.exec.Execute(ctx, s.PlayerID(), line)
	switch {
	case err == nil:
	case errors.Is(err, authority.ErrPanic):
		s.Send("Something went wrong.\n")
		return "", false
	default:
		s.logger.Debug("command not run", zap.Error(err))
		return ReasonShutdown, true
	}
	if res.Shutdown && s.opts.OnShutdown != nil {
		s.logger.Warn("shutdown requested", zap.String("player", s.playerName()))
		s.opts.OnShutdown()
	}
	if res.Quit {
		return ReasonQuit, true
	}
	return "", false
}

func (s *Session) login(ctx context.Context, line string) (Reason, bool) {
	fields := strings.Fields(line)
	name, password := fields[0], ""
	if len(fields) > 1 {
		password = fields[1]
	}

	if ctx.Err() != nil {
		return ReasonShutdown, true
	}
	// Once queued the login must be waited out: an activated player whose
	// id the session never learns could not be released.
	var p *entity.Object
	var loginErr error
	err := s.runner.Do(context.WithoutCancel(ctx), func(w *authority.World) {
		p, loginErr = w.Activate(name, password, s)
		if loginErr != nil {
			return
		}
		w.Tell(p.ID, fmt.Sprintf("Welcome, %s!", p.Name))
		w.Tell(p.ID, w.DescribeRoom(p))
		w.Prompt(p.ID)
	})
	if err != nil {
		s.logger.Debug("login not run", zap.Error(err))
		return ReasonShutdown, true
	}

	switch {
	case loginErr == nil:
		s.mu.Lock()
		s.state = StatePlay
		s.playerID = p.ID
		s.player = p.Name
		s.mu.Unlock()
		s.logger.Info("player logged in", zap.String("player", p.Name), zap.Uint64("object_id", uint64(p.ID)))
		if ctx.Err() != nil {
			return ReasonShutdown, true
		}
		return "", false
	case errors.Is(loginErr, authority.ErrBadName):
		s.Send("Names are 2 to 16 letters with no spaces or digits.\n")
	case errors.Is(loginErr, authority.ErrAlreadyActive):
		s.Send("That player is already in the world.\n")
	case errors.Is(loginErr, authority.ErrBadPassword):
		s.logger.Info("wrong password", zap.String("player", name))
		s.Send("Wrong password. Log in with: <name> <password>\n")
	default:
		s.logger.Error("login failed", zap.String("player", name), zap.Error(loginErr))
		s.Send("You cannot log in right now.\n")
	}
	s.Send(namePrompt)
	return "", false
}

// release deactivates the bound player. It uses its own context because the
// session context may already be cancelled.
func (s *Session) release() {
	id := s.PlayerID()
	if id == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.runner.Do(ctx, func(w *authority.World) { w.Deactivate(id) }); err != nil {
		s.logger.Warn("releasing player", zap.Uint64("object_id", uint64(id)), zap.Error(err))
	}
}

// flush waits until output queued so far has been written, the session dies
// or the flush timeout passes.
func (s *Session) flush() {
	ack := make(chan struct{})
	select {
	case s.outbox <- outMsg{ack: ack}:
	default:
		return
	}
	timer := time.NewTimer(s.opts.FlushTimeout)
	defer timer.Stop()
	select {
	case <-ack:
	case <-s.dead:
	case <-timer.C:
	}
}

func (s *Session) writeLoop() {
	for {
		select {
		case msg := <-s.outbox:
			if msg.ack != nil {
				close(msg.ack)
				continue
			}
			if err := s.conn.WriteString(msg.text); err != nil {
				s.disconnect(ReasonTransport)
				return
			}
		case <-s.dead:
			return
		}
	}
}
