package session_test

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/cory-johannsen/hearth/internal/config"
	"github.com/cory-johannsen/hearth/internal/frontend/telnet"
	"github.com/cory-johannsen/hearth/internal/game/authority"
	"github.com/cory-johannsen/hearth/internal/game/command"
	"github.com/cory-johannsen/hearth/internal/game/dice"
	"github.com/cory-johannsen/hearth/internal/game/entity"
	"github.com/cory-johannsen/hearth/internal/game/session"
	"github.com/cory-johannsen/hearth/internal/game/world"
	"github.com/cory-johannsen/hearth/internal/testutil"
)

const hamletYAML = `
zone:
  id: hamlet
  name: Hamlet
  start_room: square
  rooms:
    - id: square
      name: Village Square
      description: Cobbles and a dry fountain.
      exits:
        - direction: north
          to: bakery
    - id: bakery
      name: Bakery
      description: Warm and floury.
      exits:
        - direction: south
          to: square
`

type env struct {
	auth     *authority.Authority
	sessions *session.Manager
	acceptor *telnet.Acceptor
	shutdown atomic.Int32
}

// startAuthority runs an authority over the hamlet zone until the test ends.
func startAuthority(t *testing.T, logger *zap.Logger, hashCost int) *authority.Authority {
	t.Helper()
	zone, err := world.LoadZoneFromBytes([]byte(hamletYAML))
	require.NoError(t, err)
	rooms, err := world.NewManager([]*world.Zone{zone})
	require.NoError(t, err)
	cfg := authority.Config{
		Admins:      []string{"Root"},
		PlayerMaxHP: 20,
		PlayerThink: time.Hour,
	}
	w := authority.NewWorld(rooms, cfg, dice.NewRoller(dice.NewSeededSource(1), logger), logger,
		authority.WithHashCost(hashCost))
	auth := authority.New(w, logger)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = auth.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-auth.Done()
	})
	return auth
}

func newEnv(t *testing.T, idle time.Duration, logger *zap.Logger) *env {
	t.Helper()
	if logger == nil {
		logger = zaptest.NewLogger(t)
	}
	auth := startAuthority(t, logger, bcrypt.MinCost)

	e := &env{auth: auth}
	tc := config.TelnetConfig{
		Host:         "127.0.0.1",
		IdleTimeout:  idle,
		WriteTimeout: 5 * time.Second,
		WrapWidth:    80,
		OutboxSize:   64,
	}
	opts := session.OptionsFromConfig(config.ServerConfig{Name: "Hearth", MOTD: "Mind the rats."}, tc)
	opts.OnShutdown = func() { e.shutdown.Add(1) }
	interp := command.NewInterpreter(auth, command.DefaultRegistry(), logger)
	e.sessions = session.NewManager(auth, interp, opts, logger)
	e.acceptor = telnet.NewAcceptor(tc, e.sessions, logger)
	require.NoError(t, e.acceptor.Start())

	t.Cleanup(func() {
		e.acceptor.Stop()
		e.sessions.Wait()
	})
	return e
}

func (e *env) connect(t *testing.T) *testutil.TelnetClient {
	t.Helper()
	c := testutil.NewTelnetClient(t, e.acceptor.Addr())
	c.ReadUntil("What is your name? ", 2*time.Second)
	return c
}

func (e *env) login(t *testing.T, name string) *testutil.TelnetClient {
	t.Helper()
	c := e.connect(t)
	c.Send(name)
	c.ReadUntil("HP: 20/20> ", 2*time.Second)
	return c
}

func (e *env) active(t *testing.T, name string) bool {
	t.Helper()
	return isActive(t, e.auth, name)
}

func isActive(t *testing.T, auth *authority.Authority, name string) bool {
	t.Helper()
	var active bool
	require.NoError(t, auth.Do(context.Background(), func(w *authority.World) {
		if p, ok := w.Player(name); ok {
			active = w.IsActive(p.ID)
		}
	}))
	return active
}

func TestSession_BannerAndLogin(t *testing.T) {
	e := newEnv(t, 5*time.Second, nil)
	c := testutil.NewTelnetClient(t, e.acceptor.Addr())

	out := c.ReadUntil("What is your name? ", 2*time.Second)
	assert.Contains(t, out, "Welcome to Hearth!")
	assert.Contains(t, out, "Mind the rats.\r\n")

	c.Send("alice")
	out = c.ReadUntil("> ", 2*time.Second)
	assert.Contains(t, out, "Welcome, Alice!\r\n")
	assert.Contains(t, out, "Village Square")
	assert.Contains(t, out, "Lvl: 1 (100%) HP: 20/20> ")
	assert.True(t, e.active(t, "alice"))
	assert.Equal(t, 1, e.sessions.Count())
	assert.Equal(t, []string{"Alice"}, e.sessions.Players())
}

func TestSession_RejectsBadNames(t *testing.T) {
	e := newEnv(t, 5*time.Second, nil)
	c := e.connect(t)

	c.Send("r2d2")
	out := c.ReadUntil("What is your name? ", 2*time.Second)
	assert.Contains(t, out, "Names are 2 to 16 letters")

	c.Send("Arthur")
	c.ReadUntil("Welcome, Arthur!", 2*time.Second)
}

func TestSession_PasswordAndDuplicateLogin(t *testing.T) {
	e := newEnv(t, 5*time.Second, nil)

	alice := e.connect(t)
	alice.Send("alice s3cret")
	alice.ReadUntil("Welcome, Alice!", 2*time.Second)

	again := e.connect(t)
	again.Send("alice s3cret")
	assert.Contains(t, again.ReadUntil("What is your name? ", 2*time.Second), "already in the world")

	alice.Send("quit")
	alice.WaitClosed(2 * time.Second)
	require.Eventually(t, func() bool { return !e.active(t, "alice") }, 2*time.Second, 10*time.Millisecond)

	again.Send("alice guess")
	assert.Contains(t, again.ReadUntil("What is your name? ", 2*time.Second), "Wrong password.")
	again.Send("alice s3cret")
	again.ReadUntil("Welcome, Alice!", 2*time.Second)
}

func TestSession_QuitReleasesPlayer(t *testing.T) {
	e := newEnv(t, 5*time.Second, nil)
	alice := e.login(t, "alice")
	bob := e.login(t, "bob")

	alice.Send("quit")
	rest := alice.WaitClosed(2 * time.Second)
	assert.Contains(t, rest, "Goodbye.\r\n")

	bob.ReadUntil("Alice has left the world.", 2*time.Second)
	require.Eventually(t, func() bool { return e.sessions.Count() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, e.active(t, "alice"))
	assert.True(t, e.active(t, "bob"))
}

func TestSession_IdleTimeoutDisconnectsAndDeactivates(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	e := newEnv(t, 200*time.Millisecond, zap.New(core))
	alice := e.login(t, "alice")
	require.True(t, e.active(t, "alice"))

	rest := alice.WaitClosed(3 * time.Second)
	assert.Contains(t, rest, "You have been idle too long.")
	require.Eventually(t, func() bool { return !e.active(t, "alice") }, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		for _, entry := range logs.FilterMessage("session ended").All() {
			if entry.ContextMap()["reason"] == string(session.ReasonTimeout) {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSession_BroadcastsReachOtherSessions(t *testing.T) {
	e := newEnv(t, 5*time.Second, nil)
	alice := e.login(t, "alice")
	bob := e.login(t, "bob")
	alice.ReadUntil("Bob has entered the world.", 2*time.Second)

	alice.Send("say hello, bob")
	bob.ReadUntil(`Alice says, "hello, bob"`, 2*time.Second)

	bob.Send("n")
	alice.ReadUntil("Bob leaves north.", 2*time.Second)
}

func TestSession_ShutdownCommand(t *testing.T) {
	e := newEnv(t, 5*time.Second, nil)
	root := e.login(t, "root")

	root.Send("shutdown")
	root.ReadUntil("Root is shutting the server down.", 2*time.Second)
	require.Eventually(t, func() bool { return e.shutdown.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestManager_CloseAllEndsSessions(t *testing.T) {
	e := newEnv(t, 5*time.Second, nil)
	clients := []*testutil.TelnetClient{e.login(t, "alice"), e.login(t, "bob"), e.connect(t)}
	require.Eventually(t, func() bool { return e.sessions.Count() == 3 }, 2*time.Second, 10*time.Millisecond)

	e.sessions.CloseAll(session.ReasonShutdown)
	for _, c := range clients {
		c.WaitClosed(2 * time.Second)
	}
	e.sessions.Wait()
	assert.Zero(t, e.sessions.Count())
	assert.False(t, e.active(t, "alice"))
	assert.False(t, e.active(t, "bob"))
}

// Clients moving concurrently never leave a player missing from or
// duplicated in the room indexes.
func TestSession_ConcurrentMovementKeepsOccupancy(t *testing.T) {
	e := newEnv(t, 5*time.Second, nil)
	names := []string{"Anna", "Bert", "Cara", "Dirk", "Emma"}

	var wg sync.WaitGroup
	for i, name := range names {
		c := e.login(t, name)
		wg.Add(1)
		go func(c *testutil.TelnetClient, moves int) {
			defer wg.Done()
			dirs := []string{"n", "s"}
			for m := 0; m < moves; m++ {
				c.Send(dirs[m%2])
			}
			c.Send("who")
		}(c, 7+i)
		defer func(c *testutil.TelnetClient) { c.ReadUntil("players online.", 5*time.Second) }(c)
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		var square, bakery []*entity.Object
		_ = e.auth.Do(context.Background(), func(w *authority.World) {
			square = w.PlayersInRoom("square")
			bakery = w.PlayersInRoom("bakery")
		})
		return len(square) == 2 && len(bakery) == 3
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, e.auth.Do(context.Background(), func(w *authority.World) {
		seen := map[entity.ID]int{}
		for _, room := range []string{"square", "bakery"} {
			for _, p := range w.PlayersInRoom(room) {
				seen[p.ID]++
				assert.Equal(t, room, p.RoomID)
			}
		}
		assert.Len(t, seen, len(names))
		for id, n := range seen {
			assert.Equal(t, 1, n, "player %d indexed %d times", id, n)
		}
	}))
}

func TestSession_SubmitSplitsLinesAndFiltersTelnet(t *testing.T) {
	e := newEnv(t, 5*time.Second, nil)
	server, client := net.Pipe()
	t.Cleanup(func() { _ = client.Close() })

	interp := command.NewInterpreter(e.auth, command.DefaultRegistry(), zaptest.NewLogger(t))
	s := session.New(telnet.NewConn(server, time.Second, time.Second), e.auth, interp,
		session.Options{OutboxSize: 64}, zaptest.NewLogger(t))
	ctx := context.Background()

	_, done := s.Submit(ctx, []byte{'\r', '\n', 0, 'g', telnet.IAC, telnet.WILL, telnet.OptEcho, 'w'})
	assert.False(t, done)
	assert.Equal(t, session.StateLogin, s.State(), "no line has ended yet")

	_, done = s.Submit(ctx, []byte("en\r\nlook\r\n"))
	assert.False(t, done)
	assert.Equal(t, session.StatePlay, s.State())
	assert.True(t, e.active(t, "gwen"))

	reason, done := s.Submit(ctx, []byte("quit\n"))
	assert.True(t, done)
	assert.Equal(t, session.ReasonQuit, reason)
}

func TestSession_FullOutboxDisconnects(t *testing.T) {
	server, client := net.Pipe()
	t.Cleanup(func() { _ = client.Close() })

	s := session.New(telnet.NewConn(server, time.Second, time.Second), nil, nil,
		session.Options{OutboxSize: 2}, zaptest.NewLogger(t))
	for i := 0; i < 3; i++ {
		assert.False(t, s.Disconnected(), "message %d", i)
		s.Send(fmt.Sprintf("line %d\n", i))
	}
	assert.True(t, s.Disconnected())
	s.Send("dropped\n")
}

func TestSession_SendWrapsWithCRLF(t *testing.T) {
	e := newEnv(t, 5*time.Second, nil)
	alice := e.login(t, "alice")

	alice.Send("say " + strings.Repeat("word ", 30))
	out := alice.ReadUntil("> ", 2*time.Second)
	for _, line := range strings.Split(out, "\r\n") {
		assert.LessOrEqual(t, telnet.VisibleWidth(line), 79, "line %q", line)
	}
}

func TestSession_PromptsKeepTrailingSpace(t *testing.T) {
	e := newEnv(t, 5*time.Second, nil)
	c := testutil.NewTelnetClient(t, e.acceptor.Addr())
	out := c.ReadUntil("name?", 2*time.Second)
	if !strings.HasSuffix(out, "What is your name? ") {
		out += c.ReadUntil(" ", time.Second)
	}
	assert.True(t, strings.HasSuffix(out, "What is your name? "), "got %q", out)

	c.Send("alice")
	out = c.ReadUntil("HP: 20/20>", 2*time.Second)
	if !strings.HasSuffix(out, "> ") {
		out += c.ReadUntil(" ", time.Second)
	}
	assert.Regexp(t, `Lvl: 1 \(\d+%\) HP: 20/20> $`, out)
}

// cancelInside cancels the caller's context from inside the authority loop,
// so the operation is accepted before its context ends.
type cancelInside struct {
	*authority.Authority
	cancel context.CancelFunc
}

func (c cancelInside) Do(ctx context.Context, fn func(*authority.World)) error {
	return c.Authority.Do(ctx, func(w *authority.World) {
		c.cancel()
		fn(w)
	})
}

func TestSession_LoginCancelledInFlightReleasesPlayer(t *testing.T) {
	logger := zaptest.NewLogger(t)
	auth := startAuthority(t, logger, bcrypt.MinCost)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, client := net.Pipe()
	t.Cleanup(func() { _ = client.Close() })
	go func() { _, _ = io.Copy(io.Discard, client) }()

	s := session.New(telnet.NewConn(server, 5*time.Second, time.Second),
		cancelInside{Authority: auth, cancel: cancel}, nil,
		session.Options{OutboxSize: 64, WrapWidth: 80}, logger)
	served := make(chan session.Reason, 1)
	go func() { served <- s.Serve(ctx) }()
	go func() { _, _ = client.Write([]byte("alice secret\r\n")) }()

	select {
	case reason := <-served:
		assert.Equal(t, session.ReasonShutdown, reason)
	case <-time.After(5 * time.Second):
		t.Fatal("session did not end after its context was cancelled")
	}

	var known bool
	require.NoError(t, auth.Do(context.Background(), func(w *authority.World) {
		_, known = w.Player("alice")
	}))
	assert.True(t, known, "the login completed on the authority")
	assert.False(t, isActive(t, auth, "alice"), "no session is bound, so the player must not stay active")
}
