package testutil

import (
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"
)

// TelnetClient drives a server session over TCP the way a player's client
// would. It does no option negotiation; IAC sequences from the server are
// returned as raw bytes.
type TelnetClient struct {
	t    testing.TB
	conn net.Conn
}

// NewTelnetClient dials addr and closes the connection when the test ends.
func NewTelnetClient(t testing.TB, addr string) *TelnetClient {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		t.Fatalf("dial %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &TelnetClient{t: t, conn: conn}
}

// ReadUntil returns everything received up to and including the first chunk
// that makes the output contain want. The test fails if want does not
// arrive within timeout.
func (c *TelnetClient) ReadUntil(want string, timeout time.Duration) string {
	c.t.Helper()
	out, err := c.collect(timeout, func(s string) bool { return strings.Contains(s, want) })
	if err != nil {
		c.t.Fatalf("waiting for %q: %v; received %q", want, err, out)
	}
	return out
}

// Send writes line followed by CRLF. It reports failures with Errorf so it
// may be used from helper goroutines.
func (c *TelnetClient) Send(line string) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if _, err := io.WriteString(c.conn, line+"\r\n"); err != nil {
		c.t.Errorf("send %q: %v", line, err)
	}
}

// WaitClosed reads until the server hangs up and returns what arrived. The
// test fails if the connection is still open after timeout.
func (c *TelnetClient) WaitClosed(timeout time.Duration) string {
	c.t.Helper()
	out, err := c.collect(timeout, func(string) bool { return false })
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		c.t.Fatalf("connection still open after %s; received %q", timeout, out)
	}
	return out
}

// Close hangs up.
func (c *TelnetClient) Close() {
	_ = c.conn.Close()
}

// collect reads until done reports true, the peer closes or timeout passes.
// A clean close is reported as io.EOF.
func (c *TelnetClient) collect(timeout time.Duration, done func(string) bool) (string, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	var got strings.Builder
	chunk := make([]byte, 2048)
	for {
		n, err := c.conn.Read(chunk)
		got.Write(chunk[:n])
		if n > 0 && done(got.String()) {
			return got.String(), nil
		}
		if err != nil {
			return got.String(), err
		}
	}
}
