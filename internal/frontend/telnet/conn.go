package telnet

import (
	"errors"
	"net"
	"os"
	"sync"
	"time"
)

// Command bytes from RFC 854.
const (
	SE   byte = 240
	NOP  byte = 241
	GA   byte = 249
	SB   byte = 250
	WILL byte = 251
	WONT byte = 252
	DO   byte = 253
	DONT byte = 254
	IAC  byte = 255
)

// Option codes the server mentions.
const (
	OptEcho            byte = 1
	OptSuppressGoAhead byte = 3
	OptLinemode        byte = 34
)

// Conn is one client connection. Every Read re-arms the idle deadline and
// writes are serialized under a per-write deadline. Reads are raw; callers
// strip IAC sequences with a Filter.
type Conn struct {
	raw  net.Conn
	idle time.Duration
	wto  time.Duration

	wmu sync.Mutex
}

// NewConn wraps raw. Zero timeouts disable the matching deadline.
func NewConn(raw net.Conn, idleTimeout, writeTimeout time.Duration) *Conn {
	return &Conn{raw: raw, idle: idleTimeout, wto: writeTimeout}
}

// Negotiate announces that the server will not send go-ahead.
func (c *Conn) Negotiate() error {
	return c.Write([]byte{IAC, WILL, OptSuppressGoAhead})
}

// Read reads raw client bytes. After idleTimeout without input it fails
// with an error IsTimeout recognizes.
func (c *Conn) Read(p []byte) (int, error) {
	if c.idle > 0 {
		_ = c.raw.SetReadDeadline(time.Now().Add(c.idle))
	}
	return c.raw.Read(p)
}

// Write sends data in full or returns an error.
func (c *Conn) Write(data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.wto > 0 {
		_ = c.raw.SetWriteDeadline(time.Now().Add(c.wto))
	}
	_, err := c.raw.Write(data)
	return err
}

func (c *Conn) WriteString(text string) error { return c.Write([]byte(text)) }

// Close closes the socket. Repeated calls return the net error but are harmless.
func (c *Conn) Close() error { return c.raw.Close() }

func (c *Conn) RemoteAddr() net.Addr { return c.raw.RemoteAddr() }

// IsTimeout reports whether err is a deadline expiry rather than a transport fault.
func IsTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

type filterState int

const (
	stateData filterState = iota
	stateIAC
	stateOption
	stateSub
	stateSubIAC
)

// Filter strips Telnet IAC sequences from a byte stream. It keeps state between
// calls so sequences split across reads are handled. The zero value is ready to use.
type Filter struct {
	state filterState
}

// Write filters input and appends the remaining data bytes to dst.
//
// Postcondition: Returns dst extended with every non-command byte of input;
// an escaped IAC IAC yields one 0xFF.
func (f *Filter) Write(dst, input []byte) []byte {
	for _, b := range input {
		switch f.state {
		case stateData:
			if b == IAC {
				f.state = stateIAC
				continue
			}
			dst = append(dst, b)
		case stateIAC:
			switch b {
			case WILL, WONT, DO, DONT:
				f.state = stateOption
			case SB:
				f.state = stateSub
			case IAC:
				dst = append(dst, IAC)
				f.state = stateData
			default:
				f.state = stateData
			}
		case stateOption:
			f.state = stateData
		case stateSub:
			if b == IAC {
				f.state = stateSubIAC
			}
		case stateSubIAC:
			if b == SE {
				f.state = stateData
			} else {
				f.state = stateSub
			}
		}
	}
	return dst
}

// FilterIAC strips a complete buffer with a fresh Filter.
func FilterIAC(input []byte) []byte {
	var f Filter
	return f.Write(make([]byte, 0, len(input)), input)
}
