package telnet

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestFilterIAC(t *testing.T) {
	cases := map[string]struct{ in, want []byte }{
		"plain text":      {[]byte("hello world"), []byte("hello world")},
		"will":            {[]byte{IAC, WILL, OptEcho, 'h', 'i'}, []byte("hi")},
		"do mid-line":     {[]byte{'a', IAC, DO, OptLinemode, 'b'}, []byte("ab")},
		"only a command":  {[]byte{IAC, DONT, OptEcho}, nil},
		"subnegotiation":  {[]byte{IAC, SB, 24, 0, 'v', 't', IAC, SE, 'z'}, []byte("z")},
		"escaped 255":     {[]byte{'a', IAC, IAC, 'b'}, []byte{'a', IAC, 'b'}},
		"two-byte no-op":  {[]byte{'x', IAC, NOP, 'y'}, []byte("xy")},
		"trailing prefix": {[]byte{'q', IAC}, []byte("q")},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, string(tc.want), string(FilterIAC(tc.in)))
		})
	}
}

func TestFilter_SequenceSplitAcrossWrites(t *testing.T) {
	var f Filter
	var out []byte
	out = f.Write(out, []byte{'l', 'o', IAC})
	out = f.Write(out, []byte{WILL})
	out = f.Write(out, []byte{OptEcho, 'o', 'k'})
	assert.Equal(t, []byte("look"), out)
}

func TestConn_ReadIdleTimeout(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	c := NewConn(server, 20*time.Millisecond, time.Second)
	defer c.Close()

	buf := make([]byte, 16)
	_, err := c.Read(buf)
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
}

func TestConn_WriteAndRead(t *testing.T) {
	server, client := net.Pipe()
	c := NewConn(server, time.Second, time.Second)
	defer c.Close()
	defer client.Close()

	go func() { _, _ = client.Write([]byte("hi\r\n")) }()
	buf := make([]byte, 16)
	n, err := c.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hi\r\n", string(buf[:n]))

	go func() { _ = c.WriteString("welcome") }()
	n, err = client.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "welcome", string(buf[:n]))
}

func TestIsTimeout_OtherErrors(t *testing.T) {
	assert.False(t, IsTimeout(errors.New("boom")))
	assert.False(t, IsTimeout(net.ErrClosed))
}

// Property: bytes below 255 are data and survive filtering unchanged, and
// filtering never grows the input.
func TestPropertyFilterIAC_DataPassesThrough(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		data := rapid.SliceOfN(rapid.ByteMax(IAC-1), 0, 200).Draw(rt, "data")
		assert.Equal(rt, string(data), string(FilterIAC(data)))

		noisy := rapid.SliceOfN(rapid.Byte(), 0, 200).Draw(rt, "noisy")
		assert.LessOrEqual(rt, len(FilterIAC(noisy)), len(noisy))
	})
}

// Property: splitting the input at any point does not change what the
// stateful filter produces.
func TestPropertyFilter_SplitInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		alphabet := []byte{'a', 'b', '\r', '\n', IAC, WILL, DO, SB, SE, OptEcho}
		input := rapid.SliceOfN(rapid.SampledFrom(alphabet), 0, 80).Draw(t, "input")
		cut := rapid.IntRange(0, len(input)).Draw(t, "cut")

		var f Filter
		split := f.Write(nil, input[:cut])
		split = f.Write(split, input[cut:])
		assert.Equal(t, string(FilterIAC(input)), string(split))
	})
}
