// Package telnet provides the Telnet transport, ANSI styling and line wrapping.
package telnet

import (
	"strings"
	"unicode/utf8"
)

// Style is an SGR escape sequence applied to a span of output.
type Style string

const reset = "\x1b[0m"

// Output roles. Callers name what a span is and the palette decides its look.
const (
	Title   Style = "\x1b[97m"
	Exits   Style = "\x1b[32m"
	Player  Style = "\x1b[96m"
	Hostile Style = "\x1b[31m"
	Banner  Style = "\x1b[1;97m"
)

// Paint wraps text in s followed by a reset. An empty text stays empty.
func Paint(s Style, text string) string {
	if text == "" {
		return ""
	}
	return string(s) + text + reset
}

// StripANSI removes CSI escape sequences from s. An unterminated sequence is
// kept as literal text.
func StripANSI(s string) string {
	start := strings.Index(s, "\x1b[")
	if start < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	b.WriteString(s[:start])
	rest := s[start:]
	for {
		i := strings.Index(rest, "\x1b[")
		if i < 0 {
			b.WriteString(rest)
			return b.String()
		}
		b.WriteString(rest[:i])
		end := csiEnd(rest[i+2:])
		if end < 0 {
			b.WriteString(rest[i:])
			return b.String()
		}
		rest = rest[i+2+end+1:]
	}
}

// csiEnd returns the index of the final byte of a CSI sequence body, or -1.
func csiEnd(body string) int {
	for j := 0; j < len(body); j++ {
		if c := body[j]; c >= 0x40 && c <= 0x7e {
			return j
		}
	}
	return -1
}

// VisibleWidth returns the number of printable runes in s, ignoring ANSI codes.
func VisibleWidth(s string) int {
	return utf8.RuneCountInString(StripANSI(s))
}
