package telnet

import "strings"

// Margin is the number of columns kept free at the right edge of the terminal.
const Margin = 1

// Wrap word-wraps text for a terminal width columns wide and joins lines with CRLF.
// Each line of text is packed greedily with words; a line is flushed when the next
// word would overflow width-Margin columns. ANSI codes do not count toward the
// width. A word longer than the line is emitted alone on its own line, unsplit.
// Leading spaces of a line are kept on it and on its continuation lines, and
// trailing spaces stay on its last line.
// Blank lines are kept and a trailing line break in text is preserved.
//
// Precondition: width > Margin.
// Postcondition: every emitted line containing more than one word fits in width-Margin columns.
func Wrap(text string, width int) string {
	limit := width - Margin
	if limit < 1 {
		limit = 1
	}
	trailing := strings.HasSuffix(text, "\n")
	if trailing {
		text = strings.TrimSuffix(text, "\n")
		text = strings.TrimSuffix(text, "\r")
	}

	var b strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			b.WriteString("\r\n")
		}
		wrapLine(&b, strings.TrimRight(line, "\r"), limit)
	}
	if trailing {
		b.WriteString("\r\n")
	}
	return b.String()
}

func wrapLine(b *strings.Builder, line string, limit int) {
	indent := line[:len(line)-len(strings.TrimLeft(line, " "))]
	if len(indent) >= limit/2 {
		indent = ""
	}
	current := 0
	for _, word := range strings.Fields(line) {
		n := VisibleWidth(word)
		switch {
		case current == 0:
			b.WriteString(indent)
			b.WriteString(word)
			current = len(indent) + n
		case current+1+n > limit:
			b.WriteString("\r\n")
			b.WriteString(indent)
			b.WriteString(word)
			current = len(indent) + n
		default:
			b.WriteByte(' ')
			b.WriteString(word)
			current += 1 + n
		}
	}
	// Prompts end in a space the client's typing should not run into.
	if tail := line[len(strings.TrimRight(line, " ")):]; current > 0 && tail != "" {
		b.WriteString(tail)
	}
}
