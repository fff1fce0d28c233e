package tap

import (
	"bufio"
	"io"
	"strings"
)

// maxLineBuffer is the reader buffer for control-channel lines. Lines longer
// than this still pass through intact; they are just relayed in chunks and
// only the final chunk is offered to the decoder.
const maxLineBuffer = 16 * 1024

// pump copies from src to dst line by line, invoking observe with each
// complete line (terminator stripped). Forwarding never depends on decoding:
// every byte read is written out whether or not observe makes sense of it.
func pump(src io.Reader, dst io.Writer, observe func(line string)) {
	r := bufio.NewReaderSize(src, maxLineBuffer)
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			if _, werr := io.WriteString(dst, line); werr != nil {
				return
			}
			observe(strings.TrimRight(line, "\r\n"))
		}
		if err != nil {
			return
		}
	}
}

// ParseCommandLine decodes one client line into a command and argument. The
// command token is upper-cased; the argument keeps its original form. An
// empty line is not a command.
func ParseCommandLine(line string) (cmd, arg string, ok bool) {
	line = strings.TrimLeft(line, " ")
	if line == "" {
		return "", "", false
	}
	if i := strings.IndexByte(line, ' '); i >= 0 {
		return strings.ToUpper(line[:i]), strings.TrimSpace(line[i+1:]), true
	}
	return strings.ToUpper(line), "", true
}

// ReplyDecoder decodes server reply lines, tracking multi-line reply state
// per RFC 959: "123-text" opens a block that runs until a "123 text" line,
// and everything before the terminator is a continuation.
//
// A decoder instance belongs to a single connection's reply stream and is
// not safe for concurrent use.
type ReplyDecoder struct {
	// open is the reply code of the multi-line block in progress, 0 when
	// no block is open.
	open int
}

// Decode decodes one server line. cont reports whether the line is a
// continuation (callers typically skip those). ok is false for lines that
// are not replies at all when no multi-line block is open.
func (d *ReplyDecoder) Decode(line string) (code int, msg string, cont bool, ok bool) {
	c, rest, hasCode := splitReplyCode(line)

	// Inside a multi-line block everything is a continuation until the
	// matching terminator line.
	if d.open != 0 {
		if hasCode && c == d.open && strings.HasPrefix(rest, " ") {
			d.open = 0
			return c, strings.TrimPrefix(rest, " "), false, true
		}
		return d.open, line, true, true
	}

	if !hasCode {
		return 0, "", false, false
	}

	switch {
	case strings.HasPrefix(rest, "-"):
		d.open = c
		return c, rest[1:], true, true
	case rest == "" || strings.HasPrefix(rest, " "):
		return c, strings.TrimPrefix(rest, " "), false, true
	default:
		// Digits followed by arbitrary text is not a reply line.
		return 0, "", false, false
	}
}

// splitReplyCode extracts a leading 3-digit reply code.
func splitReplyCode(line string) (code int, rest string, ok bool) {
	if len(line) < 3 {
		return 0, "", false
	}
	for i := 0; i < 3; i++ {
		ch := line[i]
		if ch < '0' || ch > '9' {
			return 0, "", false
		}
		code = code*10 + int(ch-'0')
	}
	return code, line[3:], true
}
