package ftp

import "strings"

// UnknownDir is the working-directory sentinel meaning "an existing but
// unspecified directory".
const UnknownDir = "/."

// dirCmdKey is a (command, reply code) pair checked against the fixed set
// of directory-affecting replies.
type dirCmdKey struct {
	cmd  string
	code ReplyCode
}

// directoryReplies is the whitelist of (command, reply code) pairs that
// update the tracked working directory.
var directoryReplies = map[dirCmdKey]struct{}{
	{"CWD", 250}:  {},
	{"CDUP", 200}: {},
	{"CDUP", 250}: {},
	{"PWD", 257}:  {},
	{"XPWD", 257}: {},
}

// PathTracker tracks a session's working directory so relative path
// arguments become absolute, stable identifiers. The model is best-effort,
// not authoritative: unmatched inputs are silently ignored and the tracked
// string may contain unresolved "/.." segments.
type PathTracker struct {
	cwd string
}

// NewPathTracker creates a tracker with the unknown-directory sentinel.
func NewPathTracker() *PathTracker {
	return &PathTracker{cwd: UnknownDir}
}

// Dir returns the tracked working directory.
func (p *PathTracker) Dir() string {
	return p.cwd
}

// Resolve makes arg absolute against the tracked working directory. An
// empty argument resolves to the directory itself; an absolute argument
// stands alone. No "." or ".." collapsing is applied, so the sentinel and
// any unnormalized CDUP tail are preserved in the result.
func (p *PathTracker) Resolve(arg string) string {
	if arg == "" {
		return p.cwd
	}
	if strings.HasPrefix(arg, "/") {
		return arg
	}
	if strings.HasSuffix(p.cwd, "/") {
		return p.cwd + arg
	}
	return p.cwd + "/" + arg
}

// ApplyDirectoryReply updates the working directory when (cmd, code) is one
// of the recognized directory-affecting pairs. For CWD the argument is
// resolved against the current directory; for CDUP a "/.." segment is
// appended verbatim (left unnormalized: whether "/foo/.." must equal "/" is
// ambiguous for FTP servers, so the tracked string stays faithful to what
// was exchanged); for PWD/XPWD the directory is taken from the quoted path
// in the reply text.
func (p *PathTracker) ApplyDirectoryReply(cmd, arg string, code ReplyCode, msg string) {
	if _, ok := directoryReplies[dirCmdKey{cmd, code}]; !ok {
		return
	}

	switch cmd {
	case "CWD":
		p.cwd = p.Resolve(arg)
	case "CDUP":
		p.cwd = p.cwd + "/.."
	case "PWD", "XPWD":
		if dir, ok := extractQuotedPath(msg); ok {
			p.cwd = dir
		}
	}
}

// extractQuotedPath pulls the first double-quoted string out of a 257 reply
// message, un-escaping doubled quotes per RFC 959.
func extractQuotedPath(msg string) (string, bool) {
	start := strings.IndexByte(msg, '"')
	if start < 0 {
		return "", false
	}

	var b strings.Builder
	i := start + 1
	for i < len(msg) {
		ch := msg[i]
		if ch == '"' {
			// Doubled quote is an escaped literal quote.
			if i+1 < len(msg) && msg[i+1] == '"' {
				b.WriteByte('"')
				i += 2
				continue
			}
			return b.String(), true
		}
		b.WriteByte(ch)
		i++
	}
	return "", false // unterminated quote
}
