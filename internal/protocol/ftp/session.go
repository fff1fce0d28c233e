package ftp

import (
	"sort"
	"time"
)

// UnknownUser is the username sentinel used before USER is observed.
const UnknownUser = "<unknown>"

// RedactedPassword replaces captured passwords for non-anonymous users.
const RedactedPassword = "<hidden>"

// Synthetic command names for pairings that have no real client command:
// the initial server greeting and the terminal pairing at connection end.
const (
	CmdInit   = "<init>"
	CmdFinish = "<finish>"
)

// Exchange is the in-flight command/reply pairing under construction. It is
// populated from a dequeued pending command, completed by a reply (or a
// terminal condition), and consumed exactly once by emission.
type Exchange struct {
	Start    time.Time
	Cmd      string
	Arg      string
	Code     ReplyCode
	Msg      string
	HasReply bool
}

// Complete reports whether the pairing has both a command and a terminal
// reply or condition.
func (x *Exchange) Complete() bool {
	return x != nil && x.HasReply
}

// Session is the per-connection aggregate: connection identity, accumulated
// identity fields, the working-directory tracker, the pending-command queue
// and the single in-flight Exchange.
//
// A session is driven by a strictly ordered event stream and needs no
// internal locking; the Correlator serializes access.
type Session struct {
	Conn ConnTuple

	// Accumulated identity, persistent across commands.
	User     string
	Password string

	Path  *PathTracker
	Queue *CommandQueue

	// Current is the one in-flight pairing, nil when idle.
	Current *Exchange

	// Transient per-command fields, reset after every emission decision.
	MimeType string
	MimeDesc string
	FileSize int64 // -1 when unknown
	Tags     map[string]struct{}
}

// NewSession creates a session for a control connection. The queue is
// seeded with a synthetic pending entry so the very first server greeting
// has something to pair with.
func NewSession(conn ConnTuple, maxPending int, now time.Time) *Session {
	s := &Session{
		Conn:  conn,
		User:  UnknownUser,
		Path:  NewPathTracker(),
		Queue: NewCommandQueue(maxPending),
	}
	s.Queue.Push(CmdInit, "", now)
	s.resetTransient()
	return s
}

// AddTag attaches a detection tag to the current command. Tags make the
// pairing emission-worthy regardless of the command allow-list.
func (s *Session) AddTag(tag string) {
	s.Tags[tag] = struct{}{}
}

// TagList returns the tags in deterministic order for emission.
func (s *Session) TagList() []string {
	if len(s.Tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(s.Tags))
	for tag := range s.Tags {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// resetTransient clears the fields that never persist across command
// boundaries, whether or not a record was emitted.
func (s *Session) resetTransient() {
	s.MimeType = ""
	s.MimeDesc = ""
	s.FileSize = -1
	s.Tags = make(map[string]struct{})
}
