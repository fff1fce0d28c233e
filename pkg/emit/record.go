// Package emit defines the collaborator surfaces the analyzer hands its
// output to: finalized per-command records go to an Emitter, notable-event
// signals go to a Notifier.
//
// The record schema is deliberately flat; downstream encoding (columnar
// stores, message queues) is outside this module's scope. Reference
// implementations write JSON lines or structured log entries.
package emit

import (
	"time"
)

// Record is one finalized command/reply pairing.
//
// A record carries fields that arrived from different protocol events at
// different times: the user and password from USER/PASS, the command and
// argument from the command event, the reply code and message from the reply
// event, and the file size from transfer enrichment.
type Record struct {
	// Timestamp is when the logical command was issued.
	Timestamp time.Time `json:"ts"`

	// ConnUID identifies the control connection.
	ConnUID string `json:"conn_uid"`

	// Connection endpoints.
	OrigAddr string `json:"orig_addr"`
	OrigPort uint16 `json:"orig_port"`
	RespAddr string `json:"resp_addr"`
	RespPort uint16 `json:"resp_port"`

	// User is the observed username, or "<unknown>".
	User string `json:"user"`

	// Password is the observed password, redacted unless the user is an
	// anonymous-class identifier.
	Password string `json:"password,omitempty"`

	// Command and argument. For file-reference commands the argument is
	// rewritten into a full resource locator.
	Command string `json:"command"`
	Arg     string `json:"arg,omitempty"`

	// MIME identification of transferred content, when available.
	MimeType string `json:"mime_type,omitempty"`
	MimeDesc string `json:"mime_desc,omitempty"`

	// FileSize is the transferred file size in bytes, or -1 when unknown.
	FileSize int64 `json:"file_size"`

	// Reply code and message this command was paired with.
	ReplyCode int    `json:"reply_code"`
	ReplyMsg  string `json:"reply_msg,omitempty"`

	// Tags are detection tags attached to the session for this command.
	Tags []string `json:"tags,omitempty"`
}

// Emitter receives finalized records. Emit must not block: the analyzer
// treats the handoff as fire-and-forget.
type Emitter interface {
	Emit(rec *Record)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(rec *Record)

// Emit calls f(rec).
func (f EmitterFunc) Emit(rec *Record) { f(rec) }
