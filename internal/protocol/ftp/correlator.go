package ftp

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tdevries60/bro/internal/logger"
	"github.com/tdevries60/bro/pkg/emit"
	"github.com/tdevries60/bro/pkg/expectation"
	"github.com/tdevries60/bro/pkg/metrics"
)

// defaultLoggedCommands is the allow-list of commands whose pairings are
// emitted even without detection tags.
var defaultLoggedCommands = []string{
	"APPE", "DELE", "RETR", "STOR", "STOU", "ACCT",
	"PORT", "PASV", "EPRT", "EPSV",
}

// fileCommands take a path argument that is rewritten into a full resource
// locator on emission.
var fileCommands = []string{
	"APPE", "DELE", "MKD", "RETR", "RMD", "SIZE", "STOR", "STOU",
}

// defaultAnonymousUsers are the identifiers for which a captured password
// is not secret and is retained verbatim.
var defaultAnonymousUsers = []string{"anonymous", "ftp", "ftpuser", "guest"}

// retrSize extracts the parenthesized byte count from a 150 reply,
// e.g. "Opening BINARY mode data connection for afile (1234 bytes).".
var retrSize = regexp.MustCompile(`\((\d+) bytes\)`)

// Config holds correlator tunables. The zero value gets usable defaults
// from NewCorrelator.
type Config struct {
	// MaxPendingCommands bounds each session's pending-command queue.
	MaxPendingCommands int

	// LoggedCommands overrides the emission allow-list when non-empty.
	LoggedCommands []string

	// AnonymousUsers overrides the anonymous-identifier set when non-empty.
	AnonymousUsers []string

	// CapturePasswords controls whether PASS arguments are retained at all.
	// When false the password field stays empty and redaction never applies.
	CapturePasswords bool

	// Clock overrides the time source for tests.
	Clock func() time.Time
}

// Correlator is the event-driven control loop: it receives command, reply
// and connection-ended notifications, drives per-session state, registers
// predicted data channels, and triggers record emission.
type Correlator struct {
	mu       sync.Mutex
	sessions map[string]*Session

	table    *expectation.Table
	emitter  emit.Emitter
	notifier emit.Notifier
	metrics  metrics.AnalyzerMetrics
	clock    func() time.Time

	maxPending       int
	logged           map[string]struct{}
	fileCmds         map[string]struct{}
	anonUsers        map[string]struct{}
	capturePasswords bool
}

// NewCorrelator creates a correlator. table and emitter are required;
// notifier and m may be nil to disable those collaborators.
func NewCorrelator(cfg Config, table *expectation.Table, emitter emit.Emitter, notifier emit.Notifier, m metrics.AnalyzerMetrics) *Correlator {
	logged := cfg.LoggedCommands
	if len(logged) == 0 {
		logged = defaultLoggedCommands
	}
	anon := cfg.AnonymousUsers
	if len(anon) == 0 {
		anon = defaultAnonymousUsers
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	c := &Correlator{
		sessions:         make(map[string]*Session),
		table:            table,
		emitter:          emitter,
		notifier:         notifier,
		metrics:          m,
		clock:            clock,
		maxPending:       cfg.MaxPendingCommands,
		logged:           make(map[string]struct{}, len(logged)),
		fileCmds:         make(map[string]struct{}, len(fileCommands)),
		anonUsers:        make(map[string]struct{}, len(anon)),
		capturePasswords: cfg.CapturePasswords,
	}
	for _, cmd := range logged {
		c.logged[cmd] = struct{}{}
	}
	for _, cmd := range fileCommands {
		c.fileCmds[cmd] = struct{}{}
	}
	for _, u := range anon {
		c.anonUsers[strings.ToLower(u)] = struct{}{}
	}
	return c
}

// SessionCount returns the number of tracked sessions.
func (c *Correlator) SessionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// AddTag attaches a detection tag to the named session's current command.
// External detection logic (signature matches, policy) calls this between
// events; an unknown UID is ignored.
func (c *Correlator) AddTag(uid, tag string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sessions[uid]; ok {
		s.AddTag(tag)
	}
}

// SetMime records MIME identification of transferred content for the named
// session's current command. Typically driven by a data-channel collaborator.
func (c *Correlator) SetMime(uid, mimeType, mimeDesc string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sessions[uid]; ok {
		s.MimeType = mimeType
		s.MimeDesc = mimeDesc
	}
}

// OnCommand handles a "command issued" event.
func (c *Correlator) OnCommand(conn ConnTuple, cmd, arg string, ts time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session(conn, ts)

	// A completed prior pairing is finalized as soon as the next command
	// shows up.
	if s.Current.Complete() {
		c.finalize(s)
	}

	if evicted, dropped := s.Queue.Push(cmd, arg, ts); dropped {
		logger.Debug("pending queue full, dropping oldest command",
			logger.KeyConnUID, s.Conn.UID,
			logger.KeyCommand, evicted.Cmd)
		if c.metrics != nil {
			c.metrics.RecordDroppedCommand()
		}
	}

	switch cmd {
	case "USER":
		s.User = arg
	case "PASS":
		if c.capturePasswords {
			s.Password = arg
		}
	}

	if c.metrics != nil {
		c.metrics.RecordCommand(cmd)
	}
}

// OnReply handles a "reply received" event. Continuation lines of
// multi-line replies are explicitly ignored.
func (c *Correlator) OnReply(conn ConnTuple, code int, msg string, isContinuation bool, ts time.Time) {
	if isContinuation {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session(conn, ts)
	rc := ReplyCode(code)

	// Pair the reply with the oldest outstanding command. With nothing
	// outstanding, a later reply for the same command (e.g. the 226 closing
	// a transfer opened by 150) updates the pairing in place: the last
	// reply wins.
	if s.Current == nil || s.Current.Complete() {
		if pc, ok := s.Queue.TakeOldest(); ok {
			s.Current = &Exchange{Start: pc.Seen, Cmd: pc.Cmd, Arg: pc.Arg}
		} else if s.Current == nil {
			s.Current = &Exchange{Start: ts, Cmd: CmdInit}
		}
	}

	x := s.Current
	x.Code = rc
	x.Msg = msg
	x.HasReply = true

	c.enrich(s, x)

	if c.metrics != nil {
		c.metrics.RecordReply(code)
	}

	// A server batching several replies answers commands we are still
	// queueing; drain them now instead of waiting for the next command
	// event. Each drained pairing carries this reply's metadata forward.
	if s.Queue.Len() > 0 {
		for s.Queue.Len() > 0 {
			c.finalize(s)
			pc, _ := s.Queue.TakeOldest()
			s.Current = &Exchange{
				Start:    pc.Seen,
				Cmd:      pc.Cmd,
				Arg:      pc.Arg,
				Code:     rc,
				Msg:      msg,
				HasReply: true,
			}
			// Enrichment is re-run per drained pairing: the reply text is
			// interpreted against the command it now answers.
			c.enrich(s, s.Current)
		}
		c.finalize(s)
	}
}

// OnConnectionEnded handles the termination signal: any outstanding pairing
// is finalized, a leftover pending command gets a synthetic terminal
// pairing, and the session is torn down unconditionally.
func (c *Correlator) OnConnectionEnded(uid string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[uid]
	if !ok {
		return
	}

	if s.Current.Complete() {
		c.finalize(s)
	}
	if pc, ok := s.Queue.TakeOldest(); ok {
		s.Current = &Exchange{
			Start:    pc.Seen,
			Cmd:      pc.Cmd,
			Arg:      pc.Arg,
			Msg:      CmdFinish,
			HasReply: true,
		}
		c.finalize(s)
	}

	delete(c.sessions, uid)
	if c.metrics != nil {
		c.metrics.RecordSessionClosed()
	}
}

// session returns the session for the connection, creating it on first
// sight. Both the first command and an unsolicited first reply (the server
// greeting) may create the session.
func (c *Correlator) session(conn ConnTuple, ts time.Time) *Session {
	if s, ok := c.sessions[conn.UID]; ok {
		return s
	}
	s := NewSession(conn, c.maxPending, ts)
	c.sessions[conn.UID] = s
	if c.metrics != nil {
		c.metrics.RecordSessionOpened()
	}
	logger.Debug("session opened",
		logger.KeyConnUID, conn.UID,
		logger.KeyOrigAddr, conn.OrigAddr.String(),
		logger.KeyRespAddr, conn.RespAddr.String())
	return s
}

// enrich applies the (command, reply code) branch table: transfer sizes,
// notable events, data-channel predictions and directory updates.
func (c *Correlator) enrich(s *Session, x *Exchange) {
	switch {
	case x.Cmd == "RETR" && x.Code == 150:
		if m := retrSize.FindStringSubmatch(x.Msg); m != nil {
			if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
				s.FileSize = n
			}
		}

	case x.Cmd == "SIZE" && x.Code == 213:
		// Lower priority than the RETR path; a later RETR overwrites.
		if n, err := strconv.ParseInt(strings.TrimSpace(x.Msg), 10, 64); err == nil {
			s.FileSize = n
		}

	case x.Cmd == "SITE" && x.Code.IsPositiveCompletion():
		if strings.Contains(strings.ToLower(x.Arg), "exec") {
			c.notify(s, emit.KindSiteExec,
				fmt.Sprintf("FTP site exec: %s", x.Arg))
		}
	}

	switch {
	case (x.Cmd == "PORT" || x.Cmd == "EPRT") && x.Code.IsPositiveCompletion():
		variant := VariantPort
		if x.Cmd == "EPRT" {
			variant = VariantEPort
		}
		c.predictActive(s, x.Arg, variant)

	case x.Cmd == "PASV" && x.Code == 227:
		c.predictPassive(s, x.Msg, VariantPasv)

	case x.Cmd == "EPSV" && x.Code == 229:
		c.predictPassive(s, x.Msg, VariantEPasv)
	}

	s.Path.ApplyDirectoryReply(x.Cmd, x.Arg, x.Code, x.Msg)
}

// predictActive registers the client-supplied endpoint the server is
// expected to connect to.
func (c *Correlator) predictActive(s *Session, arg string, v NegotiationVariant) {
	ep, ok := ParseActive(arg, v)
	if !ok {
		c.parseFailure(s, v, arg)
		return
	}
	c.table.Put(ep.Addr, ep.Port, s.Conn.UID, expectation.DirectionActive)
}

// predictPassive registers the server-supplied endpoint the client is
// expected to connect to.
func (c *Correlator) predictPassive(s *Session, msg string, v NegotiationVariant) {
	ep, ok := ParsePassive(msg, v, s.Conn.RespAddr)
	if !ok {
		c.parseFailure(s, v, msg)
		return
	}
	c.table.Put(ep.Addr, ep.Port, s.Conn.UID, expectation.DirectionPassive)
}

// parseFailure records a dropped negotiation payload. The drop itself is
// silent; the counter and debug line are the only traces.
func (c *Correlator) parseFailure(s *Session, v NegotiationVariant, payload string) {
	if c.metrics != nil {
		c.metrics.RecordParseFailure(v.String())
	}
	logger.Debug("unparseable negotiation payload",
		logger.KeyConnUID, s.Conn.UID,
		logger.KeyVariant, v.String(),
		logger.KeyArg, payload)
}

func (c *Correlator) notify(s *Session, kind emit.EventKind, message string) {
	if c.notifier != nil {
		c.notifier.Notify(emit.Event{
			Kind:     kind,
			Message:  message,
			ConnUID:  s.Conn.UID,
			OrigAddr: s.Conn.OrigAddr.String(),
			RespAddr: s.Conn.RespAddr.String(),
		})
	}
	if c.metrics != nil {
		c.metrics.RecordNotableEvent(string(kind))
	}
}

// finalize consumes the current pairing: emits a record if it is
// emission-worthy, then resets the transient fields either way.
func (c *Correlator) finalize(s *Session) {
	x := s.Current
	if x == nil {
		return
	}

	if len(s.Tags) > 0 || c.isLogged(x.Cmd) {
		c.emitter.Emit(c.buildRecord(s, x))
		if c.metrics != nil {
			c.metrics.RecordEmitted(x.Cmd)
		}
	}

	s.resetTransient()
	s.Current = nil
}

func (c *Correlator) isLogged(cmd string) bool {
	_, ok := c.logged[cmd]
	return ok
}

// buildRecord assembles the emitted record, applying password redaction and
// file-argument rewriting.
func (c *Correlator) buildRecord(s *Session, x *Exchange) *emit.Record {
	password := s.Password
	if password != "" {
		if _, anon := c.anonUsers[strings.ToLower(s.User)]; !anon {
			password = RedactedPassword
		}
	}

	arg := x.Arg
	if _, ok := c.fileCmds[x.Cmd]; ok {
		arg = s.Conn.Locator(s.Path.Resolve(x.Arg))
	}

	return &emit.Record{
		Timestamp: x.Start,
		ConnUID:   s.Conn.UID,
		OrigAddr:  s.Conn.OrigAddr.String(),
		OrigPort:  s.Conn.OrigPort,
		RespAddr:  s.Conn.RespAddr.String(),
		RespPort:  s.Conn.RespPort,
		User:      s.User,
		Password:  password,
		Command:   x.Cmd,
		Arg:       arg,
		MimeType:  s.MimeType,
		MimeDesc:  s.MimeDesc,
		FileSize:  s.FileSize,
		ReplyCode: int(x.Code),
		ReplyMsg:  x.Msg,
		Tags:      s.TagList(),
	}
}
