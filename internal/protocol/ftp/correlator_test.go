package ftp

import (
	"net/netip"
	"testing"
	"time"

	"github.com/tdevries60/bro/pkg/emit"
	"github.com/tdevries60/bro/pkg/expectation"
)

// recordSink collects emitted records for assertions.
type recordSink struct {
	records []*emit.Record
}

func (r *recordSink) Emit(rec *emit.Record) {
	r.records = append(r.records, rec)
}

func testConn() ConnTuple {
	return ConnTuple{
		UID:      "CHhAvVGS1DHFjwGM9",
		OrigAddr: netip.MustParseAddr("192.0.2.10"),
		OrigPort: 52000,
		RespAddr: netip.MustParseAddr("203.0.113.9"),
		RespPort: 21,
	}
}

func newTestCorrelator(t *testing.T, cfg Config) (*Correlator, *recordSink, *expectation.Table) {
	t.Helper()
	sink := &recordSink{}
	table := expectation.New(expectation.DefaultTTL)
	return NewCorrelator(cfg, table, sink, nil, nil), sink, table
}

// ============================================================================
// Pairing and emission
// ============================================================================

func TestCorrelator_RetrievalEmitsOneRecord(t *testing.T) {
	c, sink, _ := newTestCorrelator(t, Config{})
	conn := testConn()
	ts := time.Now()

	c.OnReply(conn, 220, "Welcome", false, ts)
	c.OnCommand(conn, "RETR", "afile", ts)
	c.OnReply(conn, 150, "Opening BINARY mode data connection for afile (1234 bytes).", false, ts)
	c.OnReply(conn, 226, "Transfer complete.", false, ts)
	c.OnConnectionEnded(conn.UID)

	if len(sink.records) != 1 {
		t.Fatalf("emitted %d records, want 1", len(sink.records))
	}
	rec := sink.records[0]
	if rec.Command != "RETR" {
		t.Errorf("command = %q, want RETR", rec.Command)
	}
	if rec.FileSize != 1234 {
		t.Errorf("file size = %d, want 1234", rec.FileSize)
	}
	if rec.ReplyCode != 226 {
		t.Errorf("reply code = %d, want 226 (last reply wins)", rec.ReplyCode)
	}
	if rec.Arg != "ftp://203.0.113.9/./afile" {
		t.Errorf("arg = %q, want locator with sentinel directory", rec.Arg)
	}
}

func TestCorrelator_GreetingPairsWithoutEmission(t *testing.T) {
	c, sink, _ := newTestCorrelator(t, Config{})
	conn := testConn()

	c.OnReply(conn, 220, "Welcome", false, time.Now())
	c.OnConnectionEnded(conn.UID)

	if len(sink.records) != 0 {
		t.Fatalf("greeting alone emitted %d records, want 0", len(sink.records))
	}
}

func TestCorrelator_BatchedRepliesDrainQueue(t *testing.T) {
	c, sink, table := newTestCorrelator(t, Config{})
	conn := testConn()
	ts := time.Now()

	c.OnReply(conn, 220, "Welcome", false, ts)
	c.OnCommand(conn, "PORT", "10,0,0,1,4,1", ts)
	c.OnCommand(conn, "STOR", "up.bin", ts)
	c.OnReply(conn, 200, "Fine", false, ts)

	if len(sink.records) != 2 {
		t.Fatalf("emitted %d records, want 2", len(sink.records))
	}
	if sink.records[0].Command != "PORT" || sink.records[1].Command != "STOR" {
		t.Errorf("commands = %q, %q, want PORT then STOR",
			sink.records[0].Command, sink.records[1].Command)
	}
	for _, rec := range sink.records {
		if rec.ReplyCode != 200 || rec.ReplyMsg != "Fine" {
			t.Errorf("%s record carries %d %q, want the shared reply", rec.Command, rec.ReplyCode, rec.ReplyMsg)
		}
	}

	// The PORT pairing registered the predicted active data channel.
	if _, ok := table.Lookup(netip.MustParseAddr("10.0.0.1"), 1025); !ok {
		t.Error("PORT negotiation did not register an expectation")
	}
}

func TestCorrelator_MultilineContinuationIgnored(t *testing.T) {
	c, sink, _ := newTestCorrelator(t, Config{})
	conn := testConn()
	ts := time.Now()

	c.OnReply(conn, 220, "Welcome", false, ts)
	c.OnCommand(conn, "DELE", "junk", ts)
	c.OnReply(conn, 250, "first line", true, ts)
	c.OnReply(conn, 250, "File removed", false, ts)
	c.OnConnectionEnded(conn.UID)

	if len(sink.records) != 1 {
		t.Fatalf("emitted %d records, want 1", len(sink.records))
	}
	if sink.records[0].ReplyMsg != "File removed" {
		t.Errorf("reply msg = %q, want the terminating line", sink.records[0].ReplyMsg)
	}
}

func TestCorrelator_UnansweredCommandEmittedAtTeardown(t *testing.T) {
	c, sink, _ := newTestCorrelator(t, Config{})
	conn := testConn()
	ts := time.Now()

	c.OnReply(conn, 220, "Welcome", false, ts)
	c.OnCommand(conn, "STOR", "half.bin", ts)
	c.OnConnectionEnded(conn.UID)

	if len(sink.records) != 1 {
		t.Fatalf("emitted %d records, want 1", len(sink.records))
	}
	rec := sink.records[0]
	if rec.Command != "STOR" {
		t.Errorf("command = %q, want STOR", rec.Command)
	}
	if rec.ReplyCode != 0 || rec.ReplyMsg != CmdFinish {
		t.Errorf("reply = %d %q, want the terminal sentinel", rec.ReplyCode, rec.ReplyMsg)
	}
}

// ============================================================================
// Identity and redaction
// ============================================================================

func loginAndDelete(c *Correlator, conn ConnTuple, user, pass string) {
	ts := time.Now()
	c.OnReply(conn, 220, "Welcome", false, ts)
	c.OnCommand(conn, "USER", user, ts)
	c.OnReply(conn, 331, "Password required", false, ts)
	c.OnCommand(conn, "PASS", pass, ts)
	c.OnReply(conn, 230, "Logged in", false, ts)
	c.OnCommand(conn, "DELE", "junk", ts)
	c.OnReply(conn, 250, "File removed", false, ts)
	c.OnConnectionEnded(conn.UID)
}

func TestCorrelator_PasswordRedaction(t *testing.T) {
	tests := []struct {
		name    string
		capture bool
		user    string
		pass    string
		want    string
	}{
		{"real user redacted", true, "alice", "secret", RedactedPassword},
		{"anonymous retained", true, "anonymous", "me@example.com", "me@example.com"},
		{"anonymous case-insensitive", true, "ANONYMOUS", "me@example.com", "me@example.com"},
		{"guest retained", true, "guest", "welcome1", "welcome1"},
		{"capture disabled", false, "alice", "secret", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, sink, _ := newTestCorrelator(t, Config{CapturePasswords: tt.capture})
			conn := testConn()
			loginAndDelete(c, conn, tt.user, tt.pass)

			if len(sink.records) != 1 {
				t.Fatalf("emitted %d records, want 1", len(sink.records))
			}
			rec := sink.records[0]
			if rec.User != tt.user {
				t.Errorf("user = %q, want %q", rec.User, tt.user)
			}
			if rec.Password != tt.want {
				t.Errorf("password = %q, want %q", rec.Password, tt.want)
			}
		})
	}
}

// ============================================================================
// Tags and transients
// ============================================================================

func TestCorrelator_TagsForceEmissionThenReset(t *testing.T) {
	c, sink, _ := newTestCorrelator(t, Config{})
	conn := testConn()
	ts := time.Now()

	c.OnReply(conn, 220, "Welcome", false, ts)
	c.OnCommand(conn, "CWD", "/foo", ts)
	c.AddTag(conn.UID, "suspicious-path")
	c.OnReply(conn, 250, "OK", false, ts)
	c.OnCommand(conn, "DELE", "junk", ts)
	c.OnReply(conn, 250, "File removed", false, ts)
	c.OnConnectionEnded(conn.UID)

	if len(sink.records) != 2 {
		t.Fatalf("emitted %d records, want 2", len(sink.records))
	}

	// CWD is not on the allow-list; the tag made it emission-worthy.
	cwd := sink.records[0]
	if cwd.Command != "CWD" {
		t.Fatalf("first record = %q, want CWD", cwd.Command)
	}
	if len(cwd.Tags) != 1 || cwd.Tags[0] != "suspicious-path" {
		t.Errorf("tags = %v, want [suspicious-path]", cwd.Tags)
	}

	// Transients do not leak into the next pairing.
	if len(sink.records[1].Tags) != 0 {
		t.Errorf("tags leaked into following record: %v", sink.records[1].Tags)
	}
}

func TestCorrelator_MimeTransients(t *testing.T) {
	c, sink, _ := newTestCorrelator(t, Config{})
	conn := testConn()
	ts := time.Now()

	c.OnReply(conn, 220, "Welcome", false, ts)
	c.OnCommand(conn, "RETR", "payload.exe", ts)
	c.SetMime(conn.UID, "application/x-dosexec", "PE32 executable")
	c.OnReply(conn, 226, "Transfer complete", false, ts)
	c.OnCommand(conn, "RETR", "notes.txt", ts)
	c.OnReply(conn, 226, "Transfer complete", false, ts)
	c.OnConnectionEnded(conn.UID)

	if len(sink.records) != 2 {
		t.Fatalf("emitted %d records, want 2", len(sink.records))
	}
	if sink.records[0].MimeType != "application/x-dosexec" {
		t.Errorf("first record mime = %q", sink.records[0].MimeType)
	}
	if sink.records[1].MimeType != "" {
		t.Errorf("mime leaked into second record: %q", sink.records[1].MimeType)
	}
	if sink.records[1].FileSize != -1 {
		t.Errorf("second record file size = %d, want -1", sink.records[1].FileSize)
	}
}

// ============================================================================
// Data-channel prediction
// ============================================================================

func TestCorrelator_PassiveNegotiationRegistersExpectation(t *testing.T) {
	c, sink, table := newTestCorrelator(t, Config{})
	conn := testConn()
	ts := time.Now()

	c.OnReply(conn, 220, "Welcome", false, ts)
	c.OnCommand(conn, "EPSV", "", ts)
	c.OnReply(conn, 229, "Entering Extended Passive Mode (|||6446|)", false, ts)
	c.OnConnectionEnded(conn.UID)

	entry, ok := table.Lookup(conn.RespAddr, 6446)
	if !ok {
		t.Fatal("EPSV negotiation did not register an expectation")
	}
	if entry.OriginUID != conn.UID {
		t.Errorf("origin UID = %q, want %q", entry.OriginUID, conn.UID)
	}
	if entry.Direction != expectation.DirectionPassive {
		t.Errorf("direction = %v, want passive", entry.Direction)
	}

	if len(sink.records) != 1 || sink.records[0].Command != "EPSV" {
		t.Errorf("EPSV pairing was not emitted: %+v", sink.records)
	}
}

func TestCorrelator_MalformedNegotiationDroppedSilently(t *testing.T) {
	c, sink, table := newTestCorrelator(t, Config{})
	conn := testConn()
	ts := time.Now()

	c.OnReply(conn, 220, "Welcome", false, ts)
	c.OnCommand(conn, "PORT", "not,a,valid,tuple", ts)
	c.OnReply(conn, 200, "OK", false, ts)
	c.OnConnectionEnded(conn.UID)

	if table.Len() != 0 {
		t.Errorf("table has %d entries, want 0 for malformed payload", table.Len())
	}
	// The pairing itself is still emitted; only the prediction is dropped.
	if len(sink.records) != 1 || sink.records[0].Command != "PORT" {
		t.Errorf("PORT pairing missing from output: %+v", sink.records)
	}
}

func TestCorrelator_RejectedNegotiationNotRegistered(t *testing.T) {
	c, _, table := newTestCorrelator(t, Config{})
	conn := testConn()
	ts := time.Now()

	c.OnReply(conn, 220, "Welcome", false, ts)
	c.OnCommand(conn, "PORT", "10,0,0,1,4,1", ts)
	c.OnReply(conn, 500, "Refused", false, ts)

	if table.Len() != 0 {
		t.Errorf("refused PORT still registered %d expectations", table.Len())
	}
}

// ============================================================================
// Notable events
// ============================================================================

func TestCorrelator_SiteExecNotifies(t *testing.T) {
	sink := &recordSink{}
	table := expectation.New(expectation.DefaultTTL)
	var events []emit.Event
	notifier := emit.NotifierFunc(func(ev emit.Event) {
		events = append(events, ev)
	})
	c := NewCorrelator(Config{}, table, sink, notifier, nil)
	conn := testConn()
	ts := time.Now()

	c.OnReply(conn, 220, "Welcome", false, ts)
	c.OnCommand(conn, "SITE", "EXEC uname -a", ts)
	c.OnReply(conn, 200, "OK", false, ts)

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Kind != emit.KindSiteExec {
		t.Errorf("kind = %q, want %q", events[0].Kind, emit.KindSiteExec)
	}
	if events[0].ConnUID != conn.UID {
		t.Errorf("event conn UID = %q, want %q", events[0].ConnUID, conn.UID)
	}
}

// ============================================================================
// Session lifecycle
// ============================================================================

func TestCorrelator_SessionLifecycle(t *testing.T) {
	c, _, _ := newTestCorrelator(t, Config{})
	conn := testConn()

	if c.SessionCount() != 0 {
		t.Fatalf("session count = %d before any traffic", c.SessionCount())
	}

	c.OnReply(conn, 220, "Welcome", false, time.Now())
	if c.SessionCount() != 1 {
		t.Fatalf("session count = %d after greeting, want 1", c.SessionCount())
	}

	c.OnConnectionEnded(conn.UID)
	if c.SessionCount() != 0 {
		t.Fatalf("session count = %d after teardown, want 0", c.SessionCount())
	}

	// Teardown of an unknown connection is a no-op.
	c.OnConnectionEnded("no-such-uid")
}

func TestCorrelator_LoggedCommandsOverride(t *testing.T) {
	c, sink, _ := newTestCorrelator(t, Config{LoggedCommands: []string{"CWD"}})
	conn := testConn()
	ts := time.Now()

	c.OnReply(conn, 220, "Welcome", false, ts)
	c.OnCommand(conn, "CWD", "/foo", ts)
	c.OnReply(conn, 250, "OK", false, ts)
	c.OnCommand(conn, "RETR", "afile", ts)
	c.OnReply(conn, 226, "Done", false, ts)
	c.OnConnectionEnded(conn.UID)

	if len(sink.records) != 1 || sink.records[0].Command != "CWD" {
		t.Fatalf("override not honored: %+v", sink.records)
	}
}

func TestCorrelator_FileArgumentRewriting(t *testing.T) {
	c, sink, _ := newTestCorrelator(t, Config{})
	conn := testConn()
	conn.RespPort = 2121
	ts := time.Now()

	c.OnReply(conn, 220, "Welcome", false, ts)
	c.OnCommand(conn, "CWD", "/pub", ts)
	c.OnReply(conn, 250, "OK", false, ts)
	c.OnCommand(conn, "RETR", "tools/nc.exe", ts)
	c.OnReply(conn, 226, "Done", false, ts)
	c.OnConnectionEnded(conn.UID)

	if len(sink.records) != 1 {
		t.Fatalf("emitted %d records, want 1", len(sink.records))
	}
	want := "ftp://203.0.113.9:2121/pub/tools/nc.exe"
	if sink.records[0].Arg != want {
		t.Errorf("arg = %q, want %q", sink.records[0].Arg, want)
	}
}
