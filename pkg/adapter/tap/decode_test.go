package tap

import (
	"bytes"
	"strings"
	"testing"
)

// ============================================================================
// Command lines
// ============================================================================

func TestParseCommandLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		cmd  string
		arg  string
		ok   bool
	}{
		{"simple", "USER alice", "USER", "alice", true},
		{"lowercase upcased", "retr afile", "RETR", "afile", true},
		{"no argument", "PASV", "PASV", "", true},
		{"argument keeps case", "STOR Mixed/Case.txt", "STOR", "Mixed/Case.txt", true},
		{"argument with spaces", "SITE EXEC uname -a", "SITE", "EXEC uname -a", true},
		{"leading spaces", "  QUIT", "QUIT", "", true},
		{"empty", "", "", "", false},
		{"only spaces", "   ", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, arg, ok := ParseCommandLine(tt.line)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if cmd != tt.cmd || arg != tt.arg {
				t.Errorf("ParseCommandLine(%q) = (%q, %q), want (%q, %q)",
					tt.line, cmd, arg, tt.cmd, tt.arg)
			}
		})
	}
}

// ============================================================================
// Reply lines
// ============================================================================

func TestReplyDecoder_SingleLine(t *testing.T) {
	var d ReplyDecoder

	code, msg, cont, ok := d.Decode("220 Service ready")
	if !ok || cont {
		t.Fatalf("ok=%v cont=%v, want decoded terminal line", ok, cont)
	}
	if code != 220 || msg != "Service ready" {
		t.Errorf("decoded (%d, %q)", code, msg)
	}
}

func TestReplyDecoder_BareCode(t *testing.T) {
	var d ReplyDecoder

	code, _, cont, ok := d.Decode("200")
	if !ok || cont || code != 200 {
		t.Errorf("bare code: ok=%v cont=%v code=%d", ok, cont, code)
	}
}

func TestReplyDecoder_MultiLine(t *testing.T) {
	var d ReplyDecoder

	lines := []struct {
		line string
		code int
		cont bool
	}{
		{"230-Welcome to the archive", 230, true},
		{"Mirror of upstream, updated nightly", 230, true},
		{"230-Still the same reply", 230, true},
		{"211 different code terminates nothing", 230, true},
		{"230 Login successful", 230, false},
	}

	for i, tt := range lines {
		code, _, cont, ok := d.Decode(tt.line)
		if !ok {
			t.Fatalf("line %d: not decoded", i)
		}
		if code != tt.code || cont != tt.cont {
			t.Errorf("line %d (%q): code=%d cont=%v, want code=%d cont=%v",
				i, tt.line, code, cont, tt.code, tt.cont)
		}
	}

	// Block closed: the next line decodes on its own again.
	code, _, cont, ok := d.Decode("250 OK")
	if !ok || cont || code != 250 {
		t.Errorf("after block: ok=%v cont=%v code=%d", ok, cont, code)
	}
}

func TestReplyDecoder_Garbage(t *testing.T) {
	var d ReplyDecoder

	for _, line := range []string{"hello", "12", "12x extra", "227Entering"} {
		if _, _, _, ok := d.Decode(line); ok {
			t.Errorf("Decode(%q) decoded garbage outside a block", line)
		}
	}
}

// ============================================================================
// pump
// ============================================================================

func TestPump_ForwardsEverything(t *testing.T) {
	src := strings.NewReader("220 hi\r\nnot a reply at all\r\ntrailing without newline")
	var dst bytes.Buffer
	var seen []string

	pump(src, &dst, func(line string) { seen = append(seen, line) })

	if dst.String() != "220 hi\r\nnot a reply at all\r\ntrailing without newline" {
		t.Errorf("forwarded bytes differ: %q", dst.String())
	}
	want := []string{"220 hi", "not a reply at all", "trailing without newline"}
	if len(seen) != len(want) {
		t.Fatalf("observed %d lines, want %d", len(seen), len(want))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, seen[i], want[i])
		}
	}
}
