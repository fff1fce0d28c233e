package ftp

import "testing"

// ============================================================================
// Resolve
// ============================================================================

func TestResolve(t *testing.T) {
	p := NewPathTracker()

	tests := []struct {
		name string
		cwd  string
		arg  string
		want string
	}{
		{"empty arg returns cwd", "/home/alice", "", "/home/alice"},
		{"absolute arg stands alone", "/home/alice", "/tmp/x", "/tmp/x"},
		{"relative arg joined", "/home/alice", "file.txt", "/home/alice/file.txt"},
		{"cwd with trailing slash", "/", "file.txt", "/file.txt"},
		{"sentinel cwd preserved", UnknownDir, "file.txt", "/./file.txt"},
		{"no dot-dot collapsing", "/a/..", "b", "/a/../b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p.cwd = tt.cwd
			if got := p.Resolve(tt.arg); got != tt.want {
				t.Errorf("Resolve(%q) with cwd %q = %q, want %q", tt.arg, tt.cwd, got, tt.want)
			}
		})
	}
}

// ============================================================================
// ApplyDirectoryReply
// ============================================================================

func TestApplyDirectoryReply_CWD(t *testing.T) {
	p := NewPathTracker()

	p.ApplyDirectoryReply("CWD", "/foo", 250, "Directory changed")
	if p.Dir() != "/foo" {
		t.Fatalf("after CWD /foo: dir = %q, want /foo", p.Dir())
	}

	p.ApplyDirectoryReply("CWD", "bar", 250, "Directory changed")
	if p.Dir() != "/foo/bar" {
		t.Fatalf("after CWD bar: dir = %q, want /foo/bar", p.Dir())
	}

	// Failed CWD does not touch the tracked directory.
	p.ApplyDirectoryReply("CWD", "/nope", 550, "No such directory")
	if p.Dir() != "/foo/bar" {
		t.Fatalf("after failed CWD: dir = %q, want /foo/bar", p.Dir())
	}
}

func TestApplyDirectoryReply_CDUP(t *testing.T) {
	p := NewPathTracker()
	p.cwd = "/foo/bar"

	p.ApplyDirectoryReply("CDUP", "", 250, "OK")
	if p.Dir() != "/foo/bar/.." {
		t.Fatalf("after CDUP: dir = %q, want /foo/bar/..", p.Dir())
	}

	p.ApplyDirectoryReply("CDUP", "", 200, "OK")
	if p.Dir() != "/foo/bar/../.." {
		t.Fatalf("after second CDUP: dir = %q, want /foo/bar/../..", p.Dir())
	}
}

func TestApplyDirectoryReply_PWD(t *testing.T) {
	p := NewPathTracker()

	p.ApplyDirectoryReply("PWD", "", 257, `"/home/alice" is the current directory`)
	if p.Dir() != "/home/alice" {
		t.Fatalf("after PWD: dir = %q, want /home/alice", p.Dir())
	}

	// Doubled quotes un-escape to a literal quote.
	p.ApplyDirectoryReply("XPWD", "", 257, `"/odd""name" is the current directory`)
	if p.Dir() != `/odd"name` {
		t.Fatalf("after XPWD with escaped quote: dir = %q, want /odd\"name", p.Dir())
	}

	// Malformed reply text leaves the directory alone.
	p.ApplyDirectoryReply("PWD", "", 257, "no quotes here")
	if p.Dir() != `/odd"name` {
		t.Fatalf("after malformed PWD: dir = %q", p.Dir())
	}
}

func TestApplyDirectoryReply_IgnoresUnrecognizedPairs(t *testing.T) {
	p := NewPathTracker()

	p.ApplyDirectoryReply("RETR", "file", 250, "OK")
	p.ApplyDirectoryReply("CWD", "/x", 200, "wrong code")
	if p.Dir() != UnknownDir {
		t.Fatalf("dir = %q, want sentinel %q", p.Dir(), UnknownDir)
	}
}
