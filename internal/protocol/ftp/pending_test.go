package ftp

import (
	"fmt"
	"testing"
	"time"
)

func TestCommandQueue_FIFO(t *testing.T) {
	q := NewCommandQueue(0)
	now := time.Now()

	q.Push("USER", "alice", now)
	q.Push("PASS", "secret", now)
	q.Push("CWD", "/tmp", now)

	if q.Len() != 3 {
		t.Fatalf("Len = %d, want 3", q.Len())
	}

	for _, want := range []string{"USER", "PASS", "CWD"} {
		got, ok := q.TakeOldest()
		if !ok {
			t.Fatalf("TakeOldest returned false, want %s", want)
		}
		if got.Cmd != want {
			t.Fatalf("TakeOldest = %s, want %s", got.Cmd, want)
		}
	}

	if _, ok := q.TakeOldest(); ok {
		t.Fatal("TakeOldest on empty queue returned true")
	}
}

func TestCommandQueue_BoundEvictsOldest(t *testing.T) {
	q := NewCommandQueue(3)
	now := time.Now()

	for i := 0; i < 3; i++ {
		if _, evicted := q.Push("NOOP", fmt.Sprintf("%d", i), now); evicted {
			t.Fatalf("push %d evicted below the bound", i)
		}
	}

	evicted, ok := q.Push("NOOP", "3", now)
	if !ok {
		t.Fatal("push past the bound did not evict")
	}
	if evicted.Arg != "0" {
		t.Fatalf("evicted arg = %q, want oldest %q", evicted.Arg, "0")
	}
	if q.Len() != 3 {
		t.Fatalf("Len = %d, want 3 after eviction", q.Len())
	}

	head, _ := q.TakeOldest()
	if head.Arg != "1" {
		t.Fatalf("head after eviction = %q, want %q", head.Arg, "1")
	}
}

func TestCommandQueue_DefaultBound(t *testing.T) {
	q := NewCommandQueue(-1)
	if q.max != DefaultMaxPending {
		t.Fatalf("max = %d, want %d", q.max, DefaultMaxPending)
	}
}
