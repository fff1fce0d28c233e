package expectation

import (
	"net/netip"
	"sync"
	"testing"
	"time"
)

// ============================================================================
// Helpers
// ============================================================================

// fakeClock is a settable time source for expiry tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func mustAddr(t *testing.T, s string) netip.Addr {
	t.Helper()
	addr, err := netip.ParseAddr(s)
	if err != nil {
		t.Fatalf("ParseAddr(%q) error: %v", s, err)
	}
	return addr
}

// ============================================================================
// TTL expiry
// ============================================================================

func TestLookup_WithinTTL(t *testing.T) {
	clock := newFakeClock()
	table := New(5*time.Minute, WithClock(clock.Now))
	addr := mustAddr(t, "10.0.0.1")

	table.Put(addr, 1025, "Cabc1", DirectionPassive)

	clock.Advance(4*time.Minute + 59*time.Second)

	entry, ok := table.Lookup(addr, 1025)
	if !ok {
		t.Fatal("Lookup() = absent, want present at 4m59s")
	}
	if entry.OriginUID != "Cabc1" {
		t.Errorf("OriginUID = %q, want %q", entry.OriginUID, "Cabc1")
	}
}

func TestLookup_PastTTL(t *testing.T) {
	clock := newFakeClock()
	table := New(5*time.Minute, WithClock(clock.Now))
	addr := mustAddr(t, "10.0.0.1")

	table.Put(addr, 1025, "Cabc1", DirectionPassive)

	clock.Advance(5*time.Minute + time.Second)

	if _, ok := table.Lookup(addr, 1025); ok {
		t.Fatal("Lookup() = present, want absent at 5m01s")
	}
	// Lazy expiry should have removed the entry.
	if n := table.Len(); n != 0 {
		t.Errorf("Len() = %d after expired lookup, want 0", n)
	}
}

func TestLookup_ExactTTLBoundary(t *testing.T) {
	clock := newFakeClock()
	table := New(5*time.Minute, WithClock(clock.Now))
	addr := mustAddr(t, "192.168.1.5")

	table.Put(addr, 20, "Cx", DirectionActive)
	clock.Advance(5 * time.Minute)

	if _, ok := table.Lookup(addr, 20); ok {
		t.Error("Lookup() = present exactly at TTL, want absent")
	}
}

// ============================================================================
// Overwrite semantics
// ============================================================================

func TestPut_OverwriteLastNegotiationWins(t *testing.T) {
	clock := newFakeClock()
	table := New(5*time.Minute, WithClock(clock.Now))
	addr := mustAddr(t, "10.0.0.1")

	table.Put(addr, 1025, "Cfirst", DirectionPassive)
	clock.Advance(4 * time.Minute)
	table.Put(addr, 1025, "Csecond", DirectionActive)

	// The rewrite also renews the expiry.
	clock.Advance(4 * time.Minute)

	entry, ok := table.Lookup(addr, 1025)
	if !ok {
		t.Fatal("Lookup() = absent, want renewed entry")
	}
	if entry.OriginUID != "Csecond" {
		t.Errorf("OriginUID = %q, want %q", entry.OriginUID, "Csecond")
	}
	if entry.Direction != DirectionActive {
		t.Errorf("Direction = %v, want active", entry.Direction)
	}
}

// ============================================================================
// Take
// ============================================================================

func TestTake_RemovesEntry(t *testing.T) {
	table := New(5 * time.Minute)
	addr := mustAddr(t, "10.0.0.2")

	table.Put(addr, 2000, "Cy", DirectionPassive)

	entry, ok := table.Take(addr, 2000)
	if !ok {
		t.Fatal("Take() = absent, want present")
	}
	if entry.OriginUID != "Cy" {
		t.Errorf("OriginUID = %q, want %q", entry.OriginUID, "Cy")
	}
	if _, ok := table.Lookup(addr, 2000); ok {
		t.Error("Lookup() after Take() = present, want absent")
	}
}

func TestTake_Missing(t *testing.T) {
	table := New(5 * time.Minute)
	if _, ok := table.Take(mustAddr(t, "10.9.9.9"), 9); ok {
		t.Error("Take() on empty table = present, want absent")
	}
}

// ============================================================================
// Sweep
// ============================================================================

func TestSweep_RemovesOnlyExpired(t *testing.T) {
	clock := newFakeClock()
	table := New(5*time.Minute, WithClock(clock.Now))

	table.Put(mustAddr(t, "10.0.0.1"), 1, "Ca", DirectionActive)
	clock.Advance(3 * time.Minute)
	table.Put(mustAddr(t, "10.0.0.2"), 2, "Cb", DirectionActive)
	clock.Advance(2*time.Minute + time.Second) // first is 5m01s old, second 2m01s

	removed := table.Sweep()
	if removed != 1 {
		t.Fatalf("Sweep() removed %d, want 1", removed)
	}
	if _, ok := table.Lookup(mustAddr(t, "10.0.0.2"), 2); !ok {
		t.Error("fresh entry swept away")
	}
}

// ============================================================================
// Concurrency
// ============================================================================

func TestConcurrentPutLookup(t *testing.T) {
	table := New(5 * time.Minute)
	addr := mustAddr(t, "172.16.0.1")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(port uint16) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				table.Put(addr, port, "C", DirectionPassive)
				table.Lookup(addr, port)
			}
		}(uint16(1000 + i))
	}
	wg.Wait()

	if n := table.Len(); n != 16 {
		t.Errorf("Len() = %d, want 16", n)
	}
}
