// Package expectation implements the shared table of predicted data-channel
// connections.
//
// The FTP control channel negotiates short-lived secondary connections
// (active via PORT/EPRT, passive via PASV/EPSV). When the analyzer parses a
// negotiation, it registers the predicted (address, port) endpoint here so
// an acceptance path can recognize the connection when it appears. Entries
// expire after a fixed TTL if never matched.
//
// The table is process-wide mutable state written by many sessions
// concurrently; it is constructor-injected rather than a package global so
// tests get fresh instances.
//
// # Thread Safety
//
// All Table methods are safe for concurrent use. Expiry is lazy on Lookup
// plus an optional background sweeper (StartSweeper).
package expectation

import (
	"context"
	"net/netip"
	"sync"
	"time"

	"github.com/tdevries60/bro/internal/logger"
	"github.com/tdevries60/bro/pkg/metrics"
)

// DefaultTTL is how long an expected connection stays registered if never
// matched.
const DefaultTTL = 5 * time.Minute

// DefaultSweepInterval is how often the background sweeper runs.
const DefaultSweepInterval = 30 * time.Second

// Direction records which side is expected to open the data channel.
type Direction int

const (
	// DirectionActive means the server connects out to a client-supplied
	// endpoint (PORT/EPRT).
	DirectionActive Direction = iota

	// DirectionPassive means the client connects to a server-supplied
	// endpoint (PASV/EPSV).
	DirectionPassive
)

func (d Direction) String() string {
	if d == DirectionActive {
		return "active"
	}
	return "passive"
}

// Key identifies an expected endpoint.
type Key struct {
	Addr netip.Addr
	Port uint16
}

// Entry is one registered expectation.
type Entry struct {
	Key       Key
	OriginUID string    // control connection that negotiated this endpoint
	Direction Direction // who is expected to connect
	Created   time.Time
	Expiry    time.Time
}

// Expired reports whether the entry is past its expiry at the given time.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.Expiry)
}

// Option configures a Table.
type Option func(*Table)

// WithClock overrides the time source. Used by tests to simulate expiry.
func WithClock(clock func() time.Time) Option {
	return func(t *Table) { t.clock = clock }
}

// WithMetrics attaches a metrics collector. nil disables collection.
func WithMetrics(m metrics.AnalyzerMetrics) Option {
	return func(t *Table) { t.metrics = m }
}

// Table is a concurrent TTL-expiring map of expected data-channel endpoints.
//
// Re-registration of an existing key overwrites the prior entry: the last
// negotiation wins, with no conflict error.
type Table struct {
	mu      sync.RWMutex
	entries map[Key]Entry
	ttl     time.Duration
	clock   func() time.Time
	metrics metrics.AnalyzerMetrics
}

// New creates a Table with the given TTL. A non-positive TTL falls back to
// DefaultTTL.
func New(ttl time.Duration, opts ...Option) *Table {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	t := &Table{
		entries: make(map[Key]Entry),
		ttl:     ttl,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Put registers an expected endpoint, overwriting any prior entry for the
// same key.
func (t *Table) Put(addr netip.Addr, port uint16, originUID string, dir Direction) {
	now := t.clock()
	key := Key{Addr: addr, Port: port}
	entry := Entry{
		Key:       key,
		OriginUID: originUID,
		Direction: dir,
		Created:   now,
		Expiry:    now.Add(t.ttl),
	}

	t.mu.Lock()
	_, overwrite := t.entries[key]
	t.entries[key] = entry
	size := len(t.entries)
	t.mu.Unlock()

	if t.metrics != nil {
		if overwrite {
			t.metrics.RecordExpectation("overwrite")
		} else {
			t.metrics.RecordExpectation("insert")
		}
		t.metrics.SetExpectationTableSize(size)
	}

	logger.Debug("expectation registered",
		logger.KeyDataAddr, addr.String(),
		logger.KeyDataPort, int(port),
		logger.KeyConnUID, originUID,
		logger.KeyExpiry, entry.Expiry)
}

// Lookup returns the live entry for (addr, port), if any. An expired entry
// is removed on the way out and reported as absent.
func (t *Table) Lookup(addr netip.Addr, port uint16) (Entry, bool) {
	key := Key{Addr: addr, Port: port}
	now := t.clock()

	t.mu.RLock()
	entry, ok := t.entries[key]
	t.mu.RUnlock()

	if !ok {
		return Entry{}, false
	}
	if entry.Expired(now) {
		t.mu.Lock()
		// Recheck under the write lock; a concurrent Put may have renewed it.
		if cur, still := t.entries[key]; still && cur.Expired(now) {
			delete(t.entries, key)
			if t.metrics != nil {
				t.metrics.RecordExpectation("expire")
				t.metrics.SetExpectationTableSize(len(t.entries))
			}
		}
		t.mu.Unlock()
		return Entry{}, false
	}
	return entry, true
}

// Take removes and returns the live entry for (addr, port), if any. Used by
// the acceptance path when an observed connection matches a prediction.
func (t *Table) Take(addr netip.Addr, port uint16) (Entry, bool) {
	key := Key{Addr: addr, Port: port}
	now := t.clock()

	t.mu.Lock()
	entry, ok := t.entries[key]
	if ok {
		delete(t.entries, key)
	}
	size := len(t.entries)
	t.mu.Unlock()

	if !ok || entry.Expired(now) {
		return Entry{}, false
	}
	if t.metrics != nil {
		t.metrics.SetExpectationTableSize(size)
	}
	return entry, true
}

// Len returns the number of live entries.
func (t *Table) Len() int {
	now := t.clock()

	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, entry := range t.entries {
		if !entry.Expired(now) {
			n++
		}
	}
	return n
}

// Snapshot returns a copy of all live entries, for the debug API.
func (t *Table) Snapshot() []Entry {
	now := t.clock()

	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Entry, 0, len(t.entries))
	for _, entry := range t.entries {
		if !entry.Expired(now) {
			out = append(out, entry)
		}
	}
	return out
}

// Sweep removes all expired entries and returns how many were removed.
func (t *Table) Sweep() int {
	now := t.clock()

	t.mu.Lock()
	removed := 0
	for key, entry := range t.entries {
		if entry.Expired(now) {
			delete(t.entries, key)
			removed++
		}
	}
	size := len(t.entries)
	t.mu.Unlock()

	if removed > 0 {
		logger.Debug("expectation sweep", logger.KeyCount, removed)
		if t.metrics != nil {
			t.metrics.RecordExpectation("sweep")
			t.metrics.SetExpectationTableSize(size)
		}
	}
	return removed
}

// StartSweeper runs a background goroutine that sweeps expired entries at
// the given interval until the context is cancelled. A non-positive interval
// falls back to DefaultSweepInterval.
func (t *Table) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.Sweep()
			}
		}
	}()
}
