package ftp

import "time"

// DefaultMaxPending bounds the per-session queue of issued-but-unanswered
// commands. A misbehaving peer issuing commands without ever reading replies
// would otherwise grow the queue without limit.
const DefaultMaxPending = 512

// PendingCommand is one issued-but-unacknowledged command.
type PendingCommand struct {
	Cmd  string
	Arg  string
	Seen time.Time
}

// CommandQueue is an ordered, per-session FIFO of pending commands.
//
// The queue is bounded: pushing past the bound evicts the oldest entry
// (drop-oldest keeps pairing aligned with the most recent traffic). Entries
// otherwise leave only via TakeOldest or session teardown.
type CommandQueue struct {
	items []PendingCommand
	max   int
}

// NewCommandQueue creates a queue with the given bound. A non-positive
// bound falls back to DefaultMaxPending.
func NewCommandQueue(max int) *CommandQueue {
	if max <= 0 {
		max = DefaultMaxPending
	}
	return &CommandQueue{max: max}
}

// Push appends a pending command. Returns the evicted oldest entry and true
// if the bound forced an eviction.
func (q *CommandQueue) Push(cmd, arg string, now time.Time) (PendingCommand, bool) {
	q.items = append(q.items, PendingCommand{Cmd: cmd, Arg: arg, Seen: now})
	if len(q.items) > q.max {
		evicted := q.items[0]
		q.items = q.items[1:]
		return evicted, true
	}
	return PendingCommand{}, false
}

// TakeOldest removes and returns the head of the queue. Pairing is strictly
// FIFO, irrespective of reply content: protocols are assumed to reply in
// issue order.
func (q *CommandQueue) TakeOldest() (PendingCommand, bool) {
	if len(q.items) == 0 {
		return PendingCommand{}, false
	}
	head := q.items[0]
	q.items = q.items[1:]
	return head, true
}

// Len returns the number of commands issued but not yet paired with a
// reply.
func (q *CommandQueue) Len() int {
	return len(q.items)
}
