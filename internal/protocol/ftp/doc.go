// Package ftp implements the stateful FTP control-channel analyzer.
//
// The package consumes three event kinds from a transport collaborator -
// command issued, reply received, connection ended - and correlates them
// into one finalized record per logical command, even though a record's
// inputs (user, password, reply code, file size) arrive from different
// events at different times.
//
// # Architecture
//
// The package provides, leaves first:
//   - ReplyCode: 3-digit status code decomposition
//   - PathTracker: best-effort per-session working-directory tracking
//   - CommandQueue: bounded FIFO of issued-but-unacknowledged commands
//   - Session: per-connection aggregate state
//   - ParseActive/ParsePassive: data-channel negotiation payload parsing
//   - Correlator: the event-driven control loop
//
// Commands and replies are paired strictly FIFO: protocols are assumed to
// reply in issue order, so a reply always answers the oldest outstanding
// command. When a server batches several replies, the correlator drains the
// queue immediately rather than waiting for the next command event.
//
// Successful PORT/EPRT/PASV/EPSV negotiations register predicted
// data-channel endpoints in an expectation.Table with a bounded lifetime.
// Malformed negotiation payloads are dropped without error: they are
// protocol noise, not defects, and the only trace is an optional metrics
// counter.
//
// # Thread Safety
//
// Each connection's events must be delivered in order, but different
// connections may be driven from different goroutines: all Correlator
// methods are safe for concurrent use.
package ftp
