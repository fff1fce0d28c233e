package metrics

// AnalyzerMetrics provides observability for the FTP control-channel
// analyzer.
//
// Implementations collect counts of observed commands and replies, parse
// failures, expectation-table activity, and emitted records. This interface
// is optional - pass nil to disable metrics collection with zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	m := prometheus.NewAnalyzerMetrics()
//	corr := ftp.NewCorrelator(cfg, table, emitter, notifier, m)
//
//	// Without metrics (pass nil for zero overhead)
//	corr := ftp.NewCorrelator(cfg, table, emitter, notifier, nil)
type AnalyzerMetrics interface {
	// RecordCommand records one observed command event.
	RecordCommand(cmd string)

	// RecordReply records one observed (non-continuation) reply event.
	RecordReply(code int)

	// RecordParseFailure records a negotiation payload that could not be
	// parsed. Parse failures are otherwise silent; this counter is the only
	// way to observe them.
	//
	// Parameters:
	//   - variant: negotiation variant ("PORT", "EPRT", "PASV", "EPSV")
	RecordParseFailure(variant string)

	// RecordExpectation records expectation-table activity.
	//
	// Parameters:
	//   - op: "insert", "overwrite", "expire" or "sweep"
	RecordExpectation(op string)

	// SetExpectationTableSize sets the current number of live entries in
	// the expectation table.
	SetExpectationTableSize(n int)

	// RecordEmitted records one finalized record handed to the emitter.
	RecordEmitted(cmd string)

	// RecordDroppedCommand records a pending command evicted because the
	// per-session queue hit its bound.
	RecordDroppedCommand()

	// RecordSessionOpened / RecordSessionClosed track session lifecycle.
	RecordSessionOpened()
	RecordSessionClosed()

	// RecordNotableEvent records a raised notable-event signal.
	//
	// Parameters:
	//   - kind: event kind (e.g., "site_exec")
	RecordNotableEvent(kind string)
}
