package logger

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so records from the
// correlator, the tap and the expectation table can be joined downstream.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Connection Identification
	// ========================================================================
	KeyConnUID  = "conn_uid"  // Stable per-connection identifier
	KeyOrigAddr = "orig_addr" // Originator (client) IP address
	KeyOrigPort = "orig_port" // Originator source port
	KeyRespAddr = "resp_addr" // Responder (server) IP address
	KeyRespPort = "resp_port" // Responder port

	// ========================================================================
	// Control Channel
	// ========================================================================
	KeyCommand   = "command"    // FTP command name: RETR, STOR, CWD, ...
	KeyArg       = "arg"        // Command argument (possibly rewritten)
	KeyReplyCode = "reply_code" // 3-digit numeric reply code
	KeyReplyMsg  = "reply_msg"  // Reply message text
	KeyUser      = "user"       // Username observed via USER
	KeyCwd       = "cwd"        // Tracked working directory
	KeyPending   = "pending"    // Pending-command queue length

	// ========================================================================
	// Data Channel Prediction
	// ========================================================================
	KeyVariant  = "variant"   // Negotiation variant: PORT, EPRT, PASV, EPSV
	KeyDataAddr = "data_addr" // Predicted data-channel address
	KeyDataPort = "data_port" // Predicted data-channel port
	KeyExpiry   = "expiry"    // Expectation expiry time

	// ========================================================================
	// Record Emission
	// ========================================================================
	KeyFileSize = "file_size" // Transferred file size in bytes
	KeyMimeType = "mime_type" // MIME type, when identified
	KeyTags     = "tags"      // Detection tags attached to the record
	KeySink     = "sink"      // Emitter sink name

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyCount      = "count"       // Generic count field
)
