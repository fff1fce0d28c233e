package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for control-channel spans.
// Client/server keys follow OpenTelemetry semantic conventions where
// applicable; analyzer-specific keys use the "ftp." prefix.
const (
	// ========================================================================
	// Connection attributes
	// ========================================================================
	AttrClientIP   = "client.ip"
	AttrClientPort = "client.port"
	AttrServerIP   = "server.ip"
	AttrServerPort = "server.port"
	AttrConnUID    = "ftp.conn_uid"

	// ========================================================================
	// Control channel attributes
	// ========================================================================
	AttrCommand   = "ftp.command"
	AttrArg       = "ftp.arg"
	AttrReplyCode = "ftp.reply_code"
	AttrUser      = "ftp.user"
	AttrCwd       = "ftp.cwd"
	AttrPending   = "ftp.pending"

	// ========================================================================
	// Data channel prediction attributes
	// ========================================================================
	AttrVariant  = "ftp.variant"
	AttrDataAddr = "ftp.data_addr"
	AttrDataPort = "ftp.data_port"
)

// Span names for analyzer operations.
const (
	// Root span covering the lifetime of one control connection
	SpanControlConn = "ftp.control_connection"

	// Per-event spans
	SpanCommand     = "ftp.command"
	SpanReply       = "ftp.reply"
	SpanEmit        = "ftp.emit"
	SpanExpectation = "ftp.expectation"
)

// ClientIP returns an attribute for the originator IP address
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// ServerIP returns an attribute for the responder IP address
func ServerIP(ip string) attribute.KeyValue {
	return attribute.String(AttrServerIP, ip)
}

// ConnUID returns an attribute for the connection identifier
func ConnUID(uid string) attribute.KeyValue {
	return attribute.String(AttrConnUID, uid)
}

// Command returns an attribute for the FTP command name
func Command(cmd string) attribute.KeyValue {
	return attribute.String(AttrCommand, cmd)
}

// ReplyCode returns an attribute for the FTP reply code
func ReplyCode(code int) attribute.KeyValue {
	return attribute.Int(AttrReplyCode, code)
}

// User returns an attribute for the observed username
func User(name string) attribute.KeyValue {
	return attribute.String(AttrUser, name)
}

// Variant returns an attribute for the negotiation variant
func Variant(v string) attribute.KeyValue {
	return attribute.String(AttrVariant, v)
}

// DataAddr returns an attribute for the predicted data-channel address
func DataAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrDataAddr, addr)
}

// DataPort returns an attribute for the predicted data-channel port
func DataPort(port int) attribute.KeyValue {
	return attribute.Int(AttrDataPort, port)
}

// StartConnSpan starts the root span for one control connection.
func StartConnSpan(ctx context.Context, uid, clientIP, serverIP string) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanControlConn, trace.WithAttributes(
		ConnUID(uid),
		ClientIP(clientIP),
		ServerIP(serverIP),
	))
}

// StartCommandSpan starts a span for processing one command event.
func StartCommandSpan(ctx context.Context, cmd string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{Command(cmd)}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, SpanCommand, trace.WithAttributes(allAttrs...))
}

// StartReplySpan starts a span for processing one reply event.
func StartReplySpan(ctx context.Context, code int, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{ReplyCode(code)}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, SpanReply, trace.WithAttributes(allAttrs...))
}
