// Package tap implements a transparent FTP control-channel proxy. Clients
// connect to the tap instead of the FTP server; each accepted connection is
// relayed byte-for-byte to the configured upstream while the command and
// reply streams are decoded and fed to the analyzer.
//
// Decoding is strictly best-effort: a line the decoder cannot make sense of
// is still forwarded, because a parse failure must never become a transport
// failure for the traffic being observed.
package tap

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/google/uuid"

	"github.com/tdevries60/bro/internal/logger"
	"github.com/tdevries60/bro/internal/protocol/ftp"
	"github.com/tdevries60/bro/internal/telemetry"
	"github.com/tdevries60/bro/pkg/adapter"
)

// Analyzer receives the decoded event stream. The correlator implements
// this; tests substitute recorders.
type Analyzer interface {
	OnCommand(conn ftp.ConnTuple, cmd, arg string, ts time.Time)
	OnReply(conn ftp.ConnTuple, code int, msg string, isContinuation bool, ts time.Time)
	OnConnectionEnded(uid string)
}

// Config holds the tap-specific settings beyond the shared listener config.
type Config struct {
	// Upstream is the FTP server address control connections are relayed to.
	Upstream string

	// DialTimeout bounds the connect to the upstream server.
	DialTimeout time.Duration
}

// Tap is the control-channel proxy frontend. It embeds the shared TCP
// lifecycle and implements adapter.ConnectionFactory.
type Tap struct {
	*adapter.BaseAdapter

	cfg      Config
	analyzer Analyzer
	clock    func() time.Time
}

// New creates a tap frontend. analyzer must not be nil.
func New(base adapter.BaseConfig, cfg Config, analyzer Analyzer) *Tap {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	return &Tap{
		BaseAdapter: adapter.NewBaseAdapter(base, "ftp-tap"),
		cfg:         cfg,
		analyzer:    analyzer,
		clock:       time.Now,
	}
}

// Serve runs the accept loop until ctx is cancelled or Stop is called.
func (t *Tap) Serve(ctx context.Context) error {
	return t.ServeWithFactory(ctx, t)
}

// NewConnection implements adapter.ConnectionFactory.
func (t *Tap) NewConnection(conn net.Conn) adapter.ConnectionHandler {
	return &relay{
		tap:    t,
		client: conn,
		uid:    uuid.NewString(),
	}
}

// relay is one proxied control connection.
type relay struct {
	tap    *Tap
	client net.Conn
	uid    string
}

// Serve dials the upstream, derives the connection tuple and pumps both
// directions until either side closes. The analyzer is always told the
// connection ended, whatever the failure mode.
func (r *relay) Serve(ctx context.Context) {
	t := r.tap
	defer r.client.Close()

	upstream, err := net.DialTimeout("tcp", t.cfg.Upstream, t.cfg.DialTimeout)
	if err != nil {
		logger.Warn("upstream dial failed",
			logger.KeyConnUID, r.uid,
			"upstream", t.cfg.Upstream,
			logger.KeyError, err)
		return
	}
	defer upstream.Close()

	conn, err := r.tuple(upstream)
	if err != nil {
		logger.Warn("cannot derive connection tuple",
			logger.KeyConnUID, r.uid,
			logger.KeyError, err)
		return
	}

	ctx, span := telemetry.StartConnSpan(ctx,
		conn.UID, conn.OrigAddr.String(), conn.RespAddr.String())
	defer span.End()

	logger.Info("control connection opened",
		logger.KeyConnUID, conn.UID,
		logger.KeyOrigAddr, conn.OrigAddr.String(),
		logger.KeyRespAddr, conn.RespAddr.String())

	// When ctx dies (shutdown), unblock both pumps by closing the sockets.
	stop := context.AfterFunc(ctx, func() {
		r.client.Close()
		upstream.Close()
	})
	defer stop()

	done := make(chan struct{}, 2)

	go func() {
		r.pumpCommands(conn, r.client, upstream)
		// Half-close towards the server so a QUIT sequence drains cleanly.
		if tcp, ok := upstream.(*net.TCPConn); ok {
			_ = tcp.CloseWrite()
		}
		done <- struct{}{}
	}()
	go func() {
		r.pumpReplies(conn, upstream, r.client)
		if tcp, ok := r.client.(*net.TCPConn); ok {
			_ = tcp.CloseWrite()
		}
		done <- struct{}{}
	}()

	<-done
	// The surviving direction is pointless without its peer.
	r.client.Close()
	upstream.Close()
	<-done

	t.analyzer.OnConnectionEnded(conn.UID)
	logger.Info("control connection ended", logger.KeyConnUID, conn.UID)
}

// tuple derives the connection identity. The originator is the real client;
// the responder is the upstream server the traffic is relayed to.
func (r *relay) tuple(upstream net.Conn) (ftp.ConnTuple, error) {
	orig, err := netip.ParseAddrPort(r.client.RemoteAddr().String())
	if err != nil {
		return ftp.ConnTuple{}, fmt.Errorf("client address: %w", err)
	}
	resp, err := netip.ParseAddrPort(upstream.RemoteAddr().String())
	if err != nil {
		return ftp.ConnTuple{}, fmt.Errorf("upstream address: %w", err)
	}

	return ftp.ConnTuple{
		UID:      r.uid,
		OrigAddr: orig.Addr().Unmap(),
		OrigPort: orig.Port(),
		RespAddr: resp.Addr().Unmap(),
		RespPort: resp.Port(),
	}, nil
}

// pumpCommands relays client lines to the server, decoding each as an FTP
// command.
func (r *relay) pumpCommands(conn ftp.ConnTuple, from net.Conn, to net.Conn) {
	pump(from, to, func(line string) {
		cmd, arg, ok := ParseCommandLine(line)
		if !ok {
			logger.Debug("undecodable command line", logger.KeyConnUID, conn.UID)
			return
		}
		r.tap.analyzer.OnCommand(conn, cmd, arg, r.tap.clock())
	})
}

// pumpReplies relays server lines to the client, decoding each as an FTP
// reply. Multi-line reply state lives here: the decoder marks every line of
// an open multi-line block as a continuation until the terminating line.
func (r *relay) pumpReplies(conn ftp.ConnTuple, from net.Conn, to net.Conn) {
	var d ReplyDecoder
	pump(from, to, func(line string) {
		code, msg, cont, ok := d.Decode(line)
		if !ok {
			logger.Debug("undecodable reply line", logger.KeyConnUID, conn.UID)
			return
		}
		r.tap.analyzer.OnReply(conn, code, msg, cont, r.tap.clock())
	})
}
