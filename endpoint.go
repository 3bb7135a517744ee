package wyvern

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gordian-engine/wyvern/internal/wtrace"
	"github.com/gordian-engine/wyvern/wcert"
	"github.com/gordian-engine/wyvern/wconn"
	"github.com/gordian-engine/wyvern/wkey"
	"github.com/quic-go/quic-go"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// EndpointConfig is the configuration for a new [Endpoint].
type EndpointConfig struct {
	// The long-lived identity of this endpoint.
	// Every connection the endpoint establishes, in either direction,
	// proves possession of this key to the remote peer.
	Identity wkey.PrivateKey

	// The QUIC configuration shared by all listeners and dials.
	// [DefaultQUICConfig] is a reasonable starting point.
	QUIC *quic.Config

	// How many verified inbound connections a listener queues
	// before it stops accepting new ones,
	// while waiting on calls to [(*Listener).Accept].
	// Zero means a small default.
	AcceptBacklog uint8

	// If nil, a no-op tracer provider is used.
	TracerProvider oteltrace.TracerProvider
}

// validate panics if the configuration is unusable.
// Configuration is under direct programmer control,
// so misconfiguration is treated as programmer error.
func (c EndpointConfig) validate(log *slog.Logger) {
	// If there are multiple reasons we could panic,
	// collect them all in one go
	// so we can give a maximally helpful error.
	var panicErrs error

	if c.Identity == nil {
		panicErrs = errors.Join(panicErrs, errors.New(
			"EndpointConfig.Identity may not be nil",
		))
	}

	if c.QUIC == nil {
		panicErrs = errors.Join(panicErrs, errors.New(
			"EndpointConfig.QUIC may not be nil (consider DefaultQUICConfig())",
		))
	} else {
		if c.QUIC.Allow0RTT {
			panicErrs = errors.Join(panicErrs, errors.New(
				"EndpointConfig.QUIC.Allow0RTT must be false: early data would carry application bytes before the identity binding is verified",
			))
		}

		if !c.QUIC.EnableDatagrams {
			log.Warn(
				"QUIC datagrams are disabled; SendDatagram and ReceiveDatagram will fail on every connection",
			)
		}
	}

	if panicErrs != nil {
		panic(panicErrs)
	}
}

// DefaultQUICConfig returns a reasonable default QUIC configuration
// for an [EndpointConfig].
func DefaultQUICConfig() *quic.Config {
	return &quic.Config{
		// Skip: GetConfigForClient: the TLS configuration is fixed per endpoint.

		// Skip: Versions: accept whatever quic-go currently supports.

		// Defaults to 5s otherwise.
		// If a handshake hasn't completed in 2s,
		// we would rather report the failure and let the caller retry.
		HandshakeIdleTimeout: 2 * time.Second,

		// Skip: MaxIdleTimeout: default of 30s of silence
		// before killing a connection seems fine.

		// Initial and upper bound for per-stream flow control windows.
		// Just estimates for now.
		InitialStreamReceiveWindow: 32 * 1024,
		MaxStreamReceiveWindow:     1024 * 1024,

		// Those were per-stream windows; these are per-connection.
		InitialConnectionReceiveWindow: 4 * 32 * 1024,
		MaxConnectionReceiveWindow:     4 * 1024 * 1024,

		// How many peer-initiated streams may be open at once,
		// per connection.
		// Callers running many concurrent substreams
		// will want to raise these.
		MaxIncomingStreams:    32,
		MaxIncomingUniStreams: 32,

		// Skip: KeepAlivePeriod: assume no keepalives
		// until idle timeouts show up in practice.

		// Skip: Allow0RTT: early data would carry application bytes
		// before the identity binding is verified, so it stays off.
		// (validate rejects a config that sets it.)

		// Datagrams ride alongside streams on the same connection,
		// and enabling the extension costs nothing when unused.
		EnableDatagrams: true,

		// Skip: Tracer: don't want this yet.
	}
}

// Endpoint owns a long-lived identity and the session certificate bound to it,
// and establishes identity-verified QUIC connections in both directions.
//
// Create an Endpoint with [NewEndpoint].
type Endpoint struct {
	log    *slog.Logger
	tracer wtrace.Tracer

	// Root lifecycle context, from NewEndpoint.
	ctx context.Context

	// The session certificate reused across every handshake.
	// The private identity key is not retained;
	// the binding signature is already embedded in the certificate.
	cert wcert.Certificate

	quicConf  *quic.Config
	serverTLS *tls.Config
	clientTLS *tls.Config

	acceptBacklog uint8

	// Guards the transport and socket lists, and the lazy dial transport.
	mu         sync.Mutex
	dialQT     *quic.Transport
	transports []*quic.Transport
	udpConns   []*net.UDPConn

	// Guards feed, so that additions and removals
	// from every listener and dial are serialized.
	feedMu sync.Mutex
	feed   *wconn.ChangeFeed

	wg sync.WaitGroup
}

// NewEndpoint returns a new Endpoint using the given configuration.
//
// The context controls the endpoint's lifecycle.
// Canceling it closes every connection the endpoint established
// and releases every socket it bound;
// use [(*Endpoint).Wait] to block until that teardown completes.
//
// NewEndpoint returns runtime errors encountered during setup.
// Misconfiguration causes a panic instead.
func NewEndpoint(
	ctx context.Context, log *slog.Logger, cfg EndpointConfig,
) (*Endpoint, error) {
	// Panics on misconfiguration.
	cfg.validate(log)

	cert, err := wcert.Generate(cfg.Identity)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session certificate: %w", err)
	}

	tp := cfg.TracerProvider
	if tp == nil {
		tp = wtrace.NopTracerProvider()
	}

	e := &Endpoint{
		log:    log,
		tracer: tp.Tracer("wyvern"),

		ctx: ctx,

		cert: cert,

		quicConf:  cfg.QUIC,
		serverTLS: wcert.NewServerConfig(cert),
		clientTLS: wcert.NewClientConfig(cert),

		acceptBacklog: cfg.AcceptBacklog,

		feed: wconn.NewChangeFeed(),
	}
	if e.acceptBacklog == 0 {
		e.acceptBacklog = 4
	}

	e.wg.Add(1)
	go e.closeTransportsOnShutdown()

	return e, nil
}

// PeerID returns the peer ID of the endpoint's own identity,
// as remote peers will observe it.
func (e *Endpoint) PeerID() wkey.PeerID {
	return e.cert.PeerID()
}

// Wait blocks until the endpoint's background work has finished.
// Callers should cancel the context passed to [NewEndpoint]
// before calling Wait.
func (e *Endpoint) Wait() {
	e.wg.Wait()
}

// Changes returns the current head of the connection change feed.
//
// Connections the endpoint establishes, inbound or outbound,
// are published to the feed when they become usable,
// and published again upon their removal once they close.
// All publishes happen in one serialized order,
// and a reader observes every change from the returned node onward.
func (e *Endpoint) Changes() *wconn.ChangeFeed {
	e.feedMu.Lock()
	defer e.feedMu.Unlock()

	return e.feed
}

// adoptConn publishes the connection's addition to the change feed
// and starts the background watch that ties the connection
// to the endpoint's lifecycle and eventually publishes its removal.
func (e *Endpoint) adoptConn(c *wconn.Conn) {
	e.publishChange(wconn.Change{Conn: c, Adding: true})

	e.wg.Add(1)
	go e.watchConn(c)
}

func (e *Endpoint) watchConn(c *wconn.Conn) {
	defer e.wg.Done()

	select {
	case <-e.ctx.Done():
		if err := c.CloseWithError(0, "endpoint shutting down"); err != nil {
			e.log.Debug(
				"Failed to close connection during shutdown",
				"remote_addr", c.RemoteAddr(),
				"err", err,
			)
		}

		// CloseWithError only initiates the close;
		// don't publish the removal before it lands.
		<-c.Closed()
	case <-c.Closed():
		// Closed on its own, whether locally or by the peer.
	}

	e.publishChange(wconn.Change{Conn: c, Adding: false})
}

func (e *Endpoint) publishChange(ch wconn.Change) {
	e.feedMu.Lock()
	defer e.feedMu.Unlock()

	e.feed.Publish(ch)
	e.feed = e.feed.Next
}

// registerTransport records a transport and its socket
// for closure at endpoint shutdown.
func (e *Endpoint) registerTransport(qt *quic.Transport, uc *net.UDPConn) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// The shutdown sweep runs under mu as well;
	// a registration arriving after the sweep must not leak its socket.
	if e.ctx.Err() != nil {
		_ = qt.Close()
		_ = uc.Close()
		return
	}

	e.transports = append(e.transports, qt)
	e.udpConns = append(e.udpConns, uc)
}

// closeTransportsOnShutdown releases every bound socket
// once the endpoint's lifecycle context is canceled.
//
// Sockets live for the lifetime of the endpoint, not of a listener:
// a closed listener stops accepting new connections immediately,
// but its transport may still be carrying established connections.
func (e *Endpoint) closeTransportsOnShutdown() {
	defer e.wg.Done()

	<-e.ctx.Done()

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, qt := range e.transports {
		if err := qt.Close(); err != nil {
			e.log.Debug("Failed to close QUIC transport during shutdown", "err", err)
		}
	}

	for _, uc := range e.udpConns {
		if err := uc.Close(); err != nil {
			e.log.Debug("Failed to close UDP socket during shutdown", "err", err)
		}
	}
}
