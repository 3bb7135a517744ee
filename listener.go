package wyvern

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"sync"

	"github.com/gordian-engine/wyvern/internal/wtrace"
	"github.com/gordian-engine/wyvern/waddr"
	"github.com/gordian-engine/wyvern/wconn"
	"github.com/quic-go/quic-go"
)

// Listener accepts identity-verified connections on one bound UDP socket.
//
// Create a Listener with [(*Endpoint).Listen].
type Listener struct {
	log *slog.Logger

	e *Endpoint

	addrs []waddr.Addr

	ql *quic.Listener

	accepted chan *wconn.Conn

	closeOnce sync.Once
	closed    chan struct{}
}

// Listen binds the given local address and begins accepting connections.
// Bind failures are reported synchronously.
//
// addr may have a wildcard IP or a zero port;
// the bound socket resolves both,
// and [(*Listener).Addrs] reports the concrete addresses
// the listener is reachable at.
func (e *Endpoint) Listen(addr waddr.Addr) (*Listener, error) {
	if e.ctx.Err() != nil {
		return nil, ErrEndpointClosed
	}

	if !addr.IP.IsValid() {
		return nil, fmt.Errorf("listen address must have an IP (got %s)", addr)
	}

	udpConn, err := net.ListenUDP("udp", addr.UDPAddr())
	if err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", addr, err)
	}

	qt := &quic.Transport{
		Conn: udpConn,

		// Accepted connections' contexts
		// are derived from the endpoint's lifecycle context.
		ConnContext: func(context.Context) context.Context {
			return e.ctx
		},
	}

	ql, err := qt.Listen(e.serverTLS, e.quicConf)
	if err != nil {
		_ = udpConn.Close()
		return nil, fmt.Errorf("failed to start QUIC listener on %s: %w", addr, err)
	}

	bound, err := waddr.FromNetAddr(udpConn.LocalAddr())
	if err != nil {
		panic(fmt.Errorf(
			"IMPOSSIBLE: UDP socket reported a non-UDP local address: %w", err,
		))
	}

	addrs, err := bound.Expand()
	if err != nil {
		_ = ql.Close()
		_ = udpConn.Close()
		return nil, fmt.Errorf("failed to expand bound address %s: %w", bound, err)
	}

	l := &Listener{
		log: e.log.With("listen_addr", bound.String()),

		e: e,

		addrs: addrs,

		ql: ql,

		accepted: make(chan *wconn.Conn, e.acceptBacklog),

		closed: make(chan struct{}),
	}

	e.registerTransport(qt, udpConn)

	e.wg.Add(1)
	go l.acceptPump(e.ctx)

	return l, nil
}

// Addrs returns the concrete local addresses the listener is reachable at.
//
// A wildcard bind address is expanded
// to the machine's usable interface addresses,
// and a zero port is replaced by the actual bound port.
// The list is final before [(*Endpoint).Listen] returns,
// so callers can announce it
// before the first connection could possibly arrive.
func (l *Listener) Addrs() []waddr.Addr {
	return slices.Clone(l.addrs)
}

// acceptPump accepts incoming QUIC connections,
// wraps them with their verified peer identity,
// and queues them for [(*Listener).Accept].
//
// The QUIC layer only surfaces connections whose handshake completed,
// and the handshake itself runs the identity binding verification,
// so a connection with an invalid binding never reaches this loop.
func (l *Listener) acceptPump(ctx context.Context) {
	defer l.e.wg.Done()
	defer l.markClosed()

	ctx, span := l.e.tracer.Start(
		ctx,
		"accept loop",
		wtrace.WithAttributes(wtrace.AddrAttr("listen", l.ql.Addr())),
	)
	defer span.End()

	for {
		qc, err := l.ql.Accept(ctx)
		if err != nil {
			if errors.Is(context.Cause(ctx), err) {
				l.log.Info(
					"Accept loop quitting due to context cancellation when accepting connection",
					"cause", context.Cause(ctx),
				)
				return
			}

			if errors.Is(err, quic.ErrServerClosed) {
				l.log.Debug("Accept loop quitting; listener closed")
				return
			}

			// Debug level since this could get spammy.
			l.log.Debug("Failed to accept incoming connection", "err", err)
			continue
		}

		c, err := wconn.Wrap(qc)
		if err != nil {
			l.log.Debug(
				"Failed to wrap incoming connection",
				"remote_addr", qc.RemoteAddr().String(),
				"err", err,
			)
			span.AddEvent(
				"rejected incoming connection",
				wtrace.WithAttributes(
					wtrace.AddrAttr("remote", qc.RemoteAddr()),
					wtrace.ErrorAttr(err),
				),
			)
			_ = qc.CloseWithError(1, "rejected by listener")
			continue
		}

		span.AddEvent(
			"accepted connection",
			wtrace.WithAttributes(
				wtrace.AddrAttr("remote", qc.RemoteAddr()),
				wtrace.PeerIDAttr(c.PeerID()),
			),
		)

		l.e.adoptConn(c)

		select {
		case <-ctx.Done():
			l.log.Info(
				"Accept loop quitting due to context cancellation while queueing connection",
				"cause", context.Cause(ctx),
			)
			return
		case <-l.closed:
			// Close raced with this accept.
			// Nothing can claim the connection now.
			_ = c.CloseWithError(0, "listener closed")
			return
		case l.accepted <- c:
			// Queued for Accept.
		}
	}
}

// Accept returns the next verified inbound connection.
//
// It blocks until a connection is available,
// the given context is canceled,
// or the listener is closed,
// in which case it returns [ErrListenerClosed].
func (l *Listener) Accept(ctx context.Context) (*wconn.Conn, error) {
	// Prefer the closed state over a queued connection,
	// so that Accept is deterministic after Close.
	select {
	case <-l.closed:
		return nil, ErrListenerClosed
	default:
	}

	select {
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	case <-l.closed:
		return nil, ErrListenerClosed
	case c := <-l.accepted:
		return c, nil
	}
}

// Close stops accepting connections.
// Pending and future calls to [(*Listener).Accept]
// return [ErrListenerClosed].
//
// Established connections are unaffected;
// the bound socket is released
// when the endpoint's lifecycle context is canceled.
func (l *Listener) Close() error {
	err := l.ql.Close()
	l.markClosed()
	return err
}

func (l *Listener) markClosed() {
	l.closeOnce.Do(func() {
		close(l.closed)

		// Queued connections can no longer be claimed through Accept.
		// They were already published to the change feed,
		// so close them and let their watchers publish the removals.
		for {
			select {
			case c := <-l.accepted:
				_ = c.CloseWithError(0, "listener closed")
			default:
				return
			}
		}
	})
}
