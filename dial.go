package wyvern

import (
	"context"
	"fmt"
	"net"

	"github.com/gordian-engine/wyvern/internal/wtrace"
	"github.com/gordian-engine/wyvern/waddr"
	"github.com/gordian-engine/wyvern/wconn"
	"github.com/gordian-engine/wyvern/wkey"
	"github.com/quic-go/quic-go"
)

// Dial establishes an outbound connection to the given remote address.
//
// A target with a wildcard IP or a zero port
// cannot denote a reachable remote endpoint,
// so Dial rejects it with a [DialAddressError]
// before sending any packet.
//
// The handshake verifies the remote peer's identity binding;
// a peer presenting an invalid binding surfaces as a handshake failure.
// Dial proves which identity the remote holds,
// not that it is any particular peer.
// Use [(*Endpoint).DialPeer] to require a specific expected identity.
func (e *Endpoint) Dial(ctx context.Context, addr waddr.Addr) (*wconn.Conn, error) {
	if !addr.Concrete() {
		return nil, DialAddressError{Addr: addr}
	}

	ctx, span := e.tracer.Start(
		ctx,
		"dial",
		wtrace.WithAttributes(wtrace.AddrAttr("target", addr)),
	)
	defer span.End()

	qt, err := e.dialTransport()
	if err != nil {
		wtrace.SpanError(span, err)
		return nil, err
	}

	qc, err := qt.Dial(ctx, addr.UDPAddr(), e.clientTLS, e.quicConf)
	if err != nil {
		err = fmt.Errorf("failed to dial %s: %w", addr, err)
		wtrace.SpanError(span, err)
		return nil, err
	}

	c, err := wconn.Wrap(qc)
	if err != nil {
		_ = qc.CloseWithError(1, "rejected by dialer")
		wtrace.SpanError(span, err)
		return nil, err
	}

	span.SetAttributes(wtrace.PeerIDAttr(c.PeerID()))

	e.adoptConn(c)

	return c, nil
}

// DialPeer dials addr and additionally requires
// the authenticated remote peer to hold the expected identity.
//
// The handshake only proves which identity the remote holds.
// Whether that is the peer the caller meant to reach
// is a policy question answered here, after the handshake:
// on a mismatch the connection is closed
// and a [PeerMismatchError] is returned.
func (e *Endpoint) DialPeer(
	ctx context.Context, addr waddr.Addr, expect wkey.PeerID,
) (*wconn.Conn, error) {
	c, err := e.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}

	if got := c.PeerID(); got != expect {
		if err := c.CloseWithError(1, "unexpected peer identity"); err != nil {
			e.log.Debug(
				"Failed to close connection after peer mismatch",
				"remote_addr", c.RemoteAddr(),
				"err", err,
			)
		}
		return nil, PeerMismatchError{Want: expect, Got: got}
	}

	return c, nil
}

// dialTransport lazily binds the socket used for outbound connections.
// One dual-stack wildcard socket serves every dial,
// so all outbound connections share a single local port,
// independent of any listener's socket or address family.
func (e *Endpoint) dialTransport() (*quic.Transport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Checked under mu: teardown sweeps transports under the same lock,
	// so a socket created after passing this check cannot miss the sweep.
	if e.ctx.Err() != nil {
		return nil, ErrEndpointClosed
	}

	if e.dialQT != nil {
		return e.dialQT, nil
	}

	udpConn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to bind dial socket: %w", err)
	}

	qt := &quic.Transport{Conn: udpConn}

	e.dialQT = qt

	// Inline registration; registerTransport would deadlock on e.mu.
	e.transports = append(e.transports, qt)
	e.udpConns = append(e.udpConns, udpConn)

	return qt, nil
}
