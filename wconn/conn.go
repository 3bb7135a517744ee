// Package wconn wraps established QUIC connections to verified peers.
//
// A [Conn] only exists for handshakes that passed identity verification,
// so holding one is proof of who the remote peer is.
// The wrappers in this package add the verified identity,
// normalized addresses, and close observation
// on top of the underlying QUIC stream operations.
package wconn

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/gordian-engine/wyvern/waddr"
	"github.com/gordian-engine/wyvern/wcert"
	"github.com/gordian-engine/wyvern/wkey"
	"github.com/quic-go/quic-go"
)

// ApplicationErrorCode is used for [Conn.CloseWithError],
// to inform the peer of why the connection is closing.
type ApplicationErrorCode uint64

// Conn is one established QUIC connection to a verified peer.
type Conn struct {
	quic quic.Connection

	identity wkey.PublicKey
	peerID   wkey.PeerID

	local, remote waddr.Addr

	closed     chan struct{}
	closeCause error
}

// Wrap adopts an established QUIC connection
// whose handshake was configured through
// [wcert.NewServerConfig] or [wcert.NewClientConfig].
//
// Wrap panics if the connection's TLS state
// does not carry a valid identity binding;
// a connection from a handshake that did not run the verifier
// is a caller bug, not a runtime condition.
func Wrap(qc quic.Connection) (*Conn, error) {
	identity := wcert.MustPeerIdentity(qc.ConnectionState().TLS)

	local, err := waddr.FromNetAddr(qc.LocalAddr())
	if err != nil {
		return nil, fmt.Errorf("failed to normalize local address: %w", err)
	}
	remote, err := waddr.FromNetAddr(qc.RemoteAddr())
	if err != nil {
		return nil, fmt.Errorf("failed to normalize remote address: %w", err)
	}

	c := &Conn{
		quic: qc,

		identity: identity,
		peerID:   wkey.NewPeerID(identity),

		local:  local,
		remote: remote,

		closed: make(chan struct{}),
	}

	go c.watchClose()

	return c, nil
}

// The QUIC layer runs the connection's protocol driver internally;
// its termination, for any reason, cancels the connection context
// with the terminal error as the cause.
// Watching that context is what turns driver failure
// into the Closed/CloseCause broadcast.
func (c *Conn) watchClose() {
	qctx := c.quic.Context()
	<-qctx.Done()

	c.closeCause = context.Cause(qctx)
	close(c.closed)
}

// Identity returns the peer's verified long-term public key.
func (c *Conn) Identity() wkey.PublicKey {
	return c.identity
}

// PeerID returns the stable identifier of the peer's identity.
func (c *Conn) PeerID() wkey.PeerID {
	return c.peerID
}

// LocalAddr returns the local endpoint address.
func (c *Conn) LocalAddr() waddr.Addr {
	return c.local
}

// RemoteAddr returns the peer's endpoint address,
// as observed on the socket.
func (c *Conn) RemoteAddr() waddr.Addr {
	return c.remote
}

// TLSConnectionState exposes the handshake details.
// The identity is already extracted;
// this is for callers inspecting negotiated parameters.
func (c *Conn) TLSConnectionState() tls.ConnectionState {
	return c.quic.ConnectionState().TLS
}

// AcceptStream returns the next bidirectional stream
// opened by the peer.
// It blocks until the peer opens one,
// ctx is done, or the connection terminates;
// termination fails the call with the connection's close error
// rather than blocking forever.
func (c *Conn) AcceptStream(ctx context.Context) (Stream, error) {
	s, err := c.quic.AcceptStream(ctx)
	if err != nil {
		return Stream{}, err
	}
	return Stream{s: s}, nil
}

// AcceptUniStream returns the next unidirectional stream
// opened by the peer.
func (c *Conn) AcceptUniStream(ctx context.Context) (ReceiveStream, error) {
	s, err := c.quic.AcceptUniStream(ctx)
	if err != nil {
		return ReceiveStream{}, err
	}
	return ReceiveStream{s: s}, nil
}

// OpenStreamSync opens a new bidirectional stream,
// blocking while the connection is at its stream limit.
//
// The peer does not learn of the stream until data is written to it.
func (c *Conn) OpenStreamSync(ctx context.Context) (Stream, error) {
	s, err := c.quic.OpenStreamSync(ctx)
	if err != nil {
		return Stream{}, err
	}
	return Stream{s: s}, nil
}

// OpenUniStreamSync opens a new unidirectional send stream,
// blocking while the connection is at its stream limit.
func (c *Conn) OpenUniStreamSync(ctx context.Context) (SendStream, error) {
	s, err := c.quic.OpenUniStreamSync(ctx)
	if err != nil {
		return SendStream{}, err
	}
	return SendStream{s: s}, nil
}

// SendDatagram sends an unreliable datagram
// outside of any stream's ordering.
func (c *Conn) SendDatagram(p []byte) error {
	return c.quic.SendDatagram(p)
}

// ReceiveDatagram returns the next datagram from the peer.
func (c *Conn) ReceiveDatagram(ctx context.Context) ([]byte, error) {
	return c.quic.ReceiveDatagram(ctx)
}

// CloseWithError closes the connection,
// sending the code and message to the peer.
// Every open stream on the connection fails,
// on both sides.
func (c *Conn) CloseWithError(code ApplicationErrorCode, msg string) error {
	if (code >> 62) > 0 {
		panic(fmt.Errorf(
			"BUG: application error code must fit in 62 bits (got 0x%x)", code,
		))
	}
	return c.quic.CloseWithError(quic.ApplicationErrorCode(code), msg)
}

// Close is [Conn.CloseWithError] with code zero and no message.
func (c *Conn) Close() error {
	return c.CloseWithError(0, "")
}

// Closed returns a channel that is closed
// once the connection has terminated for any reason:
// local close, peer close, timeout,
// or an internal protocol failure.
//
// Any number of goroutines may wait on it.
// Operations blocked on the connection are failed by the QUIC layer
// as part of the same termination.
func (c *Conn) Closed() <-chan struct{} {
	return c.closed
}

// CloseCause reports why the connection terminated.
// It returns nil while the connection is live,
// and a stable non-nil error once [Conn.Closed] is closed.
func (c *Conn) CloseCause() error {
	select {
	case <-c.closed:
		return c.closeCause
	default:
		return nil
	}
}
