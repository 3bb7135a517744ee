// Package wconntest provides live connection fixtures
// for tests that need both ends of a real QUIC connection.
package wconntest

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/gordian-engine/wyvern/internal/wtest"
	"github.com/gordian-engine/wyvern/wcert"
	"github.com/gordian-engine/wyvern/wconn"
	"github.com/gordian-engine/wyvern/wkey"
	"github.com/gordian-engine/wyvern/wkey/wkeytest"
	"github.com/quic-go/quic-go"
	"github.com/stretchr/testify/require"
)

// Pair is both ends of one live QUIC connection over loopback.
type Pair struct {
	DialerIdentity   wkey.PrivateKey
	ListenerIdentity wkey.PrivateKey

	// Dialer is the outbound side's view of the connection,
	// and Listener is the accepted inbound side's view.
	Dialer   *wconn.Conn
	Listener *wconn.Conn
}

// NewPair establishes a real QUIC connection
// between two independent transports on loopback,
// with identity verification on both sides of the handshake.
//
// Sockets and connections are torn down in [*testing.T.Cleanup].
func NewPair(t *testing.T, ctx context.Context) Pair {
	t.Helper()

	dialerIdentity := wkeytest.NewEd25519(t, 0)
	listenerIdentity := wkeytest.NewEd25519(t, 1)

	dialerCert, err := wcert.Generate(dialerIdentity)
	require.NoError(t, err)
	listenerCert, err := wcert.Generate(listenerIdentity)
	require.NoError(t, err)

	quicConf := &quic.Config{
		HandshakeIdleTimeout: 5 * time.Second,
		EnableDatagrams:      true,
	}

	listenerUDP, err := net.ListenUDP("udp", &net.UDPAddr{
		IP: net.IPv4(127, 0, 0, 1),
	})
	require.NoError(t, err)
	t.Cleanup(func() { listenerUDP.Close() })

	listenerTransport := &quic.Transport{Conn: listenerUDP}
	t.Cleanup(func() { listenerTransport.Close() })

	ql, err := listenerTransport.Listen(
		wcert.NewServerConfig(listenerCert), quicConf,
	)
	require.NoError(t, err)
	t.Cleanup(func() { ql.Close() })

	dialerUDP, err := net.ListenUDP("udp", &net.UDPAddr{
		IP: net.IPv4(127, 0, 0, 1),
	})
	require.NoError(t, err)
	t.Cleanup(func() { dialerUDP.Close() })

	dialerTransport := &quic.Transport{Conn: dialerUDP}
	t.Cleanup(func() { dialerTransport.Close() })

	acceptedCh := make(chan quic.Connection, 1)
	go func() {
		qc, err := ql.Accept(ctx)
		if err != nil {
			t.Error(err)
			return
		}
		acceptedCh <- qc
	}()

	rawDialed, err := dialerTransport.Dial(
		ctx, ql.Addr(), wcert.NewClientConfig(dialerCert), quicConf,
	)
	require.NoError(t, err)

	rawAccepted := wtest.ReceiveSoon(t, acceptedCh)

	dialed, err := wconn.Wrap(rawDialed)
	require.NoError(t, err)
	accepted, err := wconn.Wrap(rawAccepted)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = dialed.Close()
		_ = accepted.Close()
	})

	return Pair{
		DialerIdentity:   dialerIdentity,
		ListenerIdentity: listenerIdentity,

		Dialer:   dialed,
		Listener: accepted,
	}
}
