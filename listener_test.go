package wyvern_test

import (
	"context"
	"io"
	"testing"

	"github.com/gordian-engine/wyvern"
	"github.com/gordian-engine/wyvern/internal/wtest"
	"github.com/gordian-engine/wyvern/waddr"
	"github.com/gordian-engine/wyvern/wyverntest"
	"github.com/stretchr/testify/require"
)

func TestListen_wildcardAnnouncesConcreteAddrs(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	net := wyverntest.NewNetwork(t, ctx, 1)

	l, err := net.Nodes[0].Endpoint.Listen(
		waddr.MustParse("/ip4/0.0.0.0/udp/0/quic-v1"),
	)
	require.NoError(t, err)

	addrs := l.Addrs()
	require.NotEmpty(t, addrs)

	// Every announced address is dialable as written:
	// specific IPv4 addresses and the one bound port.
	port := addrs[0].Port
	require.NotZero(t, port)
	for _, a := range addrs {
		require.Truef(t, a.Concrete(), "announced address %s must be concrete", a)
		require.Truef(t, a.IP.Is4(), "announced address %s must stay in the bound family", a)
		require.Equal(t, port, a.Port)
	}
}

func TestListen_wildcardDialableViaLoopback(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	net := wyverntest.NewNetwork(t, ctx, 2)

	l, err := net.Nodes[1].Endpoint.Listen(
		waddr.MustParse("/ip4/0.0.0.0/udp/0/quic-v1"),
	)
	require.NoError(t, err)

	var target waddr.Addr
	for _, a := range l.Addrs() {
		if a.IP.IsLoopback() {
			target = a
			break
		}
	}
	require.Truef(t, target.Concrete(), "expected a loopback address among %v", l.Addrs())

	conn, err := net.Nodes[0].Endpoint.Dial(ctx, target)
	require.NoError(t, err)

	accepted, err := l.Accept(ctx)
	require.NoError(t, err)
	require.Equal(t, net.Nodes[0].PeerID(), accepted.PeerID())

	payload := []byte{1, 2, 3}

	s, err := conn.OpenStreamSync(ctx)
	require.NoError(t, err)
	_, err = s.Write(payload)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	rs, err := accepted.AcceptStream(ctx)
	require.NoError(t, err)

	got, err := io.ReadAll(rs)
	require.NoError(t, err)
	require.Equal(t, payload, got)

	// The dialer half-closed its send side,
	// so further reads report a clean end of stream.
	n, err := rs.Read(make([]byte, 1))
	require.Zero(t, n)
	require.ErrorIs(t, err, io.EOF)

	require.NoError(t, conn.Close())
}

func TestListen_rejectsInvalidAddr(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	net := wyverntest.NewNetwork(t, ctx, 1)

	_, err := net.Nodes[0].Endpoint.Listen(waddr.Addr{})
	require.Error(t, err)
}

func TestListener_acceptAfterClose(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	net := wyverntest.NewNetwork(t, ctx, 1)
	l := net.Nodes[0].Listener

	require.NoError(t, l.Close())

	_, err := l.Accept(ctx)
	require.ErrorIs(t, err, wyvern.ErrListenerClosed)
}

func TestListener_closeUnblocksPendingAccept(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	net := wyverntest.NewNetwork(t, ctx, 1)
	l := net.Nodes[0].Listener

	acceptErr := make(chan error, 1)
	go func() {
		_, err := l.Accept(ctx)
		acceptErr <- err
	}()

	require.NoError(t, l.Close())

	err := wtest.ReceiveSoon(t, acceptErr)
	require.ErrorIs(t, err, wyvern.ErrListenerClosed)
}

func TestListener_acceptHonorsContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	net := wyverntest.NewNetwork(t, ctx, 1)
	l := net.Nodes[0].Listener

	acceptCtx, acceptCancel := context.WithCancel(ctx)
	acceptCancel()

	_, err := l.Accept(acceptCtx)
	require.ErrorIs(t, err, context.Canceled)
}
