package wyverntest

import (
	"context"
	"log/slog"
	"testing"

	"github.com/gordian-engine/wyvern"
	"github.com/gordian-engine/wyvern/internal/wtest"
	"github.com/gordian-engine/wyvern/waddr"
	"github.com/gordian-engine/wyvern/wconn"
	"github.com/gordian-engine/wyvern/wkey"
	"github.com/gordian-engine/wyvern/wkey/wkeytest"
	"github.com/stretchr/testify/require"
)

// Network contains a collection of NetworkNode values,
// to simplify tests that require multiple endpoints.
type Network struct {
	Log *slog.Logger

	Nodes []NetworkNode
}

// NetworkNode contains the details for one endpoint in this test network.
type NetworkNode struct {
	Identity wkey.PrivateKey

	Endpoint *wyvern.Endpoint

	Listener *wyvern.Listener
}

// Addr returns the node's first listener address,
// suitable for another node to dial.
func (n NetworkNode) Addr() waddr.Addr {
	return n.Listener.Addrs()[0]
}

// PeerID returns the peer ID of the node's identity.
func (n NetworkNode) PeerID() wkey.PeerID {
	return n.Endpoint.PeerID()
}

// NewNetwork returns a Network of n endpoints,
// each holding a distinct identity
// and listening on a loopback address.
//
// If any error occurs while creating the network,
// t.Fatal is called.
//
// t.Cleanup is used extensively to ensure resources are cleaned up.
// The cleanup blocks in [(*wyvern.Endpoint).Wait],
// so the given context must be canceled before the end of the test.
func NewNetwork(t *testing.T, ctx context.Context, n int) *Network {
	t.Helper()

	log := wtest.NewLogger(t)

	nodes := make([]NetworkNode, n)
	for i := range nodes {
		identity := wkeytest.NewEd25519(t, i)

		e, err := wyvern.NewEndpoint(ctx, log.With("endpoint", i), wyvern.EndpointConfig{
			Identity: identity,
			QUIC:     wyvern.DefaultQUICConfig(),
		})
		require.NoError(t, err)

		// This cleanup call necessitates that the context is cancelled before the end of the test.
		t.Cleanup(e.Wait)

		l, err := e.Listen(waddr.MustParse("/ip4/127.0.0.1/udp/0/quic-v1"))
		require.NoError(t, err)

		nodes[i] = NetworkNode{
			Identity: identity,
			Endpoint: e,
			Listener: l,
		}
	}

	return &Network{
		Log:   log,
		Nodes: nodes,
	}
}

// Dial connects the from node to the to node,
// returning both ends of the resulting connection.
//
// If dialing or accepting fails, t.Fatal is called.
func (n *Network) Dial(
	t *testing.T, ctx context.Context, from, to int,
) (dialed, accepted *wconn.Conn) {
	t.Helper()

	dialed, err := n.Nodes[from].Endpoint.Dial(ctx, n.Nodes[to].Addr())
	require.NoError(t, err)

	accepted, err = n.Nodes[to].Listener.Accept(ctx)
	require.NoError(t, err)

	return dialed, accepted
}

func (n *Network) Wait() {
	for _, node := range n.Nodes {
		node.Endpoint.Wait()
	}
}
