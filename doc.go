// Package wyvern implements an authenticated, multiplexed QUIC transport
// for peers identified by long-lived public keys.
//
// Instead of certificate authorities,
// each peer self-signs a session certificate
// that embeds a signature by its long-term identity key
// over the session key (see [github.com/gordian-engine/wyvern/wcert]).
// Both sides of every handshake verify that binding,
// so holding a connection is proof of the remote peer's identity.
//
// An [Endpoint] owns the local identity
// and produces verified connections in both directions:
// [(*Endpoint).Listen] accepts inbound handshakes,
// and [(*Endpoint).Dial] establishes outbound ones.
// Each connection multiplexes independent byte streams
// (see [github.com/gordian-engine/wyvern/wconn]).
package wyvern
