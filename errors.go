package wyvern

import (
	"errors"
	"fmt"

	"github.com/gordian-engine/wyvern/waddr"
	"github.com/gordian-engine/wyvern/wkey"
)

// ErrListenerClosed is returned from [(*Listener).Accept]
// once the listener has been closed.
var ErrListenerClosed = errors.New("listener closed")

// ErrEndpointClosed is returned from [(*Endpoint).Listen]
// and [(*Endpoint).Dial]
// once the endpoint's lifecycle context has been canceled.
var ErrEndpointClosed = errors.New("endpoint closed")

// DialAddressError is returned from [(*Endpoint).Dial]
// for a target address that cannot denote a reachable remote endpoint,
// such as a wildcard IP or a zero port.
// The dial fails before any packet is sent,
// distinguishing a local configuration mistake from a network failure.
type DialAddressError struct {
	Addr waddr.Addr
}

func (e DialAddressError) Error() string {
	return fmt.Sprintf(
		"cannot dial %s: target needs a specific IP and a nonzero port", e.Addr,
	)
}

// PeerMismatchError is returned from [(*Endpoint).DialPeer]
// when the dialed peer authenticates successfully
// but holds an identity other than the expected one.
type PeerMismatchError struct {
	Want, Got wkey.PeerID
}

func (e PeerMismatchError) Error() string {
	return fmt.Sprintf(
		"connected peer has identity %s, expected %s", e.Got, e.Want,
	)
}
