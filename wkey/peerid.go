package wkey

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

// PeerID is the stable identifier of a peer:
// the SHA-256 digest of the canonical encoding of its public key.
//
// PeerID is a comparable value type; use == for equality.
type PeerID [sha256.Size]byte

// NewPeerID derives the peer identifier for pub.
func NewPeerID(pub PublicKey) PeerID {
	return sha256.Sum256(MarshalPublicKey(pub))
}

// String returns the base58 form of the identifier.
func (id PeerID) String() string {
	return base58.Encode(id[:])
}

// ShortString returns an abbreviated base58 form,
// more appropriate for log output.
func (id PeerID) ShortString() string {
	s := base58.Encode(id[:])
	if len(s) <= 8 {
		return s
	}
	return s[:8]
}

// ParsePeerID parses the base58 form produced by [PeerID.String].
func ParsePeerID(s string) (PeerID, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return PeerID{}, fmt.Errorf("invalid peer ID: %w", err)
	}
	if len(b) != sha256.Size {
		return PeerID{}, fmt.Errorf(
			"invalid peer ID length %d (want %d)", len(b), sha256.Size,
		)
	}

	var id PeerID
	copy(id[:], b)
	return id, nil
}
