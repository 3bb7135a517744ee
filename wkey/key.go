package wkey

import "fmt"

// KeyType identifies the algorithm of an identity key pair.
//
// The numeric values are part of the canonical public key encoding
// (see [MarshalPublicKey]) and must not be changed.
type KeyType int32

const (
	// TypeEd25519 is an Ed25519 key pair.
	// Raw public keys are 32 bytes.
	TypeEd25519 KeyType = 1

	// TypeSecp256k1 is a secp256k1 key pair.
	// Raw public keys are 33-byte compressed curve points.
	TypeSecp256k1 KeyType = 2
)

func (t KeyType) String() string {
	switch t {
	case TypeEd25519:
		return "ed25519"
	case TypeSecp256k1:
		return "secp256k1"
	default:
		return fmt.Sprintf("unknown(%d)", int32(t))
	}
}

// PublicKey is the public half of a peer's long-term identity.
//
// A peer's stable identifier is derived from its public key
// with [NewPeerID].
type PublicKey interface {
	// Type reports the key algorithm.
	Type() KeyType

	// Raw returns the algorithm-specific key bytes:
	// the 32-byte Ed25519 public key,
	// or the 33-byte compressed secp256k1 point.
	Raw() []byte

	// Verify reports whether sig is a valid signature by this key over msg.
	//
	// A malformed signature encoding is reported as an error;
	// a well-formed signature that does not match returns false, nil.
	// Callers that do not care about the distinction
	// should treat any non-(true, nil) result as a failed verification.
	Verify(msg, sig []byte) (bool, error)

	// Equal reports whether other is the same key.
	Equal(other PublicKey) bool
}

// PrivateKey is the private half of a peer's long-term identity.
type PrivateKey interface {
	// Type reports the key algorithm.
	Type() KeyType

	// Sign returns a signature over msg.
	Sign(msg []byte) ([]byte, error)

	// Public returns the corresponding public key.
	Public() PublicKey
}

// UnsupportedKeyTypeError indicates a key type
// this package does not implement.
type UnsupportedKeyTypeError struct {
	Type KeyType
}

func (e UnsupportedKeyTypeError) Error() string {
	return fmt.Sprintf("unsupported key type %v", e.Type)
}
