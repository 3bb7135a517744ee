package wkey

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// Secp256k1PrivateKey is a secp256k1 identity private key.
//
// Signatures are DER-serialized ECDSA over the SHA-256 digest
// of the message.
type Secp256k1PrivateKey struct {
	k *secp256k1.PrivateKey
}

// Secp256k1PublicKey is the public half of a [Secp256k1PrivateKey].
type Secp256k1PublicKey struct {
	k *secp256k1.PublicKey
}

var (
	_ PrivateKey = Secp256k1PrivateKey{}
	_ PublicKey  = Secp256k1PublicKey{}
)

// GenerateSecp256k1 generates a new secp256k1 identity key
// using entropy from rand.
// If rand is nil, crypto/rand.Reader is used.
func GenerateSecp256k1(rand io.Reader) (Secp256k1PrivateKey, error) {
	var (
		k   *secp256k1.PrivateKey
		err error
	)
	if rand == nil {
		k, err = secp256k1.GeneratePrivateKey()
	} else {
		k, err = secp256k1.GeneratePrivateKeyFromRand(rand)
	}
	if err != nil {
		return Secp256k1PrivateKey{}, fmt.Errorf(
			"failed to generate secp256k1 key: %w", err,
		)
	}

	return Secp256k1PrivateKey{k: k}, nil
}

// NewSecp256k1FromBytes deterministically builds a secp256k1 identity key
// from a 32-byte scalar.
func NewSecp256k1FromBytes(b []byte) (Secp256k1PrivateKey, error) {
	if len(b) != 32 {
		return Secp256k1PrivateKey{}, fmt.Errorf(
			"invalid secp256k1 private key length %d (want 32)", len(b),
		)
	}

	return Secp256k1PrivateKey{k: secp256k1.PrivKeyFromBytes(b)}, nil
}

func (k Secp256k1PrivateKey) Type() KeyType {
	return TypeSecp256k1
}

func (k Secp256k1PrivateKey) Sign(msg []byte) ([]byte, error) {
	hash := sha256.Sum256(msg)
	return ecdsa.Sign(k.k, hash[:]).Serialize(), nil
}

func (k Secp256k1PrivateKey) Public() PublicKey {
	return Secp256k1PublicKey{k: k.k.PubKey()}
}

// UnmarshalSecp256k1PublicKey parses a 33-byte compressed curve point.
func UnmarshalSecp256k1PublicKey(raw []byte) (Secp256k1PublicKey, error) {
	k, err := secp256k1.ParsePubKey(raw)
	if err != nil {
		return Secp256k1PublicKey{}, fmt.Errorf(
			"invalid secp256k1 public key: %w", err,
		)
	}

	return Secp256k1PublicKey{k: k}, nil
}

func (k Secp256k1PublicKey) Type() KeyType {
	return TypeSecp256k1
}

func (k Secp256k1PublicKey) Raw() []byte {
	return k.k.SerializeCompressed()
}

func (k Secp256k1PublicKey) Verify(msg, sig []byte) (bool, error) {
	s, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false, fmt.Errorf("invalid secp256k1 signature: %w", err)
	}

	hash := sha256.Sum256(msg)
	return s.Verify(hash[:], k.k), nil
}

func (k Secp256k1PublicKey) Equal(other PublicKey) bool {
	o, ok := other.(Secp256k1PublicKey)
	if !ok {
		return false
	}
	return k.k.IsEqual(o.k)
}
