package wkey

import (
	"crypto/ed25519"
	"fmt"
	"io"
)

// Ed25519PrivateKey is an Ed25519 identity private key.
//
// Create one with [GenerateEd25519] or [NewEd25519FromSeed].
type Ed25519PrivateKey struct {
	k ed25519.PrivateKey
}

// Ed25519PublicKey is the public half of an [Ed25519PrivateKey].
type Ed25519PublicKey struct {
	k ed25519.PublicKey
}

var (
	_ PrivateKey = Ed25519PrivateKey{}
	_ PublicKey  = Ed25519PublicKey{}
)

// GenerateEd25519 generates a new Ed25519 identity key
// using entropy from rand.
// If rand is nil, crypto/rand.Reader is used.
func GenerateEd25519(rand io.Reader) (Ed25519PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand)
	if err != nil {
		return Ed25519PrivateKey{}, fmt.Errorf(
			"failed to generate ed25519 key: %w", err,
		)
	}

	return Ed25519PrivateKey{k: priv}, nil
}

// NewEd25519FromSeed deterministically derives an Ed25519 identity key
// from a 32-byte seed.
// It panics if the seed is the wrong length,
// matching [ed25519.NewKeyFromSeed].
func NewEd25519FromSeed(seed []byte) Ed25519PrivateKey {
	return Ed25519PrivateKey{k: ed25519.NewKeyFromSeed(seed)}
}

func (k Ed25519PrivateKey) Type() KeyType {
	return TypeEd25519
}

func (k Ed25519PrivateKey) Sign(msg []byte) ([]byte, error) {
	return ed25519.Sign(k.k, msg), nil
}

func (k Ed25519PrivateKey) Public() PublicKey {
	return Ed25519PublicKey{k: k.k.Public().(ed25519.PublicKey)}
}

// UnmarshalEd25519PublicKey parses a raw 32-byte Ed25519 public key.
func UnmarshalEd25519PublicKey(raw []byte) (Ed25519PublicKey, error) {
	if len(raw) != ed25519.PublicKeySize {
		return Ed25519PublicKey{}, fmt.Errorf(
			"invalid ed25519 public key length %d (want %d)",
			len(raw), ed25519.PublicKeySize,
		)
	}

	// Copy so the key does not alias the caller's buffer.
	k := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(k, raw)
	return Ed25519PublicKey{k: k}, nil
}

func (k Ed25519PublicKey) Type() KeyType {
	return TypeEd25519
}

func (k Ed25519PublicKey) Raw() []byte {
	out := make([]byte, ed25519.PublicKeySize)
	copy(out, k.k)
	return out
}

func (k Ed25519PublicKey) Verify(msg, sig []byte) (bool, error) {
	if len(sig) != ed25519.SignatureSize {
		return false, fmt.Errorf(
			"invalid ed25519 signature length %d (want %d)",
			len(sig), ed25519.SignatureSize,
		)
	}

	return ed25519.Verify(k.k, msg, sig), nil
}

func (k Ed25519PublicKey) Equal(other PublicKey) bool {
	o, ok := other.(Ed25519PublicKey)
	if !ok {
		return false
	}
	return k.k.Equal(o.k)
}
