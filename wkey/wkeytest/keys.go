package wkeytest

import (
	"crypto/sha256"
	"fmt"
	"testing"

	"github.com/gordian-engine/wyvern/wkey"
)

// NewEd25519 returns a deterministic Ed25519 identity for the test.
// Distinct idx values give distinct identities,
// and the same test name and idx always give the same identity.
func NewEd25519(t *testing.T, idx int) wkey.Ed25519PrivateKey {
	t.Helper()

	seed := sha256.Sum256([]byte(fmt.Sprintf("%s/ed25519/%d", t.Name(), idx)))
	return wkey.NewEd25519FromSeed(seed[:])
}

// NewSecp256k1 returns a deterministic secp256k1 identity for the test,
// following the same derivation scheme as [NewEd25519].
func NewSecp256k1(t *testing.T, idx int) wkey.Secp256k1PrivateKey {
	t.Helper()

	seed := sha256.Sum256([]byte(fmt.Sprintf("%s/secp256k1/%d", t.Name(), idx)))
	k, err := wkey.NewSecp256k1FromBytes(seed[:])
	if err != nil {
		t.Fatalf("failed to derive secp256k1 key: %v", err)
	}
	return k
}
