package wtest

import (
	"crypto/sha256"
	"math/rand/v2"
	"testing"
)

// RandomDataForTest returns a byte slice of size sz
// containing pseudorandom data derived from the test name,
// so a given test always sees the same bytes.
func RandomDataForTest(t *testing.T, sz int) []byte {
	// Sha256 output is exactly the chacha8 seed size,
	// and hashing means arbitrarily long test names are fine.
	seed := sha256.Sum256([]byte(t.Name()))
	chacha := rand.NewChaCha8(seed)

	out := make([]byte, sz)

	if _, err := chacha.Read(out); err != nil {
		panic(err)
	}

	return out
}
