package wcert_test

import (
	"testing"

	"github.com/gordian-engine/wyvern/wcert"
	"github.com/gordian-engine/wyvern/wkey"
	"github.com/gordian-engine/wyvern/wkey/wkeytest"
	"github.com/stretchr/testify/require"
)

func TestGenerate_verifyRoundTrip(t *testing.T) {
	t.Parallel()

	for name, identity := range map[string]wkey.PrivateKey{
		"ed25519":   wkeytest.NewEd25519(t, 0),
		"secp256k1": wkeytest.NewSecp256k1(t, 0),
	} {
		t.Run(name, func(t *testing.T) {
			cert, err := wcert.Generate(identity)
			require.NoError(t, err)

			got, err := wcert.VerifyCerts(cert.TLS.Certificate)
			require.NoError(t, err)

			// The recovered identity must match the original exactly,
			// including its canonical encoding.
			require.True(t, identity.Public().Equal(got))
			require.Equal(
				t,
				wkey.MarshalPublicKey(identity.Public()),
				wkey.MarshalPublicKey(got),
			)
			require.Equal(t, wkey.NewPeerID(identity.Public()), cert.PeerID())
		})
	}
}

func TestGenerate_leafPopulated(t *testing.T) {
	t.Parallel()

	cert, err := wcert.Generate(wkeytest.NewEd25519(t, 0))
	require.NoError(t, err)

	require.NotNil(t, cert.TLS.Leaf)
	require.Len(t, cert.TLS.Certificate, 1)
	require.Equal(t, cert.TLS.Certificate[0], cert.TLS.Leaf.Raw)
}

func TestGenerate_extensionNonCritical(t *testing.T) {
	t.Parallel()

	cert, err := wcert.Generate(wkeytest.NewEd25519(t, 0))
	require.NoError(t, err)

	found := 0
	for _, ext := range cert.TLS.Leaf.Extensions {
		if ext.Id.Equal(wcert.ExtensionOID) {
			found++
			require.False(t, ext.Critical)
		}
	}
	require.Equal(t, 1, found)
}

func TestGenerate_freshSessionKeyPerCertificate(t *testing.T) {
	t.Parallel()

	identity := wkeytest.NewEd25519(t, 0)

	a, err := wcert.Generate(identity)
	require.NoError(t, err)
	b, err := wcert.Generate(identity)
	require.NoError(t, err)

	// Same identity, but the embedded session keys must differ.
	require.NotEqual(
		t,
		a.TLS.Leaf.RawSubjectPublicKeyInfo,
		b.TLS.Leaf.RawSubjectPublicKeyInfo,
	)
}
