package wkey_test

import (
	"testing"

	"github.com/gordian-engine/wyvern/wkey"
	"github.com/gordian-engine/wyvern/wkey/wkeytest"
	"github.com/stretchr/testify/require"
)

func TestEd25519_signVerify(t *testing.T) {
	t.Parallel()

	k := wkeytest.NewEd25519(t, 0)
	msg := []byte("message to sign")

	sig, err := k.Sign(msg)
	require.NoError(t, err)

	ok, err := k.Public().Verify(msg, sig)
	require.NoError(t, err)
	require.True(t, ok)

	// Same signature over different content must not verify.
	ok, err = k.Public().Verify([]byte("other message"), sig)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEd25519_verify_rejectsWrongSignatureLength(t *testing.T) {
	t.Parallel()

	k := wkeytest.NewEd25519(t, 0)

	_, err := k.Public().Verify([]byte("msg"), []byte("short"))
	require.Error(t, err)
}

func TestSecp256k1_signVerify(t *testing.T) {
	t.Parallel()

	k := wkeytest.NewSecp256k1(t, 0)
	msg := []byte("message to sign")

	sig, err := k.Sign(msg)
	require.NoError(t, err)

	ok, err := k.Public().Verify(msg, sig)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = k.Public().Verify([]byte("other message"), sig)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSecp256k1_verify_rejectsMalformedSignature(t *testing.T) {
	t.Parallel()

	k := wkeytest.NewSecp256k1(t, 0)

	// Not DER at all.
	_, err := k.Public().Verify([]byte("msg"), []byte{0xff, 0xff, 0xff})
	require.Error(t, err)
}

func TestPublicKey_equal(t *testing.T) {
	t.Parallel()

	ed0 := wkeytest.NewEd25519(t, 0).Public()
	ed1 := wkeytest.NewEd25519(t, 1).Public()
	sec0 := wkeytest.NewSecp256k1(t, 0).Public()

	require.True(t, ed0.Equal(ed0))
	require.False(t, ed0.Equal(ed1))

	// Keys of different types are never equal.
	require.False(t, ed0.Equal(sec0))
	require.False(t, sec0.Equal(ed0))
}

func TestKeyType_string(t *testing.T) {
	t.Parallel()

	require.Equal(t, "ed25519", wkey.TypeEd25519.String())
	require.Equal(t, "secp256k1", wkey.TypeSecp256k1.String())
	require.Equal(t, "unknown(9)", wkey.KeyType(9).String())
}
