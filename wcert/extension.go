package wcert

import (
	"errors"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// The identity extension value is a DER sequence of two bit strings:
//
//	SEQUENCE {
//	  BIT STRING  -- canonical encoding of the identity public key
//	  BIT STRING  -- identity signature over SignPrefix || session SPKI
//	}
//
// Both bit strings are whole bytes (zero unused bits).
// The codec below is deliberately exact-fit rather than a general
// ASN.1 layer: the two reads and the trailing-empty checks are the
// entire grammar.

// signedMessage builds the content the identity key signs:
// the domain-separation prefix followed by
// the session key's DER SubjectPublicKeyInfo.
func signedMessage(sessionSPKI []byte) []byte {
	msg := make([]byte, 0, len(SignPrefix)+len(sessionSPKI))
	msg = append(msg, SignPrefix...)
	return append(msg, sessionSPKI...)
}

func buildExtensionValue(identityKeyEnc, sig []byte) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1BitString(identityKeyEnc)
		b.AddASN1BitString(sig)
	})
	return b.Bytes()
}

func parseExtensionValue(der []byte) (identityKeyEnc, sig []byte, err error) {
	input := cryptobyte.String(der)

	var inner cryptobyte.String
	if !input.ReadASN1(&inner, cbasn1.SEQUENCE) || !input.Empty() {
		return nil, nil, errors.New("identity extension is not a single DER sequence")
	}

	// ReadASN1BitStringAsBytes also rejects bit strings
	// with a nonzero unused-bits count.
	if !inner.ReadASN1BitStringAsBytes(&identityKeyEnc) {
		return nil, nil, errors.New("identity extension missing public key bit string")
	}
	if !inner.ReadASN1BitStringAsBytes(&sig) {
		return nil, nil, errors.New("identity extension missing signature bit string")
	}
	if !inner.Empty() {
		return nil, nil, errors.New("identity extension has trailing data")
	}

	return identityKeyEnc, sig, nil
}
