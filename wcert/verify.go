package wcert

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"slices"
	"time"

	"github.com/gordian-engine/wyvern/wkey"
)

// VerifyCerts checks the certificates a peer presented during a handshake
// and returns the long-term identity bound into them.
// The same rules apply whether the peer was the client or the server:
//
//   - Exactly one certificate must be presented.
//     There is no chain building and there are no trust roots;
//     the certificate vouches for itself.
//   - The certificate's self-signature must verify under its own session key,
//     and the validity window must include the time of the check.
//   - The identity extension must appear exactly once,
//     and no unrecognized critical extension may be present.
//   - The extension payload must decode,
//     and the identity signature inside it must verify
//     over the prefixed session public key.
//
// VerifyCerts never compares the identity against an expected peer;
// that comparison belongs to the caller, after the handshake completes.
//
// VerifyCerts is a pure function with no instance state,
// safe for concurrent use from any number of handshakes.
func VerifyCerts(rawCerts [][]byte) (wkey.PublicKey, error) {
	if len(rawCerts) != 1 {
		return nil, CertCountError{Count: len(rawCerts)}
	}

	cert, err := x509.ParseCertificate(rawCerts[0])
	if err != nil {
		return nil, fmt.Errorf("failed to parse presented certificate: %w", err)
	}

	now := time.Now()
	if now.Before(cert.NotBefore) || now.After(cert.NotAfter) {
		return nil, fmt.Errorf(
			"certificate not valid at time of check (not_before=%s, not_after=%s)",
			cert.NotBefore.Format(time.RFC3339),
			cert.NotAfter.Format(time.RFC3339),
		)
	}

	// The certificate is its own, and only, trust anchor.
	if err := cert.CheckSignature(
		cert.SignatureAlgorithm, cert.RawTBSCertificate, cert.Signature,
	); err != nil {
		return nil, fmt.Errorf("certificate self-signature invalid: %w", err)
	}

	// Critical extensions the parser did not consume are fatal;
	// unknown non-critical extensions are ignored.
	if len(cert.UnhandledCriticalExtensions) > 0 {
		return nil, CriticalExtensionError{
			IDs: slices.Clone(cert.UnhandledCriticalExtensions),
		}
	}

	var bindingValue []byte
	seen := false
	for _, ext := range cert.Extensions {
		if !ext.Id.Equal(ExtensionOID) {
			continue
		}
		if seen {
			return nil, ErrDuplicateExtension
		}
		seen = true
		bindingValue = ext.Value
	}
	if !seen {
		return nil, ErrNoIdentityBinding
	}

	// From here down, every failure reports ErrInvalidIdentityBinding.
	// Collapsing malformed-payload and bad-signature outcomes
	// denies a probing peer a decode oracle.
	identityKeyEnc, sig, err := parseExtensionValue(bindingValue)
	if err != nil {
		return nil, ErrInvalidIdentityBinding
	}

	identity, err := wkey.UnmarshalPublicKey(identityKeyEnc)
	if err != nil {
		return nil, ErrInvalidIdentityBinding
	}

	ok, err := identity.Verify(signedMessage(cert.RawSubjectPublicKeyInfo), sig)
	if err != nil || !ok {
		return nil, ErrInvalidIdentityBinding
	}

	return identity, nil
}

// MustPeerIdentity extracts the verified long-term identity
// from a completed handshake's connection state.
//
// It panics if the peer certificates do not hold a valid identity binding.
// That is only legal to rely on for connection states produced by
// handshakes configured through [NewServerConfig] or [NewClientConfig],
// which have already run [VerifyCerts];
// calling it with anything else is a caller bug, not a runtime condition.
func MustPeerIdentity(cs tls.ConnectionState) wkey.PublicKey {
	rawCerts := make([][]byte, len(cs.PeerCertificates))
	for i, c := range cs.PeerCertificates {
		rawCerts[i] = c.Raw
	}

	identity, err := VerifyCerts(rawCerts)
	if err != nil {
		panic(fmt.Errorf(
			"BUG: MustPeerIdentity called for a handshake that did not verify the identity binding: %w",
			err,
		))
	}

	return identity
}

// MustPeerID is shorthand for deriving the peer ID
// of the identity extracted by [MustPeerIdentity].
func MustPeerID(cs tls.ConnectionState) wkey.PeerID {
	return wkey.NewPeerID(MustPeerIdentity(cs))
}
