// Package wcert implements self-certified TLS identities.
//
// A peer's long-term identity key never signs TLS handshake material.
// Instead, each peer generates a short-lived session key,
// self-signs an X.509 certificate with that session key,
// and embeds a signature by the identity key over the session public key
// in a custom certificate extension.
// Verifying that binding during the TLS handshake,
// rather than consulting any certificate authority,
// is what authenticates the peer.
package wcert

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	crand "crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"math/big"
	"time"

	"github.com/gordian-engine/wyvern/wkey"
)

// ExtensionOID identifies the identity binding extension:
// 1.3.6.1.4.1.53594.1.1, under the libp2p private enterprise arc.
// The certificate embeds it as a non-critical X.509v3 extension.
var ExtensionOID = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 53594, 1, 1}

// SignPrefix is the fixed 21-byte domain-separation constant
// prepended to the session public key before the identity key signs it.
// It must match remote implementations byte for byte.
const SignPrefix = "libp2p-tls-handshake:"

// ALPN is the application protocol identifier
// advertised during TLS handshakes.
const ALPN = "libp2p"

const (
	// Tolerance for peers whose clocks run behind ours.
	certSkewGrace = time.Hour

	// Session certificates carry no revocation or renewal story,
	// so the window is effectively unbounded.
	certValidity = 100 * 365 * 24 * time.Hour
)

// Certificate is a session certificate bound to a long-term identity.
//
// Create one with [Generate],
// then hand it to [NewServerConfig] and [NewClientConfig].
type Certificate struct {
	// TLS is the certificate presented during handshakes.
	// Its Leaf field is always populated.
	TLS tls.Certificate

	// Identity is the long-term public key bound into the certificate.
	Identity wkey.PublicKey
}

// PeerID returns the stable identifier of the bound identity.
func (c Certificate) PeerID() wkey.PeerID {
	return wkey.NewPeerID(c.Identity)
}

// Generate creates a session certificate bound to the given identity.
//
// A fresh ECDSA P-256 session key is generated,
// the identity key signs the session public key
// under the domain-separation prefix,
// and the resulting binding travels inside the certificate
// as the identity extension.
// The certificate itself is self-signed with the session key only.
//
// The certificate is reusable across handshakes
// for the lifetime of the process.
func Generate(identity wkey.PrivateKey) (Certificate, error) {
	sessionKey, err := ecdsa.GenerateKey(elliptic.P256(), crand.Reader)
	if err != nil {
		return Certificate{}, CertificateError{
			Err: fmt.Errorf("failed to generate session key: %w", err),
		}
	}

	// The signed content is the DER SubjectPublicKeyInfo,
	// exactly as it will appear in the certificate.
	spki, err := x509.MarshalPKIXPublicKey(&sessionKey.PublicKey)
	if err != nil {
		return Certificate{}, CertificateError{
			Err: fmt.Errorf("failed to marshal session public key: %w", err),
		}
	}

	sig, err := identity.Sign(signedMessage(spki))
	if err != nil {
		return Certificate{}, SigningError{Err: err}
	}

	identityPub := identity.Public()
	extValue, err := buildExtensionValue(wkey.MarshalPublicKey(identityPub), sig)
	if err != nil {
		return Certificate{}, CertificateError{
			Err: fmt.Errorf("failed to encode identity extension: %w", err),
		}
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: randomSerial(),

		NotBefore: now.Add(-certSkewGrace),
		NotAfter:  now.Add(certValidity),

		KeyUsage: x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{
			x509.ExtKeyUsageServerAuth,
			x509.ExtKeyUsageClientAuth,
		},
		BasicConstraintsValid: true,

		ExtraExtensions: []pkix.Extension{
			{
				Id: ExtensionOID,
				// Non-critical: TLS stacks that do not know the extension
				// must still be able to parse the certificate.
				Critical: false,
				Value:    extValue,
			},
		},
	}

	der, err := x509.CreateCertificate(
		crand.Reader, template, template, &sessionKey.PublicKey, sessionKey,
	)
	if err != nil {
		return Certificate{}, CertificateError{
			Err: fmt.Errorf("failed to create certificate: %w", err),
		}
	}

	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return Certificate{}, CertificateError{
			Err: fmt.Errorf("failed to parse certificate from DER: %w", err),
		}
	}

	return Certificate{
		TLS: tls.Certificate{
			Certificate: [][]byte{der},
			PrivateKey:  sessionKey,
			Leaf:        leaf,
		},
		Identity: identityPub,
	}, nil
}

func randomSerial() *big.Int {
	limit := new(big.Int).Lsh(big.NewInt(1), 128)
	num, err := crand.Int(crand.Reader, limit)
	if err != nil {
		panic(fmt.Errorf("failed to create random serial: %w", err))
	}

	return num
}
