package wcert

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
)

// NewServerConfig builds the TLS configuration for the accepting side.
//
// TLS 1.3 is pinned with no downgrade path,
// session tickets are disabled so no early-data path
// can bypass the identity verification,
// and client certificates are mandatory:
// an anonymous client cannot connect.
// No certificate authority subject names are advertised,
// because there are no certificate authorities;
// [VerifyCerts] replaces the entire PKI model.
func NewServerConfig(cert Certificate) *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS13,
		MaxVersion: tls.VersionTLS13,

		NextProtos: []string{ALPN},

		Certificates: []tls.Certificate{cert.TLS},

		SessionTicketsDisabled: true,

		// RequireAnyClientCert rather than RequireAndVerifyClientCert:
		// the standard verification would demand a CA chain,
		// and VerifyPeerCertificate below does the real check.
		ClientAuth: tls.RequireAnyClientCert,

		VerifyPeerCertificate: verifyPeerCerts,
		VerifyConnection:      assertNegotiatedVersion,
	}
}

// NewClientConfig builds the TLS configuration for the dialing side.
//
// The standard CA and host name verification is skipped;
// [VerifyCerts] runs in its place via VerifyPeerCertificate,
// which is the entire point of the self-certification scheme.
// The client presents its own session certificate
// to satisfy the server's mutual authentication requirement.
func NewClientConfig(cert Certificate) *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS13,
		MaxVersion: tls.VersionTLS13,

		NextProtos: []string{ALPN},

		Certificates: []tls.Certificate{cert.TLS},

		// Replaced, not skipped: VerifyPeerCertificate still runs.
		InsecureSkipVerify: true,

		VerifyPeerCertificate: verifyPeerCerts,
		VerifyConnection:      assertNegotiatedVersion,
	}
}

// verifyPeerCerts adapts [VerifyCerts] to the tls.Config callback shape.
// verifiedChains is always nil here:
// both configs disable the standard chain verification.
func verifyPeerCerts(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	_, err := VerifyCerts(rawCerts)
	return err
}

// assertNegotiatedVersion double-checks the pinned protocol version
// once the handshake parameters are known.
// The configs above already exclude everything but TLS 1.3,
// so a mismatch here is a caller bug
// (most likely a cloned config with the version pins overwritten),
// not an attacker-reachable condition.
func assertNegotiatedVersion(cs tls.ConnectionState) error {
	if cs.Version != tls.VersionTLS13 {
		panic(fmt.Errorf(
			"BUG: negotiated TLS version 0x%04x despite pinning TLS 1.3",
			cs.Version,
		))
	}
	return nil
}
