package wcert

import (
	"encoding/asn1"
	"errors"
	"fmt"
)

// SigningError indicates the identity key failed to sign
// the session key binding during certificate generation.
// This is fatal for the setup step that requested it.
type SigningError struct {
	Err error
}

func (e SigningError) Error() string {
	return "failed to sign session key binding: " + e.Err.Error()
}

func (e SigningError) Unwrap() error { return e.Err }

// CertificateError indicates certificate generation failed
// for a reason other than signing.
// This is fatal for the setup step that requested it.
type CertificateError struct {
	Err error
}

func (e CertificateError) Error() string {
	return "failed to generate session certificate: " + e.Err.Error()
}

func (e CertificateError) Unwrap() error { return e.Err }

// CertCountError indicates the peer presented
// a number of certificates other than exactly one.
type CertCountError struct {
	Count int
}

func (e CertCountError) Error() string {
	return fmt.Sprintf(
		"peer must present exactly one certificate, got %d", e.Count,
	)
}

// CriticalExtensionError indicates the certificate carried
// critical extensions this verifier does not understand.
type CriticalExtensionError struct {
	IDs []asn1.ObjectIdentifier
}

func (e CriticalExtensionError) Error() string {
	return fmt.Sprintf("certificate has unsupported critical extensions %v", e.IDs)
}

// ErrDuplicateExtension indicates the identity extension
// appeared more than once in the certificate.
var ErrDuplicateExtension = errors.New(
	"identity extension appears more than once in certificate",
)

// ErrNoIdentityBinding indicates the certificate
// carries no identity extension at all.
var ErrNoIdentityBinding = errors.New(
	"certificate carries no identity binding",
)

// ErrInvalidIdentityBinding indicates the identity extension
// could not be accepted.
// A malformed extension payload and a failed binding signature
// both intentionally report this same value,
// so a probing peer cannot tell the cases apart.
var ErrInvalidIdentityBinding = errors.New(
	"invalid identity binding",
)
