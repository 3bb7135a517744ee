package wkey

import (
	"fmt"

	"github.com/multiformats/go-varint"
)

// The canonical portable encoding of a public key is the protobuf wire
// encoding of a two-field message:
//
//	message PublicKey {
//	  required KeyType Type = 1;
//	  required bytes   Data = 2;
//	}
//
// The message is small and fixed, so it is written and read directly
// rather than through generated code.
// Decoding is strict: fields must appear in order,
// varints must be minimally encoded,
// and trailing bytes are rejected.
const (
	// Field 1, wire type 0 (varint).
	keyTypeTag = 0x08
	// Field 2, wire type 2 (length-delimited).
	keyDataTag = 0x12
)

// MarshalPublicKey returns the canonical portable encoding of pub.
//
// This encoding is what peer identifiers are derived from
// and what gets embedded in identity certificates,
// so it must be byte-for-byte stable.
func MarshalPublicKey(pub PublicKey) []byte {
	raw := pub.Raw()
	t := uint64(pub.Type())

	out := make([]byte, 0, 2+varint.UvarintSize(t)+varint.UvarintSize(uint64(len(raw)))+len(raw))
	out = append(out, keyTypeTag)
	out = append(out, varint.ToUvarint(t)...)
	out = append(out, keyDataTag)
	out = append(out, varint.ToUvarint(uint64(len(raw)))...)
	out = append(out, raw...)
	return out
}

// UnmarshalPublicKey parses a canonical portable encoding
// produced by [MarshalPublicKey] or by a compatible implementation.
func UnmarshalPublicKey(data []byte) (PublicKey, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty public key encoding")
	}
	if data[0] != keyTypeTag {
		return nil, fmt.Errorf(
			"public key encoding must begin with the key type field (got tag 0x%02x)",
			data[0],
		)
	}

	t, n, err := varint.FromUvarint(data[1:])
	if err != nil {
		return nil, fmt.Errorf("failed to read key type: %w", err)
	}
	data = data[1+n:]

	if len(data) == 0 || data[0] != keyDataTag {
		return nil, fmt.Errorf("public key encoding missing the key data field")
	}

	sz, n, err := varint.FromUvarint(data[1:])
	if err != nil {
		return nil, fmt.Errorf("failed to read key data length: %w", err)
	}
	raw := data[1+n:]

	// An exact length match also rejects trailing bytes.
	if uint64(len(raw)) != sz {
		return nil, fmt.Errorf(
			"key data length mismatch: declared %d, have %d", sz, len(raw),
		)
	}

	switch kt := KeyType(t); kt {
	case TypeEd25519:
		return UnmarshalEd25519PublicKey(raw)
	case TypeSecp256k1:
		return UnmarshalSecp256k1PublicKey(raw)
	default:
		return nil, UnsupportedKeyTypeError{Type: kt}
	}
}
