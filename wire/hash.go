package wire

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"
)

// ZeroHashHex is the display form of 32 zero bytes.
const ZeroHashHex = "0000000000000000000000000000000000000000000000000000000000000000"

// DoubleHash is Bitcoin's standard hashing algorithm, SHA-256 applied twice.
func DoubleHash(b []byte) []byte {
	return chainhash.DoubleHashB(b)
}

// ReverseBytes is a helper for handling endianness differences.
// It returns a reversed copy and leaves b untouched.
func ReverseBytes(b []byte) []byte {
	r := make([]byte, len(b))
	for i := 0; i < len(b); i++ {
		r[i] = b[len(b)-1-i]
	}
	return r
}

// DecodeHash32 decodes a 64 character hex string into 32 bytes without
// changing the byte order.
func DecodeHash32(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid hash hex %q", s)
	}
	if len(b) != chainhash.HashSize {
		return nil, errors.Errorf("hash %q is %d bytes, want %d", s, len(b), chainhash.HashSize)
	}
	return b, nil
}
