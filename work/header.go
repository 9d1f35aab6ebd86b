package work

import (
	"bytes"
	"encoding/hex"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"

	codec "github.com/ayushshrivastv/Summer-of-Bitcoin/wire"
)

const (
	// HeaderSize is the length of a serialized block header.
	HeaderSize = 80

	// HeaderPrefixSize is the header length without the trailing nonce.
	HeaderPrefixSize = HeaderSize - 4
)

// Header is a decoded block header. Hashes are kept in display order.
type Header struct {
	Version       uint32
	PrevBlockHash string
	MerkleRoot    string
	Timestamp     uint32
	Bits          uint32
	Nonce         uint32
}

// SerializeHeader writes the 80 byte block header. Both hashes are given in
// display order and stored byte-reversed.
func SerializeHeader(version uint32, prevBlockHash, merkleRoot string, timestamp, bits, nonce uint32) ([]byte, error) {
	prev, err := codec.DecodeHash32(prevBlockHash)
	if err != nil {
		return nil, errors.Wrap(err, "previous block hash")
	}
	root, err := codec.DecodeHash32(merkleRoot)
	if err != nil {
		return nil, errors.Wrap(err, "merkle root")
	}

	var buf bytes.Buffer
	buf.Grow(HeaderSize)
	// writes to a bytes.Buffer cannot fail
	_ = codec.WriteUint32LE(&buf, version)
	_ = codec.WriteFixedBytes(&buf, codec.ReverseBytes(prev), chainhash.HashSize)
	_ = codec.WriteFixedBytes(&buf, codec.ReverseBytes(root), chainhash.HashSize)
	_ = codec.WriteUint32LE(&buf, timestamp)
	_ = codec.WriteUint32LE(&buf, bits)
	_ = codec.WriteUint32LE(&buf, nonce)
	return buf.Bytes(), nil
}

// ParseHeader decodes an 80 byte header.
func ParseHeader(b []byte) (*Header, error) {
	if len(b) != HeaderSize {
		return nil, errors.Errorf("block header should be %d bytes long, got %d", HeaderSize, len(b))
	}
	r := bytes.NewReader(b)
	h := &Header{}

	// the length check above guarantees every read succeeds
	h.Version, _ = codec.ReadUint32LE(r)
	prev, _ := codec.ReadChainHash(r)
	root, _ := codec.ReadChainHash(r)
	h.Timestamp, _ = codec.ReadUint32LE(r)
	h.Bits, _ = codec.ReadUint32LE(r)
	h.Nonce, _ = codec.ReadUint32LE(r)

	h.PrevBlockHash = prev.String()
	h.MerkleRoot = root.String()
	return h, nil
}

// BlockHash is the double hash of a serialized header in native byte order.
func BlockHash(header []byte) string {
	return hex.EncodeToString(codec.DoubleHash(header))
}
