package work

import (
	"encoding/hex"

	"github.com/pkg/errors"

	codec "github.com/ayushshrivastv/Summer-of-Bitcoin/wire"
)

// CoinbaseWtxid is the wtxid the coinbase contributes to the witness tree.
// It is always all zeroes.
const CoinbaseWtxid = codec.ZeroHashHex

// MerkleRoot folds leaves pairwise with double SHA-256 until one hash is
// left. An odd last element is paired with itself. A single leaf is its own
// root and an empty list has no root.
func MerkleRoot(leaves [][]byte) []byte {
	if len(leaves) == 0 {
		return nil
	}

	level := leaves
	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			right := level[i]
			if i+1 < len(level) {
				right = level[i+1]
			}
			next = append(next, hashPair(level[i], right))
		}
		level = next
	}
	return level[0]
}

func hashPair(left, right []byte) []byte {
	combined := make([]byte, 0, len(left)+len(right))
	combined = append(combined, left...)
	combined = append(combined, right...)
	return codec.DoubleHash(combined)
}

// TxMerkleRoot computes the header merkle root over transaction ids given in
// display order. Leaves are reversed into internal order before folding and
// the root is reversed back before hex encoding.
func TxMerkleRoot(txids []string) (string, error) {
	if len(txids) == 0 {
		return codec.ZeroHashHex, nil
	}
	leaves, err := decodeLeaves(txids, true)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(codec.ReverseBytes(MerkleRoot(leaves))), nil
}

// WitnessMerkleRoot computes the witness root over wtxids. No byte order
// reversal takes place on either side.
func WitnessMerkleRoot(wtxids []string) (string, error) {
	if len(wtxids) == 0 {
		return codec.ZeroHashHex, nil
	}
	leaves, err := decodeLeaves(wtxids, false)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(MerkleRoot(leaves)), nil
}

func decodeLeaves(ids []string, reverse bool) ([][]byte, error) {
	leaves := make([][]byte, len(ids))
	for i, id := range ids {
		b, err := codec.DecodeHash32(id)
		if err != nil {
			return nil, errors.Wrapf(err, "merkle leaf %d", i)
		}
		if reverse {
			b = codec.ReverseBytes(b)
		}
		leaves[i] = b
	}
	return leaves, nil
}
