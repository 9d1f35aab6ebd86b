package work

import (
	"math/big"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"
)

// MerkleBranch computes the sibling path for the leaf at index. Folding the
// leaf with every branch entry, left or right as the index bits dictate,
// reproduces MerkleRoot(leaves).
func MerkleBranch(leaves [][]byte, index int) ([][]byte, error) {
	if index < 0 || index >= len(leaves) {
		return nil, errors.Errorf("merkle branch index %d out of range [0,%d)", index, len(leaves))
	}

	branch := [][]byte{}
	level := leaves
	for len(level) > 1 {
		sibling := index ^ 1
		if sibling >= len(level) {
			sibling = index
		}
		branch = append(branch, level[sibling])

		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			right := level[i]
			if i+1 < len(level) {
				right = level[i+1]
			}
			next = append(next, hashPair(level[i], right))
		}
		level = next
		index /= 2
	}
	return branch, nil
}

// RootFromBranch calculates the merkle root by applying a branch to a leaf hash.
func RootFromBranch(leaf []byte, branch [][]byte, index uint64) []byte {
	current := leaf
	for _, sibling := range branch {
		if index&1 == 0 {
			current = hashPair(current, sibling)
		} else {
			current = hashPair(sibling, current)
		}
		index >>= 1
	}
	return current
}

// TargetFromBits expands compact difficulty bits into a 256-bit target.
func TargetFromBits(bits uint32) *big.Int {
	return blockchain.CompactToBig(bits)
}

// ParseTarget reads a big-endian hex threshold of at most 64 characters.
func ParseTarget(s string) (*big.Int, error) {
	if len(s) == 0 || len(s) > 64 {
		return nil, errors.Errorf("target %q must be 1 to 64 hex characters", s)
	}
	target, ok := new(big.Int).SetString(s, 16)
	if !ok || target.Sign() < 0 {
		return nil, errors.Errorf("target %q is not valid hex", s)
	}
	return target, nil
}

// HashMeetsTarget reports whether a hash in internal byte order, read as a
// big-endian number, is strictly below target.
func HashMeetsTarget(hash []byte, target *big.Int) bool {
	var h chainhash.Hash
	copy(h[:], hash)
	return blockchain.HashToBig(&h).Cmp(target) < 0
}
