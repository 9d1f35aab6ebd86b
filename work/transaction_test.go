package work

import (
	"encoding/hex"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	codec "github.com/ayushshrivastv/Summer-of-Bitcoin/wire"
)

func leaf(b byte) []byte {
	l := make([]byte, 32)
	for i := range l {
		l[i] = b
	}
	return l
}

func TestMerkleRoot(t *testing.T) {
	a, b, c := leaf(0x01), leaf(0x02), leaf(0x03)

	assert.Nil(t, MerkleRoot(nil))
	assert.Equal(t, a, MerkleRoot([][]byte{a}))
	assert.Equal(t, hashPair(a, b), MerkleRoot([][]byte{a, b}))

	// the odd leaf is paired with itself
	expected := hashPair(hashPair(a, b), hashPair(c, c))
	assert.Equal(t, expected, MerkleRoot([][]byte{a, b, c}))

	// folding does not touch the input
	leaves := [][]byte{a, b, c}
	MerkleRoot(leaves)
	assert.Equal(t, leaf(0x01), leaves[0])
}

func TestTxMerkleRoot(t *testing.T) {
	root, err := TxMerkleRoot(nil)
	require.NoError(t, err)
	assert.Equal(t, codec.ZeroHashHex, root)

	id := strings.Repeat("ab", 16) + strings.Repeat("cd", 16)
	root, err = TxMerkleRoot([]string{id})
	require.NoError(t, err)
	assert.Equal(t, id, root)

	x, y := leaf(0x11), leaf(0x22)
	x[0], y[31] = 0x99, 0x77
	root, err = TxMerkleRoot([]string{hex.EncodeToString(x), hex.EncodeToString(y)})
	require.NoError(t, err)
	expected := codec.ReverseBytes(hashPair(codec.ReverseBytes(x), codec.ReverseBytes(y)))
	assert.Equal(t, hex.EncodeToString(expected), root)

	_, err = TxMerkleRoot([]string{"abcd"})
	assert.Error(t, err)
}

func TestWitnessMerkleRoot(t *testing.T) {
	root, err := WitnessMerkleRoot([]string{CoinbaseWtxid})
	require.NoError(t, err)
	assert.Equal(t, codec.ZeroHashHex, root)

	x := leaf(0x42)
	x[0] = 0x01
	root, err = WitnessMerkleRoot([]string{CoinbaseWtxid, hex.EncodeToString(x)})
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(hashPair(leaf(0), x)), root)
}

func TestMerkleBranchRoundTrip(t *testing.T) {
	for n := 1; n <= 9; n++ {
		leaves := make([][]byte, n)
		for i := range leaves {
			leaves[i] = leaf(byte(i + 1))
		}
		root := MerkleRoot(leaves)

		for i := 0; i < n; i++ {
			branch, err := MerkleBranch(leaves, i)
			require.NoError(t, err)
			assert.Equal(t, root, RootFromBranch(leaves[i], branch, uint64(i)), "n=%d index=%d", n, i)
		}
	}

	_, err := MerkleBranch([][]byte{leaf(1)}, 1)
	assert.Error(t, err)
}

func TestTargets(t *testing.T) {
	fromBits := TargetFromBits(DefaultBits)
	expected, ok := new(big.Int).SetString(DefaultTargetHex, 16)
	require.True(t, ok)
	assert.Equal(t, 0, expected.Cmp(fromBits))

	parsed, err := ParseTarget(DefaultTargetHex)
	require.NoError(t, err)
	assert.Equal(t, 0, expected.Cmp(parsed))

	for _, bad := range []string{"", "zz", "-1", strings.Repeat("f", 65)} {
		_, err := ParseTarget(bad)
		assert.Error(t, err, bad)
	}
}

func TestHashMeetsTarget(t *testing.T) {
	target := TargetFromBits(DefaultBits)

	// internal order: the most significant bytes sit at the end
	below := make([]byte, 32)
	below[29] = 0xff
	assert.True(t, HashMeetsTarget(below, target))

	equal := make([]byte, 32)
	equal[29], equal[28] = 0xff, 0xff
	assert.False(t, HashMeetsTarget(equal, target))

	above := make([]byte, 32)
	above[31] = 0x01
	assert.False(t, HashMeetsTarget(above, target))
}
