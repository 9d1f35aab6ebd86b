package work

import (
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	codec "github.com/ayushshrivastv/Summer-of-Bitcoin/wire"
)

func candidate(i int, weight uint64) Candidate {
	raw := []byte(fmt.Sprintf("tx-%d", i))
	return Candidate{
		ID:     hex.EncodeToString(codec.DoubleHash(raw)),
		Raw:    raw,
		Weight: weight,
	}
}

func TestSelectTransactionsCapacity(t *testing.T) {
	params := DefaultParams()

	t.Run("fits exactly under the reserved weight", func(t *testing.T) {
		tmpl := SelectTransactions([]Candidate{candidate(0, 3_999_000)}, params)
		require.Len(t, tmpl.TxIDs, 1)
		assert.Equal(t, uint64(3_999_000), tmpl.TotalWeight)
	})

	t.Run("one unit over is skipped", func(t *testing.T) {
		tmpl := SelectTransactions([]Candidate{candidate(0, 3_999_001)}, params)
		assert.Empty(t, tmpl.TxIDs)
		assert.Zero(t, tmpl.TotalWeight)
	})

	t.Run("heavier than a block is skipped", func(t *testing.T) {
		tmpl := SelectTransactions([]Candidate{candidate(0, 5_000_000), candidate(1, 400)}, params)
		require.Len(t, tmpl.TxIDs, 1)
		assert.Equal(t, candidate(1, 400).ID, tmpl.TxIDs[0])
	})

	t.Run("first fit keeps scanning after a skip", func(t *testing.T) {
		cs := []Candidate{candidate(0, 3_000_000), candidate(1, 1_500_000), candidate(2, 999_000), candidate(3, 1)}
		tmpl := SelectTransactions(cs, params)
		assert.Equal(t, []string{cs[0].ID, cs[2].ID}, tmpl.TxIDs)
		assert.Equal(t, [][]byte{cs[0].Raw, cs[2].Raw}, tmpl.RawTxs)
		assert.Equal(t, uint64(3_999_000), tmpl.TotalWeight)
	})

	t.Run("reserve leaves room for the first only", func(t *testing.T) {
		cs := []Candidate{candidate(0, 1000), candidate(1, DefaultMaxBlockWeight-1000)}
		tmpl := SelectTransactions(cs, params)
		assert.Equal(t, []string{cs[0].ID}, tmpl.TxIDs)
		assert.Equal(t, [][]byte{cs[0].Raw}, tmpl.RawTxs)
		assert.Equal(t, uint64(1000), tmpl.TotalWeight)
	})

	t.Run("zero weight is always taken", func(t *testing.T) {
		cs := []Candidate{candidate(0, 3_999_000), candidate(1, 0)}
		tmpl := SelectTransactions(cs, params)
		assert.Len(t, tmpl.TxIDs, 2)
	})
}

func TestSelectTransactionsNeverExceedsLimit(t *testing.T) {
	params := DefaultParams()
	cs := make([]Candidate, 0, 500)
	for i := 0; i < 500; i++ {
		cs = append(cs, candidate(i, uint64(1000+(i*7919)%40_000)))
	}

	tmpl := SelectTransactions(cs, params)
	assert.LessOrEqual(t, tmpl.TotalWeight+params.ReservedWeight, params.MaxBlockWeight)

	var sum uint64
	picked := map[string]bool{}
	for _, id := range tmpl.TxIDs {
		picked[id] = true
	}
	for _, c := range cs {
		if picked[c.ID] {
			sum += c.Weight
		}
	}
	assert.Equal(t, sum, tmpl.TotalWeight)
}

func TestWitnessIDs(t *testing.T) {
	cs := []Candidate{candidate(0, 10), candidate(1, 10)}
	tmpl := SelectTransactions(cs, DefaultParams())

	wtxids := tmpl.WitnessIDs()
	require.Len(t, wtxids, 3)
	assert.Equal(t, CoinbaseWtxid, wtxids[0])
	assert.Equal(t, cs[0].ComputedID(), wtxids[1])
	assert.Equal(t, cs[1].ComputedID(), wtxids[2])
}
