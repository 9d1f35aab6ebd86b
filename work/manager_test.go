package work

import (
	"bytes"
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	btcwire "github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	codec "github.com/ayushshrivastv/Summer-of-Bitcoin/wire"
)

const testTimestamp uint32 = 1700000000

func testAssembler(t *testing.T) *Assembler {
	params := DefaultParams()
	params.Target = oneIn(8)
	return NewAssembler(params, NewMiner(2, nil), WithClock(func() uint32 { return testTimestamp }))
}

// rawTx builds a minimal legacy transaction spending a made up outpoint.
func rawTx(t *testing.T, seed byte) Candidate {
	tx := btcwire.NewMsgTx(2)
	prev := chainhash.Hash{seed}
	tx.AddTxIn(btcwire.NewTxIn(btcwire.NewOutPoint(&prev, 0), []byte{0x51}, nil))
	tx.AddTxOut(btcwire.NewTxOut(int64(seed)*1000, []byte{0x51}))

	var buf bytes.Buffer
	require.NoError(t, tx.Serialize(&buf))
	raw := buf.Bytes()
	return Candidate{
		ID:     hex.EncodeToString(codec.DoubleHash(raw)),
		Raw:    raw,
		Weight: uint64(len(raw) * 4),
	}
}

func TestAssembleEmptyMempool(t *testing.T) {
	a := testAssembler(t)
	assert.Equal(t, StateLoaded, a.State())
	assert.Nil(t, a.LastResult())

	result, err := a.Assemble(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, StateEmitted, a.State())
	assert.Equal(t, result, a.LastResult())

	assert.Equal(t, []string{result.CoinbaseID}, result.TxIDs)
	assert.Equal(t, codec.ZeroHashHex, result.WitnessRoot)
	assert.Equal(t, result.CoinbaseID, result.MerkleRoot)
	assert.Empty(t, result.CoinbaseBranch)
	assert.Zero(t, result.TotalWeight)

	h, err := ParseHeader(result.Header)
	require.NoError(t, err)
	assert.Equal(t, uint32(DefaultVersion), h.Version)
	assert.Equal(t, codec.ZeroHashHex, h.PrevBlockHash)
	assert.Equal(t, result.MerkleRoot, h.MerkleRoot)
	assert.Equal(t, testTimestamp, h.Timestamp)
	assert.Equal(t, DefaultBits, h.Bits)
	assert.Equal(t, result.Nonce, h.Nonce)

	assert.Equal(t, BlockHash(result.Header), result.BlockHash)
	hash, err := hex.DecodeString(result.BlockHash)
	require.NoError(t, err)
	assert.True(t, HashMeetsTarget(hash, a.Params().Target))
}

func TestAssembleWithTransactions(t *testing.T) {
	a := testAssembler(t)
	cs := []Candidate{rawTx(t, 1), rawTx(t, 2), rawTx(t, 3)}

	result, err := a.Assemble(context.Background(), cs)
	require.NoError(t, err)

	require.Len(t, result.TxIDs, 4)
	assert.Equal(t, result.CoinbaseID, result.TxIDs[0])
	assert.Equal(t, []string{cs[0].ID, cs[1].ID, cs[2].ID}, result.TxIDs[1:])

	witnessRoot, err := WitnessMerkleRoot([]string{CoinbaseWtxid, cs[0].ComputedID(), cs[1].ComputedID(), cs[2].ComputedID()})
	require.NoError(t, err)
	assert.Equal(t, witnessRoot, result.WitnessRoot)

	commitment, err := WitnessCommitment(witnessRoot)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(commitment), result.Commitment)
	assert.Contains(t, hex.EncodeToString(result.Coinbase), "6a24aa21a9ed"+result.Commitment)

	merkleRoot, err := TxMerkleRoot(result.TxIDs)
	require.NoError(t, err)
	assert.Equal(t, merkleRoot, result.MerkleRoot)

	// the coinbase branch folds back to the header merkle root
	cbLeaf, err := codec.DecodeHash32(result.CoinbaseID)
	require.NoError(t, err)
	branch := make([][]byte, len(result.CoinbaseBranch))
	for i, s := range result.CoinbaseBranch {
		branch[i], err = hex.DecodeString(s)
		require.NoError(t, err)
	}
	root := RootFromBranch(codec.ReverseBytes(cbLeaf), branch, 0)
	assert.Equal(t, merkleRoot, hex.EncodeToString(codec.ReverseBytes(root)))
}

func TestAssembleBlockDecodes(t *testing.T) {
	a := testAssembler(t)
	cs := []Candidate{rawTx(t, 9), rawTx(t, 10)}

	result, err := a.Assemble(context.Background(), cs)
	require.NoError(t, err)

	var block btcwire.MsgBlock
	require.NoError(t, block.Deserialize(bytes.NewReader(result.Block)))
	require.Len(t, block.Transactions, 3)
	assert.Equal(t, result.Nonce, block.Header.Nonce)
	assert.Equal(t, cs[0].ID, hex.EncodeToString(codec.DoubleHash(cs[0].Raw)))

	var cb bytes.Buffer
	require.NoError(t, block.Transactions[0].Serialize(&cb))
	assert.Equal(t, result.Coinbase, cb.Bytes())
}

func TestAssembleIsDeterministic(t *testing.T) {
	cs := []Candidate{rawTx(t, 4), rawTx(t, 5)}

	first, err := testAssembler(t).Assemble(context.Background(), cs)
	require.NoError(t, err)
	second, err := testAssembler(t).Assemble(context.Background(), cs)
	require.NoError(t, err)

	assert.Equal(t, first.Header, second.Header)
	assert.Equal(t, first.Coinbase, second.Coinbase)
	assert.Equal(t, first.TxIDs, second.TxIDs)
}

func TestAssembleMiningFailure(t *testing.T) {
	params := DefaultParams()
	params.Target = oneIn(8)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := NewAssembler(params, NewMiner(1, nil))
	_, err := a.Assemble(ctx, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, StateMerkleRootComputed, a.State())
	assert.Nil(t, a.LastResult())
}

func TestAssembleRejectsBadPrevHash(t *testing.T) {
	params := DefaultParams()
	params.PrevBlockHash = "1234"

	_, err := NewAssembler(params, nil).Assemble(context.Background(), nil)
	assert.Error(t, err)
}

func TestStateMachineOrder(t *testing.T) {
	ctx := context.Background()
	machine := NewStateMachine()

	err := machine.Event(ctx, EventMine)
	assert.Error(t, err)
	assert.Equal(t, StateLoaded, machine.Current())

	steps := []struct{ event, state string }{
		{EventSelect, StateSelected},
		{EventWitnessRootPass1, StateWitnessRootPass1},
		{EventBuildCoinbase, StateCoinbaseBuilt},
		{EventWitnessRootPass2, StateWitnessRootPass2},
		{EventFinalizeCoinbase, StateFinalCoinbase},
		{EventComputeMerkleRoot, StateMerkleRootComputed},
		{EventMine, StateMined},
		{EventEmit, StateEmitted},
	}
	for _, s := range steps {
		require.NoError(t, machine.Event(ctx, s.event))
		assert.Equal(t, s.state, machine.Current())
	}
	assert.Error(t, machine.Event(ctx, EventSelect))
}

func TestAdvanceWrapsInvalidTransition(t *testing.T) {
	a := testAssembler(t)
	err := a.advance(context.Background(), NewStateMachine(), EventEmit)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
}

func TestResultWriteTo(t *testing.T) {
	result, err := testAssembler(t).Assemble(context.Background(), []Candidate{rawTx(t, 6)})
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := result.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Len(t, lines[0], 160)
	assert.Equal(t, hex.EncodeToString(result.Coinbase), lines[1])
	assert.Equal(t, result.TxIDs, lines[2:])

	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))
	require.NoError(t, result.WriteArtifactFile(path))

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, buf.String(), string(written))
	_, err = os.Stat(path + ".new")
	assert.True(t, os.IsNotExist(err))
}
