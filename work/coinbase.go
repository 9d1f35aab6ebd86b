package work

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"

	codec "github.com/ayushshrivastv/Summer-of-Bitcoin/wire"
)

// witnessCommitmentHeader tags the OP_RETURN output carrying the BIP141 commitment.
var witnessCommitmentHeader = []byte{0xaa, 0x21, 0xa9, 0xed}

// WitnessCommitment hashes the witness root together with the 32 byte
// witness reserved value (all zeroes).
func WitnessCommitment(witnessRoot string) ([]byte, error) {
	root, err := hex.DecodeString(witnessRoot)
	if err != nil {
		return nil, errors.Wrapf(err, "could not decode witness root %q", witnessRoot)
	}
	combined := make([]byte, 0, len(root)+chainhash.HashSize)
	combined = append(combined, root...)
	combined = append(combined, make([]byte, chainhash.HashSize)...)
	return codec.DoubleHash(combined), nil
}

// WitnessCommitmentScript returns OP_RETURN <aa21a9ed || commitment>.
func WitnessCommitmentScript(commitment []byte) ([]byte, error) {
	payload := make([]byte, 0, len(witnessCommitmentHeader)+len(commitment))
	payload = append(payload, witnessCommitmentHeader...)
	payload = append(payload, commitment...)
	return txscript.NewScriptBuilder().AddOp(txscript.OP_RETURN).AddData(payload).Script()
}

// coinbaseHeightScript pushes the block height as three little-endian bytes.
func coinbaseHeightScript(height uint32) ([]byte, error) {
	heightBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(heightBytes, height)
	if heightBytes[3] != 0 {
		return nil, errors.Errorf("coinbase height %d does not fit in three bytes", height)
	}
	return txscript.NewScriptBuilder().AddData(heightBytes[:3]).Script()
}

// BuildCoinbase constructs the serialized coinbase transaction committing to
// witnessRoot. It pays the subsidy to the payout script and carries the
// witness reserved value as the only witness item of its input.
func BuildCoinbase(params Params, witnessRoot string) ([]byte, error) {
	commitment, err := WitnessCommitment(witnessRoot)
	if err != nil {
		return nil, err
	}
	commitmentScript, err := WitnessCommitmentScript(commitment)
	if err != nil {
		return nil, err
	}
	coinbaseScript, err := coinbaseHeightScript(params.CoinbaseHeight)
	if err != nil {
		return nil, err
	}

	tx := wire.NewMsgTx(params.Version)

	prevOut := wire.NewOutPoint(&chainhash.Hash{}, wire.MaxPrevOutIndex)
	witnessReserved := make([]byte, chainhash.HashSize)
	tx.AddTxIn(wire.NewTxIn(prevOut, coinbaseScript, wire.TxWitness{witnessReserved}))

	tx.AddTxOut(wire.NewTxOut(params.Subsidy, params.PayoutScript))
	tx.AddTxOut(wire.NewTxOut(0, commitmentScript))

	var buf bytes.Buffer
	buf.Grow(tx.SerializeSize())
	if err := tx.Serialize(&buf); err != nil {
		return nil, errors.Wrap(err, "could not serialize coinbase")
	}
	return buf.Bytes(), nil
}

// CoinbaseTxID is the hex double hash of the full coinbase serialization,
// witness included.
func CoinbaseTxID(serialized []byte) string {
	return hex.EncodeToString(codec.DoubleHash(serialized))
}

// TxOut is one decoded coinbase output.
type TxOut struct {
	Value  int64
	Script []byte
}

// CoinbaseTx is a decoded segwit coinbase transaction.
type CoinbaseTx struct {
	Version  int32
	Script   []byte
	Sequence uint32
	Outputs  []TxOut
	Witness  [][]byte
	LockTime uint32
}

// DecodeCoinbase parses a segwit coinbase: one null input, its witness
// stack and the outputs. Trailing bytes are an error.
func DecodeCoinbase(serialized []byte) (*CoinbaseTx, error) {
	r := bytes.NewReader(serialized)
	cb := &CoinbaseTx{}

	version, err := codec.ReadUint32LE(r)
	if err != nil {
		return nil, errors.Wrap(err, "coinbase version")
	}
	cb.Version = int32(version)

	var flag [2]byte
	if _, err := io.ReadFull(r, flag[:]); err != nil {
		return nil, errors.Wrap(err, "coinbase segwit marker")
	}
	if flag != [2]byte{0x00, 0x01} {
		return nil, errors.Errorf("coinbase is not segwit serialized (marker %x)", flag)
	}

	inputs, err := codec.ReadVarInt(r)
	if err != nil {
		return nil, errors.Wrap(err, "coinbase input count")
	}
	if inputs != 1 {
		return nil, errors.Errorf("coinbase must have exactly one input, got %d", inputs)
	}
	prevHash, err := codec.ReadChainHash(r)
	if err != nil {
		return nil, errors.Wrap(err, "coinbase previous output")
	}
	prevIndex, err := codec.ReadUint32LE(r)
	if err != nil {
		return nil, errors.Wrap(err, "coinbase previous output index")
	}
	if !prevHash.IsEqual(&chainhash.Hash{}) || prevIndex != wire.MaxPrevOutIndex {
		return nil, errors.Errorf("coinbase input spends %s:%d", prevHash, prevIndex)
	}
	if cb.Script, err = readBounded(r, "coinbase script"); err != nil {
		return nil, err
	}
	if cb.Sequence, err = codec.ReadUint32LE(r); err != nil {
		return nil, errors.Wrap(err, "coinbase sequence")
	}

	outputs, err := codec.ReadVarInt(r)
	if err != nil {
		return nil, errors.Wrap(err, "coinbase output count")
	}
	if outputs > uint64(r.Len()) {
		return nil, errors.Errorf("coinbase output count %d exceeds remaining %d bytes", outputs, r.Len())
	}
	for i := uint64(0); i < outputs; i++ {
		value, err := codec.ReadUint64LE(r)
		if err != nil {
			return nil, errors.Wrapf(err, "coinbase output %d value", i)
		}
		script, err := readBounded(r, "coinbase output script")
		if err != nil {
			return nil, err
		}
		cb.Outputs = append(cb.Outputs, TxOut{Value: int64(value), Script: script})
	}

	items, err := codec.ReadVarInt(r)
	if err != nil {
		return nil, errors.Wrap(err, "coinbase witness count")
	}
	if items > uint64(r.Len()) {
		return nil, errors.Errorf("coinbase witness count %d exceeds remaining %d bytes", items, r.Len())
	}
	for i := uint64(0); i < items; i++ {
		item, err := readBounded(r, "coinbase witness item")
		if err != nil {
			return nil, err
		}
		cb.Witness = append(cb.Witness, item)
	}

	if cb.LockTime, err = codec.ReadUint32LE(r); err != nil {
		return nil, errors.Wrap(err, "coinbase lock time")
	}
	if r.Len() != 0 {
		return nil, errors.Errorf("coinbase has %d trailing bytes", r.Len())
	}
	return cb, nil
}

// readBounded reads a var string whose declared length fits in what is left
// of r.
func readBounded(r *bytes.Reader, what string) ([]byte, error) {
	peek := *r
	n, err := codec.ReadVarInt(&peek)
	if err != nil {
		return nil, errors.Wrap(err, what)
	}
	if n > uint64(peek.Len()) {
		return nil, errors.Errorf("%s length %d exceeds remaining %d bytes", what, n, peek.Len())
	}
	b, err := codec.ReadVarString(r)
	return b, errors.Wrap(err, what)
}

// Commitment returns the witness commitment carried by the last output that
// starts with OP_RETURN <aa21a9ed>.
func (c *CoinbaseTx) Commitment() ([]byte, bool) {
	prefix := append([]byte{txscript.OP_RETURN, txscript.OP_DATA_36}, witnessCommitmentHeader...)
	for i := len(c.Outputs) - 1; i >= 0; i-- {
		script := c.Outputs[i].Script
		if len(script) >= len(prefix)+chainhash.HashSize && bytes.HasPrefix(script, prefix) {
			return script[len(prefix) : len(prefix)+chainhash.HashSize], true
		}
	}
	return nil, false
}

// checkCoinbase decodes a built coinbase and confirms it commits to
// commitment and carries the zero witness reserved value.
func checkCoinbase(serialized, commitment []byte) error {
	cb, err := DecodeCoinbase(serialized)
	if err != nil {
		return err
	}
	got, ok := cb.Commitment()
	if !ok {
		return errors.New("coinbase has no witness commitment output")
	}
	if !bytes.Equal(got, commitment) {
		return errors.Errorf("coinbase commits to %x, want %x", got, commitment)
	}
	if len(cb.Witness) != 1 || !bytes.Equal(cb.Witness[0], make([]byte, chainhash.HashSize)) {
		return errors.New("coinbase witness is not the zero reserved value")
	}
	return nil
}
