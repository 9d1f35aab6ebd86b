package work

import (
	"math/big"

	"github.com/btcsuite/btcd/txscript"

	codec "github.com/ayushshrivastv/Summer-of-Bitcoin/wire"
)

const (
	// DefaultTargetHex is the proof-of-work threshold used when no target is configured.
	DefaultTargetHex = "0000ffff00000000000000000000000000000000000000000000000000000000"

	DefaultVersion        int32  = 4
	DefaultBits           uint32 = 0x1f00ffff
	DefaultSubsidy        int64  = 5_000_000_000
	DefaultMaxBlockWeight uint64 = 4_000_000
	DefaultReservedWeight uint64 = 1_000
	DefaultCoinbaseHeight uint32 = 0x1d15e6
)

// Params is the consensus configuration of a single assembly run. It is
// passed by value and never modified after construction.
type Params struct {
	Version        int32
	PrevBlockHash  string
	Bits           uint32
	Target         *big.Int
	Subsidy        int64
	MaxBlockWeight uint64
	ReservedWeight uint64
	CoinbaseHeight uint32
	PayoutScript   []byte
}

// DefaultParams returns the parameters of the low-difficulty exercise chain.
func DefaultParams() Params {
	target, _ := new(big.Int).SetString(DefaultTargetHex, 16)
	return Params{
		Version:        DefaultVersion,
		PrevBlockHash:  codec.ZeroHashHex,
		Bits:           DefaultBits,
		Target:         target,
		Subsidy:        DefaultSubsidy,
		MaxBlockWeight: DefaultMaxBlockWeight,
		ReservedWeight: DefaultReservedWeight,
		CoinbaseHeight: DefaultCoinbaseHeight,
		PayoutScript:   PlaceholderPayoutScript(),
	}
}

// PlaceholderPayoutScript is a P2PKH script paying to the all-zero key hash.
func PlaceholderPayoutScript() []byte {
	script, _ := txscript.NewScriptBuilder().
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(make([]byte, 20)).
		AddOp(txscript.OP_EQUALVERIFY).
		AddOp(txscript.OP_CHECKSIG).
		Script()
	return script
}
