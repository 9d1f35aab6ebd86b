package work

import (
	"encoding/hex"

	codec "github.com/ayushshrivastv/Summer-of-Bitcoin/wire"
)

// Candidate is a pending transaction offered for inclusion in a block.
type Candidate struct {
	ID     string
	Raw    []byte
	Weight uint64
}

// ComputedID is the lowercase hex of the double SHA-256 of the raw bytes,
// the value ID is expected to carry.
func (c Candidate) ComputedID() string {
	return hex.EncodeToString(codec.DoubleHash(c.Raw))
}

// BlockTemplate holds the transactions picked for a block, in selection order.
type BlockTemplate struct {
	TxIDs       []string
	RawTxs      [][]byte
	TotalWeight uint64
}

// SelectTransactions packs candidates first-fit in the order given. A
// candidate is taken when the running weight plus its own weight plus the
// reserved block overhead still fits under the weight limit.
func SelectTransactions(candidates []Candidate, params Params) *BlockTemplate {
	tmpl := &BlockTemplate{
		TxIDs:  make([]string, 0, len(candidates)),
		RawTxs: make([][]byte, 0, len(candidates)),
	}
	for _, c := range candidates {
		if c.Weight > params.MaxBlockWeight {
			continue
		}
		if tmpl.TotalWeight+c.Weight+params.ReservedWeight > params.MaxBlockWeight {
			continue
		}
		tmpl.TotalWeight += c.Weight
		tmpl.TxIDs = append(tmpl.TxIDs, c.ID)
		tmpl.RawTxs = append(tmpl.RawTxs, c.Raw)
	}
	return tmpl
}

// WitnessIDs returns the wtxid leaves of the block: the coinbase placeholder
// followed by the double hash of every selected transaction.
func (t *BlockTemplate) WitnessIDs() []string {
	wtxids := make([]string, 0, len(t.RawTxs)+1)
	wtxids = append(wtxids, CoinbaseWtxid)
	for _, raw := range t.RawTxs {
		wtxids = append(wtxids, hex.EncodeToString(codec.DoubleHash(raw)))
	}
	return wtxids
}
