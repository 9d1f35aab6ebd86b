package mempool

import (
	"github.com/pkg/errors"
)

// ErrMissingFields marks a record that lacks something selection needs.
var ErrMissingFields = errors.New("transaction record is missing required fields")

type Prevout struct {
	ScriptPubKey        string `json:"scriptpubkey"`
	ScriptPubKeyAddress string `json:"scriptpubkey_address"`
	Value               int64  `json:"value"`
}

type Input struct {
	TxID       string   `json:"txid"`
	Vout       uint32   `json:"vout"`
	IsCoinbase bool     `json:"is_coinbase"`
	ScriptSig  string   `json:"scriptsig"`
	Sequence   uint32   `json:"sequence"`
	Witness    []string `json:"witness"`
	Prevout    *Prevout `json:"prevout"`
}

type Output struct {
	ScriptPubKey        string `json:"scriptpubkey"`
	ScriptPubKeyType    string `json:"scriptpubkey_type"`
	ScriptPubKeyAddress string `json:"scriptpubkey_address"`
	Value               int64  `json:"value"`
}

// Record is one pending transaction file. Weight and Hex are pointers so a
// missing field can be told apart from a zero value.
type Record struct {
	TxID     string   `json:"txid"`
	Version  int32    `json:"version"`
	Locktime uint32   `json:"locktime"`
	Vin      []Input  `json:"vin"`
	Vout     []Output `json:"vout"`
	Size     uint64   `json:"size"`
	Weight   *uint64  `json:"weight"`
	Fee      int64    `json:"fee"`
	Hex      *string  `json:"hex"`
}

// Validate reports ErrMissingFields unless the record has inputs, outputs,
// a weight and a raw hex serialization.
func (r *Record) Validate() error {
	switch {
	case len(r.Vin) == 0:
		return errors.Wrap(ErrMissingFields, "no inputs")
	case len(r.Vout) == 0:
		return errors.Wrap(ErrMissingFields, "no outputs")
	case r.Weight == nil:
		return errors.Wrap(ErrMissingFields, "no weight")
	case r.Hex == nil:
		return errors.Wrap(ErrMissingFields, "no hex")
	}
	return nil
}
