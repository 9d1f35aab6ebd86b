package web

import (
	"bytes"
	"encoding/hex"
	"net/http"
	"runtime"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ayushshrivastv/Summer-of-Bitcoin/work"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Provider exposes the outcome of the most recent assembly run.
type Provider interface {
	State() string
	LastResult() *work.Result
}

type status struct {
	State        string   `json:"state"`
	GoRoutines   int      `json:"go_routines"`
	BlockHash    string   `json:"block_hash,omitempty"`
	Header       string   `json:"header,omitempty"`
	Nonce        uint32   `json:"nonce"`
	Timestamp    uint32   `json:"timestamp"`
	MerkleRoot   string   `json:"merkle_root,omitempty"`
	WitnessRoot  string   `json:"witness_root,omitempty"`
	Commitment   string   `json:"witness_commitment,omitempty"`
	CoinbaseID   string   `json:"coinbase_id,omitempty"`
	Branch       []string `json:"coinbase_branch,omitempty"`
	Transactions int      `json:"transactions"`
	TotalWeight  uint64   `json:"total_weight"`
	Hashes       uint64   `json:"hashes"`
}

func newStatus(p Provider) status {
	s := status{
		State:      p.State(),
		GoRoutines: runtime.NumGoroutine(),
	}
	if r := p.LastResult(); r != nil {
		s.BlockHash = r.BlockHash
		s.Header = hex.EncodeToString(r.Header)
		s.Nonce = r.Nonce
		s.Timestamp = r.Timestamp
		s.MerkleRoot = r.MerkleRoot
		s.WitnessRoot = r.WitnessRoot
		s.Commitment = r.Commitment
		s.CoinbaseID = r.CoinbaseID
		s.Branch = r.CoinbaseBranch
		s.Transactions = len(r.TxIDs)
		s.TotalWeight = r.TotalWeight
		s.Hashes = r.Hashes
	}
	return s
}

// NewDashboard returns a JSON status page at "/", the block artifact at
// "/block" and Prometheus metrics at "/metrics".
func NewDashboard(p Provider) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(newStatus(p))
	})

	mux.HandleFunc("/block", func(w http.ResponseWriter, r *http.Request) {
		result := p.LastResult()
		if result == nil {
			http.Error(w, "no block assembled yet", http.StatusNotFound)
			return
		}
		var buf bytes.Buffer
		if _, err := result.WriteTo(&buf); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
	})

	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
