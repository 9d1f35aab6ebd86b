package work

import (
	"context"
	"encoding/hex"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"github.com/pkg/errors"

	"github.com/ayushshrivastv/Summer-of-Bitcoin/logging"
)

// ErrInvalidTransition is returned when the assembly pipeline is driven out of order.
var ErrInvalidTransition = errors.New("invalid assembly state transition")

// Assembly states, in the order a run walks through them.
const (
	StateLoaded             = "Loaded"
	StateSelected           = "Selected"
	StateWitnessRootPass1   = "WitnessRootPass1"
	StateCoinbaseBuilt      = "CoinbaseBuilt"
	StateWitnessRootPass2   = "WitnessRootPass2"
	StateFinalCoinbase      = "FinalCoinbase"
	StateMerkleRootComputed = "MerkleRootComputed"
	StateMined              = "Mined"
	StateEmitted            = "Emitted"
)

// Assembly events.
const (
	EventSelect            = "select"
	EventWitnessRootPass1  = "witness_root_pass1"
	EventBuildCoinbase     = "build_coinbase"
	EventWitnessRootPass2  = "witness_root_pass2"
	EventFinalizeCoinbase  = "finalize_coinbase"
	EventComputeMerkleRoot = "compute_merkle_root"
	EventMine              = "mine"
	EventEmit              = "emit"
)

// NewStateMachine creates the finite state machine of one assembly run.
// Every event has exactly one source state, so the pipeline cannot branch
// or skip a step.
func NewStateMachine() *fsm.FSM {
	step := func(name, src, dst string) fsm.EventDesc {
		return fsm.EventDesc{Name: name, Src: []string{src}, Dst: dst}
	}
	return fsm.NewFSM(
		StateLoaded,
		fsm.Events{
			step(EventSelect, StateLoaded, StateSelected),
			step(EventWitnessRootPass1, StateSelected, StateWitnessRootPass1),
			step(EventBuildCoinbase, StateWitnessRootPass1, StateCoinbaseBuilt),
			step(EventWitnessRootPass2, StateCoinbaseBuilt, StateWitnessRootPass2),
			step(EventFinalizeCoinbase, StateWitnessRootPass2, StateFinalCoinbase),
			step(EventComputeMerkleRoot, StateFinalCoinbase, StateMerkleRootComputed),
			step(EventMine, StateMerkleRootComputed, StateMined),
			step(EventEmit, StateMined, StateEmitted),
		},
		fsm.Callbacks{},
	)
}

// Assembler turns a set of candidate transactions into a mined block.
type Assembler struct {
	params Params
	miner  *Miner
	clock  func() uint32

	mu         sync.RWMutex
	machine    *fsm.FSM
	lastResult *Result
}

type Option func(*Assembler)

// WithClock overrides the header timestamp source.
func WithClock(clock func() uint32) Option {
	return func(a *Assembler) {
		a.clock = clock
	}
}

func NewAssembler(params Params, miner *Miner, opts ...Option) *Assembler {
	initPrometheusMetrics()

	if miner == nil {
		miner = NewMiner(1, nil)
	}
	a := &Assembler{
		params:  params,
		miner:   miner,
		clock:   func() uint32 { return uint32(time.Now().Unix()) },
		machine: NewStateMachine(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Params returns the consensus parameters the assembler was built with.
func (a *Assembler) Params() Params {
	return a.params
}

// State returns the state reached by the most recent run.
func (a *Assembler) State() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.machine.Current()
}

// LastResult returns the result of the most recent successful run, or nil.
func (a *Assembler) LastResult() *Result {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastResult
}

func (a *Assembler) advance(ctx context.Context, machine *fsm.FSM, event string) error {
	from := machine.Current()
	// transitions record progress only; a cancelled run still reports where it stopped
	if err := machine.Event(context.WithoutCancel(ctx), event); err != nil {
		return errors.Wrapf(ErrInvalidTransition, "%s from %s: %v", event, from, err)
	}
	logging.Debugf("Assembler: %s -> %s", from, machine.Current())
	return nil
}

// Assemble selects transactions, builds the coinbase and its witness
// commitment, computes the merkle root and mines the header. Nothing is
// returned unless every step succeeds.
func (a *Assembler) Assemble(ctx context.Context, candidates []Candidate) (*Result, error) {
	started := time.Now()

	machine := NewStateMachine()
	a.mu.Lock()
	a.machine = machine
	a.mu.Unlock()

	result, err := a.assemble(ctx, machine, candidates)
	if err != nil {
		prometheusAssemblerFailures.Inc()
		return nil, err
	}

	prometheusAssemblerBlocksMined.Inc()
	prometheusAssemblerDuration.Observe(time.Since(started).Seconds())

	a.mu.Lock()
	a.lastResult = result
	a.mu.Unlock()
	return result, nil
}

func (a *Assembler) assemble(ctx context.Context, machine *fsm.FSM, candidates []Candidate) (*Result, error) {
	tmpl := SelectTransactions(candidates, a.params)
	logging.Infof("Assembler: selected %d of %d transactions, total weight %d", len(tmpl.TxIDs), len(candidates), tmpl.TotalWeight)
	prometheusAssemblerSelectedTxs.Set(float64(len(tmpl.TxIDs)))
	prometheusAssemblerSelectedWeight.Set(float64(tmpl.TotalWeight))
	if err := a.advance(ctx, machine, EventSelect); err != nil {
		return nil, err
	}

	// The coinbase occupies the first witness leaf with a fixed zero wtxid,
	// so its own serialization never feeds back into the witness root. The
	// root is still computed over two rounds; the second must agree.
	wtxids := tmpl.WitnessIDs()

	if _, err := BuildCoinbase(a.params, ""); err != nil {
		return nil, errors.Wrap(err, "placeholder coinbase")
	}
	witnessRoot, err := WitnessMerkleRoot(wtxids)
	if err != nil {
		return nil, errors.Wrap(err, "witness root, first pass")
	}
	if err := a.advance(ctx, machine, EventWitnessRootPass1); err != nil {
		return nil, err
	}

	if _, err := BuildCoinbase(a.params, witnessRoot); err != nil {
		return nil, errors.Wrap(err, "coinbase")
	}
	if err := a.advance(ctx, machine, EventBuildCoinbase); err != nil {
		return nil, err
	}

	secondRoot, err := WitnessMerkleRoot(wtxids)
	if err != nil {
		return nil, errors.Wrap(err, "witness root, second pass")
	}
	if secondRoot != witnessRoot {
		logging.Warnf("Assembler: witness root changed between passes (%s -> %s)", witnessRoot, secondRoot)
	} else {
		logging.Debugf("Assembler: witness root stable after second pass: %s", secondRoot)
	}
	witnessRoot = secondRoot
	if err := a.advance(ctx, machine, EventWitnessRootPass2); err != nil {
		return nil, err
	}

	coinbase, err := BuildCoinbase(a.params, witnessRoot)
	if err != nil {
		return nil, errors.Wrap(err, "final coinbase")
	}
	commitment, err := WitnessCommitment(witnessRoot)
	if err != nil {
		return nil, err
	}
	if err := checkCoinbase(coinbase, commitment); err != nil {
		return nil, errors.Wrap(err, "final coinbase")
	}
	coinbaseID := CoinbaseTxID(coinbase)
	if err := a.advance(ctx, machine, EventFinalizeCoinbase); err != nil {
		return nil, err
	}

	txids := make([]string, 0, len(tmpl.TxIDs)+1)
	txids = append(txids, coinbaseID)
	txids = append(txids, tmpl.TxIDs...)
	merkleRoot, err := TxMerkleRoot(txids)
	if err != nil {
		return nil, errors.Wrap(err, "merkle root")
	}
	branch, err := coinbaseBranch(txids)
	if err != nil {
		return nil, err
	}
	if err := a.advance(ctx, machine, EventComputeMerkleRoot); err != nil {
		return nil, err
	}

	timestamp := a.clock()
	version := uint32(a.params.Version)
	header, err := SerializeHeader(version, a.params.PrevBlockHash, merkleRoot, timestamp, a.params.Bits, 0)
	if err != nil {
		return nil, err
	}
	logging.Infof("Assembler: mining header with merkle root %s", merkleRoot)
	sol, err := a.miner.Mine(ctx, header[:HeaderPrefixSize], a.params.Target)
	if err != nil {
		return nil, errors.Wrap(err, "mining failed")
	}
	header, err = SerializeHeader(version, a.params.PrevBlockHash, merkleRoot, timestamp, a.params.Bits, sol.Nonce)
	if err != nil {
		return nil, err
	}
	if err := a.advance(ctx, machine, EventMine); err != nil {
		return nil, err
	}

	result := &Result{
		Header:         header,
		Coinbase:       coinbase,
		CoinbaseID:     coinbaseID,
		TxIDs:          txids,
		WitnessRoot:    witnessRoot,
		Commitment:     hex.EncodeToString(commitment),
		MerkleRoot:     merkleRoot,
		CoinbaseBranch: branch,
		BlockHash:      sol.Hash,
		Nonce:          sol.Nonce,
		Timestamp:      timestamp,
		TotalWeight:    tmpl.TotalWeight,
		Hashes:         sol.Hashes,
		Block:          serializeBlock(header, coinbase, tmpl.RawTxs),
	}
	if err := a.advance(ctx, machine, EventEmit); err != nil {
		return nil, err
	}
	return result, nil
}

// coinbaseBranch returns the merkle branch of the coinbase in internal byte
// order, hex encoded.
func coinbaseBranch(txids []string) ([]string, error) {
	leaves, err := decodeLeaves(txids, true)
	if err != nil {
		return nil, err
	}
	branch, err := MerkleBranch(leaves, 0)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(branch))
	for i, h := range branch {
		out[i] = hex.EncodeToString(h)
	}
	return out, nil
}
