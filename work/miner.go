package work

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"math"
	"math/big"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/ayushshrivastv/Summer-of-Bitcoin/logging"
	codec "github.com/ayushshrivastv/Summer-of-Bitcoin/wire"
)

// ErrNonceExhausted is returned when no nonce in the searched range meets the target.
var ErrNonceExhausted = errors.New("nonce overflow: no nonce satisfies the target")

var errRangeAbandoned = errors.New("nonce range abandoned")

const (
	// DefaultChunkSize is the number of nonces a parallel worker claims at a time.
	DefaultChunkSize uint32 = 1 << 18

	// ctxCheckInterval is how many hashes are computed between cancellation checks.
	ctxCheckInterval = 4096
)

// NonceRange is an inclusive range of nonces.
type NonceRange struct {
	Start uint32
	End   uint32
}

// FullNonceRange covers the whole 32 bit nonce space.
func FullNonceRange() NonceRange {
	return NonceRange{Start: 0, End: math.MaxUint32}
}

// Solution is a nonce that satisfies the target.
type Solution struct {
	Nonce uint32
	// Hash is the header double hash in native (non-reversed) byte order.
	Hash   string
	Hashes uint64
}

// Miner searches the nonce space of a header prefix.
type Miner struct {
	Workers   int
	ChunkSize uint32
	POWHash   func([]byte) []byte
}

// NewMiner returns a miner hashing with powHash, double SHA-256 when nil.
// With workers <= 1 the search runs on the calling goroutine.
func NewMiner(workers int, powHash func([]byte) []byte) *Miner {
	initPrometheusMetrics()

	if powHash == nil {
		powHash = codec.DoubleHash
	}
	return &Miner{
		Workers:   workers,
		ChunkSize: DefaultChunkSize,
		POWHash:   powHash,
	}
}

// ScanRange tries every nonce of r in ascending order and returns the first
// one whose header hash, read big-endian, is below target.
func (m *Miner) ScanRange(ctx context.Context, prefix []byte, target *big.Int, r NonceRange) (*Solution, error) {
	header, err := m.newHeader(prefix, target)
	if err != nil {
		return nil, err
	}
	sol, hashes, err := m.scan(ctx, header, target, r, nil)
	if err != nil {
		return nil, err
	}
	sol.Hashes = hashes
	return sol, nil
}

// Mine searches the full nonce space and returns the lowest valid nonce.
// Parallel workers claim chunks in ascending order, so the answer is the
// same as the sequential search.
func (m *Miner) Mine(ctx context.Context, prefix []byte, target *big.Int) (*Solution, error) {
	if m.Workers <= 1 {
		return m.ScanRange(ctx, prefix, target, FullNonceRange())
	}
	if _, err := m.newHeader(prefix, target); err != nil {
		return nil, err
	}

	chunk := uint64(m.ChunkSize)
	if chunk == 0 {
		chunk = uint64(DefaultChunkSize)
	}

	const noSolution = math.MaxUint64
	var (
		cursor = atomic.NewUint64(0)
		best   = atomic.NewUint64(noSolution)
		total  = atomic.NewUint64(0)
		mu     sync.Mutex
		winner *Solution
	)

	g, gCtx := errgroup.WithContext(ctx)
	for w := 0; w < m.Workers; w++ {
		g.Go(func() error {
			header, _ := m.newHeader(prefix, target)
			for {
				start := cursor.Add(chunk) - chunk
				if start > math.MaxUint32 || start > best.Load() {
					return nil
				}
				end := start + chunk - 1
				if end > math.MaxUint32 {
					end = math.MaxUint32
				}

				abandon := func() bool { return start > best.Load() }
				sol, hashes, err := m.scan(gCtx, header, target, NonceRange{Start: uint32(start), End: uint32(end)}, abandon)
				total.Add(hashes)

				switch {
				case err == nil:
					mu.Lock()
					if winner == nil || sol.Nonce < winner.Nonce {
						winner = sol
						best.Store(uint64(sol.Nonce))
					}
					mu.Unlock()
					return nil
				case errors.Is(err, ErrNonceExhausted), errors.Is(err, errRangeAbandoned):
					continue
				default:
					return err
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if winner == nil {
		return nil, errors.Wrap(ErrNonceExhausted, "searched the full nonce space")
	}
	winner.Hashes = total.Load()
	return winner, nil
}

func (m *Miner) newHeader(prefix []byte, target *big.Int) ([]byte, error) {
	if len(prefix) != HeaderPrefixSize {
		return nil, errors.Errorf("header prefix must be %d bytes, got %d", HeaderPrefixSize, len(prefix))
	}
	if target == nil || target.Sign() <= 0 {
		return nil, errors.New("target must be positive")
	}
	header := make([]byte, HeaderSize)
	copy(header, prefix)
	return header, nil
}

// scan hashes header with each nonce of r. abandon, when set, is polled
// together with ctx and stops the scan early.
func (m *Miner) scan(ctx context.Context, header []byte, target *big.Int, r NonceRange, abandon func() bool) (*Solution, uint64, error) {
	if r.Start > r.End {
		return nil, 0, errors.Errorf("invalid nonce range [%d,%d]", r.Start, r.End)
	}
	prometheusMinerRangesScanned.Inc()

	var hashes uint64
	defer func() { prometheusMinerHashes.Add(float64(hashes)) }()

	nonce := r.Start
	for {
		if hashes%ctxCheckInterval == 0 {
			select {
			case <-ctx.Done():
				return nil, hashes, ctx.Err()
			default:
			}
			if abandon != nil && abandon() {
				return nil, hashes, errRangeAbandoned
			}
		}

		binary.LittleEndian.PutUint32(header[HeaderPrefixSize:], nonce)
		hash := m.POWHash(header)
		hashes++

		if HashMeetsTarget(hash, target) {
			logging.Debugf("Miner: nonce %d meets target after %d hashes", nonce, hashes)
			return &Solution{Nonce: nonce, Hash: hex.EncodeToString(hash)}, hashes, nil
		}
		if nonce == r.End {
			break
		}
		nonce++
	}
	return nil, hashes, errors.Wrapf(ErrNonceExhausted, "range [%d,%d]", r.Start, r.End)
}
