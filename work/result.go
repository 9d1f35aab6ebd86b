package work

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"io"
	"os"

	"github.com/pkg/errors"

	codec "github.com/ayushshrivastv/Summer-of-Bitcoin/wire"
)

// Result is everything produced by one assembly run.
type Result struct {
	Header         []byte
	Coinbase       []byte
	CoinbaseID     string
	TxIDs          []string // coinbase first, then the selected transactions
	WitnessRoot    string
	Commitment     string
	MerkleRoot     string
	CoinbaseBranch []string
	BlockHash      string
	Nonce          uint32
	Timestamp      uint32
	TotalWeight    uint64
	Hashes         uint64
	Block          []byte
}

// WriteTo writes the artifact: the header hex, the coinbase hex and one
// transaction id per line.
func (r *Result) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64

	lines := make([]string, 0, len(r.TxIDs)+2)
	lines = append(lines, hex.EncodeToString(r.Header), hex.EncodeToString(r.Coinbase))
	lines = append(lines, r.TxIDs...)
	for _, line := range lines {
		written, err := bw.WriteString(line + "\n")
		n += int64(written)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

// WriteArtifactFile writes the artifact next to path first and moves it into
// place once complete, so a reader never sees a partial file.
func (r *Result) WriteArtifactFile(path string) error {
	tmp := path + ".new"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrapf(err, "could not create %s", tmp)
	}

	if _, err := r.WriteTo(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Wrapf(err, "could not write %s", tmp)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return err
		}
	}
	return os.Rename(tmp, path)
}

// serializeBlock joins the header, the transaction count, the coinbase and
// the selected transactions into a full block.
func serializeBlock(header, coinbase []byte, txs [][]byte) []byte {
	size := len(header) + codec.VarIntSerializeSize(uint64(len(txs)+1)) + len(coinbase)
	for _, tx := range txs {
		size += len(tx)
	}

	var buf bytes.Buffer
	buf.Grow(size)
	buf.Write(header)
	_ = codec.WriteVarInt(&buf, uint64(len(txs)+1))
	buf.Write(coinbase)
	for _, tx := range txs {
		buf.Write(tx)
	}
	return buf.Bytes()
}
