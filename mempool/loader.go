package mempool

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/ayushshrivastv/Summer-of-Bitcoin/logging"
	"github.com/ayushshrivastv/Summer-of-Bitcoin/work"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Stats summarizes a Load.
type Stats struct {
	Files      int
	Loaded     int
	Skipped    int
	Mismatched int
}

// Load reads every *.json file in dir, sorted by name, and returns the
// records usable as block candidates in that order. A candidate's id is the
// file name without extension. Records with missing fields or undecodable
// hex are skipped; a file that is not JSON aborts the load.
func Load(dir string) ([]work.Candidate, Stats, error) {
	var stats Stats

	// ReadDir returns entries sorted by file name
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, stats, errors.Wrapf(err, "could not read mempool directory %s", dir)
	}

	candidates := make([]work.Candidate, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		stats.Files++

		path := filepath.Join(dir, entry.Name())
		id := strings.TrimSuffix(entry.Name(), ".json")

		rec, err := readRecord(path)
		if err != nil {
			return nil, stats, err
		}
		c, err := toCandidate(id, rec)
		if err != nil {
			logging.Warnf("Mempool: skipping %s: %v", entry.Name(), err)
			stats.Skipped++
			continue
		}
		if computed := c.ComputedID(); computed != id {
			logging.Warnf("Mempool: file %s does not match computed id %s", id, computed)
			stats.Mismatched++
		}

		candidates = append(candidates, c)
		stats.Loaded++
	}

	logging.Infof("Mempool: loaded %d of %d transactions from %s (%d skipped, %d id mismatches)",
		stats.Loaded, stats.Files, dir, stats.Skipped, stats.Mismatched)
	return candidates, stats, nil
}

func readRecord(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open %s", path)
	}
	defer f.Close()

	rec := &Record{}
	if err := json.NewDecoder(f).Decode(rec); err != nil {
		return nil, errors.Wrapf(err, "could not parse %s", path)
	}
	return rec, nil
}

func toCandidate(id string, rec *Record) (work.Candidate, error) {
	if err := rec.Validate(); err != nil {
		return work.Candidate{}, err
	}
	raw, err := hex.DecodeString(*rec.Hex)
	if err != nil {
		return work.Candidate{}, errors.Wrap(err, "invalid hex")
	}
	return work.Candidate{
		ID:     id,
		Raw:    raw,
		Weight: *rec.Weight,
	}, nil
}
