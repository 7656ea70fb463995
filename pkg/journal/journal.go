// Package journal provides an optional embedded log of save events,
// keyed by run ID, supplementing (never replacing) the sampler's
// mandated text-file outputs.
//
// Grounded on an embedded BadgerDB wrapper used elsewhere for
// low-latency local persistence: a journal entry is written once per
// save event, which happens far less often than MCMC steps, so the
// write volume never approaches Badger's throughput ceiling.
package journal

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Entry is one save event recorded for a run.
type Entry struct {
	RunID         string    `json:"run_id"`
	Time          time.Time `json:"time"`
	CountSaves    uint64    `json:"count_saves"`
	CountMCMC     uint64    `json:"count_mcmc_steps"`
	NumLevels     int       `json:"num_levels"`
	BestLogLike   float64   `json:"best_log_likelihood"`
}

// Journal wraps a BadgerDB instance with the key encoding used to
// store and range over Entry records by run.
type Journal struct {
	db *badger.DB
}

// Open opens (creating if necessary) a journal database at dir.
func Open(dir string) (*Journal, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", dir, err)
	}
	return &Journal{db: db}, nil
}

// OpenInMemory opens a journal with no on-disk footprint, for tests and
// for callers that want journaling without configuring a directory.
func OpenInMemory() (*Journal, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("journal: open in-memory: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// key encodes runID and an ascending sequence number so that
// ForEachInRun iterates entries within a run in save order.
func key(runID string, seq uint64) []byte {
	k := make([]byte, 0, len(runID)+1+8)
	k = append(k, []byte(runID)...)
	k = append(k, 0)
	var seqBytes [8]byte
	binary.BigEndian.PutUint64(seqBytes[:], seq)
	return append(k, seqBytes[:]...)
}

// Append records entry under entry.RunID, using entry.CountSaves as the
// sequence number, since it is already a per-run monotonically
// increasing counter.
func (j *Journal) Append(ctx context.Context, entry Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("journal: marshal entry: %w", err)
	}
	return j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(entry.RunID, entry.CountSaves), payload)
	})
}

// ForEachInRun calls fn for every Entry recorded under runID, in save
// order, stopping early if fn returns an error.
func (j *Journal) ForEachInRun(runID string, fn func(Entry) error) error {
	prefix := append([]byte(runID), 0)
	return j.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var entry Entry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				return fmt.Errorf("journal: unmarshal entry: %w", err)
			}
			if err := fn(entry); err != nil {
				return err
			}
		}
		return nil
	})
}

// Latest returns the Entry with the highest CountSaves for runID (the
// last one in save order), or ok == false if the run has no recorded
// entries.
func (j *Journal) Latest(runID string) (entry Entry, ok bool, err error) {
	err = j.ForEachInRun(runID, func(e Entry) error {
		entry = e
		ok = true
		return nil
	})
	return entry, ok, err
}
