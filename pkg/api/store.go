package api

import (
	"encoding/json"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/staketools/offline-election/pkg/core"
	"github.com/staketools/offline-election/pkg/election"
)

var runKeyPrefix = []byte("run/")

// runTTL bounds how long a completed run stays retrievable. Badger drops
// expired entries during compaction.
const runTTL = 7 * 24 * time.Hour

// StoredRun is what the server persists per election: the response it
// returned plus the input data, kept so diagnostics can be generated later
// without re-running anything.
type StoredRun struct {
	Response ElectionResponse       `json:"response"`
	Data     *election.ElectionData `json:"data"`
}

// RunStore persists election runs in a Badger database keyed by election id.
type RunStore struct {
	db *badger.DB
}

// OpenRunStore opens or creates the run database under dir.
func OpenRunStore(dir string) (*RunStore, error) {
	opts := badger.DefaultOptions(dir)
	opts = opts.WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, &core.FileError{Message: "Failed to open run store", Path: dir, Err: err}
	}
	return &RunStore{db: db}, nil
}

// OpenInMemoryRunStore opens a store that lives only as long as the process.
func OpenInMemoryRunStore() (*RunStore, error) {
	opts := badger.DefaultOptions("")
	opts = opts.WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, &core.InvalidDataError{Message: "Failed to open in-memory run store: " + err.Error()}
	}
	return &RunStore{db: db}, nil
}

// Save stores a run under its election id, overwriting any previous value.
// Entries expire after runTTL.
func (s *RunStore) Save(electionID string, run StoredRun) error {
	buf, err := json.Marshal(run)
	if err != nil {
		return &core.InvalidDataError{Message: "Failed to encode stored run: " + err.Error()}
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(runKey(electionID), buf).WithTTL(runTTL))
	})
	if err != nil {
		return &core.InvalidDataError{Message: "Failed to persist run: " + err.Error()}
	}
	return nil
}

// Get loads a run by election id. The second return is false when no run
// with that id exists.
func (s *RunStore) Get(electionID string) (*StoredRun, bool, error) {
	var run StoredRun
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(runKey(electionID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &run); err != nil {
				return err
			}
			found = true
			return nil
		})
	})
	if err != nil {
		return nil, false, &core.InvalidDataError{Message: "Failed to load run: " + err.Error()}
	}
	if !found {
		return nil, false, nil
	}
	return &run, true, nil
}

// Close releases the underlying database.
func (s *RunStore) Close() error {
	return s.db.Close()
}

func runKey(electionID string) []byte {
	return append(append([]byte{}, runKeyPrefix...), electionID...)
}
