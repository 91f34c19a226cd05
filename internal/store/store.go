// Package store keeps the rebuild ledger: one record per build
// fingerprint, pointing at the archived image that build produced.
//
// The ledger is bolt-backed and survives restarts. Records whose
// archive has vanished from disk are dropped on lookup, so a pruned
// cache directory degrades to cache misses, never to broken builds.
package store

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/AiCodeCraft/spacebake/internal/errs"
	"github.com/AiCodeCraft/spacebake/internal/paths"
)

var bucketBuilds = []byte("builds")

// A completed build, keyed by its fingerprint.
type Record struct {
	Key         string    `json:"key"`          // Build fingerprint.
	Tag         string    `json:"tag"`          // Tag the image was built under.
	Archive     string    `json:"archive"`      // Path to the archived image tar.
	ImageDigest string    `json:"image_digest"` // Digest of the exported image.
	BaseDigest  string    `json:"base_digest"`  // Digest of the resolved base.
	CreatedAt   time.Time `json:"created_at"`   // When the build finished.
}

// A bolt-backed build ledger.
type Store struct {
	db *bolt.DB
}

// Opens the ledger at path, creating it and its directory as needed.
//
// The open times out rather than blocking forever on a ledger held by
// another process.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), paths.DefaultDirMode); err != nil {
		return nil, errs.Wrap(ErrLedger, err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, errs.Wrapf(ErrLedger, "open %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketBuilds)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errs.Wrap(ErrLedger, err)
	}

	return &Store{db: db}, nil
}

// Closes the ledger.
func (s *Store) Close() error {
	return s.db.Close()
}

// Records a build, replacing any previous record under the same key.
func (s *Store) Put(rec Record) error {
	if rec.Key == "" {
		return errs.Wrapf(ErrLedger, "record has no key")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return errs.Wrap(ErrLedger, err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBuilds).Put([]byte(rec.Key), data)
	})
	if err != nil {
		return errs.Wrap(ErrLedger, err)
	}
	return nil
}

// Looks up the build recorded under key.
//
// A record whose archive no longer exists on disk counts as absent and
// is dropped from the ledger on the way out.
func (s *Store) Lookup(key string) (Record, bool, error) {
	var rec Record
	found := false

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketBuilds).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return Record{}, false, errs.Wrap(ErrLedger, err)
	}
	if !found {
		return Record{}, false, nil
	}

	if _, err := os.Stat(rec.Archive); err != nil {
		slog.Debug("dropping stale ledger record", "key", key, "archive", rec.Archive)
		if err := s.Delete(key); err != nil {
			return Record{}, false, err
		}
		return Record{}, false, nil
	}

	return rec, true, nil
}

// Returns all records, newest first.
func (s *Store) List() ([]Record, error) {
	var records []Record

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBuilds).ForEach(func(_, data []byte) error {
			var rec Record
			if err := json.Unmarshal(data, &rec); err != nil {
				return err
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, errs.Wrap(ErrLedger, err)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	return records, nil
}

// Removes the record under key. Removing an absent key is not an error.
func (s *Store) Delete(key string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBuilds).Delete([]byte(key))
	})
	if err != nil {
		return errs.Wrap(ErrLedger, err)
	}
	return nil
}
