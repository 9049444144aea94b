package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/cloudshift/cutover/pkg/types"
)

var (
	// Bucket names
	bucketCheckpoints = []byte("checkpoints")
	bucketSwitches    = []byte("switches")
)

// BoltStore implements Store using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store
func NewBoltStore(dataDir string) (*BoltStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	dbPath := filepath.Join(dataDir, "cutover.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketCheckpoints, bucketSwitches} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// SaveCheckpoint writes a protection checkpoint (upsert)
func (s *BoltStore) SaveCheckpoint(rec *types.CapacityProtectionRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCheckpoints)
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put([]byte(rec.ID), data)
	})
}

// DeleteCheckpoint removes a checkpoint after protection is released
func (s *BoltStore) DeleteCheckpoint(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCheckpoints)
		return b.Delete([]byte(id))
	})
}

// ListCheckpoints returns all stored checkpoints
func (s *BoltStore) ListCheckpoints() ([]*types.CapacityProtectionRecord, error) {
	var recs []*types.CapacityProtectionRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCheckpoints)
		return b.ForEach(func(k, v []byte) error {
			var rec types.CapacityProtectionRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			recs = append(recs, &rec)
			return nil
		})
	})
	return recs, err
}

// StaleCheckpoints returns checkpoints older than maxAge
func (s *BoltStore) StaleCheckpoints(maxAge time.Duration) ([]*types.CapacityProtectionRecord, error) {
	recs, err := s.ListCheckpoints()
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().Add(-maxAge)
	var stale []*types.CapacityProtectionRecord
	for _, rec := range recs {
		if rec.CreatedAt.Before(cutoff) {
			stale = append(stale, rec)
		}
	}
	return stale, nil
}

// AppendSwitch records a completed traffic switch. Keys are timestamp
// ordered so RecentSwitches can walk backwards.
func (s *BoltStore) AppendSwitch(rec *types.SwitchRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSwitches)
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		key := fmt.Sprintf("%s/%020d", rec.Environment, rec.SwitchedAt.UnixNano())
		return b.Put([]byte(key), data)
	})
}

// RecentSwitches returns the most recent switch records for an environment,
// newest first.
func (s *BoltStore) RecentSwitches(environment string, limit int) ([]*types.SwitchRecord, error) {
	var all []*types.SwitchRecord
	prefix := []byte(environment + "/")
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketSwitches).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var rec types.SwitchRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			all = append(all, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Keys are timestamp ordered, so the tail holds the newest entries.
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	return all, nil
}
