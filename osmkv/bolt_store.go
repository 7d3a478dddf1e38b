// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.

package osmkv

import (
	"bytes"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/osmtemporal/resolver/internal/errs"
)

var allKinds = []Kind{Node, Way, Relation}

// BoltStore is the expected realization of the store contract: a local B-tree-style
// engine per shard, backed by bbolt. One BoltStore owns one *.db file.
type BoltStore struct {
	db   *bolt.DB
	lock *flock.Flock // advisory lock on the bbolt file, exclusivity

	puts atomic.Uint64
	gets atomic.Uint64
}

// OpenBoltStore opens (creating if absent) a shard store file, taking an
// advisory exclusive lock so two processes never write the same shard
// concurrently (no concurrent reader/writer on the same store file).
func OpenBoltStore(path string) (*BoltStore, error) {
	fl := flock.New(path + ".lock")
	locked, err := fl.TryLock()
	if err != nil {
		return nil, errors.Wrapf(err, "osmkv: locking %s", path)
	}
	if !locked {
		return nil, errors.Errorf("osmkv: store %s is already locked by another process", path)
	}

	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		_ = fl.Unlock()
		return nil, errors.Wrapf(err, "osmkv: opening %s", path)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, k := range allKinds {
			if _, err := tx.CreateBucketIfNotExists([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		_ = fl.Unlock()
		return nil, errors.Wrapf(err, "osmkv: initializing buckets in %s", path)
	}

	return &BoltStore{db: db, lock: fl}, nil
}

func (b *BoltStore) Put(kind Kind, id uint64, timestamp int64, blob []byte) error {
	key := EncodeKey(id, timestamp)
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(kind))
		if bucket == nil {
			return errors.Errorf("osmkv: unknown kind %q", kind)
		}
		if existing := bucket.Get(key); existing != nil {
			if bytes.Equal(existing, blob) {
				return nil // idempotent: identical payload for an already-written key
			}
			return &errs.InvariantViolation{
				Invariant: "duplicate-key-differing-payload",
				Detail:    "duplicate (kind,id,timestamp) with differing payload",
			}
		}
		return bucket.Put(key, blob)
	})
	if err != nil {
		var iv *errs.InvariantViolation
		if errors.As(err, &iv) {
			return err
		}
		return &errs.StoreWriteError{Cause: err}
	}
	b.puts.Add(1)
	return nil
}

func (b *BoltStore) GetAsOf(kind Kind, id uint64, ts int64) (Row, bool, error) {
	b.gets.Add(1)
	target := EncodeKey(id, ts)
	prefix := idPrefix(id)

	var row Row
	var found bool
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(kind))
		if bucket == nil {
			return errors.Errorf("osmkv: unknown kind %q", kind)
		}
		c := bucket.Cursor()
		k, v := c.Seek(target)
		switch {
		case k != nil && bytes.Equal(k, target):
			// exact match, v still valid
		case k == nil:
			k, v = c.Last()
		default:
			k, v = c.Prev()
		}
		if k == nil || !bytes.HasPrefix(k, prefix) {
			return nil
		}
		_, rowTS := DecodeKey(k)
		row = Row{Timestamp: rowTS, Blob: append([]byte(nil), v...)}
		found = true
		return nil
	})
	return row, found, err
}

func (b *BoltStore) Commit() error {
	// bbolt's Update already commits per-transaction; an explicit Commit
	// forces a fsync'd checkpoint via Sync so callers relying on the
	// "Commit() on each owned shard" boundary get a durability guarantee,
	// not just a completed Go call.
	if err := b.db.Sync(); err != nil {
		return &errs.StoreWriteError{Cause: err}
	}
	return nil
}

func (b *BoltStore) Close() error {
	err := b.db.Close()
	_ = b.lock.Unlock()
	if err != nil {
		return &errs.StoreWriteError{Cause: err}
	}
	return nil
}

func (b *BoltStore) Stats() Stats {
	stats := Stats{Puts: b.puts.Load(), Gets: b.gets.Load(), KeysByKind: map[Kind]uint64{}}
	_ = b.db.View(func(tx *bolt.Tx) error {
		for _, k := range allKinds {
			bucket := tx.Bucket([]byte(k))
			if bucket == nil {
				continue
			}
			stats.KeysByKind[k] = uint64(bucket.Stats().KeyN)
		}
		return nil
	})
	return stats
}

// Path returns the underlying bbolt file path, for supervisor bookkeeping
// (workers return "shard -> store path").
func (b *BoltStore) Path() string { return b.db.Path() }
