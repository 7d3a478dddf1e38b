// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.

package osmkv

import "context"

// Row is one (kind,id,timestamp) -> blob record as returned by GetAsOf.
type Row struct {
	Timestamp int64
	Blob      []byte
}

// Stats reports point-in-time counters for one store (shard or merged).
type Stats struct {
	Puts       uint64
	Gets       uint64
	KeysByKind map[Kind]uint64
}

// Store is the versioned index store contract. One Store
// instance owns exactly one file on disk (one shard, or the merged store);
// it is written by exactly one process at a time.
type Store interface {
	// Put is idempotent on an equal (kind,id,timestamp) key: writing
	// the same key twice with the same blob is a no-op; writing it with a
	// different blob returns an InvariantViolation from Put itself.
	Put(kind Kind, id uint64, timestamp int64, blob []byte) error

	// GetAsOf returns the row with the greatest timestamp <= ts for
	// (kind,id), or ok=false if no such row exists. It never returns
	// a row with a greater timestamp than ts.
	GetAsOf(kind Kind, id uint64, ts int64) (row Row, ok bool, err error)

	// Commit durably flushes buffered writes. Called at worker commit
	// boundaries during indexing and at worker exit.
	Commit() error

	// Close flushes and releases resources. Idempotent.
	Close() error

	// Stats reports current counters.
	Stats() Stats
}

// Merger folds N source shard stores into one destination store, used by
// the optional post-index merge step, preserving the rule that a duplicate
// (kind,id,timestamp) key appearing in two sources with differing blobs is
// an InvariantViolation.
type Merger interface {
	Merge(ctx context.Context, dst Store, srcs []Store) error
}
