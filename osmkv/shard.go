// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.

package osmkv

import (
	"hash/fnv"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"
)

// Mode selects how Router maps an id to a shard slot.
type Mode int

const (
	// HashMode is stable across processes and runs, independent of
	// ingestion order. Required whenever more than one worker indexes in
	// parallel.
	HashMode Mode = iota
	// CounterMode assigns shards round-robin in arrival order. Only
	// deterministic with a single indexer worker.
	CounterMode
)

// Router maps an id to a shard slot. In HashMode the mapping depends on the
// id alone, so the indexing and resolution passes agree on placement.
type Router struct {
	mode    Mode
	shards  int
	counter uint64 // CounterMode only; advanced atomically
}

// NewRouter builds a Router. numShards must be positive.
func NewRouter(mode Mode, numShards int) *Router {
	if numShards <= 0 {
		panic("osmkv: numShards must be positive")
	}
	return &Router{mode: mode, shards: numShards}
}

// Shard computes the destination shard slot for id. In CounterMode this
// advances a shared atomic counter, so it is NOT a pure function of id
// alone and must only be called from a single-threaded assigner; HashMode
// is pure and safe from any number of goroutines.
func (r *Router) Shard(id uint64) int {
	switch r.mode {
	case CounterMode:
		n := atomic.AddUint64(&r.counter, 1) - 1
		return int(n % uint64(r.shards))
	default:
		return int(stableHash(id) % uint64(r.shards))
	}
}

func stableHash(id uint64) uint64 {
	h := fnv.New64a()
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(id >> (8 * i))
	}
	h.Write(b[:])
	return h.Sum64()
}

// OwnedShards is the compact set of shard slots [start,end) a single
// indexer worker owns, backed by a roaring bitmap so membership tests are
// cheap even for large shard fanouts.
type OwnedShards struct {
	bitmap *roaring.Bitmap
}

// NewOwnedShards builds the owned-shard set for the contiguous range
// [start, end).
func NewOwnedShards(start, end int) OwnedShards {
	bm := roaring.New()
	for s := start; s < end; s++ {
		bm.Add(uint32(s))
	}
	return OwnedShards{bitmap: bm}
}

// Owns reports whether shard is in this worker's owned set.
func (o OwnedShards) Owns(shard int) bool {
	return o.bitmap.Contains(uint32(shard))
}

// Slots returns the owned shard indices in ascending order.
func (o OwnedShards) Slots() []int {
	out := make([]int, 0, o.bitmap.GetCardinality())
	it := o.bitmap.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return out
}
