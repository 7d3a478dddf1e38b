// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.

package osmkv

import "github.com/pkg/errors"

// Getter is the read-only slice of Store the resolution pass needs; it lets
// FederatedStore satisfy dependency lookups without pretending to support
// writes.
type Getter interface {
	GetAsOf(kind Kind, id uint64, ts int64) (Row, bool, error)
}

// FederatedStore answers GetAsOf against a set of per-shard stores without
// requiring a prior merge step: it routes each lookup to the one shard that
// could own the id, using the same Router the indexing pass used, since
// the shard function is shared by both passes. This lets the resolution
// pass run directly off indexer output when --merge_shards=false.
type FederatedStore struct {
	router *Router
	shards map[int]Getter
}

// NewFederatedStore builds a FederatedStore over already-open shard stores,
// keyed by shard index.
func NewFederatedStore(router *Router, shards map[int]Getter) *FederatedStore {
	return &FederatedStore{router: router, shards: shards}
}

func (f *FederatedStore) GetAsOf(kind Kind, id uint64, ts int64) (Row, bool, error) {
	shard := f.router.Shard(id)
	store, ok := f.shards[shard]
	if !ok {
		return Row{}, false, errors.Errorf("osmkv: no store open for shard %d (id=%d)", shard, id)
	}
	return store.GetAsOf(kind, id, ts)
}
