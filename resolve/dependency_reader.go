// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.

package resolve

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/osmtemporal/resolver/osmkv"
	"github.com/osmtemporal/resolver/osmstream"
)

// DependencyReader answers "give me the version of entity X as of a given
// point in logical time" against an underlying versioned store, caching
// recent lookups since the same dependency is typically re-requested by
// many sibling main entities in a batch.
type DependencyReader struct {
	store osmkv.Getter
	codec osmkv.Codec

	nodes     *lru.Cache[depKey, *osmstream.NodeVersion]
	ways      *lru.Cache[depKey, *osmstream.WayVersion]
	relations *lru.Cache[depKey, *osmstream.RelationVersion]
}

// NewDependencyReader wraps store with a bounded LRU cache of cacheSize
// entries per kind.
func NewDependencyReader(store osmkv.Getter, cacheSize int) (*DependencyReader, error) {
	nodes, err := lru.New[depKey, *osmstream.NodeVersion](cacheSize)
	if err != nil {
		return nil, err
	}
	ways, err := lru.New[depKey, *osmstream.WayVersion](cacheSize)
	if err != nil {
		return nil, err
	}
	relations, err := lru.New[depKey, *osmstream.RelationVersion](cacheSize)
	if err != nil {
		return nil, err
	}
	return &DependencyReader{store: store, nodes: nodes, ways: ways, relations: relations}, nil
}

// GetNodeAsOf returns the node version with the greatest timestamp <= ts,
// including only results that carry a valid location: a deleted or
// location-less version is treated the same as a missing dependency,
// ok=false, rather than surfaced to the caller.
func (r *DependencyReader) GetNodeAsOf(id uint64, ts int64) (osmstream.NodeVersion, bool, error) {
	key := depKey{kind: osmkv.Node, id: id, ts: ts}
	if cached, ok := r.nodes.Get(key); ok {
		if cached == nil {
			return osmstream.NodeVersion{}, false, nil
		}
		return *cached, true, nil
	}

	row, ok, err := r.store.GetAsOf(osmkv.Node, id, ts)
	if err != nil {
		return osmstream.NodeVersion{}, false, err
	}
	if !ok {
		r.nodes.Add(key, nil)
		return osmstream.NodeVersion{}, false, nil
	}
	node, err := r.codec.DecodeNode(row.Blob)
	if err != nil {
		return osmstream.NodeVersion{}, false, err
	}
	if !node.Visible || !node.HasLocation {
		r.nodes.Add(key, nil)
		return osmstream.NodeVersion{}, false, nil
	}
	r.nodes.Add(key, &node)
	return node, true, nil
}

// GetWayAsOf returns the way version with the greatest timestamp <= ts.
// Unlike nodes, no visibility filter applies at this layer; a deleted way
// is still a valid dependency record for member expansion purposes.
func (r *DependencyReader) GetWayAsOf(id uint64, ts int64) (osmstream.WayVersion, bool, error) {
	key := depKey{kind: osmkv.Way, id: id, ts: ts}
	if cached, ok := r.ways.Get(key); ok {
		if cached == nil {
			return osmstream.WayVersion{}, false, nil
		}
		return *cached, true, nil
	}

	row, ok, err := r.store.GetAsOf(osmkv.Way, id, ts)
	if err != nil {
		return osmstream.WayVersion{}, false, err
	}
	if !ok {
		r.ways.Add(key, nil)
		return osmstream.WayVersion{}, false, nil
	}
	way, err := r.codec.DecodeWay(row.Blob)
	if err != nil {
		return osmstream.WayVersion{}, false, err
	}
	r.ways.Add(key, &way)
	return way, true, nil
}

// GetRelationAsOf returns the relation version with the greatest timestamp
// <= ts, used only by the opt-in recursive-relations expansion.
func (r *DependencyReader) GetRelationAsOf(id uint64, ts int64) (osmstream.RelationVersion, bool, error) {
	key := depKey{kind: osmkv.Relation, id: id, ts: ts}
	if cached, ok := r.relations.Get(key); ok {
		if cached == nil {
			return osmstream.RelationVersion{}, false, nil
		}
		return *cached, true, nil
	}

	row, ok, err := r.store.GetAsOf(osmkv.Relation, id, ts)
	if err != nil {
		return osmstream.RelationVersion{}, false, err
	}
	if !ok {
		r.relations.Add(key, nil)
		return osmstream.RelationVersion{}, false, nil
	}
	rel, err := r.codec.DecodeRelation(row.Blob)
	if err != nil {
		return osmstream.RelationVersion{}, false, err
	}
	r.relations.Add(key, &rel)
	return rel, true, nil
}
