// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.

package resolve

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/osmtemporal/resolver/internal/logging"
	"github.com/osmtemporal/resolver/osmkv"
	"github.com/osmtemporal/resolver/osmstream"
)

// memStore is a minimal in-memory osmkv.Getter for resolver tests, storing
// every version and doing a linear floor scan - adequate for small fixtures.
type memStore struct {
	rows map[osmkv.Kind]map[uint64][]osmkv.Row
}

func newMemStore() *memStore {
	return &memStore{rows: map[osmkv.Kind]map[uint64][]osmkv.Row{}}
}

func (m *memStore) put(kind osmkv.Kind, id uint64, ts int64, blob []byte) {
	if m.rows[kind] == nil {
		m.rows[kind] = map[uint64][]osmkv.Row{}
	}
	m.rows[kind][id] = append(m.rows[kind][id], osmkv.Row{Timestamp: ts, Blob: blob})
}

func (m *memStore) GetAsOf(kind osmkv.Kind, id uint64, ts int64) (osmkv.Row, bool, error) {
	var best osmkv.Row
	found := false
	for _, row := range m.rows[kind][id] {
		if row.Timestamp <= ts && (!found || row.Timestamp > best.Timestamp) {
			best = row
			found = true
		}
	}
	return best, found, nil
}

func putNode(t *testing.T, m *memStore, n osmstream.NodeVersion) {
	t.Helper()
	var c osmkv.Codec
	blob, err := c.EncodeNode(n)
	require.NoError(t, err)
	m.put(osmkv.Node, n.ID, n.Timestamp, blob)
}

func putWay(t *testing.T, m *memStore, w osmstream.WayVersion) {
	t.Helper()
	var c osmkv.Codec
	blob, err := c.EncodeWay(w)
	require.NoError(t, err)
	m.put(osmkv.Way, w.ID, w.Timestamp, blob)
}

func newResolverWithStore(t *testing.T, m *memStore) *Resolver {
	t.Helper()
	reader, err := NewDependencyReader(m, 100)
	require.NoError(t, err)
	return NewResolver(reader, false, logging.Nop())
}

func TestResolveWaySkipsDeletedNode(t *testing.T) {
	m := newMemStore()
	putNode(t, m, osmstream.NodeVersion{Meta: osmstream.Meta{ID: 1, Timestamp: 10, Visible: true}, Lon: 0, Lat: 0, HasLocation: true})
	putNode(t, m, osmstream.NodeVersion{Meta: osmstream.Meta{ID: 1, Timestamp: 15, Visible: false}})
	putNode(t, m, osmstream.NodeVersion{Meta: osmstream.Meta{ID: 2, Timestamp: 10, Visible: true}, Lon: 1, Lat: 0, HasLocation: true})

	r := newResolverWithStore(t, m)
	way := osmstream.WayVersion{Meta: osmstream.Meta{ID: 9, Timestamp: 20}, NodeIDs: []uint64{1, 2}}
	deps := r.ResolveWay(way)

	require.Len(t, deps, 1, "the deleted node is excluded, the second node remains")
	require.Equal(t, uint64(2), deps[0].ID)
}

func TestResolveWayPreservesMembershipOrder(t *testing.T) {
	m := newMemStore()
	putNode(t, m, osmstream.NodeVersion{Meta: osmstream.Meta{ID: 1, Timestamp: 10, Visible: true}, Lon: 0, Lat: 0, HasLocation: true})
	putNode(t, m, osmstream.NodeVersion{Meta: osmstream.Meta{ID: 2, Timestamp: 10, Visible: true}, Lon: 1, Lat: 0, HasLocation: true})

	r := newResolverWithStore(t, m)
	way := osmstream.WayVersion{Meta: osmstream.Meta{ID: 9, Timestamp: 20}, NodeIDs: []uint64{2, 1}}
	deps := r.ResolveWay(way)
	require.Equal(t, []uint64{2, 1}, []uint64{deps[0].ID, deps[1].ID})
}

func TestResolveRelationExpandsWayMemberNodesOneLevel(t *testing.T) {
	m := newMemStore()
	putNode(t, m, osmstream.NodeVersion{Meta: osmstream.Meta{ID: 1, Timestamp: 10, Visible: true}, Lon: 0, Lat: 0, HasLocation: true})
	putNode(t, m, osmstream.NodeVersion{Meta: osmstream.Meta{ID: 2, Timestamp: 10, Visible: true}, Lon: 1, Lat: 0, HasLocation: true})
	putWay(t, m, osmstream.WayVersion{Meta: osmstream.Meta{ID: 9, Timestamp: 20}, NodeIDs: []uint64{1, 2}})

	r := newResolverWithStore(t, m)
	rel := osmstream.RelationVersion{
		Meta:    osmstream.Meta{ID: 100, Timestamp: 25},
		Members: []osmstream.Member{{Kind: osmstream.MemberWay, ID: 9, Role: "outer"}},
	}
	deps := r.ResolveRelation(rel)

	require.Len(t, deps.Ways, 1)
	require.Len(t, deps.Nodes, 2, "the way's member nodes are expanded one level")
	require.False(t, deps.HasRelationMember)
}

func TestResolveRelationDoesNotRecurseIntoRelationMembersByDefault(t *testing.T) {
	r := newResolverWithStore(t, newMemStore())
	rel := osmstream.RelationVersion{
		Meta:    osmstream.Meta{ID: 200, Timestamp: 30},
		Members: []osmstream.Member{{Kind: osmstream.MemberRelation, ID: 100, Role: "sub"}},
	}
	deps := r.ResolveRelation(rel)
	require.True(t, deps.HasRelationMember)
	require.Empty(t, deps.Nodes)
	require.Empty(t, deps.Ways)
}

func TestResolveRelationRecursesWhenOptedIn(t *testing.T) {
	m := newMemStore()
	var c osmkv.Codec
	child := osmstream.RelationVersion{
		Meta:    osmstream.Meta{ID: 100, Timestamp: 25},
		Members: []osmstream.Member{{Kind: osmstream.MemberNode, ID: 1, Role: ""}},
	}
	blob, err := c.EncodeRelation(child)
	require.NoError(t, err)
	m.put(osmkv.Relation, 100, 25, blob)
	putNode(t, m, osmstream.NodeVersion{Meta: osmstream.Meta{ID: 1, Timestamp: 10, Visible: true}, Lon: 0, Lat: 0, HasLocation: true})

	reader, err := NewDependencyReader(m, 100)
	require.NoError(t, err)
	r := NewResolver(reader, true, logging.Nop())

	rel := osmstream.RelationVersion{
		Meta:    osmstream.Meta{ID: 200, Timestamp: 30},
		Members: []osmstream.Member{{Kind: osmstream.MemberRelation, ID: 100, Role: "sub"}},
	}
	deps := r.ResolveRelation(rel)
	require.Len(t, deps.Nodes, 1, "recursive mode folds the sub-relation's own node member in")
}
