// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.

package resolve

import (
	"github.com/osmtemporal/resolver/internal/logging"
	"github.com/osmtemporal/resolver/osmstream"
)

// Resolver gathers a way's or relation's transitive dependencies as of that
// version's timestamp.
type Resolver struct {
	reader             *DependencyReader
	recursiveRelations bool
	log                logging.Logger
}

// NewResolver builds a Resolver. recursiveRelations opts into expanding
// relation-of-relation members; it defaults to off, preserving the legacy
// non-recursive behavior.
func NewResolver(reader *DependencyReader, recursiveRelations bool, log logging.Logger) *Resolver {
	return &Resolver{reader: reader, recursiveRelations: recursiveRelations, log: log}
}

// ResolveWay fetches the node dependencies of a way version, in membership
// order, skipping any member whose node is missing or has no valid
// location.
func (r *Resolver) ResolveWay(w osmstream.WayVersion) []osmstream.NodeVersion {
	out := make([]osmstream.NodeVersion, 0, len(w.NodeIDs))
	for _, nid := range w.NodeIDs {
		n, ok, err := r.reader.GetNodeAsOf(nid, w.Timestamp)
		if err != nil {
			r.log.Warn("dependency lookup failed", logging.Uint64("node_id", nid), logging.Err(err))
			continue
		}
		if !ok {
			continue
		}
		out = append(out, n)
	}
	return out
}

// RelationDeps is the gathered dependency set of one relation version.
type RelationDeps struct {
	Nodes           []osmstream.NodeVersion
	Ways            []osmstream.WayVersion
	WayNodes        map[uint64][]osmstream.NodeVersion // way original ID -> its expanded nodes
	HasRelationMember bool
}

// ResolveRelation walks a relation version's members: node members
// are fetched directly; way members are fetched and their own node list is
// expanded one level; relation members are, by default, only counted (legacy
// filter), unless recursiveRelations is set, in which case their own members
// are folded in too, guarded by a (id,timestamp) visited set to bound cycles.
func (r *Resolver) ResolveRelation(rel osmstream.RelationVersion) RelationDeps {
	deps := RelationDeps{WayNodes: map[uint64][]osmstream.NodeVersion{}}
	seenNode := map[uint64]bool{}
	seenWay := map[uint64]bool{}
	visited := map[visitKey]bool{{id: rel.ID, ts: rel.Timestamp}: true}

	r.walkRelationMembers(rel.Members, rel.Timestamp, &deps, seenNode, seenWay, visited, 0)
	return deps
}

type visitKey struct {
	id uint64
	ts int64
}

func (r *Resolver) walkRelationMembers(members []osmstream.Member, ts int64, deps *RelationDeps, seenNode, seenWay map[uint64]bool, visited map[visitKey]bool, depth int) {
	for _, m := range members {
		switch m.Kind {
		case osmstream.MemberNode:
			if seenNode[m.ID] {
				continue
			}
			n, ok, err := r.reader.GetNodeAsOf(m.ID, ts)
			if err != nil {
				r.log.Warn("dependency lookup failed", logging.Uint64("node_id", m.ID), logging.Err(err))
				continue
			}
			if !ok {
				continue
			}
			seenNode[m.ID] = true
			deps.Nodes = append(deps.Nodes, n)

		case osmstream.MemberWay:
			if seenWay[m.ID] {
				continue
			}
			w, ok, err := r.reader.GetWayAsOf(m.ID, ts)
			if err != nil {
				r.log.Warn("dependency lookup failed", logging.Uint64("way_id", m.ID), logging.Err(err))
				continue
			}
			if !ok {
				continue
			}
			seenWay[m.ID] = true
			deps.Ways = append(deps.Ways, w)
			expanded := make([]osmstream.NodeVersion, 0, len(w.NodeIDs))
			for _, nid := range w.NodeIDs {
				n, ok, err := r.reader.GetNodeAsOf(nid, ts)
				if err != nil || !ok {
					continue
				}
				expanded = append(expanded, n)
				if !seenNode[nid] {
					seenNode[nid] = true
					deps.Nodes = append(deps.Nodes, n)
				}
			}
			deps.WayNodes[w.ID] = expanded

		case osmstream.MemberRelation:
			deps.HasRelationMember = true
			if !r.recursiveRelations {
				continue
			}
			key := visitKey{id: m.ID, ts: ts}
			if visited[key] {
				continue
			}
			visited[key] = true
			child, ok, err := r.reader.GetRelationAsOf(m.ID, ts)
			if err != nil || !ok {
				continue
			}
			r.walkRelationMembers(child.Members, ts, deps, seenNode, seenWay, visited, depth+1)
		}
	}
}
