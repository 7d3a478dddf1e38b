// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.

package osmstream

import "context"

// Visitor receives versioned records from a Reader in source order. A real
// PBF/XML parser implementation lives outside this module's scope; it only
// needs to satisfy this interface. This models a visitor over a lazy
// sequence: no event loop is required, and a single-threaded caller can
// simply call Read in a loop.
type Visitor interface {
	VisitNode(NodeVersion) error
	VisitWay(WayVersion) error
	VisitRelation(RelationVersion) error
}

// VisitorFunc adapts three plain functions into a Visitor, for callers that
// only care about a subset of kinds.
type VisitorFunc struct {
	Node     func(NodeVersion) error
	Way      func(WayVersion) error
	Relation func(RelationVersion) error
}

func (v VisitorFunc) VisitNode(n NodeVersion) error {
	if v.Node == nil {
		return nil
	}
	return v.Node(n)
}
func (v VisitorFunc) VisitWay(w WayVersion) error {
	if v.Way == nil {
		return nil
	}
	return v.Way(w)
}
func (v VisitorFunc) VisitRelation(r RelationVersion) error {
	if v.Relation == nil {
		return nil
	}
	return v.Relation(r)
}

// Reader iterates every versioned record of a source extract exactly once,
// in source order, dispatching to the given Visitor. Implementations may
// be backed by a PBF decoder, an XML decoder, or (for tests) an in-memory
// slice; the core never depends on which.
//
// Read must be safe to call repeatedly from independent Reader instances in
// parallel: each worker reads the whole file, it is not a range split. A
// single Reader value is not required to be safe for concurrent Read calls
// on itself.
type Reader interface {
	Read(ctx context.Context, v Visitor) error
}

// Slice is an in-memory Reader over pre-decoded records, used by tests and
// by any caller that already has the full history materialized. It stands
// in for the external stream reader collaborator.
type Slice struct {
	Nodes     []NodeVersion
	Ways      []WayVersion
	Relations []RelationVersion
}

// Read replays Nodes, then Ways, then Relations. Callers that need strict
// interleaved source order should pre-merge into a single ordered slice and
// wrap it with a custom Reader instead; Slice is a convenience for tests
// where kind-relative order is all that matters.
func (s Slice) Read(ctx context.Context, v Visitor) error {
	for _, n := range s.Nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := v.VisitNode(n); err != nil {
			return err
		}
	}
	for _, w := range s.Ways {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := v.VisitWay(w); err != nil {
			return err
		}
	}
	for _, r := range s.Relations {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := v.VisitRelation(r); err != nil {
			return err
		}
	}
	return nil
}
