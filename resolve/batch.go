// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.

// Package resolve implements the resolution pass: for each way/relation,
// transitive dependencies as of that version's timestamp are gathered,
// batched, and sent through the external geometry builder.
package resolve

import (
	"os"

	"github.com/c2h5oh/datasize"

	"github.com/osmtemporal/resolver/osmkv"
	"github.com/osmtemporal/resolver/osmstream"
)

// depKey identifies one distinct dependency payload. Two main entities that
// reference the same original ID but resolved it via GetAsOf at different
// T_E can legitimately see different versions in the same batch; keying by
// the row's own effective timestamp, not just the original ID, gives each
// distinct payload its own simplified ID as required.
type depKey struct {
	kind osmkv.Kind
	id   uint64
	ts   int64
}

type mainWayEntry struct {
	simplifiedID int
	original     osmstream.WayVersion
	depNodeIDs   []int // simplified node IDs, membership order preserved
}

// relationMember is one member of a main relation's member list, with its
// original kind and role preserved and its Ref re-keyed to the dependency's
// simplified ID.
type relationMember struct {
	kind osmstream.MemberKind
	ref  int
	role string
}

type mainRelationEntry struct {
	simplifiedID int
	original     osmstream.RelationVersion
	members      []relationMember
}

// Batch holds one flush cycle's pending main entities and their gathered
// dependencies.
type Batch struct {
	mainWays      []mainWayEntry
	mainRelations []mainRelationEntry

	depNodes     map[depKey]int
	depWays      map[depKey]int
	depRelations map[depKey]int

	nodeByID   map[int]osmstream.NodeVersion
	wayByID    map[int]osmstream.WayVersion
	wayNodeIDs map[int][]int // dependency way's simplified ID -> its expanded simplified node IDs

	nextNodeID int
	nextWayID  int

	wayToOriginal      map[int]uint64
	relationToOriginal map[int]uint64

	waysBatchSize      int
	relationsBatchSize int
	byteCap            datasize.ByteSize
	approxBytes        datasize.ByteSize
}

// NewBatch builds an empty Batch with the given flush thresholds, sourced
// from config defaults.
func NewBatch(waysBatchSize, relationsBatchSize int, byteCap datasize.ByteSize) *Batch {
	b := &Batch{
		waysBatchSize:      waysBatchSize,
		relationsBatchSize: relationsBatchSize,
		byteCap:            byteCap,
	}
	b.Reset()
	return b
}

// Reset discards all batch state, reallocating the simplified-ID allocators
// at zero.
func (b *Batch) Reset() {
	b.mainWays = nil
	b.mainRelations = nil
	b.depNodes = map[depKey]int{}
	b.depWays = map[depKey]int{}
	b.depRelations = map[depKey]int{}
	b.nodeByID = map[int]osmstream.NodeVersion{}
	b.wayByID = map[int]osmstream.WayVersion{}
	b.wayNodeIDs = map[int][]int{}
	b.nextNodeID = 0
	b.nextWayID = 0
	b.wayToOriginal = map[int]uint64{}
	b.relationToOriginal = map[int]uint64{}
	b.approxBytes = 0
}

// internNode assigns (or reuses) a simplified ID for a dependency node
// version, deduped per depKey so a duplicate dependency ID is stored once
// per kind.
func (b *Batch) internNode(n osmstream.NodeVersion) int {
	key := depKey{kind: osmkv.Node, id: n.ID, ts: n.Timestamp}
	if id, ok := b.depNodes[key]; ok {
		return id
	}
	id := b.nextNodeID
	b.nextNodeID++
	b.depNodes[key] = id
	b.nodeByID[id] = n
	b.approxBytes += datasize.ByteSize(64 + 16*len(n.Tags))
	return id
}

// internWay assigns a simplified ID for a dependency way (used only by
// relation member expansion, one level deep), and records its expanded
// simplified node IDs so the builder can resolve the way's geometry by
// intra-file reference.
func (b *Batch) internWay(w osmstream.WayVersion, expandedNodeIDs []int) int {
	key := depKey{kind: osmkv.Way, id: w.ID, ts: w.Timestamp}
	if id, ok := b.depWays[key]; ok {
		return id
	}
	id := b.nextWayID
	b.nextWayID++
	b.depWays[key] = id
	b.wayByID[id] = w
	b.wayNodeIDs[id] = expandedNodeIDs
	b.approxBytes += datasize.ByteSize(64 + 8*len(w.NodeIDs))
	return id
}

// AddMainWay enqueues a way for geometry building along with its already
// resolved dependency nodes, returning the way's simplified ID (also used
// as its GetTargetSimplifiedIds entry). Main ways draw from the same
// nextWayID allocator as dependency ways, since a batch can legitimately
// hold both at once (a residual main way still pending flush, or a
// relation that depends on a way which is itself a main entity) and the
// two would otherwise collide at the same simplified ID.
func (b *Batch) AddMainWay(way osmstream.WayVersion, depNodes []osmstream.NodeVersion) int {
	simplified := b.nextWayID
	b.nextWayID++
	depIDs := make([]int, 0, len(depNodes))
	for _, n := range depNodes {
		depIDs = append(depIDs, b.internNode(n))
	}
	b.wayToOriginal[simplified] = way.ID
	b.mainWays = append(b.mainWays, mainWayEntry{simplifiedID: simplified, original: way, depNodeIDs: depIDs})
	b.approxBytes += datasize.ByteSize(64 + 8*len(way.NodeIDs))
	return simplified
}

// AddMainRelation enqueues a relation along with its resolved node and way
// dependencies; depWayNodes supplies each dependency way's own expanded
// node set, one level deep. The relation's original member list is walked
// in order to build the member list the builder receives, preserving each
// member's role and position and re-keying its Ref to the dependency's
// simplified ID, instead of flattening the dependency sets into an
// unordered, role-less member list.
func (b *Batch) AddMainRelation(rel osmstream.RelationVersion, depNodes []osmstream.NodeVersion, depWays []osmstream.WayVersion, depWayNodes map[uint64][]osmstream.NodeVersion) int {
	simplified := len(b.mainRelations)

	nodeSimplified := make(map[uint64]int, len(depNodes))
	for _, n := range depNodes {
		nodeSimplified[n.ID] = b.internNode(n)
	}
	waySimplified := make(map[uint64]int, len(depWays))
	for _, w := range depWays {
		nodes := depWayNodes[w.ID]
		expanded := make([]int, 0, len(nodes))
		for _, n := range nodes {
			expanded = append(expanded, b.internNode(n))
		}
		waySimplified[w.ID] = b.internWay(w, expanded)
	}

	members := make([]relationMember, 0, len(rel.Members))
	for _, m := range rel.Members {
		switch m.Kind {
		case osmstream.MemberNode:
			if id, ok := nodeSimplified[m.ID]; ok {
				members = append(members, relationMember{kind: osmstream.MemberNode, ref: id, role: m.Role})
			}
		case osmstream.MemberWay:
			if id, ok := waySimplified[m.ID]; ok {
				members = append(members, relationMember{kind: osmstream.MemberWay, ref: id, role: m.Role})
			}
		case osmstream.MemberRelation:
			// Relation members trigger geometry building (HasRelationMember)
			// but, absent recursive expansion, have no entity written to
			// the batch's OSM file and so cannot be emitted as a member
			// reference here.
		}
	}

	b.relationToOriginal[simplified] = rel.ID
	b.mainRelations = append(b.mainRelations, mainRelationEntry{
		simplifiedID: simplified,
		original:     rel,
		members:      members,
	})
	b.approxBytes += datasize.ByteSize(128 + 16*len(rel.Members))
	return simplified
}

// IsFull reports whether the batch should flush: either kind's main-entity
// count has reached its configured threshold, the byte/record cap is
// exceeded, or the caller signals end-of-stream.
func (b *Batch) IsFull(endOfStream bool) bool {
	if endOfStream {
		return len(b.mainWays) > 0 || len(b.mainRelations) > 0
	}
	if b.waysBatchSize > 0 && len(b.mainWays) >= b.waysBatchSize {
		return true
	}
	if b.relationsBatchSize > 0 && len(b.mainRelations) >= b.relationsBatchSize {
		return true
	}
	if b.byteCap > 0 && b.approxBytes >= b.byteCap {
		return true
	}
	return false
}

// Empty reports whether the batch currently holds no main entities.
func (b *Batch) Empty() bool {
	return len(b.mainWays) == 0 && len(b.mainRelations) == 0
}

// GetTargetSimplifiedIds returns the simplified IDs of pending main entities
// of the given kind, instructing the builder which geometries to emit.
func (b *Batch) GetTargetSimplifiedIds(kind osmkv.Kind) []int {
	switch kind {
	case osmkv.Way:
		ids := make([]int, len(b.mainWays))
		for i, e := range b.mainWays {
			ids[i] = e.simplifiedID
		}
		return ids
	case osmkv.Relation:
		ids := make([]int, len(b.mainRelations))
		for i, e := range b.mainRelations {
			ids[i] = e.simplifiedID
		}
		return ids
	default:
		return nil
	}
}

// WriteSortedOsmFile writes the batch's ways, then nodes, then relations
// (dependencies under their simplified IDs, main entities under theirs) into
// a self-contained OSM XML file the external builder can resolve purely by
// intra-file reference.
func (b *Batch) WriteSortedOsmFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return writeOsmXML(f, b)
}

// Restore maps each main entity's simplified ID back to its original ID,
// attaches the resolved geometry (nil if the builder produced none; a way
// with zero valid nodes is still emitted, with null geometry rather than
// being dropped), and passes
// the assembled record to emitFn.
func (b *Batch) Restore(wayGeometry, relationGeometry map[int]string, emitFn func(ResolvedWay, ResolvedRelation, bool)) {
	for _, e := range b.mainWays {
		geom, ok := wayGeometry[e.simplifiedID]
		var gp *string
		if ok {
			gp = &geom
		}
		emitFn(ResolvedWay{Version: e.original, Geometry: gp}, ResolvedRelation{}, true)
	}
	for _, e := range b.mainRelations {
		geom, ok := relationGeometry[e.simplifiedID]
		var gp *string
		if ok {
			gp = &geom
		}
		emitFn(ResolvedWay{}, ResolvedRelation{Version: e.original, Geometry: gp}, false)
	}
}

// ResolvedWay pairs a way version with its (possibly nil) built geometry.
type ResolvedWay struct {
	Version  osmstream.WayVersion
	Geometry *string
}

// ResolvedRelation pairs a relation version with its (possibly nil) built
// geometry.
type ResolvedRelation struct {
	Version  osmstream.RelationVersion
	Geometry *string
}
