// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.

package resolve

import (
	"encoding/xml"
	"io"

	"github.com/osmtemporal/resolver/osmstream"
)

// The external geometry builder consumes a standard OSM XML document; no
// example repo in this corpus carries an OSM file writer, so this stays on
// encoding/xml rather than a third-party dependency (documented in the
// grounding ledger).

type xmlTag struct {
	K string `xml:"k,attr"`
	V string `xml:"v,attr"`
}

type xmlNode struct {
	ID  int      `xml:"id,attr"`
	Lat *float64 `xml:"lat,attr,omitempty"`
	Lon *float64 `xml:"lon,attr,omitempty"`
	Tag []xmlTag `xml:"tag"`
}

type xmlNd struct {
	Ref int `xml:"ref,attr"`
}

type xmlWay struct {
	ID  int      `xml:"id,attr"`
	Nd  []xmlNd  `xml:"nd"`
	Tag []xmlTag `xml:"tag"`
}

type xmlMember struct {
	Type string `xml:"type,attr"`
	Ref  int    `xml:"ref,attr"`
	Role string `xml:"role,attr"`
}

type xmlRelation struct {
	ID     int         `xml:"id,attr"`
	Member []xmlMember `xml:"member"`
	Tag    []xmlTag    `xml:"tag"`
}

type xmlOsm struct {
	XMLName  xml.Name      `xml:"osm"`
	Version  string        `xml:"version,attr"`
	Way      []xmlWay      `xml:"way"`
	Node     []xmlNode     `xml:"node"`
	Relation []xmlRelation `xml:"relation"`
}

func tagsToXML(tags []osmstream.Tag) []xmlTag {
	out := make([]xmlTag, 0, len(tags))
	for _, t := range tags {
		out = append(out, xmlTag{K: t.Key, V: t.Value})
	}
	return out
}

// writeOsmXML renders ways first, then nodes, then relations, in that
// explicit order, using simplified IDs throughout.
func writeOsmXML(w io.Writer, b *Batch) error {
	doc := xmlOsm{Version: "0.6"}

	for id, way := range b.wayByID {
		simplifiedNodeIDs := b.wayNodeIDs[id]
		nds := make([]xmlNd, 0, len(simplifiedNodeIDs))
		for _, nid := range simplifiedNodeIDs {
			nds = append(nds, xmlNd{Ref: nid})
		}
		doc.Way = append(doc.Way, xmlWay{ID: id, Nd: nds, Tag: tagsToXML(way.Meta.Tags)})
	}
	for _, e := range b.mainWays {
		nds := make([]xmlNd, 0, len(e.depNodeIDs))
		for _, nid := range e.depNodeIDs {
			nds = append(nds, xmlNd{Ref: nid})
		}
		doc.Way = append(doc.Way, xmlWay{ID: e.simplifiedID, Nd: nds, Tag: tagsToXML(e.original.Meta.Tags)})
	}

	for id, node := range b.nodeByID {
		doc.Node = append(doc.Node, nodeXML(id, node))
	}

	for _, e := range b.mainRelations {
		members := make([]xmlMember, 0, len(e.members))
		for _, m := range e.members {
			members = append(members, xmlMember{Type: string(m.kind), Ref: m.ref, Role: m.role})
		}
		doc.Relation = append(doc.Relation, xmlRelation{ID: e.simplifiedID, Member: members, Tag: tagsToXML(e.original.Meta.Tags)})
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	return enc.Encode(doc)
}

func nodeXML(id int, n osmstream.NodeVersion) xmlNode {
	out := xmlNode{ID: id, Tag: tagsToXML(n.Tags)}
	if n.HasLocation {
		lat, lon := n.Lat, n.Lon
		out.Lat = &lat
		out.Lon = &lon
	}
	return out
}
