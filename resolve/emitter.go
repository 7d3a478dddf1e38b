// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.

package resolve

import (
	"io"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"

	"github.com/osmtemporal/resolver/osmstream"
)

// jsonTag mirrors the {key,value} record shape of the output schema.
type jsonTag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type jsonMember struct {
	Type string `json:"type"`
	ID   uint64 `json:"id"`
	Role string `json:"role"`
}

type nodeRecord struct {
	ID        uint64            `json:"id"`
	Version   uint32            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Tags      []jsonTag         `json:"tags"`
	AllTags   map[string]string `json:"all_tags"`
	Geometry  *string           `json:"geometry"`
	Visible   bool              `json:"visible"`
	User      string            `json:"user"`
	UID       int64             `json:"uid"`
	Changeset int64             `json:"changeset"`
}

type wayRecord struct {
	nodeRecord
	Nodes []uint64 `json:"nodes"`
}

type relationRecord struct {
	nodeRecord
	Members []jsonMember `json:"members"`
}

func metaFields(m osmstream.Meta, geom *string) nodeRecord {
	tags := make([]jsonTag, 0, len(m.Tags))
	for _, t := range m.Tags {
		tags = append(tags, jsonTag{Key: t.Key, Value: t.Value})
	}
	return nodeRecord{
		ID:        m.ID,
		Version:   m.Version,
		Timestamp: time.Unix(m.Timestamp, 0).UTC().Format(time.RFC3339),
		Tags:      tags,
		AllTags:   m.AllTags(),
		Geometry:  geom,
		Visible:   m.Visible,
		User:      m.User,
		UID:       m.UID,
		Changeset: m.Changeset,
	}
}

// Emitter writes the three JSON-lines output files. Nodes are emitted
// directly from the index-reading stream; ways and relations are emitted
// only once the batch flush resolves their geometry.
type Emitter struct {
	nodes, ways, relations io.WriteCloser
	enc                    struct{ nodes, ways, relations *json.Encoder }
}

// NewEmitter opens nodes.jsonl, ways.jsonl, relations.jsonl under dir.
func NewEmitter(dir string) (*Emitter, error) {
	return NewEmitterFs(afero.NewOsFs(), dir)
}

// NewEmitterFs is NewEmitter against an injected afero.Fs, so tests can
// swap in an in-memory filesystem instead of touching disk.
func NewEmitterFs(fs afero.Fs, dir string) (*Emitter, error) {
	nodes, err := fs.Create(filepath.Join(dir, "nodes.jsonl"))
	if err != nil {
		return nil, err
	}
	ways, err := fs.Create(filepath.Join(dir, "ways.jsonl"))
	if err != nil {
		nodes.Close()
		return nil, err
	}
	relations, err := fs.Create(filepath.Join(dir, "relations.jsonl"))
	if err != nil {
		nodes.Close()
		ways.Close()
		return nil, err
	}
	e := &Emitter{nodes: nodes, ways: ways, relations: relations}
	e.enc.nodes = json.NewEncoder(nodes)
	e.enc.ways = json.NewEncoder(ways)
	e.enc.relations = json.NewEncoder(relations)
	return e, nil
}

// EmitNode writes one node line; geometry is a GeoJSON Point string if the
// node carries a valid location, else null.
func (e *Emitter) EmitNode(n osmstream.NodeVersion) error {
	var geom *string
	if n.HasLocation && n.Visible {
		s := pointGeoJSON(n.Lon, n.Lat)
		geom = &s
	}
	return e.enc.nodes.Encode(metaFields(n.Meta, geom))
}

// EmitWay writes one way line with its built geometry (nil if none).
func (e *Emitter) EmitWay(w osmstream.WayVersion, geometry *string) error {
	return e.enc.ways.Encode(wayRecord{
		nodeRecord: metaFields(w.Meta, geometry),
		Nodes:      w.NodeIDs,
	})
}

// EmitRelation writes one relation line with its built geometry (nil if
// none, or if the relation bypassed the batch entirely because it had no
// Relation member).
func (e *Emitter) EmitRelation(r osmstream.RelationVersion, geometry *string) error {
	members := make([]jsonMember, 0, len(r.Members))
	for _, m := range r.Members {
		members = append(members, jsonMember{Type: string(m.Kind), ID: m.ID, Role: m.Role})
	}
	return e.enc.relations.Encode(relationRecord{
		nodeRecord: metaFields(r.Meta, geometry),
		Members:    members,
	})
}

// Close flushes and closes all three output files.
func (e *Emitter) Close() error {
	err1 := e.nodes.Close()
	err2 := e.ways.Close()
	err3 := e.relations.Close()
	if err1 != nil {
		return err1
	}
	if err2 != nil {
		return err2
	}
	return err3
}

func pointGeoJSON(lon, lat float64) string {
	b, _ := json.Marshal(map[string]any{
		"type":        "Point",
		"coordinates": [2]float64{lon, lat},
	})
	return string(b)
}
