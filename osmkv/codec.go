// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.

package osmkv

import (
	"github.com/goccy/go-json"

	"github.com/osmtemporal/resolver/osmstream"
)

// Codec turns a versioned record into the blob Store.Put persists, and back.
// JSON is an odd choice for hot-path binary storage, but it keeps the stored
// shape self-describing across a schema change between indexing and
// resolution runs, and goccy/go-json keeps the cost close to a binary codec.
type Codec struct{}

func (Codec) EncodeNode(v osmstream.NodeVersion) ([]byte, error)     { return json.Marshal(v) }
func (Codec) DecodeNode(b []byte) (osmstream.NodeVersion, error) {
	var v osmstream.NodeVersion
	err := json.Unmarshal(b, &v)
	return v, err
}

func (Codec) EncodeWay(v osmstream.WayVersion) ([]byte, error) { return json.Marshal(v) }
func (Codec) DecodeWay(b []byte) (osmstream.WayVersion, error) {
	var v osmstream.WayVersion
	err := json.Unmarshal(b, &v)
	return v, err
}

func (Codec) EncodeRelation(v osmstream.RelationVersion) ([]byte, error) { return json.Marshal(v) }
func (Codec) DecodeRelation(b []byte) (osmstream.RelationVersion, error) {
	var v osmstream.RelationVersion
	err := json.Unmarshal(b, &v)
	return v, err
}
