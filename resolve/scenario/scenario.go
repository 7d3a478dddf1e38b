// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.

// Package scenario loads small, hand-written JSON fixtures describing a
// source stream and its expected emitted output, turning a JSON vector
// into an in-memory object graph instead of requiring Go literals per case.
package scenario

import (
	"encoding/json"
	"os"

	"github.com/osmtemporal/resolver/osmstream"
)

// NodeFixture is one JSON-encoded node version.
type NodeFixture struct {
	ID        uint64  `json:"id"`
	Timestamp int64   `json:"timestamp"`
	Version   uint32  `json:"version"`
	Visible   bool    `json:"visible"`
	Lon       *float64 `json:"lon"`
	Lat       *float64 `json:"lat"`
}

// WayFixture is one JSON-encoded way version.
type WayFixture struct {
	ID        uint64   `json:"id"`
	Timestamp int64    `json:"timestamp"`
	Version   uint32   `json:"version"`
	Visible   bool     `json:"visible"`
	NodeIDs   []uint64 `json:"node_ids"`
}

// MemberFixture is one relation member.
type MemberFixture struct {
	Kind string `json:"kind"`
	ID   uint64 `json:"id"`
	Role string `json:"role"`
}

// RelationFixture is one JSON-encoded relation version.
type RelationFixture struct {
	ID        uint64          `json:"id"`
	Timestamp int64           `json:"timestamp"`
	Version   uint32          `json:"version"`
	Visible   bool            `json:"visible"`
	Members   []MemberFixture `json:"members"`
}

// Expectation describes what a scenario's test is checking for one main
// entity, by original ID: either a specific geometry string or that
// geometry must be null.
type Expectation struct {
	Kind         string  `json:"kind"`
	ID           uint64  `json:"id"`
	GeometryNull bool    `json:"geometry_null"`
	Geometry     *string `json:"geometry"`
	Note         string  `json:"note"`
}

// Scenario is a full concrete-scenario fixture.
type Scenario struct {
	Name         string            `json:"name"`
	Nodes        []NodeFixture     `json:"nodes"`
	Ways         []WayFixture      `json:"ways"`
	Relations    []RelationFixture `json:"relations"`
	Expectations []Expectation     `json:"expectations"`
}

// Load reads and decodes one scenario fixture file.
func Load(path string) (Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, err
	}
	var s Scenario
	if err := json.Unmarshal(b, &s); err != nil {
		return Scenario{}, err
	}
	return s, nil
}

// ToSlice converts the fixture into an osmstream.Slice reader.
func (s Scenario) ToSlice() osmstream.Slice {
	slice := osmstream.Slice{}
	for _, n := range s.Nodes {
		v := osmstream.NodeVersion{
			Meta: osmstream.Meta{ID: n.ID, Version: n.Version, Timestamp: n.Timestamp, Visible: n.Visible},
		}
		if n.Lon != nil && n.Lat != nil {
			v.Lon, v.Lat, v.HasLocation = *n.Lon, *n.Lat, true
		}
		slice.Nodes = append(slice.Nodes, v)
	}
	for _, w := range s.Ways {
		slice.Ways = append(slice.Ways, osmstream.WayVersion{
			Meta:    osmstream.Meta{ID: w.ID, Version: w.Version, Timestamp: w.Timestamp, Visible: w.Visible},
			NodeIDs: w.NodeIDs,
		})
	}
	for _, r := range s.Relations {
		members := make([]osmstream.Member, 0, len(r.Members))
		for _, m := range r.Members {
			members = append(members, osmstream.Member{Kind: osmstream.MemberKind(m.Kind), ID: m.ID, Role: m.Role})
		}
		slice.Relations = append(slice.Relations, osmstream.RelationVersion{
			Meta:    osmstream.Meta{ID: r.ID, Version: r.Version, Timestamp: r.Timestamp, Visible: r.Visible},
			Members: members,
		})
	}
	return slice
}
