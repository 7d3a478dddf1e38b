// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.

package resolve

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/osmtemporal/resolver/osmstream"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if scanner.Text() != "" {
			lines = append(lines, scanner.Text())
		}
	}
	require.NoError(t, scanner.Err())
	return lines
}

func TestEmitNodeWritesPointGeometryWhenLocated(t *testing.T) {
	dir := t.TempDir()
	e, err := NewEmitter(dir)
	require.NoError(t, err)

	require.NoError(t, e.EmitNode(osmstream.NodeVersion{
		Meta: osmstream.Meta{ID: 1, Timestamp: 10, Visible: true, Tags: []osmstream.Tag{{Key: "k", Value: "v"}}},
		Lon:  1.5, Lat: 2.5, HasLocation: true,
	}))
	require.NoError(t, e.Close())

	lines := readLines(t, filepath.Join(dir, "nodes.jsonl"))
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	require.NotNil(t, rec["geometry"])
	require.Equal(t, "v", rec["all_tags"].(map[string]any)["k"])
}

func TestEmitNodeWritesNullGeometryWhenInvisible(t *testing.T) {
	dir := t.TempDir()
	e, err := NewEmitter(dir)
	require.NoError(t, err)

	require.NoError(t, e.EmitNode(osmstream.NodeVersion{
		Meta: osmstream.Meta{ID: 1, Timestamp: 15, Visible: false},
	}))
	require.NoError(t, e.Close())

	lines := readLines(t, filepath.Join(dir, "nodes.jsonl"))
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	require.Nil(t, rec["geometry"])
	require.False(t, rec["visible"].(bool))
}

func TestEmitWayAndRelationIncludeGeometry(t *testing.T) {
	dir := t.TempDir()
	e, err := NewEmitter(dir)
	require.NoError(t, err)

	geom := `{"type":"LineString"}`
	require.NoError(t, e.EmitWay(osmstream.WayVersion{Meta: osmstream.Meta{ID: 9, Timestamp: 20}, NodeIDs: []uint64{1, 2}}, &geom))
	require.NoError(t, e.EmitRelation(osmstream.RelationVersion{Meta: osmstream.Meta{ID: 100, Timestamp: 25}}, nil))
	require.NoError(t, e.Close())

	wayLines := readLines(t, filepath.Join(dir, "ways.jsonl"))
	require.Len(t, wayLines, 1)
	var wayRec map[string]any
	require.NoError(t, json.Unmarshal([]byte(wayLines[0]), &wayRec))
	require.Equal(t, geom, wayRec["geometry"])

	relLines := readLines(t, filepath.Join(dir, "relations.jsonl"))
	require.Len(t, relLines, 1)
	var relRec map[string]any
	require.NoError(t, json.Unmarshal([]byte(relLines[0]), &relRec))
	require.Nil(t, relRec["geometry"])
}

func TestEmitterFsAcceptsInMemoryFilesystem(t *testing.T) {
	fs := afero.NewMemMapFs()
	e, err := NewEmitterFs(fs, "/out")
	require.NoError(t, err)

	require.NoError(t, e.EmitNode(osmstream.NodeVersion{
		Meta: osmstream.Meta{ID: 1, Timestamp: 10, Visible: true},
	}))
	require.NoError(t, e.Close())

	f, err := fs.Open("/out/nodes.jsonl")
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())
	require.Contains(t, scanner.Text(), `"id":1`)
}
