// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.

package indexing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/osmtemporal/resolver/internal/logging"
	"github.com/osmtemporal/resolver/osmkv"
	"github.com/osmtemporal/resolver/osmstream"
)

func testStream() osmstream.Slice {
	return osmstream.Slice{
		Nodes: []osmstream.NodeVersion{
			{Meta: osmstream.Meta{ID: 1, Timestamp: 10, Visible: true}, Lon: 0, Lat: 0, HasLocation: true},
			{Meta: osmstream.Meta{ID: 2, Timestamp: 10, Visible: true}, Lon: 1, Lat: 0, HasLocation: true},
			{Meta: osmstream.Meta{ID: 3, Timestamp: 10, Visible: true}, Lon: 2, Lat: 0, HasLocation: true},
		},
		Ways: []osmstream.WayVersion{
			{Meta: osmstream.Meta{ID: 9, Timestamp: 20, Visible: true}, NodeIDs: []uint64{1, 2}},
		},
	}
}

// TestWorkerOnlyPersistsOwnedShards verifies end to end that a worker that
// owns a subset of shards writes only records whose computed shard falls in
// that range, and returns one store path per owned shard.
func TestWorkerOnlyPersistsOwnedShards(t *testing.T) {
	dir := t.TempDir()
	router := osmkv.NewRouter(osmkv.HashMode, 4)
	owned := osmkv.NewOwnedShards(0, 2)

	res, err := RunWorker(context.Background(), WorkerConfig{
		Owned:     owned,
		Router:    router,
		Reader:    testStream(),
		DestDir:   dir,
		Stem:      "osmidx",
		NumShards: 4,
		Log:       logging.Nop(),
	})
	require.NoError(t, err)
	require.Len(t, res.ShardPaths, 2)

	var totalKeys uint64
	for shard, path := range res.ShardPaths {
		require.True(t, owned.Owns(shard))
		store, err := osmkv.OpenBoltStore(path)
		require.NoError(t, err)
		stats := store.Stats()
		for _, n := range stats.KeysByKind {
			totalKeys += n
		}
		require.NoError(t, store.Close())
	}
	require.EqualValues(t, res.Counts[osmkv.Node]+res.Counts[osmkv.Way], totalKeys)
}

func TestWorkerCountsMatchOwnedRecords(t *testing.T) {
	dir := t.TempDir()
	router := osmkv.NewRouter(osmkv.HashMode, 1)
	owned := osmkv.NewOwnedShards(0, 1)

	res, err := RunWorker(context.Background(), WorkerConfig{
		Owned:     owned,
		Router:    router,
		Reader:    testStream(),
		DestDir:   dir,
		Stem:      "osmidx",
		NumShards: 1,
		Log:       logging.Nop(),
	})
	require.NoError(t, err)
	require.EqualValues(t, 3, res.Counts[osmkv.Node])
	require.EqualValues(t, 1, res.Counts[osmkv.Way])
	require.EqualValues(t, 4, res.Progress.RecordsSeen)
	require.EqualValues(t, 4, res.Progress.RecordsOwned)
}
