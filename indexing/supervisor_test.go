// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.

package indexing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/osmtemporal/resolver/internal/config"
	"github.com/osmtemporal/resolver/internal/logging"
	"github.com/osmtemporal/resolver/osmkv"
	"github.com/osmtemporal/resolver/osmstream"
)

func TestRunRejectsInvalidShardConfig(t *testing.T) {
	cfg := config.Default()
	cfg.SrcFile = "x"
	cfg.DestDir = t.TempDir()
	cfg.NumWorkers = 2
	cfg.NumShards = 3
	cfg.HashPartitionShards = true

	_, err := Run(context.Background(), cfg, func(int) (osmstream.Reader, error) {
		return testStream(), nil
	}, logging.Nop())
	require.Error(t, err)
}

// TestRunMergesShardsAfterJoinBarrier covers the strict join barrier of
// The merged store only appears once every worker has committed, and
// it answers GetAsOf for ids owned by any worker.
func TestRunMergesShardsAfterJoinBarrier(t *testing.T) {
	cfg := config.Default()
	cfg.SrcFile = "x"
	cfg.DestDir = t.TempDir()
	cfg.NumWorkers = 2
	cfg.NumShards = 4
	cfg.HashPartitionShards = true
	cfg.MergeShards = true

	result, err := Run(context.Background(), cfg, func(int) (osmstream.Reader, error) {
		return testStream(), nil
	}, logging.Nop())
	require.NoError(t, err)
	require.Len(t, result.Workers, 2)
	require.NotEmpty(t, result.MergedStore)

	merged, err := osmkv.OpenBoltStore(result.MergedStore)
	require.NoError(t, err)
	defer merged.Close()

	_, ok, err := merged.GetAsOf(osmkv.Node, 1, 1000)
	require.NoError(t, err)
	require.True(t, ok)
}
