// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.

// Package config validates and carries the CLI surface of the resolver.
package config

import (
	"github.com/c2h5oh/datasize"

	"github.com/osmtemporal/resolver/internal/errs"
)

// Config is the fully validated run configuration shared by the indexing
// and resolution passes.
type Config struct {
	SrcFile             string
	DestDir             string
	NumWorkers          int
	NumShards           int
	MergeShards         bool
	HashPartitionShards bool
	RecursiveRelations  bool

	BCommit                   int           // records between per-shard Commit() calls
	WaysBatchSize              int           // main ways per batch before flush
	RelationsBatchSize         int           // main relations per batch before flush
	BatchByteCap               datasize.ByteSize // total batch byte/record cap
	LogEveryRecords            int           // progress heartbeat cadence
	MaxConsecutiveParseErrors  int           // SourceReadError abort threshold
}

// Default returns the documented defaults for the indexing and resolution
// passes. HashPartitionShards defaults on: with NumWorkers=3, counter mode
// would fail Validate() out of the box, and hash mode is the deterministic,
// recommended routing function anyway.
func Default() Config {
	return Config{
		NumWorkers:                3,
		NumShards:                 3,
		MergeShards:               true,
		HashPartitionShards:       true,
		RecursiveRelations:        false,
		BCommit:                   1_000_000,
		WaysBatchSize:             5000,
		RelationsBatchSize:        2000,
		BatchByteCap:              64 * datasize.MB,
		LogEveryRecords:           1_000_000,
		MaxConsecutiveParseErrors: 100,
	}
}

// Validate enforces the shard-partitioning constraints, raising
// ShardConfigError before a single worker is spawned.
func (c *Config) Validate() error {
	if c.NumWorkers <= 0 {
		return &errs.ShardConfigError{NumShards: c.NumShards, NumWorkers: c.NumWorkers, Reason: "num_workers must be positive"}
	}
	if c.NumShards < c.NumWorkers {
		c.NumShards = c.NumWorkers
	}
	if c.NumShards%c.NumWorkers != 0 {
		return &errs.ShardConfigError{NumShards: c.NumShards, NumWorkers: c.NumWorkers, Reason: "num_shards must be a multiple of num_workers"}
	}
	if !c.HashPartitionShards && c.NumWorkers > 1 {
		return &errs.ShardConfigError{
			NumShards:  c.NumShards,
			NumWorkers: c.NumWorkers,
			Reason:     "counter-mode shard partitioning is not deterministic across parallel workers; pass --hash_partition_shards or set num_workers=1",
		}
	}
	if !c.HashPartitionShards {
		// Counter-mode shard placement depends on arrival order, not id,
		// so the resolution pass cannot re-derive which shard owns a
		// given id from the id alone. Only a merged single store is
		// queryable after a counter-mode index run.
		c.MergeShards = true
	}
	if c.SrcFile == "" {
		return &errs.ShardConfigError{Reason: "src_file is required"}
	}
	if c.DestDir == "" {
		return &errs.ShardConfigError{Reason: "dest_output_dir is required"}
	}
	return nil
}
