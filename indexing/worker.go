// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.

package indexing

import (
	"context"
	"path/filepath"

	"github.com/osmtemporal/resolver/internal/errs"
	"github.com/osmtemporal/resolver/internal/logging"
	"github.com/osmtemporal/resolver/osmkv"
	"github.com/osmtemporal/resolver/osmstream"
)

// WorkerConfig parameterizes one indexer worker.
type WorkerConfig struct {
	WorkerIndex int
	Owned       osmkv.OwnedShards
	Router      *osmkv.Router
	Reader      osmstream.Reader
	DestDir     string
	Stem        string
	NumShards   int

	CommitEvery               int // B_commit: owned records between Commit() calls
	MaxConsecutiveParseErrors int
	LogEvery                  int
	Log                       logging.Logger
}

// WorkerResult is what a worker hands back to the supervisor join barrier:
// the set of shard files it wrote and per-kind version counts, so the
// supervisor can validate completeness before the resolution pass starts.
type WorkerResult struct {
	ShardPaths map[int]string
	Counts     map[osmkv.Kind]uint64
	Progress   Snapshot
}

// RunWorker streams the whole source extract once (each worker reads
// the whole file; it is not a range split"), keeping only records whose
// computed shard falls in its owned range, and persisting them into one
// osmkv.Store per owned shard.
func RunWorker(ctx context.Context, cfg WorkerConfig) (WorkerResult, error) {
	stores := make(map[int]*osmkv.BoltStore, len(cfg.Owned.Slots()))
	for _, shard := range cfg.Owned.Slots() {
		path := filepath.Join(cfg.DestDir, osmkv.ShardFileName(cfg.Stem, "db", shard, cfg.NumShards))
		store, err := osmkv.OpenBoltStore(path)
		if err != nil {
			closeAll(stores)
			return WorkerResult{}, err
		}
		stores[shard] = store
	}
	defer closeAll(stores)

	progress := NewProgress(cfg.LogEvery, cfg.Log)
	failures := NewParseFailureTracker(cfg.MaxConsecutiveParseErrors)
	counts := map[osmkv.Kind]uint64{}
	var codec osmkv.Codec
	var sinceCommit int

	commitAll := func() error {
		for shard, store := range stores {
			if err := store.Commit(); err != nil {
				return &errs.StoreWriteError{Shard: shard, Cause: err}
			}
		}
		return nil
	}

	put := func(kind osmkv.Kind, id uint64, ts int64, blob []byte, encErr error) error {
		progress.Seen()
		if encErr != nil {
			progress.ParseError()
			if failures.Fail() {
				return &errs.SourceReadError{Cause: encErr, Raw: string(kind)}
			}
			return nil
		}
		failures.Ok()

		shard := cfg.Router.Shard(id)
		if !cfg.Owned.Owns(shard) {
			return nil
		}
		store := stores[shard]
		if err := store.Put(kind, id, ts, blob); err != nil {
			return err
		}
		progress.Owned()
		counts[kind]++
		sinceCommit++
		if cfg.CommitEvery > 0 && sinceCommit >= cfg.CommitEvery {
			sinceCommit = 0
			return commitAll()
		}
		return nil
	}

	visitor := osmstream.VisitorFunc{
		Node: func(n osmstream.NodeVersion) error {
			blob, err := codec.EncodeNode(n)
			return put(osmkv.Node, n.ID, n.Timestamp, blob, err)
		},
		Way: func(w osmstream.WayVersion) error {
			blob, err := codec.EncodeWay(w)
			return put(osmkv.Way, w.ID, w.Timestamp, blob, err)
		},
		Relation: func(r osmstream.RelationVersion) error {
			blob, err := codec.EncodeRelation(r)
			return put(osmkv.Relation, r.ID, r.Timestamp, blob, err)
		},
	}

	if err := cfg.Reader.Read(ctx, visitor); err != nil {
		return WorkerResult{}, err
	}
	if err := commitAll(); err != nil {
		return WorkerResult{}, err
	}

	paths := make(map[int]string, len(stores))
	for shard, store := range stores {
		paths[shard] = store.Path()
	}
	return WorkerResult{ShardPaths: paths, Counts: counts, Progress: progress.Snapshot()}, nil
}

func closeAll(stores map[int]*osmkv.BoltStore) {
	for _, store := range stores {
		_ = store.Close()
	}
}
