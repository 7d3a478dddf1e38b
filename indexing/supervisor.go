// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.

package indexing

import (
	"context"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/osmtemporal/resolver/internal/config"
	"github.com/osmtemporal/resolver/internal/logging"
	"github.com/osmtemporal/resolver/internal/numeric"
	"github.com/osmtemporal/resolver/osmkv"
	"github.com/osmtemporal/resolver/osmstream"
)

// Result is the outcome of a full indexing pass: every worker's shard file
// set and counts, plus the merged store path if merging was requested.
type Result struct {
	Workers     []WorkerResult
	MergedStore string // empty unless cfg.MergeShards
}

// ReaderFactory builds an independent osmstream.Reader for one worker. Each
// worker streams the whole source extract on its own, so the supervisor
// needs a fresh Reader per worker rather than a shared one.
type ReaderFactory func(workerIndex int) (osmstream.Reader, error)

// Run is the pool supervisor: it spawns cfg.NumWorkers indexer workers,
// each owning a contiguous, disjoint range of cfg.NumShards shard slots,
// waits for every worker at a strict join barrier, and only then returns.
// The resolution pass must never start before every worker has committed
// and closed its stores.
func Run(ctx context.Context, cfg config.Config, newReader ReaderFactory, log logging.Logger) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	mode := osmkv.CounterMode
	if cfg.HashPartitionShards {
		mode = osmkv.HashMode
	}
	router := osmkv.NewRouter(mode, cfg.NumShards)
	ranges := numeric.SplitShardRanges(cfg.NumShards, cfg.NumWorkers)

	results := make([]WorkerResult, cfg.NumWorkers)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.NumWorkers; w++ {
		w := w
		g.Go(func() error {
			reader, err := newReader(w)
			if err != nil {
				return err
			}
			workerLog := log.With(logging.Int("worker", w))
			res, err := RunWorker(gctx, WorkerConfig{
				WorkerIndex:                w,
				Owned:                      osmkv.NewOwnedShards(ranges[w].Start, ranges[w].End),
				Router:                     router,
				Reader:                     reader,
				DestDir:                    cfg.DestDir,
				Stem:                       "osmidx",
				NumShards:                  cfg.NumShards,
				CommitEvery:                cfg.BCommit,
				MaxConsecutiveParseErrors:  cfg.MaxConsecutiveParseErrors,
				LogEvery:                   cfg.LogEveryRecords,
				Log:                        workerLog,
			})
			if err != nil {
				return err
			}
			results[w] = res
			return nil
		})
	}

	// Strict join barrier: Wait blocks until every worker has returned, and
	// returns the first error if any worker failed. No result below this
	// line is used until all workers have committed and closed.
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	out := Result{Workers: results}
	if cfg.MergeShards {
		mergedPath := filepath.Join(cfg.DestDir, osmkv.MergedFileName("osmidx", "db"))
		if err := mergeShardStores(ctx, results, mergedPath); err != nil {
			return Result{}, err
		}
		out.MergedStore = mergedPath
	}
	return out, nil
}

func mergeShardStores(ctx context.Context, results []WorkerResult, mergedPath string) error {
	dst, err := osmkv.OpenBoltStore(mergedPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	var srcPaths []string
	for _, r := range results {
		for _, path := range r.ShardPaths {
			srcPaths = append(srcPaths, path)
		}
	}

	srcs := make([]osmkv.Store, 0, len(srcPaths))
	for _, path := range srcPaths {
		store, err := osmkv.OpenBoltStore(path)
		if err != nil {
			return err
		}
		defer store.Close()
		srcs = append(srcs, store)
	}

	var merger osmkv.StreamMerger
	return merger.Merge(ctx, dst, srcs)
}
