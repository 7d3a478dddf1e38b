// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.
//
// Adapted from erigon-lib/common/math: integer limits and small numeric
// helpers used for shard-range splitting across indexer workers.
package numeric

// Integer limit values. Nothing in this module references them.
const (
	MaxInt32  = 1<<31 - 1
	MaxUint32 = 1<<32 - 1
)

// ShardRange is a contiguous, disjoint half-open range of shard slots
// [Start, End) owned by one worker.
type ShardRange struct {
	Start int
	End   int
}

// SplitShardRanges splits numShards contiguous slots evenly across
// numWorkers workers. Caller must have already validated
// numShards % numWorkers == 0; SplitShardRanges panics otherwise so
// that a violation is never silently tolerated downstream.
func SplitShardRanges(numShards, numWorkers int) []ShardRange {
	if numWorkers <= 0 || numShards <= 0 || numShards%numWorkers != 0 {
		panic("numeric: SplitShardRanges requires numShards to be a positive multiple of numWorkers")
	}
	perWorker := numShards / numWorkers
	ranges := make([]ShardRange, numWorkers)
	for w := 0; w < numWorkers; w++ {
		ranges[w] = ShardRange{Start: w * perWorker, End: (w + 1) * perWorker}
	}
	return ranges
}

// Owns reports whether shard is inside the range.
func (r ShardRange) Owns(shard int) bool {
	return shard >= r.Start && shard < r.End
}
