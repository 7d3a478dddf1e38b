// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.

package numeric

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitShardRangesContiguousAndDisjoint(t *testing.T) {
	ranges := SplitShardRanges(12, 3)
	require.Equal(t, []ShardRange{{0, 4}, {4, 8}, {8, 12}}, ranges)

	seen := map[int]bool{}
	for _, r := range ranges {
		for s := r.Start; s < r.End; s++ {
			require.False(t, seen[s], "shard %d owned by more than one range", s)
			seen[s] = true
		}
	}
	require.Len(t, seen, 12)
}

func TestSplitShardRangesPanicsOnNonMultiple(t *testing.T) {
	require.Panics(t, func() { SplitShardRanges(10, 3) })
}

func TestShardRangeOwns(t *testing.T) {
	r := ShardRange{Start: 4, End: 8}
	require.True(t, r.Owns(4))
	require.True(t, r.Owns(7))
	require.False(t, r.Owns(3))
	require.False(t, r.Owns(8))
}
