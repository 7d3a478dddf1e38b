// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.

package indexing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/osmtemporal/resolver/internal/logging"
)

func TestProgressSnapshot(t *testing.T) {
	p := NewProgress(0, logging.Nop())
	p.Seen()
	p.Seen()
	p.Owned()
	p.ParseError()

	snap := p.Snapshot()
	require.EqualValues(t, 2, snap.RecordsSeen)
	require.EqualValues(t, 1, snap.RecordsOwned)
	require.EqualValues(t, 1, snap.ParseErrors)
}

func TestParseFailureTrackerResetsOnSuccess(t *testing.T) {
	tr := NewParseFailureTracker(3)
	require.False(t, tr.Fail())
	require.False(t, tr.Fail())
	tr.Ok()
	require.False(t, tr.Fail())
	require.False(t, tr.Fail())
	require.True(t, tr.Fail())
}

func TestParseFailureTrackerDisabledWhenMaxZero(t *testing.T) {
	tr := NewParseFailureTracker(0)
	for i := 0; i < 1000; i++ {
		require.False(t, tr.Fail())
	}
}
