// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.

package osmkv

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/osmtemporal/resolver/internal/errs"
)

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shard.db")
	store, err := OpenBoltStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPutGetAsOfFloorSemantics(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Put(Node, 1, 10, []byte("v1")))
	require.NoError(t, store.Put(Node, 1, 30, []byte("v2")))
	require.NoError(t, store.Put(Node, 1, 50, []byte("v3")))

	row, ok, err := store.GetAsOf(Node, 1, 5)
	require.NoError(t, err)
	require.False(t, ok, "no version exists before the earliest timestamp")

	row, ok, err = store.GetAsOf(Node, 1, 10)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v1", string(row.Blob))

	row, ok, err = store.GetAsOf(Node, 1, 29)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v1", string(row.Blob))

	row, ok, err = store.GetAsOf(Node, 1, 30)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v2", string(row.Blob))

	row, ok, err = store.GetAsOf(Node, 1, 1000)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v3", string(row.Blob))
}

func TestGetAsOfDoesNotLeakAcrossIds(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Put(Node, 1, 10, []byte("one")))
	require.NoError(t, store.Put(Node, 3, 10, []byte("three")))

	_, ok, err := store.GetAsOf(Node, 2, 1000)
	require.NoError(t, err)
	require.False(t, ok, "id 2 was never written; must not fall back to a neighboring id's row")
}

func TestPutIsIdempotentOnEqualBlob(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Put(Node, 1, 10, []byte("same")))
	require.NoError(t, store.Put(Node, 1, 10, []byte("same")))
}

func TestPutRejectsDifferingBlobOnSameKey(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Put(Node, 1, 10, []byte("a")))
	err := store.Put(Node, 1, 10, []byte("b"))
	require.Error(t, err)
	var iv *errs.InvariantViolation
	require.ErrorAs(t, err, &iv)
}

func TestStatsCountsKeysByKind(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Put(Node, 1, 10, []byte("a")))
	require.NoError(t, store.Put(Node, 2, 10, []byte("b")))
	require.NoError(t, store.Put(Way, 9, 10, []byte("c")))
	require.NoError(t, store.Commit())

	stats := store.Stats()
	require.EqualValues(t, 2, stats.KeysByKind[Node])
	require.EqualValues(t, 1, stats.KeysByKind[Way])
	require.EqualValues(t, 3, stats.Puts)
}
