// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.

package osmkv

import (
	"bytes"
	"context"

	"github.com/google/btree"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/osmtemporal/resolver/internal/errs"
)

// StreamMerger is the Merger of the optional post-index merge step: it
// folds every shard store's (kind,id,timestamp) rows into one destination
// store, deduplicating equal keys and flagging invariant violations on conflicting
// ones. Shard stores were written independently by disjoint owned-shard
// ranges, so merging is really a concatenation with a conflict check. Every
// row (key and blob) of every source is held in an in-memory btree before
// being written to dst in sorted order.
type StreamMerger struct{}

// mergeEntry is the btree item: one (kind,key) mapping to its blob.
type mergeEntry struct {
	kind Kind
	key  []byte
	blob []byte
}

func (a mergeEntry) Less(bItem btree.Item) bool {
	b := bItem.(mergeEntry)
	if a.kind != b.kind {
		return a.kind < b.kind
	}
	return bytes.Compare(a.key, b.key) < 0
}

// Merge copies every row of every source store into dst, in sorted
// (kind,key) order, erroring with InvariantViolation on a same-key
// cross-source payload mismatch.
func (StreamMerger) Merge(ctx context.Context, dst Store, srcs []Store) error {
	tree := btree.New(32)

	for _, src := range srcs {
		bs, ok := src.(*BoltStore)
		if !ok {
			return errors.New("osmkv: StreamMerger only supports *BoltStore sources")
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := forEachRow(bs, func(kind Kind, key, blob []byte) error {
			item := mergeEntry{kind: kind, key: append([]byte(nil), key...), blob: append([]byte(nil), blob...)}
			if existing := tree.Get(item); existing != nil {
				prev := existing.(mergeEntry)
				if !bytes.Equal(prev.blob, item.blob) {
					id, ts := DecodeKey(key)
					return &errs.InvariantViolation{
						Invariant: "duplicate-key-differing-payload",
						Detail:    errors.Errorf("merge conflict kind=%s id=%d ts=%d", kind, id, ts).Error(),
					}
				}
				return nil
			}
			tree.ReplaceOrInsert(item)
			return nil
		}); err != nil {
			return err
		}
	}

	var putErr error
	tree.Ascend(func(it btree.Item) bool {
		e := it.(mergeEntry)
		id, ts := DecodeKey(e.key)
		if err := dst.Put(e.kind, id, ts, e.blob); err != nil {
			putErr = err
			return false
		}
		return true
	})
	if putErr != nil {
		return putErr
	}
	return dst.Commit()
}

// forEachRow walks every (kind,key,blob) triple of a BoltStore in bucket
// order, the one place this package scans a full store rather than doing a
// point GetAsOf lookup.
func forEachRow(b *BoltStore, fn func(kind Kind, key, blob []byte) error) error {
	return b.db.View(func(tx *bolt.Tx) error {
		for _, kind := range allKinds {
			bucket := tx.Bucket([]byte(kind))
			if bucket == nil {
				continue
			}
			if err := bucket.ForEach(func(k, v []byte) error {
				return fn(kind, k, v)
			}); err != nil {
				return err
			}
		}
		return nil
	})
}
