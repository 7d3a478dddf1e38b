// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.

// Package osmkv is the versioned index store: a persistent
// ordered key-value store keyed by (kind, id, timestamp), answering
// "version at or before time T" lookups in O(log N).
//
// Key layout, documented inline instead of scattered across call sites:
//
//	bucket "node"     : id(8 BE) + timestamp(8 BE) -> encoded NodeVersion
//	bucket "way"      : id(8 BE) + timestamp(8 BE) -> encoded WayVersion
//	bucket "relation" : id(8 BE) + timestamp(8 BE) -> encoded RelationVersion
//
// Keys sort lexicographically by (id, timestamp), which is exactly the
// order GetAsOf needs: for a fixed id, increasing timestamp. Big-endian
// encoding makes the byte-lexicographic order match the numeric order.
package osmkv

import (
	"encoding/binary"
)

// Kind mirrors osmstream's three entity kinds as storage bucket names.
type Kind string

const (
	Node     Kind = "node"
	Way      Kind = "way"
	Relation Kind = "relation"
)

const keyLen = 16

// EncodeKey packs (id, timestamp) into the store's sortable 16-byte key.
// timestamp is biased by 2^63 so that negative epoch seconds still sort
// correctly as unsigned big-endian bytes.
func EncodeKey(id uint64, timestamp int64) []byte {
	buf := make([]byte, keyLen)
	binary.BigEndian.PutUint64(buf[0:8], id)
	binary.BigEndian.PutUint64(buf[8:16], biasTimestamp(timestamp))
	return buf
}

// DecodeKey is the inverse of EncodeKey.
func DecodeKey(key []byte) (id uint64, timestamp int64) {
	id = binary.BigEndian.Uint64(key[0:8])
	timestamp = unbiasTimestamp(binary.BigEndian.Uint64(key[8:16]))
	return
}

func biasTimestamp(ts int64) uint64   { return uint64(ts) ^ (1 << 63) }
func unbiasTimestamp(v uint64) int64 { return int64(v ^ (1 << 63)) }

// idPrefix returns the 8-byte id prefix shared by every key of that id,
// used to bound a cursor scan to a single (kind, id) version chain.
func idPrefix(id uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, id)
	return buf
}

// ShardFileName renders "<stem>_<index>.<ext>" with index zero-padded to
// the width of numShards-1, so per-shard files sort the same
// lexicographically and numerically.
func ShardFileName(stem, ext string, index, numShards int) string {
	width := 1
	for n := numShards - 1; n >= 10; n /= 10 {
		width++
	}
	return stem + "_" + padInt(index, width) + "." + ext
}

// MergedFileName renders "<stem>.<ext>" for the post-merge single store.
func MergedFileName(stem, ext string) string {
	return stem + "." + ext
}

func padInt(v, width int) string {
	s := itoa(v)
	for len(s) < width {
		s = "0" + s
	}
	return s
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var digits [20]byte
	i := len(digits)
	for v > 0 {
		i--
		digits[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		digits[i] = '-'
	}
	return string(digits[i:])
}
