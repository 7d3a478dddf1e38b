// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.
//
// osmtemporal/resolver is free software: you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.

// Package errs defines the error taxonomy shared by the indexing and
// resolution passes. Each type carries the entity context needed
// to print the single descriptive line a fatal error requires.
package errs

import "fmt"

// Kind identifies which OSM entity kind an error refers to.
type Kind string

const (
	KindNode     Kind = "node"
	KindWay      Kind = "way"
	KindRelation Kind = "relation"
)

// SourceReadError wraps a malformed source record. Non-fatal per record;
// the pass aborts only once consecutive occurrences cross a threshold.
type SourceReadError struct {
	Cause error
	Raw   string
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("source read error: %v (raw=%q)", e.Cause, e.Raw)
}
func (e *SourceReadError) Unwrap() error { return e.Cause }

// ShardConfigError indicates an invalid shard/worker configuration.
// Fatal at startup, before any worker spawns.
type ShardConfigError struct {
	NumShards  int
	NumWorkers int
	Reason     string
}

func (e *ShardConfigError) Error() string {
	return fmt.Sprintf("shard config error: %s (num_shards=%d, num_workers=%d)", e.Reason, e.NumShards, e.NumWorkers)
}

// StoreWriteError indicates the underlying KV engine failed to commit.
// Fatal, propagated by the owning worker to the supervisor.
type StoreWriteError struct {
	Shard int
	Cause error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("store write error: shard=%d: %v", e.Shard, e.Cause)
}
func (e *StoreWriteError) Unwrap() error { return e.Cause }

// DependencyMissing records that GetAsOf returned no row for a referenced
// dependency. Non-fatal; the caller omits the dependency and continues.
type DependencyMissing struct {
	Kind      Kind
	ID        uint64
	Timestamp int64
}

func (e *DependencyMissing) Error() string {
	return fmt.Sprintf("dependency missing: %s/%d as of %d", e.Kind, e.ID, e.Timestamp)
}

// BuilderInvocationError indicates the external geometry builder returned a
// non-zero exit code or produced unparsable output. Fatal for the current
// batch; aborts the run.
type BuilderInvocationError struct {
	Kind     Kind
	ExitCode int
	Stderr   string
	Cause    error
}

func (e *BuilderInvocationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("builder invocation error: kind=%s: %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("builder invocation error: kind=%s exit=%d stderr=%q", e.Kind, e.ExitCode, e.Stderr)
}
func (e *BuilderInvocationError) Unwrap() error { return e.Cause }

// InvariantViolation indicates a core invariant was violated, e.g. a
// duplicate (kind,id,timestamp) with differing payloads discovered during
// Merge. Always fatal.
type InvariantViolation struct {
	Invariant string
	Detail    string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation %s: %s", e.Invariant, e.Detail)
}
