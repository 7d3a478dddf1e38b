// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.

// Package indexing implements the indexing pass: parallel
// workers stream the whole source extract, keep only the records their
// owned shard range covers, and persist every version into a per-worker
// osmkv.Store.
package indexing

import (
	"sync/atomic"

	"github.com/osmtemporal/resolver/internal/logging"
)

// Progress is an explicit, per-pass counter set: a value a caller owns and
// can snapshot independently per invocation, since this module is expected
// to run many indexing passes in one process during tests.
type Progress struct {
	recordsSeen  atomic.Uint64
	recordsOwned atomic.Uint64
	parseErrors  atomic.Uint64

	logEvery int64
	log      logging.Logger
}

// NewProgress builds a Progress that logs a heartbeat every logEvery records
// seen (0 disables heartbeat logging).
func NewProgress(logEvery int, log logging.Logger) *Progress {
	return &Progress{logEvery: int64(logEvery), log: log}
}

// Snapshot is an immutable point-in-time read of a Progress.
type Snapshot struct {
	RecordsSeen  uint64
	RecordsOwned uint64
	ParseErrors  uint64
}

func (p *Progress) Snapshot() Snapshot {
	return Snapshot{
		RecordsSeen:  p.recordsSeen.Load(),
		RecordsOwned: p.recordsOwned.Load(),
		ParseErrors:  p.parseErrors.Load(),
	}
}

// Seen records one record observed in the stream, regardless of ownership,
// and emits a heartbeat log line every logEvery records.
func (p *Progress) Seen() {
	n := p.recordsSeen.Add(1)
	if p.logEvery > 0 && int64(n)%p.logEvery == 0 && p.log != nil {
		p.log.Info("indexing heartbeat",
			logging.Uint64("records_seen", n),
			logging.Uint64("records_owned", p.recordsOwned.Load()),
			logging.Uint64("parse_errors", p.parseErrors.Load()),
		)
	}
}

// Owned records one record accepted and written by this worker's shard.
func (p *Progress) Owned() { p.recordsOwned.Add(1) }

// ParseError records one recoverable parse failure. It returns nothing:
// ParseFailureTracker handles the consecutive part; Progress just counts
// total failures for reporting.
func (p *Progress) ParseError() { p.parseErrors.Add(1) }

// ParseFailureTracker enforces a consecutive-parse-failure abort
// threshold: a worker aborts with errs.SourceReadError once `max`
// consecutive records fail to decode, but a single good record in between
// resets the streak.
type ParseFailureTracker struct {
	max     int
	streak  int
}

func NewParseFailureTracker(max int) *ParseFailureTracker {
	return &ParseFailureTracker{max: max}
}

// Fail records one failure and reports whether the consecutive streak has
// now reached the threshold (always false when max is 0).
func (t *ParseFailureTracker) Fail() (exceeded bool) {
	t.streak++
	return t.max > 0 && t.streak >= t.max
}

// Ok resets the consecutive-failure streak.
func (t *ParseFailureTracker) Ok() { t.streak = 0 }
