// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.

package cli

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/osmtemporal/resolver/indexing"
	"github.com/osmtemporal/resolver/internal/config"
	"github.com/osmtemporal/resolver/internal/logging"
	"github.com/osmtemporal/resolver/osmstream"
)

// NewSourceReader builds the per-worker entity-stream reader for a given
// source file. No concrete implementation ships in this module (parsing
// scopes the PBF/XML decoder out); a deployment wires its own decoder in
// before calling Execute.
var NewSourceReader func(srcFile string, workerIndex int) (osmstream.Reader, error)

func newIndexCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index <src_file> <dest_output_dir>",
		Short: "Run the indexing pass: ingest a source extract into a sharded versioned store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.SrcFile = args[0]
			cfg.DestDir = args[1]
			return runIndex(cmd, cfg)
		},
	}

	cmd.Flags().IntVar(&cfg.NumWorkers, "num_workers", cfg.NumWorkers, "number of parallel indexer workers")
	cmd.Flags().IntVar(&cfg.NumShards, "num_shards", cfg.NumShards, "number of shards (raised to num_workers if lower)")
	cmd.Flags().BoolVar(&cfg.MergeShards, "merge_shards", cfg.MergeShards, "merge per-shard stores into one after indexing")
	cmd.Flags().BoolVar(&cfg.HashPartitionShards, "hash_partition_shards", cfg.HashPartitionShards, "use deterministic hash-based shard routing instead of counter mode")
	cmd.Flags().IntVar(&cfg.BCommit, "commit_every", cfg.BCommit, "owned records between per-shard Commit() calls")
	cmd.Flags().IntVar(&cfg.LogEveryRecords, "log-every", cfg.LogEveryRecords, "records between progress heartbeat log lines")
	cmd.Flags().IntVar(&cfg.MaxConsecutiveParseErrors, "max-consecutive-parse-errors", cfg.MaxConsecutiveParseErrors, "consecutive parse failures before aborting with SourceReadError")
	return cmd
}

func runIndex(cmd *cobra.Command, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if NewSourceReader == nil {
		return errors.New("osmresolve: no source reader registered; this build was not wired with an OSM extract decoder")
	}

	log := newLogger()
	ctx := cmd.Context()
	result, err := indexing.Run(ctx, *cfg, func(workerIndex int) (osmstream.Reader, error) {
		return NewSourceReader(cfg.SrcFile, workerIndex)
	}, log)
	if err != nil {
		return err
	}

	for i, w := range result.Workers {
		log.Info("worker finished",
			logging.Int("worker", i),
			logging.Uint64("records_seen", w.Progress.RecordsSeen),
			logging.Uint64("records_owned", w.Progress.RecordsOwned),
		)
	}
	if result.MergedStore != "" {
		log.Info("merged store written", logging.String("path", result.MergedStore))
	}
	return nil
}
