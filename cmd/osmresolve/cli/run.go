// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.

package cli

import (
	"github.com/spf13/cobra"

	"github.com/osmtemporal/resolver/internal/config"
)

// newRunCommand is the minimal CLI surface: index then resolve
// in one invocation, against the positional src_file/dest_output_dir and
// the four shard flags plus --builder-command and --recursive-relations. The split `index`/`resolve` subcommands exist
// for operators who want to run the strict join barrier and the resolution
// pass as separate, restartable steps.
func newRunCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <src_file> <dest_output_dir>",
		Short: "Run the indexing pass followed by the resolution pass",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.SrcFile = args[0]
			cfg.DestDir = args[1]
			if err := runIndex(cmd, cfg); err != nil {
				return err
			}
			return runResolve(cmd, cfg)
		},
	}

	cmd.Flags().IntVar(&cfg.NumWorkers, "num_workers", cfg.NumWorkers, "number of parallel indexer workers")
	cmd.Flags().IntVar(&cfg.NumShards, "num_shards", cfg.NumShards, "number of shards (raised to num_workers if lower)")
	cmd.Flags().BoolVar(&cfg.MergeShards, "merge_shards", cfg.MergeShards, "merge per-shard stores into one after indexing")
	cmd.Flags().BoolVar(&cfg.HashPartitionShards, "hash_partition_shards", cfg.HashPartitionShards, "use deterministic hash-based shard routing instead of counter mode")
	cmd.Flags().StringVar(&builderCommand, "builder-command", "", "path to the external geometry builder executable")
	cmd.Flags().BoolVar(&cfg.RecursiveRelations, "recursive-relations", cfg.RecursiveRelations, "expand relation-of-relation members instead of the legacy non-recursive behavior")
	return cmd
}
