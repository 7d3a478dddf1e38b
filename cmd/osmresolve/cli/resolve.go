// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.

package cli

import (
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/osmtemporal/resolver/internal/config"
	"github.com/osmtemporal/resolver/osmkv"
	"github.com/osmtemporal/resolver/resolve"
)

var (
	builderCommand string
	builderArgs    []string
	dependencyCacheSize int
)

func newResolveCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <src_file> <dest_output_dir>",
		Short: "Run the resolution pass: emit JSON-lines records with built geometries",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.SrcFile = args[0]
			cfg.DestDir = args[1]
			return runResolve(cmd, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.RecursiveRelations, "recursive-relations", cfg.RecursiveRelations, "expand relation-of-relation members instead of the legacy non-recursive behavior")
	cmd.Flags().IntVar(&cfg.WaysBatchSize, "ways-batch-size", cfg.WaysBatchSize, "main ways per batch before flush")
	cmd.Flags().IntVar(&cfg.RelationsBatchSize, "relations-batch-size", cfg.RelationsBatchSize, "main relations per batch before flush")
	cmd.Flags().IntVar(&dependencyCacheSize, "dependency-cache-size", 100_000, "entries per kind kept in the dependency lookup cache")
	cmd.Flags().StringVar(&builderCommand, "builder-command", "", "path to the external geometry builder executable")
	cmd.Flags().StringArrayVar(&builderArgs, "builder-arg", nil, "extra leading argument passed to the geometry builder (repeatable)")
	return cmd
}

func runResolve(cmd *cobra.Command, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if NewSourceReader == nil {
		return errors.New("osmresolve: no source reader registered; this build was not wired with an OSM extract decoder")
	}
	if builderCommand == "" {
		return errors.New("osmresolve: --builder-command is required")
	}

	log := newLogger()
	ctx := cmd.Context()

	store, closeStore, err := openResolveStore(*cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	reader, err := NewSourceReader(cfg.SrcFile, 0)
	if err != nil {
		return err
	}

	depReader, err := resolve.NewDependencyReader(store, dependencyCacheSize)
	if err != nil {
		return err
	}

	emitter, err := resolve.NewEmitter(cfg.DestDir)
	if err != nil {
		return err
	}
	defer emitter.Close()

	builder := resolve.BuilderAdapter{Command: builderCommand, Args: builderArgs}
	pass := resolve.NewPass(*cfg, depReader, emitter, builder, log)
	return pass.Run(ctx, reader)
}

// openResolveStore opens either the single merged store or a FederatedStore
// over all per-shard stores under cfg.DestDir, depending on how indexing was
// run.
func openResolveStore(cfg config.Config) (osmkv.Getter, func(), error) {
	if cfg.MergeShards {
		path := filepath.Join(cfg.DestDir, osmkv.MergedFileName("osmidx", "db"))
		store, err := osmkv.OpenBoltStore(path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	}

	mode := osmkv.HashMode
	router := osmkv.NewRouter(mode, cfg.NumShards)
	shards := make(map[int]osmkv.Getter, cfg.NumShards)
	var opened []*osmkv.BoltStore
	for shard := 0; shard < cfg.NumShards; shard++ {
		path := filepath.Join(cfg.DestDir, osmkv.ShardFileName("osmidx", "db", shard, cfg.NumShards))
		store, err := osmkv.OpenBoltStore(path)
		if err != nil {
			for _, s := range opened {
				s.Close()
			}
			return nil, nil, err
		}
		opened = append(opened, store)
		shards[shard] = store
	}
	federated := osmkv.NewFederatedStore(router, shards)
	return federated, func() {
		for _, s := range opened {
			s.Close()
		}
	}, nil
}
