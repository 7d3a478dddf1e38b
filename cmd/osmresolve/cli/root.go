// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.

// Package cli is the CLI surface, built on cobra, composing subcommands
// and persistent flags the way a cobra-based binary typically does.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/osmtemporal/resolver/internal/config"
	"github.com/osmtemporal/resolver/internal/logging"
)

// NewSourceReader and the builder command are set by a real deployment's
// main package; this module defines the contract (the entity
// stream reader and the geometry builder are external collaborators) but
// does not ship a PBF/XML decoder or a geometry builder binary itself.
var debug bool

// Execute builds and runs the root command.
func Execute() error {
	root := newRootCommand()
	return root.Execute()
}

func newRootCommand() *cobra.Command {
	cfg := config.Default()

	root := &cobra.Command{
		Use:   "osmresolve",
		Short: "Index and resolve versioned OpenStreetMap history extracts",
		Long: "osmresolve ingests a full-history OSM extract into a sharded, " +
			"timestamp-versioned index, then resolves way and relation " +
			"geometries against an external builder.",
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(newIndexCommand(&cfg))
	root.AddCommand(newResolveCommand(&cfg))
	root.AddCommand(newRunCommand(&cfg))
	return root
}

func newLogger() logging.Logger {
	return logging.New(debug)
}
