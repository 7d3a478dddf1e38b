// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.

package main

import (
	"fmt"
	"os"

	"github.com/osmtemporal/resolver/cmd/osmresolve/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
