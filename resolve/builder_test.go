// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.

package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/osmtemporal/resolver/internal/errs"
	"github.com/osmtemporal/resolver/osmkv"
)

// These tests spawn /bin/sh as a stand-in builder subprocess, exercising
// BuilderAdapter's real process-spawn and TSV-parsing path without depending
// on an actual geometry-building binary being present.

func TestBuilderAdapterParsesTsvOutput(t *testing.T) {
	adapter := BuilderAdapter{
		Command: "/bin/sh",
		Args:    []string{"-c", `printf "1\tgeomA\n2\tgeomB\n" > "$3"`},
	}

	out, err := adapter.Build(context.Background(), osmkv.Way, "unused.osm", []int{1, 2})
	require.NoError(t, err)
	require.Equal(t, map[int]string{1: "geomA", 2: "geomB"}, out)
}

func TestBuilderAdapterMissingIDsAreAbsentNotError(t *testing.T) {
	adapter := BuilderAdapter{
		Command: "/bin/sh",
		Args:    []string{"-c", `printf "1\tgeomA\n" > "$3"`},
	}

	out, err := adapter.Build(context.Background(), osmkv.Way, "unused.osm", []int{1, 2})
	require.NoError(t, err)
	require.Equal(t, map[int]string{1: "geomA"}, out)
	_, ok := out[2]
	require.False(t, ok)
}

func TestBuilderAdapterNonZeroExitIsPermanentError(t *testing.T) {
	adapter := BuilderAdapter{
		Command: "/bin/sh",
		Args:    []string{"-c", `echo "boom" >&2; exit 3`},
	}

	_, err := adapter.Build(context.Background(), osmkv.Relation, "unused.osm", []int{1})
	require.Error(t, err)

	var biErr *errs.BuilderInvocationError
	require.ErrorAs(t, err, &biErr)
	require.Equal(t, 3, biErr.ExitCode)
	require.Contains(t, biErr.Stderr, "boom")
}
