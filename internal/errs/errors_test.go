// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.

package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreWriteErrorUnwraps(t *testing.T) {
	cause := errors.New("disk full")
	err := &StoreWriteError{Shard: 3, Cause: cause}
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "shard=3")
}

func TestBuilderInvocationErrorFormatsExitCode(t *testing.T) {
	err := &BuilderInvocationError{Kind: KindWay, ExitCode: 2, Stderr: "bad input"}
	require.Contains(t, err.Error(), "exit=2")
	require.Contains(t, err.Error(), "bad input")
}

func TestShardConfigErrorMessage(t *testing.T) {
	err := &ShardConfigError{NumShards: 4, NumWorkers: 3, Reason: "must divide evenly"}
	require.Contains(t, err.Error(), "must divide evenly")
}
