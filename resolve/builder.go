// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.

package resolve

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/osmtemporal/resolver/internal/errs"
	"github.com/osmtemporal/resolver/osmkv"
)

// BuilderAdapter invokes the external geometry builder subprocess: a
// collaborator process that reads an OSM file and a set of target IDs and
// writes back simplified_id -> GeoJSON lines.
type BuilderAdapter struct {
	// Command is the builder executable path; Args are extra leading
	// arguments before the positional ones this adapter appends.
	Command string
	Args    []string
}

// Build runs the builder for one kind against one batch's OSM file, asking
// for geometries of the given simplified IDs, and returns the
// simplified_id -> GeoJSON map it produced. A missing ID is simply absent
// from the map, not an error. Spawn failures (executable not found
// yet, resource exhaustion) are retried with bounded backoff; a non-zero
// exit code is never retried and becomes an immediate BuilderInvocationError.
func (b BuilderAdapter) Build(ctx context.Context, kind osmkv.Kind, osmFile string, ids []int) (map[int]string, error) {
	outFile, err := os.CreateTemp("", "osmresolve-builder-out-*.tsv")
	if err != nil {
		return nil, err
	}
	outPath := outFile.Name()
	outFile.Close()
	defer os.Remove(outPath)

	idList := make([]string, len(ids))
	for i, id := range ids {
		idList[i] = strconv.Itoa(id)
	}

	kindArg := string(kind)
	args := append(append([]string{}, b.Args...), osmFile, kindArg, strings.Join(idList, ","), outPath)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second

	var lastErr error
	err = backoff.Retry(func() error {
		cmd := exec.CommandContext(ctx, b.Command, args...)
		var stderr strings.Builder
		cmd.Stderr = &stderr

		runErr := cmd.Run()
		if runErr == nil {
			return nil
		}

		exitErr, isExit := runErr.(*exec.ExitError)
		if isExit {
			// Non-zero exit is a hard, non-retryable failure.
			lastErr = &errs.BuilderInvocationError{
				Kind:     errs.Kind(kind),
				ExitCode: exitErr.ExitCode(),
				Stderr:   stderr.String(),
			}
			return backoff.Permanent(lastErr)
		}
		// Spawn-level failure (executable missing transiently, fork
		// failure under load): retry.
		lastErr = fmt.Errorf("builder spawn failed: %w", runErr)
		return lastErr
	}, bo)
	if err != nil {
		if lastErr != nil {
			if biErr, ok := lastErr.(*errs.BuilderInvocationError); ok {
				return nil, biErr
			}
		}
		return nil, &errs.BuilderInvocationError{Kind: errs.Kind(kind), Cause: err}
	}

	return parseBuilderOutput(outPath)
}

func parseBuilderOutput(path string) (map[int]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := map[int]string{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 {
			continue
		}
		id, err := strconv.Atoi(parts[0])
		if err != nil {
			continue
		}
		out[id] = parts[1]
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
