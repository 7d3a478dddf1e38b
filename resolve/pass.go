// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.

package resolve

import (
	"context"
	"os"
	"path/filepath"

	"github.com/osmtemporal/resolver/internal/config"
	"github.com/osmtemporal/resolver/internal/logging"
	"github.com/osmtemporal/resolver/osmkv"
	"github.com/osmtemporal/resolver/osmstream"
)

// Builder is the narrow contract Pass needs from a geometry builder;
// BuilderAdapter is the production implementation that shells out to the
// external subprocess, and tests substitute a fake.
type Builder interface {
	Build(ctx context.Context, kind osmkv.Kind, osmFile string, ids []int) (map[int]string, error)
}

// Pass is the single-threaded resolution pass: the batch buffer and its
// surrogate-ID allocator are sequentially consistent, and the external
// geometry builder is invoked synchronously per batch, so no parallelism
// is introduced here.
type Pass struct {
	batch    *Batch
	resolver *Resolver
	emitter  *Emitter
	builder  Builder
	tempDir  string
	log      logging.Logger
}

// NewPass wires the batch buffer, dependency resolver, emitter, and
// builder adapter for one resolution run.
func NewPass(cfg config.Config, reader *DependencyReader, emitter *Emitter, builder Builder, log logging.Logger) *Pass {
	return &Pass{
		batch:    NewBatch(cfg.WaysBatchSize, cfg.RelationsBatchSize, cfg.BatchByteCap),
		resolver: NewResolver(reader, cfg.RecursiveRelations, log),
		emitter:  emitter,
		builder:  builder,
		tempDir:  cfg.DestDir,
		log:      log,
	}
}

// Run streams every node/way/relation version once, emitting nodes
// directly and routing ways/relations through the batch buffer.
func (p *Pass) Run(ctx context.Context, reader osmstream.Reader) error {
	visitor := osmstream.VisitorFunc{
		Node: func(n osmstream.NodeVersion) error {
			return p.emitter.EmitNode(n)
		},
		Way: func(w osmstream.WayVersion) error {
			deps := p.resolver.ResolveWay(w)
			p.batch.AddMainWay(w, deps)
			if p.batch.IsFull(false) {
				return p.flush(ctx)
			}
			return nil
		},
		Relation: func(r osmstream.RelationVersion) error {
			deps := p.resolver.ResolveRelation(r)
			if !deps.HasRelationMember {
				// Only relations with at least one Relation member are
				// enqueued for geometry building; others bypass the batch
				// entirely and are emitted without geometry.
				return p.emitter.EmitRelation(r, nil)
			}
			p.batch.AddMainRelation(r, deps.Nodes, deps.Ways, deps.WayNodes)
			if p.batch.IsFull(false) {
				return p.flush(ctx)
			}
			return nil
		},
	}

	if err := reader.Read(ctx, visitor); err != nil {
		return err
	}
	if !p.batch.Empty() {
		return p.flush(ctx)
	}
	return nil
}

// flush writes the batch's sorted OSM file, invokes the builder once per
// kind present, restores geometries onto the main entities, and emits them.
func (p *Pass) flush(ctx context.Context) error {
	osmFile := filepath.Join(p.tempDir, "osmresolve-batch.osm")
	if err := p.batch.WriteSortedOsmFile(osmFile); err != nil {
		return err
	}
	defer os.Remove(osmFile)

	wayGeom := map[int]string{}
	if wayIDs := p.batch.GetTargetSimplifiedIds(osmkv.Way); len(wayIDs) > 0 {
		g, err := p.builder.Build(ctx, osmkv.Way, osmFile, wayIDs)
		if err != nil {
			return err
		}
		wayGeom = g
	}

	relGeom := map[int]string{}
	if relIDs := p.batch.GetTargetSimplifiedIds(osmkv.Relation); len(relIDs) > 0 {
		g, err := p.builder.Build(ctx, osmkv.Relation, osmFile, relIDs)
		if err != nil {
			return err
		}
		relGeom = g
	}

	var emitErr error
	p.batch.Restore(wayGeom, relGeom, func(w ResolvedWay, r ResolvedRelation, isWay bool) {
		if emitErr != nil {
			return
		}
		if isWay {
			emitErr = p.emitter.EmitWay(w.Version, w.Geometry)
			return
		}
		emitErr = p.emitter.EmitRelation(r.Version, r.Geometry)
	})
	if emitErr != nil {
		return emitErr
	}

	p.batch.Reset()
	return nil
}
