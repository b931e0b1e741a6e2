// Package ingest defines the common entity-construction contract (C13,
// §4.11) that every alternate input-format adapter (GeoJSON, Shapefile,
// GeoParquet) implements, and the shared BuildStore helper that folds
// any such source into a finalized entitystore.Store the same way
// pkg/builder folds a PBF stream. Unlike PBF, these sources carry
// already-global (not delta-encoded, not locally-interned) ids and tag
// pairs, so BuildStore skips pkg/builder's un-delta/string-table
// translation stages entirely.
package ingest

import (
	"context"

	"github.com/nucleus/osmix/pkg/entitystore"
	"github.com/nucleus/osmix/pkg/osmerr"
	"github.com/nucleus/osmix/pkg/progress"
	"github.com/nucleus/osmix/pkg/strtable"
)

// EntitySource is the pull-based contract every format adapter
// implements, grounded on pkg/entitystore's own Iterator[T] pull
// contract (Next/Value/Err/Close) so pkg/builder-style consumers never
// special-case the source format.
type EntitySource interface {
	Nodes(ctx context.Context) (entitystore.NodeIterator, error)
	Ways(ctx context.Context) (entitystore.WayIterator, error)
	Relations(ctx context.Context) (entitystore.RelationIterator, error)
	// Partial reports whether this source is a bounded extract, which
	// relaxes I3's referential closure for relation members the same
	// way a clipped PBF extract does.
	Partial() bool
}

// BuildStore drains src's three iterators, in the nodes-then-ways-then-
// relations order every adapter is required to honor, into a finalized
// Store using strs as the resulting store's string table. strs must be
// the same table the adapter interned its RawNode/RawWay/RawRelation
// tag pairs against; BuildStore never interns itself.
func BuildStore(ctx context.Context, strs *strtable.Table, src EntitySource, reporter *progress.Reporter) (*entitystore.Store, error) {
	nodeBuilder := entitystore.NewNodeBuilder()
	nit, err := src.Nodes(ctx)
	if err != nil {
		return nil, err
	}
	defer nit.Close()
	var seen int64
	for nit.Next() {
		if err := ctx.Err(); err != nil {
			return nil, osmerr.Cancelled(err)
		}
		n := nit.Value()
		nodeBuilder.Add(n.ID, n.Lon, n.Lat, n.Tags)
		seen++
		reporter.Report(progress.Event{Stage: "ingest.source.nodes", Processed: seen})
	}
	if err := nit.Err(); err != nil {
		return nil, err
	}
	nodeColumn, err := nodeBuilder.Finalize()
	if err != nil {
		return nil, err
	}

	wayBuilder := entitystore.NewWayBuilder()
	wit, err := src.Ways(ctx)
	if err != nil {
		return nil, err
	}
	defer wit.Close()
	seen = 0
	for wit.Next() {
		if err := ctx.Err(); err != nil {
			return nil, osmerr.Cancelled(err)
		}
		w := wit.Value()
		wayBuilder.Add(w.ID, w.Refs, w.Tags)
		seen++
		reporter.Report(progress.Event{Stage: "ingest.source.ways", Processed: seen})
	}
	if err := wit.Err(); err != nil {
		return nil, err
	}
	wayColumn, err := wayBuilder.Finalize(nodeColumn)
	if err != nil {
		return nil, err
	}

	relBuilder := entitystore.NewRelationBuilder()
	rit, err := src.Relations(ctx)
	if err != nil {
		return nil, err
	}
	defer rit.Close()
	seen = 0
	for rit.Next() {
		if err := ctx.Err(); err != nil {
			return nil, osmerr.Cancelled(err)
		}
		r := rit.Value()
		members := make([]entitystore.Member, len(r.Members))
		for i, m := range r.Members {
			members[i] = entitystore.Member{Kind: m.Kind, Ref: m.Ref, Role: m.Role}
		}
		relBuilder.Add(r.ID, members, r.Tags)
		seen++
		reporter.Report(progress.Event{Stage: "ingest.source.relations", Processed: seen})
	}
	if err := rit.Err(); err != nil {
		return nil, err
	}
	relColumn, err := relBuilder.Finalize()
	if err != nil {
		return nil, err
	}

	reporter.Final(progress.Event{Stage: "ingest.source", Processed: 1, Total: 1})
	return &entitystore.Store{Strings: strs, Nodes: nodeColumn, Ways: wayColumn, Rels: relColumn, Partial: src.Partial()}, nil
}

// SliceIterator adapts a plain slice to the entitystore.Iterator[T]
// contract, the shape every in-memory-built adapter (GeoJSON,
// Shapefile, GeoParquet, having already decoded their whole source
// into raw entity slices) uses to satisfy EntitySource's iterator
// methods without a bespoke streaming decoder per format.
type SliceIterator[T any] struct {
	items []T
	pos   int
}

// NewSliceIterator wraps items as an Iterator[T].
func NewSliceIterator[T any](items []T) *SliceIterator[T] {
	return &SliceIterator[T]{items: items, pos: -1}
}

func (it *SliceIterator[T]) Next() bool {
	it.pos++
	return it.pos < len(it.items)
}

func (it *SliceIterator[T]) Value() T { return it.items[it.pos] }

func (it *SliceIterator[T]) Err() error { return nil }

func (it *SliceIterator[T]) Close() error { return nil }
