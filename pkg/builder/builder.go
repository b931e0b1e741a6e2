// Package builder implements the Store Builder (C8): it consumes a
// pkg/pbf primitive-block sequence, translates each block's local
// string table into the shared global one, un-deltas coordinates and
// refs, and populates pkg/entitystore's three column builders in
// strict nodes-then-ways-then-relations order before finalizing.
package builder

import (
	"context"
	"fmt"
	"io"

	"github.com/nucleus/osmix/pkg/entitystore"
	"github.com/nucleus/osmix/pkg/osmerr"
	"github.com/nucleus/osmix/pkg/pbf"
	"github.com/nucleus/osmix/pkg/progress"
	"github.com/nucleus/osmix/pkg/strtable"
	"github.com/nucleus/osmix/pkg/tagstore"
)

// NodeFilter, when non-nil, decides whether a node should be kept.
type NodeFilter func(id int64, lon, lat float64, tags map[string]string) bool

// WayFilter, when non-nil, decides whether a way should be kept.
type WayFilter func(id int64, refs []int64, tags map[string]string) bool

// RelationFilter, when non-nil, decides whether a relation should be kept.
type RelationFilter func(id int64, tags map[string]string) bool

// Options configures a single Ingest call.
type Options struct {
	NodeFilter     NodeFilter
	WayFilter      WayFilter
	RelationFilter RelationFilter
	Reporter       *progress.Reporter
	// ForcePartial marks the resulting Store as partial (I3's dangling
	// relation members tolerated), for a caller that knows the extract
	// is bounded (e.g. a bbox clip). It is the only source of the flag:
	// Ingest does not inspect the PBF header for it.
	ForcePartial bool
	// Concurrency bounds how many blocks pkg/pbf decompresses and
	// decodes in parallel (§5). Below 1 is treated as 1 (sequential).
	Concurrency int
}

// stage tracks where in the nodes-then-ways-then-relations ordering
// contract (§4.8) the builder currently is.
type stage int

const (
	stageNodes stage = iota
	stageWays
	stageRelations
)

type builder struct {
	strings *strtable.Table
	nodes   *entitystore.NodeBuilder
	ways    *entitystore.WayBuilder
	rels    *entitystore.RelationBuilder

	opts Options

	cur        stage
	nodeColumn *entitystore.NodeColumn
	wayColumn  *entitystore.WayColumn
	nodesSeen  int64
	waysSeen   int64
	relsSeen   int64
}

// Ingest reads a full PBF stream from r and returns the finalized
// Store. It is the only entry point into pkg/builder (§4.8's four
// stages run internally). Cancellation is checked between blocks and
// between groups.
func Ingest(ctx context.Context, r io.Reader, opts Options) (*entitystore.Store, error) {
	rd, err := pbf.NewReaderConcurrency(r, opts.Concurrency)
	if err != nil {
		return nil, err
	}
	defer rd.Close()

	b := &builder{
		strings: strtable.New(),
		nodes:   entitystore.NewNodeBuilder(),
		ways:    entitystore.NewWayBuilder(),
		rels:    entitystore.NewRelationBuilder(),
		opts:    opts,
	}

	// Whether a store is partial (I3's dangling relation members
	// tolerated) is a property of how the extract was cut, not
	// something the standard header fields declare reliably; callers
	// that clip a bbox extract set opts.ForcePartial explicitly.
	partial := opts.ForcePartial

	for rd.Next() {
		if err := ctx.Err(); err != nil {
			return nil, osmerr.Cancelled(err)
		}
		block := rd.Value()
		if err := b.ingestBlock(ctx, block); err != nil {
			return nil, err
		}
		b.opts.Reporter.Report(progress.Event{Stage: "ingest", Processed: b.nodesSeen + b.waysSeen + b.relsSeen})
	}
	if err := rd.Err(); err != nil {
		return nil, err
	}

	store, err := b.finish(partial)
	if err != nil {
		return nil, err
	}
	b.opts.Reporter.Final(progress.Event{Stage: "ingest", Processed: b.nodesSeen + b.waysSeen + b.relsSeen, Total: b.nodesSeen + b.waysSeen + b.relsSeen})
	return store, nil
}

func (b *builder) ingestBlock(ctx context.Context, block *pbf.PrimitiveBlock) error {
	localToGlobal := make([]uint32, len(block.StringTable))
	for i, s := range block.StringTable {
		localToGlobal[i] = b.strings.Intern(string(s))
	}

	for gi, group := range block.Groups {
		if err := ctx.Err(); err != nil {
			return osmerr.Cancelled(err)
		}
		switch {
		case group.Dense != nil:
			if b.cur != stageNodes {
				return osmerr.CorruptInput("builder.order", fmt.Errorf("dense nodes group %d after ways/relations began", gi))
			}
			if err := b.ingestDense(group.Dense, block, localToGlobal); err != nil {
				return err
			}
		case len(group.Ways) > 0:
			if b.cur == stageNodes {
				if err := b.finishNodes(); err != nil {
					return err
				}
			}
			if b.cur == stageRelations {
				return osmerr.CorruptInput("builder.order", fmt.Errorf("ways group %d after relations began", gi))
			}
			if err := b.ingestWays(group.Ways, localToGlobal); err != nil {
				return err
			}
		case len(group.Relations) > 0:
			if b.cur == stageNodes {
				if err := b.finishNodes(); err != nil {
					return err
				}
			}
			if b.cur == stageWays {
				if err := b.finishWays(); err != nil {
					return err
				}
			}
			if err := b.ingestRelations(group.Relations, localToGlobal); err != nil {
				return err
			}
		}
	}
	return nil
}

func translateTags(keys, vals []uint32, localToGlobal []uint32) ([]tagstore.Pair, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	out := make([]tagstore.Pair, len(keys))
	for i := range keys {
		k, v := keys[i], vals[i]
		if int(k) >= len(localToGlobal) || int(v) >= len(localToGlobal) {
			return nil, osmerr.CorruptInput("builder.tags", fmt.Errorf("tag string id out of range: k=%d v=%d table=%d", k, v, len(localToGlobal)))
		}
		out[i] = tagstore.Pair{KeyID: localToGlobal[k], ValueID: localToGlobal[v]}
	}
	return out, nil
}

func tagsToMap(strings *strtable.Table, pairs []tagstore.Pair) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, _ := strings.Lookup(p.KeyID)
		v, _ := strings.Lookup(p.ValueID)
		m[k] = v
	}
	return m
}

func (b *builder) ingestDense(d *pbf.DenseNodes, block *pbf.PrimitiveBlock, localToGlobal []uint32) error {
	granularity := int64(block.Granularity)
	if granularity == 0 {
		granularity = 100
	}
	var id, lat, lon int64
	kvPos := 0
	for i := range d.ID {
		id += d.ID[i]
		lat += d.Lat[i]
		lon += d.Lon[i]

		latDeg := 1e-9 * float64(block.LatOffset+granularity*lat)
		lonDeg := 1e-9 * float64(block.LonOffset+granularity*lon)

		var pairs []tagstore.Pair
		if len(d.KeysVals) > 0 {
			for kvPos < len(d.KeysVals) && d.KeysVals[kvPos] != 0 {
				if kvPos+1 >= len(d.KeysVals) {
					return osmerr.CorruptInput("builder.densenodes", fmt.Errorf("node %d: truncated keys_vals", id))
				}
				k, v := d.KeysVals[kvPos], d.KeysVals[kvPos+1]
				if int(k) >= len(localToGlobal) || int(v) >= len(localToGlobal) {
					return osmerr.CorruptInput("builder.densenodes", fmt.Errorf("node %d: tag string id out of range", id))
				}
				pairs = append(pairs, tagstore.Pair{KeyID: localToGlobal[k], ValueID: localToGlobal[v]})
				kvPos += 2
			}
			kvPos++ // skip the terminating 0
		}

		b.nodesSeen++
		if b.opts.NodeFilter != nil {
			tagMap := tagsToMap(b.strings, pairs)
			if !b.opts.NodeFilter(id, lonDeg, latDeg, tagMap) {
				continue
			}
		}
		b.nodes.Add(id, lonDeg, latDeg, pairs)
	}
	return nil
}

func (b *builder) ingestWays(ways []pbf.Way, localToGlobal []uint32) error {
	for _, w := range ways {
		pairs, err := translateTags(w.Keys, w.Vals, localToGlobal)
		if err != nil {
			return err
		}
		refs := make([]int64, len(w.Refs))
		var cum int64
		for i, d := range w.Refs {
			cum += d
			refs[i] = cum
		}
		refs = dedupAdjacent(refs)

		b.waysSeen++
		if b.opts.WayFilter != nil {
			tagMap := tagsToMap(b.strings, pairs)
			if !b.opts.WayFilter(w.ID, refs, tagMap) {
				continue
			}
		}
		b.ways.Add(w.ID, refs, pairs)
	}
	return nil
}

func (b *builder) ingestRelations(rels []pbf.Relation, localToGlobal []uint32) error {
	for _, r := range rels {
		pairs, err := translateTags(r.Keys, r.Vals, localToGlobal)
		if err != nil {
			return err
		}
		members := make([]entitystore.Member, len(r.MemIDs))
		var cum int64
		for i := range r.MemIDs {
			cum += r.MemIDs[i]
			role := r.RolesSid[i]
			if int(role) >= len(localToGlobal) {
				return osmerr.CorruptInput("builder.relation", fmt.Errorf("relation %d: role string id out of range", r.ID))
			}
			var kind entitystore.MemberKind
			switch r.Types[i] {
			case pbf.MemberTypeNode:
				kind = entitystore.MemberNode
			case pbf.MemberTypeWay:
				kind = entitystore.MemberWay
			case pbf.MemberTypeRelation:
				kind = entitystore.MemberRelation
			default:
				return osmerr.CorruptInput("builder.relation", fmt.Errorf("relation %d: unknown member type %d", r.ID, r.Types[i]))
			}
			members[i] = entitystore.Member{Kind: kind, Ref: cum, Role: localToGlobal[role]}
		}
		members = dedupAdjacentMembers(members)

		b.relsSeen++
		if b.opts.RelationFilter != nil {
			tagMap := tagsToMap(b.strings, pairs)
			if !b.opts.RelationFilter(r.ID, tagMap) {
				continue
			}
		}
		b.rels.Add(r.ID, members, pairs)
	}
	return nil
}

// dedupAdjacent strips identical consecutive refs (I4).
func dedupAdjacent(refs []int64) []int64 {
	if len(refs) < 2 {
		return refs
	}
	out := refs[:1]
	for _, r := range refs[1:] {
		if r != out[len(out)-1] {
			out = append(out, r)
		}
	}
	return out
}

func dedupAdjacentMembers(members []entitystore.Member) []entitystore.Member {
	if len(members) < 2 {
		return members
	}
	out := members[:1]
	for _, m := range members[1:] {
		last := out[len(out)-1]
		if m.Kind != last.Kind || m.Ref != last.Ref || m.Role != last.Role {
			out = append(out, m)
		}
	}
	return out
}

func (b *builder) finishNodes() error {
	col, err := b.nodes.Finalize()
	if err != nil {
		return err
	}
	b.nodeColumn = col
	b.cur = stageWays
	return nil
}

func (b *builder) finishWays() error {
	if b.nodeColumn == nil {
		if err := b.finishNodes(); err != nil {
			return err
		}
	}
	col, err := b.ways.Finalize(b.nodeColumn)
	if err != nil {
		return err
	}
	b.wayColumn = col
	b.cur = stageRelations
	return nil
}

func (b *builder) finish(partial bool) (*entitystore.Store, error) {
	if b.cur == stageNodes {
		if err := b.finishNodes(); err != nil {
			return nil, err
		}
	}
	if b.cur == stageWays {
		if err := b.finishWays(); err != nil {
			return nil, err
		}
	}
	relColumn, err := b.rels.Finalize()
	if err != nil {
		return nil, err
	}

	return &entitystore.Store{
		Strings: b.strings,
		Nodes:   b.nodeColumn,
		Ways:    b.wayColumn,
		Rels:    relColumn,
		Partial: partial,
	}, nil
}
