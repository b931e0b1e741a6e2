package entitystore

import (
	"github.com/nucleus/osmix/pkg/geo"
	"github.com/nucleus/osmix/pkg/idindex"
	"github.com/nucleus/osmix/pkg/osmerr"
	"github.com/nucleus/osmix/pkg/rtree"
	"github.com/nucleus/osmix/pkg/tagstore"
)

// WayBuilder accumulates ways in append order during ingestion.
type WayBuilder struct {
	ids       []int64
	refs      []int64
	refsStart []uint32
	tags      *tagstore.Builder
}

// NewWayBuilder returns an empty way builder.
func NewWayBuilder() *WayBuilder {
	b := &WayBuilder{tags: tagstore.NewBuilder()}
	b.refsStart = append(b.refsStart, 0)
	return b
}

// Add appends one way. refs is copied; no-adjacent-duplicate
// enforcement (I4) is the caller's responsibility (the builder strips
// them per §4.8's ingest pipeline, before they reach the column).
func (b *WayBuilder) Add(id int64, refs []int64, tags []tagstore.Pair) int {
	b.ids = append(b.ids, id)
	b.refs = append(b.refs, refs...)
	b.refsStart = append(b.refsStart, uint32(len(b.refs)))
	b.tags.Append(tags)
	return len(b.ids) - 1
}

// Len returns the number of ways appended so far.
func (b *WayBuilder) Len() int { return len(b.ids) }

// Finalize sorts ways by id, permutes the CSR ref buffer and tags to
// match, computes each way's bbox by resolving refs through nodes
// (skipping any ref that does not resolve; DanglingRef is only raised
// when a caller asks for coordinates), and builds the way-bbox R-tree.
func (b *WayBuilder) Finalize(nodes *NodeColumn) (*WayColumn, error) {
	if err := checkUnique("way", b.ids); err != nil {
		return nil, err
	}
	idx, perm := idindex.Build(b.ids)
	n := len(b.ids)

	refs := make([]int64, 0, len(b.refs))
	refsStart := make([]uint32, n+1)
	origIndex := make([]int, n)
	boxes := make([]geo.BBox, n)

	for i, old := range perm {
		origIndex[i] = old
		start, end := b.refsStart[old], b.refsStart[old+1]
		wayRefs := b.refs[start:end]
		refsStart[i] = uint32(len(refs))
		refs = append(refs, wayRefs...)

		box := geo.Empty()
		for _, ref := range wayRefs {
			if ni, ok := nodes.GetByID(ref); ok {
				lon, lat := nodes.LonLat(ni)
				box.Expand(geo.Point{Lon: lon, Lat: lat})
			}
		}
		boxes[i] = box
	}
	refsStart[n] = uint32(len(refs))

	return &WayColumn{
		ids:       idx,
		refs:      refs,
		refsStart: refsStart,
		origIndex: origIndex,
		bbox:      boxes,
		tags:      b.tags.Finalize(),
		tree:      rtree.Build(boxes),
	}, nil
}

// WayColumn is the finalized, read-only way entity column (C5).
type WayColumn struct {
	ids       *idindex.Index
	refs      []int64
	refsStart []uint32
	origIndex []int
	bbox      []geo.BBox
	tags      *tagstore.Store
	tree      *rtree.Tree

	// incidence[nodeInternalIndex] is the ascending list of way
	// internal indexes referencing that node, built on demand by
	// BuildIncidence (§4.5's "optional, built on demand").
	incidence map[int][]int
}

// Len returns the number of ways in the column.
func (c *WayColumn) Len() int { return c.ids.Len() }

// GetByID resolves id to its internal index, or false if unknown.
func (c *WayColumn) GetByID(id int64) (int, bool) { return c.ids.IndexFromID(id) }

// GetByIndex returns the id at internal index.
func (c *WayColumn) GetByIndex(index int) int64 { return c.ids.IDFromIndex(index) }

// Refs returns the raw node-id refs of the way at internal index, in order.
func (c *WayColumn) Refs(index int) []int64 {
	return c.refs[c.refsStart[index]:c.refsStart[index+1]]
}

// BBox returns the way's bounding box at internal index.
func (c *WayColumn) BBox(index int) geo.BBox { return c.bbox[index] }

// TagsOf returns the sorted (key,value) pairs for the way at internal index.
func (c *WayColumn) TagsOf(index int) []tagstore.Pair { return c.tags.TagsOf(c.origIndex[index]) }

// Tags returns the column's tag store.
func (c *WayColumn) Tags() *tagstore.Store { return c.tags }

// TagIndex returns the tag-store entity index backing internal index.
func (c *WayColumn) TagIndex(index int) int { return c.origIndex[index] }

// WithinBBox returns way indexes whose bbox intersects the query bbox.
func (c *WayColumn) WithinBBox(bbox geo.BBox) []int { return c.tree.Search(bbox) }

// GetCoordinates resolves every ref of the way at internal index
// through nodes, in order, raising DanglingRef on the first ref that
// does not resolve to a live node (I2).
func (c *WayColumn) GetCoordinates(index int, nodes *NodeColumn) ([]geo.Point, error) {
	wayID := c.GetByIndex(index)
	refs := c.Refs(index)
	out := make([]geo.Point, 0, len(refs))
	for _, ref := range refs {
		ni, ok := nodes.GetByID(ref)
		if !ok {
			return nil, osmerr.DanglingRef("way", wayID, ref)
		}
		out = append(out, nodes.Point(ni))
	}
	return out, nil
}

// BuildIncidence constructs the node-to-ways back-index (§4.5), mapping
// each node internal index to the ascending list of way internal
// indexes that reference it. Built on demand (pkg/changeset's node
// dedup calls it) and kept once built.
func (c *WayColumn) BuildIncidence(nodes *NodeColumn) {
	if c.incidence != nil {
		return
	}
	inc := make(map[int][]int)
	for wi := 0; wi < c.Len(); wi++ {
		for _, ref := range c.Refs(wi) {
			if ni, ok := nodes.GetByID(ref); ok {
				inc[ni] = append(inc[ni], wi)
			}
		}
	}
	c.incidence = inc
}

// WaysContainingNode returns the ascending list of way internal indexes
// incident on the given node internal index. BuildIncidence must have
// been called first; returns nil otherwise.
func (c *WayColumn) WaysContainingNode(nodeIndex int) []int { return c.incidence[nodeIndex] }
