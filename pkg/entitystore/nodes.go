package entitystore

import (
	"sort"

	"github.com/nucleus/osmix/pkg/geo"
	"github.com/nucleus/osmix/pkg/idindex"
	"github.com/nucleus/osmix/pkg/rtree"
	"github.com/nucleus/osmix/pkg/tagstore"
)

// NodeBuilder accumulates nodes in append order during ingestion.
type NodeBuilder struct {
	ids  []int64
	lon  []float64
	lat  []float64
	tags *tagstore.Builder
}

// NewNodeBuilder returns an empty node builder.
func NewNodeBuilder() *NodeBuilder {
	return &NodeBuilder{tags: tagstore.NewBuilder()}
}

// Add appends one node. Returns the node's append-order position.
func (b *NodeBuilder) Add(id int64, lon, lat float64, tags []tagstore.Pair) int {
	b.ids = append(b.ids, id)
	b.lon = append(b.lon, lon)
	b.lat = append(b.lat, lat)
	b.tags.Append(tags)
	return len(b.ids) - 1
}

// Len returns the number of nodes appended so far.
func (b *NodeBuilder) Len() int { return len(b.ids) }

// Finalize sorts nodes by id (I1, I5), permutes the coordinate arrays
// to match, and builds the point R-tree (I6) and tag store.
func (b *NodeBuilder) Finalize() (*NodeColumn, error) {
	if err := checkUnique("node", b.ids); err != nil {
		return nil, err
	}
	idx, perm := idindex.Build(b.ids)
	n := len(b.ids)

	lon := make([]float64, n)
	lat := make([]float64, n)
	origIndex := make([]int, n)
	boxes := make([]geo.BBox, n)
	for i, old := range perm {
		lon[i] = b.lon[old]
		lat[i] = b.lat[old]
		origIndex[i] = old
		boxes[i] = geo.PointBBox(lon[i], lat[i])
	}

	return &NodeColumn{
		ids:       idx,
		lon:       lon,
		lat:       lat,
		origIndex: origIndex,
		tags:      b.tags.Finalize(),
		tree:      rtree.Build(boxes),
	}, nil
}

// NodeColumn is the finalized, read-only node entity column (C4).
type NodeColumn struct {
	ids       *idindex.Index
	lon       []float64
	lat       []float64
	origIndex []int // origIndex[i] = append-order position of node now at index i; indexes tags.
	tags      *tagstore.Store
	tree      *rtree.Tree
}

// Len returns the number of nodes in the column.
func (c *NodeColumn) Len() int { return c.ids.Len() }

// GetByID resolves id to its internal index, or false if unknown.
func (c *NodeColumn) GetByID(id int64) (int, bool) { return c.ids.IndexFromID(id) }

// GetByIndex returns the id at internal index.
func (c *NodeColumn) GetByIndex(index int) int64 { return c.ids.IDFromIndex(index) }

// LonLat returns the coordinate of the node at internal index.
func (c *NodeColumn) LonLat(index int) (lon, lat float64) { return c.lon[index], c.lat[index] }

// Point returns the node at internal index as a geo.Point.
func (c *NodeColumn) Point(index int) geo.Point { return geo.Point{Lon: c.lon[index], Lat: c.lat[index]} }

// TagsOf returns the sorted (key,value) pairs for the node at internal index.
func (c *NodeColumn) TagsOf(index int) []tagstore.Pair { return c.tags.TagsOf(c.origIndex[index]) }

// Tags returns the column's tag store, for callers doing inverted
// lookups (search_tag) directly.
func (c *NodeColumn) Tags() *tagstore.Store { return c.tags }

// TagIndex returns the tag-store entity index backing internal index,
// for callers (e.g. search_tag) that receive tag-store indexes and
// need to translate back to this column's dense index space.
func (c *NodeColumn) TagIndex(index int) int { return c.origIndex[index] }

// WithinBBox returns node indexes whose point falls within bbox.
func (c *NodeColumn) WithinBBox(bbox geo.BBox) []int { return c.tree.Search(bbox) }

// WithinRadiusKm returns node indexes within radiusKm great-circle
// kilometers of (lon,lat). The R-tree probe is coarse (a circumscribing
// bbox); this exact-filters with haversine before returning (§4.4).
func (c *NodeColumn) WithinRadiusKm(lon, lat, radiusKm float64) []int {
	origin := geo.Point{Lon: lon, Lat: lat}
	candidates := c.tree.Search(geo.BBoxAroundRadiusKm(lon, lat, radiusKm))
	out := candidates[:0]
	for _, idx := range candidates {
		if geo.HaversineKm(origin, c.Point(idx)) <= radiusKm {
			out = append(out, idx)
		}
	}
	return out
}

// Nearest returns up to k node indexes nearest to (lon,lat) in
// ascending great-circle distance, bounded to maxKm if positive (0
// means unbounded). Ties are broken deterministically by lower id
// (§P4), since haversine distance alone does not totally order
// coincident or symmetric points.
func (c *NodeColumn) Nearest(lon, lat float64, k int, maxKm float64) []int {
	if k <= 0 || c.Len() == 0 {
		return nil
	}
	origin := geo.Point{Lon: lon, Lat: lat}

	type cand struct {
		idx  int
		dist float64
	}

	// Expanding-ring probe: BBoxAroundRadiusKm circumscribes the true
	// circle of radius R, so every point within R km is guaranteed to
	// appear in the R-tree search before the exact haversine filter
	// runs. Once the filtered set has >= k points, the k smallest are
	// final: any undiscovered point lies outside R km, i.e. farther
	// than every point already found.
	startKm := 1.0
	if maxKm > 0 && maxKm < startKm {
		startKm = maxKm
	}
	const worldKm = 20040.0 // half Earth's circumference; a hard search ceiling.
	radiusKm := startKm
	var found []cand
	for {
		found = found[:0]
		hits := c.tree.Search(geo.BBoxAroundRadiusKm(lon, lat, radiusKm))
		for _, idx := range hits {
			d := geo.HaversineKm(origin, c.Point(idx))
			if d <= radiusKm {
				found = append(found, cand{idx: idx, dist: d})
			}
		}
		capped := maxKm > 0 && radiusKm >= maxKm
		exhausted := radiusKm >= worldKm
		if len(found) >= k || capped || exhausted {
			break
		}
		radiusKm *= 2
		if maxKm > 0 && radiusKm > maxKm {
			radiusKm = maxKm
		}
	}

	if maxKm > 0 {
		filtered := found[:0]
		for _, f := range found {
			if f.dist <= maxKm {
				filtered = append(filtered, f)
			}
		}
		found = filtered
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].dist != found[j].dist {
			return found[i].dist < found[j].dist
		}
		return c.GetByIndex(found[i].idx) < c.GetByIndex(found[j].idx)
	})
	if len(found) > k {
		found = found[:k]
	}
	out := make([]int, len(found))
	for i, f := range found {
		out[i] = f.idx
	}
	return out
}
