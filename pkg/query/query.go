// Package query implements the Query Engine (C9): the read-only
// surface over a finalized entitystore.Store — get-by-id, tag search,
// bbox views, nearest-routable-node, Dijkstra routing, and GeoJSON
// feature export.
package query

import (
	"sort"
	"sync"

	"github.com/nucleus/osmix/pkg/entitystore"
	"github.com/nucleus/osmix/pkg/geo"
	"github.com/nucleus/osmix/pkg/routing"
	"github.com/nucleus/osmix/pkg/tagstore"
)

// Kind distinguishes the three entity kinds; it is entitystore's
// MemberKind so "kind order: node, way, relation" (§4.9) is the same
// ordering relation members already sort by.
type Kind = entitystore.MemberKind

const (
	KindNode     = entitystore.MemberNode
	KindWay      = entitystore.MemberWay
	KindRelation = entitystore.MemberRelation
)

// Member is a resolved, string-keyed relation member, for callers that
// don't want to carry around interned role ids.
type Member struct {
	Kind Kind
	Ref  int64
	Role string
}

// Entity is the materialized result of Get: tags and refs/members are
// reconstructed on demand from the column's CSR storage.
type Entity struct {
	Kind    Kind
	ID      int64
	Tags    map[string]string
	Lon     float64  // node only
	Lat     float64  // node only
	Refs    []int64  // way only
	Members []Member // relation only
}

// KindIndex names one entity by (kind, internal column index), the
// shape search_tag and bbox views enumerate.
type KindIndex struct {
	Kind  Kind
	Index int
}

// Engine serves C9's read-only query surface over one Store. The
// routable subgraph used by NearestRoutableNode and Route is built
// lazily on first use and cached (ways/nodes do not change after a
// Store is finalized).
type Engine struct {
	store *entitystore.Store

	graphOnce sync.Once
	graph     *routing.Graph
}

// New returns a query Engine over store.
func New(store *entitystore.Store) *Engine {
	return &Engine{store: store}
}

func (e *Engine) tagsToMap(kind Kind, index int) map[string]string {
	var pairs []tagstore.Pair
	switch kind {
	case KindNode:
		pairs = e.store.Nodes.TagsOf(index)
	case KindWay:
		pairs = e.store.Ways.TagsOf(index)
	case KindRelation:
		pairs = e.store.Rels.TagsOf(index)
	}
	if len(pairs) == 0 {
		return nil
	}
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, _ := e.store.Strings.Lookup(p.KeyID)
		v, _ := e.store.Strings.Lookup(p.ValueID)
		m[k] = v
	}
	return m
}

// Get resolves one entity by (kind, id), reconstructing its tags and
// refs/members from CSR storage. O(log n) via the column's sorted id
// index.
func (e *Engine) Get(kind Kind, id int64) (Entity, bool) {
	switch kind {
	case KindNode:
		idx, ok := e.store.Nodes.GetByID(id)
		if !ok {
			return Entity{}, false
		}
		lon, lat := e.store.Nodes.LonLat(idx)
		return Entity{Kind: KindNode, ID: id, Lon: lon, Lat: lat, Tags: e.tagsToMap(KindNode, idx)}, true
	case KindWay:
		idx, ok := e.store.Ways.GetByID(id)
		if !ok {
			return Entity{}, false
		}
		refs := e.store.Ways.Refs(idx)
		out := make([]int64, len(refs))
		copy(out, refs)
		return Entity{Kind: KindWay, ID: id, Refs: out, Tags: e.tagsToMap(KindWay, idx)}, true
	case KindRelation:
		idx, ok := e.store.Rels.GetByID(id)
		if !ok {
			return Entity{}, false
		}
		raw := e.store.Rels.Members(idx)
		members := make([]Member, len(raw))
		for i, m := range raw {
			role, _ := e.store.Strings.Lookup(m.Role)
			members[i] = Member{Kind: m.Kind, Ref: m.Ref, Role: role}
		}
		return Entity{Kind: KindRelation, ID: id, Members: members, Tags: e.tagsToMap(KindRelation, idx)}, true
	default:
		return Entity{}, false
	}
}

// SearchTag returns every entity carrying key (and, if value != nil,
// exactly that value), ordered by kind (node, way, relation) then
// ascending id within each kind (§4.9).
func (e *Engine) SearchTag(key string, value *string) []KindIndex {
	keyID, ok := e.store.Strings.Find(key)
	if !ok {
		return nil
	}
	var valueID uint32
	if value != nil {
		vid, ok := e.store.Strings.Find(*value)
		if !ok {
			return nil
		}
		valueID = vid
	}

	var out []KindIndex
	collect := func(kind Kind, tags interface {
		EntitiesWithKey(uint32) []int
		EntitiesWithTag(uint32, uint32) []int
	}, idOf func(int) int64) {
		var indexes []int
		if value != nil {
			indexes = tags.EntitiesWithTag(keyID, valueID)
		} else {
			indexes = tags.EntitiesWithKey(keyID)
		}
		sorted := make([]int, len(indexes))
		copy(sorted, indexes)
		sort.Slice(sorted, func(i, j int) bool { return idOf(sorted[i]) < idOf(sorted[j]) })
		for _, idx := range sorted {
			out = append(out, KindIndex{Kind: kind, Index: idx})
		}
	}

	collect(KindNode, e.store.Nodes.Tags(), e.store.Nodes.GetByIndex)
	collect(KindWay, e.store.Ways.Tags(), e.store.Ways.GetByIndex)
	collect(KindRelation, e.store.Rels.Tags(), e.store.Rels.GetByIndex)
	return out
}

// BBoxNodes is a zero-copy-intent columnar view of nodes within a bbox:
// Positions is a flat [lon0, lat0, lon1, lat1, ...] array.
type BBoxNodes struct {
	IDs       []int64
	Positions []float64
}

// NodesInBBox returns every node within bbox as a columnar view.
func (e *Engine) NodesInBBox(bbox geo.BBox) BBoxNodes {
	indexes := e.store.Nodes.WithinBBox(bbox)
	sort.Ints(indexes)
	out := BBoxNodes{IDs: make([]int64, len(indexes)), Positions: make([]float64, 0, len(indexes)*2)}
	for i, idx := range indexes {
		out.IDs[i] = e.store.Nodes.GetByIndex(idx)
		lon, lat := e.store.Nodes.LonLat(idx)
		out.Positions = append(out.Positions, lon, lat)
	}
	return out
}

// BBoxWays is a columnar view of ways within a bbox: Positions is the
// same flat [lon,lat,...] layout as BBoxNodes, and StartIndices is the
// CSR offset array delimiting each way's run of coordinates within it.
type BBoxWays struct {
	IDs          []int64
	Positions    []float64
	StartIndices []uint32
}

// WaysInBBox returns every way whose bbox intersects bbox as a
// columnar view. Coordinates are each way's resolved node positions;
// ways with unresolved refs contribute only their resolvable prefix.
func (e *Engine) WaysInBBox(bbox geo.BBox) BBoxWays {
	indexes := e.store.Ways.WithinBBox(bbox)
	sort.Ints(indexes)
	out := BBoxWays{IDs: make([]int64, len(indexes)), StartIndices: make([]uint32, 0, len(indexes)+1)}
	out.StartIndices = append(out.StartIndices, 0)
	for i, idx := range indexes {
		out.IDs[i] = e.store.Ways.GetByIndex(idx)
		for _, p := range resolvableCoordinates(e.store.Ways, e.store.Nodes, idx) {
			out.Positions = append(out.Positions, p.Lon, p.Lat)
		}
		out.StartIndices = append(out.StartIndices, uint32(len(out.Positions)/2))
	}
	return out
}

// resolvableCoordinates resolves a way's refs through nodes, silently
// skipping any ref that does not resolve (I2 is only a hard error for
// get_coordinates; bbox views degrade gracefully instead).
func resolvableCoordinates(ways *entitystore.WayColumn, nodes *entitystore.NodeColumn, index int) []geo.Point {
	refs := ways.Refs(index)
	out := make([]geo.Point, 0, len(refs))
	for _, ref := range refs {
		if ni, ok := nodes.GetByID(ref); ok {
			out = append(out, nodes.Point(ni))
		}
	}
	return out
}

func (e *Engine) ensureGraph() *routing.Graph {
	e.graphOnce.Do(func() {
		e.graph = routing.Build(e.store.Nodes, e.store.Ways, e.store.Strings)
	})
	return e.graph
}

// NearestRoutableNode returns the closest routable node to (lon,lat)
// within maxM meters, or ok=false if none exists in range. A node is
// routable iff at least one routable-highway way references it. Like
// NodeColumn.Nearest, this expands its search radius until the
// candidate set is provably complete instead of depending on a fixed
// probe count, since the closest *routable* node may lie well past
// several closer non-routable ones.
func (e *Engine) NearestRoutableNode(lon, lat, maxM float64) (nodeIndex int, distanceM float64, ok bool) {
	g := e.ensureGraph()
	origin := geo.Point{Lon: lon, Lat: lat}

	maxKm := maxM / 1000
	startKm := 1.0
	if maxKm > 0 && maxKm < startKm {
		startKm = maxKm
	}
	const worldKm = 20040.0
	radiusKm := startKm

	for {
		best, bestDist, found := -1, 0.0, false
		for _, idx := range e.store.Nodes.WithinRadiusKm(lon, lat, radiusKm) {
			if !g.IsRoutableNode(idx) {
				continue
			}
			d := geo.HaversineKm(origin, e.store.Nodes.Point(idx))
			if !found || d < bestDist {
				best, bestDist, found = idx, d, true
			}
		}
		capped := maxKm > 0 && radiusKm >= maxKm
		exhausted := radiusKm >= worldKm
		if found {
			distM := bestDist * 1000
			if maxM > 0 && distM > maxM {
				return 0, 0, false
			}
			return best, distM, true
		}
		if capped || exhausted {
			return 0, 0, false
		}
		radiusKm *= 2
		if maxKm > 0 && radiusKm > maxKm {
			radiusKm = maxKm
		}
	}
}

// RouteOptions reserves room for future routing preferences (e.g. mode
// of travel); none are specified yet so the struct is presently empty.
type RouteOptions struct{}

// Route finds the shortest-time path between two node column indexes
// over the routable subgraph. Returns NoRoute if the nodes are
// disconnected.
func (e *Engine) Route(fromNodeIndex, toNodeIndex int, _ RouteOptions) (*routing.Result, error) {
	g := e.ensureGraph()
	return g.Route(fromNodeIndex, toNodeIndex)
}
