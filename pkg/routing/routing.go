// Package routing implements Dijkstra's algorithm over the subgraph
// induced by routable ways, for pkg/query's route and
// nearest_routable_node operations.
package routing

import (
	"container/heap"

	"github.com/nucleus/osmix/pkg/entitystore"
	"github.com/nucleus/osmix/pkg/geo"
	"github.com/nucleus/osmix/pkg/osmerr"
	"github.com/nucleus/osmix/pkg/strtable"
)

// speedKmh is the fixed highway->speed table used for time_s
// calculation. Values are representative free-flow speeds, not
// jurisdiction-specific limits.
var speedKmh = map[string]float64{
	"motorway":       110,
	"trunk":          90,
	"primary":        70,
	"secondary":      60,
	"tertiary":       50,
	"unclassified":   40,
	"residential":    30,
	"service":        20,
	"living_street":  15,
	"road":           30,
	"motorway_link":  60,
	"trunk_link":     50,
	"primary_link":   40,
	"secondary_link": 35,
	"tertiary_link":  30,
	"pedestrian":     5,
	"footway":        5,
	"cycleway":       15,
	"path":           5,
	"track":          15,
	"steps":          2,
}

// IsRoutable reports whether a highway tag value names a routable
// highway (§Glossary).
func IsRoutable(highway string) bool {
	_, ok := speedKmh[highway]
	return ok
}

// SpeedKmh returns the fixed speed for a routable highway value, or 0
// if the value is not routable.
func SpeedKmh(highway string) float64 { return speedKmh[highway] }

// Graph is the routable subgraph induced by highway-tagged ways: nodes
// are node-column internal indexes, edges come from consecutive refs
// of routable ways.
type Graph struct {
	nodes *entitystore.NodeColumn
	ways  *entitystore.WayColumn
	adj   map[int][]edge
}

type edge struct {
	to       int
	distM    float64
	speedKmh float64
	wayIndex int
}

// Build constructs the routable subgraph from the way column's tags,
// resolving refs through nodes. Neither Build nor IsRoutableNode uses
// Ways.BuildIncidence; routability is answered from the graph's own
// adjacency.
func Build(nodes *entitystore.NodeColumn, ways *entitystore.WayColumn, strings *strtable.Table) *Graph {
	g := &Graph{nodes: nodes, ways: ways, adj: make(map[int][]edge)}
	for wi := 0; wi < ways.Len(); wi++ {
		highway, ok := wayHighway(ways, wi, strings)
		if !ok || !IsRoutable(highway) {
			continue
		}
		speed := SpeedKmh(highway)
		refs := ways.Refs(wi)
		prev, prevOK := -1, false
		for _, ref := range refs {
			ni, ok := nodes.GetByID(ref)
			if !ok {
				prevOK = false
				continue
			}
			if prevOK {
				d := geo.HaversineKm(nodes.Point(prev), nodes.Point(ni)) * 1000
				g.adj[prev] = append(g.adj[prev], edge{to: ni, distM: d, speedKmh: speed, wayIndex: wi})
				g.adj[ni] = append(g.adj[ni], edge{to: prev, distM: d, speedKmh: speed, wayIndex: wi})
			}
			prev, prevOK = ni, true
		}
	}
	return g
}

func wayHighway(ways *entitystore.WayColumn, wi int, strings *strtable.Table) (string, bool) {
	for _, p := range ways.TagsOf(wi) {
		k, _ := strings.Lookup(p.KeyID)
		if k == "highway" {
			v, _ := strings.Lookup(p.ValueID)
			return v, true
		}
	}
	return "", false
}

// IsRoutableNode reports whether node index ni is an endpoint of at
// least one edge in the graph.
func (g *Graph) IsRoutableNode(ni int) bool { return len(g.adj[ni]) > 0 }

// Result is the outcome of a successful Route call.
type Result struct {
	Coordinates []geo.Point
	DistanceM   float64
	TimeS       float64
	// TurnPoints lists the node indexes where the route changes from
	// one way to another.
	TurnPoints []int
}

type heapItem struct {
	node  int
	dist  float64
	index int
}

type minHeap []*heapItem

func (h minHeap) Len() int { return len(h) }
func (h minHeap) Less(i, j int) bool {
	if h[i].dist != h[j].dist {
		return h[i].dist < h[j].dist
	}
	return h[i].node < h[j].node
}
func (h minHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *minHeap) Push(x any) {
	it := x.(*heapItem)
	it.index = len(*h)
	*h = append(*h, it)
}
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	it.index = -1
	*h = old[:n-1]
	return it
}

// Route finds the shortest-time path between two node indexes over the
// routable subgraph, using Dijkstra with edge weight =
// haversine-length / speed. Ties among equal-distance frontier nodes
// are broken by lower node id (§P8), making results deterministic.
func (g *Graph) Route(from, to int) (*Result, error) {
	if from == to {
		p := g.nodes.Point(from)
		return &Result{Coordinates: []geo.Point{p}, DistanceM: 0, TimeS: 0}, nil
	}

	const inf = 1e18
	dist := map[int]float64{from: 0}
	prev := map[int]int{}
	prevWay := map[int]int{}
	visited := map[int]bool{}

	h := &minHeap{}
	heap.Init(h)
	heap.Push(h, &heapItem{node: from, dist: 0})

	for h.Len() > 0 {
		cur := heap.Pop(h).(*heapItem)
		if visited[cur.node] {
			continue
		}
		visited[cur.node] = true
		if cur.node == to {
			break
		}
		for _, e := range g.byNeighborID(cur.node) {
			if visited[e.to] {
				continue
			}
			weightS := timeSeconds(e.distM, e.speedKmh)
			nd := cur.dist + weightS
			if existing, ok := dist[e.to]; !ok || nd < existing || (nd == existing && cur.node < prev[e.to]) {
				dist[e.to] = nd
				prev[e.to] = cur.node
				prevWay[e.to] = e.wayIndex
				heap.Push(h, &heapItem{node: e.to, dist: nd})
			}
		}
	}

	if !visited[to] {
		return nil, osmerr.NoRoute()
	}

	var pathNodes []int
	for n := to; ; {
		pathNodes = append([]int{n}, pathNodes...)
		if n == from {
			break
		}
		n = prev[n]
	}

	coords := make([]geo.Point, len(pathNodes))
	var distanceM float64
	var timeS float64
	var turnPoints []int
	for i, n := range pathNodes {
		coords[i] = g.nodes.Point(n)
		if i > 0 {
			prevN := pathNodes[i-1]
			for _, e := range g.byNeighborID(prevN) {
				if e.to == n {
					distanceM += e.distM
					timeS += timeSeconds(e.distM, e.speedKmh)
					break
				}
			}
			if i > 1 && prevWay[pathNodes[i-1]] != prevWay[n] {
				turnPoints = append(turnPoints, prevN)
			}
		}
	}

	return &Result{
		Coordinates: coords,
		DistanceM:   distanceM,
		TimeS:       timeS,
		TurnPoints:  turnPoints,
	}, nil
}

// byNeighborID returns a node's outgoing edges sorted by neighbor id,
// so callers that break ties on "lower neighbor node id" see a
// deterministic order regardless of map/slice insertion order.
func (g *Graph) byNeighborID(n int) []edge {
	edges := g.adj[n]
	out := make([]edge, len(edges))
	copy(out, edges)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && g.nodes.GetByIndex(out[j].to) < g.nodes.GetByIndex(out[j-1].to); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func timeSeconds(distM, speedKmh float64) float64 {
	if speedKmh <= 0 {
		return 0
	}
	speedMS := speedKmh * 1000 / 3600
	return distM / speedMS
}
