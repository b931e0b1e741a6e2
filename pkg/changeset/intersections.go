package changeset

import (
	"math"

	"github.com/nucleus/osmix/pkg/geo"
)

// reuseRadiusKm is the 1 m "existing node" reuse threshold from §4.10.
const reuseRadiusKm = 0.001

// connectEligibleKeys marks a way as a candidate for intersection
// synthesis: highway-like or foot-like, per §Glossary's
// waysShouldConnect.
var connectEligibleKeys = []string{"highway", "foot", "footway"}

func isConnectEligible(tags map[string]string) bool {
	for _, k := range connectEligibleKeys {
		if _, ok := tags[k]; ok {
			return true
		}
	}
	return false
}

// areaIndicatingKeys mirrors pkg/query's closed-way area classification
// (§Glossary's fixed set), duplicated here since waysShouldConnect's
// "neither is a polygon-like area" check is changeset's own concern.
var areaIndicatingKeys = map[string]string{
	"building": "",
	"landuse":  "",
	"natural":  "",
	"area":     "yes",
	"amenity":  "",
	"leisure":  "",
	"place":    "island",
}

func isAreaLike(tags map[string]string) bool {
	for k, v := range tags {
		want, ok := areaIndicatingKeys[k]
		if !ok {
			continue
		}
		if want == "" || want == v {
			return true
		}
	}
	return false
}

func isBridgeOrTunnel(tags map[string]string) bool {
	return tags["bridge"] == "yes" || tags["tunnel"] == "yes"
}

func layerOf(tags map[string]string) string {
	if l, ok := tags["layer"]; ok {
		return l
	}
	return "0"
}

// waysShouldConnect is the connect-eligibility predicate from
// §Glossary: connect iff both are highway-like or foot-like, neither
// is a polygon-like area, neither is a bridge/tunnel relative to the
// other, and their layer tags match.
func waysShouldConnect(a, b map[string]string) bool {
	if !isConnectEligible(a) || !isConnectEligible(b) {
		return false
	}
	if isAreaLike(a) || isAreaLike(b) {
		return false
	}
	if isBridgeOrTunnel(a) != isBridgeOrTunnel(b) {
		return false
	}
	return layerOf(a) == layerOf(b)
}

// segmentIntersection returns the point where segments a-b and c-d
// cross, using the standard parametric line-segment test.
func segmentIntersection(a, b, c, d geo.Point) (geo.Point, bool) {
	rx, ry := b.Lon-a.Lon, b.Lat-a.Lat
	sx, sy := d.Lon-c.Lon, d.Lat-c.Lat
	denom := rx*sy - ry*sx
	if denom == 0 {
		return geo.Point{}, false
	}
	qpx, qpy := c.Lon-a.Lon, c.Lat-a.Lat
	t := (qpx*sy - qpy*sx) / denom
	u := (qpx*ry - qpy*rx) / denom
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return geo.Point{}, false
	}
	return geo.Point{Lon: a.Lon + t*rx, Lat: a.Lat + t*ry}, true
}

// segmentIntersections finds every crossing point between polylines a
// and b, merging points within the reuse radius of one another so a
// near-coincident crossing is only reported once.
func segmentIntersections(a, b []geo.Point) []geo.Point {
	var out []geo.Point
	for i := 0; i+1 < len(a); i++ {
		for j := 0; j+1 < len(b); j++ {
			pt, ok := segmentIntersection(a[i], a[i+1], b[j], b[j+1])
			if !ok {
				continue
			}
			merged := false
			for _, existing := range out {
				if geo.HaversineKm(existing, pt) <= reuseRadiusKm {
					merged = true
					break
				}
			}
			if !merged {
				out = append(out, pt)
			}
		}
	}
	return out
}

// IntersectionStats reports create_intersections' tracked statistics.
type IntersectionStats struct {
	NodesCreated int
}

// CreateIntersections intersects every connect-eligible input way
// against ways whose bbox overlaps, synthesising a shared node at each
// crossing point (reusing an existing node within 1 m when one is
// already there) and splicing it into both ways.
func (cs *Changeset) CreateIntersections(wayIDs []int64) (IntersectionStats, error) {
	var stats IntersectionStats
	checked := make(map[[2]int]bool)

	for _, id := range wayIDs {
		idxA, ok := cs.base.Ways.GetByID(id)
		if !ok {
			continue
		}
		tagsA := tagsFromPairs(cs.base.Strings, cs.base.Ways.TagsOf(idxA))
		coordsA, err := cs.base.Ways.GetCoordinates(idxA, cs.base.Nodes)
		if err != nil {
			continue
		}

		for _, idxB := range cs.base.Ways.WithinBBox(cs.base.Ways.BBox(idxA)) {
			if idxB == idxA {
				continue
			}
			a, b := idxA, idxB
			if a > b {
				a, b = b, a
			}
			key := [2]int{a, b}
			if checked[key] {
				continue
			}
			checked[key] = true

			tagsB := tagsFromPairs(cs.base.Strings, cs.base.Ways.TagsOf(idxB))
			if !waysShouldConnect(tagsA, tagsB) {
				continue
			}
			coordsB, err := cs.base.Ways.GetCoordinates(idxB, cs.base.Nodes)
			if err != nil {
				continue
			}

			wayIDA := cs.base.Ways.GetByIndex(idxA)
			wayIDB := cs.base.Ways.GetByIndex(idxB)
			for _, pt := range segmentIntersections(coordsA, coordsB) {
				created, err := cs.spliceIntersection(wayIDA, wayIDB, pt)
				if err != nil {
					return stats, err
				}
				if created {
					stats.NodesCreated++
				}
			}
		}
	}
	return stats, nil
}

// resolveCoord resolves a node id to its coordinate, checking pending
// changeset-created nodes before the base store.
func (cs *Changeset) resolveCoord(id int64) (geo.Point, bool) {
	if r, ok := cs.nodes[id]; ok && r.New != nil {
		return geo.Point{Lon: r.New.Lon, Lat: r.New.Lat}, true
	}
	if idx, ok := cs.base.Nodes.GetByID(id); ok {
		return cs.base.Nodes.Point(idx), true
	}
	return geo.Point{}, false
}

// findNearNode returns the id of a vertex of wayIDA or wayIDB within
// the reuse radius of pt, if any (spec.md §4.10 point 1: "if either way
// already has a node within 1 m of the point, reuse that node id" —
// scoped to the two candidate ways' own refs, not every node in the
// store, so an unrelated nearby node is never spliced into a crossing
// it isn't part of).
func (cs *Changeset) findNearNode(wayIDA, wayIDB int64, pt geo.Point) (int64, bool) {
	best, bestDist, found := int64(0), math.MaxFloat64, false
	consider := func(wayID int64) {
		wv, ok := cs.currentWayValue(wayID)
		if !ok {
			return
		}
		for _, ref := range wv.Refs {
			c, ok := cs.resolveCoord(ref)
			if !ok {
				continue
			}
			if d := geo.HaversineKm(pt, c); d <= reuseRadiusKm && (!found || d < bestDist) {
				best, bestDist, found = ref, d, true
			}
		}
	}
	consider(wayIDA)
	consider(wayIDB)
	return best, found
}

func (cs *Changeset) allocateNodeID() int64 {
	if cs.nextNodeID == 0 {
		cs.nextNodeID = cs.currentMaxNodeID()
	}
	cs.nextNodeID++
	return cs.nextNodeID
}

func (cs *Changeset) currentMaxNodeID() int64 {
	var max int64
	for i := 0; i < cs.base.Nodes.Len(); i++ {
		if id := cs.base.Nodes.GetByIndex(i); id > max {
			max = id
		}
	}
	for id := range cs.nodes {
		if id > max {
			max = id
		}
	}
	return max
}

// spliceIntersection reuses or creates the crossing node at pt and
// splices it into both ways, reporting whether a node was created.
func (cs *Changeset) spliceIntersection(wayIDA, wayIDB int64, pt geo.Point) (bool, error) {
	nodeID, found := cs.findNearNode(wayIDA, wayIDB, pt)
	created := false
	if !found {
		nodeID = cs.allocateNodeID()
		if err := cs.CreateNode(NodeValue{
			ID: nodeID, Lon: pt.Lon, Lat: pt.Lat,
			Tags: map[string]string{"crossing": "yes"},
		}); err != nil {
			return false, err
		}
		created = true
	}
	if err := cs.spliceNodeIntoWay(wayIDA, nodeID, pt); err != nil {
		return created, err
	}
	if err := cs.spliceNodeIntoWay(wayIDB, nodeID, pt); err != nil {
		return created, err
	}
	return created, nil
}

// spliceNodeIntoWay inserts nodeID into way id at the position nearest
// pt along its existing polyline (§4.10 point 3), a no-op if nodeID is
// already one of the way's refs.
func (cs *Changeset) spliceNodeIntoWay(id, nodeID int64, pt geo.Point) error {
	return cs.ModifyWay(id, func(wv WayValue) WayValue {
		for _, r := range wv.Refs {
			if r == nodeID {
				return wv
			}
		}
		nearest, nearestDist := 0, math.MaxFloat64
		for i, r := range wv.Refs {
			c, ok := cs.resolveCoord(r)
			if !ok {
				continue
			}
			if d := geo.HaversineMeters(c, pt); d < nearestDist {
				nearestDist, nearest = d, i
			}
		}
		refs := make([]int64, 0, len(wv.Refs)+1)
		refs = append(refs, wv.Refs[:nearest+1]...)
		refs = append(refs, nodeID)
		refs = append(refs, wv.Refs[nearest+1:]...)
		wv.Refs = refs
		return wv
	})
}
