package changeset

import (
	"sort"
	"strconv"

	"github.com/nucleus/osmix/pkg/entitystore"
	"github.com/nucleus/osmix/pkg/geo"
)

// DedupNodesStats reports deduplicate_nodes' tracked statistics.
type DedupNodesStats struct {
	NodesDeduplicated int
	RefsReplaced      int
}

type nodeCandidate struct {
	idx      int
	id       int64
	version  int64
	tagCount int
}

func (cs *Changeset) nodeCandidateAt(idx int) nodeCandidate {
	pairs := cs.base.Nodes.TagsOf(idx)
	c := nodeCandidate{idx: idx, id: cs.base.Nodes.GetByIndex(idx), tagCount: len(pairs)}
	if verKeyID, ok := cs.base.Strings.Find("ext:osm_version"); ok {
		if valID, ok := cs.base.Nodes.Tags().Get(cs.base.Nodes.TagIndex(idx), verKeyID); ok {
			if s, err := cs.base.Strings.Lookup(valID); err == nil {
				if n, err := strconv.ParseInt(s, 10, 64); err == nil {
					c.version = n
				}
			}
		}
	}
	return c
}

// pickSurvivor implements the tie-break from §4.10: higher
// ext:osm_version, then more tags, then larger id.
func pickSurvivor(cands []nodeCandidate) (survivor nodeCandidate, losers []nodeCandidate) {
	best := cands[0]
	for _, c := range cands[1:] {
		if betterCandidate(c, best) {
			best = c
		}
	}
	for _, c := range cands {
		if c.idx != best.idx {
			losers = append(losers, c)
		}
	}
	return best, losers
}

func betterCandidate(a, b nodeCandidate) bool {
	if a.version != b.version {
		return a.version > b.version
	}
	if a.tagCount != b.tagCount {
		return a.tagCount > b.tagCount
	}
	return a.id > b.id
}

// DeduplicateNodes finds, for each input node id, every other node at
// the same coordinate, schedules the losers for deletion, and rewrites
// every way ref and relation node-member that targeted a loser.
func (cs *Changeset) DeduplicateNodes(nodeIDs []int64) (DedupNodesStats, error) {
	var stats DedupNodesStats
	visited := make(map[int]bool)
	replacement := make(map[int64]int64)

	for _, id := range nodeIDs {
		idx, ok := cs.base.Nodes.GetByID(id)
		if !ok || visited[idx] {
			continue
		}
		lon, lat := cs.base.Nodes.LonLat(idx)
		group := cs.base.Nodes.WithinRadiusKm(lon, lat, 0)
		for _, gi := range group {
			visited[gi] = true
		}
		if len(group) < 2 {
			continue
		}
		cands := make([]nodeCandidate, len(group))
		for i, gi := range group {
			cands[i] = cs.nodeCandidateAt(gi)
		}
		survivor, losers := pickSurvivor(cands)
		for _, l := range losers {
			if err := cs.DeleteNode(l.id); err != nil {
				return stats, err
			}
			replacement[l.id] = survivor.id
			stats.NodesDeduplicated++
		}
	}

	flattenReplacements(replacement)

	wayRefs, err := cs.rewriteWayRefs(replacement)
	if err != nil {
		return stats, err
	}
	relRefs, err := cs.rewriteRelationMemberRefs(replacement)
	if err != nil {
		return stats, err
	}
	stats.RefsReplaced = wayRefs + relRefs
	return stats, nil
}

// flattenReplacements repeatedly follows loser->survivor chains until
// every key maps directly to a final root, so no loser id appears as a
// survivor value afterward.
func flattenReplacements(m map[int64]int64) {
	for k := range m {
		v := m[k]
		seen := map[int64]bool{k: true}
		for {
			next, ok := m[v]
			if !ok || seen[v] {
				break
			}
			seen[v] = true
			v = next
		}
		m[k] = v
	}
}

func (cs *Changeset) rewriteWayRefs(replacement map[int64]int64) (int, error) {
	if len(replacement) == 0 {
		return 0, nil
	}
	cs.base.Ways.BuildIncidence(cs.base.Nodes)
	touched := make(map[int]bool)
	for loserID := range replacement {
		if loserIdx, ok := cs.base.Nodes.GetByID(loserID); ok {
			for _, wi := range cs.base.Ways.WaysContainingNode(loserIdx) {
				touched[wi] = true
			}
		}
	}
	wayIdxs := make([]int, 0, len(touched))
	for wi := range touched {
		wayIdxs = append(wayIdxs, wi)
	}
	sort.Ints(wayIdxs)

	replaced := 0
	for _, wi := range wayIdxs {
		wayID := cs.base.Ways.GetByIndex(wi)
		n := 0
		err := cs.ModifyWay(wayID, func(wv WayValue) WayValue {
			newRefs := make([]int64, 0, len(wv.Refs))
			for _, r := range wv.Refs {
				if sv, ok := replacement[r]; ok {
					newRefs = append(newRefs, sv)
					n++
				} else {
					newRefs = append(newRefs, r)
				}
			}
			wv.Refs = dedupeAdjacentRefs(newRefs)
			return wv
		})
		if err != nil {
			return replaced, err
		}
		replaced += n
	}
	return replaced, nil
}

func (cs *Changeset) rewriteRelationMemberRefs(replacement map[int64]int64) (int, error) {
	if len(replacement) == 0 {
		return 0, nil
	}
	touched := make(map[int]bool)
	for loserID := range replacement {
		for _, ri := range cs.base.Rels.RelationsContaining(entitystore.MemberNode, loserID) {
			touched[ri] = true
		}
	}
	relIdxs := make([]int, 0, len(touched))
	for ri := range touched {
		relIdxs = append(relIdxs, ri)
	}
	sort.Ints(relIdxs)

	replaced := 0
	for _, ri := range relIdxs {
		relID := cs.base.Rels.GetByIndex(ri)
		n := 0
		err := cs.ModifyRelation(relID, func(rv RelationValue) RelationValue {
			newMembers := make([]RelationMember, 0, len(rv.Members))
			for _, m := range rv.Members {
				if m.Kind == entitystore.MemberNode {
					if sv, ok := replacement[m.Ref]; ok {
						m.Ref = sv
						n++
					}
				}
				newMembers = append(newMembers, m)
			}
			rv.Members = dedupeAdjacentMembers(newMembers)
			return rv
		})
		if err != nil {
			return replaced, err
		}
		replaced += n
	}
	return replaced, nil
}

// DedupWaysStats reports deduplicate_ways' tracked statistics.
type DedupWaysStats struct {
	WaysDeduplicated int
}

type wayCandidate struct {
	idx      int
	id       int64
	version  int64
	tagCount int
}

func (cs *Changeset) wayCandidateAt(idx int) wayCandidate {
	pairs := cs.base.Ways.TagsOf(idx)
	c := wayCandidate{idx: idx, id: cs.base.Ways.GetByIndex(idx), tagCount: len(pairs)}
	if verKeyID, ok := cs.base.Strings.Find("ext:osm_version"); ok {
		if valID, ok := cs.base.Ways.Tags().Get(cs.base.Ways.TagIndex(idx), verKeyID); ok {
			if s, err := cs.base.Strings.Lookup(valID); err == nil {
				if n, err := strconv.ParseInt(s, 10, 64); err == nil {
					c.version = n
				}
			}
		}
	}
	return c
}

func betterWayCandidate(a, b wayCandidate) bool {
	if a.version != b.version {
		return a.version > b.version
	}
	if a.tagCount != b.tagCount {
		return a.tagCount > b.tagCount
	}
	return a.id > b.id
}

// DeduplicateWays finds ways whose resolved coordinate sequence
// exactly matches another way's (compared by value, not by id) and
// schedules the losers for deletion, memoising checked pairs so each
// is only compared once.
func (cs *Changeset) DeduplicateWays(wayIDs []int64) (DedupWaysStats, error) {
	var stats DedupWaysStats
	checked := make(map[[2]int]bool)

	for _, id := range wayIDs {
		idx, ok := cs.base.Ways.GetByID(id)
		if !ok {
			continue
		}
		coordsA, err := cs.base.Ways.GetCoordinates(idx, cs.base.Nodes)
		if err != nil {
			continue
		}
		for _, cidx := range cs.base.Ways.WithinBBox(cs.base.Ways.BBox(idx)) {
			if cidx == idx {
				continue
			}
			a, b := idx, cidx
			if a > b {
				a, b = b, a
			}
			key := [2]int{a, b}
			if checked[key] {
				continue
			}
			checked[key] = true

			coordsB, err := cs.base.Ways.GetCoordinates(cidx, cs.base.Nodes)
			if err != nil {
				continue
			}
			if !sameCoordinateSequence(coordsA, coordsB) {
				continue
			}

			candA, candB := cs.wayCandidateAt(idx), cs.wayCandidateAt(cidx)
			loser := candB
			if betterWayCandidate(candB, candA) {
				loser = candA
			}
			if err := cs.DeleteWay(loser.id); err != nil {
				return stats, err
			}
			stats.WaysDeduplicated++
		}
	}
	return stats, nil
}

func sameCoordinateSequence(a, b []geo.Point) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
