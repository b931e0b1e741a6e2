// Package geojson implements the GeoJSON format adapter (§4.11): a
// FeatureCollection maps Point -> Node, LineString -> Way, and
// Polygon/MultiPolygon -> Way(s) plus a synthetic enclosing
// multipolygon Relation when a polygon carries holes.
package geojson

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nucleus/osmix/pkg/entitystore"
	gj "github.com/nucleus/osmix/pkg/geojson"
	"github.com/nucleus/osmix/pkg/ingest"
	"github.com/nucleus/osmix/pkg/strtable"
	"github.com/nucleus/osmix/pkg/tagstore"
)

// Source adapts a decoded GeoJSON FeatureCollection to
// ingest.EntitySource. Every coordinate is materialized as its own
// synthetic Node; ids are sequential negative integers assigned in
// feature/ring order (the only ordering guarantee GeoJSON gives us,
// since it carries no stable node identity of its own).
type Source struct {
	strs  *strtable.Table
	nodes []entitystore.RawNode
	ways  []entitystore.RawWay
	rels  []entitystore.RawRelation
}

// New decodes data as a GeoJSON FeatureCollection and builds the
// synthetic node/way/relation set, interning every tag string
// encountered into strs.
func New(data []byte, strs *strtable.Table) (*Source, error) {
	var fc gj.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("ingest/geojson: decode: %w", err)
	}

	s := &Source{strs: strs}
	nextID := int64(-1)
	for _, f := range fc.Features {
		tags := internProperties(strs, f.Properties)
		switch f.Geometry.Type {
		case "Point":
			coord, ok := toPoint(f.Geometry.Coordinates)
			if !ok {
				continue
			}
			id := nextID
			nextID--
			s.nodes = append(s.nodes, entitystore.RawNode{ID: id, Lon: coord[0], Lat: coord[1], Tags: tags})

		case "LineString":
			coords, ok := toLine(f.Geometry.Coordinates)
			if !ok || len(coords) < 2 {
				continue
			}
			refs := s.materializeLine(coords, &nextID)
			id := nextID
			nextID--
			s.ways = append(s.ways, entitystore.RawWay{ID: id, Refs: refs, Tags: tags})

		case "Polygon":
			rings, ok := toRings(f.Geometry.Coordinates)
			if !ok || len(rings) == 0 {
				continue
			}
			s.addPolygon(rings, tags, &nextID)

		case "MultiPolygon":
			polys, ok := toPolys(f.Geometry.Coordinates)
			if !ok {
				continue
			}
			for _, rings := range polys {
				s.addPolygon(rings, tags, &nextID)
			}
		}
	}
	return s, nil
}

// addPolygon materializes one polygon's rings (outer first, then
// holes) as Ways, rewinding outer rings CCW and holes CW (matching
// §4.9's GeoJSON-out convention, applied here on the way in). A
// polygon with holes gets a synthetic multipolygon Relation; a single-
// ring polygon's tags attach directly to its one Way.
func (s *Source) addPolygon(rings [][][2]float64, tags []tagstore.Pair, nextID *int64) {
	type ring struct {
		id   int64
		role uint32
	}
	outerRole := s.strs.Intern("outer")
	innerRole := s.strs.Intern("inner")

	var made []ring
	for i, r := range rings {
		wantCCW := i == 0
		rewound := gj.NormalizeRing(r, wantCCW)
		refs := s.materializeRing(rewound, nextID)
		if len(refs) < 4 {
			continue
		}
		id := *nextID
		*nextID--
		role := outerRole
		wayTags := tags
		if i > 0 {
			role = innerRole
			wayTags = nil
		}
		if len(rings) == 1 {
			s.ways = append(s.ways, entitystore.RawWay{ID: id, Refs: refs, Tags: wayTags})
			return
		}
		s.ways = append(s.ways, entitystore.RawWay{ID: id, Refs: refs, Tags: nil})
		made = append(made, ring{id: id, role: role})
	}
	if len(made) == 0 {
		return
	}
	members := make([]entitystore.RawMember, len(made))
	for i, r := range made {
		members[i] = entitystore.RawMember{Kind: entitystore.MemberWay, Ref: r.id, Role: r.role}
	}
	relID := *nextID
	*nextID--
	s.rels = append(s.rels, entitystore.RawRelation{ID: relID, Members: members, Tags: tags})
}

// materializeLine allocates one fresh synthetic node per coordinate.
func (s *Source) materializeLine(coords [][2]float64, nextID *int64) []int64 {
	refs := make([]int64, len(coords))
	for i, c := range coords {
		id := *nextID
		*nextID--
		s.nodes = append(s.nodes, entitystore.RawNode{ID: id, Lon: c[0], Lat: c[1]})
		refs[i] = id
	}
	return refs
}

// materializeRing is materializeLine, except the ring's closing
// coordinate (identical to its first, per RFC 7946) reuses the first
// point's node id rather than allocating a duplicate.
func (s *Source) materializeRing(coords [][2]float64, nextID *int64) []int64 {
	if len(coords) < 2 || coords[0] != coords[len(coords)-1] {
		return s.materializeLine(coords, nextID)
	}
	refs := s.materializeLine(coords[:len(coords)-1], nextID)
	return append(refs, refs[0])
}

func internProperties(strs *strtable.Table, props map[string]any) []tagstore.Pair {
	if len(props) == 0 {
		return nil
	}
	pairs := make([]tagstore.Pair, 0, len(props))
	for k, v := range props {
		pairs = append(pairs, tagstore.Pair{KeyID: strs.Intern(k), ValueID: strs.Intern(toTagValue(v))})
	}
	return pairs
}

// toTagValue duck-types a decoded JSON property value to its string
// tag representation (§3's "duck-typed tag values" rule).
func toTagValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%g", t)
	case bool:
		return fmt.Sprintf("%t", t)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

func (s *Source) Nodes(ctx context.Context) (entitystore.NodeIterator, error) {
	return ingest.NewSliceIterator(s.nodes), nil
}

func (s *Source) Ways(ctx context.Context) (entitystore.WayIterator, error) {
	return ingest.NewSliceIterator(s.ways), nil
}

func (s *Source) Relations(ctx context.Context) (entitystore.RelationIterator, error) {
	return ingest.NewSliceIterator(s.rels), nil
}

// Partial is always false: a GeoJSON FeatureCollection is never a
// bounded extract in the sense PBF bbox clips are.
func (s *Source) Partial() bool { return false }
