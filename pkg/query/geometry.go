package query

import (
	"github.com/nucleus/osmix/pkg/geojson"
	"github.com/nucleus/osmix/pkg/osmerr"
)

// areaIndicatingKeys is the fixed set from §Glossary used by the
// closed-way -> Polygon rule. "area" only counts at value "yes";
// "place" only counts at value "island"; the rest match on key alone.
var areaIndicatingKeys = map[string]string{
	"building": "",
	"landuse":  "",
	"natural":  "",
	"area":     "yes",
	"amenity":  "",
	"leisure":  "",
	"place":    "island",
}

func isAreaIndicating(tags map[string]string) bool {
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

func isClosedRing(coords []entityPoint) bool {
	return len(coords) >= 4 && coords[0] == coords[len(coords)-1]
}

// entityPoint mirrors geo.Point's two fields so this file doesn't need
// to import geo just to compare values with ==.
type entityPoint struct{ Lon, Lat float64 }

// ToGeoJSONFeature renders one entity as an RFC 7946 Feature (§4.9).
func (e *Engine) ToGeoJSONFeature(kind Kind, id int64) (geojson.Feature, error) {
	switch kind {
	case KindNode:
		return e.nodeFeature(id)
	case KindWay:
		return e.wayFeature(id)
	case KindRelation:
		return e.relationFeature(id)
	default:
		return geojson.Feature{}, osmerr.CorruptInput("query.geojson", errUnknownKind(kind))
	}
}

func (e *Engine) nodeFeature(id int64) (geojson.Feature, error) {
	idx, ok := e.store.Nodes.GetByID(id)
	if !ok {
		return geojson.Feature{}, osmerr.DanglingRef("node", 0, id)
	}
	lon, lat := e.store.Nodes.LonLat(idx)
	return geojson.NewFeature(id, geojson.Point(lon, lat), e.tagsToMap(KindNode, idx)), nil
}

func (e *Engine) wayFeature(id int64) (geojson.Feature, error) {
	idx, ok := e.store.Ways.GetByID(id)
	if !ok {
		return geojson.Feature{}, osmerr.DanglingRef("way", 0, id)
	}
	pts, err := e.store.Ways.GetCoordinates(idx, e.store.Nodes)
	if err != nil {
		return geojson.Feature{}, err
	}
	coords := make([][2]float64, len(pts))
	eps := make([]entityPoint, len(pts))
	for i, p := range pts {
		coords[i] = [2]float64{p.Lon, p.Lat}
		eps[i] = entityPoint{p.Lon, p.Lat}
	}
	tags := e.tagsToMap(KindWay, idx)

	if isClosedRing(eps) && isAreaIndicating(tags) {
		ring := geojson.NormalizeRing(coords, true)
		return geojson.NewFeature(id, geojson.Polygon([][][2]float64{ring}), tags), nil
	}
	return geojson.NewFeature(id, geojson.LineString(coords), tags), nil
}

// relationKind classifies a relation per §Glossary's relation-kind
// classifier: type=multipolygon/boundary relations render as
// MultiPolygon whatever their member kinds; relations whose members are exclusively ways
// (and not classified as an area) render as MultiLineString; relations
// whose members are exclusively nodes render as MultiPoint; anything
// else falls back to GeometryCollection.
func relationKind(relType string, members []Member) string {
	hasWay, hasNode, hasOther := false, false, false
	for _, m := range members {
		switch m.Kind {
		case KindWay:
			hasWay = true
		case KindNode:
			hasNode = true
		default:
			hasOther = true
		}
	}
	switch {
	case relType == "multipolygon" || relType == "boundary":
		return "MultiPolygon"
	case hasWay && !hasNode && !hasOther:
		return "MultiLineString"
	case hasNode && !hasWay && !hasOther:
		return "MultiPoint"
	default:
		return "GeometryCollection"
	}
}

func (e *Engine) relationFeature(id int64) (geojson.Feature, error) {
	idx, ok := e.store.Rels.GetByID(id)
	if !ok {
		return geojson.Feature{}, osmerr.DanglingRef("relation", 0, id)
	}
	tags := e.tagsToMap(KindRelation, idx)
	raw := e.store.Rels.Members(idx)
	members := make([]Member, len(raw))
	for i, m := range raw {
		role, _ := e.store.Strings.Lookup(m.Role)
		members[i] = Member{Kind: m.Kind, Ref: m.Ref, Role: role}
	}

	switch relationKind(tags["type"], members) {
	case "MultiPolygon":
		polys, err := e.relationPolygons(members)
		if err != nil {
			return geojson.Feature{}, err
		}
		return geojson.NewFeature(id, geojson.MultiPolygon(polys), tags), nil
	case "MultiLineString":
		lines := e.relationLines(members)
		return geojson.NewFeature(id, geojson.MultiLineString(lines), tags), nil
	case "MultiPoint":
		points := e.relationPoints(members)
		return geojson.NewFeature(id, geojson.MultiPoint(points), tags), nil
	default:
		geoms := e.relationGeometryCollection(members)
		return geojson.NewFeature(id, geojson.GeometryCollection(geoms), tags), nil
	}
}

// relationPolygons treats every way member with role "outer" as its
// own polygon's outer ring and every "inner" role as a hole attached
// to the most recently seen outer ring, matching the common
// single-relation multipolygon convention.
func (e *Engine) relationPolygons(members []Member) ([][][][2]float64, error) {
	var polys [][][][2]float64
	cur := -1
	for _, m := range members {
		if m.Kind != KindWay {
			continue
		}
		wi, ok := e.store.Ways.GetByID(m.Ref)
		if !ok {
			continue
		}
		pts, err := e.store.Ways.GetCoordinates(wi, e.store.Nodes)
		if err != nil {
			continue
		}
		ring := make([][2]float64, len(pts))
		for i, p := range pts {
			ring[i] = [2]float64{p.Lon, p.Lat}
		}
		if m.Role == "inner" {
			ring = geojson.NormalizeRing(ring, false)
			if cur >= 0 {
				polys[cur] = append(polys[cur], ring)
			}
			continue
		}
		ring = geojson.NormalizeRing(ring, true)
		polys = append(polys, [][][2]float64{ring})
		cur = len(polys) - 1
	}
	return polys, nil
}

func (e *Engine) relationLines(members []Member) [][][2]float64 {
	var lines [][][2]float64
	for _, m := range members {
		if m.Kind != KindWay {
			continue
		}
		wi, ok := e.store.Ways.GetByID(m.Ref)
		if !ok {
			continue
		}
		pts, err := e.store.Ways.GetCoordinates(wi, e.store.Nodes)
		if err != nil {
			continue
		}
		line := make([][2]float64, len(pts))
		for i, p := range pts {
			line[i] = [2]float64{p.Lon, p.Lat}
		}
		lines = append(lines, line)
	}
	return lines
}

func (e *Engine) relationPoints(members []Member) [][2]float64 {
	var points [][2]float64
	for _, m := range members {
		if m.Kind != KindNode {
			continue
		}
		ni, ok := e.store.Nodes.GetByID(m.Ref)
		if !ok {
			continue
		}
		lon, lat := e.store.Nodes.LonLat(ni)
		points = append(points, [2]float64{lon, lat})
	}
	return points
}

func (e *Engine) relationGeometryCollection(members []Member) []geojson.Geometry {
	var geoms []geojson.Geometry
	for _, m := range members {
		switch m.Kind {
		case KindNode:
			if ni, ok := e.store.Nodes.GetByID(m.Ref); ok {
				lon, lat := e.store.Nodes.LonLat(ni)
				geoms = append(geoms, geojson.Point(lon, lat))
			}
		case KindWay:
			if wi, ok := e.store.Ways.GetByID(m.Ref); ok {
				if pts, err := e.store.Ways.GetCoordinates(wi, e.store.Nodes); err == nil {
					line := make([][2]float64, len(pts))
					for i, p := range pts {
						line[i] = [2]float64{p.Lon, p.Lat}
					}
					geoms = append(geoms, geojson.LineString(line))
				}
			}
		}
	}
	return geoms
}

type unknownKindErr struct{ kind Kind }

func (e *unknownKindErr) Error() string {
	return "unknown entity kind " + e.kind.String()
}

func errUnknownKind(kind Kind) error {
	return &unknownKindErr{kind}
}
