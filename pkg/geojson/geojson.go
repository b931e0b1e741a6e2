// Package geojson implements RFC 7946 Feature/FeatureCollection
// encoding for pkg/query's to_geojson_feature operation, and the
// geometry shapes pkg/ingest/geojson decodes on the way in.
package geojson

import "encoding/json"

// Geometry is a GeoJSON geometry object. Coordinates nests to the
// depth the Type implies: Point → [lon,lat]; LineString/MultiPoint →
// [][lon,lat]; Polygon/MultiLineString → [][][lon,lat]; MultiPolygon →
// [][][][lon,lat].
type Geometry struct {
	Type        string `json:"type"`
	Coordinates any    `json:"coordinates,omitempty"`
	// Geometries holds child geometries for a GeometryCollection; empty
	// for every other Type.
	Geometries []Geometry `json:"geometries,omitempty"`
}

// Feature is one RFC 7946 Feature.
type Feature struct {
	Type       string         `json:"type"`
	ID         any            `json:"id,omitempty"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// FeatureCollection is an ordered set of Features.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Point builds a Point geometry.
func Point(lon, lat float64) Geometry {
	return Geometry{Type: "Point", Coordinates: [2]float64{lon, lat}}
}

// LineString builds a LineString geometry from an ordered coordinate list.
func LineString(coords [][2]float64) Geometry {
	return Geometry{Type: "LineString", Coordinates: coords}
}

// Polygon builds a Polygon geometry from a list of linear rings (outer
// ring first, then holes). Ring orientation is the caller's
// responsibility (§4.9's normalization happens before this is called).
func Polygon(rings [][][2]float64) Geometry {
	return Geometry{Type: "Polygon", Coordinates: rings}
}

// MultiPolygon builds a MultiPolygon geometry from a list of polygons,
// each a list of rings.
func MultiPolygon(polys [][][][2]float64) Geometry {
	return Geometry{Type: "MultiPolygon", Coordinates: polys}
}

// MultiLineString builds a MultiLineString geometry.
func MultiLineString(lines [][][2]float64) Geometry {
	return Geometry{Type: "MultiLineString", Coordinates: lines}
}

// MultiPoint builds a MultiPoint geometry.
func MultiPoint(points [][2]float64) Geometry {
	return Geometry{Type: "MultiPoint", Coordinates: points}
}

// GeometryCollection builds a GeometryCollection from heterogeneous
// child geometries (the relation-kind classifier's fallback case).
func GeometryCollection(geoms []Geometry) Geometry {
	return Geometry{Type: "GeometryCollection", Geometries: geoms}
}

// NewFeature wraps a geometry and property map as a Feature with the
// given entity id.
func NewFeature(id int64, geom Geometry, properties map[string]string) Feature {
	props := make(map[string]any, len(properties))
	for k, v := range properties {
		props[k] = v
	}
	return Feature{Type: "Feature", ID: id, Geometry: geom, Properties: props}
}

// Marshal renders a Feature or FeatureCollection as JSON bytes.
func Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// RingOrientation returns twice the signed area of a linear ring
// (first point == last point) via the shoelace formula: positive means
// counter-clockwise, negative means clockwise. Used to normalize outer
// rings CCW / inner rings CW (§4.9).
func RingOrientation(ring [][2]float64) float64 {
	var sum float64
	for i := 0; i < len(ring)-1; i++ {
		x1, y1 := ring[i][0], ring[i][1]
		x2, y2 := ring[i+1][0], ring[i+1][1]
		sum += x1*y2 - x2*y1
	}
	return sum
}

// NormalizeRing reverses ring if its orientation does not match wantCCW.
func NormalizeRing(ring [][2]float64, wantCCW bool) [][2]float64 {
	isCCW := RingOrientation(ring) > 0
	if isCCW == wantCCW {
		return ring
	}
	out := make([][2]float64, len(ring))
	for i, p := range ring {
		out[len(ring)-1-i] = p
	}
	return out
}
