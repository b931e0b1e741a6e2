// Package geo holds the coordinate, bounding-box, and great-circle
// primitives shared by the entity store, spatial indexes, the query
// engine, and the tile renderer.
package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used by every haversine
// computation in osmix (§Glossary).
const EarthRadiusMeters = 6371000.0

// Point is a WGS-84 coordinate in degrees.
type Point struct {
	Lon, Lat float64
}

// BBox is an axis-aligned bounding box in degrees:
// [MinLon, MinLat, MaxLon, MaxLat].
type BBox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// Empty returns a bbox that contains nothing and expands to anything
// it is unioned with.
func Empty() BBox {
	return BBox{
		MinLon: math.Inf(1), MinLat: math.Inf(1),
		MaxLon: math.Inf(-1), MaxLat: math.Inf(-1),
	}
}

// PointBBox returns the zero-area bbox around a single point.
func PointBBox(lon, lat float64) BBox {
	return BBox{MinLon: lon, MinLat: lat, MaxLon: lon, MaxLat: lat}
}

// Expand grows the receiver in place to also cover p.
func (b *BBox) Expand(p Point) {
	if p.Lon < b.MinLon {
		b.MinLon = p.Lon
	}
	if p.Lat < b.MinLat {
		b.MinLat = p.Lat
	}
	if p.Lon > b.MaxLon {
		b.MaxLon = p.Lon
	}
	if p.Lat > b.MaxLat {
		b.MaxLat = p.Lat
	}
}

// Union grows the receiver in place to also cover other.
func (b *BBox) Union(other BBox) {
	if other.MinLon < b.MinLon {
		b.MinLon = other.MinLon
	}
	if other.MinLat < b.MinLat {
		b.MinLat = other.MinLat
	}
	if other.MaxLon > b.MaxLon {
		b.MaxLon = other.MaxLon
	}
	if other.MaxLat > b.MaxLat {
		b.MaxLat = other.MaxLat
	}
}

// Valid reports whether the bbox actually bounds something.
func (b BBox) Valid() bool { return b.MinLon <= b.MaxLon && b.MinLat <= b.MaxLat }

// ContainsPoint reports whether (lon,lat) falls within the bbox,
// inclusive of the edges.
func (b BBox) ContainsPoint(lon, lat float64) bool {
	return lon >= b.MinLon && lon <= b.MaxLon && lat >= b.MinLat && lat <= b.MaxLat
}

// Intersects reports whether two bboxes overlap (inclusive edges).
func (b BBox) Intersects(o BBox) bool {
	return b.MinLon <= o.MaxLon && b.MaxLon >= o.MinLon &&
		b.MinLat <= o.MaxLat && b.MaxLat >= o.MinLat
}

// HaversineMeters returns the great-circle distance between two
// WGS-84 points in meters (§Glossary).
func HaversineMeters(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinDLat := math.Sin(dLat / 2)
	sinDLon := math.Sin(dLon / 2)
	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLon*sinDLon
	h = math.Min(1, math.Max(0, h))
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

// HaversineKm is HaversineMeters expressed in kilometers, used by the
// radius-query surface (§4.4, which interprets radius in km).
func HaversineKm(a, b Point) float64 {
	return HaversineMeters(a, b) / 1000.0
}

// MetersToApproxDegreesLat converts a meter distance to an upper-bound
// degrees-of-latitude delta, used to build a coarse bbox probe before
// an exact haversine filter (§4.4 "coarse; callers filter exactly").
func MetersToApproxDegreesLat(m float64) float64 {
	return (m / EarthRadiusMeters) * (180 / math.Pi)
}

// MetersToApproxDegreesLon converts a meter distance to an upper-bound
// degrees-of-longitude delta at the given latitude.
func MetersToApproxDegreesLon(m, atLat float64) float64 {
	cosLat := math.Cos(atLat * math.Pi / 180)
	if cosLat < 1e-9 {
		cosLat = 1e-9
	}
	return MetersToApproxDegreesLat(m) / cosLat
}

// BBoxAroundRadiusKm returns a coarse bbox covering a radius-km circle
// around (lon,lat), used by within_radius (§4.4) before the exact
// haversine filter is applied.
func BBoxAroundRadiusKm(lon, lat, radiusKm float64) BBox {
	meters := radiusKm * 1000
	dLat := MetersToApproxDegreesLat(meters)
	dLon := MetersToApproxDegreesLon(meters, lat)
	return BBox{
		MinLon: lon - dLon, MinLat: lat - dLat,
		MaxLon: lon + dLon, MaxLat: lat + dLat,
	}
}
