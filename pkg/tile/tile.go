// Package tile implements the Tile Renderer (C12): a Bresenham-line and
// scanline-fill raster rasterizer, and a Mapbox-Vector-Tile-shaped
// vector tile encoder built directly on
// google.golang.org/protobuf/encoding/protowire, the same low-level
// wire package pkg/pbf already depends on for its decode path (see
// DESIGN.md) — only now used as an encoder rather than a decoder.
package tile

import (
	"math"

	"github.com/nucleus/osmix/pkg/geo"
)

// Coord identifies a single slippy-map tile by zoom level and tile
// column/row, per the standard XYZ tiling scheme.
type Coord struct {
	Z, X, Y uint32
}

// n returns 2^z, the number of tiles per axis at this coordinate's zoom.
func (c Coord) n() float64 { return math.Exp2(float64(c.Z)) }

// BBox returns the lon/lat bounds covered by the tile.
func (c Coord) BBox() geo.BBox {
	n := c.n()
	minLon := tile2lon(float64(c.X), n)
	maxLon := tile2lon(float64(c.X+1), n)
	maxLat := tile2lat(float64(c.Y), n)
	minLat := tile2lat(float64(c.Y+1), n)
	return geo.BBox{MinLon: minLon, MaxLon: maxLon, MinLat: minLat, MaxLat: maxLat}
}

func tile2lon(x, n float64) float64 {
	return x/n*360 - 180
}

func tile2lat(y, n float64) float64 {
	rad := math.Atan(math.Sinh(math.Pi * (1 - 2*y/n)))
	return rad * 180 / math.Pi
}

// globalPixel projects lon/lat to the continuous Web Mercator pixel
// space of the whole world at zoom z, with tileSize pixels per tile.
func globalPixel(lon, lat float64, z uint32, tileSize float64) (x, y float64) {
	n := math.Exp2(float64(z))
	x = (lon + 180) / 360 * n * tileSize
	latRad := lat * math.Pi / 180
	mercY := math.Log(math.Tan(math.Pi/4 + latRad/2))
	y = (1 - mercY/math.Pi) / 2 * n * tileSize
	return x, y
}

// project maps lon/lat to pixel (or extent-unit) coordinates local to
// tile c, in a coordinate space of size units per tile edge.
func project(lon, lat float64, c Coord, size float64) (x, y float64) {
	gx, gy := globalPixel(lon, lat, c.Z, size)
	return gx - float64(c.X)*size, gy - float64(c.Y)*size
}

// areaIndicatingKeys mirrors the fixed set used elsewhere in the
// module (pkg/query, pkg/changeset) for the closed-way -> polygon
// classification; duplicated here since rendering's area/line choice
// is tile's own concern, not query's or changeset's.
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

func isClosedRing(coords []geo.Point) bool {
	return len(coords) >= 4 && coords[0] == coords[len(coords)-1]
}
