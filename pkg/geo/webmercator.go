package geo

import "math"

// TileXY returns the integer slippy-map tile coordinate containing
// (lon,lat) at zoom z.
func TileXY(lon, lat float64, z int) (x, y int) {
	n := math.Exp2(float64(z))
	x = int(math.Floor((lon + 180.0) / 360.0 * n))
	latRad := lat * math.Pi / 180
	y = int(math.Floor((1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n))
	return x, y
}

// TileBounds returns the WGS-84 bbox covered by slippy-map tile
// (z,x,y), used by both the raster rasterizer and the vector tile
// encoder to clip/project query results (§6 tile API contract).
func TileBounds(z, x, y int) BBox {
	n := math.Exp2(float64(z))
	minLon := float64(x)/n*360.0 - 180.0
	maxLon := float64(x+1)/n*360.0 - 180.0
	maxLat := tileYToLat(float64(y), n)
	minLat := tileYToLat(float64(y+1), n)
	return BBox{MinLon: minLon, MinLat: minLat, MaxLon: maxLon, MaxLat: maxLat}
}

func tileYToLat(y, n float64) float64 {
	yRatio := math.Pi * (1.0 - 2.0*y/n)
	return 180.0 / math.Pi * math.Atan(math.Sinh(yRatio))
}

// ProjectToPixel maps a WGS-84 point into pixel space within a tile of
// the given size, given the tile's bounds. The origin is the tile's
// top-left corner, y increasing downward, matching raster image
// conventions.
func ProjectToPixel(p Point, bounds BBox, tileSize int) (px, py float64) {
	px = (p.Lon - bounds.MinLon) / (bounds.MaxLon - bounds.MinLon) * float64(tileSize)
	py = (bounds.MaxLat - p.Lat) / (bounds.MaxLat - bounds.MinLat) * float64(tileSize)
	return px, py
}
