package tile

import (
	"github.com/nucleus/osmix/pkg/entitystore"
	"github.com/nucleus/osmix/pkg/geo"
	"github.com/nucleus/osmix/pkg/tagstore"
)

// tagsOf resolves a slice of interned tag pairs against the store's
// string table, the same pattern pkg/changeset's tagsFromPairs uses.
func tagsOf(store *entitystore.Store, pairs []tagstore.Pair) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, _ := store.Strings.Lookup(p.KeyID)
		v, _ := store.Strings.Lookup(p.ValueID)
		m[k] = v
	}
	return m
}

// DefaultTileSize is the pixel edge length used when RasterOptions.Size
// is zero.
const DefaultTileSize = 256

// RasterOptions controls GetRasterTile's output.
type RasterOptions struct {
	// Size is the tile edge length in pixels. Zero means DefaultTileSize.
	Size int
}

func (o RasterOptions) size() int {
	if o.Size <= 0 {
		return DefaultTileSize
	}
	return o.Size
}

// GetRasterTile renders every way whose bbox intersects the tile's
// bounds into an RGBA8 pixel buffer (row-major, 4 bytes/pixel): closed,
// area-indicating ways are scanline-filled, everything else is drawn as
// a Bresenham polyline. Polygon fill respects tile-edge exclusivity
// (§4.12/P9): pixels at x=0, x=size-1, y=0 or y=size-1 are never
// painted by fill, so adjacent tiles never double-paint a shared edge.
func GetRasterTile(store *entitystore.Store, c Coord, opts RasterOptions) ([]byte, error) {
	size := opts.size()
	buf := make([]byte, size*size*4)

	bbox := c.BBox()
	for _, idx := range store.Ways.WithinBBox(bbox) {
		coords, err := store.Ways.GetCoordinates(idx, store.Nodes)
		if err != nil {
			continue
		}
		if len(coords) < 2 {
			continue
		}
		tags := tagsOf(store, store.Ways.TagsOf(idx))
		px := projectAll(coords, c, float64(size))

		if isClosedRing(coords) && isAreaIndicating(tags) {
			scanlineFill(buf, size, px)
		}
		for i := 0; i+1 < len(px); i++ {
			drawLine(buf, size, px[i], px[i+1])
		}
	}
	return buf, nil
}

type pixel struct{ x, y float64 }

func projectAll(coords []geo.Point, c Coord, size float64) []pixel {
	out := make([]pixel, len(coords))
	for i, p := range coords {
		x, y := project(p.Lon, p.Lat, c, size)
		out[i] = pixel{x, y}
	}
	return out
}

func setPixel(buf []byte, size, x, y int) {
	if x < 0 || y < 0 || x >= size || y >= size {
		return
	}
	o := (y*size + x) * 4
	buf[o], buf[o+1], buf[o+2], buf[o+3] = 0, 0, 0, 255
}

// drawLine rasterizes the segment a-b with the standard integer
// Bresenham algorithm.
func drawLine(buf []byte, size int, a, b pixel) {
	x0, y0 := int(a.x), int(a.y)
	x1, y1 := int(b.x), int(b.y)

	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 >= x1 {
		sx = -1
	}
	if y0 >= y1 {
		sy = -1
	}
	err := dx + dy

	for {
		setPixel(buf, size, x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// scanlineFill fills the polygon described by ring (closed, first ==
// last) using the standard even-odd scanline algorithm, one scanline
// per integer pixel row, excluding the tile's four border rows/columns
// (tile-edge exclusivity, §4.12).
func scanlineFill(buf []byte, size int, ring []pixel) {
	if len(ring) < 4 {
		return
	}
	minY, maxY := ring[0].y, ring[0].y
	for _, p := range ring {
		if p.y < minY {
			minY = p.y
		}
		if p.y > maxY {
			maxY = p.y
		}
	}
	yStart := int(minY)
	if yStart < 1 {
		yStart = 1
	}
	yEnd := int(maxY)
	if yEnd > size-2 {
		yEnd = size - 2
	}

	for y := yStart; y <= yEnd; y++ {
		scanY := float64(y) + 0.5
		xs := intersectionsAtY(ring, scanY)
		for i := 0; i+1 < len(xs); i += 2 {
			x0, x1 := int(xs[i]), int(xs[i+1])
			if x0 < 1 {
				x0 = 1
			}
			if x1 > size-2 {
				x1 = size - 2
			}
			for x := x0; x <= x1; x++ {
				setPixel(buf, size, x, y)
			}
		}
	}
}

func intersectionsAtY(ring []pixel, y float64) []float64 {
	var xs []float64
	for i := 0; i+1 < len(ring); i++ {
		a, b := ring[i], ring[i+1]
		if (a.y <= y && b.y > y) || (b.y <= y && a.y > y) {
			t := (y - a.y) / (b.y - a.y)
			xs = append(xs, a.x+t*(b.x-a.x))
		}
	}
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
	return xs
}
