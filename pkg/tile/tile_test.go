package tile

import (
	"math"
	"testing"

	"github.com/nucleus/osmix/pkg/entitystore"
	"github.com/nucleus/osmix/pkg/strtable"
	"github.com/nucleus/osmix/pkg/tagstore"
)

func TestCoordBBoxOrdering(t *testing.T) {
	c := Coord{Z: 14, X: 8500, Y: 5800}
	bbox := c.BBox()
	if bbox.MinLon >= bbox.MaxLon || bbox.MinLat >= bbox.MaxLat {
		t.Fatalf("BBox() = %+v, want MinLon<MaxLon and MinLat<MaxLat", bbox)
	}
}

func TestAdjacentTilesShareAnEdge(t *testing.T) {
	a := Coord{Z: 14, X: 8500, Y: 5800}
	b := Coord{Z: 14, X: 8501, Y: 5800}
	abbox, bbbox := a.BBox(), b.BBox()
	if math.Abs(abbox.MaxLon-bbbox.MinLon) > 1e-9 {
		t.Fatalf("adjacent tiles don't share a longitude edge: %v vs %v", abbox.MaxLon, bbbox.MinLon)
	}
}

func buildCrossingStore(t *testing.T) *entitystore.Store {
	t.Helper()
	strs := strtable.New()
	highwayKey := strs.Intern("highway")
	residentialVal := strs.Intern("residential")

	// A way crossing the shared edge between tiles (14, 8500, 5800) and
	// (14, 8501, 5800).
	edgeLon := Coord{Z: 14, X: 8501, Y: 5800}.BBox().MinLon
	lat := Coord{Z: 14, X: 8500, Y: 5800}.BBox().MinLat
	lat += (Coord{Z: 14, X: 8500, Y: 5800}.BBox().MaxLat - lat) / 2

	nb := entitystore.NewNodeBuilder()
	nb.Add(1, edgeLon-0.01, lat, nil)
	nb.Add(2, edgeLon+0.01, lat, nil)
	nodes, err := nb.Finalize()
	if err != nil {
		t.Fatalf("nodes finalize: %v", err)
	}
	wb := entitystore.NewWayBuilder()
	wb.Add(10, []int64{1, 2}, []tagstore.Pair{{KeyID: highwayKey, ValueID: residentialVal}})
	ways, err := wb.Finalize(nodes)
	if err != nil {
		t.Fatalf("ways finalize: %v", err)
	}
	rb := entitystore.NewRelationBuilder()
	rels, _ := rb.Finalize()
	return &entitystore.Store{Strings: strs, Nodes: nodes, Ways: ways, Rels: rels}
}

func buildCrossingBuildingStore(t *testing.T) *entitystore.Store {
	t.Helper()
	strs := strtable.New()
	buildingKey := strs.Intern("building")
	yesVal := strs.Intern("yes")

	left := Coord{Z: 14, X: 8500, Y: 5800}.BBox()
	right := Coord{Z: 14, X: 8501, Y: 5800}.BBox()
	edgeLon := right.MinLon
	midLat := (left.MinLat + left.MaxLat) / 2

	// A large square, straddling both tiles' shared edge, tagged as a
	// building so it renders with polygon fill.
	nb := entitystore.NewNodeBuilder()
	nb.Add(1, edgeLon-0.02, midLat-0.01, nil)
	nb.Add(2, edgeLon+0.02, midLat-0.01, nil)
	nb.Add(3, edgeLon+0.02, midLat+0.01, nil)
	nb.Add(4, edgeLon-0.02, midLat+0.01, nil)
	nodes, err := nb.Finalize()
	if err != nil {
		t.Fatalf("nodes finalize: %v", err)
	}
	wb := entitystore.NewWayBuilder()
	wb.Add(10, []int64{1, 2, 3, 4, 1}, []tagstore.Pair{{KeyID: buildingKey, ValueID: yesVal}})
	ways, err := wb.Finalize(nodes)
	if err != nil {
		t.Fatalf("ways finalize: %v", err)
	}
	rb := entitystore.NewRelationBuilder()
	rels, _ := rb.Finalize()
	return &entitystore.Store{Strings: strs, Nodes: nodes, Ways: ways, Rels: rels}
}

func TestRasterFillNeverPaintsTileEdges(t *testing.T) {
	// P9: polygon fill excludes the four border rows/columns (§4.12), so
	// two tiles rendered from a polygon straddling their shared edge
	// never both paint it.
	store := buildCrossingBuildingStore(t)
	size := 64
	for _, c := range []Coord{{Z: 14, X: 8500, Y: 5800}, {Z: 14, X: 8501, Y: 5800}} {
		buf, err := GetRasterTile(store, c, RasterOptions{Size: size})
		if err != nil {
			t.Fatalf("GetRasterTile(%+v): %v", c, err)
		}
		for y := 0; y < size; y++ {
			for _, x := range []int{0, size - 1} {
				o := (y*size + x) * 4
				if buf[o+3] != 0 {
					t.Fatalf("tile %+v painted a border pixel at (%d,%d) via fill", c, x, y)
				}
			}
		}
	}
}

func TestRasterTileProducesNonEmptyBuffer(t *testing.T) {
	store := buildCrossingStore(t)
	buf, err := GetRasterTile(store, Coord{Z: 14, X: 8500, Y: 5800}, RasterOptions{Size: 64})
	if err != nil {
		t.Fatalf("GetRasterTile: %v", err)
	}
	if len(buf) != 64*64*4 {
		t.Fatalf("buffer len = %d, want %d", len(buf), 64*64*4)
	}
}

func TestGetVectorTileEncodesLayers(t *testing.T) {
	store := buildCrossingStore(t)
	data, err := GetVectorTile(store, "testset", Coord{Z: 14, X: 8500, Y: 5800})
	if err != nil {
		t.Fatalf("GetVectorTile: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty vector tile bytes")
	}
}

func TestEncodePolygonGeometryClosesRing(t *testing.T) {
	ring := []pixel{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}
	geom := encodePolygonGeometry(ring)
	if len(geom) == 0 {
		t.Fatal("expected non-empty geometry")
	}
	last := geom[len(geom)-1]
	if last != commandInteger(cmdClosePath, 1) {
		t.Fatalf("last command = %d, want ClosePath", last)
	}
}
