package geo

import (
	"math"
	"testing"
)

func TestHaversineZeroDistance(t *testing.T) {
	p := Point{Lon: 7.42, Lat: 43.73}
	if d := HaversineMeters(p, p); d > 1e-6 {
		t.Fatalf("expected ~0 distance, got %v", d)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// Roughly 1 degree of longitude at the equator ~ 111.19 km.
	a := Point{Lon: 0, Lat: 0}
	b := Point{Lon: 1, Lat: 0}
	got := HaversineKm(a, b)
	want := 111.19
	if math.Abs(got-want) > 0.5 {
		t.Fatalf("HaversineKm(0,0 -> 1,0) = %v, want ~%v", got, want)
	}
}

func TestBBoxExpandAndUnion(t *testing.T) {
	b := Empty()
	b.Expand(Point{Lon: 1, Lat: 2})
	b.Expand(Point{Lon: -1, Lat: 5})
	if !b.Valid() || b.MinLon != -1 || b.MaxLon != 1 || b.MinLat != 2 || b.MaxLat != 5 {
		t.Fatalf("unexpected bbox after expand: %+v", b)
	}

	other := BBox{MinLon: -5, MinLat: -5, MaxLon: 0, MaxLat: 0}
	b.Union(other)
	if b.MinLon != -5 || b.MinLat != -5 {
		t.Fatalf("unexpected bbox after union: %+v", b)
	}
}

func TestBBoxIntersects(t *testing.T) {
	a := BBox{MinLon: 0, MinLat: 0, MaxLon: 10, MaxLat: 10}
	b := BBox{MinLon: 5, MinLat: 5, MaxLon: 15, MaxLat: 15}
	c := BBox{MinLon: 20, MinLat: 20, MaxLon: 30, MaxLat: 30}
	if !a.Intersects(b) {
		t.Fatal("a and b should intersect")
	}
	if a.Intersects(c) {
		t.Fatal("a and c should not intersect")
	}
}

func TestTileBoundsRoundTrip(t *testing.T) {
	z, x, y := 14, 8500, 5800
	b := TileBounds(z, x, y)
	cx, cy := TileXY((b.MinLon+b.MaxLon)/2, (b.MinLat+b.MaxLat)/2, z)
	if cx != x || cy != y {
		t.Fatalf("tile round-trip: got (%d,%d), want (%d,%d)", cx, cy, x, y)
	}
}

func TestProjectToPixelCorners(t *testing.T) {
	bounds := BBox{MinLon: 0, MinLat: 0, MaxLon: 1, MaxLat: 1}
	px, py := ProjectToPixel(Point{Lon: 0, Lat: 1}, bounds, 256)
	if px != 0 || py != 0 {
		t.Fatalf("top-left corner should project to (0,0), got (%v,%v)", px, py)
	}
	px, py = ProjectToPixel(Point{Lon: 1, Lat: 0}, bounds, 256)
	if px != 256 || py != 256 {
		t.Fatalf("bottom-right corner should project to (256,256), got (%v,%v)", px, py)
	}
}
