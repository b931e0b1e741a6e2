package entitystore

import (
	"testing"

	"github.com/nucleus/osmix/pkg/geo"
	"github.com/nucleus/osmix/pkg/tagstore"
)

func buildNodes(t *testing.T, rows []RawNode) *NodeColumn {
	t.Helper()
	b := NewNodeBuilder()
	for _, r := range rows {
		b.Add(r.ID, r.Lon, r.Lat, r.Tags)
	}
	col, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return col
}

func TestNodeColumnSortsByID(t *testing.T) {
	col := buildNodes(t, []RawNode{
		{ID: 30, Lon: 1, Lat: 1},
		{ID: 10, Lon: 2, Lat: 2},
		{ID: 20, Lon: 3, Lat: 3},
	})
	want := []int64{10, 20, 30}
	for i, w := range want {
		if got := col.GetByIndex(i); got != w {
			t.Fatalf("GetByIndex(%d) = %d, want %d", i, got, w)
		}
	}
	idx, ok := col.GetByID(10)
	if !ok || idx != 0 {
		t.Fatalf("GetByID(10) = %d,%v, want 0,true", idx, ok)
	}
	lon, lat := col.LonLat(0)
	if lon != 2 || lat != 2 {
		t.Fatalf("LonLat(0) = (%v,%v), want (2,2) [node id 10's coords]", lon, lat)
	}
}

func TestNodeColumnDuplicateIDRejected(t *testing.T) {
	b := NewNodeBuilder()
	b.Add(1, 0, 0, nil)
	b.Add(1, 1, 1, nil)
	if _, err := b.Finalize(); err == nil {
		t.Fatal("expected error on duplicate node id")
	}
}

func TestNodeColumnTagsSurviveSort(t *testing.T) {
	keyID, valID := uint32(5), uint32(7)
	col := buildNodes(t, []RawNode{
		{ID: 99, Lon: 0, Lat: 0, Tags: []tagstore.Pair{{KeyID: keyID, ValueID: valID}}},
		{ID: 1, Lon: 1, Lat: 1},
	})
	idx, _ := col.GetByID(99)
	v, ok := col.Tags().Get(col.TagIndex(idx), keyID)
	if !ok || v != valID {
		t.Fatalf("tags for node 99 lost after sort: ok=%v v=%v", ok, v)
	}
}

func TestNodeColumnWithinBBox(t *testing.T) {
	col := buildNodes(t, []RawNode{
		{ID: 1, Lon: 0, Lat: 0},
		{ID: 2, Lon: 5, Lat: 5},
		{ID: 3, Lon: 50, Lat: 50},
	})
	hits := col.WithinBBox(geo.BBox{MinLon: -1, MinLat: -1, MaxLon: 10, MaxLat: 10})
	if len(hits) != 2 {
		t.Fatalf("WithinBBox = %v, want 2 hits", hits)
	}
}

func TestNodeColumnWithinRadiusKm(t *testing.T) {
	col := buildNodes(t, []RawNode{
		{ID: 1, Lon: 0, Lat: 0},
		{ID: 2, Lon: 0.01, Lat: 0},
		{ID: 3, Lon: 10, Lat: 10},
	})
	hits := col.WithinRadiusKm(0, 0, 5)
	if len(hits) != 2 {
		t.Fatalf("WithinRadiusKm = %v, want 2 hits (ids 1,2)", hits)
	}
}

func TestNodeColumnNearestOrdersAndBreaksTies(t *testing.T) {
	col := buildNodes(t, []RawNode{
		{ID: 100, Lon: 0, Lat: 1}, // farther
		{ID: 2, Lon: 0, Lat: 0.001},
		{ID: 1, Lon: 0.001, Lat: 0}, // exactly tied with id 2 at the equator; lower id wins
	})
	got := col.Nearest(0, 0, 2, 0)
	if len(got) != 2 {
		t.Fatalf("Nearest returned %d results, want 2", len(got))
	}
	if col.GetByIndex(got[0]) == 100 {
		t.Fatalf("farthest node returned first: %v", got)
	}
	if col.GetByIndex(got[0]) != 1 {
		t.Fatalf("tie between ids 1 and 2 returned id %d first, want 1", col.GetByIndex(got[0]))
	}
}

func TestNodeColumnNearestRespectsMaxKm(t *testing.T) {
	col := buildNodes(t, []RawNode{
		{ID: 1, Lon: 0, Lat: 0},
		{ID: 2, Lon: 0, Lat: 50},
	})
	got := col.Nearest(0, 0, 5, 10)
	if len(got) != 1 || col.GetByIndex(got[0]) != 1 {
		t.Fatalf("Nearest with maxKm=10 = %v, want only node 1", got)
	}
}
