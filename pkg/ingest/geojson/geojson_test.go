package geojson

import (
	"context"
	"testing"

	"github.com/nucleus/osmix/pkg/ingest"
	"github.com/nucleus/osmix/pkg/strtable"
)

const sampleFC = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"amenity": "cafe"}, "geometry": {"type": "Point", "coordinates": [1.0, 2.0]}},
    {"type": "Feature", "properties": {"highway": "residential"}, "geometry": {"type": "LineString", "coordinates": [[0,0],[1,0],[1,1]]}},
    {"type": "Feature", "properties": {"building": "yes"}, "geometry": {"type": "Polygon", "coordinates": [[[0,0],[2,0],[2,2],[0,2],[0,0]]]}}
  ]
}`

func TestNewBuildsNodesWaysAndPolygon(t *testing.T) {
	strs := strtable.New()
	src, err := New([]byte(sampleFC), strs)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	store, err := ingest.BuildStore(context.Background(), strs, src, nil)
	if err != nil {
		t.Fatalf("BuildStore: %v", err)
	}

	if store.Nodes.Len() == 0 {
		t.Fatal("expected synthesized nodes")
	}
	// one Point node + 3 LineString nodes + 4 Polygon ring nodes (the
	// ring's closing point reuses its first node).
	if store.Ways.Len() != 2 {
		t.Fatalf("Ways.Len() = %d, want 2 (line + polygon)", store.Ways.Len())
	}
	if store.Rels.Len() != 0 {
		t.Fatalf("Rels.Len() = %d, want 0 (single-ring polygon needs no relation)", store.Rels.Len())
	}
}

const polygonWithHoleFC = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"landuse": "forest"}, "geometry": {"type": "Polygon", "coordinates": [
      [[0,0],[10,0],[10,10],[0,10],[0,0]],
      [[2,2],[2,4],[4,4],[4,2],[2,2]]
    ]}}
  ]
}`

func TestPolygonWithHoleMakesRelation(t *testing.T) {
	strs := strtable.New()
	src, err := New([]byte(polygonWithHoleFC), strs)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	store, err := ingest.BuildStore(context.Background(), strs, src, nil)
	if err != nil {
		t.Fatalf("BuildStore: %v", err)
	}
	if store.Ways.Len() != 2 {
		t.Fatalf("Ways.Len() = %d, want 2 (outer + inner ring)", store.Ways.Len())
	}
	if store.Rels.Len() != 1 {
		t.Fatalf("Rels.Len() = %d, want 1", store.Rels.Len())
	}
}
