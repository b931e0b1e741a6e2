package routing

import (
	"math"
	"testing"

	"github.com/nucleus/osmix/pkg/entitystore"
	"github.com/nucleus/osmix/pkg/strtable"
	"github.com/nucleus/osmix/pkg/tagstore"
)

// buildSquare constructs four nodes at the corners of a roughly 1km
// square connected by four residential ways, matching the "routing on
// a square" scenario.
func buildSquare(t *testing.T) (*entitystore.NodeColumn, *entitystore.WayColumn, *strtable.Table) {
	t.Helper()
	strs := strtable.New()
	highwayKey := strs.Intern("highway")
	residentialVal := strs.Intern("residential")

	nb := entitystore.NewNodeBuilder()
	// Roughly a 1km square at the equator: with the 6371 km haversine
	// radius, 1 degree spans ~111.195 km, so d degrees is 1000 m.
	const d = 180 / (math.Pi * 6371.0)
	nb.Add(1, 0, 0, nil)   // NW-ish corner, id 1
	nb.Add(2, d, 0, nil)   // id 2
	nb.Add(3, d, -d, nil)  // SE, id 3
	nb.Add(4, 0, -d, nil)  // id 4
	nodes, err := nb.Finalize()
	if err != nil {
		t.Fatalf("nodes finalize: %v", err)
	}

	tags := []tagstore.Pair{{KeyID: highwayKey, ValueID: residentialVal}}
	wb := entitystore.NewWayBuilder()
	wb.Add(100, []int64{1, 2}, tags)
	wb.Add(101, []int64{2, 3}, tags)
	wb.Add(102, []int64{3, 4}, tags)
	wb.Add(103, []int64{4, 1}, tags)
	ways, err := wb.Finalize(nodes)
	if err != nil {
		t.Fatalf("ways finalize: %v", err)
	}
	return nodes, ways, strs
}

func TestRouteOnSquare(t *testing.T) {
	nodes, ways, strs := buildSquare(t)
	g := Build(nodes, ways, strs)

	from, _ := nodes.GetByID(1)
	to, _ := nodes.GetByID(3)
	res, err := g.Route(from, to)
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(res.Coordinates) != 3 {
		t.Fatalf("len(Coordinates) = %d, want 3", len(res.Coordinates))
	}
	if math.Abs(res.DistanceM-2000) > 2 {
		t.Fatalf("DistanceM = %v, want ~2000", res.DistanceM)
	}
}

func TestRouteNoPathReturnsNoRoute(t *testing.T) {
	strs := strtable.New()
	highwayKey := strs.Intern("highway")
	residentialVal := strs.Intern("residential")

	nb := entitystore.NewNodeBuilder()
	nb.Add(1, 0, 0, nil)
	nb.Add(2, 1, 0, nil)
	nb.Add(3, 2, 0, nil) // isolated, no edges
	nodes, _ := nb.Finalize()

	tags := []tagstore.Pair{{KeyID: highwayKey, ValueID: residentialVal}}
	wb := entitystore.NewWayBuilder()
	wb.Add(100, []int64{1, 2}, tags)
	ways, _ := wb.Finalize(nodes)

	g := Build(nodes, ways, strs)
	from, _ := nodes.GetByID(1)
	to, _ := nodes.GetByID(3)
	if _, err := g.Route(from, to); err == nil {
		t.Fatal("expected NoRoute error")
	}
}

func TestRouteSameNode(t *testing.T) {
	nodes, ways, strs := buildSquare(t)
	g := Build(nodes, ways, strs)
	idx, _ := nodes.GetByID(1)
	res, err := g.Route(idx, idx)
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if res.DistanceM != 0 || len(res.Coordinates) != 1 {
		t.Fatalf("Route(same,same) = %+v, want zero-distance single-point", res)
	}
}

func TestIsRoutable(t *testing.T) {
	if !IsRoutable("residential") {
		t.Fatal("residential should be routable")
	}
	if IsRoutable("rail") {
		t.Fatal("rail should not be routable")
	}
}
