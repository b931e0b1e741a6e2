package query

import (
	"testing"

	"github.com/nucleus/osmix/pkg/entitystore"
	"github.com/nucleus/osmix/pkg/geo"
	"github.com/nucleus/osmix/pkg/strtable"
	"github.com/nucleus/osmix/pkg/tagstore"
)

func buildTestStore(t *testing.T) *entitystore.Store {
	t.Helper()
	strs := strtable.New()
	highwayKey := strs.Intern("highway")
	residentialVal := strs.Intern("residential")
	nameKey := strs.Intern("name")
	mainStVal := strs.Intern("Main Street")
	buildingKey := strs.Intern("building")
	yesVal := strs.Intern("yes")

	nb := entitystore.NewNodeBuilder()
	nb.Add(10, 0, 0, nil)
	nb.Add(20, 0.01, 0, nil)
	nb.Add(30, 0.01, 0.01, nil)
	nb.Add(40, 0, 0.01, nil)
	nodes, err := nb.Finalize()
	if err != nil {
		t.Fatalf("nodes finalize: %v", err)
	}

	wb := entitystore.NewWayBuilder()
	wb.Add(100, []int64{10, 20}, []tagstore.Pair{
		{KeyID: highwayKey, ValueID: residentialVal},
		{KeyID: nameKey, ValueID: mainStVal},
	})
	// Closed building way (a square) tagged as an area.
	wb.Add(200, []int64{10, 20, 30, 40, 10}, []tagstore.Pair{
		{KeyID: buildingKey, ValueID: yesVal},
	})
	ways, err := wb.Finalize(nodes)
	if err != nil {
		t.Fatalf("ways finalize: %v", err)
	}

	rb := entitystore.NewRelationBuilder()
	rb.Add(1, []entitystore.Member{
		{Kind: entitystore.MemberWay, Ref: 100, Role: strs.Intern("")},
	}, nil)
	rels, err := rb.Finalize()
	if err != nil {
		t.Fatalf("rels finalize: %v", err)
	}

	return &entitystore.Store{Strings: strs, Nodes: nodes, Ways: ways, Rels: rels}
}

func TestGetNodeWayRelation(t *testing.T) {
	e := New(buildTestStore(t))

	n, ok := e.Get(KindNode, 10)
	if !ok || n.Lon != 0 || n.Lat != 0 {
		t.Fatalf("Get(node,10) = %+v, %v", n, ok)
	}

	w, ok := e.Get(KindWay, 100)
	if !ok || len(w.Refs) != 2 || w.Tags["highway"] != "residential" {
		t.Fatalf("Get(way,100) = %+v, %v", w, ok)
	}

	r, ok := e.Get(KindRelation, 1)
	if !ok || len(r.Members) != 1 || r.Members[0].Ref != 100 {
		t.Fatalf("Get(relation,1) = %+v, %v", r, ok)
	}

	if _, ok := e.Get(KindNode, 999); ok {
		t.Fatal("Get(node,999) should not be found")
	}
}

func TestSearchTagFiltersByKeyAndValue(t *testing.T) {
	e := New(buildTestStore(t))
	results := e.SearchTag("highway", nil)
	if len(results) != 1 || results[0].Kind != KindWay {
		t.Fatalf("SearchTag(highway) = %+v", results)
	}

	val := "yes"
	areaResults := e.SearchTag("building", &val)
	if len(areaResults) != 1 {
		t.Fatalf("SearchTag(building=yes) = %+v", areaResults)
	}

	missingVal := "no"
	none := e.SearchTag("building", &missingVal)
	if len(none) != 0 {
		t.Fatalf("SearchTag(building=no) = %+v, want empty", none)
	}
}

func TestNodesInBBox(t *testing.T) {
	e := New(buildTestStore(t))
	out := e.NodesInBBox(geo.BBox{MinLon: -1, MaxLon: 1, MinLat: -1, MaxLat: 1})
	if len(out.IDs) != 4 || len(out.Positions) != 8 {
		t.Fatalf("NodesInBBox = %+v", out)
	}
}

func TestWaysInBBoxResolvesCoordinates(t *testing.T) {
	e := New(buildTestStore(t))
	out := e.WaysInBBox(geo.BBox{MinLon: -1, MaxLon: 1, MinLat: -1, MaxLat: 1})
	if len(out.IDs) != 2 {
		t.Fatalf("WaysInBBox = %+v", out)
	}
}

func TestToGeoJSONFeatureNodeAndWay(t *testing.T) {
	e := New(buildTestStore(t))

	nf, err := e.ToGeoJSONFeature(KindNode, 10)
	if err != nil || nf.Geometry.Type != "Point" {
		t.Fatalf("node feature = %+v, err=%v", nf, err)
	}

	lf, err := e.ToGeoJSONFeature(KindWay, 100)
	if err != nil || lf.Geometry.Type != "LineString" {
		t.Fatalf("open way feature = %+v, err=%v", lf, err)
	}

	pf, err := e.ToGeoJSONFeature(KindWay, 200)
	if err != nil || pf.Geometry.Type != "Polygon" {
		t.Fatalf("closed building way feature = %+v, err=%v", pf, err)
	}
}

func TestToGeoJSONFeatureRelationMultiLineString(t *testing.T) {
	e := New(buildTestStore(t))
	rf, err := e.ToGeoJSONFeature(KindRelation, 1)
	if err != nil {
		t.Fatalf("relation feature: %v", err)
	}
	if rf.Geometry.Type != "MultiLineString" {
		t.Fatalf("relation geometry type = %q, want MultiLineString", rf.Geometry.Type)
	}
}

func TestNearestRoutableNodeAndRoute(t *testing.T) {
	e := New(buildTestStore(t))
	ni, distM, ok := e.NearestRoutableNode(0.0001, 0.0001, 0)
	if !ok {
		t.Fatal("expected a routable node nearby")
	}
	if distM < 0 {
		t.Fatalf("distM = %v", distM)
	}

	from, _ := e.store.Nodes.GetByID(10)
	to, _ := e.store.Nodes.GetByID(20)
	res, err := e.Route(from, to, RouteOptions{})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(res.Coordinates) != 2 {
		t.Fatalf("Route coordinates = %v", res.Coordinates)
	}
	_ = ni
}
