package entitystore

import (
	"testing"

	"github.com/nucleus/osmix/pkg/osmerr"
)

func TestWayColumnSortsAndResolvesBBox(t *testing.T) {
	nodes := buildNodes(t, []RawNode{
		{ID: 1, Lon: 0, Lat: 0},
		{ID: 2, Lon: 1, Lat: 1},
		{ID: 3, Lon: 2, Lat: 0},
	})

	wb := NewWayBuilder()
	wb.Add(200, []int64{1, 2, 3}, nil)
	wb.Add(100, []int64{1, 2}, nil)
	ways, err := wb.Finalize(nodes)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if ways.GetByIndex(0) != 100 || ways.GetByIndex(1) != 200 {
		t.Fatalf("ways not sorted by id: [%d, %d]", ways.GetByIndex(0), ways.GetByIndex(1))
	}

	idx, _ := ways.GetByID(200)
	box := ways.BBox(idx)
	if box.MinLon != 0 || box.MaxLon != 2 || box.MinLat != 0 || box.MaxLat != 1 {
		t.Fatalf("way 200 bbox = %+v, want [0,0,2,1]", box)
	}
}

func TestWayColumnGetCoordinatesDanglingRef(t *testing.T) {
	nodes := buildNodes(t, []RawNode{{ID: 1, Lon: 0, Lat: 0}})
	wb := NewWayBuilder()
	wb.Add(10, []int64{1, 999}, nil)
	ways, err := wb.Finalize(nodes)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	idx, _ := ways.GetByID(10)
	_, err = ways.GetCoordinates(idx, nodes)
	if !osmerr.Is(err, osmerr.CodeDanglingRef) {
		t.Fatalf("GetCoordinates error = %v, want DanglingRef", err)
	}
}

func TestWayColumnRefsPreservedAfterSort(t *testing.T) {
	nodes := buildNodes(t, []RawNode{
		{ID: 1, Lon: 0, Lat: 0},
		{ID: 2, Lon: 1, Lat: 1},
	})
	wb := NewWayBuilder()
	wb.Add(999, []int64{2, 1}, nil)
	wb.Add(1, []int64{1, 2}, nil)
	ways, err := wb.Finalize(nodes)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	idx, _ := ways.GetByID(999)
	refs := ways.Refs(idx)
	if len(refs) != 2 || refs[0] != 2 || refs[1] != 1 {
		t.Fatalf("way 999 refs = %v, want [2,1]", refs)
	}
}

func TestWayColumnIncidence(t *testing.T) {
	nodes := buildNodes(t, []RawNode{
		{ID: 1, Lon: 0, Lat: 0},
		{ID: 2, Lon: 1, Lat: 1},
		{ID: 3, Lon: 2, Lat: 2},
	})
	wb := NewWayBuilder()
	wb.Add(1, []int64{1, 2}, nil)
	wb.Add(2, []int64{2, 3}, nil)
	ways, err := wb.Finalize(nodes)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	ways.BuildIncidence(nodes)
	n2, _ := nodes.GetByID(2)
	incident := ways.WaysContainingNode(n2)
	if len(incident) != 2 {
		t.Fatalf("node 2 incident ways = %v, want 2 ways", incident)
	}
}
