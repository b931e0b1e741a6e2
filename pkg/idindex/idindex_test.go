package idindex

import "testing"

func TestBuildSortsAndPermutes(t *testing.T) {
	ids := []int64{30, 10, 20}
	idx, perm := Build(ids)

	want := []int64{10, 20, 30}
	for i, w := range want {
		if idx.IDFromIndex(i) != w {
			t.Fatalf("IDFromIndex(%d) = %d, want %d", i, idx.IDFromIndex(i), w)
		}
	}
	// perm[i] tells us which original slot now sits at sorted position i.
	for i, w := range want {
		if ids[perm[i]] != w {
			t.Fatalf("perm misaligned at %d: ids[perm[%d]]=%d want %d", i, i, ids[perm[i]], w)
		}
	}
}

func TestBijection(t *testing.T) {
	ids := []int64{-5, 100, 3, 0, 42}
	idx, _ := Build(append([]int64{}, ids...))

	for i := 0; i < idx.Len(); i++ {
		id := idx.IDFromIndex(i)
		gotIdx, ok := idx.IndexFromID(id)
		if !ok || gotIdx != i {
			t.Fatalf("IndexFromID(IDFromIndex(%d)) = %d,%v; want %d,true", i, gotIdx, ok, i)
		}
	}
}

func TestIndexFromIDMissing(t *testing.T) {
	idx, _ := Build([]int64{1, 2, 3})
	if _, ok := idx.IndexFromID(99); ok {
		t.Fatal("expected missing id to report ok=false")
	}
}

func TestBuildPanicsOnDuplicate(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate id")
		}
	}()
	Build([]int64{1, 2, 1})
}
