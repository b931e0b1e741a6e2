// Package idindex implements the sorted id->index mapping (C3) shared
// by every entity column. Ids accumulate in append order during
// ingestion; Build produces the ascending id array plus the
// permutation the owning column must apply to its own parallel arrays
// so that ids[i] stays aligned with index i everywhere (I5).
package idindex

import "sort"

// Index is the finalized, read-only sorted id array for one entity
// column. IndexFromID is O(log n); IDFromIndex is O(1).
type Index struct {
	ids []int64
}

// Build sorts the given append-order ids and returns both the
// finalized Index and the permutation mapping new index -> old index,
// i.e. permutation[i] is the position in the original (unsorted) slice
// that now belongs at sorted position i. Callers use permutation to
// reorder every other parallel array of the same column.
//
// Build panics if ids contains a duplicate, since I1 (unique ids
// within a kind) must hold by the time a column is finalized; callers
// are expected to have already rejected duplicates during ingestion.
func Build(ids []int64) (*Index, []int) {
	n := len(ids)
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(i, j int) bool { return ids[perm[i]] < ids[perm[j]] })

	sorted := make([]int64, n)
	for i, p := range perm {
		sorted[i] = ids[p]
	}
	for i := 1; i < n; i++ {
		if sorted[i] == sorted[i-1] {
			panic("idindex: duplicate id in finalized column")
		}
	}
	return &Index{ids: sorted}, perm
}

// Len returns the number of ids in the index.
func (x *Index) Len() int { return len(x.ids) }

// IDFromIndex returns the id stored at index, which must be in
// [0, Len()).
func (x *Index) IDFromIndex(index int) int64 { return x.ids[index] }

// IndexFromID returns the dense internal index for id, or false if id
// is not present.
func (x *Index) IndexFromID(id int64) (int, bool) {
	lo, hi := 0, len(x.ids)
	for lo < hi {
		mid := (lo + hi) / 2
		if x.ids[mid] < id {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(x.ids) && x.ids[lo] == id {
		return lo, true
	}
	return 0, false
}

// IDs returns the ascending id slice. Callers must not mutate it.
func (x *Index) IDs() []int64 { return x.ids }
