// Package tagstore implements the per-entity tag storage (C2): a flat
// CSR array of (key_id, value_id) pairs per column, sorted by key_id
// within each entity, plus an inverted key->entity index built once at
// finalization.
package tagstore

import "sort"

// Pair is a single interned (key, value) tag.
type Pair struct {
	KeyID   uint32
	ValueID uint32
}

// Builder accumulates per-entity tag lists during ingestion, emitting
// a finalized, CSR-packed Store on Finalize.
type Builder struct {
	pairs  []Pair
	starts []uint32 // starts[i] = offset of entity i's first pair
}

// NewBuilder returns an empty tag builder.
func NewBuilder() *Builder {
	b := &Builder{}
	b.starts = append(b.starts, 0)
	return b
}

// Append records the tags for the next entity (in append order) and
// returns that entity's index. Pairs are sorted by KeyID so Store.Get
// can binary-search.
func (b *Builder) Append(pairs []Pair) int {
	sorted := make([]Pair, len(pairs))
	copy(sorted, pairs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].KeyID < sorted[j].KeyID })
	b.pairs = append(b.pairs, sorted...)
	b.starts = append(b.starts, uint32(len(b.pairs)))
	return len(b.starts) - 2
}

// Finalize builds the inverted key index and returns a read-only Store.
func (b *Builder) Finalize() *Store {
	s := &Store{pairs: b.pairs, starts: b.starts}
	s.buildInvertedIndex()
	return s
}

// Store is the finalized, read-only tag column for one entity kind.
type Store struct {
	pairs  []Pair
	starts []uint32

	// inverted[keyID] is the ascending list of entity indexes carrying
	// that key, built once at finalization (§4.2).
	inverted map[uint32][]int
}

func (s *Store) buildInvertedIndex() {
	s.inverted = make(map[uint32][]int)
	n := len(s.starts) - 1
	for i := 0; i < n; i++ {
		for _, p := range s.pairs[s.starts[i]:s.starts[i+1]] {
			s.inverted[p.KeyID] = append(s.inverted[p.KeyID], i)
		}
	}
}

// Len returns the number of entities this store carries tags for.
func (s *Store) Len() int {
	if len(s.starts) == 0 {
		return 0
	}
	return len(s.starts) - 1
}

// TagsOf returns the sorted (key,value) pairs for entity index.
func (s *Store) TagsOf(index int) []Pair {
	if index < 0 || index >= s.Len() {
		return nil
	}
	return s.pairs[s.starts[index]:s.starts[index+1]]
}

// Cardinality returns the number of tags entity index carries.
func (s *Store) Cardinality(index int) int {
	if index < 0 || index >= s.Len() {
		return 0
	}
	return int(s.starts[index+1] - s.starts[index])
}

// Get returns the value id for keyID on entity index, and whether it
// was present. Uses binary search since tags are stored key-sorted.
func (s *Store) Get(index int, keyID uint32) (uint32, bool) {
	tags := s.TagsOf(index)
	lo, hi := 0, len(tags)
	for lo < hi {
		mid := (lo + hi) / 2
		if tags[mid].KeyID < keyID {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(tags) && tags[lo].KeyID == keyID {
		return tags[lo].ValueID, true
	}
	return 0, false
}

// HasKey reports whether entity index carries keyID.
func (s *Store) HasKey(index int, keyID uint32) bool {
	_, ok := s.Get(index, keyID)
	return ok
}

// EntitiesWithKey returns the ascending list of entity indexes that
// carry keyID, or nil if none do. The slice is shared and must not be
// mutated by callers.
func (s *Store) EntitiesWithKey(keyID uint32) []int {
	return s.inverted[keyID]
}

// EntitiesWithTag returns the ascending list of entity indexes whose
// keyID tag equals valueID.
func (s *Store) EntitiesWithTag(keyID, valueID uint32) []int {
	candidates := s.inverted[keyID]
	out := make([]int, 0, len(candidates))
	for _, idx := range candidates {
		if v, ok := s.Get(idx, keyID); ok && v == valueID {
			out = append(out, idx)
		}
	}
	return out
}
