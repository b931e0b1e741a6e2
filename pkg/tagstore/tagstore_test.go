package tagstore

import "testing"

func TestAppendSortsByKeyID(t *testing.T) {
	b := NewBuilder()
	idx := b.Append([]Pair{{KeyID: 5, ValueID: 1}, {KeyID: 2, ValueID: 2}, {KeyID: 8, ValueID: 3}})
	s := b.Finalize()

	tags := s.TagsOf(idx)
	for i := 1; i < len(tags); i++ {
		if tags[i-1].KeyID > tags[i].KeyID {
			t.Fatalf("tags not sorted by KeyID: %+v", tags)
		}
	}
}

func TestGetAndHasKey(t *testing.T) {
	b := NewBuilder()
	idx := b.Append([]Pair{{KeyID: 1, ValueID: 10}, {KeyID: 2, ValueID: 20}})
	s := b.Finalize()

	v, ok := s.Get(idx, 2)
	if !ok || v != 20 {
		t.Fatalf("Get(idx,2) = %d,%v; want 20,true", v, ok)
	}
	if _, ok := s.Get(idx, 99); ok {
		t.Fatal("Get(idx,99) should miss")
	}
	if !s.HasKey(idx, 1) {
		t.Fatal("HasKey(idx,1) should be true")
	}
}

func TestCardinality(t *testing.T) {
	b := NewBuilder()
	i0 := b.Append(nil)
	i1 := b.Append([]Pair{{KeyID: 1, ValueID: 1}})
	s := b.Finalize()

	if s.Cardinality(i0) != 0 {
		t.Fatalf("expected 0 tags, got %d", s.Cardinality(i0))
	}
	if s.Cardinality(i1) != 1 {
		t.Fatalf("expected 1 tag, got %d", s.Cardinality(i1))
	}
}

func TestInvertedIndex(t *testing.T) {
	b := NewBuilder()
	b.Append([]Pair{{KeyID: 1, ValueID: 100}}) // entity 0
	b.Append([]Pair{{KeyID: 2, ValueID: 200}}) // entity 1
	b.Append([]Pair{{KeyID: 1, ValueID: 101}}) // entity 2
	s := b.Finalize()

	withKey1 := s.EntitiesWithKey(1)
	if len(withKey1) != 2 || withKey1[0] != 0 || withKey1[1] != 2 {
		t.Fatalf("EntitiesWithKey(1) = %v, want [0 2]", withKey1)
	}

	withTag := s.EntitiesWithTag(1, 100)
	if len(withTag) != 1 || withTag[0] != 0 {
		t.Fatalf("EntitiesWithTag(1,100) = %v, want [0]", withTag)
	}
}
