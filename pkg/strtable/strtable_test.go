package strtable

import "testing"

func TestInternIsIdempotent(t *testing.T) {
	tb := New()
	a := tb.Intern("highway")
	b := tb.Intern("highway")
	if a != b {
		t.Fatalf("Intern not idempotent: %d != %d", a, b)
	}
	c := tb.Intern("residential")
	if c == a {
		t.Fatalf("distinct strings got same id")
	}
}

func TestEmptyStringReservesZero(t *testing.T) {
	tb := New()
	if id := tb.Intern(""); id != EmptyID {
		t.Fatalf("expected empty string at id %d, got %d", EmptyID, id)
	}
	s, err := tb.Lookup(EmptyID)
	if err != nil || s != "" {
		t.Fatalf("Lookup(0) = %q, %v; want \"\", nil", s, err)
	}
}

func TestLookupRoundTrip(t *testing.T) {
	tb := New()
	ids := map[string]uint32{}
	for _, s := range []string{"name", "highway", "residential", "building"} {
		ids[s] = tb.Intern(s)
	}
	for s, id := range ids {
		got, err := tb.Lookup(id)
		if err != nil {
			t.Fatalf("Lookup(%d): %v", id, err)
		}
		if got != s {
			t.Fatalf("Lookup(%d) = %q, want %q", id, got, s)
		}
	}
}

func TestLookupOutOfRange(t *testing.T) {
	tb := New()
	if _, err := tb.Lookup(999); err == nil {
		t.Fatal("expected error for out-of-range id")
	}
}

func TestLen(t *testing.T) {
	tb := New()
	if tb.Len() != 1 {
		t.Fatalf("fresh table should have len 1 (empty string), got %d", tb.Len())
	}
	tb.Intern("a")
	tb.Intern("b")
	tb.Intern("a")
	if tb.Len() != 3 {
		t.Fatalf("expected len 3, got %d", tb.Len())
	}
}
