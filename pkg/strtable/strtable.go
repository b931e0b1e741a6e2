// Package strtable implements the append-only, id-addressable string
// table (C1) shared by every entity column in a Store: tag keys,
// values, and relation-member roles all intern through it.
package strtable

import (
	"fmt"

	"github.com/nucleus/osmix/pkg/osmerr"
)

// EmptyID is the reserved id for the empty string, matching PBF's
// string-table convention (index 0 is always "").
const EmptyID uint32 = 0

// Table is a deduplicated, insertion-order-indexed sequence of UTF-8
// strings with a reverse index for interning.
type Table struct {
	strings []string
	index   map[string]uint32
}

// New returns a Table pre-seeded with the reserved empty string at id 0.
func New() *Table {
	t := &Table{
		strings: make([]string, 0, 64),
		index:   make(map[string]uint32, 64),
	}
	t.intern("")
	return t
}

// NewWithCapacity is like New but pre-sizes the backing storage.
func NewWithCapacity(n int) *Table {
	t := &Table{
		strings: make([]string, 0, n+1),
		index:   make(map[string]uint32, n+1),
	}
	t.intern("")
	return t
}

// Intern returns the id for s, appending it if this is the first
// occurrence. Idempotent.
func (t *Table) Intern(s string) uint32 {
	return t.intern(s)
}

func (t *Table) intern(s string) uint32 {
	if id, ok := t.index[s]; ok {
		return id
	}
	id := uint32(len(t.strings))
	t.strings = append(t.strings, s)
	t.index[s] = id
	return id
}

// Lookup returns the string for id, or CorruptInput if id is out of range.
func (t *Table) Lookup(id uint32) (string, error) {
	if int(id) >= len(t.strings) {
		return "", osmerr.CorruptInput("strtable.lookup", errOutOfRange(id, len(t.strings)))
	}
	return t.strings[id], nil
}

// MustLookup panics on an out-of-range id; used in contexts where the
// id was produced by this same table and is known valid (e.g. during
// finalization iteration).
func (t *Table) MustLookup(id uint32) string {
	s, err := t.Lookup(id)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of distinct interned strings, including the
// reserved empty string.
func (t *Table) Len() int { return len(t.strings) }

// Find returns the id for s without interning it, for read-only
// lookups (e.g. search_tag resolving a query string to an id).
func (t *Table) Find(s string) (uint32, bool) {
	id, ok := t.index[s]
	return id, ok
}

// TryLookup reports whether id names a known string without allocating
// an error.
func (t *Table) TryLookup(id uint32) (string, bool) {
	if int(id) >= len(t.strings) {
		return "", false
	}
	return t.strings[id], true
}

func errOutOfRange(id uint32, size int) error {
	return fmt.Errorf("string id %d out of range [0,%d)", id, size)
}
