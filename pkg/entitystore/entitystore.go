// Package entitystore implements the columnar in-memory entity store
// (C4 Node Column, C5 Way Column, C6 Relation Column) and the aggregate
// Store type that owns them alongside the shared string table.
//
// Each column accumulates entities in append order during ingestion,
// then Finalize performs the stable sort described by idindex.Build,
// permuting every one of the column's own parallel arrays (including
// the tag and ref/member CSR buffers) so that index i consistently
// names "the entity with the i-th smallest id" everywhere (I5).
package entitystore

import (
	"fmt"

	"github.com/nucleus/osmix/pkg/osmerr"
	"github.com/nucleus/osmix/pkg/strtable"
	"github.com/nucleus/osmix/pkg/tagstore"
)

// MemberKind distinguishes the three relation member target kinds.
type MemberKind uint8

const (
	MemberNode MemberKind = iota
	MemberWay
	MemberRelation
)

func (k MemberKind) String() string {
	switch k {
	case MemberNode:
		return "node"
	case MemberWay:
		return "way"
	case MemberRelation:
		return "relation"
	default:
		return "unknown"
	}
}

// Iterator is the pull-iteration contract every entity source (C7's
// PBF reader, C13's format adapters, and in-memory fixtures) produces
// for the builder to consume: Next advances, Value reads the current
// element, Err reports any fault discovered during iteration, and
// Close releases underlying resources.
type Iterator[T any] interface {
	Next() bool
	Value() T
	Err() error
	Close() error
}

// RawNode is one node as presented to a NodeBuilder, before interning.
type RawNode struct {
	ID   int64
	Lon  float64
	Lat  float64
	Tags []tagstore.Pair
}

// RawWay is one way as presented to a WayBuilder.
type RawWay struct {
	ID   int64
	Refs []int64
	Tags []tagstore.Pair
}

// RawMember is one relation member as presented to a RelationBuilder.
type RawMember struct {
	Kind MemberKind
	Ref  int64
	Role uint32
}

// RawRelation is one relation as presented to a RelationBuilder.
type RawRelation struct {
	ID      int64
	Members []RawMember
	Tags    []tagstore.Pair
}

type (
	NodeIterator     = Iterator[RawNode]
	WayIterator      = Iterator[RawWay]
	RelationIterator = Iterator[RawRelation]
)

func duplicateIDError(kind string, id int64) error {
	return osmerr.CorruptInput(kind+".finalize", fmt.Errorf("duplicate %s id %d", kind, id))
}

func checkUnique(kind string, ids []int64) error {
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return duplicateIDError(kind, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Store owns the shared string table and the three finalized entity
// columns. A Store is immutable once Finalize has returned it;
// queries and changesets only ever borrow it read-only (§3
// "Ownership/lifecycle").
type Store struct {
	Strings *strtable.Table
	Nodes   *NodeColumn
	Ways    *WayColumn
	Rels    *RelationColumn

	// Partial records whether this store was built from a bounded
	// extract, relaxing I3's referential closure for relation members.
	// pkg/builder sets it from Options.ForcePartial only (the PBF header
	// is not inspected); the pkg/ingest format adapters always report
	// false.
	Partial bool
}
