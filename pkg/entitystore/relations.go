package entitystore

import (
	"fmt"

	"github.com/nucleus/osmix/pkg/idindex"
	"github.com/nucleus/osmix/pkg/osmerr"
	"github.com/nucleus/osmix/pkg/tagstore"
)

// Member is one resolved relation member.
type Member struct {
	Kind MemberKind
	Ref  int64
	Role uint32
}

// RelationBuilder accumulates relations in append order during ingestion.
type RelationBuilder struct {
	ids          []int64
	members      []Member
	membersStart []uint32
	tags         *tagstore.Builder
}

// NewRelationBuilder returns an empty relation builder.
func NewRelationBuilder() *RelationBuilder {
	b := &RelationBuilder{tags: tagstore.NewBuilder()}
	b.membersStart = append(b.membersStart, 0)
	return b
}

// Add appends one relation. members is copied.
func (b *RelationBuilder) Add(id int64, members []Member, tags []tagstore.Pair) int {
	b.ids = append(b.ids, id)
	b.members = append(b.members, members...)
	b.membersStart = append(b.membersStart, uint32(len(b.members)))
	b.tags.Append(tags)
	return len(b.ids) - 1
}

// Len returns the number of relations appended so far.
func (b *RelationBuilder) Len() int { return len(b.ids) }

// Finalize sorts relations by id and permutes the member CSR buffer and
// tags to match, then builds the (kind,ref)->relation-index incidence
// back-index (§4.6).
func (b *RelationBuilder) Finalize() (*RelationColumn, error) {
	if err := checkUnique("relation", b.ids); err != nil {
		return nil, err
	}
	idx, perm := idindex.Build(b.ids)
	n := len(b.ids)

	members := make([]Member, 0, len(b.members))
	membersStart := make([]uint32, n+1)
	origIndex := make([]int, n)

	for i, old := range perm {
		origIndex[i] = old
		start, end := b.membersStart[old], b.membersStart[old+1]
		membersStart[i] = uint32(len(members))
		members = append(members, b.members[start:end]...)
	}
	membersStart[n] = uint32(len(members))

	c := &RelationColumn{
		ids:          idx,
		members:      members,
		membersStart: membersStart,
		origIndex:    origIndex,
		tags:         b.tags.Finalize(),
	}
	c.buildIncidence()
	return c, nil
}

type incidenceKey struct {
	kind MemberKind
	ref  int64
}

// RelationColumn is the finalized, read-only relation entity column (C6).
type RelationColumn struct {
	ids          *idindex.Index
	members      []Member
	membersStart []uint32
	origIndex    []int
	tags         *tagstore.Store

	// incidence[(kind,ref)] is the ascending list of relation internal
	// indexes that carry a member matching (kind,ref) (§4.6).
	incidence map[incidenceKey][]int
}

func (c *RelationColumn) buildIncidence() {
	c.incidence = make(map[incidenceKey][]int)
	for ri := 0; ri < c.Len(); ri++ {
		for _, m := range c.Members(ri) {
			key := incidenceKey{kind: m.Kind, ref: m.Ref}
			c.incidence[key] = append(c.incidence[key], ri)
		}
	}
}

// Len returns the number of relations in the column.
func (c *RelationColumn) Len() int { return c.ids.Len() }

// GetByID resolves id to its internal index, or false if unknown.
func (c *RelationColumn) GetByID(id int64) (int, bool) { return c.ids.IndexFromID(id) }

// GetByIndex returns the id at internal index.
func (c *RelationColumn) GetByIndex(index int) int64 { return c.ids.IDFromIndex(index) }

// Members returns the members of the relation at internal index, in order.
func (c *RelationColumn) Members(index int) []Member {
	return c.members[c.membersStart[index]:c.membersStart[index+1]]
}

// TagsOf returns the sorted (key,value) pairs for the relation at internal index.
func (c *RelationColumn) TagsOf(index int) []tagstore.Pair { return c.tags.TagsOf(c.origIndex[index]) }

// Tags returns the column's tag store.
func (c *RelationColumn) Tags() *tagstore.Store { return c.tags }

// TagIndex returns the tag-store entity index backing internal index.
func (c *RelationColumn) TagIndex(index int) int { return c.origIndex[index] }

// RelationsContaining returns the ascending list of relation internal
// indexes with a member matching (kind,ref).
func (c *RelationColumn) RelationsContaining(kind MemberKind, ref int64) []int {
	return c.incidence[incidenceKey{kind: kind, ref: ref}]
}

// CheckClosure verifies I3 (referential closure of relation members)
// for the relation at internal index, given the sibling node/way/
// relation columns. Unresolved members are returned as DanglingRef
// errors; callers building a partial store should tolerate them.
func (c *RelationColumn) CheckClosure(index int, nodes *NodeColumn, ways *WayColumn, rels *RelationColumn) error {
	relID := c.GetByIndex(index)
	for _, m := range c.Members(index) {
		var ok bool
		switch m.Kind {
		case MemberNode:
			_, ok = nodes.GetByID(m.Ref)
		case MemberWay:
			_, ok = ways.GetByID(m.Ref)
		case MemberRelation:
			_, ok = rels.GetByID(m.Ref)
		default:
			return osmerr.CorruptInput("relation.member_kind", fmt.Errorf("relation %d: unknown member kind %d", relID, m.Kind))
		}
		if !ok {
			return osmerr.DanglingRef("relation", relID, m.Ref)
		}
	}
	return nil
}
