// Package changeset implements the Changeset (C10) and its Applier
// (C11): a derived, reversible log of creates/modifies/deletes against
// a base Store, the deduplication and intersection-synthesis
// algorithms that populate it, and OSC XML emission.
package changeset

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/google/uuid"

	"github.com/nucleus/osmix/pkg/entitystore"
	"github.com/nucleus/osmix/pkg/osmerr"
	"github.com/nucleus/osmix/pkg/progress"
	"github.com/nucleus/osmix/pkg/strtable"
	"github.com/nucleus/osmix/pkg/tagstore"
)

// ChangeKind is the kind of change recorded against one entity.
type ChangeKind int

const (
	Create ChangeKind = iota
	Modify
	Delete
)

func (k ChangeKind) String() string {
	switch k {
	case Create:
		return "create"
	case Modify:
		return "modify"
	case Delete:
		return "delete"
	default:
		return "unknown"
	}
}

// NodeValue, WayValue and RelationValue are the changeset's own
// entity snapshots: plain values keyed by string tags rather than
// interned ids, since a Changeset's pending entities don't share the
// base store's string table (§3 — the base is read-only; Apply builds
// a fresh table for the resulting store).
type NodeValue struct {
	ID       int64
	Lon, Lat float64
	Tags     map[string]string
}

type WayValue struct {
	ID   int64
	Refs []int64
	Tags map[string]string
}

type RelationMember struct {
	Kind entitystore.MemberKind
	Ref  int64
	Role string
}

type RelationValue struct {
	ID      int64
	Members []RelationMember
	Tags    map[string]string
}

// change is one (kind, id)'s recorded history. Old is set exactly once
// (CS5); New is nil for Delete. OriginDatasetID identifies the
// Changeset session that created the entity (CS2), so several
// Changesets' OSC output can later be told apart after merging.
type change[V any] struct {
	Kind            ChangeKind
	Old             *V
	New             *V
	OriginDatasetID string
}

// Changeset accumulates creates/modifies/deletes against a read-only
// base store. It never mutates base; Apply folds the recorded changes
// into an independent new Store.
type Changeset struct {
	base   *entitystore.Store
	logger *log.Logger
	id     string

	nodes map[int64]*change[NodeValue]
	ways  map[int64]*change[WayValue]
	rels  map[int64]*change[RelationValue]

	nextNodeID int64 // 0 means "not yet computed"; see allocateNodeID.
}

// New returns an empty Changeset against base. A nil logger defaults
// to log.Default(), matching CS4's "logs a warning; not an error".
// Each Changeset is stamped with a fresh uuid so every entity it goes
// on to create can be traced back to the session that created it.
func New(base *entitystore.Store, logger *log.Logger) *Changeset {
	if logger == nil {
		logger = log.Default()
	}
	return &Changeset{
		base:   base,
		logger: logger,
		id:     uuid.New().String(),
		nodes:  make(map[int64]*change[NodeValue]),
		ways:   make(map[int64]*change[WayValue]),
		rels:   make(map[int64]*change[RelationValue]),
	}
}

// ID returns the changeset's own origin id, the value stamped onto
// OriginDatasetID for every entity it creates.
func (cs *Changeset) ID() string {
	return cs.id
}

func tagsFromPairs(strs *strtable.Table, pairs []tagstore.Pair) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, _ := strs.Lookup(p.KeyID)
		v, _ := strs.Lookup(p.ValueID)
		m[k] = v
	}
	return m
}

func (cs *Changeset) nodeValue(idx int) NodeValue {
	id := cs.base.Nodes.GetByIndex(idx)
	lon, lat := cs.base.Nodes.LonLat(idx)
	return NodeValue{ID: id, Lon: lon, Lat: lat, Tags: tagsFromPairs(cs.base.Strings, cs.base.Nodes.TagsOf(idx))}
}

func (cs *Changeset) wayValue(idx int) WayValue {
	id := cs.base.Ways.GetByIndex(idx)
	refs := cs.base.Ways.Refs(idx)
	out := make([]int64, len(refs))
	copy(out, refs)
	return WayValue{ID: id, Refs: out, Tags: tagsFromPairs(cs.base.Strings, cs.base.Ways.TagsOf(idx))}
}

func (cs *Changeset) relationValue(idx int) RelationValue {
	id := cs.base.Rels.GetByIndex(idx)
	raw := cs.base.Rels.Members(idx)
	members := make([]RelationMember, len(raw))
	for i, m := range raw {
		role, _ := cs.base.Strings.Lookup(m.Role)
		members[i] = RelationMember{Kind: m.Kind, Ref: m.Ref, Role: role}
	}
	return RelationValue{ID: id, Members: members, Tags: tagsFromPairs(cs.base.Strings, cs.base.Rels.TagsOf(idx))}
}

// currentNodeValue/currentWayValue/currentRelationValue return the
// most-recent pending value for id if one is being built up across
// several Modify calls (e.g. successive intersection splices into the
// same way), falling back to the base snapshot.
func (cs *Changeset) currentNodeValue(id int64) (NodeValue, bool) {
	if r, ok := cs.nodes[id]; ok && r.New != nil {
		return *r.New, true
	}
	if idx, ok := cs.base.Nodes.GetByID(id); ok {
		return cs.nodeValue(idx), true
	}
	return NodeValue{}, false
}

func (cs *Changeset) currentWayValue(id int64) (WayValue, bool) {
	if r, ok := cs.ways[id]; ok && r.New != nil {
		v := *r.New
		v.Refs = append([]int64(nil), r.New.Refs...)
		return v, true
	}
	if idx, ok := cs.base.Ways.GetByID(id); ok {
		return cs.wayValue(idx), true
	}
	return WayValue{}, false
}

// recordCreate, recordModify and recordDelete are the shared CS1-CS5
// bookkeeping, generic over the three value kinds.

func recordCreate[V any](m map[int64]*change[V], id int64, hasBase bool, v V, originDatasetID string) error {
	if hasBase {
		return osmerr.InconsistentChangeset(fmt.Sprintf("create id %d collides with a base entity", id))
	}
	if _, ok := m[id]; ok {
		return osmerr.InconsistentChangeset(fmt.Sprintf("id %d already has a pending change", id))
	}
	m[id] = &change[V]{Kind: Create, New: &v, OriginDatasetID: originDatasetID}
	return nil
}

// recordModify implements `modify(kind, id, fn)` (§4.10): fn receives
// the most-recent version (chain of prior modifies, or the base
// snapshot on first touch) and returns the next one.
func recordModify[V any](m map[int64]*change[V], id int64, hasBase bool, base V, fn func(V) V, logger *log.Logger) error {
	if r, ok := m[id]; ok {
		if r.Kind == Delete {
			logger.Printf("changeset: modify on id %d ignored, already scheduled for delete", id)
			return nil
		}
		next := fn(*r.New)
		r.New = &next
		if r.Kind != Create {
			r.Kind = Modify
		}
		return nil
	}
	if !hasBase {
		return osmerr.InconsistentChangeset(fmt.Sprintf("modify id %d: not present in base store", id))
	}
	next := fn(base)
	m[id] = &change[V]{Kind: Modify, Old: &base, New: &next}
	return nil
}

func recordDelete[V any](m map[int64]*change[V], id int64, hasBase bool, base V) error {
	if r, ok := m[id]; ok {
		if r.Kind == Create {
			delete(m, id)
			return nil
		}
		r.Kind = Delete
		r.New = nil
		return nil
	}
	if !hasBase {
		return osmerr.InconsistentChangeset(fmt.Sprintf("delete id %d: not present in base store", id))
	}
	m[id] = &change[V]{Kind: Delete, Old: &base}
	return nil
}

// CreateNode schedules a new node (CS2: id must not exist in base).
func (cs *Changeset) CreateNode(v NodeValue) error {
	_, hasBase := cs.base.Nodes.GetByID(v.ID)
	return recordCreate(cs.nodes, v.ID, hasBase, v, cs.id)
}

// ModifyNode applies fn to the most-recent version of node id.
func (cs *Changeset) ModifyNode(id int64, fn func(NodeValue) NodeValue) error {
	idx, hasBase := cs.base.Nodes.GetByID(id)
	var base NodeValue
	if hasBase {
		base = cs.nodeValue(idx)
	}
	return recordModify(cs.nodes, id, hasBase, base, fn, cs.logger)
}

// DeleteNode schedules node id for deletion (CS3: must exist in base).
func (cs *Changeset) DeleteNode(id int64) error {
	idx, hasBase := cs.base.Nodes.GetByID(id)
	var base NodeValue
	if hasBase {
		base = cs.nodeValue(idx)
	}
	return recordDelete(cs.nodes, id, hasBase, base)
}

// CreateWay schedules a new way (CS2).
func (cs *Changeset) CreateWay(v WayValue) error {
	_, hasBase := cs.base.Ways.GetByID(v.ID)
	return recordCreate(cs.ways, v.ID, hasBase, v, cs.id)
}

// ModifyWay applies fn to the most-recent version of way id.
func (cs *Changeset) ModifyWay(id int64, fn func(WayValue) WayValue) error {
	idx, hasBase := cs.base.Ways.GetByID(id)
	var base WayValue
	if hasBase {
		base = cs.wayValue(idx)
	}
	return recordModify(cs.ways, id, hasBase, base, fn, cs.logger)
}

// DeleteWay schedules way id for deletion (CS3).
func (cs *Changeset) DeleteWay(id int64) error {
	idx, hasBase := cs.base.Ways.GetByID(id)
	var base WayValue
	if hasBase {
		base = cs.wayValue(idx)
	}
	return recordDelete(cs.ways, id, hasBase, base)
}

// CreateRelation schedules a new relation (CS2).
func (cs *Changeset) CreateRelation(v RelationValue) error {
	_, hasBase := cs.base.Rels.GetByID(v.ID)
	return recordCreate(cs.rels, v.ID, hasBase, v, cs.id)
}

// ModifyRelation applies fn to the most-recent version of relation id.
func (cs *Changeset) ModifyRelation(id int64, fn func(RelationValue) RelationValue) error {
	idx, hasBase := cs.base.Rels.GetByID(id)
	var base RelationValue
	if hasBase {
		base = cs.relationValue(idx)
	}
	return recordModify(cs.rels, id, hasBase, base, fn, cs.logger)
}

// DeleteRelation schedules relation id for deletion (CS3).
func (cs *Changeset) DeleteRelation(id int64) error {
	idx, hasBase := cs.base.Rels.GetByID(id)
	var base RelationValue
	if hasBase {
		base = cs.relationValue(idx)
	}
	return recordDelete(cs.rels, id, hasBase, base)
}

func sortedIDsForKind[V any](m map[int64]*change[V], kind ChangeKind) []int64 {
	ids := make([]int64, 0, len(m))
	for id, ch := range m {
		if ch.Kind == kind {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func dedupeAdjacentRefs(refs []int64) []int64 {
	if len(refs) < 2 {
		return refs
	}
	out := refs[:1]
	for _, r := range refs[1:] {
		if r != out[len(out)-1] {
			out = append(out, r)
		}
	}
	return out
}

func dedupeAdjacentMembers(members []RelationMember) []RelationMember {
	if len(members) < 2 {
		return members
	}
	out := members[:1]
	for _, m := range members[1:] {
		last := out[len(out)-1]
		if m.Kind != last.Kind || m.Ref != last.Ref {
			out = append(out, m)
		}
	}
	return out
}

// Apply folds every recorded change against base in ascending-id order
// (§5 "byte-identical for identical inputs") and returns a new,
// independent Store. base is left untouched.
func (cs *Changeset) Apply(ctx context.Context, reporter *progress.Reporter) (*entitystore.Store, error) {
	strs := strtable.New()

	nodeBuilder := entitystore.NewNodeBuilder()
	total := int64(cs.base.Nodes.Len())
	for i := 0; i < cs.base.Nodes.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, osmerr.Cancelled(err)
		}
		id := cs.base.Nodes.GetByIndex(i)
		if ch, ok := cs.nodes[id]; ok {
			if ch.Kind == Delete {
				continue
			}
			addNode(nodeBuilder, strs, *ch.New)
		} else {
			addNode(nodeBuilder, strs, cs.nodeValue(i))
		}
		reporter.Report(progress.Event{Stage: "changeset.apply.nodes", Processed: int64(i + 1), Total: total})
	}
	for _, id := range sortedIDsForKind(cs.nodes, Create) {
		addNode(nodeBuilder, strs, *cs.nodes[id].New)
	}
	nodeColumn, err := nodeBuilder.Finalize()
	if err != nil {
		return nil, err
	}

	wayBuilder := entitystore.NewWayBuilder()
	total = int64(cs.base.Ways.Len())
	for i := 0; i < cs.base.Ways.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, osmerr.Cancelled(err)
		}
		id := cs.base.Ways.GetByIndex(i)
		if ch, ok := cs.ways[id]; ok {
			if ch.Kind == Delete {
				continue
			}
			addWay(wayBuilder, strs, *ch.New)
		} else {
			addWay(wayBuilder, strs, cs.wayValue(i))
		}
		reporter.Report(progress.Event{Stage: "changeset.apply.ways", Processed: int64(i + 1), Total: total})
	}
	for _, id := range sortedIDsForKind(cs.ways, Create) {
		addWay(wayBuilder, strs, *cs.ways[id].New)
	}
	wayColumn, err := wayBuilder.Finalize(nodeColumn)
	if err != nil {
		return nil, err
	}

	relBuilder := entitystore.NewRelationBuilder()
	total = int64(cs.base.Rels.Len())
	for i := 0; i < cs.base.Rels.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, osmerr.Cancelled(err)
		}
		id := cs.base.Rels.GetByIndex(i)
		if ch, ok := cs.rels[id]; ok {
			if ch.Kind == Delete {
				continue
			}
			addRelation(relBuilder, strs, *ch.New)
		} else {
			addRelation(relBuilder, strs, cs.relationValue(i))
		}
		reporter.Report(progress.Event{Stage: "changeset.apply.relations", Processed: int64(i + 1), Total: total})
	}
	for _, id := range sortedIDsForKind(cs.rels, Create) {
		addRelation(relBuilder, strs, *cs.rels[id].New)
	}
	relColumn, err := relBuilder.Finalize()
	if err != nil {
		return nil, err
	}

	reporter.Final(progress.Event{Stage: "changeset.apply", Processed: 1, Total: 1})
	return &entitystore.Store{Strings: strs, Nodes: nodeColumn, Ways: wayColumn, Rels: relColumn, Partial: cs.base.Partial}, nil
}

func addNode(b *entitystore.NodeBuilder, strs *strtable.Table, v NodeValue) {
	b.Add(v.ID, v.Lon, v.Lat, internTags(strs, v.Tags))
}

func addWay(b *entitystore.WayBuilder, strs *strtable.Table, v WayValue) {
	b.Add(v.ID, dedupeAdjacentRefs(v.Refs), internTags(strs, v.Tags))
}

func addRelation(b *entitystore.RelationBuilder, strs *strtable.Table, v RelationValue) {
	deduped := dedupeAdjacentMembers(v.Members)
	members := make([]entitystore.Member, len(deduped))
	for i, m := range deduped {
		members[i] = entitystore.Member{Kind: m.Kind, Ref: m.Ref, Role: strs.Intern(m.Role)}
	}
	b.Add(v.ID, members, internTags(strs, v.Tags))
}

func internTags(strs *strtable.Table, tags map[string]string) []tagstore.Pair {
	if len(tags) == 0 {
		return nil
	}
	pairs := make([]tagstore.Pair, 0, len(tags))
	for k, v := range tags {
		pairs = append(pairs, tagstore.Pair{KeyID: strs.Intern(k), ValueID: strs.Intern(v)})
	}
	return pairs
}
