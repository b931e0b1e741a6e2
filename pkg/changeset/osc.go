package changeset

import (
	"encoding/xml"
	"io"
	"sort"
	"strconv"

	"github.com/nucleus/osmix/pkg/entitystore"
)

// OSCOptions controls to_osc's output shape.
type OSCOptions struct {
	// Augmented wraps each modified or deleted entity in <old>/<new>,
	// per §4.10's "augmented" OSC variant used for review/diff tooling;
	// created entities are emitted unwrapped.
	Augmented bool
}

// ToOSC streams an OsmChange document (create/modify/delete sections,
// each node-then-way-then-relation in ascending id order) to w.
func (cs *Changeset) ToOSC(w io.Writer, opts OSCOptions) error {
	enc := xml.NewEncoder(w)
	defer enc.Flush()

	root := xml.StartElement{Name: xml.Name{Local: "osmChange"}, Attr: []xml.Attr{
		{Name: xml.Name{Local: "version"}, Value: "0.6"},
		{Name: xml.Name{Local: "generator"}, Value: "osmix"},
	}}
	if err := enc.EncodeToken(root); err != nil {
		return err
	}

	if err := cs.writeOSCSection(enc, "create", Create, opts); err != nil {
		return err
	}
	if err := cs.writeOSCSection(enc, "modify", Modify, opts); err != nil {
		return err
	}
	if err := cs.writeOSCSection(enc, "delete", Delete, opts); err != nil {
		return err
	}

	if err := enc.EncodeToken(root.End()); err != nil {
		return err
	}
	return enc.Flush()
}

func (cs *Changeset) writeOSCSection(enc *xml.Encoder, name string, kind ChangeKind, opts OSCOptions) error {
	nodeIDs := sortedIDsForKind(cs.nodes, kind)
	wayIDs := sortedIDsForKind(cs.ways, kind)
	relIDs := sortedIDsForKind(cs.rels, kind)
	if len(nodeIDs) == 0 && len(wayIDs) == 0 && len(relIDs) == 0 {
		return nil
	}

	start := xml.StartElement{Name: xml.Name{Local: name}}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}

	for _, id := range nodeIDs {
		if err := cs.emitNode(enc, cs.nodes[id], opts); err != nil {
			return err
		}
	}
	for _, id := range wayIDs {
		if err := cs.emitWay(enc, cs.ways[id], opts); err != nil {
			return err
		}
	}
	for _, id := range relIDs {
		if err := cs.emitRelation(enc, cs.rels[id], opts); err != nil {
			return err
		}
	}

	return enc.EncodeToken(start.End())
}

func (cs *Changeset) emitNode(enc *xml.Encoder, ch *change[NodeValue], opts OSCOptions) error {
	if opts.Augmented && ch.Kind != Create {
		return wrapOldNew(enc,
			func() error {
				if ch.Old == nil {
					return nil
				}
				return encodeOSCNode(enc, *ch.Old, "")
			},
			func() error {
				if ch.New == nil {
					return nil
				}
				return encodeOSCNode(enc, *ch.New, "")
			},
		)
	}
	if ch.New != nil {
		return encodeOSCNode(enc, *ch.New, ch.OriginDatasetID)
	}
	return encodeOSCNode(enc, *ch.Old, "")
}

func (cs *Changeset) emitWay(enc *xml.Encoder, ch *change[WayValue], opts OSCOptions) error {
	if opts.Augmented && ch.Kind != Create {
		return wrapOldNew(enc,
			func() error {
				if ch.Old == nil {
					return nil
				}
				return encodeOSCWay(enc, *ch.Old, "")
			},
			func() error {
				if ch.New == nil {
					return nil
				}
				return encodeOSCWay(enc, *ch.New, "")
			},
		)
	}
	if ch.New != nil {
		return encodeOSCWay(enc, *ch.New, ch.OriginDatasetID)
	}
	return encodeOSCWay(enc, *ch.Old, "")
}

func (cs *Changeset) emitRelation(enc *xml.Encoder, ch *change[RelationValue], opts OSCOptions) error {
	if opts.Augmented && ch.Kind != Create {
		return wrapOldNew(enc,
			func() error {
				if ch.Old == nil {
					return nil
				}
				return encodeOSCRelation(enc, *ch.Old, "")
			},
			func() error {
				if ch.New == nil {
					return nil
				}
				return encodeOSCRelation(enc, *ch.New, "")
			},
		)
	}
	if ch.New != nil {
		return encodeOSCRelation(enc, *ch.New, ch.OriginDatasetID)
	}
	return encodeOSCRelation(enc, *ch.Old, "")
}

func wrapOldNew(enc *xml.Encoder, old, new func() error) error {
	oldEl := xml.StartElement{Name: xml.Name{Local: "old"}}
	if err := enc.EncodeToken(oldEl); err != nil {
		return err
	}
	if err := old(); err != nil {
		return err
	}
	if err := enc.EncodeToken(oldEl.End()); err != nil {
		return err
	}

	newEl := xml.StartElement{Name: xml.Name{Local: "new"}}
	if err := enc.EncodeToken(newEl); err != nil {
		return err
	}
	if err := new(); err != nil {
		return err
	}
	return enc.EncodeToken(newEl.End())
}

func encodeOSCNode(enc *xml.Encoder, v NodeValue, origin string) error {
	el := xml.StartElement{Name: xml.Name{Local: "node"}, Attr: []xml.Attr{
		{Name: xml.Name{Local: "id"}, Value: strconv.FormatInt(v.ID, 10)},
		{Name: xml.Name{Local: "lat"}, Value: strconv.FormatFloat(v.Lat, 'f', -1, 64)},
		{Name: xml.Name{Local: "lon"}, Value: strconv.FormatFloat(v.Lon, 'f', -1, 64)},
	}}
	el.Attr = appendOrigin(el.Attr, origin)
	if err := enc.EncodeToken(el); err != nil {
		return err
	}
	if err := encodeOSCTags(enc, v.Tags); err != nil {
		return err
	}
	return enc.EncodeToken(el.End())
}

func encodeOSCWay(enc *xml.Encoder, v WayValue, origin string) error {
	el := xml.StartElement{Name: xml.Name{Local: "way"}, Attr: []xml.Attr{
		{Name: xml.Name{Local: "id"}, Value: strconv.FormatInt(v.ID, 10)},
	}}
	el.Attr = appendOrigin(el.Attr, origin)
	if err := enc.EncodeToken(el); err != nil {
		return err
	}
	for _, ref := range v.Refs {
		nd := xml.StartElement{Name: xml.Name{Local: "nd"}, Attr: []xml.Attr{
			{Name: xml.Name{Local: "ref"}, Value: strconv.FormatInt(ref, 10)},
		}}
		if err := enc.EncodeToken(nd); err != nil {
			return err
		}
		if err := enc.EncodeToken(nd.End()); err != nil {
			return err
		}
	}
	if err := encodeOSCTags(enc, v.Tags); err != nil {
		return err
	}
	return enc.EncodeToken(el.End())
}

func encodeOSCRelation(enc *xml.Encoder, v RelationValue, origin string) error {
	el := xml.StartElement{Name: xml.Name{Local: "relation"}, Attr: []xml.Attr{
		{Name: xml.Name{Local: "id"}, Value: strconv.FormatInt(v.ID, 10)},
	}}
	el.Attr = appendOrigin(el.Attr, origin)
	if err := enc.EncodeToken(el); err != nil {
		return err
	}
	for _, m := range v.Members {
		member := xml.StartElement{Name: xml.Name{Local: "member"}, Attr: []xml.Attr{
			{Name: xml.Name{Local: "type"}, Value: memberKindString(m.Kind)},
			{Name: xml.Name{Local: "ref"}, Value: strconv.FormatInt(m.Ref, 10)},
			{Name: xml.Name{Local: "role"}, Value: m.Role},
		}}
		if err := enc.EncodeToken(member); err != nil {
			return err
		}
		if err := enc.EncodeToken(member.End()); err != nil {
			return err
		}
	}
	if err := encodeOSCTags(enc, v.Tags); err != nil {
		return err
	}
	return enc.EncodeToken(el.End())
}

// appendOrigin adds an origin attribute naming the Changeset that
// created an entity; modifies and deletes pass "" and get none.
func appendOrigin(attrs []xml.Attr, origin string) []xml.Attr {
	if origin == "" {
		return attrs
	}
	return append(attrs, xml.Attr{Name: xml.Name{Local: "origin"}, Value: origin})
}

func memberKindString(k entitystore.MemberKind) string {
	switch k {
	case entitystore.MemberNode:
		return "node"
	case entitystore.MemberWay:
		return "way"
	case entitystore.MemberRelation:
		return "relation"
	default:
		return "node"
	}
}

func encodeOSCTags(enc *xml.Encoder, tags map[string]string) error {
	if len(tags) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		tag := xml.StartElement{Name: xml.Name{Local: "tag"}, Attr: []xml.Attr{
			{Name: xml.Name{Local: "k"}, Value: k},
			{Name: xml.Name{Local: "v"}, Value: tags[k]},
		}}
		if err := enc.EncodeToken(tag); err != nil {
			return err
		}
		if err := enc.EncodeToken(tag.End()); err != nil {
			return err
		}
	}
	return nil
}
