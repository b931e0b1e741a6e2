package pbf

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/nucleus/osmix/pkg/osmerr"
)

// MemberType mirrors the wire enum OSM PBF uses for relation members.
type MemberType int32

const (
	MemberTypeNode     MemberType = 0
	MemberTypeWay      MemberType = 1
	MemberTypeRelation MemberType = 2
)

// DenseNodes is the still-delta-encoded dense node group (§4.7): ids,
// lat, and lon are per-node deltas (already zigzag-decoded off the
// wire); KeysVals is the zero-terminated run-length tag list, still in
// this block's local string-table id space. pkg/builder performs the
// cumulative-sum and global string-table translation.
type DenseNodes struct {
	ID       []int64
	Lat      []int64
	Lon      []int64
	KeysVals []int32
}

// Way is a way group entry. Refs are still per-way deltas.
type Way struct {
	ID   int64
	Keys []uint32
	Vals []uint32
	Refs []int64
}

// Relation is a relation group entry. MemIDs are still per-relation deltas.
type Relation struct {
	ID       int64
	Keys     []uint32
	Vals     []uint32
	RolesSid []int32
	MemIDs   []int64
	Types    []MemberType
}

// PrimitiveGroup holds at most one populated kind, per §4.7.
type PrimitiveGroup struct {
	Dense     *DenseNodes
	Ways      []Way
	Relations []Relation
}

// PrimitiveBlock is one decoded OSMData blob (§4.7).
type PrimitiveBlock struct {
	StringTable     [][]byte
	Granularity     int32
	LatOffset       int64
	LonOffset       int64
	DateGranularity int32
	Groups          []PrimitiveGroup
}

const (
	defaultGranularity     = 100
	defaultDateGranularity = 1000
)

func decodePrimitiveBlock(b []byte) (*PrimitiveBlock, error) {
	pb := &PrimitiveBlock{Granularity: defaultGranularity, DateGranularity: defaultDateGranularity}
	err := decodeFields("primitiveblock", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1: // stringtable
			v, n, err := consumeBytesField("primitiveblock.stringtable", num, b)
			if err != nil {
				return 0, err
			}
			table, err := decodeStringTable(v)
			if err != nil {
				return 0, err
			}
			pb.StringTable = table
			return n, nil
		case 2: // primitivegroup (repeated)
			v, n, err := consumeBytesField("primitiveblock.primitivegroup", num, b)
			if err != nil {
				return 0, err
			}
			group, err := decodePrimitiveGroup(v)
			if err != nil {
				return 0, err
			}
			pb.Groups = append(pb.Groups, group)
			return n, nil
		case 17: // granularity
			v, n, err := consumeVarintField("primitiveblock.granularity", num, b)
			if err != nil {
				return 0, err
			}
			pb.Granularity = int32(v)
			return n, nil
		case 18: // date_granularity
			v, n, err := consumeVarintField("primitiveblock.date_granularity", num, b)
			if err != nil {
				return 0, err
			}
			pb.DateGranularity = int32(v)
			return n, nil
		case 19: // lat_offset
			v, n, err := consumeVarintField("primitiveblock.lat_offset", num, b)
			if err != nil {
				return 0, err
			}
			pb.LatOffset = int64(v)
			return n, nil
		case 20: // lon_offset
			v, n, err := consumeVarintField("primitiveblock.lon_offset", num, b)
			if err != nil {
				return 0, err
			}
			pb.LonOffset = int64(v)
			return n, nil
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return 0, osmerr.DecodeError(fmt.Errorf("primitiveblock: field %d: %w", num, protowire.ParseError(n)))
			}
			return n, nil
		}
	})
	if err != nil {
		return nil, err
	}
	if pb.StringTable == nil {
		return nil, osmerr.CorruptInput("primitiveblock", fmt.Errorf("missing required stringtable"))
	}
	return pb, nil
}

func decodeStringTable(b []byte) ([][]byte, error) {
	var out [][]byte
	err := decodeFields("stringtable", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 {
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return 0, osmerr.DecodeError(fmt.Errorf("stringtable: field %d: %w", num, protowire.ParseError(n)))
			}
			return n, nil
		}
		v, n, err := consumeBytesField("stringtable.s", num, b)
		if err != nil {
			return 0, err
		}
		// Copy since v aliases the caller-owned blob buffer.
		s := make([]byte, len(v))
		copy(s, v)
		out = append(out, s)
		return n, nil
	})
	return out, err
}

func decodePrimitiveGroup(b []byte) (PrimitiveGroup, error) {
	var g PrimitiveGroup
	err := decodeFields("primitivegroup", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1: // nodes (plain, non-dense) — rare in practice; not a spec-required path (§Non-goals),
			// skip the body but still account for its bytes so decoding continues correctly.
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return 0, osmerr.DecodeError(fmt.Errorf("primitivegroup.nodes: %w", protowire.ParseError(n)))
			}
			return n, nil
		case 2: // dense
			v, n, err := consumeBytesField("primitivegroup.dense", num, b)
			if err != nil {
				return 0, err
			}
			dense, err := decodeDenseNodes(v)
			if err != nil {
				return 0, err
			}
			g.Dense = dense
			return n, nil
		case 3: // ways
			v, n, err := consumeBytesField("primitivegroup.ways", num, b)
			if err != nil {
				return 0, err
			}
			w, err := decodeWay(v)
			if err != nil {
				return 0, err
			}
			g.Ways = append(g.Ways, w)
			return n, nil
		case 4: // relations
			v, n, err := consumeBytesField("primitivegroup.relations", num, b)
			if err != nil {
				return 0, err
			}
			r, err := decodeRelation(v)
			if err != nil {
				return 0, err
			}
			g.Relations = append(g.Relations, r)
			return n, nil
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return 0, osmerr.DecodeError(fmt.Errorf("primitivegroup: field %d: %w", num, protowire.ParseError(n)))
			}
			return n, nil
		}
	})
	return g, err
}

func decodeDenseNodes(b []byte) (*DenseNodes, error) {
	d := &DenseNodes{}
	err := decodeFields("densenodes", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1: // id, packed sint64
			v, n, err := consumeBytesField("densenodes.id", num, b)
			if err != nil {
				return 0, err
			}
			ids, err := consumePackedSints("densenodes.id", v)
			if err != nil {
				return 0, err
			}
			d.ID = ids
			return n, nil
		case 5: // denseinfo, unused (no versioning surface in scope)
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return 0, osmerr.DecodeError(fmt.Errorf("densenodes.denseinfo: %w", protowire.ParseError(n)))
			}
			return n, nil
		case 8: // lat, packed sint64
			v, n, err := consumeBytesField("densenodes.lat", num, b)
			if err != nil {
				return 0, err
			}
			lat, err := consumePackedSints("densenodes.lat", v)
			if err != nil {
				return 0, err
			}
			d.Lat = lat
			return n, nil
		case 9: // lon, packed sint64
			v, n, err := consumeBytesField("densenodes.lon", num, b)
			if err != nil {
				return 0, err
			}
			lon, err := consumePackedSints("densenodes.lon", v)
			if err != nil {
				return 0, err
			}
			d.Lon = lon
			return n, nil
		case 10: // keys_vals, packed int32 (NOT zigzag: plain varint run-length list)
			v, n, err := consumeBytesField("densenodes.keys_vals", num, b)
			if err != nil {
				return 0, err
			}
			raw, err := consumePackedVarints("densenodes.keys_vals", v)
			if err != nil {
				return 0, err
			}
			kv := make([]int32, len(raw))
			for i, x := range raw {
				kv[i] = int32(x)
			}
			d.KeysVals = kv
			return n, nil
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return 0, osmerr.DecodeError(fmt.Errorf("densenodes: field %d: %w", num, protowire.ParseError(n)))
			}
			return n, nil
		}
	})
	if err != nil {
		return nil, err
	}
	if len(d.ID) != len(d.Lat) || len(d.ID) != len(d.Lon) {
		return nil, osmerr.CorruptInput("densenodes", fmt.Errorf("id/lat/lon length mismatch: %d/%d/%d", len(d.ID), len(d.Lat), len(d.Lon)))
	}
	return d, nil
}

func decodeWay(b []byte) (Way, error) {
	var w Way
	err := decodeFields("way", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1: // id
			v, n, err := consumeVarintField("way.id", num, b)
			if err != nil {
				return 0, err
			}
			w.ID = int64(v)
			return n, nil
		case 2: // keys, packed uint32
			v, n, err := consumeBytesField("way.keys", num, b)
			if err != nil {
				return 0, err
			}
			raw, err := consumePackedVarints("way.keys", v)
			if err != nil {
				return 0, err
			}
			w.Keys = toUint32s(raw)
			return n, nil
		case 3: // vals, packed uint32
			v, n, err := consumeBytesField("way.vals", num, b)
			if err != nil {
				return 0, err
			}
			raw, err := consumePackedVarints("way.vals", v)
			if err != nil {
				return 0, err
			}
			w.Vals = toUint32s(raw)
			return n, nil
		case 4: // info, unused
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return 0, osmerr.DecodeError(fmt.Errorf("way.info: %w", protowire.ParseError(n)))
			}
			return n, nil
		case 8: // refs, packed sint64
			v, n, err := consumeBytesField("way.refs", num, b)
			if err != nil {
				return 0, err
			}
			refs, err := consumePackedSints("way.refs", v)
			if err != nil {
				return 0, err
			}
			w.Refs = refs
			return n, nil
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return 0, osmerr.DecodeError(fmt.Errorf("way: field %d: %w", num, protowire.ParseError(n)))
			}
			return n, nil
		}
	})
	if err != nil {
		return Way{}, err
	}
	if len(w.Keys) != len(w.Vals) {
		return Way{}, osmerr.CorruptInput("way", fmt.Errorf("way %d: keys/vals length mismatch", w.ID))
	}
	return w, nil
}

func decodeRelation(b []byte) (Relation, error) {
	var r Relation
	err := decodeFields("relation", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1: // id
			v, n, err := consumeVarintField("relation.id", num, b)
			if err != nil {
				return 0, err
			}
			r.ID = int64(v)
			return n, nil
		case 2: // keys
			v, n, err := consumeBytesField("relation.keys", num, b)
			if err != nil {
				return 0, err
			}
			raw, err := consumePackedVarints("relation.keys", v)
			if err != nil {
				return 0, err
			}
			r.Keys = toUint32s(raw)
			return n, nil
		case 3: // vals
			v, n, err := consumeBytesField("relation.vals", num, b)
			if err != nil {
				return 0, err
			}
			raw, err := consumePackedVarints("relation.vals", v)
			if err != nil {
				return 0, err
			}
			r.Vals = toUint32s(raw)
			return n, nil
		case 4: // info, unused
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return 0, osmerr.DecodeError(fmt.Errorf("relation.info: %w", protowire.ParseError(n)))
			}
			return n, nil
		case 8: // roles_sid, packed int32 (plain varint, not zigzag: string ids are non-negative)
			v, n, err := consumeBytesField("relation.roles_sid", num, b)
			if err != nil {
				return 0, err
			}
			raw, err := consumePackedVarints("relation.roles_sid", v)
			if err != nil {
				return 0, err
			}
			roles := make([]int32, len(raw))
			for i, x := range raw {
				roles[i] = int32(x)
			}
			r.RolesSid = roles
			return n, nil
		case 9: // memids, packed sint64
			v, n, err := consumeBytesField("relation.memids", num, b)
			if err != nil {
				return 0, err
			}
			ids, err := consumePackedSints("relation.memids", v)
			if err != nil {
				return 0, err
			}
			r.MemIDs = ids
			return n, nil
		case 10: // types, packed enum (plain varint)
			v, n, err := consumeBytesField("relation.types", num, b)
			if err != nil {
				return 0, err
			}
			raw, err := consumePackedVarints("relation.types", v)
			if err != nil {
				return 0, err
			}
			types := make([]MemberType, len(raw))
			for i, x := range raw {
				types[i] = MemberType(x)
			}
			r.Types = types
			return n, nil
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return 0, osmerr.DecodeError(fmt.Errorf("relation: field %d: %w", num, protowire.ParseError(n)))
			}
			return n, nil
		}
	})
	if err != nil {
		return Relation{}, err
	}
	if len(r.Keys) != len(r.Vals) {
		return Relation{}, osmerr.CorruptInput("relation", fmt.Errorf("relation %d: keys/vals length mismatch", r.ID))
	}
	if len(r.RolesSid) != len(r.MemIDs) || len(r.RolesSid) != len(r.Types) {
		return Relation{}, osmerr.CorruptInput("relation", fmt.Errorf("relation %d: member array length mismatch", r.ID))
	}
	return r, nil
}

func toUint32s(raw []uint64) []uint32 {
	out := make([]uint32, len(raw))
	for i, v := range raw {
		out[i] = uint32(v)
	}
	return out
}
