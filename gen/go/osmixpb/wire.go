// Package osmixpb holds the hand-rolled request/response message
// types for internal/rpc's three gRPC services (§4.12). These are not
// protoc-generated: each message implements Marshal/Unmarshal directly
// against google.golang.org/protobuf/encoding/protowire, the same
// low-level wire package pkg/pbf and pkg/tile already build on, wired
// into gRPC via a small custom Codec (codec.go) instead of the
// descriptor-reflection machinery protoc-gen-go normally emits.
package osmixpb

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// fieldMap holds every field's raw, repeatable wire values keyed by
// field number, decoded once up front so each message's Unmarshal can
// simply look up the numbers it knows about.
type fieldMap map[uint32][][]byte

func parseFields(b []byte) (fieldMap, error) {
	fm := fieldMap{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("osmixpb: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		var val []byte
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("osmixpb: bad varint: %w", protowire.ParseError(n))
			}
			val = protowire.AppendVarint(nil, v)
			b = b[n:]
		case protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return nil, fmt.Errorf("osmixpb: bad fixed64: %w", protowire.ParseError(n))
			}
			val = protowire.AppendFixed64(nil, v)
			b = b[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("osmixpb: bad bytes: %w", protowire.ParseError(n))
			}
			val = append([]byte(nil), v...)
			b = b[n:]
		default:
			return nil, fmt.Errorf("osmixpb: unsupported wire type %d", typ)
		}
		fm[uint32(num)] = append(fm[uint32(num)], val)
	}
	return fm, nil
}

func (fm fieldMap) str(num uint32) string {
	vs := fm[num]
	if len(vs) == 0 {
		return ""
	}
	return string(vs[len(vs)-1])
}

func (fm fieldMap) strSlice(num uint32) []string {
	vs := fm[num]
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = string(v)
	}
	return out
}

func (fm fieldMap) hasField(num uint32) bool { return len(fm[num]) > 0 }

func (fm fieldMap) int64(num uint32) int64 {
	vs := fm[num]
	if len(vs) == 0 {
		return 0
	}
	v, _ := protowire.ConsumeVarint(vs[len(vs)-1])
	return int64(v)
}

func (fm fieldMap) int64Slice(num uint32) []int64 {
	vs := fm[num]
	out := make([]int64, len(vs))
	for i, v := range vs {
		n, _ := protowire.ConsumeVarint(v)
		out[i] = int64(n)
	}
	return out
}

func (fm fieldMap) uint32(num uint32) uint32 { return uint32(fm.int64(num)) }

func (fm fieldMap) boolean(num uint32) bool { return fm.int64(num) != 0 }

func (fm fieldMap) float64(num uint32) float64 {
	vs := fm[num]
	if len(vs) == 0 {
		return 0
	}
	bits, _ := protowire.ConsumeFixed64(vs[len(vs)-1])
	return math.Float64frombits(bits)
}

func (fm fieldMap) float64Slice(num uint32) []float64 {
	vs := fm[num]
	out := make([]float64, len(vs))
	for i, v := range vs {
		bits, _ := protowire.ConsumeFixed64(v)
		out[i] = math.Float64frombits(bits)
	}
	return out
}

func (fm fieldMap) bytes(num uint32) []byte {
	vs := fm[num]
	if len(vs) == 0 {
		return nil
	}
	return vs[len(vs)-1]
}

func appendString(b []byte, num uint32, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, protowire.Number(num), protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendStringSlice(b []byte, num uint32, ss []string) []byte {
	for _, s := range ss {
		b = protowire.AppendTag(b, protowire.Number(num), protowire.BytesType)
		b = protowire.AppendString(b, s)
	}
	return b
}

func appendInt64(b []byte, num uint32, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, protowire.Number(num), protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendInt64Slice(b []byte, num uint32, vs []int64) []byte {
	for _, v := range vs {
		b = protowire.AppendTag(b, protowire.Number(num), protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(v))
	}
	return b
}

func appendUint32(b []byte, num uint32, v uint32) []byte {
	return appendInt64(b, num, int64(v))
}

func appendBool(b []byte, num uint32, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, protowire.Number(num), protowire.VarintType)
	var iv uint64
	if v {
		iv = 1
	}
	return protowire.AppendVarint(b, iv)
}

func appendFloat64(b []byte, num uint32, v float64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, protowire.Number(num), protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendFloat64Slice(b []byte, num uint32, vs []float64) []byte {
	for _, v := range vs {
		b = protowire.AppendTag(b, protowire.Number(num), protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(v))
	}
	return b
}

func appendBytes(b []byte, num uint32, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, protowire.Number(num), protowire.BytesType)
	return protowire.AppendBytes(b, v)
}
