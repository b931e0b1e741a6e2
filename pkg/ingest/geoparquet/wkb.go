package geoparquet

import (
	"encoding/binary"
	"fmt"
	"math"
)

func float64frombits(bits uint64) float64 {
	return math.Float64frombits(bits)
}

// Well-Known Binary geometry type codes this adapter understands (the
// 2D, non-SRID-flagged subset the Layercake schema uses).
const (
	wkbPoint           = 1
	wkbLineString      = 2
	wkbPolygon         = 3
	wkbMultiPolygon    = 6
)

// wkbGeometry is a decoded WKB payload, shaped the same way shapefile
// and geojson decode their own inputs: a bare point, or a set of
// "parts" (each a ring/line's flat coordinate list). MultiPolygon
// input yields one []part group per polygon via polyParts.
type wkbGeometry struct {
	typ      uint32
	point    [2]float64
	parts    [][][2]float64
	polyParts [][][][2]float64
}

// decodeWKB parses a single WKB-encoded geometry (Point, LineString,
// Polygon, or MultiPolygon; Z/M variants and GeometryCollection are
// not produced by the Layercake schema and are rejected).
func decodeWKB(b []byte) (wkbGeometry, error) {
	if len(b) < 5 {
		return wkbGeometry{}, fmt.Errorf("ingest/geoparquet: wkb too short")
	}
	var order binary.ByteOrder = binary.LittleEndian
	if b[0] == 0 {
		order = binary.BigEndian
	}
	typ := order.Uint32(b[1:5])
	off := 5

	switch typ {
	case wkbPoint:
		if len(b) < off+16 {
			return wkbGeometry{}, fmt.Errorf("ingest/geoparquet: truncated wkb point")
		}
		x := bitsToFloatOrder(order, b[off:off+8])
		y := bitsToFloatOrder(order, b[off+8:off+16])
		return wkbGeometry{typ: typ, point: [2]float64{x, y}}, nil

	case wkbLineString:
		line, _, err := readWKBLine(order, b, off)
		if err != nil {
			return wkbGeometry{}, err
		}
		return wkbGeometry{typ: typ, parts: [][][2]float64{line}}, nil

	case wkbPolygon:
		rings, _, err := readWKBRings(order, b, off)
		if err != nil {
			return wkbGeometry{}, err
		}
		return wkbGeometry{typ: typ, parts: rings}, nil

	case wkbMultiPolygon:
		if len(b) < off+4 {
			return wkbGeometry{}, fmt.Errorf("ingest/geoparquet: truncated wkb multipolygon")
		}
		numPolys := int(order.Uint32(b[off : off+4]))
		off += 4
		polys := make([][][][2]float64, 0, numPolys)
		for i := 0; i < numPolys; i++ {
			if len(b) < off+5 {
				return wkbGeometry{}, fmt.Errorf("ingest/geoparquet: truncated wkb multipolygon member")
			}
			memberOrder := order
			if b[off] == 0 {
				memberOrder = binary.BigEndian
			} else if b[off] == 1 {
				memberOrder = binary.LittleEndian
			}
			off += 5 // member byte-order + type (always Polygon, 3)
			rings, next, err := readWKBRings(memberOrder, b, off)
			if err != nil {
				return wkbGeometry{}, err
			}
			off = next
			polys = append(polys, rings)
		}
		return wkbGeometry{typ: typ, polyParts: polys}, nil

	default:
		return wkbGeometry{}, fmt.Errorf("ingest/geoparquet: unsupported wkb geometry type %d", typ)
	}
}

func readWKBLine(order binary.ByteOrder, b []byte, off int) ([][2]float64, int, error) {
	if len(b) < off+4 {
		return nil, off, fmt.Errorf("ingest/geoparquet: truncated wkb line count")
	}
	n := int(order.Uint32(b[off : off+4]))
	off += 4
	pts := make([][2]float64, n)
	for i := 0; i < n; i++ {
		if len(b) < off+16 {
			return nil, off, fmt.Errorf("ingest/geoparquet: truncated wkb line point")
		}
		pts[i] = [2]float64{
			bitsToFloatOrder(order, b[off:off+8]),
			bitsToFloatOrder(order, b[off+8:off+16]),
		}
		off += 16
	}
	return pts, off, nil
}

func readWKBRings(order binary.ByteOrder, b []byte, off int) ([][][2]float64, int, error) {
	if len(b) < off+4 {
		return nil, off, fmt.Errorf("ingest/geoparquet: truncated wkb ring count")
	}
	numRings := int(order.Uint32(b[off : off+4]))
	off += 4
	rings := make([][][2]float64, numRings)
	for i := 0; i < numRings; i++ {
		ring, next, err := readWKBLine(order, b, off)
		if err != nil {
			return nil, off, err
		}
		rings[i] = ring
		off = next
	}
	return rings, off, nil
}

func bitsToFloatOrder(order binary.ByteOrder, b []byte) float64 {
	return float64frombits(order.Uint64(b))
}
