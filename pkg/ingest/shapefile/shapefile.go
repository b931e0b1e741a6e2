// Package shapefile implements the Shapefile format adapter (§4.11): a
// zipped .shp/.shx/.dbf triple maps each shape record to a Node or
// Way(s), with .dbf field values coerced to string tags.
//
// Only the shape types a tag-carrying vector dataset actually uses are
// supported: Point, PolyLine, and Polygon (and their "Z"/"M" variants,
// whose extra measure/elevation values are read past and discarded).
// The .shx index is never consulted; .shp records are read in file
// order, which is already the order dbf rows are keyed by.
package shapefile

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/nucleus/osmix/pkg/entitystore"
	"github.com/nucleus/osmix/pkg/ingest"
	"github.com/nucleus/osmix/pkg/strtable"
	"github.com/nucleus/osmix/pkg/tagstore"
)

// Shapefile shape type codes (subset this adapter understands).
const (
	shapeNull        = 0
	shapePoint       = 1
	shapePolyLine    = 3
	shapePolygon     = 5
	shapePointZ      = 11
	shapePolyLineZ   = 13
	shapePolygonZ    = 15
	shapePointM      = 21
	shapePolyLineM   = 23
	shapePolygonM    = 25
)

// Source adapts a zipped Shapefile to ingest.EntitySource.
type Source struct {
	strs  *strtable.Table
	nodes []entitystore.RawNode
	ways  []entitystore.RawWay
	rels  []entitystore.RawRelation
}

// New reads a .zip archive (data) containing a .shp member and,
// optionally, a .dbf member, interning every .dbf field value
// encountered as a tag string into strs. Members are picked by
// extension only; their base names are not compared.
func New(data []byte, strs *strtable.Table) (*Source, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("ingest/shapefile: open zip: %w", err)
	}

	var shpBytes, dbfBytes []byte
	for _, f := range zr.File {
		lower := strings.ToLower(f.Name)
		switch {
		case strings.HasSuffix(lower, ".shp"):
			if shpBytes, err = readZipFile(f); err != nil {
				return nil, err
			}
		case strings.HasSuffix(lower, ".dbf"):
			if dbfBytes, err = readZipFile(f); err != nil {
				return nil, err
			}
		}
	}
	if shpBytes == nil {
		return nil, fmt.Errorf("ingest/shapefile: no .shp member in archive")
	}

	rows, err := readDBF(dbfBytes)
	if err != nil {
		return nil, err
	}

	shapes, err := readSHP(shpBytes)
	if err != nil {
		return nil, err
	}

	s := &Source{strs: strs}
	nextID := int64(-1)
	for i, shp := range shapes {
		var row map[string]string
		if i < len(rows) {
			row = rows[i]
		}
		tags := internRow(strs, row)
		s.addShape(shp, tags, &nextID)
	}
	return s, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("ingest/shapefile: open %s: %w", f.Name, err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("ingest/shapefile: read %s: %w", f.Name, err)
	}
	return b, nil
}

// shape is one decoded .shp record: a point, or a set of parts (each a
// polyline or polygon ring).
type shape struct {
	typ   int32
	point [2]float64
	parts [][][2]float64
}

func (s *Source) addShape(shp shape, tags []tagstore.Pair, nextID *int64) {
	switch shp.typ {
	case shapeNull:
		return
	case shapePoint, shapePointZ, shapePointM:
		id := *nextID
		*nextID--
		s.nodes = append(s.nodes, entitystore.RawNode{ID: id, Lon: shp.point[0], Lat: shp.point[1], Tags: tags})

	case shapePolyLine, shapePolyLineZ, shapePolyLineM:
		for _, part := range shp.parts {
			if len(part) < 2 {
				continue
			}
			refs := s.materializeLine(part, nextID)
			id := *nextID
			*nextID--
			s.ways = append(s.ways, entitystore.RawWay{ID: id, Refs: refs, Tags: tags})
		}

	case shapePolygon, shapePolygonZ, shapePolygonM:
		s.addPolygonRings(shp.parts, tags, nextID)
	}
}

// addPolygonRings treats every ring as its own Way; a shape with more
// than one ring (an outer boundary plus one or more holes, the only
// reason a shapefile polygon record carries multiple parts) gets a
// synthetic multipolygon Relation, mirroring the GeoJSON adapter's
// same rule for holed polygons.
func (s *Source) addPolygonRings(rings [][][2]float64, tags []tagstore.Pair, nextID *int64) {
	if len(rings) == 0 {
		return
	}
	if len(rings) == 1 {
		refs := s.materializeRing(rings[0], nextID)
		if len(refs) < 4 {
			return
		}
		id := *nextID
		*nextID--
		s.ways = append(s.ways, entitystore.RawWay{ID: id, Refs: refs, Tags: tags})
		return
	}

	outerRole := s.strs.Intern("outer")
	innerRole := s.strs.Intern("inner")
	var members []entitystore.RawMember
	for i, r := range rings {
		refs := s.materializeRing(r, nextID)
		if len(refs) < 4 {
			continue
		}
		id := *nextID
		*nextID--
		s.ways = append(s.ways, entitystore.RawWay{ID: id, Refs: refs})
		role := outerRole
		if i > 0 {
			role = innerRole
		}
		members = append(members, entitystore.RawMember{Kind: entitystore.MemberWay, Ref: id, Role: role})
	}
	if len(members) == 0 {
		return
	}
	relID := *nextID
	*nextID--
	s.rels = append(s.rels, entitystore.RawRelation{ID: relID, Members: members, Tags: tags})
}

func (s *Source) materializeLine(coords [][2]float64, nextID *int64) []int64 {
	refs := make([]int64, len(coords))
	for i, c := range coords {
		id := *nextID
		*nextID--
		s.nodes = append(s.nodes, entitystore.RawNode{ID: id, Lon: c[0], Lat: c[1]})
		refs[i] = id
	}
	return refs
}

func (s *Source) materializeRing(coords [][2]float64, nextID *int64) []int64 {
	if len(coords) < 2 || coords[0] != coords[len(coords)-1] {
		return s.materializeLine(coords, nextID)
	}
	refs := s.materializeLine(coords[:len(coords)-1], nextID)
	return append(refs, refs[0])
}

func internRow(strs *strtable.Table, row map[string]string) []tagstore.Pair {
	if len(row) == 0 {
		return nil
	}
	pairs := make([]tagstore.Pair, 0, len(row))
	for k, v := range row {
		pairs = append(pairs, tagstore.Pair{KeyID: strs.Intern(k), ValueID: strs.Intern(v)})
	}
	return pairs
}

// readSHP decodes the .shp main file: a 100-byte header (big-endian
// file code/length, little-endian version/shape type/bbox) followed
// by variable-length records (big-endian record number + content
// length in 16-bit words, then a little-endian shape payload).
func readSHP(data []byte) ([]shape, error) {
	if len(data) < 100 {
		return nil, fmt.Errorf("ingest/shapefile: .shp shorter than header")
	}
	var shapes []shape
	off := 100
	for off+8 <= len(data) {
		contentWords := int32(binary.BigEndian.Uint32(data[off+4 : off+8]))
		contentBytes := int(contentWords) * 2
		off += 8
		if off+contentBytes > len(data) || contentBytes < 4 {
			break
		}
		rec := data[off : off+contentBytes]
		off += contentBytes

		typ := int32(binary.LittleEndian.Uint32(rec[0:4]))
		shp, err := decodeShapeRecord(typ, rec[4:])
		if err != nil {
			return nil, err
		}
		shapes = append(shapes, shp)
	}
	return shapes, nil
}

func decodeShapeRecord(typ int32, body []byte) (shape, error) {
	switch typ {
	case shapeNull:
		return shape{typ: typ}, nil

	case shapePoint, shapePointZ, shapePointM:
		if len(body) < 16 {
			return shape{}, fmt.Errorf("ingest/shapefile: truncated point record")
		}
		x := bitsToFloat(binary.LittleEndian.Uint64(body[0:8]))
		y := bitsToFloat(binary.LittleEndian.Uint64(body[8:16]))
		return shape{typ: typ, point: [2]float64{x, y}}, nil

	case shapePolyLine, shapePolygon, shapePolyLineZ, shapePolygonZ, shapePolyLineM, shapePolygonM:
		return decodePolyRecord(typ, body)

	default:
		return shape{typ: shapeNull}, nil
	}
}

// decodePolyRecord decodes the common PolyLine/Polygon layout: bbox
// (4 doubles), numParts int32, numPoints int32, part-start-index
// array, then the flat [x,y] point array. Any trailing Z/M arrays are
// read past, not decoded.
func decodePolyRecord(typ int32, body []byte) (shape, error) {
	if len(body) < 32+8 {
		return shape{}, fmt.Errorf("ingest/shapefile: truncated poly record")
	}
	off := 32
	numParts := int32(binary.LittleEndian.Uint32(body[off : off+4]))
	numPoints := int32(binary.LittleEndian.Uint32(body[off+4 : off+8]))
	off += 8

	starts := make([]int32, numParts)
	for i := range starts {
		starts[i] = int32(binary.LittleEndian.Uint32(body[off : off+4]))
		off += 4
	}

	pts := make([][2]float64, numPoints)
	for i := range pts {
		x := bitsToFloat(binary.LittleEndian.Uint64(body[off : off+8]))
		y := bitsToFloat(binary.LittleEndian.Uint64(body[off+8 : off+16]))
		pts[i] = [2]float64{x, y}
		off += 16
	}

	parts := make([][][2]float64, numParts)
	for i := range starts {
		end := numPoints
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		parts[i] = pts[starts[i]:end]
	}
	return shape{typ: typ, parts: parts}, nil
}

func bitsToFloat(bits uint64) float64 {
	return math.Float64frombits(bits)
}

func (s *Source) Nodes(ctx context.Context) (entitystore.NodeIterator, error) {
	return ingest.NewSliceIterator(s.nodes), nil
}

func (s *Source) Ways(ctx context.Context) (entitystore.WayIterator, error) {
	return ingest.NewSliceIterator(s.ways), nil
}

func (s *Source) Relations(ctx context.Context) (entitystore.RelationIterator, error) {
	return ingest.NewSliceIterator(s.rels), nil
}

// Partial is always false: a shapefile dataset carries its full
// extent, not a bounded clip.
func (s *Source) Partial() bool { return false }
