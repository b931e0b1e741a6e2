// Package geoparquet implements the GeoParquet format adapter (§4.11):
// reads the "Layercake" schema (`id` int64, `geometry` WKB byte array,
// `tags` string-to-string map) using parquet-go's struct-tagged row
// reader, decoding each row's WKB geometry the same way the GeoJSON
// and Shapefile adapters decode theirs — Point/LineString/Polygon/
// MultiPolygon to Node/Way(s), with a synthetic multipolygon Relation
// whenever a polygon carries holes.
package geoparquet

import (
	"context"
	"fmt"
	"io"

	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/source"

	"github.com/nucleus/osmix/pkg/entitystore"
	"github.com/nucleus/osmix/pkg/ingest"
	"github.com/nucleus/osmix/pkg/strtable"
	"github.com/nucleus/osmix/pkg/tagstore"
)

// memFile is a minimal source.ParquetFile backed by an in-memory byte
// slice, for read-only access to data already held in a []byte — the
// module's format adapters are handed whole files, not paths, so the
// on-disk-oriented readers parquet-go-source ships (local, s3, hdfs)
// don't fit; this is the same shape as those, reading from memory
// instead of a filesystem/object-store handle.
type memFile struct {
	data []byte
	pos  int64
}

func (f *memFile) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = f.pos
	case io.SeekEnd:
		base = int64(len(f.data))
	}
	f.pos = base + offset
	return f.pos, nil
}

func (f *memFile) Read(b []byte) (int, error) {
	if f.pos >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(b, f.data[f.pos:])
	f.pos += int64(n)
	return n, nil
}

func (f *memFile) Write(b []byte) (int, error) {
	return 0, fmt.Errorf("ingest/geoparquet: memFile is read-only")
}

func (f *memFile) Close() error { return nil }

func (f *memFile) Open(name string) (source.ParquetFile, error) {
	return &memFile{data: f.data}, nil
}

func (f *memFile) Create(name string) (source.ParquetFile, error) {
	return nil, fmt.Errorf("ingest/geoparquet: memFile is read-only")
}

// layercakeRow is the Parquet row shape the Layercake schema defines:
// a stable id, a WKB-encoded geometry, and a flat tag map.
type layercakeRow struct {
	ID       int64             `parquet:"name=id, type=INT64"`
	Geometry []byte            `parquet:"name=geometry, type=BYTE_ARRAY"`
	Tags     map[string]string `parquet:"name=tags, type=MAP, keytype=BYTE_ARRAY, keyconvertedtype=UTF8, valuetype=BYTE_ARRAY, valueconvertedtype=UTF8"`
}

// Source adapts a GeoParquet/Layercake file to ingest.EntitySource.
type Source struct {
	strs  *strtable.Table
	nodes []entitystore.RawNode
	ways  []entitystore.RawWay
	rels  []entitystore.RawRelation
}

// New reads data as a Layercake-schema Parquet file, interning every
// tag key/value encountered into strs. The row's own `id` column is
// not used: the Nodes/Ways/Relations materialized from each row's
// geometry get sequential negative synthetic ids starting at -1 (one
// row can expand to several entities — a holed polygon's rings plus
// its enclosing relation).
func New(data []byte, strs *strtable.Table) (*Source, error) {
	pqFile := &memFile{data: data}
	pr, err := reader.NewParquetReader(pqFile, new(layercakeRow), 4)
	if err != nil {
		return nil, fmt.Errorf("ingest/geoparquet: open reader: %w", err)
	}
	defer pr.ReadStop()

	total := int(pr.GetNumRows())
	rows := make([]layercakeRow, total)
	if total > 0 {
		if err := pr.Read(&rows); err != nil {
			return nil, fmt.Errorf("ingest/geoparquet: read rows: %w", err)
		}
	}

	s := &Source{strs: strs}
	nextID := int64(-1)
	for _, row := range rows {
		tags := internTags(strs, row.Tags)
		geom, err := decodeWKB(row.Geometry)
		if err != nil {
			continue // malformed/unsupported geometry: row contributes no entities
		}
		s.addGeometry(geom, tags, &nextID)
	}
	return s, nil
}

func (s *Source) addGeometry(geom wkbGeometry, tags []tagstore.Pair, nextID *int64) {
	switch geom.typ {
	case wkbPoint:
		id := *nextID
		*nextID--
		s.nodes = append(s.nodes, entitystore.RawNode{ID: id, Lon: geom.point[0], Lat: geom.point[1], Tags: tags})

	case wkbLineString:
		for _, part := range geom.parts {
			if len(part) < 2 {
				continue
			}
			refs := s.materializeLine(part, nextID)
			id := *nextID
			*nextID--
			s.ways = append(s.ways, entitystore.RawWay{ID: id, Refs: refs, Tags: tags})
		}

	case wkbPolygon:
		s.addPolygonRings(geom.parts, tags, nextID)

	case wkbMultiPolygon:
		for _, rings := range geom.polyParts {
			s.addPolygonRings(rings, tags, nextID)
		}
	}
}

// addPolygonRings mirrors pkg/ingest/shapefile's rule: a single ring
// attaches tags directly to its one Way; multiple rings (outer plus
// holes) get a synthetic multipolygon Relation with outer/inner-role
// members.
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

func (s *Source) Nodes(ctx context.Context) (entitystore.NodeIterator, error) {
	return ingest.NewSliceIterator(s.nodes), nil
}

func (s *Source) Ways(ctx context.Context) (entitystore.WayIterator, error) {
	return ingest.NewSliceIterator(s.ways), nil
}

func (s *Source) Relations(ctx context.Context) (entitystore.RelationIterator, error) {
	return ingest.NewSliceIterator(s.rels), nil
}

// Partial is always false: a GeoParquet dataset carries its full
// extent, not a bounded clip.
func (s *Source) Partial() bool { return false }
