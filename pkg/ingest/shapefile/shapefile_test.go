package shapefile

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"testing"

	"github.com/nucleus/osmix/pkg/ingest"
	"github.com/nucleus/osmix/pkg/strtable"
)

func buildPointSHP(t *testing.T, points [][2]float64) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(make([]byte, 100)) // header, contents unused by the decoder

	for i, p := range points {
		content := make([]byte, 4+16)
		binary.LittleEndian.PutUint32(content[0:4], uint32(shapePoint))
		binary.LittleEndian.PutUint64(content[4:12], math.Float64bits(p[0]))
		binary.LittleEndian.PutUint64(content[12:20], math.Float64bits(p[1]))

		var recHeader [8]byte
		binary.BigEndian.PutUint32(recHeader[0:4], uint32(i+1))
		binary.BigEndian.PutUint32(recHeader[4:8], uint32(len(content)/2))
		buf.Write(recHeader[:])
		buf.Write(content)
	}
	return buf.Bytes()
}

func buildPolyRecordSHP(t *testing.T, typ int32, parts [][][2]float64) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(make([]byte, 100))

	numPoints := 0
	for _, p := range parts {
		numPoints += len(p)
	}

	var body bytes.Buffer
	body.Write(make([]byte, 32)) // bbox, unused
	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(len(parts)))
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(numPoints))
	body.Write(hdr[:])

	start := int32(0)
	for _, p := range parts {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(start))
		body.Write(b[:])
		start += int32(len(p))
	}
	for _, p := range parts {
		for _, pt := range p {
			var xy [16]byte
			binary.LittleEndian.PutUint64(xy[0:8], math.Float64bits(pt[0]))
			binary.LittleEndian.PutUint64(xy[8:16], math.Float64bits(pt[1]))
			body.Write(xy[:])
		}
	}

	content := make([]byte, 4+body.Len())
	binary.LittleEndian.PutUint32(content[0:4], uint32(typ))
	copy(content[4:], body.Bytes())

	var recHeader [8]byte
	binary.BigEndian.PutUint32(recHeader[0:4], 1)
	binary.BigEndian.PutUint32(recHeader[4:8], uint32(len(content)/2))
	buf.Write(recHeader[:])
	buf.Write(content)
	return buf.Bytes()
}

func buildZip(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func TestPointShapefileBecomesNodes(t *testing.T) {
	shp := buildPointSHP(t, [][2]float64{{1, 2}, {3, 4}})
	archive := buildZip(t, map[string][]byte{"points.shp": shp})

	strs := strtable.New()
	src, err := New(archive, strs)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	store, err := ingest.BuildStore(context.Background(), strs, src, nil)
	if err != nil {
		t.Fatalf("BuildStore: %v", err)
	}
	if store.Nodes.Len() != 2 {
		t.Fatalf("Nodes.Len() = %d, want 2", store.Nodes.Len())
	}
}

func TestPolylineShapefileBecomesWay(t *testing.T) {
	shp := buildPolyRecordSHP(t, shapePolyLine, [][][2]float64{
		{{0, 0}, {1, 0}, {1, 1}},
	})
	archive := buildZip(t, map[string][]byte{"lines.shp": shp})

	strs := strtable.New()
	src, err := New(archive, strs)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	store, err := ingest.BuildStore(context.Background(), strs, src, nil)
	if err != nil {
		t.Fatalf("BuildStore: %v", err)
	}
	if store.Ways.Len() != 1 {
		t.Fatalf("Ways.Len() = %d, want 1", store.Ways.Len())
	}
	if store.Nodes.Len() != 3 {
		t.Fatalf("Nodes.Len() = %d, want 3", store.Nodes.Len())
	}
}

func TestPolygonWithHoleShapefileMakesRelation(t *testing.T) {
	outer := [][2]float64{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}
	hole := [][2]float64{{2, 2}, {4, 2}, {4, 4}, {2, 4}, {2, 2}}
	shp := buildPolyRecordSHP(t, shapePolygon, [][][2]float64{outer, hole})
	archive := buildZip(t, map[string][]byte{"polys.shp": shp})

	strs := strtable.New()
	src, err := New(archive, strs)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	store, err := ingest.BuildStore(context.Background(), strs, src, nil)
	if err != nil {
		t.Fatalf("BuildStore: %v", err)
	}
	if store.Ways.Len() != 2 {
		t.Fatalf("Ways.Len() = %d, want 2", store.Ways.Len())
	}
	if store.Rels.Len() != 1 {
		t.Fatalf("Rels.Len() = %d, want 1", store.Rels.Len())
	}
}

func TestReadDBFCoercesFieldsToTags(t *testing.T) {
	// header: 32 bytes + one field descriptor (32 bytes) + terminator.
	header := make([]byte, 32+32+1)
	headerLen := uint16(len(header))
	recordLen := uint16(1 + 10) // deletion marker + 10-char field
	binary.LittleEndian.PutUint16(header[8:10], headerLen)
	binary.LittleEndian.PutUint16(header[10:12], recordLen)
	copy(header[32:43], "NAME")
	header[32+16] = 10 // field width
	header[32+32] = 0x0D

	rec := make([]byte, recordLen)
	copy(rec[1:], "cafe      ")

	data := append(header, rec...)
	rows, err := readDBF(data)
	if err != nil {
		t.Fatalf("readDBF: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	if rows[0]["NAME"] != "cafe" {
		t.Fatalf("rows[0][NAME] = %q, want %q", rows[0]["NAME"], "cafe")
	}
}
