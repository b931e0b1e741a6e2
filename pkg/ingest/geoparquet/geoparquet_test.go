package geoparquet

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"testing"

	writerfile "github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/nucleus/osmix/pkg/ingest"
	"github.com/nucleus/osmix/pkg/strtable"
)

func wkbPointBytes(x, y float64) []byte {
	b := make([]byte, 21)
	b[0] = 1 // little-endian
	binary.LittleEndian.PutUint32(b[1:5], wkbPoint)
	binary.LittleEndian.PutUint64(b[5:13], math.Float64bits(x))
	binary.LittleEndian.PutUint64(b[13:21], math.Float64bits(y))
	return b
}

func wkbLineStringBytes(pts [][2]float64) []byte {
	b := make([]byte, 9+16*len(pts))
	b[0] = 1
	binary.LittleEndian.PutUint32(b[1:5], wkbLineString)
	binary.LittleEndian.PutUint32(b[5:9], uint32(len(pts)))
	off := 9
	for _, p := range pts {
		binary.LittleEndian.PutUint64(b[off:off+8], math.Float64bits(p[0]))
		binary.LittleEndian.PutUint64(b[off+8:off+16], math.Float64bits(p[1]))
		off += 16
	}
	return b
}

func buildParquetBytes(t *testing.T, rows []layercakeRow) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	pfw := writerfile.NewWriterFile(buf)
	pw, err := writer.NewParquetWriter(pfw, new(layercakeRow), 4)
	if err != nil {
		t.Fatalf("NewParquetWriter: %v", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		t.Fatalf("WriteStop: %v", err)
	}
	if err := pfw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return buf.Bytes()
}

func TestPointRowBecomesNode(t *testing.T) {
	data := buildParquetBytes(t, []layercakeRow{
		{ID: 1, Geometry: wkbPointBytes(1, 2), Tags: map[string]string{"amenity": "cafe"}},
	})
	strs := strtable.New()
	src, err := New(data, strs)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	store, err := ingest.BuildStore(context.Background(), strs, src, nil)
	if err != nil {
		t.Fatalf("BuildStore: %v", err)
	}
	if store.Nodes.Len() != 1 {
		t.Fatalf("Nodes.Len() = %d, want 1", store.Nodes.Len())
	}
}

func TestLineStringRowBecomesWay(t *testing.T) {
	data := buildParquetBytes(t, []layercakeRow{
		{ID: 2, Geometry: wkbLineStringBytes([][2]float64{{0, 0}, {1, 0}, {1, 1}}), Tags: map[string]string{"highway": "residential"}},
	})
	strs := strtable.New()
	src, err := New(data, strs)
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
