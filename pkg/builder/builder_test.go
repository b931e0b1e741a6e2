package builder

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/binary"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/nucleus/osmix/pkg/osmerr"
)

// --- minimal OSM PBF wire-format encoders, fixtures only ---

func appendStr(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, []byte(s))
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func packedSints(vals ...int64) []byte {
	var b []byte
	for _, v := range vals {
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(v))
	}
	return b
}

func packedVarints(vals ...uint64) []byte {
	var b []byte
	for _, v := range vals {
		b = protowire.AppendVarint(b, v)
	}
	return b
}

func frame(t *testing.T, blobType string, payload []byte) []byte {
	t.Helper()
	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(payload); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zlib close: %v", err)
	}
	var blob []byte
	blob = appendVarint(blob, 2, uint64(len(payload)))
	blob = appendBytes(blob, 3, compressed.Bytes())

	var header []byte
	header = appendStr(header, 1, blobType)
	header = appendVarint(header, 3, uint64(len(blob)))

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(header)))
	out := append([]byte{}, lenBuf[:]...)
	out = append(out, header...)
	out = append(out, blob...)
	return out
}

func headerBlockBytes() []byte {
	var b []byte
	b = appendStr(b, 4, "OsmSchema-V0.6")
	b = appendStr(b, 4, "DenseNodes")
	return b
}

func stringTableBytes(strs []string) []byte {
	var b []byte
	for _, s := range strs {
		b = appendStr(b, 1, s)
	}
	return b
}

func denseNodesBytes(ids, lats, lons []int64, keysVals []int32) []byte {
	var b []byte
	b = appendBytes(b, 1, packedSints(ids...))
	b = appendBytes(b, 8, packedSints(lats...))
	b = appendBytes(b, 9, packedSints(lons...))
	kv := make([]uint64, len(keysVals))
	for i, v := range keysVals {
		kv[i] = uint64(v)
	}
	b = appendBytes(b, 10, packedVarints(kv...))
	return b
}

func wayBytes(id int64, refDeltas []int64, keys, vals []uint32) []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(id))
	if len(keys) > 0 {
		ku := make([]uint64, len(keys))
		for i, k := range keys {
			ku[i] = uint64(k)
		}
		vu := make([]uint64, len(vals))
		for i, v := range vals {
			vu[i] = uint64(v)
		}
		b = appendBytes(b, 2, packedVarints(ku...))
		b = appendBytes(b, 3, packedVarints(vu...))
	}
	b = appendBytes(b, 8, packedSints(refDeltas...))
	return b
}

func primitiveBlockBytes(stringTable []string, groupFieldNum protowire.Number, groupPayload []byte) []byte {
	var b []byte
	b = appendBytes(b, 1, stringTableBytes(stringTable))
	var group []byte
	group = appendBytes(group, groupFieldNum, groupPayload)
	b = appendBytes(b, 2, group)
	return b
}

func TestIngestNodesAndWays(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(frame(t, "OSMHeader", headerBlockBytes()))

	// String table: 0="" 1="highway" 2="residential"
	dense := denseNodesBytes(
		[]int64{1, 9}, // ids: delta 1 -> 1, delta 9 -> 10
		[]int64{0, 0},
		[]int64{0, 1000000}, // lon deltas in granularity units
		nil,
	)
	buf.Write(frame(t, "OSMData", primitiveBlockBytes([]string{"", "highway", "residential"}, 2, dense)))

	way := wayBytes(100, []int64{1, 9}, []uint32{1}, []uint32{2}) // refs: 1, 10
	buf.Write(frame(t, "OSMData", primitiveBlockBytes([]string{"", "highway", "residential"}, 3, way)))

	store, err := Ingest(context.Background(), &buf, Options{})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if store.Nodes.Len() != 2 {
		t.Fatalf("Nodes.Len() = %d, want 2", store.Nodes.Len())
	}
	if store.Ways.Len() != 1 {
		t.Fatalf("Ways.Len() = %d, want 1", store.Ways.Len())
	}
	wi, ok := store.Ways.GetByID(100)
	if !ok {
		t.Fatal("way 100 not found")
	}
	refs := store.Ways.Refs(wi)
	if len(refs) != 2 || refs[0] != 1 || refs[1] != 10 {
		t.Fatalf("way 100 refs = %v, want [1,10]", refs)
	}
	ni, _ := store.Nodes.GetByID(10)
	lon, _ := store.Nodes.LonLat(ni)
	if lon <= 0 {
		t.Fatalf("node 10 lon = %v, want > 0", lon)
	}
}

func TestIngestNodeFilter(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(frame(t, "OSMHeader", headerBlockBytes()))
	dense := denseNodesBytes([]int64{1, 9}, []int64{0, 0}, []int64{0, 0}, nil)
	buf.Write(frame(t, "OSMData", primitiveBlockBytes([]string{""}, 2, dense)))

	store, err := Ingest(context.Background(), &buf, Options{
		NodeFilter: func(id int64, lon, lat float64, tags map[string]string) bool { return id == 1 },
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if store.Nodes.Len() != 1 {
		t.Fatalf("Nodes.Len() = %d, want 1 after filter", store.Nodes.Len())
	}
}

func TestIngestDenseNodesAfterWaysIsCorruptInput(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(frame(t, "OSMHeader", headerBlockBytes()))

	dense := denseNodesBytes([]int64{1}, []int64{0}, []int64{0}, nil)
	buf.Write(frame(t, "OSMData", primitiveBlockBytes([]string{""}, 2, dense)))

	way := wayBytes(100, []int64{1}, nil, nil)
	buf.Write(frame(t, "OSMData", primitiveBlockBytes([]string{""}, 3, way)))

	// A third block smuggles dense nodes in after ways have begun.
	dense2 := denseNodesBytes([]int64{2}, []int64{0}, []int64{0}, nil)
	buf.Write(frame(t, "OSMData", primitiveBlockBytes([]string{""}, 2, dense2)))

	_, err := Ingest(context.Background(), &buf, Options{})
	if !osmerr.Is(err, osmerr.CodeCorruptInput) {
		t.Fatalf("Ingest error = %v, want CorruptInput", err)
	}
}

func TestIngestDedupsAdjacentWayRefs(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(frame(t, "OSMHeader", headerBlockBytes()))
	dense := denseNodesBytes([]int64{1}, []int64{0}, []int64{0}, nil)
	buf.Write(frame(t, "OSMData", primitiveBlockBytes([]string{""}, 2, dense)))

	// refs deltas: 1 -> 1, then 0 -> 1 again (adjacent duplicate), must collapse to [1].
	way := wayBytes(100, []int64{1, 0}, nil, nil)
	buf.Write(frame(t, "OSMData", primitiveBlockBytes([]string{""}, 3, way)))

	store, err := Ingest(context.Background(), &buf, Options{})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	wi, _ := store.Ways.GetByID(100)
	refs := store.Ways.Refs(wi)
	if len(refs) != 1 || refs[0] != 1 {
		t.Fatalf("way 100 refs = %v, want [1] after adjacent-dup collapse", refs)
	}
}
