package pbf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/nucleus/osmix/pkg/osmerr"
)

// --- encode helpers mirroring the OSM PBF wire schema, used only to
// build synthetic fixtures for the decoder under test. ---

func appendStringField(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, []byte(s))
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
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

func buildHeaderBlockBytes(requiredFeatures []string) []byte {
	var b []byte
	for _, f := range requiredFeatures {
		b = appendStringField(b, 4, f)
	}
	b = appendStringField(b, 16, "osmix-test-fixture")
	return b
}

func buildStringTableBytes(strs []string) []byte {
	var b []byte
	for _, s := range strs {
		b = appendStringField(b, 1, s)
	}
	return b
}

func buildDenseNodesBytes(ids, lats, lons []int64, keysVals []int32) []byte {
	var b []byte
	b = appendBytesField(b, 1, packedSints(ids...))
	b = appendBytesField(b, 8, packedSints(lats...))
	b = appendBytesField(b, 9, packedSints(lons...))
	kv := make([]uint64, len(keysVals))
	for i, v := range keysVals {
		kv[i] = uint64(v)
	}
	b = appendBytesField(b, 10, packedVarints(kv...))
	return b
}

func buildPrimitiveBlockBytes(stringTable []string, dense []byte) []byte {
	var b []byte
	b = appendBytesField(b, 1, buildStringTableBytes(stringTable))
	var group []byte
	group = appendBytesField(group, 2, dense)
	b = appendBytesField(b, 2, group)
	return b
}

// frameBlob wraps a logical payload (HeaderBlock or PrimitiveBlock
// bytes) as a zlib-compressed Blob inside a length-prefixed BlobHeader,
// the same framing readFileBlock consumes.
func frameBlob(t *testing.T, blobType string, payload []byte) []byte {
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
	blob = appendVarintField(blob, 2, uint64(len(payload)))
	blob = appendBytesField(blob, 3, compressed.Bytes())

	var header []byte
	header = appendStringField(header, 1, blobType)
	header = appendVarintField(header, 3, uint64(len(blob)))

	var out []byte
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(header)))
	out = append(out, lenBuf[:]...)
	out = append(out, header...)
	out = append(out, blob...)
	return out
}

func TestReaderDecodesHeaderAndDenseNodes(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(frameBlob(t, "OSMHeader", buildHeaderBlockBytes([]string{"OsmSchema-V0.6", "DenseNodes"})))

	// Two nodes: id deltas [100, 5] -> absolute [100, 105];
	// lat/lon deltas arbitrary small values.
	dense := buildDenseNodesBytes(
		[]int64{100, 5},
		[]int64{10, -2},
		[]int64{20, 3},
		[]int32{1, 2, 0, 0}, // node0: key=1,val=2; node1: no tags
	)
	pbBytes := buildPrimitiveBlockBytes([]string{"", "highway", "residential"}, dense)
	buf.Write(frameBlob(t, "OSMData", pbBytes))

	rd, err := NewReader(&buf)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if len(rd.Header().RequiredFeatures) != 2 {
		t.Fatalf("RequiredFeatures = %v", rd.Header().RequiredFeatures)
	}

	if !rd.Next() {
		t.Fatalf("Next() = false, Err() = %v", rd.Err())
	}
	block := rd.Value()
	if len(block.StringTable) != 3 {
		t.Fatalf("StringTable len = %d, want 3", len(block.StringTable))
	}
	if len(block.Groups) != 1 || block.Groups[0].Dense == nil {
		t.Fatalf("expected one dense group, got %+v", block.Groups)
	}
	dn := block.Groups[0].Dense
	if len(dn.ID) != 2 || dn.ID[0] != 100 || dn.ID[1] != 5 {
		t.Fatalf("dense.ID = %v, want [100,5] (still delta-encoded)", dn.ID)
	}
	if len(dn.KeysVals) != 4 {
		t.Fatalf("dense.KeysVals = %v, want length 4", dn.KeysVals)
	}

	if rd.Next() {
		t.Fatal("expected exactly one PrimitiveBlock")
	}
	if rd.Err() != nil {
		t.Fatalf("unexpected error at EOF: %v", rd.Err())
	}
}

func TestReaderConcurrencyPreservesBlockOrder(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(frameBlob(t, "OSMHeader", buildHeaderBlockBytes(nil)))

	const numBlocks = 6
	for i := 0; i < numBlocks; i++ {
		dense := buildDenseNodesBytes([]int64{int64(i) + 1}, []int64{0}, []int64{0}, nil)
		pbBytes := buildPrimitiveBlockBytes([]string{""}, dense)
		buf.Write(frameBlob(t, "OSMData", pbBytes))
	}

	rd, err := NewReaderConcurrency(&buf, 4)
	if err != nil {
		t.Fatalf("NewReaderConcurrency: %v", err)
	}

	var gotIDs []int64
	for rd.Next() {
		block := rd.Value()
		gotIDs = append(gotIDs, block.Groups[0].Dense.ID[0])
	}
	if err := rd.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gotIDs) != numBlocks {
		t.Fatalf("got %d blocks, want %d", len(gotIDs), numBlocks)
	}
	for i, id := range gotIDs {
		if id != int64(i)+1 {
			t.Fatalf("block order not preserved: gotIDs = %v", gotIDs)
		}
	}
}

func TestReaderRejectsWrongFirstBlobType(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(frameBlob(t, "OSMData", buildPrimitiveBlockBytes([]string{""}, nil)))
	_, err := NewReader(&buf)
	if !osmerr.Is(err, osmerr.CodeBadMagic) {
		t.Fatalf("NewReader error = %v, want BadMagic", err)
	}
}

func TestReaderRejectsUnknownRequiredFeature(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(frameBlob(t, "OSMHeader", buildHeaderBlockBytes([]string{"OsmSchema-V0.6", "HistoricalInformation"})))
	_, err := NewReader(&buf)
	if !osmerr.Is(err, osmerr.CodeUnknownRequiredFeature) {
		t.Fatalf("NewReader error = %v, want UnknownRequiredFeature", err)
	}
}

func TestReaderShortReadOnTruncatedStream(t *testing.T) {
	full := frameBlob(t, "OSMHeader", buildHeaderBlockBytes([]string{"OsmSchema-V0.6"}))
	truncated := full[:len(full)-3]
	_, err := NewReader(bytes.NewReader(truncated))
	if !osmerr.Is(err, osmerr.CodeShortRead) {
		t.Fatalf("NewReader error = %v, want ShortRead", err)
	}
}

func TestReaderEmptyStreamIsShortRead(t *testing.T) {
	_, err := NewReader(bytes.NewReader(nil))
	if !osmerr.Is(err, osmerr.CodeShortRead) {
		t.Fatalf("NewReader(empty) error = %v, want ShortRead", err)
	}
	if err == io.EOF {
		t.Fatal("NewReader must wrap EOF as a typed osmerr, not return bare io.EOF")
	}
}
