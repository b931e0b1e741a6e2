package pbf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/nucleus/osmix/pkg/osmerr"
)

// Per the OSM PBF container format's own sanity limits.
const (
	maxBlobHeaderSize = 64 * 1024
	maxBlobSize       = 32 * 1024 * 1024
)

// blobHeader is the framing envelope preceding every blob.
type blobHeader struct {
	Type     string
	DataSize int32
}

func decodeBlobHeader(b []byte) (blobHeader, error) {
	var h blobHeader
	err := decodeFields("blobheader", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1: // type
			v, n, err := consumeBytesField("blobheader.type", num, b)
			if err != nil {
				return 0, err
			}
			h.Type = string(v)
			return n, nil
		case 2: // indexdata, unused
			_, n, err := consumeBytesField("blobheader.indexdata", num, b)
			return n, err
		case 3: // datasize
			v, n, err := consumeVarintField("blobheader.datasize", num, b)
			if err != nil {
				return 0, err
			}
			h.DataSize = int32(v)
			return n, nil
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return 0, osmerr.DecodeError(fmt.Errorf("blobheader: field %d: %w", num, protowire.ParseError(n)))
			}
			return n, nil
		}
	})
	if err != nil {
		return blobHeader{}, err
	}
	if h.Type == "" {
		return blobHeader{}, osmerr.DecodeError(fmt.Errorf("blobheader: missing required type"))
	}
	return h, nil
}

// decodeBlob decompresses a Blob message body into its logical payload
// bytes (a serialized HeaderBlock or PrimitiveBlock).
func decodeBlob(b []byte) ([]byte, error) {
	var raw, zlibData []byte
	var rawSize int32
	var sawUnsupported string

	err := decodeFields("blob", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1: // raw
			v, n, err := consumeBytesField("blob.raw", num, b)
			if err != nil {
				return 0, err
			}
			raw = v
			return n, nil
		case 2: // raw_size
			v, n, err := consumeVarintField("blob.raw_size", num, b)
			if err != nil {
				return 0, err
			}
			rawSize = int32(v)
			return n, nil
		case 3: // zlib_data
			v, n, err := consumeBytesField("blob.zlib_data", num, b)
			if err != nil {
				return 0, err
			}
			zlibData = v
			return n, nil
		case 4, 5, 6, 7: // lzma_data, OBSOLETE_bzip2_data, lz4_data, zstd_data
			_, n, err := consumeBytesField("blob.unsupported_codec", num, b)
			if err != nil {
				return 0, err
			}
			sawUnsupported = map[protowire.Number]string{4: "lzma", 5: "bzip2", 6: "lz4", 7: "zstd"}[num]
			return n, nil
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return 0, osmerr.DecodeError(fmt.Errorf("blob: field %d: %w", num, protowire.ParseError(n)))
			}
			return n, nil
		}
	})
	if err != nil {
		return nil, err
	}

	if raw != nil {
		return raw, nil
	}
	if zlibData != nil {
		return inflateZlib(zlibData, rawSize)
	}
	if sawUnsupported != "" {
		return nil, osmerr.DecompressError(fmt.Errorf("blob uses unsupported codec %q", sawUnsupported))
	}
	return nil, osmerr.DecodeError(fmt.Errorf("blob: no payload present"))
}

func inflateZlib(data []byte, rawSize int32) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, osmerr.DecompressError(err)
	}
	defer zr.Close()

	size := int(rawSize)
	if size <= 0 {
		size = len(data) * 4
	}
	out := make([]byte, 0, size)
	buf := make([]byte, 32*1024)
	for {
		n, err := zr.Read(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, osmerr.DecompressError(err)
		}
	}
	return out, nil
}

// readFileBlock reads one BlobHeader+Blob pair from r, returning the
// header's type and the decompressed logical payload. Returns io.EOF
// (unwrapped) when r is exhausted cleanly between blocks.
func readFileBlock(r io.Reader) (string, []byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if err == io.EOF {
			return "", nil, io.EOF
		}
		return "", nil, osmerr.ShortRead(err)
	}
	headerLen := binary.BigEndian.Uint32(lenBuf[:])
	if headerLen == 0 || headerLen > maxBlobHeaderSize {
		return "", nil, osmerr.BadMagic(fmt.Errorf("implausible blobheader length %d", headerLen))
	}

	headerBuf := make([]byte, headerLen)
	if _, err := io.ReadFull(r, headerBuf); err != nil {
		return "", nil, osmerr.ShortRead(err)
	}
	header, err := decodeBlobHeader(headerBuf)
	if err != nil {
		return "", nil, err
	}
	if header.DataSize <= 0 || header.DataSize > maxBlobSize {
		return "", nil, osmerr.BadMagic(fmt.Errorf("implausible blob size %d", header.DataSize))
	}

	blobBuf := make([]byte, header.DataSize)
	if _, err := io.ReadFull(r, blobBuf); err != nil {
		return "", nil, osmerr.ShortRead(err)
	}
	payload, err := decodeBlob(blobBuf)
	if err != nil {
		return "", nil, err
	}
	return header.Type, payload, nil
}
