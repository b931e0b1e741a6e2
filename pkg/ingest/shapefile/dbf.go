package shapefile

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// readDBF decodes a dBASE III/IV .dbf file into one map[string]string
// per row, field values trimmed of trailing pad spaces (dbf text
// fields are fixed-width, space-padded). Deleted rows (marker byte
// 0x2A) are skipped. A nil/empty input yields no rows, which simply
// means every shape gets no tags.
func readDBF(data []byte) ([]map[string]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if len(data) < 32 {
		return nil, fmt.Errorf("ingest/shapefile: .dbf shorter than header")
	}

	headerLen := int(binary.LittleEndian.Uint16(data[8:10]))
	recordLen := int(binary.LittleEndian.Uint16(data[10:12]))
	if headerLen <= 0 || recordLen <= 0 {
		return nil, fmt.Errorf("ingest/shapefile: invalid .dbf header/record length")
	}

	type field struct {
		name string
		off  int
		size int
	}
	var fields []field
	off := 1 // each record starts with a 1-byte deletion marker
	for pos := 32; pos+1 < headerLen && pos+32 <= len(data) && data[pos] != 0x0D; pos += 32 {
		name := strings.TrimRight(string(data[pos:pos+11]), "\x00")
		size := int(data[pos+16])
		fields = append(fields, field{name: name, off: off, size: size})
		off += size
	}

	var rows []map[string]string
	for rpos := headerLen; rpos+recordLen <= len(data); rpos += recordLen {
		rec := data[rpos : rpos+recordLen]
		if rec[0] == 0x2A {
			continue // deleted record
		}
		row := make(map[string]string, len(fields))
		for _, f := range fields {
			if f.off+f.size > len(rec) {
				continue
			}
			val := strings.TrimSpace(string(rec[f.off : f.off+f.size]))
			if val != "" {
				row[f.name] = val
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
