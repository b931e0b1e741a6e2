package pbf

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/nucleus/osmix/pkg/osmerr"
)

// supportedFeatures lists the required_features values this decoder
// understands (§4.7: "the header's required_features must be
// checked"). OsmSchema-V0.6 is the baseline wire schema; DenseNodes
// indicates the (universally used) packed node encoding this decoder
// implements. Anything else (e.g. a historical-data extension) is
// reported as UnknownRequiredFeature rather than silently ignored.
var supportedFeatures = map[string]bool{
	"OsmSchema-V0.6": true,
	"DenseNodes":     true,
}

// BBox is the header's declared extract bounding box, in nanodegrees
// per the wire format (callers divide by 1e9 for WGS-84 degrees).
type BBox struct {
	Left, Right, Top, Bottom int64
}

// HeaderBlock is the decoded contents of the file's single OSMHeader
// blob (spec.md §4.7).
type HeaderBlock struct {
	BBox               *BBox
	RequiredFeatures   []string
	OptionalFeatures   []string
	WritingProgram     string
	Source             string
	ReplicationTime    int64
	ReplicationSeqNum  int64
	ReplicationBaseURL string
}

// checkRequiredFeatures returns UnknownRequiredFeature for the first
// required_features entry this decoder does not implement.
func (h *HeaderBlock) checkRequiredFeatures() error {
	for _, f := range h.RequiredFeatures {
		if !supportedFeatures[f] {
			return osmerr.UnknownRequiredFeature(f)
		}
	}
	return nil
}

func decodeHeaderBlock(b []byte) (*HeaderBlock, error) {
	h := &HeaderBlock{}
	err := decodeFields("headerblock", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1: // bbox
			v, n, err := consumeBytesField("headerblock.bbox", num, b)
			if err != nil {
				return 0, err
			}
			box, err := decodeHeaderBBox(v)
			if err != nil {
				return 0, err
			}
			h.BBox = box
			return n, nil
		case 4: // required_features (repeated string)
			v, n, err := consumeBytesField("headerblock.required_features", num, b)
			if err != nil {
				return 0, err
			}
			h.RequiredFeatures = append(h.RequiredFeatures, string(v))
			return n, nil
		case 5: // optional_features
			v, n, err := consumeBytesField("headerblock.optional_features", num, b)
			if err != nil {
				return 0, err
			}
			h.OptionalFeatures = append(h.OptionalFeatures, string(v))
			return n, nil
		case 16: // writingprogram
			v, n, err := consumeBytesField("headerblock.writingprogram", num, b)
			if err != nil {
				return 0, err
			}
			h.WritingProgram = string(v)
			return n, nil
		case 17: // source
			v, n, err := consumeBytesField("headerblock.source", num, b)
			if err != nil {
				return 0, err
			}
			h.Source = string(v)
			return n, nil
		case 32: // osmosis_replication_timestamp
			v, n, err := consumeVarintField("headerblock.osmosis_replication_timestamp", num, b)
			if err != nil {
				return 0, err
			}
			h.ReplicationTime = int64(v)
			return n, nil
		case 33: // osmosis_replication_sequence_number
			v, n, err := consumeVarintField("headerblock.osmosis_replication_sequence_number", num, b)
			if err != nil {
				return 0, err
			}
			h.ReplicationSeqNum = int64(v)
			return n, nil
		case 34: // osmosis_replication_base_url
			v, n, err := consumeBytesField("headerblock.osmosis_replication_base_url", num, b)
			if err != nil {
				return 0, err
			}
			h.ReplicationBaseURL = string(v)
			return n, nil
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return 0, osmerr.DecodeError(fmt.Errorf("headerblock: field %d: %w", num, protowire.ParseError(n)))
			}
			return n, nil
		}
	})
	if err != nil {
		return nil, err
	}
	if err := h.checkRequiredFeatures(); err != nil {
		return nil, err
	}
	return h, nil
}

func decodeHeaderBBox(b []byte) (*BBox, error) {
	box := &BBox{}
	err := decodeFields("headerbbox", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		v, n, err := consumeVarintField("headerbbox", num, b)
		if err != nil {
			return 0, err
		}
		sv := protowire.DecodeZigZag(v)
		switch num {
		case 1:
			box.Left = sv
		case 2:
			box.Right = sv
		case 3:
			box.Top = sv
		case 4:
			box.Bottom = sv
		}
		return n, nil
	})
	if err != nil {
		return nil, err
	}
	return box, nil
}
