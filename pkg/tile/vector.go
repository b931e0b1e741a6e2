package tile

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/nucleus/osmix/pkg/entitystore"
)

// mvtExtent is the coordinate-space resolution vector tile geometries
// are encoded in, per the Mapbox Vector Tile 2.x spec's usual default.
const mvtExtent = 4096

const mvtVersion = 2

// Geometry command/type codes from the MVT 2.x spec.
const (
	cmdMoveTo    = 1
	cmdLineTo    = 2
	cmdClosePath = 7

	geomPoint      = 1
	geomLineString = 2
	geomPolygon    = 3
)

// GetVectorTile renders an MVT 2.x tile with two layers, named per
// §4.9's convention: "@osmix:<dataset>:nodes" (Point features) and
// "@osmix:<dataset>:ways" (LineString/Polygon features). Encoding is
// done directly against google.golang.org/protobuf/encoding/protowire,
// the same wire-level package pkg/pbf decodes OSM PBF with, rather
// than through generated .pb.go types, since the Non-goals exclude MVT
// encoding *details* beyond the tile API contract.
func GetVectorTile(store *entitystore.Store, dataset string, c Coord) ([]byte, error) {
	bbox := c.BBox()

	nodesLayer := newLayerBuilder(fmt.Sprintf("@osmix:%s:nodes", dataset))
	for _, idx := range store.Nodes.WithinBBox(bbox) {
		lon, lat := store.Nodes.LonLat(idx)
		x, y := project(lon, lat, c, mvtExtent)
		tags := tagsOf(store, store.Nodes.TagsOf(idx))
		nodesLayer.addFeature(store.Nodes.GetByIndex(idx), tags, geomPoint, encodePointGeometry(x, y))
	}

	waysLayer := newLayerBuilder(fmt.Sprintf("@osmix:%s:ways", dataset))
	for _, idx := range store.Ways.WithinBBox(bbox) {
		coords, err := store.Ways.GetCoordinates(idx, store.Nodes)
		if err != nil || len(coords) < 2 {
			continue
		}
		tags := tagsOf(store, store.Ways.TagsOf(idx))
		pts := make([]pixel, len(coords))
		for i, p := range coords {
			x, y := project(p.Lon, p.Lat, c, mvtExtent)
			pts[i] = pixel{x, y}
		}
		if isClosedRing(coords) && isAreaIndicating(tags) {
			waysLayer.addFeature(store.Ways.GetByIndex(idx), tags, geomPolygon, encodePolygonGeometry(pts))
		} else {
			waysLayer.addFeature(store.Ways.GetByIndex(idx), tags, geomLineString, encodeLineGeometry(pts))
		}
	}

	var tile []byte
	tile = appendLayer(tile, nodesLayer)
	tile = appendLayer(tile, waysLayer)
	return tile, nil
}

// zigzagDelta encodes one geometry-command parameter: the integer
// pixel delta from the previous position (callers truncate positions
// with int32()), zigzag-varint coded per the protobuf/MVT convention.
func zigzagDelta(cur, prev int32) uint64 {
	return protowire.EncodeZigZag(int64(cur - prev))
}

func commandInteger(id, count uint32) uint32 {
	return (id << 3) | count
}

func encodePointGeometry(x, y float64) []uint32 {
	ix, iy := int32(x), int32(y)
	return []uint32{
		commandInteger(cmdMoveTo, 1),
		uint32(zigzagDelta(ix, 0)),
		uint32(zigzagDelta(iy, 0)),
	}
}

func encodeLineGeometry(pts []pixel) []uint32 {
	if len(pts) < 2 {
		return nil
	}
	var geom []uint32
	px, py := int32(0), int32(0)
	x0, y0 := int32(pts[0].x), int32(pts[0].y)
	geom = append(geom, commandInteger(cmdMoveTo, 1), uint32(zigzagDelta(x0, px)), uint32(zigzagDelta(y0, py)))
	px, py = x0, y0

	geom = append(geom, commandInteger(cmdLineTo, uint32(len(pts)-1)))
	for _, p := range pts[1:] {
		x, y := int32(p.x), int32(p.y)
		geom = append(geom, uint32(zigzagDelta(x, px)), uint32(zigzagDelta(y, py)))
		px, py = x, y
	}
	return geom
}

// encodePolygonGeometry assumes ring is closed (first == last, per
// isClosedRing) and omits the duplicate final point, terminating with
// ClosePath instead, per the MVT ring encoding convention.
func encodePolygonGeometry(ring []pixel) []uint32 {
	if len(ring) < 4 {
		return nil
	}
	pts := ring[:len(ring)-1]
	var geom []uint32
	px, py := int32(0), int32(0)
	x0, y0 := int32(pts[0].x), int32(pts[0].y)
	geom = append(geom, commandInteger(cmdMoveTo, 1), uint32(zigzagDelta(x0, px)), uint32(zigzagDelta(y0, py)))
	px, py = x0, y0

	geom = append(geom, commandInteger(cmdLineTo, uint32(len(pts)-1)))
	for _, p := range pts[1:] {
		x, y := int32(p.x), int32(p.y)
		geom = append(geom, uint32(zigzagDelta(x, px)), uint32(zigzagDelta(y, py)))
		px, py = x, y
	}
	geom = append(geom, commandInteger(cmdClosePath, 1))
	return geom
}

// mvtFeature is one Feature message's fields, buffered before its
// parent Layer is serialized so keys/values can be deduplicated first.
type mvtFeature struct {
	id       uint64
	tagIdxs  []uint32
	geomType uint32
	geometry []uint32
}

// layerBuilder accumulates features for one named layer, interning tag
// keys/values into the layer-local dictionaries the MVT spec requires.
type layerBuilder struct {
	name     string
	keys     []string
	keyIdx   map[string]uint32
	values   []string
	valueIdx map[string]uint32
	features []mvtFeature
}

func newLayerBuilder(name string) *layerBuilder {
	return &layerBuilder{name: name, keyIdx: make(map[string]uint32), valueIdx: make(map[string]uint32)}
}

func (lb *layerBuilder) internKey(k string) uint32 {
	if i, ok := lb.keyIdx[k]; ok {
		return i
	}
	i := uint32(len(lb.keys))
	lb.keys = append(lb.keys, k)
	lb.keyIdx[k] = i
	return i
}

func (lb *layerBuilder) internValue(v string) uint32 {
	if i, ok := lb.valueIdx[v]; ok {
		return i
	}
	i := uint32(len(lb.values))
	lb.values = append(lb.values, v)
	lb.valueIdx[v] = i
	return i
}

func (lb *layerBuilder) addFeature(id int64, tags map[string]string, geomType uint32, geometry []uint32) {
	tagIdxs := make([]uint32, 0, len(tags)*2)
	for k, v := range tags {
		tagIdxs = append(tagIdxs, lb.internKey(k), lb.internValue(v))
	}
	lb.features = append(lb.features, mvtFeature{id: uint64(id), tagIdxs: tagIdxs, geomType: geomType, geometry: geometry})
}

// Tile message field numbers (MVT 2.x spec).
const tileFieldLayers = 3

// Layer message field numbers.
const (
	layerFieldVersion  = 15
	layerFieldName     = 1
	layerFieldFeatures = 2
	layerFieldKeys     = 3
	layerFieldValues   = 4
	layerFieldExtent   = 5
)

// Feature message field numbers.
const (
	featureFieldID       = 1
	featureFieldTags     = 2
	featureFieldType     = 3
	featureFieldGeometry = 4
)

// Value message field numbers (string_value only; every osmix tag
// value is a string).
const valueFieldString = 1

func appendLayer(dst []byte, lb *layerBuilder) []byte {
	var body []byte
	body = protowire.AppendTag(body, layerFieldVersion, protowire.VarintType)
	body = protowire.AppendVarint(body, mvtVersion)
	body = protowire.AppendTag(body, layerFieldName, protowire.BytesType)
	body = protowire.AppendBytes(body, []byte(lb.name))

	for _, f := range lb.features {
		body = protowire.AppendTag(body, layerFieldFeatures, protowire.BytesType)
		body = protowire.AppendBytes(body, encodeFeature(f))
	}
	for _, k := range lb.keys {
		body = protowire.AppendTag(body, layerFieldKeys, protowire.BytesType)
		body = protowire.AppendBytes(body, []byte(k))
	}
	for _, v := range lb.values {
		body = protowire.AppendTag(body, layerFieldValues, protowire.BytesType)
		body = protowire.AppendBytes(body, encodeStringValue(v))
	}
	body = protowire.AppendTag(body, layerFieldExtent, protowire.VarintType)
	body = protowire.AppendVarint(body, mvtExtent)

	dst = protowire.AppendTag(dst, tileFieldLayers, protowire.BytesType)
	dst = protowire.AppendBytes(dst, body)
	return dst
}

func encodeFeature(f mvtFeature) []byte {
	var b []byte
	b = protowire.AppendTag(b, featureFieldID, protowire.VarintType)
	b = protowire.AppendVarint(b, f.id)

	if len(f.tagIdxs) > 0 {
		var packed []byte
		for _, t := range f.tagIdxs {
			packed = protowire.AppendVarint(packed, uint64(t))
		}
		b = protowire.AppendTag(b, featureFieldTags, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}

	b = protowire.AppendTag(b, featureFieldType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(f.geomType))

	var geomPacked []byte
	for _, g := range f.geometry {
		geomPacked = protowire.AppendVarint(geomPacked, uint64(g))
	}
	b = protowire.AppendTag(b, featureFieldGeometry, protowire.BytesType)
	b = protowire.AppendBytes(b, geomPacked)
	return b
}

func encodeStringValue(s string) []byte {
	var b []byte
	b = protowire.AppendTag(b, valueFieldString, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte(s))
	return b
}
