package osmixpb

// Field numbers below are this package's only "schema": there is no
// .proto source, so each message's Marshal/Unmarshal pair is the
// authority on its own wire shape. Kept stable once assigned.

// --- QueryService ---

type GetRequest struct {
	Kind uint32 // 1: entitystore.MemberKind
	ID   int64  // 2
}

func (m *GetRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendUint32(b, 1, m.Kind)
	b = appendInt64(b, 2, m.ID)
	return b, nil
}

func (m *GetRequest) Unmarshal(b []byte) error {
	fm, err := parseFields(b)
	if err != nil {
		return err
	}
	m.Kind = fm.uint32(1)
	m.ID = fm.int64(2)
	return nil
}

type GetResponse struct {
	Found   bool
	Kind    uint32
	ID      int64
	Lon     float64
	Lat     float64
	Refs    []int64
	TagKeys []string
	TagVals []string
}

func (m *GetResponse) Marshal() ([]byte, error) {
	var b []byte
	b = appendBool(b, 1, m.Found)
	b = appendUint32(b, 2, m.Kind)
	b = appendInt64(b, 3, m.ID)
	b = appendFloat64(b, 4, m.Lon)
	b = appendFloat64(b, 5, m.Lat)
	b = appendInt64Slice(b, 6, m.Refs)
	b = appendStringSlice(b, 7, m.TagKeys)
	b = appendStringSlice(b, 8, m.TagVals)
	return b, nil
}

func (m *GetResponse) Unmarshal(b []byte) error {
	fm, err := parseFields(b)
	if err != nil {
		return err
	}
	m.Found = fm.boolean(1)
	m.Kind = fm.uint32(2)
	m.ID = fm.int64(3)
	m.Lon = fm.float64(4)
	m.Lat = fm.float64(5)
	m.Refs = fm.int64Slice(6)
	m.TagKeys = fm.strSlice(7)
	m.TagVals = fm.strSlice(8)
	return nil
}

type SearchTagRequest struct {
	Key      string
	Value    string
	HasValue bool
}

func (m *SearchTagRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.Key)
	b = appendString(b, 2, m.Value)
	b = appendBool(b, 3, m.HasValue)
	return b, nil
}

func (m *SearchTagRequest) Unmarshal(b []byte) error {
	fm, err := parseFields(b)
	if err != nil {
		return err
	}
	m.Key = fm.str(1)
	m.Value = fm.str(2)
	m.HasValue = fm.boolean(3)
	return nil
}

type SearchTagResponse struct {
	Kinds   []uint32
	Indexes []int64
}

func (m *SearchTagResponse) Marshal() ([]byte, error) {
	var b []byte
	for _, k := range m.Kinds {
		b = appendUint32(b, 1, k)
	}
	b = appendInt64Slice(b, 2, m.Indexes)
	return b, nil
}

func (m *SearchTagResponse) Unmarshal(b []byte) error {
	fm, err := parseFields(b)
	if err != nil {
		return err
	}
	kinds := fm.int64Slice(1)
	m.Kinds = make([]uint32, len(kinds))
	for i, k := range kinds {
		m.Kinds[i] = uint32(k)
	}
	m.Indexes = fm.int64Slice(2)
	return nil
}

type BBoxRequest struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

func (m *BBoxRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendFloat64(b, 1, m.MinLon)
	b = appendFloat64(b, 2, m.MinLat)
	b = appendFloat64(b, 3, m.MaxLon)
	b = appendFloat64(b, 4, m.MaxLat)
	return b, nil
}

func (m *BBoxRequest) Unmarshal(b []byte) error {
	fm, err := parseFields(b)
	if err != nil {
		return err
	}
	m.MinLon = fm.float64(1)
	m.MinLat = fm.float64(2)
	m.MaxLon = fm.float64(3)
	m.MaxLat = fm.float64(4)
	return nil
}

type NodesInBBoxResponse struct {
	IDs       []int64
	Positions []float64
}

func (m *NodesInBBoxResponse) Marshal() ([]byte, error) {
	var b []byte
	b = appendInt64Slice(b, 1, m.IDs)
	b = appendFloat64Slice(b, 2, m.Positions)
	return b, nil
}

func (m *NodesInBBoxResponse) Unmarshal(b []byte) error {
	fm, err := parseFields(b)
	if err != nil {
		return err
	}
	m.IDs = fm.int64Slice(1)
	m.Positions = fm.float64Slice(2)
	return nil
}

type WaysInBBoxResponse struct {
	IDs          []int64
	Positions    []float64
	StartIndices []int64
}

func (m *WaysInBBoxResponse) Marshal() ([]byte, error) {
	var b []byte
	b = appendInt64Slice(b, 1, m.IDs)
	b = appendFloat64Slice(b, 2, m.Positions)
	b = appendInt64Slice(b, 3, m.StartIndices)
	return b, nil
}

func (m *WaysInBBoxResponse) Unmarshal(b []byte) error {
	fm, err := parseFields(b)
	if err != nil {
		return err
	}
	m.IDs = fm.int64Slice(1)
	m.Positions = fm.float64Slice(2)
	m.StartIndices = fm.int64Slice(3)
	return nil
}

type NearestRequest struct {
	Lon, Lat, MaxMeters float64
}

func (m *NearestRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendFloat64(b, 1, m.Lon)
	b = appendFloat64(b, 2, m.Lat)
	b = appendFloat64(b, 3, m.MaxMeters)
	return b, nil
}

func (m *NearestRequest) Unmarshal(b []byte) error {
	fm, err := parseFields(b)
	if err != nil {
		return err
	}
	m.Lon = fm.float64(1)
	m.Lat = fm.float64(2)
	m.MaxMeters = fm.float64(3)
	return nil
}

type NearestResponse struct {
	Found       bool
	NodeIndex   int64
	DistanceM   float64
}

func (m *NearestResponse) Marshal() ([]byte, error) {
	var b []byte
	b = appendBool(b, 1, m.Found)
	b = appendInt64(b, 2, m.NodeIndex)
	b = appendFloat64(b, 3, m.DistanceM)
	return b, nil
}

func (m *NearestResponse) Unmarshal(b []byte) error {
	fm, err := parseFields(b)
	if err != nil {
		return err
	}
	m.Found = fm.boolean(1)
	m.NodeIndex = fm.int64(2)
	m.DistanceM = fm.float64(3)
	return nil
}

type RouteRequest struct {
	FromNodeIndex, ToNodeIndex int64
}

func (m *RouteRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendInt64(b, 1, m.FromNodeIndex)
	b = appendInt64(b, 2, m.ToNodeIndex)
	return b, nil
}

func (m *RouteRequest) Unmarshal(b []byte) error {
	fm, err := parseFields(b)
	if err != nil {
		return err
	}
	m.FromNodeIndex = fm.int64(1)
	m.ToNodeIndex = fm.int64(2)
	return nil
}

type RouteResponse struct {
	Found         bool
	NodeIndexes   []int64
	DistanceM     float64
	Error         string
}

func (m *RouteResponse) Marshal() ([]byte, error) {
	var b []byte
	b = appendBool(b, 1, m.Found)
	b = appendInt64Slice(b, 2, m.NodeIndexes)
	b = appendFloat64(b, 3, m.DistanceM)
	b = appendString(b, 4, m.Error)
	return b, nil
}

func (m *RouteResponse) Unmarshal(b []byte) error {
	fm, err := parseFields(b)
	if err != nil {
		return err
	}
	m.Found = fm.boolean(1)
	m.NodeIndexes = fm.int64Slice(2)
	m.DistanceM = fm.float64(3)
	m.Error = fm.str(4)
	return nil
}

type ToGeoJSONRequest struct {
	Kind uint32
	ID   int64
}

func (m *ToGeoJSONRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendUint32(b, 1, m.Kind)
	b = appendInt64(b, 2, m.ID)
	return b, nil
}

func (m *ToGeoJSONRequest) Unmarshal(b []byte) error {
	fm, err := parseFields(b)
	if err != nil {
		return err
	}
	m.Kind = fm.uint32(1)
	m.ID = fm.int64(2)
	return nil
}

// ToGeoJSONResponse carries the feature pre-encoded as GeoJSON text
// (pkg/geojson already owns that encoding; re-deriving an equivalent
// protobuf geometry schema here would just be a second, redundant
// geometry encoder alongside it).
type ToGeoJSONResponse struct {
	FeatureJSON []byte
}

func (m *ToGeoJSONResponse) Marshal() ([]byte, error) {
	var b []byte
	b = appendBytes(b, 1, m.FeatureJSON)
	return b, nil
}

func (m *ToGeoJSONResponse) Unmarshal(b []byte) error {
	fm, err := parseFields(b)
	if err != nil {
		return err
	}
	m.FeatureJSON = fm.bytes(1)
	return nil
}

// --- ChangesetService ---

type CreateNodeRequest struct {
	Lon, Lat float64
	TagKeys  []string
	TagVals  []string
}

func (m *CreateNodeRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendFloat64(b, 1, m.Lon)
	b = appendFloat64(b, 2, m.Lat)
	b = appendStringSlice(b, 3, m.TagKeys)
	b = appendStringSlice(b, 4, m.TagVals)
	return b, nil
}

func (m *CreateNodeRequest) Unmarshal(b []byte) error {
	fm, err := parseFields(b)
	if err != nil {
		return err
	}
	m.Lon = fm.float64(1)
	m.Lat = fm.float64(2)
	m.TagKeys = fm.strSlice(3)
	m.TagVals = fm.strSlice(4)
	return nil
}

type IDResponse struct {
	ID  int64
	Err string
}

func (m *IDResponse) Marshal() ([]byte, error) {
	var b []byte
	b = appendInt64(b, 1, m.ID)
	b = appendString(b, 2, m.Err)
	return b, nil
}

func (m *IDResponse) Unmarshal(b []byte) error {
	fm, err := parseFields(b)
	if err != nil {
		return err
	}
	m.ID = fm.int64(1)
	m.Err = fm.str(2)
	return nil
}

type ModifyNodeRequest struct {
	ID       int64
	Lon, Lat float64
	TagKeys  []string
	TagVals  []string
}

func (m *ModifyNodeRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendInt64(b, 1, m.ID)
	b = appendFloat64(b, 2, m.Lon)
	b = appendFloat64(b, 3, m.Lat)
	b = appendStringSlice(b, 4, m.TagKeys)
	b = appendStringSlice(b, 5, m.TagVals)
	return b, nil
}

func (m *ModifyNodeRequest) Unmarshal(b []byte) error {
	fm, err := parseFields(b)
	if err != nil {
		return err
	}
	m.ID = fm.int64(1)
	m.Lon = fm.float64(2)
	m.Lat = fm.float64(3)
	m.TagKeys = fm.strSlice(4)
	m.TagVals = fm.strSlice(5)
	return nil
}

type CreateWayRequest struct {
	Refs    []int64
	TagKeys []string
	TagVals []string
}

func (m *CreateWayRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendInt64Slice(b, 1, m.Refs)
	b = appendStringSlice(b, 2, m.TagKeys)
	b = appendStringSlice(b, 3, m.TagVals)
	return b, nil
}

func (m *CreateWayRequest) Unmarshal(b []byte) error {
	fm, err := parseFields(b)
	if err != nil {
		return err
	}
	m.Refs = fm.int64Slice(1)
	m.TagKeys = fm.strSlice(2)
	m.TagVals = fm.strSlice(3)
	return nil
}

type ModifyWayRequest struct {
	ID      int64
	Refs    []int64
	TagKeys []string
	TagVals []string
}

func (m *ModifyWayRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendInt64(b, 1, m.ID)
	b = appendInt64Slice(b, 2, m.Refs)
	b = appendStringSlice(b, 3, m.TagKeys)
	b = appendStringSlice(b, 4, m.TagVals)
	return b, nil
}

func (m *ModifyWayRequest) Unmarshal(b []byte) error {
	fm, err := parseFields(b)
	if err != nil {
		return err
	}
	m.ID = fm.int64(1)
	m.Refs = fm.int64Slice(2)
	m.TagKeys = fm.strSlice(3)
	m.TagVals = fm.strSlice(4)
	return nil
}

// CreateRelationRequest's three member slices are parallel arrays
// (MemberKinds[i]/MemberRefs[i]/MemberRoles[i] describe member i),
// since this package's wire format has no nested-message support.
type CreateRelationRequest struct {
	MemberKinds []int64
	MemberRefs  []int64
	MemberRoles []string
	TagKeys     []string
	TagVals     []string
}

func (m *CreateRelationRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendInt64Slice(b, 1, m.MemberKinds)
	b = appendInt64Slice(b, 2, m.MemberRefs)
	b = appendStringSlice(b, 3, m.MemberRoles)
	b = appendStringSlice(b, 4, m.TagKeys)
	b = appendStringSlice(b, 5, m.TagVals)
	return b, nil
}

func (m *CreateRelationRequest) Unmarshal(b []byte) error {
	fm, err := parseFields(b)
	if err != nil {
		return err
	}
	m.MemberKinds = fm.int64Slice(1)
	m.MemberRefs = fm.int64Slice(2)
	m.MemberRoles = fm.strSlice(3)
	m.TagKeys = fm.strSlice(4)
	m.TagVals = fm.strSlice(5)
	return nil
}

type ModifyRelationRequest struct {
	ID          int64
	MemberKinds []int64
	MemberRefs  []int64
	MemberRoles []string
	TagKeys     []string
	TagVals     []string
}

func (m *ModifyRelationRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendInt64(b, 1, m.ID)
	b = appendInt64Slice(b, 2, m.MemberKinds)
	b = appendInt64Slice(b, 3, m.MemberRefs)
	b = appendStringSlice(b, 4, m.MemberRoles)
	b = appendStringSlice(b, 5, m.TagKeys)
	b = appendStringSlice(b, 6, m.TagVals)
	return b, nil
}

func (m *ModifyRelationRequest) Unmarshal(b []byte) error {
	fm, err := parseFields(b)
	if err != nil {
		return err
	}
	m.ID = fm.int64(1)
	m.MemberKinds = fm.int64Slice(2)
	m.MemberRefs = fm.int64Slice(3)
	m.MemberRoles = fm.strSlice(4)
	m.TagKeys = fm.strSlice(5)
	m.TagVals = fm.strSlice(6)
	return nil
}

type DeleteRequest struct {
	Kind uint32
	ID   int64
}

func (m *DeleteRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendUint32(b, 1, m.Kind)
	b = appendInt64(b, 2, m.ID)
	return b, nil
}

func (m *DeleteRequest) Unmarshal(b []byte) error {
	fm, err := parseFields(b)
	if err != nil {
		return err
	}
	m.Kind = fm.uint32(1)
	m.ID = fm.int64(2)
	return nil
}

type StatusResponse struct {
	OK  bool
	Err string
}

func (m *StatusResponse) Marshal() ([]byte, error) {
	var b []byte
	b = appendBool(b, 1, m.OK)
	b = appendString(b, 2, m.Err)
	return b, nil
}

func (m *StatusResponse) Unmarshal(b []byte) error {
	fm, err := parseFields(b)
	if err != nil {
		return err
	}
	m.OK = fm.boolean(1)
	m.Err = fm.str(2)
	return nil
}

type DeduplicateNodesRequest struct {
	NodeIDs []int64
}

func (m *DeduplicateNodesRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendInt64Slice(b, 1, m.NodeIDs)
	return b, nil
}

func (m *DeduplicateNodesRequest) Unmarshal(b []byte) error {
	fm, err := parseFields(b)
	if err != nil {
		return err
	}
	m.NodeIDs = fm.int64Slice(1)
	return nil
}

type DeduplicateWaysRequest struct {
	WayIDs []int64
}

func (m *DeduplicateWaysRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendInt64Slice(b, 1, m.WayIDs)
	return b, nil
}

func (m *DeduplicateWaysRequest) Unmarshal(b []byte) error {
	fm, err := parseFields(b)
	if err != nil {
		return err
	}
	m.WayIDs = fm.int64Slice(1)
	return nil
}

type DedupResponse struct {
	MergedCount int64
	Err         string
}

func (m *DedupResponse) Marshal() ([]byte, error) {
	var b []byte
	b = appendInt64(b, 1, m.MergedCount)
	b = appendString(b, 2, m.Err)
	return b, nil
}

func (m *DedupResponse) Unmarshal(b []byte) error {
	fm, err := parseFields(b)
	if err != nil {
		return err
	}
	m.MergedCount = fm.int64(1)
	m.Err = fm.str(2)
	return nil
}

type CreateIntersectionsRequest struct {
	WayIDs []int64
}

func (m *CreateIntersectionsRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendInt64Slice(b, 1, m.WayIDs)
	return b, nil
}

func (m *CreateIntersectionsRequest) Unmarshal(b []byte) error {
	fm, err := parseFields(b)
	if err != nil {
		return err
	}
	m.WayIDs = fm.int64Slice(1)
	return nil
}

type CreateIntersectionsResponse struct {
	NodesCreated int64
	Err          string
}

func (m *CreateIntersectionsResponse) Marshal() ([]byte, error) {
	var b []byte
	b = appendInt64(b, 1, m.NodesCreated)
	b = appendString(b, 3, m.Err)
	return b, nil
}

func (m *CreateIntersectionsResponse) Unmarshal(b []byte) error {
	fm, err := parseFields(b)
	if err != nil {
		return err
	}
	m.NodesCreated = fm.int64(1)
	m.Err = fm.str(3)
	return nil
}

type ApplyRequest struct{}

func (m *ApplyRequest) Marshal() ([]byte, error) { return nil, nil }
func (m *ApplyRequest) Unmarshal(b []byte) error  { return nil }

type ToOSCRequest struct {
	Augmented bool
}

func (m *ToOSCRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendBool(b, 1, m.Augmented)
	return b, nil
}

func (m *ToOSCRequest) Unmarshal(b []byte) error {
	fm, err := parseFields(b)
	if err != nil {
		return err
	}
	m.Augmented = fm.boolean(1)
	return nil
}

type ToOSCResponse struct {
	XML []byte
	Err string
}

func (m *ToOSCResponse) Marshal() ([]byte, error) {
	var b []byte
	b = appendBytes(b, 1, m.XML)
	b = appendString(b, 2, m.Err)
	return b, nil
}

func (m *ToOSCResponse) Unmarshal(b []byte) error {
	fm, err := parseFields(b)
	if err != nil {
		return err
	}
	m.XML = fm.bytes(1)
	m.Err = fm.str(2)
	return nil
}

// --- TileService ---

type TileRequest struct {
	Z, X, Y uint32
	Dataset string
}

func (m *TileRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendUint32(b, 1, m.Z)
	b = appendUint32(b, 2, m.X)
	b = appendUint32(b, 3, m.Y)
	b = appendString(b, 4, m.Dataset)
	return b, nil
}

func (m *TileRequest) Unmarshal(b []byte) error {
	fm, err := parseFields(b)
	if err != nil {
		return err
	}
	m.Z = fm.uint32(1)
	m.X = fm.uint32(2)
	m.Y = fm.uint32(3)
	m.Dataset = fm.str(4)
	return nil
}

type TileResponse struct {
	Data []byte
	Err  string
}

func (m *TileResponse) Marshal() ([]byte, error) {
	var b []byte
	b = appendBytes(b, 1, m.Data)
	b = appendString(b, 2, m.Err)
	return b, nil
}

func (m *TileResponse) Unmarshal(b []byte) error {
	fm, err := parseFields(b)
	if err != nil {
		return err
	}
	m.Data = fm.bytes(1)
	m.Err = fm.str(2)
	return nil
}
