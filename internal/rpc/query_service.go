// Package rpc implements the RPC Front-End (C14, §4.12): three gRPC
// services (QueryService, ChangesetService, TileService) serving a
// query.Engine/changeset.Changeset/entitystore.Store the same way
// platform/store-core/cmd/store-server wires its kvstore/logstore
// services — small services each holding a domain handle, registered
// against a shared *grpc.Server alongside the standard health
// endpoint.
package rpc

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/nucleus/osmix/gen/go/osmixpb"
	"github.com/nucleus/osmix/pkg/geo"
	"github.com/nucleus/osmix/pkg/query"
)

// QueryServer implements osmixpb.QueryServiceServer over one
// query.Engine.
type QueryServer struct {
	osmixpb.QueryServiceServer
	engine *query.Engine
}

// NewQueryServer returns a QueryServer serving engine.
func NewQueryServer(engine *query.Engine) *QueryServer {
	return &QueryServer{engine: engine}
}

func (s *QueryServer) Get(ctx context.Context, req *osmixpb.GetRequest) (*osmixpb.GetResponse, error) {
	ent, ok := s.engine.Get(query.Kind(req.Kind), req.ID)
	if !ok {
		return &osmixpb.GetResponse{Found: false}, nil
	}
	resp := &osmixpb.GetResponse{
		Found: true,
		Kind:  uint32(ent.Kind),
		ID:    ent.ID,
		Lon:   ent.Lon,
		Lat:   ent.Lat,
		Refs:  ent.Refs,
	}
	for k, v := range ent.Tags {
		resp.TagKeys = append(resp.TagKeys, k)
		resp.TagVals = append(resp.TagVals, v)
	}
	return resp, nil
}

func (s *QueryServer) SearchTag(ctx context.Context, req *osmixpb.SearchTagRequest) (*osmixpb.SearchTagResponse, error) {
	var value *string
	if req.HasValue {
		value = &req.Value
	}
	results := s.engine.SearchTag(req.Key, value)
	resp := &osmixpb.SearchTagResponse{
		Kinds:   make([]uint32, len(results)),
		Indexes: make([]int64, len(results)),
	}
	for i, r := range results {
		resp.Kinds[i] = uint32(r.Kind)
		resp.Indexes[i] = int64(r.Index)
	}
	return resp, nil
}

func (s *QueryServer) NodesInBBox(ctx context.Context, req *osmixpb.BBoxRequest) (*osmixpb.NodesInBBoxResponse, error) {
	view := s.engine.NodesInBBox(bboxOf(req))
	return &osmixpb.NodesInBBoxResponse{IDs: view.IDs, Positions: view.Positions}, nil
}

func (s *QueryServer) WaysInBBox(ctx context.Context, req *osmixpb.BBoxRequest) (*osmixpb.WaysInBBoxResponse, error) {
	view := s.engine.WaysInBBox(bboxOf(req))
	starts := make([]int64, len(view.StartIndices))
	for i, v := range view.StartIndices {
		starts[i] = int64(v)
	}
	return &osmixpb.WaysInBBoxResponse{IDs: view.IDs, Positions: view.Positions, StartIndices: starts}, nil
}

func (s *QueryServer) Nearest(ctx context.Context, req *osmixpb.NearestRequest) (*osmixpb.NearestResponse, error) {
	idx, dist, ok := s.engine.NearestRoutableNode(req.Lon, req.Lat, req.MaxMeters)
	return &osmixpb.NearestResponse{Found: ok, NodeIndex: int64(idx), DistanceM: dist}, nil
}

func (s *QueryServer) Route(ctx context.Context, req *osmixpb.RouteRequest) (*osmixpb.RouteResponse, error) {
	result, err := s.engine.Route(int(req.FromNodeIndex), int(req.ToNodeIndex), query.RouteOptions{})
	if err != nil {
		return &osmixpb.RouteResponse{Found: false, Error: err.Error()}, nil
	}
	resp := &osmixpb.RouteResponse{Found: true, DistanceM: result.DistanceM}
	resp.NodeIndexes = make([]int64, len(result.TurnPoints))
	for i, p := range result.TurnPoints {
		resp.NodeIndexes[i] = int64(p)
	}
	return resp, nil
}

func (s *QueryServer) ToGeoJSON(ctx context.Context, req *osmixpb.ToGeoJSONRequest) (*osmixpb.ToGeoJSONResponse, error) {
	feature, err := s.engine.ToGeoJSONFeature(query.Kind(req.Kind), req.ID)
	if err != nil {
		return nil, status.Errorf(codes.NotFound, "to_geojson: %v", err)
	}
	b, err := json.Marshal(feature)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "to_geojson: encode: %v", err)
	}
	return &osmixpb.ToGeoJSONResponse{FeatureJSON: b}, nil
}

func bboxOf(req *osmixpb.BBoxRequest) geo.BBox {
	return geo.BBox{MinLon: req.MinLon, MinLat: req.MinLat, MaxLon: req.MaxLon, MaxLat: req.MaxLat}
}
