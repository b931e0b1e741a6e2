package osmixpb

import (
	"context"

	"google.golang.org/grpc"
)

// QueryServiceServer is the C14 QueryService contract (§4.12).
type QueryServiceServer interface {
	Get(context.Context, *GetRequest) (*GetResponse, error)
	SearchTag(context.Context, *SearchTagRequest) (*SearchTagResponse, error)
	NodesInBBox(context.Context, *BBoxRequest) (*NodesInBBoxResponse, error)
	WaysInBBox(context.Context, *BBoxRequest) (*WaysInBBoxResponse, error)
	Nearest(context.Context, *NearestRequest) (*NearestResponse, error)
	Route(context.Context, *RouteRequest) (*RouteResponse, error)
	ToGeoJSON(context.Context, *ToGeoJSONRequest) (*ToGeoJSONResponse, error)
}

// ChangesetServiceServer is the C14 ChangesetService contract.
type ChangesetServiceServer interface {
	CreateNode(context.Context, *CreateNodeRequest) (*IDResponse, error)
	ModifyNode(context.Context, *ModifyNodeRequest) (*StatusResponse, error)
	CreateWay(context.Context, *CreateWayRequest) (*IDResponse, error)
	ModifyWay(context.Context, *ModifyWayRequest) (*StatusResponse, error)
	CreateRelation(context.Context, *CreateRelationRequest) (*IDResponse, error)
	ModifyRelation(context.Context, *ModifyRelationRequest) (*StatusResponse, error)
	Delete(context.Context, *DeleteRequest) (*StatusResponse, error)
	DeduplicateNodes(context.Context, *DeduplicateNodesRequest) (*DedupResponse, error)
	DeduplicateWays(context.Context, *DeduplicateWaysRequest) (*DedupResponse, error)
	CreateIntersections(context.Context, *CreateIntersectionsRequest) (*CreateIntersectionsResponse, error)
	Apply(context.Context, *ApplyRequest) (*StatusResponse, error)
	ToOSC(context.Context, *ToOSCRequest) (*ToOSCResponse, error)
}

// TileServiceServer is the C14 TileService contract.
type TileServiceServer interface {
	GetRasterTile(context.Context, *TileRequest) (*TileResponse, error)
	GetVectorTile(context.Context, *TileRequest) (*TileResponse, error)
}

var queryServiceDesc = grpc.ServiceDesc{
	ServiceName: "osmixpb.QueryService",
	HandlerType: (*QueryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("Get", func(s any, ctx context.Context, in *GetRequest) (any, error) {
			return s.(QueryServiceServer).Get(ctx, in)
		}),
		unaryMethod("SearchTag", func(s any, ctx context.Context, in *SearchTagRequest) (any, error) {
			return s.(QueryServiceServer).SearchTag(ctx, in)
		}),
		unaryMethod("NodesInBBox", func(s any, ctx context.Context, in *BBoxRequest) (any, error) {
			return s.(QueryServiceServer).NodesInBBox(ctx, in)
		}),
		unaryMethod("WaysInBBox", func(s any, ctx context.Context, in *BBoxRequest) (any, error) {
			return s.(QueryServiceServer).WaysInBBox(ctx, in)
		}),
		unaryMethod("Nearest", func(s any, ctx context.Context, in *NearestRequest) (any, error) {
			return s.(QueryServiceServer).Nearest(ctx, in)
		}),
		unaryMethod("Route", func(s any, ctx context.Context, in *RouteRequest) (any, error) {
			return s.(QueryServiceServer).Route(ctx, in)
		}),
		unaryMethod("ToGeoJSON", func(s any, ctx context.Context, in *ToGeoJSONRequest) (any, error) {
			return s.(QueryServiceServer).ToGeoJSON(ctx, in)
		}),
	},
	Metadata: "osmixpb/query.proto",
}

var changesetServiceDesc = grpc.ServiceDesc{
	ServiceName: "osmixpb.ChangesetService",
	HandlerType: (*ChangesetServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("CreateNode", func(s any, ctx context.Context, in *CreateNodeRequest) (any, error) {
			return s.(ChangesetServiceServer).CreateNode(ctx, in)
		}),
		unaryMethod("ModifyNode", func(s any, ctx context.Context, in *ModifyNodeRequest) (any, error) {
			return s.(ChangesetServiceServer).ModifyNode(ctx, in)
		}),
		unaryMethod("CreateWay", func(s any, ctx context.Context, in *CreateWayRequest) (any, error) {
			return s.(ChangesetServiceServer).CreateWay(ctx, in)
		}),
		unaryMethod("ModifyWay", func(s any, ctx context.Context, in *ModifyWayRequest) (any, error) {
			return s.(ChangesetServiceServer).ModifyWay(ctx, in)
		}),
		unaryMethod("CreateRelation", func(s any, ctx context.Context, in *CreateRelationRequest) (any, error) {
			return s.(ChangesetServiceServer).CreateRelation(ctx, in)
		}),
		unaryMethod("ModifyRelation", func(s any, ctx context.Context, in *ModifyRelationRequest) (any, error) {
			return s.(ChangesetServiceServer).ModifyRelation(ctx, in)
		}),
		unaryMethod("Delete", func(s any, ctx context.Context, in *DeleteRequest) (any, error) {
			return s.(ChangesetServiceServer).Delete(ctx, in)
		}),
		unaryMethod("DeduplicateNodes", func(s any, ctx context.Context, in *DeduplicateNodesRequest) (any, error) {
			return s.(ChangesetServiceServer).DeduplicateNodes(ctx, in)
		}),
		unaryMethod("DeduplicateWays", func(s any, ctx context.Context, in *DeduplicateWaysRequest) (any, error) {
			return s.(ChangesetServiceServer).DeduplicateWays(ctx, in)
		}),
		unaryMethod("CreateIntersections", func(s any, ctx context.Context, in *CreateIntersectionsRequest) (any, error) {
			return s.(ChangesetServiceServer).CreateIntersections(ctx, in)
		}),
		unaryMethod("Apply", func(s any, ctx context.Context, in *ApplyRequest) (any, error) {
			return s.(ChangesetServiceServer).Apply(ctx, in)
		}),
		unaryMethod("ToOSC", func(s any, ctx context.Context, in *ToOSCRequest) (any, error) {
			return s.(ChangesetServiceServer).ToOSC(ctx, in)
		}),
	},
	Metadata: "osmixpb/changeset.proto",
}

var tileServiceDesc = grpc.ServiceDesc{
	ServiceName: "osmixpb.TileService",
	HandlerType: (*TileServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("GetRasterTile", func(s any, ctx context.Context, in *TileRequest) (any, error) {
			return s.(TileServiceServer).GetRasterTile(ctx, in)
		}),
		unaryMethod("GetVectorTile", func(s any, ctx context.Context, in *TileRequest) (any, error) {
			return s.(TileServiceServer).GetVectorTile(ctx, in)
		}),
	},
	Metadata: "osmixpb/tile.proto",
}

// reqPtr is satisfied by *T for every request message T defined in
// this package, so unaryMethod can allocate a fresh *T (new(T)) purely
// from the handler function literal's parameter type, the same
// pointer-receiver-via-type-parameter pattern the standard library
// uses wherever a generic function needs to construct a concrete
// pointer type it was only handed as a type argument.
type reqPtr[T any] interface {
	*T
	wireMessage
}

// unaryMethod builds a grpc.MethodDesc for a unary RPC whose request
// type is T, decoding into a fresh *T via the registered Codec before
// calling fn. This is the one piece of boilerplate protoc-gen-go-grpc
// would normally emit once per method; collapsing it to a generic
// here is what lets every ServiceDesc above stay a flat method list.
func unaryMethod[T any, PT reqPtr[T]](name string, fn func(srv any, ctx context.Context, in PT) (any, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := PT(new(T))
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return fn(srv, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: name}
			handler := func(ctx context.Context, req any) (any, error) {
				return fn(srv, ctx, req.(PT))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// RegisterQueryServiceServer registers srv against s.
func RegisterQueryServiceServer(s *grpc.Server, srv QueryServiceServer) {
	s.RegisterService(&queryServiceDesc, srv)
}

// RegisterChangesetServiceServer registers srv against s.
func RegisterChangesetServiceServer(s *grpc.Server, srv ChangesetServiceServer) {
	s.RegisterService(&changesetServiceDesc, srv)
}

// RegisterTileServiceServer registers srv against s.
func RegisterTileServiceServer(s *grpc.Server, srv TileServiceServer) {
	s.RegisterService(&tileServiceDesc, srv)
}
