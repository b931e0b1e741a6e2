package rpc

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/nucleus/osmix/gen/go/osmixpb"
	"github.com/nucleus/osmix/pkg/entitystore"
	"github.com/nucleus/osmix/pkg/tile"
)

// TileServer implements osmixpb.TileServiceServer over one
// entitystore.Store.
type TileServer struct {
	osmixpb.TileServiceServer
	store *entitystore.Store
}

// NewTileServer returns a TileServer serving store.
func NewTileServer(store *entitystore.Store) *TileServer {
	return &TileServer{store: store}
}

func (s *TileServer) GetRasterTile(ctx context.Context, req *osmixpb.TileRequest) (*osmixpb.TileResponse, error) {
	data, err := tile.GetRasterTile(s.store, tile.Coord{Z: req.Z, X: req.X, Y: req.Y}, tile.RasterOptions{})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "raster tile: %v", err)
	}
	return &osmixpb.TileResponse{Data: data}, nil
}

func (s *TileServer) GetVectorTile(ctx context.Context, req *osmixpb.TileRequest) (*osmixpb.TileResponse, error) {
	data, err := tile.GetVectorTile(s.store, req.Dataset, tile.Coord{Z: req.Z, X: req.X, Y: req.Y})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "vector tile: %v", err)
	}
	return &osmixpb.TileResponse{Data: data}, nil
}
