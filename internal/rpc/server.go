package rpc

import (
	"log"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/nucleus/osmix/gen/go/osmixpb"
	"github.com/nucleus/osmix/pkg/entitystore"
	"github.com/nucleus/osmix/pkg/progress"
	"github.com/nucleus/osmix/pkg/query"
)

// Server bundles the three C14 gRPC services plus the standard health
// endpoint behind one *grpc.Server, the way store-core's store-server
// bundles KVService/LogService/VectorService/SignalService.
type Server struct {
	grpcServer *grpc.Server
	healthSrv  *health.Server
}

// NewServer builds a Server for the given store/engine, ready to Serve
// once a listener is available. reporter receives progress during
// ChangesetService.Apply.
func NewServer(store *entitystore.Store, engine *query.Engine, reporter *progress.Reporter) *Server {
	grpcServer := grpc.NewServer()

	osmixpb.RegisterQueryServiceServer(grpcServer, NewQueryServer(engine))
	osmixpb.RegisterChangesetServiceServer(grpcServer, NewChangesetServer(store, reporter))
	osmixpb.RegisterTileServiceServer(grpcServer, NewTileServer(store))

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthSrv)

	return &Server{grpcServer: grpcServer, healthSrv: healthSrv}
}

// Serve listens on addr and blocks serving gRPC until the listener or
// server fails.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.Printf("osmix gRPC listening on %s", addr)
	return s.grpcServer.Serve(lis)
}

// Stop gracefully stops the underlying gRPC server.
func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
}
