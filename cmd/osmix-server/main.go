// Command osmix-server loads a PBF extract into memory and serves it
// over the C14 gRPC front-end (QueryService, ChangesetService,
// TileService), the way store-core's store-server boots one or more
// pkg stores behind a single *grpc.Server.
package main

import (
	"context"
	"log"
	"os"

	"github.com/nucleus/osmix/internal/config"
	"github.com/nucleus/osmix/internal/rpc"
	"github.com/nucleus/osmix/pkg/builder"
	"github.com/nucleus/osmix/pkg/entitystore"
	"github.com/nucleus/osmix/pkg/progress"
	"github.com/nucleus/osmix/pkg/query"
	"github.com/nucleus/osmix/pkg/strtable"
)

func main() {
	cfg := config.LoadServerConfig()

	store, err := loadStore(cfg)
	if err != nil {
		log.Fatalf("osmix-server: load store: %v", err)
	}

	engine := query.New(store)
	reporter := progress.New(func(ev progress.Event) {
		log.Printf("changeset apply: %s processed=%d total=%d", ev.Stage, ev.Processed, ev.Total)
	})

	srv := rpc.NewServer(store, engine, reporter)
	if err := srv.Serve(cfg.GRPCAddr); err != nil {
		log.Fatalf("osmix-server: serve: %v", err)
	}
}

func loadStore(cfg *config.ServerConfig) (*entitystore.Store, error) {
	if cfg.PBFPath == "" {
		return emptyStore()
	}

	f, err := os.Open(cfg.PBFPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reporter := progress.New(func(ev progress.Event) {
		log.Printf("ingest: %s processed=%d", ev.Stage, ev.Processed)
	})

	return builder.Ingest(context.Background(), f, builder.Options{Reporter: reporter, Concurrency: cfg.WorkerConcurrency})
}

// emptyStore returns a valid, zero-entity Store so the server can
// start (and serve ChangesetService.CreateNode etc.) even with no
// OSMIX_PBF_PATH configured.
func emptyStore() (*entitystore.Store, error) {
	strs := strtable.New()
	nodeCol, err := entitystore.NewNodeBuilder().Finalize()
	if err != nil {
		return nil, err
	}
	wayCol, err := entitystore.NewWayBuilder().Finalize(nodeCol)
	if err != nil {
		return nil, err
	}
	relCol, err := entitystore.NewRelationBuilder().Finalize()
	if err != nil {
		return nil, err
	}
	return &entitystore.Store{Strings: strs, Nodes: nodeCol, Ways: wayCol, Rels: relCol}, nil
}
