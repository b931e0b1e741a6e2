// Command osmix-import is the offline ingestion CLI: it reads one
// input file (PBF, or an alternate format via pkg/ingest's GeoJSON,
// Shapefile, or GeoParquet adapters), builds a finalized
// entitystore.Store, and writes it out as an augmented OSC diff
// against an empty base store — the same flag-driven, single-purpose
// shape as ucl-gateway's cmd entrypoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nucleus/osmix/pkg/builder"
	"github.com/nucleus/osmix/pkg/changeset"
	"github.com/nucleus/osmix/pkg/entitystore"
	"github.com/nucleus/osmix/pkg/ingest"
	"github.com/nucleus/osmix/pkg/ingest/geojson"
	"github.com/nucleus/osmix/pkg/ingest/geoparquet"
	"github.com/nucleus/osmix/pkg/ingest/shapefile"
	"github.com/nucleus/osmix/pkg/progress"
	"github.com/nucleus/osmix/pkg/strtable"
)

func main() {
	in := flag.String("in", "", "input file path (.osm.pbf, .geojson, .shp.zip, .parquet)")
	format := flag.String("format", "", "input format override: pbf, geojson, shapefile, geoparquet (default: inferred from -in's extension)")
	out := flag.String("out", "", "output .osc file path (default: stdout)")
	augmented := flag.Bool("augmented", true, "emit augmented OSC (include full tag/geometry state, not just diffs)")
	workers := flag.Int("workers", 4, "PBF block decode concurrency")
	flag.Parse()

	if *in == "" {
		fmt.Fprintln(os.Stderr, "osmix-import: -in is required")
		os.Exit(1)
	}

	if err := run(*in, *format, *out, *augmented, *workers); err != nil {
		fmt.Fprintf(os.Stderr, "osmix-import: %v\n", err)
		os.Exit(1)
	}
}

func run(inPath, format, outPath string, augmented bool, workers int) error {
	fmtName := format
	if fmtName == "" {
		fmtName = inferFormat(inPath)
	}

	reporter := progress.New(func(ev progress.Event) {
		fmt.Fprintf(os.Stderr, "[%s] processed=%d total=%d\n", ev.Stage, ev.Processed, ev.Total)
	})

	store, err := loadStore(inPath, fmtName, workers, reporter)
	if err != nil {
		return fmt.Errorf("load %s: %w", inPath, err)
	}

	cs := changeset.New(store, nil)

	w := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", outPath, err)
		}
		defer f.Close()
		w = f
	}

	return cs.ToOSC(w, changeset.OSCOptions{Augmented: augmented})
}

func inferFormat(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".pbf"):
		return "pbf"
	case strings.HasSuffix(lower, ".geojson") || strings.HasSuffix(lower, ".json"):
		return "geojson"
	case strings.HasSuffix(lower, ".zip"):
		return "shapefile"
	case strings.HasSuffix(lower, ".parquet"):
		return "geoparquet"
	default:
		return filepath.Ext(lower)
	}
}

func loadStore(path, format string, workers int, reporter *progress.Reporter) (*entitystore.Store, error) {
	if format == "pbf" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return builder.Ingest(context.Background(), f, builder.Options{Reporter: reporter, Concurrency: workers})
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	strs := strtable.New()

	var src ingest.EntitySource
	switch format {
	case "geojson":
		src, err = geojson.New(data, strs)
	case "shapefile":
		src, err = shapefile.New(data, strs)
	case "geoparquet":
		src, err = geoparquet.New(data, strs)
	default:
		return nil, fmt.Errorf("unrecognized input format %q", format)
	}
	if err != nil {
		return nil, err
	}

	return ingest.BuildStore(context.Background(), strs, src, reporter)
}
