package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"graph_bwt/pkg/gbwt"
	"graph_bwt/pkg/paths"
)

func main() {
	input := flag.String("input", "", "Path to .osm.pbf file")
	output := flag.String("output", "index"+gbwt.Extension, "Output index file path")
	nodes := flag.String("nodes", "nodes.bin", "Output node coordinate sidecar (empty = skip)")
	bbox := flag.String("bbox", "", "Bounding box filter: minLat,minLng,maxLat,maxLng (e.g. 1.15,103.6,1.48,104.1)")
	singapore := flag.Bool("singapore", false, "Shortcut for --bbox 1.15,103.6,1.48,104.1 (Singapore bounding box)")
	kl := flag.Bool("kl", false, "Shortcut for --bbox 2.75,101.2,3.5,102.0 (Selangor + Kuala Lumpur bounding box)")
	batch := flag.Uint64("batch", 20_000_000, "Insertion buffer size in nodes")
	both := flag.Bool("both", false, "Index both orientations of every path regardless of way direction")
	verbose := flag.Int("v", 1, "Diagnostic level: 0=silent, 1=basic, 2=extended, 3=full")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: build --input <file.osm.pbf> [--output index.gbwt] [--nodes nodes.bin] [--batch N] [--both] [--singapore | --kl | --bbox minLat,minLng,maxLat,maxLng]")
		os.Exit(1)
	}
	gbwt.SetVerbosity(gbwt.Verbosity(*verbose))

	// Parse bbox option.
	var opts paths.ExtractOptions
	if *kl {
		opts.BBox = paths.BBox{MinLat: 2.75, MaxLat: 3.5, MinLng: 101.2, MaxLng: 102.0}
		log.Println("Using Selangor + KL bounding box filter: lat [2.75, 3.50], lng [101.20, 102.00]")
	} else if *singapore {
		opts.BBox = paths.BBox{MinLat: 1.15, MaxLat: 1.48, MinLng: 103.6, MaxLng: 104.1}
		log.Println("Using Singapore bounding box filter: lat [1.15, 1.48], lng [103.6, 104.1]")
	} else if *bbox != "" {
		var minLat, minLng, maxLat, maxLng float64
		_, err := fmt.Sscanf(*bbox, "%f,%f,%f,%f", &minLat, &minLng, &maxLat, &maxLng)
		if err != nil {
			log.Fatalf("Invalid bbox format (expected minLat,minLng,maxLat,maxLng): %v", err)
		}
		opts.BBox = paths.BBox{MinLat: minLat, MaxLat: maxLat, MinLng: minLng, MaxLng: maxLng}
		log.Printf("Using bounding box filter: lat [%.4f, %.4f], lng [%.4f, %.4f]", minLat, maxLat, minLng, maxLng)
	}

	start := time.Now()

	// Step 1: Extract paths from OSM data.
	log.Println("Opening OSM file...")
	f, err := os.Open(*input)
	if err != nil {
		log.Fatalf("Failed to open input file: %v", err)
	}
	defer f.Close()

	log.Println("Extracting paths...")
	result, err := paths.Extract(context.Background(), f, opts)
	if err != nil {
		log.Fatalf("Failed to extract paths: %v", err)
	}
	log.Printf("Extracted %d paths over %d nodes", len(result.Paths), result.NumNodes())

	// Step 2: Build the index.
	log.Println("Building index...")
	builder := gbwt.NewBuilder(nil, *batch)
	for _, p := range result.Paths {
		switch {
		case p.Forward && p.Backward:
			builder.Insert(p.Nodes, true)
		case p.Forward:
			builder.Insert(p.Nodes, *both)
		case p.Backward:
			builder.Insert(paths.ReverseNodes(p.Nodes), *both)
		}
	}
	if err := builder.Finish(); err != nil {
		log.Fatalf("Failed to build index: %v", err)
	}
	index := builder.Index()
	index.WriteStats(os.Stderr, "index")

	// Step 3: Serialize.
	log.Printf("Writing index to %s...", *output)
	if err := index.WriteFile(*output); err != nil {
		log.Fatalf("Failed to write index: %v", err)
	}
	if *nodes != "" {
		log.Printf("Writing node coordinates to %s...", *nodes)
		if err := paths.WriteNodeFile(*nodes, result.NodeLat, result.NodeLon); err != nil {
			log.Fatalf("Failed to write node file: %v", err)
		}
	}

	info, _ := os.Stat(*output)
	elapsed := time.Since(start)
	log.Printf("Done in %s. Output: %s (%.1f MB)", elapsed.Round(time.Second), *output, float64(info.Size())/(1024*1024))
}
