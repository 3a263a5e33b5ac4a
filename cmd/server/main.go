package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"graph_bwt/pkg/api"
	"graph_bwt/pkg/gbwt"
	"graph_bwt/pkg/paths"
)

func main() {
	graphPath := flag.String("graph", "index"+gbwt.Extension, "Path to serialized index")
	nodesPath := flag.String("nodes", "", "Path to node coordinate sidecar (empty = near endpoint disabled)")
	port := flag.Int("port", 8080, "HTTP port")
	corsOrigin := flag.String("cors-origin", "", "CORS allowed origin (empty = same-origin)")
	flag.Parse()

	start := time.Now()

	// Load index.
	log.Printf("Loading index from %s...", *graphPath)
	index, err := gbwt.ReadFile(*graphPath)
	if err != nil {
		log.Fatalf("Failed to load index: %v", err)
	}
	log.Printf("Loaded: %d sequences of total length %d, alphabet size %d",
		index.Sequences(), index.Size(), index.Sigma())

	// Load node coordinates and build the spatial index.
	var locator *paths.Locator
	if *nodesPath != "" {
		log.Printf("Loading node coordinates from %s...", *nodesPath)
		lat, lon, err := paths.ReadNodeFile(*nodesPath)
		if err != nil {
			log.Fatalf("Failed to load node file: %v", err)
		}
		log.Println("Building R-tree spatial index...")
		locator = paths.NewLocator(lat, lon)
	}

	loadTime := time.Since(start)
	log.Printf("Ready in %s", loadTime.Round(time.Millisecond))

	// Setup HTTP server.
	addr := fmt.Sprintf(":%d", *port)
	cfg := api.DefaultConfig(addr)
	cfg.CORSOrigin = *corsOrigin

	handlers := api.NewHandlers(index, locator)
	srv := api.NewServer(cfg, handlers)

	if err := api.ListenAndServe(srv); err != nil {
		log.Printf("Server stopped: %v", err)
		os.Exit(1)
	}
}
