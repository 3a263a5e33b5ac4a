package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"graph_bwt/pkg/gbwt"
)

func main() {
	into := flag.String("into", "", "Path to the index to merge into")
	from := flag.String("from", "", "Path to the index to merge from")
	output := flag.String("output", "", "Output index file path (default: overwrite --into)")
	batch := flag.Uint64("batch", 0, "Sequences per insertion batch (0 = all in one batch)")
	verbose := flag.Int("v", 1, "Diagnostic level: 0=silent, 1=basic, 2=extended, 3=full")
	flag.Parse()

	if *into == "" || *from == "" {
		fmt.Fprintln(os.Stderr, "Usage: merge --into <index.gbwt> --from <index.gbwt> [--output merged.gbwt] [--batch N]")
		os.Exit(1)
	}
	if *output == "" {
		*output = *into
	}
	gbwt.SetVerbosity(gbwt.Verbosity(*verbose))

	start := time.Now()

	log.Printf("Loading target index from %s...", *into)
	target, err := gbwt.ReadFile(*into)
	if err != nil {
		log.Fatalf("Failed to load target index: %v", err)
	}
	target.WriteStats(os.Stderr, "target")

	log.Printf("Loading source index from %s...", *from)
	source, err := gbwt.ReadFile(*from)
	if err != nil {
		log.Fatalf("Failed to load source index: %v", err)
	}
	source.WriteStats(os.Stderr, "source")

	log.Println("Merging...")
	if err := target.Merge(source, *batch); err != nil {
		log.Fatalf("Failed to merge: %v", err)
	}
	target.WriteStats(os.Stderr, "merged")

	log.Printf("Writing merged index to %s...", *output)
	if err := target.WriteFile(*output); err != nil {
		log.Fatalf("Failed to write index: %v", err)
	}

	info, _ := os.Stat(*output)
	elapsed := time.Since(start)
	log.Printf("Done in %s. Output: %s (%.1f MB)", elapsed.Round(time.Second), *output, float64(info.Size())/(1024*1024))
}
