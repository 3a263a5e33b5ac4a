package paths

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"

	"graph_bwt/pkg/gbwt"
)

// Path is one drivable way as orientation-coded node ids in way order,
// with the directions the way may be traversed in.
type Path struct {
	Nodes    []uint64
	Forward  bool
	Backward bool
}

// Result holds the extracted paths and the coordinates of every compact
// node id. Index 0 of the coordinate slices is unused; compact ids start
// at 1 so the orientation coding never collides with the endmarker.
type Result struct {
	Paths   []Path
	NodeLat []float64
	NodeLon []float64
}

// NumNodes returns the number of distinct nodes referenced by the paths.
func (r *Result) NumNodes() int {
	if len(r.NodeLat) == 0 {
		return 0
	}
	return len(r.NodeLat) - 1
}

// carHighways lists highway tag values accessible by car.
var carHighways = map[string]bool{
	"motorway":       true,
	"motorway_link":  true,
	"trunk":          true,
	"trunk_link":     true,
	"primary":        true,
	"primary_link":   true,
	"secondary":      true,
	"secondary_link": true,
	"tertiary":       true,
	"tertiary_link":  true,
	"unclassified":   true,
	"residential":    true,
	"living_street":  true,
	"service":        true,
}

// isCarAccessible returns true if the way is drivable by car.
func isCarAccessible(tags osm.Tags) bool {
	if !carHighways[tags.Find("highway")] {
		return false
	}

	// Skip area highways (pedestrian plazas).
	if tags.Find("area") == "yes" {
		return false
	}

	// Skip restricted access.
	access := tags.Find("access")
	if access == "no" || access == "private" {
		return false
	}
	if tags.Find("motor_vehicle") == "no" {
		return false
	}

	return true
}

// directionFlags returns (forward, backward) based on highway type and oneway tags.
func directionFlags(tags osm.Tags) (forward, backward bool) {
	// Default: bidirectional.
	forward = true
	backward = true

	hw := tags.Find("highway")

	// Implied oneway for motorways and roundabouts.
	if hw == "motorway" || hw == "motorway_link" || tags.Find("junction") == "roundabout" {
		backward = false
	}

	// Explicit oneway tag overrides.
	switch tags.Find("oneway") {
	case "yes", "true", "1":
		forward = true
		backward = false
	case "-1", "reverse":
		forward = false
		backward = true
	case "no":
		forward = true
		backward = true
	case "reversible":
		// Time-dependent — skip entirely.
		forward = false
		backward = false
	}

	return forward, backward
}

// wayInfo holds parsed way data collected during Pass 1.
type wayInfo struct {
	NodeIDs  []osm.NodeID
	Forward  bool
	Backward bool
}

// BBox defines a geographic bounding box for filtering.
// If non-zero, only ways with every node inside the box are kept.
type BBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// IsZero returns true if the bbox is unset.
func (b BBox) IsZero() bool {
	return b.MinLat == 0 && b.MaxLat == 0 && b.MinLng == 0 && b.MaxLng == 0
}

// Contains returns true if the point is inside the bounding box.
func (b BBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// ExtractOptions configures the extraction.
type ExtractOptions struct {
	BBox BBox // if non-zero, keep only ways fully inside the box
}

// Extract reads an OSM PBF file and returns the drivable way paths as
// orientation-coded compact node ids. The reader is consumed twice (seeks
// back to start for the second pass), so it must implement io.ReadSeeker.
func Extract(ctx context.Context, rs io.ReadSeeker, opts ...ExtractOptions) (*Result, error) {
	var opt ExtractOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	useBBox := !opt.BBox.IsZero()

	// Pass 1: Scan ways to collect referenced node IDs and way info.
	referencedNodes := make(map[osm.NodeID]struct{})
	var ways []wayInfo

	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}

		if !isCarAccessible(w.Tags) {
			continue
		}
		if len(w.Nodes) < 2 {
			continue
		}

		fwd, bwd := directionFlags(w.Tags)
		if !fwd && !bwd {
			continue
		}

		nodeIDs := make([]osm.NodeID, len(w.Nodes))
		for i, wn := range w.Nodes {
			nodeIDs[i] = wn.ID
			referencedNodes[wn.ID] = struct{}{}
		}

		ways = append(ways, wayInfo{
			NodeIDs:  nodeIDs,
			Forward:  fwd,
			Backward: bwd,
		})
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 1 (ways): %w", err)
	}
	scanner.Close()

	log.Printf("Pass 1 complete: %d ways, %d referenced nodes", len(ways), len(referencedNodes))

	// Pass 2: Scan nodes to collect coordinates for referenced nodes only.
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for pass 2: %w", err)
	}

	nodeLat := make(map[osm.NodeID]float64, len(referencedNodes))
	nodeLon := make(map[osm.NodeID]float64, len(referencedNodes))

	scanner = osmpbf.New(ctx, rs, 1)
	scanner.SkipWays = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := referencedNodes[n.ID]; !needed {
			continue
		}
		nodeLat[n.ID] = n.Lat
		nodeLon[n.ID] = n.Lon
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 2 (nodes): %w", err)
	}
	scanner.Close()

	log.Printf("Pass 2 complete: %d node coordinates collected", len(nodeLat))

	// Build paths, remapping OSM node ids to compact ids starting at 1.
	compact := make(map[osm.NodeID]uint64, len(nodeLat))
	result := &Result{NodeLat: []float64{0}, NodeLon: []float64{0}}
	var skippedWays, bboxFiltered int

	for _, w := range ways {
		usable := true
		for _, id := range w.NodeIDs {
			lat, ok := nodeLat[id]
			if !ok {
				usable = false
				skippedWays++
				break
			}
			if useBBox && !opt.BBox.Contains(lat, nodeLon[id]) {
				usable = false
				bboxFiltered++
				break
			}
		}
		if !usable {
			continue
		}

		nodes := make([]uint64, len(w.NodeIDs))
		for i, id := range w.NodeIDs {
			cid, ok := compact[id]
			if !ok {
				cid = uint64(len(result.NodeLat))
				compact[id] = cid
				result.NodeLat = append(result.NodeLat, nodeLat[id])
				result.NodeLon = append(result.NodeLon, nodeLon[id])
			}
			nodes[i] = gbwt.EncodeNode(cid, false)
		}
		result.Paths = append(result.Paths, Path{
			Nodes:    nodes,
			Forward:  w.Forward,
			Backward: w.Backward,
		})
	}

	if skippedWays > 0 {
		log.Printf("Warning: skipped %d ways due to missing node coordinates", skippedWays)
	}
	if bboxFiltered > 0 {
		log.Printf("Filtered %d ways outside bounding box", bboxFiltered)
	}
	log.Printf("Built %d paths over %d nodes", len(result.Paths), result.NumNodes())

	return result, nil
}

// ReverseNodes returns the path traversed in the opposite direction: node
// order reversed and every orientation flipped.
func ReverseNodes(nodes []uint64) []uint64 {
	out := make([]uint64, len(nodes))
	for i, n := range nodes {
		out[len(nodes)-1-i] = gbwt.Reverse(n)
	}
	return out
}
