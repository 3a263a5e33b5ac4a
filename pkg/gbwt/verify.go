package gbwt

import "fmt"

// Verify checks the structural invariants of the index: header counters
// against record contents, run ranks against outdegrees, incoming edge
// lists against outgoing edge offsets, and sample ordering. Intended for
// tests and post-construction sanity checks.
func (g *DynamicGBWT) Verify() error {
	if g.Effective() != uint64(len(g.records)) {
		return fmt.Errorf("gbwt: %d records for effective alphabet %d", len(g.records), g.Effective())
	}

	var totalSize uint64
	for comp := range g.records {
		node := g.compToNode(uint64(comp))
		rec := &g.records[comp]

		var bodySize uint64
		for _, rn := range rec.body {
			if rn.rank >= rec.outdegree() {
				return fmt.Errorf("gbwt: node %d has run rank %d for outdegree %d", node, rn.rank, rec.outdegree())
			}
			if rn.length == 0 {
				return fmt.Errorf("gbwt: node %d has an empty run", node)
			}
			bodySize += rn.length
		}
		if bodySize != rec.size() {
			return fmt.Errorf("gbwt: node %d body holds %d positions, record claims %d", node, bodySize, rec.size())
		}
		totalSize += bodySize

		for k := 1; k < len(rec.incoming); k++ {
			if rec.incoming[k-1].node >= rec.incoming[k].node {
				return fmt.Errorf("gbwt: node %d has unsorted incoming edges", node)
			}
		}
		for k := 1; k < len(rec.ids); k++ {
			if rec.ids[k-1].offset >= rec.ids[k].offset {
				return fmt.Errorf("gbwt: node %d has unsorted samples", node)
			}
		}
		if n := len(rec.ids); n > 0 && rec.ids[n-1].offset >= rec.size() {
			return fmt.Errorf("gbwt: node %d has a sample past its body", node)
		}
	}

	if totalSize != g.Size() {
		return fmt.Errorf("gbwt: records hold %d positions, header claims %d", totalSize, g.Size())
	}
	if g.endmarker().size() != g.Sequences() {
		return fmt.Errorf("gbwt: endmarker record holds %d positions for %d sequences", g.endmarker().size(), g.Sequences())
	}

	// Every occurrence of a node is counted once among its incoming edges,
	// and walking them in order yields the predecessors' edge offsets.
	for comp := 1; comp < len(g.records); comp++ {
		node := g.compToNode(uint64(comp))
		rec := &g.records[comp]
		var offset uint64
		for _, in := range rec.incoming {
			pred := g.record(in.node)
			rank := pred.edgeTo(node)
			if rank >= pred.outdegree() {
				return fmt.Errorf("gbwt: node %d lists predecessor %d with no edge back", node, in.node)
			}
			if pred.outgoing[rank].count != offset {
				return fmt.Errorf("gbwt: edge %d to %d has offset %d, incoming edges imply %d", in.node, node, pred.outgoing[rank].count, offset)
			}
			offset += in.count
		}
		if offset != rec.size() {
			return fmt.Errorf("gbwt: node %d has %d incoming occurrences for a body of %d", node, offset, rec.size())
		}
	}
	return nil
}
