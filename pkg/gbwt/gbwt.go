package gbwt

import (
	"fmt"
	"io"
	"log"
	"slices"
)

// header carries the index-wide counters mirrored in the serialized format.
type header struct {
	size         uint64
	sequences    uint64
	alphabetSize uint64
	offset       uint64
	flags        uint64
}

// DynamicGBWT is an in-memory graph BWT that supports batched insertion of
// new sequences and merging of whole indexes.
//
// Node ids form a dense range (offset, alphabetSize) with the endmarker at
// id 0; the record of node v lives at index v-offset, the endmarker record
// at index 0.
type DynamicGBWT struct {
	header  header
	records []record
}

// New returns an empty index containing only the endmarker record.
func New() *DynamicGBWT {
	return &DynamicGBWT{
		header:  header{alphabetSize: 1},
		records: make([]record, 1),
	}
}

// Size returns the total length of the stored sequences, including one
// endmarker per sequence.
func (g *DynamicGBWT) Size() uint64 { return g.header.size }

// Sequences returns the number of stored sequences.
func (g *DynamicGBWT) Sequences() uint64 { return g.header.sequences }

// Sigma returns the alphabet size: one past the largest node id.
func (g *DynamicGBWT) Sigma() uint64 { return g.header.alphabetSize }

// AlphabetOffset returns the offset below which no real node ids exist.
func (g *DynamicGBWT) AlphabetOffset() uint64 { return g.header.offset }

// Effective returns the number of records held: the endmarker plus one per
// node id in (offset, sigma).
func (g *DynamicGBWT) Effective() uint64 { return g.header.alphabetSize - g.header.offset }

// Empty reports whether the index stores no sequences.
func (g *DynamicGBWT) Empty() bool { return g.header.sequences == 0 }

// Count returns the number of occurrences of node in the index, or 0 for
// ids outside the alphabet.
func (g *DynamicGBWT) Count(node uint64) uint64 {
	if !g.contains(node) {
		return 0
	}
	return g.record(node).size()
}

// Runs returns the total number of runs across all record bodies.
func (g *DynamicGBWT) Runs() uint64 {
	var total uint64
	for i := range g.records {
		total += g.records[i].runs()
	}
	return total
}

// Samples returns the total number of stored sequence id samples.
func (g *DynamicGBWT) Samples() uint64 {
	var total uint64
	for i := range g.records {
		total += g.records[i].samples()
	}
	return total
}

// contains reports whether node has a record in this index.
func (g *DynamicGBWT) contains(node uint64) bool {
	if node == Endmarker {
		return g.Effective() > 0
	}
	return node > g.header.offset && node < g.header.alphabetSize
}

// comp maps a node id to its record index.
func (g *DynamicGBWT) comp(node uint64) uint64 {
	if node == Endmarker {
		return 0
	}
	return node - g.header.offset
}

// compToNode maps a record index back to its node id.
func (g *DynamicGBWT) compToNode(comp uint64) uint64 {
	if comp == 0 {
		return Endmarker
	}
	return comp + g.header.offset
}

// record returns the record of node. The caller must ensure the node is in
// the alphabet.
func (g *DynamicGBWT) record(node uint64) *record {
	return &g.records[g.comp(node)]
}

// endmarker returns the record holding the sequence starts.
func (g *DynamicGBWT) endmarker() *record { return &g.records[0] }

// resize grows the alphabet to cover (newOffset, newSigma). Shrinking is
// silently clamped to the current bounds. An offset that would leave no room
// for real node ids is an error.
func (g *DynamicGBWT) resize(newOffset, newSigma uint64) error {
	if (g.Sigma() > 1 && newOffset > g.header.offset) || newSigma <= 1 {
		newOffset = g.header.offset
	}
	if g.Sigma() > newSigma {
		newSigma = g.Sigma()
	}
	if newOffset > 0 && newOffset >= newSigma {
		return fmt.Errorf("gbwt: resize: alphabet offset %d must be less than alphabet size %d", newOffset, newSigma)
	}
	if newOffset == g.header.offset && newSigma == g.Sigma() {
		return nil
	}

	if verbose(VerbosityFull) {
		log.Printf("resize: alphabet (%d, %d) to (%d, %d)", g.header.offset, g.Sigma(), newOffset, newSigma)
	}
	records := make([]record, newSigma-newOffset)
	records[0] = g.records[0]
	shift := g.header.offset - newOffset
	for comp := uint64(1); comp < uint64(len(g.records)); comp++ {
		records[comp+shift] = g.records[comp]
	}
	g.records = records
	g.header.offset = newOffset
	g.header.alphabetSize = newSigma
	return nil
}

// recode sorts every record's outgoing edges by successor id and remaps the
// bodies. Serialization requires a recoded index.
func (g *DynamicGBWT) recode() {
	if verbose(VerbosityFull) {
		log.Printf("recode: sorting outgoing edges in %d records", len(g.records))
	}
	for i := range g.records {
		g.records[i].recode()
	}
}

// Equal reports whether the two indexes hold identical contents: same
// headers and the same edges, runs, and samples in every record.
func (g *DynamicGBWT) Equal(other *DynamicGBWT) bool {
	if g.header != other.header {
		return false
	}
	for i := range g.records {
		a, b := &g.records[i], &other.records[i]
		if !slices.Equal(a.outgoing, b.outgoing) ||
			!slices.Equal(a.body, b.body) ||
			!slices.Equal(a.incoming, b.incoming) ||
			!slices.Equal(a.ids, b.ids) {
			return false
		}
	}
	return true
}

// Stats summarizes the index for reporting.
type Stats struct {
	Size      uint64
	Sequences uint64
	Sigma     uint64
	Effective uint64
	Runs      uint64
	Samples   uint64
}

// Stats returns the aggregate counters of the index.
func (g *DynamicGBWT) Stats() Stats {
	return Stats{
		Size:      g.Size(),
		Sequences: g.Sequences(),
		Sigma:     g.Sigma(),
		Effective: g.Effective(),
		Runs:      g.Runs(),
		Samples:   g.Samples(),
	}
}

// WriteStats writes a human-readable summary of the index to w.
func (g *DynamicGBWT) WriteStats(w io.Writer, name string) {
	s := g.Stats()
	fmt.Fprintf(w, "%s: %d sequences of total length %d\n", name, s.Sequences, s.Size)
	fmt.Fprintf(w, "  alphabet size %d, effective %d\n", s.Sigma, s.Effective)
	fmt.Fprintf(w, "  %d runs, %d samples\n", s.Runs, s.Samples)
}
