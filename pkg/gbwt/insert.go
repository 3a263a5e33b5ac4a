package gbwt

import (
	"fmt"
	"log"
	"math"
	"slices"
)

// sampleInterval controls how often sequence ids are sampled during
// insertion. Endmarker positions are always sampled regardless of the
// interval.
var sampleInterval uint64 = 1024

// Sequence is the insertion cursor of one sequence: the node it last wrote
// (Curr), the node it writes next (Next), its target offset in the current
// record, and its position in the input source.
type Sequence struct {
	ID     uint64
	Curr   uint64
	Next   uint64
	Offset uint64
	Pos    uint64
}

// cursor advances insertion cursors through an input source one node at a
// time. NextPosition maps every cursor's Pos to its position in the next
// record; AdvancePosition moves Curr and Next one step forward.
//
// Both methods may assume the sequences are grouped by Curr (NextPosition)
// or Next (AdvancePosition) with positions increasing within each group.
type cursor interface {
	NextPosition(seqs []Sequence)
	AdvancePosition(seqs []Sequence)
}

// Source is an index whose sequences can be merged into another index. It
// extends the cursor contract with the alphabet bounds and the sequence
// start enumeration needed to seed the insertion. *DynamicGBWT satisfies
// Source; a compressed index can satisfy it without this package knowing
// its representation.
type Source interface {
	Empty() bool
	Size() uint64
	Sequences() uint64
	Sigma() uint64
	AlphabetOffset() uint64
	StartNodes() []uint64
	NextPosition(seqs []Sequence)
	AdvancePosition(seqs []Sequence)
}

// textSource drives insertion cursors over a flat endmarker-terminated
// text. Pos indexes into the text.
type textSource []uint64

func (t textSource) NextPosition(seqs []Sequence) {
	for i := range seqs {
		seqs[i].Pos++
	}
}

func (t textSource) AdvancePosition(seqs []Sequence) {
	for i := range seqs {
		seqs[i].Curr = seqs[i].Next
		seqs[i].Next = t[seqs[i].Pos]
	}
}

// updateRecords rewrites the record of every distinct Curr node, merging the
// new positions into the old body at the offsets the previous iteration
// computed. Sequences must be grouped by Curr with offsets increasing
// within each group.
func (g *DynamicGBWT) updateRecords(seqs []Sequence, iteration uint64) {
	for i := 0; i < len(seqs); {
		curr := seqs[i].Curr
		rec := g.record(curr)
		merger := NewRunMerger(rec.outdegree())
		oldRuns := rec.body
		oldSamples := rec.ids
		runIdx, sampleIdx := 0, 0
		var pending run
		var newSamples []sample
		var insertCount uint64

		for i < len(seqs) && seqs[i].Curr == curr {
			seq := &seqs[i]
			outrank := rec.edgeTo(seq.Next)
			if outrank >= rec.outdegree() {
				rec.outgoing = append(rec.outgoing, edge{node: seq.Next})
				merger.addEdge()
			}
			// Copy the old body up to the insertion point, splitting the
			// covering run if needed.
			for merger.Size() < seq.Offset {
				if pending.length == 0 {
					pending = oldRuns[runIdx]
					runIdx++
				}
				n := seq.Offset - merger.Size()
				if pending.length < n {
					n = pending.length
				}
				merger.insertRun(run{rank: pending.rank, length: n})
				pending.length -= n
			}
			for sampleIdx < len(oldSamples) && oldSamples[sampleIdx].offset+insertCount < seq.Offset {
				newSamples = append(newSamples, sample{offset: oldSamples[sampleIdx].offset + insertCount, seq: oldSamples[sampleIdx].seq})
				sampleIdx++
			}
			if iteration%sampleInterval == 0 || seq.Next == Endmarker {
				newSamples = append(newSamples, sample{offset: seq.Offset, seq: seq.ID})
			}
			seq.Offset = merger.Counts()[outrank]
			merger.insertRank(outrank)
			insertCount++
			if seq.Next != Endmarker {
				g.record(seq.Next).increment(curr)
			}
			i++
		}

		if pending.length > 0 {
			merger.insertRun(pending)
		}
		for ; runIdx < len(oldRuns); runIdx++ {
			merger.insertRun(oldRuns[runIdx])
		}
		for ; sampleIdx < len(oldSamples); sampleIdx++ {
			newSamples = append(newSamples, sample{offset: oldSamples[sampleIdx].offset + insertCount, seq: oldSamples[sampleIdx].seq})
		}
		merger.swapBody(rec)
		rec.ids = newSamples
	}
	g.header.size += uint64(len(seqs))
}

// sortSequences orders the cursors by (Next, Curr, Offset) and drops the
// ones that just wrote their endmarker.
func sortSequences(seqs []Sequence) []Sequence {
	slices.SortFunc(seqs, func(a, b Sequence) int {
		if a.Next != b.Next {
			if a.Next < b.Next {
				return -1
			}
			return 1
		}
		if a.Curr != b.Curr {
			if a.Curr < b.Curr {
				return -1
			}
			return 1
		}
		if a.Offset < b.Offset {
			return -1
		}
		if a.Offset > b.Offset {
			return 1
		}
		return 0
	})
	head := 0
	for head < len(seqs) && seqs[head].Next == Endmarker {
		head++
	}
	return seqs[head:]
}

// rebuildOffsets recomputes the outgoing edge offsets of every predecessor
// of every distinct Next node from the incoming counts, then turns each
// cursor's local rank into a global offset in the next record. Sequences
// must be sorted by Next.
func (g *DynamicGBWT) rebuildOffsets(seqs []Sequence) {
	next := g.Sigma()
	for _, seq := range seqs {
		if seq.Next == next {
			continue
		}
		next = seq.Next
		var offset uint64
		for _, in := range g.record(next).incoming {
			pred := g.record(in.node)
			pred.outgoing[pred.edgeTo(next)].count = offset
			offset += in.count
		}
	}
	for i := range seqs {
		seq := &seqs[i]
		seq.Offset += g.record(seq.Curr).offsetOf(seq.Next)
	}
}

// insertSequences runs the insertion loop until every cursor has written
// its endmarker. Returns the number of iterations.
func (g *DynamicGBWT) insertSequences(seqs []Sequence, src cursor) uint64 {
	var iteration uint64
	for len(seqs) > 0 {
		iteration++
		g.updateRecords(seqs, iteration)
		src.NextPosition(seqs)
		seqs = sortSequences(seqs)
		if len(seqs) == 0 {
			break
		}
		g.rebuildOffsets(seqs)
		src.AdvancePosition(seqs)
	}
	return iteration
}

// insertText seeds cursors from a flat text, grows the alphabet to cover
// the new nodes, and runs the insertion. The text must end with an
// endmarker. Does not recode.
func (g *DynamicGBWT) insertText(text []uint64) error {
	if text[len(text)-1] != Endmarker {
		return fmt.Errorf("gbwt: text of length %d is not endmarker-terminated", len(text))
	}
	minNode, maxNode := uint64(math.MaxUint64), uint64(0)
	if !g.Empty() {
		minNode, maxNode = g.header.offset+1, g.Sigma()-1
	}
	var seqs []Sequence
	seqStart := true
	for i, node := range text {
		if node == Endmarker {
			seqStart = true
			continue
		}
		if seqStart {
			seqs = append(seqs, Sequence{
				ID:     g.header.sequences,
				Curr:   Endmarker,
				Next:   node,
				Offset: g.header.sequences,
				Pos:    uint64(i),
			})
			g.header.sequences++
			seqStart = false
		}
		minNode = min(minNode, node)
		maxNode = max(maxNode, node)
	}
	if maxNode == 0 {
		minNode = 1
	}
	if err := g.resize(minNode-1, maxNode+1); err != nil {
		return err
	}
	iterations := g.insertSequences(seqs, textSource(text))
	if verbose(VerbosityExtended) {
		log.Printf("insert: batch of length %d, %d sequences, %d iterations", len(text), len(seqs), iterations)
	}
	return nil
}

// Insert adds the sequences in text to the index and recodes it. The text
// is a concatenation of endmarker-terminated sequences; empty sequences are
// skipped.
func (g *DynamicGBWT) Insert(text []uint64) error {
	if len(text) == 0 {
		if verbose(VerbosityFull) {
			log.Printf("insert: empty input, nothing to do")
		}
		return nil
	}
	if err := g.insertText(text); err != nil {
		return err
	}
	g.recode()
	return nil
}

// InsertPrefix inserts the first length nodes of text. A length past the
// end of the buffer is an error.
func (g *DynamicGBWT) InsertPrefix(text []uint64, length uint64) error {
	if length > uint64(len(text)) {
		return fmt.Errorf("gbwt: insert length %d exceeds buffer size %d", length, len(text))
	}
	return g.Insert(text[:length])
}

// InsertBuffered splits text into endmarker-terminated sequences and feeds
// them through a Builder with the given buffer size. A batch size of 0
// inserts the whole input as one batch.
func (g *DynamicGBWT) InsertBuffered(text []uint64, batchSize uint64, bothOrientations bool) error {
	if len(text) == 0 {
		if verbose(VerbosityFull) {
			log.Printf("insert: empty input, nothing to do")
		}
		return nil
	}
	if batchSize == 0 {
		batchSize = uint64(len(text))
		if bothOrientations {
			batchSize *= 2
		}
	}
	builder := NewBuilder(g, batchSize)
	start := 0
	for i, node := range text {
		if node != Endmarker {
			continue
		}
		if i > start {
			builder.Insert(text[start:i], bothOrientations)
		}
		start = i + 1
	}
	return builder.Finish()
}

// StartNodes returns the first node of every stored sequence in sequence id
// order, read from the endmarker record.
func (g *DynamicGBWT) StartNodes() []uint64 {
	rec := g.endmarker()
	starts := make([]uint64, 0, rec.size())
	for _, rn := range rec.body {
		node := rec.successor(rn.rank)
		for k := uint64(0); k < rn.length; k++ {
			starts = append(starts, node)
		}
	}
	return starts
}

// NextPosition maps each cursor's source position through the record of its
// Curr node. Part of the Source contract.
func (g *DynamicGBWT) NextPosition(seqs []Sequence) {
	for i := 0; i < len(seqs); {
		curr := seqs[i].Curr
		rec := g.record(curr)
		result := make([]uint64, len(rec.outgoing))
		for r := range rec.outgoing {
			result[r] = rec.outgoing[r].count
		}
		var recordOffset uint64
		runIdx := 0
		var lastRank int
		for i < len(seqs) && seqs[i].Curr == curr {
			seq := &seqs[i]
			for recordOffset <= seq.Pos {
				rn := rec.body[runIdx]
				runIdx++
				recordOffset += rn.length
				result[rn.rank] += rn.length
				lastRank = rn.rank
			}
			seq.Pos = result[lastRank] - (recordOffset - seq.Pos)
			i++
		}
	}
}

// AdvancePosition moves each cursor one node forward by reading the
// successor at its source position. Part of the Source contract.
func (g *DynamicGBWT) AdvancePosition(seqs []Sequence) {
	for i := 0; i < len(seqs); {
		next := seqs[i].Next
		rec := g.record(next)
		var recordOffset uint64
		runIdx := 0
		var lastRank int
		for i < len(seqs) && seqs[i].Next == next {
			seq := &seqs[i]
			seq.Curr = seq.Next
			for recordOffset <= seq.Pos {
				rn := rec.body[runIdx]
				runIdx++
				recordOffset += rn.length
				lastRank = rn.rank
			}
			seq.Next = rec.successor(lastRank)
			i++
		}
	}
}

// Merge inserts every sequence of source into the index and recodes it. A
// batch size of 0 inserts all source sequences in one batch.
func (g *DynamicGBWT) Merge(source Source, batchSize uint64) error {
	if source.Empty() {
		if verbose(VerbosityFull) {
			log.Printf("merge: source index is empty, nothing to do")
		}
		return nil
	}
	if batchSize == 0 {
		batchSize = source.Sequences()
	}
	if err := g.resize(source.AlphabetOffset(), source.Sigma()); err != nil {
		return err
	}
	starts := source.StartNodes()
	for batchStart := uint64(0); batchStart < uint64(len(starts)); batchStart += batchSize {
		batchEnd := min(batchStart+batchSize, uint64(len(starts)))
		firstID := g.header.sequences
		seqs := make([]Sequence, 0, batchEnd-batchStart)
		for pos := batchStart; pos < batchEnd; pos++ {
			seqs = append(seqs, Sequence{
				ID:     g.header.sequences,
				Curr:   Endmarker,
				Next:   starts[pos],
				Offset: g.header.sequences,
				Pos:    pos,
			})
			g.header.sequences++
		}
		iterations := g.insertSequences(seqs, source)
		if verbose(VerbosityExtended) {
			log.Printf("merge: inserted sequences %d to %d in %d iterations", firstID, g.header.sequences-1, iterations)
		}
	}
	g.recode()
	return nil
}
