package gbwt

import "slices"

// SearchState is an offset range within the record of one node.
type SearchState struct {
	Node  uint64
	Start uint64
	End   uint64
}

// Empty reports whether the range contains no offsets.
func (s SearchState) Empty() bool { return s.End < s.Start }

// Size returns the number of offsets in the range.
func (s SearchState) Size() uint64 {
	if s.Empty() {
		return 0
	}
	return s.End - s.Start + 1
}

// LF maps offset i in the record of from to its offset in the record of to.
// Returns InvalidOffset if either node is outside the alphabet or the edge
// does not exist.
func (g *DynamicGBWT) LF(from, i, to uint64) uint64 {
	if !g.contains(from) || !g.contains(to) {
		return InvalidOffset
	}
	return g.record(from).lf(i, to)
}

// LFEdge maps offset i in the record of from to the successor node and the
// offset within its record. Returns (InvalidNode, InvalidOffset) when from
// is outside the alphabet or i is past the end of the record.
func (g *DynamicGBWT) LFEdge(from, i uint64) (uint64, uint64) {
	if !g.contains(from) {
		return InvalidNode, InvalidOffset
	}
	return g.record(from).lfEdge(i)
}

// TryLocate returns the id of the sequence at offset i in the record of
// node if that position is sampled, and InvalidSequence otherwise.
func (g *DynamicGBWT) TryLocate(node, i uint64) uint64 {
	if !g.contains(node) {
		return InvalidSequence
	}
	return g.record(node).sampleAt(i)
}

// position is a live cursor during Locate: an offset within one record.
type position struct {
	node   uint64
	offset uint64
}

// Locate returns the sorted ids of the sequences passing through the given
// range, without duplicates. Each position follows LF until it hits a
// sample; positions in the same record share the sample lookup and the run
// walk.
func (g *DynamicGBWT) Locate(state SearchState) []uint64 {
	if state.Empty() || !g.contains(state.Node) || state.End >= g.record(state.Node).size() {
		return nil
	}

	positions := make([]position, 0, state.Size())
	for i := state.Start; i <= state.End; i++ {
		positions = append(positions, position{node: state.Node, offset: i})
	}

	var result []uint64
	for len(positions) > 0 {
		tail := 0
		curr := uint64(InvalidNode)
		var rec *record
		var sampleOffset, sampleSeq uint64
		var lfNode, lfOffset, lfStart, lfEnd uint64

		for _, pos := range positions {
			if pos.node != curr {
				curr = pos.node
				rec = g.record(curr)
				sampleOffset, sampleSeq = rec.nextSample(pos.offset)
				lfStart = pos.offset
				lfNode, lfOffset, lfEnd = rec.runLF(pos.offset)
			}
			if sampleOffset < pos.offset {
				sampleOffset, sampleSeq = rec.nextSample(pos.offset)
			}
			if sampleOffset == pos.offset {
				result = append(result, sampleSeq)
				continue
			}
			if pos.offset >= lfEnd {
				lfStart = pos.offset
				lfNode, lfOffset, lfEnd = rec.runLF(pos.offset)
			}
			positions[tail] = position{node: lfNode, offset: lfOffset + pos.offset - lfStart}
			tail++
		}
		positions = positions[:tail]
		slices.SortFunc(positions, func(a, b position) int {
			if a.node != b.node {
				if a.node < b.node {
					return -1
				}
				return 1
			}
			if a.offset < b.offset {
				return -1
			}
			if a.offset > b.offset {
				return 1
			}
			return 0
		})
	}

	slices.Sort(result)
	return slices.Compact(result)
}
