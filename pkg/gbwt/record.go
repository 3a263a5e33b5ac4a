package gbwt

import (
	"slices"
	"sort"
)

// edge pairs a neighboring node with a count. In outgoing lists the count is
// the offset of this record's range within the successor's record; in
// incoming lists it is the number of occurrences of the predecessor.
type edge struct {
	node  uint64
	count uint64
}

// run is a maximal stretch of identical outgoing ranks in a record body.
type run struct {
	rank   int
	length uint64
}

// sample ties a body offset to the id of the sequence passing through it.
type sample struct {
	offset uint64
	seq    uint64
}

// record is the dynamic per-node state: outgoing and incoming edge lists, a
// run-length encoded body of outgoing ranks, and sequence id samples sorted
// by offset.
type record struct {
	outgoing []edge
	body     []run
	bodySize uint64
	incoming []edge
	ids      []sample
}

func (r *record) outdegree() int { return len(r.outgoing) }

// edgeTo returns the outgoing rank of the edge leading to node next, or
// outdegree() if there is no such edge.
func (r *record) edgeTo(next uint64) int {
	for rank := range r.outgoing {
		if r.outgoing[rank].node == next {
			return rank
		}
	}
	return len(r.outgoing)
}

func (r *record) successor(rank int) uint64 { return r.outgoing[rank].node }

// offsetOf returns the offset stored on the edge leading to node next, or
// InvalidOffset if the edge does not exist.
func (r *record) offsetOf(next uint64) uint64 {
	rank := r.edgeTo(next)
	if rank >= r.outdegree() {
		return InvalidOffset
	}
	return r.outgoing[rank].count
}

func (r *record) size() uint64 { return r.bodySize }

func (r *record) runs() uint64 { return uint64(len(r.body)) }

func (r *record) samples() uint64 { return uint64(len(r.ids)) }

// increment adds one occurrence of predecessor from to the incoming list,
// inserting a new edge if needed. The list stays sorted by predecessor id.
func (r *record) increment(from uint64) {
	for i := range r.incoming {
		if r.incoming[i].node == from {
			r.incoming[i].count++
			return
		}
	}
	r.addIncoming(edge{node: from, count: 1})
}

func (r *record) addIncoming(e edge) {
	r.incoming = append(r.incoming, e)
	for i := len(r.incoming) - 1; i > 0 && r.incoming[i-1].node > r.incoming[i].node; i-- {
		r.incoming[i-1], r.incoming[i] = r.incoming[i], r.incoming[i-1]
	}
}

// recode sorts the outgoing edges by successor id and remaps the body ranks
// accordingly. A record whose edges are already sorted is left untouched.
func (r *record) recode() {
	sorted := true
	for i := 1; i < len(r.outgoing); i++ {
		if r.outgoing[i-1].node > r.outgoing[i].node {
			sorted = false
			break
		}
	}
	if sorted {
		return
	}

	old := slices.Clone(r.outgoing)
	slices.SortFunc(r.outgoing, func(a, b edge) int {
		if a.node < b.node {
			return -1
		}
		if a.node > b.node {
			return 1
		}
		return 0
	})
	newRank := make([]int, len(old))
	for rank := range old {
		newRank[rank] = r.edgeTo(old[rank].node)
	}
	for i := range r.body {
		r.body[i].rank = newRank[r.body[i].rank]
	}
}

// nextSample returns the first sample at offset i or later, as (offset, seq),
// or (InvalidOffset, InvalidSequence) if there is none.
func (r *record) nextSample(i uint64) (uint64, uint64) {
	at := sort.Search(len(r.ids), func(k int) bool { return r.ids[k].offset >= i })
	if at >= len(r.ids) {
		return InvalidOffset, InvalidSequence
	}
	return r.ids[at].offset, r.ids[at].seq
}

// sampleAt returns the sequence id sampled exactly at offset i, or
// InvalidSequence.
func (r *record) sampleAt(i uint64) uint64 {
	offset, seq := r.nextSample(i)
	if offset != i {
		return InvalidSequence
	}
	return seq
}

// runLF walks the body to the run covering offset i and returns the successor
// node, the offset of position i within the successor's record, and the
// offset just past the run. The caller must ensure i < size().
func (r *record) runLF(i uint64) (node uint64, offset uint64, runEnd uint64) {
	counts := make([]uint64, len(r.outgoing))
	for rank := range r.outgoing {
		counts[rank] = r.outgoing[rank].count
	}
	var at uint64
	for _, rn := range r.body {
		if at+rn.length > i {
			return r.successor(rn.rank), counts[rn.rank] + (i - at), at + rn.length
		}
		at += rn.length
		counts[rn.rank] += rn.length
	}
	return InvalidNode, InvalidOffset, InvalidOffset
}

// lf returns the offset of position i within the record of node to, or
// InvalidOffset if the record has no edge to that node or i is out of range.
func (r *record) lf(i uint64, to uint64) uint64 {
	rank := r.edgeTo(to)
	if rank >= r.outdegree() || i > r.size() {
		return InvalidOffset
	}
	result := r.outgoing[rank].count
	var at uint64
	for _, rn := range r.body {
		if at >= i {
			break
		}
		if rn.rank == rank {
			n := rn.length
			if at+n > i {
				n = i - at
			}
			result += n
		}
		at += rn.length
	}
	return result
}

// lfEdge maps position i through the body run covering it and returns the
// successor node with the mapped offset, or (InvalidNode, InvalidOffset)
// when i is past the end of the body.
func (r *record) lfEdge(i uint64) (uint64, uint64) {
	if i >= r.size() {
		return InvalidNode, InvalidOffset
	}
	node, offset, _ := r.runLF(i)
	return node, offset
}

// RunMerger accumulates a rewritten record body one position or run at a
// time, coalescing adjacent runs of the same rank and tracking per-rank
// totals.
type RunMerger struct {
	runs      []run
	counts    []uint64
	size      uint64
	totalSize uint64
	accum     run
}

// NewRunMerger returns a merger for a record with the given outdegree.
func NewRunMerger(outdegree int) *RunMerger {
	return &RunMerger{counts: make([]uint64, outdegree)}
}

// Size returns the number of positions inserted so far, including the run
// being accumulated.
func (m *RunMerger) Size() uint64 { return m.totalSize }

// Counts returns the running per-rank totals. The slice is live; callers
// read it between insertions.
func (m *RunMerger) Counts() []uint64 { return m.counts }

// addEdge extends the per-rank totals when the record grows a new outgoing
// edge mid-rewrite.
func (m *RunMerger) addEdge() {
	m.counts = append(m.counts, 0)
}

// insertRank appends a single position with the given outgoing rank.
func (m *RunMerger) insertRank(rank int) {
	m.insertRun(run{rank: rank, length: 1})
}

// insertRun appends a run, merging it into the accumulator when the ranks
// match.
func (m *RunMerger) insertRun(rn run) {
	if rn.length == 0 {
		return
	}
	m.counts[rn.rank] += rn.length
	m.totalSize += rn.length
	if m.accum.length > 0 && m.accum.rank == rn.rank {
		m.accum.length += rn.length
		return
	}
	m.flushAccum()
	m.accum = rn
}

func (m *RunMerger) flushAccum() {
	if m.accum.length > 0 {
		m.runs = append(m.runs, m.accum)
		m.size += m.accum.length
		m.accum = run{}
	}
}

// flush finalizes the pending run and returns the merged body.
func (m *RunMerger) flush() []run {
	m.flushAccum()
	return m.runs
}

// swapBody installs the merged body into rec, replacing the old one.
func (m *RunMerger) swapBody(rec *record) {
	rec.body = m.flush()
	rec.bodySize = m.totalSize
}
