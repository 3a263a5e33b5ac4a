package gbwt

import (
	"slices"
	"testing"
)

func TestRecordEdgeTo(t *testing.T) {
	rec := record{outgoing: []edge{{node: 3, count: 10}, {node: 5, count: 20}}}

	if rank := rec.edgeTo(3); rank != 0 {
		t.Errorf("edgeTo(3) = %d, want 0", rank)
	}
	if rank := rec.edgeTo(5); rank != 1 {
		t.Errorf("edgeTo(5) = %d, want 1", rank)
	}
	if rank := rec.edgeTo(7); rank != rec.outdegree() {
		t.Errorf("edgeTo(7) = %d, want outdegree %d", rank, rec.outdegree())
	}

	if off := rec.offsetOf(5); off != 20 {
		t.Errorf("offsetOf(5) = %d, want 20", off)
	}
	if off := rec.offsetOf(7); off != InvalidOffset {
		t.Errorf("offsetOf(7) = %d, want InvalidOffset", off)
	}
}

func TestRecordIncoming(t *testing.T) {
	var rec record

	rec.increment(5)
	rec.increment(3)
	rec.increment(5)
	rec.increment(4)

	want := []edge{{node: 3, count: 1}, {node: 4, count: 1}, {node: 5, count: 2}}
	if !slices.Equal(rec.incoming, want) {
		t.Errorf("incoming = %v, want %v", rec.incoming, want)
	}
}

func TestRecordRunLF(t *testing.T) {
	rec := record{
		outgoing: []edge{{node: 3, count: 10}, {node: 5, count: 20}},
		body:     []run{{rank: 0, length: 2}, {rank: 1, length: 3}, {rank: 0, length: 1}},
		bodySize: 6,
	}

	tests := []struct {
		i          uint64
		wantNode   uint64
		wantOffset uint64
		wantEnd    uint64
	}{
		{0, 3, 10, 2},
		{1, 3, 11, 2},
		{2, 5, 20, 5},
		{4, 5, 22, 5},
		{5, 3, 12, 6},
	}
	for _, tt := range tests {
		node, offset, end := rec.runLF(tt.i)
		if node != tt.wantNode || offset != tt.wantOffset || end != tt.wantEnd {
			t.Errorf("runLF(%d) = (%d, %d, %d), want (%d, %d, %d)",
				tt.i, node, offset, end, tt.wantNode, tt.wantOffset, tt.wantEnd)
		}
	}
}

func TestRecordLF(t *testing.T) {
	rec := record{
		outgoing: []edge{{node: 3, count: 10}, {node: 5, count: 20}},
		body:     []run{{rank: 0, length: 2}, {rank: 1, length: 3}, {rank: 0, length: 1}},
		bodySize: 6,
	}

	tests := []struct {
		i    uint64
		to   uint64
		want uint64
	}{
		{0, 3, 10},
		{2, 3, 12},
		{3, 3, 12},
		{6, 3, 13}, // one past the end counts the whole record
		{0, 5, 20},
		{2, 5, 20},
		{5, 5, 23},
		{0, 7, InvalidOffset},
		{7, 3, InvalidOffset},
	}
	for _, tt := range tests {
		if got := rec.lf(tt.i, tt.to); got != tt.want {
			t.Errorf("lf(%d, %d) = %d, want %d", tt.i, tt.to, got, tt.want)
		}
	}

	if node, offset := rec.lfEdge(6); node != InvalidNode || offset != InvalidOffset {
		t.Errorf("lfEdge(6) = (%d, %d), want invalid", node, offset)
	}
}

func TestRecordRecode(t *testing.T) {
	rec := record{
		outgoing: []edge{{node: 5, count: 20}, {node: 3, count: 10}},
		body:     []run{{rank: 0, length: 2}, {rank: 1, length: 3}},
		bodySize: 5,
	}

	rec.recode()

	wantOut := []edge{{node: 3, count: 10}, {node: 5, count: 20}}
	if !slices.Equal(rec.outgoing, wantOut) {
		t.Errorf("outgoing = %v, want %v", rec.outgoing, wantOut)
	}
	wantBody := []run{{rank: 1, length: 2}, {rank: 0, length: 3}}
	if !slices.Equal(rec.body, wantBody) {
		t.Errorf("body = %v, want %v", rec.body, wantBody)
	}

	// Recoding a sorted record is a no-op.
	before := slices.Clone(rec.body)
	rec.recode()
	if !slices.Equal(rec.body, before) {
		t.Errorf("recode of sorted record changed body: %v", rec.body)
	}
}

func TestRecordSamples(t *testing.T) {
	rec := record{
		ids:      []sample{{offset: 1, seq: 7}, {offset: 4, seq: 9}},
		bodySize: 6,
	}

	if offset, seq := rec.nextSample(0); offset != 1 || seq != 7 {
		t.Errorf("nextSample(0) = (%d, %d), want (1, 7)", offset, seq)
	}
	if offset, seq := rec.nextSample(2); offset != 4 || seq != 9 {
		t.Errorf("nextSample(2) = (%d, %d), want (4, 9)", offset, seq)
	}
	if offset, seq := rec.nextSample(5); offset != InvalidOffset || seq != InvalidSequence {
		t.Errorf("nextSample(5) = (%d, %d), want invalid", offset, seq)
	}

	if seq := rec.sampleAt(1); seq != 7 {
		t.Errorf("sampleAt(1) = %d, want 7", seq)
	}
	if seq := rec.sampleAt(2); seq != InvalidSequence {
		t.Errorf("sampleAt(2) = %d, want InvalidSequence", seq)
	}
}

func TestRunMerger(t *testing.T) {
	m := NewRunMerger(2)

	m.insertRank(0)
	m.insertRun(run{rank: 0, length: 3})
	m.insertRank(1)
	m.insertRun(run{rank: 1, length: 2})
	m.insertRun(run{rank: 0, length: 0}) // ignored

	if m.Size() != 7 {
		t.Errorf("Size = %d, want 7", m.Size())
	}
	if counts := m.Counts(); counts[0] != 4 || counts[1] != 3 {
		t.Errorf("Counts = %v, want [4 3]", counts)
	}

	m.addEdge()
	m.insertRank(2)
	if counts := m.Counts(); counts[2] != 1 {
		t.Errorf("Counts[2] = %d, want 1", counts[2])
	}

	var rec record
	m.swapBody(&rec)

	want := []run{{rank: 0, length: 4}, {rank: 1, length: 3}, {rank: 2, length: 1}}
	if !slices.Equal(rec.body, want) {
		t.Errorf("body = %v, want %v", rec.body, want)
	}
	if rec.size() != 8 {
		t.Errorf("size = %d, want 8", rec.size())
	}
}
