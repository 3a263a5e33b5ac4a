package gbwt

import (
	"slices"
	"testing"
)

func TestSampleIntervalOverride(t *testing.T) {
	old := sampleInterval
	sampleInterval = 2
	defer func() { sampleInterval = old }()

	g := New()
	if err := g.Insert([]uint64{1, 2, 3, 4, 5, Endmarker}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// The endmarker write is iteration 1, so even iterations sample the
	// records of nodes 1 and 3; node 5 gets the mandatory terminal sample.
	wantSampled := map[uint64]bool{1: true, 2: false, 3: true, 4: false, 5: true}
	for node, want := range wantSampled {
		got := g.TryLocate(node, 0) != InvalidSequence
		if got != want {
			t.Errorf("node %d sampled = %v, want %v", node, got, want)
		}
	}
	if g.Samples() != 3 {
		t.Errorf("Samples = %d, want 3", g.Samples())
	}
}

func TestTerminalSamplePlacement(t *testing.T) {
	g := New()
	if err := g.Insert([]uint64{3, 5, Endmarker}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// The terminal sample lives in the record of the last real node, at the
	// position whose successor is the endmarker.
	if seq := g.TryLocate(5, 0); seq != 0 {
		t.Errorf("TryLocate(5, 0) = %d, want 0", seq)
	}
	if seq := g.TryLocate(Endmarker, 0); seq != InvalidSequence {
		t.Errorf("TryLocate(Endmarker, 0) = %d, want InvalidSequence", seq)
	}
	if g.Samples() != 1 {
		t.Errorf("Samples = %d, want 1", g.Samples())
	}
}

func TestResizeGrowsDownward(t *testing.T) {
	g := New()
	if err := g.Insert([]uint64{5, 6, Endmarker}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if g.AlphabetOffset() != 4 || g.Sigma() != 7 {
		t.Fatalf("alphabet = (%d, %d), want (4, 7)", g.AlphabetOffset(), g.Sigma())
	}

	// A second batch with smaller node ids extends the alphabet downward
	// without touching existing records.
	if err := g.Insert([]uint64{2, 3, Endmarker}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if g.AlphabetOffset() != 1 || g.Sigma() != 7 {
		t.Errorf("alphabet = (%d, %d), want (1, 7)", g.AlphabetOffset(), g.Sigma())
	}
	for _, node := range []uint64{2, 3, 5, 6} {
		if g.Count(node) != 1 {
			t.Errorf("Count(%d) = %d, want 1", node, g.Count(node))
		}
	}
	if err := g.Verify(); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestInsertNotTerminated(t *testing.T) {
	g := New()
	if err := g.Insert([]uint64{1, 2}); err == nil {
		t.Fatal("expected error for text without a trailing endmarker")
	}
}

func TestSortSequencesDropsFinished(t *testing.T) {
	seqs := []Sequence{
		{ID: 0, Curr: 3, Next: 5, Offset: 2},
		{ID: 1, Curr: 4, Next: Endmarker, Offset: 0},
		{ID: 2, Curr: 3, Next: 5, Offset: 1},
	}

	got := sortSequences(seqs)

	if len(got) != 2 {
		t.Fatalf("kept %d cursors, want 2", len(got))
	}
	want := []Sequence{
		{ID: 2, Curr: 3, Next: 5, Offset: 1},
		{ID: 0, Curr: 3, Next: 5, Offset: 2},
	}
	if !slices.Equal(got, want) {
		t.Errorf("sorted = %v, want %v", got, want)
	}
}

func TestStartNodesOrder(t *testing.T) {
	g := New()
	if err := g.Insert([]uint64{2, 4, Endmarker, 3, Endmarker, 2, Endmarker}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	want := []uint64{2, 3, 2}
	if got := g.StartNodes(); !slices.Equal(got, want) {
		t.Errorf("StartNodes = %v, want %v", got, want)
	}
}
