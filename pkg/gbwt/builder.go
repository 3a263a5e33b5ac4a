package gbwt

import "log"

// DefaultBufferSize is the Builder buffer capacity used when none is given,
// in nodes.
const DefaultBufferSize = 100_000_000

// Builder batches sequence insertions into an index. Insertions accumulate
// in an input buffer; when it fills, the buffer is handed to a background
// worker that runs the batch insertion while the caller keeps appending.
// At most one worker is ever in flight, and the index belongs to the worker
// between Flush and the next join.
//
// A Builder is not safe for concurrent use.
type Builder struct {
	index        *DynamicGBWT
	input        []uint64
	construction []uint64
	done         chan error
	err          error
}

// NewBuilder returns a Builder inserting into index. A nil index starts a
// new one; a zero buffer size selects DefaultBufferSize.
func NewBuilder(index *DynamicGBWT, bufferSize uint64) *Builder {
	if index == nil {
		index = New()
	}
	if bufferSize == 0 {
		bufferSize = DefaultBufferSize
	}
	return &Builder{
		index:        index,
		input:        make([]uint64, 0, bufferSize),
		construction: make([]uint64, 0, bufferSize),
	}
}

// Insert appends one sequence to the input buffer, flushing first if it
// does not fit. With bothOrientations the reverse orientation is appended
// as well. A sequence too long for the buffer is logged and skipped.
func (b *Builder) Insert(seq []uint64, bothOrientations bool) {
	space := uint64(len(seq)) + 1
	if bothOrientations {
		space *= 2
	}
	if space > uint64(cap(b.input)) {
		log.Printf("builder: skipping sequence of length %d, buffer holds %d", len(seq), cap(b.input))
		return
	}
	if uint64(len(b.input))+space > uint64(cap(b.input)) {
		b.Flush()
	}
	b.input = append(b.input, seq...)
	b.input = append(b.input, Endmarker)
	if bothOrientations {
		for i := len(seq) - 1; i >= 0; i-- {
			b.input = append(b.input, Reverse(seq[i]))
		}
		b.input = append(b.input, Endmarker)
	}
}

// Flush waits for the running worker, swaps the buffers, and starts a new
// worker on the buffered input.
func (b *Builder) Flush() {
	b.join()
	b.input, b.construction = b.construction[:0], b.input
	if len(b.construction) == 0 {
		return
	}
	batch := b.construction
	b.done = make(chan error, 1)
	go func() {
		b.done <- b.index.insertText(batch)
	}()
}

// join blocks until the worker in flight, if any, has finished. The first
// worker error is kept and surfaced by Finish.
func (b *Builder) join() {
	if b.done == nil {
		return
	}
	if err := <-b.done; err != nil && b.err == nil {
		b.err = err
	}
	b.done = nil
}

// Finish inserts the remaining buffered input, waits for the worker, and
// recodes the index. After Finish the index is ready for serialization.
func (b *Builder) Finish() error {
	b.Flush()
	b.join()
	if b.err != nil {
		return b.err
	}
	b.index.recode()
	return nil
}

// Index returns the index under construction. The caller must not use it
// between Flush and Finish.
func (b *Builder) Index() *DynamicGBWT { return b.index }
