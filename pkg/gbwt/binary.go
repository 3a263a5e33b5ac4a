package gbwt

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"log"
	"os"
)

const (
	magicBytes = "GRAPHBWT"
	version    = uint32(1)

	// Extension is the conventional suffix of serialized index files.
	Extension = ".gbwt"
)

// fileHeader is the fixed little-endian binary header.
type fileHeader struct {
	Magic        [8]byte
	Version      uint32
	Flags        uint64
	Size         uint64
	Sequences    uint64
	AlphabetSize uint64
	Offset       uint64
}

// Serialize writes the index to w: header, record array (ByteCode blob
// limits, then one blob per record), sample array, CRC32 trailer. The index
// must be recoded first; unsorted outgoing edges are an error.
func (g *DynamicGBWT) Serialize(w io.Writer) error {
	for i := range g.records {
		out := g.records[i].outgoing
		for k := 1; k < len(out); k++ {
			if out[k-1].node >= out[k].node {
				return fmt.Errorf("gbwt: record %d has unsorted outgoing edges, recode the index first", i)
			}
		}
	}

	cw := &crc32Writer{w: w, hash: crc32.NewIEEE()}

	hdr := fileHeader{
		Version:      version,
		Flags:        g.header.flags,
		Size:         g.header.size,
		Sequences:    g.header.sequences,
		AlphabetSize: g.header.alphabetSize,
		Offset:       g.header.offset,
	}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(cw, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	blobs := make([][]byte, len(g.records))
	var limits []byte
	for i := range g.records {
		blobs[i] = encodeRecord(&g.records[i])
		limits = byteCodeAppend(limits, uint64(len(blobs[i])))
	}
	if _, err := cw.Write(limits); err != nil {
		return fmt.Errorf("write record limits: %w", err)
	}
	for i, blob := range blobs {
		if _, err := cw.Write(blob); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}

	var samples []byte
	for i := range g.records {
		samples = encodeSamples(samples, g.records[i].ids)
	}
	if _, err := cw.Write(samples); err != nil {
		return fmt.Errorf("write samples: %w", err)
	}

	if err := binary.Write(w, binary.LittleEndian, cw.hash.Sum32()); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}
	return nil
}

// Load reads an index serialized by Serialize. A bad magic, version, or
// checksum is an error. Incoming edges and body sizes are rebuilt from the
// decoded bodies.
func Load(r io.Reader) (*DynamicGBWT, error) {
	cr := &crc32Reader{r: r, hash: crc32.NewIEEE()}

	var hdr fileHeader
	if err := binary.Read(cr, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("invalid magic bytes: %q", hdr.Magic)
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("unsupported version: %d", hdr.Version)
	}
	if hdr.AlphabetSize == 0 || hdr.Offset >= hdr.AlphabetSize {
		return nil, fmt.Errorf("invalid alphabet: size %d, offset %d", hdr.AlphabetSize, hdr.Offset)
	}

	g := &DynamicGBWT{
		header: header{
			size:         hdr.Size,
			sequences:    hdr.Sequences,
			alphabetSize: hdr.AlphabetSize,
			offset:       hdr.Offset,
			flags:        hdr.Flags,
		},
		records: make([]record, hdr.AlphabetSize-hdr.Offset),
	}

	limits := make([]uint64, len(g.records))
	for i := range limits {
		n, err := readByteCode(cr)
		if err != nil {
			return nil, fmt.Errorf("read record limits: %w", err)
		}
		limits[i] = n
	}
	for i := range g.records {
		blob := make([]byte, limits[i])
		if _, err := io.ReadFull(cr, blob); err != nil {
			return nil, fmt.Errorf("read record %d: %w", i, err)
		}
		if err := decodeRecord(&g.records[i], blob); err != nil {
			return nil, fmt.Errorf("decode record %d: %w", i, err)
		}
	}
	for i := range g.records {
		if err := decodeSamples(&g.records[i], cr); err != nil {
			return nil, fmt.Errorf("read samples of record %d: %w", i, err)
		}
	}

	expected := cr.hash.Sum32()
	var stored uint32
	if err := binary.Read(r, binary.LittleEndian, &stored); err != nil {
		return nil, fmt.Errorf("read CRC32: %w", err)
	}
	if stored != expected {
		return nil, fmt.Errorf("CRC32 mismatch: stored=%08x computed=%08x", stored, expected)
	}

	g.rebuildIncoming()
	return g, nil
}

// rebuildIncoming recomputes every record's incoming edge counts from the
// decoded bodies. Occurrences followed by the endmarker are not recorded.
func (g *DynamicGBWT) rebuildIncoming() {
	for comp := range g.records {
		node := g.compToNode(uint64(comp))
		rec := &g.records[comp]
		for _, rn := range rec.body {
			succ := rec.successor(rn.rank)
			if succ == Endmarker {
				continue
			}
			to := g.record(succ)
			found := false
			for k := range to.incoming {
				if to.incoming[k].node == node {
					to.incoming[k].count += rn.length
					found = true
					break
				}
			}
			if !found {
				to.addIncoming(edge{node: node, count: rn.length})
			}
		}
	}
}

// encodeRecord packs one record into a blob: ByteCode outdegree, then per
// edge the gap to the previous successor id and the ByteCode edge offset,
// then the run codec body.
func encodeRecord(rec *record) []byte {
	blob := byteCodeAppend(nil, uint64(rec.outdegree()))
	var prev uint64
	for _, e := range rec.outgoing {
		blob = byteCodeAppend(blob, e.node-prev)
		blob = byteCodeAppend(blob, e.count)
		prev = e.node
	}
	codec := newRunCodec(rec.outdegree())
	for _, rn := range rec.body {
		blob = codec.append(blob, rn)
	}
	return blob
}

// decodeRecord is the inverse of encodeRecord. The body size is rebuilt
// from the run lengths.
func decodeRecord(rec *record, blob []byte) error {
	outdegree, pos, err := byteCodeRead(blob, 0)
	if err != nil {
		return err
	}
	rec.outgoing = make([]edge, 0, outdegree)
	var prev uint64
	for k := uint64(0); k < outdegree; k++ {
		gap, next, err := byteCodeRead(blob, pos)
		if err != nil {
			return err
		}
		count, next, err := byteCodeRead(blob, next)
		if err != nil {
			return err
		}
		prev += gap
		rec.outgoing = append(rec.outgoing, edge{node: prev, count: count})
		pos = next
	}
	codec := newRunCodec(int(outdegree))
	for pos < len(blob) {
		rn, next, err := codec.read(blob, pos)
		if err != nil {
			return err
		}
		if rn.rank >= int(outdegree) {
			return fmt.Errorf("gbwt: run rank %d out of range for outdegree %d", rn.rank, outdegree)
		}
		rec.body = append(rec.body, rn)
		rec.bodySize += rn.length
		pos = next
	}
	return nil
}

// encodeSamples appends one record's sample list: ByteCode count, then per
// sample the gap to the previous offset and the ByteCode sequence id.
func encodeSamples(buf []byte, ids []sample) []byte {
	buf = byteCodeAppend(buf, uint64(len(ids)))
	var prev uint64
	for _, s := range ids {
		buf = byteCodeAppend(buf, s.offset-prev)
		buf = byteCodeAppend(buf, s.seq)
		prev = s.offset
	}
	return buf
}

func decodeSamples(rec *record, r io.Reader) error {
	count, err := readByteCode(r)
	if err != nil {
		return err
	}
	var prev uint64
	rec.ids = make([]sample, 0, count)
	for k := uint64(0); k < count; k++ {
		gap, err := readByteCode(r)
		if err != nil {
			return err
		}
		seq, err := readByteCode(r)
		if err != nil {
			return err
		}
		prev += gap
		rec.ids = append(rec.ids, sample{offset: prev, seq: seq})
	}
	return nil
}

// readByteCode reads one ByteCode varint from a stream.
func readByteCode(r io.Reader) (uint64, error) {
	var value uint64
	var shift uint
	var buf [1]byte
	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		value |= uint64(buf[0]&0x7F) << shift
		if buf[0]&0x80 == 0 {
			return value, nil
		}
		shift += 7
	}
}

// WriteFile serializes the index to path via a temporary file and an atomic
// rename.
func (g *DynamicGBWT) WriteFile(path string) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath) // clean up on error
	}()

	if err := g.Serialize(f); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	if verbose(VerbosityBasic) {
		log.Printf("wrote %s: %d sequences, %d nodes", path, g.Sequences(), g.Size())
	}
	return nil
}

// ReadFile loads an index from path.
func ReadFile(path string) (*DynamicGBWT, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	return Load(f)
}

type crc32Writer struct {
	w    io.Writer
	hash crc32Hash
}

type crc32Hash interface {
	Write([]byte) (int, error)
	Sum32() uint32
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crc32Reader struct {
	r    io.Reader
	hash crc32Hash
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
