package gbwt

import (
	"math"
	"testing"
)

func TestByteCodeRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 255, 16383, 16384, 1 << 40, math.MaxUint64}

	var buf []byte
	for _, v := range values {
		buf = byteCodeAppend(buf, v)
	}

	pos := 0
	for _, want := range values {
		got, next, err := byteCodeRead(buf, pos)
		if err != nil {
			t.Fatalf("byteCodeRead at %d: %v", pos, err)
		}
		if got != want {
			t.Errorf("byteCodeRead = %d, want %d", got, want)
		}
		pos = next
	}
	if pos != len(buf) {
		t.Errorf("consumed %d bytes, buffer holds %d", pos, len(buf))
	}
}

func TestByteCodeTruncated(t *testing.T) {
	buf := byteCodeAppend(nil, 300)
	if _, _, err := byteCodeRead(buf[:len(buf)-1], 0); err == nil {
		t.Fatal("expected error for truncated varint")
	}
}

func TestRunCodecRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		outdegree int
		runs      []run
	}{
		{
			name:      "small alphabet",
			outdegree: 3,
			runs:      []run{{rank: 0, length: 1}, {rank: 2, length: 84}, {rank: 1, length: 85}, {rank: 0, length: 1000}},
		},
		{
			name:      "unary alphabet",
			outdegree: 1,
			runs:      []run{{rank: 0, length: 255}, {rank: 0, length: 256}, {rank: 0, length: 300}},
		},
		{
			name:      "large alphabet",
			outdegree: 300,
			runs:      []run{{rank: 0, length: 1}, {rank: 257, length: 5}, {rank: 299, length: 1 << 20}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codec := newRunCodec(tt.outdegree)

			var buf []byte
			for _, rn := range tt.runs {
				buf = codec.append(buf, rn)
			}

			pos := 0
			for _, want := range tt.runs {
				got, next, err := codec.read(buf, pos)
				if err != nil {
					t.Fatalf("read at %d: %v", pos, err)
				}
				if got != want {
					t.Errorf("read = %+v, want %+v", got, want)
				}
				pos = next
			}
			if pos != len(buf) {
				t.Errorf("consumed %d bytes, buffer holds %d", pos, len(buf))
			}
		})
	}
}

func TestRunCodecShortRunIsOneByte(t *testing.T) {
	codec := newRunCodec(3)
	buf := codec.append(nil, run{rank: 1, length: 10})
	if len(buf) != 1 {
		t.Errorf("short run encoded in %d bytes, want 1", len(buf))
	}
}

func TestRecordBlobRoundTrip(t *testing.T) {
	rec := record{
		outgoing: []edge{{node: 3, count: 0}, {node: 5, count: 17}, {node: 900, count: 2}},
		body:     []run{{rank: 0, length: 2}, {rank: 2, length: 1}, {rank: 1, length: 400}},
		bodySize: 403,
	}

	blob := encodeRecord(&rec)

	var got record
	if err := decodeRecord(&got, blob); err != nil {
		t.Fatalf("decodeRecord: %v", err)
	}
	if len(got.outgoing) != len(rec.outgoing) {
		t.Fatalf("outdegree = %d, want %d", len(got.outgoing), len(rec.outgoing))
	}
	for i := range rec.outgoing {
		if got.outgoing[i] != rec.outgoing[i] {
			t.Errorf("outgoing[%d] = %v, want %v", i, got.outgoing[i], rec.outgoing[i])
		}
	}
	for i := range rec.body {
		if got.body[i] != rec.body[i] {
			t.Errorf("body[%d] = %v, want %v", i, got.body[i], rec.body[i])
		}
	}
	if got.bodySize != rec.bodySize {
		t.Errorf("bodySize = %d, want %d", got.bodySize, rec.bodySize)
	}
}
