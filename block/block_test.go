package block

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/pingpengyao/cryfa"
	"github.com/pingpengyao/cryfa/codec"
)

type fakeLogger struct {
	warnings []string
}

func (f *fakeLogger) Warnf(format string, args ...interface{}) {
	f.warnings = append(f.warnings, fmt.Sprintf(format, args...))
}

func newWriter(threshold uint64) *Writer {
	return NewWriter(codec.NewIDEncoder(), codec.NewAuxEncoder(), codec.NewSeqEncoder(), codec.NewQualEncoder(), threshold, 0)
}

func newReader(logger Logger) *Reader {
	return NewReader(codec.NewIDDecoder(), codec.NewAuxDecoder(), codec.NewSeqDecoder(), codec.NewQualDecoder(), logger)
}

func readAll(t *testing.T, r *Reader, in *bytes.Reader) []cryfa.Read {
	t.Helper()
	var all []cryfa.Read
	for {
		end, err := r.ReadHeader(in)
		if err != nil {
			t.Fatalf("ReadHeader: %v", err)
		}
		if end {
			break
		}
		for r.ReadsRemaining() > 0 {
			reads, err := r.DecodeChunk()
			if err != nil {
				t.Fatalf("DecodeChunk: %v", err)
			}
			all = append(all, reads...)
		}
	}
	return all
}

func writeTerminator(t *testing.T, buf *bytes.Buffer) {
	t.Helper()
	if err := wireUint32Zero(buf); err != nil {
		t.Fatal(err)
	}
}

func TestSingleBlockSingleChunk(t *testing.T) {
	w := newWriter(DefaultThreshold)
	var buf bytes.Buffer

	for i := 0; i < 10; i++ {
		r := cryfa.Read{
			ID:   []byte(fmt.Sprintf("r%d", i+1)),
			Seq:  []byte("ACGT"),
			Qual: []byte("IIII"),
		}
		if err := w.Admit(&buf, r); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.FlushChunk(); err != nil {
		t.Fatal(err)
	}
	if err := w.FlushBlock(&buf); err != nil {
		t.Fatal(err)
	}
	writeTerminator(t, &buf)

	if w.readlen.Len() != 0 {
		t.Fatalf("writer readlen state leaked across flush: %+v", w.readlen)
	}

	logger := &fakeLogger{}
	reader := newReader(logger)
	got := readAll(t, reader, bytes.NewReader(buf.Bytes()))

	if len(got) != 10 {
		t.Fatalf("got %d reads, want 10", len(got))
	}
	for i, r := range got {
		if string(r.ID) != fmt.Sprintf("r%d", i+1) {
			t.Fatalf("read %d id = %q", i, r.ID)
		}
		if string(r.Seq) != "ACGT" || string(r.Qual) != "IIII" {
			t.Fatalf("read %d seq/qual = %q/%q", i, r.Seq, r.Qual)
		}
	}
	if len(logger.warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", logger.warnings)
	}
}

func TestVariableLengthReadlenRLE(t *testing.T) {
	w := newWriter(DefaultThreshold)
	lengths := []int{50, 51, 50, 51}
	for _, n := range lengths {
		seq := bytes.Repeat([]byte("A"), n)
		qual := bytes.Repeat([]byte("I"), n)
		if err := w.Admit(&bytes.Buffer{}, cryfa.Read{ID: []byte("x"), Seq: seq, Qual: qual}); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.FlushChunk(); err != nil {
		t.Fatal(err)
	}

	if w.readlen.Len() != 4 {
		t.Fatalf("readlen RLE collapsed: %+v", w.readlen)
	}
	for i, want := range lengths {
		if w.readlen.Values[i] != uint32(want) || w.readlen.Runs[i] != 1 {
			t.Fatalf("entry %d = (%d,%d), want (%d,1)", i, w.readlen.Values[i], w.readlen.Runs[i], want)
		}
	}
}

func TestQualSchemeShiftMidStream(t *testing.T) {
	w := newWriter(DefaultThreshold)
	var buf bytes.Buffer

	admit := func(base byte, n int) {
		for i := 0; i < n; i++ {
			q := make([]byte, 10)
			for j := range q {
				q[j] = base + byte(j*40/9) // spans [base, base+40]
			}
			if err := w.Admit(&buf, cryfa.Read{ID: []byte("x"), Seq: bytes.Repeat([]byte("A"), 10), Qual: q}); err != nil {
				t.Fatal(err)
			}
		}
	}
	admit('#', 100)
	if err := w.FlushChunk(); err != nil { // the shift begins at a new chunk
		t.Fatal(err)
	}
	admit('@', 100)
	if err := w.FlushChunk(); err != nil {
		t.Fatal(err)
	}

	if w.qualScheme.Len() != 2 {
		t.Fatalf("qual_scheme RLE = %+v, want 2 entries", w.qualScheme)
	}
	if w.qualScheme.Values[0] != '#' || w.qualScheme.Runs[0] != 100 {
		t.Fatalf("entry 0 = (%c,%d)", w.qualScheme.Values[0], w.qualScheme.Runs[0])
	}
	if w.qualScheme.Values[1] != '@' || w.qualScheme.Runs[1] != 100 {
		t.Fatalf("entry 1 = (%c,%d)", w.qualScheme.Values[1], w.qualScheme.Runs[1])
	}
}

func TestCRCCorruptionEmitsExactlyOneWarning(t *testing.T) {
	w := newWriter(1) // force a block boundary after the first chunk
	var buf bytes.Buffer

	writeBlock := func(seed byte) {
		for i := 0; i < 5; i++ {
			r := cryfa.Read{
				ID:   []byte{'r', seed, byte('0' + i)},
				Seq:  []byte("ACGTACGTAC"),
				Qual: bytes.Repeat([]byte{'I'}, 10),
			}
			if err := w.Admit(&buf, r); err != nil {
				t.Fatal(err)
			}
		}
		if err := w.FlushChunk(); err != nil {
			t.Fatal(err)
		}
		if err := w.FlushBlock(&buf); err != nil {
			t.Fatal(err)
		}
	}
	writeBlock(1) // block 1
	writeBlock(2) // block 2
	writeTerminator(t, &buf)

	raw := buf.Bytes()
	// Corrupt one byte inside block 2's qual payload. Block 2's header
	// starts after block 1's entire framed segment and block 1's own
	// header/payload bytes; flipping the last byte of the buffer before
	// the terminator lands inside block 2's qual payload, which is
	// always the final field written.
	corruptIdx := len(raw) - 5 // 4-byte terminator plus one payload byte
	raw[corruptIdx] ^= 0xFF

	logger := &fakeLogger{}
	reader := newReader(logger)
	_ = readAll(t, reader, bytes.NewReader(raw))

	if len(logger.warnings) != 1 {
		t.Fatalf("got %d warnings, want exactly 1: %v", len(logger.warnings), logger.warnings)
	}
}

func TestBlockBoundaryCarriesSchemeForward(t *testing.T) {
	w := newWriter(1)
	var buf bytes.Buffer

	mkRead := func(q byte) cryfa.Read {
		return cryfa.Read{ID: []byte("x"), Seq: []byte("AC"), Qual: []byte{q, q}}
	}

	for i := 0; i < 3; i++ {
		if err := w.Admit(&buf, mkRead('I')); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.FlushChunk(); err != nil {
		t.Fatal(err)
	}
	if err := w.FlushBlock(&buf); err != nil {
		t.Fatal(err)
	}

	if w.qualScheme.Len() != 1 || w.qualScheme.Runs[0] != 0 {
		t.Fatalf("carry-over sentinel = %+v, want single zero-run entry", w.qualScheme)
	}
	if w.qualScheme.Values[0] != 'I' {
		t.Fatalf("carry-over base = %c, want I", w.qualScheme.Values[0])
	}

	for i := 0; i < 3; i++ {
		if err := w.Admit(&buf, mkRead('I')); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.FlushChunk(); err != nil {
		t.Fatal(err)
	}
	if w.qualScheme.Len() != 1 || w.qualScheme.Runs[0] != 3 {
		t.Fatalf("second chunk should extend carried scheme, got %+v", w.qualScheme)
	}
}

func TestQualSchemeOverflowIsFatal(t *testing.T) {
	w := newWriter(DefaultThreshold)
	r := cryfa.Read{ID: []byte("x"), Seq: []byte("AA"), Qual: []byte{10, 200}}
	if err := w.Admit(&bytes.Buffer{}, r); err != nil {
		t.Fatal(err)
	}
	if err := w.FlushChunk(); err == nil {
		t.Fatal("expected ErrQualSchemeOverflow, got nil")
	}
}

func wireUint32Zero(buf *bytes.Buffer) error {
	var b [4]byte
	_, err := buf.Write(b[:])
	return err
}
