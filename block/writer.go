package block

import (
	"hash"
	"hash/crc64"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/pingpengyao/cryfa"
	"github.com/pingpengyao/cryfa/chunk"
	"github.com/pingpengyao/cryfa/codec"
	"github.com/pingpengyao/cryfa/rle"
	"github.com/pingpengyao/cryfa/wire"
)

// Writer drives the compressor side of the block pipeline: reads are
// admitted one at a time, staged in a chunk buffer, encoded four-way in
// parallel at chunk boundaries, and framed onto the wire at block
// boundaries.
type Writer struct {
	idEnc   codec.IDEncoder
	auxEnc  codec.AuxEncoder
	seqEnc  codec.SeqEncoder
	qualEnc codec.QualEncoder

	threshold uint64
	chunkCap  int

	chunkBuf chunk.Buffer

	bufferedReads uint64
	bufferedBases uint64
	uncompressed  [numFields]uint64
	crcs          [numFields]hash.Hash64

	readlen    rle.List[uint32]
	qualScheme rle.List[byte]
	activeBase byte
}

// NewWriter returns a block writer bound to the four given field
// codecs, with the given BLOCK_THRESHOLD (in uncompressed sequence
// bases) and a chunk-flush trigger of chunkCap reads. A chunkCap
// outside [1, chunk.Cap], including 0, selects chunk.Cap:
// chunk.Buffer's backing array is fixed at CHUNK_CAP, so a smaller
// chunkCap only flushes earlier, it never grows the array.
func NewWriter(idEnc codec.IDEncoder, auxEnc codec.AuxEncoder, seqEnc codec.SeqEncoder, qualEnc codec.QualEncoder, threshold uint64, chunkCap int) *Writer {
	if chunkCap <= 0 || chunkCap > chunk.Cap {
		chunkCap = chunk.Cap
	}
	w := &Writer{
		idEnc:     idEnc,
		auxEnc:    auxEnc,
		seqEnc:    seqEnc,
		qualEnc:   qualEnc,
		threshold: threshold,
		chunkCap:  chunkCap,
		// Initial qual_scheme state: active base is '!' with a
		// run of 0.
		activeBase: '!',
	}
	w.resetCRCs()
	return w
}

func (w *Writer) resetCRCs() {
	for i := range w.crcs {
		w.crcs[i] = crc64.New(ecmaTable)
	}
}

// Admit applies the admission algorithm for one read, flushing the
// current block or chunk first if either is full.
func (w *Writer) Admit(out io.Writer, r cryfa.Read) error {
	if w.bufferedBases > w.threshold {
		if err := w.FlushBlock(out); err != nil {
			return errors.Wrap(err, "block: flush block on admission")
		}
	}
	if w.chunkBuf.Len() >= w.chunkCap {
		if err := w.FlushChunk(); err != nil {
			return errors.Wrap(err, "block: flush chunk on admission")
		}
	}
	w.chunkBuf.Add(r)
	return nil
}

// PendingReads reports whether any reads are staged in the chunk buffer
// or accounted into the current block, i.e. whether a Close needs to
// flush anything.
func (w *Writer) PendingReads() bool {
	return w.chunkBuf.Len() > 0 || w.bufferedReads > 0
}

// FlushChunk runs the chunk-flush algorithm: scheme-guess update,
// four-way parallel encode, and accounting. It is a no-op on an empty
// chunk buffer.
func (w *Writer) FlushChunk() error {
	slots := w.chunkBuf.Slots()
	n := len(slots)
	if n == 0 {
		return nil
	}

	if err := w.updateScheme(slots); err != nil {
		return err
	}

	var wg sync.WaitGroup
	var errs [numFields]error
	wg.Add(numFields)
	go func() { defer wg.Done(); errs[fieldID] = w.encodeID(slots) }()
	go func() { defer wg.Done(); errs[fieldAux] = w.encodeAux(slots) }()
	go func() { defer wg.Done(); errs[fieldSeq] = w.encodeSeq(slots) }()
	go func() { defer wg.Done(); errs[fieldQual] = w.encodeQual(slots) }()
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			return errors.Wrapf(ErrCodecFailure, "block: %s worker: %v", fieldNames[i], err)
		}
	}

	var chunkBases uint64
	for _, r := range slots {
		w.uncompressed[fieldID] += uint64(len(r.ID))
		w.uncompressed[fieldAux] += uint64(r.AuxBytes())
		w.uncompressed[fieldSeq] += uint64(len(r.Seq))
		w.uncompressed[fieldQual] += uint64(len(r.Qual))
		w.readlen.Append(uint32(len(r.Seq)), 1)
		chunkBases += uint64(len(r.Seq))
	}
	w.bufferedReads += uint64(n)
	w.bufferedBases += chunkBases

	w.chunkBuf.Reset()
	return nil
}

func (w *Writer) encodeID(slots []cryfa.Read) error {
	for _, r := range slots {
		if err := w.idEnc.Encode(r.ID); err != nil {
			return err
		}
		w.crcs[fieldID].Write(r.ID)
	}
	return nil
}

func (w *Writer) encodeAux(slots []cryfa.Read) error {
	for _, r := range slots {
		if err := w.auxEnc.Encode(r.Aux); err != nil {
			return err
		}
		w.crcs[fieldAux].Write(auxRawBytes(r.Aux))
	}
	return nil
}

func (w *Writer) encodeSeq(slots []cryfa.Read) error {
	for _, r := range slots {
		if err := w.seqEnc.Encode(r.Seq); err != nil {
			return err
		}
		w.crcs[fieldSeq].Write(r.Seq)
	}
	return nil
}

func (w *Writer) encodeQual(slots []cryfa.Read) error {
	for _, r := range slots {
		if err := w.qualEnc.Encode(r.Qual); err != nil {
			return err
		}
		w.crcs[fieldQual].Write(r.Qual)
	}
	return nil
}

// updateScheme applies the scheme-update rule. The first-ever chunk always opens
// a scheme entry (the qual_scheme list starts empty, so there is no
// prior run to extend), which is what produces the documented boundary
// scenario of the active base jumping straight from '!' to the first
// chunk's observed minimum.
func (w *Writer) updateScheme(slots []cryfa.Read) error {
	var min, max byte
	found := false
	for _, r := range slots {
		for _, q := range r.Qual {
			if !found {
				min, max = q, q
				found = true
				continue
			}
			if q < min {
				min = q
			}
			if q > max {
				max = q
			}
		}
	}

	n := uint32(len(slots))
	if !found {
		w.qualScheme.Append(w.activeBase, n)
		w.qualEnc.SetBaseQual(w.activeBase)
		return nil
	}

	if min < 33 || max > 126 {
		return errors.Wrapf(ErrQualSchemeOverflow, "block: quality byte outside [33,126]: min=%d max=%d", min, max)
	}
	if int(max)-int(min) > 127 {
		return errors.Wrapf(ErrQualSchemeOverflow, "block: quality range %d exceeds sanity bound", int(max)-int(min))
	}

	if w.qualScheme.Len() == 0 || min < w.activeBase || int(max) >= int(w.activeBase)+QualWindow {
		w.activeBase = min
	}
	w.qualScheme.Append(w.activeBase, n)
	w.qualEnc.SetBaseQual(w.activeBase)
	return nil
}

// FlushBlock runs the block-flush algorithm. It is a no-op if no
// reads have been accounted into the current block.
func (w *Writer) FlushBlock(out io.Writer) error {
	if w.bufferedReads == 0 {
		return nil
	}

	if err := wire.PutUint32(out, uint32(w.bufferedReads)); err != nil {
		return err
	}
	if err := wire.PutUint32(out, uint32(w.bufferedBases)); err != nil {
		return err
	}
	if err := rle.WriteUint32(out, &w.readlen); err != nil {
		return errors.Wrap(err, "block: write readlen rle")
	}
	if err := rle.WriteByte(out, &w.qualScheme); err != nil {
		return errors.Wrap(err, "block: write qual_scheme rle")
	}

	idComp, err := w.idEnc.Finish()
	if err != nil {
		return errors.Wrap(err, "block: finish id codec")
	}
	auxComp, err := w.auxEnc.Finish()
	if err != nil {
		return errors.Wrap(err, "block: finish aux codec")
	}
	seqComp, err := w.seqEnc.Finish()
	if err != nil {
		return errors.Wrap(err, "block: finish seq codec")
	}
	qualComp, err := w.qualEnc.Finish()
	if err != nil {
		return errors.Wrap(err, "block: finish qual codec")
	}
	compressed := [numFields]int{idComp, auxComp, seqComp, qualComp}

	for i := 0; i < numFields; i++ {
		if err := wire.PutUint32(out, uint32(w.uncompressed[i])); err != nil {
			return err
		}
		if err := wire.PutUint32(out, uint32(compressed[i])); err != nil {
			return err
		}
		if err := wire.PutUint64(out, w.crcs[i].Sum64()); err != nil {
			return err
		}
	}

	if err := w.idEnc.Flush(out); err != nil {
		return errors.Wrap(err, "block: flush id payload")
	}
	if err := w.auxEnc.Flush(out); err != nil {
		return errors.Wrap(err, "block: flush aux payload")
	}
	if err := w.seqEnc.Flush(out); err != nil {
		return errors.Wrap(err, "block: flush seq payload")
	}
	if err := w.qualEnc.Flush(out); err != nil {
		return errors.Wrap(err, "block: flush qual payload")
	}

	w.bufferedReads = 0
	w.bufferedBases = 0
	w.uncompressed = [numFields]uint64{}
	w.resetCRCs()
	w.readlen.Reset()

	lastBase := w.activeBase
	w.qualScheme.Reset()
	w.qualScheme.SeedCarryOver(lastBase)

	return nil
}

func auxRawBytes(tags []cryfa.Tag) []byte {
	if len(tags) == 0 {
		return nil
	}
	var n int
	for _, t := range tags {
		n += 3 + len(t.Value)
	}
	out := make([]byte, 0, n)
	for _, t := range tags {
		out = append(out, t.Key[0], t.Key[1], t.Type)
		out = append(out, t.Value...)
	}
	return out
}
