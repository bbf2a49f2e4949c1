package block

import (
	"bytes"
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

// Reader drives the decompressor side of the block pipeline: it parses
// one block header at a time, then serves its reads in chunk-sized
// batches via a four-way parallel decode.
type Reader struct {
	idDec   codec.IDDecoder
	auxDec  codec.AuxDecoder
	seqDec  codec.SeqDecoder
	qualDec codec.QualDecoder
	logger  Logger

	blockIndex int

	readsInBlock uint32
	readsServed  uint32

	readlenList    *rle.List[uint32]
	qualSchemeList *rle.List[byte]
	readlenCursor  *rle.Cursor[uint32]
	schemeCursor   *rle.Cursor[byte]

	expectedCRC [numFields]uint64
	observed    [numFields]hash.Hash64

	done bool
}

// NewReader returns a block reader bound to the four given field
// decoders. A nil logger discards CRC-mismatch warnings.
func NewReader(idDec codec.IDDecoder, auxDec codec.AuxDecoder, seqDec codec.SeqDecoder, qualDec codec.QualDecoder, logger Logger) *Reader {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Reader{
		idDec:   idDec,
		auxDec:  auxDec,
		seqDec:  seqDec,
		qualDec: qualDec,
		logger:  logger,
	}
}

// Done reports whether the block terminator (a zero reads-in-block
// count) has been seen.
func (r *Reader) Done() bool { return r.done }

// ReadsRemaining reports how many reads of the current block have not
// yet been served by DecodeChunk.
func (r *Reader) ReadsRemaining() uint32 { return r.readsInBlock - r.readsServed }

// ReadHeader runs the per-block-header parse algorithm. It returns
// (true, nil) once the stream terminator is read, at which point Done
// becomes true and no further blocks exist.
func (r *Reader) ReadHeader(in io.Reader) (bool, error) {
	reads, err := wire.ReadUint32(in)
	if err != nil {
		return false, errors.Wrap(err, "block: read reads_in_block")
	}
	if reads == 0 {
		r.done = true
		return true, nil
	}

	if _, err := wire.ReadUint32(in); err != nil { // bases_in_block, bookkeeping only
		return false, errors.Wrap(err, "block: read bases_in_block")
	}

	r.readlenList, err = rle.ReadUint32Until(in, uint64(reads))
	if err != nil {
		return false, errors.Wrap(err, "block: read readlen rle")
	}
	r.qualSchemeList, err = rle.ReadByteUntil(in, uint64(reads))
	if err != nil {
		return false, errors.Wrap(err, "block: read qual_scheme rle")
	}

	var uncompressed, compressed [numFields]uint32
	for i := 0; i < numFields; i++ {
		uncompressed[i], err = wire.ReadUint32(in)
		if err != nil {
			return false, errors.Wrapf(err, "block: read %s uncompressed count", fieldNames[i])
		}
		compressed[i], err = wire.ReadUint32(in)
		if err != nil {
			return false, errors.Wrapf(err, "block: read %s compressed count", fieldNames[i])
		}
		r.expectedCRC[i], err = wire.ReadUint64(in)
		if err != nil {
			return false, errors.Wrapf(err, "block: read %s crc64", fieldNames[i])
		}
	}

	var payloads [numFields][]byte
	for i := 0; i < numFields; i++ {
		payloads[i] = make([]byte, compressed[i])
		if err := wire.ReadBytes(in, payloads[i]); err != nil {
			return false, errors.Wrapf(err, "block: read %s payload", fieldNames[i])
		}
	}

	r.readsInBlock = reads
	r.readsServed = 0
	for i := range r.observed {
		r.observed[i] = crc64.New(ecmaTable)
	}

	r.readlenCursor = rle.NewCursor(r.readlenList)
	r.schemeCursor = rle.NewCursor(r.qualSchemeList)
	if base, ok := r.schemeCursor.Peek(); ok {
		r.qualDec.SetBaseQual(base)
	}

	r.idDec.Reset()
	r.auxDec.Reset()
	r.seqDec.Reset()
	r.qualDec.Reset()

	if err := r.idDec.Start(bytes.NewReader(payloads[fieldID])); err != nil {
		return false, errors.Wrap(err, "block: start id decoder")
	}
	if err := r.auxDec.Start(bytes.NewReader(payloads[fieldAux])); err != nil {
		return false, errors.Wrap(err, "block: start aux decoder")
	}
	if err := r.seqDec.Start(bytes.NewReader(payloads[fieldSeq])); err != nil {
		return false, errors.Wrap(err, "block: start seq decoder")
	}
	if err := r.qualDec.Start(bytes.NewReader(payloads[fieldQual])); err != nil {
		return false, errors.Wrap(err, "block: start qual decoder")
	}

	r.blockIndex++
	return false, nil
}

// DecodeChunk pulls up to chunk.Cap reads from the current block (fewer
// only when fewer remain), decoding the chunk. It returns (nil,
// nil) once the block has been fully served.
func (r *Reader) DecodeChunk() ([]cryfa.Read, error) {
	remaining := r.ReadsRemaining()
	if remaining == 0 {
		return nil, nil
	}
	n := remaining
	if n > chunk.Cap {
		n = chunk.Cap
	}

	ids := make([][]byte, n)
	auxs := make([][]cryfa.Tag, n)
	seqs := make([][]byte, n)
	quals := make([][]byte, n)

	seqLenCursor := r.readlenCursor.Snapshot()
	qualLenCursor := r.readlenCursor.Snapshot()
	qualSchemeCursor := r.schemeCursor.Snapshot()

	var wg sync.WaitGroup
	var errs [numFields]error
	wg.Add(numFields)

	go func() {
		defer wg.Done()
		for i := 0; i < int(n); i++ {
			b, err := r.idDec.Decode()
			if err != nil {
				errs[fieldID] = err
				return
			}
			ids[i] = b
			r.observed[fieldID].Write(b)
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < int(n); i++ {
			tags, err := r.auxDec.Decode()
			if err != nil {
				errs[fieldAux] = err
				return
			}
			auxs[i] = tags
			r.observed[fieldAux].Write(auxRawBytes(tags))
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < int(n); i++ {
			length, ok := seqLenCursor.Peek()
			if !ok {
				errs[fieldSeq] = errors.New("block: readlen cursor exhausted")
				return
			}
			seqLenCursor.Advance()
			b, err := r.seqDec.Decode(int(length))
			if err != nil {
				errs[fieldSeq] = err
				return
			}
			seqs[i] = b
			r.observed[fieldSeq].Write(b)
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < int(n); i++ {
			length, ok := qualLenCursor.Peek()
			if !ok {
				errs[fieldQual] = errors.New("block: readlen cursor exhausted")
				return
			}
			qualLenCursor.Advance()
			if base, ok := qualSchemeCursor.Peek(); ok {
				r.qualDec.SetBaseQual(base)
			}
			qualSchemeCursor.Advance()
			b, err := r.qualDec.Decode(int(length))
			if err != nil {
				errs[fieldQual] = err
				return
			}
			quals[i] = b
			r.observed[fieldQual].Write(b)
		}
	}()

	wg.Wait()
	for i, err := range errs {
		if err != nil {
			return nil, errors.Wrapf(ErrCodecFailure, "block: %s worker: %v", fieldNames[i], err)
		}
	}

	r.readlenCursor.AdvanceN(n)
	r.schemeCursor.AdvanceN(n)
	r.readsServed += n

	out := make([]cryfa.Read, n)
	for i := 0; i < int(n); i++ {
		out[i] = cryfa.Read{ID: ids[i], Aux: auxs[i], Seq: seqs[i], Qual: quals[i]}
	}

	if r.readsServed == r.readsInBlock {
		r.checkCRCs()
	}
	return out, nil
}

func (r *Reader) checkCRCs() {
	for i := 0; i < numFields; i++ {
		got := r.observed[i].Sum64()
		if got != r.expectedCRC[i] {
			r.logger.Warnf("cryfa: crc mismatch (block=%d, field=%s): got %x, want %x", r.blockIndex, fieldNames[i], got, r.expectedCRC[i])
		}
	}
}
