package container

import (
	"io"

	"github.com/pkg/errors"

	"github.com/pingpengyao/cryfa"
	"github.com/pingpengyao/cryfa/block"
	"github.com/pingpengyao/cryfa/codec"
	"github.com/pingpengyao/cryfa/wire"
)

// Reader is the decompressor side of the container: it validates the
// fixed header once, then serves reads one at a time, pulling chunk
// batches from an internal block.Reader as needed.
type Reader struct {
	in io.Reader
	br *block.Reader

	assemblyN   uint64
	hasAssembly bool
	auxFmt      byte
	auxData     []byte

	buf []cryfa.Read
	idx int
}

// NewReader reads and validates the container header from in. If the
// stream is reference-based, WithReference must supply a reference set
// to verify against, or NewReader returns ErrRefMissing.
func NewReader(in io.Reader, opts ...Option) (*Reader, error) {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}

	flags, err := readPrefix(in)
	if err != nil {
		return nil, err
	}

	r := &Reader{in: in}

	if flags&flagReference != 0 {
		if o.ref == nil {
			return nil, ErrRefMissing
		}
		if err := o.ref.VerifyBinding(in); err != nil {
			return nil, errors.Wrap(err, "container: verify reference binding")
		}
	}
	if flags&flagAssembly != 0 {
		n, err := wire.ReadUint64(in)
		if err != nil {
			return nil, errors.Wrap(err, "container: read assembly_n")
		}
		r.assemblyN = n
		r.hasAssembly = true
	}

	auxFmt, err := wire.ReadUint8(in)
	if err != nil {
		return nil, errors.Wrap(err, "container: read aux format")
	}
	auxLen, err := wire.ReadUint64(in)
	if err != nil {
		return nil, errors.Wrap(err, "container: read aux length")
	}
	auxData := make([]byte, auxLen)
	if err := wire.ReadBytes(in, auxData); err != nil {
		return nil, errors.Wrap(err, "container: read aux payload")
	}
	r.auxFmt = auxFmt
	r.auxData = auxData

	r.br = block.NewReader(codec.NewIDDecoder(), codec.NewAuxDecoder(), codec.NewSeqDecoder(), codec.NewQualDecoder(), o.logger)

	return r, nil
}

// AssemblyN returns the upstream-supplied assembly parameter and
// whether the stream is assembly-based.
func (r *Reader) AssemblyN() (uint64, bool) { return r.assemblyN, r.hasAssembly }

// Aux returns the auxiliary payload's format tag and bytes.
func (r *Reader) Aux() (byte, []byte) { return r.auxFmt, r.auxData }

// Next returns the next read in the stream in its original order, or
// io.EOF once the terminator has been consumed.
func (r *Reader) Next() (cryfa.Read, error) {
	for r.idx >= len(r.buf) {
		if r.br.ReadsRemaining() == 0 {
			if r.br.Done() {
				return cryfa.Read{}, io.EOF
			}
			end, err := r.br.ReadHeader(r.in)
			if err != nil {
				return cryfa.Read{}, err
			}
			if end {
				return cryfa.Read{}, io.EOF
			}
			continue
		}
		reads, err := r.br.DecodeChunk()
		if err != nil {
			return cryfa.Read{}, err
		}
		r.buf = reads
		r.idx = 0
	}
	read := r.buf[r.idx]
	r.idx++
	return read, nil
}
