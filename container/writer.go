package container

import (
	"io"

	"github.com/pkg/errors"

	"github.com/pingpengyao/cryfa"
	"github.com/pingpengyao/cryfa/block"
	"github.com/pingpengyao/cryfa/codec"
	"github.com/pingpengyao/cryfa/wire"
)

// Writer is the compressor side of the container: it writes the fixed
// header once, then accepts reads one at a time, delegating chunk and
// block framing to an internal block.Writer.
type Writer struct {
	out    io.Writer
	bw     *block.Writer
	closed bool
}

// NewWriter writes the container header to out and returns a Writer
// ready to admit reads.
func NewWriter(out io.Writer, opts ...Option) (*Writer, error) {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}

	if err := wire.PutBytes(out, Magic[:]); err != nil {
		return nil, err
	}
	if err := wire.PutUint8(out, Version); err != nil {
		return nil, err
	}

	var flags byte
	if o.ref != nil {
		flags |= flagReference
	}
	if o.hasAssembly {
		flags |= flagAssembly
	}
	if err := wire.PutUint8(out, flags); err != nil {
		return nil, err
	}

	if o.ref != nil {
		if err := o.ref.WriteBinding(out); err != nil {
			return nil, errors.Wrap(err, "container: write reference binding")
		}
	}
	if o.hasAssembly {
		if err := wire.PutUint64(out, o.assemblyN); err != nil {
			return nil, err
		}
	}

	if err := wire.PutUint8(out, o.auxFmt); err != nil {
		return nil, err
	}
	if err := wire.PutUint64(out, uint64(len(o.auxData))); err != nil {
		return nil, err
	}
	if err := wire.PutBytes(out, o.auxData); err != nil {
		return nil, err
	}

	bw := block.NewWriter(codec.NewIDEncoder(), codec.NewAuxEncoder(), codec.NewSeqEncoder(), codec.NewQualEncoder(), o.blockThreshold, o.chunkCap)

	return &Writer{out: out, bw: bw}, nil
}

// Admit feeds one read into the block pipeline.
func (w *Writer) Admit(r cryfa.Read) error {
	if w.closed {
		return errors.New("container: Admit called after Close")
	}
	return w.bw.Admit(w.out, r)
}

// Close flushes any partial chunk and the final block if one is
// pending, then writes the stream terminator. Closing twice is a no-op.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.bw.FlushChunk(); err != nil {
		return err
	}
	if err := w.bw.FlushBlock(w.out); err != nil {
		return err
	}
	return wire.PutUint32(w.out, 0)
}
