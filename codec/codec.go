// Package codec implements the four per-field encoder/decoder pairs:
// identifier, auxiliary tag, sequence, and quality codecs. The block
// pipeline treats these as black boxes with the contract below; this
// package supplies concrete implementations backed by
// github.com/klauspost/compress so the rest of the module has
// something real to drive rather than a stub.
//
// Encoders are never reset: the writer keeps a single instance alive
// for the life of the container, calling Encode per read and
// Finish/Flush once per block. Decoders are reset at every block
// boundary (Reset then Start) to mirror that each block's compressed
// segment is self-contained.
package codec

import (
	"io"

	"github.com/pingpengyao/cryfa"
)

// IDEncoder accepts identifier bytes in admission order.
type IDEncoder interface {
	Encode(id []byte) error
	// Finish ends the current block's segment and returns its
	// compressed byte count.
	Finish() (int, error)
	// Flush writes the segment produced by the last Finish to w.
	Flush(w io.Writer) error
}

// IDDecoder produces identifier byte slices in admission order from a
// compressed segment.
type IDDecoder interface {
	// Start begins decoding the segment readable from r.
	Start(r io.Reader) error
	Decode() ([]byte, error)
	// Reset returns the decoder to its pre-block state.
	Reset()
}

// AuxEncoder accepts auxiliary tag lists in admission order.
type AuxEncoder interface {
	Encode(tags []cryfa.Tag) error
	Finish() (int, error)
	Flush(w io.Writer) error
}

// AuxDecoder produces tag lists in admission order.
type AuxDecoder interface {
	Start(r io.Reader) error
	Decode() ([]cryfa.Tag, error)
	Reset()
}

// SeqEncoder accepts nucleotide sequence bytes in admission order.
type SeqEncoder interface {
	Encode(seq []byte) error
	Finish() (int, error)
	Flush(w io.Writer) error
}

// SeqDecoder produces sequence byte slices in admission order. The
// caller supplies each read's length, taken from the readlen RLE list,
// since the compressed stream does not carry lengths itself.
type SeqDecoder interface {
	Start(r io.Reader) error
	Decode(length int) ([]byte, error)
	Reset()
}

// QualEncoder accepts quality-string bytes in admission order. It
// additionally accepts the active base-quality character whenever a
// scheme boundary is crossed.
type QualEncoder interface {
	Encode(qual []byte) error
	SetBaseQual(base byte)
	Finish() (int, error)
	Flush(w io.Writer) error
}

// QualDecoder produces quality byte slices in admission order, given
// each read's length.
type QualDecoder interface {
	Start(r io.Reader) error
	SetBaseQual(base byte)
	Decode(length int) ([]byte, error)
	Reset()
}
