// Package wire implements the fixed big-endian unsigned integer
// encoders/decoders the container format is built on. All
// multi-byte integers in the container are big-endian and there is no
// alignment or padding.
package wire

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// ErrShortRead is returned when a reader capability supplies fewer
// bytes than a fixed-width field requires.
var ErrShortRead = errors.New("wire: unexpected end of input")

// PutUint8 writes a single byte.
func PutUint8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return errors.Wrap(err, "wire: write uint8")
}

// PutUint32 writes v as 4 big-endian bytes.
func PutUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return errors.Wrap(err, "wire: write uint32")
}

// PutUint64 writes v as 8 big-endian bytes.
func PutUint64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return errors.Wrap(err, "wire: write uint64")
}

// PutBytes writes b verbatim; the caller is responsible for recording
// or already knowing its length.
func PutBytes(w io.Writer, b []byte) error {
	_, err := w.Write(b)
	return errors.Wrap(err, "wire: write bytes")
}

// ReadUint8 reads a single byte.
func ReadUint8(r io.Reader) (uint8, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, wrapShort(err)
	}
	return b[0], nil
}

// ReadUint32 reads 4 big-endian bytes.
func ReadUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, wrapShort(err)
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// ReadUint64 reads 8 big-endian bytes.
func ReadUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, wrapShort(err)
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

// ReadBytes reads exactly len(b) bytes into b.
func ReadBytes(r io.Reader, b []byte) error {
	if _, err := io.ReadFull(r, b); err != nil {
		return wrapShort(err)
	}
	return nil
}

func wrapShort(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrShortRead
	}
	return errors.Wrap(err, "wire: read")
}
