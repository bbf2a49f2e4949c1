package codec

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// NewQualEncoder returns the concrete quality-score encoder. Each byte
// is rebased against the active base-quality character (SetBaseQual)
// before framing, so the compressed alphabet stays within the
// active quality window rather than spanning the full printable range;
// each read is framed as a u32 length followed by its rebased bytes, and the
// framed stream for one block is compressed with zstd as a single
// segment.
func NewQualEncoder() *QualEncoder {
	return &QualEncoder{}
}

// QualEncoder implements codec.QualEncoder.
type QualEncoder struct {
	base byte
	buf  bytes.Buffer
	out  bytes.Buffer
}

func (e *QualEncoder) SetBaseQual(base byte) {
	e.base = base
}

func (e *QualEncoder) Encode(qual []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(qual)))
	e.buf.Write(lenBuf[:])
	for _, q := range qual {
		e.buf.WriteByte(q - e.base)
	}
	return nil
}

func (e *QualEncoder) Finish() (int, error) {
	e.out.Reset()
	// The block pipeline already carries its own per-field CRC64,
	// so the zstd frame checksum would just be a second,
	// redundant integrity check; skip it.
	zw, err := zstd.NewWriter(&e.out, zstd.WithEncoderCRC(false))
	if err != nil {
		return 0, errors.Wrap(err, "codec: qual zstd writer")
	}
	if _, err := zw.Write(e.buf.Bytes()); err != nil {
		return 0, errors.Wrap(err, "codec: qual zstd write")
	}
	if err := zw.Close(); err != nil {
		return 0, errors.Wrap(err, "codec: qual zstd close")
	}
	e.buf.Reset()
	return e.out.Len(), nil
}

func (e *QualEncoder) Flush(w io.Writer) error {
	_, err := w.Write(e.out.Bytes())
	return errors.Wrap(err, "codec: qual flush")
}

// NewQualDecoder returns a quality decoder.
func NewQualDecoder() *QualDecoder {
	return &QualDecoder{}
}

// QualDecoder implements codec.QualDecoder.
type QualDecoder struct {
	base byte
	zr   *zstd.Decoder
}

func (d *QualDecoder) Start(r io.Reader) error {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return errors.Wrap(err, "codec: qual zstd reader")
	}
	d.zr = zr
	return nil
}

func (d *QualDecoder) SetBaseQual(base byte) {
	d.base = base
}

func (d *QualDecoder) Decode(length int) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(d.zr, lenBuf[:]); err != nil {
		return nil, errors.Wrap(err, "codec: qual decode length")
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if int(n) != length {
		return nil, errors.Errorf("codec: qual decode length mismatch: frame says %d, readlen says %d", n, length)
	}

	qual := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(d.zr, qual); err != nil {
			return nil, errors.Wrap(err, "codec: qual decode value")
		}
	}
	for i, q := range qual {
		qual[i] = q + d.base
	}
	return qual, nil
}

func (d *QualDecoder) Reset() {
	if d.zr != nil {
		d.zr.Close()
		d.zr = nil
	}
}
