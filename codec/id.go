package codec

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"
)

// NewIDEncoder returns an identifier encoder. Each read's id is framed
// as a u32 length prefix followed by its bytes, and the framed stream
// for one block is compressed as a single, self-contained flate
// stream. The returned value is meant to be kept for the life of the
// container and reused across blocks; Finish/Flush produce one
// independent segment per block.
func NewIDEncoder() *IDEncoder {
	return &IDEncoder{}
}

// IDEncoder implements codec.IDEncoder.
type IDEncoder struct {
	buf bytes.Buffer
	out bytes.Buffer
}

func (e *IDEncoder) Encode(id []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(id)))
	e.buf.Write(lenBuf[:])
	e.buf.Write(id)
	return nil
}

func (e *IDEncoder) Finish() (int, error) {
	e.out.Reset()
	fw, err := flate.NewWriter(&e.out, flate.DefaultCompression)
	if err != nil {
		return 0, errors.Wrap(err, "codec: id flate writer")
	}
	if _, err := fw.Write(e.buf.Bytes()); err != nil {
		return 0, errors.Wrap(err, "codec: id flate write")
	}
	if err := fw.Close(); err != nil {
		return 0, errors.Wrap(err, "codec: id flate close")
	}
	e.buf.Reset()
	return e.out.Len(), nil
}

func (e *IDEncoder) Flush(w io.Writer) error {
	_, err := w.Write(e.out.Bytes())
	return errors.Wrap(err, "codec: id flush")
}

// NewIDDecoder returns an identifier decoder.
func NewIDDecoder() *IDDecoder {
	return &IDDecoder{}
}

// IDDecoder implements codec.IDDecoder.
type IDDecoder struct {
	fr io.ReadCloser
}

func (d *IDDecoder) Start(r io.Reader) error {
	d.fr = flate.NewReader(r)
	return nil
}

func (d *IDDecoder) Decode() ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(d.fr, lenBuf[:]); err != nil {
		return nil, errors.Wrap(err, "codec: id decode length")
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	b := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(d.fr, b); err != nil {
			return nil, errors.Wrap(err, "codec: id decode value")
		}
	}
	return b, nil
}

func (d *IDDecoder) Reset() {
	if d.fr != nil {
		d.fr.Close()
		d.fr = nil
	}
}
