package codec

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"

	"github.com/pingpengyao/cryfa"
)

// NewAuxEncoder returns an auxiliary-tag encoder. Each read's tag list
// is framed as a u32 tag count followed by, per tag, a 2-byte key, a
// 1-byte type, a u32 value length, and the value bytes; the framed
// stream for one block is compressed as a single flate stream.
func NewAuxEncoder() *AuxEncoder {
	return &AuxEncoder{}
}

// AuxEncoder implements codec.AuxEncoder.
type AuxEncoder struct {
	buf bytes.Buffer
	out bytes.Buffer
}

func (e *AuxEncoder) Encode(tags []cryfa.Tag) error {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(tags)))
	e.buf.Write(hdr[:])

	for _, t := range tags {
		e.buf.Write(t.Key[:])
		e.buf.WriteByte(t.Type)

		var vlen [4]byte
		binary.BigEndian.PutUint32(vlen[:], uint32(len(t.Value)))
		e.buf.Write(vlen[:])
		e.buf.Write(t.Value)
	}
	return nil
}

func (e *AuxEncoder) Finish() (int, error) {
	e.out.Reset()
	fw, err := flate.NewWriter(&e.out, flate.DefaultCompression)
	if err != nil {
		return 0, errors.Wrap(err, "codec: aux flate writer")
	}
	if _, err := fw.Write(e.buf.Bytes()); err != nil {
		return 0, errors.Wrap(err, "codec: aux flate write")
	}
	if err := fw.Close(); err != nil {
		return 0, errors.Wrap(err, "codec: aux flate close")
	}
	e.buf.Reset()
	return e.out.Len(), nil
}

func (e *AuxEncoder) Flush(w io.Writer) error {
	_, err := w.Write(e.out.Bytes())
	return errors.Wrap(err, "codec: aux flush")
}

// NewAuxDecoder returns an auxiliary-tag decoder.
func NewAuxDecoder() *AuxDecoder {
	return &AuxDecoder{}
}

// AuxDecoder implements codec.AuxDecoder.
type AuxDecoder struct {
	fr io.ReadCloser
}

func (d *AuxDecoder) Start(r io.Reader) error {
	d.fr = flate.NewReader(r)
	return nil
}

func (d *AuxDecoder) Decode() ([]cryfa.Tag, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(d.fr, hdr[:]); err != nil {
		return nil, errors.Wrap(err, "codec: aux decode count")
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n == 0 {
		return nil, nil
	}

	tags := make([]cryfa.Tag, n)
	for i := range tags {
		var key [2]byte
		if _, err := io.ReadFull(d.fr, key[:]); err != nil {
			return nil, errors.Wrap(err, "codec: aux decode key")
		}
		var typeByte [1]byte
		if _, err := io.ReadFull(d.fr, typeByte[:]); err != nil {
			return nil, errors.Wrap(err, "codec: aux decode type")
		}
		var vlen [4]byte
		if _, err := io.ReadFull(d.fr, vlen[:]); err != nil {
			return nil, errors.Wrap(err, "codec: aux decode value length")
		}
		n := binary.BigEndian.Uint32(vlen[:])
		value := make([]byte, n)
		if n > 0 {
			if _, err := io.ReadFull(d.fr, value); err != nil {
				return nil, errors.Wrap(err, "codec: aux decode value")
			}
		}
		tags[i] = cryfa.Tag{Key: key, Type: typeByte[0], Value: value}
	}
	return tags, nil
}

func (d *AuxDecoder) Reset() {
	if d.fr != nil {
		d.fr.Close()
		d.fr = nil
	}
}
