package codec

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"
)

var seqBaseCode = map[byte]byte{
	'A': 0,
	'C': 1,
	'G': 2,
	'T': 3,
}

var seqCodeBase = [4]byte{'A', 'C', 'G', 'T'}

// NewSeqEncoder returns the non-reference, non-assembly sequence
// encoder: each read is packed two bits per base (A/C/G/T), with any
// other byte (N, lowercase a/c/g/t, or anything else) recorded as an
// explicit (position, original byte) exception so the packing stays
// lossless. The per-read frame is u32 exception count, the exceptions,
// then ceil(len/4) packed bytes; the framed stream for one block is
// flate-compressed as a single segment.
func NewSeqEncoder() *SeqEncoder {
	return &SeqEncoder{}
}

// SeqEncoder implements codec.SeqEncoder.
type SeqEncoder struct {
	buf bytes.Buffer
	out bytes.Buffer
}

func (e *SeqEncoder) Encode(seq []byte) error {
	type exc struct {
		pos uint32
		ch  byte
	}
	var excs []exc
	packed := make([]byte, (len(seq)+3)/4)
	for i, b := range seq {
		code, ok := seqBaseCode[b]
		if !ok {
			excs = append(excs, exc{pos: uint32(i), ch: b})
			code = 0
		}
		shift := uint(6 - 2*(i%4))
		packed[i/4] |= code << shift
	}

	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(excs)))
	e.buf.Write(hdr[:])
	for _, x := range excs {
		var posBuf [4]byte
		binary.BigEndian.PutUint32(posBuf[:], x.pos)
		e.buf.Write(posBuf[:])
		e.buf.WriteByte(x.ch)
	}
	e.buf.Write(packed)

	return nil
}

func (e *SeqEncoder) Finish() (int, error) {
	e.out.Reset()
	fw, err := flate.NewWriter(&e.out, flate.DefaultCompression)
	if err != nil {
		return 0, errors.Wrap(err, "codec: seq flate writer")
	}
	if _, err := fw.Write(e.buf.Bytes()); err != nil {
		return 0, errors.Wrap(err, "codec: seq flate write")
	}
	if err := fw.Close(); err != nil {
		return 0, errors.Wrap(err, "codec: seq flate close")
	}
	e.buf.Reset()
	return e.out.Len(), nil
}

func (e *SeqEncoder) Flush(w io.Writer) error {
	_, err := w.Write(e.out.Bytes())
	return errors.Wrap(err, "codec: seq flush")
}

// NewSeqDecoder returns a sequence decoder.
func NewSeqDecoder() *SeqDecoder {
	return &SeqDecoder{}
}

// SeqDecoder implements codec.SeqDecoder.
type SeqDecoder struct {
	fr io.ReadCloser
}

func (d *SeqDecoder) Start(r io.Reader) error {
	d.fr = flate.NewReader(r)
	return nil
}

func (d *SeqDecoder) Decode(length int) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(d.fr, hdr[:]); err != nil {
		return nil, errors.Wrap(err, "codec: seq decode exception count")
	}
	n := binary.BigEndian.Uint32(hdr[:])

	type exc struct {
		pos uint32
		ch  byte
	}
	excs := make([]exc, n)
	for i := range excs {
		var posBuf [4]byte
		if _, err := io.ReadFull(d.fr, posBuf[:]); err != nil {
			return nil, errors.Wrap(err, "codec: seq decode exception position")
		}
		var chBuf [1]byte
		if _, err := io.ReadFull(d.fr, chBuf[:]); err != nil {
			return nil, errors.Wrap(err, "codec: seq decode exception byte")
		}
		excs[i] = exc{pos: binary.BigEndian.Uint32(posBuf[:]), ch: chBuf[0]}
	}

	packed := make([]byte, (length+3)/4)
	if len(packed) > 0 {
		if _, err := io.ReadFull(d.fr, packed); err != nil {
			return nil, errors.Wrap(err, "codec: seq decode packed bases")
		}
	}

	seq := make([]byte, length)
	for i := range seq {
		shift := uint(6 - 2*(i%4))
		code := (packed[i/4] >> shift) & 0x3
		seq[i] = seqCodeBase[code]
	}
	for _, x := range excs {
		seq[x.pos] = x.ch
	}

	return seq, nil
}

func (d *SeqDecoder) Reset() {
	if d.fr != nil {
		d.fr.Close()
		d.fr = nil
	}
}
