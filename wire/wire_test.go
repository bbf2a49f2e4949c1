package wire

import (
	"bytes"
	"errors"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	if err := PutUint8(&buf, 0xAB); err != nil {
		t.Fatal(err)
	}
	if err := PutUint32(&buf, 0xDEADBEEF); err != nil {
		t.Fatal(err)
	}
	if err := PutUint64(&buf, 0x0102030405060708); err != nil {
		t.Fatal(err)
	}

	u8, err := ReadUint8(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if u8 != 0xAB {
		t.Fatalf("ReadUint8: got %x, want %x", u8, 0xAB)
	}

	u32, err := ReadUint32(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if u32 != 0xDEADBEEF {
		t.Fatalf("ReadUint32: got %x, want %x", u32, 0xDEADBEEF)
	}

	u64, err := ReadUint64(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if u64 != 0x0102030405060708 {
		t.Fatalf("ReadUint64: got %x, want %x", u64, 0x0102030405060708)
	}
}

func TestReadShort(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0x01, 0x02})

	if _, err := ReadUint32(&buf); !errors.Is(err, ErrShortRead) {
		t.Fatalf("ReadUint32: got err %v, want ErrShortRead", err)
	}
}

func TestBigEndianOrder(t *testing.T) {
	var buf bytes.Buffer
	if err := PutUint32(&buf, 1); err != nil {
		t.Fatal(err)
	}

	want := []byte{0x00, 0x00, 0x00, 0x01}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("PutUint32(1) = %x, want %x", buf.Bytes(), want)
	}
}
