package codec

import (
	"bytes"
	"testing"

	"github.com/pingpengyao/cryfa"
)

func TestIDCodecRoundTrip(t *testing.T) {
	ids := [][]byte{[]byte("r1"), []byte(""), []byte("a-much-longer-read-name-42")}

	enc := NewIDEncoder()
	for _, id := range ids {
		if err := enc.Encode(id); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := enc.Finish(); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := enc.Flush(&buf); err != nil {
		t.Fatal(err)
	}

	dec := NewIDDecoder()
	if err := dec.Start(&buf); err != nil {
		t.Fatal(err)
	}
	for _, want := range ids {
		got, err := dec.Decode()
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Decode() = %q, want %q", got, want)
		}
	}
}

func TestAuxCodecRoundTrip(t *testing.T) {
	reads := [][]cryfa.Tag{
		nil,
		{{Key: [2]byte{'N', 'M'}, Type: 'i', Value: []byte{0}}},
		{
			{Key: [2]byte{'X', '1'}, Type: 'Z', Value: []byte("hello")},
			{Key: [2]byte{'X', '2'}, Type: 'A', Value: []byte{'a'}},
		},
	}

	enc := NewAuxEncoder()
	for _, tags := range reads {
		if err := enc.Encode(tags); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := enc.Finish(); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := enc.Flush(&buf); err != nil {
		t.Fatal(err)
	}

	dec := NewAuxDecoder()
	if err := dec.Start(&buf); err != nil {
		t.Fatal(err)
	}
	for _, want := range reads {
		got, err := dec.Decode()
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != len(want) {
			t.Fatalf("Decode() len = %d, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i].Key != want[i].Key || got[i].Type != want[i].Type || !bytes.Equal(got[i].Value, want[i].Value) {
				t.Fatalf("tag %d = %+v, want %+v", i, got[i], want[i])
			}
		}
	}
}

func TestSeqCodecRoundTripWithN(t *testing.T) {
	seqs := [][]byte{
		[]byte("ACGT"),
		[]byte("NNNNACGTNN"),
		[]byte(""),
		[]byte("A"),
		[]byte("acgtACGTnN"),
	}

	enc := NewSeqEncoder()
	for _, s := range seqs {
		if err := enc.Encode(s); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := enc.Finish(); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := enc.Flush(&buf); err != nil {
		t.Fatal(err)
	}

	dec := NewSeqDecoder()
	if err := dec.Start(&buf); err != nil {
		t.Fatal(err)
	}
	for _, want := range seqs {
		got, err := dec.Decode(len(want))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Decode(%d) = %q, want %q", len(want), got, want)
		}
	}
}

func TestQualCodecRoundTripAcrossSchemeBoundary(t *testing.T) {
	quals := []struct {
		base byte
		q    []byte
	}{
		{base: '!', q: []byte("IIII")},
		{base: '#', q: []byte("hhh")},
	}

	enc := NewQualEncoder()
	for _, c := range quals {
		enc.SetBaseQual(c.base)
		if err := enc.Encode(c.q); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := enc.Finish(); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := enc.Flush(&buf); err != nil {
		t.Fatal(err)
	}

	dec := NewQualDecoder()
	if err := dec.Start(&buf); err != nil {
		t.Fatal(err)
	}
	for _, c := range quals {
		dec.SetBaseQual(c.base)
		got, err := dec.Decode(len(c.q))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, c.q) {
			t.Fatalf("Decode() = %q, want %q", got, c.q)
		}
	}
}
