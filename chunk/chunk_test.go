package chunk

import (
	"testing"

	"github.com/pingpengyao/cryfa"
)

func TestAddCopiesStructurally(t *testing.T) {
	var b Buffer

	id := []byte("r1")
	b.Add(cryfa.Read{ID: id, Seq: []byte("ACGT"), Qual: []byte("IIII")})

	id[0] = 'X' // mutate caller's buffer after Add

	if got := string(b.Slots()[0].ID); got != "r1" {
		t.Fatalf("Slots()[0].ID = %q, want %q (Add should have cloned)", got, "r1")
	}
}

func TestResetReusesBackingArray(t *testing.T) {
	var b Buffer

	b.Add(cryfa.Read{ID: []byte("r1"), Seq: []byte("A"), Qual: []byte("I")})
	if b.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", b.Len())
	}

	b.Reset()
	if b.Len() != 0 {
		t.Fatalf("Len() after Reset = %d, want 0", b.Len())
	}
	if len(b.Slots()) != 0 {
		t.Fatalf("Slots() after Reset has %d entries, want 0", len(b.Slots()))
	}

	b.Add(cryfa.Read{ID: []byte("r2"), Seq: []byte("C"), Qual: []byte("J")})
	if got := string(b.Slots()[0].ID); got != "r2" {
		t.Fatalf("Slots()[0].ID after refill = %q, want %q", got, "r2")
	}
}

func TestFull(t *testing.T) {
	var b Buffer
	for i := 0; i < Cap; i++ {
		if b.Full() {
			t.Fatalf("Full() reported true after %d adds, want after %d", i, Cap)
		}
		b.Add(cryfa.Read{ID: []byte("r"), Seq: []byte("A"), Qual: []byte("I")})
	}
	if !b.Full() {
		t.Fatalf("Full() = false after %d adds, want true", Cap)
	}
}
