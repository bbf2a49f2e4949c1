// Package chunk implements the fixed-capacity staging buffer the
// compressor accumulates reads into: a bounded batch of reads that
// bounds the unit of the four-way parallel field encode.
package chunk

import "github.com/pingpengyao/cryfa"

// Cap is the chunk capacity (CHUNK_CAP).
const Cap = 5000

// Buffer is a fixed-capacity array of reads, reused (cleared, not
// reallocated) across flushes.
type Buffer struct {
	slots [Cap]cryfa.Read
	len   int
}

// Len returns the number of filled slots.
func (b *Buffer) Len() int { return b.len }

// Full reports whether the buffer has reached Cap.
func (b *Buffer) Full() bool { return b.len == Cap }

// Add copies r into the next free slot. The copy is structural: r's
// owned byte slices are cloned, so the caller may reuse or mutate r
// immediately after Add returns.
func (b *Buffer) Add(r cryfa.Read) {
	b.slots[b.len] = r.Clone()
	b.len++
}

// Slots returns the filled prefix of the buffer, in admission order.
// The returned slice aliases the buffer's backing array and is only
// valid until the next Reset.
func (b *Buffer) Slots() []cryfa.Read {
	return b.slots[:b.len]
}

// Reset clears the buffer's length without releasing the backing
// array, so its slots are reused by the next fill rather than freed.
func (b *Buffer) Reset() {
	b.len = 0
}
