// Package rle implements the two-array run-length list used to encode
// per-block read lengths and quality-scheme offsets. A List stores
// values and their run lengths in parallel arrays; a Cursor walks a List
// one logical entry at a time independently of other cursors over the
// same List, which is what lets the block reader's sequence and quality
// workers share a List without racing.
package rle

import (
	"io"

	"github.com/pkg/errors"

	"github.com/pingpengyao/cryfa/wire"
)

// List is a run-length-encoded list: Values[i] repeated Runs[i] times,
// in order.
type List[T comparable] struct {
	Values []T
	Runs   []uint32
}

// Append extends the active run when v equals the list's last value,
// otherwise opens a new run.
func (l *List[T]) Append(v T, run uint32) {
	if run == 0 {
		return
	}
	if n := len(l.Values); n > 0 && l.Values[n-1] == v {
		l.Runs[n-1] += run
		return
	}
	l.Values = append(l.Values, v)
	l.Runs = append(l.Runs, run)
}

// Reset clears the list in place, reusing its backing arrays.
func (l *List[T]) Reset() {
	l.Values = l.Values[:0]
	l.Runs = l.Runs[:0]
}

// SeedCarryOver resets the list to hold a single entry (v, 0): the
// block-boundary carry-over sentinel that lets the next
// block's scheme continue from v without counting it as a fresh run
// yet. Unlike Append, this bypasses the run==0 no-op rule, since the
// sentinel's whole purpose is to record a value with a zero run.
func (l *List[T]) SeedCarryOver(v T) {
	l.Values = append(l.Values[:0], v)
	l.Runs = append(l.Runs[:0], 0)
}

// Len returns the number of runs (not the number of logical entries).
func (l *List[T]) Len() int { return len(l.Values) }

// Sum returns the total number of logical entries across all runs.
func (l *List[T]) Sum() uint64 {
	var n uint64
	for _, r := range l.Runs {
		n += uint64(r)
	}
	return n
}

// Cursor is an independent read position into a List. Multiple cursors
// may walk the same List concurrently.
type Cursor[T comparable] struct {
	list *List[T]
	idx  int
	off  uint32
}

// NewCursor returns a cursor positioned at the start of l, skipping any
// leading zero-length runs (the writer's block-boundary carry-over
// sentinel for qual_scheme).
func NewCursor[T comparable](l *List[T]) *Cursor[T] {
	c := &Cursor[T]{list: l}
	c.skipZero()
	return c
}

func (c *Cursor[T]) skipZero() {
	for c.idx < len(c.list.Runs) && c.list.Runs[c.idx] == 0 {
		c.idx++
	}
}

// Peek returns the value at the cursor's current position without
// advancing it, and false once the cursor has walked past the list.
func (c *Cursor[T]) Peek() (T, bool) {
	if c.idx >= len(c.list.Values) {
		var zero T
		return zero, false
	}
	return c.list.Values[c.idx], true
}

// Advance moves the cursor forward by one logical entry.
func (c *Cursor[T]) Advance() {
	if c.idx >= len(c.list.Values) {
		return
	}
	c.off++
	if c.off >= c.list.Runs[c.idx] {
		c.off = 0
		c.idx++
	}
}

// AdvanceN moves the cursor forward by n logical entries.
func (c *Cursor[T]) AdvanceN(n uint32) {
	for i := uint32(0); i < n; i++ {
		c.Advance()
	}
}

// Snapshot returns an independent copy of the cursor's current
// position, safe to advance without affecting the original.
func (c *Cursor[T]) Snapshot() *Cursor[T] {
	cp := *c
	return &cp
}

// WriteUint32 writes l as a sequence of (value u32, run u32) pairs.
func WriteUint32(w io.Writer, l *List[uint32]) error {
	for i, v := range l.Values {
		if err := wire.PutUint32(w, v); err != nil {
			return err
		}
		if err := wire.PutUint32(w, l.Runs[i]); err != nil {
			return err
		}
	}
	return nil
}

// ReadUint32Until reads (value u32, run u32) pairs until the cumulative
// run total reaches want.
func ReadUint32Until(r io.Reader, want uint64) (*List[uint32], error) {
	l := &List[uint32]{}
	var sum uint64
	for sum < want {
		v, err := wire.ReadUint32(r)
		if err != nil {
			return nil, errors.Wrap(err, "rle: read uint32 value")
		}
		run, err := wire.ReadUint32(r)
		if err != nil {
			return nil, errors.Wrap(err, "rle: read uint32 run")
		}
		l.Values = append(l.Values, v)
		l.Runs = append(l.Runs, run)
		sum += uint64(run)
	}
	return l, nil
}

// WriteByte writes l as a sequence of (value u8, run u32) pairs.
func WriteByte(w io.Writer, l *List[byte]) error {
	for i, v := range l.Values {
		if err := wire.PutUint8(w, v); err != nil {
			return err
		}
		if err := wire.PutUint32(w, l.Runs[i]); err != nil {
			return err
		}
	}
	return nil
}

// ReadByteUntil reads (value u8, run u32) pairs until the cumulative
// run total reaches want.
func ReadByteUntil(r io.Reader, want uint64) (*List[byte], error) {
	l := &List[byte]{}
	var sum uint64
	for sum < want {
		v, err := wire.ReadUint8(r)
		if err != nil {
			return nil, errors.Wrap(err, "rle: read byte value")
		}
		run, err := wire.ReadUint32(r)
		if err != nil {
			return nil, errors.Wrap(err, "rle: read byte run")
		}
		l.Values = append(l.Values, v)
		l.Runs = append(l.Runs, run)
		sum += uint64(run)
	}
	return l, nil
}
