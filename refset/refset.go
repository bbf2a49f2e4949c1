// Package refset implements the reference set: an ordered,
// name-indexed collection of nucleotide sequences loaded once from a
// FASTA file, fingerprinted with a deterministic CRC64, and bound into
// (or verified against) a compressed container's header.
package refset

import (
	"bufio"
	"bytes"
	"hash/crc64"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/pingpengyao/cryfa/wire"
)

var ecmaTable = crc64.MakeTable(crc64.ECMA)

var (
	// ErrMalformedFasta is returned for a non-nucleotide character in a
	// sequence line.
	ErrMalformedFasta = errors.New("refset: malformed fasta")
	// ErrDuplicateName is returned when two entries share a name.
	ErrDuplicateName = errors.New("refset: duplicate reference name")
	// ErrRefMismatch is returned by VerifyBinding when any byte of the
	// binding record differs from this set's own binding.
	ErrRefMismatch = errors.New("refset: incorrect reference")
)

// Entry is a single named reference sequence.
type Entry struct {
	Name string
	Seq  []byte // raw nucleotide bytes, as read from the FASTA source
}

// Set is an ordered collection of reference entries, sorted by name,
// plus an opaque source-filename hint. Sets are built once at open time
// and are immutable thereafter.
type Set struct {
	entries  []Entry
	filename string
}

// New returns an empty reference set.
func New() *Set {
	return &Set{}
}

// LoadFASTA reads a FASTA file into a new Set. Header lines begin with
// '>'; a name is the header text up to the first space or end of line
// and must be unique across the file. Sequence lines may contain only
// characters in the nucleotide set (A,C,G,T,N, either case); any other
// character is ErrMalformedFasta. After loading, entries are sorted by
// name; a duplicate name is ErrDuplicateName.
func LoadFASTA(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "refset: open fasta")
	}
	defer f.Close()

	s, err := parseFASTA(f)
	if err != nil {
		return nil, err
	}
	s.filename = path
	return s, nil
}

func parseFASTA(r io.Reader) (*Set, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<30)

	seen := map[string]bool{}
	var entries []Entry
	var cur *Entry
	var buf bytes.Buffer

	flush := func() {
		if cur == nil {
			return
		}
		cur.Seq = append([]byte(nil), buf.Bytes()...)
		entries = append(entries, *cur)
		buf.Reset()
		cur = nil
	}

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, ">") {
			flush()

			header := line[1:]
			name := header
			if i := strings.IndexByte(header, ' '); i >= 0 {
				name = header[:i]
			}
			if seen[name] {
				return nil, errors.Wrapf(ErrDuplicateName, "refset: %q", name)
			}
			seen[name] = true
			cur = &Entry{Name: name}
			continue
		}

		if cur == nil {
			return nil, errors.Wrap(ErrMalformedFasta, "refset: sequence data before any header")
		}
		for i := 0; i < len(line); i++ {
			if !isNucleotide(line[i]) {
				return nil, errors.Wrapf(ErrMalformedFasta, "refset: invalid character %q in sequence line", line[i])
			}
		}
		buf.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "refset: scan fasta")
	}
	flush()

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	for i := 1; i < len(entries); i++ {
		if entries[i].Name == entries[i-1].Name {
			return nil, errors.Wrapf(ErrDuplicateName, "refset: %q", entries[i].Name)
		}
	}

	return &Set{entries: entries}, nil
}

func isNucleotide(b byte) bool {
	switch b {
	case 'A', 'C', 'G', 'T', 'N', 'a', 'c', 'g', 't', 'n':
		return true
	}
	return false
}

// Len returns the number of entries.
func (s *Set) Len() int { return len(s.entries) }

// Get does a binary search for name over the sorted entries.
func (s *Set) Get(name string) (*Entry, bool) {
	i := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].Name >= name })
	if i < len(s.entries) && s.entries[i].Name == name {
		return &s.entries[i], true
	}
	return nil, false
}

var baseCode = map[byte]byte{
	'A': 0, 'a': 0,
	'C': 1, 'c': 1,
	'G': 2, 'g': 2,
	'T': 3, 't': 3,
	'N': 0, 'n': 0,
}

// packTwoBit encodes seq into the canonical 2-bit-per-base
// representation used for fingerprinting: 4 bases packed MSB-first per
// output byte. N folds to the same code as A; the fingerprint's purpose
// is identity comparison between two sets built from the same source,
// not lossless reconstruction.
func packTwoBit(seq []byte) []byte {
	out := make([]byte, (len(seq)+3)/4)
	for i, b := range seq {
		shift := uint(6 - 2*(i%4))
		out[i/4] |= baseCode[b] << shift
	}
	return out
}

// CRC64 is the canonical content fingerprint: for each entry, in sorted
// order, the raw name bytes followed by the canonical two-bit encoding
// of its sequence. It is invariant to the order entries were loaded in
// and depends only on sorted-by-name content.
func (s *Set) CRC64() uint64 {
	h := crc64.New(ecmaTable)
	for _, e := range s.entries {
		h.Write([]byte(e.Name))
		h.Write(packTwoBit(e.Seq))
	}
	return h.Sum64()
}

// WriteBinding serializes the reference-set identity record:
// crc64, filename length+bytes, entry count, then per entry name
// length+bytes and sequence length.
func (s *Set) WriteBinding(w io.Writer) error {
	if err := wire.PutUint64(w, s.CRC64()); err != nil {
		return err
	}
	fname := []byte(s.filename)
	if err := wire.PutUint32(w, uint32(len(fname))); err != nil {
		return err
	}
	if err := wire.PutBytes(w, fname); err != nil {
		return err
	}
	if err := wire.PutUint32(w, uint32(len(s.entries))); err != nil {
		return err
	}
	for _, e := range s.entries {
		if err := wire.PutUint32(w, uint32(len(e.Name))); err != nil {
			return err
		}
		if err := wire.PutBytes(w, []byte(e.Name)); err != nil {
			return err
		}
		if err := wire.PutUint64(w, uint64(len(e.Seq))); err != nil {
			return err
		}
	}
	return nil
}

// VerifyBinding reads a binding record from r and checks it against s.
// The CRC64 is compared first; a mismatch is immediately fatal. The
// filename bytes are then discarded unread further — they are
// informational only, since the same reference may legitimately live
// at a different path on the decompressing machine. Entry count,
// per-entry name, and per-entry sequence length are then checked; any
// mismatch is ErrRefMismatch.
func (s *Set) VerifyBinding(r io.Reader) error {
	crc, err := wire.ReadUint64(r)
	if err != nil {
		return errors.Wrap(err, "refset: read binding crc64")
	}
	if crc != s.CRC64() {
		return errors.Wrap(ErrRefMismatch, "refset: crc64 mismatch")
	}

	fnameLen, err := wire.ReadUint32(r)
	if err != nil {
		return errors.Wrap(err, "refset: read binding filename length")
	}
	fname := make([]byte, fnameLen)
	if err := wire.ReadBytes(r, fname); err != nil {
		return errors.Wrap(err, "refset: read binding filename")
	}

	n, err := wire.ReadUint32(r)
	if err != nil {
		return errors.Wrap(err, "refset: read binding entry count")
	}
	if int(n) != len(s.entries) {
		return errors.Wrapf(ErrRefMismatch, "refset: entry count %d != %d", n, len(s.entries))
	}

	for i := 0; i < int(n); i++ {
		nameLen, err := wire.ReadUint32(r)
		if err != nil {
			return errors.Wrap(err, "refset: read binding name length")
		}
		name := make([]byte, nameLen)
		if err := wire.ReadBytes(r, name); err != nil {
			return errors.Wrap(err, "refset: read binding name")
		}
		if string(name) != s.entries[i].Name {
			return errors.Wrapf(ErrRefMismatch, "refset: name %q != %q", name, s.entries[i].Name)
		}

		seqLen, err := wire.ReadUint64(r)
		if err != nil {
			return errors.Wrap(err, "refset: read binding sequence length")
		}
		if int(seqLen) != len(s.entries[i].Seq) {
			return errors.Wrapf(ErrRefMismatch, "refset: sequence length %d != %d", seqLen, len(s.entries[i].Seq))
		}
	}

	return nil
}
