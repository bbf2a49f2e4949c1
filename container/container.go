// Package container implements the top-level framing: the
// file header (magic, version, flags, reference binding, auxiliary
// payload) and the block-sequence terminator, built on top of the
// block pipeline in package block.
package container

import (
	"io"

	"github.com/pkg/errors"

	"github.com/pingpengyao/cryfa/block"
	"github.com/pingpengyao/cryfa/refset"
	"github.com/pingpengyao/cryfa/wire"
)

// Magic is the fixed 6-byte prefix of every container.
var Magic = [6]byte{0xFF, 'Q', 'U', 'I', 'P', 0x00}

// Version is the version byte this package writes.
const Version = 0x03

const (
	flagReference = 1 << 0
	flagAssembly  = 1 << 1
)

var (
	// ErrBadMagic is returned when the fixed prefix does not match Magic.
	ErrBadMagic = errors.New("container: bad magic")
	// ErrBadVersion is returned for a version this package does not accept.
	ErrBadVersion = errors.New("container: unsupported version")
	// ErrUnsupportedVersion2 is returned specifically for version 2
	// containers: this package implements only version 3's documented
	// layout, so version 2 is rejected rather than
	// guessed at.
	ErrUnsupportedVersion2 = errors.New("container: version 2 containers are not supported by this implementation")
	// ErrRefMissing is returned when a reference-based stream is opened
	// for reading without a caller-supplied reference set.
	ErrRefMissing = errors.New("container: reference-based stream opened with no reference set")
)

// Logger is the interface container threads through to the block
// reader for non-fatal CRC-mismatch warnings. *logrus.Logger
// satisfies it.
type Logger = block.Logger

// options collects the functional options below into the values the
// writer and reader constructors need.
type options struct {
	ref            *refset.Set
	assemblyN      uint64
	hasAssembly    bool
	auxFmt         byte
	auxData        []byte
	logger         Logger
	blockThreshold uint64
	chunkCap       int
}

func defaultOptions() options {
	return options{
		blockThreshold: block.DefaultThreshold,
	}
}

// Option configures a Writer or Reader.
type Option func(*options)

// WithReference enables reference-based mode and binds s as the
// reference set: the writer emits its binding, the reader verifies
// against it.
func WithReference(s *refset.Set) Option {
	return func(o *options) { o.ref = s }
}

// WithAssemblyN enables assembly-based mode and carries n as the
// upstream-supplied assembly parameter.
func WithAssemblyN(n uint64) Option {
	return func(o *options) {
		o.assemblyN = n
		o.hasAssembly = true
	}
}

// WithAux attaches an auxiliary payload: a single format tag byte plus
// arbitrary bytes, opaque to this package.
func WithAux(format byte, data []byte) Option {
	return func(o *options) {
		o.auxFmt = format
		o.auxData = data
	}
}

// WithLogger sets the logger used for non-fatal warnings (block-level
// CRC mismatches). Defaults to discarding them.
func WithLogger(l Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithBlockThreshold overrides BLOCK_THRESHOLD, the running count
// of uncompressed sequence bases that triggers a block flush.
func WithBlockThreshold(n uint64) Option {
	return func(o *options) { o.blockThreshold = n }
}

// WithChunkCap overrides the chunk-flush trigger, clamped to
// chunk.Cap by the block writer. Smaller values flush chunks (and so
// trigger the parallel encode) more often; it never changes CHUNK_CAP
// itself.
func WithChunkCap(n int) Option {
	return func(o *options) { o.chunkCap = n }
}

func readPrefix(r io.Reader) (flags byte, err error) {
	var magic [6]byte
	if err := wire.ReadBytes(r, magic[:]); err != nil {
		return 0, errors.Wrap(err, "container: read magic")
	}
	if magic != Magic {
		return 0, errors.Wrapf(ErrBadMagic, "container: got %x", magic)
	}

	version, err := wire.ReadUint8(r)
	if err != nil {
		return 0, errors.Wrap(err, "container: read version")
	}
	switch version {
	case 3:
		// accepted
	case 2:
		return 0, ErrUnsupportedVersion2
	case 1:
		return 0, errors.Wrapf(ErrBadVersion, "container: version 1 is not supported")
	default:
		return 0, errors.Wrapf(ErrBadVersion, "container: version %d is newer than this implementation", version)
	}

	flags, err = wire.ReadUint8(r)
	if err != nil {
		return 0, errors.Wrap(err, "container: read flags")
	}
	return flags, nil
}
