// Package block implements the block pipeline: the layer that groups
// chunks into blocks, drives the four per-field codecs concurrently
// over each chunk, tracks per-field byte counts and CRC64s, and frames
// a block on the wire.
package block

import (
	"hash/crc64"

	"github.com/pkg/errors"
)

// CHUNK_CAP lives in package chunk; BLOCK_THRESHOLD and QUAL_WINDOW are
// block-pipeline constants.
const (
	// DefaultThreshold is BLOCK_THRESHOLD: a block closes once its
	// running count of uncompressed sequence bases exceeds this.
	DefaultThreshold = 5_000_000
	// QualWindow is QUAL_WINDOW: the half-open window width a quality
	// scheme's base character must cover.
	QualWindow = 64
)

var ecmaTable = crc64.MakeTable(crc64.ECMA)

const (
	fieldID = iota
	fieldAux
	fieldSeq
	fieldQual
	numFields
)

var fieldNames = [numFields]string{"id", "aux", "seq", "qual"}

var (
	// ErrQualSchemeOverflow is raised when a chunk's observed quality
	// range cannot be expressed as any valid scheme (quality bytes
	// must lie in [33, 126]).
	ErrQualSchemeOverflow = errors.New("block: quality range exceeds scheme window")
	// ErrCodecFailure wraps any error a field worker raises; it is
	// fatal once surfaced past the join point.
	ErrCodecFailure = errors.New("block: codec failure")
)

// Logger is the narrow interface the block reader uses to emit
// non-fatal CRC-mismatch warnings at block completion. *logrus.Logger
// satisfies it.
type Logger interface {
	Warnf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Warnf(string, ...interface{}) {}
