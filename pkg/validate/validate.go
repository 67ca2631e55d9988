// Package validate holds the input-bounds checks the HTTP surface runs
// before touching storage (spec.md §6.2's validation rules, given its
// own package the way the Rust original gives validation its own
// quartz-faas/src/validation.rs module rather than folding it into the
// handlers).
package validate

import (
	"regexp"
	"strconv"
	"unicode/utf8"

	"github.com/quartzvec/vectorengine/pkg/vector"
	"github.com/quartzvec/vectorengine/pkg/vectorerr"
)

const (
	MinIDLength      = 1
	MaxIDLength       = 256
	MinDimension      = 1
	MaxDimension      = 4096
	MaxMetadataBytes  = 32 * 1024
	MinK              = 1
	MaxK              = 1000
	MaxBatchSize      = 100
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ID checks the 1-256 char, [A-Za-z0-9_-] id rule.
func ID(id string) error {
	n := utf8.RuneCountInString(id)
	if n < MinIDLength || n > MaxIDLength {
		return vectorerr.New(vectorerr.InvalidInput, "id must be 1-256 characters")
	}
	if !idPattern.MatchString(id) {
		return vectorerr.New(vectorerr.InvalidInput, "id must contain only letters, digits, '_' and '-'")
	}
	return nil
}

// Vector checks the 1-4096 dimension bound and finiteness of every
// component.
func Vector(v []float32) error {
	if len(v) < MinDimension || len(v) > MaxDimension {
		return vectorerr.New(vectorerr.InvalidInput, "vector must have 1-4096 dimensions")
	}
	if err := vector.ValidateFinite(v); err != nil {
		return vectorerr.Wrap(vectorerr.InvalidInput, "vector components must be finite", err)
	}
	return nil
}

// Dimension checks a query/insert vector's length against the index's
// configured dimension, returning the typed DimensionMismatch error
// with both values in the message.
func Dimension(got, want int) error {
	if got != want {
		return vectorerr.New(vectorerr.DimensionMismatch,
			"vector dimension mismatch: expected "+strconv.Itoa(want)+", got "+strconv.Itoa(got))
	}
	return nil
}

// Metadata checks the serialized-metadata size bound.
func Metadata(serialized []byte) error {
	if len(serialized) > MaxMetadataBytes {
		return vectorerr.New(vectorerr.InvalidInput, "metadata must serialize to at most 32 KiB")
	}
	return nil
}

// K checks the search result-count bound.
func K(k int) error {
	if k < MinK || k > MaxK {
		return vectorerr.New(vectorerr.InvalidInput, "k must be between 1 and 1000")
	}
	return nil
}

// BatchSize checks the batch-insert size bound.
func BatchSize(n int) error {
	if n > MaxBatchSize {
		return vectorerr.New(vectorerr.InvalidInput, "batch size must be at most 100")
	}
	return nil
}
