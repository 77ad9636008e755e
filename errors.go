package quantvec

import (
	"errors"
	"fmt"

	"github.com/quantvec/quantvec/distance"
	"github.com/quantvec/quantvec/hnsw"
	"github.com/quantvec/quantvec/labelmap"
)

var (
	// ErrNotFound is returned when a label has never been inserted or has
	// been deleted.
	ErrNotFound = errors.New("quantvec: label not found")

	// ErrDuplicateLabel is returned when inserting a label already present.
	ErrDuplicateLabel = errors.New("quantvec: duplicate label")

	// ErrCapacity is returned when an insert would exceed the configured
	// maximum element count. The index does not grow implicitly; use Resize.
	ErrCapacity = errors.New("quantvec: max elements reached")

	// ErrUsage is returned for API misuse that the type system cannot catch:
	// quantized reconstruction on an unquantized index, non-positive ef, or
	// mismatched batch argument lengths.
	ErrUsage = errors.New("quantvec: invalid usage")

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("quantvec: k must be positive")
)

// ErrInvalidDimension indicates an invalid configured dimension.
type ErrInvalidDimension struct {
	Dimension int
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("quantvec: invalid dimension: %d", e.Dimension)
}

// ErrInvalidSpace indicates an unrecognized distance space. It is a
// configuration error: it fires at construction, before any data is touched.
type ErrInvalidSpace struct {
	Space distance.Space
}

func (e *ErrInvalidSpace) Error() string {
	return fmt.Sprintf("quantvec: invalid space: %v", e.Space)
}

// ErrInvalidQuant indicates an unrecognized quantization mode. Like
// ErrInvalidSpace it fires at construction time.
type ErrInvalidQuant struct {
	Quant Quant
}

func (e *ErrInvalidQuant) Error() string {
	return fmt.Sprintf("quantvec: invalid quantization mode: %v", e.Quant)
}

// ErrDimensionMismatch indicates a vector or query of the wrong length.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("quantvec: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrFormatMismatch indicates that a snapshot's header disagrees with the
// configuration the caller is attempting to load it into.
type ErrFormatMismatch struct {
	Field  string
	Stored string
	Want   string
}

func (e *ErrFormatMismatch) Error() string {
	return fmt.Sprintf("quantvec: snapshot %s is %s, want %s", e.Field, e.Stored, e.Want)
}

// translateError maps internal component errors onto the public contract.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, hnsw.ErrCapacity) {
		return fmt.Errorf("%w: %w", ErrCapacity, err)
	}
	if errors.Is(err, labelmap.ErrDuplicate) {
		return fmt.Errorf("%w: %w", ErrDuplicateLabel, err)
	}
	if errors.Is(err, labelmap.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	var dm *hnsw.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}

	return err
}
