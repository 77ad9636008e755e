// Package vectorstore owns the payload bytes of inserted vectors.
//
// Storage is dense and indexed by internal id. Two implementations exist: a
// flat float32 store, and an int8 store that quantizes on write and scores
// directly on the codes. Both bind their distance kernel at construction so
// the graph's hot loop never dispatches on space or quantization mode.
//
// Thread safety: each id's slot is written exactly once (insert-only model)
// before the graph publishes the id, and never moves afterwards; concurrent
// reads of published ids are therefore safe without locks. Resize requires
// external exclusive access.
package vectorstore

import (
	"errors"

	"github.com/quantvec/quantvec/persistence"
)

var (
	// ErrWrongDimension is returned when a vector doesn't match the store
	// dimension.
	ErrWrongDimension = errors.New("vectorstore: wrong vector dimension")
	// ErrIDOutOfRange is returned when an id exceeds the store capacity.
	ErrIDOutOfRange = errors.New("vectorstore: id out of range")
	// ErrShrink is returned when a resize would drop stored vectors.
	ErrShrink = errors.New("vectorstore: cannot shrink below stored elements")
)

// Scorer scores stored vectors against a fixed query vector. A Scorer is
// created once per operation (insert or query) and amortizes any per-query
// preparation, such as quantizing the query.
type Scorer interface {
	Score(id uint32) float32
}

// Store is the canonical storage for vector payloads.
type Store interface {
	Dimension() int
	Capacity() int

	// Resize grows the store to hold capacity elements. Caller must hold
	// exclusive access.
	Resize(capacity int) error

	// Set stores v at id. The slice is copied (or encoded) into the store.
	Set(id uint32, v []float32) error

	// Reconstruct returns a fresh copy of the stored representation of id:
	// the exact floats for a flat store, the dequantized approximation for a
	// quantized store.
	Reconstruct(id uint32) []float32

	// NewScorer binds q for repeated distance evaluations against stored ids.
	NewScorer(q []float32) Scorer

	// Distance computes the distance between two stored vectors.
	Distance(a, b uint32) float32

	// WritePayload serializes the payload of id.
	WritePayload(bw *persistence.Writer, id uint32) error

	// ReadPayload restores the payload of id from a snapshot.
	ReadPayload(br *persistence.Reader, id uint32) error
}
