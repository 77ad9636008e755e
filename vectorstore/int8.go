package vectorstore

import (
	"github.com/quantvec/quantvec/distance"
	"github.com/quantvec/quantvec/persistence"
	"github.com/quantvec/quantvec/quantization"
)

// Int8Store keeps int8-quantized vectors plus one scale per vector. Vectors
// are encoded on Set and scored directly on the codes; queries are encoded
// once per Scorer, so a search quantizes its query a single time no matter
// how many candidates it visits.
//
// Reconstruction is lossy: each component is recovered to within
// quantization.MaxAbsError(scale) of the stored value.
type Int8Store struct {
	dim      int
	capacity int
	codes    []int8
	scales   []float32
	kernel   distance.Int8Func
}

var _ Store = (*Int8Store)(nil)

// NewInt8 creates an int8 store for capacity vectors of the given dimension.
func NewInt8(dim, capacity int, space distance.Space) (*Int8Store, error) {
	kernel, err := distance.ProviderInt8(space)
	if err != nil {
		return nil, err
	}
	return &Int8Store{
		dim:      dim,
		capacity: capacity,
		codes:    make([]int8, dim*capacity),
		scales:   make([]float32, capacity),
		kernel:   kernel,
	}, nil
}

// Dimension returns the vector dimensionality.
func (s *Int8Store) Dimension() int { return s.dim }

// Capacity returns the number of elements the store can hold.
func (s *Int8Store) Capacity() int { return s.capacity }

// Resize grows the store. Caller must hold exclusive access.
func (s *Int8Store) Resize(capacity int) error {
	if capacity < s.capacity {
		return ErrShrink
	}
	codes := make([]int8, s.dim*capacity)
	copy(codes, s.codes)
	scales := make([]float32, capacity)
	copy(scales, s.scales)
	s.codes = codes
	s.scales = scales
	s.capacity = capacity
	return nil
}

// code returns the stored code slice for id, aliasing internal memory.
func (s *Int8Store) code(id uint32) []int8 {
	off := int(id) * s.dim
	return s.codes[off : off+s.dim]
}

// Set encodes v into the slot for id.
func (s *Int8Store) Set(id uint32, v []float32) error {
	if len(v) != s.dim {
		return ErrWrongDimension
	}
	if int(id) >= s.capacity {
		return ErrIDOutOfRange
	}
	s.scales[id] = quantization.EncodeInt8(v, s.code(id))
	return nil
}

// Reconstruct returns the dequantized approximation of the stored vector.
func (s *Int8Store) Reconstruct(id uint32) []float32 {
	out := make([]float32, s.dim)
	quantization.DecodeInt8(s.code(id), s.scales[id], out)
	return out
}

// Quantized returns the stored code and scale for id, aliasing internal
// memory.
func (s *Int8Store) Quantized(id uint32) ([]int8, float32) {
	return s.code(id), s.scales[id]
}

type int8Scorer struct {
	store *Int8Store
	code  []int8
	scale float32
}

func (is int8Scorer) Score(id uint32) float32 {
	return is.store.kernel(is.code, is.store.code(id), is.scale, is.store.scales[id])
}

// NewScorer quantizes q once and binds it for scoring against stored codes.
func (s *Int8Store) NewScorer(q []float32) Scorer {
	code := make([]int8, len(q))
	scale := quantization.EncodeInt8(q, code)
	return int8Scorer{store: s, code: code, scale: scale}
}

// Distance computes the distance between two stored vectors.
func (s *Int8Store) Distance(a, b uint32) float32 {
	return s.kernel(s.code(a), s.code(b), s.scales[a], s.scales[b])
}

// WritePayload writes the code and scale of id.
func (s *Int8Store) WritePayload(bw *persistence.Writer, id uint32) error {
	if err := bw.WriteInt8Slice(s.code(id)); err != nil {
		return err
	}
	return bw.WriteFloat32Slice(s.scales[id : id+1])
}

// ReadPayload restores the code and scale of id.
func (s *Int8Store) ReadPayload(br *persistence.Reader, id uint32) error {
	if int(id) >= s.capacity {
		return ErrIDOutOfRange
	}
	if err := br.ReadInt8SliceInto(s.code(id)); err != nil {
		return err
	}
	return br.ReadFloat32SliceInto(s.scales[id : id+1])
}
