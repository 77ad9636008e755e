package vectorstore

import (
	"github.com/quantvec/quantvec/distance"
	"github.com/quantvec/quantvec/persistence"
)

// FlatStore keeps raw float32 vectors in a single contiguous slice,
// vectors[id] = data[id*dim : (id+1)*dim]. Contiguity gives the distance
// kernels good cache locality for sequential neighbor scans.
type FlatStore struct {
	dim      int
	capacity int
	data     []float32
	kernel   distance.Func
}

var _ Store = (*FlatStore)(nil)

// NewFlat creates a flat store for capacity vectors of the given dimension.
func NewFlat(dim, capacity int, space distance.Space) (*FlatStore, error) {
	kernel, err := distance.Provider(space)
	if err != nil {
		return nil, err
	}
	return &FlatStore{
		dim:      dim,
		capacity: capacity,
		data:     make([]float32, dim*capacity),
		kernel:   kernel,
	}, nil
}

// Dimension returns the vector dimensionality.
func (s *FlatStore) Dimension() int { return s.dim }

// Capacity returns the number of elements the store can hold.
func (s *FlatStore) Capacity() int { return s.capacity }

// Resize grows the store. Caller must hold exclusive access.
func (s *FlatStore) Resize(capacity int) error {
	if capacity < s.capacity {
		return ErrShrink
	}
	data := make([]float32, s.dim*capacity)
	copy(data, s.data)
	s.data = data
	s.capacity = capacity
	return nil
}

// vec returns the stored slice for id, aliasing internal memory.
func (s *FlatStore) vec(id uint32) []float32 {
	off := int(id) * s.dim
	return s.data[off : off+s.dim]
}

// Set copies v into the slot for id.
func (s *FlatStore) Set(id uint32, v []float32) error {
	if len(v) != s.dim {
		return ErrWrongDimension
	}
	if int(id) >= s.capacity {
		return ErrIDOutOfRange
	}
	copy(s.vec(id), v)
	return nil
}

// Reconstruct returns a copy of the exact stored vector.
func (s *FlatStore) Reconstruct(id uint32) []float32 {
	out := make([]float32, s.dim)
	copy(out, s.vec(id))
	return out
}

type flatScorer struct {
	store *FlatStore
	q     []float32
}

func (fs flatScorer) Score(id uint32) float32 {
	return fs.store.kernel(fs.q, fs.store.vec(id))
}

// NewScorer binds q for scoring against stored vectors.
func (s *FlatStore) NewScorer(q []float32) Scorer {
	return flatScorer{store: s, q: q}
}

// Distance computes the distance between two stored vectors.
func (s *FlatStore) Distance(a, b uint32) float32 {
	return s.kernel(s.vec(a), s.vec(b))
}

// WritePayload writes the raw floats of id.
func (s *FlatStore) WritePayload(bw *persistence.Writer, id uint32) error {
	return bw.WriteFloat32Slice(s.vec(id))
}

// ReadPayload restores the raw floats of id.
func (s *FlatStore) ReadPayload(br *persistence.Reader, id uint32) error {
	if int(id) >= s.capacity {
		return ErrIDOutOfRange
	}
	return br.ReadFloat32SliceInto(s.vec(id))
}
