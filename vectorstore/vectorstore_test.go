package vectorstore

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantvec/quantvec/distance"
	"github.com/quantvec/quantvec/persistence"
	"github.com/quantvec/quantvec/quantization"
	"github.com/quantvec/quantvec/testutil"
)

func TestFlatStoreSetReconstruct(t *testing.T) {
	s, err := NewFlat(4, 8, distance.SpaceL2)
	require.NoError(t, err)

	v := []float32{1, 2, 3, 4}
	require.NoError(t, s.Set(0, v))

	got := s.Reconstruct(0)
	assert.Equal(t, v, got)

	// Reconstruct copies; mutating the result must not touch the store.
	got[0] = 99
	assert.Equal(t, v, s.Reconstruct(0))
}

func TestFlatStoreErrors(t *testing.T) {
	s, err := NewFlat(4, 2, distance.SpaceL2)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Set(0, []float32{1, 2}), ErrWrongDimension)
	assert.ErrorIs(t, s.Set(2, []float32{1, 2, 3, 4}), ErrIDOutOfRange)
	assert.ErrorIs(t, s.Resize(1), ErrShrink)
}

func TestFlatStoreScorer(t *testing.T) {
	s, err := NewFlat(2, 4, distance.SpaceL2)
	require.NoError(t, err)
	require.NoError(t, s.Set(0, []float32{0, 0}))
	require.NoError(t, s.Set(1, []float32{3, 4}))

	sc := s.NewScorer([]float32{0, 0})
	assert.InDelta(t, 0, sc.Score(0), 1e-6)
	assert.InDelta(t, 25, sc.Score(1), 1e-6)
	assert.InDelta(t, 25, s.Distance(0, 1), 1e-6)
}

func TestFlatStoreResizeKeepsData(t *testing.T) {
	s, err := NewFlat(2, 2, distance.SpaceL2)
	require.NoError(t, err)
	require.NoError(t, s.Set(0, []float32{1, 2}))
	require.NoError(t, s.Set(1, []float32{3, 4}))

	require.NoError(t, s.Resize(10))
	assert.Equal(t, 10, s.Capacity())
	assert.Equal(t, []float32{1, 2}, s.Reconstruct(0))
	assert.Equal(t, []float32{3, 4}, s.Reconstruct(1))
	require.NoError(t, s.Set(9, []float32{5, 6}))
}

func TestInt8StoreReconstructWithinBound(t *testing.T) {
	const dim = 16
	s, err := NewInt8(dim, 32, distance.SpaceL2)
	require.NoError(t, err)

	rng := testutil.NewRNG(1234)
	vecs := rng.UniformRangeVectors(32, dim, -1, 1)
	for i, v := range vecs {
		require.NoError(t, s.Set(uint32(i), v))
	}

	for i, v := range vecs {
		_, scale := s.Quantized(uint32(i))
		bound := float64(quantization.MaxAbsError(scale)) + 1e-7
		got := s.Reconstruct(uint32(i))
		for j := range v {
			assert.InDelta(t, v[j], got[j], bound)
		}
	}
}

func TestInt8StoreScorerMatchesDecodedDistance(t *testing.T) {
	const dim = 8
	s, err := NewInt8(dim, 4, distance.SpaceL2)
	require.NoError(t, err)

	rng := testutil.NewRNG(5)
	vecs := rng.UniformRangeVectors(4, dim, -1, 1)
	for i, v := range vecs {
		require.NoError(t, s.Set(uint32(i), v))
	}

	q := rng.UniformRangeVectors(1, dim, -1, 1)[0]
	sc := s.NewScorer(q)

	// Scoring on codes must match the float kernel applied to the decoded
	// query and vector.
	qCode := make([]int8, dim)
	qScale := quantization.EncodeInt8(q, qCode)
	qDec := make([]float32, dim)
	quantization.DecodeInt8(qCode, qScale, qDec)

	for i := range vecs {
		want := distance.SquaredL2(qDec, s.Reconstruct(uint32(i)))
		assert.InDelta(t, want, sc.Score(uint32(i)), 1e-4)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	stores := map[string]func() Store{
		"flat": func() Store {
			s, err := NewFlat(4, 2, distance.SpaceL2)
			require.NoError(t, err)
			return s
		},
		"int8": func() Store {
			s, err := NewInt8(4, 2, distance.SpaceL2)
			require.NoError(t, err)
			return s
		},
	}

	for name, mk := range stores {
		t.Run(name, func(t *testing.T) {
			src := mk()
			require.NoError(t, src.Set(0, []float32{0.1, -0.5, 0.9, 0}))
			require.NoError(t, src.Set(1, []float32{1, 1, -1, 0.25}))

			var buf bytes.Buffer
			bw := persistence.NewWriter(&buf)
			require.NoError(t, src.WritePayload(bw, 0))
			require.NoError(t, src.WritePayload(bw, 1))

			dst := mk()
			br := persistence.NewReader(&buf)
			require.NoError(t, dst.ReadPayload(br, 0))
			require.NoError(t, dst.ReadPayload(br, 1))

			assert.Equal(t, src.Reconstruct(0), dst.Reconstruct(0))
			assert.Equal(t, src.Reconstruct(1), dst.Reconstruct(1))
			assert.Equal(t, src.Distance(0, 1), dst.Distance(0, 1))
		})
	}
}
