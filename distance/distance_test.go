package distance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSquaredL2(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{4, 6, 8}
	assert.InDelta(t, float32(9+16+25), SquaredL2(a, b), 1e-6)
	assert.Zero(t, SquaredL2(a, a))
}

func TestDot(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{4, 5, 6}
	assert.InDelta(t, float32(4+10+18), Dot(a, b), 1e-6)
}

func TestOneMinusDot(t *testing.T) {
	a := []float32{1, 0}
	assert.InDelta(t, float32(0), OneMinusDot(a, a), 1e-6)
	assert.InDelta(t, float32(2), OneMinusDot(a, []float32{-1, 0}), 1e-6)
	assert.InDelta(t, float32(1), OneMinusDot(a, []float32{0, 1}), 1e-6)
}

func TestOneMinusDotOrdering(t *testing.T) {
	// Larger inner product means smaller distance.
	q := []float32{1, 0, 0}
	near := []float32{2, 0, 0}
	mid := []float32{1, 0, 0}
	far := []float32{-1, 0, 0}
	assert.Less(t, OneMinusDot(q, near), OneMinusDot(q, mid))
	assert.Less(t, OneMinusDot(q, mid), OneMinusDot(q, far))
}

func TestNormalizeL2InPlace(t *testing.T) {
	v := []float32{3, 4}
	require.True(t, NormalizeL2InPlace(v))
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
}

func TestNormalizeL2InPlaceZero(t *testing.T) {
	v := []float32{0, 0, 0}
	assert.False(t, NormalizeL2InPlace(v))
	assert.Equal(t, []float32{0, 0, 0}, v)
}

func TestNormalizeL2Copy(t *testing.T) {
	src := []float32{0, 5}
	out := NormalizeL2Copy(src)
	assert.Equal(t, []float32{0, 5}, src)
	assert.InDelta(t, 1.0, out[1], 1e-6)
}

func TestParseSpace(t *testing.T) {
	for name, want := range map[string]Space{
		"l2":     SpaceL2,
		"ip":     SpaceIP,
		"cosine": SpaceCosine,
	} {
		got, err := ParseSpace(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseSpace("hamming")
	assert.Error(t, err)
}

func TestProvider(t *testing.T) {
	a := []float32{1, 2}
	b := []float32{3, 4}

	l2, err := Provider(SpaceL2)
	require.NoError(t, err)
	assert.InDelta(t, SquaredL2(a, b), l2(a, b), 1e-6)

	ip, err := Provider(SpaceIP)
	require.NoError(t, err)
	assert.InDelta(t, OneMinusDot(a, b), ip(a, b), 1e-6)

	_, err = Provider(Space(99))
	assert.Error(t, err)
}

func TestInt8Kernels(t *testing.T) {
	a := []int8{10, -20, 30}
	b := []int8{-5, 15, 25}
	sa := float32(0.01)
	sb := float32(0.02)

	af := make([]float32, 3)
	bf := make([]float32, 3)
	for i := range a {
		af[i] = float32(a[i]) * sa
		bf[i] = float32(b[i]) * sb
	}

	assert.InDelta(t, SquaredL2(af, bf), SquaredL2Int8(a, b, sa, sb), 1e-5)
	assert.InDelta(t, OneMinusDot(af, bf), OneMinusDotInt8(a, b, sa, sb), 1e-5)
}

func TestProviderInt8(t *testing.T) {
	_, err := ProviderInt8(SpaceL2)
	require.NoError(t, err)
	_, err = ProviderInt8(SpaceIP)
	require.NoError(t, err)
	_, err = ProviderInt8(Space(99))
	assert.Error(t, err)
}
