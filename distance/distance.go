// Package distance provides the metric kernels used for vector comparison.
//
// Every kernel returns a value where smaller means closer. The l2 kernel is
// the squared Euclidean distance. The ip and cosine kernels return 1 - dot;
// cosine additionally requires vectors to be L2-normalized before they enter
// the index, which callers perform via NormalizeL2InPlace.
package distance

import (
	"fmt"
	"math"
	"slices"
)

// Space identifies the distance metric of an index.
type Space int

const (
	// SpaceL2 is the squared Euclidean distance.
	SpaceL2 Space = iota
	// SpaceIP is the inner-product proxy distance, 1 - dot(a, b).
	// It is not a true metric; smaller still means closer.
	SpaceIP
	// SpaceCosine is 1 - cosine similarity, implemented as the inner-product
	// distance over L2-normalized vectors.
	SpaceCosine
)

func (s Space) String() string {
	switch s {
	case SpaceL2:
		return "l2"
	case SpaceIP:
		return "ip"
	case SpaceCosine:
		return "cosine"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Valid reports whether s is a recognized space.
func (s Space) Valid() bool {
	return s == SpaceL2 || s == SpaceIP || s == SpaceCosine
}

// ParseSpace converts a space name ("l2", "ip", "cosine") to a Space.
func ParseSpace(name string) (Space, error) {
	switch name {
	case "l2":
		return SpaceL2, nil
	case "ip":
		return SpaceIP, nil
	case "cosine":
		return SpaceCosine, nil
	default:
		return 0, fmt.Errorf("distance: unknown space %q", name)
	}
}

// Dot returns the dot product of two vectors.
// Assumes equal length (caller's responsibility).
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// SquaredL2 returns the squared L2 distance between two vectors.
// Assumes equal length (caller's responsibility).
func SquaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// OneMinusDot returns 1 - dot(a, b), the proxy distance used by the ip and
// cosine spaces.
func OneMinusDot(a, b []float32) float32 {
	return 1 - Dot(a, b)
}

// NormalizeL2InPlace L2-normalizes v in place.
// Returns false (leaving v untouched) if v has zero norm; a zero vector has
// no direction, so cosine indexes store it as-is and score it at a constant
// distance of 1 from everything.
func NormalizeL2InPlace(v []float32) bool {
	norm2 := Dot(v, v)
	if norm2 == 0 {
		return false
	}
	inv := 1 / float32(math.Sqrt(float64(norm2)))
	for i := range v {
		v[i] *= inv
	}
	return true
}

// NormalizeL2Copy returns an L2-normalized copy of src. A zero vector is
// returned unchanged.
func NormalizeL2Copy(src []float32) []float32 {
	dst := slices.Clone(src)
	NormalizeL2InPlace(dst)
	return dst
}

// Func computes the distance between two float32 vectors of equal length.
type Func func(a, b []float32) float32

// Provider returns the float32 kernel for the given space.
func Provider(s Space) (Func, error) {
	switch s {
	case SpaceL2:
		return SquaredL2, nil
	case SpaceIP, SpaceCosine:
		return OneMinusDot, nil
	default:
		return nil, fmt.Errorf("distance: unsupported space: %v", s)
	}
}
