package distance

import "fmt"

// This file provides kernels over int8-quantized payloads. Each stored vector
// is a code slice plus a positive scale; component i decodes to
// float32(code[i]) * scale. Distances are computed on the raw int8 components
// in int32 accumulators and rescaled afterwards, avoiding a dequantization
// pass per comparison.
//
// The rescaled values track the float32 kernels to within quantization error,
// which is what approximate ranking needs; they are not bit-identical.

// dotInt8 accumulates the int32 dot product of two code slices.
func dotInt8(a, b []int8) int32 {
	var sum int32
	for i := range a {
		sum += int32(a[i]) * int32(b[i])
	}
	return sum
}

// SquaredL2Int8 returns the squared L2 distance between two quantized
// vectors, expanded as sa²·|a|² + sb²·|b|² - 2·sa·sb·(a·b) so that the
// integer sums are shared.
// Assumes equal length (caller's responsibility).
func SquaredL2Int8(a, b []int8, sa, sb float32) float32 {
	var dot, na, nb int32
	for i := range a {
		x := int32(a[i])
		y := int32(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	return sa*sa*float32(na) + sb*sb*float32(nb) - 2*sa*sb*float32(dot)
}

// OneMinusDotInt8 returns 1 - sa·sb·(a·b), the quantized form of the ip and
// cosine proxy distance.
// Assumes equal length (caller's responsibility).
func OneMinusDotInt8(a, b []int8, sa, sb float32) float32 {
	return 1 - sa*sb*float32(dotInt8(a, b))
}

// Int8Func computes the distance between two quantized vectors with their
// scales.
type Int8Func func(a, b []int8, sa, sb float32) float32

// ProviderInt8 returns the int8 kernel for the given space.
func ProviderInt8(s Space) (Int8Func, error) {
	switch s {
	case SpaceL2:
		return SquaredL2Int8, nil
	case SpaceIP, SpaceCosine:
		return OneMinusDotInt8, nil
	default:
		return nil, fmt.Errorf("distance: unsupported space: %v", s)
	}
}
