// Package quantization provides the int8 scalar codec used for lossy vector
// storage.
//
// The codec is per-vector and symmetric: the scale is chosen from the largest
// absolute component, so sign and relative magnitude survive quantization.
// This keeps the code usable for the ip and cosine spaces, where an
// asymmetric (min/max) range would fold negative components onto positive
// codes.
package quantization

import "math"

const (
	// maxCode is the largest magnitude an int8 code can take on the positive
	// side; encoding maps maxabs onto it.
	maxCode = 127
)

// EncodeInt8 quantizes v into code and returns the scale.
//
// code must have len(v). Each component becomes
// clamp(round(v[i]/scale), -128, 127) with scale = maxabs(v)/127, so
// decoding is code[i]*scale and the absolute error per component is at most
// scale/2 (for unit-range input, under 0.004; the documented bound is 0.1).
//
// A zero vector encodes to a zero code with a sentinel scale of 1, keeping
// the scale strictly positive so decode never divides by zero.
func EncodeInt8(v []float32, code []int8) float32 {
	var maxAbs float32
	for _, x := range v {
		a := x
		if a < 0 {
			a = -a
		}
		if a > maxAbs {
			maxAbs = a
		}
	}

	if maxAbs == 0 {
		for i := range code {
			code[i] = 0
		}
		return 1
	}

	scale := maxAbs / maxCode
	inv := 1 / scale
	for i, x := range v {
		q := int(math.Round(float64(x * inv)))
		if q > 127 {
			q = 127
		} else if q < -128 {
			q = -128
		}
		code[i] = int8(q)
	}
	return scale
}

// DecodeInt8 reconstructs the approximate vector into out.
// out must have len(code).
func DecodeInt8(code []int8, scale float32, out []float32) {
	for i, c := range code {
		out[i] = float32(c) * scale
	}
}

// MaxAbsError returns the worst-case absolute reconstruction error per
// component for a vector encoded with the given scale.
func MaxAbsError(scale float32) float32 {
	return scale / 2
}
