// Package testutil provides deterministic random data generators and recall
// helpers for tests and benchmarks.
package testutil

import (
	"math"
	"math/rand"
	"sync"
)

// RNG is a seeded, thread-safe random number generator.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates an RNG with the given seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset rewinds the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Intn returns a non-negative pseudo-random number in [0, n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns a pseudo-random number in [0.0, 1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// UniformVectors generates num vectors with values in [0, 1), sharing one
// backing array.
func (r *RNG) UniformVectors(num, dim int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dim)
	vectors := make([][]float32, num)
	for i := range num {
		vec := data[i*dim : (i+1)*dim]
		for j := range vec {
			vec[j] = r.rand.Float32()
		}
		vectors[i] = vec
	}
	return vectors
}

// UniformRangeVectors generates num vectors with values in [minVal, maxVal).
func (r *RNG) UniformRangeVectors(num, dim int, minVal, maxVal float32) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	span := maxVal - minVal
	data := make([]float32, num*dim)
	vectors := make([][]float32, num)
	for i := range num {
		vec := data[i*dim : (i+1)*dim]
		for j := range vec {
			vec[j] = minVal + r.rand.Float32()*span
		}
		vectors[i] = vec
	}
	return vectors
}

// UnitVectors generates num L2-normalized vectors uniformly distributed on
// the hypersphere.
func (r *RNG) UnitVectors(num, dim int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dim)
	vectors := make([][]float32, num)
	for i := range num {
		vec := data[i*dim : (i+1)*dim]
		var norm float64
		for j := range vec {
			v := r.rand.NormFloat64()
			vec[j] = float32(v)
			norm += v * v
		}
		if norm == 0 {
			norm = 1
		}
		inv := float32(1 / math.Sqrt(norm))
		for j := range vec {
			vec[j] *= inv
		}
		vectors[i] = vec
	}
	return vectors
}

// Labels returns sequential labels 0..num-1.
func Labels(num int) []uint64 {
	labels := make([]uint64, num)
	for i := range labels {
		labels[i] = uint64(i)
	}
	return labels
}

// Overlap returns the number of labels present in both a and b.
func Overlap(a, b []uint64) int {
	set := make(map[uint64]struct{}, len(a))
	for _, l := range a {
		set[l] = struct{}{}
	}
	n := 0
	for _, l := range b {
		if _, ok := set[l]; ok {
			n++
		}
	}
	return n
}

// Recall returns the fraction of exact labels present in got.
func Recall(got, exact []uint64) float64 {
	if len(exact) == 0 {
		return 1
	}
	return float64(Overlap(got, exact)) / float64(len(exact))
}
