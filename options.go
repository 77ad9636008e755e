package quantvec

import (
	"github.com/quantvec/quantvec/distance"
	"github.com/quantvec/quantvec/hnsw"
)

// Quant selects the stored vector representation.
type Quant int

const (
	// QuantNone stores raw float32 vectors.
	QuantNone Quant = iota
	// QuantInt8 stores int8 codes with one scale per vector.
	QuantInt8
)

func (q Quant) String() string {
	switch q {
	case QuantNone:
		return "none"
	case QuantInt8:
		return "int8"
	default:
		return "unknown"
	}
}

// Valid reports whether q is a recognized mode.
func (q Quant) Valid() bool {
	return q == QuantNone || q == QuantInt8
}

// DefaultEF is the default query-time search breadth. It is clamped up to k
// per query, so small indexes work out of the box; raise it via SetEF for
// better recall.
const DefaultEF = 10

type options struct {
	space    distance.Space
	spaceSet bool
	quant    Quant
	quantSet bool

	dimension int // from New's dim argument, or WithDimension on Load

	m              int
	efConstruction int
	maxElements    int
	ef             int
	maxLevel       int
	randomSeed     *int64

	logger  *Logger
	metrics MetricsCollector
}

// Option configures index construction and loading.
type Option func(*options)

// WithSpace sets the distance metric. On Load it acts as a compatibility
// check against the snapshot header instead.
func WithSpace(s distance.Space) Option {
	return func(o *options) {
		o.space = s
		o.spaceSet = true
	}
}

// WithQuant sets the stored representation. Immutable after construction:
// vectors are quantized on insert, never re-quantized. On Load it acts as a
// compatibility check against the snapshot header.
func WithQuant(q Quant) Option {
	return func(o *options) {
		o.quant = q
		o.quantSet = true
	}
}

// WithDimension declares the expected dimensionality when loading a
// snapshot. New ignores it (the dim argument wins).
func WithDimension(dim int) Option {
	return func(o *options) {
		o.dimension = dim
	}
}

// WithM sets the maximum neighbor count per node on layers above 0; layer 0
// allows twice as many.
func WithM(m int) Option {
	return func(o *options) {
		o.m = m
	}
}

// WithEFConstruction sets the build-time candidate breadth. Larger values
// build a better-connected graph at higher insert cost.
func WithEFConstruction(ef int) Option {
	return func(o *options) {
		o.efConstruction = ef
	}
}

// WithMaxElements fixes the index capacity. Inserting past it fails with
// ErrCapacity; growth requires an explicit Resize. On Load it overrides the
// stored capacity (it must cover the stored element count).
func WithMaxElements(n int) Option {
	return func(o *options) {
		o.maxElements = n
	}
}

// WithEF sets the initial query-time search breadth (mutable later via
// SetEF).
func WithEF(ef int) Option {
	return func(o *options) {
		o.ef = ef
	}
}

// WithMaxLevel caps the drawn node level. Rarely needed; the default suits
// realistic element counts.
func WithMaxLevel(l int) Option {
	return func(o *options) {
		o.maxLevel = l
	}
}

// WithRandomSeed pins the level RNG for reproducible graph builds.
func WithRandomSeed(seed int64) Option {
	return func(o *options) {
		s := seed
		o.randomSeed = &s
	}
}

// WithLogger configures structured logging. Pass nil to disable (the
// default).
func WithLogger(l *Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics configures a metrics collector for monitoring operations.
func WithMetrics(mc MetricsCollector) Option {
	return func(o *options) {
		o.metrics = mc
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		space:          distance.SpaceL2,
		quant:          QuantNone,
		m:              hnsw.DefaultM,
		efConstruction: hnsw.DefaultEFConstruction,
		ef:             DefaultEF,
		maxLevel:       hnsw.DefaultMaxLevel,
		logger:         NoopLogger(),
		metrics:        NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
