package quantvec

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quantvec/quantvec/distance"
	"github.com/quantvec/quantvec/hnsw"
	"github.com/quantvec/quantvec/labelmap"
	"github.com/quantvec/quantvec/vectorstore"
)

// SearchResult is a single hit of a nearest-neighbor query, closest first.
type SearchResult struct {
	Label    uint64
	Distance float32
}

// Index is an in-memory approximate nearest-neighbor index. All methods are
// safe for concurrent use; Resize takes exclusive access internally.
type Index struct {
	opts options

	dim   int
	space distance.Space
	quant Quant

	store     vectorstore.Store
	int8store *vectorstore.Int8Store // nil unless quant == QuantInt8
	graph     *hnsw.Graph
	labels    *labelmap.Map

	ef atomic.Int64

	resizeMu sync.RWMutex

	logger  *Logger
	metrics MetricsCollector
}

// New creates an empty index over dim-dimensional vectors. WithMaxElements is
// required; the metric defaults to L2 and the representation to raw float32.
func New(dim int, optFns ...Option) (*Index, error) {
	o := applyOptions(optFns)
	o.dimension = dim
	return newIndex(o)
}

func newIndex(o options) (*Index, error) {
	if o.dimension <= 0 {
		return nil, &ErrInvalidDimension{Dimension: o.dimension}
	}
	if !o.space.Valid() {
		return nil, &ErrInvalidSpace{Space: o.space}
	}
	if !o.quant.Valid() {
		return nil, &ErrInvalidQuant{Quant: o.quant}
	}
	if o.maxElements <= 0 {
		return nil, fmt.Errorf("%w: max elements must be positive, got %d", ErrUsage, o.maxElements)
	}
	if o.ef <= 0 {
		return nil, fmt.Errorf("%w: ef must be positive, got %d", ErrUsage, o.ef)
	}

	// Cosine reuses the inner-product kernel over normalized vectors.
	kernelSpace := o.space
	if o.space == distance.SpaceCosine {
		kernelSpace = distance.SpaceIP
	}

	var (
		store vectorstore.Store
		i8    *vectorstore.Int8Store
		err   error
	)
	switch o.quant {
	case QuantInt8:
		i8, err = vectorstore.NewInt8(o.dimension, o.maxElements, kernelSpace)
		store = i8
	default:
		store, err = vectorstore.NewFlat(o.dimension, o.maxElements, kernelSpace)
	}
	if err != nil {
		return nil, err
	}

	graph, err := hnsw.New(store, func(g *hnsw.Options) {
		g.M = o.m
		g.EFConstruction = o.efConstruction
		g.MaxElements = o.maxElements
		g.MaxLevel = o.maxLevel
		g.RandomSeed = o.randomSeed
	})
	if err != nil {
		return nil, err
	}

	idx := &Index{
		opts:      o,
		dim:       o.dimension,
		space:     o.space,
		quant:     o.quant,
		store:     store,
		int8store: i8,
		graph:     graph,
		labels:    labelmap.New(o.maxElements),
		logger:    o.logger,
		metrics:   o.metrics,
	}
	idx.ef.Store(int64(o.ef))
	return idx, nil
}

// Dimension returns the configured vector dimensionality.
func (idx *Index) Dimension() int { return idx.dim }

// Space returns the configured distance metric.
func (idx *Index) Space() distance.Space { return idx.space }

// Quantization returns the configured stored representation.
func (idx *Index) Quantization() Quant { return idx.quant }

// Count returns the number of live elements (deleted ones excluded).
func (idx *Index) Count() int {
	idx.resizeMu.RLock()
	defer idx.resizeMu.RUnlock()
	return idx.graph.Count()
}

// Capacity returns the current maximum element count.
func (idx *Index) Capacity() int {
	idx.resizeMu.RLock()
	defer idx.resizeMu.RUnlock()
	return idx.graph.Capacity()
}

// EF returns the current query-time search breadth.
func (idx *Index) EF() int { return int(idx.ef.Load()) }

// SetEF sets the query-time search breadth. It applies to subsequent searches
// only; per-query overrides win.
func (idx *Index) SetEF(ef int) error {
	if ef <= 0 {
		return fmt.Errorf("%w: ef must be positive, got %d", ErrUsage, ef)
	}
	idx.ef.Store(int64(ef))
	return nil
}

// prepare returns the vector to hand to the graph, normalizing a copy for
// cosine. Zero vectors pass through unnormalized; under the inner-product
// kernel they sit at constant distance 1 from everything.
func (idx *Index) prepare(v []float32) []float32 {
	if idx.space != distance.SpaceCosine {
		return v
	}
	return distance.NormalizeL2Copy(v)
}

// Add inserts vectors under the given labels. vectors and labels must have
// equal length. Elements are inserted concurrently; on partial failure the
// successfully inserted elements stay in the index and the first error is
// returned. Duplicate labels fail with ErrDuplicateLabel, full capacity with
// ErrCapacity.
func (idx *Index) Add(ctx context.Context, vectors [][]float32, labels []uint64) error {
	start := time.Now()
	if len(vectors) != len(labels) {
		return fmt.Errorf("%w: %d vectors for %d labels", ErrUsage, len(vectors), len(labels))
	}

	idx.resizeMu.RLock()
	defer idx.resizeMu.RUnlock()

	var failed atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i := range vectors {
		v, label := vectors[i], labels[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				failed.Add(1)
				return err
			}
			if err := idx.addOne(v, label); err != nil {
				failed.Add(1)
				return err
			}
			return nil
		})
	}

	err := g.Wait()
	idx.metrics.RecordAdd(len(vectors), int(failed.Load()), time.Since(start))
	idx.logger.LogAdd(ctx, len(vectors), int(failed.Load()))
	return err
}

// addOne reserves the label and inserts the vector. The label is bound to
// the assigned id before the node is linked into the graph, so a concurrent
// search can never surface an id whose label is still unset. A failed insert
// cancels the reservation, so the map never holds a label without a node.
func (idx *Index) addOne(v []float32, label uint64) error {
	if err := idx.labels.Reserve(label); err != nil {
		return translateError(err)
	}
	_, err := idx.graph.Insert(idx.prepare(v), func(id uint32) {
		idx.labels.Bind(label, id)
	})
	if err != nil {
		idx.labels.Cancel(label)
		return translateError(err)
	}
	return nil
}

// SearchOption configures a single Search call.
type SearchOption func(*searchOptions)

type searchOptions struct {
	ef     int
	filter FilterFunc
}

// WithSearchEF overrides the index's ef for this query batch.
func WithSearchEF(ef int) SearchOption {
	return func(o *searchOptions) { o.ef = ef }
}

// WithFilter restricts results to labels the filter accepts. Filtering
// happens during traversal; fewer than k results may come back when the
// filter is selective.
func WithFilter(f FilterFunc) SearchOption {
	return func(o *searchOptions) { o.filter = f }
}

// Search returns up to k nearest neighbors per query, closest first. The
// effective ef is max(configured ef, k). Queries run concurrently.
func (idx *Index) Search(ctx context.Context, queries [][]float32, k int, optFns ...SearchOption) ([][]SearchResult, error) {
	start := time.Now()
	var so searchOptions
	for _, fn := range optFns {
		fn(&so)
	}

	run := func() ([][]SearchResult, error) {
		if k <= 0 {
			return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
		}
		ef := so.ef
		if ef <= 0 {
			ef = int(idx.ef.Load())
		}
		if ef < k {
			ef = k
		}

		var idFilter func(uint32) bool
		if so.filter != nil {
			idFilter = func(id uint32) bool {
				return so.filter(idx.labels.Label(id))
			}
		}

		idx.resizeMu.RLock()
		defer idx.resizeMu.RUnlock()

		out := make([][]SearchResult, len(queries))
		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(runtime.GOMAXPROCS(0))
		for i := range queries {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				hits, err := idx.graph.Search(idx.prepare(queries[i]), k, ef, idFilter)
				if err != nil {
					return translateError(err)
				}
				out[i] = idx.toResults(hits)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return out, nil
	}

	out, err := run()
	idx.metrics.RecordSearch(len(queries), k, time.Since(start), err)
	idx.logger.LogSearch(ctx, len(queries), k, err)
	return out, err
}

// BruteSearch runs an exact linear scan over all live elements. It is O(n)
// per query and intended for small indexes and recall measurement.
func (idx *Index) BruteSearch(ctx context.Context, queries [][]float32, k int, optFns ...SearchOption) ([][]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	var so searchOptions
	for _, fn := range optFns {
		fn(&so)
	}
	var idFilter func(uint32) bool
	if so.filter != nil {
		idFilter = func(id uint32) bool {
			return so.filter(idx.labels.Label(id))
		}
	}

	idx.resizeMu.RLock()
	defer idx.resizeMu.RUnlock()

	out := make([][]SearchResult, len(queries))
	for i := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hits, err := idx.graph.BruteSearch(idx.prepare(queries[i]), k, idFilter)
		if err != nil {
			return nil, translateError(err)
		}
		out[i] = idx.toResults(hits)
	}
	return out, nil
}

func (idx *Index) toResults(hits []hnsw.Result) []SearchResult {
	rs := make([]SearchResult, len(hits))
	for i, h := range hits {
		rs[i] = SearchResult{Label: idx.labels.Label(h.ID), Distance: h.Distance}
	}
	return rs
}

// liveID resolves a label to its internal id, treating tombstoned elements as
// absent.
func (idx *Index) liveID(label uint64) (uint32, error) {
	id, ok := idx.labels.ID(label)
	if !ok || idx.graph.IsDeleted(id) {
		return 0, fmt.Errorf("%w: %d", ErrNotFound, label)
	}
	return id, nil
}

// GetVector returns the stored representation of label as floats: the exact
// vector for an unquantized index, the dequantized approximation for a
// quantized one.
func (idx *Index) GetVector(label uint64) ([]float32, error) {
	idx.resizeMu.RLock()
	defer idx.resizeMu.RUnlock()

	id, err := idx.liveID(label)
	if err != nil {
		return nil, err
	}
	return idx.store.Reconstruct(id), nil
}

// GetVectors returns the stored representations of the given labels, in
// order. It fails on the first unknown or deleted label.
func (idx *Index) GetVectors(labels []uint64) ([][]float32, error) {
	idx.resizeMu.RLock()
	defer idx.resizeMu.RUnlock()

	out := make([][]float32, len(labels))
	for i, label := range labels {
		id, err := idx.liveID(label)
		if err != nil {
			return nil, err
		}
		out[i] = idx.store.Reconstruct(id)
	}
	return out, nil
}

// GetQuantizedVector returns the int8 code and scale stored for label. It
// fails with ErrUsage on an unquantized index.
func (idx *Index) GetQuantizedVector(label uint64) ([]int8, float32, error) {
	idx.resizeMu.RLock()
	defer idx.resizeMu.RUnlock()

	if idx.int8store == nil {
		return nil, 0, fmt.Errorf("%w: index is not quantized", ErrUsage)
	}
	id, err := idx.liveID(label)
	if err != nil {
		return nil, 0, err
	}
	code, scale := idx.int8store.Quantized(id)
	out := make([]int8, len(code))
	copy(out, code)
	return out, scale, nil
}

// GetQuantizedVectors returns codes and scales for the given labels, in
// order.
func (idx *Index) GetQuantizedVectors(labels []uint64) ([][]int8, []float32, error) {
	idx.resizeMu.RLock()
	defer idx.resizeMu.RUnlock()

	if idx.int8store == nil {
		return nil, nil, fmt.Errorf("%w: index is not quantized", ErrUsage)
	}
	codes := make([][]int8, len(labels))
	scales := make([]float32, len(labels))
	for i, label := range labels {
		id, err := idx.liveID(label)
		if err != nil {
			return nil, nil, err
		}
		code, scale := idx.int8store.Quantized(id)
		codes[i] = make([]int8, len(code))
		copy(codes[i], code)
		scales[i] = scale
	}
	return codes, scales, nil
}

// Delete tombstones label. The element disappears from results and counts but
// its graph node keeps routing traffic; the slot is never reused.
func (idx *Index) Delete(ctx context.Context, label uint64) error {
	start := time.Now()
	err := func() error {
		idx.resizeMu.RLock()
		defer idx.resizeMu.RUnlock()

		id, err := idx.liveID(label)
		if err != nil {
			return err
		}
		idx.graph.Delete(id)
		return nil
	}()
	idx.metrics.RecordDelete(time.Since(start), err)
	idx.logger.LogDelete(ctx, label, err)
	return err
}

// Contains reports whether label is live in the index.
func (idx *Index) Contains(label uint64) bool {
	idx.resizeMu.RLock()
	defer idx.resizeMu.RUnlock()
	_, err := idx.liveID(label)
	return err == nil
}

// Resize grows the index capacity to newMax. All concurrent operations block
// for the duration. Shrinking below the inserted element count fails.
func (idx *Index) Resize(newMax int) error {
	idx.resizeMu.Lock()
	defer idx.resizeMu.Unlock()
	if err := idx.graph.Resize(newMax); err != nil {
		return err
	}
	idx.labels.Grow(newMax)
	idx.opts.maxElements = newMax
	return nil
}

// Stats returns structural statistics of the underlying graph.
func (idx *Index) Stats() hnsw.Stats {
	idx.resizeMu.RLock()
	defer idx.resizeMu.RUnlock()
	return idx.graph.Stats()
}
