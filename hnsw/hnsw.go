// Package hnsw implements the Hierarchical Navigable Small World graph over
// dense internal ids.
//
// The graph owns adjacency; payload bytes live in the vectorstore. Capacity
// is fixed at construction (Resize is an explicit exclusive operation), which
// lets every per-node structure be a dense slice indexed by id.
//
// Locking model:
//   - one RWMutex per node guards that node's neighbor lists (shared for
//     traversal, exclusive for wiring); mutations publish fresh slices, so a
//     snapshot taken under the read lock stays valid after release
//   - a single coarse mutex guards the entry point and top layer, held only
//     for the pointer swap
//   - a resize mutex is held shared by every operation and exclusively by
//     Resize
//
// No operation ever holds two node locks at once, so no acquisition-order
// protocol is needed for deadlock freedom.
package hnsw

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/quantvec/quantvec/internal/queue"
	"github.com/quantvec/quantvec/internal/visited"
	"github.com/quantvec/quantvec/vectorstore"
)

const (
	// m0Multiplier doubles the degree bound at layer 0.
	m0Multiplier = 2

	// minimumM is the smallest valid M; below this the layer multiplier
	// degenerates.
	minimumM = 2

	// DefaultM is the default number of bidirectional links per layer.
	DefaultM = 16

	// DefaultEFConstruction is the default build-time candidate breadth.
	DefaultEFConstruction = 200

	// DefaultMaxLevel caps the drawn node level. With the exponential level
	// distribution this is only ever reached by astronomically unlikely
	// draws for realistic element counts.
	DefaultMaxLevel = 16
)

var (
	// ErrCapacity is returned when an insert would exceed the configured
	// maximum element count.
	ErrCapacity = errors.New("hnsw: index is full")

	// ErrEmptyVector is returned for zero-length input vectors.
	ErrEmptyVector = errors.New("hnsw: vector cannot be empty")
)

// ErrDimensionMismatch indicates a vector of the wrong length.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("hnsw: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Result is a single search hit.
type Result struct {
	ID       uint32
	Distance float32
}

// Options configures a Graph.
type Options struct {
	// M is the maximum number of bidirectional links per node on layers
	// above 0; layer 0 allows 2*M.
	M int

	// EFConstruction bounds the candidate set explored per layer during
	// insertion.
	EFConstruction int

	// MaxElements fixes the graph capacity.
	MaxElements int

	// MaxLevel caps the drawn node level.
	MaxLevel int

	// RandomSeed pins the level RNG for reproducible builds. Nil seeds from
	// the clock.
	RandomSeed *int64
}

// DefaultOptions are the options applied before user overrides.
var DefaultOptions = Options{
	M:              DefaultM,
	EFConstruction: DefaultEFConstruction,
	MaxLevel:       DefaultMaxLevel,
}

// Graph is the multi-layer proximity graph.
type Graph struct {
	store vectorstore.Store
	opts  Options

	m         int
	m0        int
	levelMult float64

	capacity int

	// Per-node state, indexed by internal id. levels[id] < 0 means the slot
	// is unassigned. neighbors[id][layer] holds immutable snapshots replaced
	// wholesale under locks[id].
	levels    []atomic.Int32
	neighbors [][][]uint32
	locks     []sync.RWMutex

	nextID atomic.Uint32
	live   atomic.Int64

	epMu       sync.RWMutex
	entryPoint uint32
	topLayer   int
	hasEntry   bool

	deletedMu sync.RWMutex
	deleted   *roaring.Bitmap

	resizeMu sync.RWMutex

	rngMu sync.Mutex
	rng   *rand.Rand

	minPool     sync.Pool
	maxPool     sync.Pool
	visitedPool sync.Pool
}

// New creates a graph backed by store.
func New(store vectorstore.Store, optFns ...func(o *Options)) (*Graph, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.M < minimumM {
		opts.M = minimumM
	}
	if opts.EFConstruction < 1 {
		opts.EFConstruction = DefaultEFConstruction
	}
	if opts.MaxLevel < 1 {
		opts.MaxLevel = DefaultMaxLevel
	}
	if opts.MaxElements <= 0 {
		return nil, fmt.Errorf("hnsw: max elements must be positive, got %d", opts.MaxElements)
	}
	if store.Capacity() < opts.MaxElements {
		return nil, fmt.Errorf("hnsw: store capacity %d below max elements %d", store.Capacity(), opts.MaxElements)
	}

	var rng *rand.Rand
	if opts.RandomSeed != nil {
		rng = rand.New(rand.NewSource(*opts.RandomSeed))
	} else {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	g := &Graph{
		store:     store,
		opts:      opts,
		m:         opts.M,
		m0:        m0Multiplier * opts.M,
		levelMult: 1 / math.Log(float64(opts.M)),
		capacity:  opts.MaxElements,
		levels:    make([]atomic.Int32, opts.MaxElements),
		neighbors: make([][][]uint32, opts.MaxElements),
		locks:     make([]sync.RWMutex, opts.MaxElements),
		deleted:   roaring.New(),
		rng:       rng,
	}
	for i := range g.levels {
		g.levels[i].Store(-1)
	}

	ef := opts.EFConstruction
	g.minPool.New = func() any { return queue.NewMin(ef) }
	g.maxPool.New = func() any { return queue.NewMax(ef) }
	g.visitedPool.New = func() any { return visited.New(opts.MaxElements) }

	return g, nil
}

// Capacity returns the configured maximum element count.
func (g *Graph) Capacity() int { return g.capacity }

// Count returns the number of live (inserted, not tombstoned) nodes.
func (g *Graph) Count() int { return int(g.live.Load()) }

// Inserted returns the number of nodes ever inserted, tombstoned included.
// Internal ids are dense in [0, Inserted()).
func (g *Graph) Inserted() int { return int(g.nextID.Load()) }

// allocateID hands out the next dense id, bounded by capacity.
func (g *Graph) allocateID() (uint32, error) {
	for {
		cur := g.nextID.Load()
		if int(cur) >= g.capacity {
			return 0, ErrCapacity
		}
		if g.nextID.CompareAndSwap(cur, cur+1) {
			return cur, nil
		}
	}
}

// drawLevel samples the node level from the exponential distribution with
// mean 1/ln(M), capped at MaxLevel.
func (g *Graph) drawLevel() int {
	g.rngMu.Lock()
	r := g.rng.Float64()
	g.rngMu.Unlock()
	if r == 0 {
		r = math.SmallestNonzeroFloat64
	}
	level := int(math.Floor(-math.Log(r) * g.levelMult))
	if level > g.opts.MaxLevel {
		level = g.opts.MaxLevel
	}
	return level
}

// connections returns the current neighbor snapshot of id at layer. The
// snapshot is immutable; iterating it after the lock is released is safe.
func (g *Graph) connections(id uint32, layer int) []uint32 {
	g.locks[id].RLock()
	defer g.locks[id].RUnlock()
	lists := g.neighbors[id]
	if layer >= len(lists) {
		return nil
	}
	return lists[layer]
}

// Insert adds v to the graph and returns its internal id. The vector must
// already be normalized if the space requires it.
//
// onAssign, when non-nil, runs after the payload is stored but before the
// node becomes reachable from any search. Callers use it to complete
// id-keyed bookkeeping (such as label binding) that concurrent readers must
// observe for every visible node. Insert cannot fail once onAssign has run.
func (g *Graph) Insert(v []float32, onAssign func(id uint32)) (uint32, error) {
	if len(v) == 0 {
		return 0, ErrEmptyVector
	}
	if len(v) != g.store.Dimension() {
		return 0, &ErrDimensionMismatch{Expected: g.store.Dimension(), Actual: len(v)}
	}

	g.resizeMu.RLock()
	defer g.resizeMu.RUnlock()

	id, err := g.allocateID()
	if err != nil {
		return 0, err
	}
	level := g.drawLevel()

	if err := g.store.Set(id, v); err != nil {
		return 0, err
	}
	if onAssign != nil {
		onAssign(id)
	}

	g.locks[id].Lock()
	g.neighbors[id] = make([][]uint32, level+1)
	g.locks[id].Unlock()
	g.levels[id].Store(int32(level))

	// First node becomes the entry point without any wiring.
	g.epMu.Lock()
	if !g.hasEntry {
		g.entryPoint = id
		g.topLayer = level
		g.hasEntry = true
		g.epMu.Unlock()
		g.live.Add(1)
		return id, nil
	}
	ep := g.entryPoint
	top := g.topLayer
	g.epMu.Unlock()

	scorer := g.store.NewScorer(v)

	// Greedy ef=1 descent through the layers above the insertion level.
	curr := ep
	currDist := scorer.Score(curr)
	for layer := top; layer > level; layer-- {
		curr, currDist = g.greedyStep(scorer, curr, currDist, layer)
	}

	// Wire layers min(level, top)..0.
	for layer := min(level, top); layer >= 0; layer-- {
		results := g.searchLayer(scorer, curr, currDist, layer, g.opts.EFConstruction, g.admitLive, false)

		if best, ok := results.Closest(); ok {
			curr = best.Node
			currDist = best.Distance
		}

		maxConns := g.m
		if layer == 0 {
			maxConns = g.m0
		}
		selected := g.selectNeighbors(results, maxConns)
		results.Reset()
		g.maxPool.Put(results)

		g.locks[id].Lock()
		g.neighbors[id][layer] = selected
		g.locks[id].Unlock()

		for _, n := range selected {
			g.link(n, id, layer)
		}
	}

	g.live.Add(1)

	if level > top {
		g.epMu.Lock()
		if level > g.topLayer {
			g.topLayer = level
			g.entryPoint = id
		}
		g.epMu.Unlock()
	}

	return id, nil
}

// greedyStep walks layer edges as long as a strictly closer neighbor exists.
func (g *Graph) greedyStep(scorer vectorstore.Scorer, curr uint32, currDist float32, layer int) (uint32, float32) {
	for changed := true; changed; {
		changed = false
		for _, next := range g.connections(curr, layer) {
			if d := scorer.Score(next); d < currDist {
				curr = next
				currDist = d
				changed = true
			}
		}
	}
	return curr, currDist
}

// link adds newID to target's neighbor list at layer, re-pruning with the
// selection heuristic when the degree bound is exceeded.
func (g *Graph) link(target, newID uint32, layer int) {
	g.locks[target].Lock()
	defer g.locks[target].Unlock()

	lists := g.neighbors[target]
	if layer >= len(lists) {
		return
	}
	conns := lists[layer]

	for _, c := range conns {
		if c == newID {
			return
		}
	}

	maxConns := g.m
	if layer == 0 {
		maxConns = g.m0
	}

	if len(conns) < maxConns {
		grown := make([]uint32, 0, len(conns)+1)
		grown = append(grown, conns...)
		grown = append(grown, newID)
		lists[layer] = grown
		return
	}

	// Over budget: rank existing edges plus the new one by distance to the
	// target and keep the heuristic's survivors, evicting the worst edge.
	candidates := g.maxPool.Get().(*queue.Queue)
	candidates.Reset()
	defer g.maxPool.Put(candidates)

	for _, c := range conns {
		candidates.Push(queue.Item{Node: c, Distance: g.store.Distance(target, c)})
	}
	candidates.Push(queue.Item{Node: newID, Distance: g.store.Distance(target, newID)})

	lists[layer] = g.selectNeighbors(candidates, maxConns)
}

// selectNeighbors reduces a max-queue of candidates to at most m neighbor
// ids, nearest first, using the navigability heuristic: a candidate is
// dropped when some already-selected neighbor sits closer to it than the
// candidate sits to the query point. Keeping only such non-dominated edges
// preserves paths around selected neighbors instead of clustering all edges
// on one side.
//
// The queue is consumed.
func (g *Graph) selectNeighbors(candidates *queue.Queue, m int) []uint32 {
	// Drain the max-queue (worst first) into best-first order.
	ordered := make([]queue.Item, candidates.Len())
	for i := len(ordered) - 1; i >= 0; i-- {
		ordered[i], _ = candidates.Pop()
	}

	if len(ordered) <= m {
		out := make([]uint32, len(ordered))
		for i, it := range ordered {
			out[i] = it.Node
		}
		return out
	}

	selected := make([]uint32, 0, m)
	for _, cand := range ordered {
		if len(selected) >= m {
			break
		}
		dominated := false
		for _, s := range selected {
			if g.store.Distance(cand.Node, s) < cand.Distance {
				dominated = true
				break
			}
		}
		if !dominated {
			selected = append(selected, cand.Node)
		}
	}
	return selected
}

// admitLive admits every non-tombstoned node.
func (g *Graph) admitLive(id uint32) bool {
	return !g.IsDeleted(id)
}

// searchLayer runs a bounded best-first search on one layer starting from
// ep. admit gates membership in the result set only; rejected nodes are
// still traversed since they may lead to admissible ones. permissive
// disables the far-candidate skip, which is required when admit is
// selective: otherwise traversal can stall inside a rejected region.
//
// The returned max-queue holds up to ef admitted results; the caller must
// Reset it and return it to the max pool.
func (g *Graph) searchLayer(scorer vectorstore.Scorer, ep uint32, epDist float32, layer, ef int, admit func(uint32) bool, permissive bool) *queue.Queue {
	seen := g.visitedPool.Get().(*visited.Set)
	seen.Reset()
	defer g.visitedPool.Put(seen)

	frontier := g.minPool.Get().(*queue.Queue)
	frontier.Reset()
	defer func() {
		frontier.Reset()
		g.minPool.Put(frontier)
	}()

	results := g.maxPool.Get().(*queue.Queue)
	results.Reset()

	seen.Visit(ep)
	frontier.Push(queue.Item{Node: ep, Distance: epDist})
	if admit(ep) {
		results.Push(queue.Item{Node: ep, Distance: epDist})
	}

	for frontier.Len() > 0 {
		curr, _ := frontier.Pop()

		// Stop once the closest unexplored candidate cannot improve a full
		// result set.
		if results.Len() >= ef {
			if worst, ok := results.Top(); ok && curr.Distance > worst.Distance {
				break
			}
		}

		for _, next := range g.connections(curr.Node, layer) {
			if seen.Visited(next) {
				continue
			}
			seen.Visit(next)

			d := scorer.Score(next)

			// Once the result set is full, a node farther than the current
			// worst cannot contribute; skipping it saves heap churn.
			if !permissive && results.Len() >= ef {
				if worst, ok := results.Top(); ok && d > worst.Distance {
					continue
				}
			}

			frontier.Push(queue.Item{Node: next, Distance: d})
			if admit(next) {
				results.Push(queue.Item{Node: next, Distance: d})
				if results.Len() > ef {
					results.Pop()
				}
			}
		}
	}

	return results
}

// Search returns the k nearest live nodes to q, closest first. filter, when
// non-nil, gates result admission by internal id; it never prunes traversal.
// The query must already be normalized if the space requires it.
func (g *Graph) Search(q []float32, k, ef int, filter func(uint32) bool) ([]Result, error) {
	if len(q) != g.store.Dimension() {
		return nil, &ErrDimensionMismatch{Expected: g.store.Dimension(), Actual: len(q)}
	}
	if ef < k {
		ef = k
	}

	g.resizeMu.RLock()
	defer g.resizeMu.RUnlock()

	g.epMu.RLock()
	ep := g.entryPoint
	top := g.topLayer
	hasEntry := g.hasEntry
	g.epMu.RUnlock()
	if !hasEntry {
		return nil, nil
	}

	scorer := g.store.NewScorer(q)

	curr := ep
	currDist := scorer.Score(curr)
	for layer := top; layer > 0; layer-- {
		curr, currDist = g.greedyStep(scorer, curr, currDist, layer)
	}

	admit := g.admitLive
	if filter != nil {
		admit = func(id uint32) bool {
			return !g.IsDeleted(id) && filter(id)
		}
	}

	results := g.searchLayer(scorer, curr, currDist, 0, ef, admit, filter != nil)
	defer func() {
		results.Reset()
		g.maxPool.Put(results)
	}()

	for results.Len() > k {
		results.Pop()
	}
	out := make([]Result, results.Len())
	for i := results.Len() - 1; i >= 0; i-- {
		it, _ := results.Pop()
		out[i] = Result{ID: it.Node, Distance: it.Distance}
	}
	return out, nil
}

// BruteSearch scans every live node. It is exact and O(n); tests use it as
// the recall baseline.
func (g *Graph) BruteSearch(q []float32, k int, filter func(uint32) bool) ([]Result, error) {
	if len(q) != g.store.Dimension() {
		return nil, &ErrDimensionMismatch{Expected: g.store.Dimension(), Actual: len(q)}
	}

	g.resizeMu.RLock()
	defer g.resizeMu.RUnlock()

	scorer := g.store.NewScorer(q)
	pq := queue.NewMax(k)

	n := uint32(g.Inserted())
	for id := uint32(0); id < n; id++ {
		// An allocated slot is scannable only once its level is published;
		// the atomic store happens after the payload write, so reading the
		// vector is safe from here on.
		if g.levels[id].Load() < 0 {
			continue
		}
		if g.IsDeleted(id) {
			continue
		}
		if filter != nil && !filter(id) {
			continue
		}
		it := queue.Item{Node: id, Distance: scorer.Score(id)}
		if pq.Len() < k {
			pq.Push(it)
			continue
		}
		if worst, ok := pq.Top(); ok && queue.Closer(it, worst) {
			pq.Pop()
			pq.Push(it)
		}
	}

	out := make([]Result, pq.Len())
	for i := pq.Len() - 1; i >= 0; i-- {
		it, _ := pq.Pop()
		out[i] = Result{ID: it.Node, Distance: it.Distance}
	}
	return out, nil
}

// Delete tombstones id. The node stays wired into the graph for navigability
// but is excluded from results and the live count. Ids are never reused.
func (g *Graph) Delete(id uint32) {
	g.resizeMu.RLock()
	defer g.resizeMu.RUnlock()

	g.deletedMu.Lock()
	defer g.deletedMu.Unlock()
	if g.deleted.Contains(id) {
		return
	}
	g.deleted.Add(id)
	g.live.Add(-1)
}

// IsDeleted reports whether id carries a tombstone.
func (g *Graph) IsDeleted(id uint32) bool {
	g.deletedMu.RLock()
	defer g.deletedMu.RUnlock()
	return g.deleted.Contains(id)
}

// Resize grows the graph (and its store) to hold newMax elements. It takes
// exclusive access: all concurrent inserts and queries block for the
// duration.
func (g *Graph) Resize(newMax int) error {
	g.resizeMu.Lock()
	defer g.resizeMu.Unlock()

	if newMax < int(g.nextID.Load()) {
		return fmt.Errorf("hnsw: cannot shrink below %d inserted elements", g.nextID.Load())
	}
	if err := g.store.Resize(newMax); err != nil {
		return err
	}

	levels := make([]atomic.Int32, newMax)
	for i := range levels {
		if i < len(g.levels) {
			levels[i].Store(g.levels[i].Load())
		} else {
			levels[i].Store(-1)
		}
	}
	g.levels = levels

	neighbors := make([][][]uint32, newMax)
	copy(neighbors, g.neighbors)
	g.neighbors = neighbors

	g.locks = make([]sync.RWMutex, newMax)
	g.capacity = newMax
	return nil
}
