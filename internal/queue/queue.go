// Package queue provides the bounded priority queues used by graph
// construction and search.
package queue

// Item is a (node, distance) pair ordered by distance.
//
// Ties on distance are broken by the internal id: the node inserted earlier
// (smaller id) ranks closer. This makes search results deterministic for
// datasets containing duplicate vectors.
type Item struct {
	Node     uint32
	Distance float32
}

// Closer reports whether a ranks strictly closer than b.
func Closer(a, b Item) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.Node < b.Node
}

// Queue is a value-based binary heap of Items.
//
// A min-queue pops the closest item first (candidate frontier); a max-queue
// pops the farthest item first (bounded result set).
type Queue struct {
	max   bool
	items []Item
}

// NewMin creates a queue that pops the closest item first.
func NewMin(capacity int) *Queue {
	return &Queue{items: make([]Item, 0, capacity)}
}

// NewMax creates a queue that pops the farthest item first.
func NewMax(capacity int) *Queue {
	return &Queue{max: true, items: make([]Item, 0, capacity)}
}

// Len returns the number of items in the queue.
func (q *Queue) Len() int { return len(q.items) }

// Top returns the item at the head of the queue without removing it.
func (q *Queue) Top() (Item, bool) {
	if len(q.items) == 0 {
		return Item{}, false
	}
	return q.items[0], true
}

// Push inserts an item.
func (q *Queue) Push(it Item) {
	q.items = append(q.items, it)
	q.siftUp(len(q.items) - 1)
}

// Pop removes and returns the item at the head of the queue.
func (q *Queue) Pop() (Item, bool) {
	n := len(q.items)
	if n == 0 {
		return Item{}, false
	}
	head := q.items[0]
	last := q.items[n-1]
	q.items[n-1] = Item{}
	q.items = q.items[:n-1]
	if n-1 > 0 {
		q.items[0] = last
		q.siftDown(0)
	}
	return head, true
}

// Closest returns the item with the smallest distance currently held.
// For a min-queue this is the head; for a max-queue it scans the backing
// slice.
func (q *Queue) Closest() (Item, bool) {
	if len(q.items) == 0 {
		return Item{}, false
	}
	if !q.max {
		return q.items[0], true
	}
	best := q.items[0]
	for _, it := range q.items[1:] {
		if Closer(it, best) {
			best = it
		}
	}
	return best, true
}

// Reset clears the queue for reuse.
func (q *Queue) Reset() { q.items = q.items[:0] }

func (q *Queue) before(i, j int) bool {
	if q.max {
		return Closer(q.items[j], q.items[i])
	}
	return Closer(q.items[i], q.items[j])
}

func (q *Queue) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !q.before(i, p) {
			return
		}
		q.items[i], q.items[p] = q.items[p], q.items[i]
		i = p
	}
}

func (q *Queue) siftDown(i int) {
	n := len(q.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		if r := l + 1; r < n && q.before(r, l) {
			best = r
		}
		if !q.before(best, i) {
			return
		}
		q.items[i], q.items[best] = q.items[best], q.items[i]
		i = best
	}
}
