// Package labelmap maintains the bidirectional mapping between external
// labels and dense internal ids.
package labelmap

import (
	"errors"
	"sync"
)

var (
	// ErrDuplicate is returned when a label is already mapped (or mid-insert).
	ErrDuplicate = errors.New("labelmap: duplicate label")
	// ErrNotFound is returned when a label has no live mapping.
	ErrNotFound = errors.New("labelmap: label not found")
)

// reserved marks a label whose insertion is in flight: the label is claimed
// (duplicate inserts fail) but not yet visible to lookups, so a failed
// insertion never leaves a half-linked entry.
const reserved = ^uint32(0)

// Map is a bidirectional label <-> internal-id map. Both directions are O(1):
// labels resolve through a hash map, ids through a dense slice.
type Map struct {
	mu      sync.RWMutex
	forward map[uint64]uint32
	reverse []uint64
}

// New creates a map sized for capacity elements.
func New(capacity int) *Map {
	return &Map{
		forward: make(map[uint64]uint32, capacity),
		reverse: make([]uint64, capacity),
	}
}

// Reserve claims label for an in-flight insertion. It fails with ErrDuplicate
// if the label is live or already reserved.
func (m *Map) Reserve(label uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.forward[label]; ok {
		return ErrDuplicate
	}
	m.forward[label] = reserved
	return nil
}

// Bind completes a reservation, making label resolve to id.
func (m *Map) Bind(label uint64, id uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forward[label] = id
	if int(id) >= len(m.reverse) {
		grown := make([]uint64, int(id)+1)
		copy(grown, m.reverse)
		m.reverse = grown
	}
	m.reverse[id] = label
}

// Cancel releases a reservation after a failed insertion.
func (m *Map) Cancel(label uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.forward[label]; ok && id == reserved {
		delete(m.forward, label)
	}
}

// ID resolves a label to its internal id.
func (m *Map) ID(label uint64) (uint32, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.forward[label]
	if !ok || id == reserved {
		return 0, false
	}
	return id, true
}

// Label resolves an internal id to its label. An id that was never bound
// resolves to 0; callers racing an in-flight insertion may observe that
// transiently.
func (m *Map) Label(id uint32) uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if int(id) >= len(m.reverse) {
		return 0
	}
	return m.reverse[id]
}

// Grow extends the reverse index to hold capacity ids.
func (m *Map) Grow(capacity int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if capacity <= len(m.reverse) {
		return
	}
	grown := make([]uint64, capacity)
	copy(grown, m.reverse)
	m.reverse = grown
}

// Len returns the number of live (bound) labels.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, id := range m.forward {
		if id != reserved {
			n++
		}
	}
	return n
}
