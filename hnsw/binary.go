package hnsw

import (
	"bytes"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/quantvec/quantvec/persistence"
)

// Snapshot encoding of graph state. The index facade owns the file layout
// and calls these per-node and whole-graph hooks; the graph only encodes
// what it owns: levels, adjacency, entry point, tombstones.

// WriteNode writes the level and per-layer neighbor lists of id.
// Layout: [level:int32] then per layer [count:uint32][ids:uint32...].
func (g *Graph) WriteNode(bw *persistence.Writer, id uint32) error {
	level := g.levels[id].Load()
	if err := bw.WriteInt32(level); err != nil {
		return err
	}
	for layer := 0; layer <= int(level); layer++ {
		conns := g.connections(id, layer)
		if err := bw.WriteUint32(uint32(len(conns))); err != nil {
			return err
		}
		if err := bw.WriteUint32Slice(conns); err != nil {
			return err
		}
	}
	return nil
}

// ReadNode restores the level and neighbor lists of id from a snapshot.
// elements is the total node count of the snapshot; edges referencing ids
// outside [0, elements) are rejected as corruption rather than left to
// panic on the first traversal.
func (g *Graph) ReadNode(br *persistence.Reader, id uint32, elements int) error {
	level, err := br.ReadInt32()
	if err != nil {
		return err
	}
	if level < 0 || int(level) > g.opts.MaxLevel {
		return fmt.Errorf("hnsw: corrupt snapshot: node %d has level %d", id, level)
	}
	lists := make([][]uint32, level+1)
	for layer := 0; layer <= int(level); layer++ {
		count, err := br.ReadUint32()
		if err != nil {
			return err
		}
		if int(count) > g.m0 {
			return fmt.Errorf("hnsw: corrupt snapshot: node %d layer %d has %d edges", id, layer, count)
		}
		conns, err := br.ReadUint32Slice(int(count))
		if err != nil {
			return err
		}
		for _, c := range conns {
			if int(c) >= elements {
				return fmt.Errorf("hnsw: corrupt snapshot: node %d layer %d links to %d, have %d elements", id, layer, c, elements)
			}
		}
		lists[layer] = conns
	}
	g.neighbors[id] = lists
	g.levels[id].Store(level)
	return nil
}

// EntryPoint returns the current entry point and top layer.
func (g *Graph) EntryPoint() (id uint32, topLayer int, ok bool) {
	g.epMu.RLock()
	defer g.epMu.RUnlock()
	return g.entryPoint, g.topLayer, g.hasEntry
}

// Restore fast-forwards the id allocator and entry point after all nodes of
// a snapshot have been read. inserted is the total node count, tombstones
// included.
func (g *Graph) Restore(inserted int, entryPoint uint32, topLayer int) error {
	if inserted > g.capacity {
		return fmt.Errorf("hnsw: snapshot holds %d elements, capacity is %d", inserted, g.capacity)
	}
	if inserted > 0 && int(entryPoint) >= inserted {
		return fmt.Errorf("hnsw: corrupt snapshot: entry point %d, have %d elements", entryPoint, inserted)
	}
	g.nextID.Store(uint32(inserted))

	g.epMu.Lock()
	if inserted > 0 {
		g.entryPoint = entryPoint
		g.topLayer = topLayer
		g.hasEntry = true
	}
	g.epMu.Unlock()

	g.deletedMu.RLock()
	tombstones := int(g.deleted.GetCardinality())
	g.deletedMu.RUnlock()
	g.live.Store(int64(inserted - tombstones))
	return nil
}

// MarshalDeleted serializes the tombstone set in roaring format.
func (g *Graph) MarshalDeleted() ([]byte, error) {
	g.deletedMu.RLock()
	defer g.deletedMu.RUnlock()
	var buf bytes.Buffer
	if _, err := g.deleted.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalDeleted replaces the tombstone set. Call before Restore so the
// live count comes out right.
func (g *Graph) UnmarshalDeleted(data []byte) error {
	rb := roaring.New()
	if err := rb.UnmarshalBinary(data); err != nil {
		return err
	}
	g.deletedMu.Lock()
	g.deleted = rb
	g.deletedMu.Unlock()
	return nil
}
