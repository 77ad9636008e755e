package hnsw

// LevelStats summarizes one graph layer.
type LevelStats struct {
	Level       int
	Nodes       int
	Connections int
}

// Stats summarizes graph shape: parameters, occupancy, and per-level degree
// totals. Intended for debugging and capacity planning, not the hot path.
type Stats struct {
	M              int
	EFConstruction int
	MaxElements    int
	Inserted       int
	Live           int
	TopLayer       int
	Levels         []LevelStats
}

// Stats collects a snapshot of the graph shape. It walks every node, so cost
// is O(n + edges).
func (g *Graph) Stats() Stats {
	g.resizeMu.RLock()
	defer g.resizeMu.RUnlock()

	_, top, _ := g.EntryPoint()
	st := Stats{
		M:              g.m,
		EFConstruction: g.opts.EFConstruction,
		MaxElements:    g.capacity,
		Inserted:       g.Inserted(),
		Live:           g.Count(),
		TopLayer:       top,
		Levels:         make([]LevelStats, top+1),
	}
	for i := range st.Levels {
		st.Levels[i].Level = i
	}

	n := uint32(st.Inserted)
	for id := uint32(0); id < n; id++ {
		level := int(g.levels[id].Load())
		for layer := 0; layer <= level && layer <= top; layer++ {
			st.Levels[layer].Nodes++
			st.Levels[layer].Connections += len(g.connections(id, layer))
		}
	}
	return st
}
