package hnsw

// NodeSnapshot is the serializable form of one graph node, used by the
// persistence adapter to write and replay the whole-graph blob under
// the `__hnsw_index__` key (spec.md §6.1).
type NodeSnapshot struct {
	ID        string     `json:"id"`
	Vector    []float32  `json:"vector"`
	Metadata  []byte     `json:"metadata,omitempty"`
	Level     int        `json:"level"`
	Deleted   bool       `json:"deleted"`
	Neighbors [][]string `json:"neighbors"`
}

// Snapshot is the serializable form of an entire Index.
type Snapshot struct {
	EntryPoint string         `json:"entry_point"`
	MaxLevel   int            `json:"max_level"`
	NumDeleted int            `json:"num_deleted"`
	Nodes      []NodeSnapshot `json:"nodes"`
}

// Export captures the current graph state for serialization.
func (idx *Index) Export() Snapshot {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	nodes := make([]NodeSnapshot, 0, len(idx.nodes))
	for _, n := range idx.nodes {
		nodes = append(nodes, NodeSnapshot{
			ID:        n.id,
			Vector:    append([]float32(nil), n.vec...),
			Metadata:  n.metadata,
			Level:     n.level,
			Deleted:   n.deleted,
			Neighbors: n.neighbors,
		})
	}

	return Snapshot{
		EntryPoint: idx.entryPoint,
		MaxLevel:   idx.maxLevel,
		NumDeleted: idx.numDeleted,
		Nodes:      nodes,
	}
}

// Restore replaces the index's in-memory graph with the contents of a
// snapshot previously produced by Export. Used on open, after a
// successful deserialization of the persisted blob.
func (idx *Index) Restore(snap Snapshot) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	nodes := make(map[string]*node, len(snap.Nodes))
	for _, ns := range snap.Nodes {
		nodes[ns.ID] = &node{
			id:        ns.ID,
			vec:       ns.Vector,
			metadata:  ns.Metadata,
			level:     ns.Level,
			deleted:   ns.Deleted,
			neighbors: ns.Neighbors,
		}
	}

	idx.nodes = nodes
	idx.entryPoint = snap.EntryPoint
	idx.maxLevel = snap.MaxLevel
	idx.numDeleted = snap.NumDeleted
}

// RebuildFrom builds a fresh graph from every surviving (non-deleted)
// vector in entries, in the order given, and then swaps it in under the
// write lock, so readers see either the old graph or the complete new
// one. Used by the persistence adapter's Rebuild compaction; crash
// recovery replays per-vector KV entries through Insert instead.
func (idx *Index) RebuildFrom(entries []NodeSnapshot) {
	fresh := New(idx.dimension, idx.metric, idx.config)
	for _, e := range entries {
		if e.Deleted {
			continue
		}
		_ = fresh.Insert(e.ID, e.Vector, e.Metadata)
	}

	idx.mu.Lock()
	idx.nodes = fresh.nodes
	idx.entryPoint = fresh.entryPoint
	idx.maxLevel = fresh.maxLevel
	idx.numDeleted = 0
	idx.mu.Unlock()
}
