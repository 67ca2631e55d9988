// Package hnsw implements the hierarchical navigable small-world proximity
// graph: a multi-layer approximate nearest-neighbor index with soft
// delete, pluggable distance metrics, and SIMD-friendly kernels (see
// pkg/vector). One Index holds one logical collection of same-dimension
// vectors under a single metric.
//
// Concurrency: the whole index is protected by a single reader-writer
// lock. Search, Get, and Stats take the read lock; Insert, SoftDelete,
// and Undelete take the write lock for their full duration, including
// graph traversal and mutation — there is no per-node locking, since the
// bidirectional-edge invariant spans nodes and can't be checked
// piecewise.
package hnsw

import (
	"container/heap"
	"context"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/quartzvec/vectorengine/pkg/vector"
	"github.com/quartzvec/vectorengine/pkg/vectorerr"
)

// node is one vertex of the graph. neighbors[l] holds this node's
// layer-l connection set (as a slice; membership is kept unique by
// construction, never duplicated on insert).
type node struct {
	id        string
	vec       []float32
	metadata  []byte
	level     int
	deleted   bool
	neighbors [][]string
}

// SearchResult is one ranked hit: smaller Distance is always better.
type SearchResult struct {
	ID       string
	Distance float32
	Metadata []byte
}

// Stats mirrors spec.md's IndexStats, plus the deletion-ratio
// recommendation text surfaced by the stats HTTP endpoint.
type Stats struct {
	NumVectors         int
	NumActive          int
	NumDeleted         int
	NumNodes           int
	Dimension          int
	EntryPointLevel    int
	ConnectionsPerLayer []int
}

// DeletionRatioPercent is NumDeleted/NumVectors as a percentage.
func (s Stats) DeletionRatioPercent() float64 {
	if s.NumVectors == 0 {
		return 0
	}
	return 100 * float64(s.NumDeleted) / float64(s.NumVectors)
}

// Recommendation crosses thresholds at 10%, 25%, and 50% deletion ratio.
func (s Stats) Recommendation() string {
	ratio := s.DeletionRatioPercent()
	switch {
	case ratio >= 50:
		return "Rebuild strongly recommended"
	case ratio >= 25:
		return "Consider rebuild"
	case ratio >= 10:
		return "Monitor deletion ratio"
	default:
		return "No action needed"
	}
}

// Index is a single-collection HNSW graph.
type Index struct {
	config    Config
	metric    vector.Metric
	dimension int

	mu         sync.RWMutex
	nodes      map[string]*node
	entryPoint string
	maxLevel   int
	numDeleted int
}

// New creates an empty index for vectors of the given dimension under
// the given metric and build config.
func New(dimension int, metric vector.Metric, config Config) *Index {
	return &Index{
		config:    config,
		metric:    metric,
		dimension: dimension,
		nodes:     make(map[string]*node),
		maxLevel:  0,
	}
}

func (idx *Index) Dimension() int     { return idx.dimension }
func (idx *Index) Metric() vector.Metric { return idx.metric }
func (idx *Index) Config() Config     { return idx.config }

// Insert adds a new vector under id. Returns AlreadyExists if id is
// already present (spec's recommended resolution (a) for the
// duplicate-id open question) or DimensionMismatch if len(vec) != D.
func (idx *Index) Insert(id string, vec []float32, metadata []byte) error {
	if len(vec) != idx.dimension {
		return vectorerr.New(vectorerr.DimensionMismatch, "vector dimension does not match index dimension")
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.nodes[id]; exists {
		return vectorerr.New(vectorerr.AlreadyExists, "id already present in index")
	}

	stored := vec
	if idx.metric == vector.Cosine {
		stored = vector.Normalize(vec)
	} else {
		cp := make([]float32, len(vec))
		copy(cp, vec)
		stored = cp
	}

	level := idx.randomLevel()
	n := &node{
		id:        id,
		vec:       stored,
		metadata:  metadata,
		level:     level,
		neighbors: make([][]string, level+1),
	}
	for i := range n.neighbors {
		n.neighbors[i] = make([]string, 0, idx.config.M)
	}
	idx.nodes[id] = n

	if idx.entryPoint == "" {
		idx.entryPoint = id
		idx.maxLevel = level
		return nil
	}

	ep := idx.entryPoint
	epLevel := idx.nodes[ep].level

	for l := epLevel; l > level; l-- {
		ep = idx.searchLayerSingle(stored, ep, l)
	}

	for l := min(level, epLevel); l >= 0; l-- {
		candidates := idx.searchLayer(stored, []string{ep}, idx.config.EfConstruction, l)
		cap := idx.config.M
		if l == 0 {
			cap = idx.config.M0()
		}
		selected := selectNeighbors(stored, candidates, cap, idx.nodes)
		n.neighbors[l] = selected

		for _, nbrID := range selected {
			idx.addEdgeWithPrune(nbrID, id, l)
		}

		if len(candidates) > 0 {
			ep = candidates[0].id
		}
	}

	if level > idx.maxLevel {
		idx.entryPoint = id
		idx.maxLevel = level
	}

	return nil
}

// addEdgeWithPrune adds `to` as a layer-l neighbor of `from`, pruning
// down to the cap by distance to from's own vector if the cap is
// exceeded — the bidirectional counterpart of the edge Insert just
// added from the new node's side. Every edge the prune drops is removed
// from the other endpoint's layer-l set as well, so edges stay
// bidirectional.
func (idx *Index) addEdgeWithPrune(from, to string, l int) {
	n, ok := idx.nodes[from]
	if !ok || len(n.neighbors) <= l {
		return
	}
	for _, existing := range n.neighbors[l] {
		if existing == to {
			return
		}
	}
	n.neighbors[l] = append(n.neighbors[l], to)

	cap := idx.config.M
	if l == 0 {
		cap = idx.config.M0()
	}
	if len(n.neighbors[l]) > cap {
		pruned := make([]candidate, 0, len(n.neighbors[l]))
		for _, nbrID := range n.neighbors[l] {
			if other, ok := idx.nodes[nbrID]; ok {
				pruned = append(pruned, candidate{id: nbrID, dist: vector.Distance(idx.metric, n.vec, other.vec)})
			}
		}
		sort.Slice(pruned, func(i, j int) bool { return less(pruned[i], pruned[j]) })
		if len(pruned) > cap {
			pruned = pruned[:cap]
		}
		kept := make([]string, len(pruned))
		keep := make(map[string]bool, len(pruned))
		for i, c := range pruned {
			kept[i] = c.id
			keep[c.id] = true
		}
		for _, nbrID := range n.neighbors[l] {
			other, ok := idx.nodes[nbrID]
			if keep[nbrID] || !ok || len(other.neighbors) <= l {
				continue
			}
			back := make([]string, 0, len(other.neighbors[l]))
			for _, x := range other.neighbors[l] {
				if x != from {
					back = append(back, x)
				}
			}
			other.neighbors[l] = back
		}
		n.neighbors[l] = kept
	}
}

// Search returns up to k nearest active (non-deleted) neighbors to
// query, sorted ascending by distance. ctx is checked before graph
// traversal starts: a query that arrives already past its
// per-operation deadline (spec.md §5/§7) fails fast with a typed
// Timeout instead of doing the work anyway.
func (idx *Index) Search(ctx context.Context, query []float32, k int) ([]SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, vectorerr.Wrap(vectorerr.Timeout, "search deadline exceeded before graph traversal ran", err)
	}
	if len(query) != idx.dimension {
		return nil, vectorerr.New(vectorerr.DimensionMismatch, "query dimension does not match index dimension")
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.nodes) == 0 {
		return []SearchResult{}, nil
	}

	q := query
	if idx.metric == vector.Cosine {
		q = vector.Normalize(query)
	}

	ep := idx.entryPoint
	for l := idx.maxLevel; l > 0; l-- {
		ep = idx.searchLayerSingle(q, ep, l)
	}

	ef := idx.config.EfSearch
	if k > ef {
		ef = k
	}
	candidates := idx.searchLayer(q, []string{ep}, ef, 0)

	results := make([]SearchResult, 0, k)
	for _, c := range candidates {
		n := idx.nodes[c.id]
		if n.deleted {
			continue
		}
		results = append(results, SearchResult{ID: c.id, Distance: vector.Distance(idx.metric, q, n.vec), Metadata: n.metadata})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Get returns (vector, metadata, true) for an active id, or
// (nil, nil, false) if absent or soft-deleted.
func (idx *Index) Get(id string) ([]float32, []byte, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n, ok := idx.nodes[id]
	if !ok || n.deleted {
		return nil, nil, false
	}
	vec := make([]float32, len(n.vec))
	copy(vec, n.vec)
	return vec, n.metadata, true
}

// GetRaw returns a node's vector/metadata/deleted flag regardless of
// deletion state, for the persistence adapter's write-through path
// (which must persist the deleted flag itself, not just active data).
func (idx *Index) GetRaw(id string) (vec []float32, metadata []byte, deleted bool, ok bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n, exists := idx.nodes[id]
	if !exists {
		return nil, nil, false, false
	}
	v := make([]float32, len(n.vec))
	copy(v, n.vec)
	return v, n.metadata, n.deleted, true
}

// Exists reports whether id is present in the graph, active or
// soft-deleted — used by the persistence adapter to avoid
// double-inserting during crash-recovery reconciliation.
func (idx *Index) Exists(id string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.nodes[id]
	return ok
}

// SoftDelete flags id as deleted without touching graph structure.
// Returns true if the id existed and was newly deleted.
func (idx *Index) SoftDelete(id string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	n, ok := idx.nodes[id]
	if !ok || n.deleted {
		return false
	}
	n.deleted = true
	idx.numDeleted++
	return true
}

// Undelete clears the deleted flag. Returns true if id existed and was
// deleted.
func (idx *Index) Undelete(id string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	n, ok := idx.nodes[id]
	if !ok || !n.deleted {
		return false
	}
	n.deleted = false
	idx.numDeleted--
	return true
}

// Stats reports the current graph shape.
func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	perLayer := make([]int, idx.maxLevel+1)
	for _, n := range idx.nodes {
		for l := range n.neighbors {
			perLayer[l] += len(n.neighbors[l])
		}
	}

	entryLevel := 0
	if ep, ok := idx.nodes[idx.entryPoint]; ok {
		entryLevel = ep.level
	}

	return Stats{
		NumVectors:          len(idx.nodes),
		NumActive:           len(idx.nodes) - idx.numDeleted,
		NumDeleted:          idx.numDeleted,
		NumNodes:            len(idx.nodes),
		Dimension:           idx.dimension,
		EntryPointLevel:     entryLevel,
		ConnectionsPerLayer: perLayer,
	}
}

// Size returns the total number of nodes, active and deleted.
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.nodes)
}

func (idx *Index) searchLayerSingle(query []float32, entryID string, level int) string {
	current := entryID
	currentDist := vector.Distance(idx.metric, query, idx.nodes[current].vec)

	for {
		changed := false
		n := idx.nodes[current]
		if len(n.neighbors) <= level {
			break
		}
		for _, nbrID := range n.neighbors[level] {
			nbr := idx.nodes[nbrID]
			d := vector.Distance(idx.metric, query, nbr.vec)
			if d < currentDist {
				current = nbrID
				currentDist = d
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return current
}

type candidate struct {
	id   string
	dist float32
}

func less(a, b candidate) bool {
	if a.dist != b.dist {
		return a.dist < b.dist
	}
	return a.id < b.id
}

// searchLayer is the best-first beam search described in spec.md §4.2:
// a min-heap frontier C and a bounded max-heap result set W, both keyed
// by distance to query, seeded with entryIDs. Returns W sorted ascending.
func (idx *Index) searchLayer(query []float32, entryIDs []string, ef, level int) []candidate {
	visited := make(map[string]bool, ef*2)

	c := &distHeap{}
	w := &distHeap{}
	heap.Init(c)
	heap.Init(w)

	for _, id := range entryIDs {
		if visited[id] {
			continue
		}
		visited[id] = true
		n, ok := idx.nodes[id]
		if !ok {
			continue
		}
		d := vector.Distance(idx.metric, query, n.vec)
		heap.Push(c, distItem{id: id, dist: d, isMax: false})
		heap.Push(w, distItem{id: id, dist: d, isMax: true})
	}

	for c.Len() > 0 {
		closest := heap.Pop(c).(distItem)

		if w.Len() >= ef {
			worst := (*w)[0]
			if closest.dist > worst.dist {
				break
			}
		}

		n, ok := idx.nodes[closest.id]
		if !ok || len(n.neighbors) <= level {
			continue
		}

		for _, nbrID := range n.neighbors[level] {
			if visited[nbrID] {
				continue
			}
			visited[nbrID] = true

			nbr, ok := idx.nodes[nbrID]
			if !ok {
				continue
			}
			d := vector.Distance(idx.metric, query, nbr.vec)

			if w.Len() < ef || d < (*w)[0].dist {
				heap.Push(c, distItem{id: nbrID, dist: d, isMax: false})
				heap.Push(w, distItem{id: nbrID, dist: d, isMax: true})
				if w.Len() > ef {
					heap.Pop(w)
				}
			}
		}
	}

	out := make([]candidate, w.Len())
	for i := len(out) - 1; i >= 0; i-- {
		item := heap.Pop(w).(distItem)
		out[i] = candidate{id: item.id, dist: item.dist}
	}
	return out
}

// selectNeighbors keeps the m nearest of candidates by distance to
// query (the simple distance-only pruning heuristic; spec.md
// explicitly rules out the richer RNG heuristic from the HNSW paper).
func selectNeighbors(query []float32, candidates []candidate, m int, nodes map[string]*node) []string {
	if len(candidates) <= m {
		out := make([]string, len(candidates))
		for i, c := range candidates {
			out[i] = c.id
		}
		return out
	}
	sorted := make([]candidate, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })

	out := make([]string, m)
	for i := 0; i < m; i++ {
		out[i] = sorted[i].id
	}
	return out
}

// randomLevel samples l = floor(-ln(U) * levelMultiplier), clamped to
// MaxLevel for memory safety (spec's documented level-cap open
// question resolves in favor of a hard cap rather than unbounded
// layers).
func (idx *Index) randomLevel() int {
	u := rand.Float64()
	for u == 0 {
		u = rand.Float64()
	}
	l := int(math.Floor(-math.Log(u) * idx.config.LevelMultiplier))
	if l > MaxLevel {
		l = MaxLevel
	}
	return l
}
