package hnsw

import "container/heap"

// distItem is an (id, distance) pair ordered either as a min-heap
// (isMax false, used for the frontier C) or a bounded max-heap
// (isMax true, used for the result set W so the worst entry sits at
// the root and can be evicted in O(log ef)).
type distItem struct {
	id    string
	dist  float32
	isMax bool
}

type distHeap []distItem

func (h distHeap) Len() int { return len(h) }

func (h distHeap) Less(i, j int) bool {
	if h[i].dist != h[j].dist {
		if h[i].isMax {
			return h[i].dist > h[j].dist
		}
		return h[i].dist < h[j].dist
	}
	// Tie-break by id for determinism (spec: "when distances are equal,
	// order by id").
	if h[i].isMax {
		return h[i].id > h[j].id
	}
	return h[i].id < h[j].id
}

func (h distHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *distHeap) Push(x interface{}) { *h = append(*h, x.(distItem)) }

func (h *distHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

var _ = heap.Interface(&distHeap{})
