package hnsw

import (
	"context"
	"testing"

	"github.com/quartzvec/vectorengine/pkg/vector"
	"github.com/quartzvec/vectorengine/pkg/vectorerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertGetRoundtrip(t *testing.T) {
	idx := New(3, vector.Euclidean, FastConfig())
	require.NoError(t, idx.Insert("a", []float32{1, 2, 3}, []byte(`{"k":1}`)))

	v, meta, ok := idx.Get("a")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, v)
	assert.Equal(t, []byte(`{"k":1}`), meta)
}

func TestInsertDuplicateIDRejected(t *testing.T) {
	idx := New(3, vector.Cosine, FastConfig())
	require.NoError(t, idx.Insert("a", []float32{1, 0, 0}, nil))
	err := idx.Insert("a", []float32{0, 1, 0}, nil)
	require.Error(t, err)
	var e *vectorerr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, vectorerr.AlreadyExists, e.Kind)
}

func TestInsertDimensionMismatch(t *testing.T) {
	idx := New(3, vector.Cosine, FastConfig())
	err := idx.Insert("x", []float32{1, 2}, nil)
	require.Error(t, err)
	var e *vectorerr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, vectorerr.DimensionMismatch, e.Kind)
	assert.Equal(t, 0, idx.Size())
}

func TestSoftDeleteRemovesFromGetAndSearch(t *testing.T) {
	idx := New(3, vector.Cosine, FastConfig())
	require.NoError(t, idx.Insert("a", []float32{1, 0, 0}, nil))
	require.NoError(t, idx.Insert("b", []float32{0, 1, 0}, nil))

	ok := idx.SoftDelete("a")
	require.True(t, ok)

	_, _, found := idx.Get("a")
	assert.False(t, found)

	results, err := idx.Search(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "a", r.ID)
	}
}

func TestUndelete(t *testing.T) {
	idx := New(3, vector.Cosine, FastConfig())
	require.NoError(t, idx.Insert("a", []float32{1, 0, 0}, nil))
	require.True(t, idx.SoftDelete("a"))
	require.True(t, idx.Undelete("a"))
	_, _, found := idx.Get("a")
	assert.True(t, found)
}

func TestSearchSortedAndBounded(t *testing.T) {
	idx := New(3, vector.Cosine, FastConfig())
	ids := []string{"a", "b", "c", "d", "e"}
	vecs := [][]float32{{1, 0, 0}, {0.9, 0.1, 0}, {0, 1, 0}, {0, 0, 1}, {0.5, 0.5, 0}}
	for i, id := range ids {
		require.NoError(t, idx.Insert(id, vecs[i], nil))
	}

	results, err := idx.Search(context.Background(), []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.LessOrEqual(t, len(results), 2)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].Distance, results[i].Distance)
	}
}

// TestScenarioS1BasicSearch mirrors spec scenario S1.
func TestScenarioS1BasicSearch(t *testing.T) {
	idx := New(3, vector.Cosine, BalancedConfig())
	require.NoError(t, idx.Insert("a", []float32{1, 0, 0}, nil))
	require.NoError(t, idx.Insert("b", []float32{0.9, 0.1, 0}, nil))
	require.NoError(t, idx.Insert("c", []float32{0, 1, 0}, nil))

	results, err := idx.Search(context.Background(), []float32{0.9, 0.1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "b", results[0].ID)
	assert.Less(t, results[0].Distance, float32(1e-3))
	assert.Equal(t, "a", results[1].ID)
}

// TestScenarioS2SoftDelete mirrors spec scenario S2.
func TestScenarioS2SoftDelete(t *testing.T) {
	idx := New(3, vector.Cosine, BalancedConfig())
	require.NoError(t, idx.Insert("a", []float32{1, 0, 0}, nil))
	require.NoError(t, idx.Insert("b", []float32{0.9, 0.1, 0}, nil))
	require.NoError(t, idx.Insert("c", []float32{0, 1, 0}, nil))

	require.True(t, idx.SoftDelete("a"))

	results, err := idx.Search(context.Background(), []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "b", results[0].ID)
	assert.Equal(t, "c", results[1].ID)

	_, _, found := idx.Get("a")
	assert.False(t, found)

	stats := idx.Stats()
	assert.Equal(t, 1, stats.NumDeleted)
	assert.Equal(t, 2, stats.NumActive)
	assert.InDelta(t, 33.33, stats.DeletionRatioPercent(), 0.5)
	assert.Equal(t, "Consider rebuild", stats.Recommendation())
}

func TestBidirectionalEdgesInvariant(t *testing.T) {
	idx := New(3, vector.Cosine, FastConfig())
	for i := 0; i < 30; i++ {
		id := string(rune('a' + i))
		require.NoError(t, idx.Insert(id, []float32{float32(i), float32(30 - i), 1}, nil))
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	for uID, u := range idx.nodes {
		for l, neighbors := range u.neighbors {
			for _, vID := range neighbors {
				v := idx.nodes[vID]
				found := false
				for _, back := range v.neighbors[l] {
					if back == uID {
						found = true
						break
					}
				}
				assert.True(t, found, "edge %s->%s at layer %d is not bidirectional", uID, vID, l)
			}
		}
	}
}

func TestConnectionCaps(t *testing.T) {
	cfg := FastConfig()
	idx := New(2, vector.Euclidean, cfg)
	for i := 0; i < 50; i++ {
		id := string(rune('A' + i))
		require.NoError(t, idx.Insert(id, []float32{float32(i), float32(i * 2)}, nil))
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	for _, n := range idx.nodes {
		for l, neighbors := range n.neighbors {
			cap := cfg.M
			if l == 0 {
				cap = cfg.M0()
			}
			assert.LessOrEqual(t, len(neighbors), cap)
		}
	}
}

func TestSelfNeighbor(t *testing.T) {
	idx := New(4, vector.Euclidean, BalancedConfig())
	vecs := [][]float32{{1, 2, 3, 4}, {5, 1, 2, 9}, {0, 0, 1, 1}, {9, 9, 9, 9}}
	for i, v := range vecs {
		require.NoError(t, idx.Insert(string(rune('a'+i)), v, nil))
	}

	for i, v := range vecs {
		results, err := idx.Search(context.Background(), v, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, string(rune('a'+i)), results[0].ID)
		assert.Less(t, results[0].Distance, float32(0.01))
	}
}
