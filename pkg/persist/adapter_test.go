package persist

import (
	"testing"
	"time"

	"github.com/quartzvec/vectorengine/pkg/hnsw"
	"github.com/quartzvec/vectorengine/pkg/store"
	"github.com/quartzvec/vectorengine/pkg/vector"
	"github.com/quartzvec/vectorengine/pkg/vectorerr"
	"github.com/stretchr/testify/require"
)

func newTestKV(t *testing.T) store.KVStore {
	t.Helper()
	kv, err := store.NewBadgerKVInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return kv
}

func TestCreateInsertGetRoundtrip(t *testing.T) {
	kv := newTestKV(t)
	a, err := Create(kv, 3, vector.Cosine, hnsw.FastConfig())
	require.NoError(t, err)

	require.NoError(t, a.Insert("a", []float32{1, 0, 0}, []byte(`{"tag":"x"}`)))

	vec, meta, ok := a.Get("a")
	require.True(t, ok)
	require.Len(t, vec, 3)
	require.Equal(t, []byte(`{"tag":"x"}`), meta)
}

func TestFlushForcesGraphBlobWrite(t *testing.T) {
	kv := newTestKV(t)
	a, err := Create(kv, 3, vector.Cosine, hnsw.FastConfig())
	require.NoError(t, err)
	require.NoError(t, a.Insert("a", []float32{1, 0, 0}, nil))

	require.NoError(t, a.Flush())

	_, found, err := kv.Get([]byte(hnswIndexKey))
	require.NoError(t, err)
	require.True(t, found)
}

func TestReopenRestoresVectorsFromGraphBlob(t *testing.T) {
	kv := newTestKV(t)
	a, err := Create(kv, 3, vector.Cosine, hnsw.BalancedConfig())
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		id := string(rune('a' + i))
		require.NoError(t, a.Insert(id, []float32{float32(i), 1, 0}, nil))
	}
	require.NoError(t, a.Flush())

	reopened, err := Open(kv)
	require.NoError(t, err)
	require.Equal(t, 20, reopened.Stats().NumVectors)

	for i := 0; i < 20; i++ {
		id := string(rune('a' + i))
		_, _, ok := reopened.Get(id)
		require.True(t, ok, "id %s should survive reopen", id)
	}
}

// TestReconcileReplaysUnflushedVectors covers the crash-recovery path:
// vectors persisted synchronously but never captured in a graph-blob
// flush must still be retrievable after reopen.
func TestReconcileReplaysUnflushedVectors(t *testing.T) {
	kv := newTestKV(t)
	a, err := Create(kv, 2, vector.Euclidean, hnsw.FastConfig())
	require.NoError(t, err)

	require.NoError(t, a.Insert("v0", []float32{1, 2}, nil))
	// No Flush() call: simulates a crash before the 10s scheduled flush.

	reopened, err := Open(kv)
	require.NoError(t, err)
	_, _, ok := reopened.Get("v0")
	require.True(t, ok)
}

func TestSoftDeletePersistsAcrossReopen(t *testing.T) {
	kv := newTestKV(t)
	a, err := Create(kv, 2, vector.Euclidean, hnsw.FastConfig())
	require.NoError(t, err)
	require.NoError(t, a.Insert("a", []float32{1, 2}, nil))

	deleted, err := a.SoftDelete("a")
	require.NoError(t, err)
	require.True(t, deleted)
	require.NoError(t, a.Flush())

	reopened, err := Open(kv)
	require.NoError(t, err)
	_, _, ok := reopened.Get("a")
	require.False(t, ok)
}

func TestRebuildDropsTombstonesAndKeepsSurvivors(t *testing.T) {
	kv := newTestKV(t)
	a, err := Create(kv, 2, vector.Euclidean, hnsw.FastConfig())
	require.NoError(t, err)

	require.NoError(t, a.Insert("keep", []float32{1, 2}, nil))
	require.NoError(t, a.Insert("drop", []float32{3, 4}, nil))
	_, err = a.SoftDelete("drop")
	require.NoError(t, err)

	require.NoError(t, a.Rebuild())

	stats := a.Stats()
	require.Equal(t, 1, stats.NumVectors)
	require.Equal(t, 0, stats.NumDeleted)

	_, _, ok := a.Get("keep")
	require.True(t, ok)
	_, _, ok = a.Get("drop")
	require.False(t, ok)

	// Rebuild flushes, so the compacted graph survives a reopen.
	reopened, err := Open(kv)
	require.NoError(t, err)
	require.Equal(t, 1, reopened.Stats().NumVectors)
}

func TestOpenMissingIndexReturnsIndexNotFound(t *testing.T) {
	kv := newTestKV(t)
	_, err := Open(kv)
	require.Error(t, err)
	var verr *vectorerr.Error
	require.ErrorAs(t, err, &verr)
	require.Equal(t, vectorerr.IndexNotFound, verr.Kind)
}

func TestScheduleFlushDebouncesWithinWindow(t *testing.T) {
	kv := newTestKV(t)
	a, err := Create(kv, 2, vector.Euclidean, hnsw.FastConfig())
	require.NoError(t, err)
	a.flushInterval = 30 * time.Millisecond

	require.NoError(t, a.Insert("a", []float32{1, 2}, nil))
	require.NoError(t, a.Insert("b", []float32{3, 4}, nil))

	time.Sleep(80 * time.Millisecond)

	_, found, err := kv.Get([]byte(hnswIndexKey))
	require.NoError(t, err)
	require.True(t, found)
}
