// Package persist is the write-through persistence adapter: it keeps an
// in-memory hnsw.Index synchronized with an underlying store.KVStore,
// persisting each mutation's vector/metadata immediately and the whole
// graph structure on a 10-second activity-driven schedule (spec.md §4.3).
package persist

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quartzvec/vectorengine/pkg/hnsw"
	"github.com/quartzvec/vectorengine/pkg/store"
	"github.com/quartzvec/vectorengine/pkg/vector"
	"github.com/quartzvec/vectorengine/pkg/vectorerr"
)

// FlushInterval is the scheduled-flush debounce window. Exported so
// tests can observe it; production code never needs to change it.
const FlushInterval = 10 * time.Second

// Adapter wraps an hnsw.Index with durable persistence over a KVStore.
type Adapter struct {
	idx    *hnsw.Index
	kv     store.KVStore
	dim    int
	metric vector.Metric
	config hnsw.Config

	flushMu        sync.Mutex
	dirty          bool
	flushScheduled bool
	timer          *time.Timer
	flushInterval  time.Duration

	openedAt     time.Time
	requestCount int64
}

// Create initializes a brand-new persistent index: writes the metadata
// key and returns an Adapter over a fresh, empty hnsw.Index.
func Create(kv store.KVStore, dimension int, metric vector.Metric, config hnsw.Config) (*Adapter, error) {
	data, err := encodeMetadata(dimension, metric, config)
	if err != nil {
		return nil, vectorerr.Wrap(vectorerr.Serialization, "encode index metadata", err)
	}
	if err := kv.Put([]byte(metadataKey), data); err != nil {
		return nil, vectorerr.Wrap(vectorerr.Storage, "write index metadata", err)
	}

	return &Adapter{
		idx:           hnsw.New(dimension, metric, config),
		kv:            kv,
		dim:           dimension,
		metric:        metric,
		config:        config,
		flushInterval: FlushInterval,
		openedAt:      time.Now(),
	}, nil
}

// Open loads an existing persistent index: reads metadata, attempts to
// restore the graph blob, and reconciles against any per-vector KV
// entries that postdate the last flush.
func Open(kv store.KVStore) (*Adapter, error) {
	metaBytes, found, err := kv.Get([]byte(metadataKey))
	if err != nil {
		return nil, vectorerr.Wrap(vectorerr.Storage, "read index metadata", err)
	}
	if !found {
		return nil, vectorerr.New(vectorerr.IndexNotFound, "no index metadata at this path")
	}

	meta, err := decodeMetadata(metaBytes)
	if err != nil {
		return nil, vectorerr.Wrap(vectorerr.Serialization, "decode index metadata", err)
	}
	if meta.Version != IndexVersion {
		return nil, vectorerr.New(vectorerr.IndexConflict, "unsupported index version")
	}

	metric, ok := vector.ParseMetric(meta.Metric)
	if !ok {
		return nil, vectorerr.New(vectorerr.Serialization, "unknown distance metric in index metadata")
	}

	idx := hnsw.New(meta.Dimension, metric, meta.Config)

	blobBytes, found, err := kv.Get([]byte(hnswIndexKey))
	if err != nil {
		return nil, vectorerr.Wrap(vectorerr.Storage, "read graph blob", err)
	}
	if found {
		var snap hnsw.Snapshot
		if err := json.Unmarshal(blobBytes, &snap); err != nil {
			// Corrupted persisted graph: availability over consistency —
			// log and continue with a fresh empty index, same as the
			// not-found case. Surviving per-vector entries are replayed
			// below regardless.
			log.Printf("persist: graph blob at %q failed to decode, starting from an empty graph: %v", hnswIndexKey, err)
		} else {
			idx.Restore(snap)
		}
	}

	a := &Adapter{
		idx:           idx,
		kv:            kv,
		dim:           meta.Dimension,
		metric:        metric,
		config:        meta.Config,
		flushInterval: FlushInterval,
		openedAt:      time.Now(),
	}

	if err := a.reconcile(); err != nil {
		return nil, err
	}
	return a, nil
}

// reconcile replays any `__vector__` KV entry whose id isn't already
// present in the restored graph — the crash-recovery path for vectors
// written after the last successful graph-blob flush (spec.md §4.3
// durability contract: per-vector writes are synchronous even though
// the graph blob flushes on a 10s schedule).
func (a *Adapter) reconcile() error {
	keys, err := a.kv.ListKeys([]byte(vectorPrefix))
	if err != nil {
		return vectorerr.Wrap(vectorerr.Storage, "list vector keys", err)
	}

	for _, key := range keys {
		id := vectorIDFromKey(key)
		if a.idx.Exists(id) {
			continue
		}

		data, found, err := a.kv.Get(key)
		if err != nil {
			return vectorerr.Wrap(vectorerr.Storage, "read vector during reconcile", err)
		}
		if !found {
			continue
		}
		var entry vectorEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			log.Printf("persist: vector entry %q failed to decode during reconcile, skipping: %v", id, err)
			continue
		}

		metaBytes, hasMeta, err := a.kv.Get(vectorMetaKey(id))
		if err != nil {
			return vectorerr.Wrap(vectorerr.Storage, "read vector metadata during reconcile", err)
		}
		if !hasMeta {
			metaBytes = nil
		}

		if err := a.idx.Insert(id, entry.Vector, metaBytes); err != nil {
			log.Printf("persist: reconcile insert of %q failed, skipping: %v", id, err)
			continue
		}
		if entry.Deleted {
			a.idx.SoftDelete(id)
		}
	}
	return nil
}

// Insert adds a vector, persists it synchronously, and schedules a
// graph-structure flush.
func (a *Adapter) Insert(id string, vec []float32, metadata []byte) error {
	atomic.AddInt64(&a.requestCount, 1)
	if err := a.idx.Insert(id, vec, metadata); err != nil {
		return err
	}
	if err := a.persistVector(id); err != nil {
		return err
	}
	a.scheduleFlush()
	return nil
}

// Search delegates to the in-memory graph, which never touches
// storage; ctx carries the caller's per-operation deadline through to
// the graph traversal (spec.md §5/§7).
func (a *Adapter) Search(ctx context.Context, query []float32, k int) ([]hnsw.SearchResult, error) {
	atomic.AddInt64(&a.requestCount, 1)
	return a.idx.Search(ctx, query, k)
}

// Get delegates to the in-memory graph.
func (a *Adapter) Get(id string) ([]float32, []byte, bool) {
	atomic.AddInt64(&a.requestCount, 1)
	return a.idx.Get(id)
}

// SoftDelete flags id deleted, persists the updated flag, and schedules
// a flush.
func (a *Adapter) SoftDelete(id string) (bool, error) {
	atomic.AddInt64(&a.requestCount, 1)
	if !a.idx.SoftDelete(id) {
		return false, nil
	}
	if err := a.persistVector(id); err != nil {
		return false, err
	}
	a.scheduleFlush()
	return true, nil
}

// Undelete clears the deleted flag, persists it, and schedules a flush.
func (a *Adapter) Undelete(id string) (bool, error) {
	atomic.AddInt64(&a.requestCount, 1)
	if !a.idx.Undelete(id) {
		return false, nil
	}
	if err := a.persistVector(id); err != nil {
		return false, err
	}
	a.scheduleFlush()
	return true, nil
}

// RequestsPerSecond is the mean request rate (Insert/Get/SoftDelete/
// Undelete/Search calls) since this shard was opened — a simple
// average rather than a sliding window, adequate for the operator
// dashboard this feeds.
func (a *Adapter) RequestsPerSecond() float64 {
	elapsed := time.Since(a.openedAt).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(atomic.LoadInt64(&a.requestCount)) / elapsed
}

// StorageBytes reports the shard's on-disk footprint, if the
// underlying store exposes one (BadgerKV does; an in-memory or test
// double need not).
func (a *Adapter) StorageBytes() int64 {
	type sizer interface{ Size() (int64, int64) }
	s, ok := a.kv.(sizer)
	if !ok {
		return 0
	}
	lsm, vlog := s.Size()
	return lsm + vlog
}

// Stats delegates to the in-memory graph.
func (a *Adapter) Stats() hnsw.Stats { return a.idx.Stats() }

func (a *Adapter) Dimension() int        { return a.dim }
func (a *Adapter) Metric() vector.Metric { return a.metric }
func (a *Adapter) Config() hnsw.Config   { return a.config }

func (a *Adapter) persistVector(id string) error {
	vec, metadata, deleted, ok := a.idx.GetRaw(id)
	if !ok {
		return vectorerr.New(vectorerr.NotFound, "vector vanished between mutation and persist")
	}

	entryBytes, err := json.Marshal(vectorEntry{Vector: vec, Deleted: deleted})
	if err != nil {
		return vectorerr.Wrap(vectorerr.Serialization, "encode vector entry", err)
	}
	if err := a.kv.Put(vectorKey(id), entryBytes); err != nil {
		return vectorerr.Wrap(vectorerr.Storage, "write vector entry", err)
	}

	if len(metadata) > 0 {
		if err := a.kv.Put(vectorMetaKey(id), metadata); err != nil {
			return vectorerr.Wrap(vectorerr.Storage, "write vector metadata", err)
		}
	}
	return nil
}

// scheduleFlush marks the index dirty and, if no flush is already
// pending, arms a one-shot timer FlushInterval out. This mirrors
// spec.md §9's "optional pending-flush-at-time-T plus dirty bit" model:
// no recurring ticker, only fire when there's something to do.
func (a *Adapter) scheduleFlush() {
	a.flushMu.Lock()
	defer a.flushMu.Unlock()

	a.dirty = true
	if a.flushScheduled {
		return
	}
	a.flushScheduled = true
	a.timer = time.AfterFunc(a.flushInterval, a.onFlushTimer)
}

func (a *Adapter) onFlushTimer() {
	a.flushMu.Lock()
	dirty := a.dirty
	a.dirty = false
	a.flushScheduled = false
	a.flushMu.Unlock()

	if !dirty {
		return
	}
	if err := a.flush(); err != nil {
		log.Printf("persist: scheduled flush failed: %v", err)
		// Leave dirty for the next mutation to reschedule; a failed
		// flush is tolerated by the per-vector synchronous writes.
		a.flushMu.Lock()
		a.dirty = true
		a.flushMu.Unlock()
	}
}

// flush serializes the whole graph and writes it under __hnsw_index__.
func (a *Adapter) flush() error {
	snap := a.idx.Export()
	data, err := json.Marshal(snap)
	if err != nil {
		return vectorerr.Wrap(vectorerr.Serialization, "encode graph blob", err)
	}
	if err := a.kv.Put([]byte(hnswIndexKey), data); err != nil {
		return vectorerr.Wrap(vectorerr.Storage, "write graph blob", err)
	}
	return nil
}

// Flush forces an immediate flush regardless of the schedule, used on
// clean shutdown so a close doesn't lose up to 10s of graph structure.
func (a *Adapter) Flush() error {
	a.flushMu.Lock()
	if a.timer != nil {
		a.timer.Stop()
	}
	a.dirty = false
	a.flushScheduled = false
	a.flushMu.Unlock()
	return a.flush()
}

// Rebuild discards tombstoned vectors and reinserts the survivors into
// a fresh graph (spec.md's offline rebuild policy: "iterate all active
// entries, construct a fresh index, swap atomically"), then flushes
// the result immediately so the compaction survives a crash. The
// per-vector KV rows of every dropped tombstone are deleted too —
// otherwise reconcile() would resurrect them as deleted nodes the
// next time this shard is opened.
func (a *Adapter) Rebuild() error {
	snap := a.idx.Export()
	a.idx.RebuildFrom(snap.Nodes)

	for _, n := range snap.Nodes {
		if !n.Deleted {
			continue
		}
		if err := a.kv.Delete(vectorKey(n.ID)); err != nil {
			return vectorerr.Wrap(vectorerr.Storage, "delete tombstoned vector entry", err)
		}
		if err := a.kv.Delete(vectorMetaKey(n.ID)); err != nil {
			return vectorerr.Wrap(vectorerr.Storage, "delete tombstoned vector metadata", err)
		}
	}

	return a.Flush()
}

// Close flushes any pending graph structure and closes the KV store.
func (a *Adapter) Close() error {
	if err := a.Flush(); err != nil {
		log.Printf("persist: flush on close failed: %v", err)
	}
	return a.kv.Close()
}
