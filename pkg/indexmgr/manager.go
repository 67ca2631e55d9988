// Package indexmgr is the named-index registry: it maps a client-chosen
// name to a persistent, sharded vector index rooted at
// storage_root/indexes/<name>/ (spec.md §4.5), adapted from the
// wrapper-over-index convention in the upstream codebase's pkg/index
// package, generalized from "one index per process" to "many
// independently persisted named indexes."
package indexmgr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/quartzvec/vectorengine/pkg/hnsw"
	"github.com/quartzvec/vectorengine/pkg/persist"
	"github.com/quartzvec/vectorengine/pkg/shard"
	"github.com/quartzvec/vectorengine/pkg/store"
	"github.com/quartzvec/vectorengine/pkg/vector"
	"github.com/quartzvec/vectorengine/pkg/vectorerr"
)

// Config describes how a named index should be created, including its
// shard count — shard.DefaultShardCount unless overridden.
type Config struct {
	Dimension  int
	Metric     vector.Metric
	HNSW       hnsw.Config
	ShardCount int
}

// Info is the summary row returned by List.
type Info struct {
	Name        string
	Dimension   int
	Metric      vector.Metric
	NumVectors  int
}

// ShardedIndex is one named index: a consistent-hash Router over S
// independent persist.Adapter shards, each its own KV-store directory.
type ShardedIndex struct {
	name    string
	router  *shard.Router
	shards  map[string]*persist.Adapter
}

func (si *ShardedIndex) Name() string { return si.name }

// shardFor returns the persist.Adapter an id routes to.
func (si *ShardedIndex) shardFor(id string) *persist.Adapter {
	return si.shards[shard.ShardName(si.router.Shard(id))]
}

// Insert routes id to its shard and inserts there.
func (si *ShardedIndex) Insert(id string, vec []float32, metadata []byte) error {
	return si.shardFor(id).Insert(id, vec, metadata)
}

// Get routes id to its shard and reads it there.
func (si *ShardedIndex) Get(id string) ([]float32, []byte, bool) {
	return si.shardFor(id).Get(id)
}

// SoftDelete routes id to its shard and soft-deletes it there.
func (si *ShardedIndex) SoftDelete(id string) (bool, error) {
	return si.shardFor(id).SoftDelete(id)
}

// Undelete routes id to its shard and undeletes it there.
func (si *ShardedIndex) Undelete(id string) (bool, error) {
	return si.shardFor(id).Undelete(id)
}

// Search fans out to every shard and merges to the top k. ctx carries
// the caller's per-operation deadline (spec.md §5); a shard search
// that starts after ctx is already past its deadline fails with a
// typed Timeout instead of running anyway.
func (si *ShardedIndex) Search(ctx context.Context, query []float32, k int) ([]shard.Match, error) {
	searchers := make(map[string]shard.Searcher, len(si.shards))
	for name, a := range si.shards {
		searchers[name] = a
	}
	matches, err := shard.FanOutSearch(ctx, searchers, query, k)
	if err != nil {
		var verr *vectorerr.Error
		if errors.As(err, &verr) {
			return nil, err
		}
		return nil, vectorerr.Wrap(vectorerr.Storage, "shard fan-out search failed", err)
	}
	return shard.Merge(matches, k), nil
}

// Stats aggregates IndexStats across all shards: counts and per-layer
// connection totals are summed, EntryPointLevel is the highest shard's.
func (si *ShardedIndex) Stats() hnsw.Stats {
	var total hnsw.Stats
	for _, a := range si.shards {
		s := a.Stats()
		total.NumVectors += s.NumVectors
		total.NumActive += s.NumActive
		total.NumDeleted += s.NumDeleted
		total.NumNodes += s.NumNodes
		total.Dimension = s.Dimension
		if s.EntryPointLevel > total.EntryPointLevel {
			total.EntryPointLevel = s.EntryPointLevel
		}
		for l, c := range s.ConnectionsPerLayer {
			if l >= len(total.ConnectionsPerLayer) {
				total.ConnectionsPerLayer = append(total.ConnectionsPerLayer, 0)
			}
			total.ConnectionsPerLayer[l] += c
		}
	}
	return total
}

// ShardStats returns per-shard operator-facing stats for the
// supplemental /indexes/{name}/shards endpoint.
func (si *ShardedIndex) ShardStats() []shard.Stats {
	out := make([]shard.Stats, 0, len(si.shards))
	for name, a := range si.shards {
		s := a.Stats()
		out = append(out, shard.Stats{
			ShardName:         name,
			DocumentCount:     s.NumActive,
			VectorCount:       s.NumVectors,
			NumDeleted:        s.NumDeleted,
			StorageBytes:      a.StorageBytes(),
			RequestsPerSecond: a.RequestsPerSecond(),
		})
	}
	return out
}

// Rebuild compacts every shard: tombstoned vectors are dropped and the
// survivors are reinserted into a fresh graph (spec.md's offline
// "drain, rebuild, reinsert" operational step).
func (si *ShardedIndex) Rebuild() error {
	for _, a := range si.shards {
		if err := a.Rebuild(); err != nil {
			return err
		}
	}
	return nil
}

func (si *ShardedIndex) close() error {
	var firstErr error
	for _, a := range si.shards {
		if err := a.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Manager owns the storage root and the registry of open named indexes.
type Manager struct {
	storageRoot string
	cacheSize   int64

	mu      sync.RWMutex
	indexes map[string]*ShardedIndex
}

// NewManager returns a Manager rooted at storageRoot (created if
// absent), using each shard store's built-in cache-size defaults.
func NewManager(storageRoot string) (*Manager, error) {
	return NewManagerWithCacheSize(storageRoot, 0)
}

// NewManagerWithCacheSize returns a Manager whose shard KV stores are
// tuned with cacheSize (config.Config's CACHE_SIZE, spec.md §6.3) as
// the Badger block-cache budget; 0 keeps the store package's defaults.
func NewManagerWithCacheSize(storageRoot string, cacheSize int64) (*Manager, error) {
	if err := os.MkdirAll(filepath.Join(storageRoot, "indexes"), 0o755); err != nil {
		return nil, vectorerr.Wrap(vectorerr.Storage, "create storage root", err)
	}
	return &Manager{storageRoot: storageRoot, cacheSize: cacheSize, indexes: make(map[string]*ShardedIndex)}, nil
}

func validateName(name string) error {
	if name == "" {
		return vectorerr.New(vectorerr.InvalidInput, "index name must not be empty")
	}
	if strings.ContainsAny(name, "/\\") {
		return vectorerr.New(vectorerr.InvalidInput, "index name must not contain path separators")
	}
	return nil
}

// CreateOrOpen opens the named index if it already exists on disk,
// verifying the requested dimension/metric match (IndexConflict on
// mismatch), or creates a new one.
func (m *Manager) CreateOrOpen(name string, cfg Config) (*ShardedIndex, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.indexes[name]; ok {
		for _, a := range existing.shards {
			if a.Dimension() != cfg.Dimension || a.Metric() != cfg.Metric {
				return nil, vectorerr.New(vectorerr.IndexConflict, "index exists with a different dimension or metric")
			}
			break
		}
		return existing, nil
	}

	shardCount := cfg.ShardCount
	if shardCount <= 0 {
		shardCount = shard.DefaultShardCount
	}

	indexDir := filepath.Join(m.storageRoot, "indexes", name)
	shards := make(map[string]*persist.Adapter, shardCount)
	closeOpened := func() {
		for _, a := range shards {
			_ = a.Close()
		}
	}

	for i := 0; i < shardCount; i++ {
		shardName := shard.ShardName(i)
		dir := filepath.Join(indexDir, shardName)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			closeOpened()
			return nil, vectorerr.Wrap(vectorerr.Storage, "create shard directory", err)
		}

		kv, err := store.NewBadgerKVWithOptions(store.BadgerOptions{DataDir: dir, CacheSize: m.cacheSize})
		if err != nil {
			closeOpened()
			return nil, vectorerr.Wrap(vectorerr.Storage, "open shard store", err)
		}

		adapter, err := persist.Open(kv)
		if err != nil {
			var verr *vectorerr.Error
			if errors.As(err, &verr) && verr.Kind == vectorerr.IndexNotFound {
				adapter, err = persist.Create(kv, cfg.Dimension, cfg.Metric, cfg.HNSW)
			}
		}
		if err != nil {
			_ = kv.Close()
			closeOpened()
			return nil, err
		}
		if adapter.Dimension() != cfg.Dimension || adapter.Metric() != cfg.Metric {
			_ = adapter.Close()
			closeOpened()
			return nil, vectorerr.New(vectorerr.IndexConflict, "index exists with a different dimension or metric")
		}

		shards[shardName] = adapter
	}

	si := &ShardedIndex{name: name, router: shard.NewRouter(shardCount), shards: shards}
	m.indexes[name] = si
	return si, nil
}

// OpenExisting reopens a previously created named index purely from
// its on-disk shard directories, without requiring the caller to
// supply a Config — used by the rebuild CLI, which only needs to
// reattach to an index an earlier `create-index` or `serve` already
// created, not redeclare its dimension/metric.
func (m *Manager) OpenExisting(name string) (*ShardedIndex, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.indexes[name]; ok {
		return existing, nil
	}

	indexDir := filepath.Join(m.storageRoot, "indexes", name)
	entries, err := os.ReadDir(indexDir)
	if err != nil {
		return nil, vectorerr.Wrap(vectorerr.IndexNotFound, fmt.Sprintf("no index named %q on disk", name), err)
	}

	shards := make(map[string]*persist.Adapter)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(indexDir, e.Name())
		kv, err := store.NewBadgerKVWithOptions(store.BadgerOptions{DataDir: dir, CacheSize: m.cacheSize})
		if err != nil {
			return nil, vectorerr.Wrap(vectorerr.Storage, "open shard store", err)
		}
		adapter, err := persist.Open(kv)
		if err != nil {
			_ = kv.Close()
			return nil, err
		}
		shards[e.Name()] = adapter
	}
	if len(shards) == 0 {
		return nil, vectorerr.New(vectorerr.IndexNotFound, fmt.Sprintf("no shard directories found for index %q", name))
	}

	si := &ShardedIndex{name: name, router: shard.NewRouter(len(shards)), shards: shards}
	m.indexes[name] = si
	return si, nil
}

// List returns a summary of every open named index.
func (m *Manager) List() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Info, 0, len(m.indexes))
	for name, si := range m.indexes {
		stats := si.Stats()
		var metric vector.Metric
		for _, a := range si.shards {
			metric = a.Metric()
			break
		}
		out = append(out, Info{Name: name, Dimension: stats.Dimension, Metric: metric, NumVectors: stats.NumVectors})
	}
	return out
}

// Delete closes and removes the named index, including its on-disk
// directory.
func (m *Manager) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	si, ok := m.indexes[name]
	if !ok {
		return vectorerr.New(vectorerr.IndexNotFound, fmt.Sprintf("no index named %q", name))
	}

	if err := si.close(); err != nil {
		return vectorerr.Wrap(vectorerr.Storage, "close index before delete", err)
	}
	delete(m.indexes, name)

	dir := filepath.Join(m.storageRoot, "indexes", name)
	if err := os.RemoveAll(dir); err != nil {
		return vectorerr.Wrap(vectorerr.Storage, "remove index directory", err)
	}
	return nil
}

// Close closes every open index's shards (flushing pending graph
// structure) without deleting any on-disk data. Used on graceful
// server shutdown and before another process reopens the same storage
// root.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for name, si := range m.indexes {
		if err := si.close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(m.indexes, name)
	}
	return firstErr
}

// Get returns the named index, if open.
func (m *Manager) Get(name string) (*ShardedIndex, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	si, ok := m.indexes[name]
	return si, ok
}
