package store

import (
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// BadgerOptions configures the BadgerDB-backed KVStore.
type BadgerOptions struct {
	// DataDir is the directory for storing data files. Required unless
	// InMemory is set.
	DataDir string

	// InMemory runs BadgerDB in memory-only mode. Data is not persisted;
	// useful for tests and ephemeral shards.
	InMemory bool

	// SyncWrites forces fsync after each write. Slower but more durable.
	SyncWrites bool

	// CacheSize is the block-cache budget in bytes (config.Config's
	// CACHE_SIZE knob, spec.md §6.3). The index cache gets half of it.
	// 0 keeps this package's own small-footprint defaults.
	CacheSize int64

	// Logger for BadgerDB's internal logging. If nil, logging is
	// silenced — BadgerDB's default logger is noisy at Info level.
	Logger badger.Logger
}

// BadgerKV is a KVStore backed by BadgerDB, tuned for the write-through,
// read-heavy access pattern of a vector index: small synchronous
// per-vector writes plus an occasional large graph-blob write.
type BadgerKV struct {
	db *badger.DB
	mu sync.RWMutex
}

// NewBadgerKV opens (or creates) a Badger database at dataDir with
// production defaults.
func NewBadgerKV(dataDir string) (*BadgerKV, error) {
	return NewBadgerKVWithOptions(BadgerOptions{DataDir: dataDir})
}

// NewBadgerKVInMemory opens an ephemeral in-memory Badger database,
// handy for store and persistence-adapter tests that don't want
// file-system fixtures.
func NewBadgerKVInMemory() (*BadgerKV, error) {
	return NewBadgerKVWithOptions(BadgerOptions{InMemory: true})
}

// NewBadgerKVWithOptions opens a Badger database with explicit tuning.
func NewBadgerKVWithOptions(opts BadgerOptions) (*BadgerKV, error) {
	badgerOpts := badger.DefaultOptions(opts.DataDir)

	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	if opts.SyncWrites {
		badgerOpts = badgerOpts.WithSyncWrites(true)
	}
	if opts.Logger != nil {
		badgerOpts = badgerOpts.WithLogger(opts.Logger)
	} else {
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	// A vector index's KV traffic is small-key/small-value except for
	// the occasional whole-graph blob, so memtables and caches stay
	// modest rather than tuned for bulk graph-storage throughput.
	blockCacheSize := int64(32 << 20)
	indexCacheSize := int64(16 << 20)
	if opts.CacheSize > 0 {
		blockCacheSize = opts.CacheSize
		indexCacheSize = opts.CacheSize / 2
	}

	badgerOpts = badgerOpts.
		WithMemTableSize(16 << 20).
		WithValueLogFileSize(64 << 20).
		WithNumMemtables(2).
		WithNumLevelZeroTables(2).
		WithNumLevelZeroTablesStall(4).
		WithValueThreshold(1024).
		WithBlockCacheSize(blockCacheSize).
		WithIndexCacheSize(indexCacheSize)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}

	return &BadgerKV{db: db}, nil
}

func (b *BadgerKV) Put(key, value []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (b *BadgerKV) Get(key []byte) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []byte
	found := false
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, false, err
	}
	return out, found, nil
}

func (b *BadgerKV) Delete(key []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

func (b *BadgerKV) ListKeys(prefix []byte) ([][]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var keys [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Size reports the approximate on-disk footprint: LSM tree bytes and
// value-log bytes, mirroring badger.DB.Size's own split.
func (b *BadgerKV) Size() (lsm, vlog int64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.db.Size()
}

func (b *BadgerKV) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.db.Close()
}
