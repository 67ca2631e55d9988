// Package shard implements consistent-hash routing of vector ids to one
// of S independent HNSW shards, fan-out search across all shards, and
// the deduplicated top-k merge of their results (spec.md §4.4), ported
// from the sharding design in the Rust original's
// quartz-faas/src/sharding.rs.
package shard

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/quartzvec/vectorengine/pkg/hnsw"
	"github.com/quartzvec/vectorengine/pkg/vectorerr"
)

// DefaultShardCount is the number of shards a new index is created
// with unless overridden (ambient config knob VECTOR_SHARD_COUNT).
const DefaultShardCount = 10

// hashSeed fixes the xxhash seed so Shard(id) is stable across process
// restarts — spec.md §9 explicitly calls out that a language-default
// hash (randomized per process, as Go's built-in map hash is) would
// break shard stability.
const hashSeed = 0x51c617a7

// Searcher is the subset of *persist.Adapter one shard needs to
// participate in fan-out search; kept as an interface so shard can be
// tested without pulling in the storage stack.
type Searcher interface {
	Search(ctx context.Context, query []float32, k int) ([]hnsw.SearchResult, error)
}

// Router maps ids to shard indices and fans out queries across the
// shards it's given.
type Router struct {
	shardCount int
}

// NewRouter returns a Router over shardCount shards. shardCount must be
// >= 1; the caller is expected to have validated this already.
func NewRouter(shardCount int) *Router {
	return &Router{shardCount: shardCount}
}

func (r *Router) ShardCount() int { return r.shardCount }

// Shard returns the shard index an id routes to: hash(id) mod S, using
// a fixed-seed XXH64 so the mapping never changes across restarts.
func (r *Router) Shard(id string) int {
	h := xxhash.NewWithSeed(hashSeed)
	_, _ = h.Write([]byte(id))
	return int(h.Sum64() % uint64(r.shardCount))
}

// ShardName returns the on-disk/registry name for shard i.
func ShardName(i int) string {
	return fmt.Sprintf("vector-index-%d", i)
}

// Match is one result from a single shard's search, tagged with the
// shard it came from (useful for diagnostics even though the merged
// result only needs id, distance and metadata).
type Match struct {
	ShardName string
	ID        string
	Distance  float32
	Metadata  []byte
}

// FanOutSearch queries every shard in shards concurrently and returns
// each shard's raw results tagged by name. The caller merges them with
// Merge. Uses one goroutine per shard via errgroup so the first error
// from any shard cancels the rest and is returned.
func FanOutSearch(ctx context.Context, shards map[string]Searcher, query []float32, k int) ([]Match, error) {
	var (
		results = make([][]Match, 0, len(shards))
		mu      sync.Mutex
	)
	g, gctx := errgroup.WithContext(ctx)

	for name, searcher := range shards {
		name, searcher := name, searcher
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return vectorerr.Wrap(vectorerr.Timeout, "search deadline exceeded before shard "+name+" ran", err)
			}
			hits, err := searcher.Search(gctx, query, k)
			if err != nil {
				return fmt.Errorf("shard %s: %w", name, err)
			}
			matches := make([]Match, len(hits))
			for i, h := range hits {
				matches[i] = Match{ShardName: name, ID: h.ID, Distance: h.Distance, Metadata: h.Metadata}
			}
			mu.Lock()
			results = append(results, matches)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, vectorerr.Wrap(vectorerr.Timeout, "search deadline exceeded", err)
	}

	var all []Match
	for _, r := range results {
		all = append(all, r...)
	}
	return all, nil
}

// Merge concatenates per-shard matches, sorts ascending by distance,
// deduplicates by id keeping the first (best) occurrence, and
// truncates to k. Ported directly from merge_shard_results in the
// original's sharding.rs.
func Merge(matches []Match, k int) []Match {
	sorted := make([]Match, len(matches))
	copy(sorted, matches)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Distance != sorted[j].Distance {
			return sorted[i].Distance < sorted[j].Distance
		}
		return sorted[i].ID < sorted[j].ID
	})

	seen := make(map[string]bool, len(sorted))
	out := make([]Match, 0, k)
	for _, m := range sorted {
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		out = append(out, m)
		if len(out) >= k {
			break
		}
	}
	return out
}
