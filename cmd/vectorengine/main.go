// Command vectorengine runs and administers the persistent vector
// similarity search engine (spec.md §6). Subcommands: serve,
// create-index, rebuild, version.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/quartzvec/vectorengine/pkg/config"
	"github.com/quartzvec/vectorengine/pkg/hnsw"
	"github.com/quartzvec/vectorengine/pkg/indexmgr"
	"github.com/quartzvec/vectorengine/pkg/vector"
	"github.com/quartzvec/vectorengine/pkg/vectorserver"
)

// version is stamped at build time via -ldflags; "dev" otherwise.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vectorengine",
		Short: "Persistent vector similarity search engine",
	}
	root.AddCommand(newServeCmd(), newCreateIndexCmd(), newRebuildCmd(), newVersionCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadFromEnv()
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			mgr, err := indexmgr.NewManagerWithCacheSize(cfg.DataPath, cfg.CacheSize)
			if err != nil {
				return fmt.Errorf("open storage root %q: %w", cfg.DataPath, err)
			}

			srv := vectorserver.NewServer(mgr, vectorserver.DefaultOptions())
			addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
			httpSrv := &http.Server{Addr: addr, Handler: srv}

			log.Printf("vectorengine %s listening on %s (data path %s)", version, addr, cfg.DataPath)

			errCh := make(chan error, 1)
			go func() {
				if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return fmt.Errorf("server error: %w", err)
			case sig := <-sigCh:
				log.Printf("received %s, shutting down gracefully", sig)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpSrv.Shutdown(ctx); err != nil {
				log.Printf("server shutdown error: %v", err)
			}
			if err := mgr.Close(); err != nil {
				log.Printf("index manager close error: %v", err)
			}
			return nil
		},
	}
}

func newCreateIndexCmd() *cobra.Command {
	var (
		name       string
		dimension  int
		metric     string
		shardCount int
		preset     string
		dataPath   string
	)

	cmd := &cobra.Command{
		Use:   "create-index",
		Short: "Create (or open) a named vector index",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, ok := vector.ParseMetric(metric)
			if !ok {
				return fmt.Errorf("unknown metric %q: must be cosine, euclidean, or dot_product", metric)
			}

			mgr, err := indexmgr.NewManager(dataPath)
			if err != nil {
				return fmt.Errorf("open storage root %q: %w", dataPath, err)
			}
			defer mgr.Close()

			hnswCfg := hnswConfigForPreset(preset)
			idx, err := mgr.CreateOrOpen(name, indexmgr.Config{
				Dimension:  dimension,
				Metric:     m,
				HNSW:       hnswCfg,
				ShardCount: shardCount,
			})
			if err != nil {
				return err
			}
			stats := idx.Stats()
			fmt.Printf("index %q ready: dimension=%d metric=%s vectors=%d\n", idx.Name(), stats.Dimension, m, stats.NumVectors)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "index name (required)")
	cmd.Flags().IntVar(&dimension, "dimension", 0, "vector dimension (required)")
	cmd.Flags().StringVar(&metric, "metric", "cosine", "distance metric: cosine, euclidean, dot_product")
	cmd.Flags().IntVar(&shardCount, "shards", 0, "shard count (0 = default)")
	cmd.Flags().StringVar(&preset, "preset", "balanced", "HNSW preset: fast, balanced, high-quality")
	cmd.Flags().StringVar(&dataPath, "data-path", "./data", "storage root")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("dimension")

	return cmd
}

func newRebuildCmd() *cobra.Command {
	var (
		name     string
		dataPath string
	)

	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Compact a named index: drop tombstoned vectors, reinsert survivors",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := indexmgr.NewManager(dataPath)
			if err != nil {
				return fmt.Errorf("open storage root %q: %w", dataPath, err)
			}
			defer mgr.Close()

			idx, err := mgr.OpenExisting(name)
			if err != nil {
				return fmt.Errorf("open index %q: %w", name, err)
			}

			before := idx.Stats()
			start := time.Now()
			if err := idx.Rebuild(); err != nil {
				return fmt.Errorf("rebuild %q: %w", name, err)
			}
			after := idx.Stats()
			fmt.Printf("rebuilt %q in %s: %d -> %d vectors, %d tombstones dropped\n",
				name, time.Since(start), before.NumVectors, after.NumVectors, before.NumDeleted)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "index name (required)")
	cmd.Flags().StringVar(&dataPath, "data-path", "./data", "storage root")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the vectorengine version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version)
			return nil
		},
	}
}

func hnswConfigForPreset(name string) hnsw.Config {
	switch name {
	case "fast":
		return hnsw.FastConfig()
	case "high-quality":
		return hnsw.HighQualityConfig()
	default:
		return hnsw.BalancedConfig()
	}
}
