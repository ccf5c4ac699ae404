// Command kgx-metrics recomputes the per-directory metrics snapshot and
// writes it to disk. It is intended to run from cron; the serving binary
// picks up the new file on SIGHUP or POST /admin/reload.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/RTXteam/kgx-storage/pkg/config"
	"github.com/RTXteam/kgx-storage/pkg/store"
	"github.com/RTXteam/kgx-storage/pkg/vfs"
)

func main() {
	var (
		out     = flag.String("out", "", "snapshot output path (default from config)")
		depth   = flag.Int("max-depth", 0, "maximum directory depth to crawl (default from config)")
		timeout = flag.Duration("timeout", 30*time.Minute, "overall run timeout")
	)
	flag.Parse()

	cfg, err := config.Load(os.Getenv("KGX_CONFIG"))
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := config.Validate(cfg); err != nil {
		slog.Error("invalid config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *out != "" {
		cfg.SnapshotPath = *out
	}
	if *depth > 0 {
		cfg.Rebuild.MaxDepth = *depth
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var backend store.Store
	if cfg.Backend == "fs" {
		backend, err = store.NewFSStore(cfg.FSRoot)
	} else {
		backend, err = store.NewS3Store(ctx, store.S3Options{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			PathStyle: cfg.PathStyle,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
		})
	}
	if err != nil {
		slog.Error("init store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	r := vfs.NewRebuilder(backend, vfs.RebuildConfig{
		Bucket:       cfg.Bucket,
		MaxDepth:     cfg.Rebuild.MaxDepth,
		Concurrency:  cfg.Rebuild.Concurrency,
		SnapshotPath: cfg.SnapshotPath,
	})

	start := time.Now()
	snap, err := r.RunAndSave(ctx)
	if err != nil {
		slog.Error("rebuild failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("snapshot written",
		slog.String("path", cfg.SnapshotPath),
		slog.String("bucket", cfg.Bucket),
		slog.Int("prefixes", len(snap.Stats)),
		slog.Duration("elapsed", time.Since(start).Round(time.Millisecond)))
}
