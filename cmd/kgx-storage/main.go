package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/RTXteam/kgx-storage/pkg/admin"
	"github.com/RTXteam/kgx-storage/pkg/api/browse"
	"github.com/RTXteam/kgx-storage/pkg/config"
	"github.com/RTXteam/kgx-storage/pkg/obs/metrics"
	"github.com/RTXteam/kgx-storage/pkg/obs/tracing"
	"github.com/RTXteam/kgx-storage/pkg/security/oidc"
	"github.com/RTXteam/kgx-storage/pkg/store"
	"github.com/RTXteam/kgx-storage/pkg/vfs"
)

var version = "0.2.0-dev"
var ready atomic.Bool

func main() {
	// Load config from KGX_CONFIG or ./config.yaml; defaults otherwise.
	cfg, err := config.Load(os.Getenv("KGX_CONFIG"))
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := config.Validate(cfg); err != nil {
		slog.Error("invalid config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize tracing (OpenTelemetry)
	traceShutdown, terr := tracing.Init(context.Background(), tracing.Options{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		Protocol:    cfg.Tracing.Protocol,
		SampleRatio: cfg.Tracing.SampleRatio,
		ServiceName: cfg.Tracing.ServiceName,
	})
	if terr != nil {
		slog.Warn("tracing init failed", slog.String("error", terr.Error()))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK); _, _ = w.Write([]byte("ok")) })
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if !ready.Load() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// Metrics: Prometheus /metrics endpoint and HTTP instrumentation
	m := metrics.New()
	mux.Handle("/metrics", m.Handler())
	sm := metrics.NewStoreMetrics(m.Registry())

	backend, err := newStore(context.Background(), cfg)
	if err != nil {
		slog.Error("init store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	objs := store.Instrument(backend, sm)

	// The fs backend cannot presign, so downloads go through the raw route.
	if cfg.Backend == "fs" {
		mux.Handle("/public/", browse.NewRawHandler(objs))
	}

	// Metrics cache: load the persisted snapshot when present; an absent or
	// corrupt snapshot just means every lookup aggregates live until the
	// first rebuild lands.
	cache := vfs.NewCache(objs)
	if err := cache.LoadFile(cfg.SnapshotPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Info("no snapshot yet, serving with empty cache", slog.String("path", cfg.SnapshotPath))
		} else {
			slog.Warn("snapshot unreadable, serving with empty cache",
				slog.String("path", cfg.SnapshotPath), slog.String("error", err.Error()))
		}
	}

	views := vfs.NewViewBuilder(objs, cache)
	resolver := vfs.NewResolver(objs, objs, views, browse.ReservedRoutes)
	handler := http.Handler(browse.New(resolver, objs, cfg.Bucket, cfg.PresignTTL))

	rebuilder := vfs.NewRebuilder(objs, vfs.RebuildConfig{
		Bucket:       cfg.Bucket,
		MaxDepth:     cfg.Rebuild.MaxDepth,
		Concurrency:  cfg.Rebuild.Concurrency,
		Interval:     cfg.Rebuild.Interval,
		SnapshotPath: cfg.SnapshotPath,
	})
	rm := metrics.NewRebuildMetrics(m.Registry())
	rmStop := rm.StartPolling(rebuilder, cache, 10*time.Second)
	defer rmStop()

	// Admin control surface, optionally behind OIDC.
	adminMux := http.NewServeMux()
	adminMux.Handle("/admin/rebuild", admin.NewRebuildHandler(rebuilder, cache))
	adminMux.Handle("/admin/reload", admin.NewReloadHandler(cache, cfg.SnapshotPath))
	adminMux.Handle("/admin/status", admin.NewStatusHandler(rebuilder))
	adminHandler := http.Handler(adminMux)
	if cfg.OIDC.Enabled {
		verifier, verr := oidc.NewVerifier(context.Background(), oidc.Config{
			Issuer:   cfg.OIDC.Issuer,
			ClientID: cfg.OIDC.ClientID,
			Audience: cfg.OIDC.Audience,
			JWKSURL:  cfg.OIDC.JWKSURL,
		})
		if verr != nil {
			slog.Error("init oidc", slog.String("error", verr.Error()))
			os.Exit(1)
		}
		adminHandler = oidc.Middleware(verifier, nil)(oidc.RBAC(oidc.DefaultAdminPolicy())(adminHandler))
		slog.Info("admin oidc enabled")
	}
	mux.Handle("/admin/", adminHandler)

	// Background rebuild inside the server is optional; the usual deployment
	// runs kgx-metrics from cron and POSTs /admin/reload (or sends SIGHUP).
	if cfg.Rebuild.Background {
		if err := rebuilder.Start(context.Background()); err != nil {
			slog.Error("start rebuilder", slog.String("error", err.Error()))
			os.Exit(1)
		}
		slog.Info("background rebuild enabled", slog.Duration("interval", cfg.Rebuild.Interval))
	}

	// Tracing middleware, then HTTP metrics
	handler = tracing.Middleware(handler)
	handler = m.Middleware(handler)
	mux.Handle("/", handler)

	srv := &http.Server{
		Addr:         cfg.Address,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		ready.Store(true)
		slog.Info("kgx-storage listening",
			slog.String("version", version),
			slog.String("addr", cfg.Address),
			slog.String("bucket", cfg.Bucket))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// SIGHUP reloads the snapshot; SIGINT/SIGTERM shut down gracefully.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range quit {
		if sig == syscall.SIGHUP {
			if err := cache.LoadFile(cfg.SnapshotPath); err != nil {
				slog.Warn("snapshot reload failed", slog.String("error", err.Error()))
			}
			continue
		}
		break
	}
	ready.Store(false)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if cfg.Rebuild.Background {
		if err := rebuilder.Stop(ctx); err != nil {
			slog.Error("rebuilder stop error", slog.String("error", err.Error()))
		}
	}
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", slog.String("error", err.Error()))
	}
	if err := traceShutdown(ctx); err != nil {
		slog.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	slog.Info("kgx-storage stopped")
}

// newStore builds the configured store backend.
func newStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if cfg.Backend == "fs" {
		return store.NewFSStore(cfg.FSRoot)
	}
	return store.NewS3Store(ctx, store.S3Options{
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		Endpoint:  cfg.Endpoint,
		PathStyle: cfg.PathStyle,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
	})
}
