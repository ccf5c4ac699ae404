// Package admin exposes the out-of-band control surface: triggering a metrics
// rebuild, reloading the persisted snapshot, and reporting rebuild status.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/RTXteam/kgx-storage/pkg/vfs"
)

// Rebuilder is the rebuild surface the handlers need.
type Rebuilder interface {
	RunAndSave(ctx context.Context) (*vfs.Snapshot, error)
	Stats() vfs.RebuildStats
}

// Cache is the snapshot cache surface the handlers need.
type Cache interface {
	LoadFile(path string) error
	Set(snap *vfs.Snapshot)
}

// NewRebuildHandler returns POST /admin/rebuild. It runs one rebuild pass
// synchronously, persists the snapshot, installs it in the cache, and returns
// a pass summary. A failed pass leaves the previous snapshot in effect.
func NewRebuildHandler(r Rebuilder, cache Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		snap, err := r.RunAndSave(req.Context())
		if err != nil {
			slog.Error("admin: rebuild failed", slog.String("error", err.Error()))
			http.Error(w, "rebuild failed", http.StatusInternalServerError)
			return
		}
		if cache != nil {
			cache.Set(snap)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Prefixes   int    `json:"prefixes"`
			ComputedAt string `json:"computedAt"`
		}{
			Prefixes:   len(snap.Stats),
			ComputedAt: snap.ComputedAt.Format(time.RFC3339),
		})
	}
}

// NewReloadHandler returns POST /admin/reload. It reloads the persisted
// snapshot file into the cache, picking up a rebuild done by the out-of-band
// job. A missing snapshot file is reported as 404; the cache is untouched.
func NewReloadHandler(cache Cache, path string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := cache.LoadFile(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				http.Error(w, "no snapshot", http.StatusNotFound)
				return
			}
			slog.Error("admin: snapshot reload failed", slog.String("error", err.Error()))
			http.Error(w, "reload failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// NewStatusHandler returns GET /admin/status with current rebuild stats.
func NewStatusHandler(r Rebuilder) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(r.Stats())
	}
}
