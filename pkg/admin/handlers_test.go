package admin

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RTXteam/kgx-storage/pkg/vfs"
)

type fakeRebuilder struct {
	snap *vfs.Snapshot
	err  error
}

func (f *fakeRebuilder) RunAndSave(context.Context) (*vfs.Snapshot, error) { return f.snap, f.err }
func (f *fakeRebuilder) Stats() vfs.RebuildStats {
	return vfs.RebuildStats{Runs: 3, Prefixes: 12, Failed: 1}
}

type fakeCache struct {
	loadErr error
	loaded  int
	set     *vfs.Snapshot
}

func (f *fakeCache) LoadFile(string) error { f.loaded++; return f.loadErr }
func (f *fakeCache) Set(s *vfs.Snapshot)   { f.set = s }

func TestRebuildHandler(t *testing.T) {
	snap := &vfs.Snapshot{
		ComputedAt: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		Bucket:     "translator-ingests",
		Stats:      map[string]vfs.DirStats{"a/": {Size: 1, Count: 1}, "b/": {Size: 2, Count: 2}},
	}
	cache := &fakeCache{}
	h := NewRebuildHandler(&fakeRebuilder{snap: snap}, cache)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/rebuild", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out struct {
		Prefixes   int    `json:"prefixes"`
		ComputedAt string `json:"computedAt"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Prefixes != 2 || out.ComputedAt != "2025-07-01T00:00:00Z" {
		t.Fatalf("response = %+v", out)
	}
	if cache.set != snap {
		t.Fatalf("snapshot not installed in cache")
	}
}

func TestRebuildHandlerFailure(t *testing.T) {
	cache := &fakeCache{}
	h := NewRebuildHandler(&fakeRebuilder{err: errors.New("bucket gone")}, cache)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/rebuild", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if cache.set != nil {
		t.Fatalf("cache updated on failed rebuild")
	}
}

func TestRebuildHandlerMethod(t *testing.T) {
	h := NewRebuildHandler(&fakeRebuilder{}, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/rebuild", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestReloadHandler(t *testing.T) {
	cache := &fakeCache{}
	h := NewReloadHandler(cache, "metrics.json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/reload", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if cache.loaded != 1 {
		t.Fatalf("load calls = %d", cache.loaded)
	}
}

func TestReloadHandlerMissingSnapshot(t *testing.T) {
	cache := &fakeCache{loadErr: fs.ErrNotExist}
	h := NewReloadHandler(cache, "metrics.json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/reload", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestReloadHandlerCorruptSnapshot(t *testing.T) {
	cache := &fakeCache{loadErr: errors.New("bad json")}
	h := NewReloadHandler(cache, "metrics.json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/reload", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestStatusHandler(t *testing.T) {
	h := NewStatusHandler(&fakeRebuilder{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var st vfs.RebuildStats
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Runs != 3 || st.Prefixes != 12 || st.Failed != 1 {
		t.Fatalf("stats = %+v", st)
	}
}
