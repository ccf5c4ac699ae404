package browse

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/RTXteam/kgx-storage/pkg/store"
	"github.com/RTXteam/kgx-storage/pkg/vfs"
)

func newTestHandler(t *testing.T) (*Handler, *store.MemoryStore) {
	t.Helper()
	m := store.NewMemoryStore()
	mod := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m.Put("README.md", []byte("# kgx"), "text/markdown", mod)
	m.Put("ctd/v1.0/nodes.tsv", make([]byte, 2048), "text/tab-separated-values", mod)
	m.Put("ctd/v1.0/graph.json", []byte(`{"nodes":[1,2]}`), "application/json", mod)
	cache := vfs.NewCache(m)
	views := vfs.NewViewBuilder(m, cache)
	resolver := vfs.NewResolver(m, m, views, ReservedRoutes)
	return New(resolver, m, "translator-ingests", time.Hour), m
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestRootDirectoryListing(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := get(t, h, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("content type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "ctd") || !strings.Contains(body, "README.md") {
		t.Fatalf("listing missing entries: %s", body)
	}
	if !strings.Contains(body, "translator-ingests") {
		t.Fatalf("bucket name not rendered")
	}
}

func TestDirectoryListingShowsAggregates(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := get(t, h, "/ctd/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	// v1.0 holds 2048 + 15 bytes.
	if !strings.Contains(rec.Body.String(), "2.0 KB") {
		t.Fatalf("aggregate size not rendered: %s", rec.Body.String())
	}
}

func TestLegacyQueryRedirect(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := get(t, h, "/?path=ctd/v1.0/")
	if rec.Code != http.StatusMovedPermanently {
		t.Fatalf("status = %d, want 301", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/ctd/v1.0/" {
		t.Fatalf("location = %q", loc)
	}
}

func TestDirectoryWithoutSlashRedirects(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := get(t, h, "/ctd?foo=bar")
	if rec.Code != http.StatusMovedPermanently {
		t.Fatalf("status = %d, want 301", rec.Code)
	}
	// Canonical form only; the query is dropped.
	if loc := rec.Header().Get("Location"); loc != "/ctd/" {
		t.Fatalf("location = %q", loc)
	}
}

func TestFileRedirectsToPresignedURL(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := get(t, h, "/ctd/v1.0/nodes.tsv")
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, "memory://ctd/v1.0/nodes.tsv") {
		t.Fatalf("location = %q", loc)
	}
}

func TestViewRendersJSONInline(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := get(t, h, "/ctd/v1.0/graph.json?view")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "graph.json") {
		t.Fatalf("file name not rendered")
	}
	// Pretty-printed, so the nested array spans lines.
	if !strings.Contains(body, "&#34;nodes&#34;") && !strings.Contains(body, `"nodes"`) {
		t.Fatalf("content not rendered: %s", body)
	}
}

func TestViewOnNonJSONStripsMarker(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := get(t, h, "/ctd/v1.0/nodes.tsv?view")
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/ctd/v1.0/nodes.tsv" {
		t.Fatalf("location = %q", loc)
	}
}

func TestReservedRouteIsNotFound(t *testing.T) {
	h, m := newTestHandler(t)
	m.Put("admin/trap.txt", []byte("x"), "text/plain", time.Now().UTC())
	for _, target := range []string{"/admin/trap.txt", "/favicon.ico", "/livez/x"} {
		if rec := get(t, h, target); rec.Code != http.StatusNotFound {
			t.Fatalf("%s: status = %d, want 404", target, rec.Code)
		}
	}
}

func TestUnknownPathNotFound(t *testing.T) {
	h, _ := newTestHandler(t)
	if rec := get(t, h, "/nope/missing.txt"); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != "GET, HEAD" {
		t.Fatalf("allow = %q", allow)
	}
}

func TestRedirectTargetsEscapeSpecialKeys(t *testing.T) {
	h, m := newTestHandler(t)
	mod := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m.Put("data dir/100%.txt", []byte("x"), "text/plain", mod)

	// Directory addressed without its slash: the canonical form keeps the
	// escaping intact.
	rec := get(t, h, "/data%20dir")
	if rec.Code != http.StatusMovedPermanently {
		t.Fatalf("status = %d, want 301", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/data%20dir/" {
		t.Fatalf("location = %q", loc)
	}

	// View marker stripped from a non-JSON file with special characters.
	rec = get(t, h, "/data%20dir/100%25.txt?view")
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/data%20dir/100%25.txt" {
		t.Fatalf("location = %q", loc)
	}

	// Legacy query addressing escapes the same way.
	rec = get(t, h, "/?path=data+dir/")
	if rec.Code != http.StatusMovedPermanently {
		t.Fatalf("status = %d, want 301", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/data%20dir/" {
		t.Fatalf("location = %q", loc)
	}
}

func TestHrefEscapesSegments(t *testing.T) {
	if got := href("a b/c.json"); got != "/a%20b/c.json" {
		t.Fatalf("href = %q", got)
	}
}
