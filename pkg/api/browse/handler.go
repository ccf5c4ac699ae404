// Package browse serves the virtual filesystem over HTTP: directory listings,
// JSON inline viewing, and presigned download redirection.
package browse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/RTXteam/kgx-storage/pkg/store"
	"github.com/RTXteam/kgx-storage/pkg/vfs"
)

// ReservedRoutes are top-level path segments that never reach the store:
// they collide with the server's own routes.
var ReservedRoutes = []string{
	"metrics", "livez", "readyz", "admin", "public", "favicon.ico",
}

// viewParam is the query marker requesting inline rendering of a JSON file.
const viewParam = "view"

// fileStore is the store subset the handler needs beyond resolution.
type fileStore interface {
	Get(ctx context.Context, key string) (io.ReadCloser, store.ObjectMeta, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Handler serves browsing requests. It is stateless per request: all shared
// state lives in the resolver's cache snapshot, which is read-only.
type Handler struct {
	resolver   *vfs.Resolver
	files      fileStore
	bucket     string
	presignTTL time.Duration
}

// New wires a browse handler.
func New(r *vfs.Resolver, files fileStore, bucket string, presignTTL time.Duration) *Handler {
	if presignTTL <= 0 {
		presignTTL = time.Hour
	}
	return &Handler{resolver: r, files: files, bucket: bucket, presignTTL: presignTTL}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Legacy query-parameter addressing: /?path=a/b/ permanently redirects to
	// the path-based canonical URL before resolution runs.
	if r.URL.Path == "/" && r.URL.Query().Get("path") != "" {
		target := href(strings.TrimPrefix(r.URL.Query().Get("path"), "/"))
		http.Redirect(w, r, target, http.StatusMovedPermanently)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/")
	res, err := h.resolver.Resolve(r.Context(), path)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	switch res.State {
	case vfs.StateNotFound:
		http.NotFound(w, r)
	case vfs.StateRedirect:
		// Canonical directory form; query parameters are not preserved.
		http.Redirect(w, r, href(res.Redirect), http.StatusMovedPermanently)
	case vfs.StateDir:
		h.renderDir(w, r, res.View)
	case vfs.StateFile:
		h.serveFile(w, r, path, res.Meta)
	default:
		h.serverError(w, r, errors.New("browse: unexpected resolution state"))
	}
}

// serveFile redirects to a presigned download URL, except when the inline
// view marker is present and the file is JSON. For a non-JSON file the marker
// is stripped by redirecting to the bare file path.
func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request, path string, meta store.ObjectMeta) {
	if r.URL.Query().Has(viewParam) {
		if isJSON(meta) {
			h.renderJSON(w, r, path, meta)
			return
		}
		http.Redirect(w, r, href(path), http.StatusFound)
		return
	}
	signed, err := h.files.PresignGet(r.Context(), path, h.presignTTL)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, signed, http.StatusFound)
}

func (h *Handler) renderDir(w http.ResponseWriter, r *http.Request, view *vfs.DirView) {
	data := dirPage{
		Bucket:      h.bucket,
		Path:        view.Prefix,
		Parent:      parentOrNone(view.Prefix),
		Breadcrumbs: vfs.Breadcrumbs(view.Prefix),
		TotalSize:   FormatSize(view.TotalSize),
		TotalFiles:  view.TotalFiles,
	}
	for _, d := range view.Dirs {
		data.Dirs = append(data.Dirs, dirRow{
			Name:      d.Name,
			Href:      href(d.Prefix),
			Size:      FormatSize(d.Stats.Size),
			FileCount: d.Stats.Count,
			Modified:  FormatTime(d.Stats.Modified),
		})
	}
	for _, f := range view.Files {
		data.Files = append(data.Files, fileRow{
			Name:     f.Name,
			Href:     href(f.Key),
			ViewHref: href(f.Key) + "?" + viewParam,
			IsJSON:   strings.HasSuffix(strings.ToLower(f.Name), ".json"),
			Size:     FormatSize(f.Size),
			Modified: FormatTime(f.Modified),
		})
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dirTemplate.Execute(w, data); err != nil {
		slog.Error("browse: render directory", slog.String("error", err.Error()))
	}
}

// renderJSON fetches the object and renders it pretty-printed. Content that
// fails to parse as JSON is shown as-is.
func (h *Handler) renderJSON(w http.ResponseWriter, r *http.Request, path string, meta store.ObjectMeta) {
	rc, meta, err := h.files.Get(r.Context(), path)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.serverError(w, r, err)
		return
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		pretty.Reset()
		pretty.Write(raw)
	}

	download, err := h.files.PresignGet(r.Context(), path, h.presignTTL)
	if err != nil {
		slog.Warn("browse: presign for viewer failed", slog.String("key", path), slog.String("error", err.Error()))
	}
	name := path
	if i := strings.LastIndex(path, store.Delimiter); i >= 0 {
		name = path[i+1:]
	}
	data := viewerPage{
		Name:        name,
		Size:        FormatSize(meta.Size),
		Modified:    FormatTime(meta.LastModified),
		Content:     pretty.String(),
		DownloadURL: download,
		ParentHref:  "/" + vfs.ParentPath(path),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := viewerTemplate.Execute(w, data); err != nil {
		slog.Error("browse: render viewer", slog.String("error", err.Error()))
	}
}

// href builds a root-relative URL for a key or prefix, escaping each path
// segment but keeping the delimiters.
func href(p string) string {
	segs := strings.Split(p, store.Delimiter)
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return "/" + strings.Join(segs, store.Delimiter)
}

// serverError hides store error detail from the client; full detail goes to
// the log only.
func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("browse: request failed",
		slog.String("path", r.URL.Path), slog.String("error", err.Error()))
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func isJSON(meta store.ObjectMeta) bool {
	if ct, _, _ := strings.Cut(meta.ContentType, ";"); strings.TrimSpace(ct) == "application/json" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(meta.Key), ".json")
}

func parentOrNone(prefix string) string {
	if prefix == "" {
		return ""
	}
	return "/" + vfs.ParentPath(prefix)
}
