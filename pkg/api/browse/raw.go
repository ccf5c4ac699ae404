package browse

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/RTXteam/kgx-storage/pkg/store"
)

// NewRawHandler returns the raw download route mounted at /public/. It serves
// object bodies directly and exists for store backends that cannot presign;
// the S3 backend redirects to real presigned URLs instead and never uses it.
func NewRawHandler(files fileStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		key := strings.TrimPrefix(r.URL.Path, "/public/")
		if key == "" || strings.HasSuffix(key, "/") {
			http.NotFound(w, r)
			return
		}
		rc, meta, err := files.Get(r.Context(), key)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		defer rc.Close()
		ct := meta.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ct)
		w.Header().Set("Content-Length", strconv.FormatInt(meta.Size, 10))
		if r.Method == http.MethodHead {
			return
		}
		_, _ = io.Copy(w, rc)
	})
}
