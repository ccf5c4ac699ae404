package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FSStore implements Store on a local directory tree: every regular file is
// an object whose key is its slash-separated path relative to the root.
// Suitable for development and offline work; presigned URLs are emulated by
// the raw download route, so ttl is ignored.
type FSStore struct {
	root string
}

// NewFSStore creates an FSStore rooted at dir, which must exist.
func NewFSStore(dir string) (*FSStore, error) {
	if dir == "" {
		return nil, errors.New("store: fs root not configured")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("store: fs root: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("store: fs root %s is not a directory", abs)
	}
	return &FSStore{root: abs}, nil
}

// keyPath maps an object key or prefix to a filesystem path, rejecting
// anything that could escape the root.
func (f *FSStore) keyPath(key string) (string, error) {
	for _, seg := range strings.Split(key, Delimiter) {
		if seg == ".." {
			return "", ErrNotFound
		}
	}
	return filepath.Join(f.root, filepath.FromSlash(key)), nil
}

func (f *FSStore) ListChildren(ctx context.Context, prefix string) ([]string, []ObjectMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	dir, err := f.keyPath(prefix)
	if err != nil {
		return nil, nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("store: list %s: %w", prefix, err)
	}
	var prefixes []string
	var objects []ObjectMeta
	for _, e := range entries {
		if e.IsDir() {
			prefixes = append(prefixes, prefix+e.Name()+Delimiter)
			continue
		}
		info, ierr := e.Info()
		if ierr != nil {
			continue
		}
		objects = append(objects, ObjectMeta{
			Key:          prefix + e.Name(),
			Size:         info.Size(),
			LastModified: info.ModTime().UTC(),
		})
	}
	sort.Strings(prefixes)
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return prefixes, objects, nil
}

func (f *FSStore) ListRecursive(ctx context.Context, prefix string, fn func(ObjectMeta) error) error {
	dir, err := f.keyPath(prefix)
	if err != nil {
		return nil
	}
	return filepath.WalkDir(dir, func(p string, d os.DirEntry, werr error) error {
		if werr != nil {
			if errors.Is(werr, os.ErrNotExist) {
				return nil
			}
			return werr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, ierr := d.Info()
		if ierr != nil {
			return nil
		}
		rel, rerr := filepath.Rel(f.root, p)
		if rerr != nil {
			return rerr
		}
		return fn(ObjectMeta{
			Key:          filepath.ToSlash(rel),
			Size:         info.Size(),
			LastModified: info.ModTime().UTC(),
		})
	})
}

func (f *FSStore) Probe(ctx context.Context, key string) (ObjectMeta, error) {
	if err := ctx.Err(); err != nil {
		return ObjectMeta{}, err
	}
	p, err := f.keyPath(key)
	if err != nil {
		return ObjectMeta{}, err
	}
	st, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ObjectMeta{}, ErrNotFound
		}
		return ObjectMeta{}, fmt.Errorf("store: head %s: %w", key, err)
	}
	// Directories are prefixes, not objects.
	if st.IsDir() {
		return ObjectMeta{}, ErrNotFound
	}
	return ObjectMeta{
		Key:          key,
		Size:         st.Size(),
		LastModified: st.ModTime().UTC(),
		ContentType:  contentTypeFor(key),
	}, nil
}

func (f *FSStore) Get(ctx context.Context, key string) (io.ReadCloser, ObjectMeta, error) {
	meta, err := f.Probe(ctx, key)
	if err != nil {
		return nil, ObjectMeta{}, err
	}
	p, err := f.keyPath(key)
	if err != nil {
		return nil, ObjectMeta{}, err
	}
	file, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ObjectMeta{}, ErrNotFound
		}
		return nil, ObjectMeta{}, fmt.Errorf("store: get %s: %w", key, err)
	}
	return file, meta, nil
}

// PresignGet returns a path on the raw download route; there is nothing to
// sign for local files.
func (f *FSStore) PresignGet(ctx context.Context, key string, _ time.Duration) (string, error) {
	if _, err := f.Probe(ctx, key); err != nil {
		return "", err
	}
	return "/public/" + escapePath(key), nil
}

func escapePath(key string) string {
	segs := strings.Split(key, Delimiter)
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, Delimiter)
}

func contentTypeFor(key string) string {
	ct := mime.TypeByExtension(path.Ext(key))
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}
