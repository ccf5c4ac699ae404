package vfs

import (
	"context"
	"errors"
	"time"

	"github.com/RTXteam/kgx-storage/pkg/store"
)

// seedStore builds the fixture namespace used across the package tests:
//
//	README.md
//	ctd/v1.0/nodes.tsv
//	ctd/v1.0/edges.tsv
//	ctd/v2.0/nodes.tsv
//	goa/latest/goa.json
//	deep/a/b/c/d/leaf.txt
func seedStore() *store.MemoryStore {
	m := store.NewMemoryStore()
	m.Put("README.md", make([]byte, 100), "text/markdown", ts("2025-01-01T10:00:00Z"))
	m.Put("ctd/v1.0/nodes.tsv", make([]byte, 2000), "text/tab-separated-values", ts("2025-02-01T08:00:00Z"))
	m.Put("ctd/v1.0/edges.tsv", make([]byte, 3000), "text/tab-separated-values", ts("2025-02-02T08:00:00Z"))
	m.Put("ctd/v2.0/nodes.tsv", make([]byte, 500), "text/tab-separated-values", ts("2025-03-01T08:00:00Z"))
	m.Put("goa/latest/goa.json", make([]byte, 1234), "application/json", ts("2025-01-15T12:30:00Z"))
	m.Put("deep/a/b/c/d/leaf.txt", make([]byte, 10), "text/plain", ts("2025-04-01T00:00:00Z"))
	return m
}

func seedEmpty() *store.MemoryStore { return store.NewMemoryStore() }

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

// failingLister wraps a store and fails listings for one prefix.
type failingLister struct {
	*store.MemoryStore
	failPrefix string
}

var errListing = errors.New("listing unavailable")

func (f *failingLister) ListChildren(ctx context.Context, prefix string) ([]string, []store.ObjectMeta, error) {
	if prefix == f.failPrefix {
		return nil, nil, errListing
	}
	return f.MemoryStore.ListChildren(ctx, prefix)
}

func (f *failingLister) ListRecursive(ctx context.Context, prefix string, fn func(store.ObjectMeta) error) error {
	if prefix == f.failPrefix {
		return errListing
	}
	return f.MemoryStore.ListRecursive(ctx, prefix, fn)
}
