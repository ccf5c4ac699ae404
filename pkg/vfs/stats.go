package vfs

import (
	"context"

	"github.com/RTXteam/kgx-storage/pkg/store"
)

// RecursiveLister is the store subset needed for aggregation: a flat listing
// of every object under a prefix, at any depth.
type RecursiveLister interface {
	ListRecursive(ctx context.Context, prefix string, fn func(store.ObjectMeta) error) error
}

// Aggregate computes DirStats for prefix in a single streaming pass over the
// recursive listing: total byte size, object count, and the most recent
// modification time. An empty prefix aggregates the whole namespace. A prefix
// with no objects yields a zero DirStats (Modified left zero).
func Aggregate(ctx context.Context, l RecursiveLister, prefix string) (DirStats, error) {
	var st DirStats
	err := l.ListRecursive(ctx, prefix, func(m store.ObjectMeta) error {
		st.Size += m.Size
		st.Count++
		if m.LastModified.After(st.Modified) {
			st.Modified = m.LastModified
		}
		return nil
	})
	if err != nil {
		return DirStats{}, err
	}
	return st, nil
}
