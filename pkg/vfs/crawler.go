package vfs

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/RTXteam/kgx-storage/pkg/store"
)

// ChildLister is the store subset needed for crawling and browsing: a
// one-level delimited listing.
type ChildLister interface {
	ListChildren(ctx context.Context, prefix string) (childPrefixes []string, objects []store.ObjectMeta, err error)
}

// Discover enumerates every directory prefix in the namespace, breadth-first
// from the root, down to maxDepth levels. The depth of a prefix is the number
// of delimiter occurrences in it; prefixes at depth >= maxDepth are returned
// but not expanded further. A listing failure on a non-root prefix abandons
// that branch and is logged; a failure on the root aborts the crawl, since
// nothing can be discovered without it. The result is sorted for
// deterministic output.
func Discover(ctx context.Context, l ChildLister, maxDepth int) ([]string, error) {
	seen := make(map[string]struct{})
	queue := []string{""}

	for len(queue) > 0 {
		prefix := queue[0]
		queue = queue[1:]

		if strings.Count(prefix, store.Delimiter) >= maxDepth {
			continue
		}
		children, _, err := l.ListChildren(ctx, prefix)
		if err != nil {
			if prefix == "" {
				return nil, fmt.Errorf("vfs: crawl root: %w", err)
			}
			slog.Warn("vfs: crawl prefix failed, abandoning branch",
				slog.String("prefix", prefix), slog.String("error", err.Error()))
			continue
		}
		for _, child := range children {
			if _, ok := seen[child]; ok {
				continue
			}
			seen[child] = struct{}{}
			queue = append(queue, child)
		}
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}
