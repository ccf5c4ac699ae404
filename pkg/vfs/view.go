package vfs

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/RTXteam/kgx-storage/pkg/store"
)

// StatsProvider supplies per-directory aggregates for view building;
// satisfied by *Cache.
type StatsProvider interface {
	StatsFor(ctx context.Context, prefix string) (DirStats, error)
}

// DirEntry is a child directory in a view, with its cached recursive stats.
type DirEntry struct {
	Name   string
	Prefix string
	Stats  DirStats
}

// FileEntry is a child file in a view. A file's stats are its own size and
// modification time, never an aggregate.
type FileEntry struct {
	Name     string
	Key      string
	Size     int64
	Modified time.Time
}

// DirView is a display-ready tree level: one directory's immediate children
// with aggregate totals computed from already-aggregated child stats. The
// subtree is never re-walked at request time.
type DirView struct {
	Prefix     string
	Dirs       []DirEntry
	Files      []FileEntry
	TotalSize  int64
	TotalFiles int64
}

// Crumb is one segment of a breadcrumb trail.
type Crumb struct {
	Name string
	Path string
}

// ViewBuilder joins live one-level listings with cached recursive stats.
type ViewBuilder struct {
	lister ChildLister
	stats  StatsProvider
}

// NewViewBuilder wires a view builder over the given listing and stats
// sources.
func NewViewBuilder(l ChildLister, s StatsProvider) *ViewBuilder {
	return &ViewBuilder{lister: l, stats: s}
}

// Build produces the view for prefix. Child directories and files are sorted
// case-insensitively by name. An empty directory yields a view with no
// entries, which is a valid, renderable state.
func (b *ViewBuilder) Build(ctx context.Context, prefix string) (*DirView, error) {
	childPrefixes, objects, err := b.lister.ListChildren(ctx, prefix)
	if err != nil {
		return nil, err
	}

	view := &DirView{Prefix: prefix}
	for _, child := range childPrefixes {
		st, err := b.stats.StatsFor(ctx, child)
		if err != nil {
			return nil, err
		}
		view.Dirs = append(view.Dirs, DirEntry{
			Name:   strings.TrimSuffix(strings.TrimPrefix(child, prefix), store.Delimiter),
			Prefix: child,
			Stats:  st,
		})
		view.TotalSize += st.Size
		view.TotalFiles += st.Count
	}
	for _, obj := range objects {
		name := strings.TrimPrefix(obj.Key, prefix)
		if strings.Contains(name, store.Delimiter) {
			// Not an immediate child; delimited listings should not produce
			// these, but a defect upstream must not corrupt the view.
			continue
		}
		view.Files = append(view.Files, FileEntry{
			Name:     name,
			Key:      obj.Key,
			Size:     obj.Size,
			Modified: obj.LastModified,
		})
		view.TotalSize += obj.Size
		view.TotalFiles++
	}

	sort.Slice(view.Dirs, func(i, j int) bool {
		return strings.ToLower(view.Dirs[i].Name) < strings.ToLower(view.Dirs[j].Name)
	})
	sort.Slice(view.Files, func(i, j int) bool {
		return strings.ToLower(view.Files[i].Name) < strings.ToLower(view.Files[j].Name)
	})
	return view, nil
}

// ParentPath returns the parent directory prefix of path, or "" at the root.
func ParentPath(path string) string {
	if path == "" || path == store.Delimiter {
		return ""
	}
	trimmed := strings.TrimSuffix(path, store.Delimiter)
	if i := strings.LastIndex(trimmed, store.Delimiter); i >= 0 {
		return trimmed[:i+1]
	}
	return ""
}

// Breadcrumbs splits path into navigable segments, each with its cumulative
// prefix.
func Breadcrumbs(path string) []Crumb {
	if path == "" {
		return nil
	}
	parts := strings.Split(strings.TrimSuffix(path, store.Delimiter), store.Delimiter)
	crumbs := make([]Crumb, 0, len(parts))
	current := ""
	for _, part := range parts {
		current += part + store.Delimiter
		crumbs = append(crumbs, Crumb{Name: part, Path: current})
	}
	return crumbs
}
