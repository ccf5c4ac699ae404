package vfs

import (
	"context"
	"errors"
	"strings"

	"github.com/RTXteam/kgx-storage/pkg/store"
)

// State classifies what a request path denotes.
type State int

const (
	// StateNotFound means neither an object nor a non-empty prefix matches.
	StateNotFound State = iota
	// StateFile means the path is an exact object key.
	StateFile
	// StateDir means the path is a directory prefix; Resolution.View is set.
	StateDir
	// StateRedirect means the path is a directory addressed without its
	// trailing delimiter; Resolution.Redirect holds the canonical form.
	StateRedirect
)

// Prober is the store subset for exact-key existence checks.
type Prober interface {
	Probe(ctx context.Context, key string) (store.ObjectMeta, error)
}

// Resolution is the outcome of resolving one request path.
type Resolution struct {
	State    State
	Meta     store.ObjectMeta // set for StateFile
	View     *DirView         // set for StateDir
	Redirect string           // set for StateRedirect; canonical path, no query
}

// Resolver decides whether a request path is a file, a directory, or nothing,
// and what canonical form the client should be redirected to.
type Resolver struct {
	prober   Prober
	lister   ChildLister
	views    *ViewBuilder
	reserved map[string]struct{}
}

// NewResolver builds a resolver. reserved names top-level path segments that
// collide with non-browsing routes; paths under them resolve to not-found
// before any store probe.
func NewResolver(p Prober, l ChildLister, v *ViewBuilder, reserved []string) *Resolver {
	rs := make(map[string]struct{}, len(reserved))
	for _, name := range reserved {
		rs[name] = struct{}{}
	}
	return &Resolver{prober: p, lister: l, views: v, reserved: rs}
}

// Resolve runs the path state machine. path carries no leading delimiter;
// a trailing delimiter (or the empty root path) signals a directory. When the
// path lacks the delimiter, an exact-key probe wins over prefix existence, so
// an object named like a directory always resolves as a file.
func (r *Resolver) Resolve(ctx context.Context, path string) (Resolution, error) {
	if seg, _, _ := strings.Cut(path, store.Delimiter); seg != "" {
		if _, ok := r.reserved[seg]; ok {
			return Resolution{State: StateNotFound}, nil
		}
	}

	if path == "" || strings.HasSuffix(path, store.Delimiter) {
		// An empty directory is still a directory; the view just has no
		// entries.
		view, err := r.views.Build(ctx, path)
		if err != nil {
			return Resolution{}, err
		}
		return Resolution{State: StateDir, View: view}, nil
	}

	meta, err := r.prober.Probe(ctx, path)
	switch {
	case err == nil:
		return Resolution{State: StateFile, Meta: meta}, nil
	case !errors.Is(err, store.ErrNotFound):
		return Resolution{}, err
	}

	// No exact key; probe whether path + delimiter is a non-empty prefix.
	childPrefixes, objects, err := r.lister.ListChildren(ctx, path+store.Delimiter)
	if err != nil {
		return Resolution{}, err
	}
	if len(childPrefixes) > 0 || len(objects) > 0 {
		return Resolution{State: StateRedirect, Redirect: path + store.Delimiter}, nil
	}
	return Resolution{State: StateNotFound}, nil
}
