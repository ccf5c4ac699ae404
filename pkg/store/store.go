package store

import (
	"context"
	"errors"
	"io"
	"time"
)

// Delimiter imposes the virtual directory hierarchy on flat object keys.
// It is a listing convention, not a property of the store.
const Delimiter = "/"

// ErrNotFound is returned by Probe and Get when no object exists at the key.
// Callers must treat it as an expected outcome, distinct from store failures.
var ErrNotFound = errors.New("store: object not found")

// ObjectMeta describes one stored object as observed from the store.
type ObjectMeta struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string // populated by Probe/Get only; listings leave it empty
}

// Store is the full set of object-store primitives the browser depends on.
// Delimited and recursive listing are separate methods; interactive browsing
// must only ever use the delimited form.
type Store interface {
	// ListChildren performs a one-level listing of prefix using Delimiter,
	// exhausting pagination internally. It returns the immediate child
	// prefixes and the immediate child objects.
	ListChildren(ctx context.Context, prefix string) (childPrefixes []string, objects []ObjectMeta, err error)

	// ListRecursive streams every object under prefix, at any depth, calling
	// fn once per object. Listing stops on the first fn error or ctx
	// cancellation. The full object set is never held in memory.
	ListRecursive(ctx context.Context, prefix string, fn func(ObjectMeta) error) error

	// Probe checks whether an exact key exists and returns its metadata.
	// Returns ErrNotFound when the key is absent.
	Probe(ctx context.Context, key string) (ObjectMeta, error)

	// Get opens the object content at key. Returns ErrNotFound when absent.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectMeta, error)

	// PresignGet issues a temporary download URL for key, valid for ttl.
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}
