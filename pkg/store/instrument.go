package store

import (
	"context"
	"errors"
	"io"
	"time"
)

// Observer receives one record per store call for instrumentation.
type Observer interface {
	Observe(op string, err error, dur time.Duration)
}

// Instrument wraps s so every call is reported to o. Returns s unchanged when
// o is nil.
func Instrument(s Store, o Observer) Store {
	if o == nil {
		return s
	}
	return &instrumented{next: s, obs: o}
}

type instrumented struct {
	next Store
	obs  Observer
}

func (i *instrumented) ListChildren(ctx context.Context, prefix string) ([]string, []ObjectMeta, error) {
	start := time.Now()
	prefixes, objects, err := i.next.ListChildren(ctx, prefix)
	i.obs.Observe("list_children", err, time.Since(start))
	return prefixes, objects, err
}

func (i *instrumented) ListRecursive(ctx context.Context, prefix string, fn func(ObjectMeta) error) error {
	start := time.Now()
	err := i.next.ListRecursive(ctx, prefix, fn)
	i.obs.Observe("list_recursive", err, time.Since(start))
	return err
}

func (i *instrumented) Probe(ctx context.Context, key string) (ObjectMeta, error) {
	start := time.Now()
	meta, err := i.next.Probe(ctx, key)
	// Absence is an expected outcome, not a store failure.
	oerr := err
	if errors.Is(oerr, ErrNotFound) {
		oerr = nil
	}
	i.obs.Observe("head", oerr, time.Since(start))
	return meta, err
}

func (i *instrumented) Get(ctx context.Context, key string) (io.ReadCloser, ObjectMeta, error) {
	start := time.Now()
	rc, meta, err := i.next.Get(ctx, key)
	oerr := err
	if errors.Is(oerr, ErrNotFound) {
		oerr = nil
	}
	i.obs.Observe("get", oerr, time.Since(start))
	return rc, meta, err
}

func (i *instrumented) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	start := time.Now()
	url, err := i.next.PresignGet(ctx, key, ttl)
	i.obs.Observe("presign", err, time.Since(start))
	return url, err
}
