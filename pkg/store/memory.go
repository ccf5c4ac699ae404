package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is a simple in-memory implementation suitable for development
// and unit tests. It is NOT durable and should not be used in production.
type MemoryStore struct {
	mu   sync.RWMutex
	objs map[string]memObject
}

type memObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objs: make(map[string]memObject)}
}

// Put inserts or overwrites an object. Test helper; not part of Store.
func (m *MemoryStore) Put(key string, data []byte, contentType string, modified time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objs[key] = memObject{data: data, contentType: contentType, modified: modified.UTC()}
}

// ListChildren returns immediate child prefixes and objects under prefix,
// sorted by key for stable output.
func (m *MemoryStore) ListChildren(ctx context.Context, prefix string) ([]string, []ObjectMeta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	prefixSet := make(map[string]struct{})
	var objects []ObjectMeta
	for key, o := range m.objs {
		if !strings.HasPrefix(key, prefix) || key == prefix {
			continue
		}
		rest := key[len(prefix):]
		if i := strings.Index(rest, Delimiter); i >= 0 {
			prefixSet[prefix+rest[:i+1]] = struct{}{}
			continue
		}
		objects = append(objects, ObjectMeta{Key: key, Size: int64(len(o.data)), LastModified: o.modified})
	}
	prefixes := make([]string, 0, len(prefixSet))
	for p := range prefixSet {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return prefixes, objects, nil
}

func (m *MemoryStore) ListRecursive(ctx context.Context, prefix string, fn func(ObjectMeta) error) error {
	m.mu.RLock()
	keys := make([]string, 0, len(m.objs))
	for key := range m.objs {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	metas := make([]ObjectMeta, 0, len(keys))
	for _, key := range keys {
		o := m.objs[key]
		metas = append(metas, ObjectMeta{Key: key, Size: int64(len(o.data)), LastModified: o.modified})
	}
	m.mu.RUnlock()

	for _, meta := range metas {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(meta); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) Probe(ctx context.Context, key string) (ObjectMeta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objs[key]
	if !ok {
		return ObjectMeta{}, ErrNotFound
	}
	return ObjectMeta{Key: key, Size: int64(len(o.data)), LastModified: o.modified, ContentType: o.contentType}, nil
}

func (m *MemoryStore) Get(ctx context.Context, key string) (io.ReadCloser, ObjectMeta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objs[key]
	if !ok {
		return nil, ObjectMeta{}, ErrNotFound
	}
	meta := ObjectMeta{Key: key, Size: int64(len(o.data)), LastModified: o.modified, ContentType: o.contentType}
	return io.NopCloser(bytes.NewReader(o.data)), meta, nil
}

func (m *MemoryStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.objs[key]; !ok {
		return "", ErrNotFound
	}
	return fmt.Sprintf("memory://%s?expires=%d", key, int64(ttl.Seconds())), nil
}
