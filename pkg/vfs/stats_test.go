package vfs

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"
)

func TestAggregateSubtree(t *testing.T) {
	m := seedStore()
	st, err := Aggregate(context.Background(), m, "ctd/")
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if st.Size != 5500 {
		t.Fatalf("size = %d, want 5500", st.Size)
	}
	if st.Count != 3 {
		t.Fatalf("count = %d, want 3", st.Count)
	}
	if !st.Modified.Equal(ts("2025-03-01T08:00:00Z")) {
		t.Fatalf("modified = %v, want newest object time", st.Modified)
	}
}

func TestAggregateWholeNamespace(t *testing.T) {
	m := seedStore()
	st, err := Aggregate(context.Background(), m, "")
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if st.Count != 6 {
		t.Fatalf("count = %d, want 6", st.Count)
	}
	if st.Size != 100+2000+3000+500+1234+10 {
		t.Fatalf("size = %d", st.Size)
	}
}

func TestAggregateEmptyPrefix(t *testing.T) {
	m := seedStore()
	st, err := Aggregate(context.Background(), m, "nonexistent/")
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if st.Size != 0 || st.Count != 0 {
		t.Fatalf("stats = %+v, want zero", st)
	}
	if !st.Modified.IsZero() {
		t.Fatalf("modified = %v, want zero time", st.Modified)
	}
}

func TestAggregateMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	m := seedEmpty()
	type obj struct {
		key  string
		size int64
		mod  time.Time
	}
	var objs []obj
	dirs := []string{"", "x/", "x/y/", "x/y/z/", "w/"}
	base := ts("2025-01-01T00:00:00Z")
	for i := 0; i < 200; i++ {
		o := obj{
			key:  dirs[rng.Intn(len(dirs))] + fmt.Sprintf("f%03d.dat", i),
			size: int64(rng.Intn(1 << 20)),
			mod:  base.Add(time.Duration(rng.Intn(100000)) * time.Second),
		}
		objs = append(objs, o)
		m.Put(o.key, make([]byte, int(o.size)), "", o.mod)
	}
	for _, prefix := range []string{"", "x/", "x/y/", "w/", "x/y/z/"} {
		var want DirStats
		for _, o := range objs {
			if !strings.HasPrefix(o.key, prefix) {
				continue
			}
			want.Size += o.size
			want.Count++
			if o.mod.After(want.Modified) {
				want.Modified = o.mod
			}
		}
		got, err := Aggregate(context.Background(), m, prefix)
		if err != nil {
			t.Fatalf("aggregate %q: %v", prefix, err)
		}
		if got != want {
			t.Fatalf("%q: got %+v, want %+v", prefix, got, want)
		}
	}
}

func TestAggregateListingError(t *testing.T) {
	f := &failingLister{MemoryStore: seedStore(), failPrefix: "ctd/"}
	if _, err := Aggregate(context.Background(), f, "ctd/"); err == nil {
		t.Fatalf("expected error from failing listing")
	}
}
