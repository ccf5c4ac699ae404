// Package vfs derives a navigable virtual filesystem from flat,
// prefix-addressed object keys: directory views, recursive per-directory
// statistics, a periodically rebuilt metrics snapshot, and path resolution.
package vfs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DirStats is the recursive aggregate for all objects under one prefix.
// A zero Modified means no object has been observed ("none").
type DirStats struct {
	Size     int64     `json:"size"`
	Count    int64     `json:"fileCount"`
	Modified time.Time `json:"modified"`
}

// Snapshot is a point-in-time mapping of directory prefix to DirStats.
// It is immutable once built; the serving process replaces it wholesale,
// never mutating it in place.
type Snapshot struct {
	ComputedAt time.Time           `json:"computedAt"`
	Bucket     string              `json:"bucket"`
	Stats      map[string]DirStats `json:"metrics"`
}

// Lookup returns the cached stats for prefix, if present. Presence implies
// the prefix had at least one object at compute time; empty prefixes are
// never entered into a snapshot.
func (s *Snapshot) Lookup(prefix string) (DirStats, bool) {
	if s == nil {
		return DirStats{}, false
	}
	st, ok := s.Stats[prefix]
	return st, ok
}

// WriteFile persists the snapshot to path using a write-to-temporary then
// atomic-rename discipline, so a concurrent reader never observes a partially
// written file. Each writer gets its own temporary, so overlapping rebuilds
// cannot rename each other's half-written output; the last rename wins.
func (s *Snapshot) WriteFile(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("vfs: encode snapshot: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("vfs: write snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("vfs: write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("vfs: write snapshot: %w", err)
	}
	// CreateTemp is 0600; the snapshot is read by a separate serving process.
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("vfs: write snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("vfs: rename snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot loads a snapshot previously written by WriteFile. A missing or
// unreadable file is an error; callers treat it as cache-absent and continue
// with an empty cache.
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vfs: read snapshot: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("vfs: decode snapshot %q: %w", path, err)
	}
	if s.Stats == nil {
		s.Stats = make(map[string]DirStats)
	}
	return &s, nil
}
