// Package inflight deduplicates concurrent processing of the same file path.
package inflight

import (
	"sort"
	"sync"
)

// Tracker is a mutex-guarded set of paths with an upload attempt in progress.
// A path is a member between detection and completion of its attempt; duplicate
// creation events for a member path are ignored by the pipeline.
type Tracker struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{active: make(map[string]struct{})}
}

// TryAcquire atomically marks the path as in progress. It returns false when
// the path is already being processed.
func (t *Tracker) TryAcquire(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.active[path]; exists {
		return false
	}
	t.active[path] = struct{}{}
	return true
}

// Release removes the path unconditionally. Releasing an untracked path is a
// no-op.
func (t *Tracker) Release(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.active, path)
}

// Contains reports whether the path is currently being processed.
func (t *Tracker) Contains(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, exists := t.active[path]
	return exists
}

// Len returns the number of paths in progress.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}

// Active returns the tracked paths in sorted order.
func (t *Tracker) Active() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	paths := make([]string, 0, len(t.active))
	for path := range t.active {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
