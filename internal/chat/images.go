package chat

import (
	"sort"
	"sync"
	"time"
)

// ImageTracker remembers uploaded image references together with the
// time after which the underlying file may be deleted.
type ImageTracker struct {
	mu      sync.Mutex
	records map[string]time.Time
	now     func() time.Time
}

func NewImageTracker() *ImageTracker {
	return &ImageTracker{
		records: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Track inserts or overwrites the expiry for path.
func (t *ImageTracker) Track(path string, expiresAt time.Time) {
	if path == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[path] = expiresAt
}

// Untrack forgets the given paths without reporting them as expired.
func (t *ImageTracker) Untrack(paths ...string) {
	if len(paths) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range paths {
		delete(t.records, p)
	}
}

// SweepExpired removes and returns every path whose expiry is at or
// before now. A path is reported by at most one sweep.
func (t *ImageTracker) SweepExpired() []string {
	t.mu.Lock()
	now := t.now()
	var expired []string
	for p, exp := range t.records {
		if !exp.After(now) {
			expired = append(expired, p)
			delete(t.records, p)
		}
	}
	t.mu.Unlock()

	sort.Strings(expired)
	return expired
}

func (t *ImageTracker) ExpiresAt(path string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	exp, ok := t.records[path]
	return exp, ok
}

func (t *ImageTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}
