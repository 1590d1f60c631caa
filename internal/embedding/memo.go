package embedding

import (
	"context"
	"sync"

	"github.com/timmy/copyscale/internal/domain"
	"github.com/timmy/copyscale/internal/metrics"
)

// Memo caches extractions by locator for the lifetime of one operation.
// Build a fresh Memo per call; it is never shared across requests.
// Failures are cached too so a bad query is not retried per candidate.
type Memo struct {
	next Source

	mu      sync.Mutex
	entries map[string]*memoEntry
}

type memoEntry struct {
	once   sync.Once
	layers domain.Layers
	err    error
}

// NewMemo wraps next.
func NewMemo(next Source) *Memo {
	return &Memo{next: next, entries: make(map[string]*memoEntry)}
}

// Extract returns the cached layers for locator, extracting at most once.
func (m *Memo) Extract(ctx context.Context, locator string) (domain.Layers, error) {
	m.mu.Lock()
	e, ok := m.entries[locator]
	if !ok {
		e = &memoEntry{}
		m.entries[locator] = e
	}
	m.mu.Unlock()

	result := "hit"
	e.once.Do(func() {
		result = "miss"
		e.layers, e.err = m.next.Extract(ctx, locator)
	})
	metrics.EmbeddingCacheTotal.WithLabelValues(result).Inc()
	return e.layers, e.err
}

// Prime seeds the cache with layers already computed for locator.
func (m *Memo) Prime(locator string, layers domain.Layers) {
	e := &memoEntry{layers: layers}
	e.once.Do(func() {})
	m.mu.Lock()
	m.entries[locator] = e
	m.mu.Unlock()
}
