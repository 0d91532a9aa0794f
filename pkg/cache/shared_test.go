package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// memTier is an in-memory SharedTier with injectable failures and an
// optional gate that blocks writes until released.
type memTier struct {
	mu      sync.Mutex
	entries map[string]*Entry
	err     error
	gate    chan struct{}
	sets    int
	deletes int
	now     func() time.Time
}

func newMemTier() *memTier {
	return &memTier{entries: make(map[string]*Entry), now: time.Now}
}

func (m *memTier) Name() string { return "memory" }

func (m *memTier) Get(ctx context.Context, fp string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	e, ok := m.entries[fp]
	if !ok {
		return nil, ErrNotFound
	}
	return e.withTier(TierShared), nil
}

func (m *memTier) Set(ctx context.Context, e *Entry) error {
	if m.gate != nil {
		select {
		case <-m.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sets++
	m.entries[e.Fingerprint] = e
	return nil
}

func (m *memTier) Delete(ctx context.Context, fp string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.deletes++
	delete(m.entries, fp)
	return nil
}

func (m *memTier) Close() error { return nil }

func (m *memTier) put(e *Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.Fingerprint] = e
}

func (m *memTier) has(fp string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[fp]
	return ok
}

func (m *memTier) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

var errBoom = errors.New("boom")

// countingObserver records cache events.
type countingObserver struct {
	mu        sync.Mutex
	hits      map[string]int
	misses    int
	evictions int
	errors    map[string]int
	dropped   int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{hits: map[string]int{}, errors: map[string]int{}}
}

func (o *countingObserver) CacheHit(tier string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hits[tier]++
}

func (o *countingObserver) CacheMiss() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.misses++
}

func (o *countingObserver) CacheEviction(tier string, n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.evictions += n
}

func (o *countingObserver) CacheSharedError(op string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errors[op]++
}

func (o *countingObserver) CacheWriteDropped() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dropped++
}
