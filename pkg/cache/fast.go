package cache

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// ErrInvalidEntry is returned by FastTier.Set for entries that cannot be
// cached (no response, empty fingerprint or non-positive TTL).
var ErrInvalidEntry = errors.New("invalid cache entry")

// FastTier is the in-process cache tier. Entries are spread over LRU
// shards, each behind its own mutex, so lookups for different shards never
// contend. Capacity is enforced across the whole tier: a slot is reserved
// before every insert, and only a full tier makes room, by dropping expired
// entries or else the least recently used entry of any shard.
type FastTier struct {
	shards   []*shard
	capacity int
	now      func() time.Time

	// size counts stored entries plus reservations for inserts in flight.
	size atomic.Int64

	// clock stamps every insert and hit; the smallest stamp across shards
	// marks the tier-wide least recently used entry.
	clock atomic.Uint64

	// nextExpiry is the earliest expiry (UnixNano) that may still be
	// stored. Room is only made by purging once it has passed.
	nextExpiry atomic.Int64

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
	expired   atomic.Int64

	onEvict func(n int)
}

type shard struct {
	mu  sync.Mutex
	lru *simplelru.LRU[string, *slot]
}

type slot struct {
	entry *Entry
	stamp uint64
}

// NewFastTier creates a fast tier holding at most capacity entries spread
// over shards shards.
func NewFastTier(capacity, shards int) (*FastTier, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("fast tier capacity must be at least 1, got %d", capacity)
	}
	if shards < 1 || shards > capacity {
		return nil, fmt.Errorf("fast tier shards must be between 1 and %d, got %d", capacity, shards)
	}

	f := &FastTier{
		shards:   make([]*shard, shards),
		capacity: capacity,
		now:      time.Now,
	}
	f.nextExpiry.Store(math.MaxInt64)

	for i := range f.shards {
		// Any shard may hold the whole tier; the tier-wide count bounds it.
		lru, err := simplelru.NewLRU[string, *slot](capacity, nil)
		if err != nil {
			return nil, fmt.Errorf("create fast tier shard: %w", err)
		}
		f.shards[i] = &shard{lru: lru}
	}

	return f, nil
}

// SetEvictionHook registers fn to be called with the number of live
// entries evicted to make room. It must be called before the tier is used.
func (f *FastTier) SetEvictionHook(fn func(n int)) {
	f.onEvict = fn
}

func shardIndex(fingerprint string, n int) int {
	h := fnv.New32a()
	h.Write([]byte(fingerprint))
	return int(h.Sum32() % uint32(n)) //nolint:gosec // n is a positive shard count
}

func (f *FastTier) shardFor(fingerprint string) *shard {
	return f.shards[shardIndex(fingerprint, len(f.shards))]
}

// Get returns the live entry for fingerprint. An expired entry is removed
// and reported as a miss.
func (f *FastTier) Get(fingerprint string) (*Entry, bool) {
	s := f.shardFor(fingerprint)
	now := f.now()

	s.mu.Lock()
	sl, ok := s.lru.Get(fingerprint)
	if ok && sl.entry.Expired(now) {
		s.lru.Remove(fingerprint)
		f.size.Add(-1)
		f.expired.Add(1)
		ok = false
	} else if ok {
		sl.stamp = f.clock.Add(1)
	}
	s.mu.Unlock()

	if !ok {
		f.misses.Add(1)
		return nil, false
	}
	f.hits.Add(1)
	return sl.entry, true
}

// Set inserts or replaces the entry. When the tier is full, expired entries
// are purged first and the least recently used live entry is evicted only
// if that did not free a slot.
func (f *FastTier) Set(e *Entry) error {
	if e == nil || e.Response == nil || e.Fingerprint == "" || e.TTL <= 0 {
		return ErrInvalidEntry
	}
	f.put(e, false)
	return nil
}

// PutIfNewer inserts e unless the tier holds a live entry for the same
// fingerprint created after e. It reports whether e was stored. Promotion
// from the shared tier uses it so that a stale shared copy never replaces
// a fresh local store.
func (f *FastTier) PutIfNewer(e *Entry) bool {
	if e == nil || e.Response == nil || e.Fingerprint == "" || e.TTL <= 0 {
		return false
	}
	return f.put(e, true)
}

func (f *FastTier) put(e *Entry, onlyIfNewer bool) bool {
	s := f.shardFor(e.Fingerprint)
	now := f.now()

	if e.Expired(now) {
		return false
	}
	e = e.withTier(TierFast)

	if stored, done := f.replace(s, e, onlyIfNewer, now); done {
		return stored
	}
	s.mu.Unlock()

	f.reserve(now)

	stored, done := f.replace(s, e, onlyIfNewer, now)
	if done {
		// Another writer inserted the fingerprint meanwhile.
		f.size.Add(-1)
		return stored
	}
	s.lru.Add(e.Fingerprint, &slot{entry: e, stamp: f.clock.Add(1)})
	s.mu.Unlock()
	f.noteExpiry(e)
	return true
}

// replace overwrites an existing entry for e's fingerprint. done is false
// when there is none; the shard lock is then still held and the caller
// must release it.
func (f *FastTier) replace(s *shard, e *Entry, onlyIfNewer bool, now time.Time) (stored, done bool) {
	s.mu.Lock()
	cur, ok := s.lru.Peek(e.Fingerprint)
	if !ok {
		return false, false
	}
	defer s.mu.Unlock()

	if onlyIfNewer && !cur.entry.Expired(now) && cur.entry.CreatedAt.After(e.CreatedAt) {
		return false, true
	}
	cur.entry = e
	cur.stamp = f.clock.Add(1)
	s.lru.Get(e.Fingerprint)
	f.noteExpiry(e)
	return true, true
}

// reserve claims one slot, making room while the tier is full. The caller
// must not hold any shard lock.
func (f *FastTier) reserve(now time.Time) {
	for {
		n := f.size.Load()
		if n < int64(f.capacity) {
			if f.size.CompareAndSwap(n, n+1) {
				return
			}
			continue
		}
		if !f.makeRoom(now) {
			// Every slot is reserved by inserts still in flight.
			runtime.Gosched()
		}
	}
}

// makeRoom frees at least one slot if it can: expired entries go first,
// then the tier-wide least recently used entry.
func (f *FastTier) makeRoom(now time.Time) bool {
	if now.UnixNano() >= f.nextExpiry.Load() && f.PurgeExpired() > 0 {
		return true
	}
	return f.evictOldest()
}

func (f *FastTier) evictOldest() bool {
	var (
		victim *shard
		oldest uint64
	)
	for _, s := range f.shards {
		s.mu.Lock()
		if _, sl, ok := s.lru.GetOldest(); ok && (victim == nil || sl.stamp < oldest) {
			victim, oldest = s, sl.stamp
		}
		s.mu.Unlock()
	}
	if victim == nil {
		return false
	}

	victim.mu.Lock()
	_, _, ok := victim.lru.RemoveOldest()
	victim.mu.Unlock()
	if !ok {
		return false
	}

	f.size.Add(-1)
	f.evictions.Add(1)
	if f.onEvict != nil {
		f.onEvict(1)
	}
	return true
}

// noteExpiry lowers nextExpiry to e's expiry.
func (f *FastTier) noteExpiry(e *Entry) {
	at := e.ExpiresAt().UnixNano()
	for {
		cur := f.nextExpiry.Load()
		if at >= cur || f.nextExpiry.CompareAndSwap(cur, at) {
			return
		}
	}
}

// Delete removes fingerprint. It reports whether an entry was present.
func (f *FastTier) Delete(fingerprint string) bool {
	s := f.shardFor(fingerprint)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.lru.Remove(fingerprint) {
		return false
	}
	f.size.Add(-1)
	return true
}

// PurgeExpired removes expired entries from every shard, one shard lock at
// a time, and returns how many were removed.
func (f *FastTier) PurgeExpired() int {
	now := f.now()
	next := int64(math.MaxInt64)
	f.nextExpiry.Store(math.MaxInt64)

	total := 0
	for _, s := range f.shards {
		s.mu.Lock()
		for _, key := range s.lru.Keys() {
			sl, ok := s.lru.Peek(key)
			if !ok {
				continue
			}
			if sl.entry.Expired(now) {
				s.lru.Remove(key)
				total++
			} else if at := sl.entry.ExpiresAt().UnixNano(); at < next {
				next = at
			}
		}
		s.mu.Unlock()
	}

	f.size.Add(-int64(total))
	f.expired.Add(int64(total))
	for {
		cur := f.nextExpiry.Load()
		if next >= cur || f.nextExpiry.CompareAndSwap(cur, next) {
			break
		}
	}
	return total
}

// Len returns the number of entries held, including expired entries not yet
// purged.
func (f *FastTier) Len() int {
	n := 0
	for _, s := range f.shards {
		s.mu.Lock()
		n += s.lru.Len()
		s.mu.Unlock()
	}
	return n
}

// Capacity returns the maximum number of entries.
func (f *FastTier) Capacity() int {
	return f.capacity
}

// FastStats is a snapshot of fast tier counters.
type FastStats struct {
	Entries   int   `json:"entries"`
	Capacity  int   `json:"capacity"`
	Shards    int   `json:"shards"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Expired   int64 `json:"expired"`
}

// Stats returns a snapshot of the tier's counters.
func (f *FastTier) Stats() FastStats {
	return FastStats{
		Entries:   f.Len(),
		Capacity:  f.Capacity(),
		Shards:    len(f.shards),
		Hits:      f.hits.Load(),
		Misses:    f.misses.Load(),
		Evictions: f.evictions.Load(),
		Expired:   f.expired.Load(),
	}
}
