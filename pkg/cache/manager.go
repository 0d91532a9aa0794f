package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/relay/pkg/providers"
)

// Options configures a Manager.
type Options struct {
	// DefaultTTL applies when Store is called with a non-positive TTL.
	DefaultTTL time.Duration

	// MaxTTL caps every stored TTL. Zero means no cap.
	MaxTTL time.Duration

	// OpTimeout bounds each shared tier operation.
	OpTimeout time.Duration

	// Cooldown is how long the shared tier is skipped after a connection failure.
	Cooldown time.Duration

	// WriteWorkers is the number of background shared tier writers.
	WriteWorkers int

	// WriteQueue is the queue length of each writer.
	WriteQueue int

	// Observer receives cache events. Nil disables them.
	Observer Observer
}

// ErrSharedUnavailable is returned by Invalidate when the entry was removed
// from the fast tier but the shared tier delete failed.
var ErrSharedUnavailable = errors.New("shared cache tier unavailable")

// writeOp is one queued shared tier mutation. A nil entry is a delete; an
// op with neither entry nor fingerprint is a barrier used by flush. An op
// with result set is an invalidation and reports its outcome there.
type writeOp struct {
	fingerprint string
	entry       *Entry
	done        chan struct{}
	result      chan error
}

// Manager is the tiered cache. It is safe for concurrent use.
type Manager struct {
	fast     *FastTier
	shared   *guard
	locks    *keyedMutex
	observer Observer
	opts     Options
	now      func() time.Time

	defaultTTL atomic.Int64

	sendMu  sync.RWMutex
	closed  bool
	writers []chan writeOp
	wg      sync.WaitGroup
}

// NewManager combines fast with an optional shared tier. A nil shared tier
// runs the fast tier alone.
func NewManager(fast *FastTier, shared SharedTier, opts Options) *Manager {
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.WriteWorkers < 1 {
		opts.WriteWorkers = 1
	}
	if opts.WriteQueue < 1 {
		opts.WriteQueue = 1
	}

	m := &Manager{
		fast:     fast,
		locks:    newKeyedMutex(),
		observer: opts.Observer,
		opts:     opts,
		now:      time.Now,
	}
	m.defaultTTL.Store(int64(opts.DefaultTTL))

	fast.SetEvictionHook(func(n int) {
		m.observer.CacheEviction(string(TierFast), n)
	})

	if shared != nil {
		m.shared = newGuard(shared, opts.OpTimeout, opts.Cooldown, opts.Observer)
		m.writers = make([]chan writeOp, opts.WriteWorkers)
		for i := range m.writers {
			ch := make(chan writeOp, opts.WriteQueue)
			m.writers[i] = ch
			m.wg.Add(1)
			go m.runWriter(ch)
		}
	}

	return m
}

// SharedBackend returns the shared tier's name, or "none".
func (m *Manager) SharedBackend() string {
	if m.shared == nil {
		return "none"
	}
	return m.shared.tier.Name()
}

// SharedAvailable reports whether the shared tier is configured and outside
// its connection cooldown.
func (m *Manager) SharedAvailable() bool {
	return m.shared != nil && m.shared.available()
}

// ClampTTL resolves a requested TTL: non-positive selects the default and
// anything above MaxTTL is capped.
func (m *Manager) ClampTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		ttl = time.Duration(m.defaultTTL.Load())
	}
	if m.opts.MaxTTL > 0 && ttl > m.opts.MaxTTL {
		ttl = m.opts.MaxTTL
	}
	return ttl
}

// SetDefaultTTL changes the default TTL for subsequent stores.
func (m *Manager) SetDefaultTTL(ttl time.Duration) {
	if ttl > 0 {
		m.defaultTTL.Store(int64(ttl))
	}
}

// Lookup returns the live entry for fingerprint. The fast tier is checked
// first; on a miss the shared tier is consulted and a hit there is promoted
// into the fast tier before returning. The returned entry's Tier says where
// it was found. Shared tier failures are reported as misses.
func (m *Manager) Lookup(ctx context.Context, fingerprint string) (*Entry, bool) {
	if e, ok := m.fast.Get(fingerprint); ok {
		m.observer.CacheHit(string(TierFast))
		return e, true
	}

	if m.shared == nil || !m.shared.available() {
		m.observer.CacheMiss()
		return nil, false
	}

	unlock := m.locks.Lock(fingerprint)
	defer unlock()

	// A concurrent lookup may have promoted it while we waited.
	if e, ok := m.fast.Get(fingerprint); ok {
		m.observer.CacheHit(string(TierFast))
		return e, true
	}

	e, ok := m.shared.get(ctx, fingerprint)
	if !ok {
		m.observer.CacheMiss()
		return nil, false
	}

	if e.Expired(m.now()) {
		m.enqueue(writeOp{fingerprint: fingerprint})
		m.observer.CacheMiss()
		return nil, false
	}

	if !m.fast.PutIfNewer(e) {
		slog.Debug("promotion skipped, fast tier holds a newer entry", "fingerprint", fingerprint)
	}

	m.observer.CacheHit(string(TierShared))
	return e.withTier(TierShared), true
}

// Store caches resp under fingerprint for ttl (clamped by ClampTTL). The
// fast tier write is synchronous and its failure is returned. The shared
// tier write is queued; it is dropped and logged when the queue is full.
func (m *Manager) Store(ctx context.Context, fingerprint string, resp *providers.CompletionResponse, ttl time.Duration) (*Entry, error) {
	ttl = m.ClampTTL(ttl)

	unlock := m.locks.Lock(fingerprint)
	defer unlock()

	e := &Entry{
		Fingerprint: fingerprint,
		Response:    resp,
		CreatedAt:   m.now(),
		TTL:         ttl,
		Tier:        TierFast,
	}
	if err := m.fast.Set(e); err != nil {
		return nil, err
	}

	if m.shared != nil {
		m.enqueue(writeOp{fingerprint: fingerprint, entry: e})
	}
	return e, nil
}

// Invalidate removes fingerprint from both tiers. It waits until the shared
// tier delete has been attempted, so a later Lookup cannot find the entry
// again. The delete is attempted even while the shared tier cools down; if
// it fails the error wraps ErrSharedUnavailable. Absent keys are not an
// error.
func (m *Manager) Invalidate(ctx context.Context, fingerprint string) error {
	unlock := m.locks.Lock(fingerprint)
	defer unlock()

	m.fast.Delete(fingerprint)

	if m.shared == nil {
		return nil
	}

	result := make(chan error, 1)
	if !m.enqueueWait(ctx, writeOp{fingerprint: fingerprint, result: result}) {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("%w: cache is closed", ErrSharedUnavailable)
	}

	select {
	case err := <-result:
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSharedUnavailable, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PurgeExpired removes expired entries from the fast tier and, when the
// shared backend needs it, from the shared tier.
func (m *Manager) PurgeExpired(ctx context.Context) (fast int, shared int64) {
	fast = m.fast.PurgeExpired()

	if m.shared == nil {
		return fast, 0
	}
	purger, ok := m.shared.tier.(ExpiredPurger)
	if !ok {
		return fast, 0
	}

	_ = m.shared.do(ctx, "purge", func(ctx context.Context) error {
		var err error
		shared, err = purger.PurgeExpired(ctx)
		return err
	})
	return fast, shared
}

// writerFor maps a fingerprint to a writer so that every mutation of one
// fingerprint is applied by the same goroutine, in issue order.
func (m *Manager) writerFor(fingerprint string) chan writeOp {
	return m.writers[shardIndex(fingerprint, len(m.writers))]
}

// enqueue queues op without blocking. It reports whether op was queued.
func (m *Manager) enqueue(op writeOp) bool {
	m.sendMu.RLock()
	defer m.sendMu.RUnlock()

	if m.closed {
		return false
	}

	select {
	case m.writerFor(op.fingerprint) <- op:
		return true
	default:
		m.observer.CacheWriteDropped()
		slog.Warn("shared cache write queue full, dropping write",
			"fingerprint", op.fingerprint,
			"delete", op.entry == nil,
		)
		return false
	}
}

// enqueueWait queues op, waiting for queue space until ctx is done.
func (m *Manager) enqueueWait(ctx context.Context, op writeOp) bool {
	m.sendMu.RLock()
	defer m.sendMu.RUnlock()

	if m.closed {
		return false
	}

	select {
	case m.writerFor(op.fingerprint) <- op:
		return true
	case <-ctx.Done():
		return false
	}
}

func (m *Manager) runWriter(ch chan writeOp) {
	defer m.wg.Done()

	for op := range ch {
		ctx := context.Background()
		switch {
		case op.entry != nil:
			m.shared.set(ctx, op.entry)
		case op.result != nil:
			op.result <- m.shared.invalidate(ctx, op.fingerprint)
		case op.fingerprint != "":
			m.shared.del(ctx, op.fingerprint)
		}
		if op.done != nil {
			close(op.done)
		}
	}
}

// flush blocks until every shared tier write queued before the call has
// been attempted, or ctx is done.
func (m *Manager) flush(ctx context.Context) error {
	if m.shared == nil {
		return nil
	}

	dones := make([]chan struct{}, 0, len(m.writers))
	m.sendMu.RLock()
	if !m.closed {
		for _, ch := range m.writers {
			done := make(chan struct{})
			select {
			case ch <- writeOp{done: done}:
				dones = append(dones, done)
			case <-ctx.Done():
				m.sendMu.RUnlock()
				return ctx.Err()
			}
		}
	}
	m.sendMu.RUnlock()

	for _, done := range dones {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Close drains queued shared writes and closes the shared tier.
func (m *Manager) Close() error {
	m.sendMu.Lock()
	if m.closed {
		m.sendMu.Unlock()
		return nil
	}
	m.closed = true
	for _, ch := range m.writers {
		close(ch)
	}
	m.sendMu.Unlock()

	m.wg.Wait()

	if m.shared != nil {
		return m.shared.tier.Close()
	}
	return nil
}
