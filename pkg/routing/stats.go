package routing

import (
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/relay/pkg/providers"
)

// AtomicRoutingStats implements thread-safe routing statistics using atomic operations.
// All counters are updated atomically for lock-free performance.
type AtomicRoutingStats struct {
	// totalSelections is the number of Select calls
	totalSelections atomic.Int64

	// emptyDecisions is the number of Select calls with no eligible provider
	emptyDecisions atomic.Int64

	// preferredOverrides is the number of decisions reordered by a preference
	preferredOverrides atomic.Int64

	// strategyUseCount tracks how many times each strategy was used
	strategyUseCount sync.Map // map[string]*atomic.Int64

	// firstChoice tracks how often each provider headed a decision
	firstChoice sync.Map // map[string]*atomic.Int64

	// lastResetTime is when statistics were last reset
	lastResetTime time.Time

	// mu protects lastResetTime
	mu sync.RWMutex
}

// NewAtomicRoutingStats creates a new atomic routing statistics tracker.
func NewAtomicRoutingStats() *AtomicRoutingStats {
	return &AtomicRoutingStats{
		lastResetTime: time.Now(),
	}
}

// IncrementTotal increments the selection counter.
func (s *AtomicRoutingStats) IncrementTotal() {
	s.totalSelections.Add(1)
}

// IncrementEmpty increments the empty decision counter.
func (s *AtomicRoutingStats) IncrementEmpty() {
	s.emptyDecisions.Add(1)
}

// IncrementPreferred increments the preferred override counter.
func (s *AtomicRoutingStats) IncrementPreferred() {
	s.preferredOverrides.Add(1)
}

// IncrementStrategy increments the counter for a specific strategy.
func (s *AtomicRoutingStats) IncrementStrategy(strategyName string) {
	incrementNamed(&s.strategyUseCount, strategyName)
}

// IncrementFirstChoice increments the counter for the provider heading a decision.
func (s *AtomicRoutingStats) IncrementFirstChoice(providerID string) {
	incrementNamed(&s.firstChoice, providerID)
}

func incrementNamed(m *sync.Map, key string) {
	// Get or create counter for this key
	val, _ := m.LoadOrStore(key, &atomic.Int64{})
	val.(*atomic.Int64).Add(1)
}

func snapshotNamed(m *sync.Map) map[string]int64 {
	out := make(map[string]int64)
	m.Range(func(key, value interface{}) bool {
		out[key.(string)] = value.(*atomic.Int64).Load()
		return true
	})
	return out
}

// Snapshot returns a point-in-time snapshot of the statistics.
// The returned RoutingStats struct is safe to read without locks.
func (s *AtomicRoutingStats) Snapshot() *RoutingStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &RoutingStats{
		TotalSelections:    s.totalSelections.Load(),
		EmptyDecisions:     s.emptyDecisions.Load(),
		PreferredOverrides: s.preferredOverrides.Load(),
		StrategyUseCount:   snapshotNamed(&s.strategyUseCount),
		FirstChoice:        snapshotNamed(&s.firstChoice),
		LastResetTime:      s.lastResetTime,
	}
}

// Reset resets all statistics to zero.
func (s *AtomicRoutingStats) Reset() {
	s.totalSelections.Store(0)
	s.emptyDecisions.Store(0)
	s.preferredOverrides.Store(0)

	s.strategyUseCount.Range(func(key, value interface{}) bool {
		s.strategyUseCount.Delete(key)
		return true
	})
	s.firstChoice.Range(func(key, value interface{}) bool {
		s.firstChoice.Delete(key)
		return true
	})

	s.mu.Lock()
	s.lastResetTime = time.Now()
	s.mu.Unlock()
}

// numKinds bounds the per-kind error counters.
const numKinds = int(providers.KindCanceled) + 1

// ProviderStats is the health aggregate of one provider. Counters are
// atomic; the latency window and cost total sit behind a lock owned by
// this provider alone, so outcomes for different providers never contend.
type ProviderStats struct {
	requests  atomic.Int64
	successes atomic.Int64
	failures  atomic.Int64
	attempts  atomic.Int64
	errors    [numKinds]atomic.Int64

	mu        sync.Mutex
	window    []time.Duration
	next      int
	filled    int
	sum       time.Duration
	cost      float64
	lastError providers.ErrorKind
	lastSeen  time.Time
}

// NewProviderStats creates stats with a rolling latency window of size
// samples. Sizes below 1 are treated as 1.
func NewProviderStats(size int) *ProviderStats {
	if size < 1 {
		size = 1
	}
	return &ProviderStats{window: make([]time.Duration, size)}
}

// Observe folds one outcome into the aggregate. Only successful dispatches
// contribute latency samples.
func (s *ProviderStats) Observe(o Outcome) {
	s.requests.Add(1)
	if o.Attempts > 0 {
		s.attempts.Add(int64(o.Attempts))
	} else {
		s.attempts.Add(1)
	}
	if o.Kind == providers.KindCanceled {
		s.errors[o.Kind].Add(1)
		return
	}
	if o.Success {
		s.successes.Add(1)
	} else {
		s.failures.Add(1)
		if k := int(o.Kind); k > 0 && k < numKinds {
			s.errors[k].Add(1)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeen = time.Now()
	if !o.Success {
		s.lastError = o.Kind
		return
	}

	s.cost += o.Cost
	s.sum -= s.window[s.next]
	s.window[s.next] = o.Latency
	s.sum += o.Latency
	s.next = (s.next + 1) % len(s.window)
	if s.filled < len(s.window) {
		s.filled++
	}
}

// AverageLatency returns the mean of the latency window and whether any
// sample exists.
func (s *ProviderStats) AverageLatency() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.filled == 0 {
		return 0, false
	}
	return s.sum / time.Duration(s.filled), true
}

// ProviderStatsSnapshot is a point-in-time copy of ProviderStats.
type ProviderStatsSnapshot struct {
	Requests       int64            `json:"requests"`
	Successes      int64            `json:"successes"`
	Failures       int64            `json:"failures"`
	Attempts       int64            `json:"attempts"`
	ErrorsByKind   map[string]int64 `json:"errors_by_kind,omitempty"`
	AverageLatency string           `json:"average_latency,omitempty"`
	Samples        int              `json:"latency_samples"`
	TotalCost      float64          `json:"total_cost"`
	LastError      string           `json:"last_error,omitempty"`
	LastSeen       time.Time        `json:"last_seen,omitempty"`
}

// Snapshot returns a copy of the aggregate.
func (s *ProviderStats) Snapshot() ProviderStatsSnapshot {
	snap := ProviderStatsSnapshot{
		Requests:  s.requests.Load(),
		Successes: s.successes.Load(),
		Failures:  s.failures.Load(),
		Attempts:  s.attempts.Load(),
	}
	for k := 1; k < numKinds; k++ {
		if n := s.errors[k].Load(); n > 0 {
			if snap.ErrorsByKind == nil {
				snap.ErrorsByKind = make(map[string]int64)
			}
			snap.ErrorsByKind[providers.ErrorKind(k).String()] = n
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap.Samples = s.filled
	if s.filled > 0 {
		snap.AverageLatency = (s.sum / time.Duration(s.filled)).String()
	}
	snap.TotalCost = s.cost
	if s.lastError != providers.KindNone {
		snap.LastError = s.lastError.String()
	}
	snap.LastSeen = s.lastSeen
	return snap
}
