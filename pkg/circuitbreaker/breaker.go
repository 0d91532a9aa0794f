package circuitbreaker

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"
)

// State is the breaker state.
type State int

const (
	// StateClosed admits every request.
	StateClosed State = iota

	// StateOpen rejects every request until the open duration elapses.
	StateOpen

	// StateHalfOpen admits a single trial request.
	StateHalfOpen
)

// String returns the state name used in logs, metrics and health output.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

func fromGobreaker(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

var (
	// ErrOpen is returned by Allow while the breaker is open.
	ErrOpen = errors.New("circuit breaker is open")

	// ErrTrialInFlight is returned by Allow while the breaker is half-open
	// and its single trial request has already been admitted.
	ErrTrialInFlight = errors.New("circuit breaker trial already in flight")
)

// Config holds the breaker thresholds.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the breaker. Values below 1 are treated as 1.
	FailureThreshold int

	// OpenDuration is how long the breaker stays open before allowing a
	// trial request.
	OpenDuration time.Duration
}

// StateChangeFunc is notified after every transition. It runs while the
// breaker holds its internal lock and must not call back into the breaker.
type StateChangeFunc func(name string, from, to State)

// Option configures a Breaker.
type Option func(*Breaker)

// WithStateChange registers a transition listener.
func WithStateChange(fn StateChangeFunc) Option {
	return func(b *Breaker) {
		b.listeners = append(b.listeners, fn)
	}
}

// Breaker is a per-provider circuit breaker. It is safe for concurrent use.
type Breaker struct {
	name      string
	cfg       Config
	cb        *gobreaker.TwoStepCircuitBreaker
	listeners []StateChangeFunc

	// lastChange holds the UnixNano timestamp of the last transition.
	lastChange atomic.Int64
}

// New creates a closed breaker for the named provider.
func New(name string, cfg Config, opts ...Option) *Breaker {
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = 1
	}

	b := &Breaker{
		name: name,
		cfg:  cfg,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.lastChange.Store(time.Now().UnixNano())

	threshold := uint32(cfg.FailureThreshold) //nolint:gosec // bounded by config validation

	b.cb = gobreaker.NewTwoStepCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: b.onStateChange,
	})

	return b
}

func (b *Breaker) onStateChange(name string, from, to gobreaker.State) {
	b.lastChange.Store(time.Now().UnixNano())

	f, t := fromGobreaker(from), fromGobreaker(to)
	for _, fn := range b.listeners {
		fn(name, f, t)
	}
}

// Name returns the provider id the breaker guards.
func (b *Breaker) Name() string {
	return b.name
}

// Config returns the breaker thresholds.
func (b *Breaker) Config() Config {
	return b.cfg
}

// Admission is permission to send one request. It must be settled exactly
// once, by Done or Release; later calls are no-ops.
type Admission struct {
	done  func(success bool)
	trial bool
	once  sync.Once
}

// Done reports the request outcome. A false outcome counts as a
// consecutive failure.
func (a *Admission) Done(success bool) {
	a.once.Do(func() { a.done(success) })
}

// Release settles the admission without an outcome, for requests that
// ended before the provider could answer. The failure counter is left
// alone. A released half-open trial proved nothing, so the breaker
// reopens and waits for the next trial.
func (a *Admission) Release() {
	a.once.Do(func() {
		if a.trial {
			a.done(false)
		}
	})
}

// Allow asks for permission to send one request. The returned admission
// must be settled with Done or Release.
func (b *Breaker) Allow() (*Admission, error) {
	done, err := b.cb.Allow()
	switch {
	case errors.Is(err, gobreaker.ErrOpenState):
		return nil, ErrOpen
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, ErrTrialInFlight
	case err != nil:
		return nil, err
	}
	return &Admission{done: done, trial: b.cb.State() == gobreaker.StateHalfOpen}, nil
}

// State returns the current state. An open breaker whose open duration has
// elapsed reports HalfOpen.
func (b *Breaker) State() State {
	return fromGobreaker(b.cb.State())
}

// Eligible reports whether the breaker may be selected for routing, that is
// whether it is Closed or HalfOpen. A HalfOpen breaker is eligible even if
// its trial is taken; Allow settles the race.
func (b *Breaker) Eligible() bool {
	return b.State() != StateOpen
}

// ConsecutiveFailures returns the current consecutive failure count.
func (b *Breaker) ConsecutiveFailures() int {
	return int(b.cb.Counts().ConsecutiveFailures)
}

// LastStateChange returns when the breaker last changed state (or when it
// was created).
func (b *Breaker) LastStateChange() time.Time {
	return time.Unix(0, b.lastChange.Load())
}

// Snapshot is a point-in-time view of a breaker.
type Snapshot struct {
	State               State     `json:"-"`
	StateName           string    `json:"state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	FailureThreshold    int       `json:"failure_threshold"`
	OpenDuration        string    `json:"open_duration"`
	LastStateChange     time.Time `json:"last_state_change"`
}

// Snapshot returns the breaker's current state and counters.
func (b *Breaker) Snapshot() Snapshot {
	state := b.State()
	return Snapshot{
		State:               state,
		StateName:           state.String(),
		ConsecutiveFailures: b.ConsecutiveFailures(),
		FailureThreshold:    b.cfg.FailureThreshold,
		OpenDuration:        b.cfg.OpenDuration.String(),
		LastStateChange:     b.LastStateChange(),
	}
}
