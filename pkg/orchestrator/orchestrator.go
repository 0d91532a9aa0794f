package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"mercator-hq/relay/pkg/cache"
	"mercator-hq/relay/pkg/processing/costs"
	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/routing"
	"mercator-hq/relay/pkg/telemetry/logging"
)

// Router produces fallback chains and collects outcomes.
// *routing.Engine implements it.
type Router interface {
	Select(req routing.SelectRequest) *routing.Decision
	Acquire(id string) (*routing.Ticket, error)
	Record(t *routing.Ticket, o routing.Outcome)
	Descriptor(id string) (routing.Descriptor, bool)
}

// ResponseCache is the tiered response cache. *cache.Manager implements it.
type ResponseCache interface {
	Lookup(ctx context.Context, fingerprint string) (*cache.Entry, bool)
	Store(ctx context.Context, fingerprint string, resp *providers.CompletionResponse, ttl time.Duration) (*cache.Entry, error)
}

// ProviderRegistry resolves provider ids to adapters.
// *providerfactory.Manager implements it.
type ProviderRegistry interface {
	GetProvider(name string) (providers.Provider, error)
}

// Observer receives request and attempt events, typically for metrics.
type Observer interface {
	// AttemptCompleted is called after every dispatch attempt.
	AttemptCompleted(provider, model string, latency time.Duration, kind providers.ErrorKind)

	// RequestCompleted is called once per Handle with the final metadata
	// and the terminal error, if any.
	RequestCompleted(md *Metadata, err error)
}

type nopObserver struct{}

func (nopObserver) AttemptCompleted(string, string, time.Duration, providers.ErrorKind) {}

func (nopObserver) RequestCompleted(*Metadata, error) {}

// Config holds the request-level settings. It can be swapped at runtime
// with SetConfig.
type Config struct {
	// RequestDeadline bounds the whole request.
	RequestDeadline time.Duration

	// AttemptTimeout bounds a single dispatch attempt.
	AttemptTimeout time.Duration

	// Retry is the retry policy applied to every provider.
	Retry RetryPolicy

	// ProviderAttempts overrides Retry.MaxAttempts per provider id.
	ProviderAttempts map[string]int

	// CacheEnabled turns cache lookups and stores on.
	CacheEnabled bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCache sets the response cache.
func WithCache(c ResponseCache) Option {
	return func(o *Orchestrator) {
		o.cache = c
	}
}

// WithObserver sets the event observer.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithCostCalculator sets the calculator used to price upstream exchanges.
func WithCostCalculator(c *costs.Calculator) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.costs = c
		}
	}
}

// Orchestrator runs requests through cache, routing and dispatch. It is
// safe for concurrent use; it holds no per-request state.
type Orchestrator struct {
	router   Router
	registry ProviderRegistry
	cache    ResponseCache
	costs    *costs.Calculator
	observer Observer
	config   atomic.Pointer[Config]
	now      func() time.Time
}

// New creates an orchestrator.
func New(router Router, registry ProviderRegistry, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		router:   router,
		registry: registry,
		observer: nopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.costs == nil {
		o.costs = costs.NewCalculator(nil)
	}
	o.SetConfig(cfg)
	return o
}

// Config returns the current settings.
func (o *Orchestrator) Config() Config {
	return *o.config.Load()
}

// SetConfig replaces the settings. Requests already running keep the
// settings they started with.
func (o *Orchestrator) SetConfig(cfg Config) {
	o.config.Store(&cfg)
}

// Handle serves one request. On failure the returned Result still carries
// the metadata gathered so far, and the error is one of this package's
// typed errors.
func (o *Orchestrator) Handle(ctx context.Context, req *Request) (res *Result, err error) {
	start := o.now()
	cfg := o.config.Load()

	res = &Result{Metadata: Metadata{CacheStatus: CacheBypass}}
	md := &res.Metadata

	if req == nil || req.Completion == nil {
		return res, &InvalidRequestError{Message: "missing completion request"}
	}

	md.RequestID = req.ID
	if md.RequestID == "" {
		md.RequestID = uuid.NewString()
	}
	md.Model = req.Completion.Model

	ctx = logging.WithRequestID(ctx, md.RequestID)
	ctx = logging.WithModel(ctx, md.Model)

	defer func() {
		md.Latency = o.now().Sub(start)
		o.observer.RequestCompleted(md, err)
	}()

	if err := validate(req.Completion); err != nil {
		return res, err
	}

	if cfg.RequestDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RequestDeadline)
		defer cancel()
	}

	md.Fingerprint = cache.Fingerprint(req.Completion)
	useCache := o.cache != nil && cfg.CacheEnabled

	if useCache && !req.Options.Cache.NoCache {
		if entry, ok := o.cache.Lookup(ctx, md.Fingerprint); ok {
			md.CacheStatus = CacheHit
			md.CacheTier = entry.Tier
			res.Response = entry.Response
			slog.DebugContext(ctx, "served from cache", "tier", entry.Tier, "age", entry.Age(o.now()))
			return res, nil
		}
		md.CacheStatus = CacheMiss
	}

	decision := o.router.Select(routing.SelectRequest{
		RequestID: md.RequestID,
		Model:     md.Model,
		Strategy:  req.Options.Strategy,
		Preferred: req.Options.Provider,
	})
	md.Strategy = decision.Strategy
	if decision.Empty() {
		return res, &NoEligibleProviderError{Model: md.Model, Open: decision.Open}
	}
	md.Candidates = decision.Candidates

	for _, id := range decision.Candidates {
		if ctx.Err() != nil {
			return res, o.abort(ctx, cfg, start, md)
		}

		resp, fatal := o.dispatch(ctx, cfg, req, id, md)
		if errors.Is(fatal, errAborted) {
			return res, o.abort(ctx, cfg, start, md)
		}
		if fatal != nil {
			return res, fatal
		}
		if resp == nil {
			continue
		}

		res.Response = resp
		md.Provider = id

		if useCache && !req.Options.Cache.NoStore {
			if _, err := o.cache.Store(ctx, md.Fingerprint, resp, req.Options.Cache.TTL); err != nil {
				slog.WarnContext(ctx, "failed to cache response", "provider", id, "error", err)
			}
		}
		return res, nil
	}

	if md.Attempts == 0 {
		refused := make([]string, 0, len(md.Failures))
		for _, f := range md.Failures {
			refused = append(refused, f.Provider)
		}
		return res, &NoEligibleProviderError{Model: md.Model, Open: decision.Open, Refused: refused}
	}

	slog.WarnContext(ctx, "all providers failed", "candidates", len(decision.Candidates), "attempts", md.Attempts)
	return res, &AllProvidersFailedError{Model: md.Model, Failures: md.Failures}
}

// dispatch runs the attempt loop against one provider. It returns the
// response on success. A nil response with a nil error means the provider
// failed and the caller should move on; a non-nil error ends the request.
func (o *Orchestrator) dispatch(ctx context.Context, cfg *Config, req *Request, id string, md *Metadata) (*providers.CompletionResponse, error) {
	ctx = logging.WithProvider(ctx, id)

	provider, err := o.registry.GetProvider(id)
	if err != nil {
		slog.ErrorContext(ctx, "provider selected but not registered", "error", err)
		md.Failures = append(md.Failures, Failure{Provider: id, Kind: providers.KindPermanent, Err: err})
		return nil, nil
	}

	ticket, err := o.router.Acquire(id)
	if err != nil {
		slog.DebugContext(ctx, "breaker refused admission", "error", err)
		md.Failures = append(md.Failures, Failure{Provider: id, Kind: providers.KindNone, Err: err})
		return nil, nil
	}

	desc, _ := o.router.Descriptor(id)
	maxAttempts := cfg.Retry.attempts(cfg.ProviderAttempts[id])
	schedule := cfg.Retry.newBackOff()

	var (
		lastErr  error
		kind     providers.ErrorKind
		latency  time.Duration
		attempts int
	)

	for {
		if ctx.Err() != nil {
			kind := abortKind(ctx)
			o.router.Record(ticket, routing.Outcome{Provider: id, Kind: kind, Latency: latency, Attempts: attempts})
			md.Failures = append(md.Failures, Failure{Provider: id, Kind: kind, Attempts: attempts, Err: ctx.Err()})
			return nil, errAborted
		}

		attempts++
		md.Attempts++

		var resp *providers.CompletionResponse
		resp, latency, err = o.attempt(ctx, cfg, provider, req.Completion)
		kind = providers.Classify(err)
		if err != nil && ctx.Err() != nil {
			kind = abortKind(ctx)
		}
		o.observer.AttemptCompleted(id, md.Model, latency, kind)

		if err == nil {
			cost := o.costs.Calculate(desc.CostPerToken, req.Completion, resp)
			md.Cost = cost.Amount
			md.Tokens = cost.Tokens
			md.CostEstimated = cost.Estimated
			md.ProviderLatency = latency

			o.router.Record(ticket, routing.Outcome{
				Provider: id,
				Success:  true,
				Latency:  latency,
				Cost:     cost.Amount,
				Attempts: attempts,
			})
			slog.DebugContext(ctx, "provider answered", "attempts", attempts, "latency", latency, "cost", cost.Amount)
			return resp, nil
		}

		lastErr = err

		// The attempt was cut short by the request deadline, not by the
		// provider.
		if ctx.Err() != nil {
			continue
		}

		if kind == providers.KindInvalidModel {
			break
		}
		if !kind.Retryable() || attempts >= maxAttempts {
			break
		}

		wait := schedule.NextBackOff()
		if wait == backoff.Stop {
			break
		}
		if deadline, ok := ctx.Deadline(); ok && o.now().Add(wait).After(deadline) {
			slog.DebugContext(ctx, "backoff would pass the request deadline, moving on", "wait", wait)
			break
		}

		slog.DebugContext(ctx, "retrying provider",
			"attempt", attempts,
			"kind", kind.String(),
			"wait", wait,
			"error", err,
		)
		if err := sleep(ctx, wait); err != nil {
			continue
		}
	}

	o.router.Record(ticket, routing.Outcome{
		Provider:  id,
		Latency:   latency,
		Kind:      kind,
		Retryable: kind.Retryable(),
		Attempts:  attempts,
	})
	md.Failures = append(md.Failures, Failure{Provider: id, Kind: kind, Attempts: attempts, Err: lastErr})

	if kind == providers.KindInvalidModel && !desc.RewritesModel(md.Model) {
		slog.WarnContext(ctx, "model rejected by provider", "error", lastErr)
		return nil, &InvalidModelError{Model: md.Model, Provider: id, Cause: lastErr}
	}

	slog.InfoContext(ctx, "provider failed, trying next candidate",
		"kind", kind.String(),
		"attempts", attempts,
		"error", lastErr,
	)
	return nil, nil
}

// attempt performs one dispatch under the attempt timeout. An attempt that
// runs out of time is reported as a TimeoutError whatever the adapter
// returned.
func (o *Orchestrator) attempt(ctx context.Context, cfg *Config, provider providers.Provider, req *providers.CompletionRequest) (*providers.CompletionResponse, time.Duration, error) {
	attemptCtx := ctx
	if cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, cfg.AttemptTimeout)
		defer cancel()
	}

	start := o.now()
	resp, err := provider.Complete(attemptCtx, req)
	latency := o.now().Sub(start)

	if err == nil && resp == nil {
		err = &providers.ParseError{Provider: provider.GetName(), Cause: errors.New("empty response")}
	}
	if err != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		var timeoutErr *providers.TimeoutError
		if !errors.As(err, &timeoutErr) {
			err = &providers.TimeoutError{Provider: provider.GetName(), Timeout: cfg.AttemptTimeout, Cause: err}
		}
	}
	return resp, latency, err
}

// abortKind classifies an attempt cut short by the request context. The
// request deadline is a timeout; a caller that went away is not the
// provider's fault and must not reach its breaker as a failure.
func abortKind(ctx context.Context) providers.ErrorKind {
	if errors.Is(ctx.Err(), context.Canceled) {
		return providers.KindCanceled
	}
	return providers.KindTimeout
}

// errAborted signals from dispatch that the request context is done.
var errAborted = errors.New("request aborted")

// abort builds the terminal error for a request whose context is done. A
// caller that went away gets context.Canceled rather than a deadline error.
func (o *Orchestrator) abort(ctx context.Context, cfg *Config, start time.Time, md *Metadata) error {
	if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		slog.InfoContext(ctx, "request canceled by caller", "attempts", md.Attempts)
		return fmt.Errorf("request canceled after %d attempt(s): %w", md.Attempts, ctx.Err())
	}

	slog.WarnContext(ctx, "request deadline exceeded", "deadline", cfg.RequestDeadline, "attempts", md.Attempts)
	return &RequestDeadlineExceededError{
		Deadline: cfg.RequestDeadline,
		Elapsed:  o.now().Sub(start),
		Failures: md.Failures,
	}
}

func validate(req *providers.CompletionRequest) error {
	if req.Model == "" {
		return &InvalidRequestError{Message: "model is required"}
	}
	if len(req.Messages) == 0 {
		return &InvalidRequestError{Message: "at least one message is required"}
	}
	return nil
}
