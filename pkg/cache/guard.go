package cache

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync/atomic"
	"syscall"
	"time"
)

// errCoolingDown is returned internally while the shared tier is skipped.
var errCoolingDown = errors.New("shared cache tier cooling down")

// guard is the single seam between Manager and the shared tier. Every call
// is bounded by timeout, every error is logged and absorbed, and a
// connection-class failure makes the guard skip the tier until cooldown
// has elapsed.
type guard struct {
	tier     SharedTier
	timeout  time.Duration
	cooldown time.Duration
	observer Observer
	now      func() time.Time
	logger   *slog.Logger

	downUntil atomic.Int64
	failures  atomic.Int64
}

func newGuard(tier SharedTier, timeout, cooldown time.Duration, observer Observer) *guard {
	return &guard{
		tier:     tier,
		timeout:  timeout,
		cooldown: cooldown,
		observer: observer,
		now:      time.Now,
		logger:   slog.Default().With("component", "cache.shared", "backend", tier.Name()),
	}
}

// available reports whether the tier is outside its cooldown.
func (g *guard) available() bool {
	return g.now().UnixNano() >= g.downUntil.Load()
}

// do runs fn under the operation timeout unless the tier is cooling down.
func (g *guard) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if !g.available() {
		return errCoolingDown
	}
	return g.run(ctx, op, fn)
}

// run is do without the cooldown check.
func (g *guard) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	err := fn(ctx)
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}

	g.failures.Add(1)
	g.observer.CacheSharedError(op)

	if isConnectionError(err) {
		g.downUntil.Store(g.now().Add(g.cooldown).UnixNano())
		g.logger.Warn("shared cache tier unreachable, bypassing",
			"op", op,
			"cooldown", g.cooldown,
			"error", err,
		)
	} else {
		g.logger.Warn("shared cache tier operation failed",
			"op", op,
			"error", err,
		)
	}
	return err
}

// get returns the entry or false on miss, error or cooldown.
func (g *guard) get(ctx context.Context, fingerprint string) (*Entry, bool) {
	var e *Entry
	err := g.do(ctx, "get", func(ctx context.Context) error {
		var err error
		e, err = g.tier.Get(ctx, fingerprint)
		return err
	})
	if err != nil {
		return nil, false
	}
	return e, true
}

// set stores e, absorbing any failure.
func (g *guard) set(ctx context.Context, e *Entry) {
	_ = g.do(ctx, "set", func(ctx context.Context) error {
		return g.tier.Set(ctx, e)
	})
}

// del removes fingerprint, absorbing any failure.
func (g *guard) del(ctx context.Context, fingerprint string) {
	_ = g.do(ctx, "delete", func(ctx context.Context) error {
		return g.tier.Delete(ctx, fingerprint)
	})
}

// invalidate removes fingerprint and reports the failure, ignoring any
// cooldown. A missing key is not an error.
func (g *guard) invalidate(ctx context.Context, fingerprint string) error {
	err := g.run(ctx, "delete", func(ctx context.Context) error {
		return g.tier.Delete(ctx, fingerprint)
	})
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// isConnectionError reports whether err means the tier could not be reached
// in time, as opposed to a failed operation on a reachable tier.
func isConnectionError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, net.ErrClosed) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
