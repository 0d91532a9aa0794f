package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Janitor purges expired cache entries on a cron schedule. Lookups already
// treat expired entries as misses; the janitor only reclaims their memory
// and, for backends that need it, their storage.
type Janitor struct {
	manager  *Manager
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool
}

// NewJanitor creates a janitor for manager. schedule accepts standard
// five-field cron expressions and descriptors such as "@every 1m".
func NewJanitor(manager *Manager, schedule string) *Janitor {
	return &Janitor{
		manager:  manager,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "cache.janitor"),
	}
}

// Start schedules purging. An empty schedule disables the janitor.
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.schedule == "" {
		j.logger.Info("janitor schedule not configured, skipping")
		return nil
	}
	if j.running {
		return nil
	}

	if _, err := cron.ParseStandard(j.schedule); err != nil {
		return fmt.Errorf("invalid janitor schedule %q: %w", j.schedule, err)
	}

	if _, err := j.cron.AddFunc(j.schedule, func() {
		j.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule janitor: %w", err)
	}

	j.cron.Start()
	j.running = true

	j.logger.Info("cache janitor started", "schedule", j.schedule)

	go func() {
		<-ctx.Done()
		j.Stop()
	}()

	return nil
}

// RunOnce performs one purge cycle.
func (j *Janitor) RunOnce(ctx context.Context) {
	start := time.Now()
	fast, shared := j.manager.PurgeExpired(ctx)

	if fast > 0 || shared > 0 {
		j.logger.Info("expired cache entries purged",
			"fast", fast,
			"shared", shared,
			"duration", time.Since(start),
		)
	} else {
		j.logger.Debug("cache purge completed, nothing expired")
	}
}

// Stop stops the schedule and waits for a running purge to finish.
func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		<-j.cron.Stop().Done()
		j.running = false
		j.logger.Info("cache janitor stopped")
	}
}

// IsRunning returns true if the janitor is scheduled.
func (j *Janitor) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

// NextRun returns the next scheduled purge, or nil when not running.
func (j *Janitor) NextRun() *time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()

	entries := j.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
