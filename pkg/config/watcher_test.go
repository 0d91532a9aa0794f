package config

import (
	"context"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_CoalescesTriggers(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	for i := 0; i < 5; i++ {
		d.Trigger(func() { calls.Add(1) })
	}

	time.Sleep(100 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 call, got %d", got)
	}
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Stop()
	d.Trigger(func() { calls.Add(1) })

	time.Sleep(60 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("expected no calls after stop, got %d", got)
	}
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, validConfigYAML)

	w, err := NewWatcher(path, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}

	reloaded := make(chan *Config, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = w.Watch(ctx, func(cfg *Config) { reloaded <- cfg })
	}()

	// Give the watcher time to register the directory.
	time.Sleep(50 * time.Millisecond)

	updated := strings.Replace(validConfigYAML, "strategy: least-latency", "strategy: failover", 1)
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Routing.Strategy != "failover" {
			t.Errorf("expected reloaded strategy failover, got %q", cfg.Routing.Strategy)
		}
		if GetConfig() != cfg {
			t.Error("expected the singleton to hold the reloaded config")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	cancel()
	if err := w.Stop(); err != nil {
		t.Errorf("stop failed: %v", err)
	}
}
