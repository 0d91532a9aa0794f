package config

import "testing"

func TestSetAndGetConfig(t *testing.T) {
	prev := GetConfig()
	defer SetConfig(prev)

	cfg := Default()
	SetConfig(cfg)
	if GetConfig() != cfg {
		t.Error("expected GetConfig to return the config passed to SetConfig")
	}

	SetConfig(nil)
	if GetConfig() != nil {
		t.Error("expected nil after SetConfig(nil)")
	}
}

func TestReloadConfig(t *testing.T) {
	prev := GetConfig()
	defer SetConfig(prev)

	good := Default()
	SetConfig(good)

	if _, err := ReloadConfig(writeConfig(t, "routing: {strategy: nope}")); err == nil {
		t.Fatal("expected reload error")
	}
	if GetConfig() != good {
		t.Error("expected previous config to remain after failed reload")
	}

	next, err := ReloadConfig(writeConfig(t, `
providers:
  local:
    type: generic
    base_url: http://localhost:11434/v1
    models:
      "*": ""
routing:
  strategy: failover
`))
	if err != nil {
		t.Fatalf("ReloadConfig() error = %v", err)
	}
	if GetConfig() != next {
		t.Error("expected reloaded config to be installed")
	}
	if next.Routing.Strategy != "failover" {
		t.Errorf("Strategy = %q, want failover", next.Routing.Strategy)
	}
}
