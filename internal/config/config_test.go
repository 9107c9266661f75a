package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadOrDefaultReturnsDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.WSPort != 4242 {
		t.Fatalf("expected default WS port 4242, got %d", cfg.Server.WSPort)
	}
}

func TestLoadParsesMillisDurationFromPlainInteger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"monitor":{"processVerifyIntervalMs":5000}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Monitor.ProcessVerifyInterval.Duration() != 5*time.Second {
		t.Fatalf("expected 5s, got %s", cfg.Monitor.ProcessVerifyInterval.Duration())
	}
}

func TestMaxContextTokensResolutionOrder(t *testing.T) {
	cfg := defaultConfig()
	cfg.Models = map[string]int{
		"claude-*": 100000,
		"default":  50000,
	}
	if got := cfg.MaxContextTokens("claude-opus-4-5"); got != 100000 {
		t.Fatalf("expected prefix match 100000, got %d", got)
	}
	if got := cfg.MaxContextTokens("gpt-5"); got != 50000 {
		t.Fatalf("expected default 50000, got %d", got)
	}
}

func TestTokenStrategyFallsBackToEstimate(t *testing.T) {
	cfg := &Config{TokenNorm: TokenNormConfig{Strategies: map[string]string{}}}
	if got := cfg.TokenStrategy("unknown"); got != "estimate" {
		t.Fatalf("expected estimate fallback, got %s", got)
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := defaultConfig()
	cfg.RootPath = "/srv/projects"
	cfg.Notifications.BugAlertThreshold = 7

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected temp file to be renamed away, stat err: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if reloaded.RootPath != "/srv/projects" {
		t.Fatalf("expected rootPath to round-trip, got %q", reloaded.RootPath)
	}
	if reloaded.Notifications.BugAlertThreshold != 7 {
		t.Fatalf("expected bugAlertThreshold to round-trip, got %d", reloaded.Notifications.BugAlertThreshold)
	}
}

func TestDiffReportsCategoryChanges(t *testing.T) {
	old := defaultConfig()
	next := defaultConfig()
	next.Notifications.Categories["plan"] = false

	changes := Diff(old, next)
	if len(changes) == 0 {
		t.Fatal("expected at least one change reported")
	}
}
