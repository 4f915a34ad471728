package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	if cfg.Pipeline.MaxAuditRetries != 3 {
		t.Errorf("max_audit_retries = %d, want 3", cfg.Pipeline.MaxAuditRetries)
	}
	if cfg.Pipeline.MasteryGateThreshold != 3 {
		t.Errorf("mastery_gate_threshold = %d, want 3", cfg.Pipeline.MasteryGateThreshold)
	}
	if cfg.Readiness.MinValidatedPairs != 1000 {
		t.Errorf("min_validated_pairs = %d, want 1000", cfg.Readiness.MinValidatedPairs)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing config must not error, got %v", err)
	}
	if cfg.Name != "prism" {
		t.Errorf("name = %q", cfg.Name)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prism.yaml")

	cfg := DefaultConfig()
	cfg.LLM.Provider = "gemini"
	cfg.LLM.Model = "gemini-2.0-flash"
	cfg.Pipeline.RateQuota = 25
	cfg.Store.ItemsDir = "custom_items"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.LLM.Provider != "gemini" {
		t.Errorf("provider = %q", loaded.LLM.Provider)
	}
	if loaded.Pipeline.RateQuota != 25 {
		t.Errorf("rate_quota = %d", loaded.Pipeline.RateQuota)
	}
	if loaded.Store.ItemsDir != "custom_items" {
		t.Errorf("items_dir = %q", loaded.Store.ItemsDir)
	}
	// Untouched sections keep their defaults.
	if loaded.Pipeline.MaxAuditRetries != 3 {
		t.Errorf("max_audit_retries = %d", loaded.Pipeline.MaxAuditRetries)
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prism.yaml")
	partial := "pipeline:\n  rate_quota: 5\n"
	if err := os.WriteFile(path, []byte(partial), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pipeline.RateQuota != 5 {
		t.Errorf("rate_quota = %d, want override 5", cfg.Pipeline.RateQuota)
	}
	if cfg.Pipeline.RateWindow != "60s" {
		t.Errorf("rate_window = %q, want default", cfg.Pipeline.RateWindow)
	}
	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("provider = %q, want default", cfg.LLM.Provider)
	}
}

func TestEnvOverridesAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "from-env")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.APIKey != "from-env" {
		t.Errorf("api key = %q, want env override", cfg.LLM.APIKey)
	}
}

func TestEnvOverrideMatchesProvider(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "anthropic-key")
	t.Setenv("GEMINI_API_KEY", "gemini-key")

	dir := t.TempDir()
	path := filepath.Join(dir, "prism.yaml")
	if err := os.WriteFile(path, []byte("llm:\n  provider: gemini\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.APIKey != "gemini-key" {
		t.Errorf("api key = %q, want the gemini env key", cfg.LLM.APIKey)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.LLM.Provider = "openai" }},
		{"negative retries", func(c *Config) { c.Pipeline.MaxAuditRetries = -1 }},
		{"zero quota", func(c *Config) { c.Pipeline.RateQuota = 0 }},
		{"bad window", func(c *Config) { c.Pipeline.RateWindow = "sixty seconds" }},
		{"zero override window", func(c *Config) { c.Readiness.OverrideWindow = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("want validation error")
			}
		})
	}
}

func TestDurationGetters(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.GetLLMTimeout(); got != 120*time.Second {
		t.Errorf("llm timeout = %v", got)
	}
	if got := cfg.GetRateWindow(); got != 60*time.Second {
		t.Errorf("rate window = %v", got)
	}

	cfg.LLM.Timeout = "garbage"
	if got := cfg.GetLLMTimeout(); got != 120*time.Second {
		t.Errorf("bad timeout did not fall back: %v", got)
	}
}

func TestLogPaths(t *testing.T) {
	cfg := DefaultConfig()
	day := time.Date(2026, 8, 29, 23, 30, 0, 0, time.UTC)
	want := filepath.Join("logs", "conversion", "2026-08-29_run.jsonl")
	if got := cfg.RunLogPath(day); got != want {
		t.Errorf("run log path = %q, want %q", got, want)
	}
	if got := cfg.Bo2LogPath(); got != filepath.Join("logs", "bo2", "bo2_log.jsonl") {
		t.Errorf("bo2 log path = %q", got)
	}
	if got := cfg.DecisionLogPath(); got != filepath.Join("logs", "approvals", "decisions.jsonl") {
		t.Errorf("decision log path = %q", got)
	}
}
