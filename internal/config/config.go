// Package config provides the unified prism configuration: LLM provider
// settings, pipeline policy constants, store paths, and readiness thresholds.
// Loaded from YAML with environment-variable overrides for API keys.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all prism configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	LLM       LLMConfig       `yaml:"llm"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Store     StoreConfig     `yaml:"store"`
	Readiness ReadinessConfig `yaml:"readiness"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LLMConfig configures the generation service client.
type LLMConfig struct {
	Provider  string `yaml:"provider"` // anthropic, gemini
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	Timeout   string `yaml:"timeout"`
	MaxTokens int    `yaml:"max_tokens"`
}

// PipelineConfig carries the pipeline policy constants. These are injected
// into the sequencer and rate governor rather than read as globals, so tests
// can run with alternate policies.
type PipelineConfig struct {
	// MaxAuditRetries bounds the feedback-conditioned regeneration loop.
	MaxAuditRetries int `yaml:"max_audit_retries"`

	// RateQuota is the number of call-units admitted per rolling window.
	RateQuota int `yaml:"rate_quota"`
	// RateWindow is the rolling window length.
	RateWindow string `yaml:"rate_window"`

	// MasteryGateThreshold is the locked joint-score gate for mastery.
	MasteryGateThreshold int `yaml:"mastery_gate_threshold"`
}

// StoreConfig configures the durable stores.
type StoreConfig struct {
	// ItemsDir holds raw source item JSON files.
	ItemsDir string `yaml:"items_dir"`
	// ConvertedDir holds converted item records.
	ConvertedDir string `yaml:"converted_dir"`
	// ReadyDir receives copies of human-approved items.
	ReadyDir string `yaml:"ready_dir"`
	// LogsDir holds the append-only NDJSON logs.
	LogsDir string `yaml:"logs_dir"`
}

// ReadinessConfig carries the automation-transition thresholds.
type ReadinessConfig struct {
	MinValidatedPairs int     `yaml:"min_validated_pairs"`
	MinAgreement      float64 `yaml:"min_agreement"`
	OverrideWindow    int     `yaml:"override_window"`
	MaxOverrideRate   float64 `yaml:"max_override_rate"`

	// AgreementMetricsPath points at the external agreement metrics file.
	// The criterion fails (not skips) when the file is absent.
	AgreementMetricsPath string `yaml:"agreement_metrics_path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "prism",
		Version: "1.0.0",

		LLM: LLMConfig{
			Provider:  "anthropic",
			Model:     "claude-sonnet-4-20250514",
			BaseURL:   "https://api.anthropic.com",
			Timeout:   "120s",
			MaxTokens: 4096,
		},

		Pipeline: PipelineConfig{
			MaxAuditRetries:      3,
			RateQuota:            10,
			RateWindow:           "60s",
			MasteryGateThreshold: 3,
		},

		Store: StoreConfig{
			ItemsDir:     "items",
			ConvertedDir: "converted",
			ReadyDir:     "ready",
			LogsDir:      "logs",
		},

		Readiness: ReadinessConfig{
			MinValidatedPairs:    1000,
			MinAgreement:         0.85,
			OverrideWindow:       100,
			MaxOverrideRate:      0.05,
			AgreementMetricsPath: filepath.Join("logs", "agreement_metrics.json"),
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file is not an error:
// defaults are returned so a fresh checkout works without any setup.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides lets environment variables override file settings.
// API keys in particular should come from the environment, not from a
// checked-in config file.
func (c *Config) applyEnvOverrides() {
	switch c.LLM.Provider {
	case "gemini":
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			c.LLM.APIKey = key
		}
	default:
		if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
			c.LLM.APIKey = key
		}
	}
}

// Validate checks the configuration for obvious misconfiguration.
func (c *Config) Validate() error {
	if c.LLM.Provider != "anthropic" && c.LLM.Provider != "gemini" {
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	if c.Pipeline.MaxAuditRetries < 0 {
		return fmt.Errorf("max_audit_retries must be >= 0, got %d", c.Pipeline.MaxAuditRetries)
	}
	if c.Pipeline.RateQuota <= 0 {
		return fmt.Errorf("rate_quota must be > 0, got %d", c.Pipeline.RateQuota)
	}
	if _, err := time.ParseDuration(c.Pipeline.RateWindow); err != nil {
		return fmt.Errorf("invalid rate_window: %w", err)
	}
	if c.Readiness.OverrideWindow <= 0 {
		return fmt.Errorf("override_window must be > 0, got %d", c.Readiness.OverrideWindow)
	}
	return nil
}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// GetRateWindow returns the rate governor window as a duration.
func (c *Config) GetRateWindow() time.Duration {
	d, err := time.ParseDuration(c.Pipeline.RateWindow)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// RunLogPath returns the dated generation run log path.
func (c *Config) RunLogPath(day time.Time) string {
	return filepath.Join(c.Store.LogsDir, "conversion",
		day.UTC().Format("2006-01-02")+"_run.jsonl")
}

// Bo2LogPath returns the best-of-two generation log path.
func (c *Config) Bo2LogPath() string {
	return filepath.Join(c.Store.LogsDir, "bo2", "bo2_log.jsonl")
}

// DecisionLogPath returns the approval decision log path.
func (c *Config) DecisionLogPath() string {
	return filepath.Join(c.Store.LogsDir, "approvals", "decisions.jsonl")
}
