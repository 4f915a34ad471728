package generation

import (
	"context"
	"fmt"

	"prism/internal/config"
)

// NewClient constructs the provider named by the configuration.
func NewClient(ctx context.Context, cfg *config.Config) (LLMClient, error) {
	switch cfg.LLM.Provider {
	case "anthropic":
		return NewAnthropicClient(AnthropicConfig{
			APIKey:    cfg.LLM.APIKey,
			BaseURL:   cfg.LLM.BaseURL,
			Model:     cfg.LLM.Model,
			MaxTokens: cfg.LLM.MaxTokens,
			Timeout:   cfg.GetLLMTimeout(),
		}), nil
	case "gemini":
		return NewGeminiClient(ctx, GeminiConfig{
			APIKey:    cfg.LLM.APIKey,
			Model:     cfg.LLM.Model,
			MaxTokens: cfg.LLM.MaxTokens,
		})
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.LLM.Provider)
	}
}
