package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"
)

// =============================================================================
// GEMINI PROVIDER (Google GenAI SDK)
// =============================================================================

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
}

// GeminiClient implements LLMClient on top of the Google GenAI SDK.
type GeminiClient struct {
	client    *genai.Client
	model     string
	maxTokens int
	sleep     func(time.Duration)
}

// NewGeminiClient creates a Gemini client.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClient{
		client:    client,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		sleep:     time.Sleep,
	}, nil
}

// Model returns the configured model identifier.
func (c *GeminiClient) Model() string { return c.model }

// CompleteWithSystem sends one user message with a system instruction and
// returns the completion text, retrying transient errors with the same
// backoff schedule as the Anthropic client.
func (c *GeminiClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(userPrompt, genai.RoleUser),
	}

	temperature := float32(0.1)
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(c.maxTokens),
	}
	if systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	var lastErr error
	for attempt := 0; attempt <= transientRetries; attempt++ {
		if attempt > 0 {
			c.sleep(retryBaseDelay << uint(attempt-1))
		}

		result, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
		if err != nil {
			if !geminiTransient(err) {
				return "", fmt.Errorf("GenAI request failed: %w", err)
			}
			lastErr = fmt.Errorf("GenAI request failed: %w", err)
			continue
		}

		text := result.Text()
		if text == "" {
			return "", fmt.Errorf("no completion returned")
		}
		return text, nil
	}

	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

// geminiTransient reports whether a GenAI error is worth retrying. Rate
// limits and server-side failures are; auth and request errors surface
// immediately, matching the Anthropic client's treatment of 4xx responses.
func geminiTransient(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}
	// Non-API failures (network, timeouts) stay retryable.
	return true
}
