// Package llm wraps the external classification/recommendation collaborator
// behind a narrow request/response interface so the pipeline core can run
// and be tested without a live model.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"golang.org/x/time/rate"

	"github.com/supportloop/supportloop/internal/retry"
)

// Client is the collaborator contract: prompt in, free text out. All
// pipeline stages that consult the model depend only on this.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// GeminiConfig configures the Gemini-backed client.
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	// RequestsPerMinute caps outbound calls; zero disables limiting.
	RequestsPerMinute int
}

// GeminiClient implements Client on top of langchaingo's Google AI
// provider.
type GeminiClient struct {
	llm         llms.Model
	model       string
	temperature float64
	limiter     *rate.Limiter
}

// NewGemini initializes the underlying model. An empty API key is an error
// here; callers that want the degraded no-collaborator mode pass a nil
// Client to the dispatchers instead.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	opts := []googleai.Option{
		googleai.WithAPIKey(cfg.APIKey),
		googleai.WithDefaultModel(model),
		googleai.WithDefaultMaxTokens(maxTokens),
	}
	m, err := googleai.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gemini client: %w", err)
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), cfg.RequestsPerMinute)
	}

	return &GeminiClient{
		llm:         m,
		model:       model,
		temperature: cfg.Temperature,
		limiter:     limiter,
	}, nil
}

// Model returns the configured model name.
func (c *GeminiClient) Model() string {
	return c.model
}

// Complete sends a single prompt and returns the raw model output.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter wait: %w", err)
		}
	}
	response, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt,
		llms.WithTemperature(c.temperature))
	if err != nil {
		return "", fmt.Errorf("gemini call failed: %w", err)
	}
	return response, nil
}

// ResilientClient decorates a Client with a per-call timeout and
// exponential-backoff retries. A hung collaborator call must never stall
// the whole run.
type ResilientClient struct {
	inner       Client
	timeout     time.Duration
	retryConfig retry.Config
}

// NewResilient wraps a client. A zero timeout disables the per-call
// deadline.
func NewResilient(inner Client, timeout time.Duration, cfg retry.Config) *ResilientClient {
	return &ResilientClient{inner: inner, timeout: timeout, retryConfig: cfg}
}

// Complete runs the wrapped call with timeout and retries.
func (c *ResilientClient) Complete(ctx context.Context, prompt string) (string, error) {
	var response string

	result := retry.Do(ctx, c.retryConfig, func() error {
		callCtx := ctx
		if c.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}

		out, err := c.inner.Complete(callCtx, prompt)
		if err != nil {
			return err
		}
		response = out
		return nil
	})

	if !result.Success {
		log.Warn().Err(result.LastError).
			Int("attempts", result.Attempts).
			Dur("duration", result.TotalDuration).
			Msg("collaborator call failed after retries")
		return "", result.LastError
	}
	return response, nil
}
