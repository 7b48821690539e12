// Package llm holds the contracts for the generative text and embedding capabilities
// and the provider implementations behind them.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sales-orchestrator/internal/common/config"
)

// ErrGenerationTimeout is returned when a call exceeds its bounded timeout.
var ErrGenerationTimeout = errors.New("generation timed out")

// ErrEmptyEmbedding is returned when the provider answers with no vector.
var ErrEmptyEmbedding = errors.New("embedding provider returned no values")

// GenerateOptions tunes a single generation call. A nil Temperature keeps the provider default.
type GenerateOptions struct {
	Temperature *float32
}

// WithTemperature returns options with the given sampling temperature.
func WithTemperature(t float32) GenerateOptions {
	return GenerateOptions{Temperature: &t}
}

// Generator is the prompt-in, text-out capability.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// Embedder is the text-in, vector-out capability. Indexing and querying must use the same embedder.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	return f(ctx, prompt, opts)
}

// EmbedderFunc adapts a function to the Embedder interface.
type EmbedderFunc func(ctx context.Context, text string) ([]float32, error)

func (f EmbedderFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

type timeoutGenerator struct {
	next    Generator
	timeout time.Duration
}

// WithTimeout bounds every call on g. A deadline hit is reported as ErrGenerationTimeout.
func WithTimeout(g Generator, timeout time.Duration) Generator {
	if timeout <= 0 {
		return g
	}
	return &timeoutGenerator{next: g, timeout: timeout}
}

func (t *timeoutGenerator) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	text, err := t.next.Generate(ctx, prompt, opts)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s: %v", ErrGenerationTimeout, t.timeout, err)
		}
		return "", err
	}
	return text, nil
}

// NewGenerator builds the generator selected by cfg.Provider, bounded by cfg.Timeout.
func NewGenerator(ctx context.Context, cfg config.GenAIConfig) (Generator, error) {
	var (
		g   Generator
		err error
	)

	switch cfg.Provider {
	case "gemini", "":
		g, err = NewGeminiGenerator(ctx, GeminiOptions{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
		})
	case "openai":
		g, err = NewOpenAIGenerator(ctx, OpenAIOptions{
			APIKey:    cfg.OpenAI.APIKey,
			BaseURL:   cfg.OpenAI.BaseURL,
			Model:     cfg.OpenAI.Model,
			MaxTokens: cfg.MaxTokens,
		})
	default:
		return nil, fmt.Errorf("unsupported generative provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return WithTimeout(g, config.GetDuration(cfg.Timeout)), nil
}

// NewEmbedder builds the embedding capability. Only Gemini embeddings are supported.
func NewEmbedder(ctx context.Context, cfg config.GenAIConfig) (Embedder, error) {
	return NewGeminiEmbedder(ctx, GeminiOptions{
		APIKey: cfg.APIKey,
		Model:  cfg.EmbeddingModel,
	})
}
