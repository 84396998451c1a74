package adapter

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"golang.org/x/time/rate"

	m "synthtest.dev/pkg/synthtest/internal/model"
)

// ChunkStream is a finite sequence of text chunks for one generation request.
// Ranging over it issues the request; breaking out of the range releases the
// underlying response.
type ChunkStream = iter.Seq2[string, error]

// Backend is the only crossing point to an external text-generation service.
type Backend interface {
	// Name identifies the backend in logs and reports.
	Name() string

	// Generate prepares a request and returns its chunk stream. Single-shot
	// backends yield exactly one chunk.
	Generate(ctx context.Context, req m.GenerationRequest) (ChunkStream, error)
}

// Supported backend kinds.
const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
	BackendGemini = "gemini"
)

// ErrMalformedResponse reports a response whose shape does not match the API contract.
var ErrMalformedResponse = errors.New("malformed backend response")

// BackendConfig selects and configures a backend.
type BackendConfig struct {
	Kind              string
	Model             string
	Endpoint          string
	APIKey            string
	Timeout           time.Duration
	RequestsPerMinute int
}

// NewBackend builds the backend named by cfg.Kind, wrapped in a rate limiter
// when RequestsPerMinute is positive.
func NewBackend(ctx context.Context, cfg BackendConfig) (Backend, error) {
	var (
		backend Backend
		err     error
	)

	switch cfg.Kind {
	case "", BackendOllama:
		backend = NewOllamaBackend(cfg.Endpoint, cfg.Model, cfg.Timeout)
	case BackendOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai backend requires an api_key")
		}

		backend = NewOpenAIBackend(cfg.Endpoint, cfg.APIKey, cfg.Model, cfg.Timeout)
	case BackendGemini:
		backend, err = NewGeminiBackend(ctx, cfg.Endpoint, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown backend kind %q", cfg.Kind)
	}

	if cfg.Model == "" {
		return nil, fmt.Errorf("%s backend requires a model", backend.Name())
	}

	if cfg.RequestsPerMinute > 0 {
		backend = NewRateLimitedBackend(backend, cfg.RequestsPerMinute)
	}

	return backend, nil
}

// RateLimitedBackend throttles requests to the wrapped backend.
type RateLimitedBackend struct {
	next    Backend
	limiter *rate.Limiter
}

// NewRateLimitedBackend allows at most perMinute requests per minute, with no burst.
func NewRateLimitedBackend(next Backend, perMinute int) *RateLimitedBackend {
	return &RateLimitedBackend{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

// Name implements Backend.
func (b *RateLimitedBackend) Name() string {
	return b.next.Name()
}

// Generate waits for a token before delegating.
func (b *RateLimitedBackend) Generate(ctx context.Context, req m.GenerationRequest) (ChunkStream, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	return b.next.Generate(ctx, req)
}
