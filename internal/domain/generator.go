package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"synthtest.dev/pkg/synthtest/internal/adapter"
	m "synthtest.dev/pkg/synthtest/internal/model"
)

// DefaultMaxAttempts bounds the generation attempts per source file.
const DefaultMaxAttempts = 3

// minNonBlankLines is the exclusive lower bound for a sufficient module.
const minNonBlankLines = 5

// FailureStub is returned when every attempt fails.
var FailureStub = strings.Join(Preamble, "\n") + "\n\n# Test generation failed after multiple attempts\n"

// GenerationClient turns a prompt into backend text.
type GenerationClient interface {
	Generate(ctx context.Context, prompt string) (m.GeneratedArtifact, error)
}

type generationClient struct {
	backend adapter.Backend
	system  string
	params  m.GenerationParams
}

// NewGenerationClient creates a client that sends every prompt with the given
// system instruction and sampling parameters.
func NewGenerationClient(backend adapter.Backend, system string, params m.GenerationParams) GenerationClient {
	return &generationClient{
		backend: backend,
		system:  system,
		params:  params,
	}
}

// Generate issues one request and concatenates its chunks in arrival order.
func (c *generationClient) Generate(ctx context.Context, prompt string) (m.GeneratedArtifact, error) {
	stream, err := c.backend.Generate(ctx, m.GenerationRequest{
		System: c.system,
		Prompt: prompt,
		Params: c.params,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrBackend, c.backend.Name(), err)
	}

	var b strings.Builder

	for chunk, err := range stream {
		if err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrBackend, c.backend.Name(), err)
		}

		b.WriteString(chunk)
	}

	return m.GeneratedArtifact(b.String()), nil
}

// Synthesizer produces a test module for one source unit.
type Synthesizer interface {
	Synthesize(ctx context.Context, unit m.SourceUnit) (m.SynthesisResult, error)
}

// SynthesizerOptions tunes the retry loop.
type SynthesizerOptions struct {
	MaxAttempts int
	RetryDelay  time.Duration
}

type synthesizer struct {
	GenerationClient
	adapter.TemplateSource
	*Normalizer
	opts SynthesizerOptions
}

// NewSynthesizer wires the generation client, template source and normalizer
// into a bounded retry loop.
func NewSynthesizer(client GenerationClient, templates adapter.TemplateSource, normalizer *Normalizer, opts SynthesizerOptions) Synthesizer {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}

	return &synthesizer{
		GenerationClient: client,
		TemplateSource:   templates,
		Normalizer:       normalizer,
		opts:             opts,
	}
}

// Synthesize retries generation until a sufficient module is produced. After
// the last failed attempt it returns FailureStub without an error. Context
// cancellation returns the stub together with the context error.
func (s *synthesizer) Synthesize(ctx context.Context, unit m.SourceUnit) (m.SynthesisResult, error) {
	template, err := s.Instructions(ctx)
	if err != nil {
		return m.SynthesisResult{}, fmt.Errorf("load instructions: %w", err)
	}

	prompt := BuildPrompt(template, unit.Functions, s.Scheme(), unit.Text)
	result := m.SynthesisResult{}

	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return degraded(result), err
		}

		result.Attempts = attempt

		normalized, err := s.attempt(ctx, prompt, unit.Functions)
		if err == nil {
			result.Text = normalized.Text
			result.Synthesized = normalized.Synthesized

			return result, nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return degraded(result), ctxErr
			}
		}

		slog.Warn("Generation attempt failed", "path", unit.Path, "attempt", attempt, "max_attempts", s.opts.MaxAttempts, "error", err)
		result.Failures = append(result.Failures, fmt.Sprintf("attempt %d: %v", attempt, err))

		if attempt < s.opts.MaxAttempts && s.opts.RetryDelay > 0 {
			select {
			case <-ctx.Done():
				return degraded(result), ctx.Err()
			case <-time.After(s.opts.RetryDelay):
			}
		}
	}

	slog.Error("Test generation failed after multiple attempts", "path", unit.Path, "attempts", result.Attempts)

	return degraded(result), nil
}

func (s *synthesizer) attempt(ctx context.Context, prompt string, functions []m.FunctionName) (Normalized, error) {
	raw, err := s.GenerationClient.Generate(ctx, prompt)
	if err != nil {
		return Normalized{}, err
	}

	if strings.TrimSpace(string(raw)) == "" {
		return Normalized{}, fmt.Errorf("%w: empty response", ErrInsufficientOutput)
	}

	normalized := s.Normalize(string(raw), functions)
	if lines := countNonBlank(normalized.Text); lines <= minNonBlankLines {
		return Normalized{}, fmt.Errorf("%w: %d non-blank lines", ErrInsufficientOutput, lines)
	}

	return normalized, nil
}

func degraded(result m.SynthesisResult) m.SynthesisResult {
	result.Text = FailureStub
	result.Degraded = true
	result.Synthesized = 0

	return result
}

func countNonBlank(text string) int {
	count := 0

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}

	return count
}
