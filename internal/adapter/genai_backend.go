package adapter

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	m "synthtest.dev/pkg/synthtest/internal/model"
)

// GeminiBackend generates text through the Gemini API.
type GeminiBackend struct {
	client *genai.Client
	model  string
}

// NewGeminiBackend creates a Gemini backend. endpoint overrides the API base URL
// when set.
func NewGeminiBackend(ctx context.Context, endpoint, apiKey, model string) (*GeminiBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini backend requires an api_key")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	if endpoint != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimRight(endpoint, "/") + "/"}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiBackend{client: client, model: model}, nil
}

// Name implements Backend.
func (g *GeminiBackend) Name() string {
	return BackendGemini
}

// Generate builds the content request. The API call happens when the stream is ranged.
func (g *GeminiBackend) Generate(ctx context.Context, req m.GenerationRequest) (ChunkStream, error) {
	contents := genai.Text(req.Prompt)
	config := geminiConfig(req)

	if !req.Params.Stream {
		return func(yield func(string, error) bool) {
			resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
			if err != nil {
				yield("", fmt.Errorf("gemini: %w", err))
				return
			}

			if len(resp.Candidates) == 0 {
				yield("", fmt.Errorf("%w: no candidates in response", ErrMalformedResponse))
				return
			}

			yield(resp.Text(), nil)
		}, nil
	}

	return func(yield func(string, error) bool) {
		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, config) {
			if err != nil {
				yield("", fmt.Errorf("gemini: %w", err))
				return
			}

			if text := resp.Text(); text != "" && !yield(text, nil) {
				return
			}
		}
	}, nil
}

func geminiConfig(req m.GenerationRequest) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature:   genai.Ptr(float32(req.Params.Temperature)),
		TopP:          genai.Ptr(float32(req.Params.TopP)),
		StopSequences: req.Params.Stop,
	}

	if req.Params.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.Params.MaxTokens)
	}

	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	return config
}
