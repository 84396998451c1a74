package adapter

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	m "synthtest.dev/pkg/synthtest/internal/model"
)

const defaultOllamaEndpoint = "http://localhost:11434"

// OllamaBackend talks to a local Ollama instance through /api/generate.
type OllamaBackend struct {
	endpoint string
	model    string
	client   *http.Client
}

// NewOllamaBackend creates a backend for the given endpoint and model. An empty
// endpoint uses http://localhost:11434; a zero timeout uses 5 minutes.
func NewOllamaBackend(endpoint, model string, timeout time.Duration) *OllamaBackend {
	if endpoint == "" {
		endpoint = defaultOllamaEndpoint
	}

	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	return &OllamaBackend{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		client:   &http.Client{Timeout: timeout},
	}
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

// Name implements Backend.
func (o *OllamaBackend) Name() string {
	return BackendOllama
}

// Generate prepares the request. The HTTP call happens when the stream is ranged.
func (o *OllamaBackend) Generate(ctx context.Context, req m.GenerationRequest) (ChunkStream, error) {
	body, err := json.Marshal(ollamaGenerateRequest{
		Model:   o.model,
		Prompt:  req.Prompt,
		System:  req.System,
		Stream:  req.Params.Stream,
		Options: ollamaOptions(req.Params),
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	return func(yield func(string, error) bool) {
		resp, err := o.post(ctx, body)
		if err != nil {
			yield("", err)
			return
		}

		defer func() {
			_ = resp.Body.Close()
		}()

		if !req.Params.Stream {
			text, err := decodeOllamaSingle(resp.Body)
			if err != nil {
				yield("", err)
				return
			}

			yield(text, nil)

			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			var chunk ollamaGenerateResponse
			if err := json.Unmarshal([]byte(line), &chunk); err != nil {
				yield("", fmt.Errorf("%w: %v", ErrMalformedResponse, err))
				return
			}

			if chunk.Error != "" {
				yield("", fmt.Errorf("ollama: %s", chunk.Error))
				return
			}

			if chunk.Response != "" && !yield(chunk.Response, nil) {
				return
			}

			if chunk.Done {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield("", fmt.Errorf("reading stream: %w", err))
			return
		}

		yield("", fmt.Errorf("%w: stream ended before done", ErrMalformedResponse))
	}, nil
}

func (o *OllamaBackend) post(ctx context.Context, body []byte) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("cannot reach Ollama at %s: %w", o.endpoint, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("model not found, run: ollama pull %s", o.model)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()

		return nil, fmt.Errorf("ollama returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	return resp, nil
}

func decodeOllamaSingle(r io.Reader) (string, error) {
	var result ollamaGenerateResponse
	if err := json.NewDecoder(io.LimitReader(r, 10<<20)).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if result.Error != "" {
		return "", fmt.Errorf("ollama: %s", result.Error)
	}

	return result.Response, nil
}

func ollamaOptions(p m.GenerationParams) map[string]any {
	opts := map[string]any{
		"temperature": p.Temperature,
		"top_p":       p.TopP,
	}

	if p.MaxTokens > 0 {
		opts["num_predict"] = p.MaxTokens
	}

	if len(p.Stop) > 0 {
		opts["stop"] = p.Stop
	}

	return opts
}
