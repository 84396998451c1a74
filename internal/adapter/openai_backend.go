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

const defaultOpenAIEndpoint = "https://api.openai.com/v1"

// OpenAIBackend talks to any OpenAI-compatible chat completions API.
type OpenAIBackend struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// NewOpenAIBackend creates a chat backend. An empty endpoint uses the public
// OpenAI API; a zero timeout uses 5 minutes.
func NewOpenAIBackend(endpoint, apiKey, model string, timeout time.Duration) *OpenAIBackend {
	if endpoint == "" {
		endpoint = defaultOpenAIEndpoint
	}

	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	return &OpenAIBackend{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: timeout},
	}
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	TopP        float64         `json:"top_p"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Stop        []string        `json:"stop,omitempty"`
	Stream      bool            `json:"stream"`
}

type openAIChoice struct {
	Message *openAIMessage `json:"message,omitempty"`
	Delta   *openAIMessage `json:"delta,omitempty"`
}

type openAIError struct {
	Message string `json:"message"`
}

type openAIResponse struct {
	Choices []openAIChoice `json:"choices"`
	Error   *openAIError   `json:"error,omitempty"`
}

// Name implements Backend.
func (o *OpenAIBackend) Name() string {
	return BackendOpenAI
}

// Generate prepares the chat request. The HTTP call happens when the stream is ranged.
func (o *OpenAIBackend) Generate(ctx context.Context, req m.GenerationRequest) (ChunkStream, error) {
	messages := []openAIMessage{{Role: "user", Content: req.Prompt}}
	if req.System != "" {
		messages = append([]openAIMessage{{Role: "system", Content: req.System}}, messages...)
	}

	body, err := json.Marshal(openAIRequest{
		Model:       o.model,
		Messages:    messages,
		Temperature: req.Params.Temperature,
		TopP:        req.Params.TopP,
		MaxTokens:   req.Params.MaxTokens,
		Stop:        req.Params.Stop,
		Stream:      req.Params.Stream,
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
			text, err := decodeOpenAISingle(resp.Body)
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
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}

			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "" {
				continue
			}

			if data == "[DONE]" {
				return
			}

			var chunk openAIResponse
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				yield("", fmt.Errorf("%w: %v", ErrMalformedResponse, err))
				return
			}

			if chunk.Error != nil {
				yield("", fmt.Errorf("API error: %s", chunk.Error.Message))
				return
			}

			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta == nil {
				continue
			}

			if delta := chunk.Choices[0].Delta.Content; delta != "" && !yield(delta, nil) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield("", fmt.Errorf("stream error: %w", err))
			return
		}

		yield("", fmt.Errorf("%w: stream ended before [DONE]", ErrMalformedResponse))
	}, nil
}

func (o *OpenAIBackend) post(ctx context.Context, body []byte) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()

		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	return resp, nil
}

func decodeOpenAISingle(r io.Reader) (string, error) {
	var result openAIResponse
	if err := json.NewDecoder(io.LimitReader(r, 10<<20)).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if result.Error != nil {
		return "", fmt.Errorf("API error: %s", result.Error.Message)
	}

	if len(result.Choices) == 0 || result.Choices[0].Message == nil {
		return "", fmt.Errorf("%w: no choices in response", ErrMalformedResponse)
	}

	return result.Choices[0].Message.Content, nil
}
