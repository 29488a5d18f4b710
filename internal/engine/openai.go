package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	openAITimeout        = 120 * time.Second
	maxRetries           = 3
	initialBackoff       = 500 * time.Millisecond
)

// OpenAIEngine talks to any server implementing the OpenAI chat completions
// and embeddings endpoints. HTTP 429 responses are retried with exponential
// backoff.
type OpenAIEngine struct {
	apiKey      string
	baseURL     string
	temperature *float64
	httpClient  *http.Client
	backoff     time.Duration
}

// NewOpenAIEngine creates an OpenAIEngine. An empty baseURL targets the
// public OpenAI API.
func NewOpenAIEngine(apiKey, baseURL string, temperature *float64) *OpenAIEngine {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAIEngine{
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		temperature: temperature,
		httpClient:  &http.Client{Timeout: openAITimeout},
		backoff:     initialBackoff,
	}
}

type openAIChatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    *float64        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type       string          `json:"type"`
	JSONSchema *jsonSchemaSpec `json:"json_schema,omitempty"`
}

type jsonSchemaSpec struct {
	Name   string  `json:"name"`
	Schema *Schema `json:"schema"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

func (e *OpenAIEngine) Chat(ctx context.Context, model string, messages []Message, jsonSchema *Schema) (string, error) {
	cr := openAIChatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: e.temperature,
	}
	if jsonSchema != nil {
		cr.ResponseFormat = &responseFormat{
			Type:       "json_schema",
			JSONSchema: &jsonSchemaSpec{Name: "response", Schema: jsonSchema},
		}
	}

	var out openAIChatResponse
	if err := e.post(ctx, "/chat/completions", cr, &out); err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("chat: response has no choices")
	}
	return out.Choices[0].Message.Content, nil
}

type openAIEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (e *OpenAIEngine) Embed(ctx context.Context, model string, text string) ([]float32, error) {
	var out openAIEmbedResponse
	if err := e.post(ctx, "/embeddings", openAIEmbedRequest{Model: model, Input: text}, &out); err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("embed: empty data array")
	}
	return out.Data[0].Embedding, nil
}

func (e *OpenAIEngine) IsRunning(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := e.ListModels(ctx)
	return err == nil
}

func (e *OpenAIEngine) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	e.setHeaders(req)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var list struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decoding models: %w", err)
	}
	names := make([]string, len(list.Data))
	for i, m := range list.Data {
		names[i] = m.ID
	}
	return names, nil
}

func (e *OpenAIEngine) HasModel(ctx context.Context, name string) bool {
	models, err := e.ListModels(ctx)
	if err != nil {
		return false
	}
	for _, m := range models {
		if m == name {
			return true
		}
	}
	return false
}

func (e *OpenAIEngine) PullModel(_ context.Context, name string, _ func(PullProgress)) error {
	return fmt.Errorf("pull %s: %w", name, ErrPullUnsupported)
}

func (e *OpenAIEngine) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	var lastErr error
	for attempt := range maxRetries {
		err := e.doPost(ctx, path, body, out)
		if err == nil {
			return nil
		}
		if !isRateLimit(err) {
			return err
		}

		lastErr = err
		if attempt < maxRetries-1 {
			wait := time.Duration(float64(e.backoff) * math.Pow(2, float64(attempt)))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return fmt.Errorf("rate limited after %d retries: %w", maxRetries, lastErr)
}

func (e *OpenAIEngine) doPost(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	e.setHeaders(req)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &rateLimitError{status: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (e *OpenAIEngine) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
}

// rateLimitError is returned on HTTP 429.
type rateLimitError struct {
	status int
}

func (e *rateLimitError) Error() string {
	return fmt.Sprintf("rate limited (HTTP %d)", e.status)
}

func isRateLimit(err error) bool {
	var rl *rateLimitError
	return errors.As(err, &rl)
}
