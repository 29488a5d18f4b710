package engine

import (
	"context"

	"github.com/kalambet/odin/internal/ollama"
)

// OllamaEngine adapts the internal/ollama.Client to the Engine interface.
type OllamaEngine struct {
	client *ollama.Client
}

// NewOllamaEngine creates an OllamaEngine backed by an Ollama server at baseURL.
func NewOllamaEngine(baseURL string, opts ...ollama.Option) *OllamaEngine {
	return &OllamaEngine{client: ollama.New(baseURL, opts...)}
}

func (e *OllamaEngine) Chat(ctx context.Context, model string, messages []Message, jsonSchema *Schema) (string, error) {
	msgs := make([]ollama.Message, len(messages))
	for i, m := range messages {
		msgs[i] = ollama.Message{Role: m.Role, Content: m.Content}
	}

	return e.client.Chat(ctx, model, msgs, toOllamaSchema(jsonSchema))
}

func toOllamaSchema(in *Schema) *ollama.Schema {
	if in == nil {
		return nil
	}
	out := &ollama.Schema{Type: in.Type, Required: in.Required}
	if in.Properties != nil {
		out.Properties = make(map[string]ollama.SchemaProperty, len(in.Properties))
		for k, v := range in.Properties {
			out.Properties[k] = ollama.SchemaProperty{Type: v.Type, Description: v.Description}
		}
	}
	return out
}

func (e *OllamaEngine) Embed(ctx context.Context, model string, text string) ([]float32, error) {
	return e.client.Embed(ctx, model, text)
}

func (e *OllamaEngine) IsRunning(ctx context.Context) bool {
	return e.client.IsRunning(ctx)
}

func (e *OllamaEngine) ListModels(ctx context.Context) ([]string, error) {
	return e.client.ListModels(ctx)
}

func (e *OllamaEngine) HasModel(ctx context.Context, name string) bool {
	return e.client.HasModel(ctx, name)
}

func (e *OllamaEngine) PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error {
	var cb func(ollama.PullProgress)
	if onProgress != nil {
		cb = func(p ollama.PullProgress) {
			onProgress(PullProgress{
				Status:    p.Status,
				Total:     p.Total,
				Completed: p.Completed,
			})
		}
	}
	return e.client.PullModel(ctx, name, cb)
}
