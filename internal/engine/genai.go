package engine

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GenAIEngine calls Google Gemini through the genai SDK.
type GenAIEngine struct {
	client      *genai.Client
	temperature *float64
}

// NewGenAIEngine creates a Gemini-backed engine. apiKey is required.
func NewGenAIEngine(ctx context.Context, apiKey string, temperature *float64) (*GenAIEngine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("genai: API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &GenAIEngine{client: client, temperature: temperature}, nil
}

func (e *GenAIEngine) Chat(ctx context.Context, model string, messages []Message, jsonSchema *Schema) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if e.temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*e.temperature))
	}
	if jsonSchema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = toGenAISchema(jsonSchema)
	}

	var (
		system   []string
		contents []*genai.Content
	)
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	result, err := e.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("genai generate: %w", err)
	}
	return result.Text(), nil
}

func toGenAISchema(in *Schema) *genai.Schema {
	out := &genai.Schema{
		Type:     genai.Type(strings.ToUpper(in.Type)),
		Required: in.Required,
	}
	if len(in.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(in.Properties))
		for k, v := range in.Properties {
			out.Properties[k] = &genai.Schema{
				Type:        genai.Type(strings.ToUpper(v.Type)),
				Description: v.Description,
			}
		}
	}
	return out
}

func (e *GenAIEngine) Embed(ctx context.Context, model string, text string) ([]float32, error) {
	result, err := e.client.Models.EmbedContent(ctx, model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("genai embed: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("genai embed: no embeddings returned")
	}
	return result.Embeddings[0].Values, nil
}

func (e *GenAIEngine) IsRunning(ctx context.Context) bool {
	_, err := e.ListModels(ctx)
	return err == nil
}

func (e *GenAIEngine) ListModels(ctx context.Context) ([]string, error) {
	page, err := e.client.Models.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("listing genai models: %w", err)
	}
	names := make([]string, 0, len(page.Items))
	for _, m := range page.Items {
		names = append(names, strings.TrimPrefix(m.Name, "models/"))
	}
	return names, nil
}

func (e *GenAIEngine) HasModel(ctx context.Context, name string) bool {
	models, err := e.ListModels(ctx)
	if err != nil {
		return false
	}
	name = strings.TrimPrefix(name, "models/")
	for _, m := range models {
		if m == name {
			return true
		}
	}
	return false
}

func (e *GenAIEngine) PullModel(_ context.Context, name string, _ func(PullProgress)) error {
	return fmt.Errorf("pull %s: %w", name, ErrPullUnsupported)
}
