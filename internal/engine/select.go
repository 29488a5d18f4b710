package engine

import (
	"context"
	"fmt"

	"github.com/kalambet/odin/internal/ollama"
)

// Provider names accepted by New.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderGenAI  = "genai"
	// ProviderLocal is accepted for embeddings and resolves to Ollama.
	ProviderLocal = "local"
)

// Config selects and configures a backend.
type Config struct {
	Provider      string
	OllamaBaseURL string
	OpenAIBaseURL string
	OpenAIAPIKey  string
	GeminiAPIKey  string
	// Temperature is passed to chat requests when non-nil.
	Temperature *float64
}

// New returns the Engine for cfg.Provider.
func New(ctx context.Context, cfg Config) (Engine, error) {
	switch cfg.Provider {
	case ProviderOllama, ProviderLocal, "":
		var opts []ollama.Option
		if cfg.Temperature != nil {
			opts = append(opts, ollama.WithTemperature(*cfg.Temperature))
		}
		return NewOllamaEngine(cfg.OllamaBaseURL, opts...), nil
	case ProviderOpenAI:
		return NewOpenAIEngine(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.Temperature), nil
	case ProviderGenAI, "gemini":
		return NewGenAIEngine(ctx, cfg.GeminiAPIKey, cfg.Temperature)
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}

// Pullable reports whether EnsureReady can fetch missing models for provider.
func Pullable(provider string) bool {
	switch provider {
	case ProviderOllama, ProviderLocal, "":
		return true
	}
	return false
}
