package config

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

var providers = []any{ProviderOllama, ProviderOpenAI, ProviderGenAI, ProviderGemini, ProviderLocal}

// Validate validates the configuration.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LLM),
		validation.Field(&c.Embedding),
		validation.Field(&c.Graph),
		validation.Field(&c.Vector),
		validation.Field(&c.Storage),
		validation.Field(&c.Server),
		validation.Field(&c.Log),
	)
}

func (c LLMConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Provider, validation.Required, validation.In(providers...)),
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.Temperature, validation.Min(0.0), validation.Max(2.0)),
		validation.Field(&c.OllamaBaseURL, is.URL),
		validation.Field(&c.OpenAIBaseURL, is.URL),
		validation.Field(&c.OpenAIAPIKey, validation.When(c.Provider == ProviderOpenAI, validation.Required)),
		validation.Field(&c.GeminiAPIKey, validation.When(c.Provider == ProviderGenAI || c.Provider == ProviderGemini, validation.Required)),
	)
}

func (c EmbeddingConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Provider, validation.Required, validation.In(providers...)),
		validation.Field(&c.Model, validation.Required),
	)
}

func (c GraphConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Host, validation.Required),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

func (c VectorConfig) Validate() error {
	qdrant := c.Backend == VectorQdrant
	return validation.ValidateStruct(&c,
		validation.Field(&c.Backend, validation.Required, validation.In(VectorSQLite, VectorQdrant)),
		validation.Field(&c.Collection, validation.Required),
		validation.Field(&c.QdrantURL, validation.When(qdrant, validation.Required, is.URL)),
		validation.Field(&c.QdrantDim, validation.When(qdrant, validation.Required, validation.Min(1))),
	)
}

func (c StorageConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.DataDir, validation.Required),
	)
}

func (c ServerConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

func (c LogConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Level, validation.In("debug", "info", "warn", "warning", "error")),
	)
}
