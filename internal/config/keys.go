package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "llm.provider", typ: kString, env: "LLM_PROVIDER",
		apply:   func(cfg *Config, v any) { cfg.LLM.Provider = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.Provider },
	},
	{
		key: "llm.model", typ: kString, env: "LLM_MODEL_NAME",
		apply:   func(cfg *Config, v any) { cfg.LLM.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.Model },
	},
	{
		key: "llm.temperature", typ: kFloat, env: "LLM_MODEL_TEMPERATURE",
		apply:   func(cfg *Config, v any) { cfg.LLM.Temperature = v.(float64) },
		extract: func(cfg Config) any { return cfg.LLM.Temperature },
	},
	{
		key: "llm.ollama_base_url", typ: kString, env: "OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.LLM.OllamaBaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.OllamaBaseURL },
	},
	{
		key: "llm.openai_base_url", typ: kString, env: "OPENAI_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.LLM.OpenAIBaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.OpenAIBaseURL },
	},
	{
		key: "llm.openai_api_key", typ: kString, env: "OPENAI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.LLM.OpenAIAPIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.OpenAIAPIKey },
	},
	{
		key: "llm.gemini_api_key", typ: kString, env: "GEMINI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.LLM.GeminiAPIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.GeminiAPIKey },
	},
	{
		key: "embedding.provider", typ: kString, env: "EMBEDDING_PROVIDER",
		apply:   func(cfg *Config, v any) { cfg.Embedding.Provider = v.(string) },
		extract: func(cfg Config) any { return cfg.Embedding.Provider },
	},
	{
		key: "embedding.model", typ: kString, env: "EMBEDDING_MODEL_NAME",
		apply:   func(cfg *Config, v any) { cfg.Embedding.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Embedding.Model },
	},
	{
		key: "graph.host", typ: kString, env: "MEMGRAPH_HOST",
		apply:   func(cfg *Config, v any) { cfg.Graph.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Graph.Host },
	},
	{
		key: "graph.port", typ: kInt, env: "MEMGRAPH_PORT",
		apply:   func(cfg *Config, v any) { cfg.Graph.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Graph.Port },
	},
	{
		key: "graph.user", typ: kString, env: "MEMGRAPH_USER",
		apply:   func(cfg *Config, v any) { cfg.Graph.User = v.(string) },
		extract: func(cfg Config) any { return cfg.Graph.User },
	},
	{
		key: "graph.password", typ: kString, env: "MEMGRAPH_PASSWORD",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Graph.Password = v.(string) },
		extract: func(cfg Config) any { return cfg.Graph.Password },
	},
	{
		key: "vector.backend", typ: kString, env: "VECTOR_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Vector.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Vector.Backend },
	},
	{
		key: "vector.collection", typ: kString, env: "VECTOR_COLLECTION",
		apply:   func(cfg *Config, v any) { cfg.Vector.Collection = v.(string) },
		extract: func(cfg Config) any { return cfg.Vector.Collection },
	},
	{
		key: "vector.qdrant_url", typ: kString, env: "QDRANT_URL",
		apply:   func(cfg *Config, v any) { cfg.Vector.QdrantURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Vector.QdrantURL },
	},
	{
		key: "vector.qdrant_vector_dim", typ: kInt, env: "QDRANT_VECTOR_DIM",
		apply:   func(cfg *Config, v any) { cfg.Vector.QdrantDim = v.(int) },
		extract: func(cfg Config) any { return cfg.Vector.QdrantDim },
	},
	{
		key: "storage.data_dir", typ: kString, env: "ODIN_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "prompts.dir", typ: kString, env: "ODIN_PROMPTS_DIR",
		apply:   func(cfg *Config, v any) { cfg.Prompts.Dir = v.(string) },
		extract: func(cfg Config) any { return cfg.Prompts.Dir },
	},
	{
		key: "server.port", typ: kInt, env: "ODIN_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.api_token", typ: kString, env: "ODIN_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.APIToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.APIToken },
	},
	{
		key: "log.level", typ: kString, env: "ODIN_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyEnvOverrides(cfg *Config) error {
	for _, s := range specs {
		raw, ok := os.LookupEnv(s.env)
		if !ok || raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			i, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("invalid integer in %s=%q: %w", s.env, raw, err)
			}
			s.apply(cfg, i)
		case kFloat:
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return fmt.Errorf("invalid number in %s=%q: %w", s.env, raw, err)
			}
			s.apply(cfg, f)
		}
	}
	return nil
}

// KeyInfo describes a config key for display purposes.
type KeyInfo struct {
	Key    string
	EnvVar string
	Value  string
}

// ShowAll returns every config key with its current value. Secrets are
// shown only as set or unset.
func ShowAll(cfg Config) []KeyInfo {
	result := make([]KeyInfo, 0, len(specs))
	for _, s := range specs {
		v := fmt.Sprintf("%v", s.extract(cfg))
		if s.secret {
			if v == "" {
				v = "(unset)"
			} else {
				v = "(set)"
			}
		}
		result = append(result, KeyInfo{Key: s.key, EnvVar: s.env, Value: v})
	}
	return result
}
