package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate clears every override variable and points the default config
// path at an empty temp dir.
func isolate(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ProviderOllama, cfg.LLM.Provider)
	assert.Equal(t, "llama3.1:8b", cfg.LLM.Model)
	assert.InDelta(t, 0.2, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, "http://localhost:11434", cfg.LLM.OllamaBaseURL)
	assert.Equal(t, ProviderLocal, cfg.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.Equal(t, "bolt://127.0.0.1:7687", cfg.Graph.URI())
	assert.Equal(t, VectorSQLite, cfg.Vector.Backend)
	assert.Equal(t, "notes", cfg.Vector.Collection)
	assert.Equal(t, 768, cfg.Vector.QdrantDim)
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1:4000", cfg.Server.Address())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NotEmpty(t, cfg.Storage.DataDir)
}

func TestLoad_YAMLOverlaysDefaults(t *testing.T) {
	isolate(t)
	t.Setenv("TEST_GRAPH_PASSWORD", "s3cret")

	path := writeTempConfig(t, `
llm:
  model: mistral
graph:
  host: memgraph.local
  password: ${TEST_GRAPH_PASSWORD}
vector:
  backend: qdrant
  qdrant_url: http://qdrant:6333
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mistral", cfg.LLM.Model)
	assert.Equal(t, ProviderOllama, cfg.LLM.Provider, "unset keys keep defaults")
	assert.Equal(t, "memgraph.local", cfg.Graph.Host)
	assert.Equal(t, 7687, cfg.Graph.Port)
	assert.Equal(t, "s3cret", cfg.Graph.Password)
	assert.Equal(t, VectorQdrant, cfg.Vector.Backend)
	assert.Equal(t, "http://qdrant:6333", cfg.Vector.QdrantURL)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	isolate(t)
	path := writeTempConfig(t, "llm:\n  model: from-file\n")
	t.Setenv("LLM_MODEL_NAME", "from-env")
	t.Setenv("LLM_MODEL_TEMPERATURE", "0.7")
	t.Setenv("MEMGRAPH_PORT", "7688")
	t.Setenv("ODIN_API_TOKEN", "tok")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.LLM.Model)
	assert.InDelta(t, 0.7, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 7688, cfg.Graph.Port)
	assert.Equal(t, "tok", cfg.Server.APIToken)
}

func TestLoad_InvalidEnvNumber(t *testing.T) {
	isolate(t)
	t.Setenv("MEMGRAPH_PORT", "not-a-port")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MEMGRAPH_PORT")
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	isolate(t)
	path := writeTempConfig(t, "llm: [unterminated\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.LLM.Provider = "bard" }},
		{"openai without key", func(c *Config) { c.LLM.Provider = ProviderOpenAI }},
		{"gemini without key", func(c *Config) { c.LLM.Provider = ProviderGemini }},
		{"empty model", func(c *Config) { c.LLM.Model = "" }},
		{"temperature too high", func(c *Config) { c.LLM.Temperature = 3 }},
		{"port out of range", func(c *Config) { c.Graph.Port = 70000 }},
		{"unknown vector backend", func(c *Config) { c.Vector.Backend = "faiss" }},
		{"qdrant without url", func(c *Config) { c.Vector.Backend = VectorQdrant; c.Vector.QdrantURL = "" }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaults()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := defaults()
	cfg.LLM.Provider = ProviderOpenAI
	cfg.LLM.OpenAIAPIKey = "sk-test"
	assert.NoError(t, cfg.Validate())
}

func TestShowAll_RedactsSecrets(t *testing.T) {
	cfg := defaults()
	cfg.LLM.OpenAIAPIKey = "sk-live"

	byKey := make(map[string]KeyInfo)
	for _, k := range ShowAll(cfg) {
		byKey[k.Key] = k
	}
	assert.Len(t, byKey, len(specs))
	assert.Equal(t, "(set)", byKey["llm.openai_api_key"].Value)
	assert.Equal(t, "(unset)", byKey["graph.password"].Value)
	assert.Equal(t, "llama3.1:8b", byKey["llm.model"].Value)
	assert.Equal(t, "MEMGRAPH_PORT", byKey["graph.port"].EnvVar)
}
