// Package config loads odin's configuration. Values are layered: built-in
// defaults, then a YAML file, then environment variables (optionally loaded
// from a .env file). The result is validated before use.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Model providers.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderGenAI  = "genai"
	ProviderGemini = "gemini"
	ProviderLocal  = "local"
)

// Vector backends.
const (
	VectorSQLite = "sqlite"
	VectorQdrant = "qdrant"
)

type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Graph     GraphConfig     `yaml:"graph"`
	Vector    VectorConfig    `yaml:"vector"`
	Storage   StorageConfig   `yaml:"storage"`
	Prompts   PromptsConfig   `yaml:"prompts"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

type LLMConfig struct {
	Provider      string  `yaml:"provider"`
	Model         string  `yaml:"model"`
	Temperature   float64 `yaml:"temperature"`
	OllamaBaseURL string  `yaml:"ollama_base_url"`
	OpenAIBaseURL string  `yaml:"openai_base_url"`
	OpenAIAPIKey  string  `yaml:"openai_api_key"`
	GeminiAPIKey  string  `yaml:"gemini_api_key"`
}

// EmbeddingConfig selects the embedding provider. It shares connection
// settings and keys with LLMConfig.
type EmbeddingConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

type GraphConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// URI returns the Bolt URI of the graph store.
func (c GraphConfig) URI() string {
	return fmt.Sprintf("bolt://%s:%d", c.Host, c.Port)
}

type VectorConfig struct {
	Backend    string `yaml:"backend"`
	Collection string `yaml:"collection"`
	QdrantURL  string `yaml:"qdrant_url"`
	QdrantDim  int    `yaml:"qdrant_vector_dim"`
	Prefix     string `yaml:"qdrant_prefix"`
}

type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

type PromptsConfig struct {
	// Dir overrides the embedded templates file by file. Empty means
	// embedded templates only.
	Dir string `yaml:"dir"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	APIToken string `yaml:"api_token"`
}

// Address returns the HTTP listen address.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("127.0.0.1:%d", c.Port)
}

type LogConfig struct {
	Level string `yaml:"level"`
	Mode  string `yaml:"mode"`
}

func defaults() Config {
	return Config{
		LLM: LLMConfig{
			Provider:      ProviderOllama,
			Model:         "llama3.1:8b",
			Temperature:   0.2,
			OllamaBaseURL: "http://localhost:11434",
			OpenAIBaseURL: "https://api.openai.com/v1",
		},
		Embedding: EmbeddingConfig{
			Provider: ProviderLocal,
			Model:    "nomic-embed-text",
		},
		Graph: GraphConfig{
			Host: "127.0.0.1",
			Port: 7687,
		},
		Vector: VectorConfig{
			Backend:    VectorSQLite,
			Collection: "notes",
			QdrantURL:  "http://localhost:6333",
			QdrantDim:  768,
			Prefix:     "odin_",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Server: ServerConfig{
			Port: 4000,
		},
		Log: LogConfig{
			Level: "info",
			Mode:  "development",
		},
	}
}

// Load builds the configuration. path names a YAML file; when empty the
// default location is used if it exists. A .env file in the working
// directory (or template.env when .env is absent) is loaded into the
// environment first without overriding variables already set.
func Load(path string) (Config, error) {
	if err := loadDotenv(".env", "template.env"); err != nil {
		return Config{}, err
	}

	cfg := defaults()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if err := applyFile(&cfg, path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadDotenv(candidates ...string) error {
	for _, f := range candidates {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("loading %s: %w", f, err)
		}
		return nil
	}
	return nil
}

// applyFile overlays the YAML file at path onto cfg. ${VAR} references are
// expanded from the environment before parsing.
func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}
