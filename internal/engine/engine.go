// Package engine wraps the language model backends odin can talk to behind
// one capability interface. The backend is chosen once at startup by New.
package engine

import (
	"context"
	"errors"
)

// ErrPullUnsupported is returned by PullModel on hosted backends.
var ErrPullUnsupported = errors.New("model pull not supported by this provider")

// Chat roles understood by every backend.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Schema is a flat JSON object schema. Backends that support structured
// output constrain the reply to it; the others ignore it.
type Schema struct {
	Type       string                    `json:"type"`
	Properties map[string]SchemaProperty `json:"properties"`
	Required   []string                  `json:"required,omitempty"`
}

type SchemaProperty struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// PullProgress is one progress update of a model download. Total is zero
// for status-only updates.
type PullProgress struct {
	Status    string
	Total     int64
	Completed int64
}

// Engine is the set of model operations the translator, the embedder and
// startup checks need.
type Engine interface {
	// Chat returns the assistant reply to messages. A non-nil jsonSchema
	// requests structured output.
	Chat(ctx context.Context, model string, messages []Message, jsonSchema *Schema) (string, error)

	Embed(ctx context.Context, model string, text string) ([]float32, error)

	// IsRunning reports whether the backend answers at all.
	IsRunning(ctx context.Context) bool

	ListModels(ctx context.Context) ([]string, error)
	HasModel(ctx context.Context, name string) bool

	// PullModel downloads name. onProgress may be nil. Hosted backends
	// return ErrPullUnsupported.
	PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error
}
