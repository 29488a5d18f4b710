// Package translator turns note text into Cypher statements using a chat
// model and the role-based prompt templates.
package translator

import (
	"context"
	"fmt"
	"sync"

	"github.com/kalambet/odin/internal/cypher"
	"github.com/kalambet/odin/internal/engine"
	"github.com/kalambet/odin/internal/logger"
	"github.com/kalambet/odin/internal/prompts"
)

// Chatter is the part of engine.Engine the translator needs.
type Chatter interface {
	Chat(ctx context.Context, model string, messages []engine.Message, jsonSchema *engine.Schema) (string, error)
}

// Translator formats prompts, calls the model and post-processes the
// response. Calls are independent of each other; the last exchanged message
// pair is kept for introspection only.
type Translator struct {
	prompts *prompts.Set
	chat    Chatter
	model   string
	log     *logger.Logger

	mu   sync.Mutex
	last []engine.Message
}

// New creates a Translator. A nil logger discards output.
func New(set *prompts.Set, chat Chatter, model string, log *logger.Logger) *Translator {
	if log == nil {
		log = logger.Nop()
	}
	return &Translator{
		prompts: set,
		chat:    chat,
		model:   model,
		log:     log.With("component", "translator"),
	}
}

// Model returns the chat model name.
func (t *Translator) Model() string { return t.model }

// Validate reports the first role in roles that has no usable templates.
func (t *Translator) Validate(roles ...prompts.Role) error {
	for _, r := range roles {
		if _, err := t.prompts.Role(r); err != nil {
			return err
		}
	}
	return nil
}

// SynthesizeCreate builds Cypher for a note going into an empty graph.
func (t *Translator) SynthesizeCreate(ctx context.Context, text, rootPath, filePath string) (string, error) {
	resp, err := t.exchange(ctx, prompts.RoleGenerate, map[string]string{
		"prompt":    text,
		"repo_path": rootPath,
		"file_path": filePath,
	})
	if err != nil {
		return "", err
	}
	return t.statements(resp, filePath), nil
}

// SynthesizeUpdate builds Cypher that merges a note into the existing graph
// described by data.
func (t *Translator) SynthesizeUpdate(ctx context.Context, data, text, rootPath, filePath string) (string, error) {
	resp, err := t.exchange(ctx, prompts.RoleUpdate, map[string]string{
		"data":      data,
		"prompt":    text,
		"repo_path": rootPath,
		"file_path": filePath,
	})
	if err != nil {
		return "", err
	}
	return t.statements(resp, filePath), nil
}

// GenerateQuestions returns the model's questions about text.
func (t *Translator) GenerateQuestions(ctx context.Context, text string) (string, error) {
	return t.exchange(ctx, prompts.RoleQuestion, map[string]string{"prompt": text})
}

// OptimizeCodeStyle returns a restyled version of code.
func (t *Translator) OptimizeCodeStyle(ctx context.Context, code string) (string, error) {
	return t.exchange(ctx, prompts.RoleOptimize, map[string]string{"code": code})
}

// ExplainCode returns a prose explanation of code.
func (t *Translator) ExplainCode(ctx context.Context, code string) (string, error) {
	return t.exchange(ctx, prompts.RoleExplain, map[string]string{"code": code})
}

// DebugCode returns the model's diagnosis of code.
func (t *Translator) DebugCode(ctx context.Context, code string) (string, error) {
	return t.exchange(ctx, prompts.RoleDebug, map[string]string{"code": code})
}

// LastExchange returns a copy of the system and user messages of the most
// recent call, or nil before the first call.
func (t *Translator) LastExchange() []engine.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return nil
	}
	out := make([]engine.Message, len(t.last))
	copy(out, t.last)
	return out
}

func (t *Translator) exchange(ctx context.Context, role prompts.Role, vars map[string]string) (string, error) {
	pair, err := t.prompts.Role(role)
	if err != nil {
		return "", err
	}
	sys, err := pair.System.Format(vars)
	if err != nil {
		return "", fmt.Errorf("formatting %s: %w", pair.System.Name(), err)
	}
	usr, err := pair.User.Format(vars)
	if err != nil {
		return "", fmt.Errorf("formatting %s: %w", pair.User.Name(), err)
	}

	msgs := []engine.Message{
		{Role: engine.RoleSystem, Content: sys},
		{Role: engine.RoleUser, Content: usr},
	}
	t.mu.Lock()
	t.last = msgs
	t.mu.Unlock()

	resp, err := t.chat.Chat(ctx, t.model, msgs, nil)
	if err != nil {
		return "", fmt.Errorf("%s model call: %w", role, err)
	}
	return resp, nil
}

func (t *Translator) statements(resp, filePath string) string {
	extracted, rule := cypher.ExtractWithRule(resp)
	rep := cypher.RepairWithReport(extracted)
	if rule == "" {
		t.log.Debug("no cypher payload isolated, passing response through", "file", filePath)
	}
	if len(rep.Dropped) > 0 || len(rep.Rewritten) > 0 || len(rep.InlineNodes) > 0 {
		t.log.Debug("repaired statements",
			"file", filePath,
			"rule", rule,
			"dropped", rep.Dropped,
			"rewritten", rep.Rewritten,
			"inline_nodes", rep.InlineNodes,
		)
	}
	return rep.Text
}
