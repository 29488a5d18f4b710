package translator

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/odin/internal/engine"
	"github.com/kalambet/odin/internal/prompts"
)

type fakeChatter struct {
	resp  string
	err   error
	calls [][]engine.Message
	model string
}

func (f *fakeChatter) Chat(_ context.Context, model string, msgs []engine.Message, _ *engine.Schema) (string, error) {
	f.model = model
	f.calls = append(f.calls, msgs)
	return f.resp, f.err
}

func testSet(t *testing.T) *prompts.Set {
	t.Helper()
	set, err := prompts.Load(fstest.MapFS{
		"system_message_generate":          {Data: []byte("base sys")},
		"system_message_generate_improved": {Data: []byte("improved sys for {repo_path}")},
		"prompt_generate":                  {Data: []byte("{file_path}: {prompt}")},
		"system_message_update":            {Data: []byte("update sys")},
		"prompt_update":                    {Data: []byte("DATA={data} NOTE={prompt} AT={file_path}")},
		"system_message_explain":           {Data: []byte("explain sys")},
		"prompt_explain":                   {Data: []byte("explain {code}")},
		"system_message_question":          {Data: []byte("q sys")},
		"prompt_question":                  {Data: []byte("ask {prompt}")},
		"system_message_debug":             {Data: []byte("debug sys")},
		"prompt_debug":                     {Data: []byte("debug {code}")},
	})
	require.NoError(t, err)
	return set
}

func TestSynthesizeCreate_UsesImprovedPromptAndPostProcesses(t *testing.T) {
	chat := &fakeChatter{resp: "Here you go:\n```cypher\n// note\nCREATE (n:Note {title: \"X\", at: datetime(\"2024-01-01\")})\nMATCH (m) RETURN m\n```"}
	tr := New(testSet(t), chat, "llama3.1", nil)

	got, err := tr.SynthesizeCreate(context.Background(), "Ada wrote this.", "/vault", "notes/ada.md")
	require.NoError(t, err)
	assert.Equal(t, `CREATE (n:Note {title: "X", at: "2024-01-01"})`, got)

	require.Len(t, chat.calls, 1)
	assert.Equal(t, "llama3.1", chat.model)
	assert.Equal(t, []engine.Message{
		{Role: "system", Content: "improved sys for /vault"},
		{Role: "user", Content: "notes/ada.md: Ada wrote this."},
	}, chat.calls[0])
	assert.Equal(t, chat.calls[0], tr.LastExchange())
}

func TestSynthesizeUpdate_SendsSnapshot(t *testing.T) {
	chat := &fakeChatter{resp: "MERGE (t:Tag {name: \"go\"})"}
	tr := New(testSet(t), chat, "m", nil)

	got, err := tr.SynthesizeUpdate(context.Background(), "(:Note {title: \"A\"})", "note text", "/vault", "b.md")
	require.NoError(t, err)
	assert.Equal(t, `MERGE (t:Tag {name: "go"})`, got)
	assert.Equal(t, `DATA=(:Note {title: "A"}) NOTE=note text AT=b.md`, chat.calls[0][1].Content)
	assert.Equal(t, "update sys", chat.calls[0][0].Content)
}

func TestSynthesize_UnstructuredResponsePassesThrough(t *testing.T) {
	chat := &fakeChatter{resp: "I cannot help with that."}
	tr := New(testSet(t), chat, "m", nil)

	got, err := tr.SynthesizeCreate(context.Background(), "x", "/v", "a.md")
	require.NoError(t, err)
	assert.Equal(t, "I cannot help with that.", got)
}

func TestAuxiliaryOperations_ReturnRawText(t *testing.T) {
	raw := "```cypher\nCREATE (x)\n```\nexplanation"
	chat := &fakeChatter{resp: raw}
	tr := New(testSet(t), chat, "m", nil)
	ctx := context.Background()

	out, err := tr.ExplainCode(ctx, "x := 1")
	require.NoError(t, err)
	assert.Equal(t, raw, out)
	assert.Equal(t, "explain x := 1", tr.LastExchange()[1].Content)

	out, err = tr.GenerateQuestions(ctx, "passage")
	require.NoError(t, err)
	assert.Equal(t, raw, out)
	assert.Equal(t, "ask passage", tr.LastExchange()[1].Content)

	_, err = tr.DebugCode(ctx, "panic()")
	require.NoError(t, err)
	assert.Len(t, chat.calls, 3)
}

func TestMissingRole_IsConfigurationError(t *testing.T) {
	chat := &fakeChatter{resp: "unused"}
	tr := New(testSet(t), chat, "m", nil)

	_, err := tr.OptimizeCodeStyle(context.Background(), "code")
	require.Error(t, err)
	assert.True(t, errors.Is(err, prompts.ErrMissingRole))
	assert.Empty(t, chat.calls, "model must not be called without a prompt")

	assert.NoError(t, tr.Validate(prompts.RoleGenerate, prompts.RoleUpdate))
	assert.True(t, errors.Is(tr.Validate(prompts.RoleGenerate, prompts.RoleOptimize), prompts.ErrMissingRole))
}

func TestModelFailure_Propagates(t *testing.T) {
	boom := errors.New("connection refused")
	tr := New(testSet(t), &fakeChatter{err: boom}, "m", nil)

	_, err := tr.SynthesizeCreate(context.Background(), "x", "/v", "a.md")
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.False(t, errors.Is(err, prompts.ErrMissingRole))
}

func TestLastExchange_IsCopy(t *testing.T) {
	tr := New(testSet(t), &fakeChatter{resp: "ok"}, "m", nil)
	assert.Nil(t, tr.LastExchange())

	_, err := tr.GenerateQuestions(context.Background(), "p")
	require.NoError(t, err)
	ex := tr.LastExchange()
	ex[0].Content = "mutated"
	assert.Equal(t, "q sys", tr.LastExchange()[0].Content)
}
