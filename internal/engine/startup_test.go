package engine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockEngine struct {
	isRunning bool
	models    map[string]bool
	pulled    []string
	pullErr   error
}

func (m *mockEngine) Chat(_ context.Context, _ string, _ []Message, _ *Schema) (string, error) {
	return "", nil
}
func (m *mockEngine) Embed(_ context.Context, _ string, _ string) ([]float32, error) {
	return nil, nil
}
func (m *mockEngine) IsRunning(_ context.Context) bool { return m.isRunning }
func (m *mockEngine) ListModels(_ context.Context) ([]string, error) {
	var names []string
	for n := range m.models {
		names = append(names, n)
	}
	return names, nil
}
func (m *mockEngine) HasModel(_ context.Context, name string) bool { return m.models[name] }
func (m *mockEngine) PullModel(_ context.Context, name string, cb func(PullProgress)) error {
	if m.pullErr != nil {
		return m.pullErr
	}
	m.pulled = append(m.pulled, name)
	if cb != nil {
		cb(PullProgress{Status: "pulling manifest"})
		cb(PullProgress{Status: "pulling manifest"})
		cb(PullProgress{Status: "downloading", Total: 4, Completed: 2})
		cb(PullProgress{Status: "success"})
	}
	return nil
}

func TestEnsureReady_AllModelsPresent(t *testing.T) {
	m := &mockEngine{
		isRunning: true,
		models:    map[string]bool{"llama3.1": true, "nomic-embed-text": true},
	}
	require.NoError(t, EnsureReady(context.Background(), m, "llama3.1", "nomic-embed-text", io.Discard))
	assert.Empty(t, m.pulled)
}

func TestEnsureReady_PullsMissingOnce(t *testing.T) {
	m := &mockEngine{isRunning: true, models: map[string]bool{"llama3.1": true}}
	var out bytes.Buffer
	require.NoError(t, EnsureReady(context.Background(), m, "llama3.1", "nomic-embed-text", &out))

	assert.Equal(t, []string{"nomic-embed-text"}, m.pulled)
	assert.Equal(t, 1, bytes.Count(out.Bytes(), []byte("pulling manifest")), "repeated statuses are collapsed")
	assert.Contains(t, out.String(), "downloading 50%")
	assert.Contains(t, out.String(), "model nomic-embed-text: ready")
}

func TestEnsureReady_SameModelCheckedOnce(t *testing.T) {
	m := &mockEngine{isRunning: true, models: map[string]bool{}}
	require.NoError(t, EnsureReady(context.Background(), m, "llama3.1", "llama3.1", io.Discard))
	assert.Equal(t, []string{"llama3.1"}, m.pulled)
}

func TestEnsureReady_EngineDown(t *testing.T) {
	m := &mockEngine{isRunning: false, models: map[string]bool{}}
	err := EnsureReady(context.Background(), m, "llama3.1", "nomic-embed-text", io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not reachable")
}

func TestEnsureReady_PullUnsupported(t *testing.T) {
	m := &mockEngine{isRunning: true, models: map[string]bool{}, pullErr: ErrPullUnsupported}
	err := EnsureReady(context.Background(), m, "gpt-4o-mini", "", io.Discard)
	assert.True(t, errors.Is(err, ErrPullUnsupported))
}
