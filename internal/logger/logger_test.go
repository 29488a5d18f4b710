package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeKVs_RedactsSecrets(t *testing.T) {
	got := sanitizeKVs([]interface{}{"api_key", "sk-123", "model", "llama3.1:8b", "MEMGRAPH_PASSWORD", "pw"})
	assert.Equal(t, []interface{}{"api_key", "[REDACTED]", "model", "llama3.1:8b", "MEMGRAPH_PASSWORD", "[REDACTED]"}, got)
}

func TestSanitizeKVs_OddLength(t *testing.T) {
	got := sanitizeKVs([]interface{}{"path", "a.md", "dangling"})
	assert.Equal(t, []interface{}{"path", "a.md", "dangling"}, got)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zap.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zap.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zap.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zap.InfoLevel, parseLevel("bogus"))
}

func TestWith_CarriesFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.With("component", "ingest").Info("document processed", "path", "notes/a.md", "token", "abc")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		ctx := entries[0].ContextMap()
		assert.Equal(t, "ingest", ctx["component"])
		assert.Equal(t, "notes/a.md", ctx["path"])
		assert.Equal(t, "[REDACTED]", ctx["token"])
	}
}
