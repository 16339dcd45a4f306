package logger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeKVsRedactsSecretsAndHashesContent(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"openai_api_key", "sk-live-123",
		"content", "I was in the forest",
		"dream_id", 7,
	})

	assert.Equal(t, "[REDACTED]", out[1])
	hashed, ok := out[3].(string)
	assert.True(t, ok)
	assert.True(t, strings.HasPrefix(hashed, "hash:"))
	assert.NotContains(t, hashed, "forest")
	assert.Equal(t, 7, out[5])
}

func TestSanitizeKVsKeepsDanglingKey(t *testing.T) {
	out := sanitizeKVs([]interface{}{"stage", "extracting", "orphan"})
	assert.Len(t, out, 3)
	assert.Equal(t, "orphan", out[2])
}
