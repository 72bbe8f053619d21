package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("LLM_BACKEND", "ollama")
	var stderr bytes.Buffer

	code := run(nil, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "LLM_BACKEND")
}

func TestRun_MissingAPIKey(t *testing.T) {
	t.Setenv("LLM_BACKEND", "openrouter")
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("FEEDBACK_STORE", "file")
	t.Setenv("DATA_DIR", t.TempDir())
	var stderr bytes.Buffer

	code := run(nil, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Failed to create LLM backend")
}

func TestRun_BadFlag(t *testing.T) {
	var stderr bytes.Buffer

	assert.Equal(t, 2, run([]string{"-port", "9"}, &stderr))
}
