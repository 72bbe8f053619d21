package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenkitCompleter_RoutesToBackend(t *testing.T) {
	backend := NewMockCompleter(`{"name": "Ada", "age": 36}`)
	c := NewGenkitCompleter(context.Background(), backend, "google/gemini-2.5-flash", ModelNames()...)

	content, err := c.Complete(context.Background(), "", "Generate a person")
	require.NoError(t, err)

	assert.Equal(t, `{"name": "Ada", "age": 36}`, content)
	require.Equal(t, 1, backend.CallCount())
	assert.Equal(t, "google/gemini-2.5-flash", backend.Models[0])
	assert.Contains(t, backend.Prompts[0], "Generate a person")
}

func TestGenkitCompleter_ExplicitModel(t *testing.T) {
	backend := NewMockCompleter("ok")
	c := NewGenkitCompleter(context.Background(), backend, "google/gemini-2.5-flash", "gpt-4o-mini")

	_, err := c.Complete(context.Background(), "gpt-4o-mini", "hi")
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", backend.Models[0])
}

func TestGenkitCompleter_UnknownModel(t *testing.T) {
	c := NewGenkitCompleter(context.Background(), NewMockCompleter("ok"), "google/gemini-2.5-flash")

	_, err := c.Complete(context.Background(), "missing/model", "hi")

	var llmErr *LLMError
	require.True(t, errors.As(err, &llmErr))
	assert.Equal(t, ErrorTypeAPI, llmErr.Type)
}

func TestGenkitCompleter_BackendError(t *testing.T) {
	backend := &MockCompleter{Error: errors.New("backend down")}
	c := NewGenkitCompleter(context.Background(), backend, "google/gemini-2.5-flash")

	_, err := c.Complete(context.Background(), "", "hi")

	assert.Error(t, err)
}

func TestGenkitCompleter_WithGenerateStructured(t *testing.T) {
	backend := NewMockCompleter("```json\n{\"name\": \"Ada\", \"age\": 36}\n```")
	c := NewGenkitCompleter(context.Background(), backend, "google/gemini-2.5-flash")

	result, err := GenerateStructured[TestOutput](context.Background(), c, "", "Generate a person", 3, validateTestOutput)
	require.NoError(t, err)

	assert.Equal(t, "Ada", result.Name)
}
