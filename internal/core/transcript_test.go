package core

import (
	"testing"

	"intervoice/pkg/schema"

	"github.com/stretchr/testify/assert"
)

func TestNewTranscriptBuffer(t *testing.T) {
	b := NewTranscriptBuffer()

	assert.NotNil(t, b.Snapshot())
	assert.Empty(t, b.Snapshot())
	assert.Empty(t, b.Pending())
	assert.Equal(t, 0, b.Len())

	_, ok := b.Last()
	assert.False(t, ok)
}

func TestTranscriptBuffer_AppendFinal(t *testing.T) {
	b := NewTranscriptBuffer()

	b.AppendFinal(schema.RoleAssistant, "Hello")
	msg := b.AppendFinal(schema.RoleUser, "Hi")

	assert.Equal(t, schema.TranscriptMessage{Role: schema.RoleUser, Content: "Hi"}, msg)
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, []schema.TranscriptMessage{
		{Role: schema.RoleAssistant, Content: "Hello"},
		{Role: schema.RoleUser, Content: "Hi"},
	}, b.Snapshot())

	last, ok := b.Last()
	assert.True(t, ok)
	assert.Equal(t, "Hi", last.Content)
}

func TestTranscriptBuffer_FinalReplacesPartial(t *testing.T) {
	b := NewTranscriptBuffer()

	b.SetPartial("Hel")
	b.SetPartial("Hello the")
	assert.Equal(t, "Hello the", b.Pending())
	assert.Empty(t, b.Snapshot())

	b.AppendFinal(schema.RoleAssistant, "Hello there")

	assert.Empty(t, b.Pending())
	assert.Equal(t, []schema.TranscriptMessage{
		{Role: schema.RoleAssistant, Content: "Hello there"},
	}, b.Snapshot())
}

func TestTranscriptBuffer_EmptyContentKept(t *testing.T) {
	b := NewTranscriptBuffer()

	b.AppendFinal(schema.RoleUser, "")

	assert.Equal(t, 1, b.Len())
}

func TestTranscriptBuffer_SnapshotIsCopy(t *testing.T) {
	b := NewTranscriptBuffer()
	b.AppendFinal(schema.RoleAssistant, "Hello")

	snap := b.Snapshot()
	snap[0].Content = "mutated"
	b.AppendFinal(schema.RoleUser, "Hi")

	assert.Len(t, snap, 1)
	assert.Equal(t, "Hello", b.Snapshot()[0].Content)
}

func TestTranscriptBuffer_Reset(t *testing.T) {
	b := NewTranscriptBuffer()
	b.AppendFinal(schema.RoleAssistant, "Hello")
	b.SetPartial("pending")

	b.Reset()

	assert.Empty(t, b.Snapshot())
	assert.Empty(t, b.Pending())
	assert.Equal(t, 0, b.Len())
}
