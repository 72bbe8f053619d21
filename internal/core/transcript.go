package core

import "intervoice/pkg/schema"

// TranscriptBuffer holds the finalized turns of a call and the one utterance still in flight.
// It does no locking; the owning Controller serializes access.
type TranscriptBuffer struct {
	history []schema.TranscriptMessage
	pending string
}

// NewTranscriptBuffer creates an empty buffer.
func NewTranscriptBuffer() *TranscriptBuffer {
	return &TranscriptBuffer{
		history: make([]schema.TranscriptMessage, 0),
	}
}

// AppendFinal appends a finalized message and clears the pending utterance.
// The final text always wins over whatever partial text was in flight.
func (b *TranscriptBuffer) AppendFinal(role schema.Role, content string) schema.TranscriptMessage {
	msg := schema.TranscriptMessage{Role: role, Content: content}
	b.history = append(b.history, msg)
	b.pending = ""
	return msg
}

// SetPartial replaces the pending utterance. Empty text clears it.
func (b *TranscriptBuffer) SetPartial(text string) {
	b.pending = text
}

// Pending returns the in-flight utterance, for display only.
func (b *TranscriptBuffer) Pending() string {
	return b.pending
}

// Snapshot returns a copy of the finalized history. The pending utterance is never included.
func (b *TranscriptBuffer) Snapshot() []schema.TranscriptMessage {
	snapshot := make([]schema.TranscriptMessage, len(b.history))
	copy(snapshot, b.history)
	return snapshot
}

// Len returns the number of finalized messages.
func (b *TranscriptBuffer) Len() int {
	return len(b.history)
}

// Last returns the most recent finalized message.
func (b *TranscriptBuffer) Last() (schema.TranscriptMessage, bool) {
	if len(b.history) == 0 {
		return schema.TranscriptMessage{}, false
	}
	return b.history[len(b.history)-1], true
}

// Reset clears history and the pending utterance for a new session.
func (b *TranscriptBuffer) Reset() {
	b.history = make([]schema.TranscriptMessage, 0)
	b.pending = ""
}
