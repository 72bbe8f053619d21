package feedback

import (
	"context"
	"sync"

	"intervoice/internal/llm"
	"intervoice/internal/llm/tasks"
	"intervoice/pkg/schema"
)

// LLMAssessor scores transcripts with a language model.
type LLMAssessor struct {
	client     llm.Completer
	model      string
	maxRetries int
}

// NewLLMAssessor creates an assessor. An empty model uses the completer's default.
func NewLLMAssessor(client llm.Completer, model string, maxRetries int) *LLMAssessor {
	return &LLMAssessor{
		client:     client,
		model:      model,
		maxRetries: maxRetries,
	}
}

func (a *LLMAssessor) Assess(ctx context.Context, transcript []schema.TranscriptMessage) (*schema.Feedback, error) {
	out, err := tasks.ExecuteFeedbackTask(ctx, a.client, a.model, a.maxRetries, &tasks.FeedbackInput{
		Transcript: transcript,
	})
	if err != nil {
		return nil, err
	}
	return out.ToFeedback(), nil
}

// MockAssessor returns a fixed assessment.
type MockAssessor struct {
	mu sync.Mutex

	Feedback *schema.Feedback
	Error    error

	Transcripts [][]schema.TranscriptMessage
}

func (m *MockAssessor) Assess(ctx context.Context, transcript []schema.TranscriptMessage) (*schema.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Transcripts = append(m.Transcripts, transcript)
	if m.Error != nil {
		return nil, m.Error
	}
	fb := *m.Feedback
	return &fb, nil
}

// CallCount returns how many transcripts were assessed.
func (m *MockAssessor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Transcripts)
}
