package llm

import (
	"context"
	"sync"
)

// MockCompleter is a Completer with canned answers for testing.
// Responses are returned in order; the last one repeats once they run out.
type MockCompleter struct {
	mu sync.Mutex

	Responses []string
	Error     error

	Calls   int
	Prompts []string
	Models  []string
}

// NewMockCompleter creates a mock that answers with responses in order.
func NewMockCompleter(responses ...string) *MockCompleter {
	return &MockCompleter{Responses: responses}
}

func (m *MockCompleter) Complete(ctx context.Context, model, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls++
	m.Prompts = append(m.Prompts, prompt)
	m.Models = append(m.Models, model)

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Error != nil {
		return "", m.Error
	}
	if len(m.Responses) == 0 {
		return "", NewAPIError(0, "no mock response configured")
	}

	i := m.Calls - 1
	if i >= len(m.Responses) {
		i = len(m.Responses) - 1
	}
	return m.Responses[i], nil
}

// CallCount returns how many times Complete was invoked.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}
