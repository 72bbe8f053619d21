package core

import (
	"context"
	"sync"

	"intervoice/pkg/schema"
)

// MockCallProvider is an in-memory CallProvider for tests and offline runs.
// Events are delivered with Emit; each open subscription receives every event.
type MockCallProvider struct {
	mu sync.Mutex

	StartErr   error
	StopErr    error
	StartCalls int
	StopCalls  int
	LastTarget string
	LastParams CallParams

	// StartGate, when set, holds Start until the channel is closed or ctx is done.
	StartGate chan struct{}
	// Commands lists "start" and "stop" in the order the provider received them.
	Commands []string

	subs []*mockSubscription
}

// NewMockCallProvider creates a provider with no subscribers.
func NewMockCallProvider() *MockCallProvider {
	return &MockCallProvider{}
}

func (m *MockCallProvider) Start(ctx context.Context, targetID string, params CallParams) error {
	m.mu.Lock()
	gate := m.StartGate
	m.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Commands = append(m.Commands, "start")
	m.StartCalls++
	m.LastTarget = targetID
	m.LastParams = params
	return m.StartErr
}

func (m *MockCallProvider) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Commands = append(m.Commands, "stop")
	m.StopCalls++
	return m.StopErr
}

func (m *MockCallProvider) Subscribe() (Subscription, error) {
	sub := &mockSubscription{
		events:  make(chan ProviderEvent),
		closing: make(chan struct{}),
	}
	m.mu.Lock()
	m.subs = append(m.subs, sub)
	m.mu.Unlock()
	return sub, nil
}

// CommandLog returns a copy of the commands received so far.
func (m *MockCallProvider) CommandLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Commands))
	copy(out, m.Commands)
	return out
}

// Emit delivers ev to every open subscription and returns once each has received it.
func (m *MockCallProvider) Emit(ev ProviderEvent) {
	m.mu.Lock()
	subs := make([]*mockSubscription, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	for _, sub := range subs {
		sub.send(ev)
	}
}

// ActiveSubscriptions returns the number of subscriptions not yet closed.
func (m *MockCallProvider) ActiveSubscriptions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, sub := range m.subs {
		if !sub.isClosed() {
			n++
		}
	}
	return n
}

// Counts returns the start and stop call counts.
func (m *MockCallProvider) Counts() (starts, stops int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.StartCalls, m.StopCalls
}

type mockSubscription struct {
	mu        sync.Mutex
	events    chan ProviderEvent
	closing   chan struct{}
	closeOnce sync.Once
	closed    bool
}

func (s *mockSubscription) Events() <-chan ProviderEvent {
	return s.events
}

func (s *mockSubscription) Close() error {
	s.closeOnce.Do(func() {
		close(s.closing)
		s.mu.Lock()
		s.closed = true
		close(s.events)
		s.mu.Unlock()
	})
	return nil
}

func (s *mockSubscription) send(ev ProviderEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	case <-s.closing:
	}
}

func (s *mockSubscription) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// MockFeedbackCollaborator is a FeedbackCollaborator with canned responses.
type MockFeedbackCollaborator struct {
	mu sync.Mutex

	Response *schema.FeedbackResponse
	Error    error
	Panic    bool

	// Hold, when set, blocks each call until it is closed or the context ends.
	Hold chan struct{}

	Calls    int
	Requests []*schema.FeedbackRequest
}

// NewMockFeedbackCollaborator returns a collaborator that succeeds with feedbackID.
func NewMockFeedbackCollaborator(feedbackID string) *MockFeedbackCollaborator {
	return &MockFeedbackCollaborator{
		Response: &schema.FeedbackResponse{Success: true, FeedbackID: feedbackID},
	}
}

func (m *MockFeedbackCollaborator) CreateFeedback(ctx context.Context, req *schema.FeedbackRequest) (*schema.FeedbackResponse, error) {
	m.mu.Lock()
	m.Calls++
	m.Requests = append(m.Requests, req)
	hold := m.Hold
	m.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.Panic {
		panic("feedback collaborator exploded")
	}
	if m.Error != nil {
		return nil, m.Error
	}
	return m.Response, nil
}

// CallCount returns how many times CreateFeedback was invoked.
func (m *MockFeedbackCollaborator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

// LastRequest returns the most recent request, or nil.
func (m *MockFeedbackCollaborator) LastRequest() *schema.FeedbackRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return nil
	}
	return m.Requests[len(m.Requests)-1]
}

// MockCallRecorder keeps call records in memory.
type MockCallRecorder struct {
	mu      sync.Mutex
	Records []*schema.CallRecord
	Error   error
}

func (m *MockCallRecorder) SaveCallRecord(ctx context.Context, rec *schema.CallRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Error != nil {
		return m.Error
	}
	m.Records = append(m.Records, rec)
	return nil
}

// Saved returns a copy of the stored records.
func (m *MockCallRecorder) Saved() []*schema.CallRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*schema.CallRecord, len(m.Records))
	copy(out, m.Records)
	return out
}
