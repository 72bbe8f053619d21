package core

import (
	"context"

	"intervoice/pkg/schema"
)

// EventType identifies a call provider event.
type EventType string

const (
	EventCallStarted   EventType = "call-started"
	EventCallEnded     EventType = "call-ended"
	EventTranscript    EventType = "transcript"
	EventSpeechStarted EventType = "speech-started"
	EventSpeechEnded   EventType = "speech-ended"
	EventError         EventType = "error"
)

// TranscriptKind tells whether transcript text may still be revised.
type TranscriptKind string

const (
	TranscriptPartial TranscriptKind = "partial"
	TranscriptFinal   TranscriptKind = "final"
)

// ProviderEvent is a single event from the call provider.
// Role, Text and Kind are set for EventTranscript; Err for EventError.
type ProviderEvent struct {
	Type EventType
	Role schema.Role
	Text string
	Kind TranscriptKind
	Err  error
}

// CallParams are the variable values handed to the call target on start.
type CallParams map[string]string

// CallProvider is the external voice-call service.
// One provider handle serves one controller; it is injected, never global.
type CallProvider interface {
	// Start asks the provider to place a call against targetID.
	Start(ctx context.Context, targetID string, params CallParams) error

	// Stop ends the current call. The provider may still emit call-ended afterwards.
	Stop(ctx context.Context) error

	// Subscribe opens a stream of provider events.
	Subscribe() (Subscription, error)
}

// Subscription is a scoped provider event stream.
type Subscription interface {
	// Events returns the event channel. It is closed when the subscription ends.
	Events() <-chan ProviderEvent

	// Close releases the subscription. Calling Close more than once is safe.
	Close() error
}

// Targets names the call targets for each session type.
type Targets struct {
	WorkflowID    string // used for generate sessions
	InterviewerID string // used for evaluate sessions
}

// CallStarted returns a call-started event.
func CallStarted() ProviderEvent { return ProviderEvent{Type: EventCallStarted} }

// CallEnded returns a call-ended event.
func CallEnded() ProviderEvent { return ProviderEvent{Type: EventCallEnded} }

// FinalTranscript returns a finalized transcript event.
func FinalTranscript(role schema.Role, text string) ProviderEvent {
	return ProviderEvent{Type: EventTranscript, Role: role, Text: text, Kind: TranscriptFinal}
}

// PartialTranscript returns a revisable transcript event.
func PartialTranscript(role schema.Role, text string) ProviderEvent {
	return ProviderEvent{Type: EventTranscript, Role: role, Text: text, Kind: TranscriptPartial}
}

// ProviderFailure returns an error event.
func ProviderFailure(err error) ProviderEvent { return ProviderEvent{Type: EventError, Err: err} }
