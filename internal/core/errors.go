package core

import (
	"fmt"

	"intervoice/pkg/schema"
)

// ValidationError represents a validation failure.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// StateError is returned when a command is not allowed in the current call status.
type StateError struct {
	Operation string
	Status    schema.CallStatus
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s not allowed while call is %s", e.Operation, e.Status)
}

// ProviderStartError reports that the call provider rejected a start command.
type ProviderStartError struct {
	TargetID string
	Err      error
}

func (e *ProviderStartError) Error() string {
	return fmt.Sprintf("call provider rejected start for target %q: %v", e.TargetID, e.Err)
}

func (e *ProviderStartError) Unwrap() error {
	return e.Err
}

// ProviderRuntimeError reports an error event raised during a call.
type ProviderRuntimeError struct {
	Operation string
	Message   string
	Err       error
}

func (e *ProviderRuntimeError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("call provider %s: %s", e.Operation, e.Message)
	}
	return fmt.Sprintf("call provider: %s", e.Message)
}

func (e *ProviderRuntimeError) Unwrap() error {
	return e.Err
}

// FeedbackDispatchError reports that feedback could not be produced for a finished call.
type FeedbackDispatchError struct {
	InterviewID string
	Message     string
	Err         error
}

func (e *FeedbackDispatchError) Error() string {
	return fmt.Sprintf("feedback for interview %s: %s", e.InterviewID, e.Message)
}

func (e *FeedbackDispatchError) Unwrap() error {
	return e.Err
}

// LockError represents a failure to take or release process-wide call ownership.
type LockError struct {
	Operation string
	Message   string
	Err       error
}

func (e *LockError) Error() string {
	return fmt.Sprintf("lock %s: %s", e.Operation, e.Message)
}

func (e *LockError) Unwrap() error {
	return e.Err
}

// NetworkError represents a network communication error.
type NetworkError struct {
	Operation string
	URL       string
	Message   string
	Err       error
}

func (e *NetworkError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("network %s to %s: %s", e.Operation, e.URL, e.Message)
	}
	return fmt.Sprintf("network %s: %s", e.Operation, e.Message)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
