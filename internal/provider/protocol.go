package provider

import (
	"encoding/json"
	"errors"
	"fmt"

	"intervoice/internal/core"
	"intervoice/pkg/schema"
)

// Server message types.
const (
	msgCallStart   = "call-start"
	msgCallEnd     = "call-end"
	msgTranscript  = "transcript"
	msgSpeechStart = "speech-start"
	msgSpeechEnd   = "speech-end"
	msgError       = "error"
)

// Client command types.
const (
	cmdStart = "start"
	cmdStop  = "stop"
)

// serverMessage is a JSON frame sent by the call service.
type serverMessage struct {
	Type           string `json:"type"`
	Role           string `json:"role,omitempty"`
	TranscriptType string `json:"transcriptType,omitempty"`
	Transcript     string `json:"transcript,omitempty"`
	Error          string `json:"error,omitempty"`
}

// clientCommand is a JSON frame sent to the call service.
type clientCommand struct {
	Type           string            `json:"type"`
	TargetID       string            `json:"targetId,omitempty"`
	VariableValues map[string]string `json:"variableValues,omitempty"`
}

// decodeEvent maps a server frame to a provider event.
// ok is false for frames that carry no controller-visible event.
func decodeEvent(data []byte) (ev core.ProviderEvent, ok bool, err error) {
	var msg serverMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return core.ProviderEvent{}, false, fmt.Errorf("decode call event: %w", err)
	}

	switch msg.Type {
	case msgCallStart:
		return core.CallStarted(), true, nil
	case msgCallEnd:
		return core.CallEnded(), true, nil
	case msgSpeechStart:
		return core.ProviderEvent{Type: core.EventSpeechStarted}, true, nil
	case msgSpeechEnd:
		return core.ProviderEvent{Type: core.EventSpeechEnded}, true, nil
	case msgError:
		text := msg.Error
		if text == "" {
			text = "call service error"
		}
		return core.ProviderFailure(errors.New(text)), true, nil
	case msgTranscript:
		kind := core.TranscriptKind(msg.TranscriptType)
		if kind != core.TranscriptPartial && kind != core.TranscriptFinal {
			return core.ProviderEvent{}, false, fmt.Errorf("unknown transcript type %q", msg.TranscriptType)
		}
		return core.ProviderEvent{
			Type: core.EventTranscript,
			Role: schema.Role(msg.Role),
			Text: msg.Transcript,
			Kind: kind,
		}, true, nil
	default:
		return core.ProviderEvent{}, false, nil
	}
}
