package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intervoice/internal/core"
	"intervoice/pkg/schema"
)

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name   string
		frame  string
		want   core.ProviderEvent
		wantOK bool
	}{
		{name: "call start", frame: `{"type":"call-start"}`, want: core.CallStarted(), wantOK: true},
		{name: "call end", frame: `{"type":"call-end"}`, want: core.CallEnded(), wantOK: true},
		{name: "speech start", frame: `{"type":"speech-start"}`, want: core.ProviderEvent{Type: core.EventSpeechStarted}, wantOK: true},
		{name: "speech end", frame: `{"type":"speech-end"}`, want: core.ProviderEvent{Type: core.EventSpeechEnded}, wantOK: true},
		{
			name:   "final transcript",
			frame:  `{"type":"transcript","role":"user","transcriptType":"final","transcript":"Hello there"}`,
			want:   core.FinalTranscript(schema.RoleUser, "Hello there"),
			wantOK: true,
		},
		{
			name:   "partial transcript",
			frame:  `{"type":"transcript","role":"assistant","transcriptType":"partial","transcript":"Hel"}`,
			want:   core.PartialTranscript(schema.RoleAssistant, "Hel"),
			wantOK: true,
		},
		{name: "unknown type", frame: `{"type":"volume-level","volume":0.4}`, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok, err := decodeEvent([]byte(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, ev)
			}
		})
	}
}

func TestDecodeEvent_Error(t *testing.T) {
	ev, ok, err := decodeEvent([]byte(`{"type":"error","error":"assistant not found"}`))
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, core.EventError, ev.Type)
	assert.EqualError(t, ev.Err, "assistant not found")

	ev, _, err = decodeEvent([]byte(`{"type":"error"}`))
	require.NoError(t, err)
	assert.EqualError(t, ev.Err, "call service error")
}

func TestDecodeEvent_Malformed(t *testing.T) {
	_, _, err := decodeEvent([]byte(`{not json`))
	assert.ErrorContains(t, err, "decode call event")

	_, _, err = decodeEvent([]byte(`{"type":"transcript","transcriptType":"interim"}`))
	assert.ErrorContains(t, err, `unknown transcript type "interim"`)
}
