// Package voice talks to the remote speech backend: it ships utterances and
// typed text, and delivers transcripts, replies and synthesized audio to an
// Observer.
package voice

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrNotAuthenticated = errors.New("Not authenticated. Please log in.")
	ErrNotConnected     = errors.New("voice service not connected")
	ErrNoPlayer         = errors.New("no audio output configured")
)

// DisconnectedMessage is reported through OnError when the backend drops the
// connection while the call is still up.
const DisconnectedMessage = "voice service disconnected"

// Service is the backend a call session drives.
type Service interface {
	Connect(ctx context.Context) error
	SendAudio(ctx context.Context, audio []byte, voice string) error
	SendText(ctx context.Context, text, voice string) error
	SpeakText(ctx context.Context, text, voice string) error
	PlayAudio(ctx context.Context, audio []byte) error
	Disconnect()
}

// Observer receives backend events. Calls arrive from the service's read
// goroutine, one at a time.
type Observer interface {
	OnConnected()
	OnTranscription(text string)
	OnResponse(text string)
	OnAudio(audio []byte)
	OnStatus(status, message string)
	OnError(message string)
}

// Backend status values with a meaning for the call.
const (
	StatusProcessing = "processing"
	StatusComplete   = "complete"
)

const minTranscriptLen = 3

// hallucinations are phrases the recognizer produces from background noise.
var hallucinations = map[string]bool{
	"sumnex platform": true,
	"platform":        true,
	"sumnex":          true,
}

// IsNoiseTranscript reports whether a transcription should be discarded.
func IsNoiseTranscript(text string) bool {
	text = strings.TrimSpace(text)
	if len(text) < minTranscriptLen {
		return true
	}
	return hallucinations[strings.ToLower(text)]
}
