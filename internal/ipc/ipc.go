// Package ipc is the newline-delimited JSON protocol between the call daemon
// and its front ends.
package ipc

import (
	"encoding/json"
	"time"
)

const (
	CommandStartCall   = "start_call"
	CommandEndCall     = "end_call"
	CommandSendMessage = "send_message"
	CommandState       = "state"
	CommandPing        = "ping"
	CommandClear       = "clear"

	EventReady     = "ready"
	EventState     = "state"
	EventMessage   = "message"
	EventCallEnded = "call_ended"
	EventError     = "error"
	EventPong      = "pong"
	EventCleared   = "cleared"
)

// Message is either a command (Cmd set) or an event (Event set).
type Message struct {
	Cmd      string       `json:"cmd,omitempty"`
	Event    string       `json:"event,omitempty"`
	Text     string       `json:"text,omitempty"`
	State    *State       `json:"state,omitempty"`
	Message  *Transcript  `json:"message,omitempty"`
	Messages []Transcript `json:"messages,omitempty"`
	Summary  *Summary     `json:"summary,omitempty"`
	Error    string       `json:"error,omitempty"`
}

type State struct {
	Active    bool   `json:"active"`
	Listening bool   `json:"listening"`
	Thinking  bool   `json:"thinking"`
	Speaking  bool   `json:"speaking"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

type Transcript struct {
	ID        string    `json:"id"`
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type Summary struct {
	CallID     string `json:"call_id"`
	Reason     string `json:"reason"`
	DurationMS int64  `json:"duration_ms"`
	Utterances int    `json:"utterances"`
	Messages   int    `json:"messages"`
}

func NewDecoder(r interface{ Read([]byte) (int, error) }) *json.Decoder {
	return json.NewDecoder(r)
}

func NewEncoder(w interface{ Write([]byte) (int, error) }) *json.Encoder {
	return json.NewEncoder(w)
}
