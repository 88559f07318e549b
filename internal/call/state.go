package call

import "time"

type Status string

const (
	StatusIdle      Status = "idle"
	StatusListening Status = "listening"
	StatusThinking  Status = "thinking"
	StatusSpeaking  Status = "speaking"
)

// SessionState is the observable call state. Speaking is true while a reply
// is pending (Thinking) or synthesized audio is playing.
type SessionState struct {
	Active    bool
	Listening bool
	Thinking  bool
	Speaking  bool
	Error     string
}

// Status collapses the flags into one display state with priority
// listening, thinking, speaking, idle.
func (s SessionState) Status() Status {
	switch {
	case s.Listening:
		return StatusListening
	case s.Thinking:
		return StatusThinking
	case s.Speaking:
		return StatusSpeaking
	default:
		return StatusIdle
	}
}

// Utterance is one captured stretch of speech on its way to the backend.
type Utterance struct {
	Audio          []byte
	ApproxDuration time.Duration
}

// End reasons reported in Summary.
const (
	EndUser       = "user"
	EndInactivity = "inactivity"
)

// Summary describes a finished session.
type Summary struct {
	CallID     string
	UserID     string
	CallType   CallType
	StartedAt  time.Time
	EndedAt    time.Time
	Reason     string
	Utterances int
	Messages   int
}
