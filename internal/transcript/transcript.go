// Package transcript holds the ordered, append-only record of one call's
// conversation turns.
package transcript

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Speaker string

const (
	SpeakerUser Speaker = "user"
	SpeakerAI   Speaker = "ai"
)

// Message is one conversation turn. Messages are never mutated after they are
// appended to a Store.
type Message struct {
	ID        string
	Speaker   Speaker
	Text      string
	AudioRef  []byte
	Timestamp time.Time
}

// NewMessage builds a message with a fresh id. The id is prefixed with the
// speaker so log lines stay readable.
func NewMessage(speaker Speaker, text string, at time.Time) Message {
	return Message{
		ID:        string(speaker) + "-" + uuid.NewString(),
		Speaker:   speaker,
		Text:      text,
		Timestamp: at,
	}
}

// Store is safe for concurrent use. Readers get copies; Reset swaps the whole
// backing slice instead of editing it in place.
type Store struct {
	mu   sync.RWMutex
	msgs []Message
	ids  map[string]struct{}
}

func NewStore() *Store {
	return &Store{ids: make(map[string]struct{})}
}

// Append adds msg at the end of the transcript. It returns false when msg has
// no id, or an id that is already present.
func (s *Store) Append(msg Message) bool {
	if strings.TrimSpace(msg.ID) == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ids == nil {
		s.ids = make(map[string]struct{})
	}
	if _, ok := s.ids[msg.ID]; ok {
		return false
	}
	if len(msg.AudioRef) > 0 {
		msg.AudioRef = append([]byte(nil), msg.AudioRef...)
	}
	s.ids[msg.ID] = struct{}{}
	s.msgs = append(s.msgs, msg)
	return true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.msgs)
}

// Snapshot returns a copy of the transcript in insertion order.
func (s *Store) Snapshot() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}

// Reset replaces the transcript with an empty one. Snapshots taken earlier
// are unaffected.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = nil
	s.ids = make(map[string]struct{})
}
