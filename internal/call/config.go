package call

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Avicted/aicall/internal/vad"
)

type CallType string

const (
	CallVoice CallType = "voice"
	CallVideo CallType = "video"
)

// DefaultVoice is used when the configuration names no voice.
const DefaultVoice = "nova"

type VoiceSettings struct {
	Voice string
	Speed float64
}

// Config describes one call. It is fixed for the lifetime of a session.
type Config struct {
	CallID        string
	UserID        string
	CallType      CallType
	AIModel       string
	Language      string
	VoiceSettings VoiceSettings
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.CallID) == "" {
		return errors.New("call id is required")
	}
	if strings.TrimSpace(c.UserID) == "" {
		return errors.New("user id is required")
	}
	switch c.CallType {
	case CallVoice, CallVideo:
	default:
		return fmt.Errorf("unknown call type %q", c.CallType)
	}
	if c.VoiceSettings.Speed <= 0 {
		return errors.New("voice speed must be positive")
	}
	return nil
}

// Voice returns the configured voice, or DefaultVoice when none is set.
func (c Config) Voice() string {
	if v := strings.TrimSpace(c.VoiceSettings.Voice); v != "" {
		return v
	}
	return DefaultVoice
}

// Timing holds the controller's delays and thresholds.
type Timing struct {
	GreetingDelay      time.Duration
	InactivityArmDelay time.Duration
	Inactivity         time.Duration
	Cooldown           time.Duration
	MinUtteranceBytes  int
	VAD                vad.Config
}

func DefaultTiming() Timing {
	return Timing{
		GreetingDelay:      500 * time.Millisecond,
		InactivityArmDelay: 2000 * time.Millisecond,
		Inactivity:         10 * time.Minute,
		Cooldown:           1500 * time.Millisecond,
		MinUtteranceBytes:  4000,
		VAD:                vad.DefaultConfig(),
	}
}
