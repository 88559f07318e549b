// Package audio owns the microphone and speaker side of a call: device
// capture and playback through malgo, loudness metering, utterance recording
// and the codecs used to ship utterances to the voice backend.
package audio

import (
	"errors"
	"time"
)

const (
	SampleRate = 48000
	Channels   = 1
)

var (
	// ErrUnsupported means the platform lacks the capture or playback
	// primitives a call needs.
	ErrUnsupported = errors.New("audio capture is not supported on this platform")

	ErrRecorderActive = errors.New("recorder already active")
	ErrRecorderIdle   = errors.New("recorder not active")
)

// Clip is one recorded utterance, already encoded for the backend.
type Clip struct {
	Data     []byte
	Format   string
	Duration time.Duration
}

func samplesDuration(n, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(rate)
}
