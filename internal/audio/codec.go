package audio

import (
	"fmt"
	"strings"
)

const (
	CodecWAV  = "wav"
	CodecOpus = "opus"
)

// Encoder turns a mono PCM16 recording into the bytes shipped to the backend.
type Encoder interface {
	Format() string
	Encode(samples []int16, sampleRate int) ([]byte, error)
}

// NewEncoder resolves a codec name; the empty name selects WAV.
func NewEncoder(codec string) (Encoder, error) {
	switch strings.ToLower(strings.TrimSpace(codec)) {
	case "", CodecWAV:
		return WAVEncoder{}, nil
	case CodecOpus:
		return newOpusEncoder()
	default:
		return nil, fmt.Errorf("unsupported codec %q", codec)
	}
}
