package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavHeaderSize = 44

var errEmptyAudio = errors.New("empty audio")

type WAVEncoder struct{}

func (WAVEncoder) Format() string { return CodecWAV }

// Encode writes a canonical 16-bit mono PCM WAV file.
func (WAVEncoder) Encode(samples []int16, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	dataLen := len(samples) * 2
	buf := make([]byte, wavHeaderSize+dataLen)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(buf)-8))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], Channels)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(buf[32:34], 2)
	binary.LittleEndian.PutUint16(buf[34:36], 16)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataLen))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[wavHeaderSize+i*2:], uint16(s))
	}
	return buf, nil
}

func isWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// DecodeSpeech turns synthesized speech into mono samples at SampleRate.
// WAV input carries its own format; anything else is taken as raw
// little-endian PCM16 mono at rawRate.
func DecodeSpeech(data []byte, rawRate int) ([]int16, error) {
	if len(data) == 0 {
		return nil, errEmptyAudio
	}
	if isWAV(data) {
		return decodeWAV(data)
	}
	if rawRate <= 0 {
		return nil, fmt.Errorf("invalid raw sample rate %d", rawRate)
	}
	return ResampleInt16(decodeS16LE(data), rawRate, SampleRate), nil
}

func decodeWAV(data []byte) ([]int16, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, errors.New("invalid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read wav pcm: %w", err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, errEmptyAudio
	}
	mono := downmix(buf, int(dec.BitDepth))
	return ResampleInt16(mono, buf.Format.SampleRate, SampleRate), nil
}

func downmix(buf *goaudio.IntBuffer, bitDepth int) []int16 {
	channels := max(buf.Format.NumChannels, 1)
	out := make([]int16, len(buf.Data)/channels)
	for i := range out {
		var sum int
		for c := 0; c < channels; c++ {
			sum += toInt16(buf.Data[i*channels+c], bitDepth)
		}
		out[i] = int16(sum / channels)
	}
	return out
}

func toInt16(v, bitDepth int) int {
	switch bitDepth {
	case 8:
		return (v - 128) << 8
	case 24:
		return v >> 8
	case 32:
		return v >> 16
	default:
		return v
	}
}

// decodeS16LE is decodeS16 without the platform build constraint.
func decodeS16LE(data []byte) []int16 {
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return out
}
