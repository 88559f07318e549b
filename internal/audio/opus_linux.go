//go:build linux

package audio

import (
	"encoding/binary"
	"fmt"

	"github.com/hraban/opus"
)

const (
	opusFrameSamples = SampleRate / 50
	opusMaxPacket    = 4000
)

// OpusEncoder emits 20ms voice packets, each prefixed with its big-endian
// uint16 length.
type OpusEncoder struct {
	enc *opus.Encoder
}

func newOpusEncoder() (Encoder, error) {
	enc, err := opus.NewEncoder(SampleRate, Channels, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("create opus encoder: %w", err)
	}
	return &OpusEncoder{enc: enc}, nil
}

func (e *OpusEncoder) Format() string { return CodecOpus }

func (e *OpusEncoder) Encode(samples []int16, sampleRate int) ([]byte, error) {
	if sampleRate != SampleRate {
		samples = ResampleInt16(samples, sampleRate, SampleRate)
	}
	var out []byte
	packet := make([]byte, opusMaxPacket)
	frame := make([]int16, opusFrameSamples)
	for off := 0; off < len(samples); off += opusFrameSamples {
		n := copy(frame, samples[off:])
		clear(frame[n:])
		size, err := e.enc.Encode(frame, packet)
		if err != nil {
			return nil, fmt.Errorf("encode opus frame: %w", err)
		}
		out = binary.BigEndian.AppendUint16(out, uint16(size))
		out = append(out, packet[:size]...)
	}
	return out, nil
}
