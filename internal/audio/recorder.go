package audio

import (
	"fmt"
	"sync"
)

// maxRecordingSeconds caps a single utterance; later samples are discarded.
const maxRecordingSeconds = 120

// Recorder accumulates samples between Start and Stop and encodes them into a
// Clip. Only one recording can be active at a time.
type Recorder struct {
	enc Encoder

	mu     sync.Mutex
	active bool
	buf    []int16
}

func NewRecorder(enc Encoder) *Recorder {
	if enc == nil {
		enc = WAVEncoder{}
	}
	return &Recorder{enc: enc}
}

func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		return ErrRecorderActive
	}
	r.active = true
	r.buf = make([]int16, 0, SampleRate*2)
	return nil
}

// Write appends samples while a recording is active and is a no-op otherwise.
func (r *Recorder) Write(samples []int16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return
	}
	room := SampleRate*maxRecordingSeconds - len(r.buf)
	if room <= 0 {
		return
	}
	r.buf = append(r.buf, samples[:min(room, len(samples))]...)
}

func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Stop ends the recording and returns it normalized and encoded. The
// recorder is idle afterwards even when encoding fails.
func (r *Recorder) Stop() (Clip, error) {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return Clip{}, ErrRecorderIdle
	}
	samples := r.buf
	r.buf = nil
	r.active = false
	r.mu.Unlock()

	normalizePeak(samples)
	data, err := r.enc.Encode(samples, SampleRate)
	if err != nil {
		return Clip{}, fmt.Errorf("encode %s: %w", r.enc.Format(), err)
	}
	return Clip{
		Data:     data,
		Format:   r.enc.Format(),
		Duration: samplesDuration(len(samples), SampleRate),
	}, nil
}
