package audio

import (
	"errors"
	"testing"
	"time"
)

type failingEncoder struct{}

func (failingEncoder) Format() string { return "broken" }

func (failingEncoder) Encode([]int16, int) ([]byte, error) {
	return nil, errors.New("encoder exploded")
}

func TestRecorderLifecycle(t *testing.T) {
	r := NewRecorder(nil)
	if _, err := r.Stop(); !errors.Is(err, ErrRecorderIdle) {
		t.Fatalf("Stop() on idle recorder error = %v, want ErrRecorderIdle", err)
	}

	r.Write([]int16{1, 2, 3})
	if err := r.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := r.Start(); !errors.Is(err, ErrRecorderActive) {
		t.Fatalf("second Start() error = %v, want ErrRecorderActive", err)
	}

	r.Write(make([]int16, SampleRate/2))
	r.Write(make([]int16, SampleRate/2))

	clip, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if clip.Format != CodecWAV {
		t.Fatalf("clip format = %q, want wav", clip.Format)
	}
	if clip.Duration != time.Second {
		t.Fatalf("clip duration = %v, want 1s", clip.Duration)
	}
	if want := wavHeaderSize + SampleRate*2; len(clip.Data) != want {
		t.Fatalf("clip size = %d, want %d", len(clip.Data), want)
	}
	if r.Active() {
		t.Fatal("recorder still active after Stop")
	}
}

func TestRecorderNormalizesBeforeEncoding(t *testing.T) {
	r := NewRecorder(WAVEncoder{})
	if err := r.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	r.Write([]int16{1000, -1000})
	clip, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	samples, err := DecodeSpeech(clip.Data, SampleRate)
	if err != nil {
		t.Fatalf("DecodeSpeech() error: %v", err)
	}
	if len(samples) != 2 || samples[0] != 8000 || samples[1] != -8000 {
		t.Fatalf("recorded samples = %v, want [8000 -8000]", samples)
	}
}

func TestRecorderEncodeFailureLeavesIdle(t *testing.T) {
	r := NewRecorder(failingEncoder{})
	if err := r.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if _, err := r.Stop(); err == nil {
		t.Fatal("Stop() error = nil, want encode failure")
	}
	if err := r.Start(); err != nil {
		t.Fatalf("Start() after failed Stop error: %v", err)
	}
}

func TestRecorderCapsLength(t *testing.T) {
	r := NewRecorder(WAVEncoder{})
	_ = r.Start()
	chunk := make([]int16, SampleRate*50)
	for i := 0; i < 3; i++ {
		r.Write(chunk)
	}
	clip, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if want := maxRecordingSeconds * time.Second; clip.Duration != want {
		t.Fatalf("clip duration = %v, want capped %v", clip.Duration, want)
	}
}
