package audio

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Microphone fans captured frames out to a loudness meter and a recorder.
type Microphone struct {
	meter *Meter
	rec   *Recorder
	dc    dcBlocker

	closer    io.Closer
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// OpenMicrophone starts device capture and wraps it in a Microphone.
func OpenMicrophone(ctx context.Context, enc Encoder) (*Microphone, error) {
	capture, frames, err := StartCapture(ctx)
	if err != nil {
		return nil, fmt.Errorf("open microphone: %w", err)
	}
	return NewMicrophone(frames, enc, capture), nil
}

// NewMicrophone consumes frames until Close. closer, when non-nil, is closed
// with the microphone.
func NewMicrophone(frames <-chan []int16, enc Encoder, closer io.Closer) *Microphone {
	m := &Microphone{
		meter:  NewMeter(),
		rec:    NewRecorder(enc),
		closer: closer,
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go m.pump(frames)
	return m
}

func (m *Microphone) pump(frames <-chan []int16) {
	defer close(m.done)
	for {
		select {
		case <-m.quit:
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			m.dc.process(frame)
			m.meter.Write(frame)
			m.rec.Write(frame)
		}
	}
}

func (m *Microphone) Loudness() float64 {
	return m.meter.Loudness()
}

func (m *Microphone) StartRecording() error {
	return m.rec.Start()
}

func (m *Microphone) StopRecording() (Clip, error) {
	return m.rec.Stop()
}

func (m *Microphone) Recording() bool {
	return m.rec.Active()
}

// Close stops the frame pump and releases the device. Safe to call twice.
func (m *Microphone) Close() error {
	if m == nil {
		return nil
	}
	var err error
	m.closeOnce.Do(func() {
		close(m.quit)
		<-m.done
		if m.closer != nil {
			err = m.closer.Close()
		}
	})
	return err
}
