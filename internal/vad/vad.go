// Package vad decides when the user is speaking by polling a loudness
// sampler and applying a threshold with a trailing silence window.
//
// The detector does not touch audio itself. It asks its Handler to start
// capturing when loudness first rises above the threshold, and to stop once
// the level has stayed at or below the threshold for longer than the silence
// window. Short pauses inside a sentence therefore do not split an utterance.
package vad

import (
	"log"
	"sync"
	"time"
)

// Default detector parameters.
const (
	DefaultThresholdDB   = -45.0
	DefaultSilenceWindow = 2000 * time.Millisecond
	DefaultPollInterval  = 100 * time.Millisecond
)

const meterInterval = time.Second

// Config controls detection. ThresholdDB is compared against the sampler's
// dBFS reading, so it must not be positive.
type Config struct {
	ThresholdDB   float64
	SilenceWindow time.Duration
	PollInterval  time.Duration

	// LogMeter logs the sampled level once per second.
	LogMeter bool
}

func DefaultConfig() Config {
	return Config{
		ThresholdDB:   DefaultThresholdDB,
		SilenceWindow: DefaultSilenceWindow,
		PollInterval:  DefaultPollInterval,
	}
}

func (c Config) Validate() error {
	if c.ThresholdDB > 0 {
		return &ValidationError{Field: "ThresholdDB", Message: "must be zero or negative dBFS"}
	}
	if c.SilenceWindow <= 0 {
		return &ValidationError{Field: "SilenceWindow", Message: "must be positive"}
	}
	if c.PollInterval <= 0 {
		return &ValidationError{Field: "PollInterval", Message: "must be positive"}
	}
	if c.PollInterval >= c.SilenceWindow {
		return &ValidationError{Field: "PollInterval", Message: "must be shorter than the silence window"}
	}
	return nil
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Message
}

// Sampler reports the current input level in dBFS.
type Sampler interface {
	Loudness() float64
}

// Handler receives the detector's capture decisions.
type Handler interface {
	// Suppressed reports whether detection should ignore input right now,
	// for example while synthesized speech is playing.
	Suppressed() bool
	// StartCapture begins recording an utterance. On error the detector
	// stays idle and tries again on the next loud sample.
	StartCapture() error
	// StopCapture ends the current utterance. Returning false leaves the
	// detector recording; the stop is retried on the next quiet sample.
	StopCapture() bool
}

type Detector struct {
	cfg     Config
	sampler Sampler
	h       Handler

	mu        sync.Mutex
	recording bool
	lastVoice time.Time
	meterNext time.Time

	runMu sync.Mutex
	stop  chan struct{}
	done  chan struct{}
}

func New(cfg Config, sampler Sampler, h Handler) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Detector{cfg: cfg, sampler: sampler, h: h}, nil
}

// Start begins polling on its own goroutine. Calling Start on a running
// detector does nothing.
func (d *Detector) Start() {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	if d.stop != nil {
		return
	}
	log.Printf("vad started: threshold=%.1fdB silence=%s poll=%s", d.cfg.ThresholdDB, d.cfg.SilenceWindow, d.cfg.PollInterval)
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	go d.run(d.stop, d.done)
}

// Stop halts polling and waits for the poll goroutine to exit, so no Handler
// call happens after Stop returns. It is safe to call more than once.
func (d *Detector) Stop() {
	d.runMu.Lock()
	stop, done := d.stop, d.done
	d.stop, d.done = nil, nil
	d.runMu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done

	d.mu.Lock()
	d.recording = false
	d.lastVoice = time.Time{}
	d.mu.Unlock()
	log.Printf("vad stopped")
}

func (d *Detector) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			d.Tick(now)
		}
	}
}

// Tick evaluates one loudness sample taken at now.
func (d *Detector) Tick(now time.Time) {
	level := d.sampler.Loudness()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.maybeLogMeter(now, level)

	if level > d.cfg.ThresholdDB && !d.h.Suppressed() {
		d.lastVoice = now
		if d.recording {
			return
		}
		if err := d.h.StartCapture(); err != nil {
			log.Printf("vad start capture failed: %v", err)
			return
		}
		d.recording = true
		return
	}

	if !d.recording {
		return
	}
	if now.Sub(d.lastVoice) > d.cfg.SilenceWindow {
		if d.h.StopCapture() {
			d.recording = false
		}
	}
}

// Recording reports whether the detector is between a speech start and its
// matching speech end.
func (d *Detector) Recording() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.recording
}

func (d *Detector) maybeLogMeter(now time.Time, level float64) {
	if !d.cfg.LogMeter {
		return
	}
	if !d.meterNext.IsZero() && now.Before(d.meterNext) {
		return
	}
	d.meterNext = now.Add(meterInterval)
	log.Printf("vad meter: level=%.1fdB threshold=%.1fdB recording=%v", level, d.cfg.ThresholdDB, d.recording)
}
