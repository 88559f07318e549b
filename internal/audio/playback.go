//go:build linux

package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

const (
	maxPlaybackBufferSeconds = 2
	drainPollInterval        = 20 * time.Millisecond
)

// Playback feeds the default output device from an internal sample queue.
type Playback struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device

	mu        sync.Mutex
	buf       []int16
	maxBuf    int
	closeOnce sync.Once
}

func StartPlayback(ctx context.Context) (*Playback, error) {
	malgoCtx, err := malgoInitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init malgo context: %w", err)
	}

	deviceConfig := malgoDefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = Channels
	deviceConfig.SampleRate = SampleRate

	player := &Playback{
		ctx:    malgoCtx,
		maxBuf: SampleRate * maxPlaybackBufferSeconds,
	}
	callback := malgo.DeviceCallbacks{
		Data: func(output, _ []byte, _ uint32) {
			player.fillOutput(output)
		},
	}

	device, err := malgoInitDevice(malgoCtx.Context, deviceConfig, callback)
	if err != nil {
		malgoContextUninit(malgoCtx)
		return nil, fmt.Errorf("init playback device: %w", err)
	}
	if err := malgoDeviceStart(device); err != nil {
		malgoDeviceUninit(device)
		malgoContextUninit(malgoCtx)
		return nil, fmt.Errorf("start playback: %w", err)
	}

	player.device = device
	go func() {
		<-ctx.Done()
		_ = player.Close()
	}()
	return player, nil
}

// Write queues samples, discarding the oldest queued audio on overflow.
func (p *Playback) Write(samples []int16) {
	if p == nil || len(samples) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ensureLimit()
	if len(p.buf)+len(samples) > p.maxBuf {
		drop := len(p.buf) + len(samples) - p.maxBuf
		if drop >= len(p.buf) {
			p.buf = p.buf[:0]
			samples = samples[len(samples)-min(len(samples), p.maxBuf):]
		} else {
			p.buf = p.buf[drop:]
		}
	}
	p.buf = append(p.buf, samples...)
}

// Play queues a whole reply without dropping any of it and returns once the
// device has consumed every sample. Cancelling ctx flushes what is left.
func (p *Playback) Play(ctx context.Context, samples []int16) error {
	if p == nil {
		return fmt.Errorf("playback not started")
	}
	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()

	for {
		p.mu.Lock()
		p.ensureLimit()
		if room := p.maxBuf - len(p.buf); room > 0 && len(samples) > 0 {
			n := min(room, len(samples))
			p.buf = append(p.buf, samples[:n]...)
			samples = samples[n:]
		}
		done := len(samples) == 0 && len(p.buf) == 0
		p.mu.Unlock()
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			p.Flush()
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Pending returns the number of queued samples not yet handed to the device.
func (p *Playback) Pending() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buf)
}

func (p *Playback) Flush() {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.buf = p.buf[:0]
	p.mu.Unlock()
}

func (p *Playback) ensureLimit() {
	if p.maxBuf <= 0 {
		p.maxBuf = SampleRate * maxPlaybackBufferSeconds
	}
}

func (p *Playback) fillOutput(output []byte) {
	if p == nil || len(output) == 0 {
		return
	}
	sampleCount := len(output) / 2
	p.mu.Lock()
	available := len(p.buf)
	use := min(sampleCount, available)
	for i := 0; i < use; i++ {
		binary.LittleEndian.PutUint16(output[i*2:], uint16(p.buf[i]))
	}
	for i := use; i < sampleCount; i++ {
		binary.LittleEndian.PutUint16(output[i*2:], 0)
	}
	if use > 0 {
		copy(p.buf, p.buf[use:])
		p.buf = p.buf[:available-use]
	}
	p.mu.Unlock()
}

func (p *Playback) Close() error {
	if p == nil {
		return nil
	}
	p.closeOnce.Do(func() {
		if p.device != nil {
			malgoDeviceUninit(p.device)
			p.device = nil
		}
		if p.ctx != nil {
			malgoContextUninit(p.ctx)
			p.ctx = nil
		}
		p.Flush()
	})
	return nil
}
