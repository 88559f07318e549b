//go:build linux

package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// captureQueue bounds how many device callbacks may be buffered before new
// frames are dropped.
const captureQueue = 32

type Capture struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device

	closeOnce sync.Once
}

// CheckCapability reports ErrUnsupported when no capture device can be
// enumerated.
func CheckCapability() error {
	malgoCtx, err := malgoInitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("%w: init malgo context: %v", ErrUnsupported, err)
	}
	defer malgoContextUninit(malgoCtx)

	devices, err := malgoCaptureDevices(malgoCtx)
	if err != nil {
		return fmt.Errorf("%w: list capture devices: %v", ErrUnsupported, err)
	}
	if len(devices) == 0 {
		return fmt.Errorf("%w: no capture device found", ErrUnsupported)
	}
	return nil
}

// StartCapture opens the default microphone as 16-bit mono PCM at SampleRate.
// Frames are delivered on the returned channel; when the consumer falls
// behind, new frames are dropped rather than blocking the device callback.
func StartCapture(ctx context.Context) (*Capture, <-chan []int16, error) {
	malgoCtx, err := malgoInitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("init malgo context: %w", err)
	}

	deviceConfig := malgoDefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = Channels
	deviceConfig.SampleRate = SampleRate

	ch := make(chan []int16, captureQueue)
	callback := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			samples := decodeS16(input)
			if len(samples) == 0 {
				return
			}
			select {
			case ch <- samples:
			default:
			}
		},
	}

	device, err := malgoInitDevice(malgoCtx.Context, deviceConfig, callback)
	if err != nil {
		malgoContextUninit(malgoCtx)
		return nil, nil, fmt.Errorf("init capture device: %w", err)
	}
	if err := malgoDeviceStart(device); err != nil {
		malgoDeviceUninit(device)
		malgoContextUninit(malgoCtx)
		return nil, nil, fmt.Errorf("start capture: %w", err)
	}

	c := &Capture{ctx: malgoCtx, device: device}
	go func() {
		<-ctx.Done()
		_ = c.Close()
	}()
	return c, ch, nil
}

func decodeS16(input []byte) []int16 {
	if len(input) < 2 {
		return nil
	}
	samples := make([]int16, len(input)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(input[i*2:]))
	}
	return samples
}

// Close releases the device and its context. Safe on nil and repeated calls.
func (c *Capture) Close() error {
	if c == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		if c.device != nil {
			malgoDeviceUninit(c.device)
			c.device = nil
		}
		if c.ctx != nil {
			malgoContextUninit(c.ctx)
			c.ctx = nil
		}
	})
	return nil
}
