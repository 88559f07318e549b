//go:build linux

package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gen2brain/malgo"
)

func saveAndRestoreMalgoHooks(t *testing.T) {
	t.Helper()
	origInitContext := malgoInitContext
	origDefaultDeviceConfig := malgoDefaultDeviceConfig
	origInitDevice := malgoInitDevice
	origContextUninit := malgoContextUninit
	origDeviceStart := malgoDeviceStart
	origDeviceUninit := malgoDeviceUninit
	origCaptureDevices := malgoCaptureDevices

	t.Cleanup(func() {
		malgoInitContext = origInitContext
		malgoDefaultDeviceConfig = origDefaultDeviceConfig
		malgoInitDevice = origInitDevice
		malgoContextUninit = origContextUninit
		malgoDeviceStart = origDeviceStart
		malgoDeviceUninit = origDeviceUninit
		malgoCaptureDevices = origCaptureDevices
	})
}

// fakeDevice installs hooks that pretend a device exists and counts releases.
type fakeDevice struct {
	ctxUninit    atomic.Int32
	deviceUninit atomic.Int32
	callbacks    malgo.DeviceCallbacks
	config       malgo.DeviceConfig
}

func installFakeDevice(t *testing.T, initErr, startErr error) *fakeDevice {
	t.Helper()
	saveAndRestoreMalgoHooks(t)
	fake := &fakeDevice{}

	malgoInitContext = func([]malgo.Backend, malgo.ContextConfig, malgo.LogProc) (*malgo.AllocatedContext, error) {
		return &malgo.AllocatedContext{}, nil
	}
	malgoDefaultDeviceConfig = func(malgo.DeviceType) malgo.DeviceConfig {
		return malgo.DeviceConfig{}
	}
	malgoInitDevice = func(_ malgo.Context, cfg malgo.DeviceConfig, cb malgo.DeviceCallbacks) (*malgo.Device, error) {
		if initErr != nil {
			return nil, initErr
		}
		fake.config = cfg
		fake.callbacks = cb
		return &malgo.Device{}, nil
	}
	malgoDeviceStart = func(*malgo.Device) error { return startErr }
	malgoDeviceUninit = func(*malgo.Device) { fake.deviceUninit.Add(1) }
	malgoContextUninit = func(*malgo.AllocatedContext) error {
		fake.ctxUninit.Add(1)
		return nil
	}
	return fake
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func decodeInt16LE(buf []byte, idx int) int16 {
	return int16(binary.LittleEndian.Uint16(buf[idx*2:]))
}

func TestCheckCapability(t *testing.T) {
	tests := []struct {
		name    string
		ctxErr  error
		devices []malgo.DeviceInfo
		listErr error
		wantErr bool
	}{
		{name: "one device", devices: make([]malgo.DeviceInfo, 1)},
		{name: "no devices", wantErr: true},
		{name: "list fails", listErr: errors.New("backend gone"), wantErr: true},
		{name: "context fails", ctxErr: errors.New("no backend"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := installFakeDevice(t, nil, nil)
			if tt.ctxErr != nil {
				malgoInitContext = func([]malgo.Backend, malgo.ContextConfig, malgo.LogProc) (*malgo.AllocatedContext, error) {
					return nil, tt.ctxErr
				}
			}
			malgoCaptureDevices = func(*malgo.AllocatedContext) ([]malgo.DeviceInfo, error) {
				return tt.devices, tt.listErr
			}

			err := CheckCapability()
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupported) {
					t.Fatalf("CheckCapability() = %v, want ErrUnsupported", err)
				}
			} else if err != nil {
				t.Fatalf("CheckCapability() = %v, want nil", err)
			}
			if tt.ctxErr == nil && fake.ctxUninit.Load() != 1 {
				t.Fatalf("context uninit calls = %d, want 1", fake.ctxUninit.Load())
			}
		})
	}
}

func TestDeviceStartupFailuresReleaseResources(t *testing.T) {
	type opener func() (any, error)
	capture := func() (any, error) {
		c, _, err := StartCapture(context.Background())
		return c, err
	}
	playback := func() (any, error) {
		return StartPlayback(context.Background())
	}

	tests := []struct {
		name          string
		open          opener
		initErr       error
		startErr      error
		wantMsg       string
		wantDevUninit int32
	}{
		{name: "capture init", open: capture, initErr: errors.New("no device"), wantMsg: "init capture device"},
		{name: "capture start", open: capture, startErr: errors.New("busy"), wantMsg: "start capture", wantDevUninit: 1},
		{name: "playback init", open: playback, initErr: errors.New("no output"), wantMsg: "init playback device"},
		{name: "playback start", open: playback, startErr: errors.New("busy"), wantMsg: "start playback", wantDevUninit: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := installFakeDevice(t, tt.initErr, tt.startErr)
			_, err := tt.open()
			if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Fatalf("error = %v, want %q", err, tt.wantMsg)
			}
			if got := fake.ctxUninit.Load(); got != 1 {
				t.Fatalf("context uninit calls = %d, want 1", got)
			}
			if got := fake.deviceUninit.Load(); got != tt.wantDevUninit {
				t.Fatalf("device uninit calls = %d, want %d", got, tt.wantDevUninit)
			}
		})
	}
}

func TestStartCaptureContextError(t *testing.T) {
	saveAndRestoreMalgoHooks(t)
	malgoInitContext = func([]malgo.Backend, malgo.ContextConfig, malgo.LogProc) (*malgo.AllocatedContext, error) {
		return nil, errors.New("boom")
	}

	capture, ch, err := StartCapture(context.Background())
	if err == nil || !strings.Contains(err.Error(), "init malgo context") {
		t.Fatalf("error = %v, want init malgo context failure", err)
	}
	if capture != nil || ch != nil {
		t.Fatalf("expected nil capture/channel, got capture=%v channel=%v", capture, ch)
	}
	if _, err := StartPlayback(context.Background()); err == nil {
		t.Fatal("StartPlayback() error = nil, want init failure")
	}
}

func TestStartCaptureDeliversFramesAndDropsWhenBehind(t *testing.T) {
	fake := installFakeDevice(t, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	capture, ch, err := StartCapture(ctx)
	if err != nil {
		t.Fatalf("StartCapture() error: %v", err)
	}
	if fake.config.SampleRate != SampleRate || fake.config.Capture.Channels != Channels {
		t.Fatalf("device config rate=%d channels=%d", fake.config.SampleRate, fake.config.Capture.Channels)
	}
	if fake.config.Capture.Format != malgo.FormatS16 {
		t.Fatalf("capture format = %v, want %v", fake.config.Capture.Format, malgo.FormatS16)
	}

	fake.callbacks.Data(nil, []byte{1, 0, 255, 127, 0, 128}, 0)
	got := <-ch
	if len(got) != 3 || got[0] != 1 || got[1] != 32767 || got[2] != -32768 {
		t.Fatalf("decoded samples = %#v, want [1 32767 -32768]", got)
	}

	fake.callbacks.Data(nil, []byte{7}, 0)
	if len(ch) != 0 {
		t.Fatalf("odd single byte produced a frame")
	}

	for i := 0; i < captureQueue+5; i++ {
		fake.callbacks.Data(nil, []byte{9, 0}, 0)
	}
	if len(ch) != captureQueue {
		t.Fatalf("channel length = %d, want %d", len(ch), captureQueue)
	}

	cancel()
	waitFor(t, 200*time.Millisecond, func() bool {
		return fake.deviceUninit.Load() == 1 && fake.ctxUninit.Load() == 1
	})
	if err := capture.Close(); err != nil {
		t.Fatalf("capture.Close() error: %v", err)
	}
	if fake.deviceUninit.Load() != 1 || fake.ctxUninit.Load() != 1 {
		t.Fatal("close after cancel released resources twice")
	}
}

func TestStartPlaybackFeedsDevice(t *testing.T) {
	fake := installFakeDevice(t, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, err := StartPlayback(ctx)
	if err != nil {
		t.Fatalf("StartPlayback() error: %v", err)
	}
	if fake.config.Playback.Format != malgo.FormatS16 || fake.config.Playback.Channels != Channels {
		t.Fatalf("playback config = %+v", fake.config.Playback)
	}

	p.Write([]int16{7, 8})
	out := make([]byte, 6)
	fake.callbacks.Data(out, nil, 0)
	if decodeInt16LE(out, 0) != 7 || decodeInt16LE(out, 1) != 8 || decodeInt16LE(out, 2) != 0 {
		t.Fatalf("output = %v, want 7 8 then silence", out)
	}

	cancel()
	waitFor(t, 200*time.Millisecond, func() bool {
		return fake.deviceUninit.Load() == 1 && fake.ctxUninit.Load() == 1
	})
}
