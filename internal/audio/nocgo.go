//go:build !linux

package audio

import (
	"context"
	"fmt"
)

type Capture struct{}

type Playback struct{}

func CheckCapability() error {
	return fmt.Errorf("%w: linux only", ErrUnsupported)
}

func StartCapture(context.Context) (*Capture, <-chan []int16, error) {
	return nil, nil, fmt.Errorf("%w: capture is linux only", ErrUnsupported)
}

func (c *Capture) Close() error {
	return nil
}

func StartPlayback(context.Context) (*Playback, error) {
	return nil, fmt.Errorf("%w: playback is linux only", ErrUnsupported)
}

func (p *Playback) Write([]int16) {}

func (p *Playback) Play(context.Context, []int16) error {
	return fmt.Errorf("%w: playback is linux only", ErrUnsupported)
}

func (p *Playback) Pending() int { return 0 }

func (p *Playback) Flush() {}

func (p *Playback) Close() error {
	return nil
}
