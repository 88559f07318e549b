//go:build !linux

package audio

import "fmt"

func newOpusEncoder() (Encoder, error) {
	return nil, fmt.Errorf("%w: opus encoding is linux only", ErrUnsupported)
}
