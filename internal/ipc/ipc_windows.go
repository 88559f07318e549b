//go:build windows

package ipc

import (
	"net"
	"os"
	"time"

	"github.com/Microsoft/go-winio"
)

// ownerOnly grants full access to the pipe owner and nobody else.
const ownerOnly = "D:P(A;;GA;;;OW)"

const dialTimeout = 2 * time.Second

func Listen(addr string) (net.Listener, error) {
	if addr == "" {
		return nil, os.ErrInvalid
	}
	return winio.ListenPipe(addr, &winio.PipeConfig{SecurityDescriptor: ownerOnly})
}

func Dial(addr string) (net.Conn, error) {
	if addr == "" {
		return nil, os.ErrInvalid
	}
	timeout := dialTimeout
	return winio.DialPipe(addr, &timeout)
}
