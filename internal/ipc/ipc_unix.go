//go:build !windows

package ipc

import (
	"fmt"
	"net"
	"os"
)

// Listen replaces a stale socket file at addr and restricts the new socket
// to the current user.
func Listen(addr string) (net.Listener, error) {
	if addr == "" {
		return nil, os.ErrInvalid
	}
	if info, err := os.Lstat(addr); err == nil && !info.IsDir() {
		_ = os.Remove(addr)
	}
	ln, err := net.Listen("unix", addr)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(addr, 0o600); err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("restrict ipc socket: %w", err)
	}
	return ln, nil
}

func Dial(addr string) (net.Conn, error) {
	if addr == "" {
		return nil, os.ErrInvalid
	}
	return net.Dial("unix", addr)
}
