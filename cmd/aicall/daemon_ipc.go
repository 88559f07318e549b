package main

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/Avicted/aicall/internal/ipc"
)

type daemonIPC struct {
	addr string
	mu   sync.Mutex
	conn net.Conn
	enc  *json.Encoder
	dec  *json.Decoder
}

func newDaemonIPC(addr string) *daemonIPC {
	return &daemonIPC{addr: addr}
}

func (d *daemonIPC) send(msg ipc.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureConnLocked(); err != nil {
		return err
	}
	if err := d.enc.Encode(msg); err != nil {
		d.resetLocked()
		return err
	}
	return nil
}

// readLoop forwards daemon events to ch until the connection fails. The
// failure is delivered as an error event and ch is closed.
func (d *daemonIPC) readLoop(ch chan<- ipc.Message) {
	defer close(ch)
	if err := d.ensureConn(); err != nil {
		ch <- ipc.Message{Event: ipc.EventError, Error: err.Error()}
		return
	}
	d.mu.Lock()
	dec := d.dec
	d.mu.Unlock()
	if dec == nil {
		ch <- ipc.Message{Event: ipc.EventError, Error: "daemon ipc decoder not available"}
		return
	}
	for {
		var msg ipc.Message
		if err := dec.Decode(&msg); err != nil {
			d.reset()
			ch <- ipc.Message{Event: ipc.EventError, Error: err.Error()}
			return
		}
		ch <- msg
	}
}

func (d *daemonIPC) close() {
	d.reset()
}

func (d *daemonIPC) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetLocked()
}

func (d *daemonIPC) ensureConn() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ensureConnLocked()
}

func (d *daemonIPC) ensureConnLocked() error {
	if d.addr == "" {
		return fmt.Errorf("daemon ipc address is empty")
	}
	if d.conn == nil {
		conn, err := ipc.Dial(d.addr)
		if err != nil {
			return err
		}
		d.conn = conn
		d.enc = ipc.NewEncoder(conn)
		d.dec = ipc.NewDecoder(conn)
	}
	if d.enc == nil || d.dec == nil {
		return fmt.Errorf("daemon ipc encoder not available")
	}
	return nil
}

func (d *daemonIPC) resetLocked() {
	if d.conn != nil {
		_ = d.conn.Close()
	}
	d.conn = nil
	d.enc = nil
	d.dec = nil
}
