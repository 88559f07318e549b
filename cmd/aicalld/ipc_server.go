package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"github.com/Avicted/aicall/internal/ipc"
)

// ipcWriteTimeout bounds a single event write so a stalled client cannot
// hold up controller callbacks.
const ipcWriteTimeout = time.Second

type ipcServer struct {
	addr    string
	mu      sync.Mutex
	ln      net.Listener
	conns   map[net.Conn]*ipcConn
	h       ipcHandler
	greeter func() ipc.Message
}

type ipcHandler func(ctx context.Context, msg ipc.Message) (ipc.Message, error)

type ipcConn struct {
	conn net.Conn
	enc  *json.Encoder
	mu   sync.Mutex
}

func (c *ipcConn) send(msg ipc.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(ipcWriteTimeout))
	return c.enc.Encode(msg)
}

func newIPCServer(addr string, handler ipcHandler) *ipcServer {
	return &ipcServer{addr: addr, h: handler}
}

func (s *ipcServer) Run(ctx context.Context) error {
	ln, err := ipc.Listen(s.addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	if s.conns == nil {
		s.conns = make(map[net.Conn]*ipcConn)
	}
	s.mu.Unlock()
	log.Printf("ipc listening: addr=%s", s.addr)

	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *ipcServer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		_ = s.ln.Close()
		s.ln = nil
	}
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.conns = make(map[net.Conn]*ipcConn)
	return nil
}

// Broadcast sends msg to every client. Clients that fail a write are
// disconnected.
func (s *ipcServer) Broadcast(msg ipc.Message) {
	s.mu.Lock()
	conns := make([]*ipcConn, 0, len(s.conns))
	for _, conn := range s.conns {
		conns = append(conns, conn)
	}
	s.mu.Unlock()
	for _, conn := range conns {
		if err := conn.send(msg); err != nil {
			log.Printf("ipc broadcast failed, dropping client: %v", err)
			s.untrackConn(conn.conn)
			_ = conn.conn.Close()
		}
	}
}

func (s *ipcServer) clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *ipcServer) handleConn(ctx context.Context, conn net.Conn) {
	enc := ipc.NewEncoder(conn)
	dec := ipc.NewDecoder(conn)
	state := &ipcConn{conn: conn, enc: enc}

	s.trackConn(state)
	ready := ipc.Message{Event: ipc.EventReady}
	if s.greeter != nil {
		ready = s.greeter()
		ready.Event = ipc.EventReady
	}
	_ = state.send(ready)

	for {
		var msg ipc.Message
		if err := dec.Decode(&msg); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.Printf("ipc decode error: %v", err)
			}
			break
		}
		if msg.Cmd == "" {
			continue
		}
		s.handleCommand(ctx, msg, state)
	}

	s.untrackConn(conn)
	_ = conn.Close()
}

func (s *ipcServer) handleCommand(ctx context.Context, msg ipc.Message, state *ipcConn) {
	if s.h == nil {
		s.sendError(state, "ipc handler unavailable")
		return
	}
	resp, err := s.h(ctx, msg)
	if err != nil {
		s.sendError(state, err.Error())
		return
	}
	if resp.Event == "" {
		return
	}
	_ = state.send(resp)
}

func (s *ipcServer) sendError(state *ipcConn, message string) {
	_ = state.send(ipc.Message{Event: ipc.EventError, Error: message})
}

func (s *ipcServer) trackConn(state *ipcConn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns == nil {
		s.conns = make(map[net.Conn]*ipcConn)
	}
	s.conns[state.conn] = state
}

func (s *ipcServer) untrackConn(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}
