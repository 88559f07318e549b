package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/Avicted/aicall/internal/call"
	"github.com/Avicted/aicall/internal/callrecord"
	"github.com/Avicted/aicall/internal/ipc"
	"github.com/Avicted/aicall/internal/securelog"
	"github.com/Avicted/aicall/internal/transcript"
)

const recordTimeout = 5 * time.Second

// callDaemon owns one call controller and mirrors its state to every IPC
// client.
type callDaemon struct {
	ctrl    *call.Controller
	records *callrecord.Service
	speaker *speaker
	sts     *callStats

	mu  sync.Mutex
	ipc *ipcServer
	wg  sync.WaitGroup
}

type daemonDeps struct {
	Call    call.Config
	Timing  call.Timing
	Deps    call.Deps
	Records *callrecord.Service
	Speaker *speaker
}

func newCallDaemon(d daemonDeps) (*callDaemon, error) {
	daemon := &callDaemon{
		records: d.Records,
		speaker: d.Speaker,
		sts:     newCallStats(),
	}
	deps := d.Deps
	deps.Listener = daemon
	ctrl, err := call.NewController(d.Call, d.Timing, deps)
	if err != nil {
		return nil, err
	}
	daemon.ctrl = ctrl
	return daemon, nil
}

func (d *callDaemon) Run(ctx context.Context, ipcAddr string) error {
	go d.sts.LogLoop(ctx)
	go logCPUUsage(ctx)

	server := newIPCServer(ipcAddr, d.handleIPCCommand)
	server.greeter = func() ipc.Message { return d.stateEvent(true) }
	d.mu.Lock()
	d.ipc = server
	d.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run(ctx)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			runErr = fmt.Errorf("ipc server failed: %w", err)
		}
	}

	d.ctrl.EndCall()
	d.wg.Wait()
	_ = server.Close()
	d.speaker.Close()
	return runErr
}

func (d *callDaemon) handleIPCCommand(ctx context.Context, msg ipc.Message) (ipc.Message, error) {
	switch msg.Cmd {
	case ipc.CommandStartCall:
		// Starting can take a while (dial, device open); progress and
		// failures reach clients as broadcasts.
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.startCall(ctx)
		}()
		return ipc.Message{}, nil
	case ipc.CommandEndCall:
		d.ctrl.EndCall()
		return d.stateEvent(false), nil
	case ipc.CommandSendMessage:
		text := strings.TrimSpace(msg.Text)
		if text == "" {
			return ipc.Message{}, fmt.Errorf("text is required")
		}
		if err := d.ctrl.SendMessage(ctx, text); err != nil {
			return ipc.Message{}, err
		}
		return ipc.Message{}, nil
	case ipc.CommandState:
		return d.stateEvent(true), nil
	case ipc.CommandClear:
		if err := d.ctrl.ClearTranscript(); err != nil {
			return ipc.Message{}, err
		}
		d.broadcast(ipc.Message{Event: ipc.EventCleared})
		return ipc.Message{}, nil
	case ipc.CommandPing:
		return ipc.Message{Event: ipc.EventPong}, nil
	default:
		return ipc.Message{}, fmt.Errorf("unknown command")
	}
}

func (d *callDaemon) startCall(ctx context.Context) {
	err := d.ctrl.StartCall(ctx)
	if err == nil || errors.Is(err, call.ErrStartAborted) {
		return
	}
	d.broadcast(ipc.Message{Event: ipc.EventError, Error: err.Error()})
}

func (d *callDaemon) stateEvent(withMessages bool) ipc.Message {
	state := toIPCState(d.ctrl.State())
	msg := ipc.Message{Event: ipc.EventState, State: &state}
	if withMessages {
		for _, m := range d.ctrl.Messages() {
			msg.Messages = append(msg.Messages, toIPCTranscript(m))
		}
	}
	return msg
}

func (d *callDaemon) StateChanged(s call.SessionState) {
	state := toIPCState(s)
	d.broadcast(ipc.Message{Event: ipc.EventState, State: &state})
}

func (d *callDaemon) MessageAppended(m transcript.Message) {
	d.sts.RecordMessage(m.Speaker)
	t := toIPCTranscript(m)
	d.broadcast(ipc.Message{Event: ipc.EventMessage, Message: &t})
}

func (d *callDaemon) CallEnded(s call.Summary) {
	d.sts.RecordCall(s)
	d.broadcast(ipc.Message{Event: ipc.EventCallEnded, Summary: &ipc.Summary{
		CallID:     s.CallID,
		Reason:     s.Reason,
		DurationMS: s.EndedAt.Sub(s.StartedAt).Milliseconds(),
		Utterances: s.Utterances,
		Messages:   s.Messages,
	}})

	if d.records == nil {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if _, err := d.records.Record(ctx, s); err != nil {
			if errors.Is(err, callrecord.ErrInvalidInput) {
				log.Printf("call record skipped: call_id=%s", s.CallID)
				return
			}
			securelog.Error("save call record", err)
		}
	}()
}

func (d *callDaemon) broadcast(msg ipc.Message) {
	d.mu.Lock()
	server := d.ipc
	d.mu.Unlock()
	if server != nil {
		server.Broadcast(msg)
	}
}

func toIPCState(s call.SessionState) ipc.State {
	return ipc.State{
		Active:    s.Active,
		Listening: s.Listening,
		Thinking:  s.Thinking,
		Speaking:  s.Speaking,
		Status:    string(s.Status()),
		Error:     s.Error,
	}
}

func toIPCTranscript(m transcript.Message) ipc.Transcript {
	return ipc.Transcript{
		ID:        m.ID,
		Speaker:   string(m.Speaker),
		Text:      m.Text,
		Timestamp: m.Timestamp,
	}
}
