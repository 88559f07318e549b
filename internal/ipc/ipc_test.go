package ipc

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestNewEncoderDecoderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	if enc == nil {
		t.Fatalf("expected non-nil encoder")
	}

	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	want := Message{
		Event:   EventMessage,
		Message: &Transcript{ID: "user-1", Speaker: "user", Text: "hello", Timestamp: at},
	}
	if err := enc.Encode(want); err != nil {
		t.Fatalf("encode message: %v", err)
	}

	dec := NewDecoder(&buf)
	if dec == nil {
		t.Fatalf("expected non-nil decoder")
	}

	var got Message
	if err := dec.Decode(&got); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if got.Event != want.Event || got.Message == nil || got.Message.Text != "hello" || !got.Message.Timestamp.Equal(at) {
		t.Fatalf("unexpected round-trip payload: %#v", got)
	}
}

func TestCommandOmitsEmptyFields(t *testing.T) {
	var buf bytes.Buffer
	if err := NewEncoder(&buf).Encode(Message{Cmd: CommandSendMessage, Text: "hi"}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	got := strings.TrimSpace(buf.String())
	if got != `{"cmd":"send_message","text":"hi"}` {
		t.Fatalf("encoded = %s", got)
	}
}

func TestStateKeepsFalseFlags(t *testing.T) {
	var buf bytes.Buffer
	if err := NewEncoder(&buf).Encode(Message{Event: EventState, State: &State{Status: "idle"}}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(buf.String(), `"active":false`) {
		t.Fatalf("encoded state dropped false flags: %s", buf.String())
	}
}
