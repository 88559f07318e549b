package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/Avicted/aicall/internal/audio"
)

const (
	voicePath    = "/v1/voice"
	writeTimeout = 5 * time.Second
	// DefaultRawAudioRate is assumed for synthesized audio that arrives
	// without a WAV header.
	DefaultRawAudioRate = 24000
)

// Session describes the call to the backend in the opening frame.
type Session struct {
	CallID   string  `json:"call_id"`
	UserID   string  `json:"user_id"`
	CallType string  `json:"call_type"`
	Model    string  `json:"model,omitempty"`
	Language string  `json:"language,omitempty"`
	Voice    string  `json:"voice"`
	Speed    float64 `json:"speed"`
}

type Options struct {
	ServerURL string
	Token     string
	Session   Session
	// AudioFormat names the codec of utterances passed to SendAudio.
	AudioFormat  string
	RawAudioRate int
}

// Player renders decoded speech. *audio.Playback satisfies it.
type Player interface {
	Play(ctx context.Context, samples []int16) error
}

type outbound struct {
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	Voice  string `json:"voice,omitempty"`
	Format string `json:"format,omitempty"`
	Bytes  int    `json:"bytes,omitempty"`
}

// sessionFrame opens the conversation; Session fields are flattened into it.
type sessionFrame struct {
	Type string `json:"type"`
	Session
}

type inbound struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

// Client is the websocket implementation of Service.
type Client struct {
	opts   Options
	obs    Observer
	player Player

	mu       sync.Mutex
	conn     *websocket.Conn
	ctx      context.Context
	cancel   context.CancelFunc
	closed   bool
	readDone chan struct{}
}

func NewClient(opts Options, obs Observer, player Player) *Client {
	if opts.RawAudioRate <= 0 {
		opts.RawAudioRate = DefaultRawAudioRate
	}
	if opts.AudioFormat == "" {
		opts.AudioFormat = audio.CodecWAV
	}
	return &Client{opts: opts, obs: obs, player: player}
}

func voiceURL(serverURL string) string {
	wsURL := strings.Replace(serverURL, "https://", "wss://", 1)
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	return strings.TrimRight(wsURL, "/") + voicePath
}

// Connect dials the backend, announces the session and starts reading
// events. ctx bounds the dial only.
func (c *Client) Connect(ctx context.Context) error {
	if strings.TrimSpace(c.opts.Token) == "" {
		return ErrNotAuthenticated
	}

	c.mu.Lock()
	if c.conn != nil || c.closed {
		c.mu.Unlock()
		return fmt.Errorf("voice client already used")
	}
	c.mu.Unlock()

	options := &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + c.opts.Token}},
	}
	conn, _, err := websocket.Dial(ctx, voiceURL(c.opts.ServerURL), options)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	conn.SetReadLimit(16 << 20)

	connCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		cancel()
		_ = conn.Close(websocket.StatusNormalClosure, "call ended")
		return ErrNotConnected
	}
	c.conn = conn
	c.ctx = connCtx
	c.cancel = cancel
	c.readDone = make(chan struct{})
	c.mu.Unlock()

	frame := sessionFrame{Type: "session", Session: c.opts.Session}
	if err := c.writeJSON(ctx, frame.Type, frame, nil); err != nil {
		c.Disconnect()
		return fmt.Errorf("send session: %w", err)
	}

	go c.readLoop()
	return nil
}

func (c *Client) SendAudio(ctx context.Context, data []byte, voice string) error {
	msg := outbound{Type: "audio", Voice: voice, Format: c.opts.AudioFormat, Bytes: len(data)}
	return c.writeJSON(ctx, msg.Type, msg, data)
}

func (c *Client) SendText(ctx context.Context, text, voice string) error {
	return c.writeJSON(ctx, "text", outbound{Type: "text", Text: text, Voice: voice}, nil)
}

func (c *Client) SpeakText(ctx context.Context, text, voice string) error {
	return c.writeJSON(ctx, "speak", outbound{Type: "speak", Text: text, Voice: voice}, nil)
}

// PlayAudio decodes synthesized speech and blocks until it has been played.
func (c *Client) PlayAudio(ctx context.Context, data []byte) error {
	if c.player == nil {
		return ErrNoPlayer
	}
	samples, err := audio.DecodeSpeech(data, c.opts.RawAudioRate)
	if err != nil {
		return fmt.Errorf("decode speech: %w", err)
	}
	return c.player.Play(ctx, samples)
}

// writeJSON sends msg and, when payload is non-nil, a binary frame right
// behind it. The mutex keeps the pair adjacent on the wire.
func (c *Client) writeJSON(ctx context.Context, kind string, msg any, payload []byte) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.conn == nil {
		return ErrNotConnected
	}
	writeCtx, writeCancel := context.WithTimeout(ctx, writeTimeout)
	defer writeCancel()
	if err := c.conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("write %s: %w", kind, err)
	}
	if payload != nil {
		if err := c.conn.Write(writeCtx, websocket.MessageBinary, payload); err != nil {
			return fmt.Errorf("write %s payload: %w", kind, err)
		}
	}
	return nil
}

func (c *Client) readLoop() {
	defer close(c.readDone)
	for {
		typ, data, err := c.conn.Read(c.ctx)
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				log.Printf("voice read loop ended: %v", err)
				c.obs.OnError(DisconnectedMessage)
			}
			return
		}
		if typ == websocket.MessageBinary {
			c.obs.OnAudio(data)
			continue
		}
		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg inbound) {
	switch strings.TrimSpace(msg.Type) {
	case "connected":
		c.obs.OnConnected()
	case "transcription":
		c.obs.OnTranscription(msg.Text)
	case "response":
		c.obs.OnResponse(msg.Text)
	case "status":
		c.obs.OnStatus(msg.Status, msg.Message)
	case "error":
		message := msg.Message
		if message == "" {
			message = "voice service error"
		}
		c.obs.OnError(message)
	}
}

// Disconnect closes the connection. Safe to call repeatedly and before
// Connect.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
	if c.conn != nil {
		_ = c.conn.Close(websocket.StatusNormalClosure, "call ended")
	}
}
