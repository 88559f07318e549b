package call

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Avicted/aicall/internal/audio"
	"github.com/Avicted/aicall/internal/transcript"
	"github.com/Avicted/aicall/internal/vad"
	"github.com/Avicted/aicall/internal/voice"
)

type fakeService struct {
	obs voice.Observer

	mu          sync.Mutex
	connects    int
	disconnects int
	audio       [][]byte
	texts       []string
	spoken      []string
	played      int
	connectErr  error
	audioErr    error
	textErr     error
	audioGate   chan struct{}
	playGate    chan struct{}
	sent        chan struct{}
}

func (s *fakeService) Connect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connects++
	return s.connectErr
}

func (s *fakeService) SendAudio(ctx context.Context, data []byte, _ string) error {
	s.mu.Lock()
	gate := s.audioGate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	s.audio = append(s.audio, data)
	err := s.audioErr
	s.mu.Unlock()
	s.signal()
	return err
}

func (s *fakeService) SendText(_ context.Context, text, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	return s.textErr
}

func (s *fakeService) SpeakText(_ context.Context, text, _ string) error {
	s.mu.Lock()
	s.spoken = append(s.spoken, text)
	s.mu.Unlock()
	s.signal()
	return nil
}

func (s *fakeService) PlayAudio(ctx context.Context, _ []byte) error {
	s.mu.Lock()
	gate := s.playGate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	s.played++
	s.mu.Unlock()
	s.signal()
	return nil
}

func (s *fakeService) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnects++
}

func (s *fakeService) signal() {
	if s.sent == nil {
		return
	}
	select {
	case s.sent <- struct{}{}:
	default:
	}
}

func (s *fakeService) counts() (connects, disconnects, audio, spoken int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connects, s.disconnects, len(s.audio), len(s.spoken)
}

type fakeMic struct {
	mu        sync.Mutex
	level     float64
	clipSize  int
	startErr  error
	starts    int
	stops     int
	closes    int
	recording bool
}

func newFakeMic() *fakeMic {
	return &fakeMic{level: audio.SilenceFloorDB, clipSize: 8000}
}

func (m *fakeMic) Loudness() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

func (m *fakeMic) setLevel(db float64) {
	m.mu.Lock()
	m.level = db
	m.mu.Unlock()
}

func (m *fakeMic) StartRecording() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return m.startErr
	}
	if m.recording {
		return audio.ErrRecorderActive
	}
	m.recording = true
	m.starts++
	return nil
}

func (m *fakeMic) StopRecording() (audio.Clip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.recording {
		return audio.Clip{}, audio.ErrRecorderIdle
	}
	m.recording = false
	m.stops++
	return audio.Clip{Data: make([]byte, m.clipSize), Format: audio.CodecWAV, Duration: time.Second}, nil
}

func (m *fakeMic) Recording() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recording
}

func (m *fakeMic) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
	return nil
}

func (m *fakeMic) setClipSize(n int) {
	m.mu.Lock()
	m.clipSize = n
	m.mu.Unlock()
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingListener struct {
	mu       sync.Mutex
	states   []SessionState
	messages []transcript.Message
	ended    []Summary
}

func (l *recordingListener) StateChanged(s SessionState) {
	l.mu.Lock()
	l.states = append(l.states, s)
	l.mu.Unlock()
}

func (l *recordingListener) MessageAppended(m transcript.Message) {
	l.mu.Lock()
	l.messages = append(l.messages, m)
	l.mu.Unlock()
}

func (l *recordingListener) CallEnded(s Summary) {
	l.mu.Lock()
	l.ended = append(l.ended, s)
	l.mu.Unlock()
}

func (l *recordingListener) endedCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ended)
}

// harness wires a controller to fresh fakes. Each StartCall gets a new
// fakeService, mirroring a real reconnect.
type harness struct {
	t        *testing.T
	c        *Controller
	mic      *fakeMic
	clock    *fakeClock
	listener *recordingListener

	mu         sync.Mutex
	services   []*fakeService
	connectErr error
	micErr     error
	capErr     error
	micCtx     context.Context
}

func testTiming() Timing {
	timing := DefaultTiming()
	timing.GreetingDelay = 10 * time.Millisecond
	timing.InactivityArmDelay = 20 * time.Millisecond
	timing.Inactivity = time.Hour
	return timing
}

func newHarness(t *testing.T, timing Timing) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		mic:      newFakeMic(),
		clock:    &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)},
		listener: &recordingListener{},
	}
	deps := Deps{
		NewService: func(_ Config, obs voice.Observer) (voice.Service, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			svc := &fakeService{obs: obs, connectErr: h.connectErr, sent: make(chan struct{}, 16)}
			h.services = append(h.services, svc)
			return svc, nil
		},
		OpenMicrophone: func(ctx context.Context) (Microphone, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.micCtx = ctx
			if h.micErr != nil {
				return nil, h.micErr
			}
			return h.mic, nil
		},
		Capability: func() error {
			h.mu.Lock()
			defer h.mu.Unlock()
			return h.capErr
		},
		Listener: h.listener,
		Now:      h.clock.Now,
	}
	c, err := NewController(testConfig(), timing, deps)
	if err != nil {
		t.Fatalf("NewController() error: %v", err)
	}
	h.c = c
	t.Cleanup(c.EndCall)
	return h
}

func testConfig() Config {
	return Config{
		CallID:        "call-1",
		UserID:        "user-1",
		CallType:      CallVoice,
		VoiceSettings: VoiceSettings{Voice: "nova", Speed: 1},
	}
}

func (h *harness) start() *fakeService {
	h.t.Helper()
	if err := h.c.StartCall(context.Background()); err != nil {
		h.t.Fatalf("StartCall() error: %v", err)
	}
	return h.lastService()
}

func (h *harness) microphoneContext() context.Context {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.micCtx
}

func (h *harness) lastService() *fakeService {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.services) == 0 {
		return nil
	}
	return h.services[len(h.services)-1]
}

func (h *harness) serviceCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.services)
}

func (h *harness) gen() uint64 {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	if h.c.sess == nil {
		h.t.Fatal("no active session")
	}
	return h.c.sess.gen
}

func (h *harness) messages(speaker transcript.Speaker) []transcript.Message {
	var out []transcript.Message
	for _, m := range h.c.Messages() {
		if m.Speaker == speaker {
			out = append(out, m)
		}
	}
	return out
}

// waitSendDone blocks until the controller has no utterance in flight.
func (h *harness) waitSendDone() {
	h.t.Helper()
	eventually(h.t, time.Second, func() bool {
		h.c.mu.Lock()
		defer h.c.mu.Unlock()
		return !h.c.inFlight
	})
}

func eventually(t *testing.T, timeout time.Duration, cond func() bool) {
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

func never(t *testing.T, window time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(window)
	for time.Now().Before(deadline) {
		if cond() {
			t.Fatal("condition unexpectedly met")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

var errBoom = errors.New("boom")

func fastVAD() vad.Config {
	return vad.Config{
		ThresholdDB:   vad.DefaultThresholdDB,
		SilenceWindow: 150 * time.Millisecond,
		PollInterval:  10 * time.Millisecond,
	}
}
