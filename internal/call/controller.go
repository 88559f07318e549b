// Package call runs a hands-free voice call: it owns the backend connection,
// the microphone and the voice activity detector for one session at a time,
// and keeps the conversation transcript.
package call

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/Avicted/aicall/internal/audio"
	"github.com/Avicted/aicall/internal/metrics"
	"github.com/Avicted/aicall/internal/securelog"
	"github.com/Avicted/aicall/internal/transcript"
	"github.com/Avicted/aicall/internal/vad"
	"github.com/Avicted/aicall/internal/voice"
)

const playQueueSize = 16

var (
	errSessionGone       = errors.New("call session no longer active")
	errUtteranceInFlight = errors.New("previous utterance still being sent")
)

// Microphone is the capture side of a session. *audio.Microphone satisfies it.
type Microphone interface {
	Loudness() float64
	StartRecording() error
	StopRecording() (audio.Clip, error)
	Recording() bool
	Close() error
}

type ServiceFactory func(cfg Config, obs voice.Observer) (voice.Service, error)

type MicrophoneOpener func(ctx context.Context) (Microphone, error)

// Listener is told about state changes, new transcript messages and ended
// sessions. Calls are made without the controller lock held.
type Listener interface {
	StateChanged(SessionState)
	MessageAppended(transcript.Message)
	CallEnded(Summary)
}

type Deps struct {
	NewService     ServiceFactory
	OpenMicrophone MicrophoneOpener
	// Capability defaults to audio.CheckCapability.
	Capability func() error
	Listener   Listener
	Now        func() time.Time
}

// session holds everything a single call owns. It is released by exactly
// one teardown.
type session struct {
	gen    uint64
	ctx    context.Context
	cancel context.CancelFunc
	svc    voice.Service
	mic    Microphone
	det    *vad.Detector
	plays  chan []byte
	ready  bool

	startedAt  time.Time
	utterances int
	messages   int
}

type teardown struct {
	sess    *session
	summary *Summary
}

type Controller struct {
	cfg    Config
	timing Timing
	deps   Deps
	store  *transcript.Store

	mu          sync.Mutex
	sess        *session
	gen         uint64
	listening   bool
	thinking    bool
	playing     int
	inFlight    bool
	greeted     bool
	errMsg      string
	lastProcess time.Time
	replyStart  time.Time

	greetTimer      *time.Timer
	armTimer        *time.Timer
	inactivityTimer *time.Timer
}

func NewController(cfg Config, timing Timing, deps Deps) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid call config: %w", err)
	}
	if err := timing.VAD.Validate(); err != nil {
		return nil, err
	}
	if deps.NewService == nil || deps.OpenMicrophone == nil {
		return nil, errors.New("service factory and microphone opener are required")
	}
	if deps.Capability == nil {
		deps.Capability = audio.CheckCapability
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Controller{
		cfg:    cfg,
		timing: timing,
		deps:   deps,
		store:  transcript.NewStore(),
	}, nil
}

func (c *Controller) Config() Config {
	return c.cfg
}

// StartCall connects the backend, opens the microphone and starts voice
// detection. It does nothing when a session already exists. On failure every
// acquired resource is released and the error is also stored in State().Error.
func (c *Controller) StartCall(ctx context.Context) error {
	c.mu.Lock()
	if c.sess != nil {
		c.mu.Unlock()
		log.Printf("call already initialized: call_id=%s", c.cfg.CallID)
		return nil
	}
	c.gen++
	sessCtx, cancel := context.WithCancel(context.Background())
	sess := &session{
		gen:    c.gen,
		ctx:    sessCtx,
		cancel: cancel,
		plays:  make(chan []byte, playQueueSize),
	}
	c.sess = sess
	c.errMsg = ""
	c.mu.Unlock()
	c.notify()

	log.Printf("starting call: call_id=%s type=%s", c.cfg.CallID, c.cfg.CallType)

	if err := c.deps.Capability(); err != nil {
		return c.abortStart(sess, fmt.Errorf("%w: %w", ErrCapability, err))
	}

	svc, err := c.deps.NewService(c.cfg, &observer{c: c, gen: sess.gen})
	if err != nil {
		return c.abortStart(sess, fmt.Errorf("%w: %w", ErrConnection, err))
	}
	c.mu.Lock()
	if c.sess != sess {
		c.mu.Unlock()
		svc.Disconnect()
		return ErrStartAborted
	}
	sess.svc = svc
	c.mu.Unlock()
	go c.playbackLoop(sess, svc)

	if err := svc.Connect(ctx); err != nil {
		return c.abortStart(sess, fmt.Errorf("%w: %w", ErrConnection, err))
	}

	mic, err := c.deps.OpenMicrophone(sess.ctx)
	if err != nil {
		return c.abortStart(sess, fmt.Errorf("%w: %w", ErrDeviceAccess, err))
	}
	det, err := vad.New(c.timing.VAD, mic, &captureHandler{c: c, gen: sess.gen})
	if err != nil {
		_ = mic.Close()
		return c.abortStart(sess, err)
	}

	c.mu.Lock()
	if c.sess != sess {
		c.mu.Unlock()
		_ = mic.Close()
		return ErrStartAborted
	}
	sess.mic = mic
	sess.det = det
	sess.ready = true
	sess.startedAt = c.deps.Now()
	c.resetInactivityLocked(sess.gen)
	det.Start()
	c.mu.Unlock()

	metrics.CallsActive.Inc()
	metrics.CallsTotal.Inc()
	log.Printf("call started: call_id=%s voice=%s", c.cfg.CallID, c.cfg.Voice())
	c.notify()
	return nil
}

func (c *Controller) abortStart(sess *session, err error) error {
	log.Printf("start call failed: call_id=%s err=%v", c.cfg.CallID, err)
	c.mu.Lock()
	var td *teardown
	if c.sess == sess {
		td = c.detachLocked(EndUser)
		c.errMsg = err.Error()
	}
	c.mu.Unlock()
	c.release(td)
	return err
}

// EndCall tears the active session down. It is a no-op without a session
// and returns once voice detection has stopped.
func (c *Controller) EndCall() {
	c.mu.Lock()
	td := c.detachLocked(EndUser)
	c.mu.Unlock()
	c.release(td)
}

// detachLocked unhooks the session and resets every flag. The returned
// teardown must be released after c.mu is unlocked.
func (c *Controller) detachLocked(reason string) *teardown {
	sess := c.sess
	if sess == nil {
		return nil
	}
	c.sess = nil
	c.gen++
	for _, t := range []**time.Timer{&c.greetTimer, &c.armTimer, &c.inactivityTimer} {
		if *t != nil {
			(*t).Stop()
			*t = nil
		}
	}
	c.listening = false
	c.thinking = false
	c.playing = 0
	c.inFlight = false
	c.greeted = false
	c.lastProcess = time.Time{}
	c.replyStart = time.Time{}

	td := &teardown{sess: sess}
	if sess.ready {
		td.summary = &Summary{
			CallID:     c.cfg.CallID,
			UserID:     c.cfg.UserID,
			CallType:   c.cfg.CallType,
			StartedAt:  sess.startedAt,
			EndedAt:    c.deps.Now(),
			Reason:     reason,
			Utterances: sess.utterances,
			Messages:   sess.messages,
		}
	}
	return td
}

func (c *Controller) release(td *teardown) {
	if td == nil {
		return
	}
	s := td.sess
	s.cancel()
	if s.det != nil {
		if s.det.Recording() {
			log.Printf("discarding utterance in progress: call_id=%s", c.cfg.CallID)
		}
		s.det.Stop()
	}
	if s.mic != nil {
		if s.mic.Recording() {
			if _, err := s.mic.StopRecording(); err != nil {
				log.Printf("stop recording: %v", err)
			}
		}
		if err := s.mic.Close(); err != nil {
			log.Printf("close microphone: %v", err)
		}
	}
	if s.svc != nil {
		s.svc.Disconnect()
	}
	if s.ready {
		metrics.CallsActive.Dec()
	}
	c.notify()
	if td.summary != nil {
		log.Printf("call ended: call_id=%s reason=%s utterances=%d", td.summary.CallID, td.summary.Reason, td.summary.Utterances)
		if c.deps.Listener != nil {
			c.deps.Listener.CallEnded(*td.summary)
		}
	}
}

// SendMessage sends a typed user turn. The user message is kept in the
// transcript even when sending fails.
func (c *Controller) SendMessage(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	c.mu.Lock()
	msg := c.appendLocked(transcript.SpeakerUser, text)
	sess := c.sess
	if sess == nil || sess.svc == nil {
		c.thinking = false
		c.errMsg = ErrServiceNotInitialized.Error()
		c.mu.Unlock()
		c.notifyMessage(msg)
		c.notify()
		return ErrServiceNotInitialized
	}
	gen := sess.gen
	c.thinking = true
	c.replyStart = c.deps.Now()
	c.resetInactivityLocked(gen)
	c.mu.Unlock()
	c.notifyMessage(msg)
	c.notify()

	if err := sess.svc.SendText(ctx, text, c.cfg.Voice()); err != nil {
		metrics.SendErrors.WithLabelValues(metrics.SendText).Inc()
		securelog.Error("send message", err)
		c.mu.Lock()
		if c.currentLocked(gen) {
			c.thinking = false
			c.errMsg = err.Error()
		}
		c.mu.Unlock()
		c.notify()
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (c *Controller) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) Status() Status {
	return c.State().Status()
}

// ClearTranscript drops the conversation so the next call starts empty. It
// is refused while a call is active.
func (c *Controller) ClearTranscript() error {
	c.mu.Lock()
	if c.sess != nil {
		c.mu.Unlock()
		return ErrCallActive
	}
	n := c.store.Len()
	c.store.Reset()
	c.mu.Unlock()
	log.Printf("transcript cleared: call_id=%s messages=%d", c.cfg.CallID, n)
	return nil
}

// Messages returns a copy of the transcript.
func (c *Controller) Messages() []transcript.Message {
	return c.store.Snapshot()
}

func (c *Controller) stateLocked() SessionState {
	return SessionState{
		Active:    c.sess != nil,
		Listening: c.listening,
		Thinking:  c.thinking,
		Speaking:  c.thinking || c.playing > 0,
		Error:     c.errMsg,
	}
}

func (c *Controller) currentLocked(gen uint64) bool {
	return c.sess != nil && c.sess.gen == gen
}

func (c *Controller) readyLocked(gen uint64) bool {
	return c.currentLocked(gen) && c.sess.ready
}

func (c *Controller) appendLocked(speaker transcript.Speaker, text string) transcript.Message {
	msg := transcript.NewMessage(speaker, text, c.deps.Now())
	c.store.Append(msg)
	if c.sess != nil {
		c.sess.messages++
	}
	return msg
}

// resetInactivityLocked re-arms the absolute inactivity deadline.
func (c *Controller) resetInactivityLocked(gen uint64) {
	if c.inactivityTimer != nil {
		c.inactivityTimer.Stop()
	}
	c.inactivityTimer = time.AfterFunc(c.timing.Inactivity, func() {
		c.expireInactive(gen)
	})
}

func (c *Controller) expireInactive(gen uint64) {
	c.mu.Lock()
	if !c.currentLocked(gen) {
		c.mu.Unlock()
		return
	}
	c.errMsg = InactivityMessage
	td := c.detachLocked(EndInactivity)
	c.mu.Unlock()

	log.Printf("call inactive for %s, ending: call_id=%s", c.timing.Inactivity, c.cfg.CallID)
	metrics.InactivityTerminations.Inc()
	c.release(td)
}

func (c *Controller) notify() {
	if c.deps.Listener != nil {
		c.deps.Listener.StateChanged(c.State())
	}
}

func (c *Controller) notifyMessage(msg transcript.Message) {
	if c.deps.Listener != nil {
		c.deps.Listener.MessageAppended(msg)
	}
}
