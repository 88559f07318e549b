package call

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/Avicted/aicall/internal/metrics"
	"github.com/Avicted/aicall/internal/securelog"
	"github.com/Avicted/aicall/internal/transcript"
	"github.com/Avicted/aicall/internal/voice"
)

// observer routes backend events to the session generation that created it;
// events for an ended session are ignored.
type observer struct {
	c   *Controller
	gen uint64
}

func (o *observer) OnConnected()                    { o.c.handleConnected(o.gen) }
func (o *observer) OnTranscription(text string)     { o.c.handleTranscription(o.gen, text) }
func (o *observer) OnResponse(text string)          { o.c.handleResponse(o.gen, text) }
func (o *observer) OnAudio(data []byte)             { o.c.handleAudio(o.gen, data) }
func (o *observer) OnStatus(status, message string) { o.c.handleStatus(o.gen, status, message) }
func (o *observer) OnError(message string)          { o.c.handleError(o.gen, message) }

func (c *Controller) handleConnected(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(gen) {
		return
	}
	log.Printf("voice service connected: call_id=%s", c.cfg.CallID)
	if c.greeted {
		return
	}
	c.greeted = true
	c.greetTimer = time.AfterFunc(c.timing.GreetingDelay, func() {
		c.greet(gen)
	})
	c.armTimer = time.AfterFunc(c.timing.InactivityArmDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.currentLocked(gen) {
			c.resetInactivityLocked(gen)
		}
	})
}

func (c *Controller) greet(gen uint64) {
	c.mu.Lock()
	if !c.currentLocked(gen) || c.sess.svc == nil {
		c.mu.Unlock()
		return
	}
	sess := c.sess
	msg := c.appendLocked(transcript.SpeakerAI, Greeting)
	c.mu.Unlock()
	c.notifyMessage(msg)

	if err := sess.svc.SpeakText(sess.ctx, Greeting, c.cfg.Voice()); err != nil && sess.ctx.Err() == nil {
		metrics.SendErrors.WithLabelValues(metrics.SendSpeak).Inc()
		securelog.Error("speak greeting", err)
	}
}

func (c *Controller) handleTranscription(gen uint64, text string) {
	c.mu.Lock()
	if !c.currentLocked(gen) {
		c.mu.Unlock()
		return
	}
	if voice.IsNoiseTranscript(text) {
		c.mu.Unlock()
		metrics.TranscriptsFiltered.Inc()
		securelog.Text("ignored noise transcription", text)
		return
	}
	msg := c.appendLocked(transcript.SpeakerUser, text)
	c.resetInactivityLocked(gen)
	c.mu.Unlock()
	c.notifyMessage(msg)
}

func (c *Controller) handleResponse(gen uint64, text string) {
	c.mu.Lock()
	if !c.currentLocked(gen) {
		c.mu.Unlock()
		return
	}
	c.thinking = false
	if !c.replyStart.IsZero() {
		metrics.ReplyLatency.Observe(c.deps.Now().Sub(c.replyStart).Seconds())
		c.replyStart = time.Time{}
	}
	var msg transcript.Message
	appended := strings.TrimSpace(text) != ""
	if appended {
		msg = c.appendLocked(transcript.SpeakerAI, text)
	}
	c.mu.Unlock()

	if appended {
		c.notifyMessage(msg)
	}
	c.notify()
}

func (c *Controller) handleAudio(gen uint64, data []byte) {
	c.mu.Lock()
	if !c.currentLocked(gen) || len(data) == 0 {
		c.mu.Unlock()
		return
	}
	select {
	case c.sess.plays <- data:
		c.playing++
	default:
		log.Printf("playback queue full, dropping audio: bytes=%d", len(data))
	}
	c.mu.Unlock()
	c.notify()
}

// playbackLoop plays synthesized audio for one session in arrival order.
func (c *Controller) playbackLoop(sess *session, svc voice.Service) {
	for {
		select {
		case <-sess.ctx.Done():
			return
		case data := <-sess.plays:
			err := svc.PlayAudio(sess.ctx, data)

			c.mu.Lock()
			current := c.currentLocked(sess.gen)
			if current && c.playing > 0 {
				c.playing--
			}
			c.mu.Unlock()

			if err != nil && sess.ctx.Err() == nil {
				metrics.SendErrors.WithLabelValues(metrics.SendPlay).Inc()
				securelog.Error("play synthesized audio", err)
			}
			if current {
				c.notify()
			}
		}
	}
}

func (c *Controller) handleStatus(gen uint64, status, message string) {
	c.mu.Lock()
	if !c.currentLocked(gen) {
		c.mu.Unlock()
		return
	}
	log.Printf("voice status: status=%s", status)
	switch status {
	case voice.StatusProcessing:
		c.thinking = true
	case voice.StatusComplete:
		c.thinking = false
	default:
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) handleError(gen uint64, message string) {
	c.mu.Lock()
	if !c.currentLocked(gen) {
		c.mu.Unlock()
		return
	}
	c.errMsg = message
	c.thinking = false
	c.mu.Unlock()

	securelog.Error("voice service", errors.New(message))
	c.notify()
}
