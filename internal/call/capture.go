package call

import (
	"fmt"
	"log"

	"github.com/Avicted/aicall/internal/metrics"
	"github.com/Avicted/aicall/internal/securelog"
)

// captureHandler binds detector callbacks to the session that created them.
type captureHandler struct {
	c   *Controller
	gen uint64
}

func (h *captureHandler) Suppressed() bool {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	return h.c.thinking || h.c.playing > 0
}

func (h *captureHandler) StartCapture() error {
	return h.c.startCapture(h.gen)
}

func (h *captureHandler) StopCapture() bool {
	return h.c.stopCapture(h.gen)
}

func (c *Controller) startCapture(gen uint64) error {
	c.mu.Lock()
	if !c.readyLocked(gen) {
		c.mu.Unlock()
		return errSessionGone
	}
	if c.inFlight {
		c.mu.Unlock()
		return errUtteranceInFlight
	}
	mic := c.sess.mic
	c.mu.Unlock()

	if err := mic.StartRecording(); err != nil {
		return fmt.Errorf("start recording: %w", err)
	}

	c.mu.Lock()
	if c.currentLocked(gen) {
		c.listening = true
	}
	c.mu.Unlock()
	c.notify()
	return nil
}

// stopCapture closes the current utterance. It refuses (returns false) while
// the cooldown since the last processed stop is running, which keeps the
// detector recording until a later stop is accepted.
func (c *Controller) stopCapture(gen uint64) bool {
	c.mu.Lock()
	if !c.readyLocked(gen) {
		c.mu.Unlock()
		return true
	}
	now := c.deps.Now()
	if !c.lastProcess.IsZero() && now.Sub(c.lastProcess) < c.timing.Cooldown {
		c.mu.Unlock()
		metrics.UtterancesDropped.WithLabelValues(metrics.DropCooldown).Inc()
		return false
	}
	c.lastProcess = now
	c.listening = false
	sess := c.sess
	c.mu.Unlock()

	clip, err := sess.mic.StopRecording()
	if err != nil {
		log.Printf("stop recording failed: %v", err)
		c.notify()
		return true
	}
	if len(clip.Data) < c.timing.MinUtteranceBytes {
		log.Printf("utterance too short, skipped: bytes=%d", len(clip.Data))
		metrics.UtterancesDropped.WithLabelValues(metrics.DropTooShort).Inc()
		c.notify()
		return true
	}

	c.mu.Lock()
	if !c.currentLocked(gen) {
		c.mu.Unlock()
		metrics.UtterancesDropped.WithLabelValues(metrics.DropNoSession).Inc()
		return true
	}
	if c.inFlight {
		c.mu.Unlock()
		metrics.UtterancesDropped.WithLabelValues(metrics.DropInFlight).Inc()
		c.notify()
		return true
	}
	c.inFlight = true
	c.thinking = true
	c.replyStart = now
	sess.utterances++
	c.resetInactivityLocked(gen)
	c.mu.Unlock()
	c.notify()

	u := Utterance{Audio: clip.Data, ApproxDuration: clip.Duration}
	go c.sendUtterance(sess, u)
	return true
}

func (c *Controller) sendUtterance(sess *session, u Utterance) {
	log.Printf("sending utterance: bytes=%d duration=%s", len(u.Audio), u.ApproxDuration)
	err := sess.svc.SendAudio(sess.ctx, u.Audio, c.cfg.Voice())

	c.mu.Lock()
	current := c.currentLocked(sess.gen)
	if current {
		c.inFlight = false
		if err != nil {
			c.thinking = false
		}
	}
	c.mu.Unlock()

	if err != nil {
		metrics.SendErrors.WithLabelValues(metrics.SendAudio).Inc()
		if current {
			securelog.Error("send utterance", err)
		}
	} else {
		metrics.UtterancesSent.Inc()
	}
	if current {
		c.notify()
	}
}
