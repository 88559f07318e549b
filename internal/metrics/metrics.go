// Package metrics holds the process-wide prometheus collectors for calls.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reasons an utterance is dropped before reaching the backend.
const (
	DropTooShort  = "too_short"
	DropCooldown  = "cooldown"
	DropInFlight  = "in_flight"
	DropNoSession = "no_session"
)

// Send error kinds.
const (
	SendAudio = "audio"
	SendText  = "text"
	SendSpeak = "speak"
	SendPlay  = "play"
)

var (
	CallsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aicall_calls_active",
		Help: "Currently active call sessions",
	})

	CallsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aicall_calls_total",
		Help: "Call sessions started successfully",
	})

	UtterancesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aicall_utterances_sent_total",
		Help: "Utterances shipped to the voice backend",
	})

	UtterancesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aicall_utterances_dropped_total",
		Help: "Utterances discarded before sending, by reason",
	}, []string{"reason"})

	TranscriptsFiltered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aicall_transcripts_filtered_total",
		Help: "Transcriptions rejected as noise",
	})

	SendErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aicall_send_errors_total",
		Help: "Failed backend calls, by kind",
	}, []string{"kind"})

	InactivityTerminations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aicall_inactivity_terminations_total",
		Help: "Calls ended by the inactivity deadline",
	})

	ReplyLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "aicall_reply_latency_seconds",
		Help:    "Time from utterance or text dispatch to the backend reply",
		Buckets: []float64{0.25, 0.5, 1.0, 1.5, 2.0, 3.0, 5.0, 8.0, 13.0},
	})
)
