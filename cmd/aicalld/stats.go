package main

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/Avicted/aicall/internal/call"
	"github.com/Avicted/aicall/internal/transcript"
)

type callStats struct {
	userTurns  atomic.Int64
	aiTurns    atomic.Int64
	callsEnded atomic.Int64
	talkTime   atomic.Int64
}

func newCallStats() *callStats {
	return &callStats{}
}

func (s *callStats) RecordMessage(speaker transcript.Speaker) {
	if s == nil {
		return
	}
	switch speaker {
	case transcript.SpeakerUser:
		s.userTurns.Add(1)
	case transcript.SpeakerAI:
		s.aiTurns.Add(1)
	}
}

func (s *callStats) RecordCall(sum call.Summary) {
	if s == nil {
		return
	}
	s.callsEnded.Add(1)
	if d := sum.EndedAt.Sub(sum.StartedAt); d > 0 {
		s.talkTime.Add(int64(d))
	}
}

func (s *callStats) LogLoop(ctx context.Context) {
	if s == nil {
		return
	}
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.flush()
		}
	}
}

// flush logs and resets the counters. Idle intervals are not logged.
func (s *callStats) flush() bool {
	user := s.userTurns.Swap(0)
	ai := s.aiTurns.Swap(0)
	ended := s.callsEnded.Swap(0)
	talk := time.Duration(s.talkTime.Swap(0))
	if user == 0 && ai == 0 && ended == 0 {
		return false
	}
	log.Printf("call stats: user_turns=%d ai_turns=%d calls_ended=%d talk_time=%s", user, ai, ended, talk.Round(time.Second))
	return true
}
