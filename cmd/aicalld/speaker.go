package main

import (
	"context"
	"log"
	"sync"

	"github.com/Avicted/aicall/internal/audio"
)

var startPlayback = audio.StartPlayback

// speaker opens the playback device on first use and keeps it for the
// daemon's lifetime.
type speaker struct {
	mu       sync.Mutex
	ctx      context.Context
	playback *audio.Playback
}

func newSpeaker(ctx context.Context) *speaker {
	return &speaker{ctx: ctx}
}

func (s *speaker) Play(ctx context.Context, samples []int16) error {
	if len(samples) == 0 {
		return nil
	}
	playback, err := s.device()
	if err != nil {
		return err
	}
	return playback.Play(ctx, samples)
}

func (s *speaker) device() (*audio.Playback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playback != nil {
		return s.playback, nil
	}
	playback, err := startPlayback(s.ctx)
	if err != nil {
		log.Printf("audio playback failed: %v", err)
		return nil, err
	}
	s.playback = playback
	return playback, nil
}

func (s *speaker) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	playback := s.playback
	s.playback = nil
	s.mu.Unlock()
	if playback != nil {
		_ = playback.Close()
	}
}
