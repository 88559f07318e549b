package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Avicted/aicall/internal/call"
	"github.com/Avicted/aicall/internal/config"
	"github.com/Avicted/aicall/internal/storage"
	"github.com/Avicted/aicall/internal/voice"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AICALL_SERVER_URL", "http://env-server")
	t.Setenv("AICALL_TOKEN", "env-token")
	t.Setenv("AICALL_USER_ID", "env-user")
	t.Setenv("AICALL_CALL_ID", "")
	t.Setenv("AICALL_CODEC", "")
	t.Setenv("AICALL_DB_URL", "")
	t.Setenv("AICALL_LOG_METER", "")
}

func TestParseConfigFlagsOverrideEnv(t *testing.T) {
	setBaseEnv(t)

	cfg, err := parseConfig([]string{
		"-server", "http://flag-server",
		"-user", "flag-user",
		"-call-id", "call-9",
		"-type", "video",
		"-speed", "1.5",
		"-vad-threshold", "-40",
		"-inactivity", "90s",
		"-meter",
	})
	if err != nil {
		t.Fatalf("parseConfig() error: %v", err)
	}
	if cfg.ServerURL != "http://flag-server" || cfg.UserID != "flag-user" || cfg.CallID != "call-9" {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if cfg.Token != "env-token" {
		t.Fatalf("Token = %q, want env value", cfg.Token)
	}
	if cfg.CallType != "video" || cfg.VoiceSpeed != 1.5 || cfg.VADThresholdDB != -40 || cfg.Inactivity != 90*time.Second || !cfg.LogMeter {
		t.Fatalf("typed flags not applied: %+v", cfg)
	}
}

func TestParseConfigGeneratesCallID(t *testing.T) {
	setBaseEnv(t)
	cfg, err := parseConfig(nil)
	if err != nil {
		t.Fatalf("parseConfig() error: %v", err)
	}
	if cfg.CallID == "" {
		t.Fatal("expected generated call id")
	}
}

func TestParseConfigErrors(t *testing.T) {
	setBaseEnv(t)

	if _, err := parseConfig([]string{"-user", ""}); err == nil || !strings.Contains(err.Error(), "user id") {
		t.Fatalf("parseConfig() missing user error = %v", err)
	}
	if _, err := parseConfig([]string{"-nope"}); err == nil {
		t.Fatal("parseConfig() unknown flag error = nil")
	}
	t.Setenv("AICALL_VOICE_SPEED", "fast")
	if _, err := parseConfig(nil); err == nil {
		t.Fatal("parseConfig() bad env error = nil")
	}
}

func TestCallConfigAndTiming(t *testing.T) {
	cfg := config.Config{
		CallID: "c1", UserID: "u1", CallType: "voice", Model: "m", Language: "en",
		Voice: "alloy", VoiceSpeed: 1.2, VADThresholdDB: -38, Inactivity: time.Minute, LogMeter: true,
	}
	cc := callConfig(cfg)
	if cc.CallID != "c1" || cc.CallType != call.CallVoice || cc.AIModel != "m" || cc.VoiceSettings.Voice != "alloy" {
		t.Fatalf("callConfig() = %+v", cc)
	}
	if err := cc.Validate(); err != nil {
		t.Fatalf("callConfig() invalid: %v", err)
	}

	timing := callTiming(cfg)
	if timing.Inactivity != time.Minute || timing.VAD.ThresholdDB != -38 || !timing.VAD.LogMeter {
		t.Fatalf("callTiming() = %+v", timing)
	}
	if timing.Cooldown != call.DefaultTiming().Cooldown {
		t.Fatalf("callTiming() changed cooldown: %v", timing.Cooldown)
	}
}

type nopObserver struct{}

func (nopObserver) OnConnected()            {}
func (nopObserver) OnTranscription(string)  {}
func (nopObserver) OnResponse(string)       {}
func (nopObserver) OnAudio([]byte)          {}
func (nopObserver) OnStatus(string, string) {}
func (nopObserver) OnError(string)          {}

func TestCallDeps(t *testing.T) {
	if _, err := callDeps(config.Config{Codec: "mp3"}, nil); err == nil {
		t.Fatal("callDeps() unsupported codec error = nil")
	}

	deps, err := callDeps(config.Config{ServerURL: "http://x", Codec: "wav"}, newSpeaker(context.Background()))
	if err != nil {
		t.Fatalf("callDeps() error: %v", err)
	}
	if deps.NewService == nil || deps.OpenMicrophone == nil {
		t.Fatal("callDeps() left factories nil")
	}
	svc, err := deps.NewService(callConfig(config.Config{CallID: "c", UserID: "u", CallType: "voice", VoiceSpeed: 1}), nopObserver{})
	if err != nil {
		t.Fatalf("NewService() error: %v", err)
	}
	if _, ok := svc.(*voice.Client); !ok {
		t.Fatalf("NewService() = %T, want *voice.Client", svc)
	}
	if err := svc.Connect(context.Background()); err != voice.ErrNotAuthenticated {
		t.Fatalf("Connect() without token error = %v, want ErrNotAuthenticated", err)
	}
}

func TestVoiceSessionUsesDefaultVoice(t *testing.T) {
	cfg := call.Config{CallID: "c", UserID: "u", CallType: call.CallVoice, VoiceSettings: call.VoiceSettings{Speed: 1.25}}
	sess := voiceSession(cfg)
	if sess.Voice != call.DefaultVoice || sess.Voice != cfg.Voice() {
		t.Fatalf("voiceSession().Voice = %q, want %q", sess.Voice, call.DefaultVoice)
	}
	if sess.Speed != 1.25 || sess.CallType != "voice" {
		t.Fatalf("voiceSession() = %+v", sess)
	}

	cfg.VoiceSettings.Voice = "alloy"
	if got := voiceSession(cfg).Voice; got != "alloy" {
		t.Fatalf("voiceSession().Voice = %q, want alloy", got)
	}
}

func TestOpenStoreWithoutDB(t *testing.T) {
	store, err := openStore(context.Background(), "")
	if err != nil {
		t.Fatalf("openStore() error: %v", err)
	}
	if _, ok := store.(*storage.NopStore); !ok {
		t.Fatalf("openStore() = %T, want *storage.NopStore", store)
	}
}
