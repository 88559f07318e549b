// Package config loads the call daemon settings from AICALL_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/Avicted/aicall/internal/audio"
)

type Config struct {
	ServerURL   string
	Token       string
	IPCAddr     string
	DBURL       string
	MetricsAddr string

	CallID         string
	UserID         string
	CallType       string
	Model          string
	Language       string
	Voice          string
	VoiceSpeed     float64
	VADThresholdDB float64
	Codec          string
	RawAudioRate   int
	Inactivity     time.Duration
	LogMeter       bool
}

func DefaultIPCAddr() string {
	if runtime.GOOS == "windows" {
		return `\\.\pipe\aicall`
	}
	return "/tmp/aicall.sock"
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		ServerURL:      os.Getenv("AICALL_SERVER_URL"),
		Token:          os.Getenv("AICALL_TOKEN"),
		IPCAddr:        DefaultIPCAddr(),
		DBURL:          os.Getenv("AICALL_DB_URL"),
		MetricsAddr:    os.Getenv("AICALL_METRICS_ADDR"),
		CallID:         os.Getenv("AICALL_CALL_ID"),
		UserID:         os.Getenv("AICALL_USER_ID"),
		CallType:       "voice",
		Model:          os.Getenv("AICALL_MODEL"),
		Language:       os.Getenv("AICALL_LANGUAGE"),
		Voice:          "nova",
		VoiceSpeed:     1.0,
		VADThresholdDB: -45,
		Codec:          audio.CodecWAV,
		RawAudioRate:   24000,
		Inactivity:     10 * time.Minute,
	}

	if v := os.Getenv("AICALL_IPC_ADDR"); v != "" {
		cfg.IPCAddr = v
	}
	if v := os.Getenv("AICALL_CALL_TYPE"); v != "" {
		cfg.CallType = v
	}
	if v := os.Getenv("AICALL_VOICE"); v != "" {
		cfg.Voice = v
	}
	if v := os.Getenv("AICALL_CODEC"); v != "" {
		cfg.Codec = strings.ToLower(v)
	}
	if v := os.Getenv("AICALL_VOICE_SPEED"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, errors.New("voice speed must be a number")
		}
		cfg.VoiceSpeed = f
	}
	if v := os.Getenv("AICALL_VAD_THRESHOLD_DB"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, errors.New("vad threshold must be a number")
		}
		cfg.VADThresholdDB = f
	}
	if v := os.Getenv("AICALL_RAW_AUDIO_RATE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, errors.New("raw audio rate must be an integer")
		}
		cfg.RawAudioRate = n
	}
	if v := os.Getenv("AICALL_LOG_METER"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, errors.New("log meter must be a boolean")
		}
		cfg.LogMeter = b
	}
	if v := os.Getenv("AICALL_INACTIVITY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("inactivity must be a duration: %w", err)
		}
		cfg.Inactivity = d
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.ServerURL == "" {
		return errors.New("server url is required")
	}
	if c.IPCAddr == "" {
		return errors.New("ipc addr is required")
	}
	if c.UserID == "" {
		return errors.New("user id is required")
	}
	if c.CallType != "voice" && c.CallType != "video" {
		return fmt.Errorf("call type must be voice or video, got %q", c.CallType)
	}
	if c.VoiceSpeed <= 0 {
		return errors.New("voice speed must be positive")
	}
	if c.VADThresholdDB > 0 || c.VADThresholdDB < audio.SilenceFloorDB {
		return errors.New("vad threshold must be between -100 and 0 dBFS")
	}
	if _, err := audio.NewEncoder(c.Codec); err != nil && !errors.Is(err, audio.ErrUnsupported) {
		return err
	}
	if c.RawAudioRate <= 0 {
		return errors.New("raw audio rate must be positive")
	}
	if c.Inactivity <= 0 {
		return errors.New("inactivity must be positive")
	}
	return nil
}
