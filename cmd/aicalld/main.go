package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/Avicted/aicall/internal/audio"
	"github.com/Avicted/aicall/internal/call"
	"github.com/Avicted/aicall/internal/callrecord"
	"github.com/Avicted/aicall/internal/config"
	"github.com/Avicted/aicall/internal/storage"
	"github.com/Avicted/aicall/internal/voice"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Printf("fatal: %v", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := parseConfig(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.DBURL)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	go func() {
		if err := serveMetrics(ctx, cfg.MetricsAddr); err != nil {
			log.Printf("metrics server failed: %v", err)
		}
	}()

	spk := newSpeaker(ctx)
	deps, err := callDeps(cfg, spk)
	if err != nil {
		return err
	}
	daemon, err := newCallDaemon(daemonDeps{
		Call:    callConfig(cfg),
		Timing:  callTiming(cfg),
		Deps:    deps,
		Records: callrecord.NewService(store.CallRecords()),
		Speaker: spk,
	})
	if err != nil {
		return err
	}

	log.Printf("starting call daemon server=%s ipc=%s call_id=%s codec=%s", cfg.ServerURL, cfg.IPCAddr, cfg.CallID, cfg.Codec)
	if err := daemon.Run(ctx, cfg.IPCAddr); err != nil {
		return err
	}
	log.Printf("shutting down")
	return nil
}

// parseConfig reads AICALL_* variables and lets flags override them.
func parseConfig(args []string) (config.Config, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return config.Config{}, err
	}

	fs := flag.NewFlagSet("aicalld", flag.ContinueOnError)
	fs.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "voice backend base url")
	fs.StringVar(&cfg.Token, "token", cfg.Token, "voice backend auth token")
	fs.StringVar(&cfg.IPCAddr, "ipc", cfg.IPCAddr, "ipc socket/pipe address")
	fs.StringVar(&cfg.DBURL, "db", cfg.DBURL, "postgres url for call records (optional)")
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "prometheus listen address (optional)")
	fs.StringVar(&cfg.CallID, "call-id", cfg.CallID, "call id (generated when empty)")
	fs.StringVar(&cfg.UserID, "user", cfg.UserID, "user id")
	fs.StringVar(&cfg.CallType, "type", cfg.CallType, "call type: voice or video")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "ai model")
	fs.StringVar(&cfg.Language, "lang", cfg.Language, "conversation language")
	fs.StringVar(&cfg.Voice, "voice", cfg.Voice, "synthesis voice")
	fs.Float64Var(&cfg.VoiceSpeed, "speed", cfg.VoiceSpeed, "synthesis speed")
	fs.Float64Var(&cfg.VADThresholdDB, "vad-threshold", cfg.VADThresholdDB, "speech threshold in dBFS")
	fs.StringVar(&cfg.Codec, "codec", cfg.Codec, "utterance codec: wav or opus")
	fs.BoolVar(&cfg.LogMeter, "meter", cfg.LogMeter, "log the microphone level once per second")
	fs.DurationVar(&cfg.Inactivity, "inactivity", cfg.Inactivity, "end the call after this long without user activity")
	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}

	if cfg.CallID == "" {
		cfg.CallID = uuid.NewString()
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func callConfig(cfg config.Config) call.Config {
	return call.Config{
		CallID:   cfg.CallID,
		UserID:   cfg.UserID,
		CallType: call.CallType(cfg.CallType),
		AIModel:  cfg.Model,
		Language: cfg.Language,
		VoiceSettings: call.VoiceSettings{
			Voice: cfg.Voice,
			Speed: cfg.VoiceSpeed,
		},
	}
}

func callTiming(cfg config.Config) call.Timing {
	timing := call.DefaultTiming()
	timing.Inactivity = cfg.Inactivity
	timing.VAD.ThresholdDB = cfg.VADThresholdDB
	timing.VAD.LogMeter = cfg.LogMeter
	return timing
}

func callDeps(cfg config.Config, player voice.Player) (call.Deps, error) {
	enc, err := audio.NewEncoder(cfg.Codec)
	if err != nil {
		return call.Deps{}, err
	}
	opts := voice.Options{
		ServerURL:    cfg.ServerURL,
		Token:        cfg.Token,
		AudioFormat:  enc.Format(),
		RawAudioRate: cfg.RawAudioRate,
	}
	return call.Deps{
		NewService: func(c call.Config, obs voice.Observer) (voice.Service, error) {
			o := opts
			o.Session = voiceSession(c)
			return voice.NewClient(o, obs, player), nil
		},
		OpenMicrophone: func(ctx context.Context) (call.Microphone, error) {
			mic, err := audio.OpenMicrophone(ctx, enc)
			if err != nil {
				return nil, err
			}
			return mic, nil
		},
	}, nil
}

// voiceSession announces the same voice the controller sends with every
// request.
func voiceSession(c call.Config) voice.Session {
	return voice.Session{
		CallID:   c.CallID,
		UserID:   c.UserID,
		CallType: string(c.CallType),
		Model:    c.AIModel,
		Language: c.Language,
		Voice:    c.Voice(),
		Speed:    c.VoiceSettings.Speed,
	}
}

func openStore(ctx context.Context, dbURL string) (storage.Store, error) {
	if dbURL == "" {
		log.Printf("no db configured, call records disabled")
		return storage.NewNopStore(), nil
	}
	store, err := storage.NewPostgresStore(ctx, dbURL)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close(ctx)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}
