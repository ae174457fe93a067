// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telegram-stt-bot/internal/config"
	"telegram-stt-bot/internal/domain/ports/adapter"
	"telegram-stt-bot/internal/domain/ports/repository"
	"telegram-stt-bot/internal/infra/authfile"
	"telegram-stt-bot/internal/infra/ffmpeg"
	"telegram-stt-bot/internal/infra/logging"
	"telegram-stt-bot/internal/infra/metrics"
	red "telegram-stt-bot/internal/infra/redis"
	"telegram-stt-bot/internal/infra/requestlog"
	"telegram-stt-bot/internal/infra/status"
	"telegram-stt-bot/internal/infra/stt"
	tele "telegram-stt-bot/internal/infra/telegram"
	"telegram-stt-bot/internal/infra/tempdir"
	"telegram-stt-bot/internal/infra/web"
	"telegram-stt-bot/internal/infra/worker"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, verbose)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Working dirs ----
	workspaces, err := tempdir.NewManager(cfg.Storage.TempDir, cfg.Storage.FreeSpaceFloorMB, logger)
	if err != nil {
		log.Fatalf("tempdir: %v", err)
	}
	if n := workspaces.Sweep(); n > 0 {
		logger.Info().Int("removed", n).Msg("swept leftover working dirs")
	}

	// ---- Audio conversion ----
	converter := ffmpeg.NewConverter(logger)
	if !converter.Available() {
		log.Fatalf("ffmpeg/ffprobe not found in PATH")
	}

	// ---- Transcription providers ----
	registry, err := buildProviders(ctx, cfg)
	if err != nil {
		log.Fatalf("stt providers: %v", err)
	}
	logger.Info().Str("default", cfg.STT.Provider).Strs("registered", registry.Names()).Msg("providers ready")

	// ---- Authorized users store ----
	var auth repository.AuthorizedUsers
	if cfg.Redis.URL != "" {
		redisClient, rerr := red.NewClient(ctx, &cfg.Redis)
		if rerr != nil {
			log.Fatalf("redis: %v", rerr)
		}
		defer redisClient.Close()
		auth = red.NewAuthStore(redisClient)
		logger.Info().Msg("authorized users backed by redis")
	} else {
		fileStore, ferr := authfile.NewStore(cfg.Storage.AuthFile, logger)
		if ferr != nil {
			log.Fatalf("authfile: %v", ferr)
		}
		auth = fileStore
	}

	reqlog := requestlog.New(cfg.Storage.RequestLog, logger)

	// ---- Queue, pipeline, workers ----
	reporter := status.NewReporter()
	queue := worker.NewQueue(
		cfg.Pipeline.QueueCapacity,
		cfg.Pipeline.Workers,
		cfg.Pipeline.Retention,
		cfg.STT.Provider,
		logger,
	)
	reporter.SetQueueStatsFunc(func() (int, int, int, int) {
		s := queue.Stats()
		return s.Queued, s.InFlight, s.Capacity, s.Workers
	})

	bot, err := tele.NewBot(cfg, queue, reporter, auth, reqlog, logger)
	if err != nil {
		log.Fatalf("telegram: %v", err)
	}

	pipeline := worker.NewPipeline(
		queue,
		bot, // fetches source files from Telegram
		converter,
		registry,
		bot, // delivers transcripts back to the chat
		workspaces,
		reporter,
		cfg.Pipeline,
		cfg.STT.LanguageHint,
	)
	pool := worker.NewPool(queue, pipeline, logger)
	pool.Start(ctx)

	go func() {
		if err := bot.StartPolling(ctx); err != nil {
			logger.Error().Err(err).Msg("telegram polling stopped")
		}
	}()

	// ---- Ops HTTP server ----
	opsServer := web.NewServer(reporter, queue, cfg.STT.Provider, cfg.Ops.APIKey, logger)
	go func() {
		if err := opsServer.ListenAndServe(fmt.Sprintf(":%d", cfg.Ops.Port)); err != nil {
			logger.Error().Err(err).Msg("ops server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	// Intake stops and in-flight jobs drain before the context goes away.
	bot.StopPolling()
	pool.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("ops server shutdown error")
	}
}

// buildProviders registers every backend with a configured key so jobs can be
// pinned to any of them; the configured provider is the default.
func buildProviders(ctx context.Context, cfg *config.Config) (*stt.Registry, error) {
	var backends []adapter.Transcriber
	if cfg.STT.OpenAIKey != "" {
		w, err := stt.NewWhisperAdapter(cfg.STT.OpenAIKey, cfg.STT.WhisperModel)
		if err != nil {
			return nil, err
		}
		backends = append(backends, w)
	}
	if cfg.STT.ElevenLabsKey != "" {
		e, err := stt.NewElevenLabsAdapter(cfg.STT.ElevenLabsKey)
		if err != nil {
			return nil, err
		}
		backends = append(backends, e)
	}
	if cfg.STT.GoogleKey != "" {
		g, err := stt.NewGoogleAdapter(ctx, cfg.STT.GoogleKey, cfg.STT.GoogleModel)
		if err != nil {
			return nil, err
		}
		backends = append(backends, g)
	}
	return stt.NewRegistry(cfg.STT.Provider, backends...)
}
