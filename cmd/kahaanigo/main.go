package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"kahaanigo/internal/api"
	"kahaanigo/pkg/audio"
	"kahaanigo/pkg/cache"
	"kahaanigo/pkg/config"
	"kahaanigo/pkg/convai"
	"kahaanigo/pkg/db"
	"kahaanigo/pkg/gather"
	"kahaanigo/pkg/geocode"
	"kahaanigo/pkg/llm"
	"kahaanigo/pkg/llm/anthropic"
	"kahaanigo/pkg/llm/gemini"
	"kahaanigo/pkg/logging"
	"kahaanigo/pkg/pipeline"
	"kahaanigo/pkg/playback"
	"kahaanigo/pkg/poi"
	"kahaanigo/pkg/prompt"
	"kahaanigo/pkg/request"
	"kahaanigo/pkg/research"
	"kahaanigo/pkg/script"
	"kahaanigo/pkg/tracker"
	"kahaanigo/pkg/tts/elevenlabs"
	"kahaanigo/pkg/version"
)

var initConfig = flag.Bool("init-config", false, "Generate default config file and exit")

const configPath = "configs/kahaani.yaml"

func main() {
	flag.Parse()

	if *initConfig {
		if err := config.GenerateDefault(configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated: " + configPath)
		return
	}

	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Local credentials, if present. Absence is fine; the adapters degrade.
	if err := godotenv.Load(".env.local"); err == nil {
		slog.Debug("Loaded .env.local")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("KahaaniGo Started", "version", version.Version, "city", cfg.Geocode.DefaultCity)

	trk := tracker.New()
	rc, dbClose, err := initRequestClient(cfg, trk)
	if err != nil {
		return err
	}
	defer dbClose()

	promptMgr, err := prompt.NewManager(cfg.Prompts.Dir)
	if err != nil {
		return fmt.Errorf("failed to initialize prompt manager: %w", err)
	}

	llmProv, err := initLLMProvider(ctx, cfg, rc)
	if err != nil {
		return err
	}
	slog.Info("Script provider selected", "provider", llmProv.Name(), "configured", llmProv.Configured())

	gatherStage := gather.NewStage(
		poi.NewClient(rc, trk, &cfg.POI),
		geocode.NewClient(rc, trk, &cfg.Geocode),
		research.NewClient(rc, trk, promptMgr, &cfg.Research, cfg.Geocode.DefaultCity),
	)
	scriptStage := script.NewStage(llmProv, promptMgr, trk, &cfg.Narrator, cfg.Geocode.DefaultCity)
	orchestrator := pipeline.New(gatherStage, scriptStage)

	ttsProv := elevenlabs.NewClient(rc, &cfg.TTS)
	dialer := convai.NewDialer(rc, &cfg.ConvAI)
	if !dialer.Configured() {
		slog.Warn("Conversation agent not configured; live Q&A will be unavailable")
	}

	audioMgr := audio.New()
	defer audioMgr.Shutdown()

	factory := func() *playback.Controller {
		return playback.New(ttsProv, audioMgr, playback.NewConvaiDialer(dialer),
			promptMgr, cfg.TTS.OutDir, cfg.Geocode.DefaultCity)
	}

	return runServer(ctx, cfg, orchestrator, gatherStage, scriptStage, ttsProv, dialer, factory, trk)
}

func initRequestClient(cfg *config.Config, trk *tracker.Tracker) (*request.Client, func(), error) {
	dbConn, err := db.Init(cfg.DB.Path)
	if err != nil {
		slog.Warn("Cache database unavailable, running without cache", "error", err)
		rc := request.New(cache.NullCache{}, trk, time.Duration(cfg.Request.Timeout))
		return rc, func() {}, nil
	}

	rc := request.New(cache.NewSQLiteCache(dbConn), trk, time.Duration(cfg.Request.Timeout))
	return rc, func() { dbConn.Close() }, nil
}

func initLLMProvider(ctx context.Context, cfg *config.Config, rc *request.Client) (llm.Provider, error) {
	switch cfg.LLM.Provider {
	case "gemini":
		prov, err := gemini.NewClient(ctx, &cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize gemini provider: %w", err)
		}
		return prov, nil
	case "anthropic", "":
		return anthropic.NewClient(rc, &cfg.LLM), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", cfg.LLM.Provider)
	}
}

func runServer(ctx context.Context, cfg *config.Config, o *pipeline.Orchestrator,
	g *gather.Stage, s *script.Stage, ttsProv *elevenlabs.Client, dialer *convai.Dialer,
	factory api.ControllerFactory, trk *tracker.Tracker) error {

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	shutdownFunc := func() { quit <- syscall.SIGTERM }

	srv := api.NewServer(cfg.Server.Address,
		api.NewStoryHandler(g, s, o),
		api.NewSpeechHandler(ttsProv, dialer),
		api.NewPlaybackHandler(o, factory),
		api.NewStatsHandler(trk),
		api.NewLocationsHandler(),
		shutdownFunc,
	)
	srv.Handler = loggingMiddleware(srv.Handler)

	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.RequestLogger.Info("Request Processed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
