package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"viralforge/internal/captions"
	"viralforge/internal/compositor"
	"viralforge/internal/config"
	"viralforge/internal/downloader"
	"viralforge/internal/handlers"
	"viralforge/internal/jobs"
	"viralforge/internal/logging"
	"viralforge/internal/media"
	"viralforge/internal/objectstore"
	"viralforge/internal/orchestrator"
	"viralforge/internal/publish"
	"viralforge/internal/stock"
	"viralforge/internal/storage"
	"viralforge/internal/strategy"
	"viralforge/internal/transcribe"
	"viralforge/internal/version"
	"viralforge/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logging.Init(cfg.Verbose)
	log := logging.WithComponent("server")

	db, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("open database")
	}
	defer db.Close()
	repo := storage.NewJobRepository(db)

	if err := os.MkdirAll(cfg.WorkDir, 0755); err != nil {
		log.Fatal().Err(err).Msg("create work dir")
	}

	hub := jobs.NewHub(500)
	store := objectstore.NewLocalStore(logging.WithComponent("store"), cfg.OutputDir, cfg.PublicBase)

	var broll compositor.BRollSource
	if cfg.PexelsAPIKey != "" {
		broll = stock.NewClient(logging.WithComponent("pexels"), cfg.PexelsAPIKey)
	}

	var publisher orchestrator.Publisher
	if p := publish.NewYouTubePublisher(logging.WithComponent("youtube"),
		cfg.YouTubeClientSecrets, cfg.YouTubeToken); p != nil {
		publisher = p
	}

	orch := orchestrator.New(
		logging.WithComponent("pipeline"),
		repo,
		hub,
		downloader.New(logging.WithComponent("downloader"), cfg.WorkDir),
		transcribe.New(logging.WithComponent("transcribe"), cfg.WhisperModel),
		strategy.New(logging.WithComponent("strategy"), cfg.GroqAPIKey, cfg.GroqModel),
		media.NewLoader(logging.WithComponent("media")),
		captions.NewAnalyzer(logging.WithComponent("captions"), detectorOrNil()),
		compositor.New(logging.WithComponent("compositor"), cfg.Render, broll),
		store,
		publisher,
		cfg.WorkDir,
	)

	pool := worker.NewPool(logging.WithComponent("worker"), repo, orch, cfg.Workers, time.Second)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	pool.Start(ctx)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	jobHandler := handlers.NewJobHandler(repo, hub)
	e.POST("/api/jobs", jobHandler.Submit)
	e.GET("/api/jobs", jobHandler.List)
	e.GET("/api/jobs/stats", jobHandler.Stats)
	e.GET("/api/jobs/:id", jobHandler.Get)
	e.POST("/api/jobs/:id/abort", jobHandler.Abort)
	e.GET("/api/events", jobHandler.Events)
	e.GET("/api/events/stream", jobHandler.Stream)
	e.Static("/outputs", store.Dir())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version.Version,
		})
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("version", version.Version).Msg("starting viralforge")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server exited")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	pool.Stop()
}

// detectorOrNil returns the OCR collaborator when tesseract is installed.
// The interface nil must be a true nil for the analyzer's fallback check.
func detectorOrNil() captions.TextDetector {
	if d := captions.NewTesseractDetector(); d != nil {
		return d
	}
	return nil
}
