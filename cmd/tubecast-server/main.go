package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rohvvn/tubecast/internal/adapters/httpapi"
	"github.com/rohvvn/tubecast/internal/adapters/memorybus"
	"github.com/rohvvn/tubecast/internal/adapters/sqlite"
	"github.com/rohvvn/tubecast/internal/adapters/ytdlp"
	"github.com/rohvvn/tubecast/internal/app"
	"github.com/rohvvn/tubecast/internal/buildinfo"
	"github.com/rohvvn/tubecast/internal/config"
)

func main() {
	configPath := flag.String("config", "", "Chemin du fichier TOML (défaut: tubecast.toml s'il existe)")
	addr := flag.String("addr", "", "Adresse d'écoute (prioritaire sur la config)")
	flag.Parse()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("app", "tubecast-server").Logger()
	log.Logger = logger

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	logger.Info().Interface("build", buildinfo.Current()).Str("db", cfg.DBPath).Msg("starting")

	ctx := context.Background()
	db, err := sqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open db")
	}
	defer func() { _ = db.Close() }()

	if err := os.MkdirAll(cfg.EpisodesDir, 0o755); err != nil {
		logger.Fatal().Err(err).Msg("failed to create episodes dir")
	}

	bus := memorybus.New()
	defer bus.Close()

	episodesRepo := sqlite.NewEpisodesRepository(db.SQL)
	jobsRepo := sqlite.NewJobsRepository(db.SQL)
	extractor := ytdlp.NewCLI(ytdlp.WithBinary(cfg.YtdlpBinary))

	limiter := app.NewDynamicLimiter(cfg.MaxConcurrentDownloads)
	acquirer := app.NewAcquirer(
		logger.With().Str("component", "acquirer").Logger(),
		extractor, episodesRepo, app.ServerAudioURL(cfg.BaseURL),
	)
	ingestSvc := app.NewIngestService(
		logger.With().Str("component", "ingest").Logger(),
		episodesRepo, acquirer, bus, limiter, app.OwnerDirs(cfg.EpisodesDir),
	)
	jobsSvc := app.NewJobService(jobsRepo, episodesRepo, bus)

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := app.NewWorkerPool(shutdownCtx, logger, jobsRepo, ingestSvc, bus, app.DefaultWorkerOptions())
	pool.SetCount(cfg.Workers)
	defer pool.Close()
	logger.Info().Int("workers", cfg.Workers).Msg("workers started")

	srv := httpapi.NewServer(logger, ingestSvc, jobsSvc, episodesRepo, jobsRepo, bus, cfg.EpisodesDir, cfg.BaseURL)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server crashed")
			stop()
		}
	}()

	<-shutdownCtx.Done()
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctx)
	logger.Info().Msg("bye")
}
