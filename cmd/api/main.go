package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"nexus/internal/adapter/repo"
	"nexus/internal/http/handlers"
	"nexus/internal/http/httpapi"
	"nexus/internal/infra"
	"nexus/internal/pricing"
	"nexus/internal/providers/openai"
	"nexus/internal/series"
	"nexus/internal/storage"
	"nexus/internal/virality"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "api")

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init artifact storage")
	}

	client := openai.NewClient(openai.Options{
		APIKey:       cfg.OpenAIAPIKey,
		BaseURL:      cfg.OpenAIBaseURL,
		Organization: cfg.OpenAIOrg,
		Logger:       logger.With().Str("component", "openai").Logger(),
	})
	if client.Synthetic() {
		logger.Warn().Msg("no OPENAI_API_KEY set, planning and scoring run in synthetic mode")
	}
	prices := pricing.Default()

	app := handlers.NewApp(handlers.App{
		Jobs:    repo.NewJobRepository(dbpool),
		Series:  repo.NewSeriesRepository(dbpool),
		Stats:   repo.NewStatsRepository(dbpool),
		Store:   store,
		Scoring: virality.NewEngine(client, cfg.EconomyModel, prices, logger.With().Str("component", "virality").Logger()),
		Planner: series.NewPlanner(client, cfg.EconomyModel, prices, logger.With().Str("component", "series").Logger()),
		Logger:  logger.With().Str("component", "handlers").Logger(),
		BaseURL: cfg.StorageBaseURL,
	})

	router := httpapi.NewRouter(app, logger, httpapi.RouterOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		GenerateLimit:  cfg.GenerateRateLimit,
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("addr", server.Addr()).Msg("API listening")
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
