package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/semaphore"

	"nexus/internal/adapter/repo"
	"nexus/internal/domain"
	"nexus/internal/infra"
	"nexus/internal/pipeline"
	"nexus/internal/pricing"
	"nexus/internal/providers/openai"
	"nexus/internal/storage"
)

const claimPollInterval = 2 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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
		logger.Warn().Msg("no OPENAI_API_KEY set, generating deterministic synthetic content")
	}
	prices := pricing.Default()
	jobs := repo.NewJobRepository(dbpool)

	orch := pipeline.NewOrchestrator(pipeline.Deps{
		Strategist:   pipeline.NewStrategist(client, cfg.EconomyModel, prices),
		Scriptwriter: pipeline.NewScriptwriter(client, cfg.SmartModel, prices),
		Voice:        pipeline.NewVoiceDirector(client, cfg.VoiceModel, cfg.DefaultVoice, prices, store),
		Visual:       pipeline.NewVisualProducer(client, cfg.ImageModel, prices, store),
		Reviewer:     pipeline.NewQualityReviewer(client, cfg.SmartModel, prices),
		Compositor:   pipeline.NewCompositor(store),
		Gate: pipeline.Gate{
			AcceptThreshold:        cfg.AcceptThreshold,
			HighPotentialThreshold: cfg.HighPotentialThreshold,
		},
		Jobs: jobs,
		Config: pipeline.Config{
			MaxRetries:        cfg.MaxRetries,
			PartialScoreFloor: cfg.PartialScoreFloor,
			StageTimeout:      cfg.StageTimeout,
			StageRetries:      cfg.StageRetries,
		},
		Logger: logger.With().Str("component", "pipeline").Logger(),
	})
	sem := semaphore.NewWeighted(cfg.WorkerConcurrency)
	logger.Info().Int64("concurrency", cfg.WorkerConcurrency).Msg("worker started")

	ticker := time.NewTicker(claimPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutdown requested, waiting for running jobs")
			waitCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := sem.Acquire(waitCtx, cfg.WorkerConcurrency); err != nil {
				logger.Warn().Msg("some jobs still running at shutdown")
			}
			cancel()
			logger.Info().Msg("worker stopped")
			return
		case <-ticker.C:
		}

		for {
			if !sem.TryAcquire(1) {
				break
			}
			job, err := jobs.ClaimNext(ctx)
			if err != nil {
				sem.Release(1)
				if !errors.Is(err, domain.ErrNotFound) && ctx.Err() == nil {
					logger.Error().Err(err).Msg("claim failed")
				}
				break
			}
			go func(job *domain.Job) {
				defer sem.Release(1)
				if err := orch.Run(ctx, job); err != nil {
					logger.Error().Err(err).Str("session_id", job.SessionID).Msg("pipeline run failed")
				}
			}(job)
		}
	}
}
