package handlers_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"nexus/internal/adapter/repo"
	"nexus/internal/domain"
	"nexus/internal/http/handlers"
	"nexus/internal/http/httpapi"
	"nexus/internal/pricing"
	"nexus/internal/providers/openai"
	"nexus/internal/series"
	"nexus/internal/storage"
	"nexus/internal/virality"
)

type fakeStats struct {
	days []domain.PlatformDay
}

func (f *fakeStats) PlatformStats(_ context.Context, _, _ time.Time) ([]domain.PlatformDay, error) {
	return f.days, nil
}

type testEnv struct {
	app    *handlers.App
	jobs   *repo.MemoryJobRepository
	series *repo.MemorySeriesRepository
	server *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	client := openai.NewClient(openai.Options{Logger: zerolog.Nop()})
	jobs := repo.NewMemoryJobRepository()
	seriesRepo := repo.NewMemorySeriesRepository()
	app := handlers.NewApp(handlers.App{
		Jobs:    jobs,
		Series:  seriesRepo,
		Stats:   &fakeStats{},
		Store:   store,
		Scoring: virality.NewEngine(client, "gpt-4o-mini", pricing.Default(), zerolog.Nop()),
		Planner: series.NewPlanner(client, "gpt-4o-mini", pricing.Default(), zerolog.Nop()),
		Logger:  zerolog.Nop(),
		BaseURL: "http://localhost:8080/static",
	})
	srv := httptest.NewServer(httpapi.NewRouter(app, zerolog.Nop(), httpapi.RouterOptions{}))
	t.Cleanup(srv.Close)
	return &testEnv{app: app, jobs: jobs, series: seriesRepo, server: srv}
}
