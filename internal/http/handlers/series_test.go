package handlers_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus/internal/domain"
)

func TestSeriesGenerateAndFetch(t *testing.T) {
	env := newTestEnv(t)

	resp := postJSON(t, env.server.URL+"/api/v1/serie/generuj", map[string]any{
		"temat":           "historia polskich wynalazków",
		"gatunek":         "edukacja",
		"liczba_odcinkow": 3,
		"platforma":       []string{"youtube"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[domain.Series](t, resp)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, domain.SeriesStatusPlanning, created.Status)
	require.Len(t, created.Episodes, 3)

	resp, err := http.Get(fmt.Sprintf("%s/api/v1/serie/%s", env.server.URL, created.ID))
	require.NoError(t, err)
	fetched := decodeBody[domain.Series](t, resp)
	assert.Equal(t, created.ID, fetched.ID)

	resp, err = http.Get(env.server.URL + "/api/v1/serie/")
	require.NoError(t, err)
	listing := decodeBody[struct {
		Series []domain.Series `json:"serie"`
		Count  int             `json:"liczba"`
	}](t, resp)
	assert.Equal(t, 1, listing.Count)
}

func TestSeriesGenerateFirstEpisodeEnqueued(t *testing.T) {
	env := newTestEnv(t)

	resp := postJSON(t, env.server.URL+"/api/v1/serie/generuj", map[string]any{
		"temat":            "kulisy formuły 1",
		"liczba_odcinkow":  2,
		"platforma":        []string{"tiktok"},
		"generuj_pierwszy": true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[domain.Series](t, resp)
	assert.Equal(t, domain.SeriesStatusProduction, created.Status)
	require.NotEmpty(t, created.Episodes[0].SessionID)
	assert.Equal(t, domain.EpisodeStatusGenerating, created.Episodes[0].Status)

	job, err := env.jobs.GetBySessionID(context.Background(), created.Episodes[0].SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusQueued, job.Status)
	assert.Equal(t, created.ID, job.SeriesID)
	assert.Equal(t, 1, job.EpisodeNumber)
	assert.Equal(t, 45, job.DurationSeconds)
}

func TestSeriesContinueEnqueuesEpisodesWithContext(t *testing.T) {
	env := newTestEnv(t)

	resp := postJSON(t, env.server.URL+"/api/v1/serie/generuj", map[string]any{
		"temat":           "tajemnice oceanów",
		"liczba_odcinkow": 2,
		"platforma":       []string{"youtube"},
	})
	created := decodeBody[domain.Series](t, resp)

	resp = postJSON(t, fmt.Sprintf("%s/api/v1/serie/%s/kontynuuj", env.server.URL, created.ID),
		map[string]any{"liczba_nowych_odcinkow": 2})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	continued := decodeBody[domain.Series](t, resp)
	require.Len(t, continued.Episodes, 4)
	assert.Equal(t, domain.SeriesStatusProduction, continued.Status)

	third := continued.Episodes[2]
	require.NotEmpty(t, third.SessionID)
	job, err := env.jobs.GetBySessionID(context.Background(), third.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 3, job.EpisodeNumber)
	// Continuity context covers the two earlier episodes.
	assert.Contains(t, job.SeriesContext, "Odcinek 1")
	assert.Contains(t, job.SeriesContext, "Odcinek 2")
}

func TestSeriesContinueValidation(t *testing.T) {
	env := newTestEnv(t)

	resp := postJSON(t, env.server.URL+"/api/v1/serie/generuj", map[string]any{
		"temat":           "krótkie biografie",
		"liczba_odcinkow": 2,
		"platforma":       []string{"tiktok"},
	})
	created := decodeBody[domain.Series](t, resp)

	resp = postJSON(t, fmt.Sprintf("%s/api/v1/serie/%s/kontynuuj", env.server.URL, created.ID),
		map[string]any{"liczba_nowych_odcinkow": 9})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestSeriesDelete(t *testing.T) {
	env := newTestEnv(t)

	resp := postJSON(t, env.server.URL+"/api/v1/serie/generuj", map[string]any{
		"temat":           "miasta przyszłości",
		"liczba_odcinkow": 2,
		"platforma":       []string{"instagram"},
	})
	created := decodeBody[domain.Series](t, resp)

	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/api/v1/serie/%s", env.server.URL, created.ID), nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestPlatformStatsWindow(t *testing.T) {
	env := newTestEnv(t)
	env.app.Stats = &fakeStats{days: []domain.PlatformDay{{
		Day:       time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		Total:     4,
		Succeeded: 3,
		Failed:    1,
	}}}

	resp, err := http.Get(env.server.URL + "/api/v1/statystyki/platforma?od=2026-08-01&do=2026-08-31")
	require.NoError(t, err)
	body := decodeBody[struct {
		Days  []domain.PlatformDay `json:"dni"`
		Count int                  `json:"liczba"`
	}](t, resp)
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, 4, body.Days[0].Total)

	resp, err = http.Get(env.server.URL + "/api/v1/statystyki/platforma?od=2026-08-31&do=2026-08-01")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}
