package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus/internal/domain"
	"nexus/internal/storage"
)

type apiErrorBody struct {
	Code    string   `json:"kod"`
	Message string   `json:"komunikat"`
	Fields  []string `json:"pola"`
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func validGenerateBody() map[string]any {
	return map[string]any{
		"brief":          "film o nawykach porannych, które zmieniają dzień",
		"platforma":      []string{"tiktok", "youtube"},
		"dlugosc_sekund": 45,
	}
}

func TestVideoGenerateQueuesJob(t *testing.T) {
	env := newTestEnv(t)

	resp := postJSON(t, env.server.URL+"/api/v1/wideo/generuj", validGenerateBody())
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	job := decodeBody[domain.Job](t, resp)
	assert.NotEmpty(t, job.SessionID)
	assert.Equal(t, domain.JobStatusQueued, job.Status)
	assert.Equal(t, 0, job.ProgressPercent)

	stored, err := env.jobs.GetBySessionID(context.Background(), job.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusQueued, stored.Status)
}

func TestVideoGenerateValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		mutate func(m map[string]any)
	}{
		{"short brief", func(m map[string]any) { m["brief"] = "za krótko" }},
		{"no platforms", func(m map[string]any) { m["platforma"] = []string{} }},
		{"unknown platform", func(m map[string]any) { m["platforma"] = []string{"vimeo"} }},
		{"duration too short", func(m map[string]any) { m["dlugosc_sekund"] = 5 }},
		{"duration too long", func(m map[string]any) { m["dlugosc_sekund"] = 600 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := validGenerateBody()
			tt.mutate(body)
			resp := postJSON(t, env.server.URL+"/api/v1/wideo/generuj", body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			errBody := decodeBody[apiErrorBody](t, resp)
			assert.Equal(t, "validation", errBody.Code)
			assert.NotEmpty(t, errBody.Fields)
		})
	}
}

func TestVideoStatusNotFound(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Get(env.server.URL + "/api/v1/wideo/nie-ma/status")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestVideoCancelLifecycle(t *testing.T) {
	env := newTestEnv(t)

	resp := postJSON(t, env.server.URL+"/api/v1/wideo/generuj", validGenerateBody())
	job := decodeBody[domain.Job](t, resp)

	cancelURL := fmt.Sprintf("%s/api/v1/wideo/%s/anuluj", env.server.URL, job.SessionID)
	resp = postJSON(t, cancelURL, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// A second cancel hits the terminal guard.
	resp = postJSON(t, cancelURL, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	stored, err := env.jobs.GetBySessionID(context.Background(), job.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCancelled, stored.Status)
}

func TestVideoDownloadBeforeFinishConflicts(t *testing.T) {
	env := newTestEnv(t)

	resp := postJSON(t, env.server.URL+"/api/v1/wideo/generuj", validGenerateBody())
	job := decodeBody[domain.Job](t, resp)

	resp, err := http.Get(fmt.Sprintf("%s/api/v1/wideo/%s/pobierz", env.server.URL, job.SessionID))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestVideoDownloadStreamsArtifact(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := postJSON(t, env.server.URL+"/api/v1/wideo/generuj", validGenerateBody())
	job := decodeBody[domain.Job](t, resp)

	content := []byte("nagranie testowe")
	_, err := env.app.Store.Write(ctx, storage.SessionKey(job.SessionID, storage.VideoFileName), content)
	require.NoError(t, err)

	job.Status = domain.JobStatusSucceeded
	require.NoError(t, env.jobs.Finalize(ctx, &job))

	resp, err = http.Get(fmt.Sprintf("%s/api/v1/wideo/%s/pobierz", env.server.URL, job.SessionID))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "video/mp4", resp.Header.Get("Content-Type"))
	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestVideoStatusCarriesArtifactLinks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := postJSON(t, env.server.URL+"/api/v1/wideo/generuj", validGenerateBody())
	job := decodeBody[domain.Job](t, resp)

	statusURL := fmt.Sprintf("%s/api/v1/wideo/%s/status", env.server.URL, job.SessionID)
	resp, err := http.Get(statusURL)
	require.NoError(t, err)
	before := decodeBody[map[string]any](t, resp)
	assert.NotContains(t, before, "adres_pobrania")

	_, err = env.app.Store.Write(ctx, storage.SessionKey(job.SessionID, storage.VideoFileName), []byte("nagranie"))
	require.NoError(t, err)
	job.Status = domain.JobStatusSucceeded
	require.NoError(t, env.jobs.Finalize(ctx, &job))

	resp, err = http.Get(statusURL)
	require.NoError(t, err)
	after := decodeBody[map[string]any](t, resp)
	link, _ := after["adres_pobrania"].(string)
	assert.Equal(t, "http://localhost:8080/static/"+job.SessionID+"/"+storage.VideoFileName, link)
	// No thumbnail was written, so no thumbnail link is advertised.
	assert.NotContains(t, after, "adres_miniaturki")
}

func TestVideoHistoryLimits(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 3; i++ {
		resp := postJSON(t, env.server.URL+"/api/v1/wideo/generuj", validGenerateBody())
		resp.Body.Close()
	}

	resp, err := http.Get(env.server.URL + "/api/v1/wideo/historia?limit=2")
	require.NoError(t, err)
	body := decodeBody[struct {
		Jobs  []domain.Job `json:"zadania"`
		Count int          `json:"liczba"`
	}](t, resp)
	assert.Equal(t, 2, body.Count)
	assert.Len(t, body.Jobs, 2)

	resp, err = http.Get(env.server.URL + "/api/v1/wideo/historia?limit=1000")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestViralityPredictHeuristic(t *testing.T) {
	env := newTestEnv(t)

	resp := postJSON(t, env.server.URL+"/api/v1/wideo/wiralnosc", map[string]any{
		"brief":          "pomysł na serię o gotowaniu w 60 sekund",
		"platforma":      []string{"tiktok", "instagram"},
		"dlugosc_sekund": 60,
		"typ_haka":       "luk_ciekawosci",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]any](t, resp)
	score, _ := body["wynik_nwv"].(float64)
	assert.Greater(t, score, 0.0)
	assert.NotEmpty(t, body["odznaka"])
	assert.Contains(t, body["wynik_platformy"], "tiktok")
	// Heuristic mode makes no provider call, and the spend is still reported.
	cost, ok := body["koszt_usd"].(float64)
	assert.True(t, ok, "response must carry koszt_usd")
	assert.Zero(t, cost)
}
