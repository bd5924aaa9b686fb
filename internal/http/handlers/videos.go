package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"nexus/internal/domain"
	"nexus/internal/storage"
)

type generateRequest struct {
	Brief           string       `json:"brief" validate:"required,min=10,max=2000"`
	Platforms       []string     `json:"platforma" validate:"required,min=1,dive,platforma"`
	DurationSeconds int          `json:"dlugosc_sekund" validate:"required,min=15,max=180"`
	Voice           string       `json:"glos"`
	VisualStyle     string       `json:"styl_wizualny"`
	Brand           domain.Brand `json:"marka"`
}

// VideoGenerate accepts a brief and enqueues a generation job. The pipeline
// runs asynchronously; callers poll the status endpoint.
func (a *App) VideoGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !a.decodeValid(w, r, &req) {
		return
	}

	job := &domain.Job{
		SessionID:       uuid.NewString(),
		Brief:           req.Brief,
		Platforms:       req.Platforms,
		Brand:           req.Brand,
		VisualStyle:     req.VisualStyle,
		Voice:           req.Voice,
		DurationSeconds: req.DurationSeconds,
		Status:          domain.JobStatusQueued,
	}
	if err := job.ValidateInput(); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if err := a.Jobs.Create(r.Context(), job); err != nil {
		a.Logger.Error().Err(err).Msg("handlers: job create failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to queue job")
		return
	}
	a.Logger.Info().Str("session_id", job.SessionID).Msg("handlers: job queued")
	a.json(w, http.StatusAccepted, job)
}

type statusResponse struct {
	*domain.Job
	DownloadURL  string `json:"adres_pobrania,omitempty"`
	ThumbnailURL string `json:"adres_miniaturki,omitempty"`
}

// VideoStatus returns the live job record. Once the video is published the
// response carries direct artifact links under the configured storage prefix.
func (a *App) VideoStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := a.loadJob(w, r)
	if !ok {
		return
	}
	resp := statusResponse{Job: job}
	if job.Status == domain.JobStatusSucceeded || job.Status == domain.JobStatusPartial {
		resp.DownloadURL = a.artifactURL(job.SessionID, storage.VideoFileName)
		resp.ThumbnailURL = a.artifactURL(job.SessionID, storage.ThumbnailFileName)
	}
	a.json(w, http.StatusOK, resp)
}

// artifactURL returns the public link for a stored artifact, or "" when the
// file is absent or no base URL is configured.
func (a *App) artifactURL(sessionID, name string) string {
	if a.BaseURL == "" {
		return ""
	}
	key := storage.SessionKey(sessionID, name)
	if !a.Store.Exists(key) {
		return ""
	}
	return strings.TrimRight(a.BaseURL, "/") + "/" + key
}

// VideoCancel stops a queued or running job. Terminal jobs stay as they are.
func (a *App) VideoCancel(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sesja_id")
	err := a.Jobs.Cancel(r.Context(), sessionID)
	switch {
	case err == nil:
		a.json(w, http.StatusOK, map[string]string{"sesja_id": sessionID, "status": string(domain.JobStatusCancelled)})
	case errors.Is(err, domain.ErrJobTerminal):
		a.error(w, http.StatusConflict, "terminal", "job already finished")
	default:
		a.notFoundOr(w, err, "job")
	}
}

// VideoDownload streams the composed MP4 of a finished job.
func (a *App) VideoDownload(w http.ResponseWriter, r *http.Request) {
	a.serveArtifact(w, r, storage.VideoFileName, "video/mp4")
}

// VideoThumbnail streams the thumbnail frame.
func (a *App) VideoThumbnail(w http.ResponseWriter, r *http.Request) {
	a.serveArtifact(w, r, storage.ThumbnailFileName, "image/jpeg")
}

func (a *App) serveArtifact(w http.ResponseWriter, r *http.Request, name, contentType string) {
	job, ok := a.loadJob(w, r)
	if !ok {
		return
	}
	if job.Status != domain.JobStatusSucceeded && job.Status != domain.JobStatusPartial {
		a.error(w, http.StatusConflict, "not_ready", "job has no published video")
		return
	}
	f, info, err := a.Store.Open(storage.SessionKey(job.SessionID, name))
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "artifact not found")
		return
	}
	defer f.Close()
	w.Header().Set("Content-Type", contentType)
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// VideoHistory lists recent jobs, newest first.
func (a *App) VideoHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			a.error(w, http.StatusBadRequest, "bad_request", "limit must be in [1, 100]")
			return
		}
		limit = parsed
	}
	jobs, err := a.Jobs.ListRecent(r.Context(), limit)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: history query failed")
		a.error(w, http.StatusInternalServerError, "internal", "storage failure")
		return
	}
	if jobs == nil {
		jobs = []domain.Job{}
	}
	a.json(w, http.StatusOK, map[string]any{"zadania": jobs, "liczba": len(jobs)})
}

func (a *App) loadJob(w http.ResponseWriter, r *http.Request) (*domain.Job, bool) {
	sessionID := chi.URLParam(r, "sesja_id")
	job, err := a.Jobs.GetBySessionID(r.Context(), sessionID)
	if err != nil {
		a.notFoundOr(w, err, "job")
		return nil, false
	}
	return job, true
}
