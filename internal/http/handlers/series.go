package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"nexus/internal/domain"
	"nexus/internal/series"
)

type seriesGenerateRequest struct {
	Topic          string   `json:"temat" validate:"required,min=3,max=500"`
	Genre          string   `json:"gatunek"`
	EpisodeCount   int      `json:"liczba_odcinkow" validate:"required,min=2,max=10"`
	EpisodeSeconds int      `json:"dlugosc_odcinka_s" validate:"omitempty,min=15,max=180"`
	Platforms      []string `json:"platforma" validate:"required,min=1,dive,platforma"`
	VisualStyle    string   `json:"styl_wizualny"`
	Voice          string   `json:"glos"`
	GenerateFirst  bool     `json:"generuj_pierwszy"`
}

// SeriesGenerate plans a new episode series and optionally enqueues the first
// episode's generation job right away.
func (a *App) SeriesGenerate(w http.ResponseWriter, r *http.Request) {
	var req seriesGenerateRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	if req.EpisodeSeconds == 0 {
		req.EpisodeSeconds = 45
	}

	planned, cost, err := a.Planner.Plan(r.Context(), series.PlanRequest{
		Topic:          req.Topic,
		Genre:          req.Genre,
		EpisodeCount:   req.EpisodeCount,
		EpisodeSeconds: req.EpisodeSeconds,
		Platforms:      req.Platforms,
		VisualStyle:    req.VisualStyle,
		Voice:          req.Voice,
	})
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	planned.TotalCostUSD += cost

	if req.GenerateFirst {
		if err := a.enqueueEpisode(r.Context(), planned, 1); err != nil {
			a.Logger.Error().Err(err).Msg("handlers: first episode enqueue failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to queue first episode")
			return
		}
		planned.Status = domain.SeriesStatusProduction
	}

	if err := a.Series.Create(r.Context(), planned); err != nil {
		a.Logger.Error().Err(err).Msg("handlers: series create failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to store series")
		return
	}
	a.Logger.Info().Str("seria_id", planned.ID).Int("episodes", len(planned.Episodes)).Msg("handlers: series planned")
	a.json(w, http.StatusCreated, planned)
}

// SeriesList returns all series.
func (a *App) SeriesList(w http.ResponseWriter, r *http.Request) {
	all, err := a.Series.List(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: series list failed")
		a.error(w, http.StatusInternalServerError, "internal", "storage failure")
		return
	}
	if all == nil {
		all = []domain.Series{}
	}
	a.json(w, http.StatusOK, map[string]any{"serie": all, "liczba": len(all)})
}

// SeriesGet returns one series with its episode metadata.
func (a *App) SeriesGet(w http.ResponseWriter, r *http.Request) {
	found, err := a.Series.Get(r.Context(), chi.URLParam(r, "seria_id"))
	if err != nil {
		a.notFoundOr(w, err, "series")
		return
	}
	a.json(w, http.StatusOK, found)
}

type seriesContinueRequest struct {
	NewEpisodes int `json:"liczba_nowych_odcinkow" validate:"required,min=1,max=5"`
}

// SeriesContinue plans the next episodes and enqueues a generation job for
// each, carrying the narrative context of everything before it.
func (a *App) SeriesContinue(w http.ResponseWriter, r *http.Request) {
	var req seriesContinueRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	current, err := a.Series.Get(r.Context(), chi.URLParam(r, "seria_id"))
	if err != nil {
		a.notFoundOr(w, err, "series")
		return
	}

	first := len(current.Episodes) + 1
	cost, err := a.Planner.Continue(r.Context(), current, req.NewEpisodes)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	current.TotalCostUSD += cost

	for number := first; number < first+req.NewEpisodes; number++ {
		if err := a.enqueueEpisode(r.Context(), current, number); err != nil {
			a.Logger.Error().Err(err).Int("episode", number).Msg("handlers: episode enqueue failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to queue episode")
			return
		}
	}
	current.Status = domain.SeriesStatusProduction

	if err := a.Series.Update(r.Context(), current); err != nil {
		a.Logger.Error().Err(err).Msg("handlers: series update failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to store series")
		return
	}
	a.json(w, http.StatusAccepted, current)
}

// SeriesDelete removes a series plan. Jobs already generated stay available.
func (a *App) SeriesDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.Series.Delete(r.Context(), chi.URLParam(r, "seria_id")); err != nil {
		a.notFoundOr(w, err, "series")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// enqueueEpisode creates the generation job for one planned episode and marks
// the episode as generating.
func (a *App) enqueueEpisode(ctx context.Context, s *domain.Series, number int) error {
	job := &domain.Job{
		SessionID:       uuid.NewString(),
		Brief:           series.ContinuationBrief(s, number),
		Platforms:       s.Platforms,
		VisualStyle:     s.VisualStyle,
		Voice:           s.Voice,
		DurationSeconds: s.EpisodeSeconds,
		Status:          domain.JobStatusQueued,
		SeriesID:        s.ID,
		EpisodeNumber:   number,
		SeriesContext:   series.ContinuityContext(s, number),
	}
	if err := job.ValidateInput(); err != nil {
		return err
	}
	if err := a.Jobs.Create(ctx, job); err != nil {
		return err
	}
	for i := range s.Episodes {
		if s.Episodes[i].Number == number {
			s.Episodes[i].SessionID = job.SessionID
			s.Episodes[i].Status = domain.EpisodeStatusGenerating
			break
		}
	}
	return nil
}
