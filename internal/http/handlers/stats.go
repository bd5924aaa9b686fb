package handlers

import (
	"net/http"
	"time"

	"nexus/internal/domain"
)

// PlatformStats returns daily aggregates over finished jobs. The default
// window is the last 30 days; od/do accept YYYY-MM-DD bounds.
func (a *App) PlatformStats(w http.ResponseWriter, r *http.Request) {
	to := time.Now()
	from := to.AddDate(0, 0, -30)
	var err error
	if raw := r.URL.Query().Get("od"); raw != "" {
		if from, err = time.Parse("2006-01-02", raw); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "od must be YYYY-MM-DD")
			return
		}
	}
	if raw := r.URL.Query().Get("do"); raw != "" {
		if to, err = time.Parse("2006-01-02", raw); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "do must be YYYY-MM-DD")
			return
		}
	}
	if to.Before(from) {
		a.error(w, http.StatusBadRequest, "bad_request", "do precedes od")
		return
	}

	days, err := a.Stats.PlatformStats(r.Context(), from, to)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: stats query failed")
		a.error(w, http.StatusInternalServerError, "internal", "storage failure")
		return
	}
	if days == nil {
		days = []domain.PlatformDay{}
	}
	a.json(w, http.StatusOK, map[string]any{"dni": days, "liczba": len(days)})
}
