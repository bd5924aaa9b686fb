package handlers

import (
	"context"
	"net/http"
	"time"

	"nexus/internal/domain"
)

type viralityRequest struct {
	Brief           string   `json:"brief" validate:"required,min=10,max=2000"`
	Platforms       []string `json:"platforma" validate:"required,min=1,dive,platforma"`
	DurationSeconds int      `json:"dlugosc_sekund" validate:"required,min=15,max=180"`
	HookType        string   `json:"typ_haka"`
	VisualHook      string   `json:"hak_wizualny"`
	TextHook        string   `json:"hak_tekstowy"`
}

// ViralityPredict scores a content idea without triggering generation. One
// economy-model call at most; the heuristic answers when no key is set.
func (a *App) ViralityPredict(w http.ResponseWriter, r *http.Request) {
	var req viralityRequest
	if !a.decodeValid(w, r, &req) {
		return
	}

	plan := &domain.ContentPlan{
		Topic:         req.Brief,
		Platforms:     req.Platforms,
		LengthSeconds: req.DurationSeconds,
		HookType:      req.HookType,
		VisualHook:    req.VisualHook,
		TextHook:      req.TextHook,
	}
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	report, cost, err := a.Scoring.Predict(ctx, plan, nil)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: virality prediction failed")
		a.error(w, http.StatusInternalServerError, "internal", "prediction failed")
		return
	}
	a.Logger.Info().Int("score", report.ViralScore).Float64("cost_usd", cost).Msg("handlers: virality preview")
	a.json(w, http.StatusOK, viralityResponse{ScoreReport: report, CostUSD: cost})
}

// viralityResponse extends the score report with the provider spend of the
// preview call, so ad-hoc scoring stays visible in cost accounting.
type viralityResponse struct {
	*domain.ScoreReport
	CostUSD float64 `json:"koszt_usd"`
}
