// Package handlers implements the JSON API surface. Wire field names are
// Polish per the public contract; identifiers stay English.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"nexus/internal/domain"
	"nexus/internal/series"
	"nexus/internal/storage"
	"nexus/internal/virality"
)

// App bundles the handler dependencies.
type App struct {
	Jobs    domain.JobRepository
	Series  domain.SeriesRepository
	Stats   domain.StatsRepository
	Store   *storage.FileStore
	Scoring *virality.Engine
	Planner *series.Planner
	Logger  zerolog.Logger

	// BaseURL is the public prefix under which stored artifacts are
	// reachable; status responses build download links from it.
	BaseURL string

	validate *validator.Validate
}

// NewApp builds the handler set. The platforma tag validates platform fields
// against domain.KnownPlatforms so the accepted set lives in one place.
func NewApp(app App) *App {
	app.validate = validator.New(validator.WithRequiredStructEnabled())
	_ = app.validate.RegisterValidation("platforma", func(fl validator.FieldLevel) bool {
		return domain.PlatformKnown(fl.Field().String())
	})
	return &app
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Code    string   `json:"kod"`
	Message string   `json:"komunikat"`
	Fields  []string `json:"pola,omitempty"`
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorResponse{Code: code, Message: message})
}

// decodeValid decodes the body into v and runs struct validation. A false
// return means the response was already written.
func (a *App) decodeValid(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return false
	}
	if err := a.validate.Struct(v); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) {
			fields := make([]string, 0, len(invalid))
			for _, fe := range invalid {
				fields = append(fields, fmt.Sprintf("%s: %s", strings.ToLower(fe.Field()), fe.Tag()))
			}
			a.json(w, http.StatusBadRequest, errorResponse{Code: "validation", Message: "invalid fields", Fields: fields})
			return false
		}
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return false
	}
	return true
}

// notFoundOr maps domain errors onto the right status.
func (a *App) notFoundOr(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, domain.ErrNotFound) {
		a.error(w, http.StatusNotFound, "not_found", what+" not found")
		return
	}
	a.Logger.Error().Err(err).Msg("handlers: storage failure")
	a.error(w, http.StatusInternalServerError, "internal", "storage failure")
}
