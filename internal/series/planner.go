// Package series plans multi-episode narratives and keeps continuity between
// the jobs generating their episodes.
package series

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"nexus/internal/domain"
	"nexus/internal/pricing"
	"nexus/internal/providers/openai"
)

// Episode count bounds for a planned series and for one continuation call.
const (
	MinEpisodes             = 2
	MaxEpisodes             = 10
	MaxContinuationEpisodes = 5
)

// Planner designs series arcs and episode outlines through the chat facade,
// with a deterministic fallback when no provider credentials are configured.
type Planner struct {
	client *openai.Client
	model  string
	prices pricing.Table
	logger zerolog.Logger
}

// NewPlanner builds a series planner.
func NewPlanner(client *openai.Client, model string, prices pricing.Table, logger zerolog.Logger) *Planner {
	return &Planner{client: client, model: model, prices: prices, logger: logger}
}

// PlanRequest describes the series to design.
type PlanRequest struct {
	Topic          string
	Genre          string
	EpisodeCount   int
	EpisodeSeconds int
	Platforms      []string
	VisualStyle    string
	Voice          string
}

const plannerSystemPrompt = `Jesteś Architektem Serii wideo krótkiego formatu.
Zaprojektuj spójną serię odcinków na zadany temat. Każdy odcinek kończy się
cliffhangerem prowadzącym do następnego. Odpowiadaj WYŁĄCZNIE w JSON:
{"tytul_serii":"...","opis_serii":"...","luk_narracyjny":["etap na odcinek"],
"odcinki":[{"numer":1,"tytul":"...","streszczenie":"...","haczyk_konca":"..."}]}`

type plannerPayload struct {
	Title        string `json:"tytul_serii"`
	Description  string `json:"opis_serii"`
	NarrativeArc []string `json:"luk_narracyjny"`
	Episodes     []struct {
		Number      int    `json:"numer"`
		Title       string `json:"tytul"`
		Summary     string `json:"streszczenie"`
		Cliffhanger string `json:"haczyk_konca"`
	} `json:"odcinki"`
}

// Plan designs a new series. The returned cost is the provider spend of the
// single planning call.
func (p *Planner) Plan(ctx context.Context, req PlanRequest) (*domain.Series, float64, error) {
	if req.EpisodeCount < MinEpisodes || req.EpisodeCount > MaxEpisodes {
		return nil, 0, fmt.Errorf("episode count %d outside [%d, %d]", req.EpisodeCount, MinEpisodes, MaxEpisodes)
	}

	series := &domain.Series{
		ID:             uuid.NewString(),
		Topic:          req.Topic,
		Genre:          req.Genre,
		Platforms:      req.Platforms,
		VisualStyle:    req.VisualStyle,
		Voice:          req.Voice,
		EpisodeSeconds: req.EpisodeSeconds,
		EpisodeCount:   req.EpisodeCount,
		Status:         domain.SeriesStatusPlanning,
	}

	if p.client.Synthetic() {
		p.syntheticOutline(series, 1, req.EpisodeCount)
		return series, 0, nil
	}

	user := fmt.Sprintf("Temat: %s\nGatunek: %s\nLiczba odcinków: %d\nDługość odcinka: %ds\nPlatformy: %s",
		req.Topic, req.Genre, req.EpisodeCount, req.EpisodeSeconds, strings.Join(req.Platforms, ", "))
	raw, usage, err := p.client.ChatJSON(ctx, openai.ChatRequest{
		Model:       p.model,
		System:      plannerSystemPrompt,
		User:        user,
		Temperature: 0.8,
		MaxTokens:   1600,
	})
	cost := p.prices.ChatCost(p.model, usage.PromptTokens, usage.CompletionTokens)
	if err != nil {
		p.logger.Warn().Err(err).Msg("series: planning call failed, using deterministic outline")
		p.syntheticOutline(series, 1, req.EpisodeCount)
		return series, cost, nil
	}

	var payload plannerPayload
	if err := json.Unmarshal(raw, &payload); err != nil || len(payload.Episodes) == 0 {
		p.logger.Warn().Err(err).Msg("series: unusable planning payload, using deterministic outline")
		p.syntheticOutline(series, 1, req.EpisodeCount)
		return series, cost, nil
	}
	p.applyPayload(series, payload, 1, req.EpisodeCount)
	return series, cost, nil
}

// Continue outlines n further episodes after the current last one and appends
// them to the series.
func (p *Planner) Continue(ctx context.Context, series *domain.Series, n int) (float64, error) {
	if n < 1 || n > MaxContinuationEpisodes {
		return 0, fmt.Errorf("continuation episode count %d outside [1, %d]", n, MaxContinuationEpisodes)
	}
	first := len(series.Episodes) + 1

	if p.client.Synthetic() {
		p.syntheticOutline(series, first, n)
		series.EpisodeCount = len(series.Episodes)
		return 0, nil
	}

	user := fmt.Sprintf("Seria: %s\nTemat: %s\nDotychczasowe odcinki:\n%s\nZaplanuj %d kolejnych odcinków, numery od %d.",
		series.Title, series.Topic, episodeDigest(series.Episodes), n, first)
	raw, usage, err := p.client.ChatJSON(ctx, openai.ChatRequest{
		Model:       p.model,
		System:      plannerSystemPrompt,
		User:        user,
		Temperature: 0.8,
		MaxTokens:   1200,
	})
	cost := p.prices.ChatCost(p.model, usage.PromptTokens, usage.CompletionTokens)
	if err != nil {
		p.logger.Warn().Err(err).Msg("series: continuation call failed, using deterministic outline")
		p.syntheticOutline(series, first, n)
		series.EpisodeCount = len(series.Episodes)
		return cost, nil
	}

	var payload plannerPayload
	if err := json.Unmarshal(raw, &payload); err != nil || len(payload.Episodes) == 0 {
		p.syntheticOutline(series, first, n)
		series.EpisodeCount = len(series.Episodes)
		return cost, nil
	}
	p.applyPayload(series, payload, first, n)
	series.EpisodeCount = len(series.Episodes)
	return cost, nil
}

func (p *Planner) applyPayload(series *domain.Series, payload plannerPayload, first, count int) {
	if series.Title == "" {
		series.Title = payload.Title
	}
	if series.Description == "" {
		series.Description = payload.Description
	}
	series.NarrativeArc = append(series.NarrativeArc, payload.NarrativeArc...)
	for i, ep := range payload.Episodes {
		if i >= count {
			break
		}
		series.Episodes = append(series.Episodes, domain.Episode{
			Number:      first + i,
			Title:       ep.Title,
			Summary:     ep.Summary,
			Cliffhanger: ep.Cliffhanger,
			Status:      domain.EpisodeStatusPending,
		})
	}
	// Providers occasionally return fewer episodes than asked for.
	for len(series.Episodes) < first+count-1 {
		p.syntheticOutline(series, len(series.Episodes)+1, 1)
	}
}

// syntheticOutline appends count deterministic episodes starting at number
// first.
func (p *Planner) syntheticOutline(series *domain.Series, first, count int) {
	if series.Title == "" {
		series.Title = "Seria: " + series.Topic
	}
	if series.Description == "" {
		series.Description = fmt.Sprintf("Seria %d odcinków o temacie: %s", count, series.Topic)
	}
	for i := 0; i < count; i++ {
		number := first + i
		series.NarrativeArc = append(series.NarrativeArc, fmt.Sprintf("etap %d: rozwinięcie tematu %s", number, series.Topic))
		series.Episodes = append(series.Episodes, domain.Episode{
			Number:      number,
			Title:       fmt.Sprintf("%s, odcinek %d", series.Topic, number),
			Summary:     fmt.Sprintf("Odcinek %d rozwija wątek: %s.", number, series.Topic),
			Cliffhanger: fmt.Sprintf("Co wydarzy się w odcinku %d?", number+1),
			Status:      domain.EpisodeStatusPending,
		})
	}
}

// ContinuationBrief builds the generation brief for the given episode from
// the arc so far. Passed to the job as its Brief.
func ContinuationBrief(series *domain.Series, episodeNumber int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Odcinek %d serii %q (%s).", episodeNumber, series.Title, series.Genre)
	for _, ep := range series.Episodes {
		if ep.Number == episodeNumber {
			fmt.Fprintf(&b, " Tytuł odcinka: %s. %s", ep.Title, ep.Summary)
			break
		}
	}
	return b.String()
}

// ContinuityContext summarizes everything before the given episode. Attached
// to the job so stage prompts keep narrative continuity.
func ContinuityContext(series *domain.Series, episodeNumber int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Seria %q, temat: %s.\n", series.Title, series.Topic)
	for _, ep := range series.Episodes {
		if ep.Number >= episodeNumber {
			break
		}
		fmt.Fprintf(&b, "Odcinek %d (%s): %s Cliffhanger: %s\n", ep.Number, ep.Title, ep.Summary, ep.Cliffhanger)
	}
	return strings.TrimSpace(b.String())
}

func episodeDigest(episodes []domain.Episode) string {
	var b strings.Builder
	for _, ep := range episodes {
		fmt.Fprintf(&b, "- %d. %s: %s (cliffhanger: %s)\n", ep.Number, ep.Title, ep.Summary, ep.Cliffhanger)
	}
	return b.String()
}
