package virality

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"nexus/internal/domain"
	"nexus/internal/pricing"
	"nexus/internal/providers/openai"
)

// NVS component weights.
const (
	WeightHook      = 0.30
	WeightRetention = 0.25
	WeightShare     = 0.25
	WeightPlatform  = 0.20
)

// Badge thresholds used for annotation only; the pipeline's accept decision
// lives in the quality gate.
const (
	BadgeHighPotential = "🔥 Wysoki potencjał wiralny"
	BadgeGood          = "✅ Dobry content"
	BadgeNeedsWork     = "⚠️ Wymaga poprawy"
)

// Badge maps a composite score onto its annotation.
func Badge(score int) string {
	switch {
	case score >= 85:
		return BadgeHighPotential
	case score >= 60:
		return BadgeGood
	default:
		return BadgeNeedsWork
	}
}

// Composite folds the sub-scores into the weighted 0-100 viral score.
func Composite(hook, retention, share int, platforms map[string]int) int {
	platformAvg := 0.0
	if len(platforms) > 0 {
		sum := 0
		for _, v := range platforms {
			sum += v
		}
		platformAvg = float64(sum) / float64(len(platforms))
	}
	score := float64(hook)*WeightHook +
		float64(retention)*WeightRetention +
		float64(share)*WeightShare +
		platformAvg*WeightPlatform
	return clampScore(int(score))
}

// Engine predicts pre-generation virality. It never runs the generation
// pipeline; one economy-model chat call is the whole cost.
type Engine struct {
	client *openai.Client
	model  string
	prices pricing.Table
	logger zerolog.Logger
}

// NewEngine constructs the engine around a configured client.
func NewEngine(client *openai.Client, model string, prices pricing.Table, logger zerolog.Logger) *Engine {
	return &Engine{client: client, model: model, prices: prices, logger: logger}
}

const analystSystemPrompt = `Jesteś analitykiem wiralności wideo krótkiego formatu (TikTok, YouTube Shorts, Instagram Reels).
Oceń przewidywaną wiralność na podstawie haka, scenariusza i platform docelowych.
Odpowiadaj WYŁĄCZNIE w JSON o polach:
{"wynik_haka":0-100,"wynik_zatrzymania":0-100,"wynik_udostepnialnosci":0-100,
"wynik_platformy":{"tiktok":0-100,"youtube":0-100,"instagram":0-100},
"uzasadnienie":"...","wskazowki_optymalizacji":["...","...","..."]}`

// Predict scores a content plan (and optionally a script draft) and returns
// the report with the cost of the analysis call. Without an API key, or when
// the provider misbehaves, the deterministic heuristic serves the preview.
func (e *Engine) Predict(ctx context.Context, plan *domain.ContentPlan, script *domain.Script) (*domain.ScoreReport, float64, error) {
	if e.client.Synthetic() {
		return HeuristicReport(plan, script), 0, nil
	}

	raw, usage, err := e.client.ChatJSON(ctx, openai.ChatRequest{
		Model:       e.model,
		System:      analystSystemPrompt,
		User:        buildAnalysisPrompt(plan, script),
		Temperature: 0.2,
		MaxTokens:   800,
	})
	cost := e.prices.ChatCost(e.model, usage.PromptTokens, usage.CompletionTokens)
	if err != nil {
		e.logger.Warn().Err(err).Msg("virality: analysis call failed, using heuristic")
		report := HeuristicReport(plan, script)
		report.Rationale = "Ocena heurystyczna"
		return report, cost, nil
	}

	var report domain.ScoreReport
	if err := json.Unmarshal(raw, &report); err != nil {
		e.logger.Warn().Err(err).Msg("virality: unparseable analysis, using heuristic")
		report := HeuristicReport(plan, script)
		report.Rationale = "Ocena heurystyczna"
		return report, cost, nil
	}
	normalizeReport(&report, plan)
	return &report, cost, nil
}

func buildAnalysisPrompt(plan *domain.ContentPlan, script *domain.Script) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Hak\nWizualny: %s\nTekstowy: %s\nWerbalny: %s\nTyp: %s\n\n",
		plan.VisualHook, plan.TextHook, plan.VerbalHook, plan.HookType)
	if script != nil {
		fmt.Fprintf(&b, "## Scenariusz\n%s\nCzas trwania: %.0fs\nLiczba scen: %d\nCTA: %s\n\n",
			script.Summary, script.TotalSeconds, len(script.Scenes), script.CallToAction)
	} else {
		fmt.Fprintf(&b, "## Temat\n%s\nCzas trwania: %ds\n\n", plan.Topic, plan.LengthSeconds)
	}
	fmt.Fprintf(&b, "## Platformy: %s\n", strings.Join(plan.Platforms, ", "))
	return b.String()
}

func normalizeReport(report *domain.ScoreReport, plan *domain.ContentPlan) {
	report.HookScore = clampScore(report.HookScore)
	report.RetentionScore = clampScore(report.RetentionScore)
	report.ShareScore = clampScore(report.ShareScore)
	if len(report.PlatformScores) == 0 {
		report.PlatformScores = map[string]int{}
		for _, p := range plan.Platforms {
			report.PlatformScores[p] = report.HookScore
		}
	}
	for k, v := range report.PlatformScores {
		report.PlatformScores[k] = clampScore(v)
	}
	if report.ViralScore == 0 {
		report.ViralScore = Composite(report.HookScore, report.RetentionScore, report.ShareScore, report.PlatformScores)
	}
	report.ViralScore = clampScore(report.ViralScore)
	if report.Badge == "" {
		report.Badge = Badge(report.ViralScore)
	}
}

// Hook types that historically outperform the baseline.
var premiumHooks = map[string]bool{
	"luk_ciekawosci":    true,
	"pattern_interrupt": true,
	"szok_humor":        true,
}

// HeuristicScore is the API-free virality estimate used for previews and
// synthetic operation.
func HeuristicScore(plan *domain.ContentPlan, script *domain.Script) int {
	score := 50

	if premiumHooks[plan.HookType] {
		score += 10
	}
	if len(plan.Platforms) >= 2 {
		score += 5
	}
	switch {
	case plan.LengthSeconds >= 30 && plan.LengthSeconds <= 90:
		score += 10
	case plan.LengthSeconds > 120:
		score -= 10
	}
	if plan.VisualHook != "" && plan.TextHook != "" {
		score += 8
	}
	if script != nil {
		bonus := int(script.EngagementScore * 15)
		if bonus > 10 {
			bonus = 10
		}
		score += bonus
		if len(script.Scenes) < 3 {
			score -= 10
		}
	}
	return clampScore(score)
}

// HeuristicReport expands the heuristic estimate into a full report shape.
func HeuristicReport(plan *domain.ContentPlan, script *domain.Script) *domain.ScoreReport {
	nvs := HeuristicScore(plan, script)
	platforms := map[string]int{}
	for _, p := range plan.Platforms {
		platforms[p] = nvs
	}
	return &domain.ScoreReport{
		ViralScore:       nvs,
		HookScore:        nvs,
		RetentionScore:   clampScore(nvs - 5),
		ShareScore:       clampScore(nvs - 10),
		PlatformScores:   platforms,
		Badge:            Badge(nvs),
		Rationale:        "Ocena heurystyczna",
		OptimizationTips: []string{},
	}
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
