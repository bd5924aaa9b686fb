package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"nexus/internal/domain"
	"nexus/internal/pricing"
	"nexus/internal/providers/openai"
	"nexus/internal/virality"
)

// QualityReviewer scores the complete draft (plan, script, audio, visuals)
// and produces the ScoreReport the gate decides on. The one stage that runs
// on the smart model: the accept decision is the most expensive mistake in
// the pipeline.
type QualityReviewer struct {
	client *openai.Client
	model  string
	prices pricing.Table
}

// NewQualityReviewer builds the review stage.
func NewQualityReviewer(client *openai.Client, model string, prices pricing.Table) *QualityReviewer {
	return &QualityReviewer{client: client, model: model, prices: prices}
}

func (r *QualityReviewer) Name() string { return StageQualityReviewer }

const reviewerSystemPrompt = `Jesteś Recenzentem Jakości — najostrzejszym krytykiem treści wideo krótkiego formatu.
Oceń projekt wideo przed publikacją: hak (0-100), scenariusz (0-100), wizualia (0-100), audio (0-100).
Odpowiadaj WYŁĄCZNIE w JSON o polach:
{"wynik_ogolny":0-100,"wynik_haka":0-100,"wynik_scenariusza":0-100,"wynik_wizualny":0-100,
"wynik_audio":0-100,"slabe_punkty":["..."],"mocne_punkty":["..."],"sugestie":["..."],
"zatwierdzone":true,
"ocena_wiralnosci":{"wynik_nwv":0-100,"wynik_haka":0-100,"wynik_zatrzymania":0-100,
"wynik_udostepnialnosci":0-100,"wynik_platformy":{"tiktok":0-100,"youtube":0-100,"instagram":0-100},
"uzasadnienie":"...","wskazowki_optymalizacji":["..."]}}`

func (r *QualityReviewer) Run(ctx context.Context, st *State) (StageResult, error) {
	start := time.Now()
	result := StageResult{Stage: r.Name()}

	if st.Plan == nil || st.Script == nil {
		return result, invalidOutput(r.Name(), fmt.Errorf("draft incomplete"))
	}

	if r.client.Synthetic() {
		st.Review = syntheticReview(st)
		result.Duration = time.Since(start)
		result.Success = true
		return result, nil
	}

	planJSON, _ := json.Marshal(st.Plan)
	scriptJSON, _ := json.Marshal(st.Script)
	imageCount := 0
	if st.Visuals != nil {
		imageCount = st.Visuals.ImageCount
	}
	user := fmt.Sprintf("## Plan treści:\n%s\n\n## Scenariusz:\n%s\n\n## Audio:\nGłos: %s, czas: %.0fs, słów: %d\n\n## Wizualia:\nObrazów: %d, styl: %s\n\n## Platformy: %v",
		planJSON, scriptJSON, st.Voice, st.Script.TotalSeconds, st.Script.WordCount, imageCount, st.VisualStyle, st.Platforms)

	raw, usage, err := r.client.ChatJSON(ctx, openai.ChatRequest{
		Model:       r.model,
		System:      reviewerSystemPrompt,
		User:        user,
		Temperature: 0.2,
		MaxTokens:   1200,
	})
	result.CostUSD = r.prices.ChatCost(r.model, usage.PromptTokens, usage.CompletionTokens)
	result.Duration = time.Since(start)
	if err != nil {
		return result, classify(r.Name(), err)
	}

	var review domain.QualityReview
	if err := json.Unmarshal(raw, &review); err != nil {
		return result, invalidOutput(r.Name(), fmt.Errorf("decode review: %w", err))
	}
	normalizeReview(&review, st)
	st.Review = &review

	result.Success = true
	return result, nil
}

// normalizeReview guarantees a usable ScoreReport even when the model skips
// the nested virality block.
func normalizeReview(review *domain.QualityReview, st *State) {
	if review.Virality == nil {
		platforms := map[string]int{}
		for _, p := range st.Platforms {
			platforms[p] = review.OverallScore
		}
		review.Virality = &domain.ScoreReport{
			ViralScore:     review.OverallScore,
			HookScore:      review.HookScore,
			RetentionScore: review.ScriptScore,
			ShareScore:     review.OverallScore,
			PlatformScores: platforms,
		}
	}
	if review.Virality.ViralScore == 0 {
		review.Virality.ViralScore = virality.Composite(
			review.Virality.HookScore,
			review.Virality.RetentionScore,
			review.Virality.ShareScore,
			review.Virality.PlatformScores,
		)
	}
	if review.Virality.Badge == "" {
		review.Virality.Badge = virality.Badge(review.Virality.ViralScore)
	}
}

// syntheticReview scores the draft with the heuristic engine so keyless
// environments exercise the full retry path.
func syntheticReview(st *State) *domain.QualityReview {
	report := virality.HeuristicReport(st.Plan, st.Script)
	return &domain.QualityReview{
		OverallScore: report.ViralScore,
		HookScore:    report.HookScore,
		ScriptScore:  report.RetentionScore,
		VisualScore:  report.ViralScore,
		AudioScore:   report.ViralScore,
		WeakPoints:   []string{},
		StrongPoints: []string{"spójny hak i narracja"},
		Suggestions:  []string{},
		Approved:     report.ViralScore >= 60,
		Virality:     report,
	}
}
