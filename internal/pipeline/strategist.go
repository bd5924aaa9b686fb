package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"nexus/internal/domain"
	"nexus/internal/pricing"
	"nexus/internal/providers/openai"
)

// Strategist turns the raw brief into a content plan: topic framing, hook
// selection and platform targeting. Economy model; the cheapest stage.
type Strategist struct {
	client *openai.Client
	model  string
	prices pricing.Table
}

// NewStrategist builds the strategy stage.
func NewStrategist(client *openai.Client, model string, prices pricing.Table) *Strategist {
	return &Strategist{client: client, model: model, prices: prices}
}

func (s *Strategist) Name() string { return StageStrategist }

const strategistSystemPrompt = `Jesteś Strategiem Treści platformy wideo krótkiego formatu.
Z briefu użytkownika zbuduj plan treści pod podane platformy.
Typ haka wybierz z: luk_ciekawosci | pattern_interrupt | szok_humor | wartosc | spolecznosc.
Odpowiadaj WYŁĄCZNIE w JSON o polach:
{"tytul":"...","temat":"...","typ_haka":"...","hak_wizualny":"...","hak_tekstowy":"...",
"hak_werbalny":"...","luk_emocjonalny":["..."],"ton_glosu":"...","hashtagi":["..."],
"przewidywane_zaangazowanie":0.0-1.0}`

func (s *Strategist) Run(ctx context.Context, st *State) (StageResult, error) {
	start := time.Now()
	result := StageResult{Stage: s.Name()}

	if s.client.Synthetic() {
		st.Plan = syntheticPlan(st)
		result.Duration = time.Since(start)
		result.Success = true
		return result, nil
	}

	user := fmt.Sprintf("Brief: %s\nPlatformy: %s\nDługość: %ds\nStyl wizualny: %s\nMarka: %s (ton: %s)\n%s",
		st.Brief, strings.Join(st.Platforms, ", "), st.DurationSeconds, st.VisualStyle,
		st.Brand.Name, st.Brand.Tone, seriesContextBlock(st))
	raw, usage, err := s.client.ChatJSON(ctx, openai.ChatRequest{
		Model:       s.model,
		System:      strategistSystemPrompt,
		User:        user,
		Temperature: 0.6,
		MaxTokens:   900,
	})
	result.CostUSD = s.prices.ChatCost(s.model, usage.PromptTokens, usage.CompletionTokens)
	result.Duration = time.Since(start)
	if err != nil {
		return result, classify(s.Name(), err)
	}

	var plan domain.ContentPlan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return result, invalidOutput(s.Name(), fmt.Errorf("decode content plan: %w", err))
	}
	if plan.Topic == "" {
		plan.Topic = st.Brief
	}
	plan.Platforms = st.Platforms
	plan.LengthSeconds = st.DurationSeconds
	plan.VisualStyle = st.VisualStyle
	st.Plan = &plan

	result.Success = true
	return result, nil
}

func seriesContextBlock(st *State) string {
	if st.SeriesContext == "" {
		return ""
	}
	return "Kontekst serii (zachowaj ciągłość narracji):\n" + st.SeriesContext
}

// syntheticPlan keeps the pipeline operational without provider credentials.
// Deterministic for a given brief.
func syntheticPlan(st *State) *domain.ContentPlan {
	topic := strings.TrimSpace(st.Brief)
	title := topic
	// Truncate on a rune boundary; briefs are Polish text.
	if runes := []rune(title); len(runes) > 60 {
		title = string(runes[:60])
	}
	hashtags := make([]string, 0, len(st.Platforms)+1)
	hashtags = append(hashtags, "#shorts")
	for _, p := range st.Platforms {
		hashtags = append(hashtags, "#"+p)
	}
	return &domain.ContentPlan{
		Title:               title,
		Topic:               topic,
		Platforms:           st.Platforms,
		LengthSeconds:       st.DurationSeconds,
		HookType:            "luk_ciekawosci",
		VisualHook:          "dynamiczne ujęcie otwierające: " + title,
		TextHook:            "tego nie wiedziałeś o: " + title,
		VerbalHook:          "zatrzymaj się na 3 sekundy",
		EmotionalArc:        []string{"ciekawość", "zaskoczenie", "inspiracja"},
		VisualStyle:         st.VisualStyle,
		VoiceTone:           st.Brand.Tone,
		Hashtags:            hashtags,
		PredictedEngagement: 0.7,
	}
}
