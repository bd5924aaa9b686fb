package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"nexus/internal/domain"
	"nexus/internal/pricing"
	"nexus/internal/providers/openai"
)

// Scriptwriter expands the content plan into a scene-by-scene script. This is
// the stage the orchestrator rewinds to after a quality-gate rejection, so the
// attempt number feeds the prompt to push the model away from the rejected
// draft.
type Scriptwriter struct {
	client *openai.Client
	model  string
	prices pricing.Table
}

// NewScriptwriter builds the script stage.
func NewScriptwriter(client *openai.Client, model string, prices pricing.Table) *Scriptwriter {
	return &Scriptwriter{client: client, model: model, prices: prices}
}

func (s *Scriptwriter) Name() string { return StageScriptwriter }

const scriptwriterSystemPrompt = `Jesteś Pisarzem Scenariuszy wideo krótkiego formatu.
Z planu treści napisz scenariusz scena po scenie. Pierwsze 3 sekundy muszą zatrzymać scrollowanie.
Odpowiadaj WYŁĄCZNIE w JSON o polach:
{"tytul":"...","streszczenie":"...","hook_otwierajacy":"...","cta":"...",
"wynik_zaangazowania":0.0-1.0,
"sceny":[{"numer":1,"czas_start":0,"czas_koniec":6,"opis_wizualny":"...",
"tekst_narracji":"...","tekst_na_ekranie":"...","emocja":"...","tempo":"..."}]}`

// scriptSchema guards the model output shape; violations classify as
// invalid_output and go through the normal stage retry path.
const scriptSchema = `{
	"type": "object",
	"required": ["tytul", "sceny"],
	"properties": {
		"tytul": {"type": "string", "minLength": 1},
		"streszczenie": {"type": "string"},
		"hook_otwierajacy": {"type": "string"},
		"cta": {"type": "string"},
		"wynik_zaangazowania": {"type": "number", "minimum": 0, "maximum": 1},
		"sceny": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["numer", "opis_wizualny", "tekst_narracji"],
				"properties": {
					"numer": {"type": "integer", "minimum": 1},
					"czas_start": {"type": "number", "minimum": 0},
					"czas_koniec": {"type": "number", "minimum": 0},
					"opis_wizualny": {"type": "string", "minLength": 1},
					"tekst_narracji": {"type": "string", "minLength": 1},
					"tekst_na_ekranie": {"type": "string"},
					"emocja": {"type": "string"},
					"tempo": {"type": "string"}
				}
			}
		}
	}
}`

var scriptSchemaLoader = gojsonschema.NewStringLoader(scriptSchema)

func (s *Scriptwriter) Run(ctx context.Context, st *State) (StageResult, error) {
	start := time.Now()
	result := StageResult{Stage: s.Name()}

	if st.Plan == nil {
		return result, invalidOutput(s.Name(), fmt.Errorf("content plan missing"))
	}

	if s.client.Synthetic() {
		st.Script = syntheticScript(st)
		result.Duration = time.Since(start)
		result.Success = true
		return result, nil
	}

	planJSON, _ := json.Marshal(st.Plan)
	user := fmt.Sprintf("Plan treści:\n%s\n\nDocelowa długość: %ds\nPróba: %d\n%s",
		planJSON, st.DurationSeconds, st.Attempt, retryNudge(st))
	raw, usage, err := s.client.ChatJSON(ctx, openai.ChatRequest{
		Model:       s.model,
		System:      scriptwriterSystemPrompt,
		User:        user,
		Temperature: 0.7,
		MaxTokens:   1800,
	})
	result.CostUSD = s.prices.ChatCost(s.model, usage.PromptTokens, usage.CompletionTokens)
	result.Duration = time.Since(start)
	if err != nil {
		return result, classify(s.Name(), err)
	}

	validation, err := gojsonschema.Validate(scriptSchemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return result, invalidOutput(s.Name(), fmt.Errorf("validate script: %w", err))
	}
	if !validation.Valid() {
		return result, invalidOutput(s.Name(), fmt.Errorf("script schema: %s", firstSchemaError(validation)))
	}

	var script domain.Script
	if err := json.Unmarshal(raw, &script); err != nil {
		return result, invalidOutput(s.Name(), fmt.Errorf("decode script: %w", err))
	}
	finishScript(&script, st.DurationSeconds)
	st.Script = &script

	result.Success = true
	return result, nil
}

func retryNudge(st *State) string {
	if st.Attempt <= 1 || st.Review == nil {
		return ""
	}
	return "Poprzednia wersja została odrzucona. Popraw: " + strings.Join(st.Review.WeakPoints, "; ")
}

func firstSchemaError(res *gojsonschema.Result) string {
	for _, e := range res.Errors() {
		return e.String()
	}
	return "unknown violation"
}

// finishScript fills the derived fields the model tends to omit: scene
// timings, total duration and word count.
func finishScript(script *domain.Script, targetSeconds int) {
	if n := len(script.Scenes); n > 0 && script.Scenes[n-1].EndSeconds == 0 {
		per := float64(targetSeconds) / float64(n)
		for i := range script.Scenes {
			script.Scenes[i].StartSeconds = per * float64(i)
			script.Scenes[i].EndSeconds = per * float64(i+1)
		}
	}
	if n := len(script.Scenes); n > 0 {
		script.TotalSeconds = script.Scenes[n-1].EndSeconds
	}
	if script.TotalSeconds == 0 {
		script.TotalSeconds = float64(targetSeconds)
	}
	words := 0
	for _, scene := range script.Scenes {
		words += len(strings.Fields(scene.Narration))
	}
	script.WordCount = words
}

// syntheticScript derives a deterministic script from the plan.
func syntheticScript(st *State) *domain.Script {
	sceneCount := st.DurationSeconds / 15
	if sceneCount < 3 {
		sceneCount = 3
	}
	if sceneCount > 6 {
		sceneCount = 6
	}
	per := float64(st.DurationSeconds) / float64(sceneCount)
	scenes := make([]domain.Scene, sceneCount)
	emotions := []string{"ciekawość", "zaskoczenie", "napięcie", "inspiracja"}
	for i := range scenes {
		scenes[i] = domain.Scene{
			Number:       i + 1,
			StartSeconds: per * float64(i),
			EndSeconds:   per * float64(i+1),
			VisualPrompt: fmt.Sprintf("%s, scena %d, styl %s", st.Plan.Topic, i+1, st.VisualStyle),
			Narration:    fmt.Sprintf("Część %d opowieści o: %s.", i+1, st.Plan.Topic),
			ScreenText:   st.Plan.TextHook,
			Emotion:      emotions[i%len(emotions)],
			Pace:         "normalne",
		}
	}
	script := &domain.Script{
		Title:           st.Plan.Title,
		Summary:         "Streszczenie: " + st.Plan.Topic,
		Scenes:          scenes,
		OpeningHook:     st.Plan.VerbalHook,
		CallToAction:    "Obserwuj po więcej.",
		EngagementScore: 0.7,
	}
	finishScript(script, st.DurationSeconds)
	return script
}
