package pricing

// Table maps provider models to unit prices. Stage executors consume an
// injected Table instead of scattering price literals, so operators can track
// provider price changes without a rebuild.
type Table struct {
	// USD per 1M prompt/completion tokens, keyed by chat model.
	PromptTokenUSD     map[string]float64
	CompletionTokenUSD map[string]float64
	// USD per generated image, keyed by image model.
	ImageUSD map[string]float64
	// USD per 1M input characters, keyed by speech model.
	SpeechCharUSD map[string]float64
}

// Default returns the current OpenAI list prices for the models the pipeline
// uses.
func Default() Table {
	return Table{
		PromptTokenUSD: map[string]float64{
			"gpt-4o":      2.50,
			"gpt-4o-mini": 0.15,
		},
		CompletionTokenUSD: map[string]float64{
			"gpt-4o":      10.00,
			"gpt-4o-mini": 0.60,
		},
		ImageUSD: map[string]float64{
			"dall-e-3": 0.040,
		},
		SpeechCharUSD: map[string]float64{
			"tts-1":    15.0,
			"tts-1-hd": 30.0,
		},
	}
}

// ChatCost prices one chat completion call.
func (t Table) ChatCost(model string, promptTokens, completionTokens int) float64 {
	return (float64(promptTokens)*t.PromptTokenUSD[model] +
		float64(completionTokens)*t.CompletionTokenUSD[model]) / 1_000_000
}

// ImageCost prices n generated images.
func (t Table) ImageCost(model string, n int) float64 {
	if n < 0 {
		n = 0
	}
	return float64(n) * t.ImageUSD[model]
}

// SpeechCost prices one synthesis call over the given character count.
func (t Table) SpeechCost(model string, chars int) float64 {
	if chars < 0 {
		chars = 0
	}
	return float64(chars) * t.SpeechCharUSD[model] / 1_000_000
}
