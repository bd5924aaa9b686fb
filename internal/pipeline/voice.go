package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nexus/internal/domain"
	"nexus/internal/pricing"
	"nexus/internal/providers/openai"
	"nexus/internal/storage"
)

const audioFileName = "narracja.mp3"

// VoiceDirector synthesizes the narration track from the script.
type VoiceDirector struct {
	client       *openai.Client
	model        string
	defaultVoice string
	prices       pricing.Table
	store        *storage.FileStore
}

// NewVoiceDirector builds the voice synthesis stage. defaultVoice is used
// when the job does not pin one.
func NewVoiceDirector(client *openai.Client, model, defaultVoice string, prices pricing.Table, store *storage.FileStore) *VoiceDirector {
	return &VoiceDirector{client: client, model: model, defaultVoice: defaultVoice, prices: prices, store: store}
}

func (v *VoiceDirector) Name() string { return StageVoiceDirector }

func (v *VoiceDirector) Run(ctx context.Context, st *State) (StageResult, error) {
	start := time.Now()
	result := StageResult{Stage: v.Name()}

	if st.Script == nil {
		return result, invalidOutput(v.Name(), fmt.Errorf("script missing"))
	}

	narration := narrationText(st.Script)
	if narration == "" {
		return result, invalidOutput(v.Name(), fmt.Errorf("script has no narration"))
	}

	// TTS charges per input character, also when the call ultimately fails.
	result.CostUSD = v.prices.SpeechCost(v.model, len(narration))

	voice := st.Voice
	if voice == "" {
		voice = v.defaultVoice
	}
	audio, err := v.client.Speech(ctx, openai.SpeechRequest{
		Model: v.model,
		Voice: voice,
		Input: narration,
	})
	result.Duration = time.Since(start)
	if err != nil {
		return result, classify(v.Name(), err)
	}

	key, err := v.store.Write(ctx, storage.SessionKey(st.SessionID, audioFileName), audio)
	if err != nil {
		return result, invalidOutput(v.Name(), fmt.Errorf("persist audio: %w", err))
	}

	st.Audio = &domain.AudioTrack{
		Path:            key,
		DurationSeconds: st.Script.TotalSeconds,
		Language:        "pl",
		Voice:           st.Voice,
		Format:          "mp3",
		Transcript:      narration,
		Segments:        segmentsFromScenes(st.Script.Scenes),
	}

	result.Success = true
	return result, nil
}

func narrationText(script *domain.Script) string {
	parts := make([]string, 0, len(script.Scenes))
	for _, scene := range script.Scenes {
		text := strings.TrimSpace(scene.Narration)
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

func segmentsFromScenes(scenes []domain.Scene) []domain.AudioSegment {
	segments := make([]domain.AudioSegment, 0, len(scenes))
	for _, scene := range scenes {
		if strings.TrimSpace(scene.Narration) == "" {
			continue
		}
		segments = append(segments, domain.AudioSegment{
			Start: scene.StartSeconds,
			End:   scene.EndSeconds,
			Text:  scene.Narration,
		})
	}
	return segments
}
