package pipeline

import (
	"context"
	"fmt"
	"time"

	"nexus/internal/domain"
	"nexus/internal/pricing"
	"nexus/internal/providers/openai"
	"nexus/internal/storage"
)

// maxImagesPerVideo caps image generation spend per attempt.
const maxImagesPerVideo = 5

// VisualProducer generates one image per selected scene.
type VisualProducer struct {
	client *openai.Client
	model  string
	prices pricing.Table
	store  *storage.FileStore
}

// NewVisualProducer builds the image generation stage.
func NewVisualProducer(client *openai.Client, model string, prices pricing.Table, store *storage.FileStore) *VisualProducer {
	return &VisualProducer{client: client, model: model, prices: prices, store: store}
}

func (p *VisualProducer) Name() string { return StageVisualProducer }

func (p *VisualProducer) Run(ctx context.Context, st *State) (StageResult, error) {
	start := time.Now()
	result := StageResult{Stage: p.Name()}

	if st.Script == nil || len(st.Script.Scenes) == 0 {
		return result, invalidOutput(p.Name(), fmt.Errorf("script missing"))
	}

	scenes := selectScenes(st.Script.Scenes)
	images := make([]domain.SceneImage, 0, len(scenes))
	for _, scene := range scenes {
		prompt := fmt.Sprintf("%s, styl: %s, format pionowy 9:16", scene.VisualPrompt, st.VisualStyle)

		// Charge before the outcome is known; rejected generations still bill.
		result.CostUSD += p.prices.ImageCost(p.model, 1)

		data, err := p.client.Image(ctx, openai.ImageRequest{
			Model:  p.model,
			Prompt: prompt,
			Size:   "1024x1792",
		})
		if err != nil {
			result.Duration = time.Since(start)
			return result, classify(p.Name(), err)
		}

		name := fmt.Sprintf("scena_%02d.png", scene.Number)
		key, err := p.store.Write(ctx, storage.SessionKey(st.SessionID, name), data)
		if err != nil {
			result.Duration = time.Since(start)
			return result, invalidOutput(p.Name(), fmt.Errorf("persist image: %w", err))
		}
		images = append(images, domain.SceneImage{
			SceneNumber: scene.Number,
			Path:        key,
			Prompt:      prompt,
			Resolution:  "1024x1792",
			Format:      "png",
		})
	}

	st.Visuals = &domain.VisualSet{
		Images:      images,
		VisualStyle: st.VisualStyle,
		Palette:     "auto",
		ImageCount:  len(images),
	}

	result.Duration = time.Since(start)
	result.Success = true
	return result, nil
}

// selectScenes keeps at most maxImagesPerVideo scenes, preferring an even
// spread so the opening hook, middle and ending all get a frame.
func selectScenes(scenes []domain.Scene) []domain.Scene {
	if len(scenes) <= maxImagesPerVideo {
		return scenes
	}
	selected := make([]domain.Scene, 0, maxImagesPerVideo)
	step := float64(len(scenes)-1) / float64(maxImagesPerVideo-1)
	seen := map[int]bool{}
	for i := 0; i < maxImagesPerVideo; i++ {
		idx := int(step*float64(i) + 0.5)
		if seen[idx] {
			continue
		}
		seen[idx] = true
		selected = append(selected, scenes[idx])
	}
	return selected
}
