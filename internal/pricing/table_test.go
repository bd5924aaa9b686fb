package pricing

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestChatCost(t *testing.T) {
	tbl := Default()
	cases := []struct {
		name       string
		model      string
		prompt     int
		completion int
		want       float64
	}{
		{name: "economy model", model: "gpt-4o-mini", prompt: 1000, completion: 500, want: (1000*0.15 + 500*0.60) / 1_000_000},
		{name: "smart model", model: "gpt-4o", prompt: 2000, completion: 800, want: (2000*2.50 + 800*10.00) / 1_000_000},
		{name: "unknown model is free", model: "mystery", prompt: 5000, completion: 5000, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tbl.ChatCost(tc.model, tc.prompt, tc.completion)
			if !almostEqual(got, tc.want) {
				t.Fatalf("ChatCost = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestImageCost(t *testing.T) {
	tbl := Default()
	if got := tbl.ImageCost("dall-e-3", 3); !almostEqual(got, 0.12) {
		t.Fatalf("ImageCost = %v, want 0.12", got)
	}
	if got := tbl.ImageCost("dall-e-3", -1); got != 0 {
		t.Fatalf("ImageCost for negative count = %v, want 0", got)
	}
}

func TestSpeechCost(t *testing.T) {
	tbl := Default()
	if got := tbl.SpeechCost("tts-1", 1200); !almostEqual(got, 1200*15.0/1_000_000) {
		t.Fatalf("SpeechCost = %v", got)
	}
}
