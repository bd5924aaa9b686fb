package virality

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus/internal/domain"
	"nexus/internal/pricing"
	"nexus/internal/providers/openai"
)

func basePlan() *domain.ContentPlan {
	return &domain.ContentPlan{
		Topic:         "3 fakty o Rzymie",
		Platforms:     []string{"tiktok", "youtube"},
		LengthSeconds: 60,
		HookType:      "luk_ciekawosci",
		VisualHook:    "ruiny o świcie",
		TextHook:      "tego nie mówią w szkole",
	}
}

func TestComposite(t *testing.T) {
	score := Composite(80, 70, 60, map[string]int{"tiktok": 90, "youtube": 70})
	// 80*0.30 + 70*0.25 + 60*0.25 + 80*0.20 = 72.5 → 72
	assert.Equal(t, 72, score)
}

func TestCompositeWithoutPlatforms(t *testing.T) {
	score := Composite(100, 100, 100, nil)
	assert.Equal(t, 80, score)
}

func TestBadgeThresholds(t *testing.T) {
	assert.Equal(t, BadgeHighPotential, Badge(85))
	assert.Equal(t, BadgeGood, Badge(60))
	assert.Equal(t, BadgeNeedsWork, Badge(59))
}

func TestHeuristicScoreBonuses(t *testing.T) {
	plan := basePlan()
	// base 50 + premium hook 10 + two platforms 5 + golden length 10 + both hooks 8
	assert.Equal(t, 83, HeuristicScore(plan, nil))

	long := basePlan()
	long.LengthSeconds = 150
	assert.Equal(t, 63, HeuristicScore(long, nil))

	thin := basePlan()
	thin.HookType = "wartosc"
	thin.TextHook = ""
	assert.Equal(t, 65, HeuristicScore(thin, nil))
}

func TestHeuristicScoreScriptPenalty(t *testing.T) {
	plan := basePlan()
	script := &domain.Script{
		Scenes:          []domain.Scene{{Number: 1}, {Number: 2}},
		EngagementScore: 0.8,
	}
	// 83 + min(10, 12) - 10 for fewer than 3 scenes
	assert.Equal(t, 83, HeuristicScore(plan, script))
}

func TestPredictSyntheticMode(t *testing.T) {
	engine := NewEngine(openai.NewClient(openai.Options{}), "gpt-4o-mini", pricing.Default(), zerolog.Nop())
	report, cost, err := engine.Predict(context.Background(), basePlan(), nil)
	require.NoError(t, err)
	assert.Zero(t, cost)
	assert.Equal(t, HeuristicScore(basePlan(), nil), report.ViralScore)
	assert.Contains(t, report.PlatformScores, "tiktok")
	assert.NotEmpty(t, report.Badge)
}
