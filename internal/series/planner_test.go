package series

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

func newSyntheticPlanner() *Planner {
	client := openai.NewClient(openai.Options{Logger: zerolog.Nop()})
	return NewPlanner(client, "gpt-4o-mini", pricing.Default(), zerolog.Nop())
}

func TestPlanSyntheticOutline(t *testing.T) {
	planner := newSyntheticPlanner()
	series, cost, err := planner.Plan(context.Background(), PlanRequest{
		Topic:          "historia polskiej kawy",
		Genre:          "edukacja",
		EpisodeCount:   3,
		EpisodeSeconds: 45,
		Platforms:      []string{"tiktok", "youtube"},
	})
	require.NoError(t, err)
	assert.Zero(t, cost)
	assert.Equal(t, domain.SeriesStatusPlanning, series.Status)
	assert.NotEmpty(t, series.ID)
	require.Len(t, series.Episodes, 3)
	for i, ep := range series.Episodes {
		assert.Equal(t, i+1, ep.Number)
		assert.Equal(t, domain.EpisodeStatusPending, ep.Status)
		assert.NotEmpty(t, ep.Summary)
		assert.NotEmpty(t, ep.Cliffhanger)
	}
}

func TestPlanRejectsEpisodeCountOutOfRange(t *testing.T) {
	planner := newSyntheticPlanner()
	for _, count := range []int{0, 1, 11} {
		_, _, err := planner.Plan(context.Background(), PlanRequest{Topic: "x", EpisodeCount: count})
		assert.Error(t, err, "count %d", count)
	}
}

func TestContinueAppendsEpisodes(t *testing.T) {
	planner := newSyntheticPlanner()
	series, _, err := planner.Plan(context.Background(), PlanRequest{
		Topic:        "zaginione miasta",
		Genre:        "tajemnica",
		EpisodeCount: 2,
		Platforms:    []string{"tiktok"},
	})
	require.NoError(t, err)

	_, err = planner.Continue(context.Background(), series, 2)
	require.NoError(t, err)
	require.Len(t, series.Episodes, 4)
	assert.Equal(t, 4, series.EpisodeCount)
	assert.Equal(t, 3, series.Episodes[2].Number)

	_, err = planner.Continue(context.Background(), series, 6)
	assert.Error(t, err)
}

func TestContinuityContextCoversPriorEpisodesOnly(t *testing.T) {
	series := &domain.Series{
		Title: "Testowa seria",
		Topic: "testy",
		Episodes: []domain.Episode{
			{Number: 1, Title: "Start", Summary: "Początek.", Cliffhanger: "Co dalej?"},
			{Number: 2, Title: "Środek", Summary: "Rozwinięcie.", Cliffhanger: "Zwrot akcji."},
			{Number: 3, Title: "Finał", Summary: "Koniec.", Cliffhanger: "Brak."},
		},
	}
	ctx := ContinuityContext(series, 3)
	assert.Contains(t, ctx, "Odcinek 1")
	assert.Contains(t, ctx, "Odcinek 2")
	assert.NotContains(t, ctx, "Odcinek 3")

	brief := ContinuationBrief(series, 3)
	assert.Contains(t, brief, "Odcinek 3")
	assert.Contains(t, brief, "Finał")
}
