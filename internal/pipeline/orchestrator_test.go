package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus/internal/adapter/repo"
	"nexus/internal/domain"
	"nexus/internal/providers/openai"
)

type fakeStage struct {
	name  string
	cost  float64
	calls int
	run   func(st *State) error
}

func (f *fakeStage) Name() string { return f.name }

func (f *fakeStage) Run(_ context.Context, st *State) (StageResult, error) {
	f.calls++
	var err error
	if f.run != nil {
		err = f.run(st)
	}
	return StageResult{Stage: f.name, CostUSD: f.cost, Success: err == nil}, err
}

// scoreByAttempt builds a reviewer stage handing out one score per attempt.
func scoreByAttempt(scores ...int) func(st *State) error {
	return func(st *State) error {
		score := scores[len(scores)-1]
		if st.Attempt-1 < len(scores) {
			score = scores[st.Attempt-1]
		}
		st.Review = &domain.QualityReview{
			OverallScore: score,
			Approved:     score >= 60,
			Virality:     &domain.ScoreReport{ViralScore: score},
		}
		return nil
	}
}

type testHarness struct {
	jobs         *repo.MemoryJobRepository
	strategist   *fakeStage
	scriptwriter *fakeStage
	voice        *fakeStage
	visual       *fakeStage
	reviewer     *fakeStage
	compositor   *fakeStage
	orch         *Orchestrator
}

func newHarness(t *testing.T, cfg Config, reviewer func(st *State) error) *testHarness {
	t.Helper()
	h := &testHarness{
		jobs:       repo.NewMemoryJobRepository(),
		strategist: &fakeStage{name: StageStrategist, run: func(st *State) error {
			st.Plan = &domain.ContentPlan{Topic: "testy"}
			return nil
		}},
		scriptwriter: &fakeStage{name: StageScriptwriter, run: func(st *State) error {
			st.Script = &domain.Script{Title: fmt.Sprintf("podejscie %d", st.Attempt)}
			return nil
		}},
		voice: &fakeStage{name: StageVoiceDirector, cost: 0.01, run: func(st *State) error {
			st.Audio = &domain.AudioTrack{Transcript: "narracja"}
			return nil
		}},
		visual: &fakeStage{name: StageVisualProducer, cost: 0.04, run: func(st *State) error {
			st.Visuals = &domain.VisualSet{}
			return nil
		}},
		reviewer: &fakeStage{name: StageQualityReviewer, run: reviewer},
		compositor: &fakeStage{name: StageCompositor, run: func(st *State) error {
			st.Video = &domain.VideoArtifact{Path: "wideo_glowne.mp4"}
			return nil
		}},
	}
	h.orch = NewOrchestrator(Deps{
		Strategist:   h.strategist,
		Scriptwriter: h.scriptwriter,
		Voice:        h.voice,
		Visual:       h.visual,
		Reviewer:     h.reviewer,
		Compositor:   h.compositor,
		Gate:         Gate{AcceptThreshold: 60, HighPotentialThreshold: 85},
		Jobs:         h.jobs,
		Config:       cfg,
		Logger:       zerolog.Nop(),
	})
	return h
}

func (h *testHarness) claimJob(t *testing.T) *domain.Job {
	t.Helper()
	ctx := context.Background()
	err := h.jobs.Create(ctx, &domain.Job{
		SessionID:       "sess-1",
		Brief:           "krotki test generacji wideo",
		Platforms:       []string{"tiktok"},
		DurationSeconds: 45,
		Status:          domain.JobStatusQueued,
	})
	require.NoError(t, err)
	job, err := h.jobs.ClaimNext(ctx)
	require.NoError(t, err)
	return job
}

func TestOrchestratorAcceptsFirstAttempt(t *testing.T) {
	h := newHarness(t, Config{MaxRetries: 3, PartialScoreFloor: 40}, scoreByAttempt(75))
	job := h.claimJob(t)

	require.NoError(t, h.orch.Run(context.Background(), job))

	stored, err := h.jobs.GetBySessionID(context.Background(), job.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusSucceeded, stored.Status)
	assert.Equal(t, 100, stored.ProgressPercent)
	assert.Equal(t, 1, stored.Attempts)
	assert.Empty(t, stored.Errors)
	require.NotNil(t, stored.Result)
	require.NotNil(t, stored.Result.Virality)
	assert.Equal(t, 75, stored.Result.Virality.ViralScore)
	assert.NotNil(t, stored.Result.Video)
	assert.Equal(t, 1, h.strategist.calls)
	assert.Equal(t, 1, h.compositor.calls)
	assert.InDelta(t, 0.05, stored.CostUSD, 1e-9)
}

func TestOrchestratorRewindsToScriptOnRejection(t *testing.T) {
	h := newHarness(t, Config{MaxRetries: 3, PartialScoreFloor: 40}, scoreByAttempt(30, 45, 70))
	job := h.claimJob(t)

	require.NoError(t, h.orch.Run(context.Background(), job))

	stored, err := h.jobs.GetBySessionID(context.Background(), job.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusSucceeded, stored.Status)
	assert.Equal(t, 3, stored.Attempts)
	// Strategy runs once; the rewind target is the script stage.
	assert.Equal(t, 1, h.strategist.calls)
	assert.Equal(t, 3, h.scriptwriter.calls)
	assert.Equal(t, 3, h.reviewer.calls)
	require.Len(t, stored.Errors, 2)
	assert.Contains(t, stored.Errors[0], "attempt 1: score 30 < 60")
	assert.Contains(t, stored.Errors[1], "attempt 2: score 45 < 60")
}

func TestOrchestratorPublishesPartialAfterExhaustion(t *testing.T) {
	h := newHarness(t, Config{MaxRetries: 3, PartialScoreFloor: 40}, scoreByAttempt(45, 52, 48))
	job := h.claimJob(t)

	require.NoError(t, h.orch.Run(context.Background(), job))

	stored, err := h.jobs.GetBySessionID(context.Background(), job.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPartial, stored.Status)
	require.NotNil(t, stored.Result)
	require.NotNil(t, stored.Result.Virality)
	// The best-scoring attempt is the one published.
	assert.Equal(t, 52, stored.Result.Virality.ViralScore)
	assert.NotNil(t, stored.Result.Video)
	assert.Equal(t, 1, h.compositor.calls)
	assert.Len(t, stored.Errors, 3)
}

func TestOrchestratorFailsBelowPartialFloor(t *testing.T) {
	h := newHarness(t, Config{MaxRetries: 3, PartialScoreFloor: 40}, scoreByAttempt(10, 20, 35))
	job := h.claimJob(t)

	require.NoError(t, h.orch.Run(context.Background(), job))

	stored, err := h.jobs.GetBySessionID(context.Background(), job.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, stored.Status)
	assert.Nil(t, stored.Result)
	assert.Equal(t, 0, h.compositor.calls)
	require.Len(t, stored.Errors, 4)
	assert.Contains(t, stored.Errors[3], "retries exhausted")
}

func TestOrchestratorQuotaFailsImmediately(t *testing.T) {
	h := newHarness(t, Config{MaxRetries: 3, PartialScoreFloor: 40, StageRetries: 1}, scoreByAttempt(75))
	h.voice.run = func(st *State) error {
		return classify(StageVoiceDirector, &openai.APIError{StatusCode: 429, Body: "quota"})
	}
	job := h.claimJob(t)

	require.NoError(t, h.orch.Run(context.Background(), job))

	stored, err := h.jobs.GetBySessionID(context.Background(), job.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, stored.Status)
	// Non-retryable failures skip both in-stage retries and fresh attempts.
	assert.Equal(t, 1, h.voice.calls)
	assert.Equal(t, 0, h.reviewer.calls)
	require.NotEmpty(t, stored.Errors)
	assert.Contains(t, stored.Errors[len(stored.Errors)-1], "quota_exceeded")
}

func TestOrchestratorRetriesTransientFailureInStage(t *testing.T) {
	h := newHarness(t, Config{MaxRetries: 3, PartialScoreFloor: 40, StageRetries: 1}, scoreByAttempt(70))
	failures := 1
	h.scriptwriter.cost = 0.02
	h.scriptwriter.run = func(st *State) error {
		if failures > 0 {
			failures--
			return classify(StageScriptwriter, &openai.APIError{StatusCode: 503, Body: "overloaded"})
		}
		st.Script = &domain.Script{Title: "udane podejscie"}
		return nil
	}
	job := h.claimJob(t)

	require.NoError(t, h.orch.Run(context.Background(), job))

	stored, err := h.jobs.GetBySessionID(context.Background(), job.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusSucceeded, stored.Status)
	assert.Equal(t, 2, h.scriptwriter.calls)
	// The failed invocation is charged too.
	assert.InDelta(t, 2*0.02+0.01+0.04, stored.CostUSD, 1e-9)
}

func TestOrchestratorDiscardsWorkAfterCancellation(t *testing.T) {
	h := newHarness(t, Config{MaxRetries: 3, PartialScoreFloor: 40}, scoreByAttempt(75))
	job := h.claimJob(t)
	require.NoError(t, h.jobs.Cancel(context.Background(), job.SessionID))

	require.NoError(t, h.orch.Run(context.Background(), job))

	stored, err := h.jobs.GetBySessionID(context.Background(), job.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCancelled, stored.Status)
	assert.Nil(t, stored.Result)
	assert.Equal(t, 0, h.strategist.calls)
}

func TestOrchestratorProgressNeverDecreases(t *testing.T) {
	h := newHarness(t, Config{MaxRetries: 2, PartialScoreFloor: 40}, nil)
	var observed []int
	h.reviewer.run = func(st *State) error {
		job, err := h.jobs.GetBySessionID(context.Background(), st.SessionID)
		if err != nil {
			return err
		}
		observed = append(observed, job.ProgressPercent)
		st.Review = &domain.QualityReview{Virality: &domain.ScoreReport{ViralScore: 10}}
		return nil
	}
	job := h.claimJob(t)

	require.NoError(t, h.orch.Run(context.Background(), job))

	// The second attempt's script milestone (30) must not pull progress back
	// below the review milestone (70) reached in attempt one.
	require.Len(t, observed, 2)
	assert.Equal(t, 55, observed[0])
	assert.Equal(t, 70, observed[1])
}

func TestOrchestratorStageTimeoutClassified(t *testing.T) {
	h := newHarness(t, Config{MaxRetries: 1, PartialScoreFloor: 40, StageTimeout: 20 * time.Millisecond}, scoreByAttempt(75))
	h.visual.run = func(st *State) error { return nil }
	slow := &slowStage{delay: 200 * time.Millisecond}
	h.orch.voice = slow
	job := h.claimJob(t)

	require.NoError(t, h.orch.Run(context.Background(), job))

	stored, err := h.jobs.GetBySessionID(context.Background(), job.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, stored.Status)
	require.NotEmpty(t, stored.Errors)
	assert.Contains(t, stored.Errors[len(stored.Errors)-1], "provider_timeout")
}

type slowStage struct {
	delay time.Duration
}

func (s *slowStage) Name() string { return StageVoiceDirector }

func (s *slowStage) Run(ctx context.Context, _ *State) (StageResult, error) {
	select {
	case <-time.After(s.delay):
		return StageResult{Stage: s.Name(), Success: true}, nil
	case <-ctx.Done():
		return StageResult{Stage: s.Name()}, classify(s.Name(), ctx.Err())
	}
}
