package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nexus/internal/domain"
	"nexus/internal/providers/openai"
)

// Stage identifiers, in execution order.
const (
	StageStrategist      = "strategist"
	StageScriptwriter    = "scriptwriter"
	StageVoiceDirector   = "voice_director"
	StageVisualProducer  = "visual_producer"
	StageQualityReviewer = "quality_reviewer"
	StageCompositor      = "compositor"
)

// FailureClass partitions stage failures for the retry policy.
type FailureClass string

const (
	FailureTimeout       FailureClass = "provider_timeout"
	FailureRejected      FailureClass = "provider_rejected"
	FailureInvalidOutput FailureClass = "invalid_output"
	FailureQuota         FailureClass = "quota_exceeded"
)

// StageError wraps a failed stage invocation with its classification.
type StageError struct {
	Stage string
	Class FailureClass
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Class, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Retryable reports whether re-running the stage can help. Quota rejections
// fail the whole job immediately.
func (e *StageError) Retryable() bool { return e.Class != FailureQuota }

// classify maps a provider error onto a StageError.
func classify(stage string, err error) *StageError {
	class := FailureRejected
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		class = FailureTimeout
	case openai.IsQuota(err):
		class = FailureQuota
	case openai.IsRejected(err):
		class = FailureRejected
	}
	return &StageError{Stage: stage, Class: class, Err: err}
}

func invalidOutput(stage string, err error) *StageError {
	return &StageError{Stage: stage, Class: FailureInvalidOutput, Err: err}
}

// StageResult is the accounting record of one stage invocation. CostUSD is
// populated on failures too, since rejected provider calls may still be
// charged.
type StageResult struct {
	Stage    string
	CostUSD  float64
	Duration time.Duration
	Success  bool
}

// State is the evolving payload of one generation attempt. Stages read the
// outputs of their predecessors and fill their own slot; the orchestrator owns
// the retry bookkeeping around it.
type State struct {
	SessionID       string
	Brief           string
	Brand           domain.Brand
	SeriesContext   string
	Platforms       []string
	DurationSeconds int
	Voice           string
	VisualStyle     string
	Attempt         int

	Plan    *domain.ContentPlan
	Script  *domain.Script
	Audio   *domain.AudioTrack
	Visuals *domain.VisualSet
	Review  *domain.QualityReview
	Video   *domain.VideoArtifact
}

// Stage runs one named pipeline step against its provider. Implementations are
// idempotent from the orchestrator's perspective: re-running with identical
// inputs is safe and costs exactly one more provider charge.
type Stage interface {
	Name() string
	Run(ctx context.Context, st *State) (StageResult, error)
}
