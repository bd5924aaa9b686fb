package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"nexus/internal/domain"
)

// Config carries the injectable retry policy knobs.
type Config struct {
	// MaxRetries bounds the total script→voice→visual→review attempts per job.
	MaxRetries int
	// PartialScoreFloor is the minimum best-attempt score worth publishing as
	// a partial result once retries are exhausted.
	PartialScoreFloor int
	// StageTimeout bounds every single provider call.
	StageTimeout time.Duration
	// StageRetries is the number of immediate in-stage retries for transient
	// failures before the whole attempt escalates.
	StageRetries int
}

func (c Config) withDefaults() Config {
	if c.MaxRetries < 1 {
		c.MaxRetries = 3
	}
	if c.StageTimeout <= 0 {
		c.StageTimeout = 90 * time.Second
	}
	if c.StageRetries < 0 {
		c.StageRetries = 0
	}
	return c
}

// Deps wires an Orchestrator.
type Deps struct {
	Strategist   Stage
	Scriptwriter Stage
	Voice        Stage
	Visual       Stage
	Reviewer     Stage
	Compositor   Stage
	Gate         Gate
	Jobs         domain.JobRepository
	Config       Config
	Logger       zerolog.Logger
}

// Orchestrator sequences the six stages and owns the quality-gated retry
// loop. It is the single writer of a running job's record.
type Orchestrator struct {
	strategist   Stage
	scriptwriter Stage
	voice        Stage
	visual       Stage
	reviewer     Stage
	compositor   Stage
	gate         Gate
	jobs         domain.JobRepository
	cfg          Config
	logger       zerolog.Logger
}

// NewOrchestrator constructs the pipeline driver.
func NewOrchestrator(d Deps) *Orchestrator {
	return &Orchestrator{
		strategist:   d.Strategist,
		scriptwriter: d.Scriptwriter,
		voice:        d.Voice,
		visual:       d.Visual,
		reviewer:     d.Reviewer,
		compositor:   d.Compositor,
		gate:         d.Gate,
		jobs:         d.Jobs,
		cfg:          d.Config.withDefaults(),
		logger:       d.Logger,
	}
}

// Stage progress milestones. Retried attempts never report below a milestone
// already reached, keeping progress monotonic.
const (
	progressStrategy = 15
	progressScript   = 30
	progressMedia    = 55
	progressReview   = 70
	progressCompose  = 90
	progressDone     = 100
)

// errJobCancelled signals that the job reached a terminal state under our
// feet (user cancellation); any in-flight output is discarded.
var errJobCancelled = errors.New("job cancelled")

type attemptSnapshot struct {
	script  *domain.Script
	audio   *domain.AudioTrack
	visuals *domain.VisualSet
	review  *domain.QualityReview
	score   int
}

// Run drives one claimed job to a terminal state. The returned error reports
// orchestration-level problems only; business failures finalize the job and
// return nil.
func (o *Orchestrator) Run(ctx context.Context, job *domain.Job) error {
	started := time.Now()
	log := o.logger.With().Str("session_id", job.SessionID).Logger()
	log.Info().Int("duration_s", job.DurationSeconds).Strs("platforms", job.Platforms).Msg("pipeline: starting")

	r := &run{o: o, job: job, log: log}
	st := &State{
		SessionID:       job.SessionID,
		Brief:           job.Brief,
		Brand:           job.Brand,
		SeriesContext:   job.SeriesContext,
		Platforms:       job.Platforms,
		DurationSeconds: job.DurationSeconds,
		Voice:           job.Voice,
		VisualStyle:     job.VisualStyle,
	}

	// Strategy runs once per job; gate rejections rewind to the script stage.
	if err := r.execute(ctx, o.strategist, st, progressStrategy); err != nil {
		return r.finishAfterError(ctx, started, err)
	}

	var best *attemptSnapshot
	for attempt := 1; attempt <= o.cfg.MaxRetries; attempt++ {
		st.Attempt = attempt
		job.Attempts = attempt

		if err := r.execute(ctx, o.scriptwriter, st, progressScript); err != nil {
			return r.finishAfterError(ctx, started, err)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return r.execute(gctx, o.voice, st, progressMedia) })
		g.Go(func() error { return r.execute(gctx, o.visual, st, progressMedia) })
		if err := g.Wait(); err != nil {
			return r.finishAfterError(ctx, started, err)
		}

		if err := r.execute(ctx, o.reviewer, st, progressReview); err != nil {
			return r.finishAfterError(ctx, started, err)
		}

		report := st.Review.Virality
		verdict := o.gate.Evaluate(report)
		if verdict.Accepted {
			report.Badge = verdict.Badge
			if err := r.execute(ctx, o.compositor, st, progressCompose); err != nil {
				return r.finishAfterError(ctx, started, err)
			}
			log.Info().
				Int("score", report.ViralScore).
				Int("attempt", attempt).
				Bool("high_potential", verdict.HighPotential).
				Msg("pipeline: accepted")
			return r.finalize(ctx, domain.JobStatusSucceeded, st, started)
		}

		// A rejection is a normal outcome, recorded as information.
		rejection := fmt.Sprintf("attempt %d: score %d < %d", attempt, report.ViralScore, o.gate.AcceptThreshold)
		r.appendError(ctx, rejection)
		log.Info().Int("score", report.ViralScore).Int("attempt", attempt).Msg("pipeline: rejected, rewinding to script")

		if best == nil || report.ViralScore > best.score {
			best = &attemptSnapshot{
				script:  st.Script,
				audio:   st.Audio,
				visuals: st.Visuals,
				review:  st.Review,
				score:   report.ViralScore,
			}
		}
	}

	// Retries exhausted. Publish the best attempt when it clears the partial
	// floor, otherwise fail with the accumulated rejections.
	if best != nil && best.score >= o.cfg.PartialScoreFloor {
		st.Script = best.script
		st.Audio = best.audio
		st.Visuals = best.visuals
		st.Review = best.review
		if err := r.execute(ctx, o.compositor, st, progressCompose); err != nil {
			return r.finishAfterError(ctx, started, err)
		}
		log.Warn().Int("best_score", best.score).Msg("pipeline: retries exhausted, publishing partial")
		return r.finalize(ctx, domain.JobStatusPartial, st, started)
	}

	r.appendError(ctx, fmt.Sprintf("retries exhausted after %d attempts", o.cfg.MaxRetries))
	log.Warn().Msg("pipeline: retries exhausted, failing")
	return r.finalize(ctx, domain.JobStatusFailed, st, started)
}

// run is the per-job execution context: it serializes record mutations across
// the parallel voice/visual stages.
type run struct {
	o        *Orchestrator
	job      *domain.Job
	log      zerolog.Logger
	mu       sync.Mutex
	progress int
}

// execute invokes one stage under the per-stage timeout, charging its cost on
// every invocation and retrying transient failures in place.
func (r *run) execute(ctx context.Context, stage Stage, st *State, milestone int) error {
	if err := r.checkAlive(ctx); err != nil {
		return err
	}

	var lastErr error
	for invocation := 0; invocation <= r.o.cfg.StageRetries; invocation++ {
		stageCtx, cancel := context.WithTimeout(ctx, r.o.cfg.StageTimeout)
		res, err := stage.Run(stageCtx, st)
		cancel()

		// Failed provider calls may still incur charges.
		r.addCost(ctx, res.CostUSD)

		if err == nil {
			r.setProgress(ctx, milestone)
			r.log.Debug().Str("stage", stage.Name()).Dur("took", res.Duration).Float64("cost_usd", res.CostUSD).Msg("pipeline: stage done")
			return nil
		}
		lastErr = err

		var stageErr *StageError
		if errors.As(err, &stageErr) && !stageErr.Retryable() {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.log.Warn().Err(err).Str("stage", stage.Name()).Int("invocation", invocation+1).Msg("pipeline: transient stage failure")
	}
	return lastErr
}

// checkAlive stops further scheduling once the job was cancelled externally.
func (r *run) checkAlive(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	current, err := r.o.jobs.GetBySessionID(ctx, r.job.SessionID)
	if err != nil {
		return nil // the store read is advisory; the repo guards still hold
	}
	if current.Status == domain.JobStatusCancelled {
		return errJobCancelled
	}
	return nil
}

func (r *run) addCost(ctx context.Context, delta float64) {
	if delta <= 0 {
		return
	}
	r.mu.Lock()
	r.job.CostUSD += delta
	r.mu.Unlock()
	if err := r.o.jobs.AddCost(ctx, r.job.SessionID, delta); err != nil && !errors.Is(err, domain.ErrJobTerminal) {
		r.log.Error().Err(err).Msg("pipeline: cost update failed")
	}
}

func (r *run) setProgress(ctx context.Context, milestone int) {
	r.mu.Lock()
	if milestone <= r.progress {
		r.mu.Unlock()
		return
	}
	r.progress = milestone
	r.job.ProgressPercent = milestone
	r.mu.Unlock()
	if err := r.o.jobs.UpdateProgress(ctx, r.job.SessionID, milestone); err != nil && !errors.Is(err, domain.ErrJobTerminal) {
		r.log.Error().Err(err).Msg("pipeline: progress update failed")
	}
}

func (r *run) appendError(ctx context.Context, message string) {
	r.mu.Lock()
	r.job.Errors = append(r.job.Errors, message)
	r.mu.Unlock()
	if err := r.o.jobs.AppendError(ctx, r.job.SessionID, message); err != nil && !errors.Is(err, domain.ErrJobTerminal) {
		r.log.Error().Err(err).Msg("pipeline: error append failed")
	}
}

// finishAfterError maps a stage or context failure onto the job's terminal
// state. Cancellation discards in-flight output without touching the record.
func (r *run) finishAfterError(ctx context.Context, started time.Time, err error) error {
	if errors.Is(err, errJobCancelled) {
		r.log.Info().Msg("pipeline: job cancelled, discarding in-flight work")
		return nil
	}
	if ctx.Err() != nil {
		// Worker shutdown: leave the record running so operators can requeue.
		return ctx.Err()
	}
	r.appendError(ctx, err.Error())
	r.log.Error().Err(err).Msg("pipeline: fatal stage failure")
	return r.finalize(ctx, domain.JobStatusFailed, nil, started)
}

func (r *run) finalize(ctx context.Context, status domain.JobStatus, st *State, started time.Time) error {
	r.mu.Lock()
	r.job.Status = status
	r.job.ProgressPercent = progressDone
	r.job.GenerationSeconds = time.Since(started).Seconds()
	if st != nil {
		result := &domain.GenerationResult{
			ContentPlan: st.Plan,
			Script:      st.Script,
			Quality:     st.Review,
			Video:       st.Video,
		}
		if st.Review != nil {
			result.Virality = st.Review.Virality
		}
		r.job.Result = result
	}
	r.mu.Unlock()

	err := r.o.jobs.Finalize(ctx, r.job)
	if errors.Is(err, domain.ErrJobTerminal) {
		// Someone cancelled while we were finishing; their terminal state wins.
		r.log.Info().Msg("pipeline: record already terminal, result discarded")
		return nil
	}
	if err != nil {
		return fmt.Errorf("finalize job: %w", err)
	}
	r.log.Info().Str("status", string(status)).Float64("cost_usd", r.job.CostUSD).Float64("took_s", r.job.GenerationSeconds).Msg("pipeline: finished")
	return nil
}
