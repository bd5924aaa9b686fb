package pipeline

import (
	"nexus/internal/domain"
	"nexus/internal/virality"
)

// Gate compares a composite viral score against the configured acceptance
// threshold. Thresholds are injected, never hardcoded at call sites.
type Gate struct {
	AcceptThreshold        int
	HighPotentialThreshold int
}

// Verdict is the gate's decision over one attempt.
type Verdict struct {
	Accepted      bool
	HighPotential bool
	Badge         string
}

// Evaluate classifies the report as accept or reject.
func (g Gate) Evaluate(report *domain.ScoreReport) Verdict {
	score := report.ViralScore
	switch {
	case score >= g.HighPotentialThreshold:
		return Verdict{Accepted: true, HighPotential: true, Badge: virality.BadgeHighPotential}
	case score >= g.AcceptThreshold:
		return Verdict{Accepted: true, Badge: virality.BadgeGood}
	default:
		return Verdict{Badge: virality.BadgeNeedsWork}
	}
}
