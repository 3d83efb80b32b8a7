package advisor

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/account-advisor/internal/config"
	"github.com/sells-group/account-advisor/internal/model"
)

// Scorer combines heterogeneous evidence into a calibrated confidence
// score per candidate. It holds an immutable config and is safe for
// concurrent use across candidates.
type Scorer struct {
	cfg      config.ScoringConfig
	playbook *Playbook
	now      func() time.Time
}

// ScorerOption configures the Scorer.
type ScorerOption func(*Scorer)

// WithClock overrides the time source, for deterministic tests.
func WithClock(fn func() time.Time) ScorerOption {
	return func(s *Scorer) {
		s.now = fn
	}
}

// NewScorer creates a Scorer with the given config and playbook.
func NewScorer(cfg config.ScoringConfig, pb *Playbook, opts ...ScorerOption) *Scorer {
	s := &Scorer{cfg: cfg, playbook: pb, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes the four-component confidence score for one candidate.
// Empty references yield ErrInsufficientEvidence; numeric domain
// violations yield a ConfidenceCalculationError. Both are fatal for this
// candidate only.
func (s *Scorer) Score(t model.RecommendationType, refs []model.DataReference, rctx *model.RecommendationContext) (model.ConfidenceScore, error) {
	if len(refs) == 0 {
		return model.ConfidenceScore{}, ErrInsufficientEvidence
	}

	now := s.now()

	recency, err := scoreRecency(refs, now, s.cfg.HalfLifeDays)
	if err != nil {
		return model.ConfidenceScore{}, err
	}

	pattern := scorePatternStrength(refs, s.cfg.MaxCorroboration)
	quality := s.scoreEvidenceQuality(t, refs)

	stats := rctx.OutcomesFor(t)
	accuracy, err := scoreHistoricalAccuracy(stats, s.cfg.WilsonZ, s.cfg.NeutralPrior)
	if err != nil {
		return model.ConfidenceScore{}, err
	}

	w := s.cfg.Weights
	totalWeight := w.Recency + w.PatternStrength + w.EvidenceQuality + w.HistoricalAccuracy
	if totalWeight == 0 {
		return model.ConfidenceScore{}, &ConfidenceCalculationError{
			Component: "overall",
			Detail:    "all weights are zero",
		}
	}

	overall := (w.Recency*recency + w.PatternStrength*pattern + w.EvidenceQuality*quality + w.HistoricalAccuracy*accuracy) / totalWeight
	overall = clamp01(overall)

	score := model.ConfidenceScore{
		Recency:            recency,
		PatternStrength:    pattern,
		EvidenceQuality:    quality,
		HistoricalAccuracy: accuracy,
		Overall:            overall,
		Level:              s.cfg.Levels.LevelFor(overall),
	}

	zap.L().Debug("score: candidate scored",
		zap.String("type", string(t)),
		zap.Float64("overall", overall),
		zap.String("level", string(score.Level)),
		zap.Int("references", len(refs)),
	)

	return score, nil
}

// scoreRecency averages the exponential half-life decay of each reference's
// age. A reference observed in the future is a domain violation.
func scoreRecency(refs []model.DataReference, now time.Time, halfLifeDays float64) (float64, error) {
	if halfLifeDays <= 0 {
		return 0, &ConfidenceCalculationError{
			Component: "recency",
			Detail:    fmt.Sprintf("half-life must be positive, got %v", halfLifeDays),
		}
	}

	var sum float64
	for _, r := range refs {
		age := r.AgeDays(now)
		if age < 0 {
			return 0, &ConfidenceCalculationError{
				Component: "recency",
				Detail:    fmt.Sprintf("reference %s observed in the future", r.RecordID),
			}
		}
		sum += math.Pow(2, -age/halfLifeDays)
	}
	return sum / float64(len(refs)), nil
}

// scorePatternStrength log-scales the count of independent corroborating
// references (deduplicated by record ID) against maxN.
func scorePatternStrength(refs []model.DataReference, maxN int) float64 {
	n := len(model.DedupeByRecordID(refs))
	if n == 0 || maxN <= 0 {
		return 0
	}
	return math.Min(1.0, math.Log1p(float64(n))/math.Log1p(float64(maxN)))
}

// scoreEvidenceQuality rewards source diversity: distinct sources over the
// number of source types expected for the candidate. Redundant references
// from the same source do not raise the score.
func (s *Scorer) scoreEvidenceQuality(t model.RecommendationType, refs []model.DataReference) float64 {
	expected := len(s.playbook.Types[t].ExpectedSources)
	if expected == 0 {
		return 0
	}
	return math.Min(1.0, float64(model.UniqueSources(refs))/float64(expected))
}

// scoreHistoricalAccuracy computes the Wilson score lower bound on the
// success proportion of prior outcomes for the candidate's type. Types
// with no history score the neutral prior instead of zero.
func scoreHistoricalAccuracy(stats model.OutcomeStats, z, neutralPrior float64) (float64, error) {
	if stats.Total < 0 || stats.Successes < 0 || stats.Successes > stats.Total {
		return 0, &ConfidenceCalculationError{
			Component: "historical_accuracy",
			Detail:    fmt.Sprintf("invalid outcome stats %d/%d", stats.Successes, stats.Total),
		}
	}
	if stats.Total == 0 {
		return neutralPrior, nil
	}

	n := float64(stats.Total)
	pHat := float64(stats.Successes) / n
	z2 := z * z

	lower := (pHat + z2/(2*n) - z*math.Sqrt(pHat*(1-pHat)/n+z2/(4*n*n))) / (1 + z2/n)
	return clamp01(lower), nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
