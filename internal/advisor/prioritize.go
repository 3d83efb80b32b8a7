package advisor

import (
	"math"
	"sort"
	"time"

	"github.com/sells-group/account-advisor/internal/config"
	"github.com/sells-group/account-advisor/internal/model"
)

// Prioritizer computes urgency scores and produces deterministically
// ordered batches.
type Prioritizer struct {
	cfg config.UrgencyConfig
	now func() time.Time
}

// PrioritizerOption configures the Prioritizer.
type PrioritizerOption func(*Prioritizer)

// WithPrioritizerClock overrides the time source, for deterministic tests.
func WithPrioritizerClock(fn func() time.Time) PrioritizerOption {
	return func(p *Prioritizer) {
		p.now = fn
	}
}

// NewPrioritizer creates a Prioritizer with the given urgency config.
func NewPrioritizer(cfg config.UrgencyConfig, opts ...PrioritizerOption) *Prioritizer {
	p := &Prioritizer{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// priorityWeight maps priorities to their normalized urgency contribution.
var priorityWeight = map[model.Priority]float64{
	model.PriorityCritical: 1.0,
	model.PriorityHigh:     0.75,
	model.PriorityMedium:   0.5,
	model.PriorityLow:      0.25,
}

// Urgency computes the weighted urgency score for one recommendation in
// the context of its account.
func (p *Prioritizer) Urgency(rec *model.Recommendation, rctx *model.RecommendationContext) float64 {
	w := p.cfg
	totalWeight := w.PriorityWeight + w.TimeSensitivity + w.AccountValue + w.Risk
	if totalWeight == 0 {
		return 0
	}

	prio := priorityWeight[rec.Priority]
	timeS := p.timeSensitivity(rctx.DeadlineAt)
	value := p.accountValue(rctx.Account.Revenue)
	risk := riskFactor(rctx.Account.RiskLevel)

	urgency := (w.PriorityWeight*prio + w.TimeSensitivity*timeS + w.AccountValue*value + w.Risk*risk) / totalWeight
	return clamp01(urgency)
}

// timeSensitivity rises as the account deadline approaches, reaching 1.0
// at (or past) the deadline. No deadline means no time pressure.
func (p *Prioritizer) timeSensitivity(deadline *time.Time) float64 {
	if deadline == nil {
		return 0
	}
	horizon := p.cfg.DeadlineHorizonDays
	if horizon <= 0 {
		horizon = 30
	}
	daysUntil := deadline.Sub(p.now()).Hours() / 24
	if daysUntil <= 0 {
		return 1.0
	}
	return clamp01(1 - daysUntil/horizon)
}

// accountValue normalizes account revenue against the configured ceiling.
func (p *Prioritizer) accountValue(revenue float64) float64 {
	if revenue <= 0 || p.cfg.RevenueNormalization <= 0 {
		return 0
	}
	return math.Min(1.0, revenue/p.cfg.RevenueNormalization)
}

func riskFactor(riskLevel string) float64 {
	switch riskLevel {
	case "high", "critical":
		return 1.0
	}
	return 0
}

// Rank orders the batch descending by (priority ordinal, urgency score,
// confidence overall), breaking remaining ties by created_at ascending so
// identical inputs always produce identical order. Ranking is idempotent.
// The priority breakdown is recomputed after sorting.
func (p *Prioritizer) Rank(batch *model.RecommendationBatch) {
	recs := batch.Recommendations
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := &recs[i], &recs[j]
		if a.Priority.Ordinal() != b.Priority.Ordinal() {
			return a.Priority.Ordinal() > b.Priority.Ordinal()
		}
		if a.UrgencyScore != b.UrgencyScore {
			return a.UrgencyScore > b.UrgencyScore
		}
		if a.Confidence.Overall != b.Confidence.Overall {
			return a.Confidence.Overall > b.Confidence.Overall
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	batch.ComputeBreakdown()
}
