package advisor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/account-advisor/internal/config"
	"github.com/sells-group/account-advisor/internal/model"
	"github.com/sells-group/account-advisor/internal/store"
	"github.com/sells-group/account-advisor/pkg/notion"
)

// Advisor orchestrates batch generation: extract, score, build, rank,
// gate, persist, deliver.
type Advisor struct {
	cfg         *config.Config
	extractor   *Extractor
	scorer      *Scorer
	builder     *Builder
	prioritizer *Prioritizer
	gate        *Gate
	store       store.Store
	notion      notion.Client
	now         func() time.Time
}

// AdvisorOption configures the Advisor.
type AdvisorOption func(*Advisor)

// WithStore attaches a persistence backend. Without one, batches are
// generated in memory only.
func WithStore(st store.Store) AdvisorOption {
	return func(a *Advisor) {
		a.store = st
	}
}

// WithNotion attaches the review-queue client used to deliver pending
// recommendations to human approvers.
func WithNotion(nc notion.Client) AdvisorOption {
	return func(a *Advisor) {
		a.notion = nc
	}
}

// WithAdvisorClock overrides the time source, for deterministic tests.
func WithAdvisorClock(fn func() time.Time) AdvisorOption {
	return func(a *Advisor) {
		a.now = fn
		a.scorer.now = fn
		a.builder.now = fn
		a.prioritizer.now = fn
		a.gate.now = fn
	}
}

// New creates an Advisor wiring the five core components from config.
func New(cfg *config.Config, pb *Playbook, opts ...AdvisorOption) *Advisor {
	a := &Advisor{
		cfg:         cfg,
		extractor:   NewExtractor(pb),
		scorer:      NewScorer(cfg.Scoring, pb),
		builder:     NewBuilder(pb),
		prioritizer: NewPrioritizer(cfg.Urgency),
		gate:        NewGate(cfg.Gate),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Gate exposes the approval state machine for manual transitions.
func (a *Advisor) Gate() *Gate {
	return a.gate
}

// GenerateBatch runs the full pipeline for one account. The context
// aggregate is treated as an immutable snapshot: candidate types are
// scored and built in parallel with no shared mutable state, and one
// candidate's failure never aborts the rest of the batch.
func (a *Advisor) GenerateBatch(ctx context.Context, rctx *model.RecommendationContext) (*BatchResult, error) {
	start := a.now()
	log := zap.L().With(zap.String("account", rctx.AccountID))
	log.Info("advisor: generating batch")

	refs, extractDiags := a.extractor.Extract(Payloads{
		Account:  &rctx.Account,
		Deals:    rctx.Deals,
		Activity: rctx.Activity,
		Patterns: rctx.Patterns,
	})

	// One worker per candidate type; each writes only its own slot.
	results := make([]CandidateResult, len(model.AllTypes))
	var g errgroup.Group
	for i, t := range model.AllTypes {
		g.Go(func() error {
			results[i] = a.runCandidate(t, refs, rctx)
			return nil
		})
	}
	// Synchronization point: ranking waits for every candidate.
	_ = g.Wait()

	batch := &model.RecommendationBatch{
		ID:          uuid.NewString(),
		AccountID:   rctx.AccountID,
		GeneratedAt: a.now().UTC(),
	}

	var skipped []CandidateResult
	for _, res := range results {
		if res.Skipped {
			skipped = append(skipped, res)
			log.Info("advisor: candidate skipped",
				zap.String("type", string(res.Type)),
				zap.String("reason", res.Reason),
			)
			continue
		}
		rec := res.Recommendation
		rec.UrgencyScore = a.prioritizer.Urgency(rec, rctx)
		batch.Recommendations = append(batch.Recommendations, *rec)
	}

	a.prioritizer.Rank(batch)

	// Gate evaluation happens once per recommendation, after ranking.
	for i := range batch.Recommendations {
		if err := a.gate.Evaluate(&batch.Recommendations[i]); err != nil {
			return nil, eris.Wrap(err, "advisor: gate evaluation")
		}
	}

	if a.store != nil {
		if err := a.store.SaveBatch(ctx, batch); err != nil {
			return nil, eris.Wrap(err, "advisor: save batch")
		}
	}

	if a.notion != nil && a.cfg.Notion.ReviewDB != "" {
		a.deliverPending(ctx, batch)
	}

	result := &BatchResult{
		Batch:      batch,
		Skipped:    skipped,
		Extraction: extractDiags,
		DurationMS: time.Since(start).Milliseconds(),
	}

	log.Info("advisor: batch complete",
		zap.String("batch_id", batch.ID),
		zap.Int("recommendations", len(batch.Recommendations)),
		zap.Int("skipped", len(skipped)),
		zap.Int64("duration_ms", result.DurationMS),
	)

	return result, nil
}

// runCandidate executes extract-filter, score, and build for one type.
func (a *Advisor) runCandidate(t model.RecommendationType, refs []model.DataReference, rctx *model.RecommendationContext) CandidateResult {
	typeRefs := a.extractor.ForType(t, refs)
	if len(typeRefs) == 0 {
		return Skip(t, "no relevant evidence")
	}

	conf, err := a.scorer.Score(t, typeRefs, rctx)
	if err != nil {
		if eris.Is(err, ErrInsufficientEvidence) {
			return Skip(t, "insufficient evidence")
		}
		return Skip(t, err.Error())
	}

	rec, err := a.builder.Build(t, conf, typeRefs, rctx)
	if err != nil {
		return Skip(t, err.Error())
	}
	return Ok(rec)
}
