package advisor

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/account-advisor/internal/model"
)

// Builder assembles full Recommendation entities from scored candidates.
// Building is a pure assembly step; the approval gate is evaluated later.
type Builder struct {
	playbook *Playbook
	now      func() time.Time
}

// BuilderOption configures the Builder.
type BuilderOption func(*Builder)

// WithBuilderClock overrides the time source, for deterministic tests.
func WithBuilderClock(fn func() time.Time) BuilderOption {
	return func(b *Builder) {
		b.now = fn
	}
}

// NewBuilder creates a Builder driven by the given playbook.
func NewBuilder(pb *Playbook, opts ...BuilderOption) *Builder {
	b := &Builder{playbook: pb, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build assembles a draft recommendation for a scored candidate. The
// rationale cites the strongest references ranked by recency; priority
// comes from the (type, level, risk) lookup; next steps come from the
// per-type playbook checklist.
func (b *Builder) Build(t model.RecommendationType, conf model.ConfidenceScore, refs []model.DataReference, rctx *model.RecommendationContext) (*model.Recommendation, error) {
	if len(refs) == 0 {
		return nil, ErrInsufficientEvidence
	}

	tp, ok := b.playbook.Types[t]
	if !ok {
		return nil, &model.ValidationError{Entity: "recommendation", Field: "type", Detail: fmt.Sprintf("unknown type %q", t)}
	}

	now := b.now().UTC()

	rec := &model.Recommendation{
		ID:             uuid.NewString(),
		AccountID:      rctx.AccountID,
		Type:           t,
		Title:          tp.Title,
		Rationale:      buildRationale(refs, now),
		Priority:       derivePriority(t, conf.Level, rctx.RiskIndicators),
		Confidence:     conf,
		DataReferences: refs,
		NextSteps:      append([]string(nil), tp.NextSteps...),
		Status:         model.StatusDraft,
		CreatedAt:      now,
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

// rationaleMaxRefs is how many references the rationale cites.
const rationaleMaxRefs = 3

// buildRationale concatenates the most recent references into a short
// deterministic evidence summary.
func buildRationale(refs []model.DataReference, now time.Time) string {
	ranked := append([]model.DataReference(nil), refs...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ObservedAt.After(ranked[j].ObservedAt)
	})
	if len(ranked) > rationaleMaxRefs {
		ranked = ranked[:rationaleMaxRefs]
	}

	parts := make([]string, len(ranked))
	for i, r := range ranked {
		ageDays := int(r.AgeDays(now))
		parts[i] = fmt.Sprintf("%s=%v (%s, %dd ago)", r.FieldPath, r.Value, r.Source, ageDays)
	}
	return fmt.Sprintf("Supported by %d evidence points: %s", len(refs), strings.Join(parts, "; "))
}

// basePriority is the priority lookup keyed by (type, confidence level).
var basePriority = map[model.RecommendationType]map[model.ConfidenceLevel]model.Priority{
	model.TypeEscalation: {
		model.ConfidenceLow:      model.PriorityHigh,
		model.ConfidenceMedium:   model.PriorityHigh,
		model.ConfidenceHigh:     model.PriorityCritical,
		model.ConfidenceVeryHigh: model.PriorityCritical,
	},
	model.TypeRiskMitigation: {
		model.ConfidenceLow:      model.PriorityMedium,
		model.ConfidenceMedium:   model.PriorityHigh,
		model.ConfidenceHigh:     model.PriorityHigh,
		model.ConfidenceVeryHigh: model.PriorityCritical,
	},
	model.TypeRetention: {
		model.ConfidenceLow:      model.PriorityMedium,
		model.ConfidenceMedium:   model.PriorityMedium,
		model.ConfidenceHigh:     model.PriorityHigh,
		model.ConfidenceVeryHigh: model.PriorityHigh,
	},
	model.TypeExpansion: {
		model.ConfidenceLow:      model.PriorityLow,
		model.ConfidenceMedium:   model.PriorityMedium,
		model.ConfidenceHigh:     model.PriorityMedium,
		model.ConfidenceVeryHigh: model.PriorityHigh,
	},
	model.TypeEngagement: {
		model.ConfidenceLow:      model.PriorityLow,
		model.ConfidenceMedium:   model.PriorityLow,
		model.ConfidenceHigh:     model.PriorityMedium,
		model.ConfidenceVeryHigh: model.PriorityMedium,
	},
}

// derivePriority resolves the lookup table and bumps one step when risk
// indicators are present.
func derivePriority(t model.RecommendationType, level model.ConfidenceLevel, risk bool) model.Priority {
	p := model.PriorityLow
	if byLevel, ok := basePriority[t]; ok {
		if bp, ok := byLevel[level]; ok {
			p = bp
		}
	}
	if risk {
		p = bumpPriority(p)
	}
	return p
}

func bumpPriority(p model.Priority) model.Priority {
	switch p {
	case model.PriorityLow:
		return model.PriorityMedium
	case model.PriorityMedium:
		return model.PriorityHigh
	default:
		return model.PriorityCritical
	}
}
