package advisor

import (
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/account-advisor/internal/config"
	"github.com/sells-group/account-advisor/internal/model"
)

// gateStripes is the number of mutex stripes serializing transitions.
const gateStripes = 64

// Modifications are optional approver edits applied when a recommendation
// is approved.
type Modifications struct {
	Title     string         `json:"title,omitempty"`
	Priority  model.Priority `json:"priority,omitempty"`
	NextSteps []string       `json:"next_steps,omitempty"`
}

// Gate is the approval state machine. It enforces the human-in-the-loop
// invariants: escalations never skip review, terminal recommendations are
// immutable, and concurrent transitions on one recommendation are
// serialized so exactly one succeeds.
type Gate struct {
	cfg   config.GateConfig
	now   func() time.Time
	locks [gateStripes]sync.Mutex
}

// GateOption configures the Gate.
type GateOption func(*Gate)

// WithGateClock overrides the time source, for deterministic tests.
func WithGateClock(fn func() time.Time) GateOption {
	return func(g *Gate) {
		g.now = fn
	}
}

// NewGate creates a Gate with the given config.
func NewGate(cfg config.GateConfig, opts ...GateOption) *Gate {
	g := &Gate{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gate) lockFor(id string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &g.locks[h.Sum32()%gateStripes]
}

// Evaluate runs the automatic transition for a freshly built draft:
// escalations always go to pending_approval; other types auto-approve
// when confidence clears the threshold and priority is not critical.
// Calling Evaluate on a non-draft recommendation is a transition error.
func (g *Gate) Evaluate(rec *model.Recommendation) error {
	mu := g.lockFor(rec.ID)
	mu.Lock()
	defer mu.Unlock()

	if rec.Status != model.StatusDraft {
		return &InvalidTransitionError{RecommendationID: rec.ID, From: rec.Status, Action: "evaluate"}
	}

	switch {
	case rec.Type == model.TypeEscalation:
		rec.Status = model.StatusPendingApproval
	case rec.Confidence.Overall >= g.cfg.AutoApproveThreshold && rec.Priority != model.PriorityCritical:
		rec.Status = model.StatusAutoApproved
		decided := g.now().UTC()
		rec.DecidedAt = &decided
	default:
		rec.Status = model.StatusPendingApproval
	}

	zap.L().Info("gate: evaluated recommendation",
		zap.String("id", rec.ID),
		zap.String("type", string(rec.Type)),
		zap.String("status", string(rec.Status)),
		zap.Float64("confidence", rec.Confidence.Overall),
	)

	return nil
}

// Approve transitions a pending recommendation to approved, recording the
// approver and decision time and applying any modifications. Any other
// starting state fails with InvalidTransitionError and leaves the
// recommendation unchanged.
func (g *Gate) Approve(rec *model.Recommendation, approverID string, mods *Modifications) error {
	mu := g.lockFor(rec.ID)
	mu.Lock()
	defer mu.Unlock()

	if rec.Status != model.StatusPendingApproval {
		return &InvalidTransitionError{RecommendationID: rec.ID, From: rec.Status, Action: "approve"}
	}
	if approverID == "" {
		return &InvalidTransitionError{RecommendationID: rec.ID, From: rec.Status, Action: "approve without approver"}
	}

	if mods != nil {
		if mods.Title != "" {
			rec.Title = mods.Title
		}
		if mods.Priority != "" {
			rec.Priority = mods.Priority
		}
		if len(mods.NextSteps) > 0 {
			rec.NextSteps = append([]string(nil), mods.NextSteps...)
		}
	}

	decided := g.now().UTC()
	rec.Status = model.StatusApproved
	rec.DecidedAt = &decided
	rec.Approver = approverID

	zap.L().Info("gate: recommendation approved",
		zap.String("id", rec.ID),
		zap.String("approver", approverID),
	)

	return nil
}

// Reject transitions a pending recommendation to rejected. A non-empty
// reason is required. Any other starting state fails with
// InvalidTransitionError and leaves the recommendation unchanged.
func (g *Gate) Reject(rec *model.Recommendation, approverID, reason string) error {
	mu := g.lockFor(rec.ID)
	mu.Lock()
	defer mu.Unlock()

	if rec.Status != model.StatusPendingApproval {
		return &InvalidTransitionError{RecommendationID: rec.ID, From: rec.Status, Action: "reject"}
	}
	if approverID == "" {
		return &InvalidTransitionError{RecommendationID: rec.ID, From: rec.Status, Action: "reject without approver"}
	}
	if reason == "" {
		return &InvalidTransitionError{RecommendationID: rec.ID, From: rec.Status, Action: "reject without reason"}
	}

	decided := g.now().UTC()
	rec.Status = model.StatusRejected
	rec.DecidedAt = &decided
	rec.Approver = approverID
	rec.RejectionReason = reason

	zap.L().Info("gate: recommendation rejected",
		zap.String("id", rec.ID),
		zap.String("approver", approverID),
		zap.String("reason", reason),
	)

	return nil
}
