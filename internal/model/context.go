package model

import "time"

// AccountSnapshot is the Data Scout view of a CRM account at one point in time.
type AccountSnapshot struct {
	RecordID   string         `json:"record_id"`
	Name       string         `json:"name"`
	Tier       string         `json:"tier,omitempty"`
	Revenue    float64        `json:"revenue,omitempty"`
	RiskLevel  string         `json:"risk_level,omitempty"`
	Fields     map[string]any `json:"fields"`
	SnapshotAt time.Time      `json:"snapshot_at"`
}

// DealRecord is a single open or recently closed deal from the Data Scout.
type DealRecord struct {
	RecordID  string         `json:"record_id"`
	Stage     string         `json:"stage"`
	Amount    float64        `json:"amount"`
	CloseDate *time.Time     `json:"close_date,omitempty"`
	Fields    map[string]any `json:"fields"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ActivityEntry is a logged account interaction (call, email, meeting).
type ActivityEntry struct {
	RecordID   string         `json:"record_id"`
	Kind       string         `json:"kind"`
	Fields     map[string]any `json:"fields"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// MemoryPattern is a historical pattern hit supplied by the Memory Analyst.
type MemoryPattern struct {
	RecordID    string    `json:"record_id"`
	Pattern     string    `json:"pattern"`
	Occurrences int       `json:"occurrences"`
	Detail      string    `json:"detail,omitempty"`
	LastSeen    time.Time `json:"last_seen"`
}

// OutcomeStats holds prior recommendation outcomes for one type:
// how many were accepted and acted on successfully out of how many issued.
type OutcomeStats struct {
	Successes int `json:"successes"`
	Total     int `json:"total"`
}

// RecommendationContext is the read-only input aggregate for one scoring
// pass. It is captured as a snapshot before parallel scoring begins and is
// never mutated by scorers.
type RecommendationContext struct {
	AccountID string                              `json:"account_id"`
	Account   AccountSnapshot                     `json:"account"`
	Deals     []DealRecord                        `json:"deals"`
	Activity  []ActivityEntry                     `json:"activity"`
	Patterns  []MemoryPattern                     `json:"patterns"`
	Outcomes  map[RecommendationType]OutcomeStats `json:"outcomes"`

	// RiskIndicators flags conditions (churn signals, support escalations)
	// that bump priority during building.
	RiskIndicators bool `json:"risk_indicators"`

	// DeadlineAt, when set, drives the time-sensitivity urgency factor
	// (e.g. renewal date, contract expiry).
	DeadlineAt *time.Time `json:"deadline_at,omitempty"`
}

// OutcomesFor returns the prior outcome stats for the given type.
// Types with no recorded history return zero stats.
func (c *RecommendationContext) OutcomesFor(t RecommendationType) OutcomeStats {
	if c.Outcomes == nil {
		return OutcomeStats{}
	}
	return c.Outcomes[t]
}
