package model

import (
	"time"
)

// RecommendationType classifies the account-management action being proposed.
type RecommendationType string

const (
	TypeEngagement     RecommendationType = "engagement"
	TypeExpansion      RecommendationType = "expansion"
	TypeRetention      RecommendationType = "retention"
	TypeRiskMitigation RecommendationType = "risk_mitigation"
	TypeEscalation     RecommendationType = "escalation"
)

// AllTypes lists every candidate type evaluated during batch generation,
// in a stable order.
var AllTypes = []RecommendationType{
	TypeEngagement,
	TypeExpansion,
	TypeRetention,
	TypeRiskMitigation,
	TypeEscalation,
}

// Valid reports whether t is one of the known recommendation types.
func (t RecommendationType) Valid() bool {
	switch t {
	case TypeEngagement, TypeExpansion, TypeRetention, TypeRiskMitigation, TypeEscalation:
		return true
	}
	return false
}

// Priority represents how urgently a recommendation should be acted on.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// priorityOrdinal maps priorities to numeric ranks for sorting.
// Higher ordinal means more urgent.
var priorityOrdinal = map[Priority]int{
	PriorityLow:      0,
	PriorityMedium:   1,
	PriorityHigh:     2,
	PriorityCritical: 3,
}

// Ordinal returns the numeric rank of the priority (critical highest).
// Unknown priorities rank below low.
func (p Priority) Ordinal() int {
	if ord, ok := priorityOrdinal[p]; ok {
		return ord
	}
	return -1
}

// ApprovalStatus is the state of a recommendation in the approval lifecycle.
type ApprovalStatus string

const (
	StatusDraft           ApprovalStatus = "draft"
	StatusPendingApproval ApprovalStatus = "pending_approval"
	StatusAutoApproved    ApprovalStatus = "auto_approved"
	StatusApproved        ApprovalStatus = "approved"
	StatusRejected        ApprovalStatus = "rejected"
)

// Terminal reports whether the status admits no further transitions.
func (s ApprovalStatus) Terminal() bool {
	switch s {
	case StatusAutoApproved, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Recommendation is a fully assembled account-management recommendation.
// Once a terminal status is reached the entity is immutable.
type Recommendation struct {
	ID              string             `json:"id"`
	AccountID       string             `json:"account_id"`
	Type            RecommendationType `json:"type"`
	Title           string             `json:"title"`
	Rationale       string             `json:"rationale"`
	Priority        Priority           `json:"priority"`
	Confidence      ConfidenceScore    `json:"confidence"`
	UrgencyScore    float64            `json:"urgency_score"`
	DataReferences  []DataReference    `json:"data_references"`
	NextSteps       []string           `json:"next_steps"`
	Status          ApprovalStatus     `json:"status"`
	CreatedAt       time.Time          `json:"created_at"`
	DecidedAt       *time.Time         `json:"decided_at,omitempty"`
	Approver        string             `json:"approver,omitempty"`
	RejectionReason string             `json:"rejection_reason,omitempty"`
}

// Validate checks the structural invariants of a recommendation:
// non-empty evidence, bounded confidence, and the escalation safety rule.
func (r *Recommendation) Validate() error {
	if r.ID == "" {
		return &ValidationError{Entity: "recommendation", Field: "id", Detail: "empty"}
	}
	if len(r.DataReferences) == 0 {
		return &ValidationError{Entity: "recommendation", Field: "data_references", Detail: "empty"}
	}
	if err := r.Confidence.Validate(); err != nil {
		return err
	}
	if r.Type == TypeEscalation && r.Status == StatusAutoApproved {
		return &ValidationError{Entity: "recommendation", Field: "status", Detail: "escalation auto-approved"}
	}
	return nil
}

// PriorityBreakdown counts recommendations per priority within a batch.
type PriorityBreakdown struct {
	Low      int `json:"low"`
	Medium   int `json:"medium"`
	High     int `json:"high"`
	Critical int `json:"critical"`
}

// RecommendationBatch is an ordered set of recommendations for one account.
type RecommendationBatch struct {
	ID                string              `json:"id"`
	AccountID         string              `json:"account_id"`
	Recommendations   []Recommendation    `json:"recommendations"`
	PriorityBreakdown PriorityBreakdown   `json:"priority_breakdown"`
	GeneratedAt       time.Time           `json:"generated_at"`
}

// ComputeBreakdown recomputes the per-priority counts from the batch contents.
func (b *RecommendationBatch) ComputeBreakdown() {
	var br PriorityBreakdown
	for i := range b.Recommendations {
		switch b.Recommendations[i].Priority {
		case PriorityLow:
			br.Low++
		case PriorityMedium:
			br.Medium++
		case PriorityHigh:
			br.High++
		case PriorityCritical:
			br.Critical++
		}
	}
	b.PriorityBreakdown = br
}
