// Package monitoring tracks batch-generation and approval-gate metrics.
package monitoring

import (
	"sync"
	"time"

	"github.com/sells-group/account-advisor/internal/advisor"
	"github.com/sells-group/account-advisor/internal/model"
)

// MetricsSnapshot holds a point-in-time view of advisor activity since
// process start.
type MetricsSnapshot struct {
	BatchesGenerated   int     `json:"batches_generated"`
	Recommendations    int     `json:"recommendations"`
	CandidatesSkipped  int     `json:"candidates_skipped"`
	AutoApproved       int     `json:"auto_approved"`
	PendingApproval    int     `json:"pending_approval"`
	Approved           int     `json:"approved"`
	Rejected           int     `json:"rejected"`
	AvgConfidence      float64 `json:"avg_confidence"`
	AvgBatchDurationMS int64   `json:"avg_batch_duration_ms"`

	CollectedAt time.Time `json:"collected_at"`
}

// Collector accumulates advisor metrics in process. Safe for concurrent use.
type Collector struct {
	mu sync.Mutex

	batches         int
	recommendations int
	skipped         int
	autoApproved    int
	pending         int
	approved        int
	rejected        int
	confidenceSum   float64
	durationSumMS   int64
}

// NewCollector creates an empty metrics collector.
func NewCollector() *Collector {
	return &Collector{}
}

// ObserveBatch records the outcome of one batch generation.
func (c *Collector) ObserveBatch(result *advisor.BatchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.batches++
	c.skipped += len(result.Skipped)
	c.durationSumMS += result.DurationMS

	for i := range result.Batch.Recommendations {
		rec := &result.Batch.Recommendations[i]
		c.recommendations++
		c.confidenceSum += rec.Confidence.Overall
		switch rec.Status {
		case model.StatusAutoApproved:
			c.autoApproved++
		case model.StatusPendingApproval:
			c.pending++
		}
	}
}

// ObserveDecision records the outcome of a manual gate transition.
func (c *Collector) ObserveDecision(status model.ApprovalStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch status {
	case model.StatusApproved:
		c.approved++
		c.pending--
	case model.StatusRejected:
		c.rejected++
		c.pending--
	}
	if c.pending < 0 {
		c.pending = 0
	}
}

// Collect returns a snapshot of the accumulated metrics.
func (c *Collector) Collect() *MetricsSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := &MetricsSnapshot{
		BatchesGenerated:  c.batches,
		Recommendations:   c.recommendations,
		CandidatesSkipped: c.skipped,
		AutoApproved:      c.autoApproved,
		PendingApproval:   c.pending,
		Approved:          c.approved,
		Rejected:          c.rejected,
		CollectedAt:       time.Now().UTC(),
	}
	if c.recommendations > 0 {
		snap.AvgConfidence = c.confidenceSum / float64(c.recommendations)
	}
	if c.batches > 0 {
		snap.AvgBatchDurationMS = c.durationSumMS / int64(c.batches)
	}
	return snap
}
