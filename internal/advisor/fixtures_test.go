package advisor

import (
	"time"

	"github.com/sells-group/account-advisor/internal/config"
	"github.com/sells-group/account-advisor/internal/model"
)

// testNow is the fixed clock used across advisor tests.
var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func testScoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		HalfLifeDays:     30,
		MaxCorroboration: 10,
		NeutralPrior:     0.5,
		WilsonZ:          1.96,
		Weights: config.ScoreWeights{
			Recency:            0.25,
			PatternStrength:    0.25,
			EvidenceQuality:    0.25,
			HistoricalAccuracy: 0.25,
		},
		Levels: model.DefaultLevelThresholds,
	}
}

func testUrgencyConfig() config.UrgencyConfig {
	return config.UrgencyConfig{
		PriorityWeight:       0.4,
		TimeSensitivity:      0.25,
		AccountValue:         0.2,
		Risk:                 0.15,
		DeadlineHorizonDays:  30,
		RevenueNormalization: 1_000_000,
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Scoring: testScoringConfig(),
		Urgency: testUrgencyConfig(),
		Gate:    config.GateConfig{AutoApproveThreshold: 0.85},
	}
}

// retentionRefs are three distinct-record retention evidence points aged
// 1, 10, and 40 days against testNow.
func retentionRefs() []model.DataReference {
	return []model.DataReference{
		{
			Source:     model.SourceCRMField,
			FieldPath:  "account.renewal_date",
			Value:      "2025-09-01",
			ObservedAt: testNow.AddDate(0, 0, -1),
			RecordID:   "acct-1",
		},
		{
			Source:     model.SourceActivityLog,
			FieldPath:  "activity.support.ticket_count",
			Value:      4,
			ObservedAt: testNow.AddDate(0, 0, -10),
			RecordID:   "act-77",
		},
		{
			Source:     model.SourceMemoryPattern,
			FieldPath:  "pattern.churn_signals",
			Value:      3,
			ObservedAt: testNow.AddDate(0, 0, -40),
			RecordID:   "mem-12",
		},
	}
}

func retentionContext() *model.RecommendationContext {
	return &model.RecommendationContext{
		AccountID: "acct-1",
		Account: model.AccountSnapshot{
			RecordID:   "acct-1",
			Name:       "Globex",
			Revenue:    500_000,
			SnapshotAt: testNow.AddDate(0, 0, -1),
		},
		Outcomes: map[model.RecommendationType]model.OutcomeStats{
			model.TypeRetention: {Successes: 18, Total: 20},
		},
	}
}
