package model

// ConfidenceLevel buckets an overall confidence score into a coarse grade.
type ConfidenceLevel string

const (
	ConfidenceLow      ConfidenceLevel = "low"
	ConfidenceMedium   ConfidenceLevel = "medium"
	ConfidenceHigh     ConfidenceLevel = "high"
	ConfidenceVeryHigh ConfidenceLevel = "very_high"
)

// LevelThresholds holds the cutoffs for mapping an overall score to a level.
// Each value is the inclusive lower bound of its bucket.
type LevelThresholds struct {
	Medium   float64 `yaml:"medium" mapstructure:"medium"`
	High     float64 `yaml:"high" mapstructure:"high"`
	VeryHigh float64 `yaml:"very_high" mapstructure:"very_high"`
}

// DefaultLevelThresholds are the standard level cutoffs.
var DefaultLevelThresholds = LevelThresholds{Medium: 0.5, High: 0.7, VeryHigh: 0.85}

// LevelFor maps an overall score to a confidence level. Pure function of
// the score: identical inputs always produce identical levels.
func (t LevelThresholds) LevelFor(overall float64) ConfidenceLevel {
	switch {
	case overall >= t.VeryHigh:
		return ConfidenceVeryHigh
	case overall >= t.High:
		return ConfidenceHigh
	case overall >= t.Medium:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// ConfidenceScore holds the four component scores and their weighted
// combination for one candidate. All values are in [0,1].
type ConfidenceScore struct {
	Recency            float64         `json:"recency"`
	PatternStrength    float64         `json:"pattern_strength"`
	EvidenceQuality    float64         `json:"evidence_quality"`
	HistoricalAccuracy float64         `json:"historical_accuracy"`
	Overall            float64         `json:"overall"`
	Level              ConfidenceLevel `json:"level"`
}

// Validate checks the [0,1] bounds invariant on all scores.
func (c ConfidenceScore) Validate() error {
	for _, sub := range []struct {
		name string
		v    float64
	}{
		{"recency", c.Recency},
		{"pattern_strength", c.PatternStrength},
		{"evidence_quality", c.EvidenceQuality},
		{"historical_accuracy", c.HistoricalAccuracy},
		{"overall", c.Overall},
	} {
		if sub.v < 0 || sub.v > 1 {
			return &ValidationError{Entity: "confidence_score", Field: sub.name, Detail: "outside [0,1]"}
		}
	}
	return nil
}
