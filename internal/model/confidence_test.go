package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelThresholds_LevelFor(t *testing.T) {
	th := DefaultLevelThresholds

	tests := []struct {
		overall float64
		want    ConfidenceLevel
	}{
		{0.0, ConfidenceLow},
		{0.49, ConfidenceLow},
		{0.5, ConfidenceMedium}, // lower bound is inclusive
		{0.69, ConfidenceMedium},
		{0.7, ConfidenceHigh},
		{0.84, ConfidenceHigh},
		{0.85, ConfidenceVeryHigh},
		{1.0, ConfidenceVeryHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, th.LevelFor(tt.overall), "overall=%v", tt.overall)
	}
}

func TestConfidenceScore_Validate(t *testing.T) {
	valid := ConfidenceScore{
		Recency:            0.9,
		PatternStrength:    0.5,
		EvidenceQuality:    1.0,
		HistoricalAccuracy: 0.0,
		Overall:            0.6,
		Level:              ConfidenceMedium,
	}
	require.NoError(t, valid.Validate())

	outOfRange := valid
	outOfRange.Recency = 1.2
	err := outOfRange.Validate()
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "recency", verr.Field)

	negative := valid
	negative.Overall = -0.01
	assert.Error(t, negative.Validate())
}
