package domain

import (
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestCategoryForScore(t *testing.T) {
	cases := []struct {
		score float64
		want  RiskCategory
	}{
		{0.0, RiskLow},
		{0.2, RiskLow},
		{0.3299, RiskLow},
		{0.33, RiskMedium},
		{0.5, RiskMedium},
		{0.6599, RiskMedium},
		{0.66, RiskHigh},
		{0.75, RiskHigh},
		{1.0, RiskHigh},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CategoryForScore(tc.score), "score %v", tc.score)
	}

	assert.Equal(t, RiskUnknown, CategoryForScore(math.NaN()))
}

func TestNewResult(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC))
	SetClock(fakeClock)
	t.Cleanup(func() { SetClock(nil) })

	req := AssessmentRequest{ID: "req-1", Region: "punjab", Crop: "wheat", Scenario: "drought"}
	result := NewResult(req, 0.72, "High risk due to: drought conditions are expected", map[string]float64{"rainfall_deviation": -0.2})

	assert.InDelta(t, 0.72, result.RiskScore, 1e-9)
	assert.Equal(t, RiskHigh, result.RiskCategory)
	assert.Equal(t, "punjab", result.Metadata.Location)
	assert.Equal(t, "wheat", result.Metadata.Crop)
	assert.Equal(t, "drought", result.Metadata.Scenario)
	assert.Equal(t, fakeClock.Now().UTC(), result.Metadata.Timestamp)
}

func TestNewResult_NilFactors(t *testing.T) {
	result := NewResult(AssessmentRequest{}, 0.1, "ok", nil)
	assert.NotNil(t, result.ContributingFactors)
	assert.Empty(t, result.ContributingFactors)
}

func TestDegradedResult(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC))
	SetClock(fakeClock)
	t.Cleanup(func() { SetClock(nil) })

	req := AssessmentRequest{ID: "req-2", Region: "kerala", Crop: "rice", Scenario: "normal"}
	result := DegradedResult(req, "insufficient data for assessment")

	assert.InDelta(t, 0.5, result.RiskScore, 1e-9)
	assert.Equal(t, RiskUnknown, result.RiskCategory)
	assert.Equal(t, "Unable to calculate risk: insufficient data for assessment", result.Explanation)
	assert.NotNil(t, result.ContributingFactors)
	assert.Empty(t, result.ContributingFactors)
	assert.Equal(t, "kerala", result.Metadata.Location)
	assert.Equal(t, "rice", result.Metadata.Crop)
	assert.Equal(t, fakeClock.Now().UTC(), result.Metadata.Timestamp)
}
