package domain

import (
	"math"
	"time"
)

// RiskCategory is the discretized risk band.
type RiskCategory string

const (
	RiskLow    RiskCategory = "low"
	RiskMedium RiskCategory = "medium"
	RiskHigh   RiskCategory = "high"

	// RiskUnknown marks a degraded assessment where no real score could be
	// computed. It is deliberately distinct from RiskMedium so a defaulted
	// 0.5 can never be mistaken for a genuine mid-band score.
	RiskUnknown RiskCategory = "unknown"
)

// CategoryForScore maps a score in [0,1] to its risk band. Bands are
// contiguous: low=[0,0.33), medium=[0.33,0.66), high=[0.66,1.0]. A score of
// exactly 1.0 is high. NaN maps to unknown.
func CategoryForScore(score float64) RiskCategory {
	switch {
	case math.IsNaN(score):
		return RiskUnknown
	case score < 0.33:
		return RiskLow
	case score < 0.66:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// AssessmentRequest asks for a risk assessment of a region/crop pair under
// a scenario ("normal", "drought", "flood"; unknown values add no clause).
type AssessmentRequest struct {
	ID       string `json:"id"`
	Region   string `json:"region"`
	Crop     string `json:"crop"`
	Scenario string `json:"scenario"`
}

// ResultMetadata carries the request context back with the result.
type ResultMetadata struct {
	Location  string    `json:"location"`
	Crop      string    `json:"crop"`
	Scenario  string    `json:"scenario"`
	Timestamp time.Time `json:"timestamp"`
}

// RiskResult is the assessment returned to the caller.
type RiskResult struct {
	RiskScore           float64            `json:"risk_score"`
	RiskCategory        RiskCategory       `json:"risk_category"`
	Explanation         string             `json:"explanation"`
	ContributingFactors map[string]float64 `json:"contributing_factors"`
	Metadata            ResultMetadata     `json:"metadata"`
}

// OutcomeStatus tags the assessment outcome variant.
type OutcomeStatus string

const (
	OutcomeOK               OutcomeStatus = "ok"
	OutcomeInsufficientData OutcomeStatus = "insufficient_data"
	OutcomeFailed           OutcomeStatus = "failed"
)

// Outcome is the explicit result variant of an assessment. Fallback to the
// degraded default is a visible branch on Status, not a side effect of
// error handling: every status still carries a renderable Result.
type Outcome struct {
	Status OutcomeStatus
	Result RiskResult
	Reason string // populated for non-OK outcomes
}

// NewResult builds a successful assessment result, stamping the metadata
// from the request and the package clock.
func NewResult(req AssessmentRequest, score float64, explanation string, factors map[string]float64) RiskResult {
	if factors == nil {
		factors = map[string]float64{}
	}
	return RiskResult{
		RiskScore:           score,
		RiskCategory:        CategoryForScore(score),
		Explanation:         explanation,
		ContributingFactors: factors,
		Metadata: ResultMetadata{
			Location:  req.Region,
			Crop:      req.Crop,
			Scenario:  req.Scenario,
			Timestamp: clock.Now().UTC(),
		},
	}
}

// DegradedResult builds the well-formed default returned when scoring
// fails: score 0.5 with the unknown sentinel category.
func DegradedResult(req AssessmentRequest, reason string) RiskResult {
	return RiskResult{
		RiskScore:           0.5,
		RiskCategory:        RiskUnknown,
		Explanation:         "Unable to calculate risk: " + reason,
		ContributingFactors: map[string]float64{},
		Metadata: ResultMetadata{
			Location:  req.Region,
			Crop:      req.Crop,
			Scenario:  req.Scenario,
			Timestamp: clock.Now().UTC(),
		},
	}
}
