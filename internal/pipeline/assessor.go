package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ddv2311/agri-risk-assessment/internal/domain"
	"github.com/ddv2311/agri-risk-assessment/internal/observability"
	"github.com/ddv2311/agri-risk-assessment/internal/risk"
)

// RequestAssessor implements Assessor on top of the risk scorer. Scoring
// never fails a message: degraded outcomes still publish a result. Only an
// unparseable payload returns an error, which the pipeline skips.
type RequestAssessor struct {
	scorer  *risk.Scorer
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewAssessor creates a RequestAssessor.
func NewAssessor(scorer *risk.Scorer, metrics *observability.Metrics, logger *slog.Logger) *RequestAssessor {
	return &RequestAssessor{
		scorer:  scorer,
		metrics: metrics,
		logger:  logger,
	}
}

func (a *RequestAssessor) Assess(ctx context.Context, raw domain.RawMessage) (domain.ResultMessage, error) {
	var req domain.AssessmentRequest
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		a.metrics.Assessments.WithLabelValues(string(domain.OutcomeFailed)).Inc()
		return domain.ResultMessage{}, fmt.Errorf("parse request: %w", err)
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Scenario == "" {
		req.Scenario = "normal"
	}

	start := time.Now()
	outcome := a.scorer.Assess(ctx, req)
	a.metrics.AssessmentDuration.Observe(time.Since(start).Seconds())
	a.metrics.Assessments.WithLabelValues(string(outcome.Status)).Inc()

	if outcome.Status != domain.OutcomeOK {
		a.logger.Warn("assessment degraded",
			"request_id", req.ID,
			"region", req.Region,
			"crop", req.Crop,
			"status", string(outcome.Status),
			"reason", outcome.Reason,
		)
	}

	return domain.ResultMessage{
		Key:    []byte(req.ID),
		Result: outcome.Result,
	}, nil
}
