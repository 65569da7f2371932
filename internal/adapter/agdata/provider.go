package agdata

import (
	"context"
	"log/slog"

	"github.com/ddv2311/agri-risk-assessment/internal/domain"
	"github.com/ddv2311/agri-risk-assessment/internal/observability"
)

// FallbackProvider tries the primary provider first and falls back to the
// secondary when the primary errors or returns an empty frame. The usual
// chain is collector API → simulator, so a dead upstream still yields data.
type FallbackProvider struct {
	primary   domain.RawDataProvider
	secondary domain.RawDataProvider
	logger    *slog.Logger
}

// NewFallbackProvider creates the two-level chain.
func NewFallbackProvider(primary, secondary domain.RawDataProvider, logger *slog.Logger) *FallbackProvider {
	return &FallbackProvider{primary: primary, secondary: secondary, logger: logger}
}

func (p *FallbackProvider) Collect(ctx context.Context, category domain.Category, region, crop string, lookbackDays int) (domain.Frame, error) {
	frame, err := p.primary.Collect(ctx, category, region, crop, lookbackDays)
	if err == nil && !frame.Empty() {
		return frame, nil
	}
	if err != nil {
		p.logger.Warn("primary provider failed, falling back",
			"category", string(category), "region", region, "crop", crop, "error", err)
	}
	return p.secondary.Collect(ctx, category, region, crop, lookbackDays)
}

// InstrumentedProvider records provider request metrics around an inner
// provider.
type InstrumentedProvider struct {
	inner   domain.RawDataProvider
	metrics *observability.Metrics
}

// NewInstrumentedProvider wraps a provider with metrics.
func NewInstrumentedProvider(inner domain.RawDataProvider, metrics *observability.Metrics) *InstrumentedProvider {
	return &InstrumentedProvider{inner: inner, metrics: metrics}
}

func (p *InstrumentedProvider) Collect(ctx context.Context, category domain.Category, region, crop string, lookbackDays int) (domain.Frame, error) {
	frame, err := p.inner.Collect(ctx, category, region, crop, lookbackDays)
	switch {
	case err != nil:
		p.metrics.ProviderRequests.WithLabelValues(string(category), "error").Inc()
	case frame.Empty():
		p.metrics.ProviderRequests.WithLabelValues(string(category), "empty").Inc()
	default:
		p.metrics.ProviderRequests.WithLabelValues(string(category), "ok").Inc()
	}
	return frame, err
}
