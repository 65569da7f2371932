// Command riskd runs the agricultural risk assessment service: it consumes
// assessment requests from Kafka, scores them against the current model, and
// publishes risk results, with ops endpoints on HTTP and scheduled
// retraining.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"

	"github.com/ddv2311/agri-risk-assessment/internal/adapter/agdata"
	httpadapter "github.com/ddv2311/agri-risk-assessment/internal/adapter/http"
	kafkaadapter "github.com/ddv2311/agri-risk-assessment/internal/adapter/kafka"
	"github.com/ddv2311/agri-risk-assessment/internal/config"
	"github.com/ddv2311/agri-risk-assessment/internal/domain"
	"github.com/ddv2311/agri-risk-assessment/internal/model"
	"github.com/ddv2311/agri-risk-assessment/internal/observability"
	"github.com/ddv2311/agri-risk-assessment/internal/pipeline"
	"github.com/ddv2311/agri-risk-assessment/internal/risk"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	provider := buildProvider(cfg, metrics, clock, logger)
	scorer := risk.NewScorer(provider, scorerConfig(cfg), logger)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	assessor := pipeline.NewAssessor(scorer, metrics, logger)

	p := pipeline.New(reader, assessor, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, scorer, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler := startRetrainSchedule(ctx, cfg, scorer, metrics, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start assessment pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// buildProvider assembles the raw data chain: collector API with simulator
// fallback when a base URL is configured, simulator only otherwise, all
// behind the file cache and request metrics.
func buildProvider(cfg *config.Config, metrics *observability.Metrics, clock clockwork.Clock, logger *slog.Logger) domain.RawDataProvider {
	simulator := agdata.NewSimulatedProvider(cfg.Seed, clock)

	var source domain.RawDataProvider = simulator
	if cfg.CollectorBaseURL != "" {
		client := agdata.NewClient(cfg.CollectorBaseURL, cfg.CollectorTimeout, logger)
		source = agdata.NewFallbackProvider(client, simulator, logger)
		logger.Info("collector API enabled", "base_url", cfg.CollectorBaseURL, "timeout", cfg.CollectorTimeout)
	} else {
		logger.Info("collector API disabled, using simulated data")
	}

	cached := agdata.NewCachedProvider(source, agdata.CacheConfig{
		Dir:      cfg.CacheDir,
		ShortTTL: cfg.CacheShortTTL,
		LongTTL:  cfg.CacheLongTTL,
	}, clock, metrics, logger)

	return agdata.NewInstrumentedProvider(cached, metrics)
}

func scorerConfig(cfg *config.Config) risk.Config {
	return risk.Config{
		ModelPath:    cfg.ModelPath,
		ScalerPath:   cfg.ScalerPath,
		LookbackDays: cfg.LookbackDays,
		TrainRegions: cfg.TrainRegions,
		TrainCrops:   cfg.TrainCrops,
		Attributor:   attributorFor(cfg.Attribution),
		Forest: model.Config{
			NumTrees: cfg.ForestTrees,
			MaxDepth: cfg.ForestMaxDepth,
			Seed:     cfg.Seed,
		},
	}
}

// attributorFor maps the configured attribution mode to its provider.
func attributorFor(mode string) model.AttributionProvider {
	if mode == "importance" {
		return model.ImportanceAttributor{}
	}
	return model.PathAttributor{}
}

// startRetrainSchedule wires the cron retraining job. An empty cron spec
// disables scheduled retraining; the scorer still bootstraps lazily on the
// first request.
func startRetrainSchedule(ctx context.Context, cfg *config.Config, scorer *risk.Scorer, metrics *observability.Metrics, logger *slog.Logger) *cron.Cron {
	if cfg.RetrainCron == "" {
		logger.Info("scheduled retraining disabled")
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc(cfg.RetrainCron, func() {
		start := time.Now()
		if err := scorer.Retrain(ctx); err != nil {
			logger.Error("scheduled retrain failed", "error", err)
			metrics.TrainingRuns.WithLabelValues("error").Inc()
			return
		}
		metrics.TrainingRuns.WithLabelValues("success").Inc()
		metrics.TrainingDuration.Observe(time.Since(start).Seconds())
	})
	if err != nil {
		logger.Error("invalid retrain cron spec, scheduled retraining disabled",
			"spec", cfg.RetrainCron, "error", err)
		return nil
	}

	c.Start()
	logger.Info("scheduled retraining enabled", "spec", cfg.RetrainCron)
	return c
}
