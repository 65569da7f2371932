package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/ddv2311/agri-risk-assessment/internal/config"
	"github.com/ddv2311/agri-risk-assessment/internal/domain"
)

// Writer produces risk results to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes multiple risk results to the sink Kafka
// topic in a single WriteMessages call for efficiency.
func (w *Writer) LoadBatch(ctx context.Context, results []domain.ResultMessage) error {
	if len(results) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(results))
	for i := range results {
		msg, err := serializeToMessage(results[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a risk result into a Kafka message keyed by
// the request ID.
func serializeToMessage(result domain.ResultMessage) (kafkago.Message, error) {
	data, err := json.Marshal(result.Result)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize risk result: %w", err)
	}
	return kafkago.Message{
		Key:   result.Key,
		Value: data,
		Headers: []kafkago.Header{
			{Key: "risk_category", Value: []byte(result.Result.RiskCategory)},
			{Key: "assessed_at", Value: []byte(result.Result.Metadata.Timestamp.Format(time.RFC3339))},
		},
	}, nil
}
