//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/ddv2311/agri-risk-assessment/internal/adapter/agdata"
	"github.com/ddv2311/agri-risk-assessment/internal/adapter/kafka"
	"github.com/ddv2311/agri-risk-assessment/internal/config"
	"github.com/ddv2311/agri-risk-assessment/internal/domain"
	"github.com/ddv2311/agri-risk-assessment/internal/model"
	"github.com/ddv2311/agri-risk-assessment/internal/observability"
	"github.com/ddv2311/agri-risk-assessment/internal/pipeline"
	"github.com/ddv2311/agri-risk-assessment/internal/risk"
)

const (
	testSourceTopic = "test-requests"
	testSinkTopic   = "test-results"
)

// --- helpers ---

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("test-cluster"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "resolve kafka brokers")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testScorer() *risk.Scorer {
	clock := clockwork.NewFakeClockAt(time.Date(2025, time.June, 1, 6, 0, 0, 0, time.UTC))
	provider := agdata.NewSimulatedProvider(42, clock)
	return risk.NewScorer(provider, risk.Config{
		LookbackDays: 365,
		TrainRegions: []string{"punjab", "kerala"},
		TrainCrops:   []string{"wheat", "rice"},
		Forest:       model.Config{NumTrees: 10, MaxDepth: 4, Seed: 7},
	}, discardLogger())
}

func makeRequest(id, region, crop string) ([]byte, error) {
	return json.Marshal(domain.AssessmentRequest{
		ID:       id,
		Region:   region,
		Crop:     crop,
		Scenario: "normal",
	})
}

// assessedMessage holds a deserialized message read from the sink topic.
type assessedMessage struct {
	Result  domain.RiskResult
	Key     string
	Headers map[string]string
}

// readAssessed reads a single message from the sink consumer and deserializes it.
func readAssessed(ctx context.Context, t *testing.T, consumer *kafkago.Reader) assessedMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var result domain.RiskResult
	require.NoError(t, json.Unmarshal(msg.Value, &result), "unmarshal sink message")

	return assessedMessage{
		Result:  result,
		Key:     string(msg.Key),
		Headers: headers,
	}
}

// --- tests ---

// TestKafkaReaderWriter verifies the adapter layer: kafka.Reader (extractor)
// and kafka.Writer (loader) correctly round-trip a message through Kafka.
func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)

	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("test-reader-%d", time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}

	payload, err := makeRequest("req-1", "punjab", "wheat")
	require.NoError(t, err)

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testSourceTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	require.NoError(t, producer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte("req-1"),
		Value: payload,
	}))

	// Extract via kafka.Reader.
	// Retry because the consumer group may need time to rebalance before
	// partitions are assigned and messages become available.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	var batch []domain.RawMessage
	for {
		var err error
		batch, err = reader.ExtractBatch(ctx, 1)
		require.NoError(t, err)
		if len(batch) > 0 {
			break
		}
		if ctx.Err() != nil {
			t.Fatal("timed out waiting for message from source topic")
		}
	}
	require.Len(t, batch, 1)
	raw := batch[0]
	assert.Equal(t, []byte("req-1"), raw.Key)
	assert.Equal(t, payload, raw.Value)
	assert.Equal(t, testSourceTopic, raw.Topic)
	require.NotNil(t, raw.Commit, "commit callback should be set")

	// Commit the offset.
	require.NoError(t, raw.Commit(ctx))

	// Assess the request into a risk result.
	assessor := pipeline.NewAssessor(testScorer(), observability.NewMetricsForTesting(), discardLogger())
	out, err := assessor.Assess(ctx, raw)
	require.NoError(t, err)

	// Load via kafka.Writer.
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	require.NoError(t, writer.LoadBatch(ctx, []domain.ResultMessage{out}))

	// Read from the sink topic and verify headers + value.
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	am := readAssessed(ctx, t, consumer)
	assert.Equal(t, "req-1", am.Key)
	assert.NotEmpty(t, am.Headers["risk_category"])
	_, err = time.Parse(time.RFC3339, am.Headers["assessed_at"])
	assert.NoError(t, err, "assessed_at should be valid RFC3339")

	assert.Equal(t, "punjab", am.Result.Metadata.Location)
	assert.Equal(t, "wheat", am.Result.Metadata.Crop)
	assert.GreaterOrEqual(t, am.Result.RiskScore, 0.0)
	assert.LessOrEqual(t, am.Result.RiskScore, 1.0)
	assert.NotEmpty(t, am.Result.Explanation)
}

// TestPipelineEndToEnd wires the full pipeline (Reader → Assessor → Writer)
// with real Kafka and verifies every request yields a scored result.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)

	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("test-pipeline-%d", time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}

	regions := []string{"punjab", "kerala", "gujarat"}
	crops := []string{"wheat", "rice"}

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testSourceTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	var msgs []kafkago.Message
	for _, region := range regions {
		for _, crop := range crops {
			id := fmt.Sprintf("req-%s-%s", region, crop)
			payload, err := makeRequest(id, region, crop)
			require.NoError(t, err)
			msgs = append(msgs, kafkago.Message{Key: []byte(id), Value: payload})
		}
	}
	require.NoError(t, producer.WriteMessages(ctx, msgs...))

	// Wire up the pipeline.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	assessor := pipeline.NewAssessor(testScorer(), metrics, discardLogger())
	p := pipeline.New(reader, assessor, writer, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	received := make(map[string]assessedMessage, len(msgs))
	for len(received) < len(msgs) {
		am := readAssessed(ctx, t, consumer)
		received[am.Key] = am
	}

	pipelineCancel()
	require.NoError(t, <-errCh)

	require.Len(t, received, len(regions)*len(crops))
	for _, region := range regions {
		for _, crop := range crops {
			id := fmt.Sprintf("req-%s-%s", region, crop)
			am, ok := received[id]
			require.True(t, ok, "missing result for %s", id)

			assert.Equal(t, region, am.Result.Metadata.Location)
			assert.Equal(t, crop, am.Result.Metadata.Crop)
			assert.Contains(t, []domain.RiskCategory{domain.RiskLow, domain.RiskMedium, domain.RiskHigh},
				am.Result.RiskCategory)
			assert.NotEmpty(t, am.Headers["risk_category"])
		}
	}
}

// TestPipelinePoisonMessage verifies that an unparseable request is skipped
// and the pipeline continues processing valid requests.
func TestPipelinePoisonMessage(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)

	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("test-poison-%d", time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}

	validPayload, err := makeRequest("req-good", "punjab", "wheat")
	require.NoError(t, err)

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testSourceTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	require.NoError(t, producer.WriteMessages(ctx,
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{")},
		kafkago.Message{Key: []byte("req-good"), Value: validPayload},
	))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	assessor := pipeline.NewAssessor(testScorer(), metrics, discardLogger())
	p := pipeline.New(reader, assessor, writer, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	// Only the valid request should appear on the sink topic.
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	am := readAssessed(ctx, t, consumer)
	assert.Equal(t, "req-good", am.Key)
	assert.Equal(t, "punjab", am.Result.Metadata.Location)

	// Verify no second message arrives (the poison pill was skipped).
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err = consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no second message on sink topic")

	pipelineCancel()
	require.NoError(t, <-errCh)
}
