package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"

	"qprofile/internal/config"
	"qprofile/internal/constants"
	"qprofile/internal/logger"
	"qprofile/pkg/metrics"
	"qprofile/pkg/models"
	"qprofile/pkg/tracing"
)

type KafkaProducer struct {
	writer *kafka.Writer
	logger logger.Logger
}

func NewKafkaProducer(cfg config.KafkaConfig, log logger.Logger) *KafkaProducer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           constants.KafkaBatchTimeout,
		WriteTimeout:           constants.KafkaWriteTimeout,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		Async:                  false,
	}
	return &KafkaProducer{writer: w, logger: log}
}

// Publish writes msg synchronously. Messages are keyed by envelope ID.
func (p *KafkaProducer) Publish(ctx context.Context, topic string, msg models.MessageEnvelope) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	ctx, span := tracing.StartSpan(ctx, "kafka.publish",
		attribute.String("messaging.destination", topic),
		attribute.String("messaging.message_id", msg.ID),
	)
	defer span.End()

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	headers := []kafka.Header{}
	if msg.Metadata.EventType != "" {
		headers = append(headers, kafka.Header{Key: "event_type", Value: []byte(msg.Metadata.EventType)})
	}
	headers = tracing.InjectTraceContext(ctx, headers)

	start := time.Now()
	err = p.writer.WriteMessages(ctx,
		kafka.Message{
			Topic:   topic,
			Key:     []byte(msg.ID),
			Value:   body,
			Headers: headers,
			Time:    time.Now(),
		},
	)
	metrics.ObserveKafkaWriteDuration(constants.ServiceName, topic, time.Since(start))

	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	metrics.IncKafkaMessagesWritten(constants.ServiceName, topic)
	metrics.ObserveKafkaMessageSize(constants.ServiceName, topic, "out", len(body))
	p.logger.DebugwCtx(ctx, "Published message", "topic", topic, "id", msg.ID)

	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
