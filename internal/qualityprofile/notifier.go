package qualityprofile

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"qprofile/internal/broker"
	"qprofile/internal/constants"
	"qprofile/pkg/models"
)

// ChangeEventProducer publishes propagated change sets to Kafka.
type ChangeEventProducer struct {
	producer broker.Producer
	topic    string
}

func NewChangeEventProducer(producer broker.Producer, topic string) *ChangeEventProducer {
	return &ChangeEventProducer{
		producer: producer,
		topic:    topic,
	}
}

func (p *ChangeEventProducer) NotifyChanges(ctx context.Context, changes ChangeSet, changedBy string) error {
	if p.producer == nil || p.topic == "" || changes.IsEmpty() {
		return nil
	}

	event := models.ActiveRuleChangeEvent{
		EventType:   models.EventTypeActiveRulesChanged,
		ProfileKeys: changes.ProfileKeys(),
		Changes:     make([]models.ActiveRuleChangeRecord, 0, len(changes)),
		Counts:      make(map[string]int, 3),
		ChangedBy:   changedBy,
		Timestamp:   time.Now().UTC(),
	}
	for t, n := range changes.CountByType() {
		event.Counts[string(t)] = n
	}
	for _, c := range changes {
		event.Changes = append(event.Changes, models.ActiveRuleChangeRecord{
			Type:       string(c.Type),
			ProfileKey: c.Key.ProfileKey,
			RuleKey:    string(c.Key.RuleKey),
			Severity:   string(c.Severity.OrElse("")),
			Params:     c.Params,
		})
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(eventJSON, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal event data: %w", err)
	}

	envelope := models.NewEnvelopeBuilder(constants.ServiceName, event.EventType).
		WithTimestamp(event.Timestamp).
		WithPayload(payload).
		WithContext(ctx).
		Build()

	return p.producer.Publish(ctx, p.topic, envelope)
}
