package models

import (
	"context"
	"time"

	"github.com/google/uuid"

	"qprofile/pkg/logging"
)

// EnvelopeBuilder assembles a MessageEnvelope. Build fills the ID and
// timestamp when they were not set.
type EnvelopeBuilder struct {
	envelope MessageEnvelope
}

func NewEnvelopeBuilder(source, eventType string) *EnvelopeBuilder {
	return &EnvelopeBuilder{
		envelope: MessageEnvelope{
			Source:   source,
			Payload:  make(map[string]interface{}),
			Metadata: Metadata{EventType: eventType},
		},
	}
}

func (b *EnvelopeBuilder) WithTimestamp(timestamp time.Time) *EnvelopeBuilder {
	b.envelope.Timestamp = timestamp
	return b
}

func (b *EnvelopeBuilder) WithPayload(payload map[string]interface{}) *EnvelopeBuilder {
	b.envelope.Payload = payload
	return b
}

// WithContext copies the trace and request IDs carried by ctx.
func (b *EnvelopeBuilder) WithContext(ctx context.Context) *EnvelopeBuilder {
	b.envelope.Metadata.TraceID = logging.GetTraceID(ctx)
	b.envelope.Metadata.RequestID = logging.GetRequestID(ctx)
	return b
}

func (b *EnvelopeBuilder) Build() MessageEnvelope {
	if b.envelope.ID == "" {
		b.envelope.ID = uuid.New().String()
	}
	if b.envelope.Timestamp.IsZero() {
		b.envelope.Timestamp = time.Now().UTC()
	}
	return b.envelope
}
