package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	otelx "github.com/md-rashed-zaman/spacebook/libs/otel"
)

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType.
type Event struct {
	EventID       string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	Traceparent   string
	Tracestate    string
}

// NewEvent marshals payload and captures the trace context of ctx, so the publisher can
// continue the trace that produced the event.
func NewEvent(ctx context.Context, aggregateType, aggregateID, eventType string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	traceparent, tracestate := otelx.TraceContextStrings(ctx)
	return Event{
		EventID:       uuid.NewString(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       raw,
		Traceparent:   traceparent,
		Tracestate:    tracestate,
	}, nil
}
