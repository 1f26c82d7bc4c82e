package booking

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/outbox"
)

const aggregateType = "booking"

const (
	EventCreated       = "booking.created.v1"
	EventUpdated       = "booking.updated.v1"
	EventStatusChanged = "booking.status_changed.v1"
	EventDeleted       = "booking.deleted.v1"
	EventRestored      = "booking.restored.v1"
	EventPurged        = "booking.purged.v1"
)

type eventPayload struct {
	BookingID      string              `json:"booking_id"`
	SpaceName      string              `json:"space_name"`
	StartAt        string              `json:"start_at"`
	EndAt          string              `json:"end_at"`
	Status         model.BookingStatus `json:"booking_status"`
	PreviousStatus model.BookingStatus `json:"previous_status,omitempty"`
	Actor          string              `json:"actor,omitempty"`
	OccurredAt     string              `json:"occurred_at"`
}

func (m *Manager) emit(ctx context.Context, tx Tx, eventType string, b model.Booking, prev model.BookingStatus, actor string) error {
	evt, err := outbox.NewEvent(ctx, aggregateType, b.ID, eventType, eventPayload{
		BookingID:      b.ID,
		SpaceName:      b.SpaceName,
		StartAt:        b.StartAt.UTC().Format(time.RFC3339),
		EndAt:          b.EndAt.UTC().Format(time.RFC3339),
		Status:         b.Status,
		PreviousStatus: prev,
		Actor:          actor,
		OccurredAt:     m.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	return tx.Emit(ctx, evt)
}
