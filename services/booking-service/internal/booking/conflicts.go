package booking

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/model"
)

// CheckConflicts returns the active bookings on space overlapping [start, end), leaving out
// excludeID. An empty result means the interval is free.
func (m *Manager) CheckConflicts(ctx context.Context, space string, start, end time.Time, excludeID string) (conflicts []model.Booking, err error) {
	ctx, span := m.startSpan(ctx, "CheckConflicts", attribute.String("space", space))
	defer func() { endSpan(span, err) }()

	space = strings.TrimSpace(space)
	if err := checkTarget(space, start, end); err != nil {
		return nil, err
	}
	conflicts, err = findConflicts(ctx, m.store, space, start, end, excludeID)
	if err != nil {
		return nil, classify("check conflicts", err)
	}
	return conflicts, nil
}

func checkTarget(space string, start, end time.Time) error {
	if space == "" {
		return invalidField("space_name", "is required")
	}
	return availability.Validate(start, end)
}

// findConflicts re-applies the overlap predicate to whatever the reader returns, so a reader
// that over-fetches cannot produce false conflicts.
func findConflicts(ctx context.Context, r Reader, space string, start, end time.Time, excludeID string) ([]model.Booking, error) {
	candidates, err := r.ListActiveOverlapping(ctx, space, start, end)
	if err != nil {
		return nil, err
	}
	target := availability.Interval{Start: start, End: end}
	out := []model.Booking{}
	for _, b := range candidates {
		if excludeID != "" && b.ID == excludeID {
			continue
		}
		if !b.Active() || b.SpaceName != space {
			continue
		}
		if availability.Overlaps(target, availability.Interval{Start: b.StartAt, End: b.EndAt}) {
			out = append(out, b)
		}
	}
	return out, nil
}

// guard locks b's space and fails with a ConflictError when any other active booking overlaps b.
func (m *Manager) guard(ctx context.Context, tx Tx, op string, b model.Booking) error {
	if err := tx.LockSpaces(ctx, b.SpaceName); err != nil {
		return err
	}
	conflicts, err := findConflicts(ctx, tx, b.SpaceName, b.StartAt, b.EndAt, b.ID)
	if err != nil {
		return err
	}
	if len(conflicts) == 0 {
		return nil
	}
	m.metrics.ConflictRejected(op)
	m.logger.Warn("booking conflict rejected",
		"op", op,
		"space", b.SpaceName,
		"start_at", b.StartAt,
		"end_at", b.EndAt,
		"conflicts", len(conflicts),
	)
	return &ConflictError{Space: b.SpaceName, Start: b.StartAt, End: b.EndAt, Conflicts: conflicts}
}

// overlapConflict turns a store-level overlap rejection into a ConflictError listing the
// bookings that are blocking b now.
func (m *Manager) overlapConflict(ctx context.Context, op string, b model.Booking) error {
	conflicts, err := findConflicts(ctx, m.store, b.SpaceName, b.StartAt, b.EndAt, b.ID)
	if err != nil {
		return classify(op, err)
	}
	m.metrics.ConflictRejected(op)
	m.logger.Warn("booking rejected by store overlap guard", "op", op, "space", b.SpaceName, "conflicts", len(conflicts))
	return &ConflictError{Space: b.SpaceName, Start: b.StartAt, End: b.EndAt, Conflicts: conflicts}
}
