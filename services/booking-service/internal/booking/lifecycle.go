package booking

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/model"
)

// Create validates d, checks it against the active bookings of its space and stores it.
// Nothing is written when the check fails. actor fills created_by when d leaves it empty.
func (m *Manager) Create(ctx context.Context, d model.Draft, actor string) (b model.Booking, err error) {
	ctx, span := m.startSpan(ctx, "Create", attribute.String("space", d.SpaceName))
	defer func() { endSpan(span, err) }()

	d = m.normalizeDraft(d, actor)
	if err := m.validateDraft(d); err != nil {
		return model.Booking{}, err
	}

	b = model.NewBooking(m.newID(), d, m.stamp())
	b.Derive(m.window.Location)

	err = m.store.InTx(ctx, func(tx Tx) error {
		if b.Status.Active() {
			if err := m.guard(ctx, tx, "create", b); err != nil {
				return err
			}
		}
		if err := tx.Insert(ctx, b); err != nil {
			return err
		}
		return m.emit(ctx, tx, EventCreated, b, "", actor)
	})
	if err != nil {
		return model.Booking{}, m.fail(ctx, "create", b, err)
	}

	m.metrics.Mutation("create")
	m.logger.Info("booking created", "booking_id", b.ID, "space", b.SpaceName, "start_at", b.StartAt, "end_at", b.EndAt, "status", b.Status)
	return b, nil
}

// Update applies p to a live booking. When the result is active and either its interval or
// space moved or it was reactivated from cancelled, it is re-checked excluding itself.
func (m *Manager) Update(ctx context.Context, id string, p model.Patch, actor string) (updated model.Booking, err error) {
	ctx, span := m.startSpan(ctx, "Update", attribute.String("booking_id", id))
	defer func() { endSpan(span, err) }()

	p = normalizePatch(p)
	if err := m.validatePatch(p); err != nil {
		return model.Booking{}, err
	}

	err = m.store.InTx(ctx, func(tx Tx) error {
		cur, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if cur.Deleted() {
			return ErrNotFound
		}

		next := cur
		p.Apply(&next)
		if err := availability.Validate(next.StartAt, next.EndAt); err != nil {
			return err
		}
		if next.Status.Active() && (p.TouchesSchedule() || !cur.Status.Active()) {
			if err := m.guard(ctx, tx, "update", next); err != nil {
				return err
			}
		}

		next.UpdatedAt = m.stamp()
		next.Derive(m.window.Location)
		updated = next
		if err := tx.Update(ctx, next); err != nil {
			return err
		}

		var prev model.BookingStatus
		if cur.Status != next.Status {
			prev = cur.Status
		}
		return m.emit(ctx, tx, EventUpdated, next, prev, actor)
	})
	if err != nil {
		return model.Booking{}, m.fail(ctx, "update", updated, err)
	}

	m.metrics.Mutation("update")
	m.logger.Info("booking updated", "booking_id", id, "space", updated.SpaceName)
	return updated, nil
}

// ChangeStatus moves a live booking to status. Cancelling always succeeds; leaving cancelled
// re-runs the conflict check. Setting the current status again writes nothing.
func (m *Manager) ChangeStatus(ctx context.Context, id string, status model.BookingStatus, actor string) (updated model.Booking, err error) {
	ctx, span := m.startSpan(ctx, "ChangeStatus",
		attribute.String("booking_id", id),
		attribute.String("status", string(status)),
	)
	defer func() { endSpan(span, err) }()

	parsed, perr := model.ParseStatus(string(status))
	if perr != nil {
		return model.Booking{}, invalidField("booking_status", "must be one of pending, confirmed, cancelled")
	}
	status = parsed

	changed := false
	err = m.store.InTx(ctx, func(tx Tx) error {
		cur, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if cur.Deleted() {
			return ErrNotFound
		}
		if cur.Status == status {
			updated = cur
			return nil
		}

		next := cur
		next.Status = status
		if status.Active() && !cur.Status.Active() {
			if err := m.guard(ctx, tx, "change_status", next); err != nil {
				return err
			}
		}
		next.UpdatedAt = m.stamp()
		updated = next
		if err := tx.Update(ctx, next); err != nil {
			return err
		}
		changed = true
		return m.emit(ctx, tx, EventStatusChanged, next, cur.Status, actor)
	})
	if err != nil {
		return model.Booking{}, m.fail(ctx, "change_status", updated, err)
	}

	if changed {
		m.metrics.Mutation("change_status")
		m.logger.Info("booking status changed", "booking_id", id, "status", status)
	}
	return updated, nil
}

// SoftDelete stamps deleted_at. Repeating it on a deleted booking stamps it again.
func (m *Manager) SoftDelete(ctx context.Context, id, actor string) (err error) {
	ctx, span := m.startSpan(ctx, "SoftDelete", attribute.String("booking_id", id))
	defer func() { endSpan(span, err) }()

	err = m.store.InTx(ctx, func(tx Tx) error {
		cur, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		now := m.stamp()
		cur.DeletedAt = &now
		cur.UpdatedAt = now
		if err := tx.Update(ctx, cur); err != nil {
			return err
		}
		return m.emit(ctx, tx, EventDeleted, cur, "", actor)
	})
	if err != nil {
		return m.fail(ctx, "soft_delete", model.Booking{}, err)
	}

	m.metrics.Mutation("soft_delete")
	m.logger.Info("booking soft-deleted", "booking_id", id)
	return nil
}

// Restore clears deleted_at. An active booking re-enters its space only if nothing overlaps
// it now; otherwise Restore fails with a ConflictError and the booking stays deleted.
func (m *Manager) Restore(ctx context.Context, id, actor string) (restored model.Booking, err error) {
	ctx, span := m.startSpan(ctx, "Restore", attribute.String("booking_id", id))
	defer func() { endSpan(span, err) }()

	err = m.store.InTx(ctx, func(tx Tx) error {
		cur, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !cur.Deleted() {
			restored = cur
			return nil
		}

		next := cur
		next.DeletedAt = nil
		if next.Status.Active() {
			if err := m.guard(ctx, tx, "restore", next); err != nil {
				return err
			}
		}
		next.UpdatedAt = m.stamp()
		restored = next
		if err := tx.Update(ctx, next); err != nil {
			return err
		}
		return m.emit(ctx, tx, EventRestored, next, "", actor)
	})
	if err != nil {
		return model.Booking{}, m.fail(ctx, "restore", restored, err)
	}

	m.metrics.Mutation("restore")
	m.logger.Info("booking restored", "booking_id", id)
	return restored, nil
}

// HardDelete removes the row for good, whether or not it was soft-deleted.
func (m *Manager) HardDelete(ctx context.Context, id, actor string) (err error) {
	ctx, span := m.startSpan(ctx, "HardDelete", attribute.String("booking_id", id))
	defer func() { endSpan(span, err) }()

	err = m.store.InTx(ctx, func(tx Tx) error {
		cur, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		ok, err := tx.Delete(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		return m.emit(ctx, tx, EventPurged, cur, "", actor)
	})
	if err != nil {
		return m.fail(ctx, "hard_delete", model.Booking{}, err)
	}

	m.metrics.Mutation("hard_delete")
	m.logger.Warn("booking purged", "booking_id", id, "actor", actor)
	return nil
}

// Clone copies a live booking to [start, end) through Create, so the copy is conflict-checked
// like any new booking.
func (m *Manager) Clone(ctx context.Context, id string, start, end time.Time, actor string) (b model.Booking, err error) {
	ctx, span := m.startSpan(ctx, "Clone", attribute.String("booking_id", id))
	defer func() { endSpan(span, err) }()

	src, err := m.store.Get(ctx, id, false)
	if err != nil {
		return model.Booking{}, classify("clone", err)
	}
	d := src.CloneDraft(start, end)
	if actor != "" {
		d.CreatedBy = actor
	}
	return m.Create(ctx, d, actor)
}

func (m *Manager) fail(ctx context.Context, op string, b model.Booking, err error) error {
	if errors.Is(err, ErrOverlap) && b.ID != "" {
		return m.overlapConflict(ctx, op, b)
	}
	err = classify(op, err)
	var se *StoreError
	if errors.As(err, &se) {
		m.logger.Error("booking store failure", "op", op, "err", err)
	}
	return err
}
