package booking

import (
	"context"
	"errors"
	"math"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/model"
)

// Get returns a live booking; soft-deleted ones are reported as ErrNotFound.
func (m *Manager) Get(ctx context.Context, id string) (model.Booking, error) {
	b, err := m.store.Get(ctx, id, false)
	if err != nil {
		return model.Booking{}, classify("get", err)
	}
	return b, nil
}

func (m *Manager) List(ctx context.Context, f model.Filter, p model.Page) (res model.PageResult, err error) {
	ctx, span := m.startSpan(ctx, "List")
	defer func() { endSpan(span, err) }()

	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return model.PageResult{}, ErrInvalidInterval
	}
	f.SpaceName = strings.TrimSpace(f.SpaceName)
	f.Search = strings.TrimSpace(f.Search)
	p = p.Normalize()

	items, total, err := m.store.List(ctx, f, p)
	if err != nil {
		return model.PageResult{}, classify("list", err)
	}
	return model.NewPageResult(items, total, p), nil
}

// Slots lays the configured operating window over date and flags every durationHours slot
// that is free on space. A failed read fails the call.
func (m *Manager) Slots(ctx context.Context, date time.Time, space string, durationHours int) (slots []availability.Slot, err error) {
	ctx, span := m.startSpan(ctx, "Slots",
		attribute.String("space", space),
		attribute.Int("duration_hours", durationHours),
	)
	defer func() { endSpan(span, err) }()

	space = strings.TrimSpace(space)
	if space == "" {
		return nil, invalidField("space_name", "is required")
	}
	if durationHours < 1 {
		return nil, invalidField("duration_hours", "must be at least 1")
	}

	day := m.window.Bounds(date)
	booked, err := findConflicts(ctx, m.store, space, day.Start, day.End, "")
	if err != nil {
		return nil, classify("slots", err)
	}
	busy := make([]availability.Interval, 0, len(booked))
	for _, b := range booked {
		busy = append(busy, availability.Interval{Start: b.StartAt, End: b.EndAt})
	}

	slots, err = availability.GenerateSlots(m.window, date, durationHours, busy)
	if errors.Is(err, availability.ErrInvalidDuration) {
		return nil, invalidField("duration_hours", "must be at least 1")
	}
	return slots, err
}

// Resources lists the space names in use, or the configured defaults when there are none.
func (m *Manager) Resources(ctx context.Context) ([]string, error) {
	names, err := m.store.SpaceNames(ctx)
	if err != nil {
		return nil, classify("resources", err)
	}
	if len(names) == 0 {
		names = append([]string(nil), m.defaultSpaces...)
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

// Stats reduces the live bookings starting in [from, to). Revenue only counts bookings that
// are not cancelled; the average duration covers all of them.
func (m *Manager) Stats(ctx context.Context, from, to *time.Time) (s model.Stats, err error) {
	ctx, span := m.startSpan(ctx, "Stats")
	defer func() { endSpan(span, err) }()

	if from != nil && to != nil && !from.Before(*to) {
		return model.Stats{}, ErrInvalidInterval
	}
	rows, err := m.store.ListInRange(ctx, from, to)
	if err != nil {
		return model.Stats{}, classify("stats", err)
	}

	var hours float64
	for _, b := range rows {
		s.Total++
		switch b.Status {
		case model.StatusConfirmed:
			s.Confirmed++
		case model.StatusPending:
			s.Pending++
		case model.StatusCancelled:
			s.Cancelled++
		}
		if b.Status != model.StatusCancelled && b.PriceAmount != nil {
			s.TotalRevenue += *b.PriceAmount
		}
		hours += b.DurationHours()
	}
	s.TotalRevenue = math.Round(s.TotalRevenue*100) / 100
	if s.Total > 0 {
		s.AverageDurationHours = math.Round(hours/float64(s.Total)*100) / 100
	}
	return s, nil
}
