package booking

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/model"
)

const mainHall = "Main Hall"

var testNow = time.Date(2024, 5, 20, 8, 0, 0, 0, time.UTC)

type countingRecorder struct {
	mu        sync.Mutex
	mutations map[string]int
	conflicts map[string]int
}

func (r *countingRecorder) Mutation(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mutations[op]++
}

func (r *countingRecorder) ConflictRejected(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conflicts[op]++
}

type harness struct {
	m     *Manager
	store *fakeStore
	rec   *countingRecorder
	clock *time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	w, err := availability.NewWindow("09:00", "21:00", time.Hour, "UTC")
	require.NoError(t, err)

	store := newFakeStore()
	rec := &countingRecorder{mutations: map[string]int{}, conflicts: map[string]int{}}
	now := testNow
	var seq atomic.Int64

	m := NewManager(store, w,
		WithRecorder(rec),
		WithDefaultSpaces([]string{"Studio", "Main Hall"}),
		WithClock(func() time.Time { return now }),
		WithIDGenerator(func() string { return fmt.Sprintf("b-%03d", seq.Add(1)) }),
	)
	return &harness{m: m, store: store, rec: rec, clock: &now}
}

func hourOn(day, h int) time.Time {
	return time.Date(2024, 6, day, h, 0, 0, 0, time.UTC)
}

func halfHourOn(day, h int) time.Time {
	return hourOn(day, h).Add(30 * time.Minute)
}

func draft(space string, start, end time.Time) model.Draft {
	return model.Draft{
		SpaceName: space,
		StartAt:   start,
		EndAt:     end,
		Title:     "Board meeting",
		Status:    model.StatusConfirmed,
	}
}

func (h *harness) mustCreate(t *testing.T, d model.Draft) model.Booking {
	t.Helper()
	b, err := h.m.Create(context.Background(), d, "tester")
	require.NoError(t, err)
	return b
}

func requireConflict(t *testing.T, err error, wantIDs ...string) *ConflictError {
	t.Helper()
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	got := make([]string, 0, len(ce.Conflicts))
	for _, c := range ce.Conflicts {
		got = append(got, c.ID)
	}
	assert.ElementsMatch(t, wantIDs, got)
	assert.Equal(t, "space already booked in this interval", ce.Error())
	return ce
}

func TestCheckConflictsScenarios(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	existing := h.mustCreate(t, draft(mainHall, hourOn(1, 10), hourOn(1, 12)))

	t.Run("partial overlap", func(t *testing.T) {
		got, err := h.m.CheckConflicts(ctx, mainHall, hourOn(1, 11), hourOn(1, 13), "")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, existing.ID, got[0].ID)
	})

	t.Run("touching is free", func(t *testing.T) {
		got, err := h.m.CheckConflicts(ctx, mainHall, hourOn(1, 12), hourOn(1, 13), "")
		require.NoError(t, err)
		assert.Empty(t, got)

		_, err = h.m.Create(ctx, draft(mainHall, hourOn(1, 12), hourOn(1, 13)), "tester")
		assert.NoError(t, err)
	})

	t.Run("exclusion", func(t *testing.T) {
		got, err := h.m.CheckConflicts(ctx, mainHall, hourOn(1, 10), hourOn(1, 11), existing.ID)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("other space", func(t *testing.T) {
		got, err := h.m.CheckConflicts(ctx, "Studio", hourOn(1, 10), hourOn(1, 12), "")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := h.m.CheckConflicts(ctx, mainHall, hourOn(1, 12), hourOn(1, 12), "")
		assert.ErrorIs(t, err, ErrInvalidInterval)

		_, err = h.m.CheckConflicts(ctx, " ", hourOn(1, 10), hourOn(1, 12), "")
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Fields, "space_name")
	})
}

func TestCreateRejectsOverlapBeforeWriting(t *testing.T) {
	h := newHarness(t)
	first := h.mustCreate(t, draft(mainHall, hourOn(1, 9), hourOn(1, 10)))

	_, err := h.m.Create(context.Background(), draft(mainHall, halfHourOn(1, 9), halfHourOn(1, 10)), "tester")
	ce := requireConflict(t, err, first.ID)
	assert.Equal(t, mainHall, ce.Space)

	assert.Len(t, h.store.snapshot(), 1)
	assert.Equal(t, []string{EventCreated}, h.store.eventTypes())
	assert.Equal(t, 1, h.rec.conflicts["create"])
}

func TestCreateDefaultsAndDerivedFields(t *testing.T) {
	h := newHarness(t)
	d := draft(mainHall, hourOn(1, 10), hourOn(1, 12))
	d.Status = ""

	b := h.mustCreate(t, d)
	assert.Equal(t, "b-001", b.ID)
	assert.Equal(t, model.StatusPending, b.Status)
	assert.Equal(t, model.TypeOther, b.Type)
	assert.Equal(t, "tester", b.CreatedBy)
	assert.Equal(t, "2024-06-01", b.BookingDate)
	assert.Equal(t, "10:00", b.StartTime)
	assert.Equal(t, "12:00", b.EndTime)
	assert.Equal(t, testNow, b.CreatedAt)
	assert.Equal(t, testNow, b.UpdatedAt)
	assert.Nil(t, b.DeletedAt)
}

func TestCreateValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	t.Run("missing fields", func(t *testing.T) {
		d := draft("", hourOn(1, 10), hourOn(1, 12))
		d.Title = ""
		_, err := h.m.Create(ctx, d, "")
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Fields, "space_name")
		assert.Contains(t, ve.Fields, "title")
	})

	t.Run("bad email and currency", func(t *testing.T) {
		d := draft(mainHall, hourOn(1, 10), hourOn(1, 12))
		d.ContactEmail = "nope"
		d.Currency = "EURO"
		_, err := h.m.Create(ctx, d, "")
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Fields, "contact_email")
		assert.Contains(t, ve.Fields, "currency")
	})

	t.Run("unknown enum", func(t *testing.T) {
		d := draft(mainHall, hourOn(1, 10), hourOn(1, 12))
		d.Type = "party"
		_, err := h.m.Create(ctx, d, "")
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Fields, "booking_type")
	})

	t.Run("malformed parent id", func(t *testing.T) {
		d := draft(mainHall, hourOn(1, 10), hourOn(1, 12))
		parent := "abc"
		d.ParentBookingID = &parent
		_, err := h.m.Create(ctx, d, "")
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "must be a valid uuid", ve.Fields["parent_booking_id"])
	})

	t.Run("inverted interval", func(t *testing.T) {
		_, err := h.m.Create(ctx, draft(mainHall, hourOn(1, 12), hourOn(1, 10)), "")
		assert.ErrorIs(t, err, ErrInvalidInterval)
	})

	assert.Empty(t, h.store.snapshot())
}

func TestCreateNormalizesEnums(t *testing.T) {
	h := newHarness(t)
	d := draft(mainHall, hourOn(1, 10), hourOn(1, 12))
	d.Type = "EVENT"
	d.Status = " Confirmed"
	blank := " "
	d.ParentBookingID = &blank
	b := h.mustCreate(t, d)

	assert.Equal(t, model.TypeEvent, b.Type)
	assert.Equal(t, model.StatusConfirmed, b.Status)
	assert.Nil(t, b.ParentBookingID)
	assert.Equal(t, model.StatusConfirmed, h.store.snapshot()[b.ID].Status)

	_, err := h.m.Create(context.Background(), draft(mainHall, hourOn(1, 11), hourOn(1, 13)), "tester")
	requireConflict(t, err, b.ID)
}

func TestCancelledBookingsDoNotBlock(t *testing.T) {
	h := newHarness(t)
	d := draft(mainHall, hourOn(1, 10), hourOn(1, 12))
	d.Status = model.StatusCancelled
	h.mustCreate(t, d)

	h.mustCreate(t, draft(mainHall, hourOn(1, 10), hourOn(1, 12)))
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("shift within own range does not self-conflict", func(t *testing.T) {
		h := newHarness(t)
		b := h.mustCreate(t, draft(mainHall, hourOn(1, 10), hourOn(1, 12)))

		start, end := halfHourOn(1, 10), hourOn(1, 12)
		*h.clock = testNow.Add(time.Hour)
		got, err := h.m.Update(ctx, b.ID, model.Patch{StartAt: &start, EndAt: &end}, "tester")
		require.NoError(t, err)
		assert.Equal(t, start, got.StartAt)
		assert.Equal(t, "10:30", got.StartTime)
		assert.Equal(t, testNow.Add(time.Hour), got.UpdatedAt)
		assert.Equal(t, testNow, got.CreatedAt)
	})

	t.Run("overlap with another booking", func(t *testing.T) {
		h := newHarness(t)
		a := h.mustCreate(t, draft(mainHall, hourOn(1, 10), hourOn(1, 12)))
		b := h.mustCreate(t, draft(mainHall, hourOn(1, 13), hourOn(1, 14)))

		start := hourOn(1, 11)
		_, err := h.m.Update(ctx, b.ID, model.Patch{StartAt: &start}, "tester")
		requireConflict(t, err, a.ID)
		assert.Equal(t, hourOn(1, 13), h.store.snapshot()[b.ID].StartAt)
	})

	t.Run("moving space is checked against the new space", func(t *testing.T) {
		h := newHarness(t)
		studio := h.mustCreate(t, draft("Studio", hourOn(1, 10), hourOn(1, 12)))
		b := h.mustCreate(t, draft(mainHall, hourOn(1, 10), hourOn(1, 12)))

		space := "Studio"
		_, err := h.m.Update(ctx, b.ID, model.Patch{SpaceName: &space}, "tester")
		requireConflict(t, err, studio.ID)
	})

	t.Run("inverted result", func(t *testing.T) {
		h := newHarness(t)
		b := h.mustCreate(t, draft(mainHall, hourOn(1, 10), hourOn(1, 12)))
		end := hourOn(1, 9)
		_, err := h.m.Update(ctx, b.ID, model.Patch{EndAt: &end}, "tester")
		assert.ErrorIs(t, err, ErrInvalidInterval)
	})

	t.Run("descriptive change skips the check", func(t *testing.T) {
		h := newHarness(t)
		b := h.mustCreate(t, draft(mainHall, hourOn(1, 10), hourOn(1, 12)))
		title := "Renamed"
		got, err := h.m.Update(ctx, b.ID, model.Patch{Title: &title}, "tester")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Title)
		assert.Zero(t, h.rec.conflicts["update"])
	})

	t.Run("cancelled booking moves freely but reactivation is checked", func(t *testing.T) {
		h := newHarness(t)
		a := h.mustCreate(t, draft(mainHall, hourOn(1, 10), hourOn(1, 12)))
		d := draft(mainHall, hourOn(1, 14), hourOn(1, 15))
		d.Status = model.StatusCancelled
		c := h.mustCreate(t, d)

		start, end := hourOn(1, 10), hourOn(1, 11)
		_, err := h.m.Update(ctx, c.ID, model.Patch{StartAt: &start, EndAt: &end}, "tester")
		require.NoError(t, err)

		status := model.BookingStatus("CONFIRMED")
		_, err = h.m.Update(ctx, c.ID, model.Patch{Status: &status}, "tester")
		requireConflict(t, err, a.ID)
		assert.Equal(t, model.StatusCancelled, h.store.snapshot()[c.ID].Status)
	})

	t.Run("missing and deleted bookings", func(t *testing.T) {
		h := newHarness(t)
		title := "x"
		_, err := h.m.Update(ctx, "nope", model.Patch{Title: &title}, "tester")
		assert.ErrorIs(t, err, ErrNotFound)

		b := h.mustCreate(t, draft(mainHall, hourOn(1, 10), hourOn(1, 12)))
		require.NoError(t, h.m.SoftDelete(ctx, b.ID, "tester"))
		_, err = h.m.Update(ctx, b.ID, model.Patch{Title: &title}, "tester")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("invalid patch", func(t *testing.T) {
		h := newHarness(t)
		empty := ""
		_, err := h.m.Update(ctx, "b-001", model.Patch{Title: &empty}, "tester")
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Fields, "title")
	})

	t.Run("patch honours length limits", func(t *testing.T) {
		h := newHarness(t)
		b := h.mustCreate(t, draft(mainHall, hourOn(1, 10), hourOn(1, 12)))
		title := strings.Repeat("t", 301)
		space := strings.Repeat("s", 201)
		contact := strings.Repeat("c", 201)
		phone := strings.Repeat("9", 51)
		_, err := h.m.Update(ctx, b.ID, model.Patch{
			Title:        &title,
			SpaceName:    &space,
			ContactName:  &contact,
			ContactPhone: &phone,
		}, "tester")
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "must be at most 300 characters", ve.Fields["title"])
		assert.Equal(t, "must be at most 200 characters", ve.Fields["space_name"])
		assert.Equal(t, "must be at most 200 characters", ve.Fields["contact_name"])
		assert.Equal(t, "must be at most 50 characters", ve.Fields["contact_phone"])
		assert.Equal(t, "Board meeting", h.store.snapshot()[b.ID].Title)
	})

	t.Run("patched type is lowercased", func(t *testing.T) {
		h := newHarness(t)
		b := h.mustCreate(t, draft(mainHall, hourOn(1, 10), hourOn(1, 12)))
		typ := model.BookingType("Rental")
		got, err := h.m.Update(ctx, b.ID, model.Patch{Type: &typ}, "tester")
		require.NoError(t, err)
		assert.Equal(t, model.TypeRental, got.Type)
	})
}

func TestChangeStatus(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.mustCreate(t, draft(mainHall, hourOn(1, 10), hourOn(1, 12)))

	cancelled, err := h.m.ChangeStatus(ctx, a.ID, model.StatusCancelled, "tester")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)

	b := h.mustCreate(t, draft(mainHall, hourOn(1, 11), hourOn(1, 13)))

	_, err = h.m.ChangeStatus(ctx, a.ID, model.StatusConfirmed, "tester")
	requireConflict(t, err, b.ID)
	assert.Equal(t, model.StatusCancelled, h.store.snapshot()[a.ID].Status)

	same, err := h.m.ChangeStatus(ctx, b.ID, model.StatusConfirmed, "tester")
	require.NoError(t, err)
	assert.Equal(t, b.UpdatedAt, same.UpdatedAt)

	same, err = h.m.ChangeStatus(ctx, b.ID, "Confirmed", "tester")
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, same.Status)

	pending, err := h.m.ChangeStatus(ctx, b.ID, model.StatusPending, "tester")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, pending.Status)

	_, err = h.m.ChangeStatus(ctx, b.ID, "archived", "tester")
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = h.m.ChangeStatus(ctx, "missing", model.StatusCancelled, "tester")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, []string{
		EventCreated,
		EventStatusChanged,
		EventCreated,
		EventStatusChanged,
	}, h.store.eventTypes())
}

func TestSoftDeleteRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	d := draft(mainHall, hourOn(1, 10), hourOn(1, 12))
	d.Description = "quarterly"
	d.ContactEmail = "ops@example.com"
	before := h.mustCreate(t, d)

	*h.clock = testNow.Add(time.Hour)
	require.NoError(t, h.m.SoftDelete(ctx, before.ID, "tester"))
	_, err := h.m.Get(ctx, before.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	free, err := h.m.CheckConflicts(ctx, mainHall, hourOn(1, 10), hourOn(1, 12), "")
	require.NoError(t, err)
	assert.Empty(t, free, "soft-deleted bookings leave the conflict set")

	require.NoError(t, h.m.SoftDelete(ctx, before.ID, "tester"), "second soft delete still succeeds")

	*h.clock = testNow.Add(2 * time.Hour)
	after, err := h.m.Restore(ctx, before.ID, "tester")
	require.NoError(t, err)
	assert.Nil(t, after.DeletedAt)
	assert.Equal(t, testNow.Add(2*time.Hour), after.UpdatedAt)

	after.UpdatedAt = before.UpdatedAt
	assert.Equal(t, before, after)
}

func TestRestoreRevalidates(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.mustCreate(t, draft(mainHall, hourOn(1, 10), hourOn(1, 12)))
	require.NoError(t, h.m.SoftDelete(ctx, a.ID, "tester"))

	b := h.mustCreate(t, draft(mainHall, hourOn(1, 11), hourOn(1, 12)))

	_, err := h.m.Restore(ctx, a.ID, "tester")
	requireConflict(t, err, b.ID)
	assert.NotNil(t, h.store.snapshot()[a.ID].DeletedAt, "booking stays deleted")

	_, err = h.m.ChangeStatus(ctx, b.ID, model.StatusCancelled, "tester")
	require.NoError(t, err)
	restored, err := h.m.Restore(ctx, a.ID, "tester")
	require.NoError(t, err)
	assert.Nil(t, restored.DeletedAt)

	_, err = h.m.Restore(ctx, "missing", "tester")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHardDelete(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.mustCreate(t, draft(mainHall, hourOn(1, 10), hourOn(1, 12)))
	b := h.mustCreate(t, draft(mainHall, hourOn(1, 13), hourOn(1, 14)))
	require.NoError(t, h.m.SoftDelete(ctx, b.ID, "tester"))

	require.NoError(t, h.m.HardDelete(ctx, a.ID, "admin"))
	require.NoError(t, h.m.HardDelete(ctx, b.ID, "admin"))
	assert.Empty(t, h.store.snapshot())

	assert.ErrorIs(t, h.m.HardDelete(ctx, a.ID, "admin"), ErrNotFound)
	assert.ErrorIs(t, h.m.SoftDelete(ctx, a.ID, "admin"), ErrNotFound)
}

func TestClone(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	d := draft(mainHall, hourOn(1, 10), hourOn(1, 12))
	ext := "ext-42"
	price := 120.5
	d.ExternalBookingID = &ext
	d.PriceAmount = &price
	d.Details = map[string]any{"layout": "theatre"}
	d.Type = model.TypeEvent
	src := h.mustCreate(t, d)

	t.Run("free target", func(t *testing.T) {
		c, err := h.m.Clone(ctx, src.ID, hourOn(2, 10), hourOn(2, 12), "cloner")
		require.NoError(t, err)
		assert.NotEqual(t, src.ID, c.ID)
		assert.Equal(t, "Board meeting (Copy)", c.Title)
		assert.Nil(t, c.ExternalBookingID)
		assert.Equal(t, model.TypeEvent, c.Type)
		assert.Equal(t, src.Details, c.Details)
		require.NotNil(t, c.PriceAmount)
		assert.Equal(t, price, *c.PriceAmount)
		assert.Equal(t, "2024-06-02", c.BookingDate)
		assert.Equal(t, "cloner", c.CreatedBy)
	})

	t.Run("onto the source interval", func(t *testing.T) {
		_, err := h.m.Clone(ctx, src.ID, src.StartAt, src.EndAt, "cloner")
		requireConflict(t, err, src.ID)
	})

	t.Run("long title stays within the limit", func(t *testing.T) {
		d := draft("Studio", hourOn(4, 10), hourOn(4, 12))
		d.Title = strings.Repeat("é", 300)
		long := h.mustCreate(t, d)

		c, err := h.m.Clone(ctx, long.ID, hourOn(5, 10), hourOn(5, 12), "cloner")
		require.NoError(t, err)
		assert.Equal(t, 300, utf8.RuneCountInString(c.Title))
		assert.True(t, strings.HasSuffix(c.Title, " (Copy)"))
	})

	t.Run("missing source", func(t *testing.T) {
		_, err := h.m.Clone(ctx, "missing", hourOn(3, 10), hourOn(3, 12), "cloner")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSlots(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.mustCreate(t, draft(mainHall, hourOn(1, 10), hourOn(1, 12)))

	slots, err := h.m.Slots(ctx, hourOn(1, 0), mainHall, 2)
	require.NoError(t, err)
	require.Len(t, slots, 11)
	for _, s := range slots {
		blocked := s.Start.Hour() >= 9 && s.Start.Hour() <= 11
		assert.Equal(t, !blocked, s.Available, "slot %s", s.Start.Format("15:04"))
	}

	empty, err := h.m.Slots(ctx, hourOn(2, 0), mainHall, 1)
	require.NoError(t, err)
	assert.Len(t, empty, 12)

	_, err = h.m.Slots(ctx, hourOn(1, 0), mainHall, 0)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "duration_hours")
}

func TestResources(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	names, err := h.m.Resources(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Main Hall", "Studio"}, names)

	h.mustCreate(t, draft("Rooftop", hourOn(1, 10), hourOn(1, 12)))
	names, err = h.m.Resources(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Rooftop"}, names)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	p100, p50 := 100.0, 50.0

	d1 := draft(mainHall, hourOn(1, 10), hourOn(1, 12))
	d1.PriceAmount = &p100
	h.mustCreate(t, d1)

	d2 := draft(mainHall, hourOn(1, 13), hourOn(1, 14))
	d2.Status = model.StatusPending
	d2.PriceAmount = &p50
	h.mustCreate(t, d2)

	d3 := draft(mainHall, hourOn(1, 15), hourOn(1, 18))
	d3.Status = model.StatusCancelled
	d3.PriceAmount = &p100
	h.mustCreate(t, d3)

	deleted := h.mustCreate(t, draft(mainHall, hourOn(1, 19), hourOn(1, 20)))
	require.NoError(t, h.m.SoftDelete(ctx, deleted.ID, "tester"))

	h.mustCreate(t, draft(mainHall, hourOn(5, 10), hourOn(5, 11)))

	from, to := hourOn(1, 0), hourOn(2, 0)
	s, err := h.m.Stats(ctx, &from, &to)
	require.NoError(t, err)
	assert.Equal(t, model.Stats{
		Total:                3,
		Confirmed:            1,
		Pending:              1,
		Cancelled:            1,
		TotalRevenue:         150,
		AverageDurationHours: 2,
	}, s)

	all, err := h.m.Stats(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, all.Total)

	_, err = h.m.Stats(ctx, &to, &from)
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestList(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	for day := 1; day <= 5; day++ {
		d := draft(mainHall, hourOn(day, 10), hourOn(day, 11))
		if day%2 == 0 {
			d.Type = model.TypeRental
		}
		h.mustCreate(t, d)
	}
	gone := h.mustCreate(t, draft(mainHall, hourOn(6, 10), hourOn(6, 11)))
	require.NoError(t, h.m.SoftDelete(ctx, gone.ID, "tester"))

	res, err := h.m.List(ctx, model.Filter{}, model.Page{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 3, res.TotalPages)
	require.Len(t, res.Items, 2)
	assert.Equal(t, hourOn(5, 10), res.Items[0].StartAt, "newest first")

	res, err = h.m.List(ctx, model.Filter{Types: []model.BookingType{model.TypeRental}}, model.Page{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, model.DefaultPageSize, res.PageSize)

	res, err = h.m.List(ctx, model.Filter{IncludeDeleted: true}, model.Page{PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 6, res.Total)
	assert.Equal(t, model.MaxPageSize, res.PageSize)

	from, to := hourOn(2, 0), hourOn(4, 0)
	res, err = h.m.List(ctx, model.Filter{From: &from, To: &to}, model.Page{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)

	_, err = h.m.List(ctx, model.Filter{From: &to, To: &from}, model.Page{})
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestStoreFailuresPropagate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	cause := errors.New("connection reset")
	h.store.readErr = cause

	_, err := h.m.CheckConflicts(ctx, mainHall, hourOn(1, 10), hourOn(1, 12), "")
	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, cause)

	_, err = h.m.Create(ctx, draft(mainHall, hourOn(1, 10), hourOn(1, 12)), "tester")
	require.ErrorAs(t, err, &se)
	assert.Empty(t, h.store.snapshot())

	_, err = h.m.Slots(ctx, hourOn(1, 0), mainHall, 1)
	assert.ErrorAs(t, err, &se)

	_, err = h.m.Stats(ctx, nil, nil)
	assert.ErrorAs(t, err, &se)

	_, err = h.m.Resources(ctx)
	assert.ErrorAs(t, err, &se)
}

func TestStoreOverlapGuardBecomesConflict(t *testing.T) {
	h := newHarness(t)
	first := h.mustCreate(t, draft(mainHall, hourOn(1, 10), hourOn(1, 12)))

	h.store.enforceOverlap = true
	h.store.hideActive = 1

	_, err := h.m.Create(context.Background(), draft(mainHall, hourOn(1, 11), hourOn(1, 13)), "tester")
	requireConflict(t, err, first.ID)
	assert.Len(t, h.store.snapshot(), 1)
}

func TestConcurrentCreatesKeepSpaceConflictFree(t *testing.T) {
	h := newHarness(t)
	const workers = 24

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		conflicts atomic.Int32
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			offset := time.Duration(i%4) * 15 * time.Minute
			_, err := h.m.Create(context.Background(), draft(mainHall, hourOn(1, 10).Add(offset), hourOn(1, 11).Add(offset)), "tester")
			var ce *ConflictError
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.As(err, &ce):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(workers-1), conflicts.Load())
	assertNoActiveOverlap(t, h.store.snapshot())
}

func TestRandomCreateSequencesStayConflictFree(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	h := newHarness(t)
	spaces := []string{mainHall, "Studio"}

	for i := 0; i < 300; i++ {
		start := hourOn(1, 0).Add(time.Duration(rng.Intn(96)) * 15 * time.Minute)
		end := start.Add(time.Duration(1+rng.Intn(8)) * 15 * time.Minute)
		d := draft(spaces[rng.Intn(len(spaces))], start, end)
		if rng.Intn(5) == 0 {
			d.Status = model.StatusCancelled
		}
		_, err := h.m.Create(context.Background(), d, "tester")
		if err != nil {
			var ce *ConflictError
			require.ErrorAs(t, err, &ce)
		}
	}
	assertNoActiveOverlap(t, h.store.snapshot())
}

func assertNoActiveOverlap(t *testing.T, rows map[string]model.Booking) {
	t.Helper()
	var active []model.Booking
	for _, b := range rows {
		if b.Active() {
			active = append(active, b)
		}
	}
	for i := range active {
		for j := i + 1; j < len(active); j++ {
			a, b := active[i], active[j]
			if a.SpaceName != b.SpaceName {
				continue
			}
			assert.False(t, availability.Overlaps(
				availability.Interval{Start: a.StartAt, End: a.EndAt},
				availability.Interval{Start: b.StartAt, End: b.EndAt},
			), "%s overlaps %s", a.ID, b.ID)
		}
	}
}
