package handlers

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/model"
)

type engineMock struct {
	mock.Mock
}

func (m *engineMock) Create(ctx context.Context, d model.Draft, actor string) (model.Booking, error) {
	args := m.Called(ctx, d, actor)
	return args.Get(0).(model.Booking), args.Error(1)
}

func (m *engineMock) Get(ctx context.Context, id string) (model.Booking, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Booking), args.Error(1)
}

func (m *engineMock) Update(ctx context.Context, id string, p model.Patch, actor string) (model.Booking, error) {
	args := m.Called(ctx, id, p, actor)
	return args.Get(0).(model.Booking), args.Error(1)
}

func (m *engineMock) ChangeStatus(ctx context.Context, id string, status model.BookingStatus, actor string) (model.Booking, error) {
	args := m.Called(ctx, id, status, actor)
	return args.Get(0).(model.Booking), args.Error(1)
}

func (m *engineMock) SoftDelete(ctx context.Context, id, actor string) error {
	return m.Called(ctx, id, actor).Error(0)
}

func (m *engineMock) Restore(ctx context.Context, id, actor string) (model.Booking, error) {
	args := m.Called(ctx, id, actor)
	return args.Get(0).(model.Booking), args.Error(1)
}

func (m *engineMock) HardDelete(ctx context.Context, id, actor string) error {
	return m.Called(ctx, id, actor).Error(0)
}

func (m *engineMock) Clone(ctx context.Context, id string, start, end time.Time, actor string) (model.Booking, error) {
	args := m.Called(ctx, id, start, end, actor)
	return args.Get(0).(model.Booking), args.Error(1)
}

func (m *engineMock) CheckConflicts(ctx context.Context, space string, start, end time.Time, excludeID string) ([]model.Booking, error) {
	args := m.Called(ctx, space, start, end, excludeID)
	out, _ := args.Get(0).([]model.Booking)
	return out, args.Error(1)
}

func (m *engineMock) List(ctx context.Context, f model.Filter, p model.Page) (model.PageResult, error) {
	args := m.Called(ctx, f, p)
	return args.Get(0).(model.PageResult), args.Error(1)
}

func (m *engineMock) Slots(ctx context.Context, date time.Time, space string, durationHours int) ([]availability.Slot, error) {
	args := m.Called(ctx, date, space, durationHours)
	out, _ := args.Get(0).([]availability.Slot)
	return out, args.Error(1)
}

func (m *engineMock) Resources(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]string)
	return out, args.Error(1)
}

func (m *engineMock) Stats(ctx context.Context, from, to *time.Time) (model.Stats, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(model.Stats), args.Error(1)
}

func (m *engineMock) Window() availability.Window {
	return availability.Window{Open: 9 * time.Hour, Close: 21 * time.Hour, Step: time.Hour, Location: time.UTC}
}
