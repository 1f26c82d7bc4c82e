package booking

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/outbox"
)

// Reader is the read side of the booking repository.
type Reader interface {
	// Get returns ErrNotFound for unknown ids, and for soft-deleted ones unless includeDeleted.
	Get(ctx context.Context, id string, includeDeleted bool) (model.Booking, error)
	// ListActiveOverlapping returns non-deleted pending/confirmed bookings on space that
	// intersect [start, end), ordered by start.
	ListActiveOverlapping(ctx context.Context, space string, start, end time.Time) ([]model.Booking, error)
	List(ctx context.Context, f model.Filter, p model.Page) ([]model.Booking, int, error)
	// ListInRange returns non-deleted bookings whose start falls in [from, to). Nil bounds are open.
	ListInRange(ctx context.Context, from, to *time.Time) ([]model.Booking, error)
	SpaceNames(ctx context.Context) ([]string, error)
}

// Tx is one unit of work. Writes made through it become visible together on commit.
type Tx interface {
	Reader
	// LockSpaces serializes writers per space until the transaction ends.
	LockSpaces(ctx context.Context, spaces ...string) error
	// GetForUpdate row-locks a booking, soft-deleted or not.
	GetForUpdate(ctx context.Context, id string) (model.Booking, error)
	// Insert and Update return ErrOverlap when the store's own overlap guard fires.
	Insert(ctx context.Context, b model.Booking) error
	Update(ctx context.Context, b model.Booking) error
	Delete(ctx context.Context, id string) (bool, error)
	Emit(ctx context.Context, evt outbox.Event) error
}

type Store interface {
	Reader
	InTx(ctx context.Context, fn func(Tx) error) error
}
