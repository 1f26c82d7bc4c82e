package model

import (
	"fmt"
	"strings"
	"time"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
)

// Active reports whether bookings in this status take part in conflict detection.
func (s BookingStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

func ParseStatus(raw string) (BookingStatus, error) {
	switch s := BookingStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return s, nil
	default:
		return "", fmt.Errorf("unknown booking status %q", raw)
	}
}

type BookingType string

const (
	TypeEvent   BookingType = "event"
	TypeRental  BookingType = "rental"
	TypeMeeting BookingType = "meeting"
	TypeOther   BookingType = "other"
)

func ParseType(raw string) (BookingType, error) {
	switch t := BookingType(strings.ToLower(strings.TrimSpace(raw))); t {
	case TypeEvent, TypeRental, TypeMeeting, TypeOther:
		return t, nil
	default:
		return "", fmt.Errorf("unknown booking type %q", raw)
	}
}

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

type Booking struct {
	ID        string    `json:"id"`
	SpaceName string    `json:"space_name"`
	StartAt   time.Time `json:"start_at"`
	EndAt     time.Time `json:"end_at"`

	// Local-calendar copies of StartAt/EndAt, rewritten by Derive on every write.
	BookingDate string `json:"booking_date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`

	Type   BookingType   `json:"booking_type"`
	Status BookingStatus `json:"booking_status"`

	EventID        *string `json:"event_id,omitempty"`
	BookedByUserID *string `json:"booked_by_user_id,omitempty"`

	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Details     map[string]any `json:"booking_details,omitempty"`

	ContactName  string `json:"contact_name,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`
	ContactPhone string `json:"contact_phone,omitempty"`

	PriceAmount   *float64 `json:"price_amount,omitempty"`
	Currency      string   `json:"currency,omitempty"`
	PaymentStatus string   `json:"payment_status,omitempty"`

	IsRecurring       bool    `json:"is_recurring"`
	RecurrencePattern string  `json:"recurrence_pattern,omitempty"`
	ParentBookingID   *string `json:"parent_booking_id,omitempty"`

	ExternalBookingID *string `json:"external_booking_id,omitempty"`
	Source            string  `json:"source,omitempty"`
	CreatedBy         string  `json:"created_by,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Active reports whether b currently blocks its space.
func (b Booking) Active() bool {
	return b.DeletedAt == nil && b.Status.Active()
}

func (b Booking) Deleted() bool {
	return b.DeletedAt != nil
}

// Derive recomputes the calendar fields from StartAt/EndAt in loc.
func (b *Booking) Derive(loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	start := b.StartAt.In(loc)
	b.BookingDate = start.Format(dateLayout)
	b.StartTime = start.Format(clockLayout)
	b.EndTime = b.EndAt.In(loc).Format(clockLayout)
}

// DurationHours is the booked length in hours.
func (b Booking) DurationHours() float64 {
	return b.EndAt.Sub(b.StartAt).Hours()
}

// Draft holds the caller-settable fields of a new booking.
type Draft struct {
	SpaceName string `json:"space_name" validate:"required,max=200"`
	StartAt   time.Time
	EndAt     time.Time

	Type   BookingType
	Status BookingStatus

	EventID        *string
	BookedByUserID *string

	Title       string `json:"title" validate:"required,max=300"`
	Description string
	Details     map[string]any

	ContactName  string `json:"contact_name" validate:"max=200"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email"`
	ContactPhone string `json:"contact_phone" validate:"max=50"`

	PriceAmount   *float64 `json:"price_amount" validate:"omitempty,gte=0"`
	Currency      string   `json:"currency" validate:"omitempty,len=3,alpha"`
	PaymentStatus string

	IsRecurring       bool
	RecurrencePattern string
	ParentBookingID   *string `json:"parent_booking_id" validate:"omitempty,uuid"`

	ExternalBookingID *string
	Source            string
	CreatedBy         string
}

// CloneDraft copies everything but identity, timestamps and the external id, and moves the
// copy to [start, end).
func (b Booking) CloneDraft(start, end time.Time) Draft {
	return Draft{
		SpaceName:         b.SpaceName,
		StartAt:           start,
		EndAt:             end,
		Type:              b.Type,
		Status:            b.Status,
		EventID:           cloneString(b.EventID),
		BookedByUserID:    cloneString(b.BookedByUserID),
		Title:             copyTitle(b.Title),
		Description:       b.Description,
		Details:           cloneDetails(b.Details),
		ContactName:       b.ContactName,
		ContactEmail:      b.ContactEmail,
		ContactPhone:      b.ContactPhone,
		PriceAmount:       cloneFloat(b.PriceAmount),
		Currency:          b.Currency,
		PaymentStatus:     b.PaymentStatus,
		IsRecurring:       b.IsRecurring,
		RecurrencePattern: b.RecurrencePattern,
		ParentBookingID:   cloneString(b.ParentBookingID),
		Source:            b.Source,
		CreatedBy:         b.CreatedBy,
	}
}

// NewBooking materializes d with the given identity and creation time.
func NewBooking(id string, d Draft, now time.Time) Booking {
	return Booking{
		ID:                id,
		SpaceName:         strings.TrimSpace(d.SpaceName),
		StartAt:           d.StartAt,
		EndAt:             d.EndAt,
		Type:              d.Type,
		Status:            d.Status,
		EventID:           d.EventID,
		BookedByUserID:    d.BookedByUserID,
		Title:             strings.TrimSpace(d.Title),
		Description:       d.Description,
		Details:           d.Details,
		ContactName:       d.ContactName,
		ContactEmail:      d.ContactEmail,
		ContactPhone:      d.ContactPhone,
		PriceAmount:       d.PriceAmount,
		Currency:          strings.ToUpper(d.Currency),
		PaymentStatus:     d.PaymentStatus,
		IsRecurring:       d.IsRecurring,
		RecurrencePattern: d.RecurrencePattern,
		ParentBookingID:   d.ParentBookingID,
		ExternalBookingID: d.ExternalBookingID,
		Source:            d.Source,
		CreatedBy:         d.CreatedBy,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

const (
	titleMax   = 300
	copySuffix = " (Copy)"
)

// copyTitle appends the copy suffix, trimming title so the result stays within titleMax runes.
func copyTitle(title string) string {
	r := []rune(title)
	if limit := titleMax - len([]rune(copySuffix)); len(r) > limit {
		r = r[:limit]
	}
	return strings.TrimSpace(string(r)) + copySuffix
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func cloneDetails(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
