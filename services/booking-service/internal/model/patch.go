package model

import (
	"strings"
	"time"
)

// Patch is a partial update. Nil fields keep their current value; an empty string on a
// nullable reference clears it.
type Patch struct {
	SpaceName *string
	StartAt   *time.Time
	EndAt     *time.Time

	Type   *BookingType
	Status *BookingStatus

	EventID        *string
	BookedByUserID *string

	Title       *string
	Description *string
	Details     map[string]any

	ContactName  *string
	ContactEmail *string
	ContactPhone *string

	PriceAmount   *float64
	Currency      *string
	PaymentStatus *string

	IsRecurring       *bool
	RecurrencePattern *string

	ExternalBookingID *string
	Source            *string
}

// TouchesSchedule reports whether the patch can move the booking in time or space.
func (p Patch) TouchesSchedule() bool {
	return p.SpaceName != nil || p.StartAt != nil || p.EndAt != nil
}

func (p Patch) Apply(b *Booking) {
	if p.SpaceName != nil {
		b.SpaceName = strings.TrimSpace(*p.SpaceName)
	}
	if p.StartAt != nil {
		b.StartAt = *p.StartAt
	}
	if p.EndAt != nil {
		b.EndAt = *p.EndAt
	}
	if p.Type != nil {
		b.Type = *p.Type
	}
	if p.Status != nil {
		b.Status = *p.Status
	}
	if p.EventID != nil {
		b.EventID = optional(*p.EventID)
	}
	if p.BookedByUserID != nil {
		b.BookedByUserID = optional(*p.BookedByUserID)
	}
	if p.Title != nil {
		b.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.Details != nil {
		b.Details = p.Details
	}
	if p.ContactName != nil {
		b.ContactName = *p.ContactName
	}
	if p.ContactEmail != nil {
		b.ContactEmail = *p.ContactEmail
	}
	if p.ContactPhone != nil {
		b.ContactPhone = *p.ContactPhone
	}
	if p.PriceAmount != nil {
		v := *p.PriceAmount
		b.PriceAmount = &v
	}
	if p.Currency != nil {
		b.Currency = strings.ToUpper(*p.Currency)
	}
	if p.PaymentStatus != nil {
		b.PaymentStatus = *p.PaymentStatus
	}
	if p.IsRecurring != nil {
		b.IsRecurring = *p.IsRecurring
	}
	if p.RecurrencePattern != nil {
		b.RecurrencePattern = *p.RecurrencePattern
	}
	if p.ExternalBookingID != nil {
		b.ExternalBookingID = optional(*p.ExternalBookingID)
	}
	if p.Source != nil {
		b.Source = *p.Source
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
