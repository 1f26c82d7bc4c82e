package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/model"
)

type bookingRequest struct {
	SpaceName string `json:"space_name" validate:"required"`
	StartAt   string `json:"start_at" validate:"required"`
	EndAt     string `json:"end_at" validate:"required"`

	BookingType   string `json:"booking_type"`
	BookingStatus string `json:"booking_status"`

	EventID        *string `json:"event_id"`
	BookedByUserID *string `json:"booked_by_user_id"`

	Title       string         `json:"title" validate:"required"`
	Description string         `json:"description"`
	Details     map[string]any `json:"booking_details"`

	ContactName  string `json:"contact_name"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`

	PriceAmount   *float64 `json:"price_amount"`
	Currency      string   `json:"currency"`
	PaymentStatus string   `json:"payment_status"`

	IsRecurring       bool    `json:"is_recurring"`
	RecurrencePattern string  `json:"recurrence_pattern"`
	ParentBookingID   *string `json:"parent_booking_id"`

	ExternalBookingID *string `json:"external_booking_id"`
	Source            string  `json:"source"`
	CreatedBy         string  `json:"created_by"`
}

func (req bookingRequest) draft() (model.Draft, error) {
	start, err := parseTimestamp("start_at", req.StartAt)
	if err != nil {
		return model.Draft{}, err
	}
	end, err := parseTimestamp("end_at", req.EndAt)
	if err != nil {
		return model.Draft{}, err
	}
	d := model.Draft{
		SpaceName:         req.SpaceName,
		StartAt:           start,
		EndAt:             end,
		EventID:           req.EventID,
		BookedByUserID:    req.BookedByUserID,
		Title:             req.Title,
		Description:       req.Description,
		Details:           req.Details,
		ContactName:       req.ContactName,
		ContactEmail:      req.ContactEmail,
		ContactPhone:      req.ContactPhone,
		PriceAmount:       req.PriceAmount,
		Currency:          req.Currency,
		PaymentStatus:     req.PaymentStatus,
		IsRecurring:       req.IsRecurring,
		RecurrencePattern: req.RecurrencePattern,
		ParentBookingID:   req.ParentBookingID,
		ExternalBookingID: req.ExternalBookingID,
		Source:            req.Source,
		CreatedBy:         req.CreatedBy,
	}
	fields := map[string]string{}
	if req.BookingType != "" {
		if d.Type, err = model.ParseType(req.BookingType); err != nil {
			fields["booking_type"] = "must be one of event, rental, meeting, other"
		}
	}
	if req.BookingStatus != "" {
		if d.Status, err = model.ParseStatus(req.BookingStatus); err != nil {
			fields["booking_status"] = "must be one of pending, confirmed, cancelled"
		}
	}
	if len(fields) > 0 {
		return model.Draft{}, &booking.ValidationError{Fields: fields}
	}
	return d, nil
}

// patchRequest mirrors bookingRequest with every field optional.
type patchRequest struct {
	SpaceName *string `json:"space_name"`
	StartAt   *string `json:"start_at"`
	EndAt     *string `json:"end_at"`

	BookingType   *string `json:"booking_type"`
	BookingStatus *string `json:"booking_status"`

	EventID        *string `json:"event_id"`
	BookedByUserID *string `json:"booked_by_user_id"`

	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	Details     map[string]any `json:"booking_details"`

	ContactName  *string `json:"contact_name"`
	ContactEmail *string `json:"contact_email"`
	ContactPhone *string `json:"contact_phone"`

	PriceAmount   *float64 `json:"price_amount"`
	Currency      *string  `json:"currency"`
	PaymentStatus *string  `json:"payment_status"`

	IsRecurring       *bool   `json:"is_recurring"`
	RecurrencePattern *string `json:"recurrence_pattern"`

	ExternalBookingID *string `json:"external_booking_id"`
	Source            *string `json:"source"`
}

func (req patchRequest) patch() (model.Patch, error) {
	p := model.Patch{
		SpaceName:         req.SpaceName,
		EventID:           req.EventID,
		BookedByUserID:    req.BookedByUserID,
		Title:             req.Title,
		Description:       req.Description,
		Details:           req.Details,
		ContactName:       req.ContactName,
		ContactEmail:      req.ContactEmail,
		ContactPhone:      req.ContactPhone,
		PriceAmount:       req.PriceAmount,
		Currency:          req.Currency,
		PaymentStatus:     req.PaymentStatus,
		IsRecurring:       req.IsRecurring,
		RecurrencePattern: req.RecurrencePattern,
		ExternalBookingID: req.ExternalBookingID,
		Source:            req.Source,
	}
	if req.StartAt != nil {
		t, err := parseTimestamp("start_at", *req.StartAt)
		if err != nil {
			return model.Patch{}, err
		}
		p.StartAt = &t
	}
	if req.EndAt != nil {
		t, err := parseTimestamp("end_at", *req.EndAt)
		if err != nil {
			return model.Patch{}, err
		}
		p.EndAt = &t
	}
	fields := map[string]string{}
	if req.BookingType != nil {
		t, err := model.ParseType(*req.BookingType)
		if err != nil {
			fields["booking_type"] = "must be one of event, rental, meeting, other"
		}
		p.Type = &t
	}
	if req.BookingStatus != nil {
		s, err := model.ParseStatus(*req.BookingStatus)
		if err != nil {
			fields["booking_status"] = "must be one of pending, confirmed, cancelled"
		}
		p.Status = &s
	}
	if len(fields) > 0 {
		return model.Patch{}, &booking.ValidationError{Fields: fields}
	}
	return p, nil
}

type statusRequest struct {
	Status string `json:"booking_status" validate:"required"`
}

type cloneRequest struct {
	StartAt string `json:"start_at" validate:"required"`
	EndAt   string `json:"end_at" validate:"required"`
}

// parseTimestamp reads RFC3339. Malformed input is an invalid interval, not a validation error.
func parseTimestamp(field, raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be an RFC3339 timestamp", booking.ErrInvalidInterval, field)
	}
	return t, nil
}

// parseBound accepts RFC3339 or a plain YYYY-MM-DD date taken as midnight in loc.
func parseBound(field, raw string, loc *time.Location) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	if t, err := availability.ParseDate(raw, loc); err == nil {
		return &t, nil
	}
	return nil, fmt.Errorf("%w: %s must be RFC3339 or YYYY-MM-DD", booking.ErrInvalidInterval, field)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationFields flattens validator output into field -> reason.
func validationFields(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"body": err.Error()}
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			fields[fe.Field()] = "is required"
		default:
			fields[fe.Field()] = "failed " + fe.Tag()
		}
	}
	return fields
}
