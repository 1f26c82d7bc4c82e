package booking

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/model"
)

var (
	// ErrInvalidInterval covers end <= start and malformed date/time input.
	ErrInvalidInterval = availability.ErrInvalidInterval
	// ErrNotFound is returned for missing and soft-deleted bookings.
	ErrNotFound = errors.New("booking not found")
	// ErrOverlap is the store's signal that its overlap constraint rejected a write.
	ErrOverlap = errors.New("overlapping active booking")
)

// ValidationError lists rejected fields with a reason each.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func invalidField(field, reason string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: reason}}
}

// ConflictError carries the active bookings that block [Start, End) on Space.
type ConflictError struct {
	Space     string
	Start     time.Time
	End       time.Time
	Conflicts []model.Booking
}

func (e *ConflictError) Error() string {
	return "space already booked in this interval"
}

// StoreError wraps a repository failure. It is never swallowed into an empty result.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("booking store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// classify passes domain errors through and wraps anything else as a StoreError.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		ve *ValidationError
		ce *ConflictError
		se *StoreError
	)
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInvalidInterval),
		errors.As(err, &ve),
		errors.As(err, &ce),
		errors.As(err, &se):
		return err
	default:
		return &StoreError{Op: op, Err: err}
	}
}
