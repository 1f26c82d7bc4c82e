package availability

import (
	"errors"
	"time"
)

var ErrInvalidInterval = errors.New("invalid interval: end must be after start")

// Interval is the half-open range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func Validate(start, end time.Time) error {
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return ErrInvalidInterval
	}
	return nil
}

func (i Interval) Validate() error {
	return Validate(i.Start, i.End)
}

// Overlaps is true iff a and b share an instant. Touching intervals (a.End == b.Start)
// do not overlap, so back-to-back bookings are allowed.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

func overlapsAny(candidate Interval, busy []Interval) bool {
	for _, b := range busy {
		if Overlaps(candidate, b) {
			return true
		}
	}
	return false
}
