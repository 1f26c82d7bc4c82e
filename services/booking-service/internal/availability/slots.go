package availability

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidDuration = errors.New("duration must be at least one hour")

// Window is the daily operating range, as offsets from local midnight, stepped by Step.
type Window struct {
	Open     time.Duration
	Close    time.Duration
	Step     time.Duration
	Location *time.Location
}

// NewWindow parses "HH:MM" bounds and an IANA timezone name.
func NewWindow(openAt, closeAt string, step time.Duration, timezone string) (Window, error) {
	o, err := ParseClock(openAt)
	if err != nil {
		return Window{}, fmt.Errorf("open: %w", err)
	}
	c, err := ParseClock(closeAt)
	if err != nil {
		return Window{}, fmt.Errorf("close: %w", err)
	}
	loc := time.UTC
	if tz := strings.TrimSpace(timezone); tz != "" {
		if loc, err = time.LoadLocation(tz); err != nil {
			return Window{}, fmt.Errorf("timezone: %w", err)
		}
	}
	w := Window{Open: o, Close: c, Step: step, Location: loc}
	if err := w.validate(); err != nil {
		return Window{}, err
	}
	return w, nil
}

func (w Window) validate() error {
	if w.Close <= w.Open {
		return errors.New("window close must be after open")
	}
	if w.Step <= 0 {
		return errors.New("window step must be positive")
	}
	return nil
}

// ParseClock parses "HH:MM" (00:00 through 24:00) into an offset from midnight.
func ParseClock(raw string) (time.Duration, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return 0, fmt.Errorf("invalid clock %q", raw)
	}
	hours, err := strconv.Atoi(h)
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q", raw)
	}
	minutes, err := strconv.Atoi(m)
	if err != nil || len(m) != 2 {
		return 0, fmt.Errorf("invalid clock %q", raw)
	}
	if hours < 0 || minutes < 0 || minutes > 59 || hours > 24 || (hours == 24 && minutes != 0) {
		return 0, fmt.Errorf("invalid clock %q", raw)
	}
	return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute, nil
}

// ParseDate reads a YYYY-MM-DD calendar date as local midnight in loc.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", ErrInvalidInterval, raw)
	}
	return d, nil
}

// Bounds returns the window on the calendar day of date, as seen in the window's location.
func (w Window) Bounds(date time.Time) Interval {
	loc := w.location()
	y, mo, d := date.In(loc).Date()
	return Interval{
		Start: clockOn(y, mo, d, w.Open, loc),
		End:   clockOn(y, mo, d, w.Close, loc),
	}
}

func (w Window) location() *time.Location {
	if w.Location == nil {
		return time.UTC
	}
	return w.Location
}

func clockOn(y int, mo time.Month, d int, offset time.Duration, loc *time.Location) time.Time {
	// Wall-clock construction keeps 09:00 at 09:00 on DST transition days.
	return time.Date(y, mo, d, 0, int(offset/time.Minute), 0, 0, loc)
}

// Slot is one candidate booking window.
type Slot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}

// GenerateSlots lists every slot of durationHours starting at Open and each Step after it whose
// end stays within Close. A slot is available iff it overlaps none of busy. The sequence is
// never filtered.
func GenerateSlots(w Window, date time.Time, durationHours int, busy []Interval) ([]Slot, error) {
	if durationHours < 1 {
		return nil, ErrInvalidDuration
	}
	if err := w.validate(); err != nil {
		return nil, err
	}

	day := w.Bounds(date)
	length := time.Duration(durationHours) * time.Hour

	slots := []Slot{}
	for start := day.Start; !start.Add(length).After(day.End); start = start.Add(w.Step) {
		candidate := Interval{Start: start, End: start.Add(length)}
		slots = append(slots, Slot{
			Start:     candidate.Start,
			End:       candidate.End,
			Available: !overlapsAny(candidate, busy),
		})
	}
	return slots, nil
}
