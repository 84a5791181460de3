// Package calendar resolves requested days and weeks into concrete date
// ranges and buckets events by day.
//
// Dates are civil dates carried as time.Time at midnight UTC so they compare
// with == and round-trip through DATE columns unchanged.
package calendar

import (
	"errors"
	"strings"
	"time"
)

const Layout = "2006-01-02"

const (
	StatusToday     = "Today"
	StatusTomorrow  = "Tomorrow"
	StatusYesterday = "Yesterday"
)

var ErrInvertedRange = errors.New("start date must not be after end date")

// Date returns the civil date of t in t's own location.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Today is the server-local civil date at now.
func Today(now time.Time) time.Time { return Date(now.Local()) }

func Format(d time.Time) string { return d.Format(Layout) }

// Parse parses a YYYY-MM-DD string into a civil date.
func Parse(s string) (time.Time, error) {
	d, err := time.Parse(Layout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return d, nil
}

// parseOr never fails: empty or malformed input resolves to today.
func parseOr(s string, now time.Time) time.Time {
	if strings.TrimSpace(s) == "" {
		return Today(now)
	}
	d, err := Parse(s)
	if err != nil {
		return Today(now)
	}
	return d
}

type Day struct {
	Date    time.Time
	Status  string
	Weekday string
	Prev    time.Time
	Next    time.Time
}

// ResolveDay resolves an optional YYYY-MM-DD string into a Day. Malformed
// input is treated exactly like no input.
func ResolveDay(s string, now time.Time) Day {
	d := parseOr(s, now)
	return Day{
		Date:    d,
		Status:  DayStatus(d, Today(now)),
		Weekday: d.Weekday().String(),
		Prev:    d.AddDate(0, 0, -1),
		Next:    d.AddDate(0, 0, 1),
	}
}

// DayStatus labels day relative to today; any other offset has no label.
func DayStatus(day, today time.Time) string {
	switch {
	case day.Equal(today):
		return StatusToday
	case day.Equal(today.AddDate(0, 0, 1)):
		return StatusTomorrow
	case day.Equal(today.AddDate(0, 0, -1)):
		return StatusYesterday
	default:
		return ""
	}
}

type Week struct {
	Start     time.Time
	End       time.Time
	Prev      time.Time
	Next      time.Time
	Dates     [7]time.Time
	IsCurrent bool
}

// Monday snaps d back to the Monday of its ISO week.
func Monday(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 6) % 7 // Monday=0
	return d.AddDate(0, 0, -offset)
}

// ResolveWeek resolves an optional date into the inclusive Monday..Sunday
// week containing it. Malformed input resolves to the current week.
func ResolveWeek(s string, now time.Time) Week {
	start := Monday(parseOr(s, now))
	w := Week{
		Start: start,
		End:   start.AddDate(0, 0, 6),
		Prev:  start.AddDate(0, 0, -7),
		Next:  start.AddDate(0, 0, 7),
	}
	for i := range w.Dates {
		w.Dates[i] = start.AddDate(0, 0, i)
	}
	today := Today(now)
	w.IsCurrent = !today.Before(w.Start) && !today.After(w.End)
	return w
}

// Contains reports whether d falls inside the inclusive week.
func (w Week) Contains(d time.Time) bool {
	d = Date(d)
	return !d.Before(w.Start) && !d.After(w.End)
}

type Range struct {
	Start time.Time
	End   time.Time
}

// ParseRange parses an inclusive date range strictly. Unlike day and week
// resolution, bad input here is reported to the caller.
func ParseRange(start, end string) (Range, error) {
	s, err := Parse(start)
	if err != nil {
		return Range{}, err
	}
	e, err := Parse(end)
	if err != nil {
		return Range{}, err
	}
	if s.After(e) {
		return Range{}, ErrInvertedRange
	}
	return Range{Start: s, End: e}, nil
}

// Days lists every date in the inclusive range.
func (r Range) Days() []time.Time {
	var out []time.Time
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}
