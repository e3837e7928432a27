// Package calendar provides the day-granularity date arithmetic shared by
// every component that manipulates schedule dates: ceiling fractional
// durations to whole days, adding day offsets, and comparing dates at day
// resolution regardless of the time-of-day their time.Time values carry.
//
// All dates in this module are day values: time.Time truncated to midnight
// UTC. Schedulers never reason about sub-daily time.
package calendar

import (
	"math"
	"time"
)

// Day truncates t to midnight UTC, discarding any time-of-day component.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the day n calendar days after t (n may be negative).
func AddDays(t time.Time, n int) time.Time {
	return Day(t).AddDate(0, 0, n)
}

// CeilDays rounds a fractional day count up to the nearest whole day.
// Negative inputs round toward zero (a negative lag or duration is not a
// valid input but CeilDays itself does not reject it; callers validate).
func CeilDays(days float64) int {
	return int(math.Ceil(days))
}

// DaysBetween returns the number of whole calendar days from a to b
// (b - a), truncating both to day resolution first. The result is negative
// when b precedes a.
func DaysBetween(a, b time.Time) int {
	a, b = Day(a), Day(b)
	return int(b.Sub(a).Hours() / 24)
}

// Before reports whether a is strictly earlier than b, at day resolution.
func Before(a, b time.Time) bool {
	return Day(a).Before(Day(b))
}

// After reports whether a is strictly later than b, at day resolution.
func After(a, b time.Time) bool {
	return Day(a).After(Day(b))
}

// BeforeOrEqual reports whether a is earlier than or equal to b, at day
// resolution.
func BeforeOrEqual(a, b time.Time) bool {
	d := Day(a)
	return d.Before(Day(b)) || d.Equal(Day(b))
}

// Max returns the later of two dates, at day resolution.
func Max(a, b time.Time) time.Time {
	if After(a, b) {
		return Day(a)
	}
	return Day(b)
}

// Min returns the earlier of two dates, at day resolution.
func Min(a, b time.Time) time.Time {
	if Before(a, b) {
		return Day(a)
	}
	return Day(b)
}

// Range is an inclusive, closed [Start, End] span of whole days, used for
// calendar unavailability windows and busy intervals.
type Range struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two day-ranges share at least one day.
func (r Range) Overlaps(o Range) bool {
	return !After(r.Start, o.End) && !After(o.Start, r.End)
}

// AdjacentOrOverlapping reports whether r and o overlap or touch (one begins
// the day after the other ends) — the merge condition used by resource
// timelines.
func (r Range) AdjacentOrOverlapping(o Range) bool {
	gap := DaysBetween(r.End, o.Start)
	if o.Start.Before(r.Start) {
		gap = DaysBetween(o.End, r.Start)
	}
	return r.Overlaps(o) || gap <= 1
}

// Contains reports whether day d falls within the closed range.
func (r Range) Contains(d time.Time) bool {
	return !Before(d, r.Start) && !After(d, r.End)
}
