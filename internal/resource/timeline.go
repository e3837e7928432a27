// Package resource implements the per-resource busy-interval timeline and
// the resource-configuration / resource-spec mini-language: sorted, merged
// intervals; a start-plus-fractional-work completion cache; binary-searched
// next-free lookup.
package resource

import (
	"sort"
	"time"

	"github.com/kestrelplan/pulsar/internal/calendar"
)

type cacheKey struct {
	start      time.Time
	centidays  int
}

// Timeline tracks one resource's sorted, pairwise-disjoint busy intervals
// (calendar unavailability plus scheduled task occupancy) and answers
// next-free-day and completion-date queries against them. Not safe for
// concurrent use; rollout simulation operates on a Clone.
type Timeline struct {
	Name  string
	busy  []calendar.Range
	cache map[cacheKey]time.Time
}

// NewTimeline returns an empty timeline for the named resource, seeded with
// the given calendar unavailability (DNS) windows.
func NewTimeline(name string, dns []calendar.Range) *Timeline {
	tl := &Timeline{Name: name, cache: make(map[cacheKey]time.Time)}
	for _, r := range dns {
		tl.AddBusy(r.Start, r.End)
	}
	return tl
}

// Clone returns a deep copy suitable for rollout simulation: mutating the
// clone never affects the original.
func (tl *Timeline) Clone() *Timeline {
	out := &Timeline{
		Name:  tl.Name,
		busy:  append([]calendar.Range(nil), tl.busy...),
		cache: make(map[cacheKey]time.Time, len(tl.cache)),
	}
	for k, v := range tl.cache {
		out.cache[k] = v
	}
	return out
}

// AddBusy inserts [start, end] into the busy set, merging with any
// neighboring interval that overlaps it or touches it (begins the day after
// it ends, or ends the day before it begins).
// Invalidates the completion cache.
func (tl *Timeline) AddBusy(start, end time.Time) {
	r := calendar.Range{Start: calendar.Day(start), End: calendar.Day(end)}

	merged := make([]calendar.Range, 0, len(tl.busy)+1)
	inserted := false
	for _, existing := range tl.busy {
		if r.AdjacentOrOverlapping(existing) {
			r = calendar.Range{Start: calendar.Min(r.Start, existing.Start), End: calendar.Max(r.End, existing.End)}
			continue
		}
		if !inserted && existing.Start.After(r.End) {
			merged = append(merged, r)
			inserted = true
		}
		merged = append(merged, existing)
	}
	if !inserted {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Start.Before(merged[j].Start) })
	tl.busy = merged
	tl.cache = make(map[cacheKey]time.Time)
}

// findBusyContaining returns the busy interval containing day d, if any.
func (tl *Timeline) findBusyContaining(d time.Time) (calendar.Range, bool) {
	i := sort.Search(len(tl.busy), func(i int) bool { return !tl.busy[i].End.Before(d) })
	if i < len(tl.busy) && tl.busy[i].Contains(d) {
		return tl.busy[i], true
	}
	return calendar.Range{}, false
}

// findNextBusyAfter returns the earliest busy interval whose start is
// strictly after d, if any.
func (tl *Timeline) findNextBusyAfter(d time.Time) (calendar.Range, bool) {
	i := sort.Search(len(tl.busy), func(i int) bool { return tl.busy[i].Start.After(d) })
	if i < len(tl.busy) {
		return tl.busy[i], true
	}
	return calendar.Range{}, false
}

// NextFree returns the earliest day >= from not contained in any busy
// interval.
func (tl *Timeline) NextFree(from time.Time) time.Time {
	current := calendar.Day(from)
	for {
		busy, ok := tl.findBusyContaining(current)
		if !ok {
			return current
		}
		current = calendar.AddDays(busy.End, 1)
	}
}

// CompletionFor walks busy intervals starting at start, consuming up to
// ceil(workDays) calendar days of availability and skipping each busy
// interval encountered in full, returning the last working day. A zero or
// negative workDays returns start unchanged (milestones never reach this
// path — callers special-case them before calling CompletionFor).
func (tl *Timeline) CompletionFor(start time.Time, workDays float64) time.Time {
	start = calendar.Day(start)
	if workDays <= 0 {
		return start
	}
	remaining := calendar.CeilDays(workDays)

	key := cacheKey{start: start, centidays: int(workDays*100 + 0.5)}
	if cached, ok := tl.cache[key]; ok {
		return cached
	}

	current := start
	for {
		if busy, ok := tl.findBusyContaining(current); ok {
			current = calendar.AddDays(busy.End, 1)
			continue
		}
		next, hasNext := tl.findNextBusyAfter(current)
		var available int
		if hasNext {
			available = calendar.DaysBetween(current, next.Start)
		} else {
			available = remaining
		}
		if remaining <= available {
			result := calendar.AddDays(current, remaining)
			tl.cache[key] = result
			return result
		}
		remaining -= available
		current = next.Start
	}
}

// IsFree reports whether no busy interval overlaps [start, start+ceil(workDays)].
func (tl *Timeline) IsFree(start time.Time, workDays float64) bool {
	start = calendar.Day(start)
	span := calendar.Range{Start: start, End: calendar.AddDays(start, calendar.CeilDays(workDays))}
	for _, b := range tl.busy {
		if span.Overlaps(b) {
			return false
		}
	}
	return true
}
