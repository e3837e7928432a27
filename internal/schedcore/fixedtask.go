package schedcore

import (
	"fmt"
	"time"

	"github.com/kestrelplan/pulsar/internal/calendar"
	"github.com/kestrelplan/pulsar/internal/model"
)

// PrepassFixedTasks resolves every start_on/end_on pinned task before
// forward scheduling runs, committing each directly
// and removing it from the unscheduled set.
func (s *State) PrepassFixedTasks() error {
	for _, id := range s.UnscheduledIDs() {
		t := s.ByID[id]
		if !t.IsFixed() {
			continue
		}
		start, end, err := s.resolveFixed(t)
		if err != nil {
			return err
		}
		s.Commit(id, t.ResourceNames(), start, end)
	}
	return nil
}

// resolveFixed computes the (start, end) pair for a pinned task per the
// three cases below.
func (s *State) resolveFixed(t model.Task) (start, end time.Time, err error) {
	switch {
	case t.StartOn != nil && t.EndOn != nil:
		return calendar.Day(*t.StartOn), calendar.Day(*t.EndOn), nil

	case t.StartOn != nil:
		start = calendar.Day(*t.StartOn)
		names := t.ResourceNames()
		if len(names) == 0 {
			return start, calendar.AddDays(start, calendar.CeilDays(t.DurationDays)), nil
		}
		var maxEnd time.Time
		for i, name := range names {
			tl, ok := s.Timelines[name]
			if !ok {
				return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrResourceNotFound, name)
			}
			c := tl.CompletionFor(start, t.DurationDays)
			if i == 0 || c.After(maxEnd) {
				maxEnd = c
			}
		}
		return start, maxEnd, nil

	default: // EndOn != nil only
		// The start is computed naively, without consulting any resource's
		// unavailability. If the inferred start lands inside a DNS window,
		// that is accepted rather than rejected.
		end = calendar.Day(*t.EndOn)
		start = calendar.AddDays(end, -calendar.CeilDays(t.DurationDays))
		return start, end, nil
	}
}
