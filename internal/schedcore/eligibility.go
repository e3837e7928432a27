package schedcore

import (
	"time"

	"github.com/kestrelplan/pulsar/internal/calendar"
)

// EligibleDate returns the earliest day at which task id may start: the max
// over its dependencies' (end + 1 + ceil(lag)) and its start_after bound.
// ok is false if any non-completed dependency is not yet scheduled — the
// eligibility date cannot be determined yet.
func (s *State) EligibleDate(id string) (time.Time, bool) {
	t := s.ByID[id]
	eligible := s.CurrentTime

	for _, dep := range t.Dependencies {
		if s.Completed[dep.PredecessorID] {
			continue
		}
		sched, ok := s.Scheduled[dep.PredecessorID]
		if !ok {
			return time.Time{}, false
		}
		depEligible := calendar.AddDays(sched.End, 1+calendar.CeilDays(dep.LagDays))
		if depEligible.After(eligible) {
			eligible = depEligible
		}
	}

	if t.StartAfter != nil && t.StartAfter.After(eligible) {
		eligible = calendar.Day(*t.StartAfter)
	}
	if nb, ok := s.NotBefore[id]; ok && nb.After(eligible) {
		eligible = nb
	}
	return eligible, true
}

// IsEligibleAt reports whether task id may be considered for scheduling at
// time now: every dependency satisfied with lag (non-strict "day after
// finish plus lag") and start_after not in the future.
func (s *State) IsEligibleAt(id string, now time.Time) bool {
	eligible, ok := s.EligibleDate(id)
	if !ok {
		return false
	}
	return !eligible.After(now)
}

// EligibleSet returns every unscheduled task eligible at time now, sorted by
// task id.
func (s *State) EligibleSet(now time.Time) []string {
	var out []string
	for _, id := range s.UnscheduledIDs() {
		if s.IsEligibleAt(id, now) {
			out = append(out, id)
		}
	}
	s.Log.Check("eligible at %s: %v", now.Format("2006-01-02"), out)
	return out
}

// NextEventTime computes the minimum of: each unscheduled task's earliest
// eligibility date (when determinable), each start_after, and the day after
// each resource's current last busy day — whichever set of candidates is
// soonest strictly after s.CurrentTime. ok is false if no future event
// exists.
func (s *State) NextEventTime() (time.Time, bool) {
	var best time.Time
	found := false

	consider := func(t time.Time) {
		if !t.After(s.CurrentTime) {
			return
		}
		if !found || t.Before(best) {
			best = t
			found = true
		}
	}

	for _, id := range s.UnscheduledIDs() {
		if eligible, ok := s.EligibleDate(id); ok {
			consider(eligible)
		}
		if t := s.ByID[id].StartAfter; t != nil {
			consider(calendar.Day(*t))
		}
	}
	for _, name := range s.ResourceConfig.ResourceOrder {
		tl, ok := s.Timelines[name]
		if !ok {
			continue
		}
		consider(tl.NextFree(s.CurrentTime))
	}
	return best, found
}
