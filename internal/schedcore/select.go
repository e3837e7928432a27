package schedcore

import (
	"errors"
	"fmt"
	"time"

	"github.com/kestrelplan/pulsar/internal/calendar"
)

// ErrResourceNotFound is returned when a task references a resource with no
// timeline and no spec expansion to a concrete one.
var ErrResourceNotFound = errors.New("resource not found")

// Placement is a candidate (or chosen) resource assignment for a task at
// the current time: the resources it would occupy and its completion date.
type Placement struct {
	Resources  []string
	Completion time.Time
	Feasible   bool
}

// SelectResources chooses where task id would run if committed right now,
// implementing both the auto-assignment and explicit-resource branches of
// step 5.
func (s *State) SelectResources(id string) (Placement, error) {
	t := s.ByID[id]

	if t.UsesAutoAssignment() {
		candidates := s.ResourceConfig.ExpandResourceSpec(t.ResourceSpec)
		if len(candidates) == 0 {
			return Placement{}, fmt.Errorf("%w: resource_spec %q expanded to no candidates for task %q", ErrResourceNotFound, t.ResourceSpec, id)
		}
		best := Placement{}
		for _, name := range candidates {
			tl, ok := s.Timelines[name]
			if !ok {
				return Placement{}, fmt.Errorf("%w: %q (from resource_spec %q)", ErrResourceNotFound, name, t.ResourceSpec)
			}
			if !tl.NextFree(s.CurrentTime).Equal(s.CurrentTime) {
				continue
			}
			completion := tl.CompletionFor(s.CurrentTime, t.DurationDays)
			if !best.Feasible || completion.Before(best.Completion) {
				best = Placement{Resources: []string{name}, Completion: completion, Feasible: true}
			}
		}
		return best, nil
	}

	names := t.ResourceNames()
	if len(names) == 0 {
		// No resources at all (and not a milestone, checked by caller):
		// the task runs unconstrained by any timeline.
		return Placement{Resources: nil, Completion: calendar.AddDays(s.CurrentTime, calendar.CeilDays(t.DurationDays)), Feasible: true}, nil
	}

	var completion time.Time
	for i, name := range names {
		tl, ok := s.Timelines[name]
		if !ok {
			return Placement{}, fmt.Errorf("%w: %q", ErrResourceNotFound, name)
		}
		if !tl.NextFree(s.CurrentTime).Equal(s.CurrentTime) {
			return Placement{}, nil
		}
		c := tl.CompletionFor(s.CurrentTime, t.DurationDays)
		if i == 0 || c.After(completion) {
			completion = c
		}
	}
	return Placement{Resources: names, Completion: completion, Feasible: true}, nil
}
