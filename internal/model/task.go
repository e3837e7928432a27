// Package model defines the engine's data model: tasks,
// dependency edges, scheduled-task output records, and the tunable
// configuration records consumed by every scheduling component. These types
// carry no behavior beyond small accessors — the algorithms that operate on
// them live in backward, critpath, sortkey, sgs, cpsched, and rollout.
package model

import "time"

// ResourceUse names a resource a task must hold for its full duration,
// together with the units it occupies. Units are carried through as a
// pass-through attribute (the engine does not model resource capacity beyond
// mutual exclusion); they exist because the original task records carry them
// and downstream consumers (diagnostics, manifests) round-trip them.
type ResourceUse struct {
	Name  string
	Units float64
}

// Dependency is an edge from a task to one of its predecessors, plus the
// calendar lag (fractional days) that must elapse after the predecessor
// finishes before the dependent may start.
type Dependency struct {
	PredecessorID string
	LagDays       float64
}

// Task is an immutable input record.
type Task struct {
	ID           string
	DurationDays float64

	Resources    []ResourceUse
	ResourceSpec string // used only when Resources is empty

	Dependencies []Dependency

	StartAfter *time.Time
	EndBefore  *time.Time

	StartOn *time.Time
	EndOn   *time.Time

	// Priority is 0-100; nil means "use the configured default".
	Priority *int
}

// IsMilestone reports whether the task has zero duration: no resource usage,
// a zero-length scheduled interval.
func (t Task) IsMilestone() bool {
	return t.DurationDays == 0
}

// IsFixed reports whether the task is pinned by start_on and/or end_on and
// must go through the fixed-task prepass rather than forward scheduling.
func (t Task) IsFixed() bool {
	return t.StartOn != nil || t.EndOn != nil
}

// ResourceNames returns the explicit resource names this task requires, in
// listed order. Empty for auto-assigned or milestone tasks.
func (t Task) ResourceNames() []string {
	if len(t.Resources) == 0 {
		return nil
	}
	names := make([]string, len(t.Resources))
	for i, r := range t.Resources {
		names[i] = r.Name
	}
	return names
}

// UsesAutoAssignment reports whether the task selects its resource from a
// resource_spec pattern rather than listing one explicitly.
func (t Task) UsesAutoAssignment() bool {
	return len(t.Resources) == 0 && t.ResourceSpec != ""
}

// ScheduledTask is an output record: a task's computed placement. End is
// inclusive.
type ScheduledTask struct {
	TaskID       string
	Start        time.Time
	End          time.Time
	DurationDays float64
	Resources    []string
}
