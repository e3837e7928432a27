// Package backward implements the deadline/priority backward pass: a
// topological sort of the dependency DAG in the direction dependent →
// predecessor, propagating priorities upstream (max) and deadlines earlier
// (min of each dependent's derived deadline).
package backward

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kestrelplan/pulsar/internal/calendar"
	"github.com/kestrelplan/pulsar/internal/model"
)

// ErrCircularDependency is returned when the dependency graph cannot be
// topologically sorted because it contains a cycle.
var ErrCircularDependency = errors.New("circular dependency detected")

// Result holds the two maps produced by the backward pass.
type Result struct {
	EffectiveDeadline map[string]time.Time
	EffectivePriority map[string]int
}

// Run computes effective deadlines and priorities for tasks, given the set
// of already-completed task ids (excluded from propagation entirely — they
// neither inherit priority nor constrain a deadline) and the configured
// default priority for tasks that don't set one explicitly.
func Run(tasks []model.Task, completed map[string]bool, defaultPriority int) (Result, error) {
	byID := make(map[string]model.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	inDegree := make(map[string]int, len(tasks))
	for _, t := range tasks {
		inDegree[t.ID] = 0
	}
	for _, t := range tasks {
		for _, dep := range t.Dependencies {
			if completed[dep.PredecessorID] {
				continue
			}
			if _, ok := byID[dep.PredecessorID]; !ok {
				continue
			}
			inDegree[dep.PredecessorID]++
		}
	}

	hasDeadline := make(map[string]bool, len(tasks))
	deadline := make(map[string]time.Time, len(tasks))
	priority := make(map[string]int, len(tasks))
	for _, t := range tasks {
		if t.EndBefore != nil {
			deadline[t.ID] = calendar.Day(*t.EndBefore)
			hasDeadline[t.ID] = true
		}
		if t.Priority != nil {
			priority[t.ID] = *t.Priority
		} else {
			priority[t.ID] = defaultPriority
		}
	}

	ready := make([]string, 0, len(tasks))
	for _, t := range tasks {
		if inDegree[t.ID] == 0 {
			ready = append(ready, t.ID)
		}
	}
	sort.Strings(ready)

	processed := 0
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		processed++

		t := byID[id]
		for _, dep := range t.Dependencies {
			p := dep.PredecessorID
			if completed[p] {
				continue
			}
			if _, ok := byID[p]; !ok {
				continue
			}

			if priority[id] > priority[p] {
				priority[p] = priority[id]
			}

			if hasDeadline[id] {
				derived := calendar.AddDays(deadline[id], -calendar.CeilDays(t.DurationDays+dep.LagDays))
				if !hasDeadline[p] || derived.Before(deadline[p]) {
					deadline[p] = derived
					hasDeadline[p] = true
				}
			}

			inDegree[p]--
			if inDegree[p] == 0 {
				insertSorted(&ready, p)
			}
		}
	}

	if processed != len(tasks) {
		return Result{}, fmt.Errorf("%w", ErrCircularDependency)
	}

	out := Result{
		EffectiveDeadline: make(map[string]time.Time, len(hasDeadline)),
		EffectivePriority: priority,
	}
	for id, ok := range hasDeadline {
		if ok {
			out.EffectiveDeadline[id] = deadline[id]
		}
	}
	return out, nil
}

// insertSorted inserts id into the sorted slice s, keeping it sorted. This
// is what makes the order in which newly-ready tasks are visited
// deterministic: ties always resolve to the lexicographically smallest id.
func insertSorted(s *[]string, id string) {
	i := sort.SearchStrings(*s, id)
	*s = append(*s, "")
	copy((*s)[i+1:], (*s)[i:])
	(*s)[i] = id
}
