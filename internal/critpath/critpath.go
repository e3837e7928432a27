// Package critpath computes, for a target task, the earliest/latest times
// and zero-slack set of its dependency sub-DAG, caches that computation per
// target with incremental invalidation, and ranks targets by attractiveness
// for the critical-path scheduler.
package critpath

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/kestrelplan/pulsar/internal/calendar"
	"github.com/kestrelplan/pulsar/internal/model"
)

// ErrCircularDependency mirrors backward.ErrCircularDependency for the
// sub-DAG topological sort used in critical-path calculation.
var ErrCircularDependency = errors.New("circular dependency detected in critical path subgraph")

const criticalEpsilon = 1e-9

// TaskTiming holds one task's computed earliest/latest start/finish and
// slack within a target's critical-path sub-DAG.
type TaskTiming struct {
	EarliestStart  float64
	EarliestFinish float64
	LatestStart    float64
	LatestFinish   float64
	Slack          float64
}

// IsCritical reports whether the task lies on the critical path (zero
// slack, within floating-point epsilon).
func (t TaskTiming) IsCritical() bool {
	return math.Abs(t.Slack) < criticalEpsilon
}

// Info is the result of a critical-path calculation for one target.
type Info struct {
	TargetID           string
	CriticalPathTasks  []string // ids on the zero-slack path, including the target
	TotalWork          float64
	CriticalPathLength float64
	Timings            map[string]TaskTiming
}

// ScheduledFinish maps a scheduled or completed predecessor's id to its
// finish offset in days from a shared reference epoch.
type ScheduledFinish map[string]float64

// Calculate computes the critical path for target among the given task set,
// treating ids in completed or scheduledFinish as already resolved (not part
// of the sub-DAG to walk further back through).
func Calculate(byID map[string]model.Task, target string, completed map[string]bool, scheduled ScheduledFinish) (Info, error) {
	sub, err := findSubgraph(byID, target, completed, scheduled)
	if err != nil {
		return Info{}, err
	}

	if len(sub) == 1 {
		t := byID[target]
		return Info{
			TargetID:           target,
			CriticalPathTasks:  []string{target},
			TotalWork:          t.DurationDays,
			CriticalPathLength: t.DurationDays,
			Timings: map[string]TaskTiming{
				target: {EarliestFinish: t.DurationDays, LatestFinish: t.DurationDays, Slack: 0},
			},
		}, nil
	}

	order, err := topoSortSubgraph(byID, sub)
	if err != nil {
		return Info{}, err
	}

	timing := make(map[string]TaskTiming, len(sub))
	var totalWork float64
	for _, id := range order {
		t := byID[id]
		totalWork += t.DurationDays
		es := 0.0
		for _, dep := range t.Dependencies {
			if !sub[dep.PredecessorID] {
				if fin, ok := scheduled[dep.PredecessorID]; ok {
					es = math.Max(es, fin+dep.LagDays)
				}
				continue
			}
			depFinish, ok := scheduled[dep.PredecessorID]
			if !ok {
				depFinish = timing[dep.PredecessorID].EarliestFinish
			}
			es = math.Max(es, depFinish+dep.LagDays)
		}
		timing[id] = TaskTiming{EarliestStart: es, EarliestFinish: es + t.DurationDays}
	}

	targetTiming := timing[target]
	criticalPathLength := targetTiming.EarliestFinish

	lf := make(map[string]float64, len(sub))
	lf[target] = criticalPathLength
	ls := make(map[string]float64, len(sub))
	ls[target] = criticalPathLength - byID[target].DurationDays
	timing[target] = TaskTiming{
		EarliestStart:  targetTiming.EarliestStart,
		EarliestFinish: targetTiming.EarliestFinish,
		LatestStart:    ls[target],
		LatestFinish:   lf[target],
		Slack:          ls[target] - targetTiming.EarliestStart,
	}

	dependents := make(map[string][]struct {
		id  string
		lag float64
	}, len(sub))
	for _, id := range order {
		for _, dep := range byID[id].Dependencies {
			if sub[dep.PredecessorID] {
				dependents[dep.PredecessorID] = append(dependents[dep.PredecessorID], struct {
					id  string
					lag float64
				}{id, dep.LagDays})
			}
		}
	}

	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		if id == target {
			continue
		}
		deps := dependents[id]
		lfVal := math.Inf(1)
		for _, x := range deps {
			lfVal = math.Min(lfVal, ls[x.id]-x.lag)
		}
		if math.IsInf(lfVal, 1) {
			lfVal = criticalPathLength
		}
		lf[id] = lfVal
		ls[id] = lfVal - byID[id].DurationDays
		et := timing[id]
		timing[id] = TaskTiming{
			EarliestStart:  et.EarliestStart,
			EarliestFinish: et.EarliestFinish,
			LatestStart:    ls[id],
			LatestFinish:   lf[id],
			Slack:          ls[id] - et.EarliestStart,
		}
	}

	var criticalIDs []string
	for _, id := range order {
		if timing[id].IsCritical() {
			criticalIDs = append(criticalIDs, id)
		}
	}
	sort.Strings(criticalIDs)

	return Info{
		TargetID:           target,
		CriticalPathTasks:  criticalIDs,
		TotalWork:          totalWork,
		CriticalPathLength: criticalPathLength,
		Timings:            timing,
	}, nil
}

// findSubgraph returns the set of unscheduled, non-completed ancestors of
// target (including target itself), found by BFS on the reverse-dependency
// relation.
func findSubgraph(byID map[string]model.Task, target string, completed map[string]bool, scheduled ScheduledFinish) (map[string]bool, error) {
	sub := map[string]bool{target: true}
	queue := []string{target}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		t, ok := byID[id]
		if !ok {
			continue
		}
		for _, dep := range t.Dependencies {
			p := dep.PredecessorID
			if completed[p] {
				continue
			}
			if _, isScheduled := scheduled[p]; isScheduled {
				continue
			}
			if sub[p] {
				continue
			}
			if _, ok := byID[p]; !ok {
				continue
			}
			sub[p] = true
			queue = append(queue, p)
		}
	}
	return sub, nil
}

// topoSortSubgraph orders sub so that every task's predecessors (within the
// subgraph) precede it, via Kahn's algorithm; ties resolve by task id.
func topoSortSubgraph(byID map[string]model.Task, sub map[string]bool) ([]string, error) {
	inDegree := make(map[string]int, len(sub))
	for id := range sub {
		inDegree[id] = 0
	}
	for id := range sub {
		for _, dep := range byID[id].Dependencies {
			if sub[dep.PredecessorID] {
				inDegree[id]++
			}
		}
	}

	ready := make([]string, 0, len(sub))
	for id := range sub {
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	dependentsOf := make(map[string][]string, len(sub))
	for id := range sub {
		for _, dep := range byID[id].Dependencies {
			if sub[dep.PredecessorID] {
				dependentsOf[dep.PredecessorID] = append(dependentsOf[dep.PredecessorID], id)
			}
		}
	}

	order := make([]string, 0, len(sub))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		next := append([]string(nil), dependentsOf[id]...)
		sort.Strings(next)
		for _, n := range next {
			inDegree[n]--
			if inDegree[n] == 0 {
				i := sort.SearchStrings(ready, n)
				ready = append(ready, "")
				copy(ready[i+1:], ready[i:])
				ready[i] = n
			}
		}
	}

	if len(order) != len(sub) {
		return nil, ErrCircularDependency
	}
	return order, nil
}

// Target is the ranked-target record the critical-path scheduler consumes.
type Target struct {
	Info
	Priority int
	Deadline *time.Time
	Urgency  float64
	Score    float64
}

// RankedTargets computes urgency and score for each target's Info and
// returns them sorted by score descending, ties broken by target id.
func RankedTargets(infos []Info, priority map[string]int, deadline map[string]time.Time, now time.Time, cfg model.CriticalPathConfig) []Target {
	if len(infos) == 0 {
		return nil
	}

	var totalWork float64
	for _, info := range infos {
		totalWork += info.TotalWork
	}
	avgWork := totalWork / float64(len(infos))
	if avgWork < 1 {
		avgWork = 1
	}

	targets := make([]Target, 0, len(infos))
	for _, info := range infos {
		p := priority[info.TargetID]
		var urgency float64
		var dlPtr *time.Time
		if dl, ok := deadline[info.TargetID]; ok {
			d := dl
			dlPtr = &d
			slack := float64(calendar.DaysBetween(now, dl)) - info.TotalWork
			if slack <= 0 {
				urgency = 1.0
			} else {
				urgency = math.Exp(-slack / (cfg.K * avgWork))
				if urgency < cfg.UrgencyFloor {
					urgency = cfg.UrgencyFloor
				}
			}
		} else {
			urgency = cfg.NoDeadlineUrgencyMultiplier
			if urgency < cfg.UrgencyFloor {
				urgency = cfg.UrgencyFloor
			}
		}

		score := (float64(p) / math.Max(0.1, info.TotalWork)) * urgency
		targets = append(targets, Target{
			Info:     info,
			Priority: p,
			Deadline: dlPtr,
			Urgency:  urgency,
			Score:    score,
		})
	}

	sort.Slice(targets, func(i, j int) bool {
		if targets[i].Score != targets[j].Score {
			return targets[i].Score > targets[j].Score
		}
		return targets[i].TargetID < targets[j].TargetID
	})
	return targets
}
