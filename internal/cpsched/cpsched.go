// Package cpsched implements the critical-path-first forward scheduler:
// rank unscheduled tasks' targets by attractiveness (internal/critpath),
// then within the best target's critical path pick the task maximizing
// WSPT, consulting rollout before each commit.
package cpsched

import (
	"math"
	"time"

	"github.com/kestrelplan/pulsar/internal/calendar"
	"github.com/kestrelplan/pulsar/internal/critpath"
	"github.com/kestrelplan/pulsar/internal/model"
	"github.com/kestrelplan/pulsar/internal/rollout"
	"github.com/kestrelplan/pulsar/internal/schedcore"
	"github.com/kestrelplan/pulsar/internal/telemetry"
)

const maxIterationMultiplier = 100

// neutralDefaultCR stands in for the Parallel-SGS scheduler's per-step
// default_cr, which this scheduler's target-ranked
// selection has no equivalent of: rollout's competitor-detection still
// needs a critical-ratio baseline for deadline-less tasks, so a fixed
// neutral value is used instead of a recomputed step parameter.
const neutralDefaultCR = 1.0

// Result is the outcome of a full scheduling run: any tasks that could not
// be scheduled within the bounded iteration budget, plus every rollout
// decision made along the way.
type Result struct {
	Failed    []string
	Decisions []rollout.Decision
}

// Schedule runs the critical-path-first outer loop to completion or
// exhaustion of its iteration budget.
func Schedule(s *schedcore.State, cfg model.CriticalPathConfig, rcfg model.RolloutConfig) (Result, error) {
	epoch := s.CurrentTime
	scheduledFinish := make(critpath.ScheduledFinish)
	for id, rec := range s.Scheduled {
		scheduledFinish[id] = float64(calendar.DaysBetween(epoch, rec.End))
	}

	cache, err := critpath.NewCache(s.ByID, s.Completed, scheduledFinish)
	if err != nil {
		return Result{}, err
	}

	maxIter := maxIterationMultiplier * len(s.ByID)
	var decisions []rollout.Decision

	for i := 0; i < maxIter && !s.Done(); i++ {
		committed, dec, err := step(s, cache, scheduledFinish, epoch, cfg, rcfg)
		if err != nil {
			return Result{}, err
		}
		if dec != nil {
			decisions = append(decisions, *dec)
		}
		if committed {
			continue
		}
		next, ok := s.NextEventTime()
		if !ok {
			break
		}
		s.CurrentTime = next
	}

	return Result{Failed: s.UnscheduledIDs(), Decisions: decisions}, nil
}

// step performs exactly one critical-path-scheduler iteration
//: rank targets, try the best target's
// highest-WSPT eligible task, falling through to the next target if
// infeasible or rollout-vetoed.
func step(s *schedcore.State, cache *critpath.Cache, scheduledFinish critpath.ScheduledFinish, epoch time.Time, cfg model.CriticalPathConfig, rcfg model.RolloutConfig) (bool, *rollout.Decision, error) {
	targets := cache.RankedTargets(s.EffectivePriority, s.EffectiveDeadline, s.CurrentTime, cfg)

	for _, target := range targets {
		id, ok := bestWSPTEligible(s, target.CriticalPathTasks)
		if !ok {
			continue
		}

		t := s.ByID[id]
		if t.IsMilestone() {
			s.Commit(id, nil, s.CurrentTime, s.CurrentTime)
			if err := markScheduled(cache, scheduledFinish, epoch, id, s.CurrentTime); err != nil {
				return false, nil, err
			}
			return true, nil, nil
		}

		placement, err := s.SelectResources(id)
		if err != nil || !placement.Feasible {
			continue
		}

		var dec *rollout.Decision
		if rcfg.Enabled {
			d, triggered := rollout.Evaluate(s, id, placement.Resources, placement.Completion, rcfg, neutralDefaultCR, func(clone *schedcore.State) (bool, bool) {
				return greedySimStep(clone)
			})
			if triggered {
				dec = d
				s.Log.Check("rollout %s vs %s: committed=%v", dec.TaskID, dec.CompetitorID, dec.Committed)
				if !dec.Committed {
					s.Telemetry.Emit(telemetry.Event{Timestamp: time.Now(), Kind: telemetry.KindSkipRollout, TaskID: id, Data: dec}) //nolint:errcheck // best-effort
					continue
				}
			}
		}

		s.Commit(id, placement.Resources, s.CurrentTime, placement.Completion)
		if err := markScheduled(cache, scheduledFinish, epoch, id, placement.Completion); err != nil {
			return false, nil, err
		}
		return true, dec, nil
	}
	return false, nil, nil
}

// markScheduled records a committed task's finish offset (as a day count
// from the run's epoch, matching critpath.ScheduledFinish's unit) and
// invalidates every cached target whose critical path included it.
// scheduledFinish is the same map instance the Cache was built with, so the
// update is visible to the Cache's own findSubgraph/Calculate calls without
// any extra API.
func markScheduled(cache *critpath.Cache, scheduledFinish critpath.ScheduledFinish, epoch time.Time, id string, finish time.Time) error {
	scheduledFinish[id] = float64(calendar.DaysBetween(epoch, finish))
	return cache.OnTaskScheduled(id)
}

// bestWSPTEligible picks, among candidateIDs (a target's critical-path
// task set) the unscheduled, dependency-satisfied task maximizing WSPT =
// priority / max(0.1, duration), tying on
// task id.
func bestWSPTEligible(s *schedcore.State, candidateIDs []string) (string, bool) {
	best := ""
	bestScore := math.Inf(-1)
	found := false
	for _, id := range candidateIDs {
		if !s.IsUnscheduled(id) || !s.IsEligibleAt(id, s.CurrentTime) {
			continue
		}
		t := s.ByID[id]
		priority := effectivePriority(s, id)
		score := float64(priority) / math.Max(0.1, t.DurationDays)
		if !found || score > bestScore || (score == bestScore && id < best) {
			best, bestScore, found = id, score, true
		}
	}
	return best, found
}

// greedySimStep is the rollout simulation driver for this scheduler: a
// plain WSPT-ranked greedy pick over the whole eligible set, not
// restricted to any one target's critical path. Re-deriving critical-path
// targets on every simulated commit would require cloning internal/critpath's
// Cache as well as schedcore.State; since rollout's lookahead is already an
// approximation, a flat WSPT greedy pick is accurate enough to score the two
// scenarios against each other.
func greedySimStep(s *schedcore.State) (progressed, done bool) {
	if s.Done() {
		return false, true
	}
	eligible := s.EligibleSet(s.CurrentTime)
	best := ""
	bestScore := math.Inf(-1)
	for _, id := range eligible {
		t := s.ByID[id]
		if t.IsMilestone() {
			s.Commit(id, nil, s.CurrentTime, s.CurrentTime)
			return true, false
		}
		priority := effectivePriority(s, id)
		score := float64(priority) / math.Max(0.1, t.DurationDays)
		if score > bestScore {
			best, bestScore = id, score
		}
	}
	if best != "" {
		placement, err := s.SelectResources(best)
		if err == nil && placement.Feasible {
			s.Commit(best, placement.Resources, s.CurrentTime, placement.Completion)
			return true, false
		}
	}
	next, ok := s.NextEventTime()
	if !ok {
		return false, true
	}
	s.CurrentTime = next
	return true, false
}

func effectivePriority(s *schedcore.State, id string) int {
	if p, ok := s.EffectivePriority[id]; ok {
		return p
	}
	if t, ok := s.ByID[id]; ok && t.Priority != nil {
		return *t.Priority
	}
	return 50
}
