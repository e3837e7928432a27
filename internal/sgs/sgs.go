// Package sgs implements the Parallel-SGS (parallel schedule-generation scheme)
// forward scheduler: at each event, rank the eligible set by the
// configured sort rule and commit the best feasible candidate, consulting
// rollout before each commit.
package sgs

import (
	"math"
	"time"

	"github.com/kestrelplan/pulsar/internal/calendar"
	"github.com/kestrelplan/pulsar/internal/model"
	"github.com/kestrelplan/pulsar/internal/rollout"
	"github.com/kestrelplan/pulsar/internal/schedcore"
	"github.com/kestrelplan/pulsar/internal/sortkey"
	"github.com/kestrelplan/pulsar/internal/telemetry"
)

const maxIterationMultiplier = 100

// Result is the outcome of a full scheduling run: any tasks that could not
// be scheduled within the bounded iteration budget, plus every rollout
// decision made along the way.
type Result struct {
	Failed    []string
	Decisions []rollout.Decision
}

// Schedule runs the Parallel-SGS outer loop to completion or exhaustion of
// its iteration budget.
func Schedule(s *schedcore.State, cfg model.SchedulingConfig, rcfg model.RolloutConfig) Result {
	maxIter := maxIterationMultiplier * len(s.ByID)
	var decisions []rollout.Decision

	for i := 0; i < maxIter && !s.Done(); i++ {
		committed, dec := step(s, cfg, rcfg)
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

	return Result{Failed: s.UnscheduledIDs(), Decisions: decisions}
}

// step performs exactly one SGS iteration:
// build and sort the eligible set, then walk it in order, committing the
// first feasible task that rollout does not veto.
func step(s *schedcore.State, cfg model.SchedulingConfig, rcfg model.RolloutConfig) (bool, *rollout.Decision) {
	order, defaultCR := rankedEligible(s, cfg)
	if len(order) == 0 {
		return false, nil
	}

	for _, id := range order {
		t := s.ByID[id]
		if t.IsMilestone() {
			s.Commit(id, nil, s.CurrentTime, s.CurrentTime)
			return true, nil
		}

		placement, err := s.SelectResources(id)
		if err != nil || !placement.Feasible {
			continue
		}

		var dec *rollout.Decision
		if rcfg.Enabled {
			d, triggered := rollout.Evaluate(s, id, placement.Resources, placement.Completion, rcfg, defaultCR, func(clone *schedcore.State) (bool, bool) {
				return greedyStep(clone, cfg)
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
		return true, dec
	}
	return false, nil
}

// greedyStep is the rollout-free single-iteration step handed to
// rollout.Evaluate as its simulation driver: it never itself consults
// rollout, so rollout's own lookahead cannot recurse into rollout again.
func greedyStep(s *schedcore.State, cfg model.SchedulingConfig) (progressed, done bool) {
	if s.Done() {
		return false, true
	}
	order, _ := rankedEligible(s, cfg)
	for _, id := range order {
		t := s.ByID[id]
		if t.IsMilestone() {
			s.Commit(id, nil, s.CurrentTime, s.CurrentTime)
			return true, false
		}
		placement, err := s.SelectResources(id)
		if err != nil || !placement.Feasible {
			continue
		}
		s.Commit(id, placement.Resources, s.CurrentTime, placement.Completion)
		return true, false
	}
	next, ok := s.NextEventTime()
	if !ok {
		return false, true
	}
	s.CurrentTime = next
	return true, false
}

// rankedEligible builds the eligible set at the current time and sorts it
// by the configured rule, also returning the step's default_cr (used by
// tasks without a deadline and by rollout's critical-ratio comparisons).
func rankedEligible(s *schedcore.State, cfg model.SchedulingConfig) ([]string, float64) {
	eligible := s.EligibleSet(s.CurrentTime)
	if len(eligible) == 0 {
		return nil, defaultCRFor(s, cfg)
	}

	defaultCR, avgDuration := stepParameters(s, cfg)

	keys := make(map[string]sortkey.Key, len(eligible))
	for _, id := range eligible {
		keys[id] = computeKey(s, id, cfg, defaultCR, avgDuration)
	}
	ranked := sortkey.SortTasks(keys)
	for _, id := range ranked {
		s.Log.Debug("score %s: %+v", id, keys[id])
	}
	return ranked, defaultCR
}

// stepParameters computes default_cr and avg_duration over every
// unscheduled task at the current step.
func stepParameters(s *schedcore.State, cfg model.SchedulingConfig) (defaultCR, avgDuration float64) {
	defaultCR = defaultCRFor(s, cfg)

	var totalDuration float64
	var count int
	for _, id := range s.UnscheduledIDs() {
		totalDuration += s.ByID[id].DurationDays
		count++
	}
	if count > 0 {
		avgDuration = totalDuration / float64(count)
	}
	return defaultCR, avgDuration
}

func defaultCRFor(s *schedcore.State, cfg model.SchedulingConfig) float64 {
	maxCR := 0.0
	for _, id := range s.UnscheduledIDs() {
		dl, ok := s.EffectiveDeadline[id]
		if !ok {
			continue
		}
		t := s.ByID[id]
		slack := float64(calendar.DaysBetween(s.CurrentTime, dl))
		cr := slack / math.Max(1, t.DurationDays)
		if cr > maxCR {
			maxCR = cr
		}
	}
	dcr := cfg.DefaultCRFloor
	if v := maxCR * cfg.DefaultCRMultiplier; v > dcr {
		dcr = v
	}
	return dcr
}

func computeKey(s *schedcore.State, id string, cfg model.SchedulingConfig, defaultCR, avgDuration float64) sortkey.Key {
	t := s.ByID[id]
	priority := effectivePriority(s, id)

	in := sortkey.Inputs{
		TaskID:               id,
		DurationDays:         t.DurationDays,
		Priority:             priority,
		Now:                  s.CurrentTime,
		DefaultCR:            defaultCR,
		AvgDuration:          avgDuration,
		AtcK:                 cfg.ATCK,
		AtcUrgencyFloor:      cfg.ATCDefaultUrgencyFloor,
		AtcUrgencyMultiplier: cfg.ATCDefaultUrgencyMultiplier,
	}
	if dl, ok := s.EffectiveDeadline[id]; ok {
		in.Deadline = &dl
	}
	return sortkey.Compute(in, cfg)
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
