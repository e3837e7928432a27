// Package rollout implements the bounded-lookahead simulation that decides
// whether to commit a greedily-chosen task now or defer it in favor of an
// upcoming higher-value competitor, unified into a single evaluation entry
// point shared by both forward schedulers.
package rollout

import (
	"math"
	"time"

	"github.com/kestrelplan/pulsar/internal/calendar"
	"github.com/kestrelplan/pulsar/internal/model"
	"github.com/kestrelplan/pulsar/internal/schedcore"
)

// StepFunc advances state s by exactly one greedy scheduling iteration —
// attempting a single commit, or advancing current_time when nothing is
// eligible — without itself consulting rollout. Supplied by internal/sgs
// and internal/cpsched so rollout's own lookahead simulation never
// recurses into rollout again. progressed is false only once nothing more
// can happen (done is true) or the iteration cap inside the caller's own
// loop should stop advancing.
type StepFunc func(s *schedcore.State) (progressed, done bool)

// Decision records one rollout trigger's outcome for diagnostics.
type Decision struct {
	TaskID             string
	CompetitorID       string
	TaskPriority       int
	CompetitorPriority int
	TaskCR             float64
	CompetitorCR       float64
	ScoreA             float64
	ScoreB             float64
	Committed          bool
}

const maxSimulationMultiplier = 10

// Evaluate decides whether task id should be committed now on the given
// resources (finishing at completion), or deferred in favor of a competing
// task. ok is false when rollout was not triggered (a
// cheap gate failed, or no competitor was found); the caller should commit
// normally in that case.
func Evaluate(s *schedcore.State, id string, resources []string, completion time.Time, cfg model.RolloutConfig, defaultCR float64, step StepFunc) (decision *Decision, ok bool) {
	t := s.ByID[id]
	if t.IsMilestone() {
		return nil, false
	}

	priority := effectivePriority(s, id)
	cr := criticalRatio(s, id, priority, defaultCR)
	slackRich := cr > cfg.CRRelaxedThreshold
	if priority >= cfg.PriorityThreshold && !slackRich {
		return nil, false
	}

	competitorID, competitorCR, latestCompletion, found := findCompetitor(s, id, priority, cr, completion, cfg, defaultCR)
	if !found {
		return nil, false
	}

	horizon := latestCompletion
	if cfg.MaxHorizonDays != nil {
		capped := calendar.AddDays(s.CurrentTime, *cfg.MaxHorizonDays)
		if capped.Before(horizon) {
			horizon = capped
		}
	}

	scoreA := simulate(s, step, horizon, func(clone *schedcore.State) {
		clone.Commit(id, resources, clone.CurrentTime, completion)
	})
	scoreB := simulate(s, step, horizon, func(clone *schedcore.State) {
		clone.NotBefore[id] = calendar.AddDays(clone.CurrentTime, 1)
	})

	commit := scoreA <= scoreB
	d := &Decision{
		TaskID:             id,
		CompetitorID:       competitorID,
		TaskPriority:       priority,
		CompetitorPriority: effectivePriority(s, competitorID),
		TaskCR:             cr,
		CompetitorCR:       competitorCR,
		ScoreA:             scoreA,
		ScoreB:             scoreB,
		Committed:          commit,
	}
	if !commit {
		for _, r := range resources {
			s.RolloutReservations[r] = competitorID
		}
	}
	return d, true
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

func criticalRatio(s *schedcore.State, id string, priority int, defaultCR float64) float64 {
	t := s.ByID[id]
	slack := defaultCR
	if dl, ok := s.EffectiveDeadline[id]; ok {
		slack = float64(calendar.DaysBetween(s.CurrentTime, dl))
	}
	return slack / math.Max(1, t.DurationDays)
}

// findCompetitor looks for an unscheduled task other than id that either
// clearly outranks it in priority or is meaningfully more slack-starved,
// and whose earliest eligibility date falls strictly before completion.
// Among qualifying competitors, it reports the one with the latest
// estimated completion (eligible date plus its own ceil(duration)) — the
// binding constraint on how far the lookahead horizon must extend to give
// that competitor a chance to actually run — along with its critical ratio.
func findCompetitor(s *schedcore.State, id string, priority int, cr float64, completion time.Time, cfg model.RolloutConfig, defaultCR float64) (competitorID string, competitorCR float64, latestCompletion time.Time, found bool) {
	for _, other := range s.UnscheduledIDs() {
		if other == id {
			continue
		}
		otherPriority := effectivePriority(s, other)
		otherCR := criticalRatio(s, other, otherPriority, defaultCR)

		outranks := otherPriority >= priority+cfg.MinPriorityGap
		moreUrgent := otherCR < cr-cfg.MinCRUrgencyGap && abs(otherPriority-priority) <= cfg.MinPriorityGap
		if !outranks && !moreUrgent {
			continue
		}

		eligible, ok := s.EligibleDate(other)
		if !ok || !eligible.Before(completion) {
			continue
		}

		estimatedCompletion := calendar.AddDays(eligible, calendar.CeilDays(s.ByID[other].DurationDays))
		if !found || estimatedCompletion.After(latestCompletion) {
			competitorID = other
			competitorCR = otherCR
			latestCompletion = estimatedCompletion
			found = true
		}
	}
	return competitorID, competitorCR, latestCompletion, found
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// simulate clones s, applies setup (commit T, or block T via NotBefore),
// then drives step to horizon (bounded by 10 * |tasks| iterations),
// returning the schedule-quality score of the resulting clone.
func simulate(s *schedcore.State, step StepFunc, horizon time.Time, setup func(*schedcore.State)) float64 {
	clone := s.Clone()
	setup(clone)

	maxIter := maxSimulationMultiplier * len(clone.ByID)
	for i := 0; i < maxIter && clone.CurrentTime.Before(horizon) && !clone.Done(); i++ {
		_, done := step(clone)
		if done {
			break
		}
	}
	return scheduleQuality(s.CurrentTime, horizon, clone)
}

// scheduleQuality implements the rollout simulation's schedule-quality
// score: lower is better. epoch is the rollout-evaluation time, used as the
// zero point for "days from epoch".
func scheduleQuality(epoch, horizon time.Time, clone *schedcore.State) float64 {
	var score float64

	for _, rec := range clone.Result {
		priority := effectivePriority(clone, rec.TaskID)
		daysFromEpoch := float64(calendar.DaysBetween(epoch, rec.Start))
		score += daysFromEpoch * (float64(priority) / 100)

		if dl, ok := clone.EffectiveDeadline[rec.TaskID]; ok {
			tardiness := float64(calendar.DaysBetween(dl, rec.End))
			if tardiness > 0 {
				score += tardiness * float64(priority) * 10
			}
		}
	}

	// Judge eligibility as of the horizon even when the simulation stepped
	// past it; the clone is discarded after scoring.
	clone.CurrentTime = horizon
	for _, id := range clone.EligibleSet(horizon) {
		t := clone.ByID[id]
		priority := effectivePriority(clone, id)
		daysToHorizon := float64(calendar.DaysBetween(epoch, horizon))

		urgencyMultiplier := 1.0
		if dl, ok := clone.EffectiveDeadline[id]; ok {
			daysToDeadline := math.Max(1, float64(calendar.DaysBetween(horizon, dl)))
			urgencyMultiplier = math.Min(10, 10/daysToDeadline)

			if calendar.AddDays(horizon, calendar.CeilDays(t.DurationDays)).After(dl) {
				expectedEnd := calendar.AddDays(horizon, calendar.CeilDays(t.DurationDays))
				expectedTardiness := float64(calendar.DaysBetween(dl, expectedEnd))
				score += expectedTardiness * float64(priority) * 10
			}
		}
		score += urgencyMultiplier * (float64(priority) / 100) * daysToHorizon
	}

	return score
}
