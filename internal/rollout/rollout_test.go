package rollout

import (
	"sort"
	"testing"
	"time"

	"github.com/kestrelplan/pulsar/internal/model"
	"github.com/kestrelplan/pulsar/internal/resource"
	"github.com/kestrelplan/pulsar/internal/schedcore"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

// greedyNoRollout is a minimal StepFunc standing in for the real
// scheduler's rollout-free step: commits the highest-priority eligible task
// with a feasible placement (ties broken by id), else advances to the next
// event time.
func greedyNoRollout(s *schedcore.State) (progressed, done bool) {
	if s.Done() {
		return false, true
	}
	eligible := s.EligibleSet(s.CurrentTime)
	sort.SliceStable(eligible, func(i, j int) bool {
		return s.EffectivePriority[eligible[i]] > s.EffectivePriority[eligible[j]]
	})
	for _, id := range eligible {
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

func TestEvaluateNotTriggeredWhenPriorityHighAndNotSlackRich(t *testing.T) {
	tasks := []model.Task{
		{ID: "a", DurationDays: 1, Resources: []model.ResourceUse{{Name: "alice"}}},
	}
	cfg := resource.Config{ResourceOrder: []string{"alice"}}
	s := schedcore.New(tasks, map[string]bool{}, cfg, day("2025-01-01"), map[string]time.Time{}, map[string]int{"a": 90})

	rcfg := model.DefaultRolloutConfig()
	_, ok := Evaluate(s, "a", []string{"alice"}, day("2025-01-02"), rcfg, 1.0, greedyNoRollout)
	if ok {
		t.Error("rollout should not trigger for a high-priority, non-slack-rich task")
	}
}

func TestEvaluateNotTriggeredWithoutCompetitor(t *testing.T) {
	tasks := []model.Task{
		{ID: "a", DurationDays: 1, Resources: []model.ResourceUse{{Name: "alice"}}},
	}
	cfg := resource.Config{ResourceOrder: []string{"alice"}}
	s := schedcore.New(tasks, map[string]bool{}, cfg, day("2025-01-01"), map[string]time.Time{}, map[string]int{"a": 10})

	rcfg := model.DefaultRolloutConfig()
	_, ok := Evaluate(s, "a", []string{"alice"}, day("2025-01-02"), rcfg, 1.0, greedyNoRollout)
	if ok {
		t.Error("rollout should not trigger when there is no competing task")
	}
}

func TestEvaluateTriggersAndPrefersHigherPriorityCompetitor(t *testing.T) {
	tasks := []model.Task{
		{ID: "low", DurationDays: 5, Resources: []model.ResourceUse{{Name: "alice"}}},
		{ID: "urgent", DurationDays: 1, Resources: []model.ResourceUse{{Name: "alice"}}, StartAfter: ptr(day("2025-01-02"))},
	}
	cfg := resource.Config{ResourceOrder: []string{"alice"}}
	priority := map[string]int{"low": 10, "urgent": 95}
	s := schedcore.New(tasks, map[string]bool{}, cfg, day("2025-01-01"), map[string]time.Time{}, priority)

	rcfg := model.DefaultRolloutConfig()
	dec, ok := Evaluate(s, "low", []string{"alice"}, day("2025-01-06"), rcfg, 1.0, greedyNoRollout)
	if !ok {
		t.Fatal("expected rollout to trigger: low priority task competing with a much higher priority one")
	}
	if dec.CompetitorID != "urgent" {
		t.Errorf("CompetitorID = %q, want urgent", dec.CompetitorID)
	}
	if dec.Committed {
		t.Error("expected rollout to skip committing low in favor of urgent")
	}
}

func ptr(t time.Time) *time.Time { return &t }
