package sortkey

import (
	"testing"
	"time"

	"github.com/kestrelplan/pulsar/internal/model"
)

func TestPriorityFirstOrdersByPriorityDescending(t *testing.T) {
	cfg := model.SchedulingConfig{Strategy: model.StrategyPriorityFirst}
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	keys := map[string]Key{
		"low":  Compute(Inputs{TaskID: "low", Priority: 10, DurationDays: 1, Now: now, DefaultCR: 1}, cfg),
		"high": Compute(Inputs{TaskID: "high", Priority: 90, DurationDays: 1, Now: now, DefaultCR: 1}, cfg),
	}
	got := SortTasks(keys)
	if got[0] != "high" {
		t.Errorf("SortTasks = %v, want high first", got)
	}
}

func TestCRFirstOrdersByCRAscending(t *testing.T) {
	cfg := model.SchedulingConfig{Strategy: model.StrategyCRFirst}
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tight := now.AddDate(0, 0, 1)
	loose := now.AddDate(0, 0, 30)
	keys := map[string]Key{
		"tight": Compute(Inputs{TaskID: "tight", Priority: 50, DurationDays: 1, Now: now, Deadline: &tight}, cfg),
		"loose": Compute(Inputs{TaskID: "loose", Priority: 50, DurationDays: 1, Now: now, Deadline: &loose}, cfg),
	}
	got := SortTasks(keys)
	if got[0] != "tight" {
		t.Errorf("SortTasks = %v, want tight deadline first", got)
	}
}

func TestTieBreaksByTaskID(t *testing.T) {
	cfg := model.SchedulingConfig{Strategy: model.StrategyPriorityFirst}
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	keys := map[string]Key{
		"bravo":   Compute(Inputs{TaskID: "bravo", Priority: 50, DurationDays: 1, Now: now, DefaultCR: 1}, cfg),
		"alpha":   Compute(Inputs{TaskID: "alpha", Priority: 50, DurationDays: 1, Now: now, DefaultCR: 1}, cfg),
		"charlie": Compute(Inputs{TaskID: "charlie", Priority: 50, DurationDays: 1, Now: now, DefaultCR: 1}, cfg),
	}
	got := SortTasks(keys)
	want := []string{"alpha", "bravo", "charlie"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SortTasks = %v, want %v", got, want)
			break
		}
	}
}

func TestWeightedCombinesCRAndPriority(t *testing.T) {
	cfg := model.SchedulingConfig{Strategy: model.StrategyWeighted, CRWeight: 0.5, PriorityWeight: 0.5}
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	a := Compute(Inputs{TaskID: "a", Priority: 90, DurationDays: 1, Now: now, DefaultCR: 1}, cfg)
	b := Compute(Inputs{TaskID: "b", Priority: 10, DurationDays: 1, Now: now, DefaultCR: 1}, cfg)
	if !a.Less(b) {
		t.Error("higher-priority task should sort before lower-priority task under weighted strategy")
	}
}

func TestATCPastDeadlineMaximalUrgency(t *testing.T) {
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	past := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	in := Inputs{TaskID: "late", Priority: 50, DurationDays: 2, Now: now, Deadline: &past, AtcK: 2, AtcUrgencyFloor: 0.1}
	if got := in.urgency(); got != 1.0 {
		t.Errorf("urgency past deadline = %v, want 1.0", got)
	}
}
