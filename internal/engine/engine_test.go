package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/kestrelplan/pulsar/internal/model"
	"github.com/kestrelplan/pulsar/internal/resource"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func dayPtr(s string) *time.Time {
	d := day(s)
	return &d
}

func intPtr(v int) *int { return &v }

func baseInput() Input {
	return Input{
		Completed:      map[string]bool{},
		CurrentDate:    day("2025-01-01"),
		ResourceConfig: resource.Config{},
		Scheduling:     model.DefaultSchedulingConfig(),
		CriticalPath:   model.DefaultCriticalPathConfig(),
		Rollout:        model.DefaultRolloutConfig(),
	}
}

// Scenario 1: a simple two-task chain with no resource contention schedules
// the dependent starting the day after its predecessor finishes.
func TestRunSimpleChain(t *testing.T) {
	in := baseInput()
	in.Rollout.Enabled = false
	in.Tasks = []model.Task{
		{ID: "a", DurationDays: 2},
		{ID: "b", DurationDays: 3, Dependencies: []model.Dependency{{PredecessorID: "a"}}},
	}

	res, err := Run(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byID := scheduleByID(res)
	a := byID["a"]
	b := byID["b"]
	if !a.Start.Equal(day("2025-01-01")) || !a.End.Equal(day("2025-01-03")) {
		t.Errorf("a = %+v, want start 2025-01-01 end 2025-01-03", a)
	}
	if !b.Start.Equal(day("2025-01-04")) || !b.End.Equal(day("2025-01-07")) {
		t.Errorf("b = %+v, want start 2025-01-04 end 2025-01-07", b)
	}
}

// Scenario 2: two independent tasks with no shared resources both start on
// the run's current date.
func TestRunParallelIndependentTasks(t *testing.T) {
	in := baseInput()
	in.Rollout.Enabled = false
	in.Tasks = []model.Task{
		{ID: "a", DurationDays: 2},
		{ID: "b", DurationDays: 3},
	}

	res, err := Run(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	byID := scheduleByID(res)
	if !byID["a"].Start.Equal(day("2025-01-01")) {
		t.Errorf("a.Start = %v, want 2025-01-01", byID["a"].Start)
	}
	if !byID["b"].Start.Equal(day("2025-01-01")) {
		t.Errorf("b.Start = %v, want 2025-01-01", byID["b"].Start)
	}
}

// Scenario 3: a chain where only the final task carries a deadline
// propagates that deadline backward through the whole chain, offset by each
// downstream task's own duration.
func TestRunBackwardPassChain(t *testing.T) {
	in := baseInput()
	in.Rollout.Enabled = false
	in.Tasks = []model.Task{
		{ID: "a", DurationDays: 2},
		{ID: "b", DurationDays: 3, Dependencies: []model.Dependency{{PredecessorID: "a"}}, EndBefore: dayPtr("2025-01-20")},
	}

	res, err := Run(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	deadlines := res.EffectiveDeadlines()
	if !deadlines["b"].Equal(day("2025-01-20")) {
		t.Errorf("effective_deadline[b] = %v, want 2025-01-20", deadlines["b"])
	}
	if !deadlines["a"].Equal(day("2025-01-17")) {
		t.Errorf("effective_deadline[a] = %v, want 2025-01-17", deadlines["a"])
	}
}

// Scenario 4: a diamond dependency (A -> B, A -> C, B -> D, C -> D) with a
// deadline only on D propagates the tighter of the two paths back to A.
func TestRunDiamondDeadlineTightening(t *testing.T) {
	in := baseInput()
	in.Rollout.Enabled = false
	in.Tasks = []model.Task{
		{ID: "a", DurationDays: 2},
		{ID: "b", DurationDays: 5, Dependencies: []model.Dependency{{PredecessorID: "a"}}},
		{ID: "c", DurationDays: 1, Dependencies: []model.Dependency{{PredecessorID: "a"}}},
		{ID: "d", DurationDays: 1, Dependencies: []model.Dependency{{PredecessorID: "b"}, {PredecessorID: "c"}}, EndBefore: dayPtr("2025-01-28")},
	}

	res, err := Run(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	deadlines := res.EffectiveDeadlines()
	if !deadlines["a"].Equal(day("2025-01-22")) {
		t.Errorf("effective_deadline[a] = %v, want 2025-01-22 (tightened by the longer b path)", deadlines["a"])
	}
}

// Scenario 5: a circular dependency is rejected before any scheduling is
// attempted.
func TestRunCircularDependencyFails(t *testing.T) {
	in := baseInput()
	in.Tasks = []model.Task{
		{ID: "a", DurationDays: 1, Dependencies: []model.Dependency{{PredecessorID: "b"}}},
		{ID: "b", DurationDays: 1, Dependencies: []model.Dependency{{PredecessorID: "a"}}},
	}

	_, err := Run(in)
	if !errors.Is(err, ErrCircularDependency) {
		t.Fatalf("err = %v, want ErrCircularDependency", err)
	}
}

// Scenario 6: given two independent single-resource targets, the
// critical-path scheduler picks the shorter (easier-to-finish) target
// first, ahead of a much longer one competing for the same resource.
func TestRunLowHangingFruitTargetRanking(t *testing.T) {
	in := baseInput()
	in.Scheduler = AlgorithmCriticalPath
	in.CriticalPath.RolloutEnabled = false
	in.Rollout.Enabled = false
	in.ResourceConfig = resource.Config{ResourceOrder: []string{"alice"}}
	in.Tasks = []model.Task{
		{ID: "short", DurationDays: 1, Priority: intPtr(50), Resources: []model.ResourceUse{{Name: "alice"}}},
		{ID: "long", DurationDays: 10, Priority: intPtr(50), Resources: []model.ResourceUse{{Name: "alice"}}},
	}

	res, err := Run(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	byID := scheduleByID(res)
	if !byID["short"].Start.Equal(day("2025-01-01")) {
		t.Errorf("short.Start = %v, want 2025-01-01 (scheduled before the longer competing target)", byID["short"].Start)
	}
}

// Scenario 7: a low-priority long task and a high-priority short task
// become eligible on the same date and compete for one resource; rollout
// should defer the low-priority task behind the high-priority one rather
// than committing it first merely because it sorted first.
func TestRunRolloutDefersLowPriorityBehindHighPriority(t *testing.T) {
	in := baseInput()
	in.ResourceConfig = resource.Config{ResourceOrder: []string{"alice"}}
	in.Rollout.Enabled = true
	in.Tasks = []model.Task{
		{
			ID: "gate", DurationDays: 2, Priority: intPtr(50),
		},
		{
			ID: "low", DurationDays: 10, Priority: intPtr(30),
			Dependencies: []model.Dependency{{PredecessorID: "gate"}},
			Resources:    []model.ResourceUse{{Name: "alice"}},
		},
		{
			ID: "high", DurationDays: 2, Priority: intPtr(90),
			Dependencies: []model.Dependency{{PredecessorID: "gate"}},
			Resources:    []model.ResourceUse{{Name: "alice"}},
		},
	}

	res, err := Run(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	byID := scheduleByID(res)
	high := byID["high"]
	low := byID["low"]
	if !low.Start.After(high.Start) {
		t.Errorf("low.Start = %v, high.Start = %v: rollout should have deferred the lower-priority task", low.Start, high.Start)
	}
}

func scheduleByID(res *Result) map[string]model.ScheduledTask {
	out := make(map[string]model.ScheduledTask, len(res.Schedule))
	for _, st := range res.Schedule {
		out[st.TaskID] = st
	}
	return out
}
