package backward

import (
	"errors"
	"testing"
	"time"

	"github.com/kestrelplan/pulsar/internal/model"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func intp(v int) *int { return &v }

func TestBackwardPassChainDeadline(t *testing.T) {
	endBefore := d(2025, 1, 20)
	tasks := []model.Task{
		{ID: "A", DurationDays: 5},
		{ID: "B", DurationDays: 3, Dependencies: []model.Dependency{{PredecessorID: "A"}}, EndBefore: &endBefore},
	}
	result, err := Run(tasks, nil, 50)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	wantA := d(2025, 1, 17)
	wantB := d(2025, 1, 20)
	if !result.EffectiveDeadline["A"].Equal(wantA) {
		t.Errorf("effective_deadline[A] = %v, want %v", result.EffectiveDeadline["A"], wantA)
	}
	if !result.EffectiveDeadline["B"].Equal(wantB) {
		t.Errorf("effective_deadline[B] = %v, want %v", result.EffectiveDeadline["B"], wantB)
	}
}

func TestBackwardPassDiamondTakesTighterDeadline(t *testing.T) {
	endBefore := d(2025, 1, 30)
	tasks := []model.Task{
		{ID: "A", DurationDays: 2},
		{ID: "B", DurationDays: 3, Dependencies: []model.Dependency{{PredecessorID: "A"}}},
		{ID: "C", DurationDays: 5, Dependencies: []model.Dependency{{PredecessorID: "A"}}},
		{ID: "D", DurationDays: 4, EndBefore: &endBefore, Dependencies: []model.Dependency{
			{PredecessorID: "B"}, {PredecessorID: "C"},
		}},
	}
	result, err := Run(tasks, nil, 50)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	want := d(2025, 1, 21)
	if !result.EffectiveDeadline["A"].Equal(want) {
		t.Errorf("effective_deadline[A] = %v, want %v (tighter of the two paths)", result.EffectiveDeadline["A"], want)
	}
}

func TestBackwardPassCircularDependency(t *testing.T) {
	tasks := []model.Task{
		{ID: "A", DurationDays: 1, Dependencies: []model.Dependency{{PredecessorID: "B"}}},
		{ID: "B", DurationDays: 1, Dependencies: []model.Dependency{{PredecessorID: "A"}}},
	}
	_, err := Run(tasks, nil, 50)
	if !errors.Is(err, ErrCircularDependency) {
		t.Fatalf("Run error = %v, want ErrCircularDependency", err)
	}
}

func TestBackwardPassExcludesCompletedPredecessor(t *testing.T) {
	tasks := []model.Task{
		{ID: "B", DurationDays: 3, Priority: intp(90), Dependencies: []model.Dependency{{PredecessorID: "A"}}},
	}
	completed := map[string]bool{"A": true}
	result, err := Run(tasks, completed, 50)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if _, ok := result.EffectivePriority["A"]; ok {
		t.Error("completed predecessor A should not appear in effective_priority")
	}
}

func TestBackwardPassDefaultPriority(t *testing.T) {
	tasks := []model.Task{{ID: "A", DurationDays: 1}}
	result, err := Run(tasks, nil, 42)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.EffectivePriority["A"] != 42 {
		t.Errorf("effective_priority[A] = %d, want default 42", result.EffectivePriority["A"])
	}
}

func TestBackwardPassPriorityPropagatesAsMax(t *testing.T) {
	tasks := []model.Task{
		{ID: "A", DurationDays: 1, Priority: intp(10)},
		{ID: "B", DurationDays: 1, Priority: intp(90), Dependencies: []model.Dependency{{PredecessorID: "A"}}},
	}
	result, err := Run(tasks, nil, 50)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.EffectivePriority["A"] != 90 {
		t.Errorf("effective_priority[A] = %d, want 90 (propagated from B)", result.EffectivePriority["A"])
	}
}
