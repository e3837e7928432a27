package critpath

import (
	"testing"
	"time"

	"github.com/kestrelplan/pulsar/internal/model"
)

func TestCalculateSingleTask(t *testing.T) {
	byID := map[string]model.Task{"A": {ID: "A", DurationDays: 5}}
	info, err := Calculate(byID, "A", nil, nil)
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}
	if info.CriticalPathLength != 5 {
		t.Errorf("CriticalPathLength = %v, want 5", info.CriticalPathLength)
	}
	if len(info.CriticalPathTasks) != 1 || info.CriticalPathTasks[0] != "A" {
		t.Errorf("CriticalPathTasks = %v, want [A]", info.CriticalPathTasks)
	}
}

func TestCalculateChain(t *testing.T) {
	byID := map[string]model.Task{
		"A": {ID: "A", DurationDays: 2},
		"B": {ID: "B", DurationDays: 3, Dependencies: []model.Dependency{{PredecessorID: "A"}}},
	}
	info, err := Calculate(byID, "B", nil, nil)
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}
	if info.CriticalPathLength != 5 {
		t.Errorf("CriticalPathLength = %v, want 5", info.CriticalPathLength)
	}
	if len(info.CriticalPathTasks) != 2 {
		t.Errorf("CriticalPathTasks = %v, want both A and B critical", info.CriticalPathTasks)
	}
}

func TestCalculateParallelPathsWithSlack(t *testing.T) {
	byID := map[string]model.Task{
		"A": {ID: "A", DurationDays: 2},
		"B": {ID: "B", DurationDays: 5, Dependencies: []model.Dependency{{PredecessorID: "A"}}},
		"C": {ID: "C", DurationDays: 1, Dependencies: []model.Dependency{{PredecessorID: "A"}}},
		"D": {ID: "D", DurationDays: 1, Dependencies: []model.Dependency{{PredecessorID: "B"}, {PredecessorID: "C"}}},
	}
	info, err := Calculate(byID, "D", nil, nil)
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}
	// Critical path: A(2) -> B(5) -> D(1) = 8. C has slack (B's path dominates).
	if info.CriticalPathLength != 8 {
		t.Errorf("CriticalPathLength = %v, want 8", info.CriticalPathLength)
	}
	if info.Timings["C"].IsCritical() {
		t.Error("C should have slack, not be on the critical path")
	}
	if !info.Timings["B"].IsCritical() {
		t.Error("B should be on the critical path")
	}
}

func TestCalculateCompletedDependencyExcluded(t *testing.T) {
	byID := map[string]model.Task{
		"A": {ID: "A", DurationDays: 10},
		"B": {ID: "B", DurationDays: 3, Dependencies: []model.Dependency{{PredecessorID: "A"}}},
	}
	completed := map[string]bool{"A": true}
	info, err := Calculate(byID, "B", completed, nil)
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}
	if info.CriticalPathLength != 3 {
		t.Errorf("CriticalPathLength = %v, want 3 (A excluded as completed)", info.CriticalPathLength)
	}
}

func TestCalculateCircularDependency(t *testing.T) {
	byID := map[string]model.Task{
		"A": {ID: "A", DurationDays: 1, Dependencies: []model.Dependency{{PredecessorID: "B"}}},
		"B": {ID: "B", DurationDays: 1, Dependencies: []model.Dependency{{PredecessorID: "A"}}},
	}
	_, err := Calculate(byID, "A", nil, nil)
	if err == nil {
		t.Fatal("expected circular dependency error, got nil")
	}
}

func TestRankedTargetsHigherScoreFirst(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	infos := []Info{
		{TargetID: "short", TotalWork: 1, CriticalPathLength: 1},
		{TargetID: "long", TotalWork: 10, CriticalPathLength: 10},
	}
	priority := map[string]int{"short": 50, "long": 50}
	cfg := model.DefaultCriticalPathConfig()
	ranked := RankedTargets(infos, priority, nil, now, cfg)
	if len(ranked) != 2 {
		t.Fatalf("expected 2 ranked targets, got %d", len(ranked))
	}
	if ranked[0].TargetID != "short" {
		t.Errorf("highest-ranked target = %q, want %q (higher P/W)", ranked[0].TargetID, "short")
	}
}

func TestCacheIncrementalInvalidation(t *testing.T) {
	byID := map[string]model.Task{
		"A": {ID: "A", DurationDays: 2},
		"B": {ID: "B", DurationDays: 3, Dependencies: []model.Dependency{{PredecessorID: "A"}}},
		"C": {ID: "C", DurationDays: 4},
	}
	cache, err := NewCache(byID, nil, ScheduledFinish{})
	if err != nil {
		t.Fatalf("NewCache returned error: %v", err)
	}
	if len(cache.Targets()) != 3 {
		t.Fatalf("expected 3 targets (A, B, C each their own target), got %d", len(cache.Targets()))
	}

	scheduled := ScheduledFinish{"A": 2}
	cache.scheduled = scheduled
	if err := cache.OnTaskScheduled("A"); err != nil {
		t.Fatalf("OnTaskScheduled returned error: %v", err)
	}
	if _, ok := cache.targets["A"]; ok {
		t.Error("scheduled task A should be removed from targets")
	}
	bInfo, ok := cache.targets["B"]
	if !ok {
		t.Fatal("B should still be a target")
	}
	if bInfo.CriticalPathLength != 3 {
		t.Errorf("B's recomputed critical path length = %v, want 3 (A now scheduled, not in subgraph)", bInfo.CriticalPathLength)
	}
}
