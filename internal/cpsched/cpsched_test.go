package cpsched

import (
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

func TestScheduleChainCommitsInDependencyOrder(t *testing.T) {
	tasks := []model.Task{
		{ID: "a", DurationDays: 2, Resources: []model.ResourceUse{{Name: "alice"}}},
		{ID: "b", DurationDays: 3, Resources: []model.ResourceUse{{Name: "alice"}}, Dependencies: []model.Dependency{{PredecessorID: "a"}}},
	}
	cfg := resource.Config{ResourceOrder: []string{"alice"}}
	s := schedcore.New(tasks, map[string]bool{}, cfg, day("2025-01-01"), map[string]time.Time{}, map[string]int{})

	rcfg := model.DefaultRolloutConfig()
	rcfg.Enabled = false
	res, err := Schedule(s, model.DefaultCriticalPathConfig(), rcfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Failed) != 0 {
		t.Fatalf("Failed = %v, want none", res.Failed)
	}

	a := s.Scheduled["a"]
	b := s.Scheduled["b"]
	if !a.Start.Equal(day("2025-01-01")) {
		t.Errorf("a.Start = %v, want 2025-01-01", a.Start)
	}
	if !b.Start.After(a.End) && !b.Start.Equal(a.End) {
		t.Errorf("b should not start before a finishes: a.End=%v b.Start=%v", a.End, b.Start)
	}
}

func TestScheduleTwoTargetsPicksHigherPriorityFirst(t *testing.T) {
	tasks := []model.Task{
		{ID: "low", DurationDays: 2, Priority: intPtr(10), Resources: []model.ResourceUse{{Name: "alice"}}},
		{ID: "high", DurationDays: 2, Priority: intPtr(95), Resources: []model.ResourceUse{{Name: "alice"}}},
	}
	cfg := resource.Config{ResourceOrder: []string{"alice"}}
	s := schedcore.New(tasks, map[string]bool{}, cfg, day("2025-01-01"), map[string]time.Time{}, map[string]int{"low": 10, "high": 95})

	rcfg := model.DefaultRolloutConfig()
	rcfg.Enabled = false
	res, err := Schedule(s, model.DefaultCriticalPathConfig(), rcfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Failed) != 0 {
		t.Fatalf("Failed = %v, want none", res.Failed)
	}

	high := s.Scheduled["high"]
	if !high.Start.Equal(day("2025-01-01")) {
		t.Errorf("higher-priority target should be scheduled first, high.Start = %v", high.Start)
	}
}

func intPtr(v int) *int { return &v }
