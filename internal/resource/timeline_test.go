package resource

import (
	"testing"
	"time"

	"github.com/kestrelplan/pulsar/internal/calendar"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestCompletionForNoBusyPeriods(t *testing.T) {
	tl := NewTimeline("alice", nil)
	got := tl.CompletionFor(d(2025, 1, 1), 5)
	want := d(2025, 1, 6)
	if !got.Equal(want) {
		t.Errorf("CompletionFor = %v, want %v", got, want)
	}
}

func TestCompletionForSkipsGap(t *testing.T) {
	tl := NewTimeline("alice", nil)
	tl.AddBusy(d(2025, 1, 5), d(2025, 1, 10))
	got := tl.CompletionFor(d(2025, 1, 1), 5)
	want := d(2025, 1, 12)
	if !got.Equal(want) {
		t.Errorf("CompletionFor = %v, want %v", got, want)
	}
}

func TestCompletionForZeroDuration(t *testing.T) {
	tl := NewTimeline("alice", nil)
	start := d(2025, 1, 1)
	if got := tl.CompletionFor(start, 0); !got.Equal(start) {
		t.Errorf("zero-duration CompletionFor = %v, want %v", got, start)
	}
}

func TestCompletionForCache(t *testing.T) {
	tl := NewTimeline("alice", nil)
	first := tl.CompletionFor(d(2025, 1, 1), 3)
	second := tl.CompletionFor(d(2025, 1, 1), 3)
	if !first.Equal(second) {
		t.Errorf("cached CompletionFor mismatch: %v vs %v", first, second)
	}
}

func TestNextFreeSkipsBusy(t *testing.T) {
	tl := NewTimeline("alice", nil)
	tl.AddBusy(d(2025, 1, 1), d(2025, 1, 5))
	got := tl.NextFree(d(2025, 1, 1))
	want := d(2025, 1, 6)
	if !got.Equal(want) {
		t.Errorf("NextFree = %v, want %v", got, want)
	}
}

func TestAddBusyMergesAdjacent(t *testing.T) {
	tl := NewTimeline("alice", nil)
	tl.AddBusy(d(2025, 1, 1), d(2025, 1, 5))
	tl.AddBusy(d(2025, 1, 6), d(2025, 1, 10)) // one-day-adjacent, should merge
	if len(tl.busy) != 1 {
		t.Fatalf("expected 1 merged interval, got %d: %v", len(tl.busy), tl.busy)
	}
	if !tl.busy[0].Start.Equal(d(2025, 1, 1)) || !tl.busy[0].End.Equal(d(2025, 1, 10)) {
		t.Errorf("merged interval = %v, want [Jan1, Jan10]", tl.busy[0])
	}
}

func TestAddBusyKeepsDisjointSeparate(t *testing.T) {
	tl := NewTimeline("alice", nil)
	tl.AddBusy(d(2025, 1, 1), d(2025, 1, 2))
	tl.AddBusy(d(2025, 1, 10), d(2025, 1, 12))
	if len(tl.busy) != 2 {
		t.Fatalf("expected 2 disjoint intervals, got %d", len(tl.busy))
	}
}

func TestIsFree(t *testing.T) {
	tl := NewTimeline("alice", nil)
	tl.AddBusy(d(2025, 1, 5), d(2025, 1, 10))
	if tl.IsFree(d(2025, 1, 4), 3) {
		t.Error("expected IsFree=false when span overlaps busy interval")
	}
	if !tl.IsFree(d(2025, 1, 11), 2) {
		t.Error("expected IsFree=true for span after busy interval ends")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	tl := NewTimeline("alice", nil)
	tl.AddBusy(d(2025, 1, 1), d(2025, 1, 2))
	clone := tl.Clone()
	clone.AddBusy(d(2025, 1, 10), d(2025, 1, 12))
	if len(tl.busy) == len(clone.busy) {
		t.Error("mutating clone affected original timeline")
	}
}

func TestNewTimelineSeedsDNS(t *testing.T) {
	tl := NewTimeline("alice", []calendar.Range{{Start: d(2025, 1, 1), End: d(2025, 1, 3)}})
	got := tl.NextFree(d(2025, 1, 1))
	if !got.Equal(d(2025, 1, 4)) {
		t.Errorf("NextFree after DNS seed = %v, want Jan 4", got)
	}
}
