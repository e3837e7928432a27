// Package schedcore holds the scheduler state and the operations shared by
// both forward schedulers (Parallel-SGS in internal/sgs, critical-path-first
// in internal/cpsched) and by the rollout engine's simulation clones
// (internal/rollout): eligibility, resource selection, committing a task,
// and advancing time to the next event.
//
// Unscheduled task ids are tracked as a map[int]bool keyed by
// intern.Interner ids rather than a bare map[string]bool, giving repeated
// eligibility sweeps a dense int key. UnscheduledIDs resolves those ids back
// to strings and returns them in lexicographic order.
package schedcore

import (
	"time"

	"github.com/kestrelplan/pulsar/internal/calendar"
	"github.com/kestrelplan/pulsar/internal/intern"
	"github.com/kestrelplan/pulsar/internal/logx"
	"github.com/kestrelplan/pulsar/internal/model"
	"github.com/kestrelplan/pulsar/internal/resource"
	"github.com/kestrelplan/pulsar/internal/telemetry"
)

// State is a scheduler snapshot: everything the forward schedulers mutate as
// they commit tasks, and everything rollout simulation needs to clone
//").
type State struct {
	ByID      map[string]model.Task
	Completed map[string]bool

	ResourceConfig resource.Config
	Timelines      map[string]*resource.Timeline

	Scheduled   map[string]model.ScheduledTask
	unscheduled map[int]bool
	interner    *intern.Interner

	CurrentTime time.Time
	Result      []model.ScheduledTask

	EffectiveDeadline map[string]time.Time
	EffectivePriority map[string]int

	// RolloutReservations records, purely for diagnostics, which resource
	// was reserved against which competitor after a rollout-driven skip.
	RolloutReservations map[string]string

	NotBefore map[string]time.Time // rollout: task may not be scheduled before this time in this clone

	// Log traces commits and eligibility checks at the configured verbosity.
	// A nil Log is silent; rollout clones inherit the same Log as the state
	// they were cloned from.
	Log *logx.Logger

	// Telemetry records one JSONL event per commit for run auditing. A nil
	// Telemetry is a no-op; rollout clones do not inherit it, since
	// simulation commits are not real run decisions.
	Telemetry *telemetry.Emitter
}

// New builds the initial scheduler state for a forward-scheduling run.
func New(tasks []model.Task, completed map[string]bool, resCfg resource.Config, currentTime time.Time, deadline map[string]time.Time, priority map[string]int) *State {
	s := &State{
		ByID:                 make(map[string]model.Task, len(tasks)),
		Completed:            completed,
		ResourceConfig:       resCfg,
		Timelines:            make(map[string]*resource.Timeline),
		Scheduled:            make(map[string]model.ScheduledTask),
		unscheduled:          make(map[int]bool),
		interner:             intern.New(),
		CurrentTime:          calendar.Day(currentTime),
		EffectiveDeadline:    deadline,
		EffectivePriority:    priority,
		RolloutReservations:  make(map[string]string),
		NotBefore:            make(map[string]time.Time),
	}
	for _, t := range tasks {
		s.ByID[t.ID] = t
		if completed[t.ID] {
			continue
		}
		id := s.interner.Intern(t.ID)
		s.unscheduled[id] = true
	}
	for _, name := range resCfg.ResourceOrder {
		s.Timelines[name] = resource.NewTimeline(name, resCfg.UnavailabilityFor(name))
	}
	return s
}

// Clone returns a deep copy for rollout simulation: mutating the clone never
// affects the original state.
func (s *State) Clone() *State {
	out := &State{
		ByID:                s.ByID, // tasks are immutable inputs, safe to share
		Completed:           s.Completed,
		ResourceConfig:      s.ResourceConfig,
		Timelines:           make(map[string]*resource.Timeline, len(s.Timelines)),
		Scheduled:           make(map[string]model.ScheduledTask, len(s.Scheduled)),
		unscheduled:         make(map[int]bool, len(s.unscheduled)),
		interner:            s.interner,
		CurrentTime:         s.CurrentTime,
		Result:              append([]model.ScheduledTask(nil), s.Result...),
		EffectiveDeadline:   s.EffectiveDeadline,
		EffectivePriority:   s.EffectivePriority,
		RolloutReservations: make(map[string]string, len(s.RolloutReservations)),
		NotBefore:           make(map[string]time.Time, len(s.NotBefore)),
		Log:                 s.Log,
	}
	for name, tl := range s.Timelines {
		out.Timelines[name] = tl.Clone()
	}
	for k, v := range s.Scheduled {
		out.Scheduled[k] = v
	}
	for k := range s.unscheduled {
		out.unscheduled[k] = true
	}
	for k, v := range s.RolloutReservations {
		out.RolloutReservations[k] = v
	}
	for k, v := range s.NotBefore {
		out.NotBefore[k] = v
	}
	return out
}

// UnscheduledIDs returns the currently unscheduled task ids in
// lexicographic order.
func (s *State) UnscheduledIDs() []string {
	ids := make([]string, 0, len(s.unscheduled))
	for idx := range s.unscheduled {
		ids = append(ids, s.interner.Resolve(idx))
	}
	sortStrings(ids)
	return ids
}

// IsUnscheduled reports whether id has neither been scheduled nor marked
// completed.
func (s *State) IsUnscheduled(id string) bool {
	idx, ok := s.interner.Lookup(id)
	if !ok {
		return false
	}
	return s.unscheduled[idx]
}

// Done reports whether every task has been scheduled or was already
// completed.
func (s *State) Done() bool {
	return len(s.unscheduled) == 0
}

// Commit finalizes task id on the given resources, ending at completion.
// For milestones, resources is empty and completion equals s.CurrentTime.
func (s *State) Commit(id string, resources []string, start, completion time.Time) {
	t := s.ByID[id]
	rec := model.ScheduledTask{
		TaskID:       id,
		Start:        calendar.Day(start),
		End:          calendar.Day(completion),
		DurationDays: t.DurationDays,
		Resources:    resources,
	}
	for _, r := range resources {
		if tl, ok := s.Timelines[r]; ok {
			tl.AddBusy(start, completion)
		}
	}
	s.Scheduled[id] = rec
	s.Result = append(s.Result, rec)
	if idx, ok := s.interner.Lookup(id); ok {
		delete(s.unscheduled, idx)
	}
	s.Log.Change("commit %s: %s..%s on %v", id, rec.Start.Format("2006-01-02"), rec.End.Format("2006-01-02"), resources)

	kind := telemetry.KindCommit
	if t.IsMilestone() {
		kind = telemetry.KindMilestone
	}
	s.Telemetry.Emit(telemetry.Event{ //nolint:errcheck // best-effort; a telemetry write failure must not abort scheduling
		Timestamp: time.Now(),
		Kind:      kind,
		TaskID:    id,
		Data:      rec,
	})
}

func sortStrings(ids []string) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}
