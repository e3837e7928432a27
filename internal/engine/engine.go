// Package engine orchestrates a full scheduling run: validate inputs, run
// the backward pass, run the fixed-task prepass, then hand off to the
// configured forward scheduler. Sentinel errors are wrapped and comparable
// with errors.Is.
package engine

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kestrelplan/pulsar/internal/backward"
	"github.com/kestrelplan/pulsar/internal/cpsched"
	"github.com/kestrelplan/pulsar/internal/logx"
	"github.com/kestrelplan/pulsar/internal/model"
	"github.com/kestrelplan/pulsar/internal/resource"
	"github.com/kestrelplan/pulsar/internal/rollout"
	"github.com/kestrelplan/pulsar/internal/schedcore"
	"github.com/kestrelplan/pulsar/internal/sgs"
	"github.com/kestrelplan/pulsar/internal/telemetry"
)

// Algorithm names the forward scheduler used by a run.
type Algorithm string

const (
	AlgorithmParallelSGS  Algorithm = "parallel_sgs"
	AlgorithmCriticalPath Algorithm = "critical_path"
)

// Sentinel errors returned by Run: ErrCircularDependency comes from the
// backward pass, the rest from validate.
var (
	ErrDuplicateTaskID      = errors.New("duplicate task id")
	ErrSelfDependency       = errors.New("task depends on itself")
	ErrDanglingDependency   = errors.New("dependency refers to an unknown task")
	ErrResourceNotFound     = errors.New("resource not found")
	ErrUnknownStrategy      = errors.New("unknown strategy")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrCircularDependency   = backward.ErrCircularDependency
)

// FailedToScheduleError reports that the forward scheduler's outer loop
// stopped with tasks still unscheduled, either because its iteration budget
// ran out or because no future event time remained.
type FailedToScheduleError struct {
	ResidualIDs []string
}

func (e *FailedToScheduleError) Error() string {
	return fmt.Sprintf("failed to schedule %d task(s): %v", len(e.ResidualIDs), e.ResidualIDs)
}

// Input bundles everything the engine needs for one run.
type Input struct {
	Tasks       []model.Task
	Completed   map[string]bool
	CurrentDate time.Time

	ResourceConfig resource.Config

	Scheduler    Algorithm
	Scheduling   model.SchedulingConfig
	CriticalPath model.CriticalPathConfig
	Rollout      model.RolloutConfig

	// TelemetryPath, if non-empty, appends one JSONL event per commit plus
	// run_start/run_done bookends to this file.
	TelemetryPath string
}

// Result is the engine's output: the scheduled tasks, the algorithm used,
// and diagnostics accessors.
type Result struct {
	Algorithm Algorithm
	Strategy  model.Strategy
	Schedule  []model.ScheduledTask

	effectiveDeadline map[string]time.Time
	effectivePriority map[string]int
	decisions         []rollout.Decision
}

// EffectiveDeadlines returns the backward pass's derived deadlines.
func (r *Result) EffectiveDeadlines() map[string]time.Time { return r.effectiveDeadline }

// EffectivePriorities returns the backward pass's derived priorities.
func (r *Result) EffectivePriorities() map[string]int { return r.effectivePriority }

// RolloutDecisions returns every rollout decision made during the run, in
// commit order.
func (r *Result) RolloutDecisions() []rollout.Decision { return r.decisions }

// Run validates in, runs the backward pass and fixed-task prepass, then
// schedules every remaining task with the configured forward scheduler.
func Run(in Input) (*Result, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	bwResult, err := backward.Run(in.Tasks, in.Completed, in.Scheduling.DefaultPriority)
	if err != nil {
		return nil, err
	}

	s := schedcore.New(in.Tasks, in.Completed, in.ResourceConfig, in.CurrentDate, bwResult.EffectiveDeadline, bwResult.EffectivePriority)
	if level := logx.Level(in.Scheduling.Verbosity); level > logx.LevelSilent {
		s.Log = logx.New(level)
	}
	if in.TelemetryPath != "" {
		em, err := telemetry.NewEmitter(in.TelemetryPath)
		if err != nil {
			return nil, err
		}
		defer em.Close()
		s.Telemetry = em
	}
	algo := AlgorithmParallelSGS
	if in.Scheduler == AlgorithmCriticalPath {
		algo = AlgorithmCriticalPath
	}
	s.Telemetry.Emit(telemetry.Event{Timestamp: time.Now(), Kind: telemetry.KindRunStart, Data: string(algo)}) //nolint:errcheck // best-effort

	if err := s.PrepassFixedTasks(); err != nil {
		return nil, err
	}

	var decisions []rollout.Decision

	switch algo {
	case AlgorithmCriticalPath:
		res, err := cpsched.Schedule(s, in.CriticalPath, in.Rollout)
		if err != nil {
			return nil, err
		}
		decisions = res.Decisions
		if len(res.Failed) > 0 {
			s.Telemetry.Emit(telemetry.Event{Timestamp: time.Now(), Kind: telemetry.KindFailed, Data: res.Failed}) //nolint:errcheck // best-effort
			return nil, &FailedToScheduleError{ResidualIDs: res.Failed}
		}
	default:
		res := sgs.Schedule(s, in.Scheduling, in.Rollout)
		decisions = res.Decisions
		if len(res.Failed) > 0 {
			s.Telemetry.Emit(telemetry.Event{Timestamp: time.Now(), Kind: telemetry.KindFailed, Data: res.Failed}) //nolint:errcheck // best-effort
			return nil, &FailedToScheduleError{ResidualIDs: res.Failed}
		}
	}

	sort.Slice(s.Result, func(i, j int) bool { return s.Result[i].TaskID < s.Result[j].TaskID })

	s.Telemetry.Emit(telemetry.Event{Timestamp: time.Now(), Kind: telemetry.KindRunDone, Data: len(s.Result)}) //nolint:errcheck // best-effort

	return &Result{
		Algorithm:         algo,
		Strategy:          in.Scheduling.Strategy,
		Schedule:          s.Result,
		effectiveDeadline: bwResult.EffectiveDeadline,
		effectivePriority: bwResult.EffectivePriority,
		decisions:         decisions,
	}, nil
}

func validate(in Input) error {
	seen := make(map[string]bool, len(in.Tasks))
	for _, t := range in.Tasks {
		if seen[t.ID] {
			return fmt.Errorf("%w: %q", ErrDuplicateTaskID, t.ID)
		}
		seen[t.ID] = true
	}

	for _, t := range in.Tasks {
		for _, dep := range t.Dependencies {
			if dep.PredecessorID == t.ID {
				return fmt.Errorf("%w: %q", ErrSelfDependency, t.ID)
			}
			if !seen[dep.PredecessorID] && !in.Completed[dep.PredecessorID] {
				return fmt.Errorf("%w: %q depends on %q", ErrDanglingDependency, t.ID, dep.PredecessorID)
			}
		}
	}

	known := make(map[string]bool, len(in.ResourceConfig.ResourceOrder))
	for _, name := range in.ResourceConfig.ResourceOrder {
		known[name] = true
	}
	for _, t := range in.Tasks {
		for _, r := range t.Resources {
			if !known[r.Name] {
				return fmt.Errorf("%w: task %q references %q", ErrResourceNotFound, t.ID, r.Name)
			}
		}
		if t.UsesAutoAssignment() {
			if len(in.ResourceConfig.ExpandResourceSpec(t.ResourceSpec)) == 0 {
				return fmt.Errorf("%w: task %q resource_spec %q expands to nothing", ErrResourceNotFound, t.ID, t.ResourceSpec)
			}
		}
	}

	switch in.Scheduling.Strategy {
	case model.StrategyPriorityFirst, model.StrategyCRFirst, model.StrategyWeighted, model.StrategyATC:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStrategy, in.Scheduling.Strategy)
	}
	if in.Scheduling.Strategy == model.StrategyATC && in.Scheduling.ATCK <= 0 {
		return fmt.Errorf("%w: atc strategy requires a positive atc_k", ErrInvalidConfiguration)
	}
	if in.Scheduling.CRWeight < 0 || in.Scheduling.PriorityWeight < 0 {
		return fmt.Errorf("%w: negative weights", ErrInvalidConfiguration)
	}

	return nil
}
