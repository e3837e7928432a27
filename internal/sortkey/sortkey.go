// Package sortkey implements the four priority-rule sort keys used by the
// Parallel-SGS scheduler to order the eligible set at each event: each rule
// is a distinct, totally-ordered tuple, always tie-broken by task id.
package sortkey

import (
	"math"
	"sort"
	"time"

	"github.com/kestrelplan/pulsar/internal/calendar"
	"github.com/kestrelplan/pulsar/internal/model"
)

// Inputs bundles the per-task values a sort key needs, computed by the
// caller (the scheduler step) before ranking the eligible set.
type Inputs struct {
	TaskID       string
	DurationDays float64
	Priority     int
	Deadline     *time.Time // effective deadline, if any
	Now          time.Time
	DefaultCR    float64 // used when Deadline is nil

	// ATC-only fields.
	AvgDuration          float64
	AtcK                 float64
	AtcUrgencyFloor      float64
	AtcUrgencyMultiplier float64
}

// CriticalRatio computes slack / max(1, duration): lower means more urgent.
// Slack is (deadline - now) when a deadline exists, else the step's
// default_cr.
func (in Inputs) CriticalRatio() float64 {
	var slack float64
	if in.Deadline != nil {
		slack = float64(calendar.DaysBetween(in.Now, *in.Deadline))
	} else {
		slack = in.DefaultCR
	}
	return slack / math.Max(1, in.DurationDays)
}

// urgency mirrors critpath.RankedTargets's formula but parameterized by
// duration/avgDuration instead of work/avgWork.
func (in Inputs) urgency() float64 {
	if in.Deadline == nil {
		u := in.AtcUrgencyMultiplier
		if u < in.AtcUrgencyFloor {
			u = in.AtcUrgencyFloor
		}
		return u
	}
	slack := float64(calendar.DaysBetween(in.Now, *in.Deadline)) - in.DurationDays
	if slack <= 0 {
		return 1.0
	}
	avg := math.Max(1, in.AvgDuration)
	u := math.Exp(-slack / (in.AtcK * avg))
	if u < in.AtcUrgencyFloor {
		u = in.AtcUrgencyFloor
	}
	return u
}

// ATCScore computes (priority / max(0.1, duration)) * urgency.
func (in Inputs) ATCScore() float64 {
	return (float64(in.Priority) / math.Max(0.1, in.DurationDays)) * in.urgency()
}

// Key is a totally-ordered, strategy-tagged sort key. Less implements the
// comparison for exactly one Strategy at a time — callers must compare keys
// built with the same strategy.
type Key struct {
	strategy model.Strategy
	id       string

	priority int
	cr       float64
	weighted float64
	atc      float64
}

// Compute builds the sort key for one task under the configured strategy.
func Compute(in Inputs, cfg model.SchedulingConfig) Key {
	k := Key{strategy: cfg.Strategy, id: in.TaskID, priority: in.Priority, cr: in.CriticalRatio()}
	switch cfg.Strategy {
	case model.StrategyWeighted:
		k.weighted = cfg.CRWeight*k.cr + cfg.PriorityWeight*(100-float64(in.Priority))
	case model.StrategyATC:
		k.atc = in.ATCScore()
	}
	return k
}

// Less reports whether k sorts before o — i.e. k is more urgent — under
// their shared strategy. Ties always resolve by task id.
func (k Key) Less(o Key) bool {
	switch k.strategy {
	case model.StrategyPriorityFirst:
		if k.priority != o.priority {
			return k.priority > o.priority // -priority ascending == priority descending
		}
		if k.cr != o.cr {
			return k.cr < o.cr
		}
	case model.StrategyCRFirst:
		if k.cr != o.cr {
			return k.cr < o.cr
		}
		if k.priority != o.priority {
			return k.priority > o.priority
		}
	case model.StrategyWeighted:
		if k.weighted != o.weighted {
			return k.weighted < o.weighted
		}
	case model.StrategyATC:
		if k.atc != o.atc {
			return k.atc > o.atc // -atc_score ascending == atc_score descending
		}
	}
	return k.id < o.id
}

// SortTasks sorts ids according to their precomputed keys, using Key.Less.
func SortTasks(keys map[string]Key) []string {
	ids := make([]string, 0, len(keys))
	for id := range keys {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return keys[ids[i]].Less(keys[ids[j]]) })
	return ids
}
