package critpath

import (
	"time"

	"github.com/kestrelplan/pulsar/internal/model"
)

// Cache maintains one critical-path Info per unscheduled task ("target"),
// plus a reverse index from task id to the set of targets whose critical
// path includes it, so that scheduling a single task only forces recompute
// of the targets it actually affects.
type Cache struct {
	byID      map[string]model.Task
	completed map[string]bool
	scheduled ScheduledFinish

	targets        map[string]Info
	taskToTargets  map[string]map[string]bool
}

// NewCache builds the cache for every task not already scheduled or
// completed.
func NewCache(byID map[string]model.Task, completed map[string]bool, scheduled ScheduledFinish) (*Cache, error) {
	c := &Cache{
		byID:          byID,
		completed:     completed,
		scheduled:     scheduled,
		targets:       make(map[string]Info),
		taskToTargets: make(map[string]map[string]bool),
	}
	for id := range byID {
		if completed[id] {
			continue
		}
		if _, ok := scheduled[id]; ok {
			continue
		}
		if err := c.recompute(id); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Cache) recompute(target string) error {
	info, err := Calculate(c.byID, target, c.completed, c.scheduled)
	if err != nil {
		return err
	}
	c.removeReverseEntries(target)
	c.targets[target] = info
	for _, taskID := range info.CriticalPathTasks {
		if c.taskToTargets[taskID] == nil {
			c.taskToTargets[taskID] = make(map[string]bool)
		}
		c.taskToTargets[taskID][target] = true
	}
	return nil
}

func (c *Cache) removeReverseEntries(target string) {
	if old, ok := c.targets[target]; ok {
		for _, taskID := range old.CriticalPathTasks {
			delete(c.taskToTargets[taskID], target)
			if len(c.taskToTargets[taskID]) == 0 {
				delete(c.taskToTargets, taskID)
			}
		}
	}
}

// OnTaskScheduled removes s from the cache (it is no longer a valid target)
// and recomputes every remaining target whose critical path included s.
func (c *Cache) OnTaskScheduled(s string) error {
	affected := make([]string, 0, len(c.taskToTargets[s]))
	for target := range c.taskToTargets[s] {
		if target != s {
			affected = append(affected, target)
		}
	}

	c.removeReverseEntries(s)
	delete(c.targets, s)
	delete(c.taskToTargets, s)

	for _, target := range affected {
		if _, stillPresent := c.targets[target]; !stillPresent {
			continue
		}
		if err := c.recompute(target); err != nil {
			return err
		}
	}
	return nil
}

// Targets returns every currently cached target's Info.
func (c *Cache) Targets() []Info {
	out := make([]Info, 0, len(c.targets))
	for _, info := range c.targets {
		out = append(out, info)
	}
	return out
}

// RankedTargets computes attractiveness scores for the cached targets and
// returns them ranked.
func (c *Cache) RankedTargets(priority map[string]int, deadline map[string]time.Time, now time.Time, cfg model.CriticalPathConfig) []Target {
	return RankedTargets(c.Targets(), priority, deadline, now, cfg)
}
