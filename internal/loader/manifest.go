// Package loader reads a tasks.toml manifest into the engine's input types
// and watches it for edits: unmarshal then apply defaults, collapsed to a
// single manifest file since a scheduling run's task set is naturally one
// document.
package loader

import (
	"errors"
	"fmt"
	"os"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/kestrelplan/pulsar/internal/calendar"
	"github.com/kestrelplan/pulsar/internal/model"
	"github.com/kestrelplan/pulsar/internal/resource"
)

// ErrNoManifest indicates the manifest file does not exist at the given path.
var ErrNoManifest = errors.New("manifest not found")

const dateLayout = "2006-01-02"

// DependencySpec is one [[task.depends_on]] edge in the manifest.
type DependencySpec struct {
	ID      string  `toml:"id"`
	LagDays float64 `toml:"lag_days"`
}

// TaskSpec is one [[task]] table in the manifest, mirroring model.Task's
// fields with string dates and a flat resources list instead of
// model.ResourceUse.
type TaskSpec struct {
	ID           string           `toml:"id"`
	DurationDays float64          `toml:"duration_days"`
	Priority     *int             `toml:"priority"`
	Resources    []string         `toml:"resources"`
	ResourceSpec string           `toml:"resource_spec"`
	DependsOn    []DependencySpec `toml:"depends_on"`
	StartAfter   string           `toml:"start_after"`
	EndBefore    string           `toml:"end_before"`
	StartOn      string           `toml:"start_on"`
	EndOn        string           `toml:"end_on"`
}

// DateRangeSpec is one inclusive calendar window in the manifest.
type DateRangeSpec struct {
	Start string `toml:"start"`
	End   string `toml:"end"`
}

// ResourcesSpec is the manifest's [resources] table: canonical order,
// per-resource DNS windows, and named spec-group expansions.
type ResourcesSpec struct {
	Order  []string                   `toml:"order"`
	DNS    map[string][]DateRangeSpec `toml:"dns"`
	Groups map[string][]string        `toml:"groups"`
}

// Manifest is the root of tasks.toml.
type Manifest struct {
	CurrentDate          string          `toml:"current_date"`
	CompletedTaskIDs     []string        `toml:"completed_task_ids"`
	Tasks                []TaskSpec      `toml:"task"`
	Resources            ResourcesSpec   `toml:"resources"`
	GlobalUnavailability []DateRangeSpec `toml:"global_unavailability"`
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoManifest
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &m, nil
}

// Resolved is a manifest converted into the engine's native input types.
type Resolved struct {
	Tasks          []model.Task
	Completed      map[string]bool
	CurrentDate    time.Time
	ResourceConfig resource.Config
}

// Resolve converts the manifest's string dates and flat resource lists into
// model.Task/resource.Config records. now is used as CurrentDate when the
// manifest does not set current_date.
func (m *Manifest) Resolve(now time.Time) (Resolved, error) {
	var out Resolved
	out.Completed = make(map[string]bool, len(m.CompletedTaskIDs))
	for _, id := range m.CompletedTaskIDs {
		out.Completed[id] = true
	}

	out.CurrentDate = calendar.Day(now)
	if m.CurrentDate != "" {
		d, err := parseDate(m.CurrentDate)
		if err != nil {
			return Resolved{}, fmt.Errorf("current_date: %w", err)
		}
		out.CurrentDate = d
	}

	tasks := make([]model.Task, 0, len(m.Tasks))
	for _, ts := range m.Tasks {
		t, err := ts.resolve()
		if err != nil {
			return Resolved{}, fmt.Errorf("task %q: %w", ts.ID, err)
		}
		tasks = append(tasks, t)
	}
	out.Tasks = tasks

	cfg, err := m.Resources.resolve()
	if err != nil {
		return Resolved{}, fmt.Errorf("resources: %w", err)
	}
	global, err := resolveRanges(m.GlobalUnavailability)
	if err != nil {
		return Resolved{}, fmt.Errorf("global_unavailability: %w", err)
	}
	cfg.GlobalUnavailability = global
	out.ResourceConfig = cfg

	return out, nil
}

func (ts TaskSpec) resolve() (model.Task, error) {
	t := model.Task{
		ID:           ts.ID,
		DurationDays: ts.DurationDays,
		ResourceSpec: ts.ResourceSpec,
		Priority:     ts.Priority,
	}
	for _, name := range ts.Resources {
		t.Resources = append(t.Resources, model.ResourceUse{Name: name})
	}
	for _, dep := range ts.DependsOn {
		t.Dependencies = append(t.Dependencies, model.Dependency{PredecessorID: dep.ID, LagDays: dep.LagDays})
	}

	var err error
	if t.StartAfter, err = optionalDate(ts.StartAfter); err != nil {
		return model.Task{}, fmt.Errorf("start_after: %w", err)
	}
	if t.EndBefore, err = optionalDate(ts.EndBefore); err != nil {
		return model.Task{}, fmt.Errorf("end_before: %w", err)
	}
	if t.StartOn, err = optionalDate(ts.StartOn); err != nil {
		return model.Task{}, fmt.Errorf("start_on: %w", err)
	}
	if t.EndOn, err = optionalDate(ts.EndOn); err != nil {
		return model.Task{}, fmt.Errorf("end_on: %w", err)
	}
	return t, nil
}

func (rs ResourcesSpec) resolve() (resource.Config, error) {
	cfg := resource.Config{
		ResourceOrder: rs.Order,
		DNSPeriods:    make(map[string][]calendar.Range, len(rs.DNS)),
		SpecExpansion: rs.Groups,
	}
	for name, ranges := range rs.DNS {
		r, err := resolveRanges(ranges)
		if err != nil {
			return resource.Config{}, fmt.Errorf("dns[%s]: %w", name, err)
		}
		cfg.DNSPeriods[name] = r
	}
	return cfg, nil
}

func resolveRanges(specs []DateRangeSpec) ([]calendar.Range, error) {
	out := make([]calendar.Range, 0, len(specs))
	for _, s := range specs {
		start, err := parseDate(s.Start)
		if err != nil {
			return nil, fmt.Errorf("start: %w", err)
		}
		end, err := parseDate(s.End)
		if err != nil {
			return nil, fmt.Errorf("end: %w", err)
		}
		out = append(out, calendar.Range{Start: start, End: end})
	}
	return out, nil
}

func optionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := parseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return calendar.Day(d), nil
}
