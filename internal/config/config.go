// Package config loads runtime configuration from .pulsar.yaml, PULSAR_*
// environment variables, and CLI flags via viper, populating the scheduling,
// critical-path, and rollout configuration records consumed by
// internal/engine. Resource configuration comes from the task manifest, not
// from this package.
package config

import (
	"github.com/spf13/viper"

	"github.com/kestrelplan/pulsar/internal/logx"
	"github.com/kestrelplan/pulsar/internal/model"
)

// Config holds all runtime configuration for a pulsar run. Values are
// populated from .pulsar.yaml, PULSAR_* env vars, and CLI flags.
type Config struct {
	ManifestPath  string `mapstructure:"manifest_path"`
	Strategy      string `mapstructure:"strategy"`
	Scheduler     string `mapstructure:"scheduler"` // "sgs" or "critical_path"
	Verbose       bool   `mapstructure:"verbose"`
	HistoryDB     string `mapstructure:"history_db"`
	TelemetryPath string `mapstructure:"telemetry_path"` // empty disables JSONL decision tracing

	Scheduling  SchedulingSection  `mapstructure:"scheduling"`
	CriticalPath CriticalPathSection `mapstructure:"critical_path"`
	Rollout     RolloutSection     `mapstructure:"rollout"`
}

// SchedulingSection mirrors model.SchedulingConfig's tunables for
// viper/mapstructure decoding.
type SchedulingSection struct {
	CRWeight            float64 `mapstructure:"cr_weight"`
	PriorityWeight      float64 `mapstructure:"priority_weight"`
	DefaultPriority     int     `mapstructure:"default_priority"`
	DefaultCRMultiplier float64 `mapstructure:"default_cr_multiplier"`
	DefaultCRFloor      float64 `mapstructure:"default_cr_floor"`
	ATCK                float64 `mapstructure:"atc_k"`
	ATCUrgencyMultiplier float64 `mapstructure:"atc_urgency_multiplier"`
	ATCUrgencyFloor     float64 `mapstructure:"atc_urgency_floor"`
}

// CriticalPathSection mirrors model.CriticalPathConfig's tunables.
type CriticalPathSection struct {
	K                          float64 `mapstructure:"k"`
	NoDeadlineUrgencyMultiplier float64 `mapstructure:"no_deadline_urgency_multiplier"`
	UrgencyFloor               float64 `mapstructure:"urgency_floor"`
	RolloutScoreRatioThreshold float64 `mapstructure:"rollout_score_ratio_threshold"`
}

// RolloutSection mirrors model.RolloutConfig's tunables.
type RolloutSection struct {
	Enabled            bool    `mapstructure:"enabled"`
	PriorityThreshold  int     `mapstructure:"priority_threshold"`
	MinPriorityGap     int     `mapstructure:"min_priority_gap"`
	CRRelaxedThreshold float64 `mapstructure:"cr_relaxed_threshold"`
	MinCRUrgencyGap    float64 `mapstructure:"min_cr_urgency_gap"`
	MaxHorizonDays     int     `mapstructure:"max_horizon_days"` // 0 means uncapped
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() Config {
	d := model.DefaultSchedulingConfig()
	cp := model.DefaultCriticalPathConfig()
	r := model.DefaultRolloutConfig()

	viper.SetDefault("manifest_path", "pulsar.toml")
	viper.SetDefault("strategy", "priority_first")
	viper.SetDefault("scheduler", "sgs")
	viper.SetDefault("verbose", false)
	viper.SetDefault("history_db", ".pulsar/history.db")
	viper.SetDefault("telemetry_path", "")

	viper.SetDefault("scheduling.cr_weight", d.CRWeight)
	viper.SetDefault("scheduling.priority_weight", d.PriorityWeight)
	viper.SetDefault("scheduling.default_priority", d.DefaultPriority)
	viper.SetDefault("scheduling.default_cr_multiplier", d.DefaultCRMultiplier)
	viper.SetDefault("scheduling.default_cr_floor", d.DefaultCRFloor)
	viper.SetDefault("scheduling.atc_k", d.ATCK)
	viper.SetDefault("scheduling.atc_urgency_multiplier", d.ATCDefaultUrgencyMultiplier)
	viper.SetDefault("scheduling.atc_urgency_floor", d.ATCDefaultUrgencyFloor)

	viper.SetDefault("critical_path.k", cp.K)
	viper.SetDefault("critical_path.no_deadline_urgency_multiplier", cp.NoDeadlineUrgencyMultiplier)
	viper.SetDefault("critical_path.urgency_floor", cp.UrgencyFloor)
	viper.SetDefault("critical_path.rollout_score_ratio_threshold", cp.RolloutScoreRatioThreshold)

	viper.SetDefault("rollout.enabled", r.Enabled)
	viper.SetDefault("rollout.priority_threshold", r.PriorityThreshold)
	viper.SetDefault("rollout.min_priority_gap", r.MinPriorityGap)
	viper.SetDefault("rollout.cr_relaxed_threshold", r.CRRelaxedThreshold)
	viper.SetDefault("rollout.min_cr_urgency_gap", r.MinCRUrgencyGap)
	viper.SetDefault("rollout.max_horizon_days", *r.MaxHorizonDays)

	var cfg Config
	_ = viper.Unmarshal(&cfg)
	return cfg
}

// SchedulingConfig builds a model.SchedulingConfig from the decoded section.
func (c Config) SchedulingConfig() model.SchedulingConfig {
	return model.SchedulingConfig{
		Strategy:                    model.Strategy(c.Strategy),
		CRWeight:                    c.Scheduling.CRWeight,
		PriorityWeight:              c.Scheduling.PriorityWeight,
		DefaultPriority:             c.Scheduling.DefaultPriority,
		DefaultCRMultiplier:         c.Scheduling.DefaultCRMultiplier,
		DefaultCRFloor:              c.Scheduling.DefaultCRFloor,
		ATCK:                        c.Scheduling.ATCK,
		ATCDefaultUrgencyMultiplier: c.Scheduling.ATCUrgencyMultiplier,
		ATCDefaultUrgencyFloor:      c.Scheduling.ATCUrgencyFloor,
		Verbosity:                   verbosityFor(c.Verbose),
	}
}

// CriticalPathConfig builds a model.CriticalPathConfig from the decoded
// section.
func (c Config) CriticalPathConfig() model.CriticalPathConfig {
	return model.CriticalPathConfig{
		K:                          c.CriticalPath.K,
		NoDeadlineUrgencyMultiplier: c.CriticalPath.NoDeadlineUrgencyMultiplier,
		UrgencyFloor:               c.CriticalPath.UrgencyFloor,
		Verbosity:                  verbosityFor(c.Verbose),
		RolloutEnabled:             c.Rollout.Enabled,
		RolloutScoreRatioThreshold: c.CriticalPath.RolloutScoreRatioThreshold,
	}
}

// RolloutConfig builds a model.RolloutConfig from the decoded section.
func (c Config) RolloutConfig() model.RolloutConfig {
	var horizon *int
	if c.Rollout.MaxHorizonDays > 0 {
		h := c.Rollout.MaxHorizonDays
		horizon = &h
	}
	return model.RolloutConfig{
		Enabled:            c.Rollout.Enabled,
		PriorityThreshold:  c.Rollout.PriorityThreshold,
		MinPriorityGap:     c.Rollout.MinPriorityGap,
		CRRelaxedThreshold: c.Rollout.CRRelaxedThreshold,
		MinCRUrgencyGap:    c.Rollout.MinCRUrgencyGap,
		MaxHorizonDays:     horizon,
	}
}

// verbosityFor maps the --verbose flag onto a logx.Level ordinal: silent by
// default, full debug tracing (commits, eligibility/rollout checks, scoring
// breakdowns) when set.
func verbosityFor(verbose bool) int {
	if verbose {
		return int(logx.LevelDebug)
	}
	return int(logx.LevelSilent)
}
