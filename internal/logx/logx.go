// Package logx implements verbosity-gated tracing for the scheduling
// engine across three tiers: Changes (commits/skips), Checks (+
// eligibility/rollout gates), and Debug (+ full scoring breakdowns). A nil
// *Logger is a valid, silent logger, so callers never have to guard every
// call site.
package logx

import (
	"fmt"
	"log"
	"os"
)

// Level names the verbosity tiers a run can be configured at.
type Level int

const (
	LevelSilent Level = iota
	LevelChanges
	LevelChecks
	LevelDebug
)

// Logger writes level-gated trace lines to an underlying *log.Logger. A nil
// *Logger silently drops every call.
type Logger struct {
	level Level
	out   *log.Logger
}

// New returns a Logger writing to stderr at the given level.
func New(level Level) *Logger {
	return &Logger{level: level, out: log.New(os.Stderr, "", log.LstdFlags)}
}

func (l *Logger) log(at Level, format string, args ...any) {
	if l == nil || l.level < at {
		return
	}
	l.out.Output(3, fmt.Sprintf(format, args...))
}

// Change logs a commit or skip decision; always emitted at LevelChanges
// and above.
func (l *Logger) Change(format string, args ...any) { l.log(LevelChanges, format, args...) }

// Check logs an eligibility or rollout-gate check; emitted at LevelChecks
// and above.
func (l *Logger) Check(format string, args ...any) { l.log(LevelChecks, format, args...) }

// Debug logs a full scoring breakdown (urgency, WSPT, schedule-quality
// terms); emitted only at LevelDebug.
func (l *Logger) Debug(format string, args ...any) { l.log(LevelDebug, format, args...) }
