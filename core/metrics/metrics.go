// Package metrics defines the observability contract for compliance
// evaluations. Sinks are implemented under infra/metrics.
package metrics

import (
	"time"

	"github.com/groupmix/groupmix/core/constraint"
)

// EvaluationRecord captures one constraint's evaluation within a run.
type EvaluationRecord struct {
	RunID           string
	ConstraintIndex int
	ConstraintType  constraint.Kind
	Adheres         bool
	Violations      int
	Duration        time.Duration
	Time            time.Time
}

// Sink records evaluation results for observability purposes.
type Sink interface {
	RecordEvaluation(recs []EvaluationRecord) error
}

// DiffRecord captures the outcome of one before/after comparison.
type DiffRecord struct {
	RunID          string
	ChangedCount   int
	AggregateDelta float64
	Time           time.Time
}

// DiffRecorder is implemented by sinks that also track change diffs.
type DiffRecorder interface {
	RecordDiff(rec DiffRecord) error
}

// NopSink discards all records.
type NopSink struct{}

func (NopSink) RecordEvaluation([]EvaluationRecord) error { return nil }
func (NopSink) RecordDiff(DiffRecord) error               { return nil }
