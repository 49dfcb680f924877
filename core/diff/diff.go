// Package diff computes the structural difference between two compliance
// reports of the same problem, suitable for driving an accept/reject
// decision on a proposed schedule edit.
package diff

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/groupmix/groupmix/core/compliance"
	"github.com/groupmix/groupmix/core/constraint"
	"github.com/groupmix/groupmix/core/model"
)

// ErrReportMismatch indicates the two reports were not produced for the same
// constraint list. Silent misalignment would yield nonsensical diffs, so this
// fails loudly.
var ErrReportMismatch = errors.New("compliance reports do not align")

// ConstraintDelta describes how one constraint's findings changed between
// the before and after schedules.
type ConstraintDelta struct {
	ConstraintIndex int                 `json:"constraint_index"`
	Type            constraint.Kind     `json:"type"`
	IsHard          bool                `json:"is_hard"`
	Changed         bool                `json:"changed"`
	Added           []compliance.Detail `json:"added"`
	Removed         []compliance.Detail `json:"removed"`
	CountDelta      int                 `json:"count_delta"`
	WeightedDelta   float64             `json:"weighted_delta"`
}

// MarshalJSON tags added and removed details with their variant kinds.
func (d ConstraintDelta) MarshalJSON() ([]byte, error) {
	marshalAll := func(details []compliance.Detail) ([]json.RawMessage, error) {
		out := make([]json.RawMessage, len(details))
		for i, det := range details {
			raw, err := compliance.MarshalDetail(det)
			if err != nil {
				return nil, err
			}
			out[i] = raw
		}
		return out, nil
	}
	added, err := marshalAll(d.Added)
	if err != nil {
		return nil, err
	}
	removed, err := marshalAll(d.Removed)
	if err != nil {
		return nil, err
	}
	type alias struct {
		ConstraintIndex int               `json:"constraint_index"`
		Type            constraint.Kind   `json:"type"`
		IsHard          bool              `json:"is_hard"`
		Changed         bool              `json:"changed"`
		Added           []json.RawMessage `json:"added"`
		Removed         []json.RawMessage `json:"removed"`
		CountDelta      int               `json:"count_delta"`
		WeightedDelta   float64           `json:"weighted_delta"`
	}
	return json.Marshal(alias{d.ConstraintIndex, d.Type, d.IsHard, d.Changed, added, removed, d.CountDelta, d.WeightedDelta})
}

// ChangeReport is the full diff between two evaluations. Deltas lists hard
// constraints first; a hard constraint appears even at zero delta whenever
// either side is non-adhering.
type ChangeReport struct {
	Before         model.ScoreSummary `json:"before_score"`
	After          model.ScoreSummary `json:"after_score"`
	Deltas         []ConstraintDelta  `json:"per_constraint_delta"`
	AggregateDelta float64            `json:"aggregate_score_delta"`
}

// Compare diffs the two reports per constraint. Both reports must have been
// evaluated against the given constraint list; any shape mismatch in length,
// index or type is a caller contract violation.
func Compare(constraints []constraint.Constraint, before, after compliance.Report) (ChangeReport, error) {
	if len(before.Results) != len(constraints) || len(after.Results) != len(constraints) {
		return ChangeReport{}, fmt.Errorf("%w: %d constraints, %d before results, %d after results",
			ErrReportMismatch, len(constraints), len(before.Results), len(after.Results))
	}

	var report ChangeReport
	for i, c := range constraints {
		b, a := before.Results[i], after.Results[i]
		if b.ConstraintIndex != i || a.ConstraintIndex != i || b.Type != a.Type {
			return ChangeReport{}, fmt.Errorf("%w: result at index %d (before %s, after %s)",
				ErrReportMismatch, i, b.Type, a.Type)
		}

		added, removed := diffDetails(b.Details, a.Details)
		countDelta := a.Violations - b.Violations
		// A count can change while the set of offending tuples stays
		// identical; that must still surface as changed.
		changed := countDelta != 0 || len(added) > 0 || len(removed) > 0
		hardAttention := c.Hard() && (!b.Adheres || !a.Adheres)
		if !changed && !hardAttention {
			continue
		}

		delta := ConstraintDelta{
			ConstraintIndex: i,
			Type:            c.Kind(),
			IsHard:          c.Hard(),
			Changed:         changed,
			Added:           added,
			Removed:         removed,
			CountDelta:      countDelta,
			WeightedDelta:   float64(countDelta) * c.Weight(),
		}
		report.Deltas = append(report.Deltas, delta)
		report.AggregateDelta += delta.WeightedDelta
	}

	// Hard constraints surface first for display priority; index order is
	// preserved within each class.
	sort.SliceStable(report.Deltas, func(i, j int) bool {
		return report.Deltas[i].IsHard && !report.Deltas[j].IsHard
	})
	return report, nil
}

// diffDetails matches findings across the two result sets by canonical key.
func diffDetails(before, after []compliance.Detail) (added, removed []compliance.Detail) {
	beforeKeys := make(map[string]struct{}, len(before))
	for _, d := range before {
		beforeKeys[d.Key()] = struct{}{}
	}
	afterKeys := make(map[string]struct{}, len(after))
	added = []compliance.Detail{}
	for _, d := range after {
		k := d.Key()
		afterKeys[k] = struct{}{}
		if _, ok := beforeKeys[k]; !ok {
			added = append(added, d)
		}
	}
	removed = []compliance.Detail{}
	for _, d := range before {
		if _, ok := afterKeys[d.Key()]; !ok {
			removed = append(removed, d)
		}
	}
	return added, removed
}
