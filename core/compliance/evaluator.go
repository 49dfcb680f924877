// Package compliance evaluates, per declared constraint, whether a candidate
// schedule satisfies it and exactly which violations exist, down to the
// session/group/person tuples responsible.
package compliance

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/groupmix/groupmix/core/constraint"
	"github.com/groupmix/groupmix/core/logger"
	"github.com/groupmix/groupmix/core/model"
	"github.com/groupmix/groupmix/core/schedule"
)

// Result is the evaluation of one constraint against one schedule.
// Adheres is true exactly when Violations is zero.
type Result struct {
	ConstraintIndex int             `json:"constraint_index"`
	Type            constraint.Kind `json:"type"`
	Adheres         bool            `json:"adheres"`
	Violations      int             `json:"violations"`
	Details         []Detail        `json:"details"`
}

// MarshalJSON tags each detail with its variant kind.
func (r Result) MarshalJSON() ([]byte, error) {
	details := make([]json.RawMessage, len(r.Details))
	for i, d := range r.Details {
		raw, err := MarshalDetail(d)
		if err != nil {
			return nil, err
		}
		details[i] = raw
	}
	type alias struct {
		ConstraintIndex int               `json:"constraint_index"`
		Type            constraint.Kind   `json:"type"`
		Adheres         bool              `json:"adheres"`
		Violations      int               `json:"violations"`
		Details         []json.RawMessage `json:"details"`
	}
	return json.Marshal(alias{r.ConstraintIndex, r.Type, r.Adheres, r.Violations, details})
}

// Report is the full per-constraint evaluation of one schedule, ordered
// index-for-index with the problem's constraint list. Reports are built
// fresh on every evaluation and must not be mutated by callers.
type Report struct {
	Results []Result `json:"results"`
}

// Evaluator computes compliance reports. It holds no state across calls.
type Evaluator struct {
	log logger.Logger
}

// NewEvaluator returns an evaluator logging through the given logger. A nil
// logger disables logging.
func NewEvaluator(log logger.Logger) *Evaluator {
	if log == nil {
		log = logger.Nop{}
	}
	return &Evaluator{log: log}
}

// Evaluate builds the compliance report for the schedule against every
// constraint the problem declares, in list order. Intermediate and final
// schedules are treated identically.
func (e *Evaluator) Evaluate(p model.Problem, assignments []model.Assignment) Report {
	report, _ := e.EvaluateInstrumented(p, assignments)
	return report
}

// EvaluateInstrumented is Evaluate plus per-constraint wall-clock timings,
// index-aligned with the report, for observability sinks.
func (e *Evaluator) EvaluateInstrumented(p model.Problem, assignments []model.Assignment) (Report, []time.Duration) {
	ix := schedule.New(assignments, p.NumSessions)
	attrs := p.AttributeLookup()
	results := make([]Result, len(p.Constraints))
	durations := make([]time.Duration, len(p.Constraints))
	for i, c := range p.Constraints {
		start := time.Now()
		results[i] = e.evaluate(ix, i, c, attrs)
		durations[i] = time.Since(start)
	}
	return Report{Results: results}, durations
}

func (e *Evaluator) evaluate(ix *schedule.Index, index int, c constraint.Constraint, attrs map[string]map[string]string) Result {
	switch c := c.(type) {
	case constraint.RepeatEncounter:
		return evalRepeatEncounter(ix, index, c)
	case constraint.AttributeBalance:
		return evalAttributeBalance(ix, index, c, attrs)
	case constraint.ImmovablePeople:
		return evalImmovablePeople(ix, index, c)
	case constraint.MustStayTogether:
		return evalStayTogether(ix, index, c.Kind(), c.People, c.Sessions)
	case constraint.ShouldStayTogether:
		return evalStayTogether(ix, index, c.Kind(), c.People, c.Sessions)
	case constraint.ShouldNotBeTogether:
		return evalNotTogether(ix, index, c)
	case constraint.PairMeetingCount:
		return evalPairMeetingCount(ix, index, c)
	default:
		// Forward-compatible fallback: an unrecognized kind is assumed
		// satisfied rather than failing the whole report.
		e.log.Warnf("constraint %d has unknown kind %q, assuming satisfied", index, c.Kind())
		return newResult(index, c.Kind(), 0, nil)
	}
}

// newResult assembles a Result, enforcing adheres == (violations == 0) and
// de-duplicating details by canonical key.
func newResult(index int, kind constraint.Kind, violations int, details []Detail) Result {
	if details == nil {
		details = []Detail{}
	}
	return Result{
		ConstraintIndex: index,
		Type:            kind,
		Adheres:         violations == 0,
		Violations:      violations,
		Details:         dedupeDetails(details),
	}
}

// selectSessions resolves a constraint's session set: nil means all sessions.
// Explicit sets are sorted, de-duplicated and clamped to the valid range so
// scans stay deterministic.
func selectSessions(spec []int, numSessions int) []int {
	if spec == nil {
		all := make([]int, numSessions)
		for i := range all {
			all[i] = i
		}
		return all
	}
	seen := make(map[int]struct{}, len(spec))
	out := make([]int, 0, len(spec))
	for _, s := range spec {
		if s < 0 || s >= numSessions {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Ints(out)
	return out
}
