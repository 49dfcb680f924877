// Package model defines the data shapes shared across the compliance core:
// the problem definition, candidate schedules and the optimizer's score
// summary contract.
package model

import (
	"encoding/json"
	"fmt"

	"github.com/groupmix/groupmix/core/constraint"
)

// Person is a participant in the scheduling problem.
type Person struct {
	ID         string            `json:"id"`
	Attributes map[string]string `json:"attributes,omitempty"`
	// AllowedSessions restricts which sessions the person may attend.
	// nil means all sessions. The compliance core carries this for the
	// optimizer's benefit and does not enforce it.
	AllowedSessions []int `json:"allowed_sessions,omitempty"`
}

// Group is a destination people are assigned to, with a per-session capacity
// cap upheld upstream by the optimizer.
type Group struct {
	ID       string `json:"id"`
	Capacity int    `json:"capacity"`
}

// Assignment places one person in one group for one session. A schedule is
// exactly the set of these records for a candidate solution.
type Assignment struct {
	Session  int    `json:"session"`
	GroupID  string `json:"group_id"`
	PersonID string `json:"person_id"`
}

// Problem is the full declaration: people, groups, the session count and the
// ordered constraint list. Constraint order is significant; a constraint's
// list position is its identity across evaluations.
type Problem struct {
	People      []Person                `json:"people"`
	Groups      []Group                 `json:"groups"`
	NumSessions int                     `json:"num_sessions"`
	Constraints []constraint.Constraint `json:"constraints"`
}

// problemDoc mirrors Problem with constraints kept raw so the tagged union
// can be decoded per entry.
type problemDoc struct {
	People      []Person          `json:"people"`
	Groups      []Group           `json:"groups"`
	NumSessions int               `json:"num_sessions"`
	Constraints []json.RawMessage `json:"constraints"`
}

// UnmarshalJSON decodes the problem document, resolving each constraint
// through the tagged-union codec.
func (p *Problem) UnmarshalJSON(data []byte) error {
	var doc problemDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	constraints := make([]constraint.Constraint, len(doc.Constraints))
	for i, raw := range doc.Constraints {
		c, err := constraint.Unmarshal(raw)
		if err != nil {
			return fmt.Errorf("constraint %d: %w", i, err)
		}
		constraints[i] = c
	}
	p.People = doc.People
	p.Groups = doc.Groups
	p.NumSessions = doc.NumSessions
	p.Constraints = constraints
	return nil
}

// MarshalJSON encodes the problem document with tagged constraint entries.
func (p Problem) MarshalJSON() ([]byte, error) {
	doc := problemDoc{People: p.People, Groups: p.Groups, NumSessions: p.NumSessions}
	doc.Constraints = make([]json.RawMessage, len(p.Constraints))
	for i, c := range p.Constraints {
		raw, err := constraint.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("constraint %d: %w", i, err)
		}
		doc.Constraints[i] = raw
	}
	return json.Marshal(doc)
}

// AttributeLookup returns attributes keyed by person id.
func (p Problem) AttributeLookup() map[string]map[string]string {
	attrs := make(map[string]map[string]string, len(p.People))
	for _, person := range p.People {
		attrs[person.ID] = person.Attributes
	}
	return attrs
}

// Solution is a candidate schedule emitted by the external optimizer. Score
// is present on final solutions and absent on intermediate snapshots; the
// evaluator treats both identically.
type Solution struct {
	Assignments []Assignment  `json:"assignments"`
	Score       *ScoreSummary `json:"score,omitempty"`
}

// ScoreSummary is the optimizer's scoring contract, consumed only for the
// top-of-report delta display.
type ScoreSummary struct {
	FinalScore              float64 `json:"final_score"`
	UniqueContacts          int     `json:"unique_contacts"`
	RepetitionPenalty       float64 `json:"repetition_penalty"`
	AttributeBalancePenalty float64 `json:"attribute_balance_penalty"`
	ConstraintPenalty       float64 `json:"constraint_penalty"`
}
