// Package constraint defines the closed set of scheduling constraint kinds
// a problem can declare. A constraint is identified by its position in the
// problem's constraint list; the list is never reordered in place.
package constraint

// Kind identifies a constraint variant.
type Kind string

const (
	KindRepeatEncounter     Kind = "repeat_encounter"
	KindAttributeBalance    Kind = "attribute_balance"
	KindImmovablePeople     Kind = "immovable_people"
	KindMustStayTogether    Kind = "must_stay_together"
	KindShouldStayTogether  Kind = "should_stay_together"
	KindShouldNotBeTogether Kind = "should_not_be_together"
	KindPairMeetingCount    Kind = "pair_meeting_count"

	// kindImmovablePerson is the legacy singular spelling. It decodes into
	// ImmovablePeople with a single person.
	kindImmovablePerson Kind = "immovable_person"
)

// PenaltyFunction selects how repeat-encounter excess is weighted by the
// optimizer's own scoring. The evaluator always counts raw excess.
type PenaltyFunction string

const (
	PenaltyLinear  PenaltyFunction = "linear"
	PenaltySquared PenaltyFunction = "squared"
)

// BalanceMode selects how attribute counts are compared to desired counts.
type BalanceMode string

const (
	BalanceExact   BalanceMode = "exact"
	BalanceAtLeast BalanceMode = "at_least"
)

// MeetingMode selects how a pair's meeting count is compared to the target.
type MeetingMode string

const (
	MeetingAtLeast MeetingMode = "at_least"
	MeetingExact   MeetingMode = "exact"
	MeetingAtMost  MeetingMode = "at_most"
)

// Constraint is the closed tagged union of declared scheduling rules.
// Evaluation type-switches on the concrete variant; Unknown catches
// forward-compatible kinds and degrades to vacuously satisfied.
type Constraint interface {
	Kind() Kind
	// Hard reports whether the constraint is a must-hold condition with no
	// tunable weight.
	Hard() bool
	// Weight returns the penalty weight used for weighted score deltas.
	// Hard constraints carry no declared weight and report 1.
	Weight() float64
}

// RepeatEncounter limits how often any unordered pair of people may share a
// group across all sessions.
type RepeatEncounter struct {
	MaxAllowedEncounters int
	PenaltyFunction      PenaltyFunction
	PenaltyWeight        float64
}

func (RepeatEncounter) Kind() Kind        { return KindRepeatEncounter }
func (RepeatEncounter) Hard() bool        { return false }
func (c RepeatEncounter) Weight() float64 { return c.PenaltyWeight }

// AttributeBalance requires a group's membership to match desired counts per
// attribute value in the selected sessions. Attribute values absent from
// DesiredValues are unconstrained.
type AttributeBalance struct {
	GroupID       string
	AttributeKey  string
	DesiredValues map[string]int
	Sessions      []int // nil means all sessions
	Mode          BalanceMode
	PenaltyWeight float64
}

func (AttributeBalance) Kind() Kind        { return KindAttributeBalance }
func (AttributeBalance) Hard() bool        { return false }
func (c AttributeBalance) Weight() float64 { return c.PenaltyWeight }

// ImmovablePeople pins the listed people to a specific group in the selected
// sessions. Hard constraint.
type ImmovablePeople struct {
	People   []string
	GroupID  string
	Sessions []int
}

func (ImmovablePeople) Kind() Kind      { return KindImmovablePeople }
func (ImmovablePeople) Hard() bool      { return true }
func (ImmovablePeople) Weight() float64 { return 1 }

// MustStayTogether requires the listed people to share one group in the
// selected sessions. Hard constraint.
type MustStayTogether struct {
	People   []string
	Sessions []int
}

func (MustStayTogether) Kind() Kind      { return KindMustStayTogether }
func (MustStayTogether) Hard() bool      { return true }
func (MustStayTogether) Weight() float64 { return 1 }

// ShouldStayTogether is the soft variant of MustStayTogether.
type ShouldStayTogether struct {
	People        []string
	Sessions      []int
	PenaltyWeight float64
}

func (ShouldStayTogether) Kind() Kind        { return KindShouldStayTogether }
func (ShouldStayTogether) Hard() bool        { return false }
func (c ShouldStayTogether) Weight() float64 { return c.PenaltyWeight }

// ShouldNotBeTogether penalizes any group containing more than one of the
// listed people in the selected sessions.
type ShouldNotBeTogether struct {
	People        []string
	Sessions      []int
	PenaltyWeight float64
}

func (ShouldNotBeTogether) Kind() Kind        { return KindShouldNotBeTogether }
func (ShouldNotBeTogether) Hard() bool        { return false }
func (c ShouldNotBeTogether) Weight() float64 { return c.PenaltyWeight }

// PairMeetingCount targets how many of the selected sessions a specific pair
// spends in the same group.
type PairMeetingCount struct {
	People         [2]string
	TargetMeetings int
	Mode           MeetingMode
	Sessions       []int
	PenaltyWeight  float64
}

func (PairMeetingCount) Kind() Kind        { return KindPairMeetingCount }
func (PairMeetingCount) Hard() bool        { return false }
func (c PairMeetingCount) Weight() float64 { return c.PenaltyWeight }

// Unknown preserves a constraint whose kind this build does not recognize.
// It evaluates as vacuously satisfied so one unrecognized kind never fails a
// whole report.
type Unknown struct {
	Type string
	Raw  []byte
}

func (u Unknown) Kind() Kind      { return Kind(u.Type) }
func (Unknown) Hard() bool        { return false }
func (Unknown) Weight() float64   { return 1 }
