package constraint

import (
	"encoding/json"
	"fmt"
)

// envelope is the wire shape of a constraint: a type tag plus the variant's
// parameters, flattened.
type envelope struct {
	Type                 string          `json:"type"`
	MaxAllowedEncounters int             `json:"max_allowed_encounters,omitempty"`
	PenaltyFunction      PenaltyFunction `json:"penalty_function,omitempty"`
	PenaltyWeight        *float64        `json:"penalty_weight,omitempty"`
	GroupID              string          `json:"group_id,omitempty"`
	AttributeKey         string          `json:"attribute_key,omitempty"`
	DesiredValues        map[string]int  `json:"desired_values,omitempty"`
	Sessions             []int           `json:"sessions,omitempty"`
	Mode                 string          `json:"mode,omitempty"`
	People               []string        `json:"people,omitempty"`
	PersonID             string          `json:"person_id,omitempty"`
	TargetMeetings       int             `json:"target_meetings,omitempty"`
}

func (e envelope) weight() float64 {
	if e.PenaltyWeight == nil {
		return 1
	}
	return *e.PenaltyWeight
}

// Unmarshal decodes one constraint document. Unrecognized type tags are
// preserved as Unknown rather than rejected.
func Unmarshal(data []byte) (Constraint, error) {
	var e envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode constraint: %w", err)
	}
	if e.Type == "" {
		return nil, fmt.Errorf("decode constraint: missing type tag")
	}
	switch Kind(e.Type) {
	case KindRepeatEncounter:
		fn := e.PenaltyFunction
		if fn == "" {
			fn = PenaltyLinear
		}
		return RepeatEncounter{
			MaxAllowedEncounters: e.MaxAllowedEncounters,
			PenaltyFunction:      fn,
			PenaltyWeight:        e.weight(),
		}, nil
	case KindAttributeBalance:
		mode := BalanceMode(e.Mode)
		if mode == "" {
			mode = BalanceExact
		}
		return AttributeBalance{
			GroupID:       e.GroupID,
			AttributeKey:  e.AttributeKey,
			DesiredValues: e.DesiredValues,
			Sessions:      e.Sessions,
			Mode:          mode,
			PenaltyWeight: e.weight(),
		}, nil
	case KindImmovablePeople:
		return ImmovablePeople{People: e.People, GroupID: e.GroupID, Sessions: e.Sessions}, nil
	case kindImmovablePerson:
		// Legacy singular form, identical semantics with one person.
		return ImmovablePeople{People: []string{e.PersonID}, GroupID: e.GroupID, Sessions: e.Sessions}, nil
	case KindMustStayTogether:
		return MustStayTogether{People: e.People, Sessions: e.Sessions}, nil
	case KindShouldStayTogether:
		return ShouldStayTogether{People: e.People, Sessions: e.Sessions, PenaltyWeight: e.weight()}, nil
	case KindShouldNotBeTogether:
		return ShouldNotBeTogether{People: e.People, Sessions: e.Sessions, PenaltyWeight: e.weight()}, nil
	case KindPairMeetingCount:
		if len(e.People) != 2 {
			return nil, fmt.Errorf("decode constraint %s: expected exactly two people, got %d", e.Type, len(e.People))
		}
		mode := MeetingMode(e.Mode)
		if mode == "" {
			mode = MeetingExact
		}
		return PairMeetingCount{
			People:         [2]string{e.People[0], e.People[1]},
			TargetMeetings: e.TargetMeetings,
			Mode:           mode,
			Sessions:       e.Sessions,
			PenaltyWeight:  e.weight(),
		}, nil
	default:
		raw := make([]byte, len(data))
		copy(raw, data)
		return Unknown{Type: e.Type, Raw: raw}, nil
	}
}

// Marshal encodes a constraint back to its wire shape.
func Marshal(c Constraint) ([]byte, error) {
	w := func(v float64) *float64 { return &v }
	var e envelope
	switch c := c.(type) {
	case RepeatEncounter:
		e = envelope{Type: string(KindRepeatEncounter), MaxAllowedEncounters: c.MaxAllowedEncounters, PenaltyFunction: c.PenaltyFunction, PenaltyWeight: w(c.PenaltyWeight)}
	case AttributeBalance:
		e = envelope{Type: string(KindAttributeBalance), GroupID: c.GroupID, AttributeKey: c.AttributeKey, DesiredValues: c.DesiredValues, Sessions: c.Sessions, Mode: string(c.Mode), PenaltyWeight: w(c.PenaltyWeight)}
	case ImmovablePeople:
		e = envelope{Type: string(KindImmovablePeople), People: c.People, GroupID: c.GroupID, Sessions: c.Sessions}
	case MustStayTogether:
		e = envelope{Type: string(KindMustStayTogether), People: c.People, Sessions: c.Sessions}
	case ShouldStayTogether:
		e = envelope{Type: string(KindShouldStayTogether), People: c.People, Sessions: c.Sessions, PenaltyWeight: w(c.PenaltyWeight)}
	case ShouldNotBeTogether:
		e = envelope{Type: string(KindShouldNotBeTogether), People: c.People, Sessions: c.Sessions, PenaltyWeight: w(c.PenaltyWeight)}
	case PairMeetingCount:
		e = envelope{Type: string(KindPairMeetingCount), People: c.People[:], TargetMeetings: c.TargetMeetings, Mode: string(c.Mode), Sessions: c.Sessions, PenaltyWeight: w(c.PenaltyWeight)}
	case Unknown:
		return c.Raw, nil
	default:
		return nil, fmt.Errorf("encode constraint: unsupported variant %T", c)
	}
	return json.Marshal(e)
}
