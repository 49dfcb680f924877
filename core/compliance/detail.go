package compliance

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// DetailKind identifies a violation-detail variant.
type DetailKind string

const (
	DetailRepeatEncounter     DetailKind = "repeat_encounter"
	DetailAttributeBalance    DetailKind = "attribute_balance"
	DetailImmovable           DetailKind = "immovable"
	DetailTogetherSplit       DetailKind = "together_split"
	DetailNotTogether         DetailKind = "not_together"
	DetailPairMeetingSummary  DetailKind = "pair_meeting_summary"
	DetailPairMeetingTogether DetailKind = "pair_meeting_together"
	DetailPairMeetingApart    DetailKind = "pair_meeting_apart"
)

// Detail is one concrete, localized instance of a constraint not being met
// (or, for pair-meeting session details, a narrative per-session record).
//
// Key returns the canonical identity of the finding: two details from
// different reports describe the same finding iff their keys match,
// independent of array order. Keys never include counts that evaluations
// diff against each other, so a finding whose count changes is recognized
// as the same finding, not as an add plus a remove.
type Detail interface {
	DetailKind() DetailKind
	Key() string
}

// keyOf joins key parts with an unambiguous separator.
func keyOf(kind DetailKind, parts ...string) string {
	return string(kind) + "|" + strings.Join(parts, "|")
}

// sortedPair returns the pair in lexicographic order.
func sortedPair(pair [2]string) [2]string {
	if pair[1] < pair[0] {
		return [2]string{pair[1], pair[0]}
	}
	return pair
}

func sortedCopy(ids []string) []string {
	cp := append([]string(nil), ids...)
	sort.Strings(cp)
	return cp
}

// RepeatEncounterDetail reports one pair exceeding the encounter limit.
type RepeatEncounterDetail struct {
	Pair       [2]string `json:"pair"`
	Count      int       `json:"count"`
	MaxAllowed int       `json:"max_allowed"`
	Sessions   []int     `json:"sessions"`
}

func (RepeatEncounterDetail) DetailKind() DetailKind { return DetailRepeatEncounter }

// Key excludes the encounter count: a pair moving from 2 to 3 encounters is
// the same finding with a changed count.
func (d RepeatEncounterDetail) Key() string {
	p := sortedPair(d.Pair)
	return keyOf(DetailRepeatEncounter, p[0], p[1])
}

// AttributeBalanceDetail reports one (session, attribute value) bucket off
// its desired count.
type AttributeBalanceDetail struct {
	Session int    `json:"session"`
	GroupID string `json:"group_id"`
	Value   string `json:"value"`
	Desired int    `json:"desired"`
	Actual  int    `json:"actual"`
}

func (AttributeBalanceDetail) DetailKind() DetailKind { return DetailAttributeBalance }

// Key excludes the actual count, which is what evaluations diff.
func (d AttributeBalanceDetail) Key() string {
	return keyOf(DetailAttributeBalance, strconv.Itoa(d.Session), d.GroupID, d.Value, strconv.Itoa(d.Desired))
}

// ImmovableDetail reports a pinned person found outside the required group.
// AssignedGroup is empty when the person is unassigned in the session.
type ImmovableDetail struct {
	Session       int    `json:"session"`
	PersonID      string `json:"person_id"`
	RequiredGroup string `json:"required_group"`
	AssignedGroup string `json:"assigned_group,omitempty"`
}

func (ImmovableDetail) DetailKind() DetailKind { return DetailImmovable }

func (d ImmovableDetail) Key() string {
	return keyOf(DetailImmovable, strconv.Itoa(d.Session), d.PersonID, d.RequiredGroup, d.AssignedGroup)
}

// MemberAssignment pairs a person with their assigned group; GroupID is
// empty for unassigned people.
type MemberAssignment struct {
	PersonID string `json:"person_id"`
	GroupID  string `json:"group_id,omitempty"`
}

// TogetherSplitDetail reports one session where a stay-together set is split
// across groups or has unassigned members.
type TogetherSplitDetail struct {
	Session int                `json:"session"`
	Members []MemberAssignment `json:"members"`
}

func (TogetherSplitDetail) DetailKind() DetailKind { return DetailTogetherSplit }

func (d TogetherSplitDetail) Key() string {
	parts := make([]string, 0, len(d.Members)+1)
	parts = append(parts, strconv.Itoa(d.Session))
	members := make([]string, len(d.Members))
	for i, m := range d.Members {
		members[i] = m.PersonID + "=" + m.GroupID
	}
	sort.Strings(members)
	return keyOf(DetailTogetherSplit, append(parts, members...)...)
}

// NotTogetherDetail reports one group holding more than one of a keep-apart
// set in a session.
type NotTogetherDetail struct {
	Session int      `json:"session"`
	GroupID string   `json:"group_id"`
	People  []string `json:"people"`
}

func (NotTogetherDetail) DetailKind() DetailKind { return DetailNotTogether }

func (d NotTogetherDetail) Key() string {
	parts := append([]string{strconv.Itoa(d.Session), d.GroupID}, sortedCopy(d.People)...)
	return keyOf(DetailNotTogether, parts...)
}

// PairMeetingSummaryDetail reports a pair's total meeting count against its
// target.
type PairMeetingSummaryDetail struct {
	Pair     [2]string `json:"pair"`
	Target   int       `json:"target"`
	Mode     string    `json:"mode"`
	Actual   int       `json:"actual"`
	Sessions []int     `json:"sessions"`
}

func (PairMeetingSummaryDetail) DetailKind() DetailKind { return DetailPairMeetingSummary }

// Key excludes the actual count, which is what evaluations diff.
func (d PairMeetingSummaryDetail) Key() string {
	p := sortedPair(d.Pair)
	return keyOf(DetailPairMeetingSummary, p[0], p[1], strconv.Itoa(d.Target), d.Mode)
}

// PairMeetingSessionDetail records, for one selected session, whether the
// pair shared a group. These are emitted for every selected session, not
// only on violation, and drive narrative display downstream.
type PairMeetingSessionDetail struct {
	Session  int       `json:"session"`
	Pair     [2]string `json:"pair"`
	Together bool      `json:"together"`
	GroupID  string    `json:"group_id,omitempty"`
}

func (d PairMeetingSessionDetail) DetailKind() DetailKind {
	if d.Together {
		return DetailPairMeetingTogether
	}
	return DetailPairMeetingApart
}

func (d PairMeetingSessionDetail) Key() string {
	p := sortedPair(d.Pair)
	return keyOf(d.DetailKind(), strconv.Itoa(d.Session), p[0], p[1], d.GroupID)
}

// dedupeDetails drops details whose key was already seen, keeping first
// occurrences in order.
func dedupeDetails(details []Detail) []Detail {
	seen := make(map[string]struct{}, len(details))
	out := details[:0]
	for _, d := range details {
		k := d.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, d)
	}
	return out
}

type detailEnvelope struct {
	Kind DetailKind `json:"kind"`
}

// MarshalDetail encodes a detail with its variant kind tag spliced in, so
// consumers can tell variants apart on the wire.
func MarshalDetail(d Detail) ([]byte, error) {
	body, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	head, err := json.Marshal(detailEnvelope{Kind: d.DetailKind()})
	if err != nil {
		return nil, err
	}
	if string(body) == "{}" {
		return head, nil
	}
	// Splice the kind tag into the variant's own object.
	merged := append(head[:len(head)-1], ',')
	merged = append(merged, body[1:]...)
	return merged, nil
}
