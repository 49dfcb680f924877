package compliance

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/groupmix/groupmix/core/constraint"
	"github.com/groupmix/groupmix/core/model"
)

func problem(numSessions int, people []model.Person, constraints ...constraint.Constraint) model.Problem {
	return model.Problem{
		People:      people,
		NumSessions: numSessions,
		Constraints: constraints,
	}
}

func people(ids ...string) []model.Person {
	out := make([]model.Person, len(ids))
	for i, id := range ids {
		out[i] = model.Person{ID: id}
	}
	return out
}

func asn(session int, group, person string) model.Assignment {
	return model.Assignment{Session: session, GroupID: group, PersonID: person}
}

func TestEvaluateEmptyProblem(t *testing.T) {
	rep := NewEvaluator(nil).Evaluate(problem(2, people("a")), []model.Assignment{asn(0, "g1", "a")})
	if len(rep.Results) != 0 {
		t.Fatalf("expected empty report, got %d results", len(rep.Results))
	}
}

func TestRepeatEncounterAllPairsOverLimit(t *testing.T) {
	// Three people in one group for one session with max 0: pairs AB, AC
	// and BC each exceed by one.
	p := problem(1, people("A", "B", "C"),
		constraint.RepeatEncounter{MaxAllowedEncounters: 0, PenaltyFunction: constraint.PenaltyLinear, PenaltyWeight: 1})
	schedule := []model.Assignment{asn(0, "g1", "A"), asn(0, "g1", "B"), asn(0, "g1", "C")}

	res := NewEvaluator(nil).Evaluate(p, schedule).Results[0]
	if res.Adheres {
		t.Fatalf("expected non-adherence")
	}
	if res.Violations != 3 {
		t.Fatalf("expected 3 violations, got %d", res.Violations)
	}
	if len(res.Details) != 3 {
		t.Fatalf("expected 3 details, got %d", len(res.Details))
	}
	first, ok := res.Details[0].(RepeatEncounterDetail)
	if !ok {
		t.Fatalf("unexpected detail type %T", res.Details[0])
	}
	if first.Pair != [2]string{"A", "B"} || first.Count != 1 || first.MaxAllowed != 0 {
		t.Fatalf("unexpected first detail: %+v", first)
	}
}

func TestRepeatEncounterOrderIndependence(t *testing.T) {
	p := problem(3, people("A", "B", "C", "D"),
		constraint.RepeatEncounter{MaxAllowedEncounters: 1, PenaltyWeight: 1})
	schedule := []model.Assignment{
		asn(0, "g1", "A"), asn(0, "g1", "B"), asn(0, "g2", "C"), asn(0, "g2", "D"),
		asn(1, "g1", "A"), asn(1, "g1", "B"), asn(1, "g2", "C"),
		asn(2, "g1", "B"), asn(2, "g1", "A"),
	}
	eval := NewEvaluator(nil)
	want := eval.Evaluate(p, schedule).Results[0].Violations

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		shuffled := append([]model.Assignment(nil), schedule...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		if got := eval.Evaluate(p, shuffled).Results[0].Violations; got != want {
			t.Fatalf("violations changed under record reordering: got %d want %d", got, want)
		}
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	p := problem(2, people("A", "B", "C"),
		constraint.RepeatEncounter{MaxAllowedEncounters: 0, PenaltyWeight: 1},
		constraint.MustStayTogether{People: []string{"A", "C"}})
	schedule := []model.Assignment{
		asn(0, "g1", "A"), asn(0, "g1", "B"), asn(0, "g2", "C"),
		asn(1, "g1", "A"), asn(1, "g2", "B"), asn(1, "g1", "C"),
	}
	eval := NewEvaluator(nil)
	first, err := json.Marshal(eval.Evaluate(p, schedule))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	second, err := json.Marshal(eval.Evaluate(p, schedule))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("reports differ across identical evaluations:\n%s\n%s", first, second)
	}
}

func TestAdheresMatchesViolationCount(t *testing.T) {
	p := problem(2, people("A", "B", "C", "D"),
		constraint.RepeatEncounter{MaxAllowedEncounters: 0, PenaltyWeight: 1},
		constraint.MustStayTogether{People: []string{"A", "B"}},
		constraint.ShouldNotBeTogether{People: []string{"C", "D"}, PenaltyWeight: 1},
		constraint.PairMeetingCount{People: [2]string{"A", "D"}, TargetMeetings: 0, Mode: constraint.MeetingAtMost, PenaltyWeight: 1},
	)
	schedule := []model.Assignment{
		asn(0, "g1", "A"), asn(0, "g1", "B"), asn(0, "g2", "C"), asn(0, "g2", "D"),
		asn(1, "g1", "A"), asn(1, "g2", "B"), asn(1, "g1", "D"),
	}
	for _, res := range NewEvaluator(nil).Evaluate(p, schedule).Results {
		if res.Adheres != (res.Violations == 0) {
			t.Fatalf("constraint %d: adheres=%v with %d violations", res.ConstraintIndex, res.Adheres, res.Violations)
		}
	}
}

func TestMustStayTogetherSplit(t *testing.T) {
	p := problem(1, people("A", "B"),
		constraint.MustStayTogether{People: []string{"A", "B"}})
	schedule := []model.Assignment{asn(0, "G1", "A"), asn(0, "G2", "B")}

	res := NewEvaluator(nil).Evaluate(p, schedule).Results[0]
	if res.Violations != 1 {
		t.Fatalf("expected 1 violation for a two-way split, got %d", res.Violations)
	}
	if len(res.Details) != 1 {
		t.Fatalf("expected 1 detail, got %d", len(res.Details))
	}
	d := res.Details[0].(TogetherSplitDetail)
	if d.Session != 0 || len(d.Members) != 2 {
		t.Fatalf("unexpected detail: %+v", d)
	}
	if d.Members[0] != (MemberAssignment{PersonID: "A", GroupID: "G1"}) ||
		d.Members[1] != (MemberAssignment{PersonID: "B", GroupID: "G2"}) {
		t.Fatalf("unexpected members: %+v", d.Members)
	}
}

func TestStayTogetherCountsUnassignedMembers(t *testing.T) {
	p := problem(1, people("A", "B", "C"),
		constraint.ShouldStayTogether{People: []string{"A", "B", "C"}, PenaltyWeight: 1})
	// C is absent from the schedule entirely.
	schedule := []model.Assignment{asn(0, "g1", "A"), asn(0, "g2", "B")}

	res := NewEvaluator(nil).Evaluate(p, schedule).Results[0]
	// One unassigned member plus a two-group split.
	if res.Violations != 2 {
		t.Fatalf("expected 2 violations, got %d", res.Violations)
	}
	d := res.Details[0].(TogetherSplitDetail)
	if d.Members[2].GroupID != "" {
		t.Fatalf("expected C without a group, got %+v", d.Members[2])
	}
}

func TestAttributeBalanceExact(t *testing.T) {
	ppl := []model.Person{
		{ID: "m1", Attributes: map[string]string{"gender": "male"}},
		{ID: "m2", Attributes: map[string]string{"gender": "male"}},
		{ID: "m3", Attributes: map[string]string{"gender": "male"}},
		{ID: "f1", Attributes: map[string]string{"gender": "female"}},
	}
	p := problem(1, ppl, constraint.AttributeBalance{
		GroupID:       "G1",
		AttributeKey:  "gender",
		DesiredValues: map[string]int{"male": 2, "female": 2},
		Mode:          constraint.BalanceExact,
		PenaltyWeight: 1,
	})
	schedule := []model.Assignment{
		asn(0, "G1", "m1"), asn(0, "G1", "m2"), asn(0, "G1", "m3"), asn(0, "G1", "f1"),
	}

	res := NewEvaluator(nil).Evaluate(p, schedule).Results[0]
	// male off by one plus female off by one.
	if res.Violations != 2 {
		t.Fatalf("expected 2 violations, got %d", res.Violations)
	}
	if len(res.Details) != 2 {
		t.Fatalf("expected 2 details, got %d", len(res.Details))
	}
	female := res.Details[0].(AttributeBalanceDetail)
	if female.Value != "female" || female.Desired != 2 || female.Actual != 1 {
		t.Fatalf("unexpected female detail: %+v", female)
	}
}

func TestAttributeBalanceAtLeastIgnoresSurplus(t *testing.T) {
	ppl := []model.Person{
		{ID: "m1", Attributes: map[string]string{"gender": "male"}},
		{ID: "m2", Attributes: map[string]string{"gender": "male"}},
		{ID: "m3", Attributes: map[string]string{"gender": "male"}},
	}
	p := problem(1, ppl, constraint.AttributeBalance{
		GroupID:       "G1",
		AttributeKey:  "gender",
		DesiredValues: map[string]int{"male": 2, "female": 1},
		Mode:          constraint.BalanceAtLeast,
		PenaltyWeight: 1,
	})
	schedule := []model.Assignment{asn(0, "G1", "m1"), asn(0, "G1", "m2"), asn(0, "G1", "m3")}

	res := NewEvaluator(nil).Evaluate(p, schedule).Results[0]
	// Surplus males are fine; only the missing female counts.
	if res.Violations != 1 {
		t.Fatalf("expected 1 violation, got %d", res.Violations)
	}
	d := res.Details[0].(AttributeBalanceDetail)
	if d.Value != "female" || d.Actual != 0 {
		t.Fatalf("unexpected detail: %+v", d)
	}
}

func TestAttributeBalanceMissingAttributeBucket(t *testing.T) {
	ppl := []model.Person{
		{ID: "a", Attributes: map[string]string{"level": "junior"}},
		{ID: "b"}, // no attributes at all
	}
	p := problem(1, ppl, constraint.AttributeBalance{
		GroupID:       "G1",
		AttributeKey:  "level",
		DesiredValues: map[string]int{"junior": 2},
		Mode:          constraint.BalanceExact,
		PenaltyWeight: 1,
	})
	schedule := []model.Assignment{asn(0, "G1", "a"), asn(0, "G1", "b")}

	res := NewEvaluator(nil).Evaluate(p, schedule).Results[0]
	// b lands in the missing-value bucket, not in junior.
	if res.Violations != 1 {
		t.Fatalf("expected 1 violation, got %d", res.Violations)
	}
}

func TestImmovablePeople(t *testing.T) {
	p := problem(2, people("A", "B"),
		constraint.ImmovablePeople{People: []string{"A", "B"}, GroupID: "G1"})
	schedule := []model.Assignment{
		asn(0, "G1", "A"), asn(0, "G2", "B"),
		asn(1, "G1", "A"),
	}

	res := NewEvaluator(nil).Evaluate(p, schedule).Results[0]
	// B misplaced in session 0 and unassigned in session 1.
	if res.Violations != 2 {
		t.Fatalf("expected 2 violations, got %d", res.Violations)
	}
	misplaced := res.Details[0].(ImmovableDetail)
	if misplaced.PersonID != "B" || misplaced.AssignedGroup != "G2" || misplaced.RequiredGroup != "G1" {
		t.Fatalf("unexpected detail: %+v", misplaced)
	}
	unassigned := res.Details[1].(ImmovableDetail)
	if unassigned.Session != 1 || unassigned.AssignedGroup != "" {
		t.Fatalf("unexpected detail: %+v", unassigned)
	}
}

func TestImmovableNonexistentGroupReportsViolations(t *testing.T) {
	p := problem(1, people("A"),
		constraint.ImmovablePeople{People: []string{"A"}, GroupID: "no-such-group"})
	schedule := []model.Assignment{asn(0, "G1", "A")}

	res := NewEvaluator(nil).Evaluate(p, schedule).Results[0]
	if res.Adheres || res.Violations != 1 {
		t.Fatalf("expected a visible violation, got %+v", res)
	}
}

func TestShouldNotBeTogether(t *testing.T) {
	p := problem(1, people("A", "B", "C", "D"),
		constraint.ShouldNotBeTogether{People: []string{"A", "B", "C"}, PenaltyWeight: 1})
	schedule := []model.Assignment{
		asn(0, "g1", "A"), asn(0, "g1", "B"), asn(0, "g1", "C"), asn(0, "g2", "D"),
	}

	res := NewEvaluator(nil).Evaluate(p, schedule).Results[0]
	// Three banned people in one group: m-1 = 2.
	if res.Violations != 2 {
		t.Fatalf("expected 2 violations, got %d", res.Violations)
	}
	d := res.Details[0].(NotTogetherDetail)
	if d.GroupID != "g1" || len(d.People) != 3 {
		t.Fatalf("unexpected detail: %+v", d)
	}
}

func TestPairMeetingCountAtLeastEmitsSessionDetails(t *testing.T) {
	p := problem(3, people("A", "B"),
		constraint.PairMeetingCount{People: [2]string{"A", "B"}, TargetMeetings: 2, Mode: constraint.MeetingAtLeast, PenaltyWeight: 1})
	schedule := []model.Assignment{
		asn(0, "g1", "A"), asn(0, "g1", "B"),
		asn(1, "g1", "A"), asn(1, "g2", "B"),
		asn(2, "g1", "A"), asn(2, "g1", "B"),
	}

	res := NewEvaluator(nil).Evaluate(p, schedule).Results[0]
	if !res.Adheres || res.Violations != 0 {
		t.Fatalf("expected adherence, got %+v", res)
	}
	// One summary plus one detail per selected session, even on adherence.
	if len(res.Details) != 4 {
		t.Fatalf("expected 4 details, got %d", len(res.Details))
	}
	summary := res.Details[0].(PairMeetingSummaryDetail)
	if summary.Actual != 2 || summary.Target != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	apart := res.Details[2].(PairMeetingSessionDetail)
	if apart.Session != 1 || apart.Together || apart.GroupID != "" {
		t.Fatalf("unexpected session detail: %+v", apart)
	}
	together := res.Details[3].(PairMeetingSessionDetail)
	if !together.Together || together.GroupID != "g1" {
		t.Fatalf("unexpected session detail: %+v", together)
	}
}

func TestPairMeetingCountExactDeviation(t *testing.T) {
	p := problem(3, people("A", "B"),
		constraint.PairMeetingCount{People: [2]string{"A", "B"}, TargetMeetings: 1, Mode: constraint.MeetingExact, PenaltyWeight: 1})
	schedule := []model.Assignment{
		asn(0, "g1", "A"), asn(0, "g1", "B"),
		asn(1, "g1", "A"), asn(1, "g1", "B"),
		asn(2, "g1", "A"), asn(2, "g1", "B"),
	}
	res := NewEvaluator(nil).Evaluate(p, schedule).Results[0]
	if res.Violations != 2 {
		t.Fatalf("expected deviation 2, got %d", res.Violations)
	}
}

func TestSessionSelectionHonored(t *testing.T) {
	p := problem(3, people("A", "B"),
		constraint.MustStayTogether{People: []string{"A", "B"}, Sessions: []int{1}})
	// Split in session 0, together in session 1.
	schedule := []model.Assignment{
		asn(0, "g1", "A"), asn(0, "g2", "B"),
		asn(1, "g1", "A"), asn(1, "g1", "B"),
	}
	res := NewEvaluator(nil).Evaluate(p, schedule).Results[0]
	if !res.Adheres {
		t.Fatalf("split outside the selected sessions should not count: %+v", res)
	}
}

func TestUnknownConstraintAssumedSatisfied(t *testing.T) {
	p := problem(1, people("A"),
		constraint.Unknown{Type: "future_kind"},
		constraint.MustStayTogether{People: []string{"A"}})
	schedule := []model.Assignment{asn(0, "g1", "A")}

	rep := NewEvaluator(nil).Evaluate(p, schedule)
	if len(rep.Results) != 2 {
		t.Fatalf("expected both constraints evaluated, got %d", len(rep.Results))
	}
	res := rep.Results[0]
	if !res.Adheres || res.Violations != 0 || len(res.Details) != 0 {
		t.Fatalf("unknown kind must degrade to vacuously satisfied: %+v", res)
	}
	if res.Type != "future_kind" {
		t.Fatalf("unexpected type: %s", res.Type)
	}
}
