package compliance

import (
	"sort"

	"github.com/groupmix/groupmix/core/constraint"
	"github.com/groupmix/groupmix/core/schedule"
)

// evalRepeatEncounter counts, for every unordered pair of people, how many
// sessions they share a group in, and reports each pair exceeding the
// allowed maximum. Violation mass is the raw excess per pair; linear vs
// squared weighting is metadata applied by downstream scoring, never here.
func evalRepeatEncounter(ix *schedule.Index, index int, c constraint.RepeatEncounter) Result {
	counts := make(map[[2]string]int)
	sessions := make(map[[2]string][]int)
	for s := 0; s < ix.NumSessions(); s++ {
		for _, g := range ix.Groups(s) {
			members := ix.Members(s, g)
			for i := 0; i < len(members); i++ {
				for j := i + 1; j < len(members); j++ {
					pair := sortedPair([2]string{members[i], members[j]})
					counts[pair]++
					sessions[pair] = append(sessions[pair], s)
				}
			}
		}
	}

	offending := make([][2]string, 0)
	for pair, n := range counts {
		if n > c.MaxAllowedEncounters {
			offending = append(offending, pair)
		}
	}
	sort.Slice(offending, func(i, j int) bool {
		if offending[i][0] != offending[j][0] {
			return offending[i][0] < offending[j][0]
		}
		return offending[i][1] < offending[j][1]
	})

	violations := 0
	details := make([]Detail, 0, len(offending))
	for _, pair := range offending {
		n := counts[pair]
		violations += n - c.MaxAllowedEncounters
		details = append(details, RepeatEncounterDetail{
			Pair:       pair,
			Count:      n,
			MaxAllowed: c.MaxAllowedEncounters,
			Sessions:   sessions[pair],
		})
	}
	return newResult(index, c.Kind(), violations, details)
}

// evalPairMeetingCount counts the selected sessions in which the pair shares
// a group and compares the total against the target per mode. One summary
// detail is emitted, plus one together/apart detail per selected session
// regardless of adherence.
func evalPairMeetingCount(ix *schedule.Index, index int, c constraint.PairMeetingCount) Result {
	selected := selectSessions(c.Sessions, ix.NumSessions())
	a, b := c.People[0], c.People[1]

	actual := 0
	var togetherSessions []int
	perSession := make([]Detail, 0, len(selected))
	for _, s := range selected {
		ga, okA := ix.GroupOf(a, s)
		gb, okB := ix.GroupOf(b, s)
		together := okA && okB && ga == gb
		d := PairMeetingSessionDetail{Session: s, Pair: c.People, Together: together}
		if together {
			actual++
			togetherSessions = append(togetherSessions, s)
			d.GroupID = ga
		}
		perSession = append(perSession, d)
	}

	var deviation int
	switch c.Mode {
	case constraint.MeetingAtLeast:
		deviation = max(0, c.TargetMeetings-actual)
	case constraint.MeetingAtMost:
		deviation = max(0, actual-c.TargetMeetings)
	default: // exact
		deviation = abs(c.TargetMeetings - actual)
	}

	details := make([]Detail, 0, len(perSession)+1)
	details = append(details, PairMeetingSummaryDetail{
		Pair:     c.People,
		Target:   c.TargetMeetings,
		Mode:     string(c.Mode),
		Actual:   actual,
		Sessions: togetherSessions,
	})
	details = append(details, perSession...)
	return newResult(index, c.Kind(), deviation, details)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
