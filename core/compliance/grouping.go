package compliance

import (
	"github.com/groupmix/groupmix/core/constraint"
	"github.com/groupmix/groupmix/core/schedule"
)

// evalImmovablePeople checks that every pinned person sits in the required
// group for each selected session. A person absent from the schedule counts
// as a violation with an empty assigned group; a nonexistent group id simply
// never matches, surfacing as violations rather than an error.
func evalImmovablePeople(ix *schedule.Index, index int, c constraint.ImmovablePeople) Result {
	selected := selectSessions(c.Sessions, ix.NumSessions())
	violations := 0
	var details []Detail
	for _, s := range selected {
		for _, p := range c.People {
			g, ok := ix.GroupOf(p, s)
			if ok && g == c.GroupID {
				continue
			}
			violations++
			details = append(details, ImmovableDetail{
				Session:       s,
				PersonID:      p,
				RequiredGroup: c.GroupID,
				AssignedGroup: g,
			})
		}
	}
	return newResult(index, c.Kind(), violations, details)
}

// evalStayTogether covers both the hard and soft stay-together kinds. Per
// selected session, each unassigned member counts as one violation and each
// distinct group beyond the first counts as one more. A session with any
// split or unassigned member yields one detail listing every member with
// their (possibly absent) group.
func evalStayTogether(ix *schedule.Index, index int, kind constraint.Kind, people []string, sessionSpec []int) Result {
	selected := selectSessions(sessionSpec, ix.NumSessions())
	violations := 0
	var details []Detail
	for _, s := range selected {
		members := make([]MemberAssignment, 0, len(people))
		groups := make(map[string]struct{})
		unassigned := 0
		for _, p := range people {
			g, ok := ix.GroupOf(p, s)
			if !ok {
				unassigned++
				members = append(members, MemberAssignment{PersonID: p})
				continue
			}
			groups[g] = struct{}{}
			members = append(members, MemberAssignment{PersonID: p, GroupID: g})
		}
		split := max(0, len(groups)-1)
		violations += unassigned + split
		if split > 0 || unassigned > 0 {
			details = append(details, TogetherSplitDetail{Session: s, Members: members})
		}
	}
	return newResult(index, kind, violations, details)
}

// evalNotTogether scans every group per selected session for overlap with
// the keep-apart set; an overlap of m people contributes m-1 violations.
func evalNotTogether(ix *schedule.Index, index int, c constraint.ShouldNotBeTogether) Result {
	banned := make(map[string]struct{}, len(c.People))
	for _, p := range c.People {
		banned[p] = struct{}{}
	}
	selected := selectSessions(c.Sessions, ix.NumSessions())
	violations := 0
	var details []Detail
	for _, s := range selected {
		for _, g := range ix.Groups(s) {
			var overlap []string
			for _, p := range ix.Members(s, g) {
				if _, ok := banned[p]; ok {
					overlap = append(overlap, p)
				}
			}
			if len(overlap) > 1 {
				violations += len(overlap) - 1
				details = append(details, NotTogetherDetail{Session: s, GroupID: g, People: overlap})
			}
		}
	}
	return newResult(index, c.Kind(), violations, details)
}
