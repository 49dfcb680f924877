package compliance

import (
	"sort"

	"github.com/groupmix/groupmix/core/constraint"
	"github.com/groupmix/groupmix/core/schedule"
)

// attributeMissing buckets members whose attributes lack the constrained key.
const attributeMissing = "__missing__"

// evalAttributeBalance buckets the target group's members by attribute value
// per selected session and sums deficits against the desired counts.
// Attribute values without a desired entry are unconstrained.
func evalAttributeBalance(ix *schedule.Index, index int, c constraint.AttributeBalance, attrs map[string]map[string]string) Result {
	selected := selectSessions(c.Sessions, ix.NumSessions())

	values := make([]string, 0, len(c.DesiredValues))
	for v := range c.DesiredValues {
		values = append(values, v)
	}
	sort.Strings(values)

	violations := 0
	var details []Detail
	for _, s := range selected {
		buckets := make(map[string]int)
		for _, p := range ix.Members(s, c.GroupID) {
			value, ok := attrs[p][c.AttributeKey]
			if !ok {
				value = attributeMissing
			}
			buckets[value]++
		}
		for _, value := range values {
			desired := c.DesiredValues[value]
			actual := buckets[value]
			var deficit int
			if c.Mode == constraint.BalanceAtLeast {
				deficit = max(0, desired-actual)
			} else {
				deficit = abs(actual - desired)
			}
			if deficit == 0 {
				continue
			}
			violations += deficit
			details = append(details, AttributeBalanceDetail{
				Session: s,
				GroupID: c.GroupID,
				Value:   value,
				Desired: desired,
				Actual:  actual,
			})
		}
	}
	return newResult(index, c.Kind(), violations, details)
}
