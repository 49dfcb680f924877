// Package analysis derives summary statistics from a schedule and its
// compliance report. It mirrors the optimizer's score-summary contract for
// hosts that evaluate schedules the optimizer has not scored.
package analysis

import (
	"gonum.org/v1/gonum/stat"

	"github.com/groupmix/groupmix/core/compliance"
	"github.com/groupmix/groupmix/core/constraint"
	"github.com/groupmix/groupmix/core/model"
	"github.com/groupmix/groupmix/core/schedule"
)

// ContactStats summarizes the pairwise encounter distribution of a schedule.
type ContactStats struct {
	UniqueContacts   int     `json:"unique_contacts"`
	TotalEncounters  int     `json:"total_encounters"`
	MeanEncounters   float64 `json:"mean_encounters"`
	StdDevEncounters float64 `json:"stddev_encounters"`
}

// Contacts scans every session and group and aggregates per-pair encounter
// counts.
func Contacts(ix *schedule.Index) ContactStats {
	counts := make(map[[2]string]int)
	for s := 0; s < ix.NumSessions(); s++ {
		for _, g := range ix.Groups(s) {
			members := ix.Members(s, g)
			for i := 0; i < len(members); i++ {
				for j := i + 1; j < len(members); j++ {
					a, b := members[i], members[j]
					if b < a {
						a, b = b, a
					}
					counts[[2]string{a, b}]++
				}
			}
		}
	}
	stats := ContactStats{UniqueContacts: len(counts)}
	if len(counts) == 0 {
		return stats
	}
	samples := make([]float64, 0, len(counts))
	for _, n := range counts {
		stats.TotalEncounters += n
		samples = append(samples, float64(n))
	}
	stats.MeanEncounters = stat.Mean(samples, nil)
	stats.StdDevEncounters = stat.StdDev(samples, nil)
	return stats
}

// Summarize builds a ScoreSummary from a compliance report the way the
// optimizer's own scoring would: repeat-encounter penalties honor the
// declared linear/squared penalty function here, where scoring happens.
func Summarize(p model.Problem, rep compliance.Report, ix *schedule.Index) model.ScoreSummary {
	var sum model.ScoreSummary
	sum.UniqueContacts = Contacts(ix).UniqueContacts
	for i, res := range rep.Results {
		if i >= len(p.Constraints) {
			break
		}
		c := p.Constraints[i]
		switch c := c.(type) {
		case constraint.RepeatEncounter:
			sum.RepetitionPenalty += c.PenaltyWeight * repeatPenalty(c, res)
		case constraint.AttributeBalance:
			sum.AttributeBalancePenalty += c.PenaltyWeight * float64(res.Violations)
		default:
			sum.ConstraintPenalty += c.Weight() * float64(res.Violations)
		}
	}
	sum.FinalScore = sum.RepetitionPenalty + sum.AttributeBalancePenalty + sum.ConstraintPenalty
	return sum
}

func repeatPenalty(c constraint.RepeatEncounter, res compliance.Result) float64 {
	if c.PenaltyFunction != constraint.PenaltySquared {
		return float64(res.Violations)
	}
	var total float64
	for _, d := range res.Details {
		if rd, ok := d.(compliance.RepeatEncounterDetail); ok {
			excess := float64(rd.Count - rd.MaxAllowed)
			total += excess * excess
		}
	}
	return total
}
