package loadtest

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNoOutcomes is returned when there is nothing to verify.
var ErrNoOutcomes = errors.New("no outcomes to verify")

// verifyCohorts checks that within every cohort a faster sprint never has a
// lower percentile or a worse rank than a slower one. It returns the number
// of cohorts checked.
func verifyCohorts(outcomes []Outcome) (int, error) {
	if len(outcomes) == 0 {
		return 0, ErrNoOutcomes
	}

	cohorts := map[string][]Outcome{}
	for _, o := range outcomes {
		if o.Snapshot == nil {
			continue
		}
		cohorts[o.Snapshot.CohortKey] = append(cohorts[o.Snapshot.CohortKey], o)
	}

	for key, members := range cohorts {
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].SprintTime < members[j].SprintTime
		})
		for i := 1; i < len(members); i++ {
			prev, cur := members[i-1], members[i]
			if prev.SprintTime == cur.SprintTime {
				continue
			}
			if cur.Snapshot.Percentile > prev.Snapshot.Percentile {
				return 0, fmt.Errorf("cohort %s: %s (%.3fs) has percentile %.2f above faster %s (%.3fs, %.2f)",
					key, cur.SubmissionID, cur.SprintTime, cur.Snapshot.Percentile,
					prev.SubmissionID, prev.SprintTime, prev.Snapshot.Percentile)
			}
			if cur.Snapshot.RelativeRank < prev.Snapshot.RelativeRank {
				return 0, fmt.Errorf("cohort %s: %s ranks %d ahead of faster %s at %d",
					key, cur.SubmissionID, cur.Snapshot.RelativeRank, prev.SubmissionID, prev.Snapshot.RelativeRank)
			}
		}
	}
	return len(cohorts), nil
}
