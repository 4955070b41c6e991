package moments

import "github.com/fyrsmithlabs/momentd/internal/matching"

// MergePlan is the set of writes that folds a fresh scoring result into a
// moment's existing matches.
type MergePlan struct {
	// Inserts are thoughts not matched before.
	Inserts []matching.Match
	// Upgrades are existing matches the fresh result scores strictly higher.
	Upgrades []matching.Match
	// Total is the number of match rows after the plan is applied.
	Total int
}

// Merge plans an additive merge: scores only go up, and existing matches
// missing from fresh are left alone.
func Merge(existing []Match, fresh []matching.Match) MergePlan {
	current := make(map[string]float64, len(existing))
	for _, m := range existing {
		current[m.ThoughtID] = m.Score
	}

	plan := MergePlan{}
	seen := make(map[string]struct{}, len(fresh))
	for _, f := range fresh {
		if _, dup := seen[f.ThoughtID]; dup {
			continue
		}
		seen[f.ThoughtID] = struct{}{}

		old, ok := current[f.ThoughtID]
		switch {
		case !ok:
			plan.Inserts = append(plan.Inserts, f)
		case f.Score > old:
			plan.Upgrades = append(plan.Upgrades, f)
		}
	}

	plan.Total = len(current) + len(plan.Inserts)
	return plan
}
