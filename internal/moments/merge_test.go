package moments

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/momentd/internal/matching"
)

func TestMerge_NeverRegressesScore(t *testing.T) {
	existing := []Match{{ThoughtID: "a", Score: 0.6, Reason: "old"}}

	lower := Merge(existing, []matching.Match{{ThoughtID: "a", Score: 0.4, Reason: "worse"}})
	assert.Empty(t, lower.Upgrades)
	assert.Empty(t, lower.Inserts)
	assert.Equal(t, 1, lower.Total)

	equal := Merge(existing, []matching.Match{{ThoughtID: "a", Score: 0.6, Reason: "same"}})
	assert.Empty(t, equal.Upgrades, "only strictly higher scores upgrade")

	higher := Merge(existing, []matching.Match{{ThoughtID: "a", Score: 0.8, Reason: "better"}})
	assert.Equal(t, []matching.Match{{ThoughtID: "a", Score: 0.8, Reason: "better"}}, higher.Upgrades)
	assert.Empty(t, higher.Inserts)
	assert.Equal(t, 1, higher.Total)
}

func TestMerge_NeverDeletes(t *testing.T) {
	existing := []Match{
		{ThoughtID: "a", Score: 0.7},
		{ThoughtID: "b", Score: 0.9},
	}

	plan := Merge(existing, []matching.Match{{ThoughtID: "a", Score: 0.75}})

	assert.Equal(t, 2, plan.Total)
	assert.Len(t, plan.Upgrades, 1)
	assert.Empty(t, plan.Inserts)
}

func TestMerge_InsertsNewOnly(t *testing.T) {
	existing := []Match{{ThoughtID: "a", Score: 0.7}}
	fresh := []matching.Match{
		{ThoughtID: "c", Score: 0.6},
		{ThoughtID: "a", Score: 0.65},
		{ThoughtID: "d", Score: 0.55},
		{ThoughtID: "c", Score: 0.9},
	}

	plan := Merge(existing, fresh)

	assert.Equal(t, []matching.Match{{ThoughtID: "c", Score: 0.6}, {ThoughtID: "d", Score: 0.55}}, plan.Inserts)
	assert.Empty(t, plan.Upgrades)
	assert.Equal(t, 3, plan.Total, "count is rows after merge, not the fresh result size")
}

func TestMerge_Empty(t *testing.T) {
	assert.Equal(t, MergePlan{}, Merge(nil, nil))
	assert.Equal(t, 2, Merge([]Match{{ThoughtID: "a"}, {ThoughtID: "b"}}, nil).Total)
}
