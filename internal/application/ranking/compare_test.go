package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ipbench/ipsignal/internal/application/scoring"
)

func rankedIDs(ids ...string) []RankedPatent {
	ranked := make([]RankedPatent, len(ids))
	for i, id := range ids {
		ranked[i] = RankedPatent{ScoredPatent: scoring.ScoredPatent{PatentID: id}, Rank: i + 1}
	}
	return ranked
}

func TestTopNOverlap(t *testing.T) {
	a := []string{"1", "2", "3", "4", "5"}
	b := []string{"3", "2", "9", "1", "8"}

	// Top 3 of b is {3,2,9}; {3,2} are in top 3 of a.
	assert.InDelta(t, 2.0/3.0, TopNOverlap(a, b, 3), 1e-9)
	assert.InDelta(t, 1.0, TopNOverlap(a, a, 5), 1e-9)
	assert.Zero(t, TopNOverlap(a, b, 0))
	assert.Zero(t, TopNOverlap(nil, b, 3))
}

func TestSpearmanRank(t *testing.T) {
	// Identical orderings correlate perfectly.
	assert.InDelta(t, 1.0, SpearmanRank([]string{"a", "b", "c", "d"}, []string{"a", "b", "c", "d"}), 1e-9)

	// Full reversal correlates perfectly negatively.
	assert.InDelta(t, -1.0, SpearmanRank([]string{"a", "b", "c", "d"}, []string{"d", "c", "b", "a"}), 1e-9)

	// IDs absent from either side are ignored; the common subset {a,b}
	// keeps its relative order.
	assert.InDelta(t, 1.0, SpearmanRank([]string{"a", "x", "b"}, []string{"a", "b", "y"}), 1e-9)

	assert.Zero(t, SpearmanRank([]string{"a"}, []string{"a"}))
	assert.Zero(t, SpearmanRank([]string{"a"}, []string{"b"}))
}

func TestCompare(t *testing.T) {
	current := rankedIDs("1", "2", "3", "4")
	baseline := &Report{Patents: rankedIDs("2", "1", "3", "5")}

	c := Compare(current, baseline, 3)
	assert.Equal(t, 3, c.Common)
	assert.Equal(t, 3, c.TopN)
	assert.InDelta(t, 1.0, c.TopNOverlap, 1e-9) // top 3 sets match exactly
	assert.Greater(t, c.Spearman, 0.0)
}
