package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ipbench/ipsignal/internal/application/scoring"
)

func scoredWith(id string, unified float64) scoring.ScoredPatent {
	return scoring.ScoredPatent{PatentID: id, Unified: unified}
}

func TestRankStableDescending(t *testing.T) {
	ranked := Rank([]scoring.ScoredPatent{
		scoredWith("A", 40),
		scoredWith("B", 80),
		scoredWith("C", 40),
		scoredWith("D", 95),
	})

	ids := make([]string, len(ranked))
	for i, r := range ranked {
		ids[i] = r.PatentID
	}
	// Equal scores keep snapshot order: A before C.
	assert.Equal(t, []string{"D", "B", "A", "C"}, ids)
	for i, r := range ranked {
		assert.Equal(t, i+1, r.Rank)
	}
}

func TestRankByProfileScore(t *testing.T) {
	scored := []scoring.ScoredPatent{
		{PatentID: "A", Unified: 90, ProfileScores: map[string]float64{"aggressive": 10}},
		{PatentID: "B", Unified: 10, ProfileScores: map[string]float64{"aggressive": 90}},
	}
	ranked := RankBy(scored, func(s *scoring.ScoredPatent) float64 {
		return s.ProfileScores["aggressive"]
	})
	assert.Equal(t, "B", ranked[0].PatentID)
	assert.Equal(t, 1, ranked[0].Rank)
}

func TestAssignTiers(t *testing.T) {
	ranked := Rank([]scoring.ScoredPatent{
		scoredWith("A", 50), scoredWith("B", 40), scoredWith("C", 30),
		scoredWith("D", 20), scoredWith("E", 10),
	})
	AssignTiers(ranked, 2)
	tiers := make([]int, len(ranked))
	for i, r := range ranked {
		tiers[i] = r.Tier
	}
	assert.Equal(t, []int{1, 1, 2, 2, 3}, tiers)

	AssignTiers(ranked, 0)
	for _, r := range ranked {
		assert.Equal(t, 1, r.Tier)
	}
}

func TestTopN(t *testing.T) {
	ranked := Rank([]scoring.ScoredPatent{
		scoredWith("A", 3), scoredWith("B", 2), scoredWith("C", 1),
	})
	assert.Len(t, TopN(ranked, 2), 2)
	assert.Len(t, TopN(ranked, 0), 3)
	assert.Len(t, TopN(ranked, 10), 3)
}

func TestSummarize(t *testing.T) {
	var scored []scoring.ScoredPatent
	for i := 100; i >= 1; i-- {
		scored = append(scored, scoredWith("p", float64(i)))
	}
	ranked := Rank(scored)

	d := Summarize(ranked, 0)
	assert.Equal(t, 100, d.Count)
	assert.Equal(t, 100.0, d.Max)
	assert.Equal(t, 1.0, d.Min)
	assert.Equal(t, 90.0, d.P10)
	assert.Equal(t, 50.0, d.P50)
	assert.InDelta(t, 50.5, d.Avg, 1e-9)

	assert.Zero(t, Summarize(nil, 10).Count)
}
