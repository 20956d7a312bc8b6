// Package ranking orders scored patents, slices them into tiers, and emits
// the CSV/JSON reports consumed downstream.
package ranking

import (
	"sort"

	"github.com/ipbench/ipsignal/internal/application/scoring"
)

// RankedPatent is a scored patent with its final position and tier.
type RankedPatent struct {
	scoring.ScoredPatent
	Rank int `json:"rank"`
	Tier int `json:"tier"`
}

// Rank sorts descending by unified score. The sort is stable so patents
// with equal scores keep their snapshot order, making exports reproducible.
func Rank(scored []scoring.ScoredPatent) []RankedPatent {
	return RankBy(scored, func(s *scoring.ScoredPatent) float64 { return s.Unified })
}

// RankBy ranks by an arbitrary score key, used when the operator asks for a
// single profile's ordering instead of the unified one.
func RankBy(scored []scoring.ScoredPatent, key func(*scoring.ScoredPatent) float64) []RankedPatent {
	ranked := make([]RankedPatent, len(scored))
	for i, s := range scored {
		ranked[i] = RankedPatent{ScoredPatent: s}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return key(&ranked[i].ScoredPatent) > key(&ranked[j].ScoredPatent)
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// AssignTiers buckets ranked patents into fixed-size tiers: ranks 1..size
// are tier 1, and so on. A non-positive size puts everything in tier 1.
func AssignTiers(ranked []RankedPatent, size int) {
	for i := range ranked {
		if size <= 0 {
			ranked[i].Tier = 1
			continue
		}
		ranked[i].Tier = (ranked[i].Rank-1)/size + 1
	}
}

// TopN returns the leading slice without copying.
func TopN(ranked []RankedPatent, n int) []RankedPatent {
	if n <= 0 || n >= len(ranked) {
		return ranked
	}
	return ranked[:n]
}
