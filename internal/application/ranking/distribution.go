package ranking

// Distribution summarizes the unified-score spread of the leading patents,
// printed after scoring runs so an operator can sanity-check a profile
// change at a glance.
type Distribution struct {
	Count int     `json:"count"`
	Max   float64 `json:"max"`
	P10   float64 `json:"p10"`
	P50   float64 `json:"p50"`
	Min   float64 `json:"min"`
	Avg   float64 `json:"avg"`
}

// Summarize computes the distribution over the top n ranked patents (all of
// them when n <= 0). Input must already be ranked descending.
func Summarize(ranked []RankedPatent, n int) Distribution {
	slice := TopN(ranked, n)
	if len(slice) == 0 {
		return Distribution{}
	}

	d := Distribution{
		Count: len(slice),
		Max:   slice[0].Unified,
		Min:   slice[len(slice)-1].Unified,
		P10:   slice[percentileIndex(len(slice), 10)].Unified,
		P50:   slice[percentileIndex(len(slice), 50)].Unified,
	}
	var sum float64
	for i := range slice {
		sum += slice[i].Unified
	}
	d.Avg = sum / float64(len(slice))
	return d
}

// percentileIndex maps a percentile into a descending-sorted slice: p10 is
// the score 10% of the way down the list.
func percentileIndex(n, pct int) int {
	i := n * pct / 100
	if i >= n {
		i = n - 1
	}
	return i
}
