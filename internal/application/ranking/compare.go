package ranking

import "sort"

// Comparison summarizes how a new ranking relates to a baseline.
type Comparison struct {
	Common      int     `json:"common"`
	TopNOverlap float64 `json:"top_n_overlap"`
	TopN        int     `json:"top_n"`
	Spearman    float64 `json:"spearman"`
}

// Compare measures ranking stability between the current ranking and a
// prior report: the share of the baseline top N still in the new top N, and
// Spearman rank correlation over the common patents.
func Compare(current []RankedPatent, baseline *Report, topN int) *Comparison {
	currentIDs := idsOf(current)
	baselineIDs := idsOf(baseline.Patents)

	return &Comparison{
		Common:      commonCount(currentIDs, baselineIDs),
		TopN:        topN,
		TopNOverlap: TopNOverlap(currentIDs, baselineIDs, topN),
		Spearman:    SpearmanRank(currentIDs, baselineIDs),
	}
}

// TopNOverlap returns the fraction of b's top n IDs present in a's top n.
func TopNOverlap(a, b []string, n int) float64 {
	if n <= 0 {
		return 0
	}
	if n > len(a) {
		n = len(a)
	}
	m := n
	if m > len(b) {
		m = len(b)
	}
	if m == 0 {
		return 0
	}

	inA := make(map[string]struct{}, n)
	for _, id := range a[:n] {
		inA[id] = struct{}{}
	}
	hits := 0
	for _, id := range b[:m] {
		if _, ok := inA[id]; ok {
			hits++
		}
	}
	return float64(hits) / float64(m)
}

// SpearmanRank computes the Spearman rank correlation over the IDs common to
// both orderings. Fewer than two common IDs yields 0.
func SpearmanRank(a, b []string) float64 {
	rankA := rankIndex(a)
	rankB := rankIndex(b)

	common := make([]string, 0)
	for id := range rankA {
		if _, ok := rankB[id]; ok {
			common = append(common, id)
		}
	}
	n := len(common)
	if n < 2 {
		return 0
	}
	sort.Strings(common)

	// Re-rank within the common subset so dropped patents do not distort
	// the rank differences.
	subA := subRanks(common, rankA)
	subB := subRanks(common, rankB)

	var d2 float64
	for _, id := range common {
		d := float64(subA[id] - subB[id])
		d2 += d * d
	}
	nf := float64(n)
	return 1 - 6*d2/(nf*(nf*nf-1))
}

func idsOf(ranked []RankedPatent) []string {
	ids := make([]string, len(ranked))
	for i := range ranked {
		ids[i] = ranked[i].PatentID
	}
	return ids
}

func rankIndex(ids []string) map[string]int {
	idx := make(map[string]int, len(ids))
	for i, id := range ids {
		idx[id] = i
	}
	return idx
}

func subRanks(common []string, full map[string]int) map[string]int {
	ordered := make([]string, len(common))
	copy(ordered, common)
	sort.Slice(ordered, func(i, j int) bool { return full[ordered[i]] < full[ordered[j]] })

	sub := make(map[string]int, len(ordered))
	for i, id := range ordered {
		sub[id] = i
	}
	return sub
}

func commonCount(a, b []string) int {
	set := make(map[string]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	n := 0
	for _, id := range b {
		if _, ok := set[id]; ok {
			n++
		}
	}
	return n
}
