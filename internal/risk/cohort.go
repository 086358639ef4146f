package risk

import "sort"

// PercentileScores maps values to rank-based scores in [0,1], aligned with the input index.
// The best value scores 1 and the worst 0; best means largest unless reverse is set. Equal
// values keep their input order, so the earlier one ranks higher. A single value scores 1.
func PercentileScores(values []float64, reverse bool) []float64 {
	n := len(values)
	if n == 0 {
		return nil
	}
	scores := make([]float64, n)
	if n == 1 {
		scores[0] = 1
		return scores
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		if reverse {
			return values[order[a]] < values[order[b]]
		}
		return values[order[a]] > values[order[b]]
	})
	denom := float64(n - 1)
	for rank, idx := range order {
		scores[idx] = 1 - float64(rank)/denom
	}
	return scores
}

// GradientWeights returns linearly decaying allocation weights for a ranked cohort of size n.
// Index 0 is rank 1; weights are strictly decreasing and sum to 1.
func GradientWeights(n int) []float64 {
	if n <= 0 {
		return nil
	}
	total := float64(n*(n+1)) / 2
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = float64(n-i) / total
	}
	return weights
}
