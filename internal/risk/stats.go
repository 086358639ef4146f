package risk

import (
	"math"
	"sort"

	"sigrank/internal/signal"
)

// Mean returns the arithmetic mean, 0 for an empty sample.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev is the population standard deviation.
func StdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := Mean(xs)
	var acc float64
	for _, x := range xs {
		d := x - mean
		acc += d * d
	}
	return math.Sqrt(acc / float64(len(xs)))
}

// Sharpe is mean/stdev over per-position return deltas. Not annualised.
// Fewer than two samples or zero variance yield 0.
func Sharpe(deltas []float64) float64 {
	if len(deltas) < 2 {
		return 0
	}
	sd := StdDev(deltas)
	if sd <= 1e-12 {
		return 0
	}
	return Mean(deltas) / sd
}

// Consistency scores trade cadence as 1 - stdev(gaps)/mean(gaps), where a gap runs from a
// position's close to the next position's open. Gaps after a position that never closed are
// skipped. Fewer than two gaps or a zero mean yield 0.
func Consistency(positions []signal.Position) float64 {
	sorted := make([]signal.Position, len(positions))
	copy(sorted, positions)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].OpenAt < sorted[j].OpenAt })

	gaps := make([]float64, 0, len(sorted))
	for i := 1; i < len(sorted); i++ {
		prev := sorted[i-1]
		if prev.CloseAt == nil {
			continue
		}
		gaps = append(gaps, float64(sorted[i].OpenAt-*prev.CloseAt))
	}
	if len(gaps) < 2 {
		return 0
	}
	mean := Mean(gaps)
	if mean == 0 {
		return 0
	}
	return 1 - StdDev(gaps)/mean
}
