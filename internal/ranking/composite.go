package ranking

import "math"

// Components are the inputs of the composite score for one miner. Percentiles are relative to
// the surviving cohort.
type Components struct {
	Drawdown              float64
	SharpePercentile      float64
	TotalReturn           float64
	PctProfitable         float64
	PositionCount         int
	PositionPercentile    float64
	ConsistencyPercentile float64
}

// Composite combines the components into one score, higher is better.
func Composite(in Components, cfg Config) float64 {
	ddBase := math.Max(0, 1+in.Drawdown)
	score := math.Pow(ddBase, cfg.DrawdownExp)
	score += math.Pow(in.SharpePercentile, cfg.SharpeExp)
	score += 1 + in.TotalReturn
	score += math.Pow(in.PctProfitable, cfg.ProfitExp)
	if cfg.PositionDivisor > 0 {
		score += in.PositionPercentile * math.Log1p(float64(in.PositionCount)) / cfg.PositionDivisor
	}
	score += in.ConsistencyPercentile
	return score
}
