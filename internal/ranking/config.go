package ranking

// Config holds the filter thresholds and score tunables. It is fixed once the Ranker is built.
type Config struct {
	MinTrades      int
	DrawdownFloor  float64
	MinProfitable  float64
	MinTotalReturn float64

	DrawdownExp     float64
	SharpeExp       float64
	ProfitExp       float64
	PositionDivisor float64

	// TopN limits the ranked output; 0 keeps every surviving miner.
	TopN    int
	Workers int
}

// DefaultConfig mirrors the shipped scoring defaults.
func DefaultConfig() Config {
	return Config{
		MinTrades:       10,
		DrawdownFloor:   -0.25,
		MinProfitable:   0.5,
		MinTotalReturn:  0,
		DrawdownExp:     6,
		SharpeExp:       2,
		ProfitExp:       5,
		PositionDivisor: 5,
		TopN:            10,
		Workers:         4,
	}
}
