// Package signal holds the value types shared by the ranking and aggregation stages.
package signal

import (
	"sort"
	"strings"
	"time"
)

// OrderType is the upstream order kind. Only FLAT carries semantics for the engine.
type OrderType string

const (
	OrderLong   OrderType = "LONG"
	OrderShort  OrderType = "SHORT"
	OrderFlat   OrderType = "FLAT"
	OrderLimit  OrderType = "LIMIT"
	OrderMarket OrderType = "MARKET"
)

// ParseOrderType upper-cases and trims raw; unknown kinds are kept verbatim.
func ParseOrderType(raw string) OrderType {
	return OrderType(strings.ToUpper(strings.TrimSpace(raw)))
}

func (t OrderType) IsFlat() bool { return t == OrderFlat }

// TradePair identifies an instrument as reported by the source feed.
type TradePair struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol,omitempty"`
}

// Order is one immutable fill in a position's history.
type Order struct {
	Type        OrderType `json:"order_type"`
	Leverage    float64   `json:"leverage"`
	Price       float64   `json:"price"`
	ProcessedAt int64     `json:"processed_ms"`
	// Seq is the index in the source list, used to break ProcessedAt ties.
	Seq int `json:"-"`
}

// SortOrders returns a chronologically ordered copy of orders.
func SortOrders(orders []Order) []Order {
	out := make([]Order, len(orders))
	copy(out, orders)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ProcessedAt != out[j].ProcessedAt {
			return out[i].ProcessedAt < out[j].ProcessedAt
		}
		return out[i].Seq < out[j].Seq
	})
	return out
}

// AppendOrders appends src to dst and renumbers Seq so the appended orders tie-break after
// everything already in dst, keeping src's relative order.
func AppendOrders(dst []Order, src ...Order) []Order {
	ordered := SortOrders(src)
	base := len(dst)
	for i, o := range ordered {
		o.Seq = base + i
		dst = append(dst, o)
	}
	return dst
}

// Position is a miner's position on a single trade pair.
type Position struct {
	ID                string    `json:"position_uuid"`
	MinerID           string    `json:"miner_hotkey"`
	Pair              TradePair `json:"trade_pair"`
	Orders            []Order   `json:"orders"`
	Closed            bool      `json:"is_closed_position"`
	OpenAt            int64     `json:"open_ms"`
	CloseAt           *int64    `json:"close_ms,omitempty"`
	ReturnAtClose     *float64  `json:"return_at_close,omitempty"`
	CurrentReturn     float64   `json:"current_return"`
	NetLeverage       float64   `json:"net_leverage"`
	AverageEntryPrice float64   `json:"average_entry_price"`
}

// ReturnFactor is the multiplicative return of the position (1.0 = breakeven).
// Closed positions report return_at_close, open ones their current return.
func (p Position) ReturnFactor() float64 {
	if p.Closed && p.ReturnAtClose != nil {
		return *p.ReturnAtClose
	}
	return p.CurrentReturn
}

// ReturnDelta is ReturnFactor minus one.
func (p Position) ReturnDelta() float64 {
	return p.ReturnFactor() - 1
}

// LastOrderAt returns the latest order timestamp, or OpenAt when there are no orders.
func (p Position) LastOrderAt() int64 {
	last := p.OpenAt
	for _, o := range p.Orders {
		if o.ProcessedAt > last {
			last = o.ProcessedAt
		}
	}
	return last
}

// IsOpen reports whether the position is still live.
func (p Position) IsOpen() bool { return !p.Closed }

// Miner is one signal provider and its full position history.
type Miner struct {
	ID                   string     `json:"miner_id"`
	Positions            []Position `json:"positions"`
	AllTimeReturn        float64    `json:"all_time_returns"`
	ThirtyDayReturn      *float64   `json:"thirty_day_returns,omitempty"`
	PercentageProfitable float64    `json:"percentage_profitable"`
}

// LastActivity is the latest order timestamp across all positions, 0 when empty.
func (m Miner) LastActivity() int64 {
	var last int64
	for _, p := range m.Positions {
		if ts := p.LastOrderAt(); ts > last {
			last = ts
		}
	}
	return last
}

// Snapshot is one retrieval of the upstream feed.
type Snapshot struct {
	Miners    []Miner   `json:"miners"`
	FetchedAt time.Time `json:"fetched_at"`
	// Rejected collects isolable input errors for miners dropped during parsing.
	Rejected []error `json:"-"`
}

// Index maps miner id to miner.
func (s Snapshot) Index() map[string]Miner {
	out := make(map[string]Miner, len(s.Miners))
	for _, m := range s.Miners {
		out[m.ID] = m
	}
	return out
}

// AssetMetrics annotates a ranked miner with its exposure on a watched asset.
type AssetMetrics struct {
	Symbol        string  `json:"symbol" yaml:"symbol"`
	NetPosition   float64 `json:"net_position" yaml:"net_position"`
	AveragePrice  float64 `json:"average_price" yaml:"average_price"`
	Positions     int     `json:"positions" yaml:"positions"`
	OpenPositions int     `json:"open_positions" yaml:"open_positions"`
}

// MinerScoreRecord is recomputed on every ranking pass and never treated as source of truth.
type MinerScoreRecord struct {
	MinerID          string                  `json:"miner_id" yaml:"miner_id"`
	Rank             int                     `json:"rank" yaml:"rank"`
	MaxDrawdown      float64                 `json:"max_drawdown" yaml:"max_drawdown"`
	SharpeRatio      float64                 `json:"sharpe_ratio" yaml:"sharpe_ratio"`
	TotalReturn      float64                 `json:"total_return" yaml:"total_return"`
	PctProfitable    float64                 `json:"pct_profitable" yaml:"pct_profitable"`
	PositionCount    int                     `json:"position_count" yaml:"position_count"`
	ConsistencyScore float64                 `json:"consistency_score" yaml:"consistency_score"`
	CompositeScore   float64                 `json:"composite_score" yaml:"composite_score"`
	Weight           float64                 `json:"weight" yaml:"weight"`
	AllTimeReturn    float64                 `json:"all_time_return" yaml:"all_time_return"`
	ThirtyDayReturn  *float64                `json:"thirty_day_return,omitempty" yaml:"thirty_day_return,omitempty"`
	Assets           map[string]AssetMetrics `json:"assets,omitempty" yaml:"assets,omitempty"`
}

// AssetSignal is the aggregated cross-miner depth for one canonical asset.
type AssetSignal struct {
	Symbol          string   `json:"symbol" yaml:"symbol"`
	Depth           float64  `json:"depth" yaml:"depth"`
	AveragePrice    float64  `json:"average_price" yaml:"average_price"`
	LastPrice       float64  `json:"last_price" yaml:"last_price"`
	OriginalSymbols []string `json:"original_symbols" yaml:"original_symbols"`
	Contributors    int      `json:"contributors" yaml:"contributors"`
	Timestamp       int64    `json:"timestamp" yaml:"timestamp"`
}
