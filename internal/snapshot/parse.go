// Package snapshot fetches, decodes, archives and watches upstream miner snapshots.
package snapshot

import (
	"fmt"
	"time"

	"sigrank/internal/signal"

	"github.com/tidwall/gjson"
)

// Parse decodes a raw feed payload: a JSON object keyed by miner id. Miners keep document order.
// A payload that is not such an object fails as a whole; a miner record that does not match the
// schema is skipped and reported in Snapshot.Rejected.
func Parse(raw []byte, fetchedAt time.Time) (signal.Snapshot, error) {
	snap := signal.Snapshot{FetchedAt: fetchedAt}
	if !gjson.ValidBytes(raw) {
		return snap, &signal.InputError{Reason: "payload is not valid JSON"}
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return snap, &signal.InputError{Reason: fmt.Sprintf("payload must be an object keyed by miner id, got %s", root.Type)}
	}

	seen := make(map[string]struct{})
	root.ForEach(func(key, value gjson.Result) bool {
		id := key.String()
		if _, dup := seen[id]; dup {
			snap.Rejected = append(snap.Rejected, &signal.InputError{MinerID: id, Reason: "duplicate miner id"})
			return true
		}
		seen[id] = struct{}{}
		if id == "" {
			snap.Rejected = append(snap.Rejected, &signal.InputError{MinerID: "<empty>", Reason: "empty miner id"})
			return true
		}
		if err := validateMiner(value.Raw); err != nil {
			snap.Rejected = append(snap.Rejected, &signal.InputError{MinerID: id, Reason: err.Error()})
			return true
		}
		snap.Miners = append(snap.Miners, decodeMiner(id, value))
		return true
	})
	return snap, nil
}

// MinerCount counts the top-level miner entries without decoding them.
func MinerCount(raw []byte) int {
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return 0
	}
	n := 0
	root.ForEach(func(_, _ gjson.Result) bool {
		n++
		return true
	})
	return n
}

func decodeMiner(id string, v gjson.Result) signal.Miner {
	m := signal.Miner{
		ID:                   id,
		AllTimeReturn:        v.Get("all_time_returns").Float(),
		PercentageProfitable: v.Get("percentage_profitable").Float(),
	}
	if r := v.Get("thirty_day_returns"); r.Exists() && r.Type != gjson.Null {
		f := r.Float()
		m.ThirtyDayReturn = &f
	}
	v.Get("positions").ForEach(func(_, p gjson.Result) bool {
		m.Positions = append(m.Positions, decodePosition(id, p))
		return true
	})
	return m
}

func decodePosition(minerID string, v gjson.Result) signal.Position {
	p := signal.Position{
		ID:                v.Get("position_uuid").String(),
		MinerID:           minerID,
		Pair:              decodePair(v.Get("trade_pair")),
		Closed:            v.Get("is_closed_position").Bool(),
		OpenAt:            v.Get("open_ms").Int(),
		CurrentReturn:     1,
		NetLeverage:       v.Get("net_leverage").Float(),
		AverageEntryPrice: v.Get("average_entry_price").Float(),
	}
	if hk := v.Get("miner_hotkey"); hk.Exists() && hk.String() != "" {
		p.MinerID = hk.String()
	}
	if c := v.Get("close_ms"); c.Exists() && c.Type != gjson.Null && c.Int() > 0 {
		ts := c.Int()
		p.CloseAt = &ts
	}
	// a missing current return means breakeven, not a total loss
	if r := v.Get("current_return"); r.Exists() && r.Type != gjson.Null {
		p.CurrentReturn = r.Float()
	}
	if r := v.Get("return_at_close"); r.Exists() && r.Type != gjson.Null {
		f := r.Float()
		p.ReturnAtClose = &f
	}
	idx := 0
	v.Get("orders").ForEach(func(_, o gjson.Result) bool {
		p.Orders = append(p.Orders, signal.Order{
			Type:        signal.ParseOrderType(o.Get("order_type").String()),
			Leverage:    o.Get("leverage").Float(),
			Price:       o.Get("price").Float(),
			ProcessedAt: o.Get("processed_ms").Int(),
			Seq:         idx,
		})
		idx++
		return true
	})
	return p
}

// decodePair accepts the feed's array form [id, symbol, ...], an object, or a bare id.
func decodePair(v gjson.Result) signal.TradePair {
	switch {
	case v.IsArray():
		items := v.Array()
		pair := signal.TradePair{ID: items[0].String()}
		if len(items) > 1 {
			pair.Symbol = items[1].String()
		}
		return pair
	case v.IsObject():
		id := v.Get("trade_pair_id").String()
		if id == "" {
			id = v.Get("id").String()
		}
		sym := v.Get("trade_pair").String()
		if sym == "" {
			sym = v.Get("symbol").String()
		}
		return signal.TradePair{ID: id, Symbol: sym}
	default:
		return signal.TradePair{ID: v.String()}
	}
}
