package notify

import (
	"context"
	"sort"
	"time"

	"sigrank/internal/store"

	"github.com/shopspring/decimal"
)

// changeTolerance is the smallest depth move that counts as a change.
var changeTolerance = decimal.New(1, -10)

// Change is a depth that moved since it was last confirmed.
type Change struct {
	Symbol   string  `json:"symbol"`
	Previous float64 `json:"previous"`
	Current  float64 `json:"current"`
}

func (c Change) Delta() float64 {
	d, _ := decimal.NewFromFloat(c.Current).Sub(decimal.NewFromFloat(c.Previous)).Float64()
	return d
}

// Diff lists symbols whose depth differs by more than the tolerance. A symbol missing from next
// counts as depth 0. Output is sorted by symbol.
func Diff(prev, next map[string]float64) []Change {
	symbols := make(map[string]struct{}, len(prev)+len(next))
	for sym := range prev {
		symbols[sym] = struct{}{}
	}
	for sym := range next {
		symbols[sym] = struct{}{}
	}
	var out []Change
	for sym := range symbols {
		p, n := prev[sym], next[sym]
		delta := decimal.NewFromFloat(n).Sub(decimal.NewFromFloat(p)).Abs()
		if delta.GreaterThan(changeTolerance) {
			out = append(out, Change{Symbol: sym, Previous: p, Current: n})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Tracker compares fresh depths with the ones an account last confirmed.
type Tracker struct {
	store   store.Store
	account string
}

func NewTracker(st store.Store, account string) *Tracker {
	if account == "" {
		account = "default"
	}
	return &Tracker{store: st, account: account}
}

// Pending returns the changes between depths and the confirmed values.
func (t *Tracker) Pending(ctx context.Context, depths map[string]float64) ([]Change, error) {
	confirmed, err := t.Confirmed(ctx)
	if err != nil {
		return nil, err
	}
	return Diff(confirmed, depths), nil
}

func (t *Tracker) Confirmed(ctx context.Context) (map[string]float64, error) {
	uow, err := t.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()
	return uow.Depths().ListByAccount(ctx, t.account)
}

// Confirm records the changes as the account's current depths.
func (t *Tracker) Confirm(ctx context.Context, changes []Change, at time.Time) error {
	if len(changes) == 0 {
		return nil
	}
	return store.WithTx(ctx, t.store, func(uow store.UnitOfWork) error {
		repo := uow.Depths()
		for _, c := range changes {
			if err := repo.Upsert(ctx, t.account, c.Symbol, c.Current, at); err != nil {
				return err
			}
		}
		return nil
	})
}
