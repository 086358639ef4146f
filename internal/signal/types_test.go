package signal

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortOrdersStableOnTies(t *testing.T) {
	orders := []Order{
		{Type: OrderLong, Leverage: 1, Price: 10, ProcessedAt: 200, Seq: 0},
		{Type: OrderLong, Leverage: 2, Price: 11, ProcessedAt: 100, Seq: 1},
		{Type: OrderShort, Leverage: -1, Price: 12, ProcessedAt: 100, Seq: 2},
	}
	sorted := SortOrders(orders)
	assert.Equal(t, []int{1, 2, 0}, []int{sorted[0].Seq, sorted[1].Seq, sorted[2].Seq})
	assert.Equal(t, 0, orders[0].Seq, "input must not be reordered")
}

func TestAppendOrdersRenumbersSeq(t *testing.T) {
	first := []Order{{Leverage: 1, ProcessedAt: 5, Seq: 0}, {Leverage: 2, ProcessedAt: 5, Seq: 1}}
	second := []Order{{Leverage: -1, ProcessedAt: 5, Seq: 1}, {Leverage: -2, ProcessedAt: 5, Seq: 0}}

	all := AppendOrders(AppendOrders(nil, first...), second...)
	assert.Equal(t, []int{0, 1, 2, 3}, []int{all[0].Seq, all[1].Seq, all[2].Seq, all[3].Seq})
	assert.Equal(t, -2.0, all[2].Leverage, "ties inside one list keep their own Seq order")

	sorted := SortOrders(all)
	assert.Equal(t, []float64{1, 2, -2, -1}, []float64{sorted[0].Leverage, sorted[1].Leverage, sorted[2].Leverage, sorted[3].Leverage})
	assert.Equal(t, 1, second[0].Seq, "source must not be renumbered")
}

func TestPositionReturnDelta(t *testing.T) {
	closeRet := 1.2
	closed := Position{Closed: true, ReturnAtClose: &closeRet, CurrentReturn: 0.5}
	open := Position{CurrentReturn: 0.9}
	assert.InDelta(t, 0.2, closed.ReturnDelta(), 1e-12)
	assert.InDelta(t, -0.1, open.ReturnDelta(), 1e-12)
}

func TestMinerLastActivity(t *testing.T) {
	m := Miner{Positions: []Position{
		{OpenAt: 5, Orders: []Order{{ProcessedAt: 7}}},
		{OpenAt: 20},
	}}
	assert.Equal(t, int64(20), m.LastActivity())
	assert.Equal(t, int64(0), Miner{}.LastActivity())
}

func TestParseOrderType(t *testing.T) {
	assert.True(t, ParseOrderType(" flat ").IsFlat())
	assert.Equal(t, OrderType("STOP"), ParseOrderType("stop"))
}

func TestIsFatal(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"anomaly", fmt.Errorf("wrap: %w", &AnomalyError{Current: 3, Reason: "too few"}), true},
		{"isolable input", &InputError{MinerID: "m1", Reason: "bad"}, false},
		{"snapshot input", &InputError{Field: "root", Reason: "not an object"}, true},
		{"empty cohort", ErrEmptyCohort, false},
		{"other", errors.New("boom"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsFatal(tc.err))
		})
	}
}
