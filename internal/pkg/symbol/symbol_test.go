package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableCanonical(t *testing.T) {
	tbl := NewTable(map[string]string{"btcusd": "BTCUSDT", "ETHUSD": "ethusdt", "": "X"}, nil)

	sym, ok := tbl.Canonical("BTCUSD")
	assert.True(t, ok)
	assert.Equal(t, "BTCUSDT", sym)

	_, ok = tbl.Canonical("SOLUSD")
	assert.False(t, ok)

	sym, ok = tbl.Resolve("solusd", true)
	assert.True(t, ok)
	assert.Equal(t, "SOLUSD", sym)

	_, ok = tbl.Resolve("solusd", false)
	assert.False(t, ok)

	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, tbl.Targets())
	assert.Equal(t, 2, tbl.Len())
}

func TestTableClass(t *testing.T) {
	tbl := NewTable(map[string]string{"EURUSD": "EURUSD"}, map[string]string{"spx": "indices"})
	assert.Equal(t, ClassCrypto, tbl.Class("BTCUSDT"))
	assert.Equal(t, ClassForex, tbl.Class("EURUSD"))
	assert.Equal(t, ClassIndex, tbl.Class("SPX"))
}

func TestParse(t *testing.T) {
	assert.Equal(t, Symbol{Base: "BTC", Quote: "USDT"}, Parse("btcusdt"))
	assert.Equal(t, Symbol{Base: "ETH", Quote: "USDT"}, Parse("ETH/USDT:USDT"))
	assert.Equal(t, "", Normalize("EURUSD"))
}

func TestNormalizeList(t *testing.T) {
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, NormalizeList([]string{" btcusdt", "ETHUSDT", "BTCUSDT", ""}))
	assert.Nil(t, NormalizeList(nil))
}
