package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/schema"
)

var ledgerIns = schema.Instrument{
	ID:                 1,
	Symbol:             "BTC/USD",
	PriceScale:         2,
	QuantityScale:      3,
	ContractSize:       1,
	SettlementCurrency: "USD",
}

func TestPositionExtendAndAverage(t *testing.T) {
	b := NewPositionBook()

	realized := b.ApplyFill(ledgerIns, schema.OrderSideBuy, 1000, 10000) // 1.000 @ 100.00
	assert.Equal(t, schema.Money(0), realized)

	realized = b.ApplyFill(ledgerIns, schema.OrderSideBuy, 1000, 11000) // 1.000 @ 110.00
	assert.Equal(t, schema.Money(0), realized)

	pos, ok := b.Position(1)
	require.True(t, ok)
	assert.Equal(t, schema.Quantity(2000), pos.Qty)
	assert.Equal(t, schema.Price(10500), pos.AvgPrice, "volume-weighted average")
}

func TestPositionReduceRealizes(t *testing.T) {
	b := NewPositionBook()
	b.ApplyFill(ledgerIns, schema.OrderSideBuy, 2000, 10000)

	// Sell 1.000 at 105.00: 5.00 profit on one unit.
	realized := b.ApplyFill(ledgerIns, schema.OrderSideSell, 1000, 10500)
	assert.Equal(t, schema.Money(500000000), realized)

	pos, _ := b.Position(1)
	assert.Equal(t, schema.Quantity(1000), pos.Qty)
	assert.Equal(t, schema.Price(10000), pos.AvgPrice, "entry price unchanged on reduce")
}

func TestPositionFlip(t *testing.T) {
	b := NewPositionBook()
	b.ApplyFill(ledgerIns, schema.OrderSideSell, 1000, 10000)

	// Buy 3.000 at 99.00: closes the short with 1.00 profit, flips long 2.000.
	realized := b.ApplyFill(ledgerIns, schema.OrderSideBuy, 3000, 9900)
	assert.Equal(t, schema.Money(100000000), realized)

	pos, _ := b.Position(1)
	assert.Equal(t, schema.Quantity(2000), pos.Qty)
	assert.Equal(t, schema.Price(9900), pos.AvgPrice, "remainder opens at fill price")
}

func TestPositionCloseFlat(t *testing.T) {
	b := NewPositionBook()
	b.ApplyFill(ledgerIns, schema.OrderSideBuy, 1000, 10000)
	b.ApplyFill(ledgerIns, schema.OrderSideSell, 1000, 10000)

	pos, _ := b.Position(1)
	assert.Equal(t, schema.Quantity(0), pos.Qty)
	assert.Equal(t, schema.Price(0), pos.AvgPrice)
	assert.Empty(t, b.Open())
}

func TestLedgerApplyAndReset(t *testing.T) {
	l := NewLedger(map[schema.Currency]schema.Money{"USD": 1000}, false)

	l.Apply("USD", 500, 100)
	assert.Equal(t, schema.Money(1400), l.Balance("USD"))
	assert.Equal(t, schema.Money(500), l.Realized("USD"))
	assert.Equal(t, schema.Money(100), l.Commissions("USD"))

	l.Adjust("USD", -400)
	assert.Equal(t, schema.Money(1000), l.Balance("USD"))

	l.Reset()
	assert.Equal(t, schema.Money(1000), l.Balance("USD"))
	assert.Equal(t, schema.Money(0), l.Realized("USD"))
	assert.Equal(t, schema.Money(0), l.Commissions("USD"))
}

func TestLedgerFrozen(t *testing.T) {
	l := NewLedger(map[schema.Currency]schema.Money{"USD": 1000}, true)

	l.Apply("USD", 500, 100)
	l.Adjust("USD", 9999)
	assert.Equal(t, schema.Money(1000), l.Balance("USD"), "frozen ledger never moves")
	assert.Equal(t, schema.Money(0), l.Realized("USD"))
}
