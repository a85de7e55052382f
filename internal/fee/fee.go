package fee

import (
	"main/internal/schema"
)

// RateScale is the scale for commission rates: 1e6 units per 100%.
// A taker rate of 0.0002 (2 bps) is 200 at this scale.
const RateScale schema.Scale = 6

// Context carries the order-level facts a fee model may depend on.
type Context struct {
	OrderID   uint64
	Liquidity schema.LiquiditySide
	// FirstFill is true when this is the first fill applied to the order.
	FirstFill bool
}

// Model computes the commission for one fill, in the instrument's
// settlement currency.
type Model interface {
	Commission(ctx Context, fillQty schema.Quantity, fillPrice schema.Price, ins schema.Instrument) schema.Money
}

// notional converts a fill into Money at the fixed money scale.
func notional(px schema.Price, qty schema.Quantity, ins schema.Instrument) schema.Money {
	raw := mulChecked(int64(px), int64(qty))
	scaled := schema.Rescale(raw, ins.PriceScale+ins.QuantityScale, schema.MoneyScale)
	return schema.Money(mulChecked(scaled, ins.ContractSize))
}

// applyRate multiplies a Money amount by a RateScale rate.
func applyRate(amount schema.Money, rate int64) schema.Money {
	return schema.Money(mulChecked(int64(amount), rate) / schema.Pow10(RateScale))
}

const maxInt64 = int64(^uint64(0) >> 1)

// mulChecked multiplies with saturation instead of silent wraparound.
func mulChecked(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	neg := (a < 0) != (b < 0)
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	if a > maxInt64/b {
		if neg {
			return -maxInt64
		}
		return maxInt64
	}
	if neg {
		return -(a * b)
	}
	return a * b
}
