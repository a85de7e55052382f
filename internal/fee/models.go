package fee

import (
	"fmt"

	"main/internal/schema"
)

// MakerTaker charges a rate on fill notional depending on whether the fill
// removed resting liquidity. Rates are at RateScale; negative maker rates
// are rebates.
type MakerTaker struct {
	MakerRate int64
	TakerRate int64
}

// NewMakerTaker parses decimal rate strings, e.g. maker "-0.0001",
// taker "0.0002".
func NewMakerTaker(maker, taker string) (MakerTaker, error) {
	m, err := schema.ParseScaled(maker, RateScale)
	if err != nil {
		return MakerTaker{}, fmt.Errorf("invalid maker rate %q: %w", maker, err)
	}
	t, err := schema.ParseScaled(taker, RateScale)
	if err != nil {
		return MakerTaker{}, fmt.Errorf("invalid taker rate %q: %w", taker, err)
	}
	return MakerTaker{MakerRate: m, TakerRate: t}, nil
}

func (f MakerTaker) Commission(ctx Context, fillQty schema.Quantity, fillPrice schema.Price, ins schema.Instrument) schema.Money {
	rate := f.TakerRate
	if ctx.Liquidity == schema.LiquidityMaker {
		rate = f.MakerRate
	}
	return applyRate(notional(fillPrice, fillQty, ins), rate)
}

// Fixed charges a flat amount, either once on the order's first fill or on
// every fill.
type Fixed struct {
	Amount schema.Money
	// PerFill charges on every partial fill when true; the default charges
	// only on the order's first fill.
	PerFill bool
}

func (f Fixed) Commission(ctx Context, fillQty schema.Quantity, fillPrice schema.Price, ins schema.Instrument) schema.Money {
	if !f.PerFill && !ctx.FirstFill {
		return 0
	}
	return f.Amount
}

// PerContract charges a flat amount per whole contract filled. Fractional
// contracts below the instrument's quantity increment are not charged.
type PerContract struct {
	Rate schema.Money
}

func (f PerContract) Commission(ctx Context, fillQty schema.Quantity, fillPrice schema.Price, ins schema.Instrument) schema.Money {
	contracts := ins.Contracts(ins.RoundQty(fillQty))
	if contracts <= 0 {
		return 0
	}
	return schema.Money(mulChecked(int64(f.Rate), contracts))
}
