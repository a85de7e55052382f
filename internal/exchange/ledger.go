package exchange

import (
	"sort"

	"main/internal/schema"
)

// Ledger holds per-currency cash balances and the realized PnL accumulator.
// Only the engine mutates it: once per fill, plus module effects (rollover
// interest, exercise settlement). A frozen ledger records nothing, which
// backs the "frozen account" mode.
type Ledger struct {
	frozen      bool
	starting    map[schema.Currency]schema.Money
	balances    map[schema.Currency]schema.Money
	realized    map[schema.Currency]schema.Money
	commissions map[schema.Currency]schema.Money
}

// NewLedger seeds a ledger with starting capital per currency.
func NewLedger(starting map[schema.Currency]schema.Money, frozen bool) *Ledger {
	l := &Ledger{
		frozen:      frozen,
		starting:    make(map[schema.Currency]schema.Money, len(starting)),
		balances:    make(map[schema.Currency]schema.Money, len(starting)),
		realized:    make(map[schema.Currency]schema.Money),
		commissions: make(map[schema.Currency]schema.Money),
	}
	for ccy, amount := range starting {
		l.starting[ccy] = amount
		l.balances[ccy] = amount
	}
	return l
}

// Apply books a realized PnL delta and a commission in one currency.
func (l *Ledger) Apply(ccy schema.Currency, pnl, commission schema.Money) {
	if l.frozen {
		return
	}
	l.balances[ccy] += pnl - commission
	l.realized[ccy] += pnl
	l.commissions[ccy] += commission
}

// Adjust books a module effect (interest, settlement) in one currency.
func (l *Ledger) Adjust(ccy schema.Currency, amount schema.Money) {
	if l.frozen {
		return
	}
	l.balances[ccy] += amount
}

// Balance returns the current balance for a currency.
func (l *Ledger) Balance(ccy schema.Currency) schema.Money {
	return l.balances[ccy]
}

// Realized returns accumulated realized PnL for a currency.
func (l *Ledger) Realized(ccy schema.Currency) schema.Money {
	return l.realized[ccy]
}

// Commissions returns accumulated commissions for a currency. Maker rebates
// reduce the total.
func (l *Ledger) Commissions(ccy schema.Currency) schema.Money {
	return l.commissions[ccy]
}

// Currencies returns all currencies with a balance, sorted for
// deterministic iteration.
func (l *Ledger) Currencies() []schema.Currency {
	out := make([]schema.Currency, 0, len(l.balances))
	for ccy := range l.balances {
		out = append(out, ccy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Reset restores starting balances and clears realized PnL.
func (l *Ledger) Reset() {
	for ccy := range l.balances {
		delete(l.balances, ccy)
	}
	for ccy := range l.realized {
		delete(l.realized, ccy)
	}
	for ccy := range l.commissions {
		delete(l.commissions, ccy)
	}
	for ccy, amount := range l.starting {
		l.balances[ccy] = amount
	}
}

// PositionBook aggregates fills into per-instrument positions.
type PositionBook struct {
	positions map[schema.InstrumentID]*schema.Position
}

// NewPositionBook creates an empty book.
func NewPositionBook() *PositionBook {
	return &PositionBook{positions: make(map[schema.InstrumentID]*schema.Position)}
}

// ApplyFill mutates the position for a fill and returns the realized PnL
// delta in the instrument's settlement currency.
func (b *PositionBook) ApplyFill(ins schema.Instrument, side schema.OrderSide, qty schema.Quantity, px schema.Price) schema.Money {
	pos, ok := b.positions[ins.ID]
	if !ok {
		pos = &schema.Position{InstrumentID: ins.ID}
		b.positions[ins.ID] = pos
	}

	signed := int64(qty)
	if side == schema.OrderSideSell {
		signed = -signed
	}

	current := int64(pos.Qty)
	var realized schema.Money

	switch {
	case current == 0 || (current > 0) == (signed > 0):
		// Extending: volume-weighted average entry price.
		total := current + signed
		if total != 0 {
			avg := (int64(pos.AvgPrice)*abs64(current) + int64(px)*abs64(signed)) / abs64(total)
			pos.AvgPrice = schema.Price(avg)
		}
		pos.Qty = schema.Quantity(total)
	default:
		closed := min64(abs64(current), abs64(signed))
		diff := int64(px) - int64(pos.AvgPrice)
		if current < 0 {
			diff = -diff
		}
		realized = pnlMoney(diff, closed, ins)
		pos.RealizedPnl += realized
		total := current + signed
		pos.Qty = schema.Quantity(total)
		if total == 0 {
			pos.AvgPrice = 0
		} else if (total > 0) != (current > 0) {
			// Flipped through flat: remainder opens at the fill price.
			pos.AvgPrice = px
		}
	}
	return realized
}

// Position returns a copy of the position for an instrument.
func (b *PositionBook) Position(id schema.InstrumentID) (schema.Position, bool) {
	pos, ok := b.positions[id]
	if !ok {
		return schema.Position{}, false
	}
	return *pos, true
}

// Open returns all non-flat positions sorted by instrument ID.
func (b *PositionBook) Open() []schema.Position {
	out := make([]schema.Position, 0, len(b.positions))
	for _, pos := range b.positions {
		if pos.Qty != 0 {
			out = append(out, *pos)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InstrumentID < out[j].InstrumentID })
	return out
}

// Remove drops a position without any ledger effect. Used for physical
// exercise where exposure converts into the underlying.
func (b *PositionBook) Remove(id schema.InstrumentID) {
	delete(b.positions, id)
}

// Reset clears all positions.
func (b *PositionBook) Reset() {
	for id := range b.positions {
		delete(b.positions, id)
	}
}

// pnlMoney converts a signed price difference times quantity into Money.
func pnlMoney(priceDiff, qty int64, ins schema.Instrument) schema.Money {
	raw := priceDiff * qty
	scaled := schema.Rescale(raw, ins.PriceScale+ins.QuantityScale, schema.MoneyScale)
	return schema.Money(scaled * ins.ContractSize)
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
