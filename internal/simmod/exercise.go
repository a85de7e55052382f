package simmod

import (
	"github.com/yanun0323/errors"

	"main/internal/schema"
)

// ErrNoSettlementPrice aborts the run: exercising a position with no price
// data would settle it from undefined state.
var ErrNoSettlementPrice = errors.New("no settlement price at option expiry")

// OptionExercise auto-exercises open option positions at expiry. Moneyness
// is determined from the underlying's settlement price versus strike;
// in-the-money positions convert into the underlying (physical) or settle
// through the ledger (cash). Each expiry is processed at most once.
type OptionExercise struct {
	ex Exchange

	// processed guards one effect per option instrument per run.
	processed map[schema.InstrumentID]bool
	exercised int
	expired   int
}

// NewOptionExercise creates the module. Expiry timers come from the
// instrument definitions at register time.
func NewOptionExercise() *OptionExercise {
	return &OptionExercise{processed: make(map[schema.InstrumentID]bool)}
}

func (m *OptionExercise) Register(ex Exchange) {
	m.ex = ex
}

// Process settles every open option position whose expiry has been reached.
func (m *OptionExercise) Process(nowNs int64) error {
	reg := m.ex.Registry()
	for _, pos := range m.ex.OpenPositions() {
		ins, ok := reg.Instrument(pos.InstrumentID)
		if !ok || ins.Class != schema.AssetOption {
			continue
		}
		if m.processed[ins.ID] || nowNs < ins.ExpiryNs {
			continue
		}
		if err := m.settle(pos, ins); err != nil {
			return err
		}
		m.processed[ins.ID] = true
	}
	return nil
}

func (m *OptionExercise) settle(pos schema.Position, ins schema.Instrument) error {
	reg := m.ex.Registry()
	underlying, ok := reg.Instrument(ins.Underlying)
	if !ok {
		return errors.Wrapf(ErrNoSettlementPrice, "option %s underlying %d not found", ins.Symbol, ins.Underlying)
	}
	settlement, ok := m.ex.LastTrade(underlying.ID)
	if !ok {
		return errors.Wrapf(ErrNoSettlementPrice, "option %s underlying %s", ins.Symbol, underlying.Symbol)
	}

	intrinsic := intrinsicValue(ins.Kind, settlement, ins.Strike)
	closeSide := schema.OrderSideSell
	if pos.Qty < 0 {
		closeSide = schema.OrderSideBuy
	}
	absQty := schema.Quantity(abs64(int64(pos.Qty)))

	if intrinsic <= 0 {
		// Expires worthless: flatten at zero, realizing the premium.
		m.expired++
		return m.ex.BookPosition(ins.ID, closeSide, absQty, 0)
	}

	m.exercised++
	switch ins.Settlement {
	case schema.SettlePhysical:
		// Flatten the option at zero so the entry premium realizes, then
		// the exposure becomes an underlying position at strike.
		if err := m.ex.BookPosition(ins.ID, closeSide, absQty, 0); err != nil {
			return err
		}
		m.ex.DropPosition(ins.ID)
		undSide := underlyingSide(ins.Kind, pos.Qty)
		undQty := underlyingQty(pos.Qty, ins, underlying)
		return m.ex.BookPosition(underlying.ID, undSide, undQty, ins.Strike)
	case schema.SettleCash:
		// Flatten at intrinsic value; the ledger realizes the difference
		// against the entry premium.
		px := schema.Price(schema.Rescale(int64(intrinsic), underlying.PriceScale, ins.PriceScale))
		return m.ex.BookPosition(ins.ID, closeSide, absQty, px)
	default:
		return errors.Wrapf(ErrNoSettlementPrice, "option %s has no settlement style", ins.Symbol)
	}
}

func (m *OptionExercise) LogDiagnostics(log Logger) {
	log.Infof("option exercise: exercised=%d expired_worthless=%d", m.exercised, m.expired)
}

func (m *OptionExercise) Reset() {
	for id := range m.processed {
		delete(m.processed, id)
	}
	m.exercised = 0
	m.expired = 0
}

// intrinsicValue returns the option payoff per unit in the underlying's
// price scale, floored at zero.
func intrinsicValue(kind schema.OptionKind, settlement, strike schema.Price) schema.Price {
	switch kind {
	case schema.OptionCall:
		if settlement > strike {
			return settlement - strike
		}
	case schema.OptionPut:
		if strike > settlement {
			return strike - settlement
		}
	}
	return 0
}

// underlyingSide maps the exercised option into the underlying trade
// direction: long call / short put buys, long put / short call sells.
func underlyingSide(kind schema.OptionKind, optionQty schema.Quantity) schema.OrderSide {
	long := optionQty > 0
	if kind == schema.OptionPut {
		long = !long
	}
	if long {
		return schema.OrderSideBuy
	}
	return schema.OrderSideSell
}

// underlyingQty converts option contracts into underlying units.
func underlyingQty(optionQty schema.Quantity, opt, und schema.Instrument) schema.Quantity {
	contracts := opt.Contracts(schema.Quantity(abs64(int64(optionQty))))
	return schema.Quantity(schema.Rescale(contracts*opt.ContractSize, 0, und.QuantityScale))
}
