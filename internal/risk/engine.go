package risk

import (
	"main/internal/schema"
)

const maxInt64 = int64(^uint64(0) >> 1)

// Config defines static pre-trade limits. Zero disables a limit.
type Config struct {
	KillSwitch           bool            `json:"killSwitch"`
	MaxOrderQty          schema.Quantity `json:"maxOrderQty"`
	MaxOrderNotional     schema.Money    `json:"maxOrderNotional"`
	MaxPosition          schema.Quantity `json:"maxPosition"`
	MaxPriceDeviationBps int64           `json:"maxPriceDeviationBps"`
}

// Action is the risk verdict.
type Action uint16

const (
	ActionAllow Action = iota
	ActionDeny
)

// Reason explains a denial.
type Reason uint16

const (
	ReasonNone Reason = iota
	ReasonKillSwitch
	ReasonMaxQty
	ReasonMaxNotional
	ReasonPositionLimit
	ReasonPriceBand
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonKillSwitch:
		return "kill switch"
	case ReasonMaxQty:
		return "max order qty"
	case ReasonMaxNotional:
		return "max order notional"
	case ReasonPositionLimit:
		return "position limit"
	case ReasonPriceBand:
		return "price band"
	default:
		return "unknown"
	}
}

// Decision is the outcome of one pre-trade evaluation.
type Decision struct {
	OrderID uint64
	Action  Action
	Reason  Reason
}

// StateView is the account snapshot a check runs against.
type StateView struct {
	Position       schema.Quantity
	ReferencePrice schema.Price
}

// Engine evaluates pre-trade checks against static limits. Denied orders
// never reach the execution client.
type Engine struct {
	cfg    Config
	denied int
}

// NewEngine creates a risk engine with static limits.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Denied returns the count of denials so far.
func (e *Engine) Denied() int { return e.denied }

// Evaluate checks one order against the limits and the current position.
func (e *Engine) Evaluate(spec schema.NewOrder, ins schema.Instrument, state StateView) Decision {
	decision := Decision{OrderID: spec.OrderID, Action: ActionAllow}

	deny := func(reason Reason) Decision {
		decision.Action = ActionDeny
		decision.Reason = reason
		e.denied++
		return decision
	}

	if e.cfg.KillSwitch {
		return deny(ReasonKillSwitch)
	}

	if e.cfg.MaxOrderQty > 0 && spec.Qty > e.cfg.MaxOrderQty {
		return deny(ReasonMaxQty)
	}

	if e.cfg.MaxPriceDeviationBps > 0 && spec.Type == schema.OrderTypeLimit && spec.Price > 0 {
		ref := int64(state.ReferencePrice)
		if ref > 0 {
			diff := absInt64(int64(spec.Price) - ref)
			if exceedsDeviation(diff, ref, e.cfg.MaxPriceDeviationBps) {
				return deny(ReasonPriceBand)
			}
		}
	}

	if e.cfg.MaxOrderNotional > 0 {
		// Market orders check against the reference price.
		px := spec.Price
		if px <= 0 {
			px = state.ReferencePrice
		}
		notional, overflow := orderNotional(px, spec.Qty, ins)
		if overflow || notional > e.cfg.MaxOrderNotional {
			return deny(ReasonMaxNotional)
		}
	}

	nextPos := applySide(state.Position, spec.Side, spec.Qty)
	if e.cfg.MaxPosition > 0 && absQuantity(nextPos) > e.cfg.MaxPosition {
		return deny(ReasonPositionLimit)
	}

	return decision
}

// orderNotional converts price times quantity into Money at the money scale.
func orderNotional(px schema.Price, qty schema.Quantity, ins schema.Instrument) (schema.Money, bool) {
	p := int64(px)
	q := int64(qty)
	if p <= 0 || q <= 0 {
		return 0, false
	}
	if p > maxInt64/q {
		return 0, true
	}
	scaled := schema.Rescale(p*q, ins.PriceScale+ins.QuantityScale, schema.MoneyScale)
	if ins.ContractSize > 1 && scaled > maxInt64/ins.ContractSize {
		return 0, true
	}
	return schema.Money(scaled * ins.ContractSize), false
}

func applySide(pos schema.Quantity, side schema.OrderSide, qty schema.Quantity) schema.Quantity {
	switch side {
	case schema.OrderSideBuy:
		return pos + qty
	case schema.OrderSideSell:
		return pos - qty
	default:
		return pos
	}
}

func absQuantity(q schema.Quantity) schema.Quantity {
	if q < 0 {
		return -q
	}
	return q
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func exceedsDeviation(diff, ref, bps int64) bool {
	if diff <= 0 || ref <= 0 || bps <= 0 {
		return false
	}
	if diff > maxInt64/10000 {
		return true
	}
	if ref > maxInt64/bps {
		return true
	}
	return diff*10000 > ref*bps
}
