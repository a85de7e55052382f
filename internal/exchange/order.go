package exchange

import (
	"github.com/yanun0323/errors"

	"main/internal/schema"
)

var (
	ErrUnknownOrder      = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid order state transition")
	ErrInvalidFill       = errors.New("invalid fill quantity")
)

// OrderStatus tracks the lifecycle of an order.
//
// Submitted -> Accepted -> {Rejected, Working}
// Working -> {PartiallyFilled -> Working, Filled, Canceled, Expired}
//
// PartiallyFilled counts as working. Terminal statuses are never left.
type OrderStatus uint16

const (
	StatusUnknown OrderStatus = iota
	StatusSubmitted
	StatusAccepted
	StatusWorking
	StatusPartiallyFilled
	StatusFilled
	StatusCanceled
	StatusRejected
	StatusExpired
)

func (s OrderStatus) String() string {
	switch s {
	case StatusSubmitted:
		return "Submitted"
	case StatusAccepted:
		return "Accepted"
	case StatusWorking:
		return "Working"
	case StatusPartiallyFilled:
		return "PartiallyFilled"
	case StatusFilled:
		return "Filled"
	case StatusCanceled:
		return "Canceled"
	case StatusRejected:
		return "Rejected"
	case StatusExpired:
		return "Expired"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether the status can never be left.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case StatusFilled, StatusCanceled, StatusRejected, StatusExpired:
		return true
	default:
		return false
	}
}

// IsWorking reports whether the order rests in the book.
func (s OrderStatus) IsWorking() bool {
	return s == StatusWorking || s == StatusPartiallyFilled
}

// Order is the engine's view of one order. Linkage is stored as ID
// references resolved through the engine's order index, never as pointers.
type Order struct {
	ID           uint64
	StrategyID   uint32
	InstrumentID schema.InstrumentID
	Side         schema.OrderSide
	Type         schema.OrderType
	TimeInForce  schema.TimeInForce
	Flags        schema.OrderFlags
	Price        schema.Price
	Trigger      schema.Price
	Qty          schema.Quantity
	ExpireTs     int64
	OCOSiblingID uint64
	ParentID     uint64

	Status    OrderStatus
	FilledQty schema.Quantity

	// childIDs are contingent orders activated when this order fills.
	childIDs []uint64
	// evaluated flips after the first matching pass, which is when IOC/FOK
	// instructions resolve.
	evaluated bool
}

func newOrder(spec schema.NewOrder) *Order {
	return &Order{
		ID:           spec.OrderID,
		StrategyID:   spec.StrategyID,
		InstrumentID: spec.InstrumentID,
		Side:         spec.Side,
		Type:         spec.Type,
		TimeInForce:  spec.TimeInForce,
		Flags:        spec.Flags,
		Price:        spec.Price,
		Trigger:      spec.Trigger,
		Qty:          spec.Qty,
		ExpireTs:     spec.ExpireTs,
		OCOSiblingID: spec.OCOSiblingID,
		ParentID:     spec.ParentID,
		Status:       StatusSubmitted,
	}
}

// LeavesQty returns the unfilled remainder.
func (o *Order) LeavesQty() schema.Quantity {
	return o.Qty - o.FilledQty
}

// transition moves the order to a new status, guarding terminal states and
// the filled-quantity invariant.
func (o *Order) transition(to OrderStatus) error {
	if o.Status.IsTerminal() {
		return errors.Wrapf(ErrInvalidTransition, "%s -> %s", o.Status, to)
	}
	o.Status = to
	return nil
}

// applyFill records a fill quantity and returns the resulting status.
func (o *Order) applyFill(qty schema.Quantity) (OrderStatus, error) {
	if o.Status.IsTerminal() {
		return o.Status, ErrInvalidTransition
	}
	if qty <= 0 || qty > o.LeavesQty() {
		return o.Status, errors.Wrapf(ErrInvalidFill, "qty %d leaves %d", qty, o.LeavesQty())
	}
	o.FilledQty += qty
	if o.LeavesQty() == 0 {
		o.Status = StatusFilled
	} else {
		o.Status = StatusPartiallyFilled
	}
	return o.Status, nil
}
