package schema

// MarketDataKind describes the meaning of the market data payload.
type MarketDataKind uint16

const (
	MarketDataUnknown MarketDataKind = iota
	MarketDataTrade
	MarketDataQuote
)

// MarketData is a single historical observation on the backtest timeline.
type MarketData struct {
	InstrumentID InstrumentID
	Kind         MarketDataKind
	Price        Price
	Size         Quantity
	BidPrice     Price
	BidSize      Quantity
	AskPrice     Price
	AskSize      Quantity
	TsEvent      int64
}

// OrderSide describes order direction.
type OrderSide uint16

const (
	OrderSideUnknown OrderSide = iota
	OrderSideBuy
	OrderSideSell
)

// OrderType describes order type.
type OrderType uint16

const (
	OrderTypeUnknown OrderType = iota
	OrderTypeLimit
	OrderTypeMarket
	OrderTypeStop
)

// TimeInForce describes order time-in-force.
type TimeInForce uint16

const (
	TimeInForceUnknown TimeInForce = iota
	TimeInForceGTC
	TimeInForceIOC
	TimeInForceFOK
	TimeInForceGTD
)

// OrderFlags are optional execution instructions.
type OrderFlags uint16

const (
	OrderFlagPostOnly OrderFlags = 1 << iota
	OrderFlagReduceOnly
)

// NewOrder is a request to create one order. Linked orders reference each
// other by ID: OCOSiblingID for one-cancels-other pairs, ParentID for
// contingent children that only activate once the parent is filled.
type NewOrder struct {
	OrderID      uint64
	StrategyID   uint32
	InstrumentID InstrumentID
	Side         OrderSide
	Type         OrderType
	TimeInForce  TimeInForce
	Flags        OrderFlags
	Price        Price // limit price, required for limit orders
	Trigger      Price // trigger price, required for stop orders
	Qty          Quantity
	ExpireTs     int64 // required for GTD
	OCOSiblingID uint64
	ParentID     uint64
}

// ModifyOrder is a request to amend a working order in place.
type ModifyOrder struct {
	OrderID  uint64
	NewPrice Price
	NewQty   Quantity
}

// CancelOrder is a request to cancel one working order.
type CancelOrder struct {
	OrderID uint64
}

// CommandKind classifies inbound order commands for latency stamping.
type CommandKind uint16

const (
	CommandUnknown CommandKind = iota
	CommandInsert
	CommandUpdate
	CommandCancel
)

// ExecEventType is the lifecycle event category.
type ExecEventType uint16

const (
	ExecUnknown ExecEventType = iota
	ExecSubmitted
	ExecAccepted
	ExecRejected
	ExecFilled
	ExecCanceled
	ExecCancelRejected
	ExecExpired
)

func (t ExecEventType) String() string {
	switch t {
	case ExecSubmitted:
		return "Submitted"
	case ExecAccepted:
		return "Accepted"
	case ExecRejected:
		return "Rejected"
	case ExecFilled:
		return "Filled"
	case ExecCanceled:
		return "Canceled"
	case ExecCancelRejected:
		return "CancelRejected"
	case ExecExpired:
		return "Expired"
	default:
		return "Unknown"
	}
}

// LiquiditySide records whether a fill removed resting liquidity.
type LiquiditySide uint16

const (
	LiquidityNone LiquiditySide = iota
	LiquidityMaker
	LiquidityTaker
)

// ExecEvent is a single order lifecycle event. Fill fields are only set
// for ExecFilled, Reason only for rejection and cancel variants.
type ExecEvent struct {
	Type          ExecEventType
	OrderID       uint64
	StrategyID    uint32
	InstrumentID  InstrumentID
	TsEvent       int64
	Reason        string
	Price         Price
	Qty           Quantity
	LeavesQty     Quantity
	Commission    Money
	CommissionCcy Currency
	Liquidity     LiquiditySide
}

// Position is the aggregated exposure in one instrument. AvgPrice is in the
// instrument's PriceScale, RealizedPnl in the settlement currency.
type Position struct {
	InstrumentID InstrumentID
	Qty          Quantity
	AvgPrice     Price
	RealizedPnl  Money
}
