package exchange

import (
	"sort"

	"github.com/yanun0323/errors"

	"main/internal/fee"
	"main/internal/fill"
	"main/internal/latency"
	"main/internal/schema"
	"main/internal/simmod"
)

var ErrNonMonotonicTime = errors.New("market data timestamp went backwards")

// Config holds the account-level engine settings.
type Config struct {
	// StartingBalances seeds the ledger per currency.
	StartingBalances map[schema.Currency]schema.Money
	// Frozen locks the ledger: fills and module effects never change
	// balances, so the account state stays exactly as configured.
	Frozen bool
}

// Engine is the simulated exchange. It owns the order book state, the
// single backtest timeline, and the account ledger. Market data drives it
// forward through OnMarketData; order commands enter through the Submit /
// Modify / Cancel methods stamped with the latency model and take effect
// only when simulated time reaches them.
type Engine struct {
	reg       *schema.Registry
	fillModel *fill.Model
	latModel  latency.Model
	feeModel  fee.Model

	ledger    *Ledger
	positions *PositionBook

	orders map[uint64]*Order
	// working holds order IDs per instrument in activation order.
	working map[schema.InstrumentID][]uint64
	queue   *commandQueue
	// suppressed marks order IDs canceled before their insert activated.
	suppressed map[uint64]bool

	modules []simmod.Module
	sink    func(schema.ExecEvent)

	lastTick map[schema.InstrumentID]schema.MarketData
	now      int64
	seq      uint64
}

// NewEngine assembles an engine from its decision models.
func NewEngine(reg *schema.Registry, fillModel *fill.Model, latModel latency.Model, feeModel fee.Model, cfg Config) *Engine {
	return &Engine{
		reg:        reg,
		fillModel:  fillModel,
		latModel:   latModel,
		feeModel:   feeModel,
		ledger:     NewLedger(cfg.StartingBalances, cfg.Frozen),
		positions:  NewPositionBook(),
		orders:     make(map[uint64]*Order),
		working:    make(map[schema.InstrumentID][]uint64),
		queue:      newCommandQueue(),
		suppressed: make(map[uint64]bool),
		lastTick:   make(map[schema.InstrumentID]schema.MarketData),
	}
}

// SetEventSink installs the lifecycle event consumer. Events are delivered
// synchronously in timeline order.
func (e *Engine) SetEventSink(sink func(schema.ExecEvent)) {
	e.sink = sink
}

// RegisterModule attaches a simulation module. Modules run after market
// data and commands on every time advance.
func (e *Engine) RegisterModule(m simmod.Module) {
	m.Register(e)
	e.modules = append(e.modules, m)
}

// Now returns current simulated time in nanoseconds.
func (e *Engine) Now() int64 { return e.now }

// Registry exposes the instrument definitions.
func (e *Engine) Registry() *schema.Registry { return e.reg }

// Ledger exposes the account ledger.
func (e *Engine) Ledger() *Ledger { return e.ledger }

// OpenPositions returns all non-flat positions, sorted by instrument.
func (e *Engine) OpenPositions() []schema.Position { return e.positions.Open() }

// Position returns the position for one instrument.
func (e *Engine) Position(id schema.InstrumentID) (schema.Position, bool) {
	return e.positions.Position(id)
}

// Order returns a snapshot of one order.
func (e *Engine) Order(id uint64) (Order, bool) {
	o, ok := e.orders[id]
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// LastTrade returns the most recent traded price for an instrument, falling
// back to the quote mid when only quotes have been seen.
func (e *Engine) LastTrade(id schema.InstrumentID) (schema.Price, bool) {
	md, ok := e.lastTick[id]
	if !ok {
		return 0, false
	}
	if md.Kind == schema.MarketDataTrade && md.Price > 0 {
		return md.Price, true
	}
	if md.BidPrice > 0 && md.AskPrice > 0 {
		return (md.BidPrice + md.AskPrice) / 2, true
	}
	return 0, false
}

// AdjustBalance books a module effect on the ledger.
func (e *Engine) AdjustBalance(ccy schema.Currency, amount schema.Money, reason string) {
	_ = reason
	e.ledger.Adjust(ccy, amount)
}

// BookPosition mutates a position as if a fill occurred, realizing PnL into
// the ledger without any order. Used by simulation modules for settlement.
func (e *Engine) BookPosition(id schema.InstrumentID, side schema.OrderSide, qty schema.Quantity, px schema.Price) error {
	ins, ok := e.reg.Instrument(id)
	if !ok {
		return errors.Wrapf(ErrUnknownOrder, "instrument %d", id)
	}
	realized := e.positions.ApplyFill(ins, side, qty, px)
	e.ledger.Apply(ins.SettlementCurrency, realized, 0)
	return nil
}

// DropPosition removes a position with no ledger effect.
func (e *Engine) DropPosition(id schema.InstrumentID) {
	e.positions.Remove(id)
}

// SubmitOrder queues a single order insert at send time plus insert latency.
func (e *Engine) SubmitOrder(spec schema.NewOrder, sendTs int64) {
	e.SubmitOrderList([]schema.NewOrder{spec}, sendTs)
}

// SubmitOrderList queues a list of orders as one unit: all activate at the
// same effective time, in list order. Linked orders (OCO, parent/child)
// submitted together are guaranteed to resolve their references.
func (e *Engine) SubmitOrderList(specs []schema.NewOrder, sendTs int64) {
	if len(specs) == 0 {
		return
	}
	e.pushCommand(&pendingCommand{
		effTs:   e.latModel.EffectiveTime(sendTs, schema.CommandInsert),
		kind:    cmdSubmitList,
		submits: specs,
	})
}

// ModifyOrder queues an amendment at send time plus update latency.
func (e *Engine) ModifyOrder(mod schema.ModifyOrder, sendTs int64) {
	e.pushCommand(&pendingCommand{
		effTs:  e.latModel.EffectiveTime(sendTs, schema.CommandUpdate),
		kind:   cmdModify,
		modify: mod,
	})
}

// CancelOrder queues a cancel at send time plus cancel latency.
func (e *Engine) CancelOrder(orderID uint64, sendTs int64) {
	e.pushCommand(&pendingCommand{
		effTs:    e.latModel.EffectiveTime(sendTs, schema.CommandCancel),
		kind:     cmdCancel,
		cancelID: orderID,
	})
}

// BatchCancelOrders queues a batch of cancels as one unit.
func (e *Engine) BatchCancelOrders(orderIDs []uint64, sendTs int64) {
	if len(orderIDs) == 0 {
		return
	}
	e.pushCommand(&pendingCommand{
		effTs:    e.latModel.EffectiveTime(sendTs, schema.CommandCancel),
		kind:     cmdCancelBatch,
		batchIDs: orderIDs,
	})
}

// CancelAllOrders queues a cancel of every working order. Instrument zero
// means all instruments.
func (e *Engine) CancelAllOrders(instrumentID schema.InstrumentID, sendTs int64) {
	e.pushCommand(&pendingCommand{
		effTs:        e.latModel.EffectiveTime(sendTs, schema.CommandCancel),
		kind:         cmdCancelAll,
		instrumentID: instrumentID,
	})
}

func (e *Engine) pushCommand(cmd *pendingCommand) {
	e.seq++
	cmd.seq = e.seq
	e.queue.push(cmd)
}

// OnMarketData advances the timeline to the tick's timestamp. Commands that
// became effective strictly before the tick apply first at their own
// effective times, then the tick is matched, then commands effective exactly
// at the tick time, then the simulation modules. A module error aborts the
// run.
func (e *Engine) OnMarketData(md schema.MarketData) error {
	if md.TsEvent < e.now {
		return errors.Wrapf(ErrNonMonotonicTime, "tick %d, now %d", md.TsEvent, e.now)
	}
	e.drainCommands(md.TsEvent, false)
	e.now = md.TsEvent
	e.lastTick[md.InstrumentID] = md
	e.matchInstrument(md)
	e.drainCommands(md.TsEvent, true)
	return e.runModules()
}

// AdvanceTime moves simulated time forward without a tick, applying due
// commands, expiring due orders and running the modules. Used to close out
// a session after the data stream ends.
func (e *Engine) AdvanceTime(ts int64) error {
	if ts < e.now {
		return errors.Wrapf(ErrNonMonotonicTime, "advance %d, now %d", ts, e.now)
	}
	e.drainCommands(ts, true)
	e.now = ts
	e.expireDue()
	return e.runModules()
}

func (e *Engine) drainCommands(ts int64, inclusive bool) {
	for {
		cmd := e.queue.peek()
		if cmd == nil || cmd.effTs > ts || (!inclusive && cmd.effTs == ts) {
			return
		}
		cmd = e.queue.pop()
		if cmd.effTs > e.now {
			e.now = cmd.effTs
		}
		e.applyCommand(cmd)
	}
}

func (e *Engine) runModules() error {
	for _, m := range e.modules {
		if err := m.Process(e.now); err != nil {
			return errors.Wrap(err, "simulation module")
		}
	}
	return nil
}

func (e *Engine) applyCommand(cmd *pendingCommand) {
	switch cmd.kind {
	case cmdSubmitList:
		for i := range cmd.submits {
			e.activateOrder(cmd.submits[i])
		}
	case cmdModify:
		e.applyModify(cmd.modify)
	case cmdCancel:
		e.applyCancel(cmd.cancelID)
	case cmdCancelBatch:
		for _, id := range cmd.batchIDs {
			e.applyCancel(id)
		}
	case cmdCancelAll:
		e.applyCancelAll(cmd.instrumentID)
	}
}

func (e *Engine) activateOrder(spec schema.NewOrder) {
	if e.suppressed[spec.OrderID] {
		delete(e.suppressed, spec.OrderID)
		o := newOrder(spec)
		o.Status = StatusCanceled
		e.orders[o.ID] = o
		e.emit(e.event(schema.ExecCanceled, o, "canceled before activation"))
		e.handleTerminal(o)
		return
	}
	if _, dup := e.orders[spec.OrderID]; dup {
		e.emitRejectSpec(spec, "duplicate order id")
		// The stored order under this ID is unrelated; the rejected spec's
		// own linkage still resolves.
		e.cancelLinkedSibling(spec.OCOSiblingID)
		return
	}
	if reason := e.validateSpec(spec); reason != "" {
		o := newOrder(spec)
		o.Status = StatusRejected
		e.orders[o.ID] = o
		e.emit(e.event(schema.ExecRejected, o, reason))
		e.handleTerminal(o)
		return
	}

	o := newOrder(spec)
	e.orders[o.ID] = o

	if o.ParentID != 0 {
		parent, ok := e.orders[o.ParentID]
		if !ok {
			o.Status = StatusRejected
			e.emit(e.event(schema.ExecRejected, o, "parent order not found"))
			e.handleTerminal(o)
			return
		}
		switch {
		case parent.Status == StatusFilled:
			// Parent already done, activate immediately.
		case parent.Status.IsTerminal():
			o.Status = StatusCanceled
			e.emit(e.event(schema.ExecCanceled, o, "parent order did not fill"))
			e.handleTerminal(o)
			return
		default:
			// Contingent: rests inert until the parent fills.
			parent.childIDs = append(parent.childIDs, o.ID)
			return
		}
	}

	e.startWorking(o)
}

func (e *Engine) validateSpec(spec schema.NewOrder) string {
	if _, ok := e.reg.Instrument(spec.InstrumentID); !ok {
		return "unknown instrument"
	}
	if spec.Qty <= 0 {
		return "quantity must be positive"
	}
	switch spec.Type {
	case schema.OrderTypeLimit:
		if spec.Price <= 0 {
			return "limit order requires a price"
		}
	case schema.OrderTypeStop:
		if spec.Trigger <= 0 {
			return "stop order requires a trigger price"
		}
	case schema.OrderTypeMarket:
	default:
		return "unknown order type"
	}
	if spec.TimeInForce == schema.TimeInForceGTD && spec.ExpireTs <= 0 {
		return "gtd order requires an expire time"
	}
	return ""
}

// startWorking activates an order into the book and runs its first matching
// pass against the last observed tick. Market orders skip the stale-price
// pass and fill on the next tick instead.
func (e *Engine) startWorking(o *Order) {
	if o.OCOSiblingID != 0 {
		if sib, ok := e.orders[o.OCOSiblingID]; ok && sib.Status.IsTerminal() {
			if err := o.transition(StatusCanceled); err == nil {
				e.emit(e.event(schema.ExecCanceled, o, "linked order completed"))
			}
			return
		}
	}
	if err := o.transition(StatusWorking); err != nil {
		return
	}
	e.emit(e.event(schema.ExecAccepted, o, ""))
	e.working[o.InstrumentID] = append(e.working[o.InstrumentID], o.ID)

	if o.Type == schema.OrderTypeMarket {
		return
	}
	if md, ok := e.lastTick[o.InstrumentID]; ok {
		e.matchOrder(o, md)
	}
}

func (e *Engine) applyModify(mod schema.ModifyOrder) {
	o, ok := e.orders[mod.OrderID]
	if !ok {
		e.emit(schema.ExecEvent{
			Type:    schema.ExecCancelRejected,
			OrderID: mod.OrderID,
			TsEvent: e.now,
			Reason:  "modify rejected: unknown order",
		})
		return
	}
	if o.Status.IsTerminal() {
		e.emit(e.event(schema.ExecCancelRejected, o, "modify rejected: order already terminal"))
		return
	}
	if mod.NewQty != 0 && mod.NewQty <= o.FilledQty {
		e.emit(e.event(schema.ExecCancelRejected, o, "modify rejected: quantity below filled"))
		return
	}
	if mod.NewQty != 0 {
		o.Qty = mod.NewQty
	}
	if mod.NewPrice != 0 {
		if o.Type == schema.OrderTypeStop {
			o.Trigger = mod.NewPrice
		} else {
			o.Price = mod.NewPrice
		}
	}
	e.emit(e.event(schema.ExecAccepted, o, ""))
}

func (e *Engine) applyCancel(id uint64) {
	o, ok := e.orders[id]
	if !ok {
		// Cancel can race its own insert through differing latencies; a
		// cancel arriving first suppresses the insert when it lands.
		if e.queue.hasPendingSubmit(id) {
			e.suppressed[id] = true
			return
		}
		e.emit(schema.ExecEvent{
			Type:    schema.ExecCancelRejected,
			OrderID: id,
			TsEvent: e.now,
			Reason:  "unknown order",
		})
		return
	}
	if o.Status.IsTerminal() {
		e.emit(e.event(schema.ExecCancelRejected, o, "order already terminal"))
		return
	}
	e.cancelOrder(o, "")
}

func (e *Engine) applyCancelAll(instrumentID schema.InstrumentID) {
	insIDs := make([]schema.InstrumentID, 0, len(e.working))
	for id := range e.working {
		insIDs = append(insIDs, id)
	}
	sort.Slice(insIDs, func(i, j int) bool { return insIDs[i] < insIDs[j] })
	for _, insID := range insIDs {
		if instrumentID != 0 && insID != instrumentID {
			continue
		}
		ids := append([]uint64(nil), e.working[insID]...)
		for _, id := range ids {
			o := e.orders[id]
			if o == nil || o.Status.IsTerminal() {
				continue
			}
			e.cancelOrder(o, "")
		}
	}
}

func (e *Engine) cancelOrder(o *Order, reason string) {
	if err := o.transition(StatusCanceled); err != nil {
		return
	}
	e.emit(e.event(schema.ExecCanceled, o, reason))
	e.handleTerminal(o)
}

func (e *Engine) matchInstrument(md schema.MarketData) {
	ids := append([]uint64(nil), e.working[md.InstrumentID]...)
	for _, id := range ids {
		o := e.orders[id]
		if o == nil || !o.Status.IsWorking() {
			continue
		}
		e.matchOrder(o, md)
	}
}

// matchOrder runs one matching pass for one order against one tick. Expiry
// is checked before matching. IOC and FOK resolve at the end of the order's
// first pass.
func (e *Engine) matchOrder(o *Order, md schema.MarketData) {
	if o.TimeInForce == schema.TimeInForceGTD && e.now >= o.ExpireTs {
		e.expireOrder(o)
		return
	}

	firstPass := !o.evaluated
	o.evaluated = true

	px, avail, ok := sidePrice(o.Side, md)
	if ok {
		e.tryFill(o, px, avail, firstPass)
	}

	if o.Status.IsWorking() && firstPass {
		switch o.TimeInForce {
		case schema.TimeInForceIOC:
			e.cancelOrder(o, "immediate-or-cancel remainder")
		case schema.TimeInForceFOK:
			e.cancelOrder(o, "fill-or-kill not fully filled")
		}
	}
}

// sidePrice returns the tick price and size visible to one order side: the
// ask for buys and the bid for sells on quotes, the trade print otherwise.
func sidePrice(side schema.OrderSide, md schema.MarketData) (schema.Price, schema.Quantity, bool) {
	if md.Kind == schema.MarketDataQuote {
		if side == schema.OrderSideBuy {
			return md.AskPrice, md.AskSize, md.AskPrice > 0
		}
		return md.BidPrice, md.BidSize, md.BidPrice > 0
	}
	return md.Price, md.Size, md.Price > 0
}

func (e *Engine) tryFill(o *Order, px schema.Price, avail schema.Quantity, firstPass bool) {
	ins, ok := e.reg.Instrument(o.InstrumentID)
	if !ok {
		return
	}

	var fillPx schema.Price
	var liquidity schema.LiquiditySide
	doFill := false

	switch o.Type {
	case schema.OrderTypeMarket:
		doFill = true
		fillPx = px
		liquidity = schema.LiquidityTaker
	case schema.OrderTypeLimit:
		crossed := (o.Side == schema.OrderSideBuy && px <= o.Price) ||
			(o.Side == schema.OrderSideSell && px >= o.Price)
		if !crossed {
			return
		}
		if firstPass && o.Flags&schema.OrderFlagPostOnly != 0 {
			// Crossing at activation would trade as taker.
			if err := o.transition(StatusRejected); err == nil {
				e.emit(e.event(schema.ExecRejected, o, "post-only order would cross"))
				e.handleTerminal(o)
			}
			return
		}
		doFill = e.fillModel.IsLimitFilled()
		fillPx = px
		liquidity = schema.LiquidityMaker
		if firstPass {
			liquidity = schema.LiquidityTaker
		}
	case schema.OrderTypeStop:
		triggered := (o.Side == schema.OrderSideBuy && px >= o.Trigger) ||
			(o.Side == schema.OrderSideSell && px <= o.Trigger)
		if !triggered {
			return
		}
		doFill = e.fillModel.IsStopFilled()
		fillPx = px
		liquidity = schema.LiquidityTaker
	}

	if !doFill {
		return
	}

	// Adverse slippage: market and stop fills print one increment through
	// the observed price; limit fills degrade to the limit price but never
	// trade through it.
	if e.fillModel.IsSlipped() {
		if o.Type == schema.OrderTypeLimit {
			fillPx = o.Price
		} else if o.Side == schema.OrderSideBuy {
			fillPx += ins.PriceIncrement
		} else {
			fillPx -= ins.PriceIncrement
		}
	}

	qty := o.LeavesQty()
	if avail > 0 && avail < qty {
		qty = avail
	}
	if o.TimeInForce == schema.TimeInForceFOK && qty < o.LeavesQty() {
		// All or nothing; the first-pass resolution cancels it.
		return
	}
	if o.Flags&schema.OrderFlagReduceOnly != 0 {
		qty = e.reduceOnlyCap(o, qty)
		if qty <= 0 {
			e.cancelOrder(o, "reduce-only order would increase position")
			return
		}
	}

	e.applyOrderFill(o, ins, qty, fillPx, liquidity)
}

// reduceOnlyCap limits a fill to the opposing open exposure.
func (e *Engine) reduceOnlyCap(o *Order, qty schema.Quantity) schema.Quantity {
	pos, ok := e.positions.Position(o.InstrumentID)
	if !ok || pos.Qty == 0 {
		return 0
	}
	opposing := o.Side == schema.OrderSideBuy && pos.Qty < 0 ||
		o.Side == schema.OrderSideSell && pos.Qty > 0
	if !opposing {
		return 0
	}
	exposure := schema.Quantity(abs64(int64(pos.Qty)))
	if qty > exposure {
		return exposure
	}
	return qty
}

func (e *Engine) applyOrderFill(o *Order, ins schema.Instrument, qty schema.Quantity, px schema.Price, liquidity schema.LiquiditySide) {
	firstFill := o.FilledQty == 0
	status, err := o.applyFill(qty)
	if err != nil {
		return
	}

	commission := e.feeModel.Commission(fee.Context{
		OrderID:   o.ID,
		Liquidity: liquidity,
		FirstFill: firstFill,
	}, qty, px, ins)
	realized := e.positions.ApplyFill(ins, o.Side, qty, px)
	e.ledger.Apply(ins.SettlementCurrency, realized, commission)

	ev := e.event(schema.ExecFilled, o, "")
	ev.Price = px
	ev.Qty = qty
	ev.LeavesQty = o.LeavesQty()
	ev.Commission = commission
	ev.CommissionCcy = ins.SettlementCurrency
	ev.Liquidity = liquidity
	e.emit(ev)

	if status == StatusFilled {
		e.handleTerminal(o)
	}
}

func (e *Engine) expireOrder(o *Order) {
	if err := o.transition(StatusExpired); err != nil {
		return
	}
	e.emit(e.event(schema.ExecExpired, o, ""))
	e.handleTerminal(o)
}

// expireDue sweeps GTD orders whose expiry has passed, across all
// instruments. Tick-driven matching handles the common case; this covers
// instruments with no further data.
func (e *Engine) expireDue() {
	insIDs := make([]schema.InstrumentID, 0, len(e.working))
	for id := range e.working {
		insIDs = append(insIDs, id)
	}
	sort.Slice(insIDs, func(i, j int) bool { return insIDs[i] < insIDs[j] })
	for _, insID := range insIDs {
		ids := append([]uint64(nil), e.working[insID]...)
		for _, id := range ids {
			o := e.orders[id]
			if o == nil || !o.Status.IsWorking() {
				continue
			}
			if o.TimeInForce == schema.TimeInForceGTD && e.now >= o.ExpireTs {
				e.expireOrder(o)
			}
		}
	}
}

// handleTerminal settles linked-order consequences once an order reaches a
// terminal status: the working book forgets it, an OCO sibling is canceled
// in the same step, and contingent children either activate (parent filled)
// or cancel (parent did not fill).
func (e *Engine) handleTerminal(o *Order) {
	e.removeWorking(o)
	e.cancelLinkedSibling(o.OCOSiblingID)

	for _, cid := range o.childIDs {
		child, ok := e.orders[cid]
		if !ok || child.Status.IsTerminal() || child.Status.IsWorking() {
			continue
		}
		if o.Status == StatusFilled {
			e.startWorking(child)
		} else {
			if err := child.transition(StatusCanceled); err == nil {
				e.emit(e.event(schema.ExecCanceled, child, "parent order did not fill"))
				e.handleTerminal(child)
			}
		}
	}
}

// cancelLinkedSibling cancels the other member of an OCO pair. Every path to
// a terminal status goes through here, including rejects at activation.
func (e *Engine) cancelLinkedSibling(siblingID uint64) {
	if siblingID == 0 {
		return
	}
	if sib, ok := e.orders[siblingID]; ok && !sib.Status.IsTerminal() {
		e.cancelOrder(sib, "linked order completed")
	}
}

func (e *Engine) removeWorking(o *Order) {
	ids := e.working[o.InstrumentID]
	for i, id := range ids {
		if id == o.ID {
			e.working[o.InstrumentID] = append(ids[:i], ids[i+1:]...)
			return
		}
	}
}

// CheckResiduals logs orders still working and positions still open. State
// is reported, never mutated; a clean strategy ends flat with nothing
// resting.
func (e *Engine) CheckResiduals(log simmod.Logger) (openOrders, openPositions int) {
	insIDs := make([]schema.InstrumentID, 0, len(e.working))
	for id := range e.working {
		insIDs = append(insIDs, id)
	}
	sort.Slice(insIDs, func(i, j int) bool { return insIDs[i] < insIDs[j] })
	for _, insID := range insIDs {
		for _, id := range e.working[insID] {
			o := e.orders[id]
			if o == nil || !o.Status.IsWorking() {
				continue
			}
			openOrders++
			log.Infof("residual order: id=%d instrument=%d status=%s leaves=%d", o.ID, o.InstrumentID, o.Status, o.LeavesQty())
		}
	}
	for _, pos := range e.positions.Open() {
		openPositions++
		log.Infof("residual position: instrument=%d qty=%d avg=%d", pos.InstrumentID, pos.Qty, pos.AvgPrice)
	}
	return openOrders, openPositions
}

// LogDiagnostics asks every module to report.
func (e *Engine) LogDiagnostics(log simmod.Logger) {
	for _, m := range e.modules {
		m.LogDiagnostics(log)
	}
}

// Reset restores the engine to its configured starting state so the same
// instance can run again. The fill model rewinds to its seed.
func (e *Engine) Reset() {
	e.ledger.Reset()
	e.positions.Reset()
	e.fillModel.Reset()
	e.orders = make(map[uint64]*Order)
	e.working = make(map[schema.InstrumentID][]uint64)
	e.queue = newCommandQueue()
	e.suppressed = make(map[uint64]bool)
	e.lastTick = make(map[schema.InstrumentID]schema.MarketData)
	e.now = 0
	e.seq = 0
	for _, m := range e.modules {
		m.Reset()
	}
}

func (e *Engine) emit(ev schema.ExecEvent) {
	if e.sink != nil {
		e.sink(ev)
	}
}

func (e *Engine) event(t schema.ExecEventType, o *Order, reason string) schema.ExecEvent {
	return schema.ExecEvent{
		Type:         t,
		OrderID:      o.ID,
		StrategyID:   o.StrategyID,
		InstrumentID: o.InstrumentID,
		TsEvent:      e.now,
		Reason:       reason,
	}
}

func (e *Engine) emitRejectSpec(spec schema.NewOrder, reason string) {
	e.emit(schema.ExecEvent{
		Type:         schema.ExecRejected,
		OrderID:      spec.OrderID,
		StrategyID:   spec.StrategyID,
		InstrumentID: spec.InstrumentID,
		TsEvent:      e.now,
		Reason:       reason,
	})
}
