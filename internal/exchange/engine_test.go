package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/fee"
	"main/internal/fill"
	"main/internal/latency"
	"main/internal/schema"
)

type eventLog struct {
	events []schema.ExecEvent
}

func (l *eventLog) sink(ev schema.ExecEvent) {
	l.events = append(l.events, ev)
}

func (l *eventLog) byType(t schema.ExecEventType) []schema.ExecEvent {
	var out []schema.ExecEvent
	for _, ev := range l.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func testInstrumentRegistry(t *testing.T) (*schema.Registry, schema.Instrument) {
	t.Helper()
	reg := schema.NewRegistry()
	venueID, err := reg.AddVenue("SIM")
	require.NoError(t, err)
	id, err := reg.AddInstrument(schema.Instrument{
		VenueID:        venueID,
		Symbol:         "BTC/USD",
		Class:          schema.AssetSpot,
		BaseCurrency:   "BTC",
		QuoteCurrency:  "USD",
		PriceScale:     2,
		QuantityScale:  3,
		PriceIncrement: 1,
	})
	require.NoError(t, err)
	ins, _ := reg.Instrument(id)
	return reg, ins
}

type engineOpts struct {
	fill   fill.Config
	lat    latency.Model
	fee    fee.Model
	frozen bool
}

func newTestEngine(t *testing.T, reg *schema.Registry, opts engineOpts) (*Engine, *eventLog) {
	t.Helper()
	if opts.fill == (fill.Config{}) {
		opts.fill = fill.Config{ProbFillOnLimit: 1, ProbFillOnStop: 1, Seed: 1}
	}
	if opts.fee == nil {
		opts.fee = fee.MakerTaker{}
	}
	model, err := fill.NewModel(opts.fill)
	require.NoError(t, err)
	e := NewEngine(reg, model, opts.lat, opts.fee, Config{
		StartingBalances: map[schema.Currency]schema.Money{"USD": 10_000_000_000_000},
		Frozen:           opts.frozen,
	})
	log := &eventLog{}
	e.SetEventSink(log.sink)
	return e, log
}

func trade(ins schema.Instrument, ts int64, px schema.Price, size schema.Quantity) schema.MarketData {
	return schema.MarketData{
		InstrumentID: ins.ID,
		Kind:         schema.MarketDataTrade,
		Price:        px,
		Size:         size,
		TsEvent:      ts,
	}
}

func quote(ins schema.Instrument, ts int64, bid, ask schema.Price, size schema.Quantity) schema.MarketData {
	return schema.MarketData{
		InstrumentID: ins.ID,
		Kind:         schema.MarketDataQuote,
		BidPrice:     bid,
		BidSize:      size,
		AskPrice:     ask,
		AskSize:      size,
		TsEvent:      ts,
	}
}

func TestLimitFillOnCross(t *testing.T) {
	reg, ins := testInstrumentRegistry(t)
	e, log := newTestEngine(t, reg, engineOpts{})

	e.SubmitOrder(schema.NewOrder{
		OrderID: 1, InstrumentID: ins.ID, Side: schema.OrderSideBuy,
		Type: schema.OrderTypeLimit, TimeInForce: schema.TimeInForceGTC,
		Price: 10000, Qty: 1000,
	}, 0)
	require.NoError(t, e.OnMarketData(trade(ins, 10, 9950, 2000)))

	fills := log.byType(schema.ExecFilled)
	require.Len(t, fills, 1)
	assert.Equal(t, schema.Price(9950), fills[0].Price, "fills at the crossing price")
	assert.Equal(t, schema.Quantity(1000), fills[0].Qty)
	assert.Equal(t, schema.Quantity(0), fills[0].LeavesQty)
	assert.Equal(t, int64(10), fills[0].TsEvent)

	o, ok := e.Order(1)
	require.True(t, ok)
	assert.Equal(t, StatusFilled, o.Status)

	pos, ok := e.Position(ins.ID)
	require.True(t, ok)
	assert.Equal(t, schema.Quantity(1000), pos.Qty)
	assert.Equal(t, schema.Price(9950), pos.AvgPrice)
}

func TestLimitRestsUntilCrossed(t *testing.T) {
	reg, ins := testInstrumentRegistry(t)
	e, log := newTestEngine(t, reg, engineOpts{})

	e.SubmitOrder(schema.NewOrder{
		OrderID: 1, InstrumentID: ins.ID, Side: schema.OrderSideBuy,
		Type: schema.OrderTypeLimit, TimeInForce: schema.TimeInForceGTC,
		Price: 10000, Qty: 1000,
	}, 0)
	require.NoError(t, e.OnMarketData(trade(ins, 10, 10100, 2000)))
	require.NoError(t, e.OnMarketData(trade(ins, 20, 10050, 2000)))

	assert.Empty(t, log.byType(schema.ExecFilled))
	o, _ := e.Order(1)
	assert.True(t, o.Status.IsWorking())

	require.NoError(t, e.OnMarketData(trade(ins, 30, 9990, 2000)))
	require.Len(t, log.byType(schema.ExecFilled), 1)
}

func TestMarketOrderFillsOnNextTick(t *testing.T) {
	reg, ins := testInstrumentRegistry(t)
	e, log := newTestEngine(t, reg, engineOpts{})

	require.NoError(t, e.OnMarketData(trade(ins, 10, 10000, 1000)))
	e.SubmitOrder(schema.NewOrder{
		OrderID: 1, InstrumentID: ins.ID, Side: schema.OrderSideBuy,
		Type: schema.OrderTypeMarket, TimeInForce: schema.TimeInForceGTC, Qty: 500,
	}, 10)
	require.NoError(t, e.OnMarketData(trade(ins, 20, 10100, 1000)))

	fills := log.byType(schema.ExecFilled)
	require.Len(t, fills, 1)
	assert.Equal(t, schema.Price(10100), fills[0].Price, "market orders take the next available price")
	assert.Equal(t, schema.LiquidityTaker, fills[0].Liquidity)
}

func TestCommandLatencyDelaysActivation(t *testing.T) {
	reg, ins := testInstrumentRegistry(t)
	e, log := newTestEngine(t, reg, engineOpts{lat: latency.Model{BaseNs: 5, InsertNs: 10}})

	e.SubmitOrder(schema.NewOrder{
		OrderID: 1, InstrumentID: ins.ID, Side: schema.OrderSideBuy,
		Type: schema.OrderTypeLimit, TimeInForce: schema.TimeInForceGTC,
		Price: 10000, Qty: 1000,
	}, 0) // effective at 15

	require.NoError(t, e.OnMarketData(trade(ins, 10, 9900, 2000)))
	assert.Empty(t, log.byType(schema.ExecAccepted), "not active before its effective time")

	require.NoError(t, e.OnMarketData(trade(ins, 20, 9900, 2000)))
	accepted := log.byType(schema.ExecAccepted)
	require.Len(t, accepted, 1)
	assert.Equal(t, int64(15), accepted[0].TsEvent, "activates at send time plus latency")

	fills := log.byType(schema.ExecFilled)
	require.Len(t, fills, 1)
	assert.Equal(t, int64(15), fills[0].TsEvent, "crossed against the standing tick on activation")
}

func TestCancelBeforeInsertSuppresses(t *testing.T) {
	reg, ins := testInstrumentRegistry(t)
	e, log := newTestEngine(t, reg, engineOpts{lat: latency.Model{InsertNs: 20, CancelNs: 5}})

	e.SubmitOrder(schema.NewOrder{
		OrderID: 1, InstrumentID: ins.ID, Side: schema.OrderSideBuy,
		Type: schema.OrderTypeLimit, TimeInForce: schema.TimeInForceGTC,
		Price: 10000, Qty: 1000,
	}, 0) // effective at 20
	e.CancelOrder(1, 0) // effective at 5, beats the insert

	require.NoError(t, e.OnMarketData(trade(ins, 30, 9900, 2000)))

	assert.Empty(t, log.byType(schema.ExecAccepted), "suppressed order never activates")
	assert.Empty(t, log.byType(schema.ExecFilled))
	canceled := log.byType(schema.ExecCanceled)
	require.Len(t, canceled, 1)
	assert.Equal(t, int64(20), canceled[0].TsEvent, "reported when the insert lands")
}

func TestOCOSiblingCanceledSameStep(t *testing.T) {
	reg, ins := testInstrumentRegistry(t)
	e, log := newTestEngine(t, reg, engineOpts{})

	e.SubmitOrderList([]schema.NewOrder{
		{
			OrderID: 1, InstrumentID: ins.ID, Side: schema.OrderSideBuy,
			Type: schema.OrderTypeLimit, TimeInForce: schema.TimeInForceGTC,
			Price: 10000, Qty: 1000, OCOSiblingID: 2,
		},
		{
			OrderID: 2, InstrumentID: ins.ID, Side: schema.OrderSideSell,
			Type: schema.OrderTypeLimit, TimeInForce: schema.TimeInForceGTC,
			Price: 10500, Qty: 1000, OCOSiblingID: 1,
		},
	}, 0)

	require.NoError(t, e.OnMarketData(trade(ins, 10, 9900, 2000)))

	fills := log.byType(schema.ExecFilled)
	require.Len(t, fills, 1)
	require.Equal(t, uint64(1), fills[0].OrderID)

	canceled := log.byType(schema.ExecCanceled)
	require.Len(t, canceled, 1)
	assert.Equal(t, uint64(2), canceled[0].OrderID)
	assert.Equal(t, fills[0].TsEvent, canceled[0].TsEvent, "sibling canceled in the same step")

	sibling, _ := e.Order(2)
	assert.Equal(t, StatusCanceled, sibling.Status)
}

func TestOCOSiblingCanceledWhenLegRejectedAtActivation(t *testing.T) {
	reg, ins := testInstrumentRegistry(t)
	e, log := newTestEngine(t, reg, engineOpts{})

	// The second leg names a parent that does not exist, so it is rejected
	// the moment it activates. The first leg must not stay live.
	e.SubmitOrderList([]schema.NewOrder{
		{
			OrderID: 1, InstrumentID: ins.ID, Side: schema.OrderSideBuy,
			Type: schema.OrderTypeLimit, TimeInForce: schema.TimeInForceGTC,
			Price: 9000, Qty: 1000, OCOSiblingID: 2,
		},
		{
			OrderID: 2, InstrumentID: ins.ID, Side: schema.OrderSideSell,
			Type: schema.OrderTypeLimit, TimeInForce: schema.TimeInForceGTC,
			Price: 10500, Qty: 1000, OCOSiblingID: 1, ParentID: 99,
		},
	}, 0)
	require.NoError(t, e.OnMarketData(trade(ins, 10, 9900, 2000)))

	rejected := log.byType(schema.ExecRejected)
	require.Len(t, rejected, 1)
	assert.Equal(t, uint64(2), rejected[0].OrderID)
	assert.Equal(t, "parent order not found", rejected[0].Reason)

	canceled := log.byType(schema.ExecCanceled)
	require.Len(t, canceled, 1)
	assert.Equal(t, uint64(1), canceled[0].OrderID)
	assert.Equal(t, "linked order completed", canceled[0].Reason)

	first, ok := e.Order(1)
	require.True(t, ok)
	assert.True(t, first.Status.IsTerminal())

	orders, _ := e.CheckResiduals(nopLogger{})
	assert.Equal(t, 0, orders)
}

func TestOCOSiblingCanceledOnDuplicateReject(t *testing.T) {
	reg, ins := testInstrumentRegistry(t)
	e, log := newTestEngine(t, reg, engineOpts{})

	e.SubmitOrder(schema.NewOrder{
		OrderID: 1, InstrumentID: ins.ID, Side: schema.OrderSideBuy,
		Type: schema.OrderTypeLimit, TimeInForce: schema.TimeInForceGTC,
		Price: 9000, Qty: 1000,
	}, 0)
	e.SubmitOrder(schema.NewOrder{
		OrderID: 2, InstrumentID: ins.ID, Side: schema.OrderSideBuy,
		Type: schema.OrderTypeLimit, TimeInForce: schema.TimeInForceGTC,
		Price: 8900, Qty: 1000,
	}, 0)
	require.NoError(t, e.OnMarketData(trade(ins, 10, 9900, 1000)))
	require.Len(t, log.byType(schema.ExecAccepted), 2)

	// A reused order id is rejected, but the linkage it declared still
	// resolves against the live sibling.
	e.SubmitOrder(schema.NewOrder{
		OrderID: 1, InstrumentID: ins.ID, Side: schema.OrderSideSell,
		Type: schema.OrderTypeLimit, TimeInForce: schema.TimeInForceGTC,
		Price: 10500, Qty: 1000, OCOSiblingID: 2,
	}, 10)
	require.NoError(t, e.OnMarketData(trade(ins, 20, 9900, 1000)))

	rejected := log.byType(schema.ExecRejected)
	require.Len(t, rejected, 1)
	assert.Equal(t, "duplicate order id", rejected[0].Reason)

	canceled := log.byType(schema.ExecCanceled)
	require.Len(t, canceled, 1)
	assert.Equal(t, uint64(2), canceled[0].OrderID)
	assert.Equal(t, "linked order completed", canceled[0].Reason)

	original, _ := e.Order(1)
	assert.True(t, original.Status.IsWorking(), "the stored order under the reused id is untouched")
}

func TestIOCCancelsRemainder(t *testing.T) {
	reg, ins := testInstrumentRegistry(t)
	e, log := newTestEngine(t, reg, engineOpts{})

	e.SubmitOrder(schema.NewOrder{
		OrderID: 1, InstrumentID: ins.ID, Side: schema.OrderSideBuy,
		Type: schema.OrderTypeLimit, TimeInForce: schema.TimeInForceIOC,
		Price: 10000, Qty: 2000,
	}, 0)
	require.NoError(t, e.OnMarketData(trade(ins, 10, 9900, 1000)))

	fills := log.byType(schema.ExecFilled)
	require.Len(t, fills, 1)
	assert.Equal(t, schema.Quantity(1000), fills[0].Qty)

	o, _ := e.Order(1)
	assert.Equal(t, StatusCanceled, o.Status)
	assert.Equal(t, schema.Quantity(1000), o.FilledQty)

	require.NoError(t, e.OnMarketData(trade(ins, 20, 9900, 5000)))
	assert.Len(t, log.byType(schema.ExecFilled), 1, "no fills after the first pass")
}

func TestFOKAllOrNothing(t *testing.T) {
	reg, ins := testInstrumentRegistry(t)
	e, log := newTestEngine(t, reg, engineOpts{})

	e.SubmitOrder(schema.NewOrder{
		OrderID: 1, InstrumentID: ins.ID, Side: schema.OrderSideBuy,
		Type: schema.OrderTypeLimit, TimeInForce: schema.TimeInForceFOK,
		Price: 10000, Qty: 2000,
	}, 0)
	require.NoError(t, e.OnMarketData(trade(ins, 10, 9900, 1000)))

	assert.Empty(t, log.byType(schema.ExecFilled), "partial availability kills the order")
	o, _ := e.Order(1)
	assert.Equal(t, StatusCanceled, o.Status)

	// Fresh engine: full availability on the first pass fills in full.
	e2, log2 := newTestEngine(t, reg, engineOpts{})
	e2.SubmitOrder(schema.NewOrder{
		OrderID: 1, InstrumentID: ins.ID, Side: schema.OrderSideBuy,
		Type: schema.OrderTypeLimit, TimeInForce: schema.TimeInForceFOK,
		Price: 10000, Qty: 2000,
	}, 0)
	require.NoError(t, e2.OnMarketData(trade(ins, 10, 9900, 3000)))

	fills := log2.byType(schema.ExecFilled)
	require.Len(t, fills, 1)
	assert.Equal(t, schema.Quantity(2000), fills[0].Qty)
	assert.Equal(t, schema.Quantity(0), fills[0].LeavesQty)
}

func TestGTDExpiry(t *testing.T) {
	reg, ins := testInstrumentRegistry(t)
	e, log := newTestEngine(t, reg, engineOpts{})

	e.SubmitOrder(schema.NewOrder{
		OrderID: 1, InstrumentID: ins.ID, Side: schema.OrderSideBuy,
		Type: schema.OrderTypeLimit, TimeInForce: schema.TimeInForceGTD,
		Price: 10000, Qty: 1000, ExpireTs: 100,
	}, 0)

	require.NoError(t, e.OnMarketData(trade(ins, 50, 10100, 1000)))
	assert.Empty(t, log.byType(schema.ExecExpired))

	// Expiry wins even when the expiring tick would cross.
	require.NoError(t, e.OnMarketData(trade(ins, 150, 9900, 1000)))
	expired := log.byType(schema.ExecExpired)
	require.Len(t, expired, 1)
	assert.Empty(t, log.byType(schema.ExecFilled))

	o, _ := e.Order(1)
	assert.Equal(t, StatusExpired, o.Status)
}

func TestPostOnlyRejectedWhenCrossing(t *testing.T) {
	reg, ins := testInstrumentRegistry(t)
	e, log := newTestEngine(t, reg, engineOpts{})

	require.NoError(t, e.OnMarketData(trade(ins, 10, 9900, 1000)))
	e.SubmitOrder(schema.NewOrder{
		OrderID: 1, InstrumentID: ins.ID, Side: schema.OrderSideBuy,
		Type: schema.OrderTypeLimit, TimeInForce: schema.TimeInForceGTC,
		Flags: schema.OrderFlagPostOnly, Price: 10000, Qty: 1000,
	}, 10)
	require.NoError(t, e.OnMarketData(trade(ins, 20, 9900, 1000)))

	rejected := log.byType(schema.ExecRejected)
	require.Len(t, rejected, 1)
	assert.Contains(t, rejected[0].Reason, "post-only")
	assert.Empty(t, log.byType(schema.ExecFilled))
}

func TestStopTriggerWithSlippage(t *testing.T) {
	reg, ins := testInstrumentRegistry(t)
	e, log := newTestEngine(t, reg, engineOpts{
		fill: fill.Config{ProbFillOnLimit: 1, ProbFillOnStop: 1, ProbSlippage: 1, Seed: 1},
	})

	e.SubmitOrder(schema.NewOrder{
		OrderID: 1, InstrumentID: ins.ID, Side: schema.OrderSideBuy,
		Type: schema.OrderTypeStop, TimeInForce: schema.TimeInForceGTC,
		Trigger: 10000, Qty: 1000,
	}, 0)

	require.NoError(t, e.OnMarketData(trade(ins, 10, 9900, 1000)))
	assert.Empty(t, log.byType(schema.ExecFilled), "below trigger")

	require.NoError(t, e.OnMarketData(trade(ins, 20, 10100, 1000)))
	fills := log.byType(schema.ExecFilled)
	require.Len(t, fills, 1)
	assert.Equal(t, schema.Price(10101), fills[0].Price, "one increment of adverse slippage")
	assert.Equal(t, schema.LiquidityTaker, fills[0].Liquidity)
}

func TestSlippedLimitNeverTradesThroughLimit(t *testing.T) {
	reg, ins := testInstrumentRegistry(t)
	e, log := newTestEngine(t, reg, engineOpts{
		fill: fill.Config{ProbFillOnLimit: 1, ProbSlippage: 1, Seed: 1},
	})

	e.SubmitOrder(schema.NewOrder{
		OrderID: 1, InstrumentID: ins.ID, Side: schema.OrderSideBuy,
		Type: schema.OrderTypeLimit, TimeInForce: schema.TimeInForceGTC,
		Price: 10000, Qty: 1000,
	}, 0)
	require.NoError(t, e.OnMarketData(trade(ins, 10, 9900, 1000)))

	fills := log.byType(schema.ExecFilled)
	require.Len(t, fills, 1)
	assert.Equal(t, schema.Price(10000), fills[0].Price, "degrades to the limit price at worst")
}

func TestQuoteTickUsesSideOfBook(t *testing.T) {
	reg, ins := testInstrumentRegistry(t)
	e, log := newTestEngine(t, reg, engineOpts{})

	e.SubmitOrder(schema.NewOrder{
		OrderID: 1, InstrumentID: ins.ID, Side: schema.OrderSideBuy,
		Type: schema.OrderTypeLimit, TimeInForce: schema.TimeInForceGTC,
		Price: 10000, Qty: 1000,
	}, 0)

	// Bid crosses the buy limit but the ask does not: no fill.
	require.NoError(t, e.OnMarketData(quote(ins, 10, 9900, 10050, 1000)))
	assert.Empty(t, log.byType(schema.ExecFilled))

	require.NoError(t, e.OnMarketData(quote(ins, 20, 9900, 9950, 1000)))
	fills := log.byType(schema.ExecFilled)
	require.Len(t, fills, 1)
	assert.Equal(t, schema.Price(9950), fills[0].Price, "buys lift the ask")
}

func TestFixedFeeChargedOncePerOrder(t *testing.T) {
	reg, ins := testInstrumentRegistry(t)
	e, log := newTestEngine(t, reg, engineOpts{fee: fee.Fixed{Amount: 150000000}})

	e.SubmitOrder(schema.NewOrder{
		OrderID: 1, InstrumentID: ins.ID, Side: schema.OrderSideBuy,
		Type: schema.OrderTypeLimit, TimeInForce: schema.TimeInForceGTC,
		Price: 10000, Qty: 2000,
	}, 0)
	require.NoError(t, e.OnMarketData(trade(ins, 10, 9900, 1000)))
	require.NoError(t, e.OnMarketData(trade(ins, 20, 9900, 1000)))

	fills := log.byType(schema.ExecFilled)
	require.Len(t, fills, 2)
	assert.Equal(t, schema.Money(150000000), fills[0].Commission)
	assert.Equal(t, schema.Money(0), fills[1].Commission, "flat fee applies to the first fill only")
}

func TestModifyOrder(t *testing.T) {
	reg, ins := testInstrumentRegistry(t)
	e, log := newTestEngine(t, reg, engineOpts{})

	e.SubmitOrder(schema.NewOrder{
		OrderID: 1, InstrumentID: ins.ID, Side: schema.OrderSideBuy,
		Type: schema.OrderTypeLimit, TimeInForce: schema.TimeInForceGTC,
		Price: 9000, Qty: 1000,
	}, 0)
	require.NoError(t, e.OnMarketData(trade(ins, 10, 9900, 1000)))
	assert.Empty(t, log.byType(schema.ExecFilled))

	e.ModifyOrder(schema.ModifyOrder{OrderID: 1, NewPrice: 10000, NewQty: 500}, 10)
	require.NoError(t, e.OnMarketData(trade(ins, 20, 9900, 1000)))

	fills := log.byType(schema.ExecFilled)
	require.Len(t, fills, 1)
	assert.Equal(t, schema.Quantity(500), fills[0].Qty)
}

func TestModifyRejectedOnTerminalOrder(t *testing.T) {
	reg, ins := testInstrumentRegistry(t)
	e, log := newTestEngine(t, reg, engineOpts{})

	e.SubmitOrder(schema.NewOrder{
		OrderID: 1, InstrumentID: ins.ID, Side: schema.OrderSideBuy,
		Type: schema.OrderTypeLimit, TimeInForce: schema.TimeInForceGTC,
		Price: 10000, Qty: 1000,
	}, 0)
	require.NoError(t, e.OnMarketData(trade(ins, 10, 9900, 2000)))
	require.Len(t, log.byType(schema.ExecFilled), 1)

	e.ModifyOrder(schema.ModifyOrder{OrderID: 1, NewPrice: 9000}, 10)
	require.NoError(t, e.OnMarketData(trade(ins, 20, 9900, 2000)))

	rejects := log.byType(schema.ExecCancelRejected)
	require.Len(t, rejects, 1)
	assert.Contains(t, rejects[0].Reason, "modify rejected")
}

func TestCancelTerminalOrderRejected(t *testing.T) {
	reg, ins := testInstrumentRegistry(t)
	e, log := newTestEngine(t, reg, engineOpts{})

	e.SubmitOrder(schema.NewOrder{
		OrderID: 1, InstrumentID: ins.ID, Side: schema.OrderSideBuy,
		Type: schema.OrderTypeLimit, TimeInForce: schema.TimeInForceGTC,
		Price: 10000, Qty: 1000,
	}, 0)
	require.NoError(t, e.OnMarketData(trade(ins, 10, 9900, 2000)))

	e.CancelOrder(1, 10)
	require.NoError(t, e.OnMarketData(trade(ins, 20, 9900, 2000)))

	rejects := log.byType(schema.ExecCancelRejected)
	require.Len(t, rejects, 1)
	assert.Equal(t, "order already terminal", rejects[0].Reason)
}

func TestCancelUnknownOrderRejected(t *testing.T) {
	reg, ins := testInstrumentRegistry(t)
	e, log := newTestEngine(t, reg, engineOpts{})

	e.CancelOrder(99, 0)
	require.NoError(t, e.OnMarketData(trade(ins, 10, 9900, 1000)))

	rejects := log.byType(schema.ExecCancelRejected)
	require.Len(t, rejects, 1)
	assert.Equal(t, "unknown order", rejects[0].Reason)
}

func TestDuplicateOrderIDRejected(t *testing.T) {
	reg, ins := testInstrumentRegistry(t)
	e, log := newTestEngine(t, reg, engineOpts{})

	spec := schema.NewOrder{
		OrderID: 1, InstrumentID: ins.ID, Side: schema.OrderSideBuy,
		Type: schema.OrderTypeLimit, TimeInForce: schema.TimeInForceGTC,
		Price: 9000, Qty: 1000,
	}
	e.SubmitOrder(spec, 0)
	e.SubmitOrder(spec, 0)
	require.NoError(t, e.OnMarketData(trade(ins, 10, 9900, 1000)))

	rejected := log.byType(schema.ExecRejected)
	require.Len(t, rejected, 1)
	assert.Equal(t, "duplicate order id", rejected[0].Reason)
}

func TestCancelAllOrders(t *testing.T) {
	reg, ins := testInstrumentRegistry(t)
	e, log := newTestEngine(t, reg, engineOpts{})

	for i := uint64(1); i <= 3; i++ {
		e.SubmitOrder(schema.NewOrder{
			OrderID: i, InstrumentID: ins.ID, Side: schema.OrderSideBuy,
			Type: schema.OrderTypeLimit, TimeInForce: schema.TimeInForceGTC,
			Price: 9000, Qty: 1000,
		}, 0)
	}
	require.NoError(t, e.OnMarketData(trade(ins, 10, 9900, 1000)))
	require.Len(t, log.byType(schema.ExecAccepted), 3)

	e.CancelAllOrders(0, 10)
	require.NoError(t, e.OnMarketData(trade(ins, 20, 9900, 1000)))

	canceled := log.byType(schema.ExecCanceled)
	require.Len(t, canceled, 3)
	orders, positions := e.CheckResiduals(nopLogger{})
	assert.Equal(t, 0, orders)
	assert.Equal(t, 0, positions)
}

func TestChildActivatesOnParentFill(t *testing.T) {
	reg, ins := testInstrumentRegistry(t)
	e, log := newTestEngine(t, reg, engineOpts{})

	e.SubmitOrderList([]schema.NewOrder{
		{
			OrderID: 1, InstrumentID: ins.ID, Side: schema.OrderSideBuy,
			Type: schema.OrderTypeLimit, TimeInForce: schema.TimeInForceGTC,
			Price: 10000, Qty: 1000,
		},
		{
			OrderID: 2, InstrumentID: ins.ID, Side: schema.OrderSideSell,
			Type: schema.OrderTypeLimit, TimeInForce: schema.TimeInForceGTC,
			Price: 10500, Qty: 1000, ParentID: 1,
		},
	}, 0)

	require.NoError(t, e.OnMarketData(trade(ins, 10, 10200, 1000)))
	child, _ := e.Order(2)
	assert.Equal(t, StatusSubmitted, child.Status, "contingent child rests inert")
	require.Len(t, log.byType(schema.ExecAccepted), 1)

	require.NoError(t, e.OnMarketData(trade(ins, 20, 9900, 2000)))
	child, _ = e.Order(2)
	assert.True(t, child.Status.IsWorking(), "child activates when the parent fills")
	require.Len(t, log.byType(schema.ExecAccepted), 2)

	require.NoError(t, e.OnMarketData(trade(ins, 30, 10600, 2000)))
	child, _ = e.Order(2)
	assert.Equal(t, StatusFilled, child.Status)
}

func TestChildCanceledWhenParentCanceled(t *testing.T) {
	reg, ins := testInstrumentRegistry(t)
	e, _ := newTestEngine(t, reg, engineOpts{})

	e.SubmitOrderList([]schema.NewOrder{
		{
			OrderID: 1, InstrumentID: ins.ID, Side: schema.OrderSideBuy,
			Type: schema.OrderTypeLimit, TimeInForce: schema.TimeInForceGTC,
			Price: 9000, Qty: 1000,
		},
		{
			OrderID: 2, InstrumentID: ins.ID, Side: schema.OrderSideSell,
			Type: schema.OrderTypeLimit, TimeInForce: schema.TimeInForceGTC,
			Price: 10500, Qty: 1000, ParentID: 1,
		},
	}, 0)
	require.NoError(t, e.OnMarketData(trade(ins, 10, 9900, 1000)))

	e.CancelOrder(1, 10)
	require.NoError(t, e.OnMarketData(trade(ins, 20, 9900, 1000)))

	child, _ := e.Order(2)
	assert.Equal(t, StatusCanceled, child.Status, "child dies with an unfilled parent")
}

func TestReduceOnly(t *testing.T) {
	reg, ins := testInstrumentRegistry(t)
	e, log := newTestEngine(t, reg, engineOpts{})

	e.SubmitOrder(schema.NewOrder{
		OrderID: 1, InstrumentID: ins.ID, Side: schema.OrderSideBuy,
		Type: schema.OrderTypeLimit, TimeInForce: schema.TimeInForceGTC,
		Price: 10000, Qty: 1000,
	}, 0)
	require.NoError(t, e.OnMarketData(trade(ins, 10, 9900, 2000)))
	require.Len(t, log.byType(schema.ExecFilled), 1)

	// Closing side: capped to the open exposure.
	e.SubmitOrder(schema.NewOrder{
		OrderID: 2, InstrumentID: ins.ID, Side: schema.OrderSideSell,
		Type: schema.OrderTypeLimit, TimeInForce: schema.TimeInForceGTC,
		Flags: schema.OrderFlagReduceOnly, Price: 9000, Qty: 2000,
	}, 10)
	require.NoError(t, e.OnMarketData(trade(ins, 20, 9950, 5000)))

	fills := log.byType(schema.ExecFilled)
	require.Len(t, fills, 2)
	assert.Equal(t, schema.Quantity(1000), fills[1].Qty, "capped to open exposure")
	_, open := e.Position(ins.ID)
	assert.False(t, open, "position closed flat")

	// With the position flat the remainder cannot reduce anything.
	canceled := log.byType(schema.ExecCanceled)
	require.Len(t, canceled, 1)
	assert.Equal(t, uint64(2), canceled[0].OrderID)
	assert.Equal(t, "reduce-only order would increase position", canceled[0].Reason)
}

func TestFrozenAccountKeepsBalances(t *testing.T) {
	reg, ins := testInstrumentRegistry(t)
	e, log := newTestEngine(t, reg, engineOpts{
		fee:    fee.Fixed{Amount: 100},
		frozen: true,
	})

	e.SubmitOrder(schema.NewOrder{
		OrderID: 1, InstrumentID: ins.ID, Side: schema.OrderSideBuy,
		Type: schema.OrderTypeLimit, TimeInForce: schema.TimeInForceGTC,
		Price: 10000, Qty: 1000,
	}, 0)
	require.NoError(t, e.OnMarketData(trade(ins, 10, 9900, 2000)))
	require.Len(t, log.byType(schema.ExecFilled), 1)

	assert.Equal(t, schema.Money(10_000_000_000_000), e.Ledger().Balance("USD"))
	pos, ok := e.Position(ins.ID)
	require.True(t, ok)
	assert.Equal(t, schema.Quantity(1000), pos.Qty, "positions still tracked")
}

func TestNonMonotonicTickRejected(t *testing.T) {
	reg, ins := testInstrumentRegistry(t)
	e, _ := newTestEngine(t, reg, engineOpts{})

	require.NoError(t, e.OnMarketData(trade(ins, 20, 10000, 1000)))
	err := e.OnMarketData(trade(ins, 10, 10000, 1000))
	require.ErrorIs(t, err, ErrNonMonotonicTime)
}

func TestDeterministicReplay(t *testing.T) {
	run := func() []schema.ExecEvent {
		reg, ins := testInstrumentRegistry(t)
		e, log := newTestEngine(t, reg, engineOpts{
			fill: fill.Config{ProbFillOnLimit: 0.5, ProbFillOnStop: 0.5, ProbSlippage: 0.2, Seed: 7},
		})
		px := schema.Price(10000)
		for i := 0; i < 200; i++ {
			ts := int64(i+1) * 10
			if i%5 == 0 {
				e.SubmitOrder(schema.NewOrder{
					OrderID: uint64(i + 1), InstrumentID: ins.ID,
					Side: schema.OrderSide(1 + i%2), Type: schema.OrderTypeLimit,
					TimeInForce: schema.TimeInForceGTC, Price: px, Qty: 100,
				}, ts-1)
			}
			if i%2 == 0 {
				px += 7
			} else {
				px -= 5
			}
			require.NoError(t, e.OnMarketData(trade(ins, ts, px, 1000)))
		}
		return log.events
	}

	first := run()
	second := run()
	require.Equal(t, len(first), len(second))
	for i := range first {
		require.Equal(t, first[i], second[i], "event %d differs", i)
	}
}

func TestReset(t *testing.T) {
	reg, ins := testInstrumentRegistry(t)
	e, log := newTestEngine(t, reg, engineOpts{})

	e.SubmitOrder(schema.NewOrder{
		OrderID: 1, InstrumentID: ins.ID, Side: schema.OrderSideBuy,
		Type: schema.OrderTypeLimit, TimeInForce: schema.TimeInForceGTC,
		Price: 10000, Qty: 1000,
	}, 0)
	require.NoError(t, e.OnMarketData(trade(ins, 10, 9900, 2000)))
	require.Len(t, log.byType(schema.ExecFilled), 1)

	e.Reset()
	assert.Equal(t, int64(0), e.Now())
	assert.Empty(t, e.OpenPositions())
	_, ok := e.Order(1)
	assert.False(t, ok)
	assert.Equal(t, schema.Money(10_000_000_000_000), e.Ledger().Balance("USD"))
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...any) {}
