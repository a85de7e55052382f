package og

import (
	"github.com/yanun0323/errors"

	"main/internal/schema"
)

var (
	ErrNotConnected = errors.New("execution client not connected")
	ErrBadCommand   = errors.New("invalid order command")
)

// Venue is the exchange surface the client forwards commands to.
type Venue interface {
	SubmitOrderList(specs []schema.NewOrder, sendTs int64)
	ModifyOrder(mod schema.ModifyOrder, sendTs int64)
	CancelOrder(orderID uint64, sendTs int64)
	BatchCancelOrders(orderIDs []uint64, sendTs int64)
	CancelAllOrders(instrumentID schema.InstrumentID, sendTs int64)
	Registry() *schema.Registry
	SetEventSink(sink func(schema.ExecEvent))
}

// Config controls the execution client.
type Config struct {
	Session string
}

// Client is the strategy-facing execution client. It validates commands the
// way a live adapter would before they hit the wire, emits the Submitted
// event immediately at send time, and forwards to the venue, which applies
// its own latency. A disconnected client forwards nothing.
type Client struct {
	cfg       Config
	venue     Venue
	sink      func(schema.ExecEvent)
	connected bool

	submitted int
	rejected  int
}

// NewClient wires a client to a venue. The client starts connected.
func NewClient(cfg Config, venue Venue) *Client {
	if cfg.Session == "" {
		cfg.Session = "default"
	}
	return &Client{
		cfg:       cfg,
		venue:     venue,
		connected: true,
	}
}

// SetEventSink installs the lifecycle event consumer for both the client's
// own Submitted events and everything the venue emits.
func (c *Client) SetEventSink(sink func(schema.ExecEvent)) {
	c.sink = sink
	c.venue.SetEventSink(sink)
}

// Connected reports whether commands currently reach the venue.
func (c *Client) Connected() bool { return c.connected }

// Disconnect drops the link; every command errors until Reconnect.
func (c *Client) Disconnect() { c.connected = false }

// Reconnect restores the link.
func (c *Client) Reconnect() { c.connected = true }

// SubmitOrder validates and forwards one order.
func (c *Client) SubmitOrder(spec schema.NewOrder, sendTs int64) error {
	return c.SubmitOrderList([]schema.NewOrder{spec}, sendTs)
}

// SubmitOrderList validates and forwards a list of orders as one unit. Any
// invalid order rejects the whole list before anything is sent.
func (c *Client) SubmitOrderList(specs []schema.NewOrder, sendTs int64) error {
	if !c.connected {
		return ErrNotConnected
	}
	if len(specs) == 0 {
		return errors.Wrap(ErrBadCommand, "empty order list")
	}
	for i := range specs {
		if err := c.checkSpec(specs[i]); err != nil {
			c.rejected++
			return err
		}
	}
	for i := range specs {
		c.emit(schema.ExecEvent{
			Type:         schema.ExecSubmitted,
			OrderID:      specs[i].OrderID,
			StrategyID:   specs[i].StrategyID,
			InstrumentID: specs[i].InstrumentID,
			TsEvent:      sendTs,
		})
		c.submitted++
	}
	c.venue.SubmitOrderList(specs, sendTs)
	return nil
}

// ModifyOrder validates and forwards an amendment.
func (c *Client) ModifyOrder(mod schema.ModifyOrder, sendTs int64) error {
	if !c.connected {
		return ErrNotConnected
	}
	if mod.OrderID == 0 {
		return errors.Wrap(ErrBadCommand, "modify requires an order id")
	}
	if mod.NewPrice == 0 && mod.NewQty == 0 {
		return errors.Wrap(ErrBadCommand, "modify changes nothing")
	}
	if mod.NewPrice < 0 || mod.NewQty < 0 {
		return errors.Wrap(ErrBadCommand, "modify values must be positive")
	}
	c.venue.ModifyOrder(mod, sendTs)
	return nil
}

// CancelOrder forwards a cancel.
func (c *Client) CancelOrder(orderID uint64, sendTs int64) error {
	if !c.connected {
		return ErrNotConnected
	}
	if orderID == 0 {
		return errors.Wrap(ErrBadCommand, "cancel requires an order id")
	}
	c.venue.CancelOrder(orderID, sendTs)
	return nil
}

// BatchCancelOrders forwards a batch cancel as one unit.
func (c *Client) BatchCancelOrders(orderIDs []uint64, sendTs int64) error {
	if !c.connected {
		return ErrNotConnected
	}
	if len(orderIDs) == 0 {
		return errors.Wrap(ErrBadCommand, "empty cancel batch")
	}
	for _, id := range orderIDs {
		if id == 0 {
			return errors.Wrap(ErrBadCommand, "cancel requires an order id")
		}
	}
	c.venue.BatchCancelOrders(orderIDs, sendTs)
	return nil
}

// CancelAllOrders forwards a cancel-all. Instrument zero means everything.
func (c *Client) CancelAllOrders(instrumentID schema.InstrumentID, sendTs int64) error {
	if !c.connected {
		return ErrNotConnected
	}
	c.venue.CancelAllOrders(instrumentID, sendTs)
	return nil
}

// checkSpec runs the client-side preconditions on one order.
func (c *Client) checkSpec(spec schema.NewOrder) error {
	if spec.OrderID == 0 {
		return errors.Wrap(ErrBadCommand, "order requires an id")
	}
	if _, ok := c.venue.Registry().Instrument(spec.InstrumentID); !ok {
		return errors.Wrapf(ErrBadCommand, "unknown instrument %d", spec.InstrumentID)
	}
	if spec.Side != schema.OrderSideBuy && spec.Side != schema.OrderSideSell {
		return errors.Wrapf(ErrBadCommand, "order %d has no side", spec.OrderID)
	}
	if spec.Qty <= 0 {
		return errors.Wrapf(ErrBadCommand, "order %d quantity must be positive", spec.OrderID)
	}
	switch spec.Type {
	case schema.OrderTypeLimit:
		if spec.Price <= 0 {
			return errors.Wrapf(ErrBadCommand, "limit order %d requires a price", spec.OrderID)
		}
	case schema.OrderTypeStop:
		if spec.Trigger <= 0 {
			return errors.Wrapf(ErrBadCommand, "stop order %d requires a trigger", spec.OrderID)
		}
	case schema.OrderTypeMarket:
	default:
		return errors.Wrapf(ErrBadCommand, "order %d has unknown type", spec.OrderID)
	}
	if spec.TimeInForce == schema.TimeInForceGTD && spec.ExpireTs <= 0 {
		return errors.Wrapf(ErrBadCommand, "gtd order %d requires an expire time", spec.OrderID)
	}
	return nil
}

func (c *Client) emit(ev schema.ExecEvent) {
	if c.sink != nil {
		c.sink(ev)
	}
}
