package ops

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/yanun0323/decimal"

	"main/internal/schema"
)

// OrderScript is the JSON layout for scripted order flow: each entry is one
// command sent at a simulated timestamp. Prices and quantities are decimal
// strings resolved against the instrument's scales.
type OrderScript struct {
	Orders []ScriptedOrderConfig `json:"orders"`
}

// ScriptedOrderConfig describes one scripted order.
type ScriptedOrderConfig struct {
	SendTs       int64           `json:"sendTs"`
	OrderID      uint64          `json:"orderId"`
	StrategyID   uint32          `json:"strategyId"`
	Symbol       string          `json:"symbol"`
	Side         string          `json:"side"`
	Type         string          `json:"type"`
	TimeInForce  string          `json:"timeInForce"`
	Flags        []string        `json:"flags"`
	Price        decimal.Decimal `json:"price"`
	Trigger      decimal.Decimal `json:"trigger"`
	Qty          decimal.Decimal `json:"qty"`
	ExpireTs     int64           `json:"expireTs"`
	OCOSiblingID uint64          `json:"ocoSiblingId"`
	ParentID     uint64          `json:"parentId"`
}

// TimedOrder is a resolved scripted order ready to send.
type TimedOrder struct {
	SendTs int64
	Spec   schema.NewOrder
}

// LoadOrders reads a scripted order file and resolves it against the
// registry. The result is sorted by send time.
func LoadOrders(path string, reg *schema.Registry) ([]TimedOrder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var script OrderScript
	if err := json.Unmarshal(data, &script); err != nil {
		return nil, err
	}

	out := make([]TimedOrder, 0, len(script.Orders))
	for i, oc := range script.Orders {
		spec, err := resolveScriptedOrder(oc, reg)
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", i, err)
		}
		out = append(out, TimedOrder{SendTs: oc.SendTs, Spec: spec})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SendTs < out[j].SendTs })
	return out, nil
}

func resolveScriptedOrder(oc ScriptedOrderConfig, reg *schema.Registry) (schema.NewOrder, error) {
	ins, ok := reg.InstrumentBySymbol(oc.Symbol)
	if !ok {
		return schema.NewOrder{}, fmt.Errorf("unknown symbol %q", oc.Symbol)
	}

	spec := schema.NewOrder{
		OrderID:      oc.OrderID,
		StrategyID:   oc.StrategyID,
		InstrumentID: ins.ID,
		ExpireTs:     oc.ExpireTs,
		OCOSiblingID: oc.OCOSiblingID,
		ParentID:     oc.ParentID,
	}

	switch oc.Side {
	case "buy":
		spec.Side = schema.OrderSideBuy
	case "sell":
		spec.Side = schema.OrderSideSell
	default:
		return schema.NewOrder{}, fmt.Errorf("unknown side %q", oc.Side)
	}

	switch oc.Type {
	case "limit":
		spec.Type = schema.OrderTypeLimit
	case "market":
		spec.Type = schema.OrderTypeMarket
	case "stop":
		spec.Type = schema.OrderTypeStop
	default:
		return schema.NewOrder{}, fmt.Errorf("unknown type %q", oc.Type)
	}

	switch oc.TimeInForce {
	case "", "gtc":
		spec.TimeInForce = schema.TimeInForceGTC
	case "ioc":
		spec.TimeInForce = schema.TimeInForceIOC
	case "fok":
		spec.TimeInForce = schema.TimeInForceFOK
	case "gtd":
		spec.TimeInForce = schema.TimeInForceGTD
	default:
		return schema.NewOrder{}, fmt.Errorf("unknown timeInForce %q", oc.TimeInForce)
	}

	for _, f := range oc.Flags {
		switch f {
		case "post_only":
			spec.Flags |= schema.OrderFlagPostOnly
		case "reduce_only":
			spec.Flags |= schema.OrderFlagReduceOnly
		default:
			return schema.NewOrder{}, fmt.Errorf("unknown flag %q", f)
		}
	}

	if s := oc.Price.String(); s != "" && s != "0" {
		v, err := schema.ParseScaled(s, ins.PriceScale)
		if err != nil {
			return schema.NewOrder{}, fmt.Errorf("price: %w", err)
		}
		spec.Price = schema.Price(v)
	}
	if s := oc.Trigger.String(); s != "" && s != "0" {
		v, err := schema.ParseScaled(s, ins.PriceScale)
		if err != nil {
			return schema.NewOrder{}, fmt.Errorf("trigger: %w", err)
		}
		spec.Trigger = schema.Price(v)
	}
	qty, err := schema.ParseScaled(decString(oc.Qty), ins.QuantityScale)
	if err != nil {
		return schema.NewOrder{}, fmt.Errorf("qty: %w", err)
	}
	spec.Qty = schema.Quantity(qty)

	return spec, nil
}
