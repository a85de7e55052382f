package mdg

import (
	"math/rand"

	"github.com/yanun0323/errors"

	"main/internal/schema"
)

var ErrEmptyRegistry = errors.New("registry has no instruments")

// Config shapes the synthetic series.
type Config struct {
	// StartTs is the first tick timestamp in nanoseconds.
	StartTs int64 `json:"startTs"`
	// StepNs is the spacing between consecutive ticks.
	StepNs int64 `json:"stepNs"`
	// BasePrice is the walk's starting price in each instrument's PriceScale.
	BasePrice int64 `json:"basePrice"`
	// MaxStep bounds one walk increment, in price units.
	MaxStep int64 `json:"maxStep"`
	// BaseSize is the printed size in QuantityScale units.
	BaseSize int64 `json:"baseSize"`
	// Spread is the half quote spread in price units.
	Spread int64 `json:"spread"`
	// QuoteEvery interleaves one quote after this many trades. Zero means
	// trades only.
	QuoteEvery int `json:"quoteEvery"`
	// Seed drives the walk; same seed, same series.
	Seed int64 `json:"seed"`
}

// Generator produces a deterministic random-walk tick series over all
// instruments in a registry, round-robin. Output satisfies the series
// contract: strictly increasing timestamps.
type Generator struct {
	cfg   Config
	ins   []schema.Instrument
	px    []int64
	rng   *rand.Rand
	index int
	ts    int64
	count int
}

// NewGenerator creates a generator for all instruments in the registry.
func NewGenerator(reg *schema.Registry, cfg Config) (*Generator, error) {
	if reg == nil || reg.InstrumentCount() == 0 {
		return nil, ErrEmptyRegistry
	}
	ins := make([]schema.Instrument, 0, reg.InstrumentCount())
	for i := 0; i < reg.InstrumentCount(); i++ {
		in, ok := reg.InstrumentAt(i)
		if !ok {
			continue
		}
		ins = append(ins, in)
	}
	if cfg.StepNs <= 0 {
		cfg.StepNs = 1
	}
	if cfg.BasePrice <= 0 {
		cfg.BasePrice = 1
	}
	if cfg.MaxStep < 0 {
		cfg.MaxStep = 0
	}
	if cfg.BaseSize <= 0 {
		cfg.BaseSize = 1
	}
	if cfg.Spread < 0 {
		cfg.Spread = 0
	}
	px := make([]int64, len(ins))
	for i := range px {
		px[i] = cfg.BasePrice
	}
	return &Generator{
		cfg: cfg,
		ins: ins,
		px:  px,
		rng: rand.New(rand.NewSource(cfg.Seed)),
		ts:  cfg.StartTs,
	}, nil
}

// Next creates the next tick in sequence.
func (g *Generator) Next() schema.MarketData {
	i := g.index
	g.index = (g.index + 1) % len(g.ins)
	ins := g.ins[i]

	if g.cfg.MaxStep > 0 {
		g.px[i] += g.rng.Int63n(2*g.cfg.MaxStep+1) - g.cfg.MaxStep
		if g.px[i] < 1 {
			g.px[i] = 1
		}
	}

	g.ts += g.cfg.StepNs
	g.count++

	md := schema.MarketData{
		InstrumentID: ins.ID,
		TsEvent:      g.ts,
	}
	if g.cfg.QuoteEvery > 0 && g.count%(g.cfg.QuoteEvery+1) == 0 {
		md.Kind = schema.MarketDataQuote
		md.BidPrice = schema.Price(g.px[i] - g.cfg.Spread)
		md.BidSize = schema.Quantity(g.cfg.BaseSize)
		md.AskPrice = schema.Price(g.px[i] + g.cfg.Spread)
		md.AskSize = schema.Quantity(g.cfg.BaseSize)
		if md.BidPrice < 1 {
			md.BidPrice = 1
		}
	} else {
		md.Kind = schema.MarketDataTrade
		md.Price = schema.Price(g.px[i])
		md.Size = schema.Quantity(g.cfg.BaseSize)
	}
	return md
}

// Instrument returns the definition behind a generated tick's ID.
func (g *Generator) Instrument(id schema.InstrumentID) (schema.Instrument, bool) {
	for _, ins := range g.ins {
		if ins.ID == id {
			return ins, true
		}
	}
	return schema.Instrument{}, false
}
