package simmod

import (
	"fmt"
	"time"

	"main/internal/schema"
)

// rateScale is the scale for annual interest rates: 1e9 units per 100%.
// Daily fractions of small annual rates need the extra precision.
const rateScale schema.Scale = 9

const daysPerYear = 365

// RolloverConfig drives the FX rollover interest module.
type RolloverConfig struct {
	// Hour/Minute is the rollover boundary time-of-day in UTC.
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
	// TripleDay is the weekday carrying three days of interest to cover
	// the non-trading weekend. Spot FX settles T+2, so Wednesday.
	TripleDay time.Weekday `json:"tripleDay"`
	// AnnualRates maps an FX symbol to its net annual interest rate
	// differential as a decimal string, e.g. "EUR/USD": "0.0125".
	AnnualRates map[string]string `json:"annualRates"`
}

// RolloverInterest applies overnight carry interest to open FX positions
// once per calendar day when simulated time crosses the rollover boundary.
type RolloverInterest struct {
	cfg   RolloverConfig
	rates map[string]int64 // symbol -> annual rate at rateScale

	ex Exchange
	// lastApplied is the UTC day (year*10000+month*100+day) the module
	// already processed. Consumed at most once per day.
	lastApplied int
	applied     int
	totalPaid   map[schema.Currency]schema.Money
}

// NewRolloverInterest parses the configured rates.
func NewRolloverInterest(cfg RolloverConfig) (*RolloverInterest, error) {
	if cfg.Hour < 0 || cfg.Hour > 23 || cfg.Minute < 0 || cfg.Minute > 59 {
		return nil, fmt.Errorf("invalid rollover time %02d:%02d", cfg.Hour, cfg.Minute)
	}
	if cfg.TripleDay == time.Sunday {
		// Zero value; weekends never roll over, so Sunday means "default".
		cfg.TripleDay = time.Wednesday
	}
	rates := make(map[string]int64, len(cfg.AnnualRates))
	for symbol, s := range cfg.AnnualRates {
		rate, err := schema.ParseScaled(s, rateScale)
		if err != nil {
			return nil, fmt.Errorf("invalid annual rate for %s: %w", symbol, err)
		}
		rates[symbol] = rate
	}
	return &RolloverInterest{
		cfg:       cfg,
		rates:     rates,
		totalPaid: make(map[schema.Currency]schema.Money),
	}, nil
}

func (m *RolloverInterest) Register(ex Exchange) {
	m.ex = ex
}

// Process applies interest when the rollover boundary for the current UTC
// day has been crossed and not yet consumed. Saturday and Sunday carry no
// rollover; the triple day carries three.
func (m *RolloverInterest) Process(nowNs int64) error {
	now := time.Unix(0, nowNs).UTC()
	day := now.Year()*10000 + int(now.Month())*100 + now.Day()
	if day == m.lastApplied {
		return nil
	}
	boundary := time.Date(now.Year(), now.Month(), now.Day(), m.cfg.Hour, m.cfg.Minute, 0, 0, time.UTC)
	if now.Before(boundary) {
		return nil
	}
	m.lastApplied = day

	weekday := now.Weekday()
	if weekday == time.Saturday || weekday == time.Sunday {
		return nil
	}
	days := int64(1)
	if weekday == m.cfg.TripleDay {
		days = 3
	}

	reg := m.ex.Registry()
	for _, pos := range m.ex.OpenPositions() {
		ins, ok := reg.Instrument(pos.InstrumentID)
		if !ok || ins.Class != schema.AssetFX {
			continue
		}
		rate, ok := m.rates[ins.Symbol]
		if !ok || rate == 0 {
			continue
		}
		interest := m.interestFor(pos, ins, rate, days)
		if interest == 0 {
			continue
		}
		m.ex.AdjustBalance(ins.SettlementCurrency, interest, "rollover interest "+ins.Symbol)
		m.totalPaid[ins.SettlementCurrency] += interest
		m.applied++
	}
	return nil
}

// interestFor computes signed carry for one position. Long positions earn
// the configured differential, short positions pay it.
func (m *RolloverInterest) interestFor(pos schema.Position, ins schema.Instrument, annualRate, days int64) schema.Money {
	notionalRaw := int64(pos.AvgPrice) * abs64(int64(pos.Qty))
	notional := schema.Rescale(notionalRaw, ins.PriceScale+ins.QuantityScale, schema.MoneyScale)
	notional *= ins.ContractSize

	daily := annualRate / daysPerYear
	interest := notional / schema.Pow10(rateScale) * daily * days
	if interest == 0 {
		// Small notionals underflow the shortcut above; do it the precise way.
		interest = notional * daily / schema.Pow10(rateScale) * days
	}
	if pos.Qty < 0 {
		interest = -interest
	}
	return schema.Money(interest)
}

func (m *RolloverInterest) LogDiagnostics(log Logger) {
	log.Infof("rollover interest: applied=%d positions", m.applied)
	for ccy, total := range m.totalPaid {
		log.Infof("rollover interest: %s total=%s", ccy, total)
	}
}

func (m *RolloverInterest) Reset() {
	m.lastApplied = 0
	m.applied = 0
	for ccy := range m.totalPaid {
		delete(m.totalPaid, ccy)
	}
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
