package fill

import (
	"fmt"
	"math/rand"
)

// Config holds the fill probabilities. All values must be in [0, 1].
type Config struct {
	// ProbFillOnLimit is the chance a price-crossed limit order fills on
	// the tick that crossed it.
	ProbFillOnLimit float64 `json:"probFillOnLimit"`
	// ProbFillOnStop is the chance a triggered stop order fills on the
	// tick that triggered it.
	ProbFillOnStop float64 `json:"probFillOnStop"`
	// ProbSlippage is the chance any fill prints one increment worse than
	// the naive cross price.
	ProbSlippage float64 `json:"probSlippage"`
	// Seed drives the internal random source. The same seed produces the
	// same decision sequence across runs.
	Seed int64 `json:"seed"`
}

// Validate ensures the config is within supported ranges.
func (c Config) Validate() error {
	if c.ProbFillOnLimit < 0 || c.ProbFillOnLimit > 1 {
		return fmt.Errorf("probFillOnLimit must be between 0 and 1")
	}
	if c.ProbFillOnStop < 0 || c.ProbFillOnStop > 1 {
		return fmt.Errorf("probFillOnStop must be between 0 and 1")
	}
	if c.ProbSlippage < 0 || c.ProbSlippage > 1 {
		return fmt.Errorf("probSlippage must be between 0 and 1")
	}
	return nil
}

// Model decides probabilistically whether crossed orders fill and whether
// fills slip. Market orders always fill and never consult the limit/stop
// decisions, but are still subject to the slippage decision.
type Model struct {
	cfg Config
	rng *rand.Rand
}

// NewModel creates a fill model with validation. Seed 0 is a valid fixed
// seed; backtests must be reproducible, so no wall-clock fallback here.
func NewModel(cfg Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Model{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// IsLimitFilled decides whether a crossed limit order fills this tick.
func (m *Model) IsLimitFilled() bool {
	return m.draw(m.cfg.ProbFillOnLimit)
}

// IsStopFilled decides whether a triggered stop order fills this tick.
func (m *Model) IsStopFilled() bool {
	return m.draw(m.cfg.ProbFillOnStop)
}

// IsSlipped decides whether a fill incurs adverse slippage.
func (m *Model) IsSlipped() bool {
	return m.draw(m.cfg.ProbSlippage)
}

// Reset rewinds the random source to the configured seed.
func (m *Model) Reset() {
	m.rng = rand.New(rand.NewSource(m.cfg.Seed))
}

func (m *Model) draw(p float64) bool {
	switch {
	case p <= 0:
		return false
	case p >= 1:
		return true
	default:
		return m.rng.Float64() < p
	}
}
