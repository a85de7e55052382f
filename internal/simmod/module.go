package simmod

import (
	"github.com/yanun0323/logs"

	"main/internal/schema"
)

// Exchange is the narrow surface a simulation module sees. Modules hold
// their own state and timers; the engine never looks inside a module.
type Exchange interface {
	// Now returns current simulated time in nanoseconds.
	Now() int64
	// Registry exposes instrument definitions.
	Registry() *schema.Registry
	// OpenPositions returns all non-flat positions, deterministically ordered.
	OpenPositions() []schema.Position
	// LastTrade returns the most recent traded or mid price for an
	// instrument, if any data has been seen.
	LastTrade(id schema.InstrumentID) (schema.Price, bool)
	// AdjustBalance books a module effect on the account ledger.
	AdjustBalance(ccy schema.Currency, amount schema.Money, reason string)
	// BookPosition mutates a position as if a fill occurred, realizing PnL
	// into the ledger, without any order involved.
	BookPosition(id schema.InstrumentID, side schema.OrderSide, qty schema.Quantity, px schema.Price) error
	// DropPosition removes a position with no ledger effect.
	DropPosition(id schema.InstrumentID)
}

// Module is a timed simulation plugin iterated by the engine once per time
// advance, after market data has been applied.
type Module interface {
	Register(ex Exchange)
	Process(nowNs int64) error
	LogDiagnostics(log Logger)
	Reset()
}

// Logger is the minimal diagnostics sink modules write to.
type Logger interface {
	Infof(format string, args ...any)
}

// DefaultLogger routes module diagnostics to the process logger.
func DefaultLogger() Logger {
	return stdLogger{}
}

type stdLogger struct{}

func (stdLogger) Infof(format string, args ...any) {
	logs.Infof(format, args...)
}
