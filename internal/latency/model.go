package latency

import (
	"fmt"

	"main/internal/schema"
)

// Model maps a command kind to a fixed simulated wire delay. The delay is
// purely a timestamp offset; nothing actually waits.
type Model struct {
	// BaseNs applies to every command on top of the per-kind delay.
	BaseNs int64 `json:"baseNs"`
	// InsertNs, UpdateNs and CancelNs apply to new orders, modifications
	// and cancellations respectively.
	InsertNs int64 `json:"insertNs"`
	UpdateNs int64 `json:"updateNs"`
	CancelNs int64 `json:"cancelNs"`
}

// Validate ensures all delays are non-negative.
func (m Model) Validate() error {
	if m.BaseNs < 0 || m.InsertNs < 0 || m.UpdateNs < 0 || m.CancelNs < 0 {
		return fmt.Errorf("latency delays must be >= 0")
	}
	return nil
}

// Delay returns the total delay for a command kind.
func (m Model) Delay(kind schema.CommandKind) int64 {
	switch kind {
	case schema.CommandInsert:
		return m.BaseNs + m.InsertNs
	case schema.CommandUpdate:
		return m.BaseNs + m.UpdateNs
	case schema.CommandCancel:
		return m.BaseNs + m.CancelNs
	default:
		return m.BaseNs
	}
}

// EffectiveTime returns send time plus the delay for a command kind.
func (m Model) EffectiveTime(sendTs int64, kind schema.CommandKind) int64 {
	return sendTs + m.Delay(kind)
}
