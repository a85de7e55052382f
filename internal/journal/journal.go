package journal

import (
	"github.com/yanun0323/errors"

	"main/internal/schema"
	"main/pkg/conn"
)

var ErrClosed = errors.New("journal closed")

// FillRecord is one persisted fill. Money columns are scaled integers at
// the fixed money scale; prices and quantities use the instrument's scales.
type FillRecord struct {
	ID            uint64 `gorm:"primaryKey;autoIncrement"`
	RunID         string `gorm:"index;size:64"`
	OrderID       uint64 `gorm:"index"`
	StrategyID    uint32
	InstrumentID  uint32
	TsEvent       int64 `gorm:"index"`
	Price         int64
	Qty           int64
	LeavesQty     int64
	Commission    int64
	CommissionCcy string `gorm:"size:16"`
	Liquidity     uint16
}

func (FillRecord) TableName() string { return "backtest_fills" }

// EquitySnapshot is one persisted per-currency account state.
type EquitySnapshot struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	RunID    string `gorm:"index;size:64"`
	TsEvent  int64  `gorm:"index"`
	Currency string `gorm:"size:16"`
	Balance  int64
	Realized int64
}

func (EquitySnapshot) TableName() string { return "backtest_equity" }

// Journal persists fills and equity snapshots for a run. It sits off the
// engine's critical path; a consumer drains the event bus into it.
type Journal struct {
	cli   *conn.Client
	runID string
}

// Open connects and migrates the journal tables.
func Open(dsn, runID string) (*Journal, error) {
	cli, err := conn.New(conn.Option{DSN: dsn})
	if err != nil {
		return nil, errors.Wrap(err, "open journal")
	}
	if err := cli.DB().AutoMigrate(&FillRecord{}, &EquitySnapshot{}); err != nil {
		_ = cli.Close()
		return nil, errors.Wrap(err, "migrate journal")
	}
	return &Journal{cli: cli, runID: runID}, nil
}

// RecordEvent persists fill events; everything else is ignored.
func (j *Journal) RecordEvent(ev schema.ExecEvent) error {
	if ev.Type != schema.ExecFilled {
		return nil
	}
	if j == nil || j.cli == nil {
		return ErrClosed
	}
	row := FillRecord{
		RunID:         j.runID,
		OrderID:       ev.OrderID,
		StrategyID:    ev.StrategyID,
		InstrumentID:  uint32(ev.InstrumentID),
		TsEvent:       ev.TsEvent,
		Price:         int64(ev.Price),
		Qty:           int64(ev.Qty),
		LeavesQty:     int64(ev.LeavesQty),
		Commission:    int64(ev.Commission),
		CommissionCcy: string(ev.CommissionCcy),
		Liquidity:     uint16(ev.Liquidity),
	}
	return j.cli.DB().Create(&row).Error
}

// RecordEquity persists one per-currency account snapshot.
func (j *Journal) RecordEquity(ts int64, ccy schema.Currency, balance, realized schema.Money) error {
	if j == nil || j.cli == nil {
		return ErrClosed
	}
	row := EquitySnapshot{
		RunID:    j.runID,
		TsEvent:  ts,
		Currency: string(ccy),
		Balance:  int64(balance),
		Realized: int64(realized),
	}
	return j.cli.DB().Create(&row).Error
}

// Close releases the connection pool.
func (j *Journal) Close() error {
	if j == nil || j.cli == nil {
		return nil
	}
	err := j.cli.Close()
	j.cli = nil
	return err
}
