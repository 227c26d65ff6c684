package backtest

import "time"

// Position is a still-open simulated trade awaiting closure. Positions are
// owned exclusively by the engine's open queue.
type Position struct {
	EntryPrice float64   `json:"entry_price"`
	Size       float64   `json:"size"`
	OpenedAt   time.Time `json:"opened_at"`
}

// Trade is a completed round-trip. Immutable once appended to the ledger.
type Trade struct {
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Size       float64   `json:"size"`
	PnL        float64   `json:"pnl"`
	OpenedAt   time.Time `json:"opened_at"`
	ClosedAt   time.Time `json:"closed_at"`
}
