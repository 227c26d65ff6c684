// Package signal standardizes payloads shared between market data and strategy layers.
package signal

import "time"

// Action enumerates the decisions a strategy can emit for a bar.
type Action string

const (
	// Buy opens a new position at the bar's closing price.
	Buy Action = "BUY"
	// Sell closes the oldest open position at the bar's closing price.
	Sell Action = "SELL"
	// Hold leaves account state untouched.
	Hold Action = "HOLD"
)

// Bar models one time step of OHLCV market data.
type Bar struct {
	Ts     time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Signal expresses the decision a strategy produced for a single bar.
type Signal struct {
	Action     Action
	Size       float64 // units to trade; 0 means use the engine default
	Confidence float64 // share of indicator votes backing the action
	Reason     string
	Ts         time.Time
}
