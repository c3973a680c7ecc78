package types

import "time"

// Trade is a closed round trip: the entry fill(s) and exit fill(s) of a
// single position. Trades are derived records used only for reporting.
type Trade struct {
	Symbol    string    `yaml:"symbol" json:"symbol"`
	Direction Direction `yaml:"direction" json:"direction"`
	EntryTime time.Time `yaml:"entry_time" json:"entry_time"`
	ExitTime  time.Time `yaml:"exit_time" json:"exit_time"`
	// EntryPrice is the fee-inclusive average entry price.
	EntryPrice float64 `yaml:"entry_price" json:"entry_price"`
	ExitPrice  float64 `yaml:"exit_price" json:"exit_price"`
	Quantity   float64 `yaml:"quantity" json:"quantity"`
	// Fees is the total fees paid on both legs.
	Fees float64 `yaml:"fees" json:"fees"`
	// PnL is the realized profit and loss of the round trip, net of fees.
	PnL float64 `yaml:"pnl" json:"pnl"`
	// StrategyName is the name of the strategy that produced the trade.
	StrategyName string `yaml:"strategy_name" json:"strategy_name"`
}

// IsWin reports whether the trade closed with positive net PnL.
func (t Trade) IsWin() bool {
	return t.PnL > 0
}
