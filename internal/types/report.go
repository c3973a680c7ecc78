package types

import (
	"fmt"
	"os"
	"time"

	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"
)

// EquityPoint is one entry of the equity curve: total portfolio value at the
// close of a processed bar. The curve is append-only, one point per bar.
type EquityPoint struct {
	Time   time.Time `yaml:"time" json:"time"`
	Equity float64   `yaml:"equity" json:"equity"`
}

// PerformanceReport is the read-only snapshot computed once at the end of a
// backtest run. Ratio metrics are optional: they are reported as null, not
// as an error, when undefined (fewer than two return observations or zero
// return deviation).
type PerformanceReport struct {
	// ID is the unique identifier for the backtest run.
	ID string
	// Timestamp is when the run was executed.
	Timestamp time.Time
	Symbol    string
	// StrategyName is the name of the strategy that generated the report.
	StrategyName   string
	InitialCapital float64
	FinalEquity    float64
	// TotalReturn is (final_equity / initial_equity) - 1.
	TotalReturn float64
	// MaxDrawdown is max over t of (peak_t - equity_t) / peak_t.
	MaxDrawdown      float64
	SharpeRatio      optional.Option[float64]
	SortinoRatio     optional.Option[float64]
	CalmarRatio      optional.Option[float64]
	AnnualizedReturn optional.Option[float64]
	// WinRate is winning_trades / total_trades, 0 when no trades closed.
	WinRate       float64
	TradeCount    int
	WinningTrades int
	LosingTrades  int
	TotalFees     float64
	Trades        []Trade
}

// reportYAML mirrors PerformanceReport with nullable ratios as pointers so
// undefined metrics serialize as YAML null.
type reportYAML struct {
	ID               string   `yaml:"id"`
	Timestamp        string   `yaml:"timestamp"`
	Symbol           string   `yaml:"symbol"`
	StrategyName     string   `yaml:"strategy_name"`
	InitialCapital   float64  `yaml:"initial_capital"`
	FinalEquity      float64  `yaml:"final_equity"`
	TotalReturn      float64  `yaml:"total_return"`
	MaxDrawdown      float64  `yaml:"max_drawdown"`
	SharpeRatio      *float64 `yaml:"sharpe_ratio"`
	SortinoRatio     *float64 `yaml:"sortino_ratio"`
	CalmarRatio      *float64 `yaml:"calmar_ratio"`
	AnnualizedReturn *float64 `yaml:"annualized_return"`
	WinRate          float64  `yaml:"win_rate"`
	TradeCount       int      `yaml:"trade_count"`
	WinningTrades    int      `yaml:"winning_trades"`
	LosingTrades     int      `yaml:"losing_trades"`
	TotalFees        float64  `yaml:"total_fees"`
	Trades           []Trade  `yaml:"trades"`
}

// MarshalYAML implements yaml.Marshaler.
func (r PerformanceReport) MarshalYAML() (any, error) {
	return reportYAML{
		ID:               r.ID,
		Timestamp:        r.Timestamp.Format(time.RFC3339),
		Symbol:           r.Symbol,
		StrategyName:     r.StrategyName,
		InitialCapital:   r.InitialCapital,
		FinalEquity:      r.FinalEquity,
		TotalReturn:      r.TotalReturn,
		MaxDrawdown:      r.MaxDrawdown,
		SharpeRatio:      optionPtr(r.SharpeRatio),
		SortinoRatio:     optionPtr(r.SortinoRatio),
		CalmarRatio:      optionPtr(r.CalmarRatio),
		AnnualizedReturn: optionPtr(r.AnnualizedReturn),
		WinRate:          r.WinRate,
		TradeCount:       r.TradeCount,
		WinningTrades:    r.WinningTrades,
		LosingTrades:     r.LosingTrades,
		TotalFees:        r.TotalFees,
		Trades:           r.Trades,
	}, nil
}

func optionPtr(o optional.Option[float64]) *float64 {
	if o.IsNone() {
		return nil
	}

	v := o.Unwrap()

	return &v
}

// WritePerformanceReport writes the report to a YAML file at the given path.
func WritePerformanceReport(path string, report PerformanceReport) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal performance report to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write performance report to file: %w", err)
	}

	return nil
}
